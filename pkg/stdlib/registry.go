// Package stdlib provides the SuperC built-in function registry shared by the
// interpreter, the validator and the code emitters.
package stdlib

import (
	"errors"
	"fmt"
	"sort"
)

// ErrArity is wrapped by Call when the argument count does not match.
var ErrArity = errors.New("wrong number of arguments")

// Fn represents a built-in function. Besides the interpreter implementation it
// records how each emitter spells the call.
type Fn struct {
	Name    string
	Arity   int
	Doc     string
	Execute func(args []float32) float32

	// RustMethod is the f32/f64 method name, as in x.sqrt().
	RustMethod string
	// CName32 and CName64 are the libm functions for float and double.
	CName32 string
	CName64 string
	// AsmSymbol is the C runtime symbol the assembly emitter calls. Empty
	// means the emitter lowers the call inline.
	AsmSymbol string
}

// Registry holds registered built-in functions.
type Registry struct {
	fns map[string]*Fn
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		fns: make(map[string]*Fn),
	}
}

// Default returns a registry with all built-in functions registered.
func Default() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}

// Register adds a function to the registry.
func (r *Registry) Register(fn Fn) {
	r.fns[fn.Name] = &fn
}

// Get retrieves a function by name, or nil.
func (r *Registry) Get(name string) *Fn {
	return r.fns[name]
}

// All returns all registered functions.
func (r *Registry) All() map[string]*Fn {
	return r.fns
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.fns))
	for name := range r.fns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call runs fn after checking the argument count.
func (fn *Fn) Call(args []float32) (float32, error) {
	if len(args) != fn.Arity {
		return 0, fmt.Errorf("%s expects %d argument(s), got %d: %w", fn.Name, fn.Arity, len(args), ErrArity)
	}
	return fn.Execute(args), nil
}
