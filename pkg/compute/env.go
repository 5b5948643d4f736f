package compute

import (
	"sort"

	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/ast"
)

// Env is the flat runtime environment of one execution. Every value is
// stored as float32 whatever its declared type. Arrays remember their
// declaration order so the output array is deterministic.
type Env struct {
	scalars map[string]float32
	arrays  map[string][]float32
	order   []string
}

// NewEnv creates an empty environment.
func NewEnv() *Env {
	return &Env{
		scalars: make(map[string]float32),
		arrays:  make(map[string][]float32),
	}
}

// Declare creates a zero scalar or a zero-filled array for typ. It reports
// false, leaving the existing binding untouched, if name is already declared.
func (e *Env) Declare(name string, typ ast.DataType) bool {
	if e.Has(name) {
		return false
	}
	if typ.IsArray() {
		e.arrays[name] = make([]float32, typ.Size)
		e.order = append(e.order, name)
	} else {
		e.scalars[name] = 0
	}
	return true
}

// Has checks whether name is declared as a scalar or an array.
func (e *Env) Has(name string) bool {
	if _, ok := e.scalars[name]; ok {
		return true
	}
	_, ok := e.arrays[name]
	return ok
}

// Scalar looks up a scalar.
func (e *Env) Scalar(name string) (float32, bool) {
	v, ok := e.scalars[name]
	return v, ok
}

// SetScalar binds a scalar, declaring it if needed.
func (e *Env) SetScalar(name string, v float32) {
	e.scalars[name] = v
}

// IsScalar reports whether name is a declared scalar.
func (e *Env) IsScalar(name string) bool {
	_, ok := e.scalars[name]
	return ok
}

// Array returns the backing slice of an array.
func (e *Env) Array(name string) ([]float32, bool) {
	arr, ok := e.arrays[name]
	return arr, ok
}

// IsArray reports whether name is a declared array.
func (e *Env) IsArray(name string) bool {
	_, ok := e.arrays[name]
	return ok
}

// Elem reads arr[idx]; ok is false when the index is out of range.
func (e *Env) Elem(name string, idx int64) (float32, bool) {
	arr := e.arrays[name]
	if idx < 0 || idx >= int64(len(arr)) {
		return 0, false
	}
	return arr[idx], true
}

// SetElem writes arr[idx]. Out of range writes are dropped and reported as false.
func (e *Env) SetElem(name string, idx int64, v float32) bool {
	arr := e.arrays[name]
	if idx < 0 || idx >= int64(len(arr)) {
		return false
	}
	arr[idx] = v
	return true
}

// FirstArray returns a copy of the first declared array, or an empty slice.
func (e *Env) FirstArray() []float32 {
	if len(e.order) == 0 {
		return []float32{}
	}
	arr := e.arrays[e.order[0]]
	out := make([]float32, len(arr))
	copy(out, arr)
	return out
}

// ArrayNames lists arrays in declaration order.
func (e *Env) ArrayNames() []string {
	return append([]string(nil), e.order...)
}

// ScalarNames lists scalars sorted by name.
func (e *Env) ScalarNames() []string {
	names := make([]string, 0, len(e.scalars))
	for name := range e.scalars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
