package validator

import (
	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/ast"
)

// Symbol is one name in a flat scope.
type Symbol struct {
	Name string
	Type ast.DataType
	Span ast.Span
	// Param marks function parameters.
	Param bool
	// Implicit marks loop variables that were never declared with data.
	Implicit bool
}

// SymbolTable is the flat namespace of one scope: the top level of a program
// or the body of one function. The first declaration of a name wins, as in
// the interpreter; later declarations with a different type are recorded as
// conflicts.
type SymbolTable struct {
	order     []*Symbol
	byName    map[string]*Symbol
	Conflicts []*ast.DataDecl
}

// Collect builds the symbol table of a scope. Parameters come first, then
// every top-level declaration of stmts, then nested declarations and loop
// variables in source order.
func Collect(stmts []ast.Stmt, params []ast.Param) *SymbolTable {
	st := &SymbolTable{byName: make(map[string]*Symbol)}
	for _, p := range params {
		st.add(&Symbol{Name: p.Name, Type: p.Type, Param: true})
	}
	for _, stmt := range stmts {
		if decl, ok := stmt.(*ast.DataDecl); ok {
			st.declare(decl)
		}
	}
	st.walk(stmts, true)
	return st
}

func (st *SymbolTable) add(sym *Symbol) {
	st.byName[sym.Name] = sym
	st.order = append(st.order, sym)
}

func (st *SymbolTable) declare(decl *ast.DataDecl) {
	if prev, ok := st.byName[decl.Name]; ok {
		if !prev.Type.Equal(decl.Type) {
			st.Conflicts = append(st.Conflicts, decl)
		}
		return
	}
	st.add(&Symbol{Name: decl.Name, Type: decl.Type, Span: decl.Span})
}

func (st *SymbolTable) walk(stmts []ast.Stmt, topLevel bool) {
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.DataDecl:
			if !topLevel {
				st.declare(s)
			}
		case *ast.ForStmt:
			if _, ok := st.byName[s.Var]; !ok {
				st.add(&Symbol{Name: s.Var, Type: ast.I64, Span: s.Span, Implicit: true})
			}
			st.walk(s.Body, false)
		case *ast.IfStmt:
			st.walk(s.Then, false)
			st.walk(s.Else, false)
		case *ast.ExecBlock:
			st.walk(s.Body, false)
		}
	}
}

// Lookup finds a symbol by name.
func (st *SymbolTable) Lookup(name string) (*Symbol, bool) {
	sym, ok := st.byName[name]
	return sym, ok
}

// Symbols returns every symbol in declaration order, parameters first.
func (st *SymbolTable) Symbols() []*Symbol {
	return st.order
}

// Locals returns the symbols that are not parameters.
func (st *SymbolTable) Locals() []*Symbol {
	out := make([]*Symbol, 0, len(st.order))
	for _, sym := range st.order {
		if !sym.Param {
			out = append(out, sym)
		}
	}
	return out
}

// Arrays returns the array symbols in declaration order.
func (st *SymbolTable) Arrays() []*Symbol {
	var out []*Symbol
	for _, sym := range st.order {
		if sym.Type.IsArray() {
			out = append(out, sym)
		}
	}
	return out
}
