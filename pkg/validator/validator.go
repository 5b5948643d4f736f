// Package validator implements static semantic checks of SuperC programs.
package validator

import (
	"fmt"

	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/ast"
	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/diagnostics"
	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/stdlib"
)

const userFnHint = "function definitions are emitted by the code generators but never executed by the interpreter"

type validator struct {
	diags   []diagnostics.Diagnostic
	stdlib  *stdlib.Registry
	fns     map[string]*ast.FnDef
	symbols *SymbolTable
	// current is the function being validated, nil at top level.
	current *ast.FnDef
}

// Validate checks program against the default built-ins and returns
// diagnostics in source order of discovery.
func Validate(program *ast.Program) []diagnostics.Diagnostic {
	return ValidateWith(program, stdlib.Default())
}

// ValidateWith checks program against a custom built-in registry.
func ValidateWith(program *ast.Program, reg *stdlib.Registry) []diagnostics.Diagnostic {
	v := &validator{
		stdlib: reg,
		fns:    make(map[string]*ast.FnDef),
	}

	v.validateFunctionHeaders(program.Functions)

	for _, fn := range program.Functions {
		v.current = fn
		v.symbols = Collect(fn.Body, fn.Params)
		v.reportConflicts()
		v.validateBlock(fn.Body)
	}

	v.current = nil
	v.symbols = Collect(program.Statements, nil)
	v.reportConflicts()
	v.validateBlock(program.Statements)

	return v.diags
}

func (v *validator) addDiag(code, msg string, span ast.Span) {
	v.diags = append(v.diags, diagnostics.MakeDiag(code, msg, &span, ""))
}

func (v *validator) addHint(code, msg string, span ast.Span, hint string) {
	v.diags = append(v.diags, diagnostics.MakeDiag(code, msg, &span, hint))
}

func (v *validator) validateFunctionHeaders(fns []*ast.FnDef) {
	for _, fn := range fns {
		switch {
		case v.fns[fn.Name] != nil:
			v.addDiag(diagnostics.EType, fmt.Sprintf("Duplicate function: %s", fn.Name), fn.Span)
			continue
		case v.stdlib.Get(fn.Name) != nil || fn.Name == "print":
			v.addDiag(diagnostics.EType, fmt.Sprintf("Function %s shadows a built-in", fn.Name), fn.Span)
		}
		v.fns[fn.Name] = fn

		seen := make(map[string]bool)
		for _, p := range fn.Params {
			if seen[p.Name] {
				v.addDiag(diagnostics.EType, fmt.Sprintf("Duplicate parameter %s in function %s", p.Name, fn.Name), fn.Span)
			}
			seen[p.Name] = true
		}
		if fn.RetType.IsArray() {
			v.addDiag(diagnostics.EType, fmt.Sprintf("Function %s cannot return an array", fn.Name), fn.Span)
		}
	}
}

func (v *validator) reportConflicts() {
	for _, decl := range v.symbols.Conflicts {
		prev, _ := v.symbols.Lookup(decl.Name)
		v.addDiag(diagnostics.EType,
			fmt.Sprintf("Conflicting declaration: %s is %s, redeclared as %s", decl.Name, prev.Type, decl.Type), decl.Span)
	}
}

// --- Statements ---

func (v *validator) validateBlock(stmts []ast.Stmt) {
	for _, stmt := range stmts {
		v.validateStmt(stmt)
	}
}

func (v *validator) validateStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.DataDecl:
		// collected up front

	case *ast.AssignStmt:
		v.validateAssign(s)

	case *ast.ExecBlock:
		v.validateBlock(s.Body)

	case *ast.IfStmt:
		v.validateExpr(s.Cond)
		v.validateBlock(s.Then)
		v.validateBlock(s.Else)

	case *ast.ForStmt:
		if sym, ok := v.symbols.Lookup(s.Var); ok && sym.Type.IsArray() {
			v.addDiag(diagnostics.EType, fmt.Sprintf("Loop variable is an array: %s", s.Var), s.Span)
		}
		v.validateInt(s.Start)
		v.validateInt(s.End)
		v.validateBlock(s.Body)

	case *ast.ExprStmt:
		if call, ok := s.Expr.(*ast.CallExpr); ok && call.Name == "print" {
			if len(call.Args) != 1 {
				v.addDiag(diagnostics.EArity, fmt.Sprintf("print expects 1 argument, got %d", len(call.Args)), call.Span)
			}
			for _, a := range call.Args {
				v.validateExpr(a)
			}
			return
		}
		v.validateExpr(s.Expr)

	case *ast.ReturnStmt:
		v.validateReturn(s)
	}
}

func (v *validator) validateAssign(s *ast.AssignStmt) {
	v.validateExpr(s.Value)
	sym, ok := v.symbols.Lookup(s.Target)
	if s.Index != nil {
		v.validateInt(s.Index)
	}
	switch {
	case !ok:
		v.addDiag(diagnostics.EUndefined, fmt.Sprintf("Undefined variable: %s", s.Target), s.Span)
	case s.Index == nil && sym.Type.IsArray():
		v.addDiag(diagnostics.EType, fmt.Sprintf("Cannot assign a scalar to array: %s", s.Target), s.Span)
	case s.Index != nil && !sym.Type.IsArray():
		v.addDiag(diagnostics.EType, fmt.Sprintf("Cannot index scalar: %s", s.Target), s.Span)
	}
}

func (v *validator) validateReturn(s *ast.ReturnStmt) {
	if s.Value == nil {
		return
	}
	v.validateExpr(s.Value)
	if v.current != nil && v.current.RetType.Kind == ast.TypeVoid {
		v.addDiag(diagnostics.EType, fmt.Sprintf("Function %s returns no value", v.current.Name), s.Span)
	}
}

// --- Expressions ---

// validateExpr checks expr in float context.
func (v *validator) validateExpr(expr ast.Expr) {
	switch e := expr.(type) {
	case *ast.IntLiteral, *ast.FloatLiteral, *ast.BoolLiteral:

	case *ast.StrLiteral:
		v.addDiag(diagnostics.EType, "Unsupported expression: string literal", e.Span)

	case *ast.Ident:
		v.checkScalar(e)

	case *ast.IndexExpr:
		v.validateIndex(e)

	case *ast.BinaryExpr:
		v.validateExpr(e.Left)
		v.validateExpr(e.Right)

	case *ast.UnaryExpr:
		v.validateExpr(e.Operand)

	case *ast.CallExpr:
		v.validateCall(e)

	case *ast.ReduceExpr:
		v.validateReduce(e)
	}
}

func (v *validator) checkScalar(id *ast.Ident) {
	sym, ok := v.symbols.Lookup(id.Name)
	switch {
	case !ok:
		v.addDiag(diagnostics.EUndefined, fmt.Sprintf("Undefined variable: %s", id.Name), id.Span)
	case sym.Type.IsArray():
		v.addDiag(diagnostics.EType, fmt.Sprintf("Array used as a scalar: %s", id.Name), id.Span)
	}
}

func (v *validator) validateIndex(e *ast.IndexExpr) {
	v.validateInt(e.Index)
	id, ok := e.Array.(*ast.Ident)
	if !ok {
		v.addDiag(diagnostics.EType, "Invalid array access", e.Span)
		return
	}
	sym, ok := v.symbols.Lookup(id.Name)
	switch {
	case !ok:
		v.addDiag(diagnostics.EUndefined, fmt.Sprintf("Undefined variable: %s", id.Name), id.Span)
	case !sym.Type.IsArray():
		v.addDiag(diagnostics.EType, fmt.Sprintf("Cannot index scalar: %s", id.Name), e.Span)
	}
}

func (v *validator) validateCall(e *ast.CallExpr) {
	if fn := v.stdlib.Get(e.Name); fn != nil {
		if len(e.Args) != fn.Arity {
			v.addDiag(diagnostics.EArity,
				fmt.Sprintf("%s expects %d argument(s), got %d", fn.Name, fn.Arity, len(e.Args)), e.Span)
		}
		for _, a := range e.Args {
			v.validateExpr(a)
		}
		return
	}

	user := v.fns[e.Name]
	if user == nil || v.current == nil {
		msg := fmt.Sprintf("Unknown function: %s", e.Name)
		if user != nil {
			v.addHint(diagnostics.EUnknownFn, msg, e.Span, userFnHint)
		} else {
			v.addDiag(diagnostics.EUnknownFn, msg, e.Span)
		}
		for _, a := range e.Args {
			v.validateExpr(a)
		}
		return
	}

	if len(e.Args) != len(user.Params) {
		v.addDiag(diagnostics.EArity,
			fmt.Sprintf("%s expects %d argument(s), got %d", user.Name, len(user.Params), len(e.Args)), e.Span)
	}
	for i, a := range e.Args {
		if i < len(user.Params) && user.Params[i].Type.IsArray() {
			v.validateArrayArg(a, user.Params[i])
			continue
		}
		v.validateExpr(a)
	}
	if user.RetType.Kind == ast.TypeVoid {
		v.addDiag(diagnostics.EType, fmt.Sprintf("Function %s returns no value", user.Name), e.Span)
	}
}

func (v *validator) validateArrayArg(arg ast.Expr, param ast.Param) {
	id, ok := arg.(*ast.Ident)
	if !ok {
		v.addDiag(diagnostics.EType, fmt.Sprintf("Parameter %s expects an array identifier", param.Name), arg.NodeSpan())
		return
	}
	sym, ok := v.symbols.Lookup(id.Name)
	switch {
	case !ok:
		v.addDiag(diagnostics.EUndefined, fmt.Sprintf("Undefined variable: %s", id.Name), id.Span)
	case !sym.Type.Equal(param.Type):
		v.addDiag(diagnostics.EType,
			fmt.Sprintf("Parameter %s expects %s, got %s", param.Name, param.Type, sym.Type), id.Span)
	}
}

func (v *validator) validateReduce(e *ast.ReduceExpr) {
	id, ok := e.Array.(*ast.Ident)
	if !ok {
		v.addDiag(diagnostics.EReduce, "Reduce requires array identifier", e.Span)
		return
	}
	sym, ok := v.symbols.Lookup(id.Name)
	switch {
	case !ok:
		v.addDiag(diagnostics.EUndefined, fmt.Sprintf("Undefined variable: %s", id.Name), id.Span)
	case !sym.Type.IsArray():
		v.addDiag(diagnostics.EReduce, fmt.Sprintf("Undefined array: %s", id.Name), id.Span)
	}
}

// validateInt checks a loop bound or array index. Only integer literals,
// scalar identifiers and + - * / % are allowed.
func (v *validator) validateInt(expr ast.Expr) {
	switch e := expr.(type) {
	case *ast.IntLiteral:

	case *ast.Ident:
		v.checkScalar(e)

	case *ast.BinaryExpr:
		if !e.Op.IsArithmetic() {
			v.addHint(diagnostics.EIntContext, "Expected integer expression", e.Span,
				fmt.Sprintf("operator %s is not allowed in an index or loop bound", e.Op))
			return
		}
		v.validateInt(e.Left)
		v.validateInt(e.Right)
		if lit, ok := e.Right.(*ast.IntLiteral); ok && lit.Value == 0 && (e.Op == ast.OpDiv || e.Op == ast.OpMod) {
			v.addDiag(diagnostics.EDivZero, "integer division by zero", e.Span)
		}

	default:
		v.addHint(diagnostics.EIntContext, "Expected integer expression", expr.NodeSpan(),
			"indices and loop bounds accept integer literals, scalar variables and + - * / %")
	}
}
