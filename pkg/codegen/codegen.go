// Package codegen translates SuperC programs into Rust and C source text.
//
// Both targets share one walk over the AST. Declarations are hoisted to the
// top of their scope (the flat namespace the interpreter uses), float
// expressions are computed in single precision like the interpreter, and
// indices and loop bounds are computed in 64-bit integers.
package codegen

import (
	"fmt"
	"strings"

	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/ast"
	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/diagnostics"
	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/formatter"
	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/stdlib"
	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/validator"
)

// Target selects the output language.
type Target int

const (
	TargetRust Target = iota
	TargetC
)

func (t Target) String() string {
	switch t {
	case TargetRust:
		return "rust"
	case TargetC:
		return "c"
	}
	return fmt.Sprintf("Target(%d)", int(t))
}

// Suffix replaces the .sc extension of a source file in build output.
func (t Target) Suffix() string {
	if t == TargetC {
		return "_generated.c"
	}
	return "_generated.rs"
}

// ParseTarget accepts rust and c, with or without the CLI flag spellings.
func ParseTarget(s string) (Target, error) {
	switch strings.ToLower(s) {
	case "--rust", "-r", "rust", "rs":
		return TargetRust, nil
	case "--c", "-c", "c":
		return TargetC, nil
	}
	return TargetRust, fmt.Errorf("unknown target %q (want rust or c)", s)
}

// Error is a code generation failure. Generation stops at the first one.
type Error struct {
	Code    string
	Message string
	Span    *ast.Span
}

func (e *Error) Error() string {
	if e.Span != nil {
		return fmt.Sprintf("%s:%d:%d: %s", e.Span.File, e.Span.StartLine, e.Span.StartCol, e.Message)
	}
	return e.Message
}

// Diagnostic converts the error for display.
func (e *Error) Diagnostic() diagnostics.Diagnostic {
	return diagnostics.MakeDiag(e.Code, e.Message, e.Span, "")
}

type generator struct {
	target  Target
	fns     *stdlib.Registry
	user    map[string]*ast.FnDef
	sb      strings.Builder
	indent  int
	symbols *validator.SymbolTable
	current *ast.FnDef
	tmp     int
	// reducers holds the C reduce helpers used, keyed by name.
	reducers     map[string]string
	reducerOrder []string
	err          *Error
}

// Generate emits program as Rust or C source using the default built-ins.
func Generate(program *ast.Program, target Target) (string, error) {
	return GenerateWith(program, target, stdlib.Default())
}

// GenerateWith emits program against a custom built-in registry.
func GenerateWith(program *ast.Program, target Target, reg *stdlib.Registry) (string, error) {
	g := &generator{
		target:   target,
		fns:      reg,
		user:     make(map[string]*ast.FnDef),
		reducers: make(map[string]string),
	}
	for _, fn := range program.Functions {
		g.user[fn.Name] = fn
	}

	if target == TargetC {
		g.generateC(program)
	} else {
		g.generateRust(program)
	}
	if g.err != nil {
		return "", g.err
	}

	var out strings.Builder
	out.WriteString(g.prelude(program.Span.File))
	for _, name := range g.reducerOrder {
		out.WriteString(g.reducers[name])
		out.WriteString("\n")
	}
	out.WriteString(g.sb.String())
	return out.String(), nil
}

func (g *generator) fail(span ast.Span, format string, args ...any) {
	if g.err == nil {
		g.err = &Error{Code: diagnostics.ECodegen, Message: fmt.Sprintf(format, args...), Span: &span}
	}
}

func (g *generator) rust() bool {
	return g.target == TargetRust
}

// --- Output helpers ---

func (g *generator) emitLine(s string) {
	if s != "" {
		g.sb.WriteString(g.indentStr())
	}
	g.sb.WriteString(s)
	g.sb.WriteString("\n")
}

func (g *generator) emitLinef(format string, args ...any) {
	g.emitLine(fmt.Sprintf(format, args...))
}

func (g *generator) incIndent() {
	g.indent++
}

func (g *generator) decIndent() {
	g.indent--
}

func (g *generator) indentStr() string {
	return strings.Repeat("    ", g.indent)
}

func (g *generator) comment(text string) {
	g.emitLine("// " + text)
}

// --- Program structure ---

func (g *generator) generateRust(program *ast.Program) {
	for _, fn := range program.Functions {
		g.generateFunction(fn)
		g.emitLine("")
	}

	g.current = nil
	g.symbols = validator.Collect(program.Statements, nil)
	g.emitLine("fn main() {")
	g.incIndent()
	g.declareLocals(g.symbols.Locals(), false)
	g.generateBlock(program.Statements)
	g.decIndent()
	g.emitLine("}")
}

func (g *generator) generateC(program *ast.Program) {
	g.current = nil
	g.symbols = validator.Collect(program.Statements, nil)
	topLevel := g.symbols
	if locals := topLevel.Locals(); len(locals) > 0 {
		g.declareLocals(locals, true)
		g.emitLine("")
	}

	if len(program.Functions) > 0 {
		for _, fn := range program.Functions {
			g.emitLine(g.signature(fn) + ";")
		}
		g.emitLine("")
	}
	for _, fn := range program.Functions {
		g.generateFunction(fn)
		g.emitLine("")
	}

	g.current = nil
	g.symbols = topLevel
	g.emitLine("int main(void) {")
	g.incIndent()
	g.generateBlock(program.Statements)
	g.emitLine("return 0;")
	g.decIndent()
	g.emitLine("}")
}

func (g *generator) signature(fn *ast.FnDef) string {
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		if p.Type.IsArray() && p.Type.Size == 0 && !g.rust() {
			g.fail(fn.Span, "zero-length array %s is not supported by the C target", p.Name)
		}
		if g.rust() {
			params[i] = "mut " + g.name(p.Name) + ": " + g.typeName(p.Type)
		} else {
			params[i] = g.cDecl(g.name(p.Name), p.Type)
		}
	}
	if g.rust() {
		sig := "fn " + g.fnName(fn.Name) + "(" + strings.Join(params, ", ") + ")"
		if fn.RetType.Kind != ast.TypeVoid {
			sig += " -> " + g.typeName(fn.RetType)
		}
		return sig
	}
	list := strings.Join(params, ", ")
	if list == "" {
		list = "void"
	}
	return g.typeName(fn.RetType) + " " + g.fnName(fn.Name) + "(" + list + ")"
}

func (g *generator) generateFunction(fn *ast.FnDef) {
	if fn.RetType.IsArray() {
		g.fail(fn.Span, "Function %s cannot return an array", fn.Name)
		return
	}
	g.current = fn
	g.symbols = validator.Collect(fn.Body, fn.Params)

	g.emitLine(g.signature(fn) + " {")
	g.incIndent()
	g.declareLocals(g.symbols.Locals(), false)
	g.generateBlock(fn.Body)
	if fn.RetType.Kind != ast.TypeVoid {
		g.emitLinef("return %s;", g.zeroValue(fn.RetType))
	}
	g.decIndent()
	g.emitLine("}")
}

// declareLocals emits zero-initialized bindings. C globals rely on static
// zero initialization.
func (g *generator) declareLocals(syms []*validator.Symbol, global bool) {
	for _, sym := range syms {
		name := g.name(sym.Name)
		if sym.Type.IsArray() && sym.Type.Size == 0 && !g.rust() {
			g.fail(sym.Span, "zero-length array %s is not supported by the C target", sym.Name)
			continue
		}
		switch {
		case g.rust() && onHeap(sym.Type):
			g.emitLinef("let mut %s: %s = vec![%s; %d];", name, g.typeName(sym.Type), g.zeroValue(sym.Type.ElemType()), sym.Type.Size)
		case g.rust() && sym.Type.IsArray():
			g.emitLinef("let mut %s: %s = [%s; %d];", name, g.typeName(sym.Type), g.zeroValue(sym.Type.ElemType()), sym.Type.Size)
		case g.rust():
			g.emitLinef("let mut %s: %s = %s;", name, g.typeName(sym.Type), g.zeroValue(sym.Type))
		case global:
			g.emitLinef("static %s;", g.cDecl(name, sym.Type))
		case sym.Type.IsArray():
			g.emitLinef("%s = {0};", g.cDecl(name, sym.Type))
		default:
			g.emitLinef("%s = %s;", g.cDecl(name, sym.Type), g.zeroValue(sym.Type))
		}
	}
}

// --- Statements ---

func (g *generator) generateBlock(stmts []ast.Stmt) {
	for _, s := range stmts {
		g.generateStmt(s)
	}
}

func (g *generator) generateStmt(s ast.Stmt) {
	switch stmt := s.(type) {
	case *ast.DataDecl:
		// hoisted by declareLocals

	case *ast.AssignStmt:
		g.generateAssign(stmt)

	case *ast.ExecBlock:
		g.comment("exec: " + string(stmt.Target))
		g.emitLine("{")
		g.incIndent()
		g.generateBlock(stmt.Body)
		g.decIndent()
		g.emitLine("}")

	case *ast.IfStmt:
		cond := g.cond(stmt.Cond)
		if g.rust() {
			g.emitLinef("if %s {", cond)
		} else {
			g.emitLinef("if (%s) {", cond)
		}
		g.incIndent()
		g.generateBlock(stmt.Then)
		g.decIndent()
		if stmt.HasElse() {
			g.emitLine("} else {")
			g.incIndent()
			g.generateBlock(stmt.Else)
			g.decIndent()
		}
		g.emitLine("}")

	case *ast.ForStmt:
		g.generateFor(stmt)

	case *ast.ExprStmt:
		g.generateExprStmt(stmt)

	case *ast.ReturnStmt:
		g.generateReturn(stmt)
	}
}

func (g *generator) generateAssign(s *ast.AssignStmt) {
	sym, ok := g.symbols.Lookup(s.Target)
	if !ok {
		g.fail(s.Span, "Undefined variable: %s", s.Target)
		return
	}
	name := g.name(s.Target)

	if s.Index == nil {
		if sym.Type.IsArray() {
			g.fail(s.Span, "Cannot assign a scalar to array: %s", s.Target)
			return
		}
		g.emitLinef("%s = %s;", name, g.convert(g.expr(s.Value), sym.Type))
		return
	}

	if !sym.Type.IsArray() {
		g.fail(s.Span, "Cannot index scalar: %s", s.Target)
		return
	}
	elem := sym.Type.ElemType()
	value := g.convert(g.expr(s.Value), elem)
	index := g.intExpr(s.Index)

	// Value before index, and out of range writes are dropped.
	g.emitLine("{")
	g.incIndent()
	if g.rust() {
		g.emitLinef("let __sc_v: %s = %s;", g.typeName(elem), value)
		g.emitLinef("let __sc_k: i64 = %s;", index)
		g.emitLinef("if __sc_k >= 0 && (__sc_k as usize) < %s.len() {", name)
		g.incIndent()
		g.emitLinef("%s[__sc_k as usize] = __sc_v;", name)
		g.decIndent()
		g.emitLine("}")
	} else {
		g.emitLinef("%s __sc_v = %s;", g.typeName(elem), value)
		g.emitLinef("int64_t __sc_k = %s;", index)
		g.emitLinef("if (__sc_k >= 0 && __sc_k < %d) {", sym.Type.Size)
		g.incIndent()
		g.emitLinef("%s[__sc_k] = __sc_v;", name)
		g.decIndent()
		g.emitLine("}")
	}
	g.decIndent()
	g.emitLine("}")
}

// generateFor lowers the half-open range to a counted while loop. The
// counter is separate from the loop variable so the body cannot change the
// trip count, as in the interpreter.
func (g *generator) generateFor(s *ast.ForStmt) {
	sym, ok := g.symbols.Lookup(s.Var)
	if !ok {
		g.fail(s.Span, "Undefined variable: %s", s.Var)
		return
	}
	if sym.Type.IsArray() {
		g.fail(s.Span, "Loop variable is an array: %s", s.Var)
		return
	}
	n := g.tmp
	g.tmp++
	counter := fmt.Sprintf("__sc_i%d", n)
	end := fmt.Sprintf("__sc_end%d", n)
	start, stop := g.intExpr(s.Start), g.intExpr(s.End)

	g.emitLine("{")
	g.incIndent()
	if g.rust() {
		g.emitLinef("let mut %s: i64 = %s;", counter, start)
		g.emitLinef("let %s: i64 = %s;", end, stop)
		g.emitLinef("while %s < %s {", counter, end)
	} else {
		g.emitLinef("int64_t %s = %s;", counter, start)
		g.emitLinef("int64_t %s = %s;", end, stop)
		g.emitLinef("while (%s < %s) {", counter, end)
	}
	g.incIndent()
	g.emitLinef("%s = %s;", g.name(s.Var), g.fromCounter(counter, sym.Type))
	g.generateBlock(s.Body)
	g.emitLinef("%s += 1;", counter)
	g.decIndent()
	g.emitLine("}")
	g.decIndent()
	g.emitLine("}")
}

func (g *generator) generateExprStmt(s *ast.ExprStmt) {
	call, isCall := s.Expr.(*ast.CallExpr)
	switch {
	case isCall && call.Name == "print":
		if len(call.Args) != 1 {
			g.fail(call.Span, "print expects 1 argument, got %d", len(call.Args))
			return
		}
		v := g.num(call.Args[0])
		if g.rust() {
			g.emitLinef("println!(\"{:.6}\", %s);", v)
		} else {
			g.emitLinef("sc_print(%s);", v)
		}

	case isCall && g.current != nil && g.user[call.Name] != nil:
		g.emitLine(g.userCall(call, true) + ";")

	default:
		// Only print has an effect in interpreted code.
		g.comment("ignored: " + formatter.FormatExpr(s.Expr))
	}
}

func (g *generator) generateReturn(s *ast.ReturnStmt) {
	fn := g.current
	if fn == nil {
		g.comment("return (no effect at top level)")
		return
	}
	switch {
	case fn.RetType.Kind == ast.TypeVoid && s.Value != nil:
		g.fail(s.Span, "Function %s returns no value", fn.Name)
	case fn.RetType.Kind == ast.TypeVoid:
		g.emitLine("return;")
	case s.Value == nil:
		g.emitLinef("return %s;", g.zeroValue(fn.RetType))
	default:
		g.emitLinef("return %s;", g.convert(g.expr(s.Value), fn.RetType))
	}
}
