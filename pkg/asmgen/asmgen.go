// Package asmgen translates SuperC programs into x86-64 NASM source for the
// Windows x64 calling convention.
//
// Every value is a single-precision float, as in the interpreter. Scalars and
// arrays live in .bss, expression temporaries are spilled to the stack in
// 16-byte slots so calls are always aligned, and every call to the C runtime
// reserves its own 32-byte shadow space.
package asmgen

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/ast"
	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/codegen"
	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/diagnostics"
	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/formatter"
	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/stdlib"
	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/validator"
)

// Error is shared with the Rust and C emitters.
type Error = codegen.Error

// MaxParams is the number of scalar parameters passed in xmm0-xmm3.
const MaxParams = 4

// Epsilon bits: 2^-23, the float32 machine epsilon.
const epsilonBits = 0x34000000

var paramRegs = [MaxParams]string{"xmm0", "xmm1", "xmm2", "xmm3"}

type generator struct {
	fns     *stdlib.Registry
	user    map[string]*ast.FnDef
	text    strings.Builder
	bss     []string
	consts  map[uint32]string
	order   []uint32
	externs map[string]bool

	symbols *validator.SymbolTable
	current *ast.FnDef
	labels  int
	loops   int
	err     *Error
}

// Generate emits program as NASM source using the default built-ins.
func Generate(program *ast.Program) (string, error) {
	return GenerateWith(program, stdlib.Default())
}

// GenerateWith emits program against a custom built-in registry.
func GenerateWith(program *ast.Program, reg *stdlib.Registry) (string, error) {
	g := &generator{
		fns:     reg,
		user:    make(map[string]*ast.FnDef),
		consts:  make(map[uint32]string),
		externs: map[string]bool{"printf": true, "exit": true},
	}
	for _, fn := range program.Functions {
		g.user[fn.Name] = fn
	}

	g.current = nil
	g.symbols = validator.Collect(program.Statements, nil)
	g.reserve(g.symbols)
	g.label("main")
	g.ins("push rbp")
	g.ins("mov rbp, rsp")
	g.generateBlock(program.Statements)
	g.ins("xor eax, eax")
	g.ins("leave")
	g.ins("ret")
	g.blank()

	for _, fn := range program.Functions {
		g.generateFunction(fn)
		g.blank()
	}
	g.runtime()

	if g.err != nil {
		return "", g.err
	}
	return g.assemble(program.Span.File), nil
}

func (g *generator) fail(span ast.Span, format string, args ...any) {
	if g.err == nil {
		g.err = &Error{Code: diagnostics.ECodegen, Message: fmt.Sprintf(format, args...), Span: &span}
	}
}

// --- Output helpers ---

func (g *generator) ins(format string, args ...any) {
	g.text.WriteString("    ")
	fmt.Fprintf(&g.text, format, args...)
	g.text.WriteString("\n")
}

func (g *generator) label(name string) {
	g.text.WriteString(name + ":\n")
}

func (g *generator) comment(text string) {
	g.text.WriteString("    ; " + text + "\n")
}

func (g *generator) blank() {
	g.text.WriteString("\n")
}

func (g *generator) newLabel() string {
	g.labels++
	return ".L" + strconv.Itoa(g.labels)
}

// constant returns the .data label holding the float32 v.
func (g *generator) constant(v float32) string {
	return g.constBits(math.Float32bits(v))
}

func (g *generator) constBits(bits uint32) string {
	if name, ok := g.consts[bits]; ok {
		return name
	}
	name := "__sc_k" + strconv.Itoa(len(g.order))
	g.consts[bits] = name
	g.order = append(g.order, bits)
	return name
}

func (g *generator) extern(sym string) {
	g.externs[sym] = true
}

// --- Symbols ---

// mangle keeps [A-Za-z0-9_] and hex-escapes every other rune.
func mangle(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			fmt.Fprintf(&b, "$%x$", r)
		}
	}
	return b.String()
}

func fnLabel(name string) string {
	return "fn_" + mangle(name)
}

// slot is the .bss label of a variable in the current scope. Function scopes
// carry a length prefix so distinct function/variable pairs never collide.
func (g *generator) slot(name string) string {
	if g.current == nil {
		return "sc_" + mangle(name)
	}
	fn := mangle(g.current.Name)
	return "fn_" + strconv.Itoa(len(fn)) + "_" + fn + "_" + mangle(name)
}

func (g *generator) reserve(st *validator.SymbolTable) {
	for _, sym := range st.Symbols() {
		size := 1
		if sym.Type.IsArray() {
			size = sym.Type.Size
		}
		g.bss = append(g.bss, fmt.Sprintf("%s: resd %d", g.slot(sym.Name), size))
	}
}

func (g *generator) lookupScalar(id *ast.Ident) (string, bool) {
	sym, ok := g.symbols.Lookup(id.Name)
	switch {
	case !ok:
		g.fail(id.Span, "Undefined variable: %s", id.Name)
		return "", false
	case sym.Type.IsArray():
		g.fail(id.Span, "Array used as a scalar: %s", id.Name)
		return "", false
	}
	return g.slot(id.Name), true
}

func (g *generator) lookupArray(id *ast.Ident, span ast.Span) (*validator.Symbol, bool) {
	sym, ok := g.symbols.Lookup(id.Name)
	switch {
	case !ok:
		g.fail(id.Span, "Undefined variable: %s", id.Name)
		return nil, false
	case !sym.Type.IsArray():
		g.fail(span, "Cannot index scalar: %s", id.Name)
		return nil, false
	}
	return sym, true
}

// --- Functions ---

func (g *generator) generateFunction(fn *ast.FnDef) {
	if len(fn.Params) > MaxParams {
		g.fail(fn.Span, "Function %s has %d parameters; the assembly target passes at most %d", fn.Name, len(fn.Params), MaxParams)
		return
	}
	for _, p := range fn.Params {
		if p.Type.IsArray() {
			g.fail(fn.Span, "Function %s: array parameters are not supported by the assembly target", fn.Name)
			return
		}
	}
	if fn.RetType.IsArray() {
		g.fail(fn.Span, "Function %s cannot return an array", fn.Name)
		return
	}

	g.current = fn
	g.symbols = validator.Collect(fn.Body, fn.Params)
	g.reserve(g.symbols)

	g.label(fnLabel(fn.Name))
	g.ins("push rbp")
	g.ins("mov rbp, rsp")
	for i, p := range fn.Params {
		g.ins("movss [%s], %s", g.slot(p.Name), paramRegs[i])
	}
	g.generateBlock(fn.Body)
	g.ins("xorps xmm0, xmm0")
	g.label(".ret")
	g.ins("leave")
	g.ins("ret")
	g.current = nil
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
		// reserved in .bss

	case *ast.AssignStmt:
		g.generateAssign(stmt)

	case *ast.ExecBlock:
		g.comment("exec: " + string(stmt.Target))
		g.generateBlock(stmt.Body)

	case *ast.IfStmt:
		elseLabel, endLabel := g.newLabel(), g.newLabel()
		g.expr(stmt.Cond)
		g.truthy("xmm0", "al")
		g.ins("test al, al")
		g.ins("jz %s", elseLabel)
		g.generateBlock(stmt.Then)
		g.ins("jmp %s", endLabel)
		g.label(elseLabel)
		g.generateBlock(stmt.Else)
		g.label(endLabel)

	case *ast.ForStmt:
		g.generateFor(stmt)

	case *ast.ExprStmt:
		call, isCall := stmt.Expr.(*ast.CallExpr)
		switch {
		case isCall && call.Name == "print":
			if len(call.Args) != 1 {
				g.fail(call.Span, "print expects 1 argument, got %d", len(call.Args))
				return
			}
			g.expr(call.Args[0])
			g.ins("call __sc_print")
		case isCall && g.current != nil && g.user[call.Name] != nil:
			g.userCall(call)
		default:
			g.comment("ignored: " + formatter.FormatExpr(stmt.Expr))
		}

	case *ast.ReturnStmt:
		if g.current == nil {
			g.comment("return (no effect at top level)")
			return
		}
		if stmt.Value != nil {
			if g.current.RetType.Kind == ast.TypeVoid {
				g.fail(stmt.Span, "Function %s returns no value", g.current.Name)
				return
			}
			g.expr(stmt.Value)
		} else {
			g.ins("xorps xmm0, xmm0")
		}
		g.ins("jmp .ret")
	}
}

func (g *generator) generateAssign(s *ast.AssignStmt) {
	sym, ok := g.symbols.Lookup(s.Target)
	if !ok {
		g.fail(s.Span, "Undefined variable: %s", s.Target)
		return
	}
	if s.Index == nil {
		if sym.Type.IsArray() {
			g.fail(s.Span, "Cannot assign a scalar to array: %s", s.Target)
			return
		}
		g.expr(s.Value)
		g.ins("movss [%s], xmm0", g.slot(s.Target))
		return
	}
	if !sym.Type.IsArray() {
		g.fail(s.Span, "Cannot index scalar: %s", s.Target)
		return
	}

	skip := g.newLabel()
	g.expr(s.Value)
	g.pushFloat()
	g.intExpr(s.Index)
	g.ins("movss xmm0, [rsp]")
	g.ins("add rsp, 16")
	g.comment("out of range writes are dropped")
	g.ins("cmp rax, %d", sym.Type.Size)
	g.ins("jae %s", skip)
	g.ins("lea rcx, [%s]", g.slot(s.Target))
	g.ins("movss [rcx + rax*4], xmm0")
	g.label(skip)
}

// generateFor keeps the trip counter and bound in .bss so the body cannot
// change the iteration count.
func (g *generator) generateFor(s *ast.ForStmt) {
	if _, ok := g.lookupScalar(&ast.Ident{Span: s.Span, Name: s.Var}); !ok {
		return
	}
	n := g.loops
	g.loops++
	counter := fmt.Sprintf("__sc_i%d", n)
	end := fmt.Sprintf("__sc_end%d", n)
	g.bss = append(g.bss, counter+": resq 1", end+": resq 1")

	g.intExpr(s.Start)
	g.ins("mov [%s], rax", counter)
	g.intExpr(s.End)
	g.ins("mov [%s], rax", end)

	if g.vectorizable(s) {
		g.generateVectorLoop(s, counter, end)
	}

	top, done := g.newLabel(), g.newLabel()
	g.label(top)
	g.ins("mov rax, [%s]", counter)
	g.ins("cmp rax, [%s]", end)
	g.ins("jge %s", done)
	g.ins("cvtsi2ss xmm0, rax")
	g.ins("movss [%s], xmm0", g.slot(s.Var))
	g.generateBlock(s.Body)
	g.ins("inc qword [%s]", counter)
	g.ins("jmp %s", top)
	g.label(done)
}

// --- Assembly ---

func (g *generator) assemble(file string) string {
	if file == "" {
		file = "<stdin>"
	}
	var b strings.Builder
	b.WriteString("; Generated by SuperC from " + file + "\n")
	b.WriteString("; x86-64 NASM, Windows x64 ABI, single precision\n")
	b.WriteString("default rel\nbits 64\n\n")
	b.WriteString("global main\n")

	externs := make([]string, 0, len(g.externs))
	for name := range g.externs {
		externs = append(externs, name)
	}
	sort.Strings(externs)
	for _, name := range externs {
		b.WriteString("extern " + name + "\n")
	}

	b.WriteString("\nsection .data\n")
	b.WriteString("align 16\n")
	b.WriteString("__sc_absmask: dd 0x7fffffff, 0x7fffffff, 0x7fffffff, 0x7fffffff\n")
	b.WriteString("__sc_signmask: dd 0x80000000, 0x80000000, 0x80000000, 0x80000000\n")
	fmt.Fprintf(&b, "__sc_eps: dd 0x%08x\n", epsilonBits)
	fmt.Fprintf(&b, "__sc_fltmax: dd 0x%08x\n", math.Float32bits(math.MaxFloat32))
	b.WriteString("__sc_fmt: db \"%.6f\", 10, 0\n")
	b.WriteString("__sc_nan_s: db \"NaN\", 10, 0\n")
	b.WriteString("__sc_inf_s: db \"inf\", 10, 0\n")
	b.WriteString("__sc_ninf_s: db \"-inf\", 10, 0\n")
	b.WriteString("__sc_oob_s: db \"Array access error\", 10, 0\n")
	b.WriteString("__sc_divz_s: db \"integer division by zero\", 10, 0\n")
	for _, bits := range g.order {
		fmt.Fprintf(&b, "%s: dd 0x%08x ; %s\n", g.consts[bits], bits,
			strconv.FormatFloat(float64(math.Float32frombits(bits)), 'g', -1, 32))
	}

	b.WriteString("\nsection .bss\n")
	b.WriteString("alignb 16\n")
	for _, line := range g.bss {
		b.WriteString(line + "\n")
	}

	b.WriteString("\nsection .text\n")
	b.WriteString(g.text.String())
	return b.String()
}

// runtime emits the print routine and the abort paths.
func (g *generator) runtime() {
	g.label("__sc_print")
	g.ins("push rbp")
	g.ins("mov rbp, rsp")
	g.ins("sub rsp, 32")
	g.ins("ucomiss xmm0, xmm0")
	g.ins("jp .nan")
	g.ins("movaps xmm1, xmm0")
	g.ins("andps xmm1, [__sc_absmask]")
	g.ins("comiss xmm1, [__sc_fltmax]")
	g.ins("ja .inf")
	g.ins("cvtss2sd xmm1, xmm0")
	g.ins("movq rdx, xmm1")
	g.ins("lea rcx, [__sc_fmt]")
	g.ins("call printf")
	g.ins("leave")
	g.ins("ret")
	g.label(".nan")
	g.ins("lea rcx, [__sc_nan_s]")
	g.ins("jmp .text")
	g.label(".inf")
	g.ins("lea rcx, [__sc_inf_s]")
	g.ins("xorps xmm1, xmm1")
	g.ins("comiss xmm0, xmm1")
	g.ins("ja .text")
	g.ins("lea rcx, [__sc_ninf_s]")
	g.label(".text")
	g.ins("call printf")
	g.ins("leave")
	g.ins("ret")
	g.blank()

	for _, abort := range []struct{ label, msg string }{
		{"__sc_oob", "__sc_oob_s"},
		{"__sc_divzero", "__sc_divz_s"},
	} {
		g.label(abort.label)
		g.ins("and rsp, -16")
		g.ins("sub rsp, 32")
		g.ins("lea rcx, [%s]", abort.msg)
		g.ins("call printf")
		g.ins("mov ecx, 1")
		g.ins("call exit")
		g.blank()
	}
}
