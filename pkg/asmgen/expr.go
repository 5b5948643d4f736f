package asmgen

import (
	"math"

	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/ast"
)

// --- Stack temporaries ---

// Temporaries take 16 bytes each so rsp stays aligned for calls.

func (g *generator) pushFloat() {
	g.ins("sub rsp, 16")
	g.ins("movss [rsp], xmm0")
}

// popFloat moves xmm0 into xmm1 and reloads the saved left operand.
func (g *generator) popFloat() {
	g.ins("movaps xmm1, xmm0")
	g.ins("movss xmm0, [rsp]")
	g.ins("add rsp, 16")
}

func (g *generator) pushInt() {
	g.ins("sub rsp, 16")
	g.ins("mov [rsp], rax")
}

func (g *generator) popInt() {
	g.ins("mov rcx, rax")
	g.ins("mov rax, [rsp]")
	g.ins("add rsp, 16")
}

// callC calls a C runtime function with its shadow space reserved.
func (g *generator) callC(sym string) {
	g.extern(sym)
	g.ins("sub rsp, 32")
	g.ins("call %s", sym)
	g.ins("add rsp, 32")
}

// truthy sets reg8 to 1 when the float in xmm is non-zero. NaN is truthy.
func (g *generator) truthy(xmm, reg8 string) {
	g.ins("xorps xmm2, xmm2")
	g.ins("ucomiss %s, xmm2", xmm)
	g.ins("setne %s", reg8)
	g.ins("setp r8b")
	g.ins("or %s, r8b", reg8)
}

// boolResult converts al into 0.0 or 1.0 in xmm0.
func (g *generator) boolResult() {
	g.ins("movzx eax, al")
	g.ins("cvtsi2ss xmm0, eax")
}

// --- Float context ---

// expr leaves the value of e in xmm0.
func (g *generator) expr(e ast.Expr) {
	switch ex := e.(type) {
	case *ast.IntLiteral:
		g.ins("movss xmm0, [%s]", g.constant(float32(ex.Value)))

	case *ast.FloatLiteral:
		g.ins("movss xmm0, [%s]", g.constant(float32(ex.Value)))

	case *ast.BoolLiteral:
		v := float32(0)
		if ex.Value {
			v = 1
		}
		g.ins("movss xmm0, [%s]", g.constant(v))

	case *ast.StrLiteral:
		g.fail(ex.Span, "Unsupported expression: string literal")

	case *ast.Ident:
		if slot, ok := g.lookupScalar(ex); ok {
			g.ins("movss xmm0, [%s]", slot)
		}

	case *ast.IndexExpr:
		g.index(ex)

	case *ast.BinaryExpr:
		g.binary(ex)

	case *ast.UnaryExpr:
		g.expr(ex.Operand)
		if ex.Op == ast.OpNeg {
			g.ins("xorps xmm0, [__sc_signmask]")
			return
		}
		g.ins("xorps xmm1, xmm1")
		g.ins("ucomiss xmm0, xmm1")
		g.ins("sete al")
		g.ins("setnp r8b")
		g.ins("and al, r8b")
		g.boolResult()

	case *ast.CallExpr:
		g.call(ex)

	case *ast.ReduceExpr:
		g.reduce(ex)

	default:
		g.fail(e.NodeSpan(), "Unsupported expression: %s", e.Kind())
	}
}

// index reads arr[i]. Out of range reads abort through __sc_oob.
func (g *generator) index(e *ast.IndexExpr) {
	id, ok := e.Array.(*ast.Ident)
	if !ok {
		g.fail(e.Span, "Unsupported index target")
		return
	}
	sym, ok := g.lookupArray(id, e.Span)
	if !ok {
		return
	}
	g.intExpr(e.Index)
	g.ins("cmp rax, %d", sym.Type.Size)
	g.ins("jae __sc_oob")
	g.ins("lea rcx, [%s]", g.slot(id.Name))
	g.ins("movss xmm0, [rcx + rax*4]")
}

func (g *generator) binary(e *ast.BinaryExpr) {
	g.expr(e.Left)
	g.pushFloat()
	g.expr(e.Right)
	g.popFloat()

	switch e.Op {
	case ast.OpAdd:
		g.ins("addss xmm0, xmm1")
	case ast.OpSub:
		g.ins("subss xmm0, xmm1")
	case ast.OpMul:
		g.ins("mulss xmm0, xmm1")
	case ast.OpDiv:
		g.ins("divss xmm0, xmm1")
	case ast.OpMod:
		g.callC("fmodf")

	// Unordered operands clear seta/setae, so NaN compares false.
	case ast.OpGt:
		g.ins("comiss xmm0, xmm1")
		g.ins("seta al")
		g.boolResult()
	case ast.OpGtEq:
		g.ins("comiss xmm0, xmm1")
		g.ins("setae al")
		g.boolResult()
	case ast.OpLt:
		g.ins("comiss xmm1, xmm0")
		g.ins("seta al")
		g.boolResult()
	case ast.OpLtEq:
		g.ins("comiss xmm1, xmm0")
		g.ins("setae al")
		g.boolResult()

	// |l - r| < epsilon
	case ast.OpEqEq, ast.OpNeq:
		g.ins("subss xmm0, xmm1")
		g.ins("andps xmm0, [__sc_absmask]")
		g.ins("movss xmm1, [__sc_eps]")
		g.ins("comiss xmm1, xmm0")
		if e.Op == ast.OpEqEq {
			g.ins("seta al")
		} else {
			g.ins("setbe al")
		}
		g.boolResult()

	case ast.OpAnd, ast.OpOr:
		g.truthy("xmm0", "al")
		g.truthy("xmm1", "dl")
		if e.Op == ast.OpAnd {
			g.ins("and al, dl")
		} else {
			g.ins("or al, dl")
		}
		g.boolResult()

	default:
		g.fail(e.Span, "Unsupported operator: %s", e.Op)
	}
}

func (g *generator) call(e *ast.CallExpr) {
	if e.Name == "print" {
		g.fail(e.Span, "print cannot be used inside an expression")
		return
	}
	if fn := g.fns.Get(e.Name); fn != nil {
		if len(e.Args) != fn.Arity || fn.Arity != 1 {
			g.fail(e.Span, "%s expects %d argument(s), got %d", e.Name, fn.Arity, len(e.Args))
			return
		}
		g.expr(e.Args[0])
		if fn.AsmSymbol == "" {
			g.ins("sqrtss xmm0, xmm0")
			return
		}
		g.callC(fn.AsmSymbol)
		return
	}
	if g.current != nil && g.user[e.Name] != nil {
		g.userCall(e)
		return
	}
	g.fail(e.Span, "Unknown function: %s", e.Name)
}

// userCall passes up to four scalars in xmm0-xmm3. Parameters live in
// static slots, so user functions are not reentrant.
func (g *generator) userCall(e *ast.CallExpr) {
	fn := g.user[e.Name]
	if len(e.Args) != len(fn.Params) {
		g.fail(e.Span, "%s expects %d argument(s), got %d", e.Name, len(fn.Params), len(e.Args))
		return
	}
	if len(e.Args) > MaxParams {
		g.fail(e.Span, "Function %s has %d parameters; the assembly target passes at most %d", fn.Name, len(fn.Params), MaxParams)
		return
	}
	for _, arg := range e.Args {
		g.expr(arg)
		g.pushFloat()
	}
	for i := len(e.Args) - 1; i >= 0; i-- {
		g.ins("movss %s, [rsp]", paramRegs[i])
		g.ins("add rsp, 16")
	}
	g.ins("sub rsp, 32")
	g.ins("call %s", fnLabel(fn.Name))
	g.ins("add rsp, 32")
}

// reduce folds an array left to right into xmm0.
func (g *generator) reduce(e *ast.ReduceExpr) {
	id, ok := e.Array.(*ast.Ident)
	if !ok {
		g.fail(e.Span, "Reduce requires array identifier")
		return
	}
	sym, ok := g.lookupArray(id, e.Span)
	if !ok {
		return
	}

	var init float32
	switch e.Op {
	case ast.ReduceSum:
	case ast.ReduceProd:
		init = 1
	case ast.ReduceMax:
		init = -math.MaxFloat32
	case ast.ReduceMin:
		init = math.MaxFloat32
	default:
		g.fail(e.Span, "Unknown reduce operator: %s", e.Op)
		return
	}

	top, done := g.newLabel(), g.newLabel()
	g.ins("movss xmm0, [%s]", g.constant(init))
	g.ins("lea rcx, [%s]", g.slot(id.Name))
	g.ins("xor eax, eax")
	g.label(top)
	g.ins("cmp rax, %d", sym.Type.Size)
	g.ins("jge %s", done)
	g.ins("movss xmm1, [rcx + rax*4]")
	switch e.Op {
	case ast.ReduceSum:
		g.ins("addss xmm0, xmm1")
	case ast.ReduceProd:
		g.ins("mulss xmm0, xmm1")
	case ast.ReduceMax, ast.ReduceMin:
		skip := g.newLabel()
		if e.Op == ast.ReduceMax {
			g.ins("comiss xmm1, xmm0")
		} else {
			g.ins("comiss xmm0, xmm1")
		}
		g.ins("jbe %s", skip)
		g.ins("movaps xmm0, xmm1")
		g.label(skip)
	}
	g.ins("inc rax")
	g.ins("jmp %s", top)
	g.label(done)
}

// --- Integer context ---

// intExpr leaves the value of an index or loop bound in rax.
func (g *generator) intExpr(e ast.Expr) {
	switch ex := e.(type) {
	case *ast.IntLiteral:
		g.ins("mov rax, %d", ex.Value)

	case *ast.Ident:
		if slot, ok := g.lookupScalar(ex); ok {
			g.ins("cvttss2si rax, dword [%s]", slot)
		}

	case *ast.BinaryExpr:
		if !ex.Op.IsArithmetic() {
			g.fail(ex.Span, "Expected integer expression: operator %s is not allowed in an index or loop bound", ex.Op)
			return
		}
		g.intExpr(ex.Left)
		g.pushInt()
		g.intExpr(ex.Right)
		g.popInt()
		switch ex.Op {
		case ast.OpAdd:
			g.ins("add rax, rcx")
		case ast.OpSub:
			g.ins("sub rax, rcx")
		case ast.OpMul:
			g.ins("imul rax, rcx")
		default:
			g.ins("test rcx, rcx")
			g.ins("jz __sc_divzero")
			g.ins("cqo")
			g.ins("idiv rcx")
			if ex.Op == ast.OpMod {
				g.ins("mov rax, rdx")
			}
		}

	default:
		g.fail(e.NodeSpan(), "Expected integer expression: %s is not allowed in an index or loop bound", e.Kind())
	}
}
