package asmgen

import (
	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/ast"
)

// vectorizable reports whether a loop can run four lanes at a time: literal
// bounds that stay inside every array it touches, and a body made only of
// elementwise writes dst[v] = expr whose values read elements at v, scalars
// and literals through + - * / and negation.
func (g *generator) vectorizable(s *ast.ForStmt) bool {
	start, ok1 := s.Start.(*ast.IntLiteral)
	end, ok2 := s.End.(*ast.IntLiteral)
	if !ok1 || !ok2 || start.Value < 0 || end.Value-start.Value < 4 || len(s.Body) == 0 {
		return false
	}
	for _, st := range s.Body {
		assign, ok := st.(*ast.AssignStmt)
		if !ok || !g.atLoopVar(assign.Index, s.Var) || !g.arrayCovers(assign.Target, end.Value) {
			return false
		}
		if !g.lanewise(assign.Value, s.Var, end.Value) {
			return false
		}
	}
	return true
}

func (g *generator) atLoopVar(index ast.Expr, v string) bool {
	id, ok := index.(*ast.Ident)
	return ok && id.Name == v
}

func (g *generator) arrayCovers(name string, end int64) bool {
	sym, ok := g.symbols.Lookup(name)
	return ok && sym.Type.IsArray() && int64(sym.Type.Size) >= end
}

func (g *generator) lanewise(e ast.Expr, v string, end int64) bool {
	switch ex := e.(type) {
	case *ast.IntLiteral, *ast.FloatLiteral:
		return true
	case *ast.Ident:
		sym, ok := g.symbols.Lookup(ex.Name)
		return ok && !sym.Type.IsArray() && ex.Name != v
	case *ast.IndexExpr:
		id, ok := ex.Array.(*ast.Ident)
		return ok && g.atLoopVar(ex.Index, v) && g.arrayCovers(id.Name, end)
	case *ast.BinaryExpr:
		switch ex.Op {
		case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv:
			return g.lanewise(ex.Left, v, end) && g.lanewise(ex.Right, v, end)
		}
	case *ast.UnaryExpr:
		return ex.Op == ast.OpNeg && g.lanewise(ex.Operand, v, end)
	}
	return false
}

// generateVectorLoop runs whole chunks of four and leaves the counter at the
// first index the scalar tail still has to run.
func (g *generator) generateVectorLoop(s *ast.ForStmt, counter, end string) {
	top, done := g.newLabel(), g.newLabel()
	g.comment("for " + s.Var + ": 4 lanes, scalar tail below")
	g.label(top)
	g.ins("mov rax, [%s]", counter)
	g.ins("lea rdx, [rax + 4]")
	g.ins("cmp rdx, [%s]", end)
	g.ins("jg %s", done)
	for _, st := range s.Body {
		assign := st.(*ast.AssignStmt)
		g.ins("mov rax, [%s]", counter)
		g.vexpr(assign.Value)
		g.ins("lea rcx, [%s]", g.slot(assign.Target))
		g.ins("movups [rcx + rax*4], xmm0")
	}
	g.ins("mov rax, [%s]", counter)
	g.ins("lea rdx, [rax + 3]")
	g.ins("cvtsi2ss xmm0, rdx")
	g.ins("movss [%s], xmm0", g.slot(s.Var))
	g.ins("add qword [%s], 4", counter)
	g.ins("jmp %s", top)
	g.label(done)
}

// vexpr leaves four lanes in xmm0. rax holds the first lane's index and is
// preserved.
func (g *generator) vexpr(e ast.Expr) {
	switch ex := e.(type) {
	case *ast.IntLiteral:
		g.broadcast(g.constant(float32(ex.Value)))
	case *ast.FloatLiteral:
		g.broadcast(g.constant(float32(ex.Value)))
	case *ast.Ident:
		g.broadcast(g.slot(ex.Name))
	case *ast.IndexExpr:
		id := ex.Array.(*ast.Ident)
		g.ins("lea rcx, [%s]", g.slot(id.Name))
		g.ins("movups xmm0, [rcx + rax*4]")
	case *ast.UnaryExpr:
		g.vexpr(ex.Operand)
		g.ins("xorps xmm0, [__sc_signmask]")
	case *ast.BinaryExpr:
		g.vexpr(ex.Left)
		g.ins("sub rsp, 16")
		g.ins("movups [rsp], xmm0")
		g.vexpr(ex.Right)
		g.ins("movaps xmm1, xmm0")
		g.ins("movups xmm0, [rsp]")
		g.ins("add rsp, 16")
		switch ex.Op {
		case ast.OpAdd:
			g.ins("addps xmm0, xmm1")
		case ast.OpSub:
			g.ins("subps xmm0, xmm1")
		case ast.OpMul:
			g.ins("mulps xmm0, xmm1")
		case ast.OpDiv:
			g.ins("divps xmm0, xmm1")
		}
	}
}

func (g *generator) broadcast(label string) {
	g.ins("movss xmm0, [%s]", label)
	g.ins("shufps xmm0, xmm0, 0")
}
