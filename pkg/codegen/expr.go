package codegen

import (
	"strconv"
	"strings"

	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/ast"
	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/stdlib"
)

// kind tells whether emitted code is an f32 number or a boolean.
type kind int

const (
	numKind kind = iota
	boolKind
)

// value is emitted code that is either atomic or fully parenthesized.
type value struct {
	code string
	kind kind
}

func num(code string) value  { return value{code: code, kind: numKind} }
func flag(code string) value { return value{code: code, kind: boolKind} }

func (g *generator) num(e ast.Expr) string {
	return g.asNum(g.expr(e))
}

func (g *generator) cond(e ast.Expr) string {
	return g.asBool(g.expr(e))
}

func (g *generator) asNum(v value) string {
	if v.kind == numKind {
		return v.code
	}
	if g.rust() {
		return "(" + v.code + " as u8 as f32)"
	}
	return "(float)" + v.code
}

func (g *generator) asBool(v value) string {
	if v.kind == boolKind {
		return v.code
	}
	if g.rust() {
		return "(" + v.code + " != 0.0)"
	}
	return "(" + v.code + " != 0.0f)"
}

// convert narrows a float-context value to the declared type t.
func (g *generator) convert(v value, t ast.DataType) string {
	switch t.Kind {
	case ast.TypeBool:
		return g.asBool(v)
	case ast.TypeF32:
		return g.asNum(v)
	case ast.TypeF64, ast.TypeI32, ast.TypeI64:
		if g.rust() {
			return "(" + g.asNum(v) + " as " + g.typeName(t) + ")"
		}
		return "(" + g.typeName(t) + ")" + g.asNum(v)
	}
	return g.asNum(v)
}

// load widens a stored value of type t into float context.
func (g *generator) load(code string, t ast.DataType) value {
	switch t.Kind {
	case ast.TypeF32:
		return num(code)
	case ast.TypeBool:
		return flag(code)
	}
	if g.rust() {
		return num("(" + code + " as f32)")
	}
	return num("(float)" + code)
}

func (g *generator) fromCounter(counter string, t ast.DataType) string {
	switch t.Kind {
	case ast.TypeI64:
		return counter
	case ast.TypeBool:
		return "(" + counter + " != 0)"
	}
	if g.rust() {
		return "(" + counter + " as " + g.typeName(t) + ")"
	}
	return "(" + g.typeName(t) + ")" + counter
}

// --- Float context ---

func (g *generator) expr(e ast.Expr) value {
	switch expr := e.(type) {
	case *ast.IntLiteral:
		return num(g.floatLit(float64(expr.Value)))

	case *ast.FloatLiteral:
		return num(g.floatLit(expr.Value))

	case *ast.BoolLiteral:
		return flag(strconv.FormatBool(expr.Value))

	case *ast.StrLiteral:
		g.fail(expr.Span, "Unsupported expression: string literal")

	case *ast.Ident:
		sym, ok := g.symbols.Lookup(expr.Name)
		switch {
		case !ok:
			g.fail(expr.Span, "Undefined variable: %s", expr.Name)
		case sym.Type.IsArray():
			g.fail(expr.Span, "Array used as a scalar: %s", expr.Name)
		default:
			return g.load(g.name(expr.Name), sym.Type)
		}

	case *ast.IndexExpr:
		return g.index(expr)

	case *ast.BinaryExpr:
		return g.binary(expr)

	case *ast.UnaryExpr:
		operand := g.expr(expr.Operand)
		if expr.Op == ast.OpNot {
			return flag("(!" + g.asBool(operand) + ")")
		}
		return num("(-" + g.asNum(operand) + ")")

	case *ast.CallExpr:
		return g.call(expr)

	case *ast.ReduceExpr:
		return g.reduce(expr)
	}
	return num("0")
}

func (g *generator) index(e *ast.IndexExpr) value {
	id, ok := e.Array.(*ast.Ident)
	if !ok {
		g.fail(e.Span, "Invalid array access")
		return num("0")
	}
	sym, ok := g.symbols.Lookup(id.Name)
	switch {
	case !ok:
		g.fail(id.Span, "Undefined variable: %s", id.Name)
		return num("0")
	case !sym.Type.IsArray():
		g.fail(e.Span, "Cannot index scalar: %s", id.Name)
		return num("0")
	}
	name := g.name(id.Name)
	idx := g.intExpr(e.Index)
	if g.rust() {
		return g.load(name+"[sc_idx("+idx+", "+name+".len())]", sym.Type.ElemType())
	}
	return g.load(name+"[sc_idx("+idx+", "+strconv.Itoa(sym.Type.Size)+")]", sym.Type.ElemType())
}

func (g *generator) binary(e *ast.BinaryExpr) value {
	l, r := g.expr(e.Left), g.expr(e.Right)
	switch e.Op {
	case ast.OpEqEq:
		return flag("sc_feq(" + g.asNum(l) + ", " + g.asNum(r) + ")")
	case ast.OpNeq:
		return flag("(!sc_feq(" + g.asNum(l) + ", " + g.asNum(r) + "))")
	case ast.OpLt, ast.OpGt, ast.OpLtEq, ast.OpGtEq:
		return flag("(" + g.asNum(l) + " " + string(e.Op) + " " + g.asNum(r) + ")")
	case ast.OpAnd:
		// both operands are always evaluated, as in the interpreter
		return flag("(" + g.asBool(l) + " & " + g.asBool(r) + ")")
	case ast.OpOr:
		return flag("(" + g.asBool(l) + " | " + g.asBool(r) + ")")
	case ast.OpMod:
		if !g.rust() {
			return num("fmodf(" + g.asNum(l) + ", " + g.asNum(r) + ")")
		}
	}
	return num("(" + g.asNum(l) + " " + string(e.Op) + " " + g.asNum(r) + ")")
}

func (g *generator) call(e *ast.CallExpr) value {
	if fn := g.fns.Get(e.Name); fn != nil {
		if len(e.Args) != fn.Arity {
			g.fail(e.Span, "%s expects %d argument(s), got %d", fn.Name, fn.Arity, len(e.Args))
			return num("0")
		}
		args := make([]string, len(e.Args))
		for i, a := range e.Args {
			args[i] = g.num(a)
		}
		if g.rust() {
			if fn.RustMethod == "" || len(args) != 1 {
				g.fail(e.Span, "built-in %s has no Rust lowering", fn.Name)
				return num("0")
			}
			return num("(" + args[0] + ")." + fn.RustMethod + "()")
		}
		if fn.CName32 == "" {
			g.fail(e.Span, "built-in %s has no C lowering", fn.Name)
			return num("0")
		}
		return num(fn.CName32 + "(" + strings.Join(args, ", ") + ")")
	}

	user := g.user[e.Name]
	if user == nil || g.current == nil {
		g.fail(e.Span, "Unknown function: %s", e.Name)
		return num("0")
	}
	if user.RetType.Kind == ast.TypeVoid {
		g.fail(e.Span, "Function %s returns no value", user.Name)
		return num("0")
	}
	return g.load(g.userCall(e, false), user.RetType)
}

// userCall renders a call to a function defined in the program. Scalar
// arguments are converted to the parameter types; array arguments must name
// an array of the parameter type.
func (g *generator) userCall(e *ast.CallExpr, statement bool) string {
	fn := g.user[e.Name]
	if len(e.Args) != len(fn.Params) {
		g.fail(e.Span, "%s expects %d argument(s), got %d", fn.Name, len(fn.Params), len(e.Args))
		return "0"
	}
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		p := fn.Params[i]
		if !p.Type.IsArray() {
			args[i] = g.convert(g.expr(a), p.Type)
			continue
		}
		id, ok := a.(*ast.Ident)
		if !ok {
			g.fail(a.NodeSpan(), "Parameter %s expects an array identifier", p.Name)
			return "0"
		}
		sym, ok := g.symbols.Lookup(id.Name)
		if !ok || !sym.Type.Equal(p.Type) {
			g.fail(id.Span, "Parameter %s expects %s", p.Name, p.Type)
			return "0"
		}
		args[i] = g.name(id.Name)
		if g.rust() && onHeap(p.Type) {
			args[i] += ".clone()"
		}
	}
	return g.fnName(fn.Name) + "(" + strings.Join(args, ", ") + ")"
}

func (g *generator) reduce(e *ast.ReduceExpr) value {
	id, ok := e.Array.(*ast.Ident)
	if !ok {
		g.fail(e.Span, "Reduce requires array identifier")
		return num("0")
	}
	sym, ok := g.symbols.Lookup(id.Name)
	if !ok || !sym.Type.IsArray() {
		g.fail(id.Span, "Undefined array: %s", id.Name)
		return num("0")
	}
	elem := sym.Type.ElemType()
	name := g.name(id.Name)

	if !g.rust() {
		helper := g.cReducer(e.Op, elem)
		return num(helper + "(" + name + ", " + strconv.Itoa(sym.Type.Size) + ")")
	}

	v := g.asNum(g.load("v", elem))
	var init, step string
	switch e.Op {
	case ast.ReduceProd:
		init, step = "1.0_f32", "acc * "+v
	case ast.ReduceMax:
		init, step = "f32::MIN", "if "+v+" > acc { "+v+" } else { acc }"
	case ast.ReduceMin:
		init, step = "f32::MAX", "if "+v+" < acc { "+v+" } else { acc }"
	default:
		init, step = "0.0_f32", "acc + "+v
	}
	return num(name + ".iter().fold(" + init + ", |acc, &v| " + step + ")")
}

// cReducer registers the C helper folding an array of elem.
func (g *generator) cReducer(op ast.ReduceOp, elem ast.DataType) string {
	name := "sc_reduce_" + stdlib.ReduceOpName(op) + "_" + elem.String()
	if _, ok := g.reducers[name]; ok {
		return name
	}
	var init, step string
	switch op {
	case ast.ReduceProd:
		init, step = "1.0f", "acc = acc * v;"
	case ast.ReduceMax:
		init, step = "-FLT_MAX", "if (v > acc) acc = v;"
	case ast.ReduceMin:
		init, step = "FLT_MAX", "if (v < acc) acc = v;"
	default:
		init, step = "0.0f", "acc = acc + v;"
	}
	var b strings.Builder
	b.WriteString("static float " + name + "(const " + g.typeName(elem) + " *a, int64_t n) {\n")
	b.WriteString("    float acc = " + init + ";\n")
	b.WriteString("    for (int64_t k = 0; k < n; k++) {\n")
	b.WriteString("        float v = (float)a[k];\n")
	b.WriteString("        " + step + "\n")
	b.WriteString("    }\n")
	b.WriteString("    return acc;\n")
	b.WriteString("}\n")
	g.reducers[name] = b.String()
	g.reducerOrder = append(g.reducerOrder, name)
	return name
}

// --- Integer context ---

// intExpr renders a loop bound or index as a 64-bit integer expression.
func (g *generator) intExpr(e ast.Expr) string {
	switch expr := e.(type) {
	case *ast.IntLiteral:
		return g.intLit(expr.Value)

	case *ast.Ident:
		sym, ok := g.symbols.Lookup(expr.Name)
		switch {
		case !ok:
			g.fail(expr.Span, "Undefined variable: %s", expr.Name)
		case sym.Type.IsArray():
			g.fail(expr.Span, "Array used as a scalar: %s", expr.Name)
		case sym.Type.Kind == ast.TypeI64:
			return g.name(expr.Name)
		case g.rust():
			return "(" + g.name(expr.Name) + " as i64)"
		default:
			return "(int64_t)" + g.name(expr.Name)
		}
		return "0"

	case *ast.BinaryExpr:
		if !expr.Op.IsArithmetic() {
			g.fail(expr.Span, "Expected integer expression: operator %s is not allowed in an index or loop bound", expr.Op)
			return "0"
		}
		l, r := g.intExpr(expr.Left), g.intExpr(expr.Right)
		if !g.rust() {
			switch expr.Op {
			case ast.OpDiv:
				return "sc_idiv(" + l + ", " + r + ")"
			case ast.OpMod:
				return "sc_imod(" + l + ", " + r + ")"
			}
		}
		return "(" + l + " " + string(expr.Op) + " " + r + ")"
	}
	g.fail(e.NodeSpan(), "Expected integer expression")
	return "0"
}
