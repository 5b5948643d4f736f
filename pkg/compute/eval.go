package compute

import (
	"errors"
	"math"
	"strconv"

	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/ast"
	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/diagnostics"
	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/stdlib"
)

// Epsilon is the float32 machine epsilon used by == and !=.
const Epsilon = 1.1920929e-07

// FloatEqual is the epsilon-tolerant equality shared with the emitters.
func FloatEqual(l, r float32) bool {
	d := l - r
	if d < 0 {
		d = -d
	}
	return d < Epsilon
}

func boolToFloat(b bool) float32 {
	if b {
		return 1
	}
	return 0
}

// evalExpr evaluates expr in float context.
func (ev *evaluator) evalExpr(expr ast.Expr, backend Backend) (float32, error) {
	switch e := expr.(type) {
	case *ast.IntLiteral:
		return float32(e.Value), nil

	case *ast.FloatLiteral:
		return float32(e.Value), nil

	case *ast.BoolLiteral:
		return boolToFloat(e.Value), nil

	case *ast.Ident:
		return ev.lookupScalar(e)

	case *ast.IndexExpr:
		return ev.evalIndex(e)

	case *ast.BinaryExpr:
		return ev.evalBinary(e, backend)

	case *ast.UnaryExpr:
		v, err := ev.evalExpr(e.Operand, backend)
		if err != nil {
			return 0, err
		}
		if e.Op == ast.OpNot {
			return boolToFloat(v == 0), nil
		}
		return -v, nil

	case *ast.CallExpr:
		return ev.evalCall(e, backend)

	case *ast.ReduceExpr:
		return ev.evalReduce(e, backend)
	}
	return 0, runtimeErr(diagnostics.EType, expr.NodeSpan(), "Unsupported expression")
}

func (ev *evaluator) lookupScalar(id *ast.Ident) (float32, error) {
	if v, ok := ev.env.Scalar(id.Name); ok {
		return v, nil
	}
	if ev.env.IsArray(id.Name) {
		return 0, runtimeErr(diagnostics.EType, id.Span, "Array used as a scalar: %s", id.Name)
	}
	return 0, runtimeErr(diagnostics.EUndefined, id.Span, "Undefined variable: %s", id.Name)
}

func (ev *evaluator) evalIndex(e *ast.IndexExpr) (float32, error) {
	arr, ok := e.Array.(*ast.Ident)
	if !ok {
		return 0, runtimeErr(diagnostics.EType, e.Span, "Invalid array access")
	}
	idx, err := ev.evalInt(e.Index)
	if err != nil {
		return 0, err
	}
	if !ev.env.IsArray(arr.Name) {
		if ev.env.IsScalar(arr.Name) {
			return 0, runtimeErr(diagnostics.EType, e.Span, "Cannot index scalar: %s", arr.Name)
		}
		return 0, runtimeErr(diagnostics.EUndefined, arr.Span, "Undefined variable: %s", arr.Name)
	}
	v, ok := ev.env.Elem(arr.Name, idx)
	if !ok {
		return 0, runtimeErr(diagnostics.EBounds, e.Span, "Array access error: %s[%d]", arr.Name, idx)
	}
	return v, nil
}

func (ev *evaluator) evalBinary(e *ast.BinaryExpr, backend Backend) (float32, error) {
	l, err := ev.evalExpr(e.Left, backend)
	if err != nil {
		return 0, err
	}
	r, err := ev.evalExpr(e.Right, backend)
	if err != nil {
		return 0, err
	}

	switch e.Op {
	case ast.OpAdd:
		return l + r, nil
	case ast.OpSub:
		return l - r, nil
	case ast.OpMul:
		return l * r, nil
	case ast.OpDiv:
		return l / r, nil
	case ast.OpMod:
		return float32(math.Mod(float64(l), float64(r))), nil
	case ast.OpEqEq:
		return boolToFloat(FloatEqual(l, r)), nil
	case ast.OpNeq:
		return boolToFloat(!FloatEqual(l, r)), nil
	case ast.OpLt:
		return boolToFloat(l < r), nil
	case ast.OpGt:
		return boolToFloat(l > r), nil
	case ast.OpLtEq:
		return boolToFloat(l <= r), nil
	case ast.OpGtEq:
		return boolToFloat(l >= r), nil
	case ast.OpAnd:
		return boolToFloat(l != 0 && r != 0), nil
	case ast.OpOr:
		return boolToFloat(l != 0 || r != 0), nil
	}
	return 0, runtimeErr(diagnostics.EType, e.Span, "unknown operator %s", e.Op)
}

// evalCall runs a built-in. User functions are never invoked, so calling one
// is an unknown function.
func (ev *evaluator) evalCall(e *ast.CallExpr, backend Backend) (float32, error) {
	fn := ev.fns.Get(e.Name)
	if fn == nil {
		return 0, runtimeErr(diagnostics.EUnknownFn, e.Span, "Unknown function: %s", e.Name)
	}
	args := make([]float32, len(e.Args))
	for i, a := range e.Args {
		v, err := ev.evalExpr(a, backend)
		if err != nil {
			return 0, err
		}
		args[i] = v
	}
	v, err := fn.Call(args)
	if err != nil {
		if errors.Is(err, stdlib.ErrArity) {
			return 0, runtimeErr(diagnostics.EArity, e.Span, "%s", err.Error())
		}
		return 0, runtimeErr(diagnostics.EType, e.Span, "%s", err.Error())
	}
	return v, nil
}

func (ev *evaluator) evalReduce(e *ast.ReduceExpr, backend Backend) (float32, error) {
	id, ok := e.Array.(*ast.Ident)
	if !ok {
		return 0, runtimeErr(diagnostics.EReduce, e.Span, "Reduce requires array identifier")
	}
	arr, ok := ev.env.Array(id.Name)
	if !ok {
		if ev.env.IsScalar(id.Name) {
			return 0, runtimeErr(diagnostics.EReduce, id.Span, "Undefined array: %s", id.Name)
		}
		return 0, runtimeErr(diagnostics.EUndefined, id.Span, "Undefined variable: %s", id.Name)
	}
	v := stdlib.Reduce(e.Op, arr)
	ev.emitWithData(TraceReduce, backend, &e.Span, map[string]string{
		"op":     string(e.Op),
		"array":  id.Name,
		"len":    strconv.Itoa(len(arr)),
		"result": FormatValue(v),
	})
	return v, nil
}

// evalInt evaluates loop bounds and array indices. Only integer literals,
// scalar identifiers (truncated) and + - * / % are allowed.
func (ev *evaluator) evalInt(expr ast.Expr) (int64, error) {
	switch e := expr.(type) {
	case *ast.IntLiteral:
		return e.Value, nil

	case *ast.Ident:
		v, err := ev.lookupScalar(e)
		if err != nil {
			return 0, err
		}
		return int64(v), nil

	case *ast.BinaryExpr:
		if !e.Op.IsArithmetic() {
			return 0, runtimeErr(diagnostics.EIntContext, e.Span,
				"Expected integer expression: operator %s is not allowed in an index or loop bound", e.Op)
		}
		l, err := ev.evalInt(e.Left)
		if err != nil {
			return 0, err
		}
		r, err := ev.evalInt(e.Right)
		if err != nil {
			return 0, err
		}
		switch e.Op {
		case ast.OpAdd:
			return l + r, nil
		case ast.OpSub:
			return l - r, nil
		case ast.OpMul:
			return l * r, nil
		}
		if r == 0 {
			return 0, runtimeErr(diagnostics.EDivZero, e.Span, "integer division by zero")
		}
		if e.Op == ast.OpDiv {
			return l / r, nil
		}
		return l % r, nil
	}
	return 0, runtimeErr(diagnostics.EIntContext, expr.NodeSpan(), "Expected integer expression")
}
