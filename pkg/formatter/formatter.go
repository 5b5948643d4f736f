// Package formatter implements the SuperC source code formatter.
package formatter

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/ast"
)

const indent = "    "

// Precedence table for binary operators (higher = tighter binding)
var precedence = map[ast.BinaryOp]int{
	ast.OpOr:   1,
	ast.OpAnd:  2,
	ast.OpEqEq: 3, ast.OpNeq: 3,
	ast.OpGt: 4, ast.OpLt: 4, ast.OpGtEq: 4, ast.OpLtEq: 4,
	ast.OpAdd: 5, ast.OpSub: 5,
	ast.OpMul: 6, ast.OpDiv: 6, ast.OpMod: 6,
}

func needsParens(child ast.Expr, parentOp ast.BinaryOp, isRight bool) bool {
	bin, ok := child.(*ast.BinaryExpr)
	if !ok {
		return false
	}
	childPrec := precedence[bin.Op]
	parentPrec := precedence[parentOp]
	if childPrec < parentPrec {
		return true
	}
	// All levels are left-associative, so an equal-precedence right child
	// keeps its parens.
	return childPrec == parentPrec && isRight
}

// item is a top-level function or statement, kept in source order.
type item struct {
	span ast.Span
	fn   *ast.FnDef
	stmt ast.Stmt
}

// Format pretty-prints a SuperC AST back to source code. Functions and
// statements are interleaved by source position; each function is set off by
// blank lines.
func Format(program *ast.Program) string {
	items := make([]item, 0, len(program.Functions)+len(program.Statements))
	for _, fn := range program.Functions {
		items = append(items, item{span: fn.Span, fn: fn})
	}
	for _, s := range program.Statements {
		items = append(items, item{span: s.NodeSpan(), stmt: s})
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].span, items[j].span
		if a.StartLine != b.StartLine {
			return a.StartLine < b.StartLine
		}
		return a.StartCol < b.StartCol
	})

	var lines []string
	for i, it := range items {
		if it.fn != nil {
			if i > 0 && lines[len(lines)-1] != "" {
				lines = append(lines, "")
			}
			lines = append(lines, formatFn(it.fn))
			if i < len(items)-1 {
				lines = append(lines, "")
			}
			continue
		}
		lines = append(lines, formatStmt(it.stmt, 0))
	}
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// HasComments checks if a source string contains // comments outside string
// literals.
func HasComments(source string) bool {
	for _, line := range strings.Split(source, "\n") {
		inString := false
		for i := 0; i < len(line); i++ {
			switch {
			case line[i] == '\\' && inString:
				i++
			case line[i] == '"':
				inString = !inString
			case !inString && line[i] == '/' && i+1 < len(line) && line[i+1] == '/':
				return true
			}
		}
	}
	return false
}

func formatFn(fn *ast.FnDef) string {
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = p.Name + ": " + p.Type.String()
	}
	head := "fn " + fn.Name + "(" + strings.Join(params, ", ") + ")"
	if fn.RetType.Kind != ast.TypeVoid {
		head += " -> " + fn.RetType.String()
	}
	return head + " " + formatBlock(fn.Body, 0)
}

func formatStmt(s ast.Stmt, depth int) string {
	prefix := strings.Repeat(indent, depth)
	switch stmt := s.(type) {
	case *ast.DataDecl:
		return prefix + "data " + stmt.Name + ": " + stmt.Type.String()
	case *ast.AssignStmt:
		target := stmt.Target
		if stmt.Index != nil {
			target += "[" + formatExpr(stmt.Index) + "]"
		}
		return prefix + target + " = " + formatExpr(stmt.Value)
	case *ast.ExecBlock:
		return prefix + string(stmt.Target) + " " + formatBlock(stmt.Body, depth)
	case *ast.IfStmt:
		out := prefix + "if " + formatExpr(stmt.Cond) + " " + formatBlock(stmt.Then, depth)
		if stmt.HasElse() {
			out += " else " + formatBlock(stmt.Else, depth)
		}
		return out
	case *ast.ForStmt:
		return prefix + "for " + stmt.Var + " = " + formatExpr(stmt.Start) + " : " + formatExpr(stmt.End) +
			" " + formatBlock(stmt.Body, depth)
	case *ast.ExprStmt:
		return prefix + formatExpr(stmt.Expr)
	case *ast.ReturnStmt:
		if stmt.Value == nil {
			return prefix + "return"
		}
		return prefix + "return " + formatExpr(stmt.Value)
	}
	return ""
}

func formatBlock(stmts []ast.Stmt, depth int) string {
	if len(stmts) == 0 {
		return "{}"
	}
	lines := make([]string, len(stmts))
	for i, s := range stmts {
		lines[i] = formatStmt(s, depth+1)
	}
	return "{\n" + strings.Join(lines, "\n") + "\n" + strings.Repeat(indent, depth) + "}"
}

// FormatExpr renders a single expression.
func FormatExpr(e ast.Expr) string {
	return formatExpr(e)
}

func formatExpr(e ast.Expr) string {
	switch expr := e.(type) {
	case *ast.IntLiteral:
		return strconv.FormatInt(expr.Value, 10)
	case *ast.FloatLiteral:
		return formatFloatLiteral(expr.Value)
	case *ast.BoolLiteral:
		if expr.Value {
			return "true"
		}
		return "false"
	case *ast.StrLiteral:
		return quote(expr.Value)
	case *ast.Ident:
		return expr.Name
	case *ast.IndexExpr:
		return formatExpr(expr.Array) + "[" + formatExpr(expr.Index) + "]"
	case *ast.BinaryExpr:
		left := formatExpr(expr.Left)
		if needsParens(expr.Left, expr.Op, false) {
			left = "(" + left + ")"
		}
		right := formatExpr(expr.Right)
		if needsParens(expr.Right, expr.Op, true) {
			right = "(" + right + ")"
		}
		return left + " " + string(expr.Op) + " " + right
	case *ast.UnaryExpr:
		operand := formatExpr(expr.Operand)
		if _, isBin := expr.Operand.(*ast.BinaryExpr); isBin {
			operand = "(" + operand + ")"
		}
		return string(expr.Op) + operand
	case *ast.CallExpr:
		args := make([]string, len(expr.Args))
		for i, a := range expr.Args {
			args[i] = formatExpr(a)
		}
		return expr.Name + "(" + strings.Join(args, ", ") + ")"
	case *ast.ReduceExpr:
		return "reduce(" + string(expr.Op) + ", " + formatExpr(expr.Array) + ")"
	}
	return ""
}

// formatFloatLiteral prints the shortest decimal form that re-lexes as a
// float. The lexer has no exponent syntax, so exponents are never produced.
func formatFloatLiteral(value float64) string {
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return "0.0"
	}
	raw := strconv.FormatFloat(value, 'f', -1, 64)
	if !strings.Contains(raw, ".") {
		raw += ".0"
	}
	return raw
}

func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
