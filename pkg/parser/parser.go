// Package parser implements the SuperC language parser.
package parser

import (
	"fmt"
	"strconv"

	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/ast"
	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/diagnostics"
	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/lexer"
)

// parser is fail fast: the first diagnostic stops parsing and every parse
// function returns nil from then on.
type parser struct {
	tokens []lexer.Token
	pos    int
	last   lexer.Token
	diags  []diagnostics.Diagnostic
}

// Parse tokenizes source and parses it into an AST.
func Parse(source, filename string) (*ast.Program, []diagnostics.Diagnostic) {
	return ParseTokens(lexer.Tokenize(source, filename))
}

// ParseTokens parses an already tokenized program. The slice must end with
// an EOF token, as produced by lexer.Tokenize.
func ParseTokens(tokens []lexer.Token) (*ast.Program, []diagnostics.Diagnostic) {
	p := newParser(tokens)
	prog := p.parseProgram()
	if len(p.diags) > 0 {
		return nil, p.diags
	}
	return prog, nil
}

// ParseExpr parses a single expression; trailing input is an error.
func ParseExpr(source, filename string) (ast.Expr, []diagnostics.Diagnostic) {
	p := newParser(lexer.Tokenize(source, filename))
	p.skipSeparators()
	expr := p.parseExpr()
	if expr != nil {
		p.skipSeparators()
		if p.peek() != lexer.TokEOF {
			p.unexpected("end of input")
		}
	}
	if len(p.diags) > 0 {
		return nil, p.diags
	}
	return expr, nil
}

func newParser(tokens []lexer.Token) *parser {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != lexer.TokEOF {
		tokens = append(tokens, lexer.Token{Type: lexer.TokEOF})
	}
	return &parser{tokens: tokens}
}

func (p *parser) current() lexer.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.pos]
}

func (p *parser) peek() lexer.TokenType {
	return p.current().Type
}

// advance consumes the current token and any newlines after it. Newlines are
// only significant where a statement may end without a value (return).
func (p *parser) advance() lexer.Token {
	tok := p.current()
	p.last = tok
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	for p.peek() == lexer.TokNewline {
		p.pos++
	}
	return tok
}

// skipSeparators skips newlines and semicolons between statements.
func (p *parser) skipSeparators() {
	for p.peek() == lexer.TokNewline || p.peek() == lexer.TokSemi {
		p.pos++
	}
}

func (p *parser) expect(typ lexer.TokenType) (lexer.Token, bool) {
	tok := p.current()
	if tok.Type != typ {
		p.unexpected("'" + typ.String() + "'")
		return tok, false
	}
	return p.advance(), true
}

func (p *parser) expectIdent(what string) (lexer.Token, bool) {
	tok := p.current()
	if tok.Type != lexer.TokIdent {
		p.addError(fmt.Sprintf("Expected %s, got %s", what, tok.Describe()), &tok.Span)
		return tok, false
	}
	return p.advance(), true
}

func (p *parser) unexpected(want string) {
	tok := p.current()
	p.addError(fmt.Sprintf("Expected %s, got %s", want, tok.Describe()), &tok.Span)
}

func (p *parser) addError(msg string, span *ast.Span) {
	if len(p.diags) > 0 {
		return
	}
	p.diags = append(p.diags, diagnostics.MakeDiag(diagnostics.EParse, msg, span, ""))
}

// spanFrom covers start through the last consumed token.
func (p *parser) spanFrom(start ast.Span) ast.Span {
	return ast.Span{
		File:      start.File,
		StartLine: start.StartLine,
		StartCol:  start.StartCol,
		EndLine:   p.last.Span.EndLine,
		EndCol:    p.last.Span.EndCol,
	}
}

// --- Program ---

func (p *parser) parseProgram() *ast.Program {
	startSpan := p.current().Span
	prog := &ast.Program{}

	p.skipSeparators()
	for p.peek() != lexer.TokEOF {
		if p.peek() == lexer.TokFn {
			fn := p.parseFnDef()
			if fn == nil {
				return nil
			}
			prog.Functions = append(prog.Functions, fn)
		} else {
			stmt := p.parseStmt()
			if stmt == nil {
				return nil
			}
			prog.Statements = append(prog.Statements, stmt)
		}
		p.skipSeparators()
	}

	prog.Span = p.spanFrom(startSpan)
	return prog
}

// --- Functions and types ---

func (p *parser) parseFnDef() *ast.FnDef {
	start := p.advance() // consume 'fn'
	name, ok := p.expectIdent("function name")
	if !ok {
		return nil
	}
	if _, ok := p.expect(lexer.TokLParen); !ok {
		return nil
	}

	var params []ast.Param
	for p.peek() != lexer.TokRParen {
		pname, ok := p.expectIdent("parameter name")
		if !ok {
			return nil
		}
		if _, ok := p.expect(lexer.TokColon); !ok {
			return nil
		}
		typ, ok := p.parseType()
		if !ok {
			return nil
		}
		params = append(params, ast.Param{Name: pname.Value, Type: typ})
		if p.peek() == lexer.TokComma {
			p.advance()
		}
	}
	p.advance() // consume ')'

	ret := ast.Void
	if p.peek() == lexer.TokArrow {
		p.advance()
		typ, ok := p.parseType()
		if !ok {
			return nil
		}
		ret = typ
	}

	body, ok := p.parseBlock()
	if !ok {
		return nil
	}
	return &ast.FnDef{
		Span:    p.spanFrom(start.Span),
		Name:    name.Value,
		Params:  params,
		RetType: ret,
		Body:    body,
	}
}

var scalarTypes = map[lexer.TokenType]ast.DataType{
	lexer.TokI32:  ast.I32,
	lexer.TokI64:  ast.I64,
	lexer.TokF32:  ast.F32,
	lexer.TokF64:  ast.F64,
	lexer.TokBool: ast.Bool,
}

// parseType parses a scalar type optionally followed by [SIZE].
func (p *parser) parseType() (ast.DataType, bool) {
	base, ok := scalarTypes[p.peek()]
	if !ok {
		p.unexpected("type")
		return ast.Void, false
	}
	p.advance()

	if p.peek() != lexer.TokLBracket {
		return base, true
	}
	p.advance()
	size := p.current()
	if size.Type != lexer.TokIntLit {
		p.addError(fmt.Sprintf("Expected array size, got %s", size.Describe()), &size.Span)
		return ast.Void, false
	}
	n, err := strconv.ParseInt(size.Value, 10, 64)
	if err != nil || n > ast.MaxArraySize {
		p.addError(fmt.Sprintf("Array size %s exceeds limit %d", size.Value, ast.MaxArraySize), &size.Span)
		return ast.Void, false
	}
	p.advance()
	if _, ok := p.expect(lexer.TokRBracket); !ok {
		return ast.Void, false
	}
	return ast.ArrayOf(base, int(n)), true
}

// parseBlock parses { STATEMENTS }.
func (p *parser) parseBlock() ([]ast.Stmt, bool) {
	if _, ok := p.expect(lexer.TokLBrace); !ok {
		return nil, false
	}
	stmts := []ast.Stmt{}
	p.skipSeparators()
	for p.peek() != lexer.TokRBrace && p.peek() != lexer.TokEOF {
		stmt := p.parseStmt()
		if stmt == nil {
			return nil, false
		}
		stmts = append(stmts, stmt)
		p.skipSeparators()
	}
	if _, ok := p.expect(lexer.TokRBrace); !ok {
		return nil, false
	}
	return stmts, true
}

// --- Statements ---

var execTargets = map[lexer.TokenType]ast.ExecTarget{
	lexer.TokParallel: ast.TargetParallel,
	lexer.TokSeq:      ast.TargetSeq,
	lexer.TokGpu:      ast.TargetGpu,
	lexer.TokAsm:      ast.TargetAsm,
}

func (p *parser) parseStmt() ast.Stmt {
	switch p.peek() {
	case lexer.TokData:
		return p.parseDataDecl()
	case lexer.TokParallel, lexer.TokSeq, lexer.TokGpu, lexer.TokAsm:
		return p.parseExecBlock()
	case lexer.TokIf:
		return p.parseIf()
	case lexer.TokFor:
		return p.parseFor()
	case lexer.TokReturn:
		return p.parseReturn()
	case lexer.TokIdent:
		return p.parseAssignOrExpr()
	}
	tok := p.current()
	p.addError(fmt.Sprintf("Unexpected token: %s", tok.Describe()), &tok.Span)
	return nil
}

func (p *parser) parseDataDecl() ast.Stmt {
	start := p.advance() // consume 'data'
	name, ok := p.expectIdent("variable name")
	if !ok {
		return nil
	}
	if _, ok := p.expect(lexer.TokColon); !ok {
		return nil
	}
	typ, ok := p.parseType()
	if !ok {
		return nil
	}
	return &ast.DataDecl{Span: p.spanFrom(start.Span), Name: name.Value, Type: typ}
}

func (p *parser) parseExecBlock() ast.Stmt {
	start := p.advance()
	body, ok := p.parseBlock()
	if !ok {
		return nil
	}
	return &ast.ExecBlock{Span: p.spanFrom(start.Span), Target: execTargets[start.Type], Body: body}
}

func (p *parser) parseIf() ast.Stmt {
	start := p.advance() // consume 'if'
	cond := p.parseExpr()
	if cond == nil {
		return nil
	}
	then, ok := p.parseBlock()
	if !ok {
		return nil
	}
	stmt := &ast.IfStmt{Cond: cond, Then: then}
	if p.peek() == lexer.TokElse {
		p.advance()
		els, ok := p.parseBlock()
		if !ok {
			return nil
		}
		stmt.Else = els
	}
	stmt.Span = p.spanFrom(start.Span)
	return stmt
}

// parseFor parses for VAR = START : END { BODY }.
func (p *parser) parseFor() ast.Stmt {
	start := p.advance() // consume 'for'
	v, ok := p.expectIdent("loop variable")
	if !ok {
		return nil
	}
	if _, ok := p.expect(lexer.TokEq); !ok {
		return nil
	}
	from := p.parseExpr()
	if from == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokColon); !ok {
		return nil
	}
	to := p.parseExpr()
	if to == nil {
		return nil
	}
	body, ok := p.parseBlock()
	if !ok {
		return nil
	}
	return &ast.ForStmt{Span: p.spanFrom(start.Span), Var: v.Value, Start: from, End: to, Body: body}
}

// parseReturn looks at the raw token after 'return' so that a line break
// ends a bare return.
func (p *parser) parseReturn() ast.Stmt {
	start := p.current()
	next := lexer.TokEOF
	if p.pos+1 < len(p.tokens) {
		next = p.tokens[p.pos+1].Type
	}
	p.advance()

	stmt := &ast.ReturnStmt{}
	switch next {
	case lexer.TokNewline, lexer.TokSemi, lexer.TokRBrace, lexer.TokEOF:
	default:
		stmt.Value = p.parseExpr()
		if stmt.Value == nil {
			return nil
		}
	}
	stmt.Span = p.spanFrom(start.Span)
	return stmt
}

// parseAssignOrExpr parses NAME[IDX]? = EXPR, or a bare name or call used as
// a statement.
func (p *parser) parseAssignOrExpr() ast.Stmt {
	name := p.advance()

	var index ast.Expr
	if p.peek() == lexer.TokLBracket {
		p.advance()
		index = p.parseExpr()
		if index == nil {
			return nil
		}
		if _, ok := p.expect(lexer.TokRBracket); !ok {
			return nil
		}
	}

	if p.peek() == lexer.TokEq {
		p.advance()
		value := p.parseExpr()
		if value == nil {
			return nil
		}
		return &ast.AssignStmt{Span: p.spanFrom(name.Span), Target: name.Value, Index: index, Value: value}
	}

	var expr ast.Expr
	switch {
	case index != nil:
		ident := &ast.Ident{Span: name.Span, Name: name.Value}
		expr = &ast.IndexExpr{Span: p.spanFrom(name.Span), Array: ident, Index: index}
	case p.peek() == lexer.TokLParen:
		expr = p.parseCall(name)
		if expr == nil {
			return nil
		}
	default:
		expr = &ast.Ident{Span: name.Span, Name: name.Value}
	}
	return &ast.ExprStmt{Span: p.spanFrom(name.Span), Expr: expr}
}

// --- Expressions ---

func (p *parser) parseExpr() ast.Expr {
	return p.parseOr()
}

// binaryLevel folds left-associative operators of one precedence level.
func (p *parser) binaryLevel(ops map[lexer.TokenType]ast.BinaryOp, next func() ast.Expr) ast.Expr {
	left := next()
	if left == nil {
		return nil
	}
	for {
		op, ok := ops[p.peek()]
		if !ok {
			return left
		}
		p.advance()
		right := next()
		if right == nil {
			return nil
		}
		span := p.spanFrom(left.NodeSpan())
		left = &ast.BinaryExpr{Span: span, Op: op, Left: left, Right: right}
	}
}

var (
	orOps       = map[lexer.TokenType]ast.BinaryOp{lexer.TokOr: ast.OpOr}
	andOps      = map[lexer.TokenType]ast.BinaryOp{lexer.TokAnd: ast.OpAnd}
	equalityOps = map[lexer.TokenType]ast.BinaryOp{lexer.TokEqEq: ast.OpEqEq, lexer.TokNotEq: ast.OpNeq}
	compareOps  = map[lexer.TokenType]ast.BinaryOp{
		lexer.TokLt: ast.OpLt, lexer.TokGt: ast.OpGt, lexer.TokLtEq: ast.OpLtEq, lexer.TokGtEq: ast.OpGtEq,
	}
	additiveOps = map[lexer.TokenType]ast.BinaryOp{lexer.TokPlus: ast.OpAdd, lexer.TokMinus: ast.OpSub}
	mulOps      = map[lexer.TokenType]ast.BinaryOp{
		lexer.TokStar: ast.OpMul, lexer.TokSlash: ast.OpDiv, lexer.TokPercent: ast.OpMod,
	}
)

func (p *parser) parseOr() ast.Expr         { return p.binaryLevel(orOps, p.parseAnd) }
func (p *parser) parseAnd() ast.Expr        { return p.binaryLevel(andOps, p.parseEquality) }
func (p *parser) parseEquality() ast.Expr   { return p.binaryLevel(equalityOps, p.parseComparison) }
func (p *parser) parseComparison() ast.Expr { return p.binaryLevel(compareOps, p.parseAdditive) }
func (p *parser) parseAdditive() ast.Expr   { return p.binaryLevel(additiveOps, p.parseMultiplicative) }
func (p *parser) parseMultiplicative() ast.Expr {
	return p.binaryLevel(mulOps, p.parseUnary)
}

func (p *parser) parseUnary() ast.Expr {
	var op ast.UnaryOp
	switch p.peek() {
	case lexer.TokMinus:
		op = ast.OpNeg
	case lexer.TokNot:
		op = ast.OpNot
	default:
		return p.parsePrimary()
	}
	start := p.advance()
	operand := p.parseUnary()
	if operand == nil {
		return nil
	}
	return &ast.UnaryExpr{Span: p.spanFrom(start.Span), Op: op, Operand: operand}
}

func (p *parser) parsePrimary() ast.Expr {
	tok := p.current()
	switch tok.Type {
	case lexer.TokIntLit:
		p.advance()
		return &ast.IntLiteral{Span: tok.Span, Value: tok.Int}
	case lexer.TokFloatLit:
		p.advance()
		return &ast.FloatLiteral{Span: tok.Span, Value: tok.Float}
	case lexer.TokBoolLit:
		p.advance()
		return &ast.BoolLiteral{Span: tok.Span, Value: tok.Bool}
	case lexer.TokStringLit:
		p.advance()
		return &ast.StrLiteral{Span: tok.Span, Value: tok.Value}
	case lexer.TokReduce:
		return p.parseReduce()
	case lexer.TokIdent:
		p.advance()
		switch p.peek() {
		case lexer.TokLParen:
			return p.parseCall(tok)
		case lexer.TokLBracket:
			p.advance()
			idx := p.parseExpr()
			if idx == nil {
				return nil
			}
			if _, ok := p.expect(lexer.TokRBracket); !ok {
				return nil
			}
			ident := &ast.Ident{Span: tok.Span, Name: tok.Value}
			return &ast.IndexExpr{Span: p.spanFrom(tok.Span), Array: ident, Index: idx}
		}
		return &ast.Ident{Span: tok.Span, Name: tok.Value}
	case lexer.TokLParen:
		p.advance()
		expr := p.parseExpr()
		if expr == nil {
			return nil
		}
		if _, ok := p.expect(lexer.TokRParen); !ok {
			return nil
		}
		return expr
	}
	p.addError(fmt.Sprintf("Unexpected token in expression: %s", tok.Describe()), &tok.Span)
	return nil
}

// parseCall parses the argument list after a name; the current token is '('.
func (p *parser) parseCall(name lexer.Token) ast.Expr {
	p.advance() // consume '('
	args := []ast.Expr{}
	for p.peek() != lexer.TokRParen {
		arg := p.parseExpr()
		if arg == nil {
			return nil
		}
		args = append(args, arg)
		if p.peek() == lexer.TokComma {
			p.advance()
		}
	}
	p.advance() // consume ')'
	return &ast.CallExpr{Span: p.spanFrom(name.Span), Name: name.Value, Args: args}
}

var reduceOps = map[string]ast.ReduceOp{
	"+":   ast.ReduceSum,
	"*":   ast.ReduceProd,
	"max": ast.ReduceMax,
	"min": ast.ReduceMin,
}

// parseReduce parses reduce(OP, EXPR) with OP one of + * max min.
func (p *parser) parseReduce() ast.Expr {
	start := p.advance() // consume 'reduce'
	if _, ok := p.expect(lexer.TokLParen); !ok {
		return nil
	}
	tok := p.current()
	op, ok := reduceOps[tok.Value]
	if !ok || (tok.Type != lexer.TokPlus && tok.Type != lexer.TokStar && tok.Type != lexer.TokIdent) {
		p.addError(fmt.Sprintf("Expected reduce operation, got %s", tok.Describe()), &tok.Span)
		return nil
	}
	p.advance()
	if _, ok := p.expect(lexer.TokComma); !ok {
		return nil
	}
	arr := p.parseExpr()
	if arr == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokRParen); !ok {
		return nil
	}
	return &ast.ReduceExpr{Span: p.spanFrom(start.Span), Op: op, Array: arr}
}
