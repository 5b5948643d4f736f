// Package lexer implements the SuperC language tokenizer.
package lexer

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/ast"
)

// TokenType identifies the type of a lexer token.
type TokenType int

const (
	// Keywords
	TokData TokenType = iota
	TokFn
	TokParallel
	TokSeq
	TokGpu
	TokAsm
	TokReduce
	TokIf
	TokElse
	TokFor
	TokReturn

	// Type keywords
	TokI32
	TokI64
	TokF32
	TokF64
	TokBool

	// Literals
	TokIdent
	TokIntLit
	TokFloatLit
	TokBoolLit
	TokStringLit

	// Operators
	TokPlus    // +
	TokMinus   // -
	TokStar    // *
	TokSlash   // /
	TokPercent // %
	TokEq      // =
	TokEqEq    // ==
	TokNotEq   // !=
	TokLt      // <
	TokGt      // >
	TokLtEq    // <=
	TokGtEq    // >=
	TokAnd     // &&
	TokOr      // ||
	TokNot     // !

	// Delimiters
	TokLParen   // (
	TokRParen   // )
	TokLBrace   // {
	TokRBrace   // }
	TokLBracket // [
	TokRBracket // ]
	TokComma    // ,
	TokColon    // :
	TokSemi     // ;
	TokArrow    // ->

	// Special
	TokNewline
	TokEOF
)

var tokenNames = map[TokenType]string{
	TokData: "data", TokFn: "fn", TokParallel: "parallel", TokSeq: "seq", TokGpu: "gpu",
	TokAsm: "asm", TokReduce: "reduce", TokIf: "if", TokElse: "else", TokFor: "for",
	TokReturn: "return", TokI32: "i32", TokI64: "i64", TokF32: "f32", TokF64: "f64",
	TokBool: "bool", TokIdent: "identifier", TokIntLit: "integer", TokFloatLit: "float",
	TokBoolLit: "boolean", TokStringLit: "string", TokPlus: "+", TokMinus: "-", TokStar: "*",
	TokSlash: "/", TokPercent: "%", TokEq: "=", TokEqEq: "==", TokNotEq: "!=", TokLt: "<",
	TokGt: ">", TokLtEq: "<=", TokGtEq: ">=", TokAnd: "&&", TokOr: "||", TokNot: "!",
	TokLParen: "(", TokRParen: ")", TokLBrace: "{", TokRBrace: "}", TokLBracket: "[",
	TokRBracket: "]", TokComma: ",", TokColon: ":", TokSemi: ";", TokArrow: "->",
	TokNewline: "newline", TokEOF: "end of input",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return "TokenType(" + strconv.Itoa(int(t)) + ")"
}

// Token represents a single lexer token. Numeric and boolean literals carry
// their decoded value alongside the raw text.
type Token struct {
	Type  TokenType
	Value string
	Int   int64
	Float float64
	Bool  bool
	Span  ast.Span
}

// Describe renders the token for parse error messages.
func (t Token) Describe() string {
	switch t.Type {
	case TokIdent:
		return "identifier '" + t.Value + "'"
	case TokIntLit, TokFloatLit, TokBoolLit:
		return "literal " + t.Value
	case TokStringLit:
		return "string " + strconv.Quote(t.Value)
	}
	return "'" + t.Type.String() + "'"
}

var keywords = map[string]TokenType{
	"data":     TokData,
	"fn":       TokFn,
	"parallel": TokParallel,
	"seq":      TokSeq,
	"gpu":      TokGpu,
	"asm":      TokAsm,
	"reduce":   TokReduce,
	"if":       TokIf,
	"else":     TokElse,
	"for":      TokFor,
	"return":   TokReturn,
	"i32":      TokI32,
	"i64":      TokI64,
	"f32":      TokF32,
	"f64":      TokF64,
	"bool":     TokBool,
}

// IsKeyword reports whether name is reserved by the language.
func IsKeyword(name string) bool {
	if _, ok := keywords[name]; ok {
		return true
	}
	return name == "true" || name == "false"
}

type scanner struct {
	source   string
	filename string
	pos      int
	line     int
	col      int
}

func newScanner(source, filename string) *scanner {
	return &scanner{
		source:   source,
		filename: filename,
		line:     1,
		col:      1,
	}
}

func (s *scanner) atEnd() bool {
	return s.pos >= len(s.source)
}

func (s *scanner) peek() byte {
	if s.atEnd() {
		return 0
	}
	return s.source[s.pos]
}

func (s *scanner) peekRune() rune {
	if s.atEnd() {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(s.source[s.pos:])
	return r
}

// advance consumes one rune. Columns count runes, not bytes.
func (s *scanner) advance() rune {
	r, size := utf8.DecodeRuneInString(s.source[s.pos:])
	s.pos += size
	if r == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return r
}

func (s *scanner) span(startLine, startCol int) ast.Span {
	return ast.Span{
		File:      s.filename,
		StartLine: startLine,
		StartCol:  startCol,
		EndLine:   s.line,
		EndCol:    s.col,
	}
}

func (s *scanner) token(typ TokenType, value string, startLine, startCol int) Token {
	return Token{Type: typ, Value: value, Span: s.span(startLine, startCol)}
}

// skipBlanks skips spaces, tabs, carriage returns and // comments. Newlines
// are significant and left in place.
func (s *scanner) skipBlanks() {
	for !s.atEnd() {
		ch := s.peek()
		switch {
		case ch == ' ' || ch == '\t' || ch == '\r':
			s.advance()
		case ch == '/' && s.pos+1 < len(s.source) && s.source[s.pos+1] == '/':
			for !s.atEnd() && s.peek() != '\n' {
				s.advance()
			}
		default:
			return
		}
	}
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// scanNumber reads digits with at most one '.'; a second '.' ends the token.
// Values that do not fit decode as zero.
func (s *scanner) scanNumber() Token {
	startLine, startCol := s.line, s.col
	startPos := s.pos
	isFloat := false

	for !s.atEnd() {
		ch := s.peek()
		if isDigit(ch) {
			s.advance()
		} else if ch == '.' && !isFloat {
			isFloat = true
			s.advance()
		} else {
			break
		}
	}

	text := s.source[startPos:s.pos]
	if isFloat {
		tok := s.token(TokFloatLit, text, startLine, startCol)
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			tok.Float = f
		}
		return tok
	}
	tok := s.token(TokIntLit, text, startLine, startCol)
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		tok.Int = n
	}
	return tok
}

// scanString reads a double-quoted string. An unterminated string runs to the
// end of input; unknown escapes keep the escaped character.
func (s *scanner) scanString() Token {
	startLine, startCol := s.line, s.col
	s.advance() // opening "

	var buf strings.Builder
	for !s.atEnd() {
		r := s.advance()
		if r == '"' {
			break
		}
		if r != '\\' {
			buf.WriteRune(r)
			continue
		}
		if s.atEnd() {
			break
		}
		switch esc := s.advance(); esc {
		case 'n':
			buf.WriteByte('\n')
		case 't':
			buf.WriteByte('\t')
		default:
			buf.WriteRune(esc)
		}
	}
	return s.token(TokStringLit, buf.String(), startLine, startCol)
}

func (s *scanner) scanIdentOrKeyword() Token {
	startLine, startCol := s.line, s.col
	startPos := s.pos
	for !s.atEnd() && isIdentPart(s.peekRune()) {
		s.advance()
	}
	text := s.source[startPos:s.pos]

	switch text {
	case "true", "false":
		tok := s.token(TokBoolLit, text, startLine, startCol)
		tok.Bool = text == "true"
		return tok
	}
	if typ, ok := keywords[text]; ok {
		return s.token(typ, text, startLine, startCol)
	}
	return s.token(TokIdent, text, startLine, startCol)
}

// pair consumes ch and, when the next byte is second, that byte too.
func (s *scanner) pair(second byte, single, double TokenType, startLine, startCol int) Token {
	s.advance()
	if !s.atEnd() && s.peek() == second {
		s.advance()
		return s.token(double, double.String(), startLine, startCol)
	}
	return s.token(single, single.String(), startLine, startCol)
}

var singles = map[byte]TokenType{
	'+': TokPlus, '*': TokStar, '/': TokSlash, '%': TokPercent,
	'(': TokLParen, ')': TokRParen, '{': TokLBrace, '}': TokRBrace,
	'[': TokLBracket, ']': TokRBracket, ',': TokComma, ':': TokColon, ';': TokSemi,
}

// nextToken returns the next token. ok is false when an unrecognized
// character was skipped and the caller should try again.
func (s *scanner) nextToken() (tok Token, ok bool) {
	s.skipBlanks()
	startLine, startCol := s.line, s.col

	if s.atEnd() {
		return s.token(TokEOF, "", startLine, startCol), true
	}

	ch := s.peek()
	if typ, found := singles[ch]; found {
		s.advance()
		return s.token(typ, typ.String(), startLine, startCol), true
	}

	switch ch {
	case '\n':
		s.advance()
		return s.token(TokNewline, "\n", startLine, startCol), true
	case '-':
		return s.pair('>', TokMinus, TokArrow, startLine, startCol), true
	case '=':
		return s.pair('=', TokEq, TokEqEq, startLine, startCol), true
	case '!':
		return s.pair('=', TokNot, TokNotEq, startLine, startCol), true
	case '<':
		return s.pair('=', TokLt, TokLtEq, startLine, startCol), true
	case '>':
		return s.pair('=', TokGt, TokGtEq, startLine, startCol), true
	case '&', '|':
		s.advance()
		if !s.atEnd() && s.peek() == ch {
			s.advance()
			if ch == '&' {
				return s.token(TokAnd, "&&", startLine, startCol), true
			}
			return s.token(TokOr, "||", startLine, startCol), true
		}
		return Token{}, false
	case '"':
		return s.scanString(), true
	}

	if isDigit(ch) {
		return s.scanNumber(), true
	}
	if isIdentStart(s.peekRune()) {
		return s.scanIdentOrKeyword(), true
	}

	s.advance()
	return Token{}, false
}

// Tokenize breaks source code into a slice of tokens ending with exactly one
// EOF token. It never fails: unrecognized characters are skipped.
func Tokenize(source, filename string) []Token {
	s := newScanner(source, filename)
	var tokens []Token

	for {
		tok, ok := s.nextToken()
		if !ok {
			continue
		}
		tokens = append(tokens, tok)
		if tok.Type == TokEOF {
			return tokens
		}
	}
}
