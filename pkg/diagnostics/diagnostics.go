// Package diagnostics defines SuperC diagnostic types for parse, evaluation and code generation errors.
package diagnostics

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/ast"
)

// Diagnostic code constants. The lexer never fails, so there is no lexical code.
const (
	EParse      = "E_PARSE"
	EUndefined  = "E_UNDEFINED"
	EBounds     = "E_BOUNDS"
	EUnknownFn  = "E_UNKNOWN_FN"
	EArity      = "E_ARITY"
	EReduce     = "E_REDUCE"
	EIntContext = "E_INT_CONTEXT"
	EDivZero    = "E_DIV_ZERO"
	EType       = "E_TYPE"
	EBudget     = "E_BUDGET"
	ECancelled  = "E_CANCELLED"
	ECodegen    = "E_CODEGEN"
	EIO         = "E_IO"
	EConfig     = "E_CONFIG"
)

// Kind groups codes by the subsystem that raises them.
type Kind string

const (
	KindParse   Kind = "parse"
	KindEval    Kind = "eval"
	KindCodegen Kind = "codegen"
	KindIO      Kind = "io"
)

// KindOf returns the subsystem a diagnostic code belongs to.
func KindOf(code string) Kind {
	switch code {
	case EParse:
		return KindParse
	case ECodegen:
		return KindCodegen
	case EIO, EConfig:
		return KindIO
	}
	return KindEval
}

// Diagnostic represents a parse, validation, evaluation or codegen diagnostic.
type Diagnostic struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Span    *ast.Span `json:"span,omitempty"`
	Hint    string    `json:"hint,omitempty"`
}

// MakeDiag creates a new Diagnostic.
func MakeDiag(code, message string, span *ast.Span, hint string) Diagnostic {
	return Diagnostic{
		Code:    code,
		Message: message,
		Span:    span,
		Hint:    hint,
	}
}

// FormatDiagnostic formats a single diagnostic for display.
func FormatDiagnostic(d Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(d)
		return string(b)
	}
	loc := "<unknown>"
	if d.Span != nil {
		loc = fmt.Sprintf("%s:%d:%d", d.Span.File, d.Span.StartLine, d.Span.StartCol)
	}
	out := fmt.Sprintf("error[%s]: %s\n  --> %s", d.Code, d.Message, loc)
	if d.Hint != "" {
		out += fmt.Sprintf("\n  hint: %s", d.Hint)
	}
	return out
}

// FormatDiagnostics formats a slice of diagnostics for display.
func FormatDiagnostics(diags []Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(diags)
		return string(b)
	}
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = FormatDiagnostic(d, true)
	}
	return strings.Join(parts, "\n\n")
}
