package parser_test

import (
	"testing"

	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/parser"
)

// FuzzParse feeds random inputs to the parser to catch panics.
// The parser should never panic: it returns diagnostics for invalid input.
func FuzzParse(f *testing.F) {
	seeds := []string{
		// Declarations
		`data x: f32[100]`,
		"data a: f32\ndata b: i32\na = b + 1",
		// Blocks
		"parallel {\n  for i = 0 : 10 {\n    x[i] = i * 2.0\n  }\n}",
		"gpu { s = reduce(+, x) }",
		"if a > 1 && b < 2 { print(a) } else { print(b) }",
		// Functions
		"fn add(a: f32, b: f32) -> f32 {\n  return a + b\n}",
		"fn f() { return }",
		// Expressions
		`x = -(1 + 2) * 3 % 4 / 5`,
		`y = !a || b == c != d`,
		`z = reduce(max, a) + reduce(min, a)`,
		// Broken input
		`data`,
		`data x:`,
		`data x: f32[`,
		`fn`,
		`fn f(`,
		`print(`,
		`reduce(`,
		`for i = 0 :`,
		`if {`,
		`}}}`,
		`((((`,
		`x = `,
		`return return`,
		``,
	}

	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, input string) {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("Parse panicked on input %q: %v", input, r)
				}
			}()
			prog, diags := parser.Parse(input, "fuzz.sc")
			if (prog == nil) == (len(diags) == 0) {
				t.Fatalf("Parse(%q) must return either a program or diagnostics", input)
			}
		}()
	})
}
