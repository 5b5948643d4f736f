package codegen_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/codegen"
	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/compute"
	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/diagnostics"
	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/parser"
)

func mustGenerate(t *testing.T, src string, target codegen.Target) string {
	t.Helper()
	prog, diags := parser.Parse(src, "gen.sc")
	if len(diags) > 0 {
		t.Fatalf("parse error: %s", diags[0].Message)
	}
	out, err := codegen.Generate(prog, target)
	if err != nil {
		t.Fatalf("generate %s: %v", target, err)
	}
	return out
}

func assertContains(t *testing.T, out string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q:\n%s", want, out)
		}
	}
}

const basic = `data x: f32[100]
parallel {
    x[0] = 42.0
}`

func TestArrayDeclaration(t *testing.T) {
	rust := mustGenerate(t, basic, codegen.TargetRust)
	assertContains(t, rust, "let mut x: [f32; 100] = [0.0_f32; 100];", "fn main() {")

	c := mustGenerate(t, basic, codegen.TargetC)
	assertContains(t, c, "float x[100];", "int main(void) {", "return 0;")
}

func TestScalarTypes(t *testing.T) {
	src := "data a: i32\ndata b: i64\ndata c: f32\ndata d: f64\ndata e: bool\ndata v: i64[3]"
	rust := mustGenerate(t, src, codegen.TargetRust)
	assertContains(t, rust,
		"let mut a: i32 = 0;",
		"let mut b: i64 = 0;",
		"let mut c: f32 = 0.0_f32;",
		"let mut d: f64 = 0.0;",
		"let mut e: bool = false;",
		"let mut v: [i64; 3] = [0; 3];",
	)

	c := mustGenerate(t, src, codegen.TargetC)
	assertContains(t, c,
		"static int32_t a;",
		"static int64_t b;",
		"static float c;",
		"static double d;",
		"static bool e;",
		"static int64_t v[3];",
	)
}

func TestAssignmentConversions(t *testing.T) {
	src := "data n: i32\ndata f: f64\ndata b: bool\nn = 2.5\nf = n + 1\nb = n > 1"
	rust := mustGenerate(t, src, codegen.TargetRust)
	assertContains(t, rust,
		"n = (2.5_f32 as i32);",
		"f = (((n as f32) + 1.0_f32) as f64);",
		"b = ((n as f32) > 1.0_f32);",
	)
	c := mustGenerate(t, src, codegen.TargetC)
	assertContains(t, c,
		"n = (int32_t)2.5f;",
		"f = (double)((float)n + 1.0f);",
		"b = ((float)n > 1.0f);",
	)
}

func TestIndexedWriteIsBoundsChecked(t *testing.T) {
	rust := mustGenerate(t, basic, codegen.TargetRust)
	assertContains(t, rust,
		"let __sc_v: f32 = 42.0_f32;",
		"let __sc_k: i64 = 0;",
		"if __sc_k >= 0 && (__sc_k as usize) < x.len() {",
		"x[__sc_k as usize] = __sc_v;",
	)
	c := mustGenerate(t, basic, codegen.TargetC)
	assertContains(t, c, "if (__sc_k >= 0 && __sc_k < 100) {", "x[__sc_k] = __sc_v;")
}

func TestIndexedReadAborts(t *testing.T) {
	src := "data a: f32[4]\ndata s: f32\ns = a[1]"
	assertContains(t, mustGenerate(t, src, codegen.TargetRust), "s = a[sc_idx(1, a.len())];")
	assertContains(t, mustGenerate(t, src, codegen.TargetC), "s = a[sc_idx(1, 4)];")
}

func TestExecBlockTagIsComment(t *testing.T) {
	for _, target := range []codegen.Target{codegen.TargetRust, codegen.TargetC} {
		assertContains(t, mustGenerate(t, basic, target), "// exec: parallel")
	}
}

func TestFloatEqualityUsesEpsilon(t *testing.T) {
	src := "data s: f32\nif s == 0.5 { s = 1 }\nif s != 1 { s = 2 }"
	rust := mustGenerate(t, src, codegen.TargetRust)
	assertContains(t, rust, "fn sc_feq(a: f32, b: f32) -> bool", "if sc_feq(s, 0.5_f32) {", "if (!sc_feq(s, 1.0_f32)) {")
	c := mustGenerate(t, src, codegen.TargetC)
	assertContains(t, c, "static bool sc_feq(float a, float b)", "if (sc_feq(s, 0.5f)) {")
}

func TestLogicEvaluatesBothOperands(t *testing.T) {
	src := "data s: f32\ns = s > 1 && !(s < 3) || 0"
	rust := mustGenerate(t, src, codegen.TargetRust)
	assertContains(t, rust, "s = ((((s > 1.0_f32) & (!(s < 3.0_f32))) | (0.0_f32 != 0.0)) as u8 as f32);")
}

func TestForLoop(t *testing.T) {
	src := "data a: f32[8]\ndata n: f32\nfor i = 0 : n * 2 {\n  a[i] = i\n}"
	rust := mustGenerate(t, src, codegen.TargetRust)
	assertContains(t, rust,
		"let mut i: i64 = 0;",
		"let mut __sc_i0: i64 = 0;",
		"let __sc_end0: i64 = ((n as i64) * 2);",
		"while __sc_i0 < __sc_end0 {",
		"i = __sc_i0;",
		"let __sc_v: f32 = (i as f32);",
		"__sc_i0 += 1;",
	)
	c := mustGenerate(t, src, codegen.TargetC)
	assertContains(t, c,
		"static int64_t i;",
		"int64_t __sc_end0 = ((int64_t)n * 2);",
		"while (__sc_i0 < __sc_end0) {",
		"float __sc_v = (float)i;",
	)
}

func TestDeclaredLoopVariable(t *testing.T) {
	src := "data k: f32\nfor k = 1 : 3 { }"
	assertContains(t, mustGenerate(t, src, codegen.TargetRust), "k = (__sc_i0 as f32);")
	assertContains(t, mustGenerate(t, src, codegen.TargetC), "k = (float)__sc_i0;")
}

func TestIntegerDivision(t *testing.T) {
	src := "data a: f32[8]\na[7 / 2] = 1\na[9 % 4] = 2"
	rust := mustGenerate(t, src, codegen.TargetRust)
	assertContains(t, rust, "let __sc_k: i64 = (7 / 2);", "let __sc_k: i64 = (9 % 4);")
	c := mustGenerate(t, src, codegen.TargetC)
	assertContains(t, c, "int64_t __sc_k = sc_idiv(7, 2);", "int64_t __sc_k = sc_imod(9, 4);")

	// Rust, C and the interpreter all truncate toward zero.
	prog, _ := parser.Parse(src+"\na[(0 - 7) / 2 + 6] = 3", "gen.sc")
	res, err := compute.Execute(context.Background(), prog, compute.ExecOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Output[3] != 3 || res.Output[1] != 2 {
		t.Errorf("unexpected interpreter output %v", res.Output)
	}
}

func TestPrint(t *testing.T) {
	src := "data s: f32\nprint(s + 1)"
	assertContains(t, mustGenerate(t, src, codegen.TargetRust), `println!("{:.6}", (s + 1.0_f32));`)
	assertContains(t, mustGenerate(t, src, codegen.TargetC), "sc_print((s + 1.0f));", "static void sc_print(float v)")
}

func TestBuiltins(t *testing.T) {
	src := "data s: f32\ns = sqrt(s) + log(2) + s % 3"
	assertContains(t, mustGenerate(t, src, codegen.TargetRust), "s = (((s).sqrt() + (2.0_f32).ln()) + (s % 3.0_f32));")
	assertContains(t, mustGenerate(t, src, codegen.TargetC), "s = ((sqrtf(s) + logf(2.0f)) + fmodf(s, 3.0f));")
}

func TestReduce(t *testing.T) {
	src := "data a: f32[4]\ndata m: i32[2]\ndata s: f32\ns = reduce(+, a) + reduce(max, m) + reduce(+, a)"
	rust := mustGenerate(t, src, codegen.TargetRust)
	assertContains(t, rust,
		"a.iter().fold(0.0_f32, |acc, &v| acc + v)",
		"m.iter().fold(f32::MIN, |acc, &v| if (v as f32) > acc { (v as f32) } else { acc })",
	)

	c := mustGenerate(t, src, codegen.TargetC)
	assertContains(t, c,
		"static float sc_reduce_sum_f32(const float *a, int64_t n) {",
		"static float sc_reduce_max_i32(const int32_t *a, int64_t n) {",
		"float acc = -FLT_MAX;",
		"sc_reduce_sum_f32(a, 4)",
	)
	if n := strings.Count(c, "static float sc_reduce_sum_f32("); n != 1 {
		t.Errorf("helper emitted %d times", n)
	}
}

func TestReturnAtTopLevelHasNoEffect(t *testing.T) {
	out := mustGenerate(t, "return 3", codegen.TargetRust)
	assertContains(t, out, "// return (no effect at top level)")
	if strings.Contains(out, "return 3") {
		t.Error("top-level return should not be emitted as code")
	}
}

func TestIgnoredExpressionStatement(t *testing.T) {
	out := mustGenerate(t, "data a: f32[2]\nsqrt(2)\na[1]", codegen.TargetC)
	assertContains(t, out, "// ignored: sqrt(2)", "// ignored: a[1]")
}

func TestFunctions(t *testing.T) {
	src := `fn sq(x: f32) -> f32 {
    return x * x
}
fn total(v: f32[4], n: i32) -> f64 {
    data acc: f32
    for i = 0 : n {
        acc = acc + sq(v[i])
    }
    return acc
}
fn reset(flag: bool) {
    sq(1)
    return
}
data a: f32[4]`

	rust := mustGenerate(t, src, codegen.TargetRust)
	assertContains(t, rust,
		"fn sc_fn_sq(mut x: f32) -> f32 {",
		"return (x * x);",
		"fn sc_fn_total(mut v: [f32; 4], mut n: i32) -> f64 {",
		"let mut acc: f32 = 0.0_f32;",
		"let __sc_end0: i64 = (n as i64);",
		"acc = (acc + sc_fn_sq(v[sc_idx(i, v.len())]));",
		"return (acc as f64);",
		"fn sc_fn_reset(mut flag: bool) {",
		"sc_fn_sq(1.0_f32);",
		"return;",
	)
	if strings.Index(rust, "fn sc_fn_sq(") > strings.Index(rust, "fn main()") {
		t.Error("functions should precede main")
	}

	c := mustGenerate(t, src, codegen.TargetC)
	assertContains(t, c,
		"float sc_fn_sq(float x);",
		"double sc_fn_total(float v[4], int32_t n);",
		"void sc_fn_reset(bool flag);",
		"double sc_fn_total(float v[4], int32_t n) {",
		"float acc = 0.0f;",
		"int64_t i = 0;",
		"return (double)acc;",
	)
}

func TestNameEscaping(t *testing.T) {
	src := "data loop: f32\ndata int: f32\ndata sc_feq: f32\nloop = int + sc_feq"
	assertContains(t, mustGenerate(t, src, codegen.TargetRust), "r#loop = (int + sc_feq_);")
	assertContains(t, mustGenerate(t, src, codegen.TargetC), "loop = (int_ + sc_feq_);")
}

func TestFunctionsAndVariablesDoNotCollide(t *testing.T) {
	src := "fn f() {}\nfn main() -> f32 { return 1 }\ndata f: f32\ndata sc_fn_f: f32\nf = sc_fn_f"

	c := mustGenerate(t, src, codegen.TargetC)
	assertContains(t, c, "static float f;", "static float sc_fn_f_;", "void sc_fn_f(void);", "float sc_fn_main(void) {", "f = sc_fn_f_;")

	rust := mustGenerate(t, src, codegen.TargetRust)
	assertContains(t, rust, "fn sc_fn_f() {", "fn sc_fn_main() -> f32 {", "let mut f: f32 = 0.0_f32;", "f = sc_fn_f_;")
}

func TestLargeRustArraysLiveOnTheHeap(t *testing.T) {
	src := `fn head(v: f32[100000]) -> f32 {
    return v[0]
}
data big: f32[100000]
data small: f32[8]
data s: f32
big[1] = 2
s = reduce(+, big)`

	rust := mustGenerate(t, src, codegen.TargetRust)
	assertContains(t, rust,
		"fn sc_fn_head(mut v: Vec<f32>) -> f32 {",
		"let mut big: Vec<f32> = vec![0.0_f32; 100000];",
		"let mut small: [f32; 8] = [0.0_f32; 8];",
		"(__sc_k as usize) < big.len() {",
		"big.iter().fold(0.0_f32,",
	)

	c := mustGenerate(t, src, codegen.TargetC)
	assertContains(t, c, "static float big[100000];")
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		target  codegen.Target
		message string
	}{
		{"undefined variable", "data s: f32\ns = y", codegen.TargetRust, "Undefined variable: y"},
		{"undefined target", "q = 1", codegen.TargetC, "Undefined variable: q"},
		{"unknown function", "data s: f32\ns = tan(s)", codegen.TargetRust, "Unknown function: tan"},
		{"top-level user call", "fn f() -> f32 { return 1 }\ndata s: f32\ns = f()", codegen.TargetC, "Unknown function: f"},
		{"string literal", "print(\"x\")", codegen.TargetRust, "Unsupported expression"},
		{"int context", "data a: f32[2]\na[1 < 2] = 0", codegen.TargetC, "Expected integer expression"},
		{"reduce target", "data a: f32[2]\ndata s: f32\ns = reduce(+, a[0])", codegen.TargetRust, "Reduce requires array identifier"},
		{"zero length C array", "data a: f32[0]", codegen.TargetC, "zero-length array a"},
		{"array return", "fn f() -> f32[2] { }", codegen.TargetRust, "cannot return an array"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog, diags := parser.Parse(tt.src, "err.sc")
			if len(diags) > 0 {
				t.Fatalf("parse error: %s", diags[0].Message)
			}
			_, err := codegen.Generate(prog, tt.target)
			var cerr *codegen.Error
			if !errors.As(err, &cerr) {
				t.Fatalf("expected *codegen.Error, got %v", err)
			}
			if cerr.Code != diagnostics.ECodegen {
				t.Errorf("code = %s", cerr.Code)
			}
			if !strings.Contains(cerr.Message, tt.message) {
				t.Errorf("message %q does not contain %q", cerr.Message, tt.message)
			}
		})
	}
}

func TestParseTarget(t *testing.T) {
	tests := map[string]codegen.Target{
		"--rust": codegen.TargetRust, "-r": codegen.TargetRust, "rust": codegen.TargetRust,
		"--c": codegen.TargetC, "-c": codegen.TargetC, "c": codegen.TargetC,
	}
	for in, want := range tests {
		got, err := codegen.ParseTarget(in)
		if err != nil || got != want {
			t.Errorf("ParseTarget(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := codegen.ParseTarget("--asm"); err == nil {
		t.Error("asm is not a codegen target")
	}
	if codegen.TargetC.Suffix() != "_generated.c" || codegen.TargetRust.Suffix() != "_generated.rs" {
		t.Error("unexpected suffixes")
	}
}
