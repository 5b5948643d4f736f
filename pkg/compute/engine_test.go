package compute_test

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/ast"
	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/compute"
	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/diagnostics"
	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/parser"
)

// --- helpers ---

// runWith parses and executes source with custom ExecOptions.
func runWith(t *testing.T, src string, opts compute.ExecOptions) (*compute.Result, error) {
	t.Helper()
	prog, diags := parser.Parse(src, "test.sc")
	if len(diags) > 0 {
		t.Fatalf("parse errors: %s", diagnostics.FormatDiagnostics(diags, true))
	}
	return compute.Execute(context.Background(), prog, opts)
}

func mustRun(t *testing.T, src string) *compute.Result {
	t.Helper()
	res, err := runWith(t, src, compute.ExecOptions{})
	if err != nil {
		t.Fatalf("unexpected runtime error: %v", err)
	}
	return res
}

// evalFloat evaluates expr by storing it in a one-element output array.
func evalFloat(t *testing.T, decls, expr string) float32 {
	t.Helper()
	res := mustRun(t, "data out: f32[1]\n"+decls+"\nout[0] = "+expr)
	return res.Output[0]
}

// expectError runs src and asserts a *RuntimeError with the given code.
func expectError(t *testing.T, src, code string) *compute.RuntimeError {
	t.Helper()
	res, err := runWith(t, src, compute.ExecOptions{})
	if err == nil {
		t.Fatalf("expected %s error, got result %+v", code, res)
	}
	if res != nil {
		t.Errorf("expected no result on error, got %+v", res)
	}
	var rerr *compute.RuntimeError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *RuntimeError, got %T: %v", err, err)
	}
	if rerr.Code != code {
		t.Errorf("expected code %s, got %s (%s)", code, rerr.Code, rerr.Message)
	}
	return rerr
}

// --- Expressions ---

func TestFloatExpressions(t *testing.T) {
	tests := []struct {
		expr string
		want float32
	}{
		{"1 + 2 * 3", 7},
		{"(1 + 2) * 3", 9},
		{"7 / 2", 3.5},
		{"7 % 3", 1},
		{"-7.5 % 2", -1.5},
		{"-3 + 1", -2},
		{"2.5 * 4", 10},
		{"true", 1},
		{"false", 0},
		{"!0", 1},
		{"!5", 0},
		{"3 > 2", 1},
		{"3 < 2", 0},
		{"2 <= 2", 1},
		{"2 >= 3", 0},
		{"1 == 1", 1},
		{"0.1 + 0.2 == 0.3", 1},
		{"1 != 1.5", 1},
		{"2 && 0", 0},
		{"2 && -1", 1},
		{"0 || 0", 0},
		{"0 || 0.5", 1},
		{"sqrt(16)", 4},
		{"exp(0)", 1},
		{"cos(0)", 1},
		{"sin(0)", 0},
		{"log(1)", 0},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			if got := evalFloat(t, "", tt.expr); got != tt.want {
				t.Errorf("%s = %g, want %g", tt.expr, got, tt.want)
			}
		})
	}
}

func TestDivisionByZeroIsIEEE(t *testing.T) {
	if got := evalFloat(t, "", "1 / 0"); !math.IsInf(float64(got), 1) {
		t.Errorf("1 / 0 = %g, want +Inf", got)
	}
}

func TestScalarsAndArrays(t *testing.T) {
	got := evalFloat(t, "data s: f32\ndata a: f32[3]\ns = 2\na[1] = s * 3", "a[1] + s")
	if got != 8 {
		t.Errorf("got %g, want 8", got)
	}
}

func TestDeclaredTypesAreFloatsAtRuntime(t *testing.T) {
	got := evalFloat(t, "data n: i32\nn = 7 / 2", "n")
	if got != 3.5 {
		t.Errorf("got %g, want 3.5", got)
	}
}

// --- Reductions ---

func TestReduce(t *testing.T) {
	decls := "data arr: f32[4]\narr[0] = 1\narr[1] = 2\narr[2] = 3\narr[3] = 4"
	tests := []struct {
		op   string
		want float32
	}{
		{"+", 10},
		{"*", 24},
		{"max", 4},
		{"min", 1},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			if got := evalFloat(t, decls, "reduce("+tt.op+", arr)"); got != tt.want {
				t.Errorf("reduce(%s) = %g, want %g", tt.op, got, tt.want)
			}
		})
	}
}

func TestReduceRequiresIdentifier(t *testing.T) {
	src := "data a: f32[2]\ndata s: f32\ns = reduce(+, a[0])"
	err := expectError(t, src, diagnostics.EReduce)
	if err.Message != "Reduce requires array identifier" {
		t.Errorf("unexpected message %q", err.Message)
	}
}

func TestReduceOverScalar(t *testing.T) {
	expectError(t, "data a: f32[1]\ndata s: f32\ns = reduce(+, s)", diagnostics.EReduce)
}

// --- Statements ---

func TestForLoopFillsArray(t *testing.T) {
	res := mustRun(t, "data a: f32[5]\nfor i = 0 : 5 {\n  a[i] = i * i\n}")
	want := []float32{0, 1, 4, 9, 16}
	for i, w := range want {
		if res.Output[i] != w {
			t.Errorf("a[%d] = %g, want %g", i, res.Output[i], w)
		}
	}
}

func TestForLoopBoundsUseIntegerContext(t *testing.T) {
	res := mustRun(t, "data a: f32[4]\ndata n: f32\nn = 2.9\nfor i = 0 : n * 2 {\n  a[i] = 1\n}")
	// n truncates to 2 before multiplying
	want := []float32{1, 1, 1, 1}
	for i, w := range want {
		if res.Output[i] != w {
			t.Errorf("a[%d] = %g, want %g", i, res.Output[i], w)
		}
	}
}

func TestLoopVariableIsImplicitScalar(t *testing.T) {
	got := evalFloat(t, "for k = 0 : 3 { }", "k")
	if got != 2 {
		t.Errorf("k after loop = %g, want 2", got)
	}
}

func TestEmptyRangeSkipsBody(t *testing.T) {
	res := mustRun(t, "data a: f32[1]\nfor i = 5 : 2 {\n  a[0] = 1\n}")
	if res.Output[0] != 0 {
		t.Errorf("body should not run, got %g", res.Output[0])
	}
}

func TestIfElse(t *testing.T) {
	tests := []struct {
		cond string
		want float32
	}{
		{"1", 1},
		{"0", 2},
		{"-0.5", 1},
		{"2 > 3", 2},
	}
	for _, tt := range tests {
		t.Run(tt.cond, func(t *testing.T) {
			got := evalFloat(t, "data r: f32\nif "+tt.cond+" { r = 1 } else { r = 2 }", "r")
			if got != tt.want {
				t.Errorf("got %g, want %g", got, tt.want)
			}
		})
	}
}

func TestExecBlockRunsBody(t *testing.T) {
	for _, kw := range []string{"parallel", "seq", "gpu", "asm"} {
		got := evalFloat(t, "data r: f32\n"+kw+" { r = 3 }", "r")
		if got != 3 {
			t.Errorf("%s block: got %g, want 3", kw, got)
		}
	}
}

func TestReturnHasNoEffect(t *testing.T) {
	got := evalFloat(t, "data r: f32\nreturn 5\nr = 1", "r")
	if got != 1 {
		t.Errorf("statements after return should run, got %g", got)
	}
}

func TestNestedDeclaration(t *testing.T) {
	got := evalFloat(t, "seq {\n  data t: f32\n  t = 4\n}", "t")
	if got != 4 {
		t.Errorf("got %g, want 4", got)
	}
}

func TestOversizedArrayIsAnError(t *testing.T) {
	huge := ast.ArrayOf(ast.F32, 1<<62)
	tests := []struct {
		name string
		prog *ast.Program
	}{
		{"top level", &ast.Program{Statements: []ast.Stmt{
			&ast.DataDecl{Name: "x", Type: huge},
		}}},
		{"nested", &ast.Program{Statements: []ast.Stmt{
			&ast.ExecBlock{Target: ast.TargetSeq, Body: []ast.Stmt{&ast.DataDecl{Name: "x", Type: huge}}},
		}}},
		{"negative", &ast.Program{Statements: []ast.Stmt{
			&ast.DataDecl{Name: "x", Type: ast.ArrayOf(ast.F32, -1)},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compute.Execute(context.Background(), tt.prog, compute.ExecOptions{})
			var rerr *compute.RuntimeError
			if !errors.As(err, &rerr) || rerr.Code != diagnostics.EBudget {
				t.Fatalf("expected E_BUDGET, got %v", err)
			}
			if !strings.Contains(rerr.Message, "exceeds limit") {
				t.Errorf("message = %q", rerr.Message)
			}
		})
	}
}

func TestRedeclarationKeepsValue(t *testing.T) {
	got := evalFloat(t, "data t: f32\nt = 9\nfor i = 0 : 2 {\n  data t: f32\n}", "t")
	if got != 9 {
		t.Errorf("got %g, want 9", got)
	}
}

func TestOutOfRangeWriteIsDropped(t *testing.T) {
	res := mustRun(t, "data a: f32[2]\na[5] = 1\na[0 - 1] = 2")
	if res.Output[0] != 0 || res.Output[1] != 0 {
		t.Errorf("out of range writes leaked: %v", res.Output)
	}
}

// --- print ---

func TestPrint(t *testing.T) {
	var out bytes.Buffer
	_, err := runWith(t, "data x: f32\nx = 1 + 2 * 3\nprint(x)\nprint(1 / 3)\nprint(0 - 1 / 0)",
		compute.ExecOptions{Stdout: &out})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "7.000000\n0.333333\n-inf\n"
	if out.String() != want {
		t.Errorf("got %q, want %q", out.String(), want)
	}
}

func TestOnlyPrintCallsHaveEffect(t *testing.T) {
	var out bytes.Buffer
	_, err := runWith(t, "sqrt(undefined)\nfoo(1)\nx\nprint(2)", compute.ExecOptions{Stdout: &out})
	if err != nil {
		t.Fatalf("non-print expression statements should be ignored, got %v", err)
	}
	if out.String() != "2.000000\n" {
		t.Errorf("got %q", out.String())
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		v    float32
		want string
	}{
		{0, "0.000000"},
		{2.5, "2.500000"},
		{-1.25, "-1.250000"},
		{float32(math.NaN()), "NaN"},
		{float32(math.Inf(1)), "inf"},
		{float32(math.Inf(-1)), "-inf"},
	}
	for _, tt := range tests {
		if got := compute.FormatValue(tt.v); got != tt.want {
			t.Errorf("FormatValue(%g) = %q, want %q", tt.v, got, tt.want)
		}
	}
}

// --- Errors ---

func TestRuntimeErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		code    string
		message string
	}{
		{"undefined in expression", "data a: f32[1]\na[0] = y + 1", diagnostics.EUndefined, "Undefined variable: y"},
		{"undefined assignment", "z = 1", diagnostics.EUndefined, "Undefined variable: z"},
		{"undefined array write", "q[0] = 1", diagnostics.EUndefined, "Undefined variable: q"},
		{"out of range read", "data a: f32[2]\ndata s: f32\ns = a[2]", diagnostics.EBounds, "Array access error: a[2]"},
		{"negative read", "data a: f32[2]\ndata s: f32\ns = a[0 - 1]", diagnostics.EBounds, "Array access error: a[-1]"},
		{"unknown function", "data s: f32\ns = tan(1)", diagnostics.EUnknownFn, "Unknown function: tan"},
		{"user function call", "fn f() -> f32 { return 1 }\ndata s: f32\ns = f()", diagnostics.EUnknownFn, "Unknown function: f"},
		{"print in expression", "data s: f32\ns = print(1)", diagnostics.EUnknownFn, "Unknown function: print"},
		{"builtin arity", "data s: f32\ns = sqrt(1, 2)", diagnostics.EArity, "sqrt expects 1 argument(s), got 2"},
		{"print arity", "print(1, 2)", diagnostics.EArity, "print expects 1 argument, got 2"},
		{"comparison in index", "data a: f32[2]\na[1 < 2] = 1", diagnostics.EIntContext, "Expected integer expression"},
		{"float literal bound", "for i = 0 : 2.5 { }", diagnostics.EIntContext, "Expected integer expression"},
		{"integer modulo by zero", "data a: f32[2]\na[1 % 0] = 1", diagnostics.EDivZero, "integer division by zero"},
		{"array as scalar", "data a: f32[2]\ndata s: f32\ns = a + 1", diagnostics.EType, "Array used as a scalar: a"},
		{"scalar assigned to array", "data a: f32[2]\na = 1", diagnostics.EType, "Cannot assign a scalar to array: a"},
		{"index scalar", "data s: f32\ns[0] = 1", diagnostics.EType, "Cannot index scalar: s"},
		{"string value", "data s: f32\ns = \"hi\"", diagnostics.EType, "Unsupported expression"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := expectError(t, tt.src, tt.code)
			if !strings.HasPrefix(err.Message, tt.message) {
				t.Errorf("message = %q, want prefix %q", err.Message, tt.message)
			}
			if err.Span == nil {
				t.Error("expected a span")
			}
		})
	}
}

func TestErrorAbortsWithoutPartialOutput(t *testing.T) {
	var out bytes.Buffer
	res, err := runWith(t, "data a: f32[1]\na[0] = 1\nprint(1)\na[0] = missing", compute.ExecOptions{Stdout: &out})
	if err == nil || res != nil {
		t.Fatalf("expected error and nil result, got %v, %v", res, err)
	}
}

func TestExecuteSourceParseError(t *testing.T) {
	_, err := compute.ExecuteSource(context.Background(), "data x f32", "bad.sc", compute.ExecOptions{})
	var rerr *compute.RuntimeError
	if !errors.As(err, &rerr) || rerr.Code != diagnostics.EParse {
		t.Fatalf("expected E_PARSE, got %v", err)
	}
}

// --- Output contract ---

func TestOutputIsFirstDeclaredArray(t *testing.T) {
	res := mustRun(t, "data s: f32\ndata b: f32[2]\ndata a: f32[3]\nb[1] = 5\na[0] = 1")
	if len(res.Output) != 2 || res.Output[1] != 5 {
		t.Errorf("expected b as output, got %v", res.Output)
	}
	if !res.Success {
		t.Error("expected success")
	}
}

func TestNoArraysYieldsEmptyOutput(t *testing.T) {
	res := mustRun(t, "data s: f32\ns = 1")
	if res.Output == nil || len(res.Output) != 0 {
		t.Errorf("expected empty non-nil output, got %v", res.Output)
	}
	if !res.Success {
		t.Error("expected success")
	}
}

func TestExecutionIsIndependentPerCall(t *testing.T) {
	src := "data a: f32[1]\na[0] = a[0] + 1"
	for i := 0; i < 3; i++ {
		if got := mustRun(t, src).Output[0]; got != 1 {
			t.Fatalf("run %d: got %g, want 1", i, got)
		}
	}
}

// --- Budget and cancellation ---

func TestIterationBudget(t *testing.T) {
	opts := compute.ExecOptions{Budget: compute.Budget{MaxIterations: compute.Int64(10)}}
	if _, err := runWith(t, "for i = 0 : 10 { }", opts); err != nil {
		t.Fatalf("10 iterations should fit, got %v", err)
	}
	_, err := runWith(t, "for i = 0 : 11 { }", opts)
	var rerr *compute.RuntimeError
	if !errors.As(err, &rerr) || rerr.Code != diagnostics.EBudget {
		t.Fatalf("expected E_BUDGET, got %v", err)
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	prog, _ := parser.Parse("data s: f32\ns = 1", "test.sc")
	_, err := compute.Execute(ctx, prog, compute.ExecOptions{})
	var rerr *compute.RuntimeError
	if !errors.As(err, &rerr) || rerr.Code != diagnostics.ECancelled {
		t.Fatalf("expected E_CANCELLED, got %v", err)
	}
}

// --- Backend labels and tracing ---

func TestExecuteSelectsBackendFromWorkload(t *testing.T) {
	tests := []struct {
		src  string
		pref compute.Preference
		want compute.Backend
	}{
		{"data a: f32[5]", compute.PreferAuto, compute.PureCpu},
		{"data a: f32[5000]", compute.PreferAuto, compute.AsmSimd},
		{"data a: f32[200000]", compute.PreferAuto, compute.AsmSimd},
		{"data a: f32[5]", compute.PreferGpu, compute.HipCpu},
		{"data a: f32[5]", compute.PreferAsm, compute.AsmSimd},
		{"data a: f32[200000]", compute.PreferLowPower, compute.PureCpu},
	}
	for _, tt := range tests {
		res, err := runWith(t, tt.src, compute.ExecOptions{Preference: tt.pref})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Backend != tt.want {
			t.Errorf("%s with %s: got %s, want %s", tt.src, tt.pref, res.Backend, tt.want)
		}
	}
}

func TestTraceEvents(t *testing.T) {
	var events []compute.TraceEvent
	opts := compute.ExecOptions{
		RunID: "run-1",
		Trace: func(ev compute.TraceEvent) { events = append(events, ev) },
	}
	src := "data a: f32[2000]\nfor i = 0 : 2 {\n  a[i] = i\n}\nprint(reduce(+, a))"
	if _, err := runWith(t, src, opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if events[0].Event != compute.TraceRunStart || events[len(events)-1].Event != compute.TraceRunEnd {
		t.Fatalf("expected run_start ... run_end, got %s ... %s", events[0].Event, events[len(events)-1].Event)
	}
	counts := map[compute.TraceEventType]int{}
	var bodyBackends []string
	for _, ev := range events {
		counts[ev.Event]++
		if ev.RunID != "run-1" {
			t.Errorf("event %s has run id %q", ev.Event, ev.RunID)
		}
		if ev.Event == compute.TraceStmtStart && ev.Span != nil && ev.Span.StartLine == 3 {
			bodyBackends = append(bodyBackends, ev.Backend)
		}
	}
	for _, want := range []compute.TraceEventType{
		compute.TraceBackendSelected, compute.TraceForStart, compute.TraceForEnd,
		compute.TraceReduce, compute.TracePrint,
	} {
		if counts[want] != 1 {
			t.Errorf("expected one %s event, got %d", want, counts[want])
		}
	}
	// The loop body of an AsmSimd run executes under the PureCpu label.
	if len(bodyBackends) != 2 || bodyBackends[0] != "PureCpu" {
		t.Errorf("expected two PureCpu body statements, got %v", bodyBackends)
	}
}
