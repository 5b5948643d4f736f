package runtime_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/compute"
	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/diagnostics"
	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/runtime"
)

const program = `data out: f32[4]
data s: f32
for i = 0 : 4 {
    out[i] = i * 2
}
s = reduce(+, out)
print(s)`

func TestRun(t *testing.T) {
	var stdout bytes.Buffer
	rt := runtime.New(runtime.WithStdout(&stdout))
	res, err := rt.Run(context.Background(), program, "prog.sc")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := []float32{0, 2, 4, 6}
	if len(res.Output) != len(want) {
		t.Fatalf("output = %v", res.Output)
	}
	for i := range want {
		if res.Output[i] != want[i] {
			t.Errorf("output[%d] = %v, want %v", i, res.Output[i], want[i])
		}
	}
	if !res.Success {
		t.Error("expected success")
	}
	if got := stdout.String(); got != "12.000000\n" {
		t.Errorf("stdout = %q", got)
	}
}

func TestRunErrors(t *testing.T) {
	rt := runtime.New()

	_, err := rt.Run(context.Background(), "data a: f32[", "bad.sc")
	var derr *runtime.DiagnosticError
	if !errors.As(err, &derr) {
		t.Fatalf("expected *DiagnosticError, got %v", err)
	}
	if derr.Diagnostics[0].Code != diagnostics.EParse {
		t.Errorf("code = %s", derr.Diagnostics[0].Code)
	}

	_, err = rt.Run(context.Background(), "data a: f32[2]\ndata s: f32\ns = a[5]", "oob.sc")
	var rerr *compute.RuntimeError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *compute.RuntimeError, got %v", err)
	}
	if rerr.Code != diagnostics.EBounds {
		t.Errorf("code = %s", rerr.Code)
	}
}

func TestStrictValidatesFirst(t *testing.T) {
	src := "data s: f32\nif 0 {\n    s = y\n}"
	if _, err := runtime.New().Run(context.Background(), src, "lazy.sc"); err != nil {
		t.Fatalf("untaken branch should run: %v", err)
	}

	_, err := runtime.New(runtime.WithStrict()).Run(context.Background(), src, "lazy.sc")
	var derr *runtime.DiagnosticError
	if !errors.As(err, &derr) {
		t.Fatalf("expected *DiagnosticError, got %v", err)
	}
	if derr.Diagnostics[0].Code != diagnostics.EUndefined {
		t.Errorf("code = %s", derr.Diagnostics[0].Code)
	}
}

func TestOptions(t *testing.T) {
	var events []compute.TraceEvent
	rt := runtime.New(
		runtime.WithPreference(compute.PreferCpu),
		runtime.WithAvailable(compute.PureCpu, compute.AsmSimd),
		runtime.WithRunID("run-7"),
		runtime.WithTrace(func(ev compute.TraceEvent) { events = append(events, ev) }),
	)
	res, err := rt.Run(context.Background(), program, "prog.sc")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Backend != compute.PureCpu {
		t.Errorf("backend = %v", res.Backend)
	}
	if len(events) == 0 {
		t.Fatal("no trace events")
	}
	if events[0].Event != compute.TraceRunStart || events[0].RunID != "run-7" {
		t.Errorf("first event = %+v", events[0])
	}
}

func TestMaxIterations(t *testing.T) {
	rt := runtime.New(runtime.WithMaxIterations(3))
	_, err := rt.Run(context.Background(), program, "prog.sc")
	var rerr *compute.RuntimeError
	if !errors.As(err, &rerr) || rerr.Code != diagnostics.EBudget {
		t.Fatalf("expected E_BUDGET, got %v", err)
	}

	// non-positive caps are ignored
	if _, err := runtime.New(runtime.WithMaxIterations(0)).Run(context.Background(), program, "prog.sc"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCheck(t *testing.T) {
	rt := runtime.New()
	if diags := rt.Check(program, "prog.sc"); len(diags) != 0 {
		t.Errorf("unexpected diagnostics: %v", diags)
	}
	diags := rt.Check("data s: f32\ns = q", "bad.sc")
	if len(diags) != 1 || diags[0].Code != diagnostics.EUndefined {
		t.Errorf("diagnostics = %v", diags)
	}
	diags = rt.Check("for", "bad.sc")
	if len(diags) != 1 || diags[0].Code != diagnostics.EParse {
		t.Errorf("diagnostics = %v", diags)
	}
}

func TestFormat(t *testing.T) {
	out, err := runtime.New().Format("data   x:f32[2]\nx[0]=1+2", "f.sc")
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	if want := "data x: f32[2]\nx[0] = 1 + 2\n"; out != want {
		t.Errorf("got %q, want %q", out, want)
	}
	if _, err := runtime.New().Format("x = (", "f.sc"); err == nil {
		t.Error("expected parse error")
	}
}

func TestEmit(t *testing.T) {
	rt := runtime.New()
	tests := []struct {
		target runtime.Target
		want   string
	}{
		{runtime.TargetRust, "fn main() {"},
		{runtime.TargetC, "int main(void) {"},
		{runtime.TargetAsm, "default rel"},
	}
	for _, tt := range tests {
		t.Run(string(tt.target), func(t *testing.T) {
			out, err := rt.Emit(program, "prog.sc", tt.target)
			if err != nil {
				t.Fatalf("emit: %v", err)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("output does not contain %q", tt.want)
			}
		})
	}
	if _, err := rt.Emit(program, "prog.sc", runtime.Target("wasm")); err == nil {
		t.Error("expected unknown target error")
	}
}

func TestBuild(t *testing.T) {
	rt := runtime.New()
	res, err := rt.Build(program, "examples/prog.sc")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(res.Artifacts) != 2 || len(res.Warnings) != 0 {
		t.Fatalf("artifacts = %d, warnings = %v", len(res.Artifacts), res.Warnings)
	}
	if res.Artifacts[0].Path != "examples/prog_generated.rs" || res.Artifacts[1].Path != "examples/prog_generated.c" {
		t.Errorf("paths = %s, %s", res.Artifacts[0].Path, res.Artifacts[1].Path)
	}

	// C cannot declare a zero-length array; the Rust file is still produced
	res, err = rt.Build("data a: f32[0]", "empty.sc")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(res.Artifacts) != 1 || res.Artifacts[0].Target != runtime.TargetRust {
		t.Errorf("artifacts = %+v", res.Artifacts)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "zero-length") {
		t.Errorf("warnings = %v", res.Warnings)
	}

	if _, err := rt.Build("data s: f32\ns = y", "bad.sc"); err == nil {
		t.Error("expected Rust generation error")
	}
}

func TestParseTarget(t *testing.T) {
	tests := map[string]runtime.Target{
		"--rust": runtime.TargetRust, "-r": runtime.TargetRust, "rust": runtime.TargetRust,
		"--c": runtime.TargetC, "-c": runtime.TargetC, "c": runtime.TargetC,
		"--asm": runtime.TargetAsm, "-a": runtime.TargetAsm, "asm": runtime.TargetAsm,
	}
	for in, want := range tests {
		got, err := runtime.ParseTarget(in)
		if err != nil || got != want {
			t.Errorf("ParseTarget(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := runtime.ParseTarget("--wasm"); err == nil {
		t.Error("expected error")
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		in     string
		target runtime.Target
		want   string
	}{
		{"prog.sc", runtime.TargetRust, "prog_generated.rs"},
		{"dir/prog.sc", runtime.TargetC, "dir/prog_generated.c"},
		{"noext", runtime.TargetAsm, "noext_generated.asm"},
		{"-", runtime.TargetRust, "stdin_generated.rs"},
	}
	for _, tt := range tests {
		if got := runtime.OutputPath(tt.in, tt.target); got != tt.want {
			t.Errorf("OutputPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
