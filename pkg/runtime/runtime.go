// Package runtime provides the top-level SuperC orchestrator used by the CLI.
package runtime

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/asmgen"
	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/ast"
	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/codegen"
	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/compute"
	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/diagnostics"
	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/formatter"
	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/parser"
	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/stdlib"
	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/validator"
)

// Runtime wires together all SuperC components.
type Runtime struct {
	stdlib     *stdlib.Registry
	preference compute.Preference
	available  []compute.Backend
	stdout     io.Writer
	trace      func(event compute.TraceEvent)
	runID      string
	budget     compute.Budget
	strict     bool
}

// Option is a functional option for configuring the Runtime.
type Option func(*Runtime)

// WithStdlib sets the built-in registry.
func WithStdlib(r *stdlib.Registry) Option {
	return func(rt *Runtime) {
		rt.stdlib = r
	}
}

// WithPreference sets the backend preference.
func WithPreference(p compute.Preference) Option {
	return func(rt *Runtime) {
		rt.preference = p
	}
}

// WithAvailable overrides backend detection.
func WithAvailable(backends ...compute.Backend) Option {
	return func(rt *Runtime) {
		rt.available = backends
	}
}

// WithStdout sets the writer print output goes to.
func WithStdout(w io.Writer) Option {
	return func(rt *Runtime) {
		rt.stdout = w
	}
}

// WithRunID sets the run ID for trace events.
func WithRunID(id string) Option {
	return func(rt *Runtime) {
		rt.runID = id
	}
}

// WithTrace sets the trace callback.
func WithTrace(fn func(event compute.TraceEvent)) Option {
	return func(rt *Runtime) {
		rt.trace = fn
	}
}

// WithMaxIterations caps the total number of loop iterations. Zero or a
// negative value means no cap.
func WithMaxIterations(n int64) Option {
	return func(rt *Runtime) {
		if n > 0 {
			rt.budget.MaxIterations = compute.Int64(n)
		}
	}
}

// WithTimeBudget caps wall-clock execution time in milliseconds.
func WithTimeBudget(ms int64) Option {
	return func(rt *Runtime) {
		if ms > 0 {
			rt.budget.TimeMs = compute.Int64(ms)
		}
	}
}

// WithStrict makes Run validate the program before executing it.
func WithStrict() Option {
	return func(rt *Runtime) {
		rt.strict = true
	}
}

// New creates a new Runtime with the given options.
// By default all built-ins are registered and print output is discarded.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		stdlib: stdlib.Default(),
		stdout: io.Discard,
		runID:  "cli",
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

func (rt *Runtime) parse(source, filename string) (*ast.Program, error) {
	program, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return nil, &DiagnosticError{Diagnostics: diags}
	}
	return program, nil
}

// Run parses and executes a SuperC program. Parse failures and, in strict
// mode, validation failures are returned as *DiagnosticError; evaluation
// failures as *compute.RuntimeError.
func (rt *Runtime) Run(ctx context.Context, source, filename string) (*compute.Result, error) {
	program, err := rt.parse(source, filename)
	if err != nil {
		return nil, err
	}
	if rt.strict {
		if diags := validator.ValidateWith(program, rt.stdlib); len(diags) > 0 {
			return nil, &DiagnosticError{Diagnostics: diags}
		}
	}
	return compute.Execute(ctx, program, rt.execOptions())
}

// Check parses and validates a program without executing it.
func (rt *Runtime) Check(source, filename string) []diagnostics.Diagnostic {
	program, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return diags
	}
	return validator.ValidateWith(program, rt.stdlib)
}

// Format parses and formats a program.
func (rt *Runtime) Format(source, filename string) (string, error) {
	program, err := rt.parse(source, filename)
	if err != nil {
		return "", err
	}
	return formatter.Format(program), nil
}

// Emit translates a program into target source code.
func (rt *Runtime) Emit(source, filename string, target Target) (string, error) {
	program, err := rt.parse(source, filename)
	if err != nil {
		return "", err
	}
	return rt.emit(program, target)
}

func (rt *Runtime) emit(program *ast.Program, target Target) (string, error) {
	switch target {
	case TargetRust:
		return codegen.GenerateWith(program, codegen.TargetRust, rt.stdlib)
	case TargetC:
		return codegen.GenerateWith(program, codegen.TargetC, rt.stdlib)
	case TargetAsm:
		return asmgen.GenerateWith(program, rt.stdlib)
	}
	return "", fmt.Errorf("unknown emit target %q", target)
}

// Artifact is one generated file.
type Artifact struct {
	Target Target
	Path   string
	Source string
}

// BuildResult holds the artifacts of Build. Warnings carry the failures of
// best-effort targets.
type BuildResult struct {
	Artifacts []Artifact
	Warnings  []string
}

// Build generates the Rust translation and, best effort, the C one. A Rust
// failure fails the build; a C failure becomes a warning.
func (rt *Runtime) Build(source, filename string) (*BuildResult, error) {
	program, err := rt.parse(source, filename)
	if err != nil {
		return nil, err
	}

	res := &BuildResult{}
	rust, err := rt.emit(program, TargetRust)
	if err != nil {
		return nil, err
	}
	res.Artifacts = append(res.Artifacts, Artifact{Target: TargetRust, Path: OutputPath(filename, TargetRust), Source: rust})

	c, err := rt.emit(program, TargetC)
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("C generation skipped: %v", err))
		return res, nil
	}
	res.Artifacts = append(res.Artifacts, Artifact{Target: TargetC, Path: OutputPath(filename, TargetC), Source: c})
	return res, nil
}

func (rt *Runtime) execOptions() compute.ExecOptions {
	return compute.ExecOptions{
		Preference: rt.preference,
		Available:  rt.available,
		Stdlib:     rt.stdlib,
		Stdout:     rt.stdout,
		Trace:      rt.trace,
		RunID:      rt.runID,
		Budget:     rt.budget,
	}
}

// --- Targets ---

// Target names an emitter.
type Target string

const (
	TargetRust Target = "rust"
	TargetC    Target = "c"
	TargetAsm  Target = "asm"
)

// ParseTarget accepts --rust/-r/rust, --c/-c/c and --asm/-a/asm.
func ParseTarget(s string) (Target, error) {
	switch strings.ToLower(strings.TrimLeft(s, "-")) {
	case "rust", "r", "rs":
		return TargetRust, nil
	case "c":
		return TargetC, nil
	case "asm", "a", "nasm":
		return TargetAsm, nil
	}
	return "", fmt.Errorf("unknown emit target %q (want rust, c or asm)", s)
}

// Suffix is appended to the input base name for generated files.
func (t Target) Suffix() string {
	switch t {
	case TargetRust:
		return "_generated.rs"
	case TargetC:
		return "_generated.c"
	}
	return "_generated.asm"
}

// OutputPath derives the generated file path: dir/prog.sc becomes
// dir/prog_generated.rs. Standard input builds into the working directory.
func OutputPath(filename string, t Target) string {
	if filename == "" || filename == "-" || filename == "<stdin>" {
		return "stdin" + t.Suffix()
	}
	return strings.TrimSuffix(filename, filepath.Ext(filename)) + t.Suffix()
}

// DiagnosticError wraps diagnostics as an error.
type DiagnosticError struct {
	Diagnostics []diagnostics.Diagnostic
}

func (e *DiagnosticError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = fmt.Sprintf("%s: %s", d.Code, d.Message)
	}
	return strings.Join(msgs, "; ")
}
