package compute

import (
	"context"
	"io"
	"strconv"

	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/ast"
	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/parser"
	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/stdlib"
)

// Session runs program fragments against one environment that persists
// between calls, so declarations made by one fragment are visible to the
// next. Budgets apply per fragment.
type Session struct {
	opts ExecOptions
	env  *Env
	fns  *stdlib.Registry
}

// NewSession creates a session with an empty environment.
func NewSession(opts ExecOptions) *Session {
	if opts.Available == nil {
		opts.Available = DetectBackends()
	}
	if opts.Stdlib == nil {
		opts.Stdlib = stdlib.Default()
	}
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	return &Session{opts: opts, env: NewEnv(), fns: opts.Stdlib}
}

// Env exposes the session's variables.
func (s *Session) Env() *Env {
	return s.env
}

// Exec parses and runs one fragment. The backend is selected from the arrays
// the fragment declares. A failed fragment keeps whatever it changed before
// the error.
func (s *Session) Exec(ctx context.Context, source, filename string) (*Result, error) {
	prog, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		d := diags[0]
		return nil, &RuntimeError{Code: d.Code, Message: d.Message, Span: d.Span}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ev := &evaluator{
		ctx:     ctx,
		opts:    s.opts,
		env:     s.env,
		fns:     s.fns,
		budget:  s.opts.Budget,
		tracker: BudgetTracker{StartHires: hiresNow()},
	}
	workload := AnalyzeWorkload(prog)
	backend := SelectBackend(s.opts.Preference, s.opts.Available, workload)
	ev.emitWithData(TraceBackendSelected, backend, nil, map[string]string{
		"preference": s.opts.Preference.String(),
		"workload":   strconv.Itoa(workload),
		"name":       backend.DisplayName(),
	})

	for _, stmt := range prog.Statements {
		if decl, ok := stmt.(*ast.DataDecl); ok {
			if err := ev.declare(decl); err != nil {
				return nil, err
			}
		}
	}

	start := hiresNow()
	if err := ev.executeBlock(prog.Statements, backend); err != nil {
		return nil, err
	}
	return &Result{
		Backend:         backend,
		ExecutionTimeUs: hiresSinceUs(start),
		Success:         true,
		Output:          s.env.FirstArray(),
	}, nil
}
