// Package compute implements the SuperC compute engine: workload analysis,
// backend selection and a tree-walking interpreter over float32 values.
package compute

import (
	"context"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/ast"
	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/diagnostics"
	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/parser"
	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/stdlib"
)

// ExecOptions configures program execution.
type ExecOptions struct {
	Preference Preference
	// Available overrides backend detection; nil means DetectBackends().
	Available []Backend
	Stdlib    *stdlib.Registry
	Stdout    io.Writer
	Trace     func(event TraceEvent)
	RunID     string
	Budget    Budget
}

// RuntimeError represents an error raised while executing a program. The
// whole execution is abandoned; there is no partial result.
type RuntimeError struct {
	Code    string
	Message string
	Span    *ast.Span
}

func (e *RuntimeError) Error() string {
	return e.Message
}

// Diagnostic converts the error for display.
func (e *RuntimeError) Diagnostic() diagnostics.Diagnostic {
	return diagnostics.MakeDiag(e.Code, e.Message, e.Span, "")
}

func runtimeErr(code string, span ast.Span, format string, args ...any) *RuntimeError {
	return &RuntimeError{Code: code, Message: fmt.Sprintf(format, args...), Span: &span}
}

type evaluator struct {
	ctx     context.Context
	opts    ExecOptions
	env     *Env
	fns     *stdlib.Registry
	budget  Budget
	tracker BudgetTracker
}

// ExecuteSource parses source and executes it. Parse failures are returned as
// a *RuntimeError with code E_PARSE.
func ExecuteSource(ctx context.Context, source, filename string, opts ExecOptions) (*Result, error) {
	prog, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		d := diags[0]
		return nil, &RuntimeError{Code: d.Code, Message: d.Message, Span: d.Span}
	}
	return Execute(ctx, prog, opts)
}

// Execute selects a backend for program and runs its top-level statements.
// Output is the first array in declaration order.
func Execute(ctx context.Context, program *ast.Program, opts ExecOptions) (*Result, error) {
	available := opts.Available
	if available == nil {
		available = DetectBackends()
	}
	fns := opts.Stdlib
	if fns == nil {
		fns = stdlib.Default()
	}
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ev := &evaluator{
		ctx:     ctx,
		opts:    opts,
		env:     NewEnv(),
		fns:     fns,
		budget:  opts.Budget,
		tracker: BudgetTracker{StartHires: hiresNow()},
	}

	workload := AnalyzeWorkload(program)
	backend := SelectBackend(opts.Preference, available, workload)

	span := program.Span
	ev.emit(TraceRunStart, backend, &span)
	ev.emitWithData(TraceBackendSelected, backend, nil, map[string]string{
		"preference": opts.Preference.String(),
		"workload":   strconv.Itoa(workload),
		"name":       backend.DisplayName(),
	})

	for _, stmt := range program.Statements {
		if decl, ok := stmt.(*ast.DataDecl); ok {
			if err := ev.declare(decl); err != nil {
				return nil, err
			}
		}
	}

	start := hiresNow()
	err := ev.executeBlock(program.Statements, backend)
	elapsed := hiresSinceUs(start)

	ev.emitWithData(TraceRunEnd, backend, &span, map[string]string{
		"success": strconv.FormatBool(err == nil),
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		Backend:         backend,
		ExecutionTimeUs: elapsed,
		Success:         true,
		Output:          ev.env.FirstArray(),
	}, nil
}

func (ev *evaluator) checkBudget(span ast.Span, backend Backend) error {
	if err := ev.ctx.Err(); err != nil {
		return runtimeErr(diagnostics.ECancelled, span, "execution cancelled: %v", err)
	}
	if ev.budget.TimeMs != nil && hiresSinceMs(ev.tracker.StartHires) >= *ev.budget.TimeMs {
		ev.emit(TraceBudgetExceeded, backend, &span)
		return runtimeErr(diagnostics.EBudget, span, "time budget exceeded (%dms)", *ev.budget.TimeMs)
	}
	return nil
}

func (ev *evaluator) checkIterationBudget(span ast.Span, backend Backend) error {
	if ev.budget.MaxIterations == nil {
		return nil
	}
	ev.tracker.Iterations++
	if ev.tracker.Iterations > *ev.budget.MaxIterations {
		ev.emit(TraceBudgetExceeded, backend, &span)
		return runtimeErr(diagnostics.EBudget, span, "iteration budget exceeded (max %d)", *ev.budget.MaxIterations)
	}
	return nil
}

func (ev *evaluator) executeBlock(stmts []ast.Stmt, backend Backend) error {
	for _, stmt := range stmts {
		span := stmt.NodeSpan()
		if err := ev.checkBudget(span, backend); err != nil {
			return err
		}
		ev.emit(TraceStmtStart, backend, &span)
		if err := ev.executeStmt(stmt, backend); err != nil {
			return err
		}
		ev.emit(TraceStmtEnd, backend, &span)
	}
	return nil
}

// declare binds decl unless its array size is out of range.
func (ev *evaluator) declare(decl *ast.DataDecl) error {
	if t := decl.Type; t.IsArray() && (t.Size < 0 || t.Size > ast.MaxArraySize) {
		return runtimeErr(diagnostics.EBudget, decl.Span, "Array size %d exceeds limit %d", t.Size, ast.MaxArraySize)
	}
	ev.env.Declare(decl.Name, decl.Type)
	return nil
}

func (ev *evaluator) executeStmt(stmt ast.Stmt, backend Backend) error {
	switch s := stmt.(type) {
	case *ast.DataDecl:
		// Top-level declarations are bound before execution; nested ones bind
		// on first execution.
		return ev.declare(s)

	case *ast.AssignStmt:
		return ev.executeAssign(s, backend)

	case *ast.ExecBlock:
		return ev.executeBlock(s.Body, backend)

	case *ast.ForStmt:
		return ev.executeFor(s, backend)

	case *ast.IfStmt:
		cond, err := ev.evalExpr(s.Cond, backend)
		if err != nil {
			return err
		}
		if cond != 0 {
			return ev.executeBlock(s.Then, backend)
		}
		return ev.executeBlock(s.Else, backend)

	case *ast.ExprStmt:
		call, ok := s.Expr.(*ast.CallExpr)
		if !ok || call.Name != "print" {
			return nil
		}
		return ev.executePrint(call, backend)

	case *ast.ReturnStmt:
		return nil
	}
	return runtimeErr(diagnostics.EType, stmt.NodeSpan(), "unsupported statement: %s", stmt.Kind())
}

func (ev *evaluator) executeAssign(s *ast.AssignStmt, backend Backend) error {
	val, err := ev.evalExpr(s.Value, backend)
	if err != nil {
		return err
	}

	if s.Index == nil {
		switch {
		case ev.env.IsScalar(s.Target):
			ev.env.SetScalar(s.Target, val)
			return nil
		case ev.env.IsArray(s.Target):
			return runtimeErr(diagnostics.EType, s.Span, "Cannot assign a scalar to array: %s", s.Target)
		}
		return runtimeErr(diagnostics.EUndefined, s.Span, "Undefined variable: %s", s.Target)
	}

	idx, err := ev.evalInt(s.Index)
	if err != nil {
		return err
	}
	switch {
	case ev.env.IsArray(s.Target):
		ev.env.SetElem(s.Target, idx, val)
		return nil
	case ev.env.IsScalar(s.Target):
		return runtimeErr(diagnostics.EType, s.Span, "Cannot index scalar: %s", s.Target)
	}
	return runtimeErr(diagnostics.EUndefined, s.Span, "Undefined variable: %s", s.Target)
}

func (ev *evaluator) executeFor(s *ast.ForStmt, backend Backend) error {
	from, err := ev.evalInt(s.Start)
	if err != nil {
		return err
	}
	to, err := ev.evalInt(s.End)
	if err != nil {
		return err
	}
	if ev.env.IsArray(s.Var) {
		return runtimeErr(diagnostics.EType, s.Span, "Loop variable is an array: %s", s.Var)
	}

	span := s.Span
	ev.emitWithData(TraceForStart, backend, &span, map[string]string{
		"var":   s.Var,
		"start": strconv.FormatInt(from, 10),
		"end":   strconv.FormatInt(to, 10),
	})

	if backend == AsmSimd {
		err = ev.executeSimdLoop(s, from, to)
	} else {
		err = ev.executeLoop(s, from, to, backend)
	}
	if err != nil {
		return err
	}

	ev.emit(TraceForEnd, backend, &span)
	return nil
}

func (ev *evaluator) executeLoop(s *ast.ForStmt, from, to int64, backend Backend) error {
	for i := from; i < to; i++ {
		if err := ev.checkBudget(s.Span, backend); err != nil {
			return err
		}
		if err := ev.checkIterationBudget(s.Span, backend); err != nil {
			return err
		}
		ev.env.SetScalar(s.Var, float32(i))
		if err := ev.executeBlock(s.Body, backend); err != nil {
			return err
		}
	}
	return nil
}

// executeSimdLoop is where vectorized execution of elementwise loops would
// go. It runs the body sequentially under the PureCpu label.
func (ev *evaluator) executeSimdLoop(s *ast.ForStmt, from, to int64) error {
	return ev.executeLoop(s, from, to, PureCpu)
}

func (ev *evaluator) executePrint(call *ast.CallExpr, backend Backend) error {
	if len(call.Args) != 1 {
		return runtimeErr(diagnostics.EArity, call.Span, "print expects 1 argument, got %d", len(call.Args))
	}
	v, err := ev.evalExpr(call.Args[0], backend)
	if err != nil {
		return err
	}
	text := FormatValue(v)
	ev.emitWithData(TracePrint, backend, &call.Span, map[string]string{"value": text})
	_, err = fmt.Fprintln(ev.opts.Stdout, text)
	return err
}

// FormatValue renders v with six decimal places, spelling non-finite values
// as NaN, inf and -inf.
func FormatValue(v float32) string {
	f := float64(v)
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	return strconv.FormatFloat(f, 'f', 6, 32)
}
