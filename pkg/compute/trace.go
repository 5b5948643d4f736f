package compute

import (
	"time"

	"github.com/AndreeSalazar/Super-C-Runtime-Governed-by-Rust/pkg/ast"
)

// TraceEventType identifies the type of a trace event.
type TraceEventType string

const (
	TraceRunStart        TraceEventType = "run_start"
	TraceRunEnd          TraceEventType = "run_end"
	TraceBackendSelected TraceEventType = "backend_selected"
	TraceStmtStart       TraceEventType = "stmt_start"
	TraceStmtEnd         TraceEventType = "stmt_end"
	TraceForStart        TraceEventType = "for_start"
	TraceForEnd          TraceEventType = "for_end"
	TraceReduce          TraceEventType = "reduce"
	TracePrint           TraceEventType = "print"
	TraceBudgetExceeded  TraceEventType = "budget_exceeded"
)

// TraceEvent represents a single trace event emitted during execution.
type TraceEvent struct {
	Timestamp string            `json:"ts"`
	RunID     string            `json:"runId"`
	Event     TraceEventType    `json:"event"`
	Backend   string            `json:"backend"`
	Span      *ast.Span         `json:"span,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
}

func (ev *evaluator) emit(event TraceEventType, backend Backend, span *ast.Span) {
	ev.emitWithData(event, backend, span, nil)
}

func (ev *evaluator) emitWithData(event TraceEventType, backend Backend, span *ast.Span, data map[string]string) {
	if ev.opts.Trace == nil {
		return
	}
	ev.opts.Trace(TraceEvent{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		RunID:     ev.opts.RunID,
		Event:     event,
		Backend:   backend.String(),
		Span:      span,
		Data:      data,
	})
}
