package compute

// Budget holds the resource limits for an execution. Nil fields are unlimited.
type Budget struct {
	TimeMs        *int64
	MaxIterations *int64
}

// BudgetTracker tracks resource consumption during execution.
type BudgetTracker struct {
	Iterations int64
	StartHires int64
}

// Int64 is a helper for building a Budget from literals.
func Int64(v int64) *int64 {
	return &v
}
