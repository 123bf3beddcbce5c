package domain

import "time"

// SolverStatus reports how a ScheduleSolution was produced.
type SolverStatus string

const (
	StatusOptimal        SolverStatus = "optimal"
	StatusFeasible       SolverStatus = "feasible"
	StatusInfeasible     SolverStatus = "infeasible"
	StatusTimeout        SolverStatus = "timeout"
	StatusError          SolverStatus = "error"
	StatusNoSolver       SolverStatus = "no_solver"
	StatusFallback       SolverStatus = "fallback"
	StatusFallbackError  SolverStatus = "fallback_error"
)

// PlanBlock is one scheduled, contiguous run of slots assigned to a task.
type PlanBlock struct {
	TaskID                      string
	Title                       string
	Start                       time.Time
	End                         time.Time
	UtilityScore                float64
	EstimatedCompletionProb     float64
	Locked                      bool
	Manual                      bool
	CourseID                    string
}

// DurationMinutes returns the block's span in minutes.
func (b PlanBlock) DurationMinutes() int {
	return int(b.End.Sub(b.Start).Minutes())
}

// Overlaps reports whether two blocks intersect.
func (b PlanBlock) Overlaps(o PlanBlock) bool {
	return b.Start.Before(o.End) && o.Start.Before(b.End)
}

// ScheduleSolution is the result of a solve: a feasibility flag, the ordered
// block list, solver diagnostics, and any tasks that could not be placed.
type ScheduleSolution struct {
	Feasible          bool
	Blocks            []PlanBlock
	SolverStatus      SolverStatus
	SolveTimeMs       int64
	ObjectiveValue    float64
	UnscheduledTasks  []string
	Diagnostics       map[string]any
}

// CompletionEvent records whether a scheduled slot resulted in task completion,
// the raw signal the completion model and bandit learn from.
type CompletionEvent struct {
	TaskID        string
	ScheduledSlot time.Time
	CompletedAt   *time.Time // nil means missed
	Metadata      map[string]any
}

// Missed reports whether this completion event represents a missed block.
func (c CompletionEvent) Missed() bool { return c.CompletedAt == nil }
