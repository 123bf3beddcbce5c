package domain

import (
	"context"
	"time"
)

// PlanRepository provides the data a solve needs that isn't already held by
// the existing per-day Schedule aggregate: the planning-time task and
// preference views, busy events from external or internal sources, and the
// persisted solution blocks from the last accepted solve (for no-thrash
// comparison and completion tracking).
type PlanRepository interface {
	LoadTasks(ctx context.Context, userID string) ([]PlanTask, error)
	LoadBusyEvents(ctx context.Context, userID string, from, to time.Time) ([]BusyEvent, error)
	LoadPreferences(ctx context.Context, userID string) (Preferences, error)
	LoadPreviousBlocks(ctx context.Context, userID string) ([]PlanBlock, error)
	SaveSolution(ctx context.Context, userID string, solution ScheduleSolution) error
	LoadCompletionEvents(ctx context.Context, userID string, since time.Time) ([]CompletionEvent, error)
}
