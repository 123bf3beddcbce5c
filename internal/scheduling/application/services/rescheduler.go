package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/pulse/internal/scheduling/domain"
)

// MissedBoostFactor is the multiplier applied to a missed task's weight
// before it is re-submitted to the solver.
const MissedBoostFactor = 1.5

// MaxWeightCeiling caps repeated boosting from compounding indefinitely.
const MaxWeightCeiling = 10.0

// Rescheduler scans for missed blocks (past end time, no completion event)
// and re-runs the service for the forward horizon with the missed tasks'
// weight boosted, subject to the same no-thrash guarantees as any solve.
type Rescheduler struct {
	repo    domain.PlanRepository
	service *SchedulerService
	logger  *slog.Logger
}

// NewRescheduler creates a Rescheduler.
func NewRescheduler(repo domain.PlanRepository, service *SchedulerService, logger *slog.Logger) *Rescheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Rescheduler{repo: repo, service: service, logger: logger}
}

// RescheduleMissed implements §4.9: detect missed blocks in the recent past,
// boost their task weight, and forward-solve the remaining horizon.
func (r *Rescheduler) RescheduleMissed(ctx context.Context, userID string, horizonDays int) (domain.ScheduleSolution, error) {
	now := time.Now()
	previous, err := r.repo.LoadPreviousBlocks(ctx, userID)
	if err != nil {
		return domain.ScheduleSolution{}, err
	}
	completions, err := r.repo.LoadCompletionEvents(ctx, userID, now.AddDate(0, 0, -14))
	if err != nil {
		return domain.ScheduleSolution{}, err
	}
	completedTasks := make(map[string]bool, len(completions))
	for _, c := range completions {
		if !c.Missed() {
			completedTasks[c.TaskID] = true
		}
	}

	missed := make(map[string]bool)
	for _, b := range previous {
		if b.End.Before(now) && !completedTasks[b.TaskID] {
			missed[b.TaskID] = true
		}
	}

	if len(missed) == 0 {
		r.logger.Debug("no missed blocks found", "user_id", userID)
	}

	tasks, err := r.repo.LoadTasks(ctx, userID)
	if err != nil {
		return domain.ScheduleSolution{}, err
	}
	for i := range tasks {
		if missed[tasks[i].ID] {
			boosted := tasks[i].Weight * MissedBoostFactor
			if boosted > MaxWeightCeiling {
				boosted = MaxWeightCeiling
			}
			tasks[i].Weight = boosted
		}
	}

	req := ScheduleRequest{
		UserID:       userID,
		HorizonDays:  horizonDays,
		DryRun:       false,
		LockExisting: true,
		tasksOverride: tasks,
	}
	return r.service.scheduleInternal(ctx, req)
}
