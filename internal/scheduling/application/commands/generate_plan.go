package commands

import (
	"context"
	"log/slog"

	"github.com/felixgeelhaar/pulse/internal/scheduling/application/services"
	"github.com/felixgeelhaar/pulse/internal/scheduling/domain"
)

// GeneratePlanCommand requests a multi-day solve over a user's pending tasks.
type GeneratePlanCommand struct {
	UserID       string
	HorizonDays  int
	DryRun       bool
	LockExisting bool
}

// GeneratePlanHandler invokes the constraint solver pipeline (§4.10) and
// returns the resulting schedule. Unlike AutoScheduleHandler/ScheduleDayHandler,
// which book single-day calendar blocks for tasks/habits/meetings onto the
// Schedule aggregate, this handler drives the multi-day PlanTask pipeline
// that produces and persists a ScheduleSolution directly.
type GeneratePlanHandler struct {
	scheduler *services.SchedulerService
	logger    *slog.Logger
}

// NewGeneratePlanHandler creates a new GeneratePlanHandler.
func NewGeneratePlanHandler(scheduler *services.SchedulerService, logger *slog.Logger) *GeneratePlanHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GeneratePlanHandler{scheduler: scheduler, logger: logger}
}

// Handle executes the GeneratePlanCommand.
func (h *GeneratePlanHandler) Handle(ctx context.Context, cmd GeneratePlanCommand) (domain.ScheduleSolution, error) {
	req := services.ScheduleRequest{
		UserID:       cmd.UserID,
		HorizonDays:  cmd.HorizonDays,
		DryRun:       cmd.DryRun,
		LockExisting: cmd.LockExisting,
	}

	solution, err := h.scheduler.Schedule(ctx, req)
	if err != nil {
		h.logger.Error("generate plan failed", "user_id", cmd.UserID, "error", err)
		return domain.ScheduleSolution{}, err
	}

	h.logger.Info("plan generated",
		"user_id", cmd.UserID,
		"feasible", solution.Feasible,
		"status", solution.SolverStatus,
		"blocks", len(solution.Blocks),
		"unscheduled", len(solution.UnscheduledTasks),
	)
	return solution, nil
}
