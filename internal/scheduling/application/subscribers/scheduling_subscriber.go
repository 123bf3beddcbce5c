package subscribers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	taskDomain "github.com/felixgeelhaar/pulse/internal/productivity/domain/task"
	"github.com/felixgeelhaar/pulse/internal/scheduling/application/commands"
	"github.com/felixgeelhaar/pulse/internal/shared/infrastructure/eventbus"
)

// DefaultTaskDuration is the default duration for tasks without an explicit duration.
const DefaultTaskDuration = 30 * time.Minute

// SchedulingSubscriber listens for task creation events and auto-schedules them.
type SchedulingSubscriber struct {
	autoScheduleHandler *commands.AutoScheduleHandler
	taskRepo            taskDomain.Repository
	logger              *slog.Logger
	enabled             bool
}

// NewSchedulingSubscriber creates a new scheduling subscriber.
func NewSchedulingSubscriber(
	autoScheduleHandler *commands.AutoScheduleHandler,
	taskRepo taskDomain.Repository,
	logger *slog.Logger,
) *SchedulingSubscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &SchedulingSubscriber{
		autoScheduleHandler: autoScheduleHandler,
		taskRepo:            taskRepo,
		logger:              logger,
		enabled:             true,
	}
}

// SetEnabled enables or disables the subscriber.
func (s *SchedulingSubscriber) SetEnabled(enabled bool) {
	s.enabled = enabled
}

// EventTypes returns the event types this subscriber handles.
func (s *SchedulingSubscriber) EventTypes() []string {
	return []string{"core.task.created"}
}

// Handle processes an event.
func (s *SchedulingSubscriber) Handle(ctx context.Context, event *eventbus.ConsumedEvent) error {
	if !s.enabled {
		s.logger.Debug("scheduling subscriber disabled, skipping event", "routing_key", event.RoutingKey)
		return nil
	}

	switch event.RoutingKey {
	case "core.task.created":
		return s.handleTaskCreated(ctx, event)
	default:
		s.logger.Warn("unknown event type", "routing_key", event.RoutingKey)
		return nil
	}
}

// TaskCreatedPayload is the payload for task.created events.
type TaskCreatedPayload struct {
	Title    string `json:"title"`
	Priority string `json:"priority"`
}

func (s *SchedulingSubscriber) handleTaskCreated(ctx context.Context, event *eventbus.ConsumedEvent) error {
	var payload TaskCreatedPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		s.logger.Debug("failed to unmarshal task payload, fetching from repo",
			"task_id", event.AggregateID, "error", err,
		)
	}

	task, err := s.taskRepo.FindByID(ctx, event.AggregateID)
	if err != nil {
		s.logger.Error("failed to find task for auto-scheduling", "task_id", event.AggregateID, "error", err)
		return nil // Don't fail the event, just skip scheduling
	}
	if task == nil {
		s.logger.Warn("task not found for auto-scheduling", "task_id", event.AggregateID)
		return nil
	}

	scheduleDate := time.Now()
	if task.DueDate() != nil {
		scheduleDate = *task.DueDate()
	}

	duration := DefaultTaskDuration
	if task.Duration().Minutes() > 0 {
		duration = time.Duration(task.Duration().Minutes()) * time.Minute
	}

	item := commands.SchedulableItem{
		ID:       task.ID(),
		Type:     "task",
		Title:    task.Title(),
		Priority: priorityToInt(task.Priority().String()),
		Duration: duration,
		DueDate:  task.DueDate(),
	}

	result, err := s.autoScheduleHandler.Handle(ctx, commands.AutoScheduleCommand{
		UserID: task.UserID(),
		Date:   scheduleDate,
		Tasks:  []commands.SchedulableItem{item},
	})
	if err != nil {
		s.logger.Error("failed to auto-schedule task", "task_id", task.ID(), "error", err)
		return nil // Don't fail the event
	}

	s.logger.Info("auto-scheduled task", "task_id", task.ID(), "scheduled_count", result.ScheduledCount)
	return nil
}

// priorityToInt converts a priority string to an integer for sorting.
func priorityToInt(priority string) int {
	switch priority {
	case "urgent":
		return 0
	case "high":
		return 1
	case "medium":
		return 2
	case "low":
		return 3
	default:
		return 2
	}
}
