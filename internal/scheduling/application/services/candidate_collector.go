package services

import (
	"context"
	"time"

	taskDomain "github.com/felixgeelhaar/pulse/internal/productivity/domain/task"
	"github.com/felixgeelhaar/pulse/internal/productivity/domain/value_objects"
	schedulingDomain "github.com/felixgeelhaar/pulse/internal/scheduling/domain"
	"github.com/google/uuid"
)

// CandidateCollector aggregates scheduling candidates from pending tasks.
// It feeds the single-day SchedulerEngine path of ScheduleDayHandler,
// which books fixed-date calendar blocks (AutoScheduleHandler takes its
// items from the command instead); the
// multi-day constraint solver pipeline (SchedulerService) reads tasks
// directly and does not go through this collector.
type CandidateCollector struct {
	taskRepo taskDomain.Repository
}

// NewCandidateCollector creates a new candidate collector.
func NewCandidateCollector(taskRepo taskDomain.Repository) *CandidateCollector {
	return &CandidateCollector{taskRepo: taskRepo}
}

// SchedulingCandidate represents an item that needs to be scheduled.
type SchedulingCandidate struct {
	ID          uuid.UUID
	Type        schedulingDomain.BlockType
	Title       string
	Priority    int // 1=urgent, 2=high, 3=medium, 4=low, 5=none
	Duration    time.Duration
	DueDate     *time.Time
	Constraints []schedulingDomain.Constraint
	Source      string // "task"
}

// CollectForDate collects all unscheduled task candidates for a user on a specific date.
func (c *CandidateCollector) CollectForDate(
	ctx context.Context,
	userID uuid.UUID,
	date time.Time,
) ([]SchedulingCandidate, error) {
	return c.collectTaskCandidates(ctx, userID, date)
}

// collectTaskCandidates collects pending tasks that need scheduling.
func (c *CandidateCollector) collectTaskCandidates(
	ctx context.Context,
	userID uuid.UUID,
	date time.Time,
) ([]SchedulingCandidate, error) {
	tasks, err := c.taskRepo.FindPending(ctx, userID)
	if err != nil {
		return nil, err
	}

	candidates := make([]SchedulingCandidate, 0, len(tasks))
	for _, t := range tasks {
		// Skip completed tasks
		if t.Status() == taskDomain.StatusCompleted {
			continue
		}

		// If task has a due date in the past, skip it
		if t.DueDate() != nil && t.DueDate().Before(date) {
			continue
		}

		// Calculate priority score
		priority := mapTaskPriority(t.Priority())

		// Get duration from task (default 30 min if not set)
		duration := 30 * time.Minute
		if !t.Duration().IsZero() {
			duration = t.Duration().Value()
		}

		candidate := SchedulingCandidate{
			ID:       t.ID(),
			Type:     schedulingDomain.BlockTypeTask,
			Title:    t.Title(),
			Priority: priority,
			Duration: duration,
			DueDate:  t.DueDate(),
			Source:   "task",
		}

		// Add time range constraint if task has due date today
		if t.DueDate() != nil {
			dueDate := *t.DueDate()
			if sameDay(dueDate, date) {
				// Must be scheduled within working hours on due date
				// Using 9-17 as standard working hours
				candidate.Constraints = append(candidate.Constraints,
					schedulingDomain.NewTimeRangeConstraint(
						schedulingDomain.ConstraintTypeHard,
						9, 17, 0,
					),
				)
			}
		}

		candidates = append(candidates, candidate)
	}

	return candidates, nil
}

// ToSchedulableTask converts a SchedulingCandidate to a SchedulableTask.
func (c SchedulingCandidate) ToSchedulableTask() SchedulableTask {
	return SchedulableTask{
		ID:          c.ID,
		Title:       c.Title,
		Priority:    c.Priority,
		Duration:    c.Duration,
		DueDate:     c.DueDate,
		Constraints: c.Constraints,
		BlockType:   c.Type,
	}
}

// mapTaskPriority converts task priority to scheduler priority (1=highest, 5=lowest).
func mapTaskPriority(priority value_objects.Priority) int {
	switch priority {
	case value_objects.PriorityUrgent:
		return 1
	case value_objects.PriorityHigh:
		return 2
	case value_objects.PriorityMedium:
		return 3
	case value_objects.PriorityLow:
		return 4
	default:
		return 5
	}
}

// sameDay checks if two times are on the same calendar day.
func sameDay(t1, t2 time.Time) bool {
	y1, m1, d1 := t1.Date()
	y2, m2, d2 := t2.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
