package services

import (
	"context"
	"testing"
	"time"

	taskDomain "github.com/felixgeelhaar/pulse/internal/productivity/domain/task"
	"github.com/felixgeelhaar/pulse/internal/productivity/domain/value_objects"
	schedulingDomain "github.com/felixgeelhaar/pulse/internal/scheduling/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockTaskRepo struct {
	tasks []*taskDomain.Task
	err   error
}

func (m *mockTaskRepo) Save(ctx context.Context, task *taskDomain.Task) error {
	return m.err
}

func (m *mockTaskRepo) FindByID(ctx context.Context, id uuid.UUID) (*taskDomain.Task, error) {
	for _, t := range m.tasks {
		if t.ID() == id {
			return t, nil
		}
	}
	return nil, nil
}

func (m *mockTaskRepo) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*taskDomain.Task, error) {
	if m.err != nil {
		return nil, m.err
	}
	var result []*taskDomain.Task
	for _, t := range m.tasks {
		if t.UserID() == userID {
			result = append(result, t)
		}
	}
	return result, nil
}

func (m *mockTaskRepo) FindPending(ctx context.Context, userID uuid.UUID) ([]*taskDomain.Task, error) {
	if m.err != nil {
		return nil, m.err
	}
	var result []*taskDomain.Task
	for _, t := range m.tasks {
		if t.UserID() == userID && t.Status() == taskDomain.StatusPending {
			result = append(result, t)
		}
	}
	return result, nil
}

func (m *mockTaskRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.err
}

func TestCandidateCollector_CollectForDate_Tasks(t *testing.T) {
	userID := uuid.New()
	today := time.Now()

	task1, _ := taskDomain.NewTask(userID, "High priority task")
	task1.SetPriority(value_objects.PriorityHigh)
	duration1, _ := value_objects.NewDuration(60 * time.Minute)
	task1.SetDuration(duration1)

	task2, _ := taskDomain.NewTask(userID, "Low priority task")
	task2.SetPriority(value_objects.PriorityLow)

	taskCompleted, _ := taskDomain.NewTask(userID, "Completed task")
	taskCompleted.Complete()

	taskRepo := &mockTaskRepo{tasks: []*taskDomain.Task{task1, task2, taskCompleted}}
	collector := NewCandidateCollector(taskRepo)

	candidates, err := collector.CollectForDate(context.Background(), userID, today)
	require.NoError(t, err)

	// Should have 2 candidates (excluding completed task)
	assert.Len(t, candidates, 2)

	assert.Equal(t, task1.ID(), candidates[0].ID)
	assert.Equal(t, "High priority task", candidates[0].Title)
	assert.Equal(t, 2, candidates[0].Priority) // High = 2
	assert.Equal(t, 60*time.Minute, candidates[0].Duration)
	assert.Equal(t, schedulingDomain.BlockTypeTask, candidates[0].Type)
	assert.Equal(t, "task", candidates[0].Source)

	assert.Equal(t, task2.ID(), candidates[1].ID)
	assert.Equal(t, 30*time.Minute, candidates[1].Duration) // Default
	assert.Equal(t, 4, candidates[1].Priority)              // Low = 4
}

func TestCandidateCollector_CollectForDate_Empty(t *testing.T) {
	userID := uuid.New()
	today := time.Now()

	taskRepo := &mockTaskRepo{}
	collector := NewCandidateCollector(taskRepo)

	candidates, err := collector.CollectForDate(context.Background(), userID, today)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestCandidateCollector_TaskWithDueDateToday(t *testing.T) {
	userID := uuid.New()
	today := time.Now()
	todayEnd := time.Date(today.Year(), today.Month(), today.Day(), 23, 59, 59, 0, today.Location())

	task, _ := taskDomain.NewTask(userID, "Due today")
	task.SetDueDate(&todayEnd)

	taskRepo := &mockTaskRepo{tasks: []*taskDomain.Task{task}}
	collector := NewCandidateCollector(taskRepo)

	candidates, err := collector.CollectForDate(context.Background(), userID, today)
	require.NoError(t, err)

	require.Len(t, candidates, 1)
	assert.NotNil(t, candidates[0].DueDate)

	assert.Len(t, candidates[0].Constraints, 1)
	assert.Equal(t, schedulingDomain.ConstraintTypeHard, candidates[0].Constraints[0].Type())
}

func TestCandidateCollector_SkipsOverdueTasks(t *testing.T) {
	userID := uuid.New()
	today := time.Now()
	yesterday := today.AddDate(0, 0, -1)

	task, _ := taskDomain.NewTask(userID, "Overdue task")
	task.SetDueDate(&yesterday)

	taskRepo := &mockTaskRepo{tasks: []*taskDomain.Task{task}}
	collector := NewCandidateCollector(taskRepo)

	candidates, err := collector.CollectForDate(context.Background(), userID, today)
	require.NoError(t, err)

	assert.Empty(t, candidates)
}

func TestSchedulingCandidate_ToSchedulableTask(t *testing.T) {
	dueDate := time.Now()
	candidate := SchedulingCandidate{
		ID:       uuid.New(),
		Type:     schedulingDomain.BlockTypeTask,
		Title:    "Test task",
		Priority: 2,
		Duration: 30 * time.Minute,
		DueDate:  &dueDate,
		Source:   "task",
	}

	task := candidate.ToSchedulableTask()

	assert.Equal(t, candidate.ID, task.ID)
	assert.Equal(t, candidate.Title, task.Title)
	assert.Equal(t, candidate.Priority, task.Priority)
	assert.Equal(t, candidate.Duration, task.Duration)
	assert.Equal(t, candidate.DueDate, task.DueDate)
	assert.Equal(t, candidate.Type, task.BlockType)
}

func TestMapTaskPriority(t *testing.T) {
	tests := []struct {
		priority value_objects.Priority
		expected int
	}{
		{value_objects.PriorityUrgent, 1},
		{value_objects.PriorityHigh, 2},
		{value_objects.PriorityMedium, 3},
		{value_objects.PriorityLow, 4},
		{value_objects.PriorityNone, 5},
	}

	for _, tt := range tests {
		t.Run(tt.priority.String(), func(t *testing.T) {
			result := mapTaskPriority(tt.priority)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestSameDay(t *testing.T) {
	now := time.Now()
	sameDayTime := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, now.Location())
	differentDayTime := now.AddDate(0, 0, 1)

	assert.True(t, sameDay(now, sameDayTime))
	assert.False(t, sameDay(now, differentDayTime))
}
