package persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/felixgeelhaar/pulse/internal/productivity/domain/task"
	"github.com/felixgeelhaar/pulse/internal/productivity/domain/value_objects"
	"github.com/felixgeelhaar/pulse/internal/scheduling/domain"
	sharedPersistence "github.com/felixgeelhaar/pulse/internal/shared/infrastructure/persistence"
	"github.com/google/uuid"
)

// SQLitePlanRepository implements domain.PlanRepository by composing the
// existing productivity task repository and scheduling schedule repository
// (tasks and busy events are not duplicated into a separate store) with a
// dedicated plan_blocks table for the planner's own solved output, which
// has no equivalent elsewhere in the schema.
type SQLitePlanRepository struct {
	dbConn    *sql.DB
	taskRepo  task.Repository
	scheduleRepo domain.ScheduleRepository
}

// NewSQLitePlanRepository creates a new SQLite-backed PlanRepository.
func NewSQLitePlanRepository(dbConn *sql.DB, taskRepo task.Repository, scheduleRepo domain.ScheduleRepository) *SQLitePlanRepository {
	return &SQLitePlanRepository{dbConn: dbConn, taskRepo: taskRepo, scheduleRepo: scheduleRepo}
}

func (r *SQLitePlanRepository) querier(ctx context.Context) sqliteQuerier {
	if info, ok := sharedPersistence.SQLiteTxInfoFromContext(ctx); ok {
		return info.Tx
	}
	return r.dbConn
}

// LoadTasks converts the user's pending productivity tasks into the
// planning-time PlanTask view. Kind defaults to KindAdmin: the productivity
// task aggregate carries no study/assignment/exam classification, so callers
// that need that distinction must set it via task tags in a later pass.
func (r *SQLitePlanRepository) LoadTasks(ctx context.Context, userID string) ([]domain.PlanTask, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, err
	}
	pending, err := r.taskRepo.FindPending(ctx, uid)
	if err != nil {
		return nil, err
	}

	plans := make([]domain.PlanTask, 0, len(pending))
	for _, t := range pending {
		estimated := t.Duration().Minutes()
		pt := domain.PlanTask{
			ID:               t.ID().String(),
			UserID:           userID,
			Title:            t.Title(),
			Kind:             domain.KindAdmin,
			EstimatedMinutes: estimated,
			Deadline:         t.DueDate(),
			Weight:           priorityWeight(t.Priority()),
		}
		pt.Normalize(30)
		plans = append(plans, pt)
	}
	return plans, nil
}

func priorityWeight(p value_objects.Priority) float64 {
	switch p {
	case value_objects.PriorityUrgent:
		return 4.0
	case value_objects.PriorityHigh:
		return 3.0
	case value_objects.PriorityMedium:
		return 2.0
	default:
		return 1.0
	}
}

// LoadBusyEvents reads previously-scheduled blocks from the per-day Schedule
// aggregate within [from, to) and reports them as immovable busy events, so
// the planner never double-books time the calendar engine already committed.
func (r *SQLitePlanRepository) LoadBusyEvents(ctx context.Context, userID string, from, to time.Time) ([]domain.BusyEvent, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, err
	}
	schedules, err := r.scheduleRepo.FindByUserDateRange(ctx, uid, from, to)
	if err != nil {
		return nil, err
	}

	var events []domain.BusyEvent
	for _, s := range schedules {
		for _, b := range s.Blocks() {
			events = append(events, domain.BusyEvent{
				ID:       b.ID().String(),
				Source:   domain.SourcePulse,
				Title:    b.Title(),
				Start:    b.StartTime(),
				End:      b.EndTime(),
				Hard:     true,
				OwnEvent: true,
			})
		}
	}
	return events, nil
}

// LoadPreferences returns the spec's default preferences: no per-user
// preference table exists in this schema yet, so every user plans against
// the same baseline workday and daily-effort cap until one is added.
func (r *SQLitePlanRepository) LoadPreferences(ctx context.Context, userID string) (domain.Preferences, error) {
	return domain.DefaultPreferences(), nil
}

// LoadPreviousBlocks returns the blocks from the last accepted solve.
func (r *SQLitePlanRepository) LoadPreviousBlocks(ctx context.Context, userID string) ([]domain.PlanBlock, error) {
	q := r.querier(ctx)
	rows, err := q.QueryContext(ctx, `
		SELECT task_id, title, start_time, end_time, utility_score,
		       estimated_completion_prob, locked, manual, course_id
		FROM plan_blocks WHERE user_id = ? ORDER BY start_time
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPlanBlocks(rows)
}

func scanPlanBlocks(rows *sql.Rows) ([]domain.PlanBlock, error) {
	var blocks []domain.PlanBlock
	for rows.Next() {
		var (
			b                    domain.PlanBlock
			startStr, endStr     string
			locked, manual       int
			courseID             sql.NullString
		)
		if err := rows.Scan(&b.TaskID, &b.Title, &startStr, &endStr, &b.UtilityScore,
			&b.EstimatedCompletionProb, &locked, &manual, &courseID); err != nil {
			return nil, err
		}
		start, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			return nil, err
		}
		end, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			return nil, err
		}
		b.Start = start
		b.End = end
		b.Locked = locked != 0
		b.Manual = manual != 0
		if courseID.Valid {
			b.CourseID = courseID.String
		}
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}

// SaveSolution replaces the user's stored plan with the newly accepted
// solution, atomically within the ambient transaction if one is present.
func (r *SQLitePlanRepository) SaveSolution(ctx context.Context, userID string, solution domain.ScheduleSolution) error {
	if _, ok := sharedPersistence.SQLiteTxInfoFromContext(ctx); ok {
		return r.saveSolution(ctx, r.querier(ctx), userID, solution)
	}

	tx, err := r.dbConn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := r.saveSolution(ctx, tx, userID, solution); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *SQLitePlanRepository) saveSolution(ctx context.Context, q sqliteQuerier, userID string, solution domain.ScheduleSolution) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM plan_blocks WHERE user_id = ?`, userID); err != nil {
		return err
	}
	now := time.Now().Format(time.RFC3339)
	for _, b := range solution.Blocks {
		var courseID sql.NullString
		if b.CourseID != "" {
			courseID = sql.NullString{String: b.CourseID, Valid: true}
		}
		_, err := q.ExecContext(ctx, `
			INSERT INTO plan_blocks (
				id, user_id, task_id, title, start_time, end_time,
				utility_score, estimated_completion_prob, locked, manual,
				course_id, solver_status, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			uuid.New().String(), userID, b.TaskID, b.Title,
			b.Start.Format(time.RFC3339), b.End.Format(time.RFC3339),
			b.UtilityScore, b.EstimatedCompletionProb, boolToInt(b.Locked), boolToInt(b.Manual),
			courseID, string(solution.SolverStatus), now,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// LoadCompletionEvents derives completion events from the productivity
// task repository: a block whose task has a completion time counts as a
// completion (that time is not compared with the block's start); blocks
// whose task is still pending or not found are reported as missed so the
// rescheduler can boost them.
func (r *SQLitePlanRepository) LoadCompletionEvents(ctx context.Context, userID string, since time.Time) ([]domain.CompletionEvent, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, err
	}
	tasks, err := r.taskRepo.FindByUserID(ctx, uid)
	if err != nil {
		return nil, err
	}

	previous, err := r.LoadPreviousBlocks(ctx, userID)
	if err != nil {
		return nil, err
	}
	completedAt := make(map[string]*time.Time, len(tasks))
	for _, t := range tasks {
		completedAt[t.ID().String()] = t.CompletedAt()
	}

	events := make([]domain.CompletionEvent, 0, len(previous))
	for _, b := range previous {
		if b.Start.Before(since) {
			continue
		}
		events = append(events, domain.CompletionEvent{
			TaskID:        b.TaskID,
			ScheduledSlot: b.Start,
			CompletedAt:   completedAt[b.TaskID],
		})
	}
	return events, nil
}
