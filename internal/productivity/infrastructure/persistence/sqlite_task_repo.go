package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/pulse/internal/productivity/domain/task"
	"github.com/felixgeelhaar/pulse/internal/productivity/domain/value_objects"
	sharedDomain "github.com/felixgeelhaar/pulse/internal/shared/domain"
	sharedPersistence "github.com/felixgeelhaar/pulse/internal/shared/infrastructure/persistence"
	"github.com/google/uuid"
)

// SQLiteTaskRepository implements task.Repository using SQLite.
type SQLiteTaskRepository struct {
	dbConn *sql.DB
}

// NewSQLiteTaskRepository creates a new SQLite task repository.
func NewSQLiteTaskRepository(dbConn *sql.DB) *SQLiteTaskRepository {
	return &SQLiteTaskRepository{dbConn: dbConn}
}

func (r *SQLiteTaskRepository) querier(ctx context.Context) interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
} {
	if info, ok := sharedPersistence.SQLiteTxInfoFromContext(ctx); ok {
		return info.Tx
	}
	return r.dbConn
}

// taskRow represents a raw database row for tasks.
type taskRow struct {
	ID              string
	UserID          string
	Title           string
	Description     sql.NullString
	Status          string
	Priority        string
	DurationMinutes sql.NullInt64
	DueDate         sql.NullString
	CompletedAt     sql.NullString
	Version         int64
	CreatedAt       string
	UpdatedAt       string
}

// Save persists a task to the database, enforcing optimistic locking on version.
func (r *SQLiteTaskRepository) Save(ctx context.Context, t *task.Task) error {
	q := r.querier(ctx)

	var durationMinutes sql.NullInt64
	if !t.Duration().IsZero() {
		durationMinutes = sql.NullInt64{Int64: int64(t.Duration().Minutes()), Valid: true}
	}

	var description sql.NullString
	if t.Description() != "" {
		description = sql.NullString{String: t.Description(), Valid: true}
	}

	var dueDate sql.NullString
	if t.DueDate() != nil {
		dueDate = sql.NullString{String: t.DueDate().Format(time.RFC3339), Valid: true}
	}

	var completedAt sql.NullString
	if t.CompletedAt() != nil {
		completedAt = sql.NullString{String: t.CompletedAt().Format(time.RFC3339), Valid: true}
	}

	var existingVersion sql.NullInt64
	err := q.QueryRowContext(ctx, `SELECT version FROM tasks WHERE id = ?`, t.ID().String()).Scan(&existingVersion)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	if errors.Is(err, sql.ErrNoRows) {
		_, err = q.ExecContext(ctx, `
			INSERT INTO tasks (
				id, user_id, title, description, status, priority,
				duration_minutes, due_date, completed_at, version, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			t.ID().String(), t.UserID().String(), t.Title(), description,
			t.Status().String(), t.Priority().String(), durationMinutes,
			dueDate, completedAt, t.Version(),
			t.CreatedAt().Format(time.RFC3339), t.UpdatedAt().Format(time.RFC3339),
		)
		return err
	}

	if existingVersion.Int64 != int64(t.Version()) {
		return ErrOptimisticLocking
	}

	result, err := q.ExecContext(ctx, `
		UPDATE tasks SET
			title = ?, description = ?, status = ?, priority = ?,
			duration_minutes = ?, due_date = ?, completed_at = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`,
		t.Title(), description, t.Status().String(), t.Priority().String(),
		durationMinutes, dueDate, completedAt, time.Now().Format(time.RFC3339),
		t.ID().String(), t.Version(),
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOptimisticLocking
	}
	return nil
}

// FindByID retrieves a task by its ID.
func (r *SQLiteTaskRepository) FindByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	q := r.querier(ctx)
	row := q.QueryRowContext(ctx, `
		SELECT id, user_id, title, description, status, priority,
		       duration_minutes, due_date, completed_at, version, created_at, updated_at
		FROM tasks WHERE id = ?
	`, id.String())

	tr, err := scanTaskRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return rowToTask(tr)
}

// FindByUserID retrieves all tasks for a user.
func (r *SQLiteTaskRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*task.Task, error) {
	q := r.querier(ctx)
	rows, err := q.QueryContext(ctx, `
		SELECT id, user_id, title, description, status, priority,
		       duration_minutes, due_date, completed_at, version, created_at, updated_at
		FROM tasks WHERE user_id = ? ORDER BY created_at DESC
	`, userID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

// FindPending retrieves pending or in-progress tasks for a user, ordered by priority and due date.
func (r *SQLiteTaskRepository) FindPending(ctx context.Context, userID uuid.UUID) ([]*task.Task, error) {
	q := r.querier(ctx)
	rows, err := q.QueryContext(ctx, `
		SELECT id, user_id, title, description, status, priority,
		       duration_minutes, due_date, completed_at, version, created_at, updated_at
		FROM tasks
		WHERE user_id = ? AND status IN ('pending', 'in_progress')
		ORDER BY
			CASE priority
				WHEN 'urgent' THEN 1
				WHEN 'high' THEN 2
				WHEN 'medium' THEN 3
				WHEN 'low' THEN 4
				ELSE 5
			END,
			due_date IS NULL, due_date, created_at
	`, userID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

// Delete removes a task from the database.
func (r *SQLiteTaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	q := r.querier(ctx)
	result, err := q.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id.String())
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func scanTaskRow(row *sql.Row) (taskRow, error) {
	var tr taskRow
	err := row.Scan(
		&tr.ID, &tr.UserID, &tr.Title, &tr.Description, &tr.Status, &tr.Priority,
		&tr.DurationMinutes, &tr.DueDate, &tr.CompletedAt, &tr.Version, &tr.CreatedAt, &tr.UpdatedAt,
	)
	return tr, err
}

func scanTasks(rows *sql.Rows) ([]*task.Task, error) {
	tasks := make([]*task.Task, 0)
	for rows.Next() {
		var tr taskRow
		if err := rows.Scan(
			&tr.ID, &tr.UserID, &tr.Title, &tr.Description, &tr.Status, &tr.Priority,
			&tr.DurationMinutes, &tr.DueDate, &tr.CompletedAt, &tr.Version, &tr.CreatedAt, &tr.UpdatedAt,
		); err != nil {
			return nil, err
		}
		t, err := rowToTask(tr)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func rowToTask(row taskRow) (*task.Task, error) {
	userID, err := uuid.Parse(row.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid user_id: %w", err)
	}
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid task id: %w", err)
	}

	t, err := task.NewTask(userID, row.Title)
	if err != nil {
		return nil, err
	}

	if row.Description.Valid {
		if err := t.SetDescription(row.Description.String); err != nil {
			return nil, fmt.Errorf("failed to set description: %w", err)
		}
	}

	priority, err := value_objects.ParsePriority(row.Priority)
	if err != nil {
		return nil, fmt.Errorf("invalid priority in database: %w", err)
	}
	if err := t.SetPriority(priority); err != nil {
		return nil, fmt.Errorf("failed to set priority: %w", err)
	}

	if row.DurationMinutes.Valid {
		duration, err := value_objects.NewDuration(time.Duration(row.DurationMinutes.Int64) * time.Minute)
		if err != nil {
			return nil, fmt.Errorf("invalid duration in database: %w", err)
		}
		if err := t.SetDuration(duration); err != nil {
			return nil, fmt.Errorf("failed to set duration: %w", err)
		}
	}

	if row.DueDate.Valid {
		dueDate, err := time.Parse(time.RFC3339, row.DueDate.String)
		if err != nil {
			return nil, fmt.Errorf("invalid due_date format: %w", err)
		}
		if err := t.SetDueDate(&dueDate); err != nil {
			return nil, fmt.Errorf("failed to set due date: %w", err)
		}
	}

	switch row.Status {
	case "in_progress":
		if err := t.Start(); err != nil {
			return nil, fmt.Errorf("failed to restore in_progress status: %w", err)
		}
	case "completed":
		if err := t.Complete(); err != nil {
			return nil, fmt.Errorf("failed to restore completed status: %w", err)
		}
	case "archived":
		if err := t.Archive(); err != nil {
			return nil, fmt.Errorf("failed to restore archived status: %w", err)
		}
	}

	t.ClearDomainEvents()

	createdAt, err := time.Parse(time.RFC3339, row.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at: %w", err)
	}
	updatedAt, err := time.Parse(time.RFC3339, row.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid updated_at: %w", err)
	}

	t.BaseAggregateRoot = sharedDomain.RehydrateBaseAggregateRoot(
		sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt),
		int(row.Version),
	)

	return t, nil
}
