package persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/felixgeelhaar/pulse/internal/productivity/domain/task"
	sharedPersistence "github.com/felixgeelhaar/pulse/internal/shared/infrastructure/persistence"
	"github.com/google/uuid"
)

// SQLitePriorityScoreRepository implements task.PriorityScoreRepository using SQLite.
type SQLitePriorityScoreRepository struct {
	dbConn *sql.DB
}

// NewSQLitePriorityScoreRepository creates a new SQLite priority score repository.
func NewSQLitePriorityScoreRepository(dbConn *sql.DB) *SQLitePriorityScoreRepository {
	return &SQLitePriorityScoreRepository{dbConn: dbConn}
}

func (r *SQLitePriorityScoreRepository) querier(ctx context.Context) interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
} {
	if info, ok := sharedPersistence.SQLiteTxInfoFromContext(ctx); ok {
		return info.Tx
	}
	return r.dbConn
}

// Save upserts a priority score keyed by (user_id, task_id).
func (r *SQLitePriorityScoreRepository) Save(ctx context.Context, score task.PriorityScore) error {
	q := r.querier(ctx)
	id := score.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO priority_scores (id, user_id, task_id, score, explanation, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, task_id) DO UPDATE SET
			score = excluded.score,
			explanation = excluded.explanation,
			updated_at = excluded.updated_at
	`,
		id.String(), score.UserID.String(), score.TaskID.String(),
		score.Score, score.Explanation, score.UpdatedAt.Format(time.RFC3339),
	)
	return err
}

// ListByUser returns all stored scores for a user.
func (r *SQLitePriorityScoreRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]task.PriorityScore, error) {
	q := r.querier(ctx)
	rows, err := q.QueryContext(ctx, `
		SELECT id, user_id, task_id, score, explanation, updated_at
		FROM priority_scores WHERE user_id = ?
	`, userID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scores []task.PriorityScore
	for rows.Next() {
		var idStr, userIDStr, taskIDStr, explanation, updatedAt string
		var score float64
		if err := rows.Scan(&idStr, &userIDStr, &taskIDStr, &score, &explanation, &updatedAt); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, err
		}
		uid, err := uuid.Parse(userIDStr)
		if err != nil {
			return nil, err
		}
		tid, err := uuid.Parse(taskIDStr)
		if err != nil {
			return nil, err
		}
		updated, err := time.Parse(time.RFC3339, updatedAt)
		if err != nil {
			return nil, err
		}
		scores = append(scores, task.PriorityScore{
			ID: id, UserID: uid, TaskID: tid, Score: score, Explanation: explanation, UpdatedAt: updated,
		})
	}
	return scores, rows.Err()
}

// DeleteByUser removes all stored scores for a user.
func (r *SQLitePriorityScoreRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	q := r.querier(ctx)
	_, err := q.ExecContext(ctx, `DELETE FROM priority_scores WHERE user_id = ?`, userID.String())
	return err
}
