package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sharedPersistence "github.com/felixgeelhaar/pulse/internal/shared/infrastructure/persistence"
	"github.com/google/uuid"
)

// SQLiteSettingsRepository handles persistence for user settings using SQLite.
type SQLiteSettingsRepository struct {
	dbConn *sql.DB
}

// NewSQLiteSettingsRepository creates a new SQLiteSettingsRepository.
func NewSQLiteSettingsRepository(dbConn *sql.DB) *SQLiteSettingsRepository {
	return &SQLiteSettingsRepository{dbConn: dbConn}
}

func (r *SQLiteSettingsRepository) querier(ctx context.Context) interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
} {
	if info, ok := sharedPersistence.SQLiteTxInfoFromContext(ctx); ok {
		return info.Tx
	}
	return r.dbConn
}

// GetCalendarID returns the stored calendar ID for a user.
func (r *SQLiteSettingsRepository) GetCalendarID(ctx context.Context, userID uuid.UUID) (string, error) {
	q := r.querier(ctx)
	var calendarID sql.NullString
	err := q.QueryRowContext(ctx, `SELECT calendar_id FROM user_settings WHERE user_id = ?`, userID.String()).Scan(&calendarID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return calendarID.String, nil
}

// SetCalendarID upserts the calendar ID for a user.
func (r *SQLiteSettingsRepository) SetCalendarID(ctx context.Context, userID uuid.UUID, calendarID string) error {
	q := r.querier(ctx)
	_, err := q.ExecContext(ctx, `
		INSERT INTO user_settings (user_id, calendar_id, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET calendar_id = excluded.calendar_id, updated_at = excluded.updated_at
	`, userID.String(), calendarID, time.Now().Format(time.RFC3339))
	return err
}

// GetDeleteMissing returns the stored delete-missing preference.
func (r *SQLiteSettingsRepository) GetDeleteMissing(ctx context.Context, userID uuid.UUID) (bool, error) {
	q := r.querier(ctx)
	var deleteMissing sql.NullInt64
	err := q.QueryRowContext(ctx, `SELECT delete_missing FROM user_settings WHERE user_id = ?`, userID.String()).Scan(&deleteMissing)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return deleteMissing.Int64 != 0, nil
}

// SetDeleteMissing upserts the delete-missing preference.
func (r *SQLiteSettingsRepository) SetDeleteMissing(ctx context.Context, userID uuid.UUID, deleteMissing bool) error {
	q := r.querier(ctx)
	var value int64
	if deleteMissing {
		value = 1
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO user_settings (user_id, delete_missing, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET delete_missing = excluded.delete_missing, updated_at = excluded.updated_at
	`, userID.String(), value, time.Now().Format(time.RFC3339))
	return err
}
