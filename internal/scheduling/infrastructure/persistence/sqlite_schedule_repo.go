package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/felixgeelhaar/pulse/internal/scheduling/domain"
	sharedPersistence "github.com/felixgeelhaar/pulse/internal/shared/infrastructure/persistence"
	"github.com/google/uuid"
)

// sqliteQuerier is the subset of *sql.DB/*sql.Tx the repository needs, letting
// it run inside an ambient unit-of-work transaction transparently.
type sqliteQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteScheduleRepository implements domain.ScheduleRepository using SQLite.
type SQLiteScheduleRepository struct {
	dbConn *sql.DB
}

// NewSQLiteScheduleRepository creates a new SQLite schedule repository.
func NewSQLiteScheduleRepository(dbConn *sql.DB) *SQLiteScheduleRepository {
	return &SQLiteScheduleRepository{dbConn: dbConn}
}

func (r *SQLiteScheduleRepository) querier(ctx context.Context) sqliteQuerier {
	if info, ok := sharedPersistence.SQLiteTxInfoFromContext(ctx); ok {
		return info.Tx
	}
	return r.dbConn
}

// Save persists a schedule to the database.
func (r *SQLiteScheduleRepository) Save(ctx context.Context, schedule *domain.Schedule) error {
	q := r.querier(ctx)

	_, err := q.ExecContext(ctx, `
		INSERT INTO schedules (id, user_id, schedule_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at
	`,
		schedule.ID().String(),
		schedule.UserID().String(),
		schedule.Date().Format("2006-01-02"),
		schedule.CreatedAt().Format(time.RFC3339),
		schedule.UpdatedAt().Format(time.RFC3339),
	)
	if err != nil {
		return err
	}

	if _, err := q.ExecContext(ctx, `DELETE FROM time_blocks WHERE schedule_id = ?`, schedule.ID().String()); err != nil {
		return err
	}

	for _, block := range schedule.Blocks() {
		var refID sql.NullString
		if block.ReferenceID() != uuid.Nil {
			refID = sql.NullString{String: block.ReferenceID().String(), Valid: true}
		}
		_, err := q.ExecContext(ctx, `
			INSERT INTO time_blocks (
				id, user_id, schedule_id, block_type, reference_id, title,
				start_time, end_time, completed, missed, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			block.ID().String(),
			block.UserID().String(),
			block.ScheduleID().String(),
			string(block.BlockType()),
			refID,
			block.Title(),
			block.StartTime().Format(time.RFC3339),
			block.EndTime().Format(time.RFC3339),
			boolToInt64(block.IsCompleted()),
			boolToInt64(block.IsMissed()),
			block.CreatedAt().Format(time.RFC3339),
			block.UpdatedAt().Format(time.RFC3339),
		)
		if err != nil {
			return err
		}
	}

	return nil
}

// FindByID retrieves a schedule by its ID.
func (r *SQLiteScheduleRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Schedule, error) {
	q := r.querier(ctx)
	row := q.QueryRowContext(ctx, `
		SELECT id, user_id, schedule_date, created_at, updated_at FROM schedules WHERE id = ?
	`, id.String())

	schedule, err := r.scanSchedule(ctx, row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return schedule, err
}

// FindByUserAndDate finds a schedule for a user on a specific date.
func (r *SQLiteScheduleRepository) FindByUserAndDate(ctx context.Context, userID uuid.UUID, date time.Time) (*domain.Schedule, error) {
	q := r.querier(ctx)
	dateOnly := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	row := q.QueryRowContext(ctx, `
		SELECT id, user_id, schedule_date, created_at, updated_at
		FROM schedules WHERE user_id = ? AND schedule_date = ?
	`, userID.String(), dateOnly.Format("2006-01-02"))

	schedule, err := r.scanSchedule(ctx, row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return schedule, err
}

// FindByUserDateRange finds schedules for a user within a date range.
func (r *SQLiteScheduleRepository) FindByUserDateRange(ctx context.Context, userID uuid.UUID, startDate, endDate time.Time) ([]*domain.Schedule, error) {
	q := r.querier(ctx)
	start := time.Date(startDate.Year(), startDate.Month(), startDate.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(endDate.Year(), endDate.Month(), endDate.Day(), 0, 0, 0, 0, time.UTC)

	rows, err := q.QueryContext(ctx, `
		SELECT id, user_id, schedule_date, created_at, updated_at
		FROM schedules WHERE user_id = ? AND schedule_date >= ? AND schedule_date <= ?
		ORDER BY schedule_date
	`, userID.String(), start.Format("2006-01-02"), end.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	schedules := make([]*domain.Schedule, 0)
	for rows.Next() {
		id, userIDStr, dateStr, createdAt, updatedAt, err := r.scanScheduleRow(rows)
		if err != nil {
			return nil, err
		}
		scheduleID, _ := uuid.Parse(id)
		blocks, err := r.loadTimeBlocks(ctx, scheduleID)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, r.rowToSchedule(id, userIDStr, dateStr, createdAt, updatedAt, blocks))
	}
	return schedules, rows.Err()
}

// Delete removes a schedule from the database.
func (r *SQLiteScheduleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	q := r.querier(ctx)
	_, err := q.ExecContext(ctx, `DELETE FROM schedules WHERE id = ?`, id.String())
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SQLiteScheduleRepository) scanScheduleRow(s rowScanner) (id, userID, dateStr, createdAt, updatedAt string, err error) {
	err = s.Scan(&id, &userID, &dateStr, &createdAt, &updatedAt)
	return
}

func (r *SQLiteScheduleRepository) scanSchedule(ctx context.Context, row *sql.Row) (*domain.Schedule, error) {
	id, userID, dateStr, createdAt, updatedAt, err := r.scanScheduleRow(row)
	if err != nil {
		return nil, err
	}
	scheduleID, _ := uuid.Parse(id)
	blocks, err := r.loadTimeBlocks(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	return r.rowToSchedule(id, userID, dateStr, createdAt, updatedAt, blocks), nil
}

func (r *SQLiteScheduleRepository) loadTimeBlocks(ctx context.Context, scheduleID uuid.UUID) ([]*domain.TimeBlock, error) {
	q := r.querier(ctx)
	rows, err := q.QueryContext(ctx, `
		SELECT id, user_id, schedule_id, block_type, reference_id, title,
		       start_time, end_time, completed, missed, created_at, updated_at
		FROM time_blocks WHERE schedule_id = ? ORDER BY start_time
	`, scheduleID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	blocks := make([]*domain.TimeBlock, 0)
	for rows.Next() {
		var idStr, userIDStr, sidStr, blockType, title, startStr, endStr, createdStr, updatedStr string
		var refID sql.NullString
		var completed, missed int64
		if err := rows.Scan(&idStr, &userIDStr, &sidStr, &blockType, &refID, &title,
			&startStr, &endStr, &completed, &missed, &createdStr, &updatedStr); err != nil {
			return nil, err
		}

		id, _ := uuid.Parse(idStr)
		userID, _ := uuid.Parse(userIDStr)
		sid, _ := uuid.Parse(sidStr)
		startTime, _ := time.Parse(time.RFC3339, startStr)
		endTime, _ := time.Parse(time.RFC3339, endStr)
		createdAt, _ := time.Parse(time.RFC3339, createdStr)
		updatedAt, _ := time.Parse(time.RFC3339, updatedStr)

		refUUID := uuid.Nil
		if refID.Valid {
			refUUID, _ = uuid.Parse(refID.String)
		}

		blocks = append(blocks, domain.RehydrateTimeBlock(
			id, userID, sid, domain.BlockType(blockType), refUUID, title,
			startTime, endTime, completed != 0, missed != 0, createdAt, updatedAt,
		))
	}
	return blocks, rows.Err()
}

func (r *SQLiteScheduleRepository) rowToSchedule(id, userID, dateStr, createdStr, updatedStr string, blocks []*domain.TimeBlock) *domain.Schedule {
	scheduleID, _ := uuid.Parse(id)
	ownerID, _ := uuid.Parse(userID)
	scheduleDate, _ := time.Parse("2006-01-02", dateStr)
	createdAt, _ := time.Parse(time.RFC3339, createdStr)
	updatedAt, _ := time.Parse(time.RFC3339, updatedStr)
	return domain.RehydrateSchedule(scheduleID, ownerID, scheduleDate, blocks, createdAt, updatedAt)
}

func boolToInt64(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
