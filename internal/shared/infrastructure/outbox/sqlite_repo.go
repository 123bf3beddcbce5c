package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	sharedPersistence "github.com/felixgeelhaar/pulse/internal/shared/infrastructure/persistence"
	"github.com/google/uuid"
)

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	dbConn *sql.DB
}

// NewSQLiteRepository creates a new SQLite outbox repository.
func NewSQLiteRepository(dbConn *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{dbConn: dbConn}
}

func (r *SQLiteRepository) querier(ctx context.Context) interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
} {
	if info, ok := sharedPersistence.SQLiteTxInfoFromContext(ctx); ok {
		return info.Tx
	}
	return r.dbConn
}

// Save stores a new outbox message.
func (r *SQLiteRepository) Save(ctx context.Context, msg *Message) error {
	q := r.querier(ctx)
	result, err := q.ExecContext(ctx, `
		INSERT INTO outbox (
			event_id, aggregate_type, aggregate_id, event_type, routing_key,
			payload, metadata, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		msg.EventID.String(), msg.AggregateType, msg.AggregateID.String(), msg.EventType, msg.RoutingKey,
		string(msg.Payload), nullableString(string(msg.Metadata)), msg.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	msg.ID = id
	return nil
}

// SaveBatch stores multiple outbox messages atomically.
func (r *SQLiteRepository) SaveBatch(ctx context.Context, msgs []*Message) error {
	if len(msgs) == 0 {
		return nil
	}

	if _, ok := sharedPersistence.SQLiteTxInfoFromContext(ctx); ok {
		q := r.querier(ctx)
		for _, msg := range msgs {
			if err := r.insertMessage(ctx, q, msg); err != nil {
				return err
			}
		}
		return nil
	}

	tx, err := r.dbConn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, msg := range msgs {
		if err := r.insertMessage(ctx, tx, msg); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *SQLiteRepository) insertMessage(ctx context.Context, q interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}, msg *Message) error {
	result, err := q.ExecContext(ctx, `
		INSERT INTO outbox (
			event_id, aggregate_type, aggregate_id, event_type, routing_key,
			payload, metadata, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		msg.EventID.String(), msg.AggregateType, msg.AggregateID.String(), msg.EventType, msg.RoutingKey,
		string(msg.Payload), nullableString(string(msg.Metadata)), msg.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	msg.ID = id
	return nil
}

// GetUnpublished retrieves unpublished messages ordered by creation time.
func (r *SQLiteRepository) GetUnpublished(ctx context.Context, limit int) ([]*Message, error) {
	q := r.querier(ctx)
	rows, err := q.QueryContext(ctx, `
		SELECT id, event_id, aggregate_type, aggregate_id, event_type, routing_key,
		       payload, metadata, created_at, published_at, next_retry_at, retry_count,
		       last_error, dead_lettered_at, dead_letter_reason
		FROM outbox
		WHERE published_at IS NULL
		  AND dead_lettered_at IS NULL
		  AND (next_retry_at IS NULL OR next_retry_at <= ?)
		ORDER BY created_at
		LIMIT ?
	`, time.Now().Format(time.RFC3339), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOutboxMessages(rows)
}

// MarkPublished marks a message as successfully published.
func (r *SQLiteRepository) MarkPublished(ctx context.Context, id int64) error {
	q := r.querier(ctx)
	_, err := q.ExecContext(ctx, `UPDATE outbox SET published_at = ?, dead_lettered_at = NULL WHERE id = ?`,
		time.Now().Format(time.RFC3339), id)
	return err
}

// MarkFailed records a publish failure with error message.
func (r *SQLiteRepository) MarkFailed(ctx context.Context, id int64, errMsg string, nextRetryAt time.Time) error {
	q := r.querier(ctx)
	_, err := q.ExecContext(ctx, `
		UPDATE outbox
		SET retry_count = retry_count + 1, last_error = ?, next_retry_at = ?
		WHERE id = ?
	`, errMsg, nextRetryAt.Format(time.RFC3339), id)
	return err
}

// MarkDead marks a message as dead-lettered.
func (r *SQLiteRepository) MarkDead(ctx context.Context, id int64, reason string) error {
	q := r.querier(ctx)
	_, err := q.ExecContext(ctx, `
		UPDATE outbox SET dead_lettered_at = ?, dead_letter_reason = ? WHERE id = ?
	`, time.Now().Format(time.RFC3339), reason, id)
	return err
}

// GetFailed retrieves failed messages eligible for retry.
func (r *SQLiteRepository) GetFailed(ctx context.Context, maxRetries, limit int) ([]*Message, error) {
	q := r.querier(ctx)
	rows, err := q.QueryContext(ctx, `
		SELECT id, event_id, aggregate_type, aggregate_id, event_type, routing_key,
		       payload, metadata, created_at, published_at, next_retry_at, retry_count,
		       last_error, dead_lettered_at, dead_letter_reason
		FROM outbox
		WHERE published_at IS NULL
		  AND dead_lettered_at IS NULL
		  AND retry_count > 0
		  AND retry_count < ?
		  AND (next_retry_at IS NULL OR next_retry_at <= ?)
		ORDER BY created_at
		LIMIT ?
	`, maxRetries, time.Now().Format(time.RFC3339), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOutboxMessages(rows)
}

// DeleteOld removes successfully published messages older than the retention period.
func (r *SQLiteRepository) DeleteOld(ctx context.Context, olderThanDays int) (int64, error) {
	q := r.querier(ctx)
	cutoff := time.Now().AddDate(0, 0, -olderThanDays).Format(time.RFC3339)
	result, err := q.ExecContext(ctx, `
		DELETE FROM outbox WHERE published_at IS NOT NULL AND published_at <= ?
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanOutboxMessages(rows *sql.Rows) ([]*Message, error) {
	messages := make([]*Message, 0)
	for rows.Next() {
		var (
			id                                                                 int64
			eventIDStr, aggregateType, aggregateIDStr, eventType, routingKey    string
			payload, createdAtStr                                              string
			metadata, publishedAtStr, nextRetryAtStr, lastError, deadLetterRsn sql.NullString
			deadLetteredAtStr                                                  sql.NullString
			retryCount                                                        int64
		)
		if err := rows.Scan(
			&id, &eventIDStr, &aggregateType, &aggregateIDStr, &eventType, &routingKey,
			&payload, &metadata, &createdAtStr, &publishedAtStr, &nextRetryAtStr, &retryCount,
			&lastError, &deadLetteredAtStr, &deadLetterRsn,
		); err != nil {
			return nil, err
		}

		eventID, _ := uuid.Parse(eventIDStr)
		aggregateID, _ := uuid.Parse(aggregateIDStr)
		createdAt, _ := time.Parse(time.RFC3339, createdAtStr)

		msg := &Message{
			ID:            id,
			EventID:       eventID,
			AggregateType: aggregateType,
			AggregateID:   aggregateID,
			EventType:     eventType,
			RoutingKey:    routingKey,
			Payload:       json.RawMessage(payload),
			CreatedAt:     createdAt,
			RetryCount:    int(retryCount),
		}

		if metadata.Valid {
			msg.Metadata = json.RawMessage(metadata.String)
		}
		if publishedAtStr.Valid {
			t, _ := time.Parse(time.RFC3339, publishedAtStr.String)
			msg.PublishedAt = &t
		}
		if nextRetryAtStr.Valid {
			t, _ := time.Parse(time.RFC3339, nextRetryAtStr.String)
			msg.NextRetryAt = &t
		}
		if lastError.Valid {
			msg.LastError = &lastError.String
		}
		if deadLetteredAtStr.Valid {
			t, _ := time.Parse(time.RFC3339, deadLetteredAtStr.String)
			msg.DeadLetteredAt = &t
		}
		if deadLetterRsn.Valid {
			msg.DeadLetterReason = &deadLetterRsn.String
		}

		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
