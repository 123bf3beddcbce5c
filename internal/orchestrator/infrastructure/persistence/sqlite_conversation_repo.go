package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/felixgeelhaar/pulse/internal/orchestrator"
	sharedPersistence "github.com/felixgeelhaar/pulse/internal/shared/infrastructure/persistence"
)

// sqliteQuerier is satisfied by both *sql.DB and *sql.Tx, letting the
// conversation store run inside an ambient transaction when one is present.
type sqliteQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conversationHeaderRole is the sentinel role for the one row per conversation
// that carries title/isActive bookkeeping alongside the turn rows.
const conversationHeaderRole = "_header"

// SQLiteConversationRepository implements orchestrator.ConversationRepository
// against the "conversations" table, one row per turn plus one header row
// per conversation, grouped by conversation_id.
type SQLiteConversationRepository struct {
	dbConn *sql.DB
}

// NewSQLiteConversationRepository creates a SQLiteConversationRepository.
func NewSQLiteConversationRepository(dbConn *sql.DB) *SQLiteConversationRepository {
	return &SQLiteConversationRepository{dbConn: dbConn}
}

func (r *SQLiteConversationRepository) querier(ctx context.Context) sqliteQuerier {
	if info, ok := sharedPersistence.SQLiteTxInfoFromContext(ctx); ok {
		return info.Tx
	}
	return r.dbConn
}

type conversationHeaderBody struct {
	Title         string    `json:"title"`
	IsActive      bool      `json:"is_active"`
	LastMessageAt time.Time `json:"last_message_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// SaveConversation upserts the conversation's header row.
func (r *SQLiteConversationRepository) SaveConversation(ctx context.Context, c orchestrator.Conversation) error {
	q := r.querier(ctx)
	body, err := json.Marshal(conversationHeaderBody{
		Title: c.Title, IsActive: c.IsActive, LastMessageAt: c.LastMessageAt, UpdatedAt: time.Now(),
	})
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO conversations (id, conversation_id, user_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET content = excluded.content
	`, c.ID, c.ID, c.UserID, conversationHeaderRole, string(body), c.CreatedAt.Format(time.RFC3339))
	return err
}

// GetConversation loads the conversation header row.
func (r *SQLiteConversationRepository) GetConversation(ctx context.Context, conversationID string) (orchestrator.Conversation, error) {
	q := r.querier(ctx)
	row := q.QueryRowContext(ctx, `
		SELECT user_id, content, created_at FROM conversations
		WHERE conversation_id = ? AND role = ?
	`, conversationID, conversationHeaderRole)

	var userID, content, createdAt string
	if err := row.Scan(&userID, &content, &createdAt); err != nil {
		return orchestrator.Conversation{}, err
	}

	var body conversationHeaderBody
	if err := json.Unmarshal([]byte(content), &body); err != nil {
		return orchestrator.Conversation{}, err
	}
	created, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return orchestrator.Conversation{}, err
	}

	return orchestrator.Conversation{
		ID: conversationID, UserID: userID, Title: body.Title, IsActive: body.IsActive,
		LastMessageAt: body.LastMessageAt, CreatedAt: created, UpdatedAt: body.UpdatedAt,
	}, nil
}

// AppendTurn inserts a turn row, creating the conversation header first if absent.
func (r *SQLiteConversationRepository) AppendTurn(ctx context.Context, turn orchestrator.ChatTurn) error {
	q := r.querier(ctx)
	userID := userIDFromTurn(turn)
	if _, err := r.GetConversation(ctx, turn.ConversationID); err != nil {
		header := orchestrator.Conversation{
			ID: turn.ConversationID, UserID: userID, IsActive: true,
			CreatedAt: turn.Timestamp, LastMessageAt: turn.Timestamp, UpdatedAt: turn.Timestamp,
		}
		if err := r.SaveConversation(ctx, header); err != nil {
			return err
		}
	}

	body, err := json.Marshal(turnBody{Text: turn.Content, Metadata: turn.Metadata})
	if err != nil {
		return err
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO conversations (id, conversation_id, user_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, turn.ID, turn.ConversationID, userID, string(turn.Role), string(body), turn.Timestamp.Format(time.RFC3339))
	return err
}

type turnBody struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

func userIDFromTurn(turn orchestrator.ChatTurn) string {
	if uid, ok := turn.Metadata["user_id"].(string); ok {
		return uid
	}
	return ""
}

// ListTurns returns up to limit turns for conversationID strictly before
// the given time, oldest first.
func (r *SQLiteConversationRepository) ListTurns(ctx context.Context, conversationID string, limit int, before time.Time) ([]orchestrator.ChatTurn, error) {
	q := r.querier(ctx)
	rows, err := q.QueryContext(ctx, `
		SELECT id, role, content, created_at FROM conversations
		WHERE conversation_id = ? AND role != ? AND created_at < ?
		ORDER BY created_at DESC LIMIT ?
	`, conversationID, conversationHeaderRole, before.Format(time.RFC3339), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []orchestrator.ChatTurn
	for rows.Next() {
		var id, role, content, createdAt string
		if err := rows.Scan(&id, &role, &content, &createdAt); err != nil {
			return nil, err
		}
		turn, err := decodeTurn(id, conversationID, role, content, createdAt)
		if err != nil {
			return nil, err
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

func decodeTurn(id, conversationID, role, content, createdAt string) (orchestrator.ChatTurn, error) {
	var body turnBody
	if err := json.Unmarshal([]byte(content), &body); err != nil {
		return orchestrator.ChatTurn{}, err
	}
	ts, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return orchestrator.ChatTurn{}, err
	}
	return orchestrator.ChatTurn{
		ID: id, ConversationID: conversationID, Role: orchestrator.ChatRole(role),
		Content: body.Text, Metadata: body.Metadata, Timestamp: ts,
	}, nil
}

// CountTurns counts non-header rows for a conversation.
func (r *SQLiteConversationRepository) CountTurns(ctx context.Context, conversationID string) (int, error) {
	q := r.querier(ctx)
	row := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM conversations WHERE conversation_id = ? AND role != ?
	`, conversationID, conversationHeaderRole)
	var count int
	err := row.Scan(&count)
	return count, err
}

// GetSummary is a stub: offline summarization has no writer yet, so every
// conversation reports no stored summary until that job exists.
func (r *SQLiteConversationRepository) GetSummary(ctx context.Context, conversationID string) (string, bool, error) {
	return "", false, nil
}
