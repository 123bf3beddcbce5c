package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/felixgeelhaar/pulse/internal/orchestrator"
	sharedPersistence "github.com/felixgeelhaar/pulse/internal/shared/infrastructure/persistence"
)

// SQLiteAgentTaskRepository implements orchestrator.AgentTaskRepository
// against the "agent_task_cards" table.
type SQLiteAgentTaskRepository struct {
	dbConn *sql.DB
}

// NewSQLiteAgentTaskRepository creates a SQLiteAgentTaskRepository.
func NewSQLiteAgentTaskRepository(dbConn *sql.DB) *SQLiteAgentTaskRepository {
	return &SQLiteAgentTaskRepository{dbConn: dbConn}
}

func (r *SQLiteAgentTaskRepository) querier(ctx context.Context) sqliteQuerier {
	if info, ok := sharedPersistence.SQLiteTxInfoFromContext(ctx); ok {
		return info.Tx
	}
	return r.dbConn
}

// Upsert writes the card's current snapshot, replacing any prior row.
func (r *SQLiteAgentTaskRepository) Upsert(ctx context.Context, card orchestrator.AgentTaskCard) error {
	q := r.querier(ctx)
	steps, err := json.Marshal(card.Steps)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO agent_task_cards (
			id, user_id, conversation_id, workflow, title, description, status,
			progress, current_step, steps, can_cancel, error_message, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			progress = excluded.progress,
			current_step = excluded.current_step,
			steps = excluded.steps,
			error_message = excluded.error_message,
			updated_at = excluded.updated_at
	`,
		card.ID, card.UserID, card.ConversationID, string(card.WorkflowType), card.Title, card.Description,
		string(card.Status), card.Progress, currentStepName(card), string(steps), boolToInt(card.CanCancel),
		card.ErrorMessage, card.CreatedAt.Format(time.RFC3339), card.UpdatedAt.Format(time.RFC3339),
	)
	return err
}

func currentStepName(card orchestrator.AgentTaskCard) string {
	for _, s := range card.Steps {
		if s.Status == orchestrator.StepInProgress {
			return s.Name
		}
	}
	return ""
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// GetCard loads a persisted card by id, for recovery after a process restart.
func (r *SQLiteAgentTaskRepository) GetCard(ctx context.Context, id string) (orchestrator.AgentTaskCard, error) {
	q := r.querier(ctx)
	row := q.QueryRowContext(ctx, `
		SELECT id, user_id, conversation_id, workflow, title, description, status,
		       progress, steps, can_cancel, error_message, created_at, updated_at
		FROM agent_task_cards WHERE id = ?
	`, id)

	var (
		card                                    orchestrator.AgentTaskCard
		workflow, status, stepsJSON, createdAt, updatedAt string
		canCancel                                int
	)
	if err := row.Scan(&card.ID, &card.UserID, &card.ConversationID, &workflow, &card.Title,
		&card.Description, &status, &card.Progress, &stepsJSON, &canCancel, &card.ErrorMessage,
		&createdAt, &updatedAt); err != nil {
		return orchestrator.AgentTaskCard{}, err
	}
	card.WorkflowType = orchestrator.WorkflowType(workflow)
	card.Status = orchestrator.TaskCardStatus(status)
	card.CanCancel = canCancel != 0
	if err := json.Unmarshal([]byte(stepsJSON), &card.Steps); err != nil {
		return orchestrator.AgentTaskCard{}, err
	}
	created, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return orchestrator.AgentTaskCard{}, err
	}
	updated, err := time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return orchestrator.AgentTaskCard{}, err
	}
	card.CreatedAt, card.UpdatedAt = created, updated
	return card, nil
}
