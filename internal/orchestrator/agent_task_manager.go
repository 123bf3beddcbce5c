package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/felixgeelhaar/pulse/pkg/observability"
	"github.com/google/uuid"
)

// AgentTaskRepository persists AgentTaskCards. Transient write failures are
// retried by the manager; non-transient ones are logged and the in-memory
// card state is kept authoritative regardless.
type AgentTaskRepository interface {
	Upsert(ctx context.Context, card AgentTaskCard) error
}

// retryDelays is the fixed exponential backoff schedule for transient writes.
var retryDelays = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

// AgentTaskManager owns the AgentTaskCard lifecycle: creation, progress and
// step updates, completion/failure/cancellation, websocket fan-out, and
// best-effort persistence with retry.
type AgentTaskManager struct {
	mu       sync.Mutex
	active   map[string]*AgentTaskCard
	repo     AgentTaskRepository
	notifier *WebSocketNotifier
	metrics  observability.Metrics
	logger   *slog.Logger
}

// NewAgentTaskManager creates an AgentTaskManager.
func NewAgentTaskManager(repo AgentTaskRepository, notifier *WebSocketNotifier, metrics observability.Metrics, logger *slog.Logger) *AgentTaskManager {
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AgentTaskManager{active: make(map[string]*AgentTaskCard), repo: repo, notifier: notifier, metrics: metrics, logger: logger}
}

// CreateWorkflowTask creates a new card in pending state and emits task_created.
func (m *AgentTaskManager) CreateWorkflowTask(ctx context.Context, userID, conversationID string, workflow WorkflowType, title, description string, steps []string, canCancel bool) *AgentTaskCard {
	now := time.Now()
	card := &AgentTaskCard{
		ID: uuid.NewString(), UserID: userID, ConversationID: conversationID,
		TaskType: string(workflow), Title: title, Description: description,
		Status: CardPending, WorkflowType: workflow, CanCancel: canCancel,
		CreatedAt: now, StartedAt: now, UpdatedAt: now,
	}
	for _, s := range steps {
		card.Steps = append(card.Steps, TaskStep{Name: s, Status: StepPending})
	}

	m.mu.Lock()
	m.active[card.ID] = card
	m.mu.Unlock()

	m.persist(ctx, *card)
	m.notifier.EmitToUser(userID, EventTaskCreated, conversationID, card)
	return card
}

func (m *AgentTaskManager) withCard(id string, fn func(*AgentTaskCard)) (*AgentTaskCard, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	card, ok := m.active[id]
	if !ok {
		return nil, false
	}
	fn(card)
	card.UpdatedAt = time.Now()
	return card, true
}

// UpdateTaskProgress advances percent complete and/or the named current step.
func (m *AgentTaskManager) UpdateTaskProgress(ctx context.Context, taskID string, progress *int, currentStep string) (*AgentTaskCard, bool) {
	card, ok := m.withCard(taskID, func(c *AgentTaskCard) {
		if progress != nil {
			c.Progress = *progress
		}
		if currentStep != "" {
			for i := range c.Steps {
				if c.Steps[i].Name == currentStep && c.Steps[i].Status == StepPending {
					c.Steps[i].Status = StepInProgress
					c.Steps[i].Timestamp = time.Now()
				}
			}
		}
		if c.Status == CardPending {
			c.Status = CardInProgress
		}
	})
	if !ok {
		return nil, false
	}
	m.persist(ctx, *card)
	m.notifier.EmitToUser(card.UserID, EventTaskProgress, card.ConversationID, card)
	return card, true
}

// CompleteTaskStep marks a named step complete and recomputes overall progress.
func (m *AgentTaskManager) CompleteTaskStep(ctx context.Context, taskID, stepName string, result map[string]any) (*AgentTaskCard, bool) {
	card, ok := m.withCard(taskID, func(c *AgentTaskCard) {
		completed := 0
		for i := range c.Steps {
			if c.Steps[i].Name == stepName {
				c.Steps[i].Status = StepCompleted
				c.Steps[i].Timestamp = time.Now()
				c.Steps[i].Details = result
			}
			if c.Steps[i].Status == StepCompleted {
				completed++
			}
		}
		if len(c.Steps) > 0 {
			c.Progress = completed * 100 / len(c.Steps)
		}
	})
	if !ok {
		return nil, false
	}
	m.persist(ctx, *card)
	m.notifier.EmitToUser(card.UserID, EventStepCompleted, card.ConversationID, card)
	return card, true
}

// CompleteTask marks every remaining step complete and the card completed.
func (m *AgentTaskManager) CompleteTask(ctx context.Context, taskID string, result map[string]any) (*AgentTaskCard, bool) {
	now := time.Now()
	card, ok := m.withCard(taskID, func(c *AgentTaskCard) {
		for i := range c.Steps {
			c.Steps[i].Status = StepCompleted
		}
		c.Status = CardCompleted
		c.Progress = 100
		c.Result = result
		c.CompletedAt = &now
	})
	if !ok {
		return nil, false
	}
	m.persist(ctx, *card)
	m.notifier.EmitToUser(card.UserID, EventTaskCompleted, card.ConversationID, card)
	m.scheduleCleanup(taskID, 60*time.Second)
	return card, true
}

// FailTask marks the card failed with errorMessage.
func (m *AgentTaskManager) FailTask(ctx context.Context, taskID, errorMessage string) (*AgentTaskCard, bool) {
	card, ok := m.withCard(taskID, func(c *AgentTaskCard) {
		c.Status = CardFailed
		c.ErrorMessage = errorMessage
	})
	if !ok {
		return nil, false
	}
	m.persist(ctx, *card)
	m.notifier.EmitToUser(card.UserID, EventTaskFailed, card.ConversationID, card)
	m.scheduleCleanup(taskID, 120*time.Second)
	return card, true
}

// CancelTask cancels a card if it allows cancellation.
func (m *AgentTaskManager) CancelTask(ctx context.Context, taskID, reason string) (*AgentTaskCard, bool, error) {
	m.mu.Lock()
	card, ok := m.active[taskID]
	if !ok {
		m.mu.Unlock()
		return nil, false, nil
	}
	if !card.CanCancel {
		m.mu.Unlock()
		return card, false, errors.New("task cannot be cancelled")
	}
	card.Status = CardCancelled
	card.ErrorMessage = reason
	card.UpdatedAt = time.Now()
	snapshot := *card
	delete(m.active, taskID)
	m.mu.Unlock()

	m.persist(ctx, snapshot)
	m.notifier.EmitToUser(snapshot.UserID, EventTaskCancelled, snapshot.ConversationID, snapshot)
	return &snapshot, true, nil
}

func (m *AgentTaskManager) scheduleCleanup(taskID string, after time.Duration) {
	go func() {
		time.Sleep(after)
		m.mu.Lock()
		delete(m.active, taskID)
		m.mu.Unlock()
	}()
}

// CRUDOutcome is the short-lived card emitted for direct entity CRUD (no workflow).
type CRUDOutcome struct {
	Operation              string `json:"operation"`
	EntityType             string `json:"entity_type"`
	EntityTitle            string `json:"entity_title"`
	EntityID               string `json:"entity_id,omitempty"`
	Details                string `json:"details,omitempty"`
	AcknowledgementMessage string `json:"acknowledgement_message,omitempty"`
}

// EmitCRUDResult emits a one-shot crud_success or crud_failure event.
func (m *AgentTaskManager) EmitCRUDResult(userID, conversationID string, outcome CRUDOutcome, success bool) {
	eventType := EventCRUDSuccess
	if !success {
		eventType = EventCRUDFailure
	}
	m.notifier.EmitToUser(userID, eventType, conversationID, outcome)
}

// persist writes the card with retry-on-transient-error: up to three retries
// after the first attempt, waiting 1s, 2s, 4s before them.
func (m *AgentTaskManager) persist(ctx context.Context, card AgentTaskCard) {
	var lastErr error
	for attempt := 0; attempt <= len(retryDelays); attempt++ {
		err := m.repo.Upsert(ctx, card)
		if err == nil {
			return
		}
		lastErr = err
		if !isTransient(err) {
			break
		}
		if attempt < len(retryDelays) {
			m.metrics.Counter(observability.MetricTaskCardRetry, 1)
			select {
			case <-time.After(retryDelays[attempt]):
			case <-ctx.Done():
				return
			}
		}
	}
	if lastErr != nil {
		m.logger.Error("failed to persist agent task card", "task_id", card.ID, "error", lastErr)
	}
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, marker := range []string{"timeout", "connection", "network", "gateway", "unavailable", "deadline exceeded"} {
		if contains(msg, marker) {
			return true
		}
	}
	return false
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
