package orchestrator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/felixgeelhaar/pulse/internal/shared/infrastructure/cache"
)

// ConversationStateTTL is the hot-cache lifetime for a ConversationState.
const ConversationStateTTL = time.Hour

// ClarificationTimeout is how long a pending clarification stays valid.
const ClarificationTimeout = 5 * time.Minute

// ConversationStateManager stores per-conversation dialog state in a
// TTL-backed cache; every mutation refreshes the TTL and rewrites the whole
// record, and expired clarifications are dropped on read.
type ConversationStateManager struct {
	store cache.Cache
}

// NewConversationStateManager creates a ConversationStateManager.
func NewConversationStateManager(store cache.Cache) *ConversationStateManager {
	return &ConversationStateManager{store: store}
}

func stateKey(conversationID string) string { return "conv_state:" + conversationID }

// Get returns the state for a conversation, creating a fresh one on a cache miss.
func (m *ConversationStateManager) Get(ctx context.Context, conversationID, userID string) (*ConversationState, error) {
	raw, err := m.store.Get(ctx, stateKey(conversationID))
	if err != nil {
		return NewConversationState(conversationID, userID), nil
	}
	var state ConversationState
	if err := json.Unmarshal(raw, &state); err != nil {
		return NewConversationState(conversationID, userID), nil
	}
	state.MostRecentPending(time.Now()) // drop expired, trims state.Pending in place
	return &state, nil
}

// Save persists the state and refreshes its TTL.
func (m *ConversationStateManager) Save(ctx context.Context, state *ConversationState) error {
	state.LastActivity = time.Now()
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return m.store.SetEX(ctx, stateKey(state.ConversationID), raw, ConversationStateTTL)
}

// AddClarification appends a pending clarification with the default timeout.
func (m *ConversationStateManager) AddClarification(state *ConversationState, question string, ctxData map[string]any, expectedType string) ClarificationRequest {
	now := time.Now()
	req := ClarificationRequest{
		ID:                   question + "-" + now.Format(time.RFC3339Nano),
		Question:             question,
		Context:              ctxData,
		ExpectedResponseType: expectedType,
		CreatedAt:            now,
		Timeout:              now.Add(ClarificationTimeout),
	}
	state.Pending = append(state.Pending, req)
	return req
}

// SwitchWorkflow changes the active workflow and clears pending clarifications.
func (m *ConversationStateManager) SwitchWorkflow(state *ConversationState, workflow WorkflowType) {
	state.ActiveWorkflow = workflow
	state.ClearPending()
}
