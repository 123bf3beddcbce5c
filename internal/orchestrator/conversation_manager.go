package orchestrator

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/felixgeelhaar/pulse/internal/shared/infrastructure/cache"
	"github.com/google/uuid"
)

// RecentTurnCacheSize is how many turns are kept hot per conversation.
const RecentTurnCacheSize = 20

// RecentTurnCacheTTL is the TTL on the hot-turn cache entry.
const RecentTurnCacheTTL = 24 * time.Hour

// SummaryAfterTurns is the persistent turn count AppendTurn checks for. Reaching
// it records no flag and starts no summarization; nothing in this package
// writes a summary.
const SummaryAfterTurns = 30

// ConversationRepository is the persistent store ConversationManager reads
// the full turn history from, beyond what the hot cache holds.
type ConversationRepository interface {
	SaveConversation(ctx context.Context, c Conversation) error
	GetConversation(ctx context.Context, id string) (Conversation, error)
	AppendTurn(ctx context.Context, turn ChatTurn) error
	ListTurns(ctx context.Context, conversationID string, limit int, before time.Time) ([]ChatTurn, error)
	CountTurns(ctx context.Context, conversationID string) (int, error)
	GetSummary(ctx context.Context, conversationID string) (string, bool, error)
}

// ConversationManager maintains a recent-turn hot cache on top of a
// persistent ConversationRepository, and derives short conversation titles.
type ConversationManager struct {
	repo  ConversationRepository
	cache cache.Cache
}

// NewConversationManager creates a ConversationManager.
func NewConversationManager(repo ConversationRepository, c cache.Cache) *ConversationManager {
	return &ConversationManager{repo: repo, cache: c}
}

func turnsCacheKey(conversationID string) string { return "conversation_turns:" + conversationID }

func (m *ConversationManager) hotTurns(ctx context.Context, conversationID string) []ChatTurn {
	raw, err := m.cache.Get(ctx, turnsCacheKey(conversationID))
	if err != nil {
		return nil
	}
	var turns []ChatTurn
	if err := json.Unmarshal(raw, &turns); err != nil {
		return nil
	}
	return turns
}

func (m *ConversationManager) setHotTurns(ctx context.Context, conversationID string, turns []ChatTurn) {
	if len(turns) > RecentTurnCacheSize {
		turns = turns[len(turns)-RecentTurnCacheSize:]
	}
	raw, err := json.Marshal(turns)
	if err != nil {
		return
	}
	_ = m.cache.SetEX(ctx, turnsCacheKey(conversationID), raw, RecentTurnCacheTTL)
}

// AppendTurn persists a turn, updates the hot cache, and on the first user
// turn of a titleless conversation derives a short title.
func (m *ConversationManager) AppendTurn(ctx context.Context, conversationID, userID string, role ChatRole, content string, metadata map[string]any) (ChatTurn, error) {
	turn := ChatTurn{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Metadata:       metadata,
		Timestamp:      time.Now(),
	}
	if err := m.repo.AppendTurn(ctx, turn); err != nil {
		return turn, err
	}

	hot := append(m.hotTurns(ctx, conversationID), turn)
	m.setHotTurns(ctx, conversationID, hot)

	if role == RoleUser {
		if conv, err := m.repo.GetConversation(ctx, conversationID); err == nil && conv.Title == "" {
			conv.Title = deriveTitle(content)
			_ = m.repo.SaveConversation(ctx, conv)
		}
	}

	if count, err := m.repo.CountTurns(ctx, conversationID); err == nil && count == SummaryAfterTurns {
		// The threshold is detected here only; no flag is stored for it.
		_ = count
	}

	return turn, nil
}

// GetHistory drains the hot cache first, then fills any remainder from the
// persistent store, optionally prepending a system turn carrying a stored summary.
func (m *ConversationManager) GetHistory(ctx context.Context, conversationID string, limit int, includeSummary bool) ([]ChatTurn, error) {
	if limit <= 0 || limit > RecentTurnCacheSize {
		limit = RecentTurnCacheSize
	}
	hot := m.hotTurns(ctx, conversationID)
	var turns []ChatTurn
	if len(hot) >= limit {
		turns = hot[len(hot)-limit:]
	} else {
		need := limit - len(hot)
		var before time.Time
		if len(hot) > 0 {
			before = hot[0].Timestamp
		} else {
			before = time.Now()
		}
		older, err := m.repo.ListTurns(ctx, conversationID, need, before)
		if err != nil {
			return nil, err
		}
		turns = append(older, hot...)
	}

	if includeSummary {
		if summary, ok, err := m.repo.GetSummary(ctx, conversationID); err == nil && ok {
			sysTurn := ChatTurn{ConversationID: conversationID, Role: RoleSystem, Content: summary, Timestamp: time.Now()}
			turns = append([]ChatTurn{sysTurn}, turns...)
		}
	}
	return turns, nil
}

func deriveTitle(message string) string {
	words := strings.Fields(message)
	if len(words) > 5 {
		words = words[:5]
	}
	title := strings.Join(words, " ")
	if title == "" {
		return "New conversation"
	}
	return title
}
