package orchestrator_test

import (
	"context"
	"testing"
	"time"

	"github.com/felixgeelhaar/pulse/internal/orchestrator"
	"github.com/felixgeelhaar/pulse/internal/orchestrator/infrastructure/nlu"
	productivityCommands "github.com/felixgeelhaar/pulse/internal/productivity/application/commands"
	"github.com/felixgeelhaar/pulse/internal/productivity/domain/task"
	schedulingCommands "github.com/felixgeelhaar/pulse/internal/scheduling/application/commands"
	sharedApplication "github.com/felixgeelhaar/pulse/internal/shared/application"
	"github.com/felixgeelhaar/pulse/internal/shared/infrastructure/cache"
	"github.com/felixgeelhaar/pulse/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/pulse/pkg/observability"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConversationRepo struct {
	conversations map[string]orchestrator.Conversation
	turns         map[string][]orchestrator.ChatTurn
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{
		conversations: map[string]orchestrator.Conversation{},
		turns:         map[string][]orchestrator.ChatTurn{},
	}
}

func (f *fakeConversationRepo) SaveConversation(ctx context.Context, c orchestrator.Conversation) error {
	f.conversations[c.ID] = c
	return nil
}

func (f *fakeConversationRepo) GetConversation(ctx context.Context, id string) (orchestrator.Conversation, error) {
	return f.conversations[id], nil
}

func (f *fakeConversationRepo) AppendTurn(ctx context.Context, turn orchestrator.ChatTurn) error {
	f.turns[turn.ConversationID] = append(f.turns[turn.ConversationID], turn)
	return nil
}

func (f *fakeConversationRepo) ListTurns(ctx context.Context, conversationID string, limit int, before time.Time) ([]orchestrator.ChatTurn, error) {
	return f.turns[conversationID], nil
}

func (f *fakeConversationRepo) CountTurns(ctx context.Context, conversationID string) (int, error) {
	return len(f.turns[conversationID]), nil
}

func (f *fakeConversationRepo) GetSummary(ctx context.Context, conversationID string) (string, bool, error) {
	return "", false, nil
}

type fakeAgentTaskRepo struct{}

func (f *fakeAgentTaskRepo) Upsert(ctx context.Context, card orchestrator.AgentTaskCard) error {
	return nil
}

type fakeTaskRepo struct {
	saved []*task.Task
}

func (f *fakeTaskRepo) Save(ctx context.Context, t *task.Task) error {
	f.saved = append(f.saved, t)
	return nil
}

func (f *fakeTaskRepo) FindByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	for _, t := range f.saved {
		if t.ID() == id {
			return t, nil
		}
	}
	return nil, nil
}

func (f *fakeTaskRepo) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*task.Task, error) {
	return f.saved, nil
}

func (f *fakeTaskRepo) FindPending(ctx context.Context, userID uuid.UUID) ([]*task.Task, error) {
	return f.saved, nil
}

func (f *fakeTaskRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }

type fakeOutboxRepo struct{}

func (f *fakeOutboxRepo) Save(ctx context.Context, msg *outbox.Message) error            { return nil }
func (f *fakeOutboxRepo) SaveBatch(ctx context.Context, msgs []*outbox.Message) error    { return nil }
func (f *fakeOutboxRepo) GetUnpublished(ctx context.Context, limit int) ([]*outbox.Message, error) {
	return nil, nil
}
func (f *fakeOutboxRepo) MarkPublished(ctx context.Context, id int64) error { return nil }
func (f *fakeOutboxRepo) MarkFailed(ctx context.Context, id int64, errMsg string, nextRetryAt time.Time) error {
	return nil
}
func (f *fakeOutboxRepo) MarkDead(ctx context.Context, id int64, reason string) error { return nil }
func (f *fakeOutboxRepo) GetFailed(ctx context.Context, maxRetries, limit int) ([]*outbox.Message, error) {
	return nil, nil
}
func (f *fakeOutboxRepo) DeleteOld(ctx context.Context, olderThanDays int) (int64, error) {
	return 0, nil
}

type fakeUnitOfWork struct{}

func (f fakeUnitOfWork) Begin(ctx context.Context) (context.Context, error) { return ctx, nil }
func (f fakeUnitOfWork) Commit(ctx context.Context) error                   { return nil }
func (f fakeUnitOfWork) Rollback(ctx context.Context) error                 { return nil }

func newTestOrchestrator(t *testing.T) (*orchestrator.Orchestrator, *fakeTaskRepo) {
	t.Helper()
	ctx := context.Background()
	logger := observability.NewLogger(observability.LogConfig{Level: "error"})
	metrics := observability.NewInMemoryMetrics()
	turnCache := cache.NewInMemoryCache(ctx, "test-orchestrator", time.Minute)

	taskRepo := &fakeTaskRepo{}
	createTask := productivityCommands.NewCreateTaskHandler(taskRepo, &fakeOutboxRepo{}, fakeUnitOfWork{})

	conversations := orchestrator.NewConversationManager(newFakeConversationRepo(), turnCache)
	notifier := orchestrator.NewWebSocketNotifier(metrics, logger)
	agentTasks := orchestrator.NewAgentTaskManager(&fakeAgentTaskRepo{}, notifier, metrics, logger)
	errorBoundary := orchestrator.NewErrorBoundary(orchestrator.DefaultErrorBoundaryConfig(), metrics, logger)
	states := orchestrator.NewConversationStateManager(turnCache)
	classifier := nlu.NewDefaultClassifier(0.5)
	llm := nlu.NewDefaultConversationLLM()
	intents := orchestrator.NewIntentProcessor(classifier, llm, states, errorBoundary, logger)
	verifier := orchestrator.NewSemanticVerifier(orchestrator.VerifyModePermissive, true, metrics, logger)

	// No scheduler pipeline is exercised by these tests, so GeneratePlanHandler
	// is left nil; ActionRescheduleDay is not triggered by any case here.
	var generatePlan *schedulingCommands.GeneratePlanHandler

	o := orchestrator.New(conversations, intents, agentTasks, notifier, verifier, createTask, generatePlan, 7, logger)
	return o, taskRepo
}

func TestOrchestrator_HandleMessage_CreatesTask(t *testing.T) {
	o, taskRepo := newTestOrchestrator(t)
	userID := uuid.New().String()
	conversationID := uuid.New().String()

	result, err := o.HandleMessage(context.Background(), userID, conversationID, "remind me to review the PR")
	require.NoError(t, err)

	assert.Equal(t, orchestrator.ActionCreateTask, result.Action)
	require.Len(t, taskRepo.saved, 1)
	assert.Equal(t, "review the pr", taskRepo.saved[0].Title())
}

func TestOrchestrator_HandleMessage_CasualReply(t *testing.T) {
	o, taskRepo := newTestOrchestrator(t)
	userID := uuid.New().String()
	conversationID := uuid.New().String()

	result, err := o.HandleMessage(context.Background(), userID, conversationID, "hello")
	require.NoError(t, err)

	assert.Equal(t, orchestrator.ActionCasual, result.Action)
	assert.NotEmpty(t, result.ConversationResponse)
	assert.Empty(t, taskRepo.saved)
}

var _ sharedApplication.UnitOfWork = fakeUnitOfWork{}
