package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	productivityCommands "github.com/felixgeelhaar/pulse/internal/productivity/application/commands"
	schedulingCommands "github.com/felixgeelhaar/pulse/internal/scheduling/application/commands"
	"github.com/google/uuid"
)

// Orchestrator is the single control-flow entry point a transport adapter
// (CLI or HTTP) calls for every inbound user message. It wires the dialog
// state machine (ConversationManager, ConversationStateManager,
// IntentProcessor) to the command handlers that actually do work
// (task creation, plan generation) and to the task-card/websocket layer
// that reports progress back to the caller.
type Orchestrator struct {
	conversations *ConversationManager
	intents       *IntentProcessor
	tasks         *AgentTaskManager
	notifier      *WebSocketNotifier
	verifier      *SemanticVerifier

	createTask   *productivityCommands.CreateTaskHandler
	generatePlan *schedulingCommands.GeneratePlanHandler

	defaultHorizonDays int
	logger             *slog.Logger
}

// New assembles an Orchestrator from its collaborators.
func New(
	conversations *ConversationManager,
	intents *IntentProcessor,
	tasks *AgentTaskManager,
	notifier *WebSocketNotifier,
	verifier *SemanticVerifier,
	createTask *productivityCommands.CreateTaskHandler,
	generatePlan *schedulingCommands.GeneratePlanHandler,
	defaultHorizonDays int,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if defaultHorizonDays <= 0 {
		defaultHorizonDays = 7
	}
	return &Orchestrator{
		conversations: conversations, intents: intents, tasks: tasks, notifier: notifier,
		verifier: verifier, createTask: createTask, generatePlan: generatePlan,
		defaultHorizonDays: defaultHorizonDays, logger: logger,
	}
}

// HandleMessage runs one user turn through the full pipeline: persist the
// turn, classify/clarify, dispatch to the matching command handler, report
// back over the websocket notifier, and persist the assistant's reply.
func (o *Orchestrator) HandleMessage(ctx context.Context, userID, conversationID, text string) (IntentResult, error) {
	if _, err := o.conversations.AppendTurn(ctx, conversationID, userID, RoleUser, text, map[string]any{"user_id": userID}); err != nil {
		return IntentResult{}, fmt.Errorf("append user turn: %w", err)
	}

	history, err := o.conversations.GetHistory(ctx, conversationID, RecentTurnCacheSize, false)
	if err != nil {
		return IntentResult{}, fmt.Errorf("load history: %w", err)
	}

	userCtx := UserContext{UserID: userID}
	result, err := o.intents.ProcessUserQuery(ctx, text, userID, conversationID, userCtx, history)
	if err != nil {
		return IntentResult{}, fmt.Errorf("process query: %w", err)
	}

	reply := o.dispatch(ctx, userID, conversationID, result)

	if _, err := o.conversations.AppendTurn(ctx, conversationID, userID, RoleAssistant, reply, nil); err != nil {
		o.logger.Error("append assistant turn failed", "conversation_id", conversationID, "error", err)
	}
	return result, nil
}

// dispatch routes a classified IntentResult to the matching workflow and
// returns the text to persist as the assistant's reply. Every branch emits
// a websocket event so a connected client sees the outcome in real time.
func (o *Orchestrator) dispatch(ctx context.Context, userID, conversationID string, result IntentResult) string {
	if result.RequiresClarification {
		o.notifier.EmitToUser(userID, EventClarificationRequest, conversationID, result.ClarificationQuestion)
		return result.ClarificationQuestion
	}

	if result.Action == ActionCasual {
		o.notifier.EmitToUser(userID, EventImmediateResponse, conversationID, result.ConversationResponse)
		return result.ConversationResponse
	}

	switch result.Action {
	case ActionCreateTask:
		return o.handleCreateTask(ctx, userID, conversationID, result)
	case ActionRescheduleDay:
		return o.handleGeneratePlan(ctx, userID, conversationID, result)
	default:
		o.tasks.EmitCRUDResult(userID, conversationID, CRUDOutcome{
			Operation: string(result.Action), EntityType: "unsupported",
			Details: "this action has no wired workflow yet",
		}, false)
		return "I understood the request but don't have a workflow for it yet."
	}
}

func (o *Orchestrator) handleCreateTask(ctx context.Context, userID, conversationID string, result IntentResult) string {
	if result.TaskInfo == nil || result.TaskInfo.TaskTitle == "" {
		o.tasks.EmitCRUDResult(userID, conversationID, CRUDOutcome{Operation: "create", EntityType: "task"}, false)
		return "I need a task title to create that."
	}

	uid, err := uuid.Parse(userID)
	if err != nil {
		o.tasks.EmitCRUDResult(userID, conversationID, CRUDOutcome{
			Operation: "create", EntityType: "task", Details: "invalid user id",
		}, false)
		return "I couldn't identify your account to create that task."
	}

	cmd := productivityCommands.CreateTaskCommand{UserID: uid, Title: result.TaskInfo.TaskTitle, Priority: result.TaskInfo.Priority}
	if result.TaskInfo.DueDate != nil {
		cmd.DueDate = result.TaskInfo.DueDate
	}
	if result.TaskInfo.EstimatedDuration != nil {
		cmd.DurationMinutes = int(result.TaskInfo.EstimatedDuration.Minutes())
	}

	out, err := o.createTask.Handle(ctx, cmd)
	if err != nil {
		o.logger.Error("create task failed", "user_id", userID, "error", err)
		o.tasks.EmitCRUDResult(userID, conversationID, CRUDOutcome{
			Operation: "create", EntityType: "task", EntityTitle: cmd.Title, Details: err.Error(),
		}, false)
		return fmt.Sprintf("I couldn't create \"%s\": %s", cmd.Title, err.Error())
	}

	o.tasks.EmitCRUDResult(userID, conversationID, CRUDOutcome{
		Operation: "create", EntityType: "task", EntityTitle: cmd.Title, EntityID: out.TaskID.String(),
		AcknowledgementMessage: fmt.Sprintf("Created \"%s\".", cmd.Title),
	}, true)
	return fmt.Sprintf("Created \"%s\".", cmd.Title)
}

func (o *Orchestrator) handleGeneratePlan(ctx context.Context, userID, conversationID string, result IntentResult) string {
	card := o.tasks.CreateWorkflowTask(ctx, userID, conversationID, WorkflowScheduling,
		"Generating your plan", "Running the scheduler over your pending tasks",
		[]string{"solve", "verify", "persist"}, true)

	solution, err := o.generatePlan.Handle(ctx, schedulingCommands.GeneratePlanCommand{
		UserID: userID, HorizonDays: o.defaultHorizonDays,
	})
	if err != nil {
		o.tasks.FailTask(ctx, card.ID, err.Error())
		o.notifier.EmitToUser(userID, EventTaskFailed, conversationID, err.Error())
		return "I couldn't generate a plan: " + err.Error()
	}

	response := BuildScheduleResponse(card.ID, solution)
	if o.verifier != nil {
		if findings, ok := o.verifier.Verify(&response); !ok {
			o.logger.Warn("schedule response failed verification", "task_id", card.ID, "findings", len(findings))
		}
	}

	if !solution.Feasible {
		o.tasks.FailTask(ctx, card.ID, "no feasible schedule found")
		o.notifier.EmitToUser(userID, EventTaskFailed, conversationID, response)
		return "I couldn't find a feasible schedule for your pending tasks."
	}

	o.tasks.CompleteTask(ctx, card.ID, map[string]any{"blocks": len(solution.Blocks)})
	o.notifier.EmitToUser(userID, EventTaskCompleted, conversationID, response)
	return fmt.Sprintf("Planned %d blocks over the next %d days.", len(solution.Blocks), o.defaultHorizonDays)
}
