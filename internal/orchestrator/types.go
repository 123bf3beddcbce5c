// Package orchestrator implements the agent-facing dialog state machine:
// intent classification and clarification gating, task-card lifecycle with
// websocket fan-out, and conversation persistence with a hot-state cache.
package orchestrator

import (
	"context"
	"time"
)

// ActionType is the closed set of actions the IntentClassifier may return.
type ActionType string

const (
	ActionCreateTask    ActionType = "create_task"
	ActionUpdateTask    ActionType = "update_task"
	ActionDeleteTask    ActionType = "delete_task"
	ActionListTasks     ActionType = "list_tasks"
	ActionCompleteTask  ActionType = "complete_task"
	ActionScheduleEvent ActionType = "schedule_event"
	ActionBlockTime     ActionType = "block_time"
	ActionRescheduleDay ActionType = "reschedule_day"
	ActionWebSearch     ActionType = "web_search"
	ActionDailyBriefing ActionType = "daily_briefing"
	ActionWeeklySummary ActionType = "weekly_summary"
	ActionGenerate      ActionType = "generate_response"
	ActionCasual        ActionType = "casual_conversation"
	ActionSendEmail     ActionType = "send_email"
	ActionReadEmails    ActionType = "read_emails"
	ActionSyncCanvas    ActionType = "sync_canvas"
)

// WorkflowType names the multi-step agent activity an action may spawn.
type WorkflowType string

const (
	WorkflowTasks      WorkflowType = "tasks"
	WorkflowCalendar   WorkflowType = "calendar"
	WorkflowScheduling WorkflowType = "scheduling"
	WorkflowSearch     WorkflowType = "search"
	WorkflowBriefing   WorkflowType = "briefing"
	WorkflowEmail      WorkflowType = "email"
)

// actionWorkflow maps an action to its workflow, per the closed table in the design.
var actionWorkflow = map[ActionType]WorkflowType{
	ActionCreateTask:    WorkflowTasks,
	ActionListTasks:     WorkflowTasks,
	ActionScheduleEvent: WorkflowCalendar,
	ActionBlockTime:     WorkflowCalendar,
	ActionRescheduleDay: WorkflowScheduling,
	ActionWebSearch:     WorkflowSearch,
	ActionDailyBriefing: WorkflowBriefing,
	ActionWeeklySummary: WorkflowBriefing,
	ActionSendEmail:     WorkflowEmail,
	ActionReadEmails:    WorkflowEmail,
}

// WorkflowFor returns the workflow for an action, and whether one exists.
func WorkflowFor(a ActionType) (WorkflowType, bool) {
	w, ok := actionWorkflow[a]
	return w, ok
}

// DialogActType tags what an IntentResult does to the conversation.
type DialogActType string

const (
	DialogInvoke DialogActType = "INVOKE"
	DialogAsk    DialogActType = "ASK"
	DialogSwitch DialogActType = "SWITCH"
)

// DialogAct is one structured effect an IntentResult has on dialog state.
type DialogAct struct {
	Type    DialogActType
	Target  string
	Payload map[string]any
}

// ClassifierEntities carries the slot values an IntentClassifier extracted.
type ClassifierEntities map[string]any

// ClassifierResult is what an external IntentClassifier returns.
type ClassifierResult struct {
	Intent                 string
	Action                 ActionType
	Confidence             float64
	Entities               ClassifierEntities
	Quantity               *int
	RequiresDisambiguation bool
	SuggestedAction        ActionType
	AlternativeIntents     []string
	Reasoning              string
}

// IntentClassifier is the narrow external collaborator the IntentProcessor
// delegates natural-language understanding to.
type IntentClassifier interface {
	Classify(ctx context.Context, text string, userContext UserContext, history []ChatTurn) (ClassifierResult, error)
}

// UserContext is the subset of user state the classifier and processor need.
type UserContext struct {
	UserID       string
	Name         string
	Timezone     string
	WorkingHours string
	Preferences  map[string]any
}

// TaskInfo is the extracted slot-filled task description for task actions.
type TaskInfo struct {
	TaskTitle          string
	DueDate            *time.Time
	Priority           string
	EstimatedDuration  *time.Duration
	TargetTaskID       string
}

// IntentResult is what IntentProcessor.ProcessUserQuery returns.
type IntentResult struct {
	Intent                  string
	Action                  ActionType
	Confidence              float64
	Entities                ClassifierEntities
	TaskInfo                *TaskInfo
	ConversationResponse    string
	WorkflowType            WorkflowType
	RequiresTaskCard         bool
	ImmediateResponse        string
	RequiresClarification    bool
	ClarificationQuestion    string
	CanSwitchWorkflow        bool
	SuggestedWorkflows       []WorkflowType
	DialogActs               []DialogAct
	WorkflowParams           map[string]any
	Metadata                 map[string]any
}

// ClarificationRequest is a durable pending-question gate on a conversation.
type ClarificationRequest struct {
	ID                   string
	Question             string
	Context              map[string]any // carries originating {intent, action}
	ExpectedResponseType string
	CreatedAt            time.Time
	Timeout              time.Time
}

// Expired reports whether the clarification has passed its timeout (default 5m).
func (c ClarificationRequest) Expired(now time.Time) bool {
	return now.After(c.Timeout)
}

// ConversationState is the per-conversation dialog state the orchestrator
// mutates as it routes turns.
type ConversationState struct {
	ConversationID  string
	UserID          string
	ActiveWorkflow  WorkflowType
	WorkflowContext map[string]any
	Pending         []ClarificationRequest
	TaskQueue       []string // AgentTaskCard ids
	CanSwitch       bool
	LastActivity    time.Time
}

// NewConversationState creates a fresh state for a conversation.
func NewConversationState(conversationID, userID string) *ConversationState {
	return &ConversationState{
		ConversationID: conversationID,
		UserID:         userID,
		CanSwitch:      true,
		LastActivity:   time.Now(),
	}
}

// MostRecentPending returns the latest pending clarification not yet expired, if any.
func (s *ConversationState) MostRecentPending(now time.Time) (ClarificationRequest, bool) {
	fresh := s.Pending[:0:0]
	var latest *ClarificationRequest
	for i := range s.Pending {
		if s.Pending[i].Expired(now) {
			continue
		}
		fresh = append(fresh, s.Pending[i])
		latest = &fresh[len(fresh)-1]
	}
	s.Pending = fresh
	if latest == nil {
		return ClarificationRequest{}, false
	}
	return *latest, true
}

// ClearPending removes all pending clarifications (e.g. on workflow switch).
func (s *ConversationState) ClearPending() { s.Pending = nil }

// ChatRole is the speaker of a ChatTurn.
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
	RoleSystem    ChatRole = "system"
)

// ChatTurn is one message in a Conversation.
type ChatTurn struct {
	ID             string
	ConversationID string
	Role           ChatRole
	Content        string
	Metadata       map[string]any
	Timestamp      time.Time
}

// Conversation is the persistent chat thread header.
type Conversation struct {
	ID            string
	UserID        string
	Title         string
	IsActive      bool
	LastMessageAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TaskCardStatus is the lifecycle state of an AgentTaskCard.
type TaskCardStatus string

const (
	CardPending    TaskCardStatus = "pending"
	CardInProgress TaskCardStatus = "in_progress"
	CardCompleted  TaskCardStatus = "completed"
	CardFailed     TaskCardStatus = "failed"
	CardCancelled  TaskCardStatus = "cancelled"
)

// TaskStepStatus is the lifecycle state of one AgentTaskCard step.
type TaskStepStatus string

const (
	StepPending   TaskStepStatus = "pending"
	StepInProgress TaskStepStatus = "in_progress"
	StepCompleted TaskStepStatus = "completed"
)

// TaskStep is one named unit of progress within an AgentTaskCard.
type TaskStep struct {
	Name        string
	Description string
	Status      TaskStepStatus
	Timestamp   time.Time
	Details     map[string]any
}

// AgentTaskCard tracks a long-running agent workflow's progress for the UI.
type AgentTaskCard struct {
	ID                      string
	UserID                  string
	ConversationID          string
	TaskType                string
	Title                   string
	Description             string
	Status                  TaskCardStatus
	Progress                int
	Steps                   []TaskStep
	Result                  map[string]any
	ErrorMessage            string
	WorkflowType            WorkflowType
	WorkflowID              string
	CanCancel               bool
	EstimatedDurationSeconds int
	CreatedAt               time.Time
	StartedAt               time.Time
	UpdatedAt               time.Time
	CompletedAt             *time.Time
}
