package orchestrator

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"
)

// ConversationLLM is the narrow external collaborator for free-form
// conversational replies and clarification-response extraction, both kept
// outside this package per its external-collaborator boundary.
type ConversationLLM interface {
	Converse(ctx context.Context, text string, userCtx UserContext, history []ChatTurn) (string, error)
	ExtractClarification(ctx context.Context, response string, originatingAction ActionType, originatingContext map[string]any) (ClassifierEntities, error)
}

// slotConfidenceThresholds is the minimum confidence required per extracted
// slot before it is trusted without clarification.
var slotConfidenceThresholds = map[string]float64{
	"task_title":         0.8,
	"due_date":           0.6,
	"priority":           0.7,
	"estimated_duration": 0.7,
}

// genericTitleDenylist rejects task titles too vague to act on.
var genericTitleDenylist = map[string]bool{
	"task": true, "todo": true, "new task": true,
}

var makeOneForMePattern = regexp.MustCompile(`(?i)make (one|some) for me`)

var ambiguousVerbs = map[string]bool{
	"update": true, "change": true, "fix": true, "do": true, "it": true, "that": true,
}

var vagueTimePhrases = map[string]bool{
	"later": true, "sometime": true, "soon": true, "whenever": true,
}

// taskManagementActions are the actions IntentProcessor treats as
// task-management for the purposes of clarification rule 6; the Orchestrator
// also uses it to decide when synthesizeTaskInfo applies.
var taskManagementActions = map[ActionType]bool{
	ActionCreateTask: true, ActionUpdateTask: true, ActionDeleteTask: true, ActionCompleteTask: true,
}

// IntentProcessor turns a user message into a routed IntentResult, gating on
// pending clarifications and running a fast path for casual conversation.
type IntentProcessor struct {
	classifier   IntentClassifier
	llm          ConversationLLM
	states       *ConversationStateManager
	errorBoundary *ErrorBoundary
	logger       *slog.Logger
}

// NewIntentProcessor creates an IntentProcessor.
func NewIntentProcessor(classifier IntentClassifier, llm ConversationLLM, states *ConversationStateManager, eb *ErrorBoundary, logger *slog.Logger) *IntentProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &IntentProcessor{classifier: classifier, llm: llm, states: states, errorBoundary: eb, logger: logger}
}

// ProcessUserQuery implements the eight-step classify/clarify algorithm.
func (p *IntentProcessor) ProcessUserQuery(ctx context.Context, query, userID, conversationID string, userCtx UserContext, history []ChatTurn) (IntentResult, error) {
	state, err := p.states.Get(ctx, conversationID, userID)
	if err != nil {
		return IntentResult{}, err
	}

	if pending, ok := state.MostRecentPending(time.Now()); ok && p.looksLikeClarificationResponse(query, pending) {
		return p.completeClarification(ctx, state, pending, query, userCtx, history)
	}

	if p.isFastPathCasual(query) {
		reply, err := p.callLLM(ctx, func() (string, error) { return p.llm.Converse(ctx, query, userCtx, history) })
		if err != nil {
			reply = "Sorry, I'm having trouble responding right now."
		}
		return IntentResult{
			Intent: "casual_conversation", Action: ActionCasual, Confidence: 1.0,
			ConversationResponse: reply, ImmediateResponse: reply,
			DialogActs: []DialogAct{{Type: DialogInvoke, Target: string(ActionCasual)}},
		}, nil
	}

	classified, err := p.classify(ctx, query, userCtx, history)
	if err != nil {
		return IntentResult{}, err
	}

	action := classified.Action
	workflow, _ := WorkflowFor(action)

	result := IntentResult{
		Intent: classified.Intent, Action: action, Confidence: classified.Confidence,
		Entities: classified.Entities, WorkflowType: workflow,
		CanSwitchWorkflow: state.CanSwitch,
	}

	if state.ActiveWorkflow != "" && workflow != "" && workflow != state.ActiveWorkflow {
		result.DialogActs = append(result.DialogActs, DialogAct{Type: DialogSwitch, Target: string(workflow)})
		result.SuggestedWorkflows = append(result.SuggestedWorkflows, workflow)
	}

	if taskManagementActions[action] || action == ActionCreateTask {
		taskInfo, clarifyQuestion := p.synthesizeTaskInfo(action, classified.Entities)
		result.TaskInfo = taskInfo
		if clarifyQuestion != "" {
			p.requestClarification(state, &result, clarifyQuestion, action, classified.Intent)
			_ = p.states.Save(ctx, state)
			return result, nil
		}
	}

	if q := p.entityDrivenClarification(action, classified.Entities); q != "" {
		p.requestClarification(state, &result, q, action, classified.Intent)
		_ = p.states.Save(ctx, state)
		return result, nil
	}

	result.RequiresTaskCard = workflow != ""
	result.DialogActs = append(result.DialogActs, DialogAct{Type: DialogInvoke, Target: string(action)})
	_ = p.states.Save(ctx, state)
	return result, nil
}

func (p *IntentProcessor) classify(ctx context.Context, query string, userCtx UserContext, history []ChatTurn) (ClassifierResult, error) {
	out, err := p.errorBoundary.Call(ctx, "intent_classifier", func(ctx context.Context) (any, error) {
		return p.classifier.Classify(ctx, query, userCtx, history)
	})
	if err != nil {
		return ClassifierResult{}, err
	}
	return out.(ClassifierResult), nil
}

func (p *IntentProcessor) callLLM(ctx context.Context, fn func() (string, error)) (string, error) {
	out, err := p.errorBoundary.Call(ctx, "llm_conversation", func(ctx context.Context) (any, error) {
		return fn()
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

// isFastPathCasual matches greetings and short small-talk without task/scheduling keywords.
func (p *IntentProcessor) isFastPathCasual(query string) bool {
	trimmed := strings.TrimSpace(strings.ToLower(query))
	words := strings.Fields(trimmed)
	if len(words) == 0 || len(words) > 3 {
		return false
	}
	for _, kw := range []string{"task", "schedule", "remind", "event", "meeting", "deadline", "due", "calendar"} {
		if strings.Contains(trimmed, kw) {
			return false
		}
	}
	greetings := map[string]bool{"hi": true, "hello": true, "hey": true, "thanks": true, "thank": true, "ok": true, "okay": true, "bye": true, "yo": true}
	for _, w := range words {
		if greetings[w] {
			return true
		}
	}
	return len(words) <= 2
}

func (p *IntentProcessor) looksLikeClarificationResponse(query string, pending ClarificationRequest) bool {
	lower := strings.ToLower(strings.TrimSpace(query))
	if lower == "" {
		return false
	}
	for _, cancelWord := range []string{"cancel", "help", "search", "nevermind", "never mind"} {
		if strings.Contains(lower, cancelWord) {
			return false
		}
	}
	if strings.HasPrefix(lower, "create a task") || strings.HasPrefix(lower, "create task") {
		return false
	}
	return len(strings.Fields(lower)) <= 12
}

func (p *IntentProcessor) completeClarification(ctx context.Context, state *ConversationState, pending ClarificationRequest, response string, userCtx UserContext, history []ChatTurn) (IntentResult, error) {
	originatingAction, _ := pending.Context["action"].(string)
	originatingIntent, _ := pending.Context["intent"].(string)

	out, err := p.errorBoundary.Call(ctx, "llm_clarification", func(ctx context.Context) (any, error) {
		return p.llm.ExtractClarification(ctx, response, ActionType(originatingAction), pending.Context)
	})
	if err != nil {
		return IntentResult{}, err
	}
	entities := out.(ClassifierEntities)

	state.Pending = nil
	if err := p.states.Save(ctx, state); err != nil {
		return IntentResult{}, err
	}

	action := ActionType(originatingAction)
	workflow, _ := WorkflowFor(action)
	taskInfo, clarifyQuestion := p.synthesizeTaskInfo(action, entities)

	result := IntentResult{
		Intent: originatingIntent, Action: action, Confidence: 0.9,
		Entities: entities, TaskInfo: taskInfo, WorkflowType: workflow,
		DialogActs: []DialogAct{{Type: DialogInvoke, Target: originatingAction}},
	}
	if clarifyQuestion != "" {
		p.requestClarification(state, &result, clarifyQuestion, action, originatingIntent)
		_ = p.states.Save(ctx, state)
		return result, nil
	}
	result.RequiresTaskCard = workflow != ""
	return result, nil
}

func (p *IntentProcessor) requestClarification(state *ConversationState, result *IntentResult, question string, action ActionType, intent string) {
	req := p.states.AddClarification(state, question, map[string]any{"action": string(action), "intent": intent}, "text")
	result.RequiresClarification = true
	result.ClarificationQuestion = question
	result.DialogActs = append(result.DialogActs, DialogAct{Type: DialogAsk, Target: req.ID})
}

// synthesizeTaskInfo builds TaskInfo from entities, returning a non-empty
// clarification question when a create lacks both taskName and targetTask.
func (p *IntentProcessor) synthesizeTaskInfo(action ActionType, entities ClassifierEntities) (*TaskInfo, string) {
	title, _ := entities["taskName"].(string)
	target, _ := entities["targetTask"].(string)

	if action == ActionCreateTask && title == "" && target == "" {
		return nil, "What task would you like me to create?"
	}
	if title == "" {
		title = target
	}
	if normalized := strings.ToLower(strings.TrimSpace(title)); genericTitleDenylist[normalized] || makeOneForMePattern.MatchString(title) {
		return nil, "Could you give this task a more specific title?"
	}

	info := &TaskInfo{TaskTitle: title}
	if priority, ok := entities["priority"].(string); ok {
		info.Priority = priority
	}
	if targetID, ok := entities["targetTaskId"].(string); ok {
		info.TargetTaskID = targetID
	}
	return info, ""
}

// entityDrivenClarification applies ambiguous-verb, vague-time, and
// slot-confidence clarification rules.
func (p *IntentProcessor) entityDrivenClarification(action ActionType, entities ClassifierEntities) string {
	if taskManagementActions[action] {
		verb, _ := entities["verb"].(string)
		_, hasTarget := entities["targetTask"]
		if ambiguousVerbs[strings.ToLower(verb)] && !hasTarget {
			return "Which task do you mean?"
		}
	}
	if action == ActionScheduleEvent || action == ActionBlockTime {
		timePhrase, _ := entities["timePhrase"].(string)
		_, hasEvent := entities["eventId"]
		if vagueTimePhrases[strings.ToLower(timePhrase)] && !hasEvent {
			return "What time would you like to schedule this for?"
		}
	}

	confidences, _ := entities["_confidence"].(map[string]float64)
	for slot, threshold := range slotConfidenceThresholds {
		if c, ok := confidences[slot]; ok && c < threshold {
			return "Could you clarify the " + strings.ReplaceAll(slot, "_", " ") + "?"
		}
	}
	return ""
}
