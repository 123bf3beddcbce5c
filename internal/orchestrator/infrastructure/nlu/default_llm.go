package nlu

import (
	"context"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/pulse/internal/orchestrator"
)

// DefaultConversationLLM answers small talk with fixed templates and
// extracts clarification slots by taking the whole response as the value
// for the single slot the clarification question named. It stands in for a
// real LLM provider client behind the same ConversationLLM interface.
type DefaultConversationLLM struct{}

// NewDefaultConversationLLM creates a DefaultConversationLLM.
func NewDefaultConversationLLM() *DefaultConversationLLM {
	return &DefaultConversationLLM{}
}

var casualReplies = map[string]string{
	"hi":    "Hi! What can I help you get done?",
	"hello": "Hello! What can I help you get done?",
	"hey":   "Hey there. What's on your plate?",
	"thanks": "You're welcome.",
	"thank": "You're welcome.",
	"bye":   "Talk soon.",
}

// Converse returns a fixed reply keyed by the first recognized word in text,
// or a generic acknowledgement.
func (l *DefaultConversationLLM) Converse(ctx context.Context, text string, userCtx orchestrator.UserContext, history []orchestrator.ChatTurn) (string, error) {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, word := range strings.Fields(lower) {
		if reply, ok := casualReplies[strings.Trim(word, ".,!?")]; ok {
			return reply, nil
		}
	}
	name := userCtx.Name
	if name == "" {
		return "Got it.", nil
	}
	return fmt.Sprintf("Got it, %s.", name), nil
}

// ExtractClarification treats the clarification response as the value for
// the slot the originating action still needs: task creation/update fill
// taskName, schedule/block fill timePhrase, everything else goes under value.
func (l *DefaultConversationLLM) ExtractClarification(ctx context.Context, response string, originatingAction orchestrator.ActionType, originatingContext map[string]any) (orchestrator.ClassifierEntities, error) {
	value := strings.TrimSpace(response)
	entities := orchestrator.ClassifierEntities{}
	switch originatingAction {
	case orchestrator.ActionCreateTask, orchestrator.ActionUpdateTask:
		entities["taskName"] = value
	case orchestrator.ActionScheduleEvent, orchestrator.ActionBlockTime:
		entities["timePhrase"] = value
	default:
		entities["value"] = value
	}
	return entities, nil
}
