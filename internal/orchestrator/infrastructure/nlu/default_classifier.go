// Package nlu provides the built-in, keyword-scoring IntentClassifier and
// ConversationLLM implementations the orchestrator wires by default. Both
// are narrow stand-ins for the external ONNX intent model and LLM provider
// client named in the conversation pipeline's design; a deployment that has
// those artifacts swaps them in behind the same interfaces.
package nlu

import (
	"context"
	"strings"

	"github.com/felixgeelhaar/pulse/internal/orchestrator"
)

// actionKeywords scores candidate actions by keyword overlap with the
// utterance, the same scoring shape as the built-in classifier engine this
// package is grounded on: count keyword hits, normalize by keyword count.
var actionKeywords = map[orchestrator.ActionType][]string{
	orchestrator.ActionCreateTask:    {"add task", "create task", "new task", "remind me to", "i need to", "todo"},
	orchestrator.ActionUpdateTask:    {"update task", "change task", "edit task", "rename task"},
	orchestrator.ActionDeleteTask:    {"delete task", "remove task", "cancel task"},
	orchestrator.ActionCompleteTask:  {"mark done", "complete task", "finished", "i'm done with", "done with"},
	orchestrator.ActionListTasks:     {"list tasks", "show tasks", "what's on my list", "my tasks", "what do i have"},
	orchestrator.ActionScheduleEvent: {"schedule a", "book a", "set up a meeting", "calendar event"},
	orchestrator.ActionBlockTime:     {"block time", "block off", "hold time"},
	orchestrator.ActionRescheduleDay: {"replan", "re-plan", "reschedule my day", "generate a plan", "plan my day", "plan my week"},
	orchestrator.ActionDailyBriefing: {"what's my day", "daily briefing", "morning briefing", "brief me"},
	orchestrator.ActionWeeklySummary: {"weekly summary", "how was my week", "week in review"},
	orchestrator.ActionCasual:        {"hello", "hi there", "thanks", "thank you", "how are you", "good morning"},
}

// DefaultClassifier is the built-in keyword classifier.
type DefaultClassifier struct {
	confidenceThreshold float64
}

// NewDefaultClassifier creates a DefaultClassifier with the given minimum
// confidence to report a match instead of falling back to casual conversation.
func NewDefaultClassifier(confidenceThreshold float64) *DefaultClassifier {
	if confidenceThreshold <= 0 {
		confidenceThreshold = 0.5
	}
	return &DefaultClassifier{confidenceThreshold: confidenceThreshold}
}

// Classify scores every known action's keywords against text and returns
// the best match, falling back to casual conversation below threshold.
func (c *DefaultClassifier) Classify(ctx context.Context, text string, userContext orchestrator.UserContext, history []orchestrator.ChatTurn) (orchestrator.ClassifierResult, error) {
	lower := strings.ToLower(text)

	var best orchestrator.ActionType
	var bestScore float64
	var alternatives []string

	for action, keywords := range actionKeywords {
		score := scoreKeywords(lower, keywords)
		if score > bestScore {
			if best != "" {
				alternatives = append(alternatives, string(best))
			}
			bestScore = score
			best = action
		} else if score > 0 {
			alternatives = append(alternatives, string(action))
		}
	}

	if best == "" || bestScore < c.confidenceThreshold {
		return orchestrator.ClassifierResult{
			Intent:     "casual_conversation",
			Action:     orchestrator.ActionCasual,
			Confidence: 1 - bestScore,
			Entities:   extractEntities(lower),
			Reasoning:  "no action keywords matched above threshold",
		}, nil
	}

	return orchestrator.ClassifierResult{
		Intent:             string(best),
		Action:             best,
		Confidence:         bestScore,
		Entities:           extractEntities(lower),
		AlternativeIntents: alternatives,
		Reasoning:          "keyword match",
	}, nil
}

func scoreKeywords(lower string, keywords []string) float64 {
	var matches int
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			matches++
		}
	}
	if matches == 0 {
		return 0
	}
	score := float64(matches) / float64(len(keywords))
	if score > 1 {
		score = 1
	}
	// A single strong keyword hit is still a confident match; don't let a
	// long keyword list dilute one clear signal.
	if matches >= 1 && score < 0.6 {
		score = 0.6 + 0.1*float64(matches-1)
		if score > 1 {
			score = 1
		}
	}
	return score
}

// extractEntities pulls the task title out of a "create task"-shaped
// utterance by stripping known lead-in phrases; it is deliberately shallow,
// the narrow slot-filling an external model would otherwise own.
func extractEntities(lower string) orchestrator.ClassifierEntities {
	entities := orchestrator.ClassifierEntities{}
	leadIns := []string{"remind me to ", "i need to ", "add task ", "create task ", "new task "}
	for _, lead := range leadIns {
		if idx := strings.Index(lower, lead); idx >= 0 {
			title := strings.TrimSpace(lower[idx+len(lead):])
			title = strings.TrimSuffix(title, ".")
			if title != "" {
				entities["taskName"] = title
			}
			break
		}
	}
	return entities
}
