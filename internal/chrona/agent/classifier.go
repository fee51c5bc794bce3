// Package agent turns natural-language commands into calendar actions.
//
// A command flows classifier -> dispatcher -> handler. The classifier picks
// one of a closed set of intents; the dispatcher routes to a handler that
// parses the command, talks to the calendar service, and produces a uniform
// response envelope. Every failure becomes a success:false envelope; nothing
// in this package is fatal to the process.
package agent

import (
	"context"
	"strings"
)

// Intent is the category of action a command expresses.
type Intent string

const (
	IntentCreateEvent      Intent = "create_event"
	IntentCreateTask       Intent = "create_task"
	IntentShowEvents       Intent = "show_events"
	IntentShowTasks        Intent = "show_tasks"
	IntentUpdateTaskStatus Intent = "update_task_status"
	IntentComplexQuery     Intent = "complex_query"
	IntentUnknown          Intent = "unknown"
)

// validIntents is the closed intent vocabulary, used to vet model labels.
var validIntents = map[Intent]bool{
	IntentCreateEvent:      true,
	IntentCreateTask:       true,
	IntentShowEvents:       true,
	IntentShowTasks:        true,
	IntentUpdateTaskStatus: true,
	IntentComplexQuery:     true,
	IntentUnknown:          true,
}

// Classifier assigns an intent to a command text.
type Classifier interface {
	Classify(ctx context.Context, text string) Intent
}

// Keyword vocabularies, tested as plain substrings of the lowercased
// command. Order matters: the first vocabulary with a hit wins.
var (
	createEventKeywords = []string{"schedule", "create event", "add event", "new event"}
	createTaskKeywords  = []string{"task", "todo", "to do", "to-do", "add task"}
	showEventsKeywords  = []string{"show events", "list events", "display events", "what events", "my events"}
	showTasksKeywords   = []string{"show tasks", "list tasks", "display tasks", "what tasks", "my tasks"}
	updateStatusVerbs   = []string{"mark", "complete", "finish", "done with"}

	// timeIndicators pull otherwise-unclassified commands toward
	// create_event. Note " at " keeps its spaces and "am"/"pm" match as
	// bare substrings.
	timeIndicators = []string{
		"today", "tomorrow", "next week",
		"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
		" at ", "pm", "am",
	}
)

// RuleClassifier classifies by ordered keyword matching. It is stateless and
// safe for concurrent use.
type RuleClassifier struct{}

// NewRuleClassifier returns the keyword-based classifier.
func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{}
}

// Classify applies the fixed vocabulary precedence to text.
func (c *RuleClassifier) Classify(_ context.Context, text string) Intent {
	lower := strings.ToLower(text)

	if containsAny(lower, createEventKeywords) {
		return IntentCreateEvent
	}
	if containsAny(lower, createTaskKeywords) {
		return IntentCreateTask
	}
	if containsAny(lower, showEventsKeywords) {
		return IntentShowEvents
	}
	if containsAny(lower, showTasksKeywords) {
		return IntentShowTasks
	}
	if containsAny(lower, updateStatusVerbs) && strings.Contains(lower, "task") {
		return IntentUpdateTaskStatus
	}
	if containsAny(lower, timeIndicators) {
		return IntentCreateEvent
	}
	return IntentUnknown
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
