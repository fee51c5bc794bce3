package agent

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/chrona-app/chrona/internal/chrona/llm"
)

// classifyConfidenceThreshold is the score above which the model's label is
// trusted unconditionally.
const classifyConfidenceThreshold = 0.7

// classifySchema constrains the model's classification reply.
var classifySchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "command_type": {
      "type": "string",
      "enum": ["create_event", "create_task", "show_events", "show_tasks",
               "update_task_status", "complex_query", "unknown"]
    },
    "confidence": {"type": "number", "minimum": 0, "maximum": 1}
  },
  "required": ["command_type"]
}`)

const classifySystem = `You classify a user's calendar assistant command into exactly one command type:
- create_event: schedule or add a calendar event
- create_task: add a task or to-do item
- show_events: list or query calendar events
- show_tasks: list or query tasks
- update_task_status: mark a task done, in progress, or todo
- complex_query: a question that needs reasoning over the user's schedule
- unknown: anything else
Report your certainty as a confidence between 0 and 1.`

// LLMClassifier asks the language model for the intent and falls back to the
// rule-based classifier whenever the model's answer cannot be trusted.
type LLMClassifier struct {
	provider llm.Provider
	rules    Classifier
	model    string
	log      *slog.Logger
}

// NewLLMClassifier layers a model-backed classifier over rules.
func NewLLMClassifier(provider llm.Provider, rules Classifier, model string, log *slog.Logger) *LLMClassifier {
	if log == nil {
		log = slog.Default()
	}
	if rules == nil {
		rules = NewRuleClassifier()
	}
	return &LLMClassifier{provider: provider, rules: rules, model: model, log: log}
}

// Classify returns the model's label when it is confident enough or names a
// concrete intent; otherwise it defers to the rule-based path.
func (c *LLMClassifier) Classify(ctx context.Context, text string) Intent {
	if c.provider == nil {
		return c.rules.Classify(ctx, text)
	}

	obj, err := llm.GenerateStructured(ctx, c.provider, llm.StructuredRequest{
		Model:  c.model,
		System: classifySystem,
		Prompt: text,
		Schema: classifySchema,
	})
	if err != nil {
		c.log.Debug("classification fell back to rules", "error", err)
		return c.rules.Classify(ctx, text)
	}

	label, _ := obj["command_type"].(string)
	confidence, _ := obj["confidence"].(float64)
	intent := Intent(label)
	if !validIntents[intent] {
		return c.rules.Classify(ctx, text)
	}

	// A confident label is always accepted. Below the threshold, any
	// concrete label still beats the keyword heuristics; only an unsure
	// "unknown" defers to them.
	if confidence >= classifyConfidenceThreshold || intent != IntentUnknown {
		return intent
	}
	return c.rules.Classify(ctx, text)
}
