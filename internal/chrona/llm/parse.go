package llm

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/chrona-app/chrona/internal/chrona/nlp"
)

// eventSchema constrains the model's reply when extracting event fields.
var eventSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "title": {"type": "string"},
    "start_time": {"type": "string"},
    "end_time": {"type": "string"},
    "location": {"type": "string"},
    "description": {"type": "string"},
    "is_all_day": {"type": "boolean"}
  },
  "required": ["title"]
}`)

// taskSchema constrains the model's reply when extracting task fields.
var taskSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "title": {"type": "string"},
    "due_date": {"type": "string"},
    "priority": {"type": "string", "enum": ["low", "medium", "high"]},
    "status": {"type": "string", "enum": ["todo", "in_progress", "done", "archived"]},
    "description": {"type": "string"}
  },
  "required": ["title"]
}`)

const eventSystem = `You extract calendar event details from a user's natural-language command.
Resolve relative dates ("tomorrow", weekday names) against the current date you are given.
Emit datetimes in ISO-8601 format. Omit fields the command does not mention.`

const taskSystem = `You extract task details from a user's natural-language command.
Resolve relative dates ("tomorrow", weekday names) against the current date you are given.
Emit datetimes in ISO-8601 format. Omit fields the command does not mention.`

// ExtractionParser parses commands with the language model and falls back to
// the rule-based parser on any adapter failure, so callers always get a
// populated result.
type ExtractionParser struct {
	provider Provider
	rules    *nlp.Parser
	model    string
	log      *slog.Logger
}

// NewExtractionParser wires a Provider in front of the rule-based parser.
func NewExtractionParser(provider Provider, rules *nlp.Parser, model string, log *slog.Logger) *ExtractionParser {
	if log == nil {
		log = slog.Default()
	}
	return &ExtractionParser{provider: provider, rules: rules, model: model, log: log}
}

// ParseEvent extracts event fields from text. The reference instant anchors
// relative dates both in the prompt and in the fallback path.
func (p *ExtractionParser) ParseEvent(ctx context.Context, text string, ref time.Time) nlp.EventResult {
	if p.provider == nil {
		return p.rules.ParseEvent(text, ref)
	}

	obj, err := GenerateStructured(ctx, p.provider, StructuredRequest{
		Model:  p.model,
		System: eventSystem,
		Prompt: "Current date and time: " + ref.Format(time.RFC3339) + "\nCommand: " + text,
		Schema: eventSchema,
	})
	if err != nil {
		p.log.Debug("event extraction fell back to rules", "error", err)
		return p.rules.ParseEvent(text, ref)
	}

	fields := nlp.EventFields{
		Title:       stringField(obj, "title"),
		Location:    stringField(obj, "location"),
		Description: stringField(obj, "description"),
		IsAllDay:    boolField(obj, "is_all_day"),
	}
	if fields.Title == "" {
		return p.rules.ParseEvent(text, ref)
	}

	fields.StartTime = timeField(obj, "start_time")
	fields.EndTime = timeField(obj, "end_time")
	if fields.StartTime != nil {
		// A lost or inverted end is synthesized rather than rejected.
		if fields.EndTime == nil || !fields.EndTime.After(*fields.StartTime) {
			end := fields.StartTime.Add(time.Hour)
			fields.EndTime = &end
		}
	} else {
		fields.EndTime = nil
	}

	return nlp.EventResult{Fields: fields, Source: nlp.SourceLanguageModel}
}

// ParseTask extracts task fields from text, falling back to rules on error.
func (p *ExtractionParser) ParseTask(ctx context.Context, text string, ref time.Time) nlp.TaskResult {
	if p.provider == nil {
		return p.rules.ParseTask(text, ref)
	}

	obj, err := GenerateStructured(ctx, p.provider, StructuredRequest{
		Model:  p.model,
		System: taskSystem,
		Prompt: "Current date and time: " + ref.Format(time.RFC3339) + "\nCommand: " + text,
		Schema: taskSchema,
	})
	if err != nil {
		p.log.Debug("task extraction fell back to rules", "error", err)
		return p.rules.ParseTask(text, ref)
	}

	fields := nlp.TaskFields{
		Title:       stringField(obj, "title"),
		Priority:    stringField(obj, "priority"),
		Status:      stringField(obj, "status"),
		Description: stringField(obj, "description"),
	}
	if fields.Title == "" {
		return p.rules.ParseTask(text, ref)
	}
	if fields.Priority == "" {
		fields.Priority = "medium"
	}
	if fields.Status == "" {
		fields.Status = "todo"
	}
	fields.DueDate = timeField(obj, "due_date")

	return nlp.TaskResult{Fields: fields, Source: nlp.SourceLanguageModel}
}

func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}

func boolField(obj map[string]any, key string) bool {
	b, _ := obj[key].(bool)
	return b
}

func timeField(obj map[string]any, key string) *time.Time {
	s, ok := obj[key].(string)
	if !ok || s == "" {
		return nil
	}
	t, err := ParseDateTime(s)
	if err != nil {
		return nil
	}
	return &t
}
