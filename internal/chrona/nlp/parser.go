// Package nlp turns free-form calendar commands into structured event and
// task field records.
//
// The pipeline is deliberately layered: a temporal expression resolver
// (temporal.go) anchors relative date phrases to a reference instant,
// single-purpose extractors (extract.go) pull location, priority, and task
// identifiers out of the text or a lightweight linguistic parse (tagger.go),
// and a title normalizer (title.go) removes whatever was extracted so the
// leftover text can serve as a human title. Everything is deterministic and
// stateless; an optional language-model path lives in the llm package and
// falls back to this one.
package nlp

import (
	"time"
)

// Source records which extraction path produced a field record.
type Source string

const (
	// SourceRules marks output of the deterministic rule-based parser.
	SourceRules Source = "rule_based"
	// SourceLanguageModel marks output of the structured LLM adapter.
	SourceLanguageModel Source = "language_model"
)

// EventFields is the structured record extracted from an event command.
// StartTime and EndTime are nil only transiently during extraction; ParseEvent
// always returns a populated StartTime (defaults applied) and a Title.
type EventFields struct {
	Title       string     `json:"title"`
	StartTime   *time.Time `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
	Location    string     `json:"location,omitempty"`
	Description string     `json:"description,omitempty"`
	IsAllDay    bool       `json:"is_all_day"`
}

// TaskFields is the structured record extracted from a task command.
type TaskFields struct {
	Title       string     `json:"title"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	Description string     `json:"description,omitempty"`
}

// EventResult pairs extracted event fields with their provenance.
type EventResult struct {
	Fields EventFields
	Source Source
}

// TaskResult pairs extracted task fields with their provenance.
type TaskResult struct {
	Fields TaskFields
	Source Source
}

// clockFormat renders a timestamp the way it is likely to appear in the
// command text ("Tuesday 02:00 PM") so the title normalizer can remove it.
const clockFormat = "Monday 03:04 PM"

// Parser is the always-available rule-based extraction path.
// A Parser is stateless apart from its Tagger and safe for concurrent use.
type Parser struct {
	tagger Tagger
}

// NewParser returns a rule-based Parser using the given tagger for location
// extraction. Pass NewHeuristicTagger() when no external tagger is wired.
func NewParser(tagger Tagger) *Parser {
	return &Parser{tagger: tagger}
}

// ParseEvent extracts event fields from text, anchored to ref.
//
// When no start time is resolved, the event defaults to the next full hour
// after ref with a one-hour duration. The title is always populated.
func (p *Parser) ParseEvent(text string, ref time.Time) EventResult {
	fields := EventFields{Title: truncate(text, titleFallbackLen)}

	info := Resolve(text, ref)
	fields.StartTime = info.Start
	fields.EndTime = info.End

	fields.Location = ExtractLocation(p.tagger, text)

	if fields.StartTime == nil {
		start := hourFloor(ref).Add(time.Hour)
		end := start.Add(time.Hour)
		fields.StartTime = &start
		fields.EndTime = &end
	}

	fields.Title = CleanTitle(text, []string{
		fields.Location,
		formatClock(fields.StartTime),
		formatClock(fields.EndTime),
	})

	return EventResult{Fields: fields, Source: SourceRules}
}

// ParseTask extracts task fields from text, anchored to ref. The due date
// comes from the temporal resolver's start time; priority defaults to
// medium and status to todo.
func (p *Parser) ParseTask(text string, ref time.Time) TaskResult {
	fields := TaskFields{
		Title:    truncate(text, titleFallbackLen),
		Priority: "medium",
		Status:   "todo",
	}

	info := Resolve(text, ref)
	fields.DueDate = info.Start

	if priority := ExtractPriority(text); priority != "" {
		fields.Priority = priority
	}

	fields.Title = CleanTitle(text, []string{
		formatClock(fields.DueDate),
		fields.Priority + " priority",
	})

	return TaskResult{Fields: fields, Source: SourceRules}
}

// formatClock renders t with clockFormat, or "" when t is nil.
func formatClock(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(clockFormat)
}

// hourFloor returns t with minutes, seconds, and nanoseconds zeroed, in t's
// location. time.Truncate is not used because it operates on absolute time
// and misbehaves in zones with non-whole-hour offsets.
func hourFloor(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}
