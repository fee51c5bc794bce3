package llm_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chrona-app/chrona/internal/chrona/llm"
	"github.com/chrona-app/chrona/internal/chrona/nlp"
)

var parseRef = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

func newExtractionParser(p llm.Provider) *llm.ExtractionParser {
	rules := nlp.NewParser(nlp.NewHeuristicTagger())
	return llm.NewExtractionParser(p, rules, "test-model", nil)
}

func TestExtractionParser_ParseEvent_ModelOutput(t *testing.T) {
	p := &stubProvider{content: `{
		"title": "Team standup",
		"start_time": "2023-01-03T14:00:00Z",
		"end_time": "2023-01-03T15:00:00Z",
		"location": "room 4"
	}`}
	res := newExtractionParser(p).ParseEvent(context.Background(), "standup tomorrow at 2pm in room 4", parseRef)

	if res.Source != nlp.SourceLanguageModel {
		t.Fatalf("source: got %q, want %q", res.Source, nlp.SourceLanguageModel)
	}
	if res.Fields.Title != "Team standup" {
		t.Errorf("title: got %q", res.Fields.Title)
	}
	if res.Fields.Location != "room 4" {
		t.Errorf("location: got %q", res.Fields.Location)
	}
	wantStart := time.Date(2023, 1, 3, 14, 0, 0, 0, time.UTC)
	if res.Fields.StartTime == nil || !res.Fields.StartTime.Equal(wantStart) {
		t.Errorf("start: got %v, want %v", res.Fields.StartTime, wantStart)
	}
}

func TestExtractionParser_ParseEvent_SynthesizesEnd(t *testing.T) {
	p := &stubProvider{content: `{"title": "Dentist", "start_time": "2023-01-03T10:00:00Z", "end_time": "not-a-date"}`}
	res := newExtractionParser(p).ParseEvent(context.Background(), "dentist tomorrow at 10", parseRef)

	if res.Fields.StartTime == nil || res.Fields.EndTime == nil {
		t.Fatal("expected synthesized end time")
	}
	if got := res.Fields.EndTime.Sub(*res.Fields.StartTime); got != time.Hour {
		t.Errorf("synthesized duration: got %v, want 1h", got)
	}
}

func TestExtractionParser_ParseEvent_FallsBackOnError(t *testing.T) {
	p := &stubProvider{err: errors.New("endpoint down")}
	res := newExtractionParser(p).ParseEvent(context.Background(), "Meeting tomorrow at 2pm", parseRef)

	if res.Source != nlp.SourceRules {
		t.Fatalf("source: got %q, want %q", res.Source, nlp.SourceRules)
	}
	wantStart := time.Date(2023, 1, 3, 14, 0, 0, 0, time.UTC)
	if res.Fields.StartTime == nil || !res.Fields.StartTime.Equal(wantStart) {
		t.Errorf("fallback start: got %v, want %v", res.Fields.StartTime, wantStart)
	}
}

func TestExtractionParser_ParseEvent_FallsBackOnGarbage(t *testing.T) {
	p := &stubProvider{content: "no json here"}
	res := newExtractionParser(p).ParseEvent(context.Background(), "Meeting tomorrow at 2pm", parseRef)
	if res.Source != nlp.SourceRules {
		t.Errorf("source: got %q, want %q", res.Source, nlp.SourceRules)
	}
}

func TestExtractionParser_ParseEvent_NilProviderUsesRules(t *testing.T) {
	res := newExtractionParser(nil).ParseEvent(context.Background(), "Meeting tomorrow", parseRef)
	if res.Source != nlp.SourceRules {
		t.Errorf("source: got %q, want %q", res.Source, nlp.SourceRules)
	}
}

func TestExtractionParser_ParseTask_ModelOutput(t *testing.T) {
	p := &stubProvider{content: `{"title": "Submit report", "due_date": "2023-01-06T09:00:00Z", "priority": "high"}`}
	res := newExtractionParser(p).ParseTask(context.Background(), "submit report by friday high priority", parseRef)

	if res.Source != nlp.SourceLanguageModel {
		t.Fatalf("source: got %q, want %q", res.Source, nlp.SourceLanguageModel)
	}
	if res.Fields.Priority != "high" {
		t.Errorf("priority: got %q", res.Fields.Priority)
	}
	if res.Fields.Status != "todo" {
		t.Errorf("default status: got %q", res.Fields.Status)
	}
	if res.Fields.DueDate == nil || res.Fields.DueDate.Day() != 6 {
		t.Errorf("due date: got %v", res.Fields.DueDate)
	}
}

func TestExtractionParser_ParseTask_FallsBackOnError(t *testing.T) {
	p := &stubProvider{err: errors.New("endpoint down")}
	res := newExtractionParser(p).ParseTask(context.Background(), "submit report by friday high priority", parseRef)

	if res.Source != nlp.SourceRules {
		t.Fatalf("source: got %q, want %q", res.Source, nlp.SourceRules)
	}
	if res.Fields.Priority != "high" {
		t.Errorf("fallback priority: got %q", res.Fields.Priority)
	}
}
