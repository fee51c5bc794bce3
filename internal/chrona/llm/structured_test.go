package llm_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/chrona-app/chrona/internal/chrona/llm"
)

// stubProvider returns canned content, or an error, and records the last
// request it saw.
type stubProvider struct {
	content string
	err     error
	lastReq llm.CompletionRequest
}

func (s *stubProvider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &llm.CompletionResponse{Content: s.content, FinishReason: "stop"}, nil
}

var classifySchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "command_type": {"type": "string"},
    "confidence": {"type": "number"}
  },
  "required": ["command_type"]
}`)

func generate(t *testing.T, p llm.Provider) (map[string]any, error) {
	t.Helper()
	return llm.GenerateStructured(context.Background(), p, llm.StructuredRequest{
		System: "Classify the command.",
		Prompt: "schedule a meeting tomorrow",
		Schema: classifySchema,
	})
}

func TestGenerateStructured_CleanJSON(t *testing.T) {
	p := &stubProvider{content: `{"command_type": "create_event", "confidence": 0.92}`}
	obj, err := generate(t, p)
	if err != nil {
		t.Fatalf("GenerateStructured: %v", err)
	}
	if obj["command_type"] != "create_event" {
		t.Errorf("command_type: got %v", obj["command_type"])
	}
	if obj["confidence"] != 0.92 {
		t.Errorf("confidence: got %v", obj["confidence"])
	}
}

func TestGenerateStructured_EmbedsSchemaAndInstruction(t *testing.T) {
	p := &stubProvider{content: `{"command_type": "unknown"}`}
	if _, err := generate(t, p); err != nil {
		t.Fatalf("GenerateStructured: %v", err)
	}
	if len(p.lastReq.Messages) != 2 || p.lastReq.Messages[0].Role != "system" {
		t.Fatalf("expected [system, user] messages, got %+v", p.lastReq.Messages)
	}
	system := p.lastReq.Messages[0].Content
	if !strings.Contains(system, `"command_type"`) {
		t.Error("system message does not embed the schema")
	}
	if !strings.Contains(system, "ONLY") {
		t.Error("system message lacks the JSON-only instruction")
	}
	if p.lastReq.Temperature >= 0.5 {
		t.Errorf("temperature not lowered for structured output: %v", p.lastReq.Temperature)
	}
}

func TestGenerateStructured_ExtractsEmbeddedObject(t *testing.T) {
	p := &stubProvider{content: "Sure! Here is the classification:\n" +
		`{"command_type": "create_task", "confidence": 0.8}` + "\nLet me know if you need more."}
	obj, err := generate(t, p)
	if err != nil {
		t.Fatalf("GenerateStructured: %v", err)
	}
	if obj["command_type"] != "create_task" {
		t.Errorf("command_type: got %v", obj["command_type"])
	}
}

func TestGenerateStructured_RepairsMalformedJSON(t *testing.T) {
	// Trailing comma and single quotes both need the repair pass.
	p := &stubProvider{content: `{'command_type': 'show_events', 'confidence': 0.7,}`}
	obj, err := generate(t, p)
	if err != nil {
		t.Fatalf("GenerateStructured: %v", err)
	}
	if obj["command_type"] != "show_events" {
		t.Errorf("command_type: got %v", obj["command_type"])
	}
}

func TestGenerateStructured_SchemaViolation(t *testing.T) {
	p := &stubProvider{content: `{"confidence": "very sure"}`}
	_, err := generate(t, p)
	if !errors.Is(err, llm.ErrStructured) {
		t.Fatalf("expected ErrStructured, got %v", err)
	}
}

func TestGenerateStructured_UnparseableReply(t *testing.T) {
	p := &stubProvider{content: "I cannot answer that."}
	_, err := generate(t, p)
	if !errors.Is(err, llm.ErrStructured) {
		t.Fatalf("expected ErrStructured, got %v", err)
	}
}

func TestGenerateStructured_ProviderErrorPassesThrough(t *testing.T) {
	wantErr := errors.New("endpoint down")
	p := &stubProvider{err: wantErr}
	_, err := generate(t, p)
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

// --- ParseDateTime ---

func TestParseDateTime(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2024-06-01T14:30:00Z", time.Date(2024, 6, 1, 14, 30, 0, 0, time.UTC)},
		{"2024-06-01T14:30:00+02:00", time.Date(2024, 6, 1, 14, 30, 0, 0, time.FixedZone("", 2*3600))},
		{"2024-06-01T14:30:00", time.Date(2024, 6, 1, 14, 30, 0, 0, time.UTC)},
		{"2024-06-01T14:30", time.Date(2024, 6, 1, 14, 30, 0, 0, time.UTC)},
		{"2024-06-01T14:30Z", time.Date(2024, 6, 1, 14, 30, 0, 0, time.UTC)},
		{"2024-06-01", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, err := llm.ParseDateTime(tc.in)
		if err != nil {
			t.Errorf("ParseDateTime(%q): %v", tc.in, err)
			continue
		}
		if !got.Equal(tc.want) {
			t.Errorf("ParseDateTime(%q): got %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseDateTime_Rejects(t *testing.T) {
	for _, in := range []string{"", "tomorrow", "14:30"} {
		if _, err := llm.ParseDateTime(in); err == nil {
			t.Errorf("ParseDateTime(%q): expected an error", in)
		}
	}
}
