package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// structuredTemperature keeps the model deterministic when we need schema
// conformance rather than prose.
const structuredTemperature = 0.1

// StructuredRequest is the input to a single structured-output call.
type StructuredRequest struct {
	// Model overrides the provider's default model when non-empty.
	Model string
	// System is the task instruction. The JSON schema is appended to it.
	System string
	// Prompt is the user message.
	Prompt string
	// Schema is a JSON Schema document the reply must conform to.
	Schema json.RawMessage
	// MaxTokens caps the reply length. Zero means the provider default.
	MaxTokens int
}

// GenerateStructured asks the model for a JSON object conforming to
// req.Schema and returns the decoded object.
//
// The schema is embedded, indented, in the system message together with a
// JSON-only instruction. The reply is parsed leniently: first the span from
// the first "{" to the last "}", then the whole body, then a repaired copy
// of the body. Whatever parses is validated against the compiled schema.
// Any failure along the way returns an error wrapping ErrStructured so the
// caller can fall back to the rule-based pipeline.
func GenerateStructured(ctx context.Context, p Provider, req StructuredRequest) (map[string]any, error) {
	compiled, err := jsonschema.CompileString("schema.json", string(req.Schema))
	if err != nil {
		return nil, fmt.Errorf("llm: compile schema: %w", err)
	}

	var indented bytes.Buffer
	if err := json.Indent(&indented, req.Schema, "", "  "); err != nil {
		return nil, fmt.Errorf("llm: indent schema: %w", err)
	}

	system := req.System + "\n\nRespond ONLY with a single JSON object that conforms to this JSON schema:\n" +
		indented.String() +
		"\nNo markdown, no code fences, no text before or after the JSON object."

	resp, err := p.Complete(ctx, CompletionRequest{
		Model: req.Model,
		Messages: []Message{
			{Role: "system", Content: system},
			{Role: "user", Content: req.Prompt},
		},
		Temperature: structuredTemperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	value, err := decodeObject(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStructured, err)
	}
	if err := compiled.Validate(value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStructured, err)
	}
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: reply is not a JSON object", ErrStructured)
	}
	return obj, nil
}

// decodeObject extracts a JSON value from free-text model output.
func decodeObject(content string) (any, error) {
	candidates := make([]string, 0, 2)
	if i, j := strings.Index(content, "{"), strings.LastIndex(content, "}"); i >= 0 && j > i {
		candidates = append(candidates, content[i:j+1])
	}
	candidates = append(candidates, content)

	var lastErr error
	for _, c := range candidates {
		var value any
		if err := json.Unmarshal([]byte(c), &value); err == nil {
			return value, nil
		} else {
			lastErr = err
		}
		repaired, err := jsonrepair.JSONRepair(c)
		if err != nil {
			lastErr = err
			continue
		}
		if err := json.Unmarshal([]byte(repaired), &value); err == nil {
			return value, nil
		} else {
			lastErr = err
		}
	}
	return nil, lastErr
}

// iso8601Layouts are the accepted datetime profiles, most specific first.
var iso8601Layouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDateTime parses a model-generated datetime string on an ISO-8601
// profile. A trailing literal "Z" on an otherwise offset-less string is
// repaired to an explicit UTC offset once before giving up.
func ParseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("llm: empty datetime")
	}
	for _, layout := range iso8601Layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if strings.HasSuffix(s, "Z") {
		repaired := strings.TrimSuffix(s, "Z") + "+00:00"
		for _, layout := range []string{"2006-01-02T15:04:05-07:00", "2006-01-02T15:04-07:00"} {
			if t, err := time.Parse(layout, repaired); err == nil {
				return t, nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("llm: unparseable datetime %q", s)
}
