// Package llm provides the language-model adapter for Chrona.
//
// The adapter sits behind the rule-based pipeline: every caller that uses it
// must be able to degrade to the keyword/regex path when the endpoint is
// unreachable, slow, or returns something unparseable. Nothing in this
// package is allowed to panic or leak a raw transport error past the
// command-handler boundary; failures come back as wrapped errors that the
// caller converts into a fallback decision.
package llm

import (
	"context"
	"errors"
)

// ErrStructured is returned by GenerateStructured when the model's reply
// cannot be interpreted as a JSON object matching the requested schema,
// even after span extraction and repair. Callers should fall back to the
// rule-based parser rather than surface this to the user.
var ErrStructured = errors.New("llm: structured output did not match schema")

// ErrNoChoices is returned when the chat endpoint answers with a well-formed
// body that carries no completion choices.
var ErrNoChoices = errors.New("llm: no choices in response")

// Message is a single chat turn sent to or received from the endpoint.
type Message struct {
	// Role is "system", "user", or "assistant".
	Role string `json:"role"`
	// Content is the message text.
	Content string `json:"content"`
}

// CompletionRequest is the input to a single chat completion call.
type CompletionRequest struct {
	// Model overrides the provider's default model when non-empty.
	Model string
	// Messages is the ordered conversation, system prompt first.
	Messages []Message
	// Temperature controls sampling. Zero means the provider default.
	Temperature float64
	// MaxTokens caps the reply length. Zero means the provider default.
	MaxTokens int
}

// CompletionResponse is the assistant's reply to a completion call.
type CompletionResponse struct {
	// Content is the text of the first choice.
	Content string
	// FinishReason is the provider's stop reason for that choice.
	FinishReason string
	// Usage holds token counts when the endpoint reports them.
	Usage TokenUsage
}

// TokenUsage carries the token counts reported by the endpoint for a single
// call. Fields are zero-valued when the endpoint omits usage data.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Provider sends chat completion requests to an OpenAI-compatible endpoint.
//
// Implementations must be safe for concurrent use from multiple goroutines.
// When an implementation is unavailable (network error, timeout, non-2xx
// status) it returns a descriptive error; callers degrade to the rule-based
// pipeline.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}
