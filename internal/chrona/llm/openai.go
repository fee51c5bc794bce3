package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/chrona-app/chrona/common/retry"
)

const (
	defaultBaseURL     = "https://api.openai.com/v1"
	defaultModel       = "gpt-4o-mini"
	defaultTimeout     = 30 * time.Second
	defaultTemperature = 0.7
	defaultMaxTokens   = 512
	defaultAttempts    = 3
	retryInitialDelay  = 200 * time.Millisecond
	retryMaxDelay      = 2 * time.Second
)

// Config configures the OpenAI-compatible chat provider.
type Config struct {
	// APIKey is the bearer token used to authenticate against the API.
	// May be empty for local endpoints that do not check authentication.
	APIKey string

	// BaseURL overrides the API endpoint. Useful for local models (Ollama)
	// or any other OpenAI-compatible server.
	// Defaults to https://api.openai.com/v1 when empty.
	BaseURL string

	// Model is the chat model used when a request does not name one.
	// Defaults to gpt-4o-mini when empty.
	Model string

	// Timeout is the HTTP request timeout. Defaults to 30 s.
	Timeout time.Duration

	// MaxAttempts is the total number of tries per completion, including
	// the first. Only transient failures (network faults, HTTP 429 and
	// 5xx) are retried. Defaults to 3 when zero.
	MaxAttempts int
}

// openAIProvider implements Provider using the OpenAI chat completions API.
type openAIProvider struct {
	cfg    Config
	client *http.Client
}

// NewOpenAI returns a Provider backed by the OpenAI (or compatible) chat API.
// The returned provider is safe for concurrent use.
func NewOpenAI(cfg Config) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = defaultAttempts
	}
	return &openAIProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// --- minimal OpenAI wire types ---

type oaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type oaiRequest struct {
	Model       string       `json:"model"`
	Messages    []oaiMessage `json:"messages"`
	Temperature float64      `json:"temperature"`
	MaxTokens   int          `json:"max_tokens,omitempty"`
	Stream      bool         `json:"stream"`
}

type oaiResponse struct {
	Choices []oaiChoice `json:"choices"`
	Usage   struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

type oaiChoice struct {
	Message      oaiMessage `json:"message"`
	FinishReason string     `json:"finish_reason"`
}

// Complete sends a chat completion request and returns the first choice.
func (p *openAIProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = defaultTemperature
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	messages := make([]oaiMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, oaiMessage{Role: m.Role, Content: m.Content})
	}

	body := oaiRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Stream:      false,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("llm: marshal request: %w", err)
	}

	var out *CompletionResponse
	err = retry.Do(ctx, retry.Config{
		MaxAttempts:  p.cfg.MaxAttempts,
		InitialDelay: retryInitialDelay,
		MaxDelay:     retryMaxDelay,
		ShouldRetry:  isTransient,
	}, func() error {
		var attemptErr error
		out, attemptErr = p.doRequest(ctx, data)
		return attemptErr
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// doRequest performs a single completion attempt against the API.
func (p *openAIProvider) doRequest(ctx context.Context, payload []byte) (*CompletionResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.cfg.BaseURL+"/chat/completions",
		bytes.NewReader(payload),
	)
	if err != nil {
		return nil, fmt.Errorf("llm: create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, transient(fmt.Errorf("llm: http request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transient(fmt.Errorf("llm: read response body: %w", err))
	}

	retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500

	var oaiResp oaiResponse
	if err := json.Unmarshal(respBody, &oaiResp); err != nil {
		err = fmt.Errorf("llm: decode API response (HTTP %d): %w", resp.StatusCode, err)
		if retryable {
			err = transient(err)
		}
		return nil, err
	}

	if oaiResp.Error != nil {
		err := fmt.Errorf("llm: API error (%s): %s", oaiResp.Error.Type, oaiResp.Error.Message)
		if retryable {
			return nil, transient(err)
		}
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("llm: unexpected status %d", resp.StatusCode)
		if retryable {
			return nil, transient(err)
		}
		return nil, err
	}
	if len(oaiResp.Choices) == 0 {
		return nil, ErrNoChoices
	}

	choice := oaiResp.Choices[0]
	return &CompletionResponse{
		Content:      choice.Message.Content,
		FinishReason: choice.FinishReason,
		Usage: TokenUsage{
			PromptTokens:     oaiResp.Usage.PromptTokens,
			CompletionTokens: oaiResp.Usage.CompletionTokens,
			TotalTokens:      oaiResp.Usage.TotalTokens,
		},
	}, nil
}

// transientError tags failures that are worth another attempt without
// changing the error message callers see.
type transientError struct{ err error }

func (e transientError) Error() string { return e.err.Error() }
func (e transientError) Unwrap() error { return e.err }

func transient(err error) error { return transientError{err: err} }

func isTransient(err error) bool {
	var te transientError
	return errors.As(err, &te)
}
