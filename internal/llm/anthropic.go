package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	messagesPath     = "/v1/messages"
	anthropicVersion = "2023-06-01"
	defaultModel     = "claude-sonnet-4-5-20250929"

	// maxAttempts is the total request budget per Complete call, including
	// the first attempt.
	maxAttempts = 3
)

// AnthropicProvider talks to the Anthropic Messages API directly over HTTP.
// Retry, backoff, and error classification live here; callers above never
// retry a completion.
type AnthropicProvider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	logger  *log.Logger

	// sleep is swapped out in tests to avoid real backoff waits.
	sleep func(time.Duration)
}

// NewAnthropicProvider builds a provider for the given key. An empty model
// selects the default.
func NewAnthropicProvider(apiKey, model string) *AnthropicProvider {
	if model == "" {
		model = defaultModel
	}
	return &AnthropicProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		client:  &http.Client{},
		sleep:   time.Sleep,
	}
}

// SetLogger attaches a logger for retry warnings. Nil disables them.
func (p *AnthropicProvider) SetLogger(logger *log.Logger) { p.logger = logger }

func (p *AnthropicProvider) Name() string  { return "anthropic" }
func (p *AnthropicProvider) Model() string { return p.model }

// -- wire types --

type apiRequest struct {
	Model     string           `json:"model"`
	MaxTokens int              `json:"max_tokens"`
	System    string           `json:"system"`
	Messages  []Message        `json:"messages"`
	Tools     []ToolDefinition `json:"tools,omitempty"`
}

type apiResponse struct {
	Content    []ContentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      TokenUsage     `json:"usage"`
}

type apiErrorEnvelope struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete performs one blocking round trip, retrying 429 and 5xx responses
// up to the attempt budget.
func (p *AnthropicProvider) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	body, err := json.Marshal(apiRequest{
		Model:     p.model,
		MaxTokens: req.MaxTokens,
		System:    req.System,
		Messages:  req.Messages,
		Tools:     req.Tools,
	})
	if err != nil {
		return nil, &ParseResponseError{Message: fmt.Sprintf("encode request: %v", err)}
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		resp, err := p.post(ctx, body)
		if err != nil {
			return nil, &HTTPError{Err: err}
		}

		if resp.StatusCode == http.StatusOK {
			return p.decodeSuccess(resp)
		}

		raw, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		// Retryable: rate limit or server-side failure.
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			delay := retryDelay(resp.Header.Get("Retry-After"), attempt)
			if p.logger != nil {
				p.logger.Printf("⚠ retryable API error (status %d, attempt %d/%d), backing off %v: %s",
					resp.StatusCode, attempt+1, maxAttempts, delay, bytes.TrimSpace(raw))
			}
			p.sleep(delay)
			continue
		}

		if resp.StatusCode == http.StatusUnauthorized {
			return nil, &AuthError{Message: "invalid API key"}
		}

		// Any other non-2xx: extract the vendor message if the envelope
		// parses, otherwise synthesize one from the raw body.
		var envelope apiErrorEnvelope
		if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Message != "" {
			return nil, &APIError{Message: envelope.Error.Message}
		}
		return nil, &APIError{Message: fmt.Sprintf("status %d: %s", resp.StatusCode, bytes.TrimSpace(raw))}
	}

	return nil, &RetriesExhaustedError{Attempts: maxAttempts}
}

func (p *AnthropicProvider) post(ctx context.Context, body []byte) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+messagesPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)
	httpReq.Header.Set("content-type", "application/json")
	return p.client.Do(httpReq)
}

func (p *AnthropicProvider) decodeSuccess(resp *http.Response) (*CompletionResponse, error) {
	defer resp.Body.Close()

	var api apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&api); err != nil {
		return nil, &ParseResponseError{Message: err.Error()}
	}

	return &CompletionResponse{
		Content:    api.Content,
		StopReason: p.mapStopReason(api.StopReason),
		Usage:      api.Usage,
	}, nil
}

// mapStopReason translates the vendor string to the normalized enum. An
// unrecognized value falls back to end_turn with a warning so truncation
// under a novel stop reason at least leaves a trace.
func (p *AnthropicProvider) mapStopReason(reason string) StopReason {
	switch reason {
	case "end_turn":
		return StopEndTurn
	case "tool_use":
		return StopToolUse
	case "max_tokens":
		return StopMaxTokens
	case "stop_sequence":
		return StopStopSequence
	default:
		if p.logger != nil {
			p.logger.Printf("⚠ unrecognized stop reason %q, treating as end_turn", reason)
		}
		return StopEndTurn
	}
}

// retryDelay honors a parseable Retry-After header, falling back to
// exponential backoff (2^attempt seconds).
func retryDelay(retryAfter string, attempt int) time.Duration {
	if retryAfter != "" {
		if secs, err := strconv.Atoi(retryAfter); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return time.Duration(1<<uint(attempt)) * time.Second
}

// CheckAuth probes the credential with a minimal 1-token completion. A 401
// maps to an invalid status; any other failure is surfaced as-is.
func (p *AnthropicProvider) CheckAuth(ctx context.Context) (AuthStatus, error) {
	req := &CompletionRequest{
		Messages: []Message{{
			Role:    RoleUser,
			Content: []ContentBlock{TextBlock("hi")},
		}},
		MaxTokens: 1,
	}

	_, err := p.Complete(ctx, req)
	if err == nil {
		return AuthStatus{Valid: true}, nil
	}
	if IsAuthError(err) {
		return AuthStatus{Valid: false, Reason: err.Error()}, nil
	}
	return AuthStatus{}, err
}
