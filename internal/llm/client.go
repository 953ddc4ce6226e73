package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	defaultModel       = openai.GPT4oMini
	defaultTemperature = 0.9
)

// ErrRateLimited marks a completion rejected with HTTP 429.
var ErrRateLimited = errors.New("llm: rate limited")

// IsRateLimited reports whether err is, or wraps, a rate-limit failure.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// Config captures the runtime settings required to talk to the LLM.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// UsageRecorder receives token counts for every successful completion.
type UsageRecorder interface {
	Record(inputTokens, outputTokens int64)
}

type chatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client issues JSON-mode chat completions.
type Client struct {
	cfg   Config
	api   chatAPI
	usage UsageRecorder
}

// Option customizes the client.
type Option func(*Client)

// WithUsageRecorder reports token usage to rec.
func WithUsageRecorder(rec UsageRecorder) Option {
	return func(c *Client) {
		c.usage = rec
	}
}

func withAPI(api chatAPI) Option {
	return func(c *Client) {
		c.api = api
	}
}

// NewClient constructs a client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	oc.HTTPClient = &http.Client{Timeout: timeout}

	c := &Client{cfg: cfg, api: openai.NewClientWithConfig(oc)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.cfg.Model
}

// Configured reports whether an API key is available.
func (c *Client) Configured() bool {
	return c.cfg.APIKey != ""
}

// CompleteJSON sends one system and one user prompt and returns the raw JSON
// content of the first choice. It does not retry.
func (c *Client) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	systemPrompt = strings.TrimSpace(systemPrompt)
	userPrompt = strings.TrimSpace(userPrompt)
	if systemPrompt == "" {
		return "", errors.New("llm complete: system prompt required")
	}
	if userPrompt == "" {
		return "", errors.New("llm complete: user prompt required")
	}
	if !c.Configured() {
		return "", errors.New("llm complete: api key required")
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: defaultTemperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", classify(err)
	}

	if c.usage != nil {
		c.usage.Record(int64(resp.Usage.PromptTokens), int64(resp.Usage.CompletionTokens))
	}
	slog.Debug("llm completion",
		slog.String("model", c.cfg.Model),
		slog.Int("prompt_tokens", resp.Usage.PromptTokens),
		slog.Int("completion_tokens", resp.Usage.CompletionTokens),
		slog.Duration("elapsed", time.Since(start)))

	if len(resp.Choices) == 0 {
		return "", errors.New("llm complete: empty choices")
	}
	choice := resp.Choices[0]
	content := strings.TrimSpace(choice.Message.Content)
	if content == "" {
		return "", fmt.Errorf("llm complete: empty content (finish_reason=%q, refusal=%q)",
			choice.FinishReason, choice.Message.Refusal)
	}
	return content, nil
}

func classify(err error) error {
	if status := statusCode(err); status == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	return fmt.Errorf("llm complete: %w", err)
}

func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
