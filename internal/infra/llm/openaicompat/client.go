package openaicompat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/yanqian/cruise-planner/internal/domain/dayplan"
	"github.com/yanqian/cruise-planner/pkg/metrics"
)

// Base URLs for the supported chat-completions hosts.
const (
	GroqBaseURL   = "https://api.groq.com/openai/v1"
	OpenAIBaseURL = "https://api.openai.com/v1"
)

// Config configures a chat-completions client.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client calls an OpenAI-compatible chat completions endpoint in JSON mode.
type Client struct {
	api   *openai.Client
	model string
}

// NewClient builds a client. An empty key returns dayplan.ErrMissingAPIKey.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, dayplan.ErrMissingAPIKey
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("openaicompat: model cannot be empty")
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = GroqBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	apiCfg.BaseURL = strings.TrimRight(baseURL, "/")
	apiCfg.HTTPClient = &http.Client{Timeout: timeout}

	return &Client{
		api:   openai.NewClientWithConfig(apiCfg),
		model: cfg.Model,
	}, nil
}

// Complete implements dayplan.TextGenerator.
func (c *Client) Complete(ctx context.Context, req dayplan.CompletionRequest) (dayplan.Completion, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemInstruction},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		Temperature: req.Temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return dayplan.Completion{}, describeError(err)
	}
	if len(resp.Choices) == 0 {
		return dayplan.Completion{}, errors.New("chat completion returned no choices")
	}

	model := resp.Model
	if model == "" {
		model = c.model
	}
	return dayplan.Completion{
		Text:  resp.Choices[0].Message.Content,
		Model: model,
		Usage: metrics.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// describeError folds the structured API error fields into the message so the
// gateway classifier can see provider codes like rate_limit_exceeded.
func describeError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("chat completion failed: status=%d code=%v type=%s: %w", apiErr.HTTPStatusCode, apiErr.Code, apiErr.Type, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("chat completion failed: status=%d: %w", reqErr.HTTPStatusCode, err)
	}
	return fmt.Errorf("chat completion failed: %w", err)
}

var _ dayplan.TextGenerator = (*Client)(nil)
