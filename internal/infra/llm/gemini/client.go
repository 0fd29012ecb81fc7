package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/yanqian/cruise-planner/internal/domain/dayplan"
	"github.com/yanqian/cruise-planner/pkg/metrics"
)

const defaultModel = "gemini-1.5-flash"

// Client generates plans with the Gemini API in JSON response mode.
type Client struct {
	api   *genai.Client
	model string
}

// NewClient dials Gemini. An empty key returns dayplan.ErrMissingAPIKey.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, dayplan.ErrMissingAPIKey
	}
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}
	api, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{api: api, model: model}, nil
}

// Complete implements dayplan.TextGenerator.
func (c *Client) Complete(ctx context.Context, req dayplan.CompletionRequest) (dayplan.Completion, error) {
	m := c.api.GenerativeModel(c.model)
	m.ResponseMIMEType = "application/json"
	m.SetTemperature(req.Temperature)
	if req.SystemInstruction != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.SystemInstruction)}}
	}

	resp, err := m.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return dayplan.Completion{}, fmt.Errorf("gemini: %w", err)
	}
	text, err := responseText(resp)
	if err != nil {
		return dayplan.Completion{}, err
	}
	return dayplan.Completion{
		Text:  text,
		Model: c.model,
		Usage: usageOf(resp),
	}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.api.Close()
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("gemini: no candidates")
	}
	content := resp.Candidates[0].Content
	if content == nil {
		return "", errors.New("gemini: empty candidate")
	}
	var b strings.Builder
	for _, part := range content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String(), nil
}

func usageOf(resp *genai.GenerateContentResponse) metrics.TokenUsage {
	if resp == nil || resp.UsageMetadata == nil {
		return metrics.TokenUsage{}
	}
	return metrics.TokenUsage{
		PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
		CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
	}
}

var _ dayplan.TextGenerator = (*Client)(nil)
