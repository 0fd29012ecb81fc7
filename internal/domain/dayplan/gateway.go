package dayplan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yanqian/cruise-planner/pkg/metrics"
)

// DefaultSystemInstruction is the fixed system role sent with every prompt.
const DefaultSystemInstruction = "You are an expert cruise port day planner. You always respond with valid JSON only, no markdown."

// DefaultTemperature is used by configuration when none is given.
const DefaultTemperature float32 = 0.7

// ErrMissingAPIKey is returned by provider constructors when no credential is configured.
var ErrMissingAPIKey = errors.New("llm api key not configured")

// CompletionRequest is one chat-style call: a system message, a user message
// and JSON-object response mode.
type CompletionRequest struct {
	SystemInstruction string
	Prompt            string
	Temperature       float32
}

// Completion is the raw provider answer.
type Completion struct {
	Text  string
	Model string
	Usage metrics.TokenUsage
}

// TextGenerator is a hosted text-generation provider.
type TextGenerator interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
}

// GenerationError is a classified provider failure.
type GenerationError struct {
	Kind ErrorKind
	Err  error
}

func (e *GenerationError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Gateway sends prompts to the configured provider and classifies failures.
type Gateway struct {
	cfg    GatewayConfig
	gen    TextGenerator
	tokens *metrics.TokenCounter
	logger *slog.Logger
}

// NewGateway wires a provider. A nil generator means no credential was
// configured; every call then fails with KindLLMNotConfigured without I/O.
func NewGateway(cfg GatewayConfig, gen TextGenerator, tokens *metrics.TokenCounter, logger *slog.Logger) *Gateway {
	if strings.TrimSpace(cfg.SystemInstruction) == "" {
		cfg.SystemInstruction = DefaultSystemInstruction
	}
	if cfg.Temperature < 0 {
		cfg.Temperature = DefaultTemperature
	}
	return &Gateway{
		cfg:    cfg,
		gen:    gen,
		tokens: tokens,
		logger: logger.With("component", "dayplan.gateway"),
	}
}

// Configured reports whether a provider credential is present.
func (g *Gateway) Configured() bool {
	return g != nil && g.gen != nil
}

// Generate returns the raw provider text or a *GenerationError.
func (g *Gateway) Generate(ctx context.Context, prompt string) (Completion, error) {
	if !g.Configured() {
		return Completion{}, &GenerationError{
			Kind: KindLLMNotConfigured,
			Err:  fmt.Errorf("%w: set the %s provider api key", ErrMissingAPIKey, g.providerName()),
		}
	}

	g.logger.Info("calling generation provider", "provider", g.cfg.Provider, "model", g.cfg.Model)
	completion, err := g.gen.Complete(ctx, CompletionRequest{
		SystemInstruction: g.cfg.SystemInstruction,
		Prompt:            prompt,
		Temperature:       g.cfg.Temperature,
	})
	if err != nil {
		kind := ClassifyProviderError(err)
		g.logger.Error("generation provider failed", "kind", kind, "error", err)
		return Completion{}, &GenerationError{Kind: kind, Err: err}
	}
	if strings.TrimSpace(completion.Text) == "" {
		return Completion{}, &GenerationError{Kind: KindProviderError, Err: errors.New("provider returned an empty response")}
	}

	if completion.Usage.IsZero() {
		completion.Usage = metrics.TokenUsage{
			PromptTokens: g.tokens.Count(g.cfg.SystemInstruction) + g.tokens.Count(prompt),
			Estimated:    true,
		}
	}
	completion.Usage = completion.Usage.Normalize()
	g.logger.Info("generation provider succeeded", "response_chars", len(completion.Text), "prompt_tokens", completion.Usage.PromptTokens)
	return completion, nil
}

func (g *Gateway) providerName() string {
	if g == nil || g.cfg.Provider == "" {
		return "llm"
	}
	return g.cfg.Provider
}

var (
	quotaMarkers = []string{"rate_limit", "quota"}
	authMarkers  = []string{"api key", "authentication", "401", "unauthorized"}
)

// ClassifyProviderError maps a provider error to a failure kind by matching the
// lower-cased error text. Quota markers win over auth markers.
func ClassifyProviderError(err error) ErrorKind {
	if err == nil {
		return KindProviderError
	}
	if errors.Is(err, ErrMissingAPIKey) {
		return KindLLMNotConfigured
	}
	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, quotaMarkers):
		return KindQuotaExceeded
	case containsAny(msg, authMarkers):
		return KindAuthenticationFailed
	default:
		return KindProviderError
	}
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
