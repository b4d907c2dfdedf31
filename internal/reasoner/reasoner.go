package reasoner

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/teemow/inboxagent/internal/agent"
	"github.com/teemow/inboxagent/internal/instrumentation"
	"github.com/teemow/inboxagent/internal/logging"
	"github.com/teemow/inboxagent/internal/reasoner/anthropic"
	"github.com/teemow/inboxagent/internal/reasoner/openai"
)

// New validates cfg and returns the configured backend wrapped in Instrumented.
// httpClient may be nil.
func New(cfg Config, httpClient *http.Client, metrics *instrumentation.Metrics, logger *slog.Logger) (*Instrumented, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		backend agent.Reasoner
		err     error
	)
	switch cfg.Provider {
	case ProviderOpenAI:
		backend, err = openai.New(openai.Config{
			APIKey:       cfg.OpenAIAPIKey,
			BaseURL:      cfg.OpenAIBaseURL,
			Model:        cfg.ModelName(),
			Temperature:  float32(cfg.Temperature),
			SystemPrompt: cfg.SystemPrompt,
			Strict:       cfg.Strict,
			HTTPClient:   httpClient,
		})
	case ProviderAnthropic:
		backend, err = anthropic.New(anthropic.Config{
			APIKey:         cfg.AnthropicAPIKey,
			BaseURL:        cfg.AnthropicBaseURL,
			Model:          cfg.ModelName(),
			MaxTokens:      cfg.MaxTokens,
			Temperature:    cfg.Temperature,
			SetTemperature: cfg.HasTemperature,
			SystemPrompt:   cfg.SystemPrompt,
			Strict:         cfg.Strict,
			HTTPClient:     httpClient,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s reasoner: %w", cfg.Provider, err)
	}

	return NewInstrumented(backend, cfg.Provider, cfg.ModelName(), metrics, logger), nil
}

// Instrumented wraps a Reasoner with tracing, metrics and debug logging.
type Instrumented struct {
	next     agent.Reasoner
	provider string
	model    string
	metrics  *instrumentation.Metrics
	logger   *slog.Logger
}

// NewInstrumented wraps next. metrics and logger may be nil.
func NewInstrumented(next agent.Reasoner, provider, model string, metrics *instrumentation.Metrics, logger *slog.Logger) *Instrumented {
	if logger == nil {
		logger = slog.Default()
	}
	return &Instrumented{next: next, provider: provider, model: model, metrics: metrics, logger: logger}
}

// Provider returns the backend name.
func (r *Instrumented) Provider() string { return r.provider }

// Model returns the model name.
func (r *Instrumented) Model() string { return r.model }

// Infer implements agent.Reasoner.
func (r *Instrumented) Infer(ctx context.Context, messages []agent.Message, tools []agent.ToolDefinition) (agent.Message, error) {
	ctx, span := instrumentation.StartReasonerSpan(ctx, r.provider, r.model)

	start := time.Now()
	msg, err := r.next.Infer(ctx, messages, tools)
	duration := time.Since(start)

	status := instrumentation.EndSpan(span, err)
	r.metrics.RecordReasonerRequest(ctx, r.provider, r.model, status, duration)

	r.logger.Debug("reasoner call finished",
		logging.Model(r.provider, r.model),
		logging.Status(status),
		slog.Int("messages", len(messages)),
		slog.Int("tool_calls", len(msg.ToolCalls)),
		slog.Duration(logging.KeyDuration, duration))

	return msg, err
}
