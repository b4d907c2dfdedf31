package reasoner

import (
	"fmt"
	"os"
	"strconv"

	"github.com/teemow/inboxagent/internal/reasoner/anthropic"
	"github.com/teemow/inboxagent/internal/reasoner/openai"
)

// Supported providers.
const (
	ProviderOpenAI    = openai.ProviderName
	ProviderAnthropic = anthropic.ProviderName
)

// DefaultSystemPrompt is sent when no other prompt is configured.
const DefaultSystemPrompt = "You are an email and calendar assistant. " +
	"Use the available tools to read the inbox, send email, look up calendar events " +
	"and evaluate arithmetic. Answer concisely once you have what you need."

// Config selects the provider and model.
type Config struct {
	Provider string
	Model    string

	OpenAIAPIKey     string
	OpenAIBaseURL    string
	AnthropicAPIKey  string
	AnthropicBaseURL string

	// Temperature is only sent when HasTemperature is true.
	Temperature    float64
	HasTemperature bool

	MaxTokens    int64
	SystemPrompt string

	// Strict makes the backend reject calls to unknown tools and invalid
	// arguments as malformed responses instead of passing them on to the
	// dispatcher.
	Strict bool
}

// DefaultConfig returns a Config populated from environment variables.
func DefaultConfig() Config {
	cfg := Config{
		Provider:         getEnvOrDefault("AGENT_PROVIDER", ProviderOpenAI),
		Model:            os.Getenv("AGENT_MODEL"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:    os.Getenv("OPENAI_BASE_URL"),
		AnthropicAPIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicBaseURL: os.Getenv("ANTHROPIC_BASE_URL"),
		SystemPrompt:     getEnvOrDefault("AGENT_SYSTEM_PROMPT", DefaultSystemPrompt),
		Strict:           getEnvBoolOrDefault("AGENT_STRICT_TOOLS", false),
	}
	if v := os.Getenv("AGENT_TEMPERATURE"); v != "" {
		if t, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Temperature = t
			cfg.HasTemperature = true
		}
	}
	if v := os.Getenv("AGENT_MAX_TOKENS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxTokens = n
		}
	}
	return cfg
}

// Validate checks that the selected provider has what it needs.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for provider %s", c.Provider)
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required for provider %s", c.Provider)
		}
	default:
		return fmt.Errorf("invalid provider %q, must be one of: %s, %s", c.Provider, ProviderOpenAI, ProviderAnthropic)
	}

	if c.HasTemperature && (c.Temperature < 0 || c.Temperature > 2) {
		return fmt.Errorf("temperature must be between 0.0 and 2.0, got %f", c.Temperature)
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("max tokens must not be negative, got %d", c.MaxTokens)
	}
	return nil
}

// ModelName returns the configured model or the provider's default.
func (c *Config) ModelName() string {
	if c.Model != "" {
		return c.Model
	}
	if c.Provider == ProviderAnthropic {
		return anthropic.DefaultModel
	}
	return openai.DefaultModel
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}
