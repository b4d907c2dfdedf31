package cmd

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxagent/internal/agent"
	"github.com/teemow/inboxagent/internal/google"
	"github.com/teemow/inboxagent/internal/reasoner"
	"github.com/teemow/inboxagent/internal/transcript"
)

// AgentConfig holds the settings shared by every command that runs the agent.
type AgentConfig struct {
	Reasoner reasoner.Config

	MaxSteps    int
	StepTimeout time.Duration
	ToolTimeout time.Duration
	RunTimeout  time.Duration
	Concurrency int

	// ReadOnly leaves out send_email and requests read-only Google scopes.
	ReadOnly bool

	CredentialsFile string
	TokenFile       string

	Debug     bool
	LogFormat string
}

// agentFlags binds the AgentConfig flags of a command.
type agentFlags struct {
	cfg AgentConfig
}

func (f *agentFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.cfg.Reasoner.Provider, "provider", reasoner.ProviderOpenAI, "Language model provider: openai or anthropic. Can also use AGENT_PROVIDER env var.")
	cmd.Flags().StringVar(&f.cfg.Reasoner.Model, "model", "", "Model name (default depends on the provider). Can also use AGENT_MODEL env var.")
	cmd.Flags().IntVar(&f.cfg.MaxSteps, "max-steps", agent.DefaultMaxSteps, "Maximum reasoning steps per request. Can also use AGENT_MAX_STEPS env var.")
	cmd.Flags().DurationVar(&f.cfg.StepTimeout, "step-timeout", agent.DefaultStepTimeout, "Timeout of one model call. Can also use AGENT_STEP_TIMEOUT env var.")
	cmd.Flags().DurationVar(&f.cfg.ToolTimeout, "tool-timeout", agent.DefaultToolTimeout, "Timeout of one tool call. Can also use AGENT_TOOL_TIMEOUT env var.")
	cmd.Flags().DurationVar(&f.cfg.RunTimeout, "run-timeout", agent.DefaultRunTimeout, "Timeout of a whole request. Can also use AGENT_RUN_TIMEOUT env var.")
	cmd.Flags().IntVar(&f.cfg.Concurrency, "tool-concurrency", 4, "Maximum tool calls executed in parallel within one step.")
	cmd.Flags().BoolVar(&f.cfg.ReadOnly, "read-only", false, "Disable send_email and request read-only Google scopes. Can also use AGENT_READ_ONLY env var.")
	cmd.Flags().StringVar(&f.cfg.CredentialsFile, "credentials-file", google.DefaultCredentialsFile, "Google OAuth client secrets file. Can also use GOOGLE_CREDENTIALS_FILE env var.")
	cmd.Flags().StringVar(&f.cfg.TokenFile, "token-file", google.DefaultTokenFile, "Google OAuth token cache. Can also use GOOGLE_TOKEN_FILE env var.")
	cmd.Flags().BoolVar(&f.cfg.Debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&f.cfg.LogFormat, "log-format", "text", "Log format: text or json. Can also use LOG_FORMAT env var.")
}

// load applies environment variables to every flag the user did not set and
// returns the resulting configuration.
func (f *agentFlags) load(cmd *cobra.Command) AgentConfig {
	cfg := f.cfg

	// Reasoner settings without a flag always come from the environment.
	env := reasoner.DefaultConfig()
	env.Provider = envString(cmd, "provider", "AGENT_PROVIDER", cfg.Reasoner.Provider)
	env.Model = envString(cmd, "model", "AGENT_MODEL", cfg.Reasoner.Model)
	cfg.Reasoner = env

	cfg.MaxSteps = envInt(cmd, "max-steps", "AGENT_MAX_STEPS", cfg.MaxSteps)
	cfg.StepTimeout = envDuration(cmd, "step-timeout", "AGENT_STEP_TIMEOUT", cfg.StepTimeout)
	cfg.ToolTimeout = envDuration(cmd, "tool-timeout", "AGENT_TOOL_TIMEOUT", cfg.ToolTimeout)
	cfg.RunTimeout = envDuration(cmd, "run-timeout", "AGENT_RUN_TIMEOUT", cfg.RunTimeout)
	cfg.ReadOnly = envBool(cmd, "read-only", "AGENT_READ_ONLY", cfg.ReadOnly)
	cfg.CredentialsFile = envString(cmd, "credentials-file", "GOOGLE_CREDENTIALS_FILE", cfg.CredentialsFile)
	cfg.TokenFile = envString(cmd, "token-file", "GOOGLE_TOKEN_FILE", cfg.TokenFile)
	cfg.LogFormat = envString(cmd, "log-format", "LOG_FORMAT", cfg.LogFormat)

	return cfg
}

// transcriptFlags binds the transcript storage flags of a command.
type transcriptFlags struct {
	cfg transcript.Config
}

func (f *transcriptFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.cfg.Type, "transcript-store", transcript.StorageTypeMemory, "Transcript storage: memory, valkey or none. Can also use TRANSCRIPT_STORE env var.")
	cmd.Flags().IntVar(&f.cfg.MaxRecords, "transcript-max-records", transcript.DefaultMaxRecords, "Number of transcripts kept.")
	cmd.Flags().DurationVar(&f.cfg.TTL, "transcript-ttl", transcript.DefaultTTL, "Lifetime of a transcript in Valkey. Can also use TRANSCRIPT_TTL env var.")
	cmd.Flags().StringVar(&f.cfg.Valkey.URL, "valkey-url", "", "Valkey server address (e.g., valkey.namespace.svc:6379). Can also use VALKEY_URL env var.")
	cmd.Flags().StringVar(&f.cfg.Valkey.Password, "valkey-password", "", "Valkey authentication password. Can also use VALKEY_PASSWORD env var.")
	cmd.Flags().BoolVar(&f.cfg.Valkey.TLSEnabled, "valkey-tls", false, "Enable TLS for Valkey connections. Can also use VALKEY_TLS_ENABLED env var.")
	cmd.Flags().StringVar(&f.cfg.Valkey.KeyPrefix, "valkey-key-prefix", transcript.DefaultKeyPrefix, "Prefix for all Valkey keys. Can also use VALKEY_KEY_PREFIX env var.")
	cmd.Flags().IntVar(&f.cfg.Valkey.DB, "valkey-db", 0, "Valkey database number. Can also use VALKEY_DB env var.")
}

func (f *transcriptFlags) load(cmd *cobra.Command) transcript.Config {
	cfg := f.cfg
	cfg.Type = envString(cmd, "transcript-store", "TRANSCRIPT_STORE", cfg.Type)
	cfg.TTL = envDuration(cmd, "transcript-ttl", "TRANSCRIPT_TTL", cfg.TTL)
	cfg.Valkey.URL = envString(cmd, "valkey-url", "VALKEY_URL", cfg.Valkey.URL)
	cfg.Valkey.Password = envString(cmd, "valkey-password", "VALKEY_PASSWORD", cfg.Valkey.Password)
	cfg.Valkey.TLSEnabled = envBool(cmd, "valkey-tls", "VALKEY_TLS_ENABLED", cfg.Valkey.TLSEnabled)
	cfg.Valkey.KeyPrefix = envString(cmd, "valkey-key-prefix", "VALKEY_KEY_PREFIX", cfg.Valkey.KeyPrefix)
	cfg.Valkey.DB = envInt(cmd, "valkey-db", "VALKEY_DB", cfg.Valkey.DB)
	return cfg
}

// envString returns the value of the environment variable key unless the
// flag was set explicitly on the command line.
func envString(cmd *cobra.Command, flag, key, value string) string {
	if cmd.Flags().Changed(flag) {
		return value
	}
	if v := os.Getenv(key); v != "" {
		return v
	}
	return value
}

func envInt(cmd *cobra.Command, flag, key string, value int) int {
	if cmd.Flags().Changed(flag) {
		return value
	}
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return value
}

func envBool(cmd *cobra.Command, flag, key string, value bool) bool {
	if cmd.Flags().Changed(flag) {
		return value
	}
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return value
}

func envDuration(cmd *cobra.Command, flag, key string, value time.Duration) time.Duration {
	if cmd.Flags().Changed(flag) {
		return value
	}
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return value
}

// parseCommaSeparatedList parses a comma-separated string into a slice,
// trimming whitespace from each element and filtering out empty strings.
// Returns nil if the input is empty or contains only whitespace/commas.
func parseCommaSeparatedList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
