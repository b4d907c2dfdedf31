package instrumentation

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"
)

// Exporter types.
const (
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"
)

// DefaultMetricInterval is the export interval of push-based metric
// exporters.
const DefaultMetricInterval = 10 * time.Second

// Config holds the OpenTelemetry settings of the agent.
type Config struct {
	// Enabled turns metrics and tracing on (default: true). A disabled
	// provider hands out no-op recorders.
	Enabled bool

	Service      ServiceConfig
	Metrics      MetricsConfig
	Tracing      TracingConfig
	OTLP         OTLPConfig
	AuditLogging AuditLoggingConfig
}

// ServiceConfig describes the process in the exported resource.
type ServiceConfig struct {
	Name    string // default: inboxagent
	Version string

	// InstanceID defaults to the hostname, which is the pod name in
	// Kubernetes.
	InstanceID string

	Namespace string
	PodName   string
}

// MetricsConfig selects the metrics exporter.
type MetricsConfig struct {
	// Exporter is "prometheus", "otlp" or "stdout" (default: "prometheus").
	Exporter string

	// Interval applies to the push-based otlp and stdout exporters.
	Interval time.Duration

	// DetailedLabels adds model names and recipient domains to the labels.
	// Keep it off in production.
	DetailedLabels bool
}

// TracingConfig selects the span exporter.
type TracingConfig struct {
	// Exporter is "otlp", "stdout" or "none" (default: "none").
	Exporter string

	// SamplingRate is the ratio of root spans sampled, 0.0 to 1.0
	// (default: 0.1).
	SamplingRate float64
}

// OTLPConfig addresses the collector used by the otlp exporters.
type OTLPConfig struct {
	// Endpoint without scheme, e.g. "localhost:4318".
	Endpoint string

	// Insecure sends plain HTTP. Spans carry tool names and recipient
	// domains, so only use it against a local collector.
	Insecure bool
}

// AuditLoggingConfig holds configuration for audit logging.
type AuditLoggingConfig struct {
	// Enabled determines if audit logging is active (default: true)
	Enabled bool

	// IncludePII logs full recipient addresses instead of their domain.
	IncludePII bool

	// LogLevel is "debug", "info", "warn" or "error" (default: "info").
	LogLevel string
}

// DefaultConfig reads the configuration from the process environment.
func DefaultConfig() Config {
	return ConfigFromEnv(os.Getenv)
}

// ConfigFromEnv builds a Config from the standard OTEL_* variables and the
// agent's own ones, looked up with getenv. Unset or unparsable values fall
// back to the defaults.
func ConfigFromEnv(getenv func(string) string) Config {
	env := envReader(getenv)

	return Config{
		Enabled: env.getBool("INSTRUMENTATION_ENABLED", true),
		Service: ServiceConfig{
			Name:       env.getString("OTEL_SERVICE_NAME", "inboxagent"),
			Version:    "unknown",
			InstanceID: env.getString("OTEL_SERVICE_INSTANCE_ID", ""),
			Namespace:  env.getString("K8S_NAMESPACE", env.getString("POD_NAMESPACE", "")),
			PodName:    env.getString("K8S_POD_NAME", env.getString("HOSTNAME", "")),
		},
		Metrics: MetricsConfig{
			Exporter:       env.getString("METRICS_EXPORTER", ExporterPrometheus),
			Interval:       env.getDuration("OTEL_METRIC_EXPORT_INTERVAL", DefaultMetricInterval),
			DetailedLabels: env.getBool("METRICS_DETAILED_LABELS", false),
		},
		Tracing: TracingConfig{
			Exporter:     env.getString("TRACING_EXPORTER", ExporterNone),
			SamplingRate: env.getFloat("OTEL_TRACES_SAMPLER_ARG", 0.1),
		},
		OTLP: OTLPConfig{
			Endpoint: env.getString("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Insecure: env.getBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		},
		AuditLogging: AuditLoggingConfig{
			Enabled:    env.getBool("AUDIT_LOGGING_ENABLED", true),
			IncludePII: env.getBool("AUDIT_LOGGING_INCLUDE_PII", false),
			LogLevel:   env.getString("AUDIT_LOGGING_LEVEL", "info"),
		},
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if r := c.Tracing.SamplingRate; r < 0 || r > 1 {
		errs = append(errs, fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %g", r))
	}
	if e := c.Metrics.Exporter; e != "" && !slices.Contains([]string{ExporterPrometheus, ExporterOTLP, ExporterStdout}, e) {
		errs = append(errs, fmt.Errorf("invalid metrics exporter %q, must be one of: prometheus, otlp, stdout", e))
	}
	if e := c.Tracing.Exporter; e != "" && !slices.Contains([]string{ExporterOTLP, ExporterStdout, ExporterNone}, e) {
		errs = append(errs, fmt.Errorf("invalid tracing exporter %q, must be one of: otlp, stdout, none", e))
	}
	if c.OTLP.Endpoint == "" {
		if c.Tracing.Exporter == ExporterOTLP {
			errs = append(errs, errors.New("OTLP endpoint is required when using OTLP tracing exporter"))
		}
		if c.Metrics.Exporter == ExporterOTLP {
			errs = append(errs, errors.New("OTLP endpoint is required when using OTLP metrics exporter"))
		}
	}
	if c.Metrics.Interval < 0 {
		errs = append(errs, fmt.Errorf("metric export interval must not be negative, got %s", c.Metrics.Interval))
	}

	return errors.Join(errs...)
}

// envReader looks up typed values with defaults.
type envReader func(string) string

func (e envReader) getString(key, def string) string {
	if v := e(key); v != "" {
		return v
	}
	return def
}

func (e envReader) getBool(key string, def bool) bool {
	if b, err := strconv.ParseBool(e(key)); err == nil {
		return b
	}
	return def
}

func (e envReader) getFloat(key string, def float64) float64 {
	if f, err := strconv.ParseFloat(e(key), 64); err == nil {
		return f
	}
	return def
}

// getDuration accepts Go durations ("30s") and, like the OTel SDK, plain
// milliseconds ("30000").
func (e envReader) getDuration(key string, def time.Duration) time.Duration {
	v := e(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return def
}
