package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys.
const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrService   = "service"
	attrResult    = "result"
	attrTool      = "tool"
	attrAccount   = "account"
	attrProvider  = "provider"
	attrModel     = "model"
	attrState     = "state"
	attrReason    = "reason"
)

// Metrics provides methods for recording observability metrics.
//
// A zero Metrics and a nil *Metrics are valid no-op recorders.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// Agent run metrics
	agentRunsTotal    metric.Int64Counter
	agentRunDuration  metric.Float64Histogram
	agentRunSteps     metric.Int64Histogram
	agentRunsInFlight metric.Int64UpDownCounter

	// Reasoner metrics
	reasonerRequestsTotal   metric.Int64Counter
	reasonerRequestDuration metric.Float64Histogram

	// Google API metrics
	googleAPIOperationsTotal   metric.Int64Counter
	googleAPIOperationDuration metric.Float64Histogram

	// OAuth metrics
	oauthTokenRefreshTotal metric.Int64Counter

	// Tool metrics
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram
	toolCallsRejected    metric.Int64Counter

	detailedLabels bool
}

// Histogram buckets in seconds.
var (
	httpBuckets     = []float64{0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60}
	runBuckets      = []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300}
	reasonerBuckets = []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60}
	callBuckets     = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}
)

type counterSpec struct {
	dst  *metric.Int64Counter
	name string
	desc string
	unit string
}

type histogramSpec struct {
	dst     *metric.Float64Histogram
	name    string
	desc    string
	buckets []float64
}

// NewMetrics creates every instrument on meter. With detailedLabels the
// model and recipient domain are added as labels.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{detailedLabels: detailedLabels}

	counters := []counterSpec{
		{&m.httpRequestsTotal, "http_requests_total", "Total number of HTTP requests", "{request}"},
		{&m.agentRunsTotal, "agent_runs_total", "Total number of agent runs by terminal state", "{run}"},
		{&m.reasonerRequestsTotal, "reasoner_requests_total", "Total number of language model requests", "{request}"},
		{&m.googleAPIOperationsTotal, "google_api_operations_total", "Total number of Google API operations", "{operation}"},
		{&m.oauthTokenRefreshTotal, "oauth_token_refresh_total", "Total number of OAuth token refresh attempts", "{attempt}"},
		{&m.toolInvocationsTotal, "tool_invocations_total", "Total number of tool invocations", "{invocation}"},
		{&m.toolCallsRejected, "tool_calls_rejected_total", "Tool calls of the model that were rejected before execution", "{call}"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s counter: %w", c.name, err)
		}
		*c.dst = counter
	}

	histograms := []histogramSpec{
		{&m.httpRequestDuration, "http_request_duration_seconds", "HTTP request duration in seconds", httpBuckets},
		{&m.agentRunDuration, "agent_run_duration_seconds", "Agent run duration in seconds", runBuckets},
		{&m.reasonerRequestDuration, "reasoner_request_duration_seconds", "Language model request duration in seconds", reasonerBuckets},
		{&m.googleAPIOperationDuration, "google_api_operation_duration_seconds", "Google API operation duration in seconds", callBuckets},
		{&m.toolDuration, "tool_duration_seconds", "Tool execution duration in seconds", callBuckets},
	}
	for _, h := range histograms {
		hist, err := meter.Float64Histogram(h.name,
			metric.WithDescription(h.desc),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(h.buckets...),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s histogram: %w", h.name, err)
		}
		*h.dst = hist
	}

	var err error
	m.agentRunSteps, err = meter.Int64Histogram("agent_run_steps",
		metric.WithDescription("Number of reasoning steps per agent run"),
		metric.WithUnit("{step}"),
		metric.WithExplicitBucketBoundaries(1, 2, 3, 5, 8, 13, 21),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create agent_run_steps histogram: %w", err)
	}

	m.agentRunsInFlight, err = meter.Int64UpDownCounter("agent_runs_in_flight",
		metric.WithDescription("Number of agent runs currently executing"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create agent_runs_in_flight gauge: %w", err)
	}

	return m, nil
}

// observe counts one event and records its duration with the same labels.
func observe(ctx context.Context, counter metric.Int64Counter, hist metric.Float64Histogram, d time.Duration, attrs ...attribute.KeyValue) {
	opt := metric.WithAttributes(attrs...)
	counter.Add(ctx, 1, opt)
	hist.Record(ctx, d.Seconds(), opt)
}

// RecordHTTPRequest records a served HTTP request.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil {
		return
	}
	observe(ctx, m.httpRequestsTotal, m.httpRequestDuration, duration,
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	)
}

// RecordAgentRun records a finished run by its terminal state (RunStateDone
// or RunStateFailed) and the number of reasoning steps it took.
func (m *Metrics) RecordAgentRun(ctx context.Context, state string, steps int, duration time.Duration) {
	if m == nil || m.agentRunsTotal == nil {
		return
	}
	attrs := attribute.String(attrState, state)
	observe(ctx, m.agentRunsTotal, m.agentRunDuration, duration, attrs)
	m.agentRunSteps.Record(ctx, int64(steps), metric.WithAttributes(attrs))
}

// IncrementRunsInFlight increments the in-flight agent runs gauge.
func (m *Metrics) IncrementRunsInFlight(ctx context.Context) {
	if m == nil || m.agentRunsInFlight == nil {
		return
	}
	m.agentRunsInFlight.Add(ctx, 1)
}

// DecrementRunsInFlight decrements the in-flight agent runs gauge.
func (m *Metrics) DecrementRunsInFlight(ctx context.Context) {
	if m == nil || m.agentRunsInFlight == nil {
		return
	}
	m.agentRunsInFlight.Add(ctx, -1)
}

// RecordReasonerRequest records one language model request. The model is
// only used as a label with detailed labels enabled.
func (m *Metrics) RecordReasonerRequest(ctx context.Context, provider, model, status string, duration time.Duration) {
	if m == nil || m.reasonerRequestsTotal == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String(attrProvider, provider),
		attribute.String(attrStatus, status),
	}
	if m.detailedLabels && model != "" {
		attrs = append(attrs, attribute.String(attrModel, model))
	}
	observe(ctx, m.reasonerRequestsTotal, m.reasonerRequestDuration, duration, attrs...)
}

// RecordGoogleAPIOperation records a Gmail or Calendar request.
func (m *Metrics) RecordGoogleAPIOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m == nil || m.googleAPIOperationsTotal == nil {
		return
	}
	observe(ctx, m.googleAPIOperationsTotal, m.googleAPIOperationDuration, duration,
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	)
}

// RecordOAuthTokenRefresh records a token refresh attempt. result is one of
// the OAuthResult constants.
func (m *Metrics) RecordOAuthTokenRefresh(ctx context.Context, result string) {
	if m == nil || m.oauthTokenRefreshTotal == nil {
		return
	}
	m.oauthTokenRefreshTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordToolInvocation records an executed tool call.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	m.RecordToolInvocationWithAccount(ctx, toolName, status, "", duration)
}

// RecordToolInvocationWithAccount is RecordToolInvocation for tools that
// address a recipient. With detailed labels its domain becomes the account
// label.
func (m *Metrics) RecordToolInvocationWithAccount(ctx context.Context, toolName, status, account string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}
	if m.detailedLabels && account != "" {
		attrs = append(attrs, attribute.String(attrAccount, ExtractUserDomain(account)))
	}
	observe(ctx, m.toolInvocationsTotal, m.toolDuration, duration, attrs...)
}

// RecordRejectedToolCall records a tool call that never reached its
// executor. tool should come from ToolLabel; reason is RejectUnknownTool or
// RejectInvalidArguments.
func (m *Metrics) RecordRejectedToolCall(ctx context.Context, tool, reason string) {
	if m == nil || m.toolCallsRejected == nil {
		return
	}
	m.toolCallsRejected.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrTool, tool),
		attribute.String(attrReason, reason),
	))
}
