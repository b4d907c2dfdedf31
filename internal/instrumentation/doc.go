// Package instrumentation provides OpenTelemetry instrumentation for the
// inboxagent service.
//
// # Metrics
//
// Agent Metrics:
//   - agent_runs_total: Counter of finished runs by terminal state (done, failed)
//   - agent_run_duration_seconds: Histogram of run durations
//   - agent_run_steps: Histogram of reasoning steps per run
//   - agent_runs_in_flight: Gauge of runs currently executing
//
// Reasoner Metrics:
//   - reasoner_requests_total: Counter of language model requests by provider and status
//   - reasoner_request_duration_seconds: Histogram of language model latency
//
// Tool Metrics:
//   - tool_invocations_total: Counter of tool invocations by tool name and status
//   - tool_duration_seconds: Histogram of tool execution durations
//   - tool_calls_rejected_total: Counter of calls to unknown tools or with
//     invalid arguments. Names the model invented are reported as
//     "unregistered".
//
// Google API and HTTP Metrics:
//   - google_api_operations_total / google_api_operation_duration_seconds
//   - oauth_token_refresh_total
//   - http_requests_total / http_request_duration_seconds
//
// # Tracing
//
// Spans are created for agent runs (agent.run), model requests
// (reasoner.infer), tool invocations (tool.<name>) and Google API calls
// (google.<service>.<operation>). Each reasoning step that requests tools
// adds an agent.step event to the run span.
//
// # Audit Log
//
// Every tool call is written as one "tool_executed" or "tool_failed" record
// with log_type=audit. Argument values are never logged, only their names,
// and recipients are reduced to their domain unless PII logging is enabled.
//
// # Configuration
//
// DefaultConfig reads the environment:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: prometheus, otlp or stdout (default: prometheus)
//   - OTEL_METRIC_EXPORT_INTERVAL: Push interval of otlp and stdout metrics (default: 10s)
//   - METRICS_DETAILED_LABELS: Add model and recipient domain labels (default: false)
//   - TRACING_EXPORTER: otlp, stdout or none (default: none)
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_INSECURE: OTLP collector
//   - OTEL_SERVICE_NAME: Service name (default: inboxagent)
//   - AUDIT_LOGGING_ENABLED, AUDIT_LOGGING_INCLUDE_PII: Tool audit log
//   - AUDIT_LOGGING_LEVEL: Level of successful calls (default: info)
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	provider.Metrics().RecordAgentRun(ctx, instrumentation.RunStateDone, steps, time.Since(start))
package instrumentation
