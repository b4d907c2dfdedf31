package instrumentation

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Audit log messages.
const (
	auditMsgExecuted = "tool_executed"
	auditMsgFailed   = "tool_failed"
)

// AuditRecord describes one tool call made on behalf of the model.
//
// Recipient is PII. It is only written in full when the audit logger is
// configured with IncludePII; otherwise just its domain is logged.
// Argument values are never recorded, only the names the model supplied.
type AuditRecord struct {
	Tool       string
	RunID      string
	ToolCallID string
	Arguments  []string

	Recipient string
	Service   string
	Operation string

	Started  time.Time
	Duration time.Duration
	Err      error

	TraceID string
	SpanID  string
}

// NewAuditRecord starts a record for a call of tool with args. The trace
// and span ids are taken from the span in ctx, if any.
func NewAuditRecord(ctx context.Context, tool string, args map[string]any) *AuditRecord {
	r := &AuditRecord{Tool: tool, Started: time.Now()}
	if len(args) > 0 {
		r.Arguments = make([]string, 0, len(args))
		for name := range args {
			r.Arguments = append(r.Arguments, name)
		}
		slices.Sort(r.Arguments)
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r.TraceID = sc.TraceID().String()
		r.SpanID = sc.SpanID().String()
	}
	return r
}

// Finish stops the clock and records the outcome of the call.
func (r *AuditRecord) Finish(err error) *AuditRecord {
	r.Duration = time.Since(r.Started)
	r.Err = err
	return r
}

// Succeeded reports whether the call returned without error.
func (r *AuditRecord) Succeeded() bool { return r.Err == nil }

// Status returns StatusSuccess or StatusError.
func (r *AuditRecord) Status() string {
	if r.Succeeded() {
		return StatusSuccess
	}
	return StatusError
}

// Attrs returns the record as log attributes. With includePII the full
// recipient address and the span id are included.
func (r *AuditRecord) Attrs(includePII bool) []slog.Attr {
	attrs := make([]slog.Attr, 0, 12)
	attrs = append(attrs,
		slog.String("tool", r.Tool),
		slog.Duration("duration", r.Duration),
		slog.String("status", r.Status()),
	)

	optional := []struct{ key, value string }{
		{"run_id", r.RunID},
		{"tool_call_id", r.ToolCallID},
		{"arguments", strings.Join(r.Arguments, ",")},
		{"service", r.Service},
		{"operation", r.Operation},
		{"trace_id", r.TraceID},
	}
	for _, o := range optional {
		if o.value != "" {
			attrs = append(attrs, slog.String(o.key, o.value))
		}
	}

	if r.Recipient != "" {
		if includePII {
			attrs = append(attrs, slog.String("recipient", r.Recipient))
		} else {
			attrs = append(attrs, slog.String("recipient_domain", ExtractUserDomain(r.Recipient)))
		}
	}
	if includePII && r.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", r.SpanID))
	}
	if r.Err != nil {
		attrs = append(attrs, slog.String("error", r.Err.Error()))
	}
	return attrs
}

// AuditLogger writes one log line per tool call. A nil *AuditLogger
// discards records.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	level      slog.Level
}

// NewAuditLogger returns an audit logger for config, or nil when audit
// logging is disabled. Successful calls are logged at config.LogLevel,
// failures at least at warn.
func NewAuditLogger(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if !config.Enabled {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger.With(slog.String("log_type", "audit")),
		includePII: config.IncludePII,
		level:      parseAuditLevel(config.LogLevel),
	}
}

// Log writes r.
func (al *AuditLogger) Log(ctx context.Context, r *AuditRecord) {
	if al == nil || r == nil {
		return
	}

	msg, level := auditMsgExecuted, al.level
	if !r.Succeeded() {
		msg, level = auditMsgFailed, max(al.level, slog.LevelWarn)
	}
	al.logger.LogAttrs(ctx, level, msg, r.Attrs(al.includePII)...)
}

// parseAuditLevel falls back to info for empty or unknown levels.
func parseAuditLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
