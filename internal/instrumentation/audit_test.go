package instrumentation

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

const (
	testRecipient = "jane@example.com"
	testDomain    = "example.com"
)

func attrMap(attrs []slog.Attr) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		m[a.Key] = a.Value.String()
	}
	return m
}

func TestNewAuditRecord(t *testing.T) {
	r := NewAuditRecord(context.Background(), "send_email", map[string]any{
		"subject":   "Hi",
		"recipient": testRecipient,
		"body":      "...",
	})

	assert.Equal(t, "send_email", r.Tool)
	assert.Equal(t, []string{"body", "recipient", "subject"}, r.Arguments)
	assert.False(t, r.Started.IsZero())
	assert.Empty(t, r.TraceID)
	assert.Empty(t, r.SpanID)

	assert.Nil(t, NewAuditRecord(context.Background(), "calculator", nil).Arguments)
}

func TestNewAuditRecord_SpanContext(t *testing.T) {
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{1, 2, 3},
		SpanID:  trace.SpanID{4, 5, 6},
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	r := NewAuditRecord(ctx, "calculator", nil)
	assert.Equal(t, sc.TraceID().String(), r.TraceID)
	assert.Equal(t, sc.SpanID().String(), r.SpanID)
}

func TestAuditRecord_Finish(t *testing.T) {
	ok := NewAuditRecord(context.Background(), "calculator", nil).Finish(nil)
	assert.True(t, ok.Succeeded())
	assert.Equal(t, StatusSuccess, ok.Status())
	assert.GreaterOrEqual(t, ok.Duration, time.Duration(0))

	failed := NewAuditRecord(context.Background(), "send_email", nil).Finish(errors.New("quota exceeded"))
	assert.False(t, failed.Succeeded())
	assert.Equal(t, StatusError, failed.Status())
}

func TestAuditRecord_Attrs(t *testing.T) {
	r := &AuditRecord{
		Tool:       "send_email",
		RunID:      "run-123",
		ToolCallID: "call_1",
		Arguments:  []string{"body", "recipient"},
		Recipient:  testRecipient,
		Service:    ServiceGmail,
		Operation:  OperationSend,
		TraceID:    "abc123",
		SpanID:     "span789",
		Err:        errors.New("quota exceeded"),
	}

	tests := []struct {
		name       string
		includePII bool
		want       map[string]string
		excluded   []string
	}{
		{
			name: "anonymized",
			want: map[string]string{
				"tool":             "send_email",
				"status":           StatusError,
				"run_id":           "run-123",
				"tool_call_id":     "call_1",
				"arguments":        "body,recipient",
				"service":          ServiceGmail,
				"operation":        OperationSend,
				"trace_id":         "abc123",
				"recipient_domain": testDomain,
				"error":            "quota exceeded",
			},
			excluded: []string{"recipient", "span_id"},
		},
		{
			name:       "with PII",
			includePII: true,
			want: map[string]string{
				"recipient": testRecipient,
				"span_id":   "span789",
			},
			excluded: []string{"recipient_domain"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := attrMap(r.Attrs(tt.includePII))
			for k, v := range tt.want {
				assert.Equal(t, v, got[k], k)
			}
			for _, k := range tt.excluded {
				assert.NotContains(t, got, k)
			}
		})
	}
}

func TestAuditRecord_Attrs_Minimal(t *testing.T) {
	r := NewAuditRecord(context.Background(), "calculator", nil).Finish(nil)
	assert.Len(t, r.Attrs(false), 3)
}

func TestNewAuditLogger_Disabled(t *testing.T) {
	assert.Nil(t, NewAuditLogger(slog.Default(), AuditLoggingConfig{Enabled: false}))
}

func TestAuditLogger_Log(t *testing.T) {
	tests := []struct {
		name      string
		config    AuditLoggingConfig
		err       error
		wantLevel string
		want      []string
		notWant   []string
	}{
		{
			name:      "success without PII",
			config:    AuditLoggingConfig{Enabled: true},
			wantLevel: "level=INFO",
			want:      []string{"msg=" + auditMsgExecuted, "log_type=audit", "recipient_domain=" + testDomain},
			notWant:   []string{testRecipient},
		},
		{
			name:      "failure with PII",
			config:    AuditLoggingConfig{Enabled: true, IncludePII: true},
			err:       errors.New("boom"),
			wantLevel: "level=WARN",
			want:      []string{"msg=" + auditMsgFailed, "recipient=" + testRecipient, "error=boom"},
		},
		{
			name:      "success at debug level",
			config:    AuditLoggingConfig{Enabled: true, LogLevel: "debug"},
			wantLevel: "level=DEBUG",
			want:      []string{"msg=" + auditMsgExecuted},
		},
		{
			name:      "failure is never below warn",
			config:    AuditLoggingConfig{Enabled: true, LogLevel: "debug"},
			err:       errors.New("boom"),
			wantLevel: "level=WARN",
		},
		{
			name:      "failure above warn keeps configured level",
			config:    AuditLoggingConfig{Enabled: true, LogLevel: "error"},
			err:       errors.New("boom"),
			wantLevel: "level=ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
			al := NewAuditLogger(logger, tt.config)
			require.NotNil(t, al)

			r := NewAuditRecord(context.Background(), "send_email", nil)
			r.Recipient = testRecipient
			al.Log(context.Background(), r.Finish(tt.err))

			out := buf.String()
			assert.Contains(t, out, tt.wantLevel)
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
			for _, w := range tt.notWant {
				assert.NotContains(t, out, w)
			}
		})
	}
}

func TestAuditLogger_Nil(t *testing.T) {
	var al *AuditLogger

	assert.NotPanics(t, func() {
		al.Log(context.Background(), NewAuditRecord(context.Background(), "calculator", nil).Finish(nil))
	})
}

func TestParseAuditLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseAuditLevel(in), in)
	}
}
