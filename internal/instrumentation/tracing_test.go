package instrumentation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// newTestProvider returns an enabled provider with a Prometheus reader and no
// trace export.
func newTestProvider(t *testing.T) (context.Context, *Provider) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	provider, err := NewProvider(ctx, Config{
		Enabled: true,
		Service: ServiceConfig{Name: "test-service", Version: "1.0.0"},
		Metrics: MetricsConfig{Exporter: ExporterPrometheus},
		Tracing: TracingConfig{Exporter: ExporterNone},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Shutdown(ctx) })

	return ctx, provider
}

// recordSpans installs a global tracer provider that keeps finished spans
// in memory.
func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return recorder
}

func spanAttrs(s sdktrace.ReadOnlySpan) map[attribute.Key]any {
	m := make(map[attribute.Key]any)
	for _, kv := range s.Attributes() {
		m[kv.Key] = kv.Value.AsInterface()
	}
	return m
}

func TestStartSpans(t *testing.T) {
	tests := []struct {
		name      string
		start     func(context.Context) (context.Context, trace.Span)
		wantName  string
		wantAttrs map[attribute.Key]any
	}{
		{
			name: "run",
			start: func(ctx context.Context) (context.Context, trace.Span) {
				return StartRunSpan(ctx, "run-1")
			},
			wantName:  "agent.run",
			wantAttrs: map[attribute.Key]any{SpanAttrRunID: "run-1"},
		},
		{
			name: "reasoner",
			start: func(ctx context.Context) (context.Context, trace.Span) {
				return StartReasonerSpan(ctx, "openai", "gpt-4o")
			},
			wantName:  "reasoner.infer",
			wantAttrs: map[attribute.Key]any{SpanAttrProvider: "openai", SpanAttrModel: "gpt-4o"},
		},
		{
			name: "tool with service",
			start: func(ctx context.Context) (context.Context, trace.Span) {
				return StartToolSpan(ctx, "send_email", "call_1", ServiceGmail, OperationSend)
			},
			wantName: "tool.send_email",
			wantAttrs: map[attribute.Key]any{
				SpanAttrTool:       "send_email",
				SpanAttrToolCallID: "call_1",
				SpanAttrService:    ServiceGmail,
				SpanAttrOperation:  OperationSend,
			},
		},
		{
			name: "google api",
			start: func(ctx context.Context) (context.Context, trace.Span) {
				return StartGoogleAPISpan(ctx, ServiceCalendar, OperationList)
			},
			wantName:  "google.calendar.list",
			wantAttrs: map[attribute.Key]any{SpanAttrService: ServiceCalendar, SpanAttrOperation: OperationList},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := recordSpans(t)

			_, span := tt.start(context.Background())
			span.End()

			ended := recorder.Ended()
			require.Len(t, ended, 1)
			assert.Equal(t, tt.wantName, ended[0].Name())
			got := spanAttrs(ended[0])
			for k, v := range tt.wantAttrs {
				assert.Equal(t, v, got[k], string(k))
			}
		})
	}
}

func TestStartToolSpan_MinimalAttributes(t *testing.T) {
	recorder := recordSpans(t)

	_, span := StartToolSpan(context.Background(), "calculator", "", "", "")
	span.End()

	require.Len(t, recorder.Ended(), 1)
	assert.Len(t, recorder.Ended()[0].Attributes(), 1)
}

func TestEndSpan(t *testing.T) {
	recorder := recordSpans(t)

	_, ok := StartRunSpan(context.Background(), "run-ok")
	assert.Equal(t, StatusSuccess, EndSpan(ok, nil))

	_, failed := StartRunSpan(context.Background(), "run-failed")
	assert.Equal(t, StatusError, EndSpan(failed, errors.New("boom")))

	ended := recorder.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, codes.Ok, ended[0].Status().Code)
	assert.Equal(t, codes.Error, ended[1].Status().Code)
	assert.Equal(t, "boom", ended[1].Status().Description)
	require.Len(t, ended[1].Events(), 1)
	assert.Equal(t, "exception", ended[1].Events()[0].Name)
}

func TestAddStepEvent(t *testing.T) {
	recorder := recordSpans(t)

	ctx, span := StartRunSpan(context.Background(), "run-1")
	AddStepEvent(ctx, 2, []string{"calculator", "summarize_emails"})
	span.End()

	require.Len(t, recorder.Ended(), 1)
	events := recorder.Ended()[0].Events()
	require.Len(t, events, 1)
	assert.Equal(t, "agent.step", events[0].Name)

	attrs := make(map[attribute.Key]any)
	for _, kv := range events[0].Attributes {
		attrs[kv.Key] = kv.Value.AsInterface()
	}
	assert.Equal(t, int64(2), attrs[SpanAttrStep])
	assert.Equal(t, []string{"calculator", "summarize_emails"}, attrs[SpanAttrToolCalls])
}

func TestAddStepEvent_NoSpan(t *testing.T) {
	assert.NotPanics(t, func() {
		AddStepEvent(context.Background(), 1, nil)
	})
}
