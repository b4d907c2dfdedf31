package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of every span this module starts.
const TracerName = "github.com/teemow/inboxagent"

// Span attribute keys.
const (
	SpanAttrRunID      = "agent.run_id"
	SpanAttrStep       = "agent.step"
	SpanAttrTool       = "agent.tool"
	SpanAttrToolCallID = "agent.tool_call_id"
	SpanAttrToolCalls  = "agent.tool_calls"
	SpanAttrProvider   = "llm.provider"
	SpanAttrModel      = "llm.model"
	SpanAttrService    = "google.service"
	SpanAttrOperation  = "google.operation"
)

// Span names.
const (
	spanRun      = "agent.run"
	spanReasoner = "reasoner.infer"
	spanTool     = "tool."
	spanGoogle   = "google."
	eventStep    = "agent.step"
)

func tracer() trace.Tracer {
	return otel.GetTracerProvider().Tracer(TracerName)
}

// StartRunSpan starts the root span of one agent run.
func StartRunSpan(ctx context.Context, runID string) (context.Context, trace.Span) {
	return tracer().Start(ctx, spanRun,
		trace.WithAttributes(attribute.String(SpanAttrRunID, runID)),
	)
}

// StartReasonerSpan starts a client span for one language model request.
func StartReasonerSpan(ctx context.Context, provider, model string) (context.Context, trace.Span) {
	return tracer().Start(ctx, spanReasoner,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(SpanAttrProvider, provider),
			attribute.String(SpanAttrModel, model),
		),
	)
}

// StartToolSpan starts the span of one tool call. callID and service are
// optional.
func StartToolSpan(ctx context.Context, tool, callID, service, operation string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String(SpanAttrTool, tool)}
	if callID != "" {
		attrs = append(attrs, attribute.String(SpanAttrToolCallID, callID))
	}
	if service != "" {
		attrs = append(attrs,
			attribute.String(SpanAttrService, service),
			attribute.String(SpanAttrOperation, operation),
		)
	}
	return tracer().Start(ctx, spanTool+tool, trace.WithAttributes(attrs...))
}

// StartGoogleAPISpan starts a client span for a Gmail or Calendar request.
func StartGoogleAPISpan(ctx context.Context, service, operation string) (context.Context, trace.Span) {
	return tracer().Start(ctx, spanGoogle+service+"."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(SpanAttrService, service),
			attribute.String(SpanAttrOperation, operation),
		),
	)
}

// EndSpan sets the span status from err, ends the span and returns the
// matching metric status label.
func EndSpan(span trace.Span, err error) string {
	defer span.End()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return StatusError
	}
	span.SetStatus(codes.Ok, "")
	return StatusSuccess
}

// AddStepEvent records on the span in ctx that the model asked for tools
// in the given reasoning step.
func AddStepEvent(ctx context.Context, step int, tools []string) {
	trace.SpanFromContext(ctx).AddEvent(eventStep, trace.WithAttributes(
		attribute.Int(SpanAttrStep, step),
		attribute.StringSlice(SpanAttrToolCalls, tools),
	))
}
