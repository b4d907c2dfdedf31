package common

import (
	"context"

	"github.com/teemow/inboxagent/internal/agent"
	"github.com/teemow/inboxagent/internal/instrumentation"
	"github.com/teemow/inboxagent/internal/server"
)

// InstrumentedExecutor wraps a tool executor with a tool span, metrics and
// audit logging. The run and tool call ids are taken from ctx.
//
// Usage:
//
//	def.Execute = common.InstrumentedExecutor("my_tool", sc, execute)
func InstrumentedExecutor(toolName string, sc *server.ServerContext, exec agent.Executor) agent.Executor {
	return InstrumentedExecutorWithService(toolName, "", "", sc, exec)
}

// InstrumentedExecutorWithService is like InstrumentedExecutor but also
// records the Google service and operation the tool performs in the span
// and the audit record.
func InstrumentedExecutorWithService(
	toolName string,
	serviceName string,
	operation string,
	sc *server.ServerContext,
	exec agent.Executor,
) agent.Executor {
	return func(ctx context.Context, args map[string]any) (string, error) {
		callID := agent.ToolCallIDFromContext(ctx)
		ctx, span := instrumentation.StartToolSpan(ctx, toolName, callID, serviceName, operation)

		record := instrumentation.NewAuditRecord(ctx, toolName, args)
		record.RunID = agent.RunIDFromContext(ctx)
		record.ToolCallID = callID
		record.Service, record.Operation = serviceName, operation
		record.Recipient = GetRecipientFromArgs(args)

		result, err := exec(ctx, args)
		record.Finish(err)
		status := instrumentation.EndSpan(span, err)

		sc.Metrics().RecordToolInvocationWithAccount(ctx, toolName, status, record.Recipient, record.Duration)
		sc.AuditLogger().Log(ctx, record)

		return result, err
	}
}
