package calendar_tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/inboxagent/internal/agent"
	"github.com/teemow/inboxagent/internal/calendar"
	"github.com/teemow/inboxagent/internal/instrumentation"
	"github.com/teemow/inboxagent/internal/server"
	"github.com/teemow/inboxagent/internal/tools/common"
)

// GetEventsToolName is the registered name of the event listing tool.
const GetEventsToolName = "get_calendar_events"

// DefaultDaysAhead is the look-ahead window when none is given.
const DefaultDaysAhead = 7

// RegisterEventTools registers event-related tools with the registry
func RegisterEventTools(r *agent.Registry, sc *server.ServerContext) error {
	getEventsTool := mcp.NewTool(GetEventsToolName,
		mcp.WithDescription("Fetch upcoming events from the user's primary Google Calendar"),
		mcp.WithNumber("days_ahead",
			mcp.Description("How many days ahead to look, starting now (default: 7)"),
			mcp.DefaultNumber(DefaultDaysAhead),
			mcp.Min(1),
			mcp.Max(365),
		),
	)

	return r.Register(agent.ToolDefinition{
		Tool: getEventsTool,
		Execute: common.InstrumentedExecutorWithService(GetEventsToolName,
			instrumentation.ServiceCalendar, instrumentation.OperationList, sc,
			func(ctx context.Context, args map[string]any) (string, error) {
				return handleGetEvents(ctx, args, sc)
			}),
	})
}

func handleGetEvents(ctx context.Context, args map[string]any, sc *server.ServerContext) (string, error) {
	client, err := getCalendarClient(sc)
	if err != nil {
		return "", err
	}

	days := agent.IntArg(args, "days_ahead", DefaultDaysAhead)
	events, err := client.ListUpcomingEvents(ctx, days)
	if err != nil {
		return "", fmt.Errorf("failed to fetch calendar events: %w", err)
	}

	return formatEvents(events), nil
}

func formatEvents(events []calendar.EventSummary) string {
	if len(events) == 0 {
		return "No upcoming events found."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Total events: %d\n\n", len(events))
	for i, e := range events {
		if i > 0 {
			b.WriteString("\n")
		}
		summary := e.Summary
		if summary == "" {
			summary = "No title"
		}
		fmt.Fprintf(&b, "- %s at %s", summary, e.StartText)
	}
	return b.String()
}
