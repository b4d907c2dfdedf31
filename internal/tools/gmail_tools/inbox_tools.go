package gmail_tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/inboxagent/internal/agent"
	"github.com/teemow/inboxagent/internal/gmail"
	"github.com/teemow/inboxagent/internal/instrumentation"
	"github.com/teemow/inboxagent/internal/server"
	"github.com/teemow/inboxagent/internal/tools/common"
)

// SummarizeToolName is the registered name of the inbox summary tool.
const SummarizeToolName = "summarize_emails"

// DefaultMaxResults is the number of messages summarized when none is given.
const DefaultMaxResults = 5

// RegisterInboxTools registers read-only inbox tools with the registry
func RegisterInboxTools(r *agent.Registry, sc *server.ServerContext) error {
	summarizeTool := mcp.NewTool(SummarizeToolName,
		mcp.WithDescription("Summarize the most recent emails in the Gmail inbox: sender, subject and a short snippet of each"),
		mcp.WithNumber("max_results",
			mcp.Description("Maximum number of emails to summarize (default: 5)"),
			mcp.DefaultNumber(DefaultMaxResults),
			mcp.Min(1),
			mcp.Max(50),
		),
	)

	return r.Register(agent.ToolDefinition{
		Tool: summarizeTool,
		Execute: common.InstrumentedExecutorWithService(SummarizeToolName,
			instrumentation.ServiceGmail, instrumentation.OperationList, sc,
			func(ctx context.Context, args map[string]any) (string, error) {
				return handleSummarizeEmails(ctx, args, sc)
			}),
	})
}

func handleSummarizeEmails(ctx context.Context, args map[string]any, sc *server.ServerContext) (string, error) {
	client, err := getGmailClient(sc)
	if err != nil {
		return "", err
	}

	maxResults := agent.IntArg(args, "max_results", DefaultMaxResults)
	summaries, err := client.ListInboxSummaries(ctx, maxResults)
	if err != nil {
		return "", fmt.Errorf("failed to read inbox: %w", err)
	}

	return formatSummaries(summaries), nil
}

func formatSummaries(summaries []gmail.MessageSummary) string {
	if len(summaries) == 0 {
		return "No recent emails found."
	}

	entries := make([]string, len(summaries))
	for i, s := range summaries {
		entries[i] = fmt.Sprintf("From: %s\nSubject: %s\nSnippet: %s\n", s.From, s.Subject, s.Snippet)
	}
	return strings.Join(entries, "\n---\n")
}
