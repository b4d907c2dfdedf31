package gmail_tools

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/inboxagent/internal/agent"
	"github.com/teemow/inboxagent/internal/gmail"
	"github.com/teemow/inboxagent/internal/instrumentation"
	"github.com/teemow/inboxagent/internal/logging"
	"github.com/teemow/inboxagent/internal/server"
	"github.com/teemow/inboxagent/internal/tools/common"
)

// SendToolName is the registered name of the send tool.
const SendToolName = "send_email"

// RegisterEmailTools registers email-sending tools with the registry
func RegisterEmailTools(r *agent.Registry, sc *server.ServerContext) error {
	sendEmailTool := mcp.NewTool(SendToolName,
		mcp.WithDescription("Send an email through Gmail"),
		mcp.WithString(common.RecipientArg,
			mcp.Required(),
			mcp.Description("Recipient email address(es), comma-separated for multiple recipients"),
		),
		mcp.WithString("subject",
			mcp.Required(),
			mcp.Description("Email subject"),
		),
		mcp.WithString("body",
			mcp.Required(),
			mcp.Description("Plain text email body"),
		),
	)

	return r.Register(agent.ToolDefinition{
		Tool: sendEmailTool,
		Execute: common.InstrumentedExecutorWithService(SendToolName,
			instrumentation.ServiceGmail, instrumentation.OperationSend, sc,
			func(ctx context.Context, args map[string]any) (string, error) {
				return handleSendEmail(ctx, args, sc)
			}),
	})
}

func handleSendEmail(ctx context.Context, args map[string]any, sc *server.ServerContext) (string, error) {
	to, err := parseRecipients(common.GetRecipientFromArgs(args))
	if err != nil {
		return "", err
	}
	if len(to) == 0 {
		return "", fmt.Errorf("'%s' field is required", common.RecipientArg)
	}

	subject := strings.TrimSpace(agent.StringArg(args, "subject"))
	if subject == "" {
		return "", fmt.Errorf("'subject' field is required")
	}
	if strings.ContainsAny(subject, "\r\n") {
		return "", fmt.Errorf("'subject' field must be a single line")
	}

	body := agent.StringArg(args, "body")
	if strings.TrimSpace(body) == "" {
		return "", fmt.Errorf("'body' field is required")
	}

	client, err := getGmailClient(sc)
	if err != nil {
		return "", err
	}

	messageID, err := client.SendEmail(ctx, &gmail.EmailMessage{
		To:      to,
		Subject: subject,
		Body:    body,
	})
	if err != nil {
		return "", fmt.Errorf("failed to send email: %w", err)
	}

	sc.Logger().DebugContext(ctx, "email sent",
		logging.Tool(SendToolName),
		slog.String("message_id", messageID),
		logging.RecipientHash(to[0]))

	return fmt.Sprintf("Email sent successfully to %s.", strings.Join(to, ", ")), nil
}

// parseRecipients parses a comma-separated address list and returns the
// bare addresses. Empty entries are skipped.
func parseRecipients(addresses string) ([]string, error) {
	if strings.Trim(addresses, ", \t") == "" {
		return nil, nil
	}

	list, err := mail.ParseAddressList(addresses)
	if err != nil {
		return nil, fmt.Errorf("invalid '%s' field: %w", common.RecipientArg, err)
	}
	result := make([]string, len(list))
	for i, a := range list {
		result[i] = a.Address
	}
	return result, nil
}
