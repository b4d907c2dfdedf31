package gmail_tools

import (
	"fmt"

	"github.com/teemow/inboxagent/internal/agent"
	"github.com/teemow/inboxagent/internal/gmail"
	"github.com/teemow/inboxagent/internal/server"
)

// getGmailClient returns the shared Gmail client or an error the model can
// relay to the user.
func getGmailClient(sc *server.ServerContext) (*gmail.Client, error) {
	client, err := sc.GmailClient()
	if err != nil {
		return nil, fmt.Errorf("Gmail is not available: %w. Run the auth command to authorize access", err)
	}
	return client, nil
}

// RegisterGmailTools registers all Gmail-related tools with the registry.
// send_email is only registered when sc is not read-only.
func RegisterGmailTools(r *agent.Registry, sc *server.ServerContext) error {
	if err := RegisterInboxTools(r, sc); err != nil {
		return fmt.Errorf("failed to register inbox tools: %w", err)
	}

	if !sc.ReadOnly() {
		if err := RegisterEmailTools(r, sc); err != nil {
			return fmt.Errorf("failed to register email tools: %w", err)
		}
	}

	return nil
}
