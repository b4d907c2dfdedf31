package calendar_tools

import (
	"fmt"

	"github.com/teemow/inboxagent/internal/agent"
	"github.com/teemow/inboxagent/internal/calendar"
	"github.com/teemow/inboxagent/internal/server"
)

// getCalendarClient returns the shared calendar client or an error the
// model can relay to the user.
func getCalendarClient(sc *server.ServerContext) (*calendar.Client, error) {
	client, err := sc.CalendarClient()
	if err != nil {
		return nil, fmt.Errorf("Google Calendar is not available: %w. Run the auth command to authorize access", err)
	}
	return client, nil
}

// RegisterCalendarTools registers all Calendar-related tools with the registry
func RegisterCalendarTools(r *agent.Registry, sc *server.ServerContext) error {
	if err := RegisterEventTools(r, sc); err != nil {
		return fmt.Errorf("failed to register event tools: %w", err)
	}
	return nil
}
