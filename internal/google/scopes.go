package google

import (
	calendar "google.golang.org/api/calendar/v3"
	gmail "google.golang.org/api/gmail/v1"
)

// DefaultOAuthScopes are the scopes the agent's tools need:
//   - Gmail: read the inbox, send mail
//   - Google Calendar: read events
var DefaultOAuthScopes = []string{
	gmail.GmailReadonlyScope,
	gmail.GmailSendScope,
	calendar.CalendarReadonlyScope,
}

// ReadOnlyOAuthScopes omit the Gmail send scope. They are requested when the
// agent runs without the send_email tool.
var ReadOnlyOAuthScopes = []string{
	gmail.GmailReadonlyScope,
	calendar.CalendarReadonlyScope,
}

// Scopes returns the scopes for the given mode.
func Scopes(readOnly bool) []string {
	if readOnly {
		return ReadOnlyOAuthScopes
	}
	return DefaultOAuthScopes
}
