package gmail

import (
	"strings"

	gmail "google.golang.org/api/gmail/v1"
)

// MessageSummary is the part of a message the agent reports.
type MessageSummary struct {
	ID       string
	ThreadID string
	From     string
	Subject  string
	Date     string
	Snippet  string
}

func toMessageSummary(m *gmail.Message) MessageSummary {
	return MessageSummary{
		ID:       m.Id,
		ThreadID: m.ThreadId,
		From:     HeaderValue(m, "From"),
		Subject:  HeaderValue(m, "Subject"),
		Date:     HeaderValue(m, "Date"),
		Snippet:  m.Snippet,
	}
}

// HeaderValue returns the value of the named top-level header, or "".
// Header names are matched case-insensitively.
func HeaderValue(m *gmail.Message, header string) string {
	if m == nil || m.Payload == nil {
		return ""
	}
	for _, h := range m.Payload.Headers {
		if strings.EqualFold(h.Name, header) {
			return h.Value
		}
	}
	return ""
}
