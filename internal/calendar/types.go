package calendar

import (
	"time"

	calendar "google.golang.org/api/calendar/v3"
)

// EventSummary represents a simplified view of a calendar event
type EventSummary struct {
	ID       string
	Summary  string
	Location string
	Status   string

	// StartText is the start as Google returned it: an RFC 3339 timestamp
	// for timed events, a date for all-day events.
	StartText string
	Start     time.Time
	End       time.Time
	AllDay    bool
}

// toEventSummary converts a Google Calendar event to an EventSummary
func toEventSummary(event *calendar.Event) EventSummary {
	summary := EventSummary{
		ID:       event.Id,
		Summary:  event.Summary,
		Location: event.Location,
		Status:   event.Status,
	}

	if event.Start != nil {
		summary.StartText, summary.Start, summary.AllDay = parseEventTime(event.Start)
	}
	if event.End != nil {
		_, summary.End, _ = parseEventTime(event.End)
	}

	return summary
}

func parseEventTime(et *calendar.EventDateTime) (string, time.Time, bool) {
	if et.DateTime != "" {
		t, _ := time.Parse(time.RFC3339, et.DateTime)
		return et.DateTime, t, false
	}
	if et.Date != "" {
		t, _ := time.Parse("2006-01-02", et.Date)
		return et.Date, t, true
	}
	return "", time.Time{}, false
}
