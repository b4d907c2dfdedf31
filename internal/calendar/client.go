package calendar

import (
	"context"
	"fmt"
	"net/http"
	"time"

	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/teemow/inboxagent/internal/google"
	"github.com/teemow/inboxagent/internal/instrumentation"
)

// PrimaryCalendarID addresses the authenticated user's main calendar.
const PrimaryCalendarID = "primary"

// Client wraps the Google Calendar service
type Client struct {
	svc     *calendar.Service
	metrics *instrumentation.Metrics
	now     func() time.Time
}

// NewClientFromProvider creates a Calendar client authorized by the given token provider.
func NewClientFromProvider(ctx context.Context, p google.TokenProvider, metrics *instrumentation.Metrics) (*Client, error) {
	httpClient, err := google.HTTPClient(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("no valid Google OAuth token found: %w. Run the auth command first", err)
	}
	return NewClient(ctx, httpClient, metrics)
}

// NewClient creates a Calendar client using httpClient for all requests.
func NewClient(ctx context.Context, httpClient *http.Client, metrics *instrumentation.Metrics, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}
	return &Client{svc: svc, metrics: metrics, now: time.Now}, nil
}

// ListUpcomingEvents returns the events of the primary calendar that start
// between now and now+daysAhead, expanded into single instances and ordered
// by start time.
func (c *Client) ListUpcomingEvents(ctx context.Context, daysAhead int) ([]EventSummary, error) {
	now := c.now().UTC()
	return c.ListEvents(ctx, PrimaryCalendarID, now, now.AddDate(0, 0, daysAhead))
}

// ListEvents lists events in a time range
func (c *Client) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]EventSummary, error) {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceCalendar, instrumentation.OperationList)
	start := time.Now()

	events, err := c.svc.Events.List(calendarID).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()

	status := instrumentation.EndSpan(span, err)
	c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceCalendar, instrumentation.OperationList, status, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	summaries := make([]EventSummary, 0, len(events.Items))
	for _, event := range events.Items {
		summaries = append(summaries, toEventSummary(event))
	}
	return summaries, nil
}
