package calendar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(context.Background(), srv.Client(), nil, option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)
	return client
}

func TestListUpcomingEvents(t *testing.T) {
	var query url.Values
	var path string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		query = r.URL.Query()
		_ = json.NewEncoder(w).Encode(&calendar.Events{Items: []*calendar.Event{
			{
				Id:      "e1",
				Summary: "Standup",
				Start:   &calendar.EventDateTime{DateTime: "2026-10-19T09:00:00+02:00"},
				End:     &calendar.EventDateTime{DateTime: "2026-10-19T09:15:00+02:00"},
			},
			{
				Id:    "e2",
				Start: &calendar.EventDateTime{Date: "2026-10-20"},
				End:   &calendar.EventDateTime{Date: "2026-10-21"},
			},
		}})
	})
	client.now = func() time.Time { return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC) }

	events, err := client.ListUpcomingEvents(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "/calendar/v3/calendars/primary/events", path)
	assert.Equal(t, "2026-10-18T12:00:00Z", query.Get("timeMin"))
	assert.Equal(t, "2026-10-25T12:00:00Z", query.Get("timeMax"))
	assert.Equal(t, "true", query.Get("singleEvents"))
	assert.Equal(t, "startTime", query.Get("orderBy"))

	assert.Equal(t, "Standup", events[0].Summary)
	assert.Equal(t, "2026-10-19T09:00:00+02:00", events[0].StartText)
	assert.False(t, events[0].AllDay)
	assert.Equal(t, 15*time.Minute, events[0].End.Sub(events[0].Start))

	assert.Equal(t, "", events[1].Summary)
	assert.Equal(t, "2026-10-20", events[1].StartText)
	assert.True(t, events[1].AllDay)
}

func TestListEvents_Error(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":403,"message":"insufficient permissions"}}`, http.StatusForbidden)
	})

	_, err := client.ListUpcomingEvents(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list events")
}
