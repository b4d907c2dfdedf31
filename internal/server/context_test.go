package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxagent/internal/calendar"
	"github.com/teemow/inboxagent/internal/gmail"
)

func TestServerContext_LazyClients(t *testing.T) {
	gmailCalls := 0
	sc := NewServerContext(context.Background(),
		WithGmailFactory(func(context.Context) (*gmail.Client, error) {
			gmailCalls++
			if gmailCalls == 1 {
				return nil, errors.New("no token")
			}
			return &gmail.Client{}, nil
		}),
	)

	_, err := sc.GmailClient()
	require.Error(t, err)

	first, err := sc.GmailClient()
	require.NoError(t, err)
	second, err := sc.GmailClient()
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 2, gmailCalls)

	_, err = sc.CalendarClient()
	assert.Error(t, err, "calendar has no factory")
}

func TestServerContext_Shutdown(t *testing.T) {
	sc := NewServerContext(context.Background(), WithCalendarClient(&calendar.Client{}), WithReadOnly(true))
	assert.True(t, sc.ReadOnly())
	assert.Nil(t, sc.Metrics())
	assert.Nil(t, sc.AuditLogger())

	_, err := sc.CalendarClient()
	require.NoError(t, err)

	require.NoError(t, sc.Shutdown())
	require.NoError(t, sc.Shutdown())
	assert.True(t, sc.IsShutdown())
	assert.Error(t, sc.Context().Err())

	_, err = sc.CalendarClient()
	assert.ErrorIs(t, err, ErrShutdown)
}

func TestServerContext_Logger(t *testing.T) {
	sc := NewServerContext(context.Background())
	defer sc.Shutdown()
	assert.Same(t, slog.Default(), sc.Logger())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	withLogger := NewServerContext(context.Background(), WithLogger(logger))
	defer withLogger.Shutdown()
	assert.Same(t, logger, withLogger.Logger())
}
