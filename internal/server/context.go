package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/teemow/inboxagent/internal/calendar"
	"github.com/teemow/inboxagent/internal/gmail"
	"github.com/teemow/inboxagent/internal/instrumentation"
)

// ErrShutdown is returned for client requests after Shutdown.
var ErrShutdown = errors.New("server context is shut down")

// GmailFactory creates a Gmail client on first use.
type GmailFactory func(ctx context.Context) (*gmail.Client, error)

// CalendarFactory creates a Calendar client on first use.
type CalendarFactory func(ctx context.Context) (*calendar.Client, error)

// ServerContext holds the long-lived collaborators shared by the tools: the
// Google clients, metrics and the audit logger.
//
// Clients are created lazily so that the server starts without a Google
// token; a failed creation is retried on the next call.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	gmailFactory    GmailFactory
	calendarFactory CalendarFactory
	gmailClient     *gmail.Client
	calendarClient  *calendar.Client

	logger      *slog.Logger
	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger
	readOnly    bool

	mu       sync.RWMutex
	shutdown bool
}

// Option configures a ServerContext.
type Option func(*ServerContext)

// WithGmailFactory sets how the Gmail client is created.
func WithGmailFactory(f GmailFactory) Option {
	return func(sc *ServerContext) { sc.gmailFactory = f }
}

// WithCalendarFactory sets how the Calendar client is created.
func WithCalendarFactory(f CalendarFactory) Option {
	return func(sc *ServerContext) { sc.calendarFactory = f }
}

// WithGmailClient uses an existing Gmail client.
func WithGmailClient(c *gmail.Client) Option {
	return func(sc *ServerContext) { sc.gmailClient = c }
}

// WithCalendarClient uses an existing Calendar client.
func WithCalendarClient(c *calendar.Client) Option {
	return func(sc *ServerContext) { sc.calendarClient = c }
}

// WithLogger sets the logger tools write to.
func WithLogger(l *slog.Logger) Option {
	return func(sc *ServerContext) { sc.logger = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(sc *ServerContext) { sc.metrics = m }
}

// WithAuditLogger sets the audit logger for tool invocations.
func WithAuditLogger(l *instrumentation.AuditLogger) Option {
	return func(sc *ServerContext) { sc.auditLogger = l }
}

// WithReadOnly disables tools that change mailbox state.
func WithReadOnly(readOnly bool) Option {
	return func(sc *ServerContext) { sc.readOnly = readOnly }
}

// NewServerContext creates a new server context
func NewServerContext(ctx context.Context, opts ...Option) *ServerContext {
	shutdownCtx, cancel := context.WithCancel(ctx)
	sc := &ServerContext{ctx: shutdownCtx, cancel: cancel}
	for _, opt := range opts {
		opt(sc)
	}
	return sc
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Metrics returns the metrics recorder, or nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// Logger returns the tool logger, falling back to slog.Default().
func (sc *ServerContext) Logger() *slog.Logger {
	if sc.logger == nil {
		return slog.Default()
	}
	return sc.logger
}

// AuditLogger returns the audit logger, or nil.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	return sc.auditLogger
}

// ReadOnly reports whether mutating tools are disabled.
func (sc *ServerContext) ReadOnly() bool {
	return sc.readOnly
}

// GmailClient returns the Gmail client, creating it on first use.
func (sc *ServerContext) GmailClient() (*gmail.Client, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil, ErrShutdown
	}
	if sc.gmailClient != nil {
		return sc.gmailClient, nil
	}
	if sc.gmailFactory == nil {
		return nil, errors.New("gmail is not configured")
	}

	client, err := sc.gmailFactory(sc.ctx)
	if err != nil {
		return nil, err
	}
	sc.gmailClient = client
	return client, nil
}

// CalendarClient returns the Calendar client, creating it on first use.
func (sc *ServerContext) CalendarClient() (*calendar.Client, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil, ErrShutdown
	}
	if sc.calendarClient != nil {
		return sc.calendarClient, nil
	}
	if sc.calendarFactory == nil {
		return nil, errors.New("calendar is not configured")
	}

	client, err := sc.calendarFactory(sc.ctx)
	if err != nil {
		return nil, err
	}
	sc.calendarClient = client
	return client, nil
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
