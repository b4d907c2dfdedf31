package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/teemow/inboxagent/internal/agent"
	"github.com/teemow/inboxagent/internal/calendar"
	"github.com/teemow/inboxagent/internal/gmail"
	"github.com/teemow/inboxagent/internal/google"
	"github.com/teemow/inboxagent/internal/instrumentation"
	"github.com/teemow/inboxagent/internal/logging"
	"github.com/teemow/inboxagent/internal/reasoner"
	"github.com/teemow/inboxagent/internal/server"
	"github.com/teemow/inboxagent/internal/tools/calculator_tools"
	"github.com/teemow/inboxagent/internal/tools/calendar_tools"
	"github.com/teemow/inboxagent/internal/tools/gmail_tools"
)

// app is the wired agent: tools, reasoner and controller plus the
// collaborators that have to be shut down.
type app struct {
	logger        *slog.Logger
	instr         *instrumentation.Provider
	instrConfig   instrumentation.Config
	serverContext *server.ServerContext
	registry      *agent.Registry
	reasoner      *reasoner.Instrumented
	controller    *agent.Controller
}

// newApp wires the agent described by cfg. Logs are written to logOut.
func newApp(ctx context.Context, cfg AgentConfig, logOut io.Writer) (*app, error) {
	logger := logging.New(logOut, cfg.LogFormat, cfg.Debug)

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.Service.Version = version
	if err := instrConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid instrumentation config: %w", err)
	}
	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create instrumentation provider: %w", err)
	}

	a := &app{logger: logger, instr: provider, instrConfig: instrConfig}
	metrics := provider.Metrics()

	tokens := newLazyTokenProvider(cfg, logger, metrics)
	opts := []server.Option{
		server.WithReadOnly(cfg.ReadOnly),
		server.WithLogger(logger),
		server.WithMetrics(metrics),
		server.WithGmailFactory(func(ctx context.Context) (*gmail.Client, error) {
			p, err := tokens.get()
			if err != nil {
				return nil, err
			}
			return gmail.NewClientFromProvider(ctx, p, metrics)
		}),
		server.WithCalendarFactory(func(ctx context.Context) (*calendar.Client, error) {
			p, err := tokens.get()
			if err != nil {
				return nil, err
			}
			return calendar.NewClientFromProvider(ctx, p, metrics)
		}),
	}
	if provider.Enabled() {
		opts = append(opts, server.WithAuditLogger(instrumentation.NewAuditLogger(logger, instrConfig.AuditLogging)))
	}
	a.serverContext = server.NewServerContext(ctx, opts...)

	a.registry, err = buildRegistry(a.serverContext)
	if err != nil {
		a.close(ctx)
		return nil, err
	}

	a.reasoner, err = reasoner.New(cfg.Reasoner, nil, metrics, logger)
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("failed to create reasoner: %w", err)
	}

	a.controller, err = agent.NewController(agent.ControllerConfig{
		Reasoner:    a.reasoner,
		Registry:    a.registry,
		MaxSteps:    cfg.MaxSteps,
		StepTimeout: cfg.StepTimeout,
		ToolTimeout: cfg.ToolTimeout,
		RunTimeout:  cfg.RunTimeout,
		Concurrency: cfg.Concurrency,
		Logger:      logger,
		Metrics:     metrics,
	})
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("failed to create controller: %w", err)
	}

	logger.Debug("agent ready",
		logging.Model(a.reasoner.Provider(), a.reasoner.Model()),
		slog.Any("tools", a.registry.Names()),
		slog.Bool("read_only", cfg.ReadOnly))
	return a, nil
}

func (a *app) close(ctx context.Context) {
	if a.serverContext != nil {
		if err := a.serverContext.Shutdown(); err != nil {
			a.logger.Warn("error during server context shutdown", logging.Err(err))
		}
	}
	if err := a.instr.Shutdown(context.WithoutCancel(ctx)); err != nil {
		a.logger.Warn("error during instrumentation shutdown", logging.Err(err))
	}
}

// buildRegistry registers every tool group against sc.
func buildRegistry(sc *server.ServerContext) (*agent.Registry, error) {
	r := agent.NewRegistry()

	type toolRegistration struct {
		name     string
		register func() error
	}
	registrations := []toolRegistration{
		{name: "Gmail", register: func() error { return gmail_tools.RegisterGmailTools(r, sc) }},
		{name: "Calendar", register: func() error { return calendar_tools.RegisterCalendarTools(r, sc) }},
		{name: "Calculator", register: func() error { return calculator_tools.RegisterCalculatorTools(r, sc) }},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return nil, fmt.Errorf("failed to register %s tools: %w", reg.name, err)
		}
	}
	return r, nil
}

// lazyTokenProvider loads the Google client secrets on first use, so that
// commands which never touch Gmail or Calendar work without them. Failures
// are not cached; a token created by 'inboxagent auth' is picked up later.
type lazyTokenProvider struct {
	mu       sync.Mutex
	cfg      AgentConfig
	logger   *slog.Logger
	metrics  *instrumentation.Metrics
	provider google.TokenProvider
}

func newLazyTokenProvider(cfg AgentConfig, logger *slog.Logger, metrics *instrumentation.Metrics) *lazyTokenProvider {
	return &lazyTokenProvider{cfg: cfg, logger: logger, metrics: metrics}
}

func (l *lazyTokenProvider) get() (google.TokenProvider, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.provider != nil {
		return l.provider, nil
	}

	conf, err := google.LoadOAuthConfig(l.cfg.CredentialsFile, google.Scopes(l.cfg.ReadOnly))
	if err != nil {
		return nil, fmt.Errorf("%w (see 'inboxagent auth --help')", err)
	}
	p := google.NewFileTokenProvider(conf, l.cfg.TokenFile, l.logger, l.metrics)
	if !p.HasToken() {
		return nil, fmt.Errorf("%w at %s (run 'inboxagent auth' first)", google.ErrNoToken, l.cfg.TokenFile)
	}
	l.provider = p
	return p, nil
}
