package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/teemow/inboxagent/internal/logging"
	"github.com/teemow/inboxagent/internal/resources"
	"github.com/teemow/inboxagent/internal/server"
	"github.com/teemow/inboxagent/internal/transcript"
)

// Supported serve transports.
const (
	transportHTTP  = "http"
	transportStdio = "stdio"
)

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

// ServeConfig holds the settings of the serve command.
type ServeConfig struct {
	Transport        string
	HTTPAddr         string
	CORSOrigins      []string
	EnableMCP        bool
	DisableStreaming bool

	Agent      AgentConfig
	Transcript transcript.Config
	Metrics    MetricsConfig
}

func newServeCmd() *cobra.Command {
	var (
		agentOpts        agentFlags
		transcriptOpts   transcriptFlags
		transport        string
		httpAddr         string
		corsOrigins      string
		enableMCP        bool
		disableStreaming bool
		metricsEnabled   bool
		metricsAddr      string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the agent over HTTP or MCP stdio",
		Long: `Serve the agent.

With the http transport (default) the agent answers POST /webhook requests:

  curl -d '{"command": "What is on my calendar?"}' http://localhost:5000/webhook

The same server exposes the tools, an ask_agent tool and the recorded
transcripts to MCP clients on /mcp, the transcript of every run on /runs/{id} and health checks on
/healthz and /readyz.

With the stdio transport the tools and ask_agent are served to a single MCP
client over standard input and output.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			config := ServeConfig{
				Transport:        transport,
				HTTPAddr:         envString(cmd, "http-addr", "AGENT_HTTP_ADDR", httpAddr),
				CORSOrigins:      parseCommaSeparatedList(envString(cmd, "cors-origins", "AGENT_CORS_ORIGINS", corsOrigins)),
				EnableMCP:        enableMCP,
				DisableStreaming: disableStreaming,
				Agent:            agentOpts.load(cmd),
				Transcript:       transcriptOpts.load(cmd),
				Metrics: MetricsConfig{
					Enabled: envBool(cmd, "metrics-enabled", "METRICS_ENABLED", metricsEnabled),
					Addr:    envString(cmd, "metrics-addr", "METRICS_ADDR", metricsAddr),
				},
			}
			return runServe(cmd, config)
		},
	}

	agentOpts.register(cmd)
	transcriptOpts.register(cmd)

	cmd.Flags().StringVar(&transport, "transport", transportHTTP, "Transport type: http or stdio")
	cmd.Flags().StringVar(&httpAddr, "http-addr", server.DefaultWebhookAddr, "HTTP server address (for http transport). Can also use AGENT_HTTP_ADDR env var.")
	cmd.Flags().StringVar(&corsOrigins, "cors-origins", "", "Comma-separated origins allowed to call the webhook (default: any). Can also use AGENT_CORS_ORIGINS env var.")
	cmd.Flags().BoolVar(&enableMCP, "mcp", true, "Expose the tools to MCP clients on /mcp (http transport)")
	cmd.Flags().BoolVar(&disableStreaming, "disable-streaming", false, "Disable streaming for the MCP HTTP transport (for compatibility with certain clients)")

	// Metrics server flags
	cmd.Flags().BoolVar(&metricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

func runServe(cmd *cobra.Command, config ServeConfig) error {
	if config.Transport != transportHTTP && config.Transport != transportStdio {
		return fmt.Errorf("unsupported transport type: %s (supported: http, stdio)", config.Transport)
	}

	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Stdout belongs to the MCP protocol in stdio mode, so logs always go to stderr.
	a, err := newApp(ctx, config.Agent, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.close(ctx)

	if config.Agent.ReadOnly {
		a.logger.Info("starting in read-only mode, send_email is disabled")
	}

	if config.Transport == transportStdio {
		return runStdioServer(a)
	}
	return runHTTPServer(ctx, a, config)
}

func runStdioServer(a *app) error {
	mcpSrv, err := server.NewMCPServer("inboxagent", version, a.registry, a.controller)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	if err := mcpserver.ServeStdio(mcpSrv); err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func runHTTPServer(ctx context.Context, a *app, config ServeConfig) error {
	store, err := transcript.New(config.Transcript)
	if err != nil {
		return fmt.Errorf("failed to create transcript store: %w", err)
	}
	if store != nil {
		defer func() {
			if err := store.Close(); err != nil {
				a.logger.Warn("error closing transcript store", logging.Err(err))
			}
		}()
	}

	var mcpHandler http.Handler
	if config.EnableMCP {
		mcpSrv, err := server.NewMCPServer("inboxagent", version, a.registry, a.controller)
		if err != nil {
			return fmt.Errorf("failed to create MCP server: %w", err)
		}
		if store != nil {
			if err := resources.RegisterTranscriptResources(mcpSrv, store); err != nil {
				return fmt.Errorf("failed to register transcript resources: %w", err)
			}
		}
		mcpHandler = server.NewMCPHTTPHandler(mcpSrv, config.DisableStreaming)
	}

	webhook, err := server.NewWebhookServer(server.WebhookServerConfig{
		Addr:           config.HTTPAddr,
		Runner:         a.controller,
		Store:          store,
		AllowedOrigins: config.CORSOrigins,
		MCPHandler:     mcpHandler,
		Info: map[string]string{
			"version": version,
			"model":   a.reasoner.Provider() + "/" + a.reasoner.Model(),
			"tools":   strconv.Itoa(len(a.registry.Names())),
		},
		ServerContext: a.serverContext,
		Metrics:       a.instr.Metrics(),
		Logger:        a.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create webhook server: %w", err)
	}

	var metricsServer *server.MetricsServer
	if config.Metrics.Enabled && a.instr.Enabled() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:     config.Metrics.Addr,
			Provider: a.instr,
			Logger:   a.logger,
		})
		if err != nil {
			// OTLP and stdout exporters have nothing to scrape.
			a.logger.Warn("metrics server disabled", logging.Err(err))
			metricsServer = nil
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := webhook.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("webhook server failed: %w", err)
		}
		return nil
	})

	if metricsServer != nil {
		g.Go(func() error {
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server failed: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutdown signal received, stopping servers")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), server.DefaultShutdownTimeout)
		defer cancel()

		var errs []error
		if err := webhook.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("webhook server shutdown: %w", err))
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("metrics server shutdown: %w", err))
			}
		}
		return errors.Join(errs...)
	})

	a.logger.Info("agent listening",
		slog.String("addr", webhook.Addr()),
		slog.Bool("mcp", config.EnableMCP),
		slog.String("transcripts", config.Transcript.Type))

	if err := g.Wait(); err != nil {
		return err
	}
	a.logger.Info("HTTP server gracefully stopped")
	return nil
}
