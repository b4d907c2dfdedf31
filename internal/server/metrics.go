package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/teemow/inboxagent/internal/instrumentation"
	"github.com/teemow/inboxagent/internal/logging"
)

const (
	// DefaultMetricsAddr is the default address for the metrics server.
	DefaultMetricsAddr = ":9090"

	// DefaultShutdownTimeout bounds the graceful shutdown of all servers.
	DefaultShutdownTimeout = 30 * time.Second

	metricsReadTimeout  = 10 * time.Second
	metricsWriteTimeout = 10 * time.Second
	metricsIdleTimeout  = 60 * time.Second
)

// MetricsServerConfig configures a MetricsServer.
type MetricsServerConfig struct {
	// Addr is the listen address (default ":9090"). ":0" picks a free port.
	Addr string

	// Provider must be enabled and export to Prometheus.
	Provider *instrumentation.Provider

	Logger *slog.Logger
}

// MetricsServer serves the agent's Prometheus metrics on their own port so
// that run and tool statistics are not reachable through the webhook.
type MetricsServer struct {
	addr       string
	logger     *slog.Logger
	httpServer *http.Server

	mu       sync.Mutex
	listener net.Listener
}

// NewMetricsServer returns a MetricsServer exposing /metrics and /healthz.
func NewMetricsServer(config MetricsServerConfig) (*MetricsServer, error) {
	if config.Provider == nil {
		return nil, errors.New("instrumentation provider is required for metrics server")
	}
	if !config.Provider.Enabled() {
		return nil, errors.New("instrumentation provider is not enabled")
	}
	metrics := config.Provider.PrometheusHandler()
	if metrics == nil {
		return nil, errors.New("instrumentation provider does not export prometheus metrics")
	}
	if config.Addr == "" {
		config.Addr = DefaultMetricsAddr
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &MetricsServer{
		addr:   config.Addr,
		logger: logging.WithOperation(config.Logger, "metrics"),
		httpServer: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: metricsReadTimeout,
			WriteTimeout:      metricsWriteTimeout,
			IdleTimeout:       metricsIdleTimeout,
		},
	}, nil
}

// Handler returns the metrics mux.
func (s *MetricsServer) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start listens on the configured address and serves until Shutdown. It
// blocks.
func (s *MetricsServer) Start() error {
	l, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()

	s.logger.Info("starting metrics server", slog.String("addr", l.Addr().String()))
	return s.httpServer.Serve(l)
}

// Shutdown gracefully stops the server. It is a no-op before Start.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	started := s.listener != nil
	s.mu.Unlock()
	if !started {
		return nil
	}
	s.logger.Info("shutting down metrics server")
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the bound address once started, else the configured one.
func (s *MetricsServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}
