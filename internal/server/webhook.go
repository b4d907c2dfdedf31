package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/teemow/inboxagent/internal/agent"
	"github.com/teemow/inboxagent/internal/instrumentation"
	"github.com/teemow/inboxagent/internal/logging"
	"github.com/teemow/inboxagent/internal/transcript"
)

const (
	// DefaultWebhookAddr is the default listen address of the webhook server.
	DefaultWebhookAddr = ":5000"

	// maxCommandBytes limits the size of a webhook request body.
	maxCommandBytes = 64 << 10
)

// Error codes returned in webhook error responses.
const (
	CodeInvalidRequest   = "invalid_request"
	CodeModelUnavailable = "model_unavailable"
	CodeMalformedReply   = "malformed_response"
	CodeTimeout          = "timeout"
	CodeBudgetExceeded   = "budget_exceeded"
	CodeInternal         = "internal_error"
	CodeNotFound         = "not_found"
)

// Runner executes one agent run. *agent.Controller implements it.
type Runner interface {
	Execute(ctx context.Context, input string) (*agent.Outcome, error)
}

// WebhookServerConfig configures a WebhookServer.
type WebhookServerConfig struct {
	// Addr is the listen address (default ":5000").
	Addr string

	Runner Runner

	// Store receives a transcript of every run. Optional.
	Store transcript.Store

	// AllowedOrigins for CORS. Empty allows any origin, which is what
	// browser extensions need.
	AllowedOrigins []string

	// MCPHandler is mounted at /mcp when set.
	MCPHandler http.Handler

	// Info is reported by /healthz/detailed, e.g. the model in use.
	Info map[string]string

	ServerContext *ServerContext
	Metrics       *instrumentation.Metrics
	Logger        *slog.Logger
}

// CommandRequest is the body of POST /webhook.
type CommandRequest struct {
	Command string `json:"command"`
}

// CommandResponse is the successful reply of POST /webhook.
type CommandResponse struct {
	Reply string `json:"reply"`
	RunID string `json:"run_id,omitempty"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	RunID string `json:"run_id,omitempty"`
}

// WebhookServer accepts user commands over HTTP and answers them with the
// agent.
type WebhookServer struct {
	addr       string
	runner     Runner
	store      transcript.Store
	origins    []string
	mcp        http.Handler
	health     *HealthChecker
	metrics    *instrumentation.Metrics
	logger     *slog.Logger
	httpServer *http.Server
}

// NewWebhookServer creates a WebhookServer.
func NewWebhookServer(config WebhookServerConfig) (*WebhookServer, error) {
	if config.Runner == nil {
		return nil, fmt.Errorf("runner is required for webhook server")
	}
	if config.Addr == "" {
		config.Addr = DefaultWebhookAddr
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	health := NewHealthChecker(config.ServerContext)
	for k, v := range config.Info {
		health.SetInfo(k, v)
	}
	if p, ok := config.Store.(transcript.Pinger); ok {
		health.AddCheck("transcripts", p.Ping)
	}

	return &WebhookServer{
		addr:    config.Addr,
		runner:  config.Runner,
		store:   config.Store,
		origins: config.AllowedOrigins,
		mcp:     config.MCPHandler,
		health:  health,
		metrics: config.Metrics,
		logger:  logging.WithOperation(config.Logger, "webhook"),
	}, nil
}

// Health returns the server's health checker.
func (s *WebhookServer) Health() *HealthChecker {
	return s.health
}

// Handler returns the complete HTTP handler including CORS and tracing.
func (s *WebhookServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhook", s.handleCommand)
	mux.HandleFunc("GET /runs/{id}", s.handleGetRun)
	s.health.RegisterHealthEndpoints(mux)
	if s.mcp != nil {
		mux.Handle(MCPEndpointPath, s.mcp)
	}

	origins := s.origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Mcp-Session-Id", "Mcp-Protocol-Version"},
		ExposedHeaders: []string{"Mcp-Session-Id"},
	})

	return otelhttp.NewHandler(c.Handler(s.recordRequests(mux)), "webhook")
}

// Start serves until Shutdown is called. It blocks.
func (s *WebhookServer) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("starting webhook server", "addr", s.addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown marks the server as not ready and drains open requests.
func (s *WebhookServer) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	if s.httpServer != nil {
		s.logger.Info("shutting down webhook server")
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// Addr returns the configured listen address.
func (s *WebhookServer) Addr() string {
	return s.addr
}

func (s *WebhookServer) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxCommandBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body", Code: CodeInvalidRequest})
		return
	}

	out, err := s.runner.Execute(r.Context(), req.Command)
	s.saveTranscript(r.Context(), req.Command, out, err)

	if err != nil {
		status, code := classifyRunError(err)
		resp := ErrorResponse{Error: err.Error(), Code: code}
		if out != nil {
			resp.RunID = out.RunID
		}
		if status >= http.StatusInternalServerError {
			s.logger.Warn("command failed", logging.Status(code), logging.Err(err))
		}
		writeError(w, status, resp)
		return
	}

	writeJSON(w, http.StatusOK, CommandResponse{Reply: out.Answer, RunID: out.RunID})
}

func (s *WebhookServer) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, ErrorResponse{Error: "transcripts are disabled", Code: CodeNotFound})
		return
	}

	rec, err := s.store.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, transcript.ErrNotFound) {
		writeError(w, http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: CodeNotFound})
		return
	}
	if err != nil {
		s.logger.Error("failed to load transcript", logging.Err(err))
		writeError(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to load transcript", Code: CodeInternal})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// saveTranscript persists the run even when the client has gone away.
func (s *WebhookServer) saveTranscript(ctx context.Context, input string, out *agent.Outcome, runErr error) {
	if s.store == nil || out == nil || errors.Is(runErr, agent.ErrEmptyInput) {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := s.store.Save(ctx, transcript.NewRecord(input, out, runErr)); err != nil {
		s.logger.Warn("failed to save transcript", logging.Err(err))
	}
}

// recordRequests records the status and duration of every request.
func (s *WebhookServer) recordRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := r.URL.Path
		if r.Pattern != "" {
			path = r.Pattern
		}
		s.metrics.RecordHTTPRequest(r.Context(), r.Method, path, rec.status, time.Since(start))
	})
}

// classifyRunError maps a failed run to an HTTP status and error code.
func classifyRunError(err error) (int, string) {
	var unavailable *agent.ModelUnavailableError
	var malformed *agent.MalformedResponseError

	switch {
	case errors.Is(err, agent.ErrEmptyInput):
		return http.StatusBadRequest, CodeInvalidRequest
	case errors.Is(err, context.DeadlineExceeded):
		// A step timeout reaches us wrapped in the provider's error.
		return http.StatusGatewayTimeout, CodeTimeout
	case errors.As(err, &unavailable):
		return http.StatusBadGateway, CodeModelUnavailable
	case errors.As(err, &malformed):
		return http.StatusBadGateway, CodeMalformedReply
	case errors.Is(err, agent.ErrBudgetExceeded):
		return http.StatusInternalServerError, CodeBudgetExceeded
	}
	return http.StatusInternalServerError, CodeInternal
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush keeps streaming responses of the MCP transport working.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, resp ErrorResponse) {
	writeJSON(w, status, resp)
}
