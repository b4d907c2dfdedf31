package server

import (
	"context"
	"encoding/json"
	"maps"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

const (
	healthStatusOK           = "ok"
	healthStatusNotReady     = "not ready"
	healthStatusShuttingDown = "shutting down"

	// checkTimeout bounds a single dependency check.
	checkTimeout = 2 * time.Second
)

// DependencyCheck reports whether a dependency of the agent can be used. It must
// return promptly; it runs on every readiness request.
type DependencyCheck func(ctx context.Context) error

// HealthChecker serves the liveness and readiness endpoints of the webhook
// server.
type HealthChecker struct {
	ready         atomic.Bool
	serverContext *ServerContext
	startTime     time.Time

	mu   sync.RWMutex
	deps map[string]DependencyCheck
	info map[string]string
}

// NewHealthChecker returns a HealthChecker that starts out ready. sc may be
// nil.
func NewHealthChecker(sc *ServerContext) *HealthChecker {
	h := &HealthChecker{
		serverContext: sc,
		startTime:     time.Now(),
		deps:          make(map[string]DependencyCheck),
		info:          make(map[string]string),
	}
	h.ready.Store(true)
	return h
}

// SetReady sets the readiness state of the server.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady returns whether the server is ready to receive traffic.
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

// AddCheck adds a named dependency check to the readiness endpoint.
func (h *HealthChecker) AddCheck(name string, p DependencyCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deps[name] = p
}

// SetInfo adds a static fact, such as the model in use, to the detailed
// health response.
func (h *HealthChecker) SetInfo(key, value string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.info[key] = value
}

// HealthResponse represents the JSON response for health endpoints.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// DetailedHealthResponse adds uptime and agent facts to HealthResponse.
type DetailedHealthResponse struct {
	Status string            `json:"status"`
	Uptime string            `json:"uptime"`
	Checks map[string]string `json:"checks,omitempty"`
	Info   map[string]string `json:"info,omitempty"`
}

// RegisterHealthEndpoints registers /healthz, /readyz and /healthz/detailed.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle("GET /healthz", h.LivenessHandler())
	mux.Handle("GET /readyz", h.ReadinessHandler())
	mux.Handle("GET /healthz/detailed", h.DetailedHealthHandler())
}

// LivenessHandler answers 200 as long as the process serves requests.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeHealth(w, http.StatusOK, HealthResponse{Status: healthStatusOK})
	})
}

// ReadinessHandler answers 503 while the server is draining, after the
// server context was shut down, or when any dependency check fails.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status, checks := h.evaluate(r.Context())
		code := http.StatusOK
		if status != healthStatusOK {
			code = http.StatusServiceUnavailable
		}
		writeHealth(w, code, HealthResponse{Status: status, Checks: checks})
	})
}

// DetailedHealthHandler reports the readiness checks together with uptime
// and the facts set with SetInfo.
func (h *HealthChecker) DetailedHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status, checks := h.evaluate(r.Context())

		h.mu.RLock()
		info := maps.Clone(h.info)
		h.mu.RUnlock()

		code := http.StatusOK
		if status != healthStatusOK {
			code = http.StatusServiceUnavailable
		}
		writeHealth(w, code, DetailedHealthResponse{
			Status: status,
			Uptime: time.Since(h.startTime).Truncate(time.Second).String(),
			Checks: checks,
			Info:   info,
		})
	})
}

// evaluate runs every check and returns the overall status.
func (h *HealthChecker) evaluate(ctx context.Context) (string, map[string]string) {
	checks := map[string]string{"ready": healthStatusOK, "shutdown": healthStatusOK}
	status := healthStatusOK

	if !h.ready.Load() {
		checks["ready"] = healthStatusNotReady
		status = healthStatusNotReady
	}
	if h.serverContext != nil && h.serverContext.IsShutdown() {
		checks["shutdown"] = healthStatusShuttingDown
		status = healthStatusShuttingDown
	}

	h.mu.RLock()
	deps := maps.Clone(h.deps)
	h.mu.RUnlock()

	for name, check := range deps {
		pctx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := check(pctx)
		cancel()
		if err != nil {
			checks[name] = err.Error()
			if status == healthStatusOK {
				status = healthStatusNotReady
			}
			continue
		}
		checks[name] = healthStatusOK
	}
	return status, checks
}

func writeHealth(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
