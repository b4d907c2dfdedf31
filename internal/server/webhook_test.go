package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxagent/internal/agent"
	"github.com/teemow/inboxagent/internal/agent/agenttest"
	"github.com/teemow/inboxagent/internal/transcript"
)

type runnerFunc func(ctx context.Context, input string) (*agent.Outcome, error)

func (f runnerFunc) Execute(ctx context.Context, input string) (*agent.Outcome, error) {
	return f(ctx, input)
}

func failingRunner(err error) Runner {
	return runnerFunc(func(context.Context, string) (*agent.Outcome, error) {
		return &agent.Outcome{RunID: "run-1", State: agent.StateFailed}, err
	})
}

func newTestWebhook(t *testing.T, runner Runner, store transcript.Store) http.Handler {
	t.Helper()
	s, err := NewWebhookServer(WebhookServerConfig{Runner: runner, Store: store})
	require.NoError(t, err)
	return s.Handler()
}

func postCommand(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewWebhookServer(t *testing.T) {
	_, err := NewWebhookServer(WebhookServerConfig{})
	assert.Error(t, err)

	s, err := NewWebhookServer(WebhookServerConfig{Runner: failingRunner(nil)})
	require.NoError(t, err)
	assert.Equal(t, DefaultWebhookAddr, s.Addr())
}

func TestWebhook_AnswersCommand(t *testing.T) {
	multiply := agenttest.Tool("calculator", func(_ context.Context, args map[string]any) (string, error) {
		if agent.StringArg(args, "expression") != "7*8" {
			return "", errors.New("unexpected expression")
		}
		return "56", nil
	})
	reasoner := agenttest.NewScriptedReasoner(
		agenttest.CallTools(agenttest.Call("call_1", "calculator", map[string]any{"expression": "7*8"})),
		agenttest.Answer("56"),
	)
	controller, err := agent.NewController(agent.ControllerConfig{
		Reasoner: reasoner,
		Registry: agenttest.MustRegistry(multiply),
	})
	require.NoError(t, err)

	store := transcript.NewMemoryStore(10)
	h := newTestWebhook(t, controller, store)

	rec := postCommand(t, h, `{"command": "What's 7*8?"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp CommandResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "56", resp.Reply)
	require.NotEmpty(t, resp.RunID)

	// The transcript of the run can be fetched afterwards.
	req := httptest.NewRequest(http.MethodGet, "/runs/"+resp.RunID, nil)
	getRec := httptest.NewRecorder()
	h.ServeHTTP(getRec, req)
	require.Equal(t, http.StatusOK, getRec.Code)

	var got transcript.Record
	require.NoError(t, json.Unmarshal(getRec.Body.Bytes(), &got))
	assert.Equal(t, "What's 7*8?", got.Input)
	assert.Equal(t, "done", got.State)
	assert.Equal(t, 2, got.Steps)
	assert.Len(t, got.Messages, 4)
}

func TestWebhook_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		runner     Runner
		wantStatus int
		wantCode   string
	}{
		{
			name:       "invalid json",
			body:       `{"command":`,
			runner:     failingRunner(nil),
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeInvalidRequest,
		},
		{
			name:       "empty command",
			body:       `{"command": "  "}`,
			runner:     failingRunner(agent.ErrEmptyInput),
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeInvalidRequest,
		},
		{
			name:       "model unavailable",
			body:       `{"command": "hi"}`,
			runner:     failingRunner(&agent.ModelUnavailableError{Provider: "openai", Err: errors.New("connection refused")}),
			wantStatus: http.StatusBadGateway,
			wantCode:   CodeModelUnavailable,
		},
		{
			name:       "malformed response",
			body:       `{"command": "hi"}`,
			runner:     failingRunner(&agent.MalformedResponseError{Reason: "no choices"}),
			wantStatus: http.StatusBadGateway,
			wantCode:   CodeMalformedReply,
		},
		{
			name:       "timeout",
			body:       `{"command": "hi"}`,
			runner:     failingRunner(fmt.Errorf("reasoning step 1: %w", context.DeadlineExceeded)),
			wantStatus: http.StatusGatewayTimeout,
			wantCode:   CodeTimeout,
		},
		{
			name: "step timeout inside provider error",
			body: `{"command": "hi"}`,
			runner: failingRunner(fmt.Errorf("reasoning step 1: %w",
				&agent.ModelUnavailableError{Provider: "openai", Err: context.DeadlineExceeded})),
			wantStatus: http.StatusGatewayTimeout,
			wantCode:   CodeTimeout,
		},
		{
			name:       "budget exceeded",
			body:       `{"command": "hi"}`,
			runner:     failingRunner(agent.ErrBudgetExceeded),
			wantStatus: http.StatusInternalServerError,
			wantCode:   CodeBudgetExceeded,
		},
		{
			name:       "other failure",
			body:       `{"command": "hi"}`,
			runner:     failingRunner(errors.New("boom")),
			wantStatus: http.StatusInternalServerError,
			wantCode:   CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postCommand(t, newTestWebhook(t, tt.runner, nil), tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestWebhook_StepTimeout(t *testing.T) {
	reasoner := agenttest.NewScriptedReasoner(
		func(ctx context.Context, _ []agent.Message, _ []agent.ToolDefinition) (agent.Message, error) {
			<-ctx.Done()
			return agent.Message{}, &agent.ModelUnavailableError{Provider: "test", Err: ctx.Err()}
		},
	)
	controller, err := agent.NewController(agent.ControllerConfig{
		Reasoner:    reasoner,
		Registry:    agenttest.MustRegistry(agenttest.Tool("echo", agenttest.Echo())),
		StepTimeout: 20 * time.Millisecond,
	})
	require.NoError(t, err)

	rec := postCommand(t, newTestWebhook(t, controller, nil), `{"command": "hi"}`)
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, CodeTimeout, resp.Code)
}

func TestWebhook_SavesFailedRuns(t *testing.T) {
	store := transcript.NewMemoryStore(10)
	h := newTestWebhook(t, failingRunner(agent.ErrBudgetExceeded), store)

	rec := postCommand(t, h, `{"command": "loop forever"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	got, err := store.Get(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "failed", got.State)
	assert.Equal(t, agent.ErrBudgetExceeded.Error(), got.Error)
}

func TestWebhook_GetRun(t *testing.T) {
	t.Run("unknown id", func(t *testing.T) {
		h := newTestWebhook(t, failingRunner(nil), transcript.NewMemoryStore(10))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/nope", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("store disabled", func(t *testing.T) {
		h := newTestWebhook(t, failingRunner(nil), nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/run-1", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestWebhook_CORS(t *testing.T) {
	h := newTestWebhook(t, failingRunner(nil), nil)

	req := httptest.NewRequest(http.MethodOptions, "/webhook", nil)
	req.Header.Set("Origin", "chrome-extension://abcdef")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
}

func TestWebhook_MethodNotAllowed(t *testing.T) {
	h := newTestWebhook(t, failingRunner(nil), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/webhook", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestWebhook_HealthEndpoints(t *testing.T) {
	h := newTestWebhook(t, failingRunner(nil), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}
