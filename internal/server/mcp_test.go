package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxagent/internal/agent"
	"github.com/teemow/inboxagent/internal/agent/agenttest"
)

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return text.Text
}

func TestNewMCPServer_ExposesRegistry(t *testing.T) {
	registry := agenttest.MustRegistry(
		agenttest.Tool("echo", agenttest.Echo(), mcp.WithString("text", mcp.Required())),
		agenttest.Tool("fail", func(context.Context, map[string]any) (string, error) {
			return "", errors.New("quota exhausted")
		}),
	)

	s, err := NewMCPServer("inboxagent", "test", registry, nil)
	require.NoError(t, err)

	tools := s.ListTools()
	require.Len(t, tools, 2)
	assert.Contains(t, tools, "echo")
	assert.NotContains(t, tools, AskAgentToolName)

	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		res, err := tools["echo"].Handler(ctx, callRequest("echo", map[string]any{"text": "hi"}))
		require.NoError(t, err)
		assert.False(t, res.IsError)
		assert.Equal(t, "hi", resultText(t, res))
	})

	t.Run("invalid arguments", func(t *testing.T) {
		res, err := tools["echo"].Handler(ctx, callRequest("echo", map[string]any{}))
		require.NoError(t, err)
		assert.True(t, res.IsError)
		assert.Contains(t, resultText(t, res), `"text"`)
	})

	t.Run("executor failure", func(t *testing.T) {
		res, err := tools["fail"].Handler(ctx, callRequest("fail", nil))
		require.NoError(t, err)
		assert.True(t, res.IsError)
		assert.Equal(t, "quota exhausted", resultText(t, res))
	})
}

func TestNewMCPServer_AskAgent(t *testing.T) {
	registry := agenttest.MustRegistry(agenttest.Tool("echo", agenttest.Echo()))
	runner := runnerFunc(func(_ context.Context, input string) (*agent.Outcome, error) {
		if input == "fail" {
			return &agent.Outcome{State: agent.StateFailed}, agent.ErrBudgetExceeded
		}
		return &agent.Outcome{Answer: "you said " + input, State: agent.StateDone}, nil
	})

	s, err := NewMCPServer("inboxagent", "test", registry, runner)
	require.NoError(t, err)

	ask := s.ListTools()[AskAgentToolName]
	require.NotNil(t, ask)

	res, err := ask.Handler(context.Background(), callRequest(AskAgentToolName, map[string]any{"command": "Hello"}))
	require.NoError(t, err)
	assert.Equal(t, "you said Hello", resultText(t, res))

	res, err = ask.Handler(context.Background(), callRequest(AskAgentToolName, map[string]any{"command": "fail"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "step budget exceeded")
}

func TestNewMCPServer_Errors(t *testing.T) {
	_, err := NewMCPServer("inboxagent", "test", nil, nil)
	assert.Error(t, err)

	registry := agenttest.MustRegistry(agenttest.Tool(AskAgentToolName, agenttest.Echo()))
	_, err = NewMCPServer("inboxagent", "test", registry, failingRunner(nil))
	var dup *agent.DuplicateToolError
	assert.ErrorAs(t, err, &dup)
}

func TestWebhook_MountsMCPHandler(t *testing.T) {
	mcpHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	s, err := NewWebhookServer(WebhookServerConfig{Runner: failingRunner(nil), MCPHandler: mcpHandler})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, MCPEndpointPath, strings.NewReader("{}")))
	assert.Equal(t, http.StatusAccepted, rec.Code)
}
