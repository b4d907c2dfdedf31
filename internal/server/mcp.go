package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxagent/internal/agent"
)

const (
	// AskAgentToolName is the MCP tool that runs a full agent loop.
	AskAgentToolName = "ask_agent"

	// MCPEndpointPath is where the streamable HTTP transport is mounted.
	MCPEndpointPath = "/mcp"
)

// NewMCPServer exposes every tool in registry over MCP. When runner is not
// nil an ask_agent tool is added that answers a command with the agent.
//
// MCP clients call the tools directly, so they go through the same schema
// validation and executor as the dispatcher uses.
func NewMCPServer(name, version string, registry *agent.Registry, runner Runner) (*mcpserver.MCPServer, error) {
	if registry == nil {
		return nil, errors.New("tool registry is required for MCP server")
	}

	s := mcpserver.NewMCPServer(name, version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false),
	)

	for _, def := range registry.Definitions() {
		s.AddTool(def.Tool, toolHandler(def))
	}

	if runner != nil {
		if _, err := registry.Lookup(AskAgentToolName); err == nil {
			return nil, &agent.DuplicateToolError{Name: AskAgentToolName}
		}
		s.AddTool(askAgentTool(), askAgentHandler(runner))
	}

	return s, nil
}

// NewMCPHTTPHandler returns the streamable HTTP transport for s.
func NewMCPHTTPHandler(s *mcpserver.MCPServer, disableStreaming bool) http.Handler {
	opts := []mcpserver.StreamableHTTPOption{mcpserver.WithEndpointPath(MCPEndpointPath)}
	if disableStreaming {
		opts = append(opts, mcpserver.WithDisableStreaming(true))
	}
	return mcpserver.NewStreamableHTTPServer(s, opts...)
}

func toolHandler(def agent.ToolDefinition) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := agent.ValidateArguments(def.Tool, request.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		result, err := def.Execute(ctx, args)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(result), nil
	}
}

func askAgentTool() mcp.Tool {
	return mcp.NewTool(AskAgentToolName,
		mcp.WithDescription("Answer a request in natural language. The agent reads email, checks the calendar, sends email and calculates as needed."),
		mcp.WithString("command",
			mcp.Required(),
			mcp.Description("What the user wants, e.g. \"Summarize my last 3 emails\""),
		),
	)
}

func askAgentHandler(runner Runner) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		command, _ := request.GetArguments()["command"].(string)

		out, err := runner.Execute(ctx, command)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("agent failed: %v", err)), nil
		}
		return mcp.NewToolResultText(out.Answer), nil
	}
}
