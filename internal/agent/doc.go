// Package agent implements the tool-calling loop that answers a user request.
//
// A run seeds a Log with the user's message and then alternates between two
// steps until the model stops asking for tools:
//
//   - Reasoning: the Reasoner turns the current log into one assistant message.
//   - Acting: the Dispatcher executes the tool calls of that message and the
//     resulting tool messages are appended to the log.
//
// The Controller owns this state machine. It bounds the number of reasoning
// steps, applies timeouts to model and tool calls and abandons the current
// step without appending anything when the caller cancels.
//
// # Tools
//
// Tools are registered once in a Registry before any run starts. Each
// ToolDefinition carries an mcp.Tool (name, description and JSON schema of
// its parameters) and an Executor:
//
//	registry := agent.NewRegistry()
//	err := registry.Register(agent.ToolDefinition{
//	    Tool: mcp.NewTool("calculator",
//	        mcp.WithDescription("Evaluate an arithmetic expression"),
//	        mcp.WithString("expression", mcp.Required()),
//	    ),
//	    Execute: func(ctx context.Context, args map[string]any) (string, error) {
//	        return evaluate(args["expression"].(string))
//	    },
//	})
//
// # Errors
//
// Failures inside a single tool call never abort a run: unknown tools,
// invalid arguments and executor errors are turned into tool messages whose
// content starts with "Error:". Reasoner failures (ModelUnavailableError,
// MalformedResponseError), cancellation and ErrBudgetExceeded end the run and
// are returned to the caller.
package agent
