// Package agenttest provides a scripted Reasoner and tool helpers for
// testing code built on the agent package.
package agenttest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/inboxagent/internal/agent"
)

// ErrScriptExhausted is returned by ScriptedReasoner when it is called more
// often than it has steps.
var ErrScriptExhausted = errors.New("scripted reasoner has no more steps")

// Step produces the reasoner's answer for one call.
type Step func(ctx context.Context, messages []agent.Message, tools []agent.ToolDefinition) (agent.Message, error)

// ScriptedReasoner answers Infer calls with a fixed sequence of steps and
// records what it was given.
type ScriptedReasoner struct {
	mu       sync.Mutex
	steps    []Step
	requests [][]agent.Message
	tools    [][]agent.ToolDefinition
}

// NewScriptedReasoner returns a reasoner that plays steps in order.
func NewScriptedReasoner(steps ...Step) *ScriptedReasoner {
	return &ScriptedReasoner{steps: steps}
}

// Infer implements agent.Reasoner.
func (r *ScriptedReasoner) Infer(ctx context.Context, messages []agent.Message, tools []agent.ToolDefinition) (agent.Message, error) {
	r.mu.Lock()
	i := len(r.requests)
	r.requests = append(r.requests, messages)
	r.tools = append(r.tools, tools)
	r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return agent.Message{}, err
	}
	if i >= len(r.steps) {
		return agent.Message{}, fmt.Errorf("%w (call %d)", ErrScriptExhausted, i+1)
	}
	return r.steps[i](ctx, messages, tools)
}

// Calls returns how often Infer was called.
func (r *ScriptedReasoner) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

// Request returns the messages passed to the i-th Infer call.
func (r *ScriptedReasoner) Request(i int) []agent.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requests[i]
}

// Tools returns the tools passed to the i-th Infer call.
func (r *ScriptedReasoner) Tools(i int) []agent.ToolDefinition {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tools[i]
}

// Answer returns a step producing a final assistant message.
func Answer(content string) Step {
	return Reply(agent.AssistantMessage(content))
}

// CallTools returns a step producing an assistant message with tool calls.
func CallTools(calls ...agent.ToolCallRequest) Step {
	return Reply(agent.AssistantMessage("", calls...))
}

// Reply returns a step producing msg.
func Reply(msg agent.Message) Step {
	return func(context.Context, []agent.Message, []agent.ToolDefinition) (agent.Message, error) {
		return msg, nil
	}
}

// Fail returns a step failing with err.
func Fail(err error) Step {
	return func(context.Context, []agent.Message, []agent.ToolDefinition) (agent.Message, error) {
		return agent.Message{}, err
	}
}

// Block returns a step that waits until ctx is done and then replies with
// msg, as a model whose answer arrives after the caller gave up would.
func Block(msg agent.Message) Step {
	return func(ctx context.Context, _ []agent.Message, _ []agent.ToolDefinition) (agent.Message, error) {
		<-ctx.Done()
		return msg, nil
	}
}

// Call builds a tool call request.
func Call(id, name string, args map[string]any) agent.ToolCallRequest {
	return agent.ToolCallRequest{ID: id, Name: name, Arguments: args}
}

// Tool builds a tool definition from a name, an executor and optional
// schema options.
func Tool(name string, exec agent.Executor, opts ...mcp.ToolOption) agent.ToolDefinition {
	opts = append([]mcp.ToolOption{mcp.WithDescription("test tool " + name)}, opts...)
	return agent.ToolDefinition{Tool: mcp.NewTool(name, opts...), Execute: exec}
}

// Echo returns an executor that returns the "text" argument.
func Echo() agent.Executor {
	return func(_ context.Context, args map[string]any) (string, error) {
		return agent.StringArg(args, "text"), nil
	}
}

// MustRegistry returns a registry holding defs and panics on duplicates.
func MustRegistry(defs ...agent.ToolDefinition) *agent.Registry {
	r := agent.NewRegistry()
	for _, d := range defs {
		if err := r.Register(d); err != nil {
			panic(err)
		}
	}
	return r
}
