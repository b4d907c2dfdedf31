package agent

import (
	"context"
	"fmt"
	"strings"
)

// Reasoner performs one language-model call: it turns the conversation so
// far into the next assistant message.
//
// Implementations must not modify messages. They return
// *ModelUnavailableError when the model cannot be reached and
// *MalformedResponseError when its answer violates the tool contract.
type Reasoner interface {
	Infer(ctx context.Context, messages []Message, tools []ToolDefinition) (Message, error)
}

// ReasonerFunc adapts a function to the Reasoner interface.
type ReasonerFunc func(ctx context.Context, messages []Message, tools []ToolDefinition) (Message, error)

// Infer calls f.
func (f ReasonerFunc) Infer(ctx context.Context, messages []Message, tools []ToolDefinition) (Message, error) {
	return f(ctx, messages, tools)
}

// CheckResponse verifies an assistant message against the tools that were
// offered to the model. Every tool call must have a unique, non-empty id,
// name an offered tool and carry arguments that satisfy its schema.
func CheckResponse(msg Message, tools []ToolDefinition) error {
	if msg.Role != RoleAssistant {
		return &MalformedResponseError{Reason: fmt.Sprintf("expected role %q, got %q", RoleAssistant, msg.Role)}
	}

	byName := make(map[string]ToolDefinition, len(tools))
	for _, t := range tools {
		byName[t.Name()] = t
	}

	seen := make(map[string]bool, len(msg.ToolCalls))
	for _, call := range msg.ToolCalls {
		if call.ID == "" {
			return &MalformedResponseError{Reason: fmt.Sprintf("tool call to %q has no id", call.Name)}
		}
		if seen[call.ID] {
			return &MalformedResponseError{Reason: fmt.Sprintf("duplicate tool call id %q", call.ID)}
		}
		seen[call.ID] = true

		def, ok := byName[call.Name]
		if !ok {
			return &MalformedResponseError{
				Reason: fmt.Sprintf("unknown tool %q", call.Name),
				Err:    &UnknownToolError{Name: call.Name},
			}
		}
		if _, err := ValidateArguments(def.Tool, call.Arguments); err != nil {
			return &MalformedResponseError{Reason: "invalid tool arguments", Err: err}
		}
	}
	return nil
}

// ToolNames returns the names of defs joined with ", ".
func ToolNames(defs []ToolDefinition) string {
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name()
	}
	return strings.Join(names, ", ")
}
