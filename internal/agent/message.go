package agent

import "maps"

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCallRequest is an assistant's request to invoke one tool.
type ToolCallRequest struct {
	// ID is unique within the owning assistant message and is echoed by
	// exactly one tool message.
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Message is one conversational turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content,omitempty"`

	// ToolCalls is only set on assistant messages.
	ToolCalls []ToolCallRequest `json:"tool_calls,omitempty"`

	// ToolCallID, ToolName and IsError are only set on tool messages.
	ToolCallID string `json:"tool_call_id,omitempty"`
	ToolName   string `json:"tool_name,omitempty"`
	IsError    bool   `json:"is_error,omitempty"`
}

// UserMessage returns a user message with the given content.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage returns an assistant message with optional tool calls.
func AssistantMessage(content string, calls ...ToolCallRequest) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// ToolMessage returns the result message for the tool call with the given id.
func ToolMessage(callID, toolName, content string, isError bool) Message {
	return Message{
		Role:       RoleTool,
		Content:    content,
		ToolCallID: callID,
		ToolName:   toolName,
		IsError:    isError,
	}
}

// HasToolCalls reports whether the message requests any tool invocation.
func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}

// ToolNames returns the names of the requested tools in request order.
func (m Message) ToolNames() []string {
	if len(m.ToolCalls) == 0 {
		return nil
	}
	names := make([]string, len(m.ToolCalls))
	for i, c := range m.ToolCalls {
		names[i] = c.Name
	}
	return names
}

// clone returns a copy that shares no slices or maps with m.
func (m Message) clone() Message {
	if m.ToolCalls == nil {
		return m
	}
	calls := make([]ToolCallRequest, len(m.ToolCalls))
	for i, c := range m.ToolCalls {
		calls[i] = ToolCallRequest{ID: c.ID, Name: c.Name, Arguments: maps.Clone(c.Arguments)}
	}
	m.ToolCalls = calls
	return m
}
