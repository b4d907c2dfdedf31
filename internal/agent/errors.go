package agent

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyLog is returned by Log.Latest when nothing has been appended.
	ErrEmptyLog = errors.New("message log is empty")

	// ErrBudgetExceeded ends a run that used up its reasoning steps
	// without reaching a final answer.
	ErrBudgetExceeded = errors.New("step budget exceeded")
)

// DuplicateToolError is returned when registering a name that is taken.
type DuplicateToolError struct {
	Name string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool %q already registered", e.Name)
}

// UnknownToolError is returned when looking up a name that is not registered.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("tool %q is not registered", e.Name)
}

// ToolArgumentError describes arguments that do not satisfy a tool's schema.
type ToolArgumentError struct {
	Tool     string
	Argument string
	Reason   string
}

func (e *ToolArgumentError) Error() string {
	if e.Argument == "" {
		return fmt.Sprintf("invalid arguments for %s: %s", e.Tool, e.Reason)
	}
	return fmt.Sprintf("invalid argument %q for %s: %s", e.Argument, e.Tool, e.Reason)
}

// ToolExecutionError wraps a failure returned by a tool executor.
type ToolExecutionError struct {
	Tool string
	Err  error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Err)
}

func (e *ToolExecutionError) Unwrap() error {
	return e.Err
}

// ModelUnavailableError means the language model could not be reached or
// rejected the request (transport, authentication or API failure).
type ModelUnavailableError struct {
	Provider string
	Err      error
}

func (e *ModelUnavailableError) Error() string {
	return fmt.Sprintf("model %s unavailable: %v", e.Provider, e.Err)
}

func (e *ModelUnavailableError) Unwrap() error {
	return e.Err
}

// MalformedResponseError means the model answered but violated its
// contract: it named an unknown tool, sent arguments that do not match the
// tool's schema, or returned something that could not be decoded.
type MalformedResponseError struct {
	Reason string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed model response: %s: %v", e.Reason, e.Err)
	}
	return "malformed model response: " + e.Reason
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}
