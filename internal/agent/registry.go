package agent

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
)

// Executor runs a tool with arguments that already passed schema validation.
// A returned error is reported to the model as the tool's result.
type Executor func(ctx context.Context, args map[string]any) (string, error)

// ToolDefinition describes a tool and how to execute it.
type ToolDefinition struct {
	// Tool carries the name, description and parameter schema.
	Tool    mcp.Tool
	Execute Executor
}

// Name returns the tool's registered name.
func (d ToolDefinition) Name() string {
	return d.Tool.Name
}

// Description returns the text the model uses to decide when to call the tool.
func (d ToolDefinition) Description() string {
	return d.Tool.Description
}

// Registry maps tool names to definitions.
//
// Tools are registered during setup; afterwards the registry is only read and
// may be shared by any number of concurrent runs.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]ToolDefinition
	order []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]ToolDefinition)}
}

// Register adds a tool. It fails with *DuplicateToolError if the name is taken.
func (r *Registry) Register(def ToolDefinition) error {
	name := def.Name()
	if name == "" {
		return errors.New("tool name is required")
	}
	if def.Execute == nil {
		return errors.New("tool " + name + " has no executor")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return &DuplicateToolError{Name: name}
	}
	r.tools[name] = def
	r.order = append(r.order, name)
	return nil
}

// Lookup returns the tool registered under name or *UnknownToolError.
func (r *Registry) Lookup(name string) (ToolDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.tools[name]
	if !ok {
		return ToolDefinition{}, &UnknownToolError{Name: name}
	}
	return def, nil
}

// Definitions returns all tools in registration order.
func (r *Registry) Definitions() []ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name])
	}
	return defs
}

// Names returns the sorted names of all registered tools.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	sort.Strings(names)
	return names
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
