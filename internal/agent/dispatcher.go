package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/teemow/inboxagent/internal/instrumentation"
	"github.com/teemow/inboxagent/internal/logging"
	"github.com/teemow/inboxagent/internal/tools/batch"
)

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	// Concurrency bounds how many tool calls of one batch run at once.
	// Values below one mean batch.DefaultConcurrency.
	Concurrency int

	// ToolTimeout bounds a single tool execution. Zero disables the limit.
	ToolTimeout time.Duration

	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
}

// Dispatcher executes the tool calls of one assistant message.
type Dispatcher struct {
	registry    *Registry
	concurrency int
	toolTimeout time.Duration
	logger      *slog.Logger
	metrics     *instrumentation.Metrics
}

// NewDispatcher returns a Dispatcher that resolves tools in registry.
func NewDispatcher(registry *Registry, cfg DispatcherConfig) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		registry:    registry,
		concurrency: cfg.Concurrency,
		toolTimeout: cfg.ToolTimeout,
		logger:      logger,
		metrics:     cfg.Metrics,
	}
}

// Execute runs every request and returns exactly one tool message per
// request, in request order. Unknown tools, invalid arguments and executor
// failures become error content in the corresponding message.
//
// Execute only fails when ctx is done before all calls returned. It then
// returns no messages at all.
func (d *Dispatcher) Execute(ctx context.Context, requests []ToolCallRequest) ([]Message, error) {
	ids := make([]string, len(requests))
	for i, req := range requests {
		ids[i] = req.ID
	}

	results, err := batch.Process(ctx, ids, d.concurrency, func(ctx context.Context, i int) (string, error) {
		return d.invoke(ctx, requests[i])
	})
	if err != nil {
		return nil, err
	}

	msgs := make([]Message, len(requests))
	for i, res := range results {
		req := requests[i]
		if res.Failed() {
			d.logger.Warn("tool call failed",
				logging.Tool(req.Name), logging.ToolCallID(req.ID), logging.Err(res.Err))
			d.recordRejection(ctx, req.Name, res.Err)
			msgs[i] = ToolMessage(req.ID, req.Name, d.errorContent(res.Err), true)
			continue
		}
		msgs[i] = ToolMessage(req.ID, req.Name, res.Result, false)
	}
	return msgs, nil
}

func (d *Dispatcher) invoke(ctx context.Context, req ToolCallRequest) (string, error) {
	def, err := d.registry.Lookup(req.Name)
	if err != nil {
		return "", err
	}

	args, err := ValidateArguments(def.Tool, req.Arguments)
	if err != nil {
		return "", err
	}

	ctx = WithToolCallID(ctx, req.ID)
	tctx := ctx
	if d.toolTimeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(ctx, d.toolTimeout)
		defer cancel()
	}

	d.logger.Debug("executing tool", logging.Tool(req.Name), logging.ToolCallID(req.ID))

	type outcome struct {
		content string
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		content, err := def.Execute(tctx, args)
		done <- outcome{content: content, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			if tctx.Err() != nil && errors.Is(o.err, context.DeadlineExceeded) {
				return "", &ToolExecutionError{Tool: req.Name, Err: fmt.Errorf("timed out after %s", d.toolTimeout)}
			}
			return "", &ToolExecutionError{Tool: req.Name, Err: o.err}
		}
		return o.content, nil
	case <-tctx.Done():
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &ToolExecutionError{Tool: req.Name, Err: fmt.Errorf("timed out after %s", d.toolTimeout)}
	}
}

// recordRejection counts calls that failed before their executor ran.
func (d *Dispatcher) recordRejection(ctx context.Context, name string, err error) {
	var unknown *UnknownToolError
	var badArgs *ToolArgumentError
	switch {
	case errors.As(err, &unknown):
		d.metrics.RecordRejectedToolCall(ctx, instrumentation.ToolLabel(name, false), instrumentation.RejectUnknownTool)
	case errors.As(err, &badArgs):
		d.metrics.RecordRejectedToolCall(ctx, instrumentation.ToolLabel(name, true), instrumentation.RejectInvalidArguments)
	}
}

// errorContent renders a tool failure as text for the model.
func (d *Dispatcher) errorContent(err error) string {
	var unknown *UnknownToolError
	if errors.As(err, &unknown) {
		return fmt.Sprintf("Error: %s is not a valid tool, try one of [%s].",
			unknown.Name, strings.Join(d.registry.Names(), ", "))
	}

	var execErr *ToolExecutionError
	if errors.As(err, &execErr) {
		return "Error: " + execErr.Err.Error()
	}

	return "Error: " + err.Error()
}
