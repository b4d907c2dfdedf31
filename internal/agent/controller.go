package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/teemow/inboxagent/internal/instrumentation"
	"github.com/teemow/inboxagent/internal/logging"
)

// Default limits of a Controller.
const (
	DefaultMaxSteps    = 10
	DefaultStepTimeout = 60 * time.Second
	DefaultToolTimeout = 30 * time.Second
	DefaultRunTimeout  = 5 * time.Minute
)

// ErrEmptyInput is returned when a run is started without user input.
var ErrEmptyInput = errors.New("input is empty")

// State is a state of the reasoning loop.
type State int

const (
	StateReasoning State = iota
	StateActing
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReasoning:
		return "reasoning"
	case StateActing:
		return "acting"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ControllerConfig configures a Controller. Reasoner and Registry are
// required; zero limits are replaced by the defaults.
type ControllerConfig struct {
	Reasoner Reasoner
	Registry *Registry

	// MaxSteps is the number of reasoning steps after which a run that
	// still requests tools fails with ErrBudgetExceeded.
	MaxSteps int

	StepTimeout time.Duration
	ToolTimeout time.Duration
	RunTimeout  time.Duration

	// Concurrency bounds parallel tool calls within one acting step.
	Concurrency int

	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
}

// Outcome describes a finished run.
type Outcome struct {
	RunID  string
	Answer string
	State  State

	// Steps is the number of reasoning steps that were started.
	Steps int

	// Messages is the final content of the run's log.
	Messages []Message
}

// Controller runs the reasoning loop. It holds no per-run state and may be
// used by any number of goroutines at once.
type Controller struct {
	reasoner    Reasoner
	registry    *Registry
	dispatcher  *Dispatcher
	maxSteps    int
	stepTimeout time.Duration
	runTimeout  time.Duration
	logger      *slog.Logger
	metrics     *instrumentation.Metrics
}

// NewController validates cfg and returns a Controller.
func NewController(cfg ControllerConfig) (*Controller, error) {
	if cfg.Reasoner == nil {
		return nil, errors.New("reasoner is required")
	}
	if cfg.Registry == nil {
		return nil, errors.New("tool registry is required")
	}
	if cfg.MaxSteps < 0 {
		return nil, fmt.Errorf("max steps must not be negative, got %d", cfg.MaxSteps)
	}
	if cfg.MaxSteps == 0 {
		cfg.MaxSteps = DefaultMaxSteps
	}
	if cfg.StepTimeout == 0 {
		cfg.StepTimeout = DefaultStepTimeout
	}
	if cfg.ToolTimeout == 0 {
		cfg.ToolTimeout = DefaultToolTimeout
	}
	if cfg.RunTimeout == 0 {
		cfg.RunTimeout = DefaultRunTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Controller{
		reasoner: cfg.Reasoner,
		registry: cfg.Registry,
		dispatcher: NewDispatcher(cfg.Registry, DispatcherConfig{
			Concurrency: cfg.Concurrency,
			ToolTimeout: cfg.ToolTimeout,
			Logger:      cfg.Logger,
			Metrics:     cfg.Metrics,
		}),
		maxSteps:    cfg.MaxSteps,
		stepTimeout: cfg.StepTimeout,
		runTimeout:  cfg.RunTimeout,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
	}, nil
}

// Run answers input and returns the content of the final assistant message.
func (c *Controller) Run(ctx context.Context, input string) (string, error) {
	out, err := c.Execute(ctx, input)
	if err != nil {
		return "", err
	}
	return out.Answer, nil
}

// Execute runs the loop for input until the model stops requesting tools.
// The returned Outcome is never nil, also when err is not.
//
// Reasoner failures, budget exhaustion and cancellation end the run in
// StateFailed. When ctx is cancelled the step in progress is abandoned and
// nothing more is appended to the log.
func (c *Controller) Execute(ctx context.Context, input string) (*Outcome, error) {
	out := &Outcome{RunID: uuid.NewString(), State: StateReasoning}
	if strings.TrimSpace(input) == "" {
		out.State = StateFailed
		return out, ErrEmptyInput
	}

	if c.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.runTimeout)
		defer cancel()
	}
	ctx = WithRunID(ctx, out.RunID)
	ctx, span := instrumentation.StartRunSpan(ctx, out.RunID)

	logger := logging.WithRun(c.logger, out.RunID)
	start := time.Now()
	c.metrics.IncrementRunsInFlight(ctx)

	log := NewLog(input)
	err := c.loop(ctx, log, out, logger)

	out.Messages = log.Messages()
	instrumentation.EndSpan(span, err)
	if err != nil {
		out.State = StateFailed
		logger.Warn("run failed", logging.Step(out.Steps), logging.Err(err))
	} else {
		logger.Info("run finished", logging.Step(out.Steps), slog.Duration(logging.KeyDuration, time.Since(start)))
	}

	// Recorded on a fresh context so cancelled runs are still counted.
	mctx := context.WithoutCancel(ctx)
	c.metrics.DecrementRunsInFlight(mctx)
	c.metrics.RecordAgentRun(mctx, out.State.String(), out.Steps, time.Since(start))

	return out, err
}

func (c *Controller) loop(ctx context.Context, log *Log, out *Outcome, logger *slog.Logger) error {
	tools := c.registry.Definitions()

	for {
		switch out.State {
		case StateReasoning:
			if out.Steps >= c.maxSteps {
				return fmt.Errorf("%w: no final answer after %d steps", ErrBudgetExceeded, out.Steps)
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			out.Steps++

			msg, err := c.reason(ctx, log, tools, out.Steps)
			if err != nil {
				return fmt.Errorf("reasoning step %d: %w", out.Steps, err)
			}
			log.Append(msg)

			if !msg.HasToolCalls() {
				out.Answer = msg.Content
				out.State = StateDone
				return nil
			}
			logger.Debug("model requested tools", logging.Step(out.Steps), slog.Int("calls", len(msg.ToolCalls)))
			instrumentation.AddStepEvent(ctx, out.Steps, msg.ToolNames())
			out.State = StateActing

		case StateActing:
			latest, err := log.Latest()
			if err != nil {
				return err
			}
			results, err := c.dispatcher.Execute(ctx, latest.ToolCalls)
			if err != nil {
				return fmt.Errorf("acting step %d: %w", out.Steps, err)
			}
			log.Append(results...)
			out.State = StateReasoning

		default:
			return fmt.Errorf("unexpected state %s", out.State)
		}
	}
}

// reason performs one reasoning step. The returned message is ready to be
// appended: role checked, missing call ids filled in and ids unique.
func (c *Controller) reason(ctx context.Context, log *Log, tools []ToolDefinition, step int) (Message, error) {
	sctx := ctx
	if c.stepTimeout > 0 {
		var cancel context.CancelFunc
		sctx, cancel = context.WithTimeout(ctx, c.stepTimeout)
		defer cancel()
	}

	msg, err := c.reasoner.Infer(sctx, log.Messages(), tools)
	if ctx.Err() != nil {
		// The caller gave up; whatever the model produced is discarded.
		return Message{}, ctx.Err()
	}
	if err != nil {
		return Message{}, err
	}

	if msg.Role != RoleAssistant {
		return Message{}, &MalformedResponseError{Reason: fmt.Sprintf("expected role %q, got %q", RoleAssistant, msg.Role)}
	}

	seen := make(map[string]bool, len(msg.ToolCalls))
	for i := range msg.ToolCalls {
		if msg.ToolCalls[i].ID == "" {
			msg.ToolCalls[i].ID = fmt.Sprintf("call_%d_%s", step, uuid.NewString()[:8])
		}
		id := msg.ToolCalls[i].ID
		if seen[id] {
			return Message{}, &MalformedResponseError{Reason: fmt.Sprintf("duplicate tool call id %q", id)}
		}
		seen[id] = true
	}
	return msg, nil
}
