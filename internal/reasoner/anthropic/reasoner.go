package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/teemow/inboxagent/internal/agent"
)

// ProviderName identifies this backend in errors, logs and metrics.
const ProviderName = "anthropic"

const (
	// DefaultModel is used when Config.Model is empty.
	DefaultModel = string(anthropic.ModelClaudeSonnet4_5)

	// DefaultMaxTokens bounds the length of one response.
	DefaultMaxTokens = 1024
)

// Config configures a Reasoner.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int64

	// Temperature is only sent when SetTemperature is true.
	Temperature    float64
	SetTemperature bool

	SystemPrompt string

	// Strict rejects responses that name unknown tools or carry invalid
	// arguments with *agent.MalformedResponseError.
	Strict bool

	HTTPClient *http.Client
}

// Reasoner asks a Claude model for the next assistant message.
type Reasoner struct {
	client anthropic.Client
	cfg    Config
}

// New returns a Reasoner for cfg.
func New(cfg Config) (*Reasoner, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("Anthropic API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &Reasoner{client: anthropic.NewClient(opts...), cfg: cfg}, nil
}

// Model returns the model name sent with every request.
func (r *Reasoner) Model() string {
	return r.cfg.Model
}

// Infer implements agent.Reasoner.
func (r *Reasoner) Infer(ctx context.Context, messages []agent.Message, tools []agent.ToolDefinition) (agent.Message, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(r.cfg.Model),
		MaxTokens: r.cfg.MaxTokens,
		Messages:  toMessageParams(messages),
	}
	if r.cfg.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: r.cfg.SystemPrompt}}
	}
	if r.cfg.SetTemperature {
		params.Temperature = anthropic.Float(r.cfg.Temperature)
	}
	if len(tools) > 0 {
		params.Tools = toToolParams(tools)
	}

	resp, err := r.client.Messages.New(ctx, params)
	if err != nil {
		return agent.Message{}, &agent.ModelUnavailableError{Provider: ProviderName, Err: err}
	}

	msg, err := fromResponse(resp)
	if err != nil {
		return agent.Message{}, err
	}
	if r.cfg.Strict {
		if err := agent.CheckResponse(msg, tools); err != nil {
			return agent.Message{}, err
		}
	}
	return msg, nil
}

// toMessageParams converts the log into alternating user and assistant
// turns. Consecutive tool messages become tool_result blocks of a single
// user turn.
func toMessageParams(messages []agent.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	var results []anthropic.ContentBlockParamUnion

	flush := func() {
		if len(results) > 0 {
			out = append(out, anthropic.NewUserMessage(results...))
			results = nil
		}
	}

	for _, m := range messages {
		switch m.Role {
		case agent.RoleUser:
			flush()
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case agent.RoleAssistant:
			flush()
			var blocks []anthropic.ContentBlockParamUnion
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, call := range m.ToolCalls {
				input := call.Arguments
				if input == nil {
					input = map[string]any{}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(call.ID, input, call.Name))
			}
			if len(blocks) > 0 {
				out = append(out, anthropic.NewAssistantMessage(blocks...))
			}
		case agent.RoleTool:
			results = append(results, anthropic.NewToolResultBlock(m.ToolCallID, m.Content, m.IsError))
		}
	}
	flush()
	return out
}

func toToolParams(defs []agent.ToolDefinition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, d := range defs {
		out = append(out, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        d.Name(),
			Description: anthropic.String(d.Description()),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: d.Tool.InputSchema.Properties,
				Required:   d.Tool.InputSchema.Required,
			},
		}})
	}
	return out
}

func fromResponse(resp *anthropic.Message) (agent.Message, error) {
	var text []string
	msg := agent.AssistantMessage("")

	for _, block := range resp.Content {
		switch v := block.AsAny().(type) {
		case anthropic.TextBlock:
			text = append(text, v.Text)
		case anthropic.ToolUseBlock:
			args := map[string]any{}
			if len(v.Input) > 0 {
				if err := json.Unmarshal(v.Input, &args); err != nil {
					return agent.Message{}, &agent.MalformedResponseError{
						Reason: fmt.Sprintf("input of tool call %q is not a JSON object", v.Name),
						Err:    err,
					}
				}
			}
			msg.ToolCalls = append(msg.ToolCalls, agent.ToolCallRequest{ID: v.ID, Name: v.Name, Arguments: args})
		}
	}

	msg.Content = strings.Join(text, "\n")
	return msg, nil
}
