package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/teemow/inboxagent/internal/agent"
)

// ProviderName identifies this backend in errors, logs and metrics.
const ProviderName = "openai"

// DefaultModel is used when Config.Model is empty.
const DefaultModel = openai.GPT4o

// Config configures a Reasoner.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string

	// Temperature is sent as is; zero leaves the server default.
	Temperature float32

	// SystemPrompt, if set, is sent as the first message of every request.
	SystemPrompt string

	// Strict rejects responses that name unknown tools or carry invalid
	// arguments with *agent.MalformedResponseError.
	Strict bool

	HTTPClient *http.Client
}

// Reasoner asks an OpenAI chat model for the next assistant message.
type Reasoner struct {
	client *openai.Client
	cfg    Config
}

// New returns a Reasoner for cfg.
func New(cfg Config) (*Reasoner, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}

	return &Reasoner{client: openai.NewClientWithConfig(clientCfg), cfg: cfg}, nil
}

// Model returns the model name sent with every request.
func (r *Reasoner) Model() string {
	return r.cfg.Model
}

// Infer implements agent.Reasoner.
func (r *Reasoner) Infer(ctx context.Context, messages []agent.Message, tools []agent.ToolDefinition) (agent.Message, error) {
	chat, err := toChatMessages(r.cfg.SystemPrompt, messages)
	if err != nil {
		return agent.Message{}, err
	}
	req := openai.ChatCompletionRequest{
		Model:       r.cfg.Model,
		Messages:    chat,
		Temperature: r.cfg.Temperature,
	}
	if len(tools) > 0 {
		req.Tools = toTools(tools)
	}

	resp, err := r.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return agent.Message{}, &agent.ModelUnavailableError{Provider: ProviderName, Err: err}
	}
	if len(resp.Choices) == 0 {
		return agent.Message{}, &agent.MalformedResponseError{Reason: "no completion choices returned"}
	}

	msg, err := fromChatMessage(resp.Choices[0].Message)
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

func toChatMessages(system string, messages []agent.Message) ([]openai.ChatCompletionMessage, error) {
	out := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if system != "" {
		out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}

	for _, m := range messages {
		switch m.Role {
		case agent.RoleUser:
			out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: m.Content})
		case agent.RoleAssistant:
			cm := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: m.Content}
			for _, call := range m.ToolCalls {
				args := []byte("{}")
				if call.Arguments != nil {
					var err error
					if args, err = json.Marshal(call.Arguments); err != nil {
						return nil, fmt.Errorf("failed to encode arguments of tool call %s: %w", call.ID, err)
					}
				}
				cm.ToolCalls = append(cm.ToolCalls, openai.ToolCall{
					ID:   call.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      call.Name,
						Arguments: string(args),
					},
				})
			}
			out = append(out, cm)
		case agent.RoleTool:
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    m.Content,
				ToolCallID: m.ToolCallID,
			})
		}
	}
	return out, nil
}

func toTools(defs []agent.ToolDefinition) []openai.Tool {
	out := make([]openai.Tool, len(defs))
	for i, d := range defs {
		out[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        d.Name(),
				Description: d.Description(),
				Parameters:  d.Tool.InputSchema,
			},
		}
	}
	return out
}

func fromChatMessage(cm openai.ChatCompletionMessage) (agent.Message, error) {
	msg := agent.AssistantMessage(cm.Content)
	for _, tc := range cm.ToolCalls {
		args := map[string]any{}
		if raw := strings.TrimSpace(tc.Function.Arguments); raw != "" {
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				return agent.Message{}, &agent.MalformedResponseError{
					Reason: fmt.Sprintf("arguments of tool call %q are not a JSON object", tc.Function.Name),
					Err:    err,
				}
			}
		}
		msg.ToolCalls = append(msg.ToolCalls, agent.ToolCallRequest{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}
	return msg, nil
}
