package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/richinex/swasth/internal/argjson"
)

// DefaultOllamaHost is used when no host is configured.
const DefaultOllamaHost = "http://127.0.0.1:11434"

// OllamaProvider implements Provider for a local Ollama server.
type OllamaProvider struct {
	client      *api.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewOllamaProvider creates a provider talking to the Ollama server at host.
func NewOllamaProvider(host, model string, maxTokens uint32, temperature float32) (*OllamaProvider, error) {
	if host == "" {
		host = DefaultOllamaHost
	}
	u, err := url.Parse(host)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, &ConfigError{Provider: "ollama", Reason: fmt.Sprintf("invalid host %q", host)}
	}

	return &OllamaProvider{
		client:      api.NewClient(u, http.DefaultClient),
		model:       model,
		maxTokens:   int(maxTokens),
		temperature: temperature,
	}, nil
}

// Name returns the provider name.
func (p *OllamaProvider) Name() string {
	return "ollama"
}

// Model returns the current model.
func (p *OllamaProvider) Model() string {
	return p.model
}

// ChatWithTools sends a non-streaming chat request with tool definitions.
func (p *OllamaProvider) ChatWithTools(ctx context.Context, messages []ChatMessage, tools []ToolDefinition) (LLMResponse, error) {
	ollamaTools, err := convertToOllamaTools(tools)
	if err != nil {
		return LLMResponse{}, err
	}

	stream := false
	req := &api.ChatRequest{
		Model:    p.model,
		Messages: convertToOllamaMessages(messages),
		Tools:    ollamaTools,
		Stream:   &stream,
		Options: map[string]any{
			"temperature": p.temperature,
			"num_predict": p.maxTokens,
		},
	}

	var content strings.Builder
	var toolCalls []ToolCall
	var usage *TokenUsage
	err = p.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		for _, tc := range resp.Message.ToolCalls {
			args, err := json.Marshal(tc.Function.Arguments)
			if err != nil {
				args = []byte("{}")
			}
			toolCalls = append(toolCalls, ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: args,
			})
		}
		if resp.Done {
			usage = &TokenUsage{
				PromptTokens:     uint32(resp.PromptEvalCount),
				CompletionTokens: uint32(resp.EvalCount),
				TotalTokens:      uint32(resp.PromptEvalCount + resp.EvalCount),
			}
		}
		return nil
	})
	if err != nil {
		return LLMResponse{}, fmt.Errorf("chat completion failed: %w", err)
	}

	return LLMResponse{Content: content.String(), ToolCalls: toolCalls, Usage: usage}, nil
}

func convertToOllamaMessages(messages []ChatMessage) []api.Message {
	out := make([]api.Message, 0, len(messages))
	for _, m := range messages {
		msg := api.Message{Role: m.Role, Content: m.Content}

		for _, tc := range m.ToolCalls {
			var args api.ToolCallFunctionArguments
			if obj, err := argjson.Object(tc.Arguments); err == nil && len(obj) > 0 {
				if normalized, err := json.Marshal(obj); err == nil {
					_ = json.Unmarshal(normalized, &args)
				}
			}
			msg.ToolCalls = append(msg.ToolCalls, api.ToolCall{
				ID: tc.ID,
				Function: api.ToolCallFunction{
					Name:      tc.Name,
					Arguments: args,
				},
			})
		}

		if m.Role == RoleTool {
			msg.ToolCallID = m.ToolCallID
		}
		out = append(out, msg)
	}
	return out
}

// convertToOllamaTools goes through JSON because api.Tool mirrors the
// OpenAI function-tool wire shape.
func convertToOllamaTools(tools []ToolDefinition) ([]api.Tool, error) {
	if len(tools) == 0 {
		return nil, nil
	}

	wire := make([]map[string]any, len(tools))
	for i, t := range tools {
		wire[i] = map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.Parameters,
			},
		}
	}

	raw, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tools: %w", err)
	}
	var out []api.Tool
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to convert tools: %w", err)
	}
	return out, nil
}

var _ Provider = (*OllamaProvider)(nil)
