package llm

import (
	"context"
)

// Provider is a chat-completion backend with tool calling.
// Each implementation hides client setup, authentication and the
// conversion between ChatMessage and the vendor wire format.
type Provider interface {
	// Name returns the provider name (for logging/debugging).
	Name() string

	// Model returns the current model being used.
	Model() string

	// ChatWithTools sends the conversation together with the tool
	// declarations. The model may answer with text, tool calls, or both.
	ChatWithTools(ctx context.Context, messages []ChatMessage, tools []ToolDefinition) (LLMResponse, error)
}
