// Provider factory - builder-first API for creating LLM providers.
//
//	gemini, err := llm.ProviderGemini.FromEnv()
//
//	claude, err := llm.ProviderAnthropic.
//	    Model(llm.ModelAnthropicClaudeSonnet4).
//	    MaxTokens(2000).
//	    Temperature(0.3).
//	    APIKey(key)

package llm

import (
	"fmt"
	"os"
	"strings"
)

// ProviderType represents supported LLM providers.
type ProviderType int

const (
	// ProviderGemini is the Google Gemini provider.
	ProviderGemini ProviderType = iota
	// ProviderOpenAI is the OpenAI provider (GPT models).
	ProviderOpenAI
	// ProviderAnthropic is the Anthropic provider (Claude models).
	ProviderAnthropic
	// ProviderDeepSeek is the DeepSeek provider.
	ProviderDeepSeek
	// ProviderOllama is a local Ollama server. It needs no API key.
	ProviderOllama
)

// Defaults applied when the builder is not told otherwise.
const (
	DefaultMaxTokens   uint32  = 2000
	DefaultTemperature float32 = 0.7
)

// String returns the string representation of the provider type.
func (p ProviderType) String() string {
	switch p {
	case ProviderGemini:
		return "gemini"
	case ProviderOpenAI:
		return "openai"
	case ProviderAnthropic:
		return "anthropic"
	case ProviderDeepSeek:
		return "deepseek"
	case ProviderOllama:
		return "ollama"
	default:
		return "unknown"
	}
}

// EnvVars returns the environment variables checked, in order, for this
// provider's API key. Ollama returns nil.
func (p ProviderType) EnvVars() []string {
	switch p {
	case ProviderGemini:
		return []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
	case ProviderOpenAI:
		return []string{"OPENAI_API_KEY"}
	case ProviderAnthropic:
		return []string{"ANTHROPIC_API_KEY"}
	case ProviderDeepSeek:
		return []string{"DEEPSEEK_API_KEY"}
	default:
		return nil
	}
}

// RequiresAPIKey reports whether the provider needs a credential.
func (p ProviderType) RequiresAPIKey() bool {
	return len(p.EnvVars()) > 0
}

// DefaultModel returns the default model for this provider.
func (p ProviderType) DefaultModel() string {
	switch p {
	case ProviderGemini:
		return ModelGeminiFlash25
	case ProviderOpenAI:
		return ModelOpenAIGPT4oMini
	case ProviderAnthropic:
		return ModelAnthropicClaudeSonnet4
	case ProviderDeepSeek:
		return ModelDeepSeekChat
	case ProviderOllama:
		return ModelOllamaLlama32
	default:
		return ""
	}
}

// ParseProviderType parses a provider from string (case-insensitive).
func ParseProviderType(s string) (ProviderType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gemini", "google":
		return ProviderGemini, nil
	case "openai", "gpt":
		return ProviderOpenAI, nil
	case "anthropic", "claude":
		return ProviderAnthropic, nil
	case "deepseek":
		return ProviderDeepSeek, nil
	case "ollama", "local":
		return ProviderOllama, nil
	default:
		return 0, &ConfigError{Provider: s, Reason: "unknown provider"}
	}
}

// FromEnv creates a provider with defaults, reading the API key from environment.
func (p ProviderType) FromEnv() (Provider, error) {
	return NewProviderBuilder(p).FromEnv()
}

// Model starts configuring this provider with a specific model.
func (p ProviderType) Model(model string) *ProviderBuilder {
	return NewProviderBuilder(p).Model(model)
}

// ProviderBuilder is a builder for configuring LLM providers.
type ProviderBuilder struct {
	providerType ProviderType
	model        string
	maxTokens    uint32
	temperature  *float32
	host         string
}

// NewProviderBuilder creates a new builder for the given provider.
func NewProviderBuilder(providerType ProviderType) *ProviderBuilder {
	return &ProviderBuilder{providerType: providerType}
}

// Model sets the model to use.
func (b *ProviderBuilder) Model(model string) *ProviderBuilder {
	b.model = model
	return b
}

// MaxTokens sets maximum tokens for responses.
func (b *ProviderBuilder) MaxTokens(tokens uint32) *ProviderBuilder {
	b.maxTokens = tokens
	return b
}

// Temperature sets temperature (0.0 = deterministic, 1.0 = creative).
func (b *ProviderBuilder) Temperature(temp float32) *ProviderBuilder {
	b.temperature = &temp
	return b
}

// Host sets the server address for self-hosted providers.
func (b *ProviderBuilder) Host(host string) *ProviderBuilder {
	b.host = host
	return b
}

// FromEnv builds the provider, reading the API key from environment.
func (b *ProviderBuilder) FromEnv() (Provider, error) {
	var apiKey string
	for _, name := range b.providerType.EnvVars() {
		if apiKey = os.Getenv(name); apiKey != "" {
			break
		}
	}
	if b.host == "" && b.providerType == ProviderOllama {
		b.host = os.Getenv("OLLAMA_HOST")
	}
	return b.build(apiKey)
}

// APIKey builds the provider with an explicit API key.
func (b *ProviderBuilder) APIKey(key string) (Provider, error) {
	return b.build(key)
}

func (b *ProviderBuilder) build(apiKey string) (Provider, error) {
	if b.providerType.RequiresAPIKey() && strings.TrimSpace(apiKey) == "" {
		return nil, &ConfigError{
			Provider: b.providerType.String(),
			Reason:   fmt.Sprintf("%s environment variable not set", b.providerType.EnvVars()[0]),
		}
	}

	model := b.model
	if model == "" {
		model = b.providerType.DefaultModel()
	}

	maxTokens := b.maxTokens
	if maxTokens == 0 {
		maxTokens = DefaultMaxTokens
	}

	temperature := DefaultTemperature
	if b.temperature != nil {
		temperature = *b.temperature
	}

	switch b.providerType {
	case ProviderGemini:
		return NewGeminiProvider(apiKey, model, maxTokens, temperature)
	case ProviderOpenAI:
		return NewOpenAIProvider(apiKey, model, maxTokens, temperature), nil
	case ProviderAnthropic:
		return NewAnthropicProvider(apiKey, model, maxTokens, temperature), nil
	case ProviderDeepSeek:
		return NewDeepSeekProvider(apiKey, model, maxTokens, temperature), nil
	case ProviderOllama:
		return NewOllamaProvider(b.host, model, maxTokens, temperature)
	default:
		return nil, &ConfigError{Provider: b.providerType.String(), Reason: "unknown provider type"}
	}
}

// Model identifier constants.
const (
	ModelGeminiFlash25          = "gemini-2.5-flash"
	ModelGeminiPro25            = "gemini-2.5-pro"
	ModelGeminiFlash20          = "gemini-2.0-flash"
	ModelOpenAIGPT4o            = "gpt-4o"
	ModelOpenAIGPT4oMini        = "gpt-4o-mini"
	ModelAnthropicClaudeSonnet4 = "claude-sonnet-4-20250514"
	ModelAnthropicClaudeHaiku35 = "claude-3-5-haiku-latest"
	ModelDeepSeekChat           = "deepseek-chat"
	ModelOllamaLlama32          = "llama3.2"
)
