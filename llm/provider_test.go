package llm

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestBuildWithoutKeyIsNotConfigured(t *testing.T) {
	for _, p := range []ProviderType{ProviderGemini, ProviderOpenAI, ProviderAnthropic, ProviderDeepSeek} {
		_, err := NewProviderBuilder(p).APIKey("")
		if err == nil {
			t.Fatalf("%s: expected error for missing key", p)
		}
		if !errors.Is(err, ErrNotConfigured) {
			t.Errorf("%s: expected ErrNotConfigured, got %v", p, err)
		}
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) || cfgErr.Provider != p.String() {
			t.Errorf("%s: expected ConfigError for provider, got %v", p, err)
		}
	}
}

func TestFromEnvReadsFallbackGeminiKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	if _, err := ProviderGemini.FromEnv(); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured with no keys, got %v", err)
	}
}

func TestOllamaNeedsNoKey(t *testing.T) {
	p, err := NewProviderBuilder(ProviderOllama).Host("http://localhost:11434").APIKey("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "ollama" || p.Model() != ModelOllamaLlama32 {
		t.Errorf("unexpected provider %s/%s", p.Name(), p.Model())
	}
}

func TestOllamaRejectsBadHost(t *testing.T) {
	_, err := NewProviderBuilder(ProviderOllama).Host("::not a url").APIKey("")
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestParseProviderType(t *testing.T) {
	tests := []struct {
		in   string
		want ProviderType
	}{
		{"gemini", ProviderGemini},
		{"Google", ProviderGemini},
		{"openai", ProviderOpenAI},
		{"gpt", ProviderOpenAI},
		{"claude", ProviderAnthropic},
		{"deepseek", ProviderDeepSeek},
		{" ollama ", ProviderOllama},
	}
	for _, tt := range tests {
		got, err := ParseProviderType(tt.in)
		if err != nil {
			t.Fatalf("ParseProviderType(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseProviderType(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}

	if _, err := ParseProviderType("mistral"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured for unknown provider, got %v", err)
	}
}

func TestBuilderDefaults(t *testing.T) {
	p, err := NewProviderBuilder(ProviderOpenAI).APIKey("sk-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	oai := p.(*OpenAIProvider)
	if oai.maxTokens != int(DefaultMaxTokens) {
		t.Errorf("maxTokens = %d, want %d", oai.maxTokens, DefaultMaxTokens)
	}
	if oai.temperature != DefaultTemperature {
		t.Errorf("temperature = %v, want %v", oai.temperature, DefaultTemperature)
	}
	if oai.Model() != ModelOpenAIGPT4oMini {
		t.Errorf("model = %s", oai.Model())
	}
}

func conversation() []ChatMessage {
	first := ToolCall{ID: "call-1", Name: "calculate_bmi", Arguments: json.RawMessage(`{"weight_kg":70,"height_cm":175}`)}
	second := ToolCall{ID: "call-2", Name: "general_health_tips", Arguments: json.RawMessage(`{"topic":"exercise"}`)}
	return []ChatMessage{
		SystemMessage("be helpful"),
		UserMessage("bmi and tips please"),
		{Role: RoleAssistant, ToolCalls: []ToolCall{first, second}},
		ToolResultMessage(first, "BMI: 22.9"),
		ToolResultMessage(second, "Exercise tips"),
		AssistantMessage("done"),
	}
}

func TestConvertToAnthropicMessagesGroupsToolResults(t *testing.T) {
	msgs, system := convertToAnthropicMessages(conversation())
	if system != "be helpful" {
		t.Errorf("system = %q", system)
	}
	// user, assistant(tool_use x2), user(tool_result x2), assistant
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}
	if got := len(msgs[1].Content); got != 2 {
		t.Errorf("expected 2 tool_use blocks, got %d", got)
	}
	if got := len(msgs[2].Content); got != 2 {
		t.Errorf("expected 2 tool_result blocks in one message, got %d", got)
	}
}

func TestConvertToGeminiMessagesKeepsCallIDs(t *testing.T) {
	contents, system := convertToGeminiMessages(conversation())
	if system != "be helpful" {
		t.Errorf("system = %q", system)
	}
	if len(contents) != 4 {
		t.Fatalf("expected 4 contents, got %d", len(contents))
	}
	responses := contents[2].Parts
	if len(responses) != 2 {
		t.Fatalf("expected 2 function responses, got %d", len(responses))
	}
	if responses[0].FunctionResponse.ID != "call-1" || responses[0].FunctionResponse.Name != "calculate_bmi" {
		t.Errorf("unexpected first response: %+v", responses[0].FunctionResponse)
	}
	if responses[1].FunctionResponse.Response["result"] != "Exercise tips" {
		t.Errorf("unexpected second response payload: %+v", responses[1].FunctionResponse.Response)
	}
}

func TestConvertToolCallsNormalizeLooseArguments(t *testing.T) {
	loose := []ChatMessage{
		UserMessage("bmi please"),
		{Role: RoleAssistant, ToolCalls: []ToolCall{
			{ID: "fenced", Name: "calculate_bmi", Arguments: json.RawMessage("```json\n{\"weight_kg\":70}\n```")},
			{ID: "double", Name: "calculate_bmi", Arguments: json.RawMessage(`"{\"weight_kg\":70}"`)},
		}},
	}

	contents, _ := convertToGeminiMessages(loose)
	for _, part := range contents[1].Parts {
		if got := part.FunctionCall.Args["weight_kg"]; got != float64(70) {
			t.Errorf("gemini %s args = %v", part.FunctionCall.ID, part.FunctionCall.Args)
		}
	}

	msgs, _ := convertToAnthropicMessages(loose)
	for _, block := range msgs[1].Content {
		input, ok := block.OfToolUse.Input.(map[string]any)
		if !ok || input["weight_kg"] != float64(70) {
			t.Errorf("anthropic %s input = %v", block.OfToolUse.ID, block.OfToolUse.Input)
		}
	}
}

func TestConvertToOpenAIMessages(t *testing.T) {
	msgs := convertToOpenAIMessages(conversation())
	if len(msgs) != 6 {
		t.Fatalf("expected 6 messages, got %d", len(msgs))
	}
	if len(msgs[2].ToolCalls) != 2 || msgs[2].ToolCalls[0].Function.Name != "calculate_bmi" {
		t.Errorf("unexpected tool calls: %+v", msgs[2].ToolCalls)
	}
	if msgs[3].ToolCallID != "call-1" || msgs[4].ToolCallID != "call-2" {
		t.Errorf("tool results lost their ids: %q %q", msgs[3].ToolCallID, msgs[4].ToolCallID)
	}
}

func TestConvertToOllamaTools(t *testing.T) {
	tools, err := convertToOllamaTools([]ToolDefinition{{
		Name:        "calculate_bmi",
		Description: "BMI",
		Parameters: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{"weight_kg": map[string]interface{}{"type": "number"}},
			"required":   []string{"weight_kg"},
		},
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tools) != 1 || tools[0].Function.Name != "calculate_bmi" {
		t.Fatalf("unexpected tools: %+v", tools)
	}
}

func TestConvertToGeminiSchema(t *testing.T) {
	schema := convertToGeminiSchema(map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"location": map[string]interface{}{"type": "string", "description": "city"},
			"tags":     map[string]interface{}{"type": "array"},
		},
		"required": []string{"location"},
	})
	if len(schema.Required) != 1 || schema.Required[0] != "location" {
		t.Errorf("required = %v", schema.Required)
	}
	if schema.Properties["location"].Description != "city" {
		t.Errorf("description lost")
	}
	if schema.Properties["tags"].Items == nil {
		t.Errorf("array without items should default to string items")
	}
}

func TestTokenUsageAdd(t *testing.T) {
	total := &TokenUsage{}
	total.Add(&TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15})
	total.Add(nil)
	total.Add(&TokenUsage{PromptTokens: 1, CompletionTokens: 1, TotalTokens: 2})
	if total.TotalTokens != 17 || total.PromptTokens != 11 {
		t.Errorf("unexpected totals: %+v", total)
	}
}
