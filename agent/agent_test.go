package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/richinex/swasth/llm"
	"github.com/richinex/swasth/tools"
)

// scriptedProvider replays responses in order and records what it was sent.
type scriptedProvider struct {
	mu        sync.Mutex
	responses []llm.LLMResponse
	err       error
	calls     [][]llm.ChatMessage
	onCall    func(n int)
}

func (p *scriptedProvider) Name() string  { return "scripted" }
func (p *scriptedProvider) Model() string { return "scripted-1" }

func (p *scriptedProvider) ChatWithTools(ctx context.Context, messages []llm.ChatMessage, _ []llm.ToolDefinition) (llm.LLMResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sent := make([]llm.ChatMessage, len(messages))
	copy(sent, messages)
	p.calls = append(p.calls, sent)
	if p.onCall != nil {
		p.onCall(len(p.calls))
	}
	if p.err != nil {
		return llm.LLMResponse{}, p.err
	}
	if len(p.responses) == 0 {
		return llm.LLMResponse{}, errors.New("script exhausted")
	}
	resp := p.responses[0]
	if len(p.responses) > 1 {
		p.responses = p.responses[1:]
	}
	return resp, nil
}

func toolCall(id, name, args string) llm.ToolCall {
	return llm.ToolCall{ID: id, Name: name, Arguments: json.RawMessage(args)}
}

func wantTools(calls ...llm.ToolCall) llm.LLMResponse {
	return llm.LLMResponse{ToolCalls: calls, Usage: &llm.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}}
}

func answer(text string) llm.LLMResponse {
	return llm.LLMResponse{Content: text, Usage: &llm.TokenUsage{PromptTokens: 20, CompletionTokens: 10, TotalTokens: 30}}
}

func newTestAgent(t *testing.T, p llm.Provider, mutate func(*Config)) *Agent {
	t.Helper()
	registry, err := tools.NewRegistry(tools.DefaultToolConfig(), nil,
		tools.NewBMITool(), tools.NewEmergencyTool(), tools.NewHealthTipsTool())
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	a, err := New(cfg, p, registry, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func TestExecuteBMIRoundTrip(t *testing.T) {
	p := &scriptedProvider{responses: []llm.LLMResponse{
		wantTools(toolCall("c1", tools.NameBMI, `{"weight_kg": 70, "height_cm": 175}`)),
		answer("Your BMI is 22.9, which is in the normal range."),
	}}
	a := newTestAgent(t, p, nil)

	resp := a.Execute(context.Background(), "I weigh 70 kg and am 175 cm tall. What's my BMI?", nil)
	if resp.Err != nil {
		t.Fatalf("unexpected error: %v", resp.Err)
	}
	if resp.Type != ResponseSuccess {
		t.Errorf("Type = %v, want success", resp.Type)
	}
	if !strings.Contains(resp.Text, "22.9") {
		t.Errorf("Text = %q", resp.Text)
	}
	if resp.Metadata.Iterations != 2 || len(p.calls) != 2 {
		t.Errorf("iterations = %d, model calls = %d, want 2", resp.Metadata.Iterations, len(p.calls))
	}
	if resp.Metadata.TokenUsage.TotalTokens != 45 {
		t.Errorf("TotalTokens = %d, want 45", resp.Metadata.TokenUsage.TotalTokens)
	}
	if len(resp.Metadata.ToolCalls) != 1 || !resp.Metadata.ToolCalls[0].Success {
		t.Errorf("ToolCalls = %+v", resp.Metadata.ToolCalls)
	}

	second := p.calls[1]
	result := second[len(second)-1]
	if result.Role != llm.RoleTool || result.ToolCallID != "c1" {
		t.Fatalf("last message = %+v, want tool result for c1", result)
	}
	if !strings.Contains(result.Content, "BMI: 22.9") || !strings.Contains(result.Content, tools.BMINormal) {
		t.Errorf("tool result = %q", result.Content)
	}
	if err := resp.Turn.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestExecuteCompletesWhenSearchIsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	searchURL := srv.URL
	srv.Close()

	registry, err := tools.NewRegistry(tools.ToolConfig{}, nil,
		tools.NewMedicalSearchTool(tools.NewDuckDuckGo(searchURL, time.Second)))
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	p := &scriptedProvider{responses: []llm.LLMResponse{
		wantTools(toolCall("s1", tools.NameMedicalSearch, `{"query":"malaria symptoms"}`)),
		answer("Malaria usually starts with fever and chills."),
	}}
	a, err := New(DefaultConfig(), p, registry, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	resp := a.Execute(context.Background(), "what are the symptoms of malaria?", nil)
	if resp.Type != ResponseSuccess || strings.TrimSpace(resp.Text) == "" {
		t.Fatalf("got %v %q, want success with text", resp.Type, resp.Text)
	}
	if err := resp.Turn.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}

	var result string
	for _, m := range resp.Turn.Messages() {
		if m.Role == llm.RoleTool && m.ToolCallID == "s1" {
			result = m.Content
		}
	}
	if !strings.HasPrefix(result, "Search temporarily unavailable") || !strings.Contains(result, "malaria symptoms") {
		t.Errorf("tool result = %q", result)
	}
	if len(resp.Metadata.ToolCalls) != 1 || resp.Metadata.ToolCalls[0].Success {
		t.Errorf("tool metrics = %+v", resp.Metadata.ToolCalls)
	}
}

func TestExecuteEmergencyGuardPrefixesGuidance(t *testing.T) {
	p := &scriptedProvider{responses: []llm.LLMResponse{
		wantTools(toolCall("e1", tools.NameEmergency, `{"symptom":"chest pain"}`)),
		answer("Please rest and get help now."),
	}}
	a := newTestAgent(t, p, nil)

	text, err := a.Chat(context.Background(), "I have chest pain and sweating", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	guidance, _ := tools.ClassifyEmergency("chest pain")
	if !strings.HasPrefix(text, guidance) {
		t.Errorf("reply does not start with guidance:\n%s", text)
	}
	if !strings.Contains(text, "102") || !strings.Contains(text, "108") || !strings.Contains(text, "112") {
		t.Errorf("reply missing emergency numbers:\n%s", text)
	}
	if !strings.Contains(text, "Please rest") {
		t.Errorf("model text dropped:\n%s", text)
	}
}

func TestEmergencyGuardDoesNotDuplicate(t *testing.T) {
	guidance, _ := tools.ClassifyEmergency("snake bite")
	p := &scriptedProvider{responses: []llm.LLMResponse{answer("Advice first.\n\n" + guidance)}}
	a := newTestAgent(t, p, nil)

	text, err := a.Chat(context.Background(), "my brother got a snake bite", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Count(text, guidance) != 1 {
		t.Errorf("guidance appears %d times:\n%s", strings.Count(text, guidance), text)
	}
	if !strings.HasPrefix(text, guidance) {
		t.Errorf("reply does not start with guidance:\n%s", text)
	}
}

func TestEmergencyGuardUsesToolSymptom(t *testing.T) {
	p := &scriptedProvider{responses: []llm.LLMResponse{
		wantTools(toolCall("e1", tools.NameEmergency, `{"symptom":"possible stroke"}`)),
		answer("Act fast."),
	}}
	a := newTestAgent(t, p, nil)

	resp := a.Execute(context.Background(), "my father's face is drooping", nil)
	if !resp.Metadata.Emergency {
		t.Fatal("expected emergency to be flagged")
	}
	if !strings.HasPrefix(resp.Text, "🚨 EMERGENCY: Call 102/108 immediately. Remember FAST") {
		t.Errorf("Text = %q", resp.Text)
	}
}

func TestEmergencyGuardDisabled(t *testing.T) {
	p := &scriptedProvider{responses: []llm.LLMResponse{answer("Go to a hospital.")}}
	a := newTestAgent(t, p, func(c *Config) { c.EmergencyGuard = false })

	text, err := a.Chat(context.Background(), "chest pain", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Go to a hospital." {
		t.Errorf("text = %q", text)
	}
}

func TestIterationBudgetReturnsFallback(t *testing.T) {
	p := &scriptedProvider{responses: []llm.LLMResponse{
		wantTools(toolCall("loop", tools.NameHealthTips, `{"topic":"sleep"}`)),
	}}
	a := newTestAgent(t, p, nil)

	resp := a.Execute(context.Background(), "tell me about sleep", nil)
	if resp.Err != nil {
		t.Fatalf("unexpected error: %v", resp.Err)
	}
	if resp.Type != ResponseFallback || resp.Text != FallbackResponse {
		t.Errorf("got %v %q, want fallback", resp.Type, resp.Text)
	}
	if len(p.calls) != DefaultMaxIterations {
		t.Errorf("model calls = %d, want %d", len(p.calls), DefaultMaxIterations)
	}
	if err := resp.Turn.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestEmptyAnswerUsesEarlierText(t *testing.T) {
	p := &scriptedProvider{responses: []llm.LLMResponse{
		{Content: "Let me check a few tips.", ToolCalls: []llm.ToolCall{toolCall("t1", tools.NameHealthTips, `{"topic":"diet"}`)}},
		answer(""),
	}}
	a := newTestAgent(t, p, nil)

	resp := a.Execute(context.Background(), "diet tips?", nil)
	if resp.Type != ResponseSuccess || resp.Text != "Let me check a few tips." {
		t.Errorf("got %v %q", resp.Type, resp.Text)
	}
}

func TestEmptyAnswerWithoutTextFallsBack(t *testing.T) {
	p := &scriptedProvider{responses: []llm.LLMResponse{answer("  ")}}
	a := newTestAgent(t, p, nil)

	resp := a.Execute(context.Background(), "hello", nil)
	if resp.Type != ResponseFallback || resp.Text != FallbackResponse {
		t.Errorf("got %v %q", resp.Type, resp.Text)
	}
}

func TestEmptyAnswerIgnoresHistoryText(t *testing.T) {
	history := []llm.ChatMessage{
		llm.UserMessage("what is dengue?"),
		llm.AssistantMessage("Dengue is a mosquito-borne viral infection."),
	}
	p := &scriptedProvider{responses: []llm.LLMResponse{answer("")}}
	a := newTestAgent(t, p, nil)

	resp := a.Execute(context.Background(), "how much water should I drink?", history)
	if resp.Type != ResponseFallback || resp.Text != FallbackResponse {
		t.Errorf("got %v %q, want fallback", resp.Type, resp.Text)
	}
}

func TestHistoryWindowKeepsMostRecent(t *testing.T) {
	var history []llm.ChatMessage
	for i := 0; i < 15; i++ {
		role := llm.RoleUser
		if i%2 == 1 {
			role = llm.RoleAssistant
		}
		history = append(history, llm.ChatMessage{Role: role, Content: fmt.Sprintf("m%d", i)})
	}
	p := &scriptedProvider{responses: []llm.LLMResponse{answer("ok")}}
	a := newTestAgent(t, p, nil)

	resp := a.Execute(context.Background(), "now", history)
	if resp.Turn.HistoryLen() != 10 {
		t.Fatalf("HistoryLen = %d, want 10", resp.Turn.HistoryLen())
	}
	sent := p.calls[0]
	if len(sent) != 12 {
		t.Fatalf("sent %d messages, want 12", len(sent))
	}
	if sent[0].Role != llm.RoleSystem || sent[0].Content != SystemPrompt {
		t.Errorf("first message = %+v", sent[0])
	}
	if sent[1].Content != "m5" || sent[10].Content != "m14" {
		t.Errorf("window = %q..%q, want m5..m14", sent[1].Content, sent[10].Content)
	}
	if last := sent[11]; last.Role != llm.RoleUser || last.Content != "now" {
		t.Errorf("last message = %+v", last)
	}
}

func TestHistoryWindowSkipsEmptyAndForeignRoles(t *testing.T) {
	history := []llm.ChatMessage{
		llm.UserMessage("a"),
		llm.AssistantMessage(""),
		llm.SystemMessage("ignored"),
		{Role: llm.RoleTool, Content: "ignored", ToolCallID: "x"},
		llm.AssistantMessage("b"),
	}
	got := HistoryWindow(history, 10)
	if len(got) != 2 || got[0].Content != "a" || got[1].Content != "b" {
		t.Errorf("HistoryWindow = %+v", got)
	}
	if got := HistoryWindow(history, 0); len(got) != 0 {
		t.Errorf("zero window kept %d messages", len(got))
	}
}

func TestCancelledContextStopsBeforeModelCall(t *testing.T) {
	p := &scriptedProvider{responses: []llm.LLMResponse{answer("never")}}
	a := newTestAgent(t, p, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	resp := a.Execute(ctx, "hi", nil)
	if resp.Type != ResponseCancelled || !errors.Is(resp.Err, context.Canceled) {
		t.Fatalf("got %v %v, want cancellation", resp.Type, resp.Err)
	}
	if len(p.calls) != 0 {
		t.Errorf("model called %d times", len(p.calls))
	}
}

func TestCancellationBetweenIterationsAnswersPendingCalls(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := &scriptedProvider{
		responses: []llm.LLMResponse{
			wantTools(toolCall("c1", tools.NameBMI, `{"weight_kg":60,"height_cm":160}`)),
			answer("unreachable"),
		},
		onCall: func(n int) {
			if n == 1 {
				cancel()
			}
		},
	}
	a := newTestAgent(t, p, nil)

	resp := a.Execute(ctx, "bmi", nil)
	if !errors.Is(resp.Err, context.Canceled) {
		t.Fatalf("Err = %v, want context.Canceled", resp.Err)
	}
	if len(p.calls) != 1 {
		t.Errorf("model calls = %d, want 1", len(p.calls))
	}
	if err := resp.Turn.Validate(); err != nil {
		t.Errorf("tool calls left unanswered: %v", err)
	}
}

func TestModelErrorIsReported(t *testing.T) {
	p := &scriptedProvider{err: errors.New("503 overloaded")}
	a := newTestAgent(t, p, nil)

	_, err := a.Chat(context.Background(), "hi", nil)
	if !errors.Is(err, ErrModel) {
		t.Fatalf("err = %v, want ErrModel", err)
	}
	var me *ModelError
	if !errors.As(err, &me) || me.Provider != "scripted" {
		t.Errorf("err = %#v", err)
	}
	if len(p.calls) != 1 {
		t.Errorf("model calls = %d, want 1 (no retry)", len(p.calls))
	}
}

func TestNotConfiguredPassesThrough(t *testing.T) {
	p := &scriptedProvider{err: &llm.ConfigError{Provider: "gemini", Reason: "missing key"}}
	a := newTestAgent(t, p, nil)

	_, err := a.Chat(context.Background(), "hi", nil)
	if !errors.Is(err, ErrNotConfigured) || errors.Is(err, ErrModel) {
		t.Errorf("err = %v", err)
	}
}

func TestNewWithoutProvider(t *testing.T) {
	_, err := New(DefaultConfig(), nil, nil, nil)
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
}

func TestToolCallIDsAreNormalized(t *testing.T) {
	p := &scriptedProvider{responses: []llm.LLMResponse{
		wantTools(
			toolCall("", tools.NameBMI, `{"weight_kg":50,"height_cm":150}`),
			toolCall("dup", tools.NameHealthTips, `{"topic":"water"}`),
			toolCall("dup", tools.NameHealthTips, `{"topic":"sleep"}`),
		),
		answer("done"),
	}}
	a := newTestAgent(t, p, nil)

	resp := a.Execute(context.Background(), "help", nil)
	if err := resp.Turn.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	msgs := resp.Turn.Messages()
	assistant := msgs[2]
	ids := map[string]bool{}
	for _, c := range assistant.ToolCalls {
		if c.ID == "" {
			t.Error("empty call id survived")
		}
		ids[c.ID] = true
	}
	if len(ids) != 3 {
		t.Errorf("ids = %v, want 3 distinct", ids)
	}
	if assistant.ToolCalls[1].ID != "dup" {
		t.Errorf("first occurrence renamed to %q", assistant.ToolCalls[1].ID)
	}
}

// orderedToolbox records concurrency and finishes calls in reverse order.
type orderedToolbox struct {
	inflight atomic.Int32
	peak     atomic.Int32
	release  chan struct{}
}

func (o *orderedToolbox) Definitions() []llm.ToolDefinition { return nil }

func (o *orderedToolbox) Dispatch(_ context.Context, call llm.ToolCall) tools.Invocation {
	n := o.inflight.Add(1)
	for {
		p := o.peak.Load()
		if n <= p || o.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if n == 3 {
		close(o.release)
	}
	<-o.release
	o.inflight.Add(-1)
	return tools.Invocation{Call: call, Output: "out-" + call.ID}
}

func TestParallelToolsKeepRequestOrder(t *testing.T) {
	p := &scriptedProvider{responses: []llm.LLMResponse{
		wantTools(toolCall("a", "x", `{}`), toolCall("b", "x", `{}`), toolCall("c", "x", `{}`)),
		answer("done"),
	}}
	box := &orderedToolbox{release: make(chan struct{})}
	a, err := New(Config{ParallelTools: true}, p, box, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	resp := a.Execute(context.Background(), "go", nil)
	if resp.Err != nil {
		t.Fatalf("unexpected error: %v", resp.Err)
	}
	if box.peak.Load() != 3 {
		t.Errorf("peak concurrency = %d, want 3", box.peak.Load())
	}
	msgs := resp.Turn.Messages()
	for i, id := range []string{"a", "b", "c"} {
		m := msgs[3+i]
		if m.ToolCallID != id || m.Content != "out-"+id {
			t.Errorf("result %d = %+v, want %s", i, m, id)
		}
	}
}

func TestValidateRejectsMisorderedResults(t *testing.T) {
	turn := NewTurn("sys", nil, 10, "q")
	turn.appendAssistant(wantTools(toolCall("1", "x", `{}`), toolCall("2", "x", `{}`)))
	turn.messages = append(turn.messages,
		llm.ChatMessage{Role: llm.RoleTool, ToolCallID: "2"},
		llm.ChatMessage{Role: llm.RoleTool, ToolCallID: "1"},
	)
	if err := turn.Validate(); err == nil {
		t.Error("expected misordered results to fail validation")
	}

	orphan := NewTurn("sys", nil, 10, "q")
	orphan.messages = append(orphan.messages, llm.ChatMessage{Role: llm.RoleTool, ToolCallID: "z"})
	if err := orphan.Validate(); err == nil {
		t.Error("expected orphan result to fail validation")
	}
}

func TestLazyBuildsOnce(t *testing.T) {
	var builds atomic.Int32
	p := &scriptedProvider{responses: []llm.LLMResponse{answer("hi")}}
	lazy := NewLazy(func() (*Agent, error) {
		builds.Add(1)
		return newTestAgent(t, p, nil), nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := lazy.Chat(context.Background(), "hello", nil); err != nil {
				t.Errorf("Chat: %v", err)
			}
		}()
	}
	wg.Wait()
	if builds.Load() != 1 {
		t.Errorf("factory called %d times, want 1", builds.Load())
	}
}

func TestLazyRemembersFailure(t *testing.T) {
	var builds atomic.Int32
	lazy := NewLazy(func() (*Agent, error) {
		builds.Add(1)
		return nil, &llm.ConfigError{Provider: "openai", Reason: "OPENAI_API_KEY not set"}
	})
	for i := 0; i < 3; i++ {
		if _, err := lazy.Chat(context.Background(), "x", nil); !errors.Is(err, ErrNotConfigured) {
			t.Fatalf("err = %v", err)
		}
	}
	if builds.Load() != 1 {
		t.Errorf("factory called %d times, want 1", builds.Load())
	}
}

func TestGreeting(t *testing.T) {
	g := Greeting()
	if !strings.HasPrefix(g, "Namaste!") || !strings.Contains(g, "SwasthAI") {
		t.Errorf("Greeting = %q", g)
	}
}

func TestBuilderAppliesSettings(t *testing.T) {
	registry, err := tools.NewRegistry(tools.DefaultToolConfig(), nil, tools.NewBMITool())
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	p := &scriptedProvider{responses: []llm.LLMResponse{wantTools(toolCall("a", tools.NameBMI, `{"weight_kg":70,"height_cm":175}`))}}

	a, err := NewBuilder(p).
		Name("triage").
		SystemPrompt("be brief").
		Toolbox(registry).
		MaxIterations(2).
		MaxHistory(4).
		EmergencyGuard(false).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	cfg := a.Config()
	if cfg.Name != "triage" || cfg.MaxIterations != 2 || cfg.MaxHistory != 4 || cfg.EmergencyGuard {
		t.Errorf("config = %+v", cfg)
	}
	if cfg.ModelTimeout != DefaultModelTimeout {
		t.Errorf("ModelTimeout = %v, want default", cfg.ModelTimeout)
	}

	resp := a.Execute(context.Background(), "chest pain", nil)
	if resp.Type != ResponseFallback || resp.Metadata.Iterations != 2 {
		t.Errorf("resp = %v after %d iterations", resp.Type, resp.Metadata.Iterations)
	}
	if p.calls[0][0].Content != "be brief" {
		t.Errorf("system prompt = %q", p.calls[0][0].Content)
	}
}

func TestBuilderRequiresToolbox(t *testing.T) {
	if _, err := NewBuilder(&scriptedProvider{}).Build(); err == nil {
		t.Error("expected error without toolbox")
	}
}
