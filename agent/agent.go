// Package agent runs the medical assistant's conversational turns: a
// bounded loop in which the model either answers or asks for tools whose
// results are fed back to it.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/richinex/swasth/llm"
	"github.com/richinex/swasth/model"
	"github.com/richinex/swasth/tools"
)

// Toolbox is the set of tools an agent can call.
type Toolbox interface {
	Definitions() []llm.ToolDefinition
	Dispatch(ctx context.Context, call llm.ToolCall) tools.Invocation
}

// Agent answers user messages with a model and a toolbox. It holds no
// per-turn state and is safe for concurrent use.
type Agent struct {
	config      Config
	provider    llm.Provider
	toolbox     Toolbox
	definitions []llm.ToolDefinition
	logger      *zap.Logger
}

// New creates an agent. A nil provider means no model is configured.
func New(config Config, provider llm.Provider, toolbox Toolbox, logger *zap.Logger) (*Agent, error) {
	if provider == nil {
		return nil, &llm.ConfigError{Reason: "no model provider"}
	}
	if toolbox == nil {
		return nil, errors.New("agent: toolbox is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	config = config.withDefaults()
	return &Agent{
		config:      config,
		provider:    provider,
		toolbox:     toolbox,
		definitions: toolbox.Definitions(),
		logger:      logger.Named(config.Name),
	}, nil
}

// Config returns the agent's configuration.
func (a *Agent) Config() Config { return a.config }

// Provider returns the agent's model provider.
func (a *Agent) Provider() llm.Provider { return a.provider }

// Chat runs one turn and returns the reply text.
func (a *Agent) Chat(ctx context.Context, userMessage string, history []llm.ChatMessage) (string, error) {
	resp := a.Execute(ctx, userMessage, history)
	if resp.Err != nil {
		return "", resp.Err
	}
	return resp.Text, nil
}

// Execute runs one turn. Model failures and cancellation end the turn with
// an error; tool failures never do, they are reported to the model as text.
func (a *Agent) Execute(ctx context.Context, userMessage string, history []llm.ChatMessage) Response {
	start := time.Now()
	turn := NewTurn(a.config.SystemPrompt, history, a.config.MaxHistory, userMessage)
	meta := Metadata{
		AgentName: a.config.Name,
		Provider:  a.provider.Name(),
		ToolCalls: []model.ToolCall{},
	}
	finish := func(resp Response) Response {
		meta.Iterations = turn.iterations
		meta.ExecutionTimeMs = uint64(time.Since(start).Milliseconds())
		resp.Metadata = meta
		resp.Turn = turn
		return resp
	}

	for turn.iterations < a.config.MaxIterations {
		if err := ctx.Err(); err != nil {
			return finish(Response{Type: ResponseCancelled, Err: fmt.Errorf("turn cancelled: %w", err)})
		}
		turn.iterations++

		resp, err := a.complete(ctx, turn.messages)
		if err != nil {
			if ctx.Err() != nil {
				return finish(Response{Type: ResponseCancelled, Err: fmt.Errorf("turn cancelled: %w", ctx.Err())})
			}
			a.logger.Error("model call failed",
				zap.Int("iteration", turn.iterations),
				zap.Error(err),
			)
			return finish(Response{Type: ResponseFailure, Err: err})
		}
		meta.TokenUsage.Add(resp.Usage)

		msg := turn.appendAssistant(resp)
		if !msg.HasToolCalls() {
			result := Response{Type: ResponseSuccess, Text: turn.answer()}
			if strings.TrimSpace(result.Text) == "" {
				result = Response{Type: ResponseFallback, Text: FallbackResponse}
			}
			result.Text, meta.Emergency = a.guard(userMessage, turn, result.Text)
			a.logger.Info("turn completed",
				zap.String("result", result.Type.String()),
				zap.Int("iterations", turn.iterations),
				zap.Int("tool_calls", len(meta.ToolCalls)),
				zap.Uint32("total_tokens", meta.TokenUsage.TotalTokens),
				zap.Duration("duration", time.Since(start)),
			)
			return finish(result)
		}

		invs := a.dispatch(ctx, msg.ToolCalls)
		turn.appendResults(invs)
		for _, inv := range invs {
			meta.ToolCalls = append(meta.ToolCalls, inv.Metrics)
		}
	}

	a.logger.Warn("iteration budget exhausted",
		zap.Int("max_iterations", a.config.MaxIterations),
		zap.Int("tool_calls", len(meta.ToolCalls)),
	)
	text, emergency := a.guard(userMessage, turn, FallbackResponse)
	meta.Emergency = emergency
	return finish(Response{Type: ResponseFallback, Text: text})
}

func (a *Agent) complete(ctx context.Context, messages []llm.ChatMessage) (llm.LLMResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, a.config.ModelTimeout)
	defer cancel()

	resp, err := a.provider.ChatWithTools(ctx, messages, a.definitions)
	if err == nil {
		return resp, nil
	}
	if errors.Is(err, llm.ErrNotConfigured) {
		return llm.LLMResponse{}, err
	}
	return llm.LLMResponse{}, &ModelError{Provider: a.provider.Name(), Err: err}
}

// dispatch answers every call of one model response. Tools run on a
// context that outlives cancellation so each call gets its result.
func (a *Agent) dispatch(ctx context.Context, calls []llm.ToolCall) []tools.Invocation {
	toolCtx := context.WithoutCancel(ctx)
	invs := make([]tools.Invocation, len(calls))

	if !a.config.ParallelTools || len(calls) < 2 {
		for i, call := range calls {
			invs[i] = a.toolbox.Dispatch(toolCtx, call)
		}
		return invs
	}

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call llm.ToolCall) {
			defer wg.Done()
			invs[i] = a.toolbox.Dispatch(toolCtx, call)
		}(i, call)
	}
	wg.Wait()
	return invs
}

// guard makes text begin with the emergency guidance when the user message,
// or a symptom the model asked about, is an emergency.
func (a *Agent) guard(userMessage string, turn *Turn, text string) (string, bool) {
	if !a.config.EmergencyGuard {
		return text, false
	}
	guidance, ok := tools.ClassifyEmergency(userMessage)
	if !ok {
		guidance, ok = turn.emergencyGuidance()
	}
	if !ok {
		return text, false
	}
	if strings.HasPrefix(strings.TrimSpace(text), guidance) {
		return text, true
	}
	rest := strings.TrimSpace(strings.Replace(text, guidance, "", 1))
	if rest == "" {
		return guidance, true
	}
	return guidance + "\n\n" + rest, true
}
