package agent

import (
	"time"

	"go.uber.org/zap"

	"github.com/richinex/swasth/llm"
)

// Builder provides fluent configuration for creating agents.
type Builder struct {
	config   Config
	provider llm.Provider
	toolbox  Toolbox
	logger   *zap.Logger
}

// NewBuilder starts from DefaultConfig.
func NewBuilder(provider llm.Provider) *Builder {
	return &Builder{config: DefaultConfig(), provider: provider}
}

// Name sets the name used in logs.
func (b *Builder) Name(name string) *Builder {
	b.config.Name = name
	return b
}

// SystemPrompt replaces the system prompt.
func (b *Builder) SystemPrompt(prompt string) *Builder {
	b.config.SystemPrompt = prompt
	return b
}

// Toolbox sets the tools the agent may call.
func (b *Builder) Toolbox(toolbox Toolbox) *Builder {
	b.toolbox = toolbox
	return b
}

// Logger sets the logger.
func (b *Builder) Logger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// MaxIterations bounds model calls per turn.
func (b *Builder) MaxIterations(n int) *Builder {
	b.config.MaxIterations = n
	return b
}

// MaxHistory sets the history window.
func (b *Builder) MaxHistory(n int) *Builder {
	b.config.MaxHistory = n
	return b
}

// ModelTimeout bounds each model call.
func (b *Builder) ModelTimeout(d time.Duration) *Builder {
	b.config.ModelTimeout = d
	return b
}

// ParallelTools enables concurrent tool execution.
func (b *Builder) ParallelTools(enabled bool) *Builder {
	b.config.ParallelTools = enabled
	return b
}

// EmergencyGuard toggles the emergency prefix.
func (b *Builder) EmergencyGuard(enabled bool) *Builder {
	b.config.EmergencyGuard = enabled
	return b
}

// Build creates the agent.
func (b *Builder) Build() (*Agent, error) {
	return New(b.config, b.provider, b.toolbox, b.logger)
}
