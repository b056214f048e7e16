package agent

import "time"

// Defaults for Config fields left at zero.
const (
	DefaultMaxIterations = 8
	DefaultMaxHistory    = 10
	DefaultModelTimeout  = 60 * time.Second
)

// Config holds agent configuration. It is fixed once the agent is built.
type Config struct {
	// Name identifies the agent in logs.
	Name string

	// SystemPrompt opens every conversation.
	SystemPrompt string

	// MaxIterations bounds model calls per turn.
	MaxIterations int

	// MaxHistory is how many prior messages are injected into a turn.
	MaxHistory int

	// ModelTimeout bounds each model call.
	ModelTimeout time.Duration

	// ParallelTools runs the tool calls of one model response concurrently.
	// Results are still recorded in request order.
	ParallelTools bool

	// EmergencyGuard makes replies to emergency messages start with the
	// fixed escalation guidance.
	EmergencyGuard bool
}

// DefaultConfig returns the medical assistant configuration.
func DefaultConfig() Config {
	return Config{
		Name:           "swasth",
		SystemPrompt:   SystemPrompt,
		MaxIterations:  DefaultMaxIterations,
		MaxHistory:     DefaultMaxHistory,
		ModelTimeout:   DefaultModelTimeout,
		EmergencyGuard: true,
	}
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = "swasth"
	}
	if c.SystemPrompt == "" {
		c.SystemPrompt = SystemPrompt
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.MaxHistory < 0 {
		c.MaxHistory = 0
	}
	if c.ModelTimeout <= 0 {
		c.ModelTimeout = DefaultModelTimeout
	}
	return c
}
