package agent

import (
	"context"
	"sync"

	"github.com/richinex/swasth/llm"
)

// Factory builds an agent.
type Factory func() (*Agent, error)

// Lazy builds its agent on first use and shares it afterwards. A failed
// build is remembered and returned to every later caller.
type Lazy struct {
	once    sync.Once
	factory Factory
	agent   *Agent
	err     error
}

// NewLazy wraps factory.
func NewLazy(factory Factory) *Lazy {
	return &Lazy{factory: factory}
}

// Get returns the shared agent, building it at most once.
func (l *Lazy) Get() (*Agent, error) {
	l.once.Do(func() {
		l.agent, l.err = l.factory()
	})
	return l.agent, l.err
}

// Chat builds the agent if needed and runs one turn.
func (l *Lazy) Chat(ctx context.Context, userMessage string, history []llm.ChatMessage) (string, error) {
	a, err := l.Get()
	if err != nil {
		return "", err
	}
	return a.Chat(ctx, userMessage, history)
}
