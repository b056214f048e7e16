// Tool executor with retry, timeout and panic recovery.

package tools

import (
	"context"
	"fmt"
	"time"
)

// Outcome is what an executor produced for one tool run.
type Outcome struct {
	Output   string
	Success  bool
	Attempts int
}

// Executor runs tools with per-attempt timeouts and retries transient errors.
type Executor struct {
	config ToolConfig
}

// NewExecutor creates a new tool executor with the given configuration.
func NewExecutor(config ToolConfig) *Executor {
	return &Executor{config: config}
}

// Run executes tool and always yields text. Transient errors are retried
// with exponential backoff; when attempts are exhausted the tool's Degrade
// text (or a generic unavailability notice) is returned.
func (e *Executor) Run(ctx context.Context, tool Tool, args Args) Outcome {
	name := tool.Metadata().Name
	maxAttempts := e.config.Attempts()

	var lastErr error
	attempts := 0
retry:
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				lastErr = ctx.Err()
				break retry
			case <-time.After(e.backoff(attempt)):
			}
		}

		attempts++
		result, err := e.attempt(ctx, tool, args)
		if err != nil {
			lastErr = err
			continue
		}
		if !result.Success() {
			return Outcome{Output: result.Error.Error(), Attempts: attempts}
		}
		return Outcome{Output: result.Output, Success: true, Attempts: attempts}
	}

	if d, ok := tool.(Degrader); ok {
		return Outcome{Output: d.Degrade(args, lastErr), Attempts: attempts}
	}
	return Outcome{
		Output:   fmt.Sprintf("The %s tool is temporarily unavailable (%s). Please answer from general medical knowledge.", name, FailureClass(lastErr)),
		Attempts: attempts,
	}
}

// attempt runs a single try under the configured timeout. A panicking tool
// is reported as a permanent failure.
func (e *Executor) attempt(ctx context.Context, tool Tool, args Args) (result ToolResult, err error) {
	ctx, cancel := context.WithTimeout(ctx, e.config.Timeout())
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			result = FailureResultf("The %s tool failed unexpectedly: %v", tool.Metadata().Name, r)
			err = nil
		}
	}()

	return tool.Execute(ctx, args)
}

func (e *Executor) backoff(attempt int) time.Duration {
	const (
		baseDelay = 100 * time.Millisecond
		maxDelay  = 2 * time.Second
	)

	delay := baseDelay * time.Duration(1<<attempt)
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}
