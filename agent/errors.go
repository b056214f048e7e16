package agent

import (
	"errors"
	"fmt"

	"github.com/richinex/swasth/llm"
)

// ErrNotConfigured is returned when the agent cannot be built because the
// model provider is missing credentials or settings.
var ErrNotConfigured = llm.ErrNotConfigured

// ErrModel marks failures of the model call itself. They are not retried.
var ErrModel = errors.New("model call failed")

// ModelError wraps a provider failure with the provider name.
type ModelError struct {
	Provider string
	Err      error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrModel) match any ModelError.
func (e *ModelError) Is(target error) bool { return target == ErrModel }
