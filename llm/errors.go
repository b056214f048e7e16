package llm

import (
	"errors"
	"fmt"
)

// ErrNotConfigured reports that a provider cannot be built because its
// credentials or settings are missing. Callers surface it as
// "service unavailable" rather than as an internal failure.
var ErrNotConfigured = errors.New("llm provider not configured")

// ConfigError describes why a provider could not be constructed.
type ConfigError struct {
	Provider string
	Reason   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Reason)
}

// Is makes errors.Is(err, ErrNotConfigured) match any ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrNotConfigured
}
