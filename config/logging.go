package config

import (
	"fmt"

	"go.uber.org/zap"
)

// NewLogger builds a zap logger. Format "json" gives the production
// encoder; anything else gives the human-readable development encoder.
func NewLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
	}

	cfg := zap.NewDevelopmentConfig()
	if format == "json" {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = lvl
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

// Logger builds the logger described by the settings.
func (s Settings) Logger() (*zap.Logger, error) {
	return NewLogger(s.Log.Level, s.Log.Format)
}
