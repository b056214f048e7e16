// Package tools implements the assistant's closed set of medical tools and
// the registry that validates, executes and bounds every invocation.
//
// Invocation never fails from the caller's point of view: unknown names,
// malformed arguments, transport errors and panics all come back as text the
// model can read and relay.
package tools

import (
	"context"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/richinex/swasth/llm"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Parameter types understood by argument validation.
const (
	TypeString = "string"
	TypeNumber = "number"
)

// ToolParameter defines a parameter schema for a tool.
type ToolParameter struct {
	Name        string `json:"name"`
	ParamType   string `json:"param_type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Default     any    `json:"default,omitempty"`
}

// ToolMetadata describes what a tool does and how to use it.
type ToolMetadata struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ToolParameter `json:"parameters"`
}

// String returns a string representation of the tool metadata.
func (m ToolMetadata) String() string {
	return fmt.Sprintf("%s: %s", m.Name, m.Description)
}

// Definition renders the metadata as a model-facing tool declaration with a
// JSON schema for its parameters.
func (m ToolMetadata) Definition() llm.ToolDefinition {
	properties := make(map[string]interface{}, len(m.Parameters))
	required := []string{}
	for _, p := range m.Parameters {
		prop := map[string]interface{}{
			"type":        p.ParamType,
			"description": p.Description,
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}

	return llm.ToolDefinition{
		Name:        m.Name,
		Description: m.Description,
		Parameters: map[string]interface{}{
			"type":       "object",
			"properties": properties,
			"required":   required,
		},
	}
}

// ToolResult is the outcome of a tool execution.
// Success is determined by whether Error is nil.
type ToolResult struct {
	Output string
	Error  error
}

// Success returns true if the tool execution succeeded.
func (t ToolResult) Success() bool {
	return t.Error == nil
}

// SuccessResult creates a successful tool result.
func SuccessResult(output string) ToolResult {
	return ToolResult{Output: output}
}

// FailureResult creates a failed tool result.
func FailureResult(err error) ToolResult {
	return ToolResult{Error: err}
}

// FailureResultf creates a failed tool result with a formatted error message.
func FailureResultf(format string, args ...interface{}) ToolResult {
	return ToolResult{Error: fmt.Errorf(format, args...)}
}

// Tool is the interface every medical tool implements.
//
// Execute returns a non-nil error only for transient failures (network,
// upstream status) that are worth retrying. Permanent problems such as bad
// input are reported through ToolResult.Error, whose message is shown as is.
type Tool interface {
	// Metadata returns tool metadata (name, description, parameters).
	Metadata() ToolMetadata

	// Execute runs the tool with validated arguments.
	Execute(ctx context.Context, args Args) (ToolResult, error)
}

// Degrader is implemented by tools that can explain a transient failure in
// user-facing words once retries are exhausted.
type Degrader interface {
	Degrade(args Args, err error) string
}

// Default tool execution settings.
const (
	DefaultTimeoutSecs    = 5
	DefaultMaxRetries     = 1
	DefaultMaxOutputChars = 4000
)

// ToolConfig holds tool execution configuration.
// The zero value is safe: timeout defaults to 5s, a single attempt with no
// retries, 4000 chars.
type ToolConfig struct {
	TimeoutSecs    uint64
	MaxRetries     uint32 // retries after the first attempt
	MaxOutputChars int
}

// Timeout returns the per-attempt timeout, defaulting to 5 seconds.
func (c *ToolConfig) Timeout() time.Duration {
	if c == nil || c.TimeoutSecs == 0 {
		return DefaultTimeoutSecs * time.Second
	}
	return time.Duration(c.TimeoutSecs) * time.Second
}

// Attempts returns how many times a failing tool is tried: the first
// attempt plus MaxRetries.
func (c *ToolConfig) Attempts() int {
	if c == nil {
		return 1
	}
	return int(c.MaxRetries) + 1
}

// OutputLimit returns the maximum output length in characters.
func (c *ToolConfig) OutputLimit() int {
	if c == nil || c.MaxOutputChars <= 0 {
		return DefaultMaxOutputChars
	}
	return c.MaxOutputChars
}

// DefaultToolConfig returns the default tool configuration.
func DefaultToolConfig() ToolConfig {
	return ToolConfig{
		TimeoutSecs:    DefaultTimeoutSecs,
		MaxRetries:     DefaultMaxRetries,
		MaxOutputChars: DefaultMaxOutputChars,
	}
}
