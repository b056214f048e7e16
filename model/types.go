// Package model provides domain types shared across packages.
package model

// ToolCall contains metrics about one tool invocation.
type ToolCall struct {
	CallID     string `json:"call_id"`
	Name       string `json:"name"`
	InputSize  int    `json:"input_size"`
	OutputSize int    `json:"output_size"`
	DurationMs uint64 `json:"duration_ms"`
	Attempts   int    `json:"attempts"`
	Success    bool   `json:"success"`
	Truncated  bool   `json:"truncated,omitempty"`
}
