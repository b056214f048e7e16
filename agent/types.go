package agent

import (
	"github.com/richinex/swasth/llm"
	"github.com/richinex/swasth/model"
)

// ResponseType indicates how a turn ended.
type ResponseType int

const (
	// ResponseSuccess means the model produced a final answer.
	ResponseSuccess ResponseType = iota
	// ResponseFallback means the iteration budget ran out, or the model
	// stopped without any text, and the fixed fallback was returned.
	ResponseFallback
	// ResponseFailure means the model call failed.
	ResponseFailure
	// ResponseCancelled means the caller's context was cancelled.
	ResponseCancelled
)

func (t ResponseType) String() string {
	switch t {
	case ResponseSuccess:
		return "success"
	case ResponseFallback:
		return "fallback"
	case ResponseFailure:
		return "failure"
	case ResponseCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Metadata describes the work done for a turn.
type Metadata struct {
	ExecutionTimeMs uint64           `json:"execution_time_ms"`
	AgentName       string           `json:"agent_name"`
	Provider        string           `json:"provider"`
	Iterations      int              `json:"iterations"`
	ToolCalls       []model.ToolCall `json:"tool_calls"`
	TokenUsage      llm.TokenUsage   `json:"token_usage"`
	Emergency       bool             `json:"emergency"`
}

// Response is the outcome of Execute.
type Response struct {
	Type     ResponseType
	Text     string
	Err      error
	Metadata Metadata
	Turn     *Turn
}

// IsSuccess reports whether the response carries text for the user.
func (r Response) IsSuccess() bool {
	return r.Type == ResponseSuccess || r.Type == ResponseFallback
}
