package tools

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/richinex/swasth/llm"
	"github.com/richinex/swasth/model"
)

// Names of the tools exposed to the model.
const (
	NameMedicalSearch = "search_medical_info"
	NameWikipedia     = "search_wikipedia_medical"
	NameDrugInfo      = "check_drug_interactions"
	NameBMI           = "calculate_bmi"
	NameEmergency     = "get_emergency_guidance"
	NameFacilities    = "search_nearby_facilities"
	NameHealthTips    = "general_health_tips"
)

const truncationMarker = "\n... [truncated]"

// Registry is an immutable, ordered set of tools. It is safe for
// concurrent use once built.
type Registry struct {
	tools    []Tool
	index    map[string]Tool
	executor *Executor
	limit    int
	logger   *zap.Logger
}

// NewRegistry builds a registry over tools in the given order.
// Returns an error if two tools share a name.
func NewRegistry(config ToolConfig, logger *zap.Logger, tools ...Tool) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		tools:    make([]Tool, 0, len(tools)),
		index:    make(map[string]Tool, len(tools)),
		executor: NewExecutor(config),
		limit:    config.OutputLimit(),
		logger:   logger,
	}
	for _, t := range tools {
		name := t.Metadata().Name
		if _, exists := r.index[name]; exists {
			return nil, fmt.Errorf("tool '%s' already registered", name)
		}
		r.index[name] = t
		r.tools = append(r.tools, t)
	}
	return r, nil
}

// Config selects the endpoints and execution limits of the default tool set.
// Empty URLs use the public services.
type Config struct {
	Exec           ToolConfig
	SearchProvider string
	SearXNGURL     string
	DuckDuckGoURL  string
	WikipediaURL   string
	OpenFDAURL     string
	NominatimURL   string
}

// Default builds the registry with the seven medical tools.
func Default(cfg Config, logger *zap.Logger) (*Registry, error) {
	timeout := cfg.Exec.Timeout()

	backend, err := NewSearchBackend(cfg.SearchProvider, cfg.SearXNGURL, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to configure search: %w", err)
	}
	if ddg, ok := backend.(*DuckDuckGo); ok && cfg.DuckDuckGoURL != "" {
		ddg.baseURL = cfg.DuckDuckGoURL
	}

	return NewRegistry(cfg.Exec, logger,
		NewMedicalSearchTool(backend),
		NewWikipediaTool(cfg.WikipediaURL, timeout),
		NewDrugInfoTool(cfg.OpenFDAURL, backend, timeout),
		NewBMITool(),
		NewEmergencyTool(),
		NewFacilityTool(cfg.NominatimURL, timeout),
		NewHealthTipsTool(),
	)
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	tool, exists := r.index[name]
	return tool, exists
}

// Has checks if a tool exists in the registry.
func (r *Registry) Has(name string) bool {
	_, exists := r.index[name]
	return exists
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.tools))
	for i, t := range r.tools {
		names[i] = t.Metadata().Name
	}
	return names
}

// List returns metadata for all tools in registration order.
func (r *Registry) List() []ToolMetadata {
	metadata := make([]ToolMetadata, len(r.tools))
	for i, t := range r.tools {
		metadata[i] = t.Metadata()
	}
	return metadata
}

// Definitions returns the model-facing declarations of all tools.
func (r *Registry) Definitions() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, len(r.tools))
	for i, t := range r.tools {
		defs[i] = t.Metadata().Definition()
	}
	return defs
}

// Invocation is the answered form of one tool call.
type Invocation struct {
	Call    llm.ToolCall
	Output  string
	Metrics model.ToolCall
}

// Message returns the tool-result message answering the call.
func (inv Invocation) Message() llm.ChatMessage {
	return llm.ToolResultMessage(inv.Call, inv.Output)
}

// Dispatch resolves, validates and runs a tool call. It always returns
// text: unknown tools, invalid arguments and execution failures are
// described in the output rather than returned as errors.
func (r *Registry) Dispatch(ctx context.Context, call llm.ToolCall) Invocation {
	start := time.Now()
	inv := Invocation{
		Call: call,
		Metrics: model.ToolCall{
			CallID:    call.ID,
			Name:      call.Name,
			InputSize: len(call.Arguments),
		},
	}

	if tool, ok := r.index[call.Name]; !ok {
		inv.Output = fmt.Sprintf("Unknown tool %q. Available tools: %s.", call.Name, strings.Join(r.Names(), ", "))
	} else if args, err := bindArgs(tool.Metadata(), call.Arguments); err != nil {
		inv.Output = err.Error() + ". Please call the tool again with valid arguments."
	} else {
		outcome := r.executor.Run(ctx, tool, args)
		inv.Output = outcome.Output
		inv.Metrics.Success = outcome.Success
		inv.Metrics.Attempts = outcome.Attempts
	}

	inv.Output, inv.Metrics.Truncated = truncate(inv.Output, r.limit)
	inv.Metrics.OutputSize = len(inv.Output)
	inv.Metrics.DurationMs = uint64(time.Since(start).Milliseconds())

	fields := []zap.Field{
		zap.String("tool", call.Name),
		zap.String("call_id", call.ID),
		zap.Int("attempts", inv.Metrics.Attempts),
		zap.Int("output_size", inv.Metrics.OutputSize),
		zap.Duration("duration", time.Since(start)),
	}
	if inv.Metrics.Success {
		r.logger.Debug("tool executed", fields...)
	} else {
		r.logger.Warn("tool did not succeed", fields...)
	}
	return inv
}

// truncate bounds s to limit characters, marking the cut.
func truncate(s string, limit int) (string, bool) {
	if utf8.RuneCountInString(s) <= limit {
		return s, false
	}
	keep := limit - utf8.RuneCountInString(truncationMarker)
	if keep < 0 {
		keep = 0
	}
	return truncateRunes(s, keep) + truncationMarker, true
}
