package tools

import (
	"context"
	"fmt"
	"strings"
)

const medicalSearchLimit = 3

// MedicalSearchTool searches the web for current medical information.
type MedicalSearchTool struct {
	backend SearchBackend
}

// NewMedicalSearchTool creates the web search tool over backend.
func NewMedicalSearchTool(backend SearchBackend) *MedicalSearchTool {
	return &MedicalSearchTool{backend: backend}
}

func (t *MedicalSearchTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name: NameMedicalSearch,
		Description: "Search the web for current medical information, drug interactions, " +
			"treatment guidelines and recent health research.",
		Parameters: []ToolParameter{
			{Name: "query", ParamType: TypeString, Description: "Medical topic, symptom, drug name, or health condition to search for", Required: true},
		},
	}
}

func (t *MedicalSearchTool) Execute(ctx context.Context, args Args) (ToolResult, error) {
	query := args.String("query")
	results, err := t.backend.Search(ctx, "medical health "+query, medicalSearchLimit)
	if err != nil {
		return ToolResult{}, err
	}
	if len(results) == 0 {
		return SuccessResult(fmt.Sprintf("No search results found for '%s'. I'll provide information from my medical knowledge base.", query)), nil
	}
	return SuccessResult("Medical Information Search Results:\n\n" + formatSearchResults(results)), nil
}

func (t *MedicalSearchTool) Degrade(args Args, err error) string {
	return fmt.Sprintf("Search temporarily unavailable (%s). I'll provide information about %s from my medical knowledge base.",
		FailureClass(err), args.String("query"))
}

func formatSearchResults(results []SearchResult) string {
	entries := make([]string, len(results))
	for i, r := range results {
		entries[i] = fmt.Sprintf("%d. %s\n   %s", i+1, orNA(r.Title), orNA(r.Snippet))
	}
	return strings.Join(entries, "\n\n")
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
