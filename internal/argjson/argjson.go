// Package argjson decodes tool-call arguments produced by language models.
//
// Models do not always emit a clean JSON object: arguments may arrive empty,
// double-encoded as a JSON string, wrapped in a markdown code fence, or
// surrounded by commentary. Object normalizes all of these into a map.
package argjson

import (
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Object decodes raw into a JSON object. Empty input yields an empty map.
func Object(raw []byte) (map[string]any, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return map[string]any{}, nil
	}

	if obj, ok := decodeObject(text); ok {
		return obj, nil
	}

	// Double-encoded: "{\"query\": \"fever\"}"
	var inner string
	if err := json.Unmarshal([]byte(text), &inner); err == nil {
		return Object([]byte(inner))
	}

	text = stripCodeFence(text)
	if obj, ok := decodeObject(text); ok {
		return obj, nil
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		if obj, ok := decodeObject(text[start : end+1]); ok {
			return obj, nil
		}
	}

	preview := text
	if len(preview) > 100 {
		preview = preview[:100] + "..."
	}
	return nil, fmt.Errorf("arguments are not a JSON object: %q", preview)
}

func decodeObject(text string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

// stripCodeFence removes ```json ... ``` or ``` ... ``` markers.
func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimPrefix(trimmed, "json")
		trimmed = strings.TrimSpace(trimmed)
	}
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}
