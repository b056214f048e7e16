package argjson

import (
	"testing"
)

func TestObject(t *testing.T) {
	tests := []struct {
		name  string
		input string
		key   string
		want  any
	}{
		{"plain", `{"query": "fever"}`, "query", "fever"},
		{"double encoded", `"{\"query\": \"fever\"}"`, "query", "fever"},
		{"fenced", "```json\n{\"topic\": \"exercise\"}\n```", "topic", "exercise"},
		{"bare fence", "```\n{\"topic\": \"hygiene\"}\n```", "topic", "hygiene"},
		{"with commentary", `Calling the tool: {"weight_kg": 70} now`, "weight_kg", float64(70)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, err := Object([]byte(tt.input))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if obj[tt.key] != tt.want {
				t.Errorf("obj[%q] = %v, want %v", tt.key, obj[tt.key], tt.want)
			}
		})
	}
}

func TestObjectEmpty(t *testing.T) {
	for _, input := range []string{"", "  ", "null"} {
		obj, err := Object([]byte(input))
		if err != nil {
			t.Fatalf("Object(%q): unexpected error: %v", input, err)
		}
		if len(obj) != 0 {
			t.Errorf("Object(%q) = %v, want empty map", input, obj)
		}
	}
}

func TestObjectRejectsNonObjects(t *testing.T) {
	for _, input := range []string{`[1,2,3]`, `42`, `not json at all`} {
		if _, err := Object([]byte(input)); err == nil {
			t.Errorf("Object(%q): expected error", input)
		}
	}
}
