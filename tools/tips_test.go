package tools

import (
	"context"
	"strings"
	"testing"
)

func TestHealthTips(t *testing.T) {
	tests := []struct {
		topic string
		want  string
	}{
		{"nutrition", "Healthy Eating Tips"},
		{"Daily EXERCISE routine", "Physical Activity Guidelines"},
		{"hand hygiene", "Hygiene Best Practices"},
		{"mental health", "Mental Wellness Tips"},
		{"dental care", tipsPrompt},
	}
	tool := NewHealthTipsTool()
	for _, tt := range tests {
		result, err := tool.Execute(context.Background(), Args{"topic": tt.topic})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasPrefix(result.Output, tt.want) {
			t.Errorf("topic %q: got %q", tt.topic, result.Output)
		}
	}
}
