package agent

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/richinex/swasth/internal/argjson"
	"github.com/richinex/swasth/llm"
	"github.com/richinex/swasth/tools"
)

// Turn is the message state of one conversational turn: the system prompt,
// the injected history window, the user message and everything the model
// and tools add while the turn runs. A Turn is owned by a single Execute
// call and discarded when it returns.
type Turn struct {
	messages   []llm.ChatMessage
	history    int
	iterations int
}

// HistoryWindow keeps the user and assistant messages of history that carry
// content and returns the most recent max of them in chronological order.
func HistoryWindow(history []llm.ChatMessage, max int) []llm.ChatMessage {
	kept := make([]llm.ChatMessage, 0, len(history))
	for _, m := range history {
		if m.Role != llm.RoleUser && m.Role != llm.RoleAssistant {
			continue
		}
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		kept = append(kept, llm.ChatMessage{Role: m.Role, Content: m.Content})
	}
	if max < len(kept) {
		kept = kept[len(kept)-max:]
	}
	return kept
}

// NewTurn assembles the opening messages of a turn.
func NewTurn(systemPrompt string, history []llm.ChatMessage, maxHistory int, userMessage string) *Turn {
	window := HistoryWindow(history, maxHistory)
	messages := make([]llm.ChatMessage, 0, len(window)+2)
	messages = append(messages, llm.SystemMessage(systemPrompt))
	messages = append(messages, window...)
	messages = append(messages, llm.UserMessage(userMessage))
	return &Turn{messages: messages, history: len(window)}
}

// Messages returns a copy of the turn's messages.
func (t *Turn) Messages() []llm.ChatMessage {
	out := make([]llm.ChatMessage, len(t.messages))
	copy(out, t.messages)
	return out
}

// userIndex is the position of this turn's user message.
func (t *Turn) userIndex() int { return t.history + 1 }

// HistoryLen is the number of prior messages injected into the turn.
func (t *Turn) HistoryLen() int { return t.history }

// appendAssistant records a model response. Tool calls without an ID, or
// with an ID already used in this response, get a fresh one so results can
// be correlated.
func (t *Turn) appendAssistant(resp llm.LLMResponse) llm.ChatMessage {
	msg := llm.AssistantMessage(resp.Content)
	if len(resp.ToolCalls) > 0 {
		seen := make(map[string]bool, len(resp.ToolCalls))
		msg.ToolCalls = make([]llm.ToolCall, len(resp.ToolCalls))
		for i, call := range resp.ToolCalls {
			if call.ID == "" || seen[call.ID] {
				call.ID = uuid.NewString()
			}
			seen[call.ID] = true
			msg.ToolCalls[i] = call
		}
	}
	t.messages = append(t.messages, msg)
	return msg
}

func (t *Turn) appendResults(invs []tools.Invocation) {
	for _, inv := range invs {
		t.messages = append(t.messages, inv.Message())
	}
}

// answer is the text of the final assistant message, or failing that the
// most recent assistant message of this turn that had any. Injected history
// never counts.
func (t *Turn) answer() string {
	for i := len(t.messages) - 1; i > t.userIndex(); i-- {
		m := t.messages[i]
		if m.Role == llm.RoleAssistant && strings.TrimSpace(m.Content) != "" {
			return m.Content
		}
	}
	return ""
}

// emergencyGuidance classifies the symptom argument of every emergency
// guidance call the model made during the turn.
func (t *Turn) emergencyGuidance() (string, bool) {
	for _, m := range t.messages {
		for _, call := range m.ToolCalls {
			if call.Name != tools.NameEmergency {
				continue
			}
			args, err := argjson.Object(call.Arguments)
			if err != nil {
				continue
			}
			symptom, _ := args["symptom"].(string)
			if guidance, ok := tools.ClassifyEmergency(symptom); ok {
				return guidance, true
			}
		}
	}
	return "", false
}

// Validate checks that every tool-result message answers a call of the
// assistant message just before it, in the order the calls were made, and
// that no call is left unanswered.
func (t *Turn) Validate() error {
	var pending []string
	for i, m := range t.messages {
		if m.Role == llm.RoleTool {
			if len(pending) == 0 {
				return fmt.Errorf("message %d: tool result %q answers no outstanding call", i, m.ToolCallID)
			}
			if m.ToolCallID != pending[0] {
				return fmt.Errorf("message %d: tool result %q, expected %q", i, m.ToolCallID, pending[0])
			}
			pending = pending[1:]
			continue
		}
		if len(pending) > 0 {
			return fmt.Errorf("message %d: %d tool call(s) unanswered", i, len(pending))
		}
		for _, call := range m.ToolCalls {
			pending = append(pending, call.ID)
		}
	}
	if len(pending) > 0 {
		return fmt.Errorf("%d tool call(s) unanswered at end of turn", len(pending))
	}
	return nil
}
