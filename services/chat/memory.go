// Package chat implements the conversation flow: history windowing, knowledge
// context injection, and the call out to the provider adapter.
package chat

import (
	"github.com/WriterGao/CoreMind/models"
	"github.com/WriterGao/CoreMind/services/llm"
)

// DefaultMaxHistory bounds the history window when an assistant does not set one
const DefaultMaxHistory = 10

// Window trims message history to the last maxHistory entries while always
// preserving a leading system message. maxHistory <= 0 falls back to
// DefaultMaxHistory.
func Window(messages []llm.Message, maxHistory int) []llm.Message {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}

	var system *llm.Message
	rest := messages
	if len(messages) > 0 && messages[0].Role == models.RoleSystem {
		system = &messages[0]
		rest = messages[1:]
	}

	if len(rest) > maxHistory {
		rest = rest[len(rest)-maxHistory:]
	}

	if system == nil {
		return rest
	}

	out := make([]llm.Message, 0, len(rest)+1)
	out = append(out, *system)
	out = append(out, rest...)
	return out
}

// toWireMessages converts persisted messages to adapter messages
func toWireMessages(messages []*models.ChatMessage) []llm.Message {
	out := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, llm.Message{Role: m.Role, Content: m.Content})
	}
	return out
}
