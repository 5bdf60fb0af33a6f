package chat

import (
	"time"

	"github.com/suPer8Hu/ai-chatbot/internal/ai"
)

const (
	DefaultTitle = "New Chat"

	GreetingText = "Hello! I'm your AI assistant. How can I help you today?"
	FallbackText = "Sorry, I encountered an error. Please try again."

	firstPreview = "Hello! I'm your AI assistant..."
	newPreview   = "Start a new conversation..."
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Session struct {
	ID        uint64    `json:"id"`
	Title     string    `json:"title"`
	Preview   string    `json:"preview"`
	CreatedAt time.Time `json:"created_at"`
}

// Message ids are unique within their session and grow in send order.
type Message struct {
	ID      uint64    `json:"id"`
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	SentAt  time.Time `json:"sent_at"`
}

// ToProviderMessages maps a session history onto the provider schema,
// preserving order.
func ToProviderMessages(msgs []Message) []ai.Message {
	out := make([]ai.Message, 0, len(msgs))
	for _, m := range msgs {
		role := ai.RoleUser
		if m.Role == RoleAssistant {
			role = ai.RoleAssistant
		}
		out = append(out, ai.Message{Role: role, Content: m.Content})
	}
	return out
}
