// Package llm defines the generation capability consumed by the synthesizer
// and the optional LLM-backed classifier. Providers live under contrib/llm.
package llm

import "context"

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single chat message.
type Message struct {
	Role    Role
	Content string
}

// Client generates text from an ordered message sequence.
type Client interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}

// NewMessage builds a message with the given role and content.
func NewMessage(role Role, content string) Message {
	return Message{Role: role, Content: content}
}
