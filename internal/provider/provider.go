package provider

import "context"

// Role tags a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Message represents a chat message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the normalized request accepted by POST /chat.
type ChatRequest struct {
	Provider string    `json:"provider"`
	Prompt   string    `json:"prompt"`
	History  []Message `json:"history"`
}

// ChatResponse is returned for every provider.
type ChatResponse struct {
	Response string `json:"response"`
}

// Provider generates a reply for prompt given the prior turns in history.
// Implementations must not modify history.
type Provider interface {
	Generate(ctx context.Context, prompt string, history []Message) (string, error)
}

// WithPrompt returns a new slice holding history followed by prompt as a user
// turn. history itself is left untouched.
func WithPrompt(history []Message, prompt string) []Message {
	out := make([]Message, 0, len(history)+1)
	out = append(out, history...)
	return append(out, Message{Role: RoleUser, Content: prompt})
}
