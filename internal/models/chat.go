package models

// Chat roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one conversation turn.
type ChatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Sources []string `json:"sources,omitempty"`
}

// ChatRequest is a question about an ingested book.
type ChatRequest struct {
	BookID  string        `json:"bookId"`
	Message string        `json:"message"`
	History []ChatMessage `json:"history,omitempty"`
}
