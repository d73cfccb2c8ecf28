package models

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn in a user's conversation. Rows are append-only.
type Message struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"user_id"`
	ModelTag  string    `json:"model_tag"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// SendMessageRequest is the payload sent to the send endpoint.
type SendMessageRequest struct {
	UserID   string `json:"user_id,omitempty"`
	ModelTag string `json:"model_tag"`
	Prompt   string `json:"prompt"`
}

// SendResult is the success marker returned by a completed send. Clients
// re-fetch history instead of reading messages from it.
type SendResult struct {
	Success bool `json:"success"`
}

type HistoryResponse struct {
	Messages []*Message `json:"messages"`
}
