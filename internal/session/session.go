// Package session manages chat sessions and message history. Sessions belong
// to a project; a session id presented against the wrong project is treated
// as unknown and a fresh session is started, so tenants cannot read each
// other's conversations.
package session

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Message roles stored in chat history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Sentinel errors returned by Store operations.
var (
	// ErrSessionNotFound indicates no session matches the given id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrMessageNotFound indicates no message matches the given id.
	ErrMessageNotFound = errors.New("message not found")

	// ErrInvalidRole indicates the message role is not user, assistant, or system.
	ErrInvalidRole = errors.New("invalid message role")

	// ErrInvalidFeedback indicates the feedback score is not -1 or +1.
	ErrInvalidFeedback = errors.New("feedback score must be -1 or +1")
)

// Session is one conversation between an end user and a project's assistant.
type Session struct {
	ID        uuid.UUID      `json:"id"`
	ProjectID uuid.UUID      `json:"project_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Message is one turn of a conversation.
type Message struct {
	ID            uuid.UUID `json:"id"`
	SessionID     uuid.UUID `json:"session_id"`
	Role          string    `json:"role"`
	Content       string    `json:"content"`
	FeedbackScore *int32    `json:"feedback_score,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
