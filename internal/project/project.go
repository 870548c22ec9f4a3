// Package project manages tenants. Each project owns an API key, a unique
// vector namespace isolating its knowledge base, and prompt settings for its
// chat widget.
package project

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors returned by Store operations.
var (
	// ErrNotFound indicates no project matches the given identifier or API key.
	ErrNotFound = errors.New("project not found")

	// ErrNamespaceTaken indicates the requested vector namespace is already
	// in use by another project.
	ErrNamespaceTaken = errors.New("vector namespace already taken")

	// ErrInvalidName indicates the project name is empty.
	ErrInvalidName = errors.New("project name cannot be empty")
)

// Project is a tenant of the platform.
type Project struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	APIKey          string    `json:"api_key"`
	VectorNamespace string    `json:"vector_namespace"`
	SystemPrompt    string    `json:"system_prompt,omitempty"`
	WelcomeMessage  string    `json:"welcome_message,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Update carries the mutable fields of a project. Nil means keep the current
// value.
type Update struct {
	Name           *string
	SystemPrompt   *string
	WelcomeMessage *string
}
