// Package knowledge manages per-tenant document storage and retrieval over
// pgvector. Documents are chunked, embedded, and stored in a shared table
// partitioned logically by project id; every search is scoped to a single
// project so tenants can never see each other's content.
package knowledge

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors returned by Store operations.
var (
	// ErrProjectNotFound indicates the target project does not exist.
	ErrProjectNotFound = errors.New("project not found")

	// ErrEmbeddingFailed indicates the embedding provider returned an error
	// or a malformed response.
	ErrEmbeddingFailed = errors.New("embedding failed")
)

// Result is one retrieved chunk with its distance from the query.
// Lower distance means a closer match (L2).
type Result struct {
	ID       uuid.UUID      `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Distance float64        `json:"distance"`

	CreatedAt time.Time `json:"created_at"`
}
