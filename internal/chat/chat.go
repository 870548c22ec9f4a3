// Package chat orchestrates one chat turn: resolve the tenant and session,
// persist the user message, retrieve knowledge context, stream the model
// response to the caller, and finalize the turn exactly once no matter which
// branch it took.
package chat

import (
	"context"
	"errors"

	"github.com/firebase/genkit/go/genkit"
	"github.com/google/uuid"

	"github.com/lanternai/lantern/internal/knowledge"
	"github.com/lanternai/lantern/internal/log"
	"github.com/lanternai/lantern/internal/project"
	"github.com/lanternai/lantern/internal/session"
)

// Frame types sent to the transport.
const (
	FrameToken = "token"
	FrameDone  = "done"
	FrameError = "error"
)

// Sentinel errors for chat turns.
var (
	// ErrProjectNotFound indicates the project does not exist.
	ErrProjectNotFound = errors.New("project not found")

	// ErrEmptyMessage indicates the inbound message has no content.
	ErrEmptyMessage = errors.New("message cannot be empty")

	// ErrGenerationFailed indicates the model failed before or during streaming.
	ErrGenerationFailed = errors.New("generation failed")
)

// Frame is one outbound unit on the chat stream. Every turn ends with a
// FrameDone; an error turn sends a FrameError first. The done frame carries
// the resolved session id so clients can continue the conversation.
type Frame struct {
	Type      string `json:"type"`
	Content   string `json:"content,omitempty"`
	Error     string `json:"error,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// EmitFunc delivers one frame to the transport. Returning an error aborts
// the stream; the turn still finalizes.
type EmitFunc func(Frame) error

// Turn is the persisted outcome of one processed message.
type Turn struct {
	Session          *session.Session
	UserMessage      *session.Message
	AssistantMessage *session.Message

	// FirstTokenMillis is the latency from user-message persistence to the
	// first non-empty generated fragment. Zero when nothing was generated.
	FirstTokenMillis int64
}

// ProjectResolver resolves tenants. Satisfied by *project.Store.
type ProjectResolver interface {
	Get(ctx context.Context, id uuid.UUID) (*project.Project, error)
}

// SessionStore persists sessions and messages. Satisfied by *session.Store.
type SessionStore interface {
	GetOrCreate(ctx context.Context, projectID, sessionID uuid.UUID) (*session.Session, error)
	AppendMessage(ctx context.Context, sessionID uuid.UUID, role, content string) (*session.Message, error)
	RecordLatency(ctx context.Context, sessionID uuid.UUID, millis int64) error
}

// Retriever searches a project's knowledge base. Satisfied by
// *knowledge.Store.
type Retriever interface {
	Search(ctx context.Context, projectID uuid.UUID, query string, limit int) ([]knowledge.Result, error)
}

// Config contains all required parameters for the chat Engine.
type Config struct {
	Genkit    *genkit.Genkit
	ModelName string

	Projects  ProjectResolver
	Sessions  SessionStore
	Retriever Retriever

	// SearchLimit is the number of knowledge chunks injected into the
	// prompt. Zero uses the default of 4.
	SearchLimit int

	Logger log.Logger
}

func (cfg Config) validate() error {
	if cfg.Genkit == nil {
		return errors.New("genkit instance is required")
	}
	if cfg.ModelName == "" {
		return errors.New("model name is required")
	}
	if cfg.Projects == nil {
		return errors.New("project resolver is required")
	}
	if cfg.Sessions == nil {
		return errors.New("session store is required")
	}
	if cfg.Retriever == nil {
		return errors.New("retriever is required")
	}
	return nil
}

// Engine processes chat turns. It is stateless across turns and safe for
// concurrent use by multiple goroutines.
type Engine struct {
	g           *genkit.Genkit
	modelName   string
	projects    ProjectResolver
	sessions    SessionStore
	retriever   Retriever
	searchLimit int
	logger      log.Logger
}

// New creates an Engine from the given configuration.
func New(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	limit := cfg.SearchLimit
	if limit < 1 {
		limit = 4
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	return &Engine{
		g:           cfg.Genkit,
		modelName:   cfg.ModelName,
		projects:    cfg.Projects,
		sessions:    cfg.Sessions,
		retriever:   cfg.Retriever,
		searchLimit: limit,
		logger:      logger,
	}, nil
}
