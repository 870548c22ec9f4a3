package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lanternai/lantern/internal/log"
	"github.com/lanternai/lantern/internal/sqlc"
)

// Querier defines the database operations Store needs.
type Querier interface {
	CreateChatSession(ctx context.Context, projectID pgtype.UUID) (sqlc.ChatSession, error)
	GetChatSession(ctx context.Context, id pgtype.UUID) (sqlc.ChatSession, error)
	ListChatSessions(ctx context.Context, arg sqlc.ListChatSessionsParams) ([]sqlc.ChatSession, error)
	MergeSessionMetadata(ctx context.Context, arg sqlc.MergeSessionMetadataParams) error
	AddChatMessage(ctx context.Context, arg sqlc.AddChatMessageParams) (sqlc.ChatMessage, error)
	GetChatMessages(ctx context.Context, sessionID pgtype.UUID) ([]sqlc.ChatMessage, error)
	SetMessageFeedback(ctx context.Context, arg sqlc.SetMessageFeedbackParams) (int64, error)
}

// Store manages session and message persistence.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	querier Querier
	logger  log.Logger
}

// New creates a Store.
func New(querier Querier, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{querier: querier, logger: logger}
}

// GetOrCreate resolves the session a chat turn belongs to. A zero sessionID
// starts a fresh session. An unknown id, or an id owned by a different
// project, also starts a fresh session rather than failing the turn or
// leaking another tenant's conversation.
func (s *Store) GetOrCreate(ctx context.Context, projectID, sessionID uuid.UUID) (*Session, error) {
	if sessionID != uuid.Nil {
		row, err := s.querier.GetChatSession(ctx, uuidToPgUUID(sessionID))
		switch {
		case err == nil:
			if pgUUIDToUUID(row.ProjectID) == projectID {
				return sessionFromRow(row), nil
			}
			s.logger.Warn("session belongs to different project, starting new session",
				"session_id", sessionID, "project_id", projectID)
		case errors.Is(err, pgx.ErrNoRows):
			s.logger.Debug("session not found, starting new session",
				"session_id", sessionID)
		default:
			return nil, fmt.Errorf("getting session %s: %w", sessionID, err)
		}
	}

	row, err := s.querier.CreateChatSession(ctx, uuidToPgUUID(projectID))
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	return sessionFromRow(row), nil
}

// Get retrieves a session by id, scoped to a project.
func (s *Store) Get(ctx context.Context, projectID, sessionID uuid.UUID) (*Session, error) {
	row, err := s.querier.GetChatSession(ctx, uuidToPgUUID(sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return nil, fmt.Errorf("getting session %s: %w", sessionID, err)
	}
	if pgUUIDToUUID(row.ProjectID) != projectID {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return sessionFromRow(row), nil
}

// ListForProject returns a project's sessions, most recently active first.
func (s *Store) ListForProject(ctx context.Context, projectID uuid.UUID, limit int) ([]*Session, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := s.querier.ListChatSessions(ctx, sqlc.ListChatSessionsParams{
		ProjectID:   uuidToPgUUID(projectID),
		ResultLimit: int32(limit), // #nosec G115 -- bounded above
	})
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	sessions := make([]*Session, len(rows))
	for i, row := range rows {
		sessions[i] = sessionFromRow(row)
	}
	return sessions, nil
}

// AppendMessage persists one message and returns it with its assigned id.
func (s *Store) AppendMessage(ctx context.Context, sessionID uuid.UUID, role, content string) (*Message, error) {
	switch role {
	case RoleUser, RoleAssistant, RoleSystem:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	row, err := s.querier.AddChatMessage(ctx, sqlc.AddChatMessageParams{
		SessionID: uuidToPgUUID(sessionID),
		Role:      role,
		Content:   content,
	})
	if err != nil {
		return nil, fmt.Errorf("appending %s message: %w", role, err)
	}
	return messageFromRow(row), nil
}

// Messages returns a session's history in chronological order.
func (s *Store) Messages(ctx context.Context, sessionID uuid.UUID) ([]*Message, error) {
	rows, err := s.querier.GetChatMessages(ctx, uuidToPgUUID(sessionID))
	if err != nil {
		return nil, fmt.Errorf("getting messages for session %s: %w", sessionID, err)
	}
	messages := make([]*Message, len(rows))
	for i, row := range rows {
		messages[i] = messageFromRow(row)
	}
	return messages, nil
}

// RecordLatency merges the response latency of the latest turn into the
// session metadata. Existing metadata keys are preserved.
func (s *Store) RecordLatency(ctx context.Context, sessionID uuid.UUID, millis int64) error {
	patch, err := json.Marshal(map[string]int64{"last_response_ms": millis})
	if err != nil {
		return fmt.Errorf("marshaling latency patch: %w", err)
	}
	if err := s.querier.MergeSessionMetadata(ctx, sqlc.MergeSessionMetadataParams{
		Patch: patch,
		ID:    uuidToPgUUID(sessionID),
	}); err != nil {
		return fmt.Errorf("recording latency for session %s: %w", sessionID, err)
	}
	return nil
}

// SetFeedback records a thumbs up (+1) or thumbs down (-1) on a message.
// Repeated calls overwrite the previous score. The update is scoped to the
// given project; a message owned by another project reports not-found, the
// same as a message that does not exist.
func (s *Store) SetFeedback(ctx context.Context, projectID, messageID uuid.UUID, score int32) error {
	if score != 1 && score != -1 {
		return fmt.Errorf("%w: got %d", ErrInvalidFeedback, score)
	}

	affected, err := s.querier.SetMessageFeedback(ctx, sqlc.SetMessageFeedbackParams{
		ID:            uuidToPgUUID(messageID),
		FeedbackScore: &score,
		ProjectID:     uuidToPgUUID(projectID),
	})
	if err != nil {
		return fmt.Errorf("setting feedback on message %s: %w", messageID, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrMessageNotFound, messageID)
	}
	return nil
}

func sessionFromRow(row sqlc.ChatSession) *Session {
	sess := &Session{
		ID:        pgUUIDToUUID(row.ID),
		ProjectID: pgUUIDToUUID(row.ProjectID),
		CreatedAt: row.CreatedAt.Time,
		UpdatedAt: row.UpdatedAt.Time,
	}
	if len(row.Metadata) > 0 {
		// Metadata is written by this package, malformed data means a bug,
		// but it must not break session resolution.
		_ = json.Unmarshal(row.Metadata, &sess.Metadata)
	}
	return sess
}

func messageFromRow(row sqlc.ChatMessage) *Message {
	return &Message{
		ID:            pgUUIDToUUID(row.ID),
		SessionID:     pgUUIDToUUID(row.SessionID),
		Role:          row.Role,
		Content:       row.Content,
		FeedbackScore: row.FeedbackScore,
		CreatedAt:     row.CreatedAt.Time,
	}
}

func uuidToPgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func pgUUIDToUUID(pgUUID pgtype.UUID) uuid.UUID {
	return uuid.UUID(pgUUID.Bytes)
}
