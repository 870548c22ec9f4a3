package project

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lanternai/lantern/internal/log"
	"github.com/lanternai/lantern/internal/sqlc"
)

// uniqueViolation is the PostgreSQL error code for unique constraint violations.
const uniqueViolation = "23505"

// Querier defines the database operations Store needs.
// Interfaces are defined by the consumer, not the provider.
type Querier interface {
	CreateProject(ctx context.Context, arg sqlc.CreateProjectParams) (sqlc.Project, error)
	GetProject(ctx context.Context, id pgtype.UUID) (sqlc.Project, error)
	GetProjectByAPIKey(ctx context.Context, apiKey string) (sqlc.Project, error)
	GetProjectByNamespace(ctx context.Context, vectorNamespace string) (sqlc.Project, error)
	ListProjects(ctx context.Context, arg sqlc.ListProjectsParams) ([]sqlc.Project, error)
	UpdateProject(ctx context.Context, arg sqlc.UpdateProjectParams) (sqlc.Project, error)
	DeleteProject(ctx context.Context, id pgtype.UUID) (int64, error)
	DeleteProjectDocuments(ctx context.Context, projectID pgtype.UUID) error
	DeleteProjectMessages(ctx context.Context, projectID pgtype.UUID) error
	DeleteProjectSessions(ctx context.Context, projectID pgtype.UUID) error
}

// Store manages project persistence.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	querier Querier
	pool    *pgxpool.Pool // transaction support, nil in unit tests
	logger  log.Logger
}

// New creates a Store. The pool may be nil when testing with a mock querier,
// in which case Delete runs without a transaction.
func New(querier Querier, pool *pgxpool.Pool, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{querier: querier, pool: pool, logger: logger}
}

// Create registers a new project. The API key and vector namespace are
// generated server side; the key is only returned here, so callers must
// surface it to the operator.
func (s *Store) Create(ctx context.Context, name, systemPrompt, welcomeMessage string) (*Project, error) {
	if name == "" {
		return nil, ErrInvalidName
	}

	apiKey, err := generateAPIKey()
	if err != nil {
		return nil, fmt.Errorf("generating api key: %w", err)
	}
	namespace, err := generateNamespace()
	if err != nil {
		return nil, fmt.Errorf("generating namespace: %w", err)
	}

	row, err := s.querier.CreateProject(ctx, sqlc.CreateProjectParams{
		Name:            name,
		ApiKey:          apiKey,
		VectorNamespace: namespace,
		SystemPrompt:    nullable(systemPrompt),
		WelcomeMessage:  nullable(welcomeMessage),
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("%w: %s", ErrNamespaceTaken, namespace)
		}
		return nil, fmt.Errorf("creating project: %w", err)
	}

	p := fromRow(row)
	s.logger.Info("created project", "id", p.ID, "name", p.Name)
	return p, nil
}

// Get retrieves a project by id.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Project, error) {
	row, err := s.querier.GetProject(ctx, uuidToPgUUID(id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("getting project %s: %w", id, err)
	}
	return fromRow(row), nil
}

// GetByAPIKey authenticates an API key and returns the owning project.
func (s *Store) GetByAPIKey(ctx context.Context, apiKey string) (*Project, error) {
	row, err := s.querier.GetProjectByAPIKey(ctx, apiKey)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting project by api key: %w", err)
	}
	return fromRow(row), nil
}

// List returns projects ordered by creation time descending.
func (s *Store) List(ctx context.Context, limit, offset int) ([]*Project, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := s.querier.ListProjects(ctx, sqlc.ListProjectsParams{
		ResultLimit:  int32(limit),  // #nosec G115 -- bounded above
		ResultOffset: int32(offset), // #nosec G115
	})
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	projects := make([]*Project, len(rows))
	for i, row := range rows {
		projects[i] = fromRow(row)
	}
	return projects, nil
}

// Apply updates the mutable fields of a project. Nil fields keep their
// current values.
func (s *Store) Apply(ctx context.Context, id uuid.UUID, upd Update) (*Project, error) {
	if upd.Name != nil && *upd.Name == "" {
		return nil, ErrInvalidName
	}

	row, err := s.querier.UpdateProject(ctx, sqlc.UpdateProjectParams{
		Name:           upd.Name,
		SystemPrompt:   upd.SystemPrompt,
		WelcomeMessage: upd.WelcomeMessage,
		ID:             uuidToPgUUID(id),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("updating project %s: %w", id, err)
	}
	return fromRow(row), nil
}

// Delete removes a project and everything it owns: chat messages, sessions,
// and knowledge documents. The cascade runs in a single transaction so a
// partial delete never leaves orphaned tenant data behind.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	if s.pool == nil {
		return s.deleteNonTransactional(ctx, id)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.logger.Debug("transaction rollback", "error", err)
		}
	}()

	if err := s.cascadeDelete(ctx, sqlc.New(tx), id); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing delete: %w", err)
	}

	s.logger.Info("deleted project", "id", id)
	return nil
}

// deleteNonTransactional runs the cascade without a transaction. Only for
// unit tests with mock queriers.
func (s *Store) deleteNonTransactional(ctx context.Context, id uuid.UUID) error {
	return s.cascadeDelete(ctx, s.querier, id)
}

func (s *Store) cascadeDelete(ctx context.Context, q Querier, id uuid.UUID) error {
	pgID := uuidToPgUUID(id)

	// Children first: messages reference sessions, sessions and documents
	// reference the project.
	if err := q.DeleteProjectMessages(ctx, pgID); err != nil {
		return fmt.Errorf("deleting project messages: %w", err)
	}
	if err := q.DeleteProjectSessions(ctx, pgID); err != nil {
		return fmt.Errorf("deleting project sessions: %w", err)
	}
	if err := q.DeleteProjectDocuments(ctx, pgID); err != nil {
		return fmt.Errorf("deleting project documents: %w", err)
	}

	affected, err := q.DeleteProject(ctx, pgID)
	if err != nil {
		return fmt.Errorf("deleting project %s: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// generateAPIKey returns a new secret key with the "sk_" prefix.
func generateAPIKey() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "sk_" + hex.EncodeToString(buf), nil
}

// generateNamespace returns a new vector namespace identifier.
func generateNamespace() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "ns_" + hex.EncodeToString(buf), nil
}

func fromRow(row sqlc.Project) *Project {
	p := &Project{
		ID:              pgUUIDToUUID(row.ID),
		Name:            row.Name,
		APIKey:          row.ApiKey,
		VectorNamespace: row.VectorNamespace,
		CreatedAt:       timestamptzToTime(row.CreatedAt),
	}
	if row.SystemPrompt != nil {
		p.SystemPrompt = *row.SystemPrompt
	}
	if row.WelcomeMessage != nil {
		p.WelcomeMessage = *row.WelcomeMessage
	}
	return p
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func uuidToPgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func pgUUIDToUUID(pgUUID pgtype.UUID) uuid.UUID {
	return uuid.UUID(pgUUID.Bytes)
}

func timestamptzToTime(ts pgtype.Timestamptz) time.Time {
	if !ts.Valid {
		return time.Time{}
	}
	return ts.Time
}

// MarshalRedacted renders a project for list endpoints with the API key
// masked. Full keys are only shown at creation time.
func (p *Project) MarshalRedacted() ([]byte, error) {
	masked := *p
	if len(masked.APIKey) > 7 {
		masked.APIKey = masked.APIKey[:7] + "..."
	}
	return json.Marshal(masked)
}
