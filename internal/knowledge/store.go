package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pgvector/pgvector-go"

	"github.com/lanternai/lantern/internal/chunk"
	"github.com/lanternai/lantern/internal/log"
	"github.com/lanternai/lantern/internal/sqlc"
)

// embedBatchSize caps how many chunks go into a single embed request.
// Provider APIs reject oversized batches.
const embedBatchSize = 16

// Querier defines the database operations Store needs.
type Querier interface {
	GetProject(ctx context.Context, id pgtype.UUID) (sqlc.Project, error)
	InsertDocument(ctx context.Context, arg sqlc.InsertDocumentParams) error
	SearchDocuments(ctx context.Context, arg sqlc.SearchDocumentsParams) ([]sqlc.SearchDocumentsRow, error)
	CountProjectDocuments(ctx context.Context, projectID pgtype.UUID) (int64, error)
}

// Store ingests documents into a project's knowledge base and retrieves the
// nearest chunks for a query.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	querier  Querier
	embedder ai.Embedder
	splitter *chunk.Splitter
	logger   log.Logger
}

// New creates a Store.
func New(querier Querier, embedder ai.Embedder, splitter *chunk.Splitter, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{
		querier:  querier,
		embedder: embedder,
		splitter: splitter,
		logger:   logger,
	}
}

// Ingest chunks content, embeds each chunk, and stores the chunks under the
// given project. It returns the number of chunks stored.
//
// Chunks are embedded in batches. A failure partway through leaves earlier
// chunks stored; callers may retry the whole document, duplicates are
// acceptable for retrieval.
func (s *Store) Ingest(ctx context.Context, projectID uuid.UUID, content string, metadata map[string]any) (int, error) {
	if _, err := s.querier.GetProject(ctx, uuidToPgUUID(projectID)); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
		}
		return 0, fmt.Errorf("checking project %s: %w", projectID, err)
	}

	chunks := s.splitter.Split(content, metadata)
	if len(chunks) == 0 {
		// Empty or whitespace-only content is a no-op, not an error.
		return 0, nil
	}

	stored := 0
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := min(start+embedBatchSize, len(chunks))
		batch := chunks[start:end]

		vectors, err := s.embedBatch(ctx, batch)
		if err != nil {
			return stored, err
		}

		for i, c := range batch {
			metadataJSON, err := json.Marshal(c.Metadata)
			if err != nil {
				return stored, fmt.Errorf("marshaling chunk metadata: %w", err)
			}
			vec := pgvector.NewVector(vectors[i])
			if err := s.querier.InsertDocument(ctx, sqlc.InsertDocumentParams{
				ProjectID: uuidToPgUUID(projectID),
				Content:   c.Content,
				Metadata:  metadataJSON,
				Embedding: &vec,
			}); err != nil {
				return stored, fmt.Errorf("inserting chunk %d: %w", c.Index, err)
			}
			stored++
		}
	}

	s.logger.Info("ingested document",
		"project_id", projectID, "chunks", stored, "characters", len(content))
	return stored, nil
}

// Search embeds the query and returns the limit nearest chunks in the
// project's knowledge base, closest first. An empty knowledge base yields an
// empty slice, not an error.
func (s *Store) Search(ctx context.Context, projectID uuid.UUID, query string, limit int) ([]Result, error) {
	if limit < 1 {
		limit = 4
	}

	vectors, err := s.embedTexts(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	queryVec := pgvector.NewVector(vectors[0])

	rows, err := s.querier.SearchDocuments(ctx, sqlc.SearchDocumentsParams{
		QueryEmbedding: &queryVec,
		ProjectID:      uuidToPgUUID(projectID),
		ResultLimit:    int32(limit), // #nosec G115 -- bounded above
	})
	if err != nil {
		return nil, fmt.Errorf("searching documents: %w", err)
	}

	return rowsToResults(rows, s.logger), nil
}

// Count reports how many chunks are stored for a project.
func (s *Store) Count(ctx context.Context, projectID uuid.UUID) (int64, error) {
	n, err := s.querier.CountProjectDocuments(ctx, uuidToPgUUID(projectID))
	if err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}

func (s *Store) embedBatch(ctx context.Context, chunks []chunk.Chunk) ([][]float32, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	return s.embedTexts(ctx, texts)
}

func (s *Store) embedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	docs := make([]*ai.Document, len(texts))
	for i, t := range texts {
		docs[i] = &ai.Document{Content: []*ai.Part{ai.NewTextPart(t)}}
	}

	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{Input: docs})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs",
			ErrEmbeddingFailed, len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		vectors[i] = e.Embedding
	}
	return vectors, nil
}

func rowsToResults(rows []sqlc.SearchDocumentsRow, logger log.Logger) []Result {
	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		r := Result{
			ID:        pgUUIDToUUID(row.ID),
			Content:   row.Content,
			Distance:  row.Distance,
			CreatedAt: row.CreatedAt.Time,
		}
		if len(row.Metadata) > 0 {
			if err := json.Unmarshal(row.Metadata, &r.Metadata); err != nil {
				// Malformed metadata does not block retrieval.
				logger.Warn("skipping malformed document metadata",
					"document_id", r.ID, "error", err)
				r.Metadata = nil
			}
		}
		results = append(results, r)
	}
	return results
}

func uuidToPgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func pgUUIDToUUID(pgUUID pgtype.UUID) uuid.UUID {
	return uuid.UUID(pgUUID.Bytes)
}
