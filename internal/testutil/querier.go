package testutil

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lanternai/lantern/internal/sqlc"
)

// MemoryQuerier is an in-memory implementation of sqlc.Querier. It mimics
// the behavior the real queries have against PostgreSQL, including L2
// ordering of document search and jsonb-style metadata merging, so handler
// and store tests can run without a database.
//
// Thread-safe for concurrent use.
type MemoryQuerier struct {
	mu sync.Mutex

	projects     map[uuid.UUID]sqlc.Project
	documents    []sqlc.InsertDocumentParams
	documentIDs  []uuid.UUID
	sessions     map[uuid.UUID]sqlc.ChatSession
	messages     map[uuid.UUID]sqlc.ChatMessage
	messageOrder map[uuid.UUID][]uuid.UUID
}

var _ sqlc.Querier = (*MemoryQuerier)(nil)

// NewMemoryQuerier creates an empty MemoryQuerier.
func NewMemoryQuerier() *MemoryQuerier {
	return &MemoryQuerier{
		projects:     make(map[uuid.UUID]sqlc.Project),
		sessions:     make(map[uuid.UUID]sqlc.ChatSession),
		messages:     make(map[uuid.UUID]sqlc.ChatMessage),
		messageOrder: make(map[uuid.UUID][]uuid.UUID),
	}
}

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func now() pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: time.Now(), Valid: true}
}

func (m *MemoryQuerier) CreateProject(_ context.Context, arg sqlc.CreateProjectParams) (sqlc.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row := sqlc.Project{
		ID:              pgUUID(uuid.New()),
		Name:            arg.Name,
		ApiKey:          arg.ApiKey,
		VectorNamespace: arg.VectorNamespace,
		SystemPrompt:    arg.SystemPrompt,
		WelcomeMessage:  arg.WelcomeMessage,
		CreatedAt:       now(),
	}
	m.projects[uuid.UUID(row.ID.Bytes)] = row
	return row, nil
}

func (m *MemoryQuerier) GetProject(_ context.Context, id pgtype.UUID) (sqlc.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.projects[uuid.UUID(id.Bytes)]
	if !ok {
		return sqlc.Project{}, pgx.ErrNoRows
	}
	return row, nil
}

func (m *MemoryQuerier) GetProjectByAPIKey(_ context.Context, apiKey string) (sqlc.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.projects {
		if row.ApiKey == apiKey {
			return row, nil
		}
	}
	return sqlc.Project{}, pgx.ErrNoRows
}

func (m *MemoryQuerier) GetProjectByNamespace(_ context.Context, ns string) (sqlc.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.projects {
		if row.VectorNamespace == ns {
			return row, nil
		}
	}
	return sqlc.Project{}, pgx.ErrNoRows
}

func (m *MemoryQuerier) ListProjects(_ context.Context, arg sqlc.ListProjectsParams) ([]sqlc.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := make([]sqlc.Project, 0, len(m.projects))
	for _, row := range m.projects {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].CreatedAt.Time.After(rows[j].CreatedAt.Time)
	})
	if int(arg.ResultOffset) < len(rows) {
		rows = rows[arg.ResultOffset:]
	} else {
		rows = nil
	}
	if len(rows) > int(arg.ResultLimit) {
		rows = rows[:arg.ResultLimit]
	}
	return rows, nil
}

func (m *MemoryQuerier) UpdateProject(_ context.Context, arg sqlc.UpdateProjectParams) (sqlc.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.projects[uuid.UUID(arg.ID.Bytes)]
	if !ok {
		return sqlc.Project{}, pgx.ErrNoRows
	}
	if arg.Name != nil {
		row.Name = *arg.Name
	}
	if arg.SystemPrompt != nil {
		row.SystemPrompt = arg.SystemPrompt
	}
	if arg.WelcomeMessage != nil {
		row.WelcomeMessage = arg.WelcomeMessage
	}
	m.projects[uuid.UUID(arg.ID.Bytes)] = row
	return row, nil
}

func (m *MemoryQuerier) DeleteProject(_ context.Context, id pgtype.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[uuid.UUID(id.Bytes)]; !ok {
		return 0, nil
	}
	delete(m.projects, uuid.UUID(id.Bytes))
	return 1, nil
}

func (m *MemoryQuerier) DeleteProjectDocuments(_ context.Context, projectID pgtype.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.documents[:0]
	keptIDs := m.documentIDs[:0]
	for i, doc := range m.documents {
		if doc.ProjectID != projectID {
			kept = append(kept, doc)
			keptIDs = append(keptIDs, m.documentIDs[i])
		}
	}
	m.documents = kept
	m.documentIDs = keptIDs
	return nil
}

func (m *MemoryQuerier) DeleteProjectSessions(_ context.Context, projectID pgtype.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, row := range m.sessions {
		if row.ProjectID == projectID {
			delete(m.sessions, id)
		}
	}
	return nil
}

func (m *MemoryQuerier) DeleteProjectMessages(_ context.Context, projectID pgtype.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for sid, row := range m.sessions {
		if row.ProjectID != projectID {
			continue
		}
		for _, mid := range m.messageOrder[sid] {
			delete(m.messages, mid)
		}
		delete(m.messageOrder, sid)
	}
	return nil
}

func (m *MemoryQuerier) InsertDocument(_ context.Context, arg sqlc.InsertDocumentParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents = append(m.documents, arg)
	m.documentIDs = append(m.documentIDs, uuid.New())
	return nil
}

func (m *MemoryQuerier) SearchDocuments(_ context.Context, arg sqlc.SearchDocumentsParams) ([]sqlc.SearchDocumentsRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	query := arg.QueryEmbedding.Slice()
	var rows []sqlc.SearchDocumentsRow
	for i, doc := range m.documents {
		if doc.ProjectID != arg.ProjectID {
			continue
		}
		var stored []float32
		if doc.Embedding != nil {
			stored = doc.Embedding.Slice()
		}
		rows = append(rows, sqlc.SearchDocumentsRow{
			ID:        pgUUID(m.documentIDs[i]),
			ProjectID: doc.ProjectID,
			Content:   doc.Content,
			Metadata:  doc.Metadata,
			Distance:  l2Distance(query, stored),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Distance < rows[j].Distance })
	if len(rows) > int(arg.ResultLimit) {
		rows = rows[:arg.ResultLimit]
	}
	return rows, nil
}

func (m *MemoryQuerier) CountProjectDocuments(_ context.Context, projectID pgtype.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, doc := range m.documents {
		if doc.ProjectID == projectID {
			n++
		}
	}
	return n, nil
}

func (m *MemoryQuerier) CreateChatSession(_ context.Context, projectID pgtype.UUID) (sqlc.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row := sqlc.ChatSession{
		ID:        pgUUID(uuid.New()),
		ProjectID: projectID,
		Metadata:  []byte(`{}`),
		CreatedAt: now(),
		UpdatedAt: now(),
	}
	m.sessions[uuid.UUID(row.ID.Bytes)] = row
	return row, nil
}

func (m *MemoryQuerier) GetChatSession(_ context.Context, id pgtype.UUID) (sqlc.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.sessions[uuid.UUID(id.Bytes)]
	if !ok {
		return sqlc.ChatSession{}, pgx.ErrNoRows
	}
	return row, nil
}

func (m *MemoryQuerier) ListChatSessions(_ context.Context, arg sqlc.ListChatSessionsParams) ([]sqlc.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rows []sqlc.ChatSession
	for _, row := range m.sessions {
		if row.ProjectID == arg.ProjectID {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].UpdatedAt.Time.After(rows[j].UpdatedAt.Time)
	})
	if len(rows) > int(arg.ResultLimit) {
		rows = rows[:arg.ResultLimit]
	}
	return rows, nil
}

func (m *MemoryQuerier) MergeSessionMetadata(_ context.Context, arg sqlc.MergeSessionMetadataParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.sessions[uuid.UUID(arg.ID.Bytes)]
	if !ok {
		return pgx.ErrNoRows
	}
	row.Metadata = mergeJSON(row.Metadata, arg.Patch)
	row.UpdatedAt = now()
	m.sessions[uuid.UUID(arg.ID.Bytes)] = row
	return nil
}

func (m *MemoryQuerier) AddChatMessage(_ context.Context, arg sqlc.AddChatMessageParams) (sqlc.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row := sqlc.ChatMessage{
		ID:        pgUUID(uuid.New()),
		SessionID: arg.SessionID,
		Role:      arg.Role,
		Content:   arg.Content,
		CreatedAt: now(),
	}
	m.messages[uuid.UUID(row.ID.Bytes)] = row
	sid := uuid.UUID(arg.SessionID.Bytes)
	m.messageOrder[sid] = append(m.messageOrder[sid], uuid.UUID(row.ID.Bytes))
	return row, nil
}

func (m *MemoryQuerier) GetChatMessages(_ context.Context, sessionID pgtype.UUID) ([]sqlc.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rows []sqlc.ChatMessage
	for _, id := range m.messageOrder[uuid.UUID(sessionID.Bytes)] {
		rows = append(rows, m.messages[id])
	}
	return rows, nil
}

func (m *MemoryQuerier) SetMessageFeedback(_ context.Context, arg sqlc.SetMessageFeedbackParams) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.messages[uuid.UUID(arg.ID.Bytes)]
	if !ok {
		return 0, nil
	}
	// The UPDATE joins through chat_sessions on project_id.
	sess, ok := m.sessions[uuid.UUID(row.SessionID.Bytes)]
	if !ok || sess.ProjectID != arg.ProjectID {
		return 0, nil
	}
	row.FeedbackScore = arg.FeedbackScore
	m.messages[uuid.UUID(arg.ID.Bytes)] = row
	return 1, nil
}

// Message returns a stored message by id, for assertions.
func (m *MemoryQuerier) Message(id uuid.UUID) (sqlc.ChatMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.messages[id]
	return row, ok
}

func l2Distance(a, b []float32) float64 {
	n := min(len(a), len(b))
	var sum float64
	for i := 0; i < n; i++ {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

func mergeJSON(base, patch []byte) []byte {
	// Metadata blobs are tiny; a decode/merge/encode round trip mirrors the
	// jsonb || operator closely enough for tests.
	merged := make(map[string]any)
	_ = json.Unmarshal(base, &merged)
	patchMap := make(map[string]any)
	_ = json.Unmarshal(patch, &patchMap)
	for k, v := range patchMap {
		merged[k] = v
	}
	out, _ := json.Marshal(merged)
	return out
}
