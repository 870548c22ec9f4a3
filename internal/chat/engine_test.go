package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/uuid"

	"github.com/lanternai/lantern/internal/knowledge"
	"github.com/lanternai/lantern/internal/project"
	"github.com/lanternai/lantern/internal/session"
)

const testModelName = "test/chat-model"

type mockProjects struct {
	projects map[uuid.UUID]*project.Project
}

func (m *mockProjects) Get(_ context.Context, id uuid.UUID) (*project.Project, error) {
	p, ok := m.projects[id]
	if !ok {
		return nil, project.ErrNotFound
	}
	return p, nil
}

type mockSessions struct {
	sessions   map[uuid.UUID]*session.Session
	messages   map[uuid.UUID][]*session.Message
	latencies  map[uuid.UUID]int64
	appendErrs []error // popped per AppendMessage call, nil = success
}

func newMockSessions() *mockSessions {
	return &mockSessions{
		sessions:  make(map[uuid.UUID]*session.Session),
		messages:  make(map[uuid.UUID][]*session.Message),
		latencies: make(map[uuid.UUID]int64),
	}
}

func (m *mockSessions) GetOrCreate(_ context.Context, projectID, sessionID uuid.UUID) (*session.Session, error) {
	if sessionID != uuid.Nil {
		if s, ok := m.sessions[sessionID]; ok && s.ProjectID == projectID {
			return s, nil
		}
	}
	s := &session.Session{ID: uuid.New(), ProjectID: projectID}
	m.sessions[s.ID] = s
	return s, nil
}

func (m *mockSessions) AppendMessage(_ context.Context, sessionID uuid.UUID, role, content string) (*session.Message, error) {
	if len(m.appendErrs) > 0 {
		err := m.appendErrs[0]
		m.appendErrs = m.appendErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	msg := &session.Message{ID: uuid.New(), SessionID: sessionID, Role: role, Content: content}
	m.messages[sessionID] = append(m.messages[sessionID], msg)
	return msg, nil
}

func (m *mockSessions) RecordLatency(_ context.Context, sessionID uuid.UUID, millis int64) error {
	m.latencies[sessionID] = millis
	return nil
}

type mockRetriever struct {
	results []knowledge.Result
	err     error
}

func (m *mockRetriever) Search(_ context.Context, _ uuid.UUID, _ string, _ int) ([]knowledge.Result, error) {
	return m.results, m.err
}

// testModel registers a model whose generate function is supplied per test.
func testModel(t *testing.T, generate func(context.Context, *ai.ModelRequest, ai.ModelStreamCallback) (*ai.ModelResponse, error)) *genkit.Genkit {
	t.Helper()
	g := genkit.Init(context.Background())
	genkit.DefineModel(g, testModelName, &ai.ModelOptions{
		Supports: &ai.ModelSupports{Multiturn: true, SystemRole: true},
	}, generate)
	return g
}

// streamingModel streams the given fragments then returns failWith (nil for
// success).
func streamingModel(t *testing.T, fragments []string, failWith error) *genkit.Genkit {
	t.Helper()
	return testModel(t, func(ctx context.Context, req *ai.ModelRequest, cb ai.ModelStreamCallback) (*ai.ModelResponse, error) {
		var full strings.Builder
		for _, f := range fragments {
			full.WriteString(f)
			if cb != nil {
				if err := cb(ctx, &ai.ModelResponseChunk{
					Content: []*ai.Part{ai.NewTextPart(f)},
				}); err != nil {
					return nil, err
				}
			}
		}
		if failWith != nil {
			return nil, failWith
		}
		return &ai.ModelResponse{
			Request: req,
			Message: &ai.Message{
				Role:    ai.RoleModel,
				Content: []*ai.Part{ai.NewTextPart(full.String())},
			},
		}, nil
	})
}

type fixture struct {
	engine    *Engine
	projectID uuid.UUID
	sessions  *mockSessions
	frames    []Frame
}

func (f *fixture) emit(frame Frame) error {
	f.frames = append(f.frames, frame)
	return nil
}

func newFixture(t *testing.T, g *genkit.Genkit, retriever Retriever) *fixture {
	t.Helper()
	projectID := uuid.New()
	sessions := newMockSessions()
	engine, err := New(Config{
		Genkit:    g,
		ModelName: testModelName,
		Projects: &mockProjects{projects: map[uuid.UUID]*project.Project{
			projectID: {ID: projectID, Name: "Acme"},
		}},
		Sessions:  sessions,
		Retriever: retriever,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return &fixture{engine: engine, projectID: projectID, sessions: sessions}
}

func frameTypes(frames []Frame) []string {
	types := make([]string, len(frames))
	for i, f := range frames {
		types[i] = f.Type
	}
	return types
}

func TestHandleMessageStreamsAndPersists(t *testing.T) {
	g := streamingModel(t, []string{"Hello ", "world"}, nil)
	f := newFixture(t, g, &mockRetriever{})

	turn, err := f.engine.HandleMessage(context.Background(), f.projectID, uuid.Nil, "hi", f.emit)
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	want := []string{"token", "token", "done"}
	got := frameTypes(f.frames)
	if len(got) != len(want) {
		t.Fatalf("frames = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("frames = %v, want %v", got, want)
		}
	}
	if f.frames[0].Content != "Hello " || f.frames[1].Content != "world" {
		t.Errorf("token contents = %q, %q", f.frames[0].Content, f.frames[1].Content)
	}
	if f.frames[2].SessionID != turn.Session.ID.String() {
		t.Errorf("done frame session id = %q, want %s", f.frames[2].SessionID, turn.Session.ID)
	}

	msgs := f.sessions.messages[turn.Session.ID]
	if len(msgs) != 2 {
		t.Fatalf("persisted %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != session.RoleUser || msgs[0].Content != "hi" {
		t.Errorf("user message = %s %q", msgs[0].Role, msgs[0].Content)
	}
	if msgs[1].Role != session.RoleAssistant || msgs[1].Content != "Hello world" {
		t.Errorf("assistant message = %s %q", msgs[1].Role, msgs[1].Content)
	}

	if turn.FirstTokenMillis < 0 {
		t.Errorf("FirstTokenMillis = %d", turn.FirstTokenMillis)
	}
	if _, ok := f.sessions.latencies[turn.Session.ID]; !ok {
		t.Error("latency was not recorded")
	}
}

func TestHandleMessageEmptyMessage(t *testing.T) {
	g := streamingModel(t, []string{"unused"}, nil)
	f := newFixture(t, g, &mockRetriever{})

	_, err := f.engine.HandleMessage(context.Background(), f.projectID, uuid.Nil, "   ", f.emit)
	if !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("HandleMessage(blank) = %v, want ErrEmptyMessage", err)
	}

	got := frameTypes(f.frames)
	if len(got) != 2 || got[0] != "error" || got[1] != "done" {
		t.Errorf("frames = %v, want [error done]", got)
	}
	for _, msgs := range f.sessions.messages {
		if len(msgs) != 0 {
			t.Error("messages were persisted for a rejected turn")
		}
	}
}

func TestHandleMessageUnknownProject(t *testing.T) {
	g := streamingModel(t, []string{"unused"}, nil)
	f := newFixture(t, g, &mockRetriever{})

	_, err := f.engine.HandleMessage(context.Background(), uuid.New(), uuid.Nil, "hi", f.emit)
	if !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("HandleMessage(unknown project) = %v, want ErrProjectNotFound", err)
	}

	got := frameTypes(f.frames)
	if len(got) != 2 || got[0] != "error" || got[1] != "done" {
		t.Errorf("frames = %v, want [error done]", got)
	}
}

func TestHandleMessageRetrievalFailureDegrades(t *testing.T) {
	g := streamingModel(t, []string{"answer"}, nil)
	f := newFixture(t, g, &mockRetriever{err: errors.New("embedder down")})

	turn, err := f.engine.HandleMessage(context.Background(), f.projectID, uuid.Nil, "hi", f.emit)
	if err != nil {
		t.Fatalf("HandleMessage() with failing retriever = %v, want degraded success", err)
	}

	msgs := f.sessions.messages[turn.Session.ID]
	if len(msgs) != 2 || msgs[1].Content != "answer" {
		t.Errorf("expected normal turn despite retrieval failure, got %v", msgs)
	}
}

func TestHandleMessageMidStreamFailure(t *testing.T) {
	g := streamingModel(t, []string{"partial ", "answer"}, errors.New("provider disconnected"))
	f := newFixture(t, g, &mockRetriever{})

	turn, err := f.engine.HandleMessage(context.Background(), f.projectID, uuid.Nil, "hi", f.emit)
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("HandleMessage() = %v, want ErrGenerationFailed", err)
	}

	got := frameTypes(f.frames)
	want := []string{"token", "token", "error", "done"}
	if len(got) != len(want) {
		t.Fatalf("frames = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("frames = %v, want %v", got, want)
		}
	}

	// Exactly one user and one assistant row, partial text preserved.
	msgs := f.sessions.messages[turn.Session.ID]
	if len(msgs) != 2 {
		t.Fatalf("persisted %d messages, want 2", len(msgs))
	}
	if msgs[1].Role != session.RoleAssistant || msgs[1].Content != "partial answer" {
		t.Errorf("assistant message = %s %q, want partial text", msgs[1].Role, msgs[1].Content)
	}
}

func TestHandleMessageImmediateFailure(t *testing.T) {
	g := streamingModel(t, nil, errors.New("api key rejected"))
	f := newFixture(t, g, &mockRetriever{})

	turn, err := f.engine.HandleMessage(context.Background(), f.projectID, uuid.Nil, "hi", f.emit)
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("HandleMessage() = %v, want ErrGenerationFailed", err)
	}

	msgs := f.sessions.messages[turn.Session.ID]
	if len(msgs) != 2 {
		t.Fatalf("persisted %d messages, want 2", len(msgs))
	}
	if !strings.HasPrefix(msgs[1].Content, "Error generating response: ") {
		t.Errorf("assistant message = %q, want error placeholder", msgs[1].Content)
	}

	// No fragment was produced, so no latency is recorded.
	if _, ok := f.sessions.latencies[turn.Session.ID]; ok {
		t.Error("latency recorded for a turn with no generated fragment")
	}
}

func TestHandleMessageInjectsContext(t *testing.T) {
	var sawSystem string
	g := testModel(t, func(ctx context.Context, req *ai.ModelRequest, cb ai.ModelStreamCallback) (*ai.ModelResponse, error) {
		for _, msg := range req.Messages {
			if msg.Role == ai.RoleSystem {
				sawSystem = msg.Text()
			}
		}
		if cb != nil {
			_ = cb(ctx, &ai.ModelResponseChunk{Content: []*ai.Part{ai.NewTextPart("ok")}})
		}
		return &ai.ModelResponse{
			Request: req,
			Message: &ai.Message{Role: ai.RoleModel, Content: []*ai.Part{ai.NewTextPart("ok")}},
		}, nil
	})
	f := newFixture(t, g, &mockRetriever{results: []knowledge.Result{
		{Content: "shipping takes 3-5 days", Distance: 0.1},
		{Content: "returns within 30 days", Distance: 0.2},
	}})

	if _, err := f.engine.HandleMessage(context.Background(), f.projectID, uuid.Nil, "shipping?", f.emit); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	if !strings.Contains(sawSystem, "You are a helpful AI assistant.") {
		t.Errorf("system prompt missing default preamble: %q", sawSystem)
	}
	if !strings.Contains(sawSystem, "---\nshipping takes 3-5 days\n---") {
		t.Errorf("system prompt missing delimited chunk: %q", sawSystem)
	}
	if !strings.Contains(sawSystem, "Answer based on the context above.") {
		t.Errorf("system prompt missing context instruction: %q", sawSystem)
	}
}

func TestHandleMessageReusesSession(t *testing.T) {
	g := streamingModel(t, []string{"ok"}, nil)
	f := newFixture(t, g, &mockRetriever{})

	first, err := f.engine.HandleMessage(context.Background(), f.projectID, uuid.Nil, "hi", f.emit)
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.engine.HandleMessage(context.Background(), f.projectID, first.Session.ID, "again", f.emit)
	if err != nil {
		t.Fatal(err)
	}
	if second.Session.ID != first.Session.ID {
		t.Errorf("second turn used session %s, want %s", second.Session.ID, first.Session.ID)
	}
	if got := len(f.sessions.messages[first.Session.ID]); got != 4 {
		t.Errorf("session has %d messages after two turns, want 4", got)
	}
}
