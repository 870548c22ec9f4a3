package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/genkit"

	"github.com/lanternai/lantern/internal/chat"
	"github.com/lanternai/lantern/internal/chunk"
	"github.com/lanternai/lantern/internal/knowledge"
	"github.com/lanternai/lantern/internal/project"
	"github.com/lanternai/lantern/internal/session"
	"github.com/lanternai/lantern/internal/testutil"
)

const testAdminToken = "test-admin-token"

// fixture wires a full server against in-memory storage and a scripted
// model. Tests drive it through the public handler.
type fixture struct {
	querier  *testutil.MemoryQuerier
	projects *project.Store
	sessions *session.Store
	model    *testutil.ScriptedModel
	handler  http.Handler
}

func newFixture(t *testing.T, mutate ...func(*Config)) *fixture {
	t.Helper()

	logger := testutil.DiscardLogger()
	querier := testutil.NewMemoryQuerier()
	projects := project.New(querier, nil, logger)
	sessions := session.New(querier, logger)

	g := genkit.Init(context.Background())
	model := testutil.NewScriptedModel("Hello ", "world")
	model.Register(g)
	embedder := testutil.NewEmbedder(g, 8)

	splitter, err := chunk.NewSplitter(200, 20)
	if err != nil {
		t.Fatalf("NewSplitter: %v", err)
	}
	store := knowledge.New(querier, embedder, splitter, logger)

	engine, err := chat.New(chat.Config{
		Genkit:    g,
		ModelName: testutil.ModelName,
		Projects:  projects,
		Sessions:  sessions,
		Retriever: store,
		Logger:    logger,
	})
	if err != nil {
		t.Fatalf("chat.New: %v", err)
	}

	cfg := Config{
		Projects:   projects,
		Sessions:   sessions,
		Knowledge:  store,
		Engine:     engine,
		AdminToken: testAdminToken,
		Logger:     logger,
	}
	for _, fn := range mutate {
		fn(&cfg)
	}

	srv, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	return &fixture{
		querier:  querier,
		projects: projects,
		sessions: sessions,
		model:    model,
		handler:  srv.Handler(),
	}
}

// createProject seeds one tenant and returns it with its full API key.
func (f *fixture) createProject(t *testing.T, name string) *project.Project {
	t.Helper()
	proj, err := f.projects.Create(context.Background(), name, "", "")
	if err != nil {
		t.Fatalf("creating project: %v", err)
	}
	return proj
}

// do runs one request through the handler and returns the recorder.
func (f *fixture) do(t *testing.T, method, target, apiKey, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, reader)
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

// doAdmin runs one request with the admin bearer token.
func (f *fixture) doAdmin(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+testAdminToken)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding error response %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestHealthEndpoints(t *testing.T) {
	f := newFixture(t)

	t.Run("liveness", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/health", "", "")
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		var status HealthStatus
		if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if status.Status != "ok" {
			t.Errorf("status = %q, want %q", status.Status, "ok")
		}
	})

	t.Run("readiness without pool", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/ready", "", "")
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
		}
		var status HealthStatus
		if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if status.Status != "unavailable" {
			t.Errorf("status = %q, want %q", status.Status, "unavailable")
		}
	})
}

func TestWidgetAuth(t *testing.T) {
	f := newFixture(t)
	proj := f.createProject(t, "support-bot")
	other := f.createProject(t, "other-bot")

	ingestPath := func(p *project.Project) string {
		return "/api/v1/ingestion/" + p.ID.String() + "/text"
	}
	body := `{"text":"the product ships in five days"}`

	t.Run("missing key", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, ingestPath(proj), "", body)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
		if resp := decodeError(t, rec); resp.Error != "missing_api_key" {
			t.Errorf("error = %q, want %q", resp.Error, "missing_api_key")
		}
	})

	t.Run("unknown key", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, ingestPath(proj), "sk_deadbeef", body)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
		if resp := decodeError(t, rec); resp.Error != "invalid_api_key" {
			t.Errorf("error = %q, want %q", resp.Error, "invalid_api_key")
		}
	})

	t.Run("key of another project", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, ingestPath(proj), other.APIKey, body)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("key as query parameter", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, ingestPath(proj)+"?api_key="+proj.APIKey, "", body)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
	})
}

func TestAdminAuth(t *testing.T) {
	f := newFixture(t)

	t.Run("no token", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/projects", "", "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
	})

	t.Run("wrong token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil)
		req.Header.Set("Authorization", "Bearer nope")
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
	})

	t.Run("valid token", func(t *testing.T) {
		rec := f.doAdmin(t, http.MethodGet, "/api/v1/projects", "")
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
		}
	})
}

func TestAdminSurfaceDisabledWithoutToken(t *testing.T) {
	f := newFixture(t, func(cfg *Config) { cfg.AdminToken = "" })

	rec := f.doAdmin(t, http.MethodGet, "/api/v1/projects", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestRateLimitAppliesPerKey(t *testing.T) {
	f := newFixture(t, func(cfg *Config) { cfg.Limiter = NewRateLimiter(0.001, 1) })
	proj := f.createProject(t, "limited")
	other := f.createProject(t, "unthrottled")

	path := func(p *project.Project) string {
		return "/api/v1/ingestion/" + p.ID.String() + "/text"
	}
	body := `{"text":"hello"}`

	if rec := f.do(t, http.MethodPost, path(proj), proj.APIKey, body); rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want %d", rec.Code, http.StatusOK)
	}
	rec := f.do(t, http.MethodPost, path(proj), proj.APIKey, body)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
	if resp := decodeError(t, rec); resp.Error != "rate_limited" {
		t.Errorf("error = %q, want %q", resp.Error, "rate_limited")
	}

	// Another key has its own bucket.
	if rec := f.do(t, http.MethodPost, path(other), other.APIKey, body); rec.Code != http.StatusOK {
		t.Errorf("other key status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	h := chain(panicking, recoveryMiddleware(testutil.DiscardLogger()))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}
