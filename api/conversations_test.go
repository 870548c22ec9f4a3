package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/lanternai/lantern/internal/session"
)

func TestListSessions(t *testing.T) {
	f := newFixture(t)
	proj := f.createProject(t, "admin-bot")
	ctx := context.Background()

	sess, err := f.sessions.GetOrCreate(ctx, proj.ID, uuid.Nil)
	if err != nil {
		t.Fatalf("creating session: %v", err)
	}
	if err := f.sessions.RecordLatency(ctx, sess.ID, 420); err != nil {
		t.Fatalf("recording latency: %v", err)
	}
	if _, err := f.sessions.GetOrCreate(ctx, proj.ID, uuid.Nil); err != nil {
		t.Fatalf("creating second session: %v", err)
	}

	rec := f.doAdmin(t, http.MethodGet,
		"/api/v1/conversations/sessions?project_id="+proj.ID.String(), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var rows []SessionSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}

	var withLatency *SessionSummary
	for i := range rows {
		if rows[i].ID == sess.ID.String() {
			withLatency = &rows[i]
		}
	}
	if withLatency == nil {
		t.Fatalf("session %s missing from listing", sess.ID)
	}
	if withLatency.LastResponseMs == nil || *withLatency.LastResponseMs != 420 {
		t.Errorf("last_response_ms = %v, want 420", withLatency.LastResponseMs)
	}

	t.Run("missing project_id", func(t *testing.T) {
		rec := f.doAdmin(t, http.MethodGet, "/api/v1/conversations/sessions", "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})
}

func TestListMessages(t *testing.T) {
	f := newFixture(t)
	proj := f.createProject(t, "history-bot")
	ctx := context.Background()

	sess, err := f.sessions.GetOrCreate(ctx, proj.ID, uuid.Nil)
	if err != nil {
		t.Fatalf("creating session: %v", err)
	}
	if _, err := f.sessions.AppendMessage(ctx, sess.ID, session.RoleUser, "hello"); err != nil {
		t.Fatalf("appending message: %v", err)
	}
	if _, err := f.sessions.AppendMessage(ctx, sess.ID, session.RoleAssistant, "hi there"); err != nil {
		t.Fatalf("appending message: %v", err)
	}

	rec := f.doAdmin(t, http.MethodGet,
		"/api/v1/conversations/sessions/"+sess.ID.String()+"/messages", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var messages []session.Message
	if err := json.Unmarshal(rec.Body.Bytes(), &messages); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("len(messages) = %d, want 2", len(messages))
	}
	if messages[0].Role != session.RoleUser || messages[0].Content != "hello" {
		t.Errorf("first message = %s %q", messages[0].Role, messages[0].Content)
	}
	if messages[1].Role != session.RoleAssistant || messages[1].Content != "hi there" {
		t.Errorf("second message = %s %q", messages[1].Role, messages[1].Content)
	}
}

func TestFeedback(t *testing.T) {
	f := newFixture(t)
	proj := f.createProject(t, "feedback-bot")
	ctx := context.Background()

	sess, err := f.sessions.GetOrCreate(ctx, proj.ID, uuid.Nil)
	if err != nil {
		t.Fatalf("creating session: %v", err)
	}
	msg, err := f.sessions.AppendMessage(ctx, sess.ID, session.RoleAssistant, "the answer")
	if err != nil {
		t.Fatalf("appending message: %v", err)
	}
	path := "/api/v1/messages/" + msg.ID.String() + "/feedback"

	t.Run("records a score", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, path, proj.APIKey, `{"score":1}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
		}

		row, ok := f.querier.Message(msg.ID)
		if !ok {
			t.Fatal("message disappeared")
		}
		if row.FeedbackScore == nil || *row.FeedbackScore != 1 {
			t.Errorf("stored score = %v, want 1", row.FeedbackScore)
		}
	})

	t.Run("overwrites on repeat", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, path, proj.APIKey, `{"score":-1}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		row, _ := f.querier.Message(msg.ID)
		if row.FeedbackScore == nil || *row.FeedbackScore != -1 {
			t.Errorf("stored score = %v, want -1", row.FeedbackScore)
		}
	})

	t.Run("rejects out of range scores", func(t *testing.T) {
		for _, score := range []int{0, 2, -2} {
			rec := f.do(t, http.MethodPost, path, proj.APIKey, fmt.Sprintf(`{"score":%d}`, score))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("score %d: status = %d, want %d", score, rec.Code, http.StatusBadRequest)
			}
		}
	})

	t.Run("unknown message", func(t *testing.T) {
		rec := f.do(t, http.MethodPost,
			"/api/v1/messages/"+uuid.NewString()+"/feedback", proj.APIKey, `{"score":1}`)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
		}
	})

	t.Run("requires an api key", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, path, "", `{"score":1}`)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
	})

	t.Run("another tenant's key", func(t *testing.T) {
		other := f.createProject(t, "other-tenant")

		rec := f.do(t, http.MethodPost, path, other.APIKey, `{"score":1}`)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusNotFound, rec.Body.String())
		}
		if got := decodeError(t, rec); got.Error != "message_not_found" {
			t.Errorf("error = %q, want message_not_found", got.Error)
		}

		// The owning tenant's score must be untouched.
		row, _ := f.querier.Message(msg.ID)
		if row.FeedbackScore == nil || *row.FeedbackScore != -1 {
			t.Errorf("stored score = %v, want -1 from the owner", row.FeedbackScore)
		}
	})
}
