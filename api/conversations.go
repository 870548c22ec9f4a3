package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/lanternai/lantern/internal/log"
	"github.com/lanternai/lantern/internal/session"
)

// SessionSummary is one row of the admin conversation listing.
type SessionSummary struct {
	ID             string `json:"id"`
	ProjectID      string `json:"project_id"`
	CreatedAt      string `json:"created_at"`
	LastResponseMs *int64 `json:"last_response_ms"`
}

// ConversationHandler lets administrators browse a project's conversations.
type ConversationHandler struct {
	sessions *session.Store
	logger   log.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(store *session.Store, logger log.Logger) *ConversationHandler {
	return &ConversationHandler{sessions: store, logger: logger}
}

// RegisterRoutes registers conversation routes wrapped in the given auth
// middleware.
func (h *ConversationHandler) RegisterRoutes(mux *http.ServeMux, admin func(http.Handler) http.Handler) {
	mux.Handle("GET /api/v1/conversations/sessions", admin(http.HandlerFunc(h.listSessions)))
	mux.Handle("GET /api/v1/conversations/sessions/{session_id}/messages", admin(http.HandlerFunc(h.listMessages)))
}

func (h *ConversationHandler) listSessions(w http.ResponseWriter, r *http.Request) {
	projectID, err := parseQueryUUID(r, "project_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_project_id", "project_id must be a UUID")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	sessions, err := h.sessions.ListForProject(r.Context(), projectID, limit)
	if err != nil {
		h.logger.Error("listing sessions", "project_id", projectID, "error", err)
		writeError(w, http.StatusInternalServerError, "list_failed", "could not list sessions")
		return
	}

	out := make([]SessionSummary, len(sessions))
	for i, s := range sessions {
		summary := SessionSummary{
			ID:        s.ID.String(),
			ProjectID: s.ProjectID.String(),
			CreatedAt: s.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
		if ms, ok := s.Metadata["last_response_ms"]; ok {
			if f, ok := ms.(float64); ok {
				v := int64(f)
				summary.LastResponseMs = &v
			}
		}
		out[i] = summary
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ConversationHandler) listMessages(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathUUID(r, "session_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_session_id", "session id must be a UUID")
		return
	}

	messages, err := h.sessions.Messages(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("listing messages", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "list_failed", "could not list messages")
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

// FeedbackRequest is the body for the message feedback endpoint.
type FeedbackRequest struct {
	Score int32 `json:"score"`
}

// FeedbackHandler records end-user feedback on assistant replies. It sits on
// the widget surface, authenticated by project API key.
type FeedbackHandler struct {
	sessions *session.Store
	auth     *authenticator
	logger   log.Logger
}

// NewFeedbackHandler creates a new feedback handler.
func NewFeedbackHandler(store *session.Store, auth *authenticator, logger log.Logger) *FeedbackHandler {
	return &FeedbackHandler{sessions: store, auth: auth, logger: logger}
}

// RegisterRoutes registers the feedback route on the given mux.
func (h *FeedbackHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/messages/{message_id}/feedback", h.setFeedback)
}

func (h *FeedbackHandler) setFeedback(w http.ResponseWriter, r *http.Request) {
	messageID, ok := pathUUID(r, "message_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_message_id", "message id must be a UUID")
		return
	}
	proj := h.auth.authenticate(w, r)
	if proj == nil {
		return
	}

	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be JSON")
		return
	}

	// Scoped to the key's project so one tenant cannot score another
	// tenant's messages.
	err := h.sessions.SetFeedback(r.Context(), proj.ID, messageID, req.Score)
	switch {
	case errors.Is(err, session.ErrInvalidFeedback):
		writeError(w, http.StatusBadRequest, "invalid_score", "score must be -1 or 1")
		return
	case errors.Is(err, session.ErrMessageNotFound):
		writeError(w, http.StatusNotFound, "message_not_found", "message does not exist")
		return
	case err != nil:
		h.logger.Error("setting feedback", "message_id", messageID, "error", err)
		writeError(w, http.StatusInternalServerError, "feedback_failed", "could not record feedback")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}
