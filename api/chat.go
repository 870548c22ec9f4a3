package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lanternai/lantern/internal/chat"
	"github.com/lanternai/lantern/internal/log"
	"github.com/lanternai/lantern/internal/project"
)

// welcomeFrame is a transport-level frame sent once when a widget connects,
// carrying the project's configured greeting. It is not part of a turn.
type welcomeFrame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// ChatMessageRequest is the inbound payload on both chat transports.
type ChatMessageRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatHandler serves the two chat transports. Both run the same engine; the
// websocket keeps one connection per widget and processes messages one at a
// time, the SSE endpoint handles a single message per request.
type ChatHandler struct {
	engine   *chat.Engine
	projects *project.Store
	auth     *authenticator
	logger   log.Logger
	upgrader websocket.Upgrader
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(engine *chat.Engine, projects *project.Store, auth *authenticator, logger log.Logger) *ChatHandler {
	return &ChatHandler{
		engine:   engine,
		projects: projects,
		auth:     auth,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The API key is the access boundary; widgets embed on
			// arbitrary customer domains.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// RegisterRoutes registers chat routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/chat/{project_id}/ws", h.handleWebsocket)
	mux.HandleFunc("POST /api/v1/chat/{project_id}/stream", h.handleSSE)
}

// handleWebsocket runs the widget connection loop. Messages are processed
// strictly one at a time; each one ends with a done frame. A failed turn
// never terminates the connection, only a transport error does.
func (h *ChatHandler) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathUUID(r, "project_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_project_id", "project id must be a UUID")
		return
	}
	proj := h.auth.authenticateProject(w, r, projectID)
	if proj == nil {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close() //nolint:errcheck

	h.logger.Info("widget connected", "project_id", projectID)

	if proj.WelcomeMessage != "" {
		if err := conn.WriteJSON(welcomeFrame{Type: "welcome", Content: proj.WelcomeMessage}); err != nil {
			h.logger.Debug("writing welcome frame", "error", err)
			return
		}
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("websocket read failed", "project_id", projectID, "error", err)
			}
			return
		}

		var req ChatMessageRequest
		if err := json.Unmarshal(data, &req); err != nil {
			if err := conn.WriteJSON(chat.Frame{Type: chat.FrameError, Error: "invalid JSON"}); err != nil {
				return
			}
			continue
		}

		sessionID := parseSessionID(req.SessionID)
		emit := func(frame chat.Frame) error {
			return conn.WriteJSON(frame)
		}

		// A failed turn is already reported to the client via its error
		// frame; the connection stays up for the next message.
		if _, err := h.engine.HandleMessage(r.Context(), projectID, sessionID, req.Message, emit); err != nil {
			h.logger.Warn("chat turn failed",
				"project_id", projectID, "session_id", req.SessionID, "error", err)
		}
	}
}

// handleSSE processes a single chat message and streams the response as
// Server-Sent Events, one event per frame.
func (h *ChatHandler) handleSSE(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathUUID(r, "project_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_project_id", "project id must be a UUID")
		return
	}
	if proj := h.auth.authenticateProject(w, r, projectID); proj == nil {
		return
	}

	var req ChatMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be JSON")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.logger.Error("streaming not supported")
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering

	emit := func(frame chat.Frame) error {
		data, err := json.Marshal(frame)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", frame.Type, data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	if _, err := h.engine.HandleMessage(r.Context(), projectID, parseSessionID(req.SessionID), req.Message, emit); err != nil {
		h.logger.Warn("chat turn failed",
			"project_id", projectID, "session_id", req.SessionID, "error", err)
	}
}

// parseSessionID maps an absent or malformed client session id to uuid.Nil,
// which starts a fresh session.
func parseSessionID(raw string) uuid.UUID {
	if raw == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil
	}
	return id
}
