package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lanternai/lantern/internal/knowledge"
	"github.com/lanternai/lantern/internal/log"
)

// maxIngestBody caps the request body at 10 MiB of text.
const maxIngestBody = 10 << 20

// IngestTextRequest is the body for the text ingestion endpoint.
type IngestTextRequest struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// IngestResponse reports how many chunks were stored.
type IngestResponse struct {
	DocumentsProcessed int    `json:"documents_processed"`
	Message            string `json:"message"`
}

// IngestHandler handles knowledge base ingestion.
type IngestHandler struct {
	knowledge *knowledge.Store
	auth      *authenticator
	logger    log.Logger
}

// NewIngestHandler creates a new ingestion handler.
func NewIngestHandler(store *knowledge.Store, auth *authenticator, logger log.Logger) *IngestHandler {
	return &IngestHandler{knowledge: store, auth: auth, logger: logger}
}

// RegisterRoutes registers ingestion routes on the given mux.
func (h *IngestHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/ingestion/{project_id}/text", h.handleText)
}

func (h *IngestHandler) handleText(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathUUID(r, "project_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_project_id", "project id must be a UUID")
		return
	}
	if proj := h.auth.authenticateProject(w, r, projectID); proj == nil {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxIngestBody)
	var req IngestTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be JSON")
		return
	}

	count, err := h.knowledge.Ingest(r.Context(), projectID, req.Text, req.Metadata)
	switch {
	case errors.Is(err, knowledge.ErrProjectNotFound):
		writeError(w, http.StatusNotFound, "project_not_found", "project does not exist")
		return
	case err != nil:
		h.logger.Error("ingestion failed", "project_id", projectID, "error", err)
		writeError(w, http.StatusInternalServerError, "ingestion_failed", "could not ingest text")
		return
	}

	writeJSON(w, http.StatusOK, IngestResponse{
		DocumentsProcessed: count,
		Message:            "Text successfully ingested",
	})
}
