package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/lanternai/lantern/internal/log"
	"github.com/lanternai/lantern/internal/project"
)

// CreateProjectRequest is the body for project creation.
type CreateProjectRequest struct {
	Name           string `json:"name"`
	SystemPrompt   string `json:"system_prompt,omitempty"`
	WelcomeMessage string `json:"welcome_message,omitempty"`
}

// UpdateProjectRequest carries the mutable project fields. Absent fields
// keep their current values.
type UpdateProjectRequest struct {
	Name           *string `json:"name,omitempty"`
	SystemPrompt   *string `json:"system_prompt,omitempty"`
	WelcomeMessage *string `json:"welcome_message,omitempty"`
}

// ProjectHandler handles admin project CRUD.
type ProjectHandler struct {
	projects *project.Store
	logger   log.Logger
}

// NewProjectHandler creates a new project handler.
func NewProjectHandler(store *project.Store, logger log.Logger) *ProjectHandler {
	return &ProjectHandler{projects: store, logger: logger}
}

// RegisterRoutes registers project routes wrapped in the given auth
// middleware.
func (h *ProjectHandler) RegisterRoutes(mux *http.ServeMux, admin func(http.Handler) http.Handler) {
	mux.Handle("POST /api/v1/projects", admin(http.HandlerFunc(h.create)))
	mux.Handle("GET /api/v1/projects", admin(http.HandlerFunc(h.list)))
	mux.Handle("GET /api/v1/projects/{project_id}", admin(http.HandlerFunc(h.get)))
	mux.Handle("PATCH /api/v1/projects/{project_id}", admin(http.HandlerFunc(h.update)))
	mux.Handle("DELETE /api/v1/projects/{project_id}", admin(http.HandlerFunc(h.delete)))
}

// create returns the full API key exactly once, in this response.
func (h *ProjectHandler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be JSON")
		return
	}

	proj, err := h.projects.Create(r.Context(), req.Name, req.SystemPrompt, req.WelcomeMessage)
	switch {
	case errors.Is(err, project.ErrInvalidName):
		writeError(w, http.StatusBadRequest, "invalid_name", "name is required")
		return
	case err != nil:
		h.logger.Error("creating project", "error", err)
		writeError(w, http.StatusInternalServerError, "create_failed", "could not create project")
		return
	}

	writeJSON(w, http.StatusCreated, proj)
}

func (h *ProjectHandler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	projects, err := h.projects.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("listing projects", "error", err)
		writeError(w, http.StatusInternalServerError, "list_failed", "could not list projects")
		return
	}

	// API keys are masked on the list surface.
	out := make([]json.RawMessage, len(projects))
	for i, p := range projects {
		raw, err := p.MarshalRedacted()
		if err != nil {
			h.logger.Error("marshaling project", "project_id", p.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "list_failed", "could not list projects")
			return
		}
		out[i] = raw
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ProjectHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "project_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_project_id", "project id must be a UUID")
		return
	}

	proj, err := h.projects.Get(r.Context(), id)
	switch {
	case errors.Is(err, project.ErrNotFound):
		writeError(w, http.StatusNotFound, "project_not_found", "project does not exist")
		return
	case err != nil:
		h.logger.Error("getting project", "project_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "get_failed", "could not get project")
		return
	}
	writeJSON(w, http.StatusOK, proj)
}

func (h *ProjectHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "project_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_project_id", "project id must be a UUID")
		return
	}

	var req UpdateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be JSON")
		return
	}

	proj, err := h.projects.Apply(r.Context(), id, project.Update{
		Name:           req.Name,
		SystemPrompt:   req.SystemPrompt,
		WelcomeMessage: req.WelcomeMessage,
	})
	switch {
	case errors.Is(err, project.ErrNotFound):
		writeError(w, http.StatusNotFound, "project_not_found", "project does not exist")
		return
	case errors.Is(err, project.ErrInvalidName):
		writeError(w, http.StatusBadRequest, "invalid_name", "name cannot be empty")
		return
	case err != nil:
		h.logger.Error("updating project", "project_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "update_failed", "could not update project")
		return
	}
	writeJSON(w, http.StatusOK, proj)
}

func (h *ProjectHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "project_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_project_id", "project id must be a UUID")
		return
	}

	err := h.projects.Delete(r.Context(), id)
	switch {
	case errors.Is(err, project.ErrNotFound):
		writeError(w, http.StatusNotFound, "project_not_found", "project does not exist")
		return
	case err != nil:
		h.logger.Error("deleting project", "project_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "delete_failed", "could not delete project")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
