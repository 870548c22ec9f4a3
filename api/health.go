package api

import (
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lanternai/lantern/internal/log"
)

// HealthStatus is the response body of both probes.
type HealthStatus struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	pool   *pgxpool.Pool
	logger log.Logger
}

// NewHealthHandler creates a new health handler.
// pool is the database connection pool used for readiness checks.
func NewHealthHandler(pool *pgxpool.Pool, logger log.Logger) *HealthHandler {
	return &HealthHandler{pool: pool, logger: logger}
}

// RegisterRoutes registers health routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.liveness)
	mux.HandleFunc("GET /ready", h.readiness)
}

// liveness reports that the process is up. It never touches dependencies.
func (h *HealthHandler) liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthStatus{Status: "ok"})
}

// readiness reports whether the server can do useful work, which means the
// database answers a ping.
func (h *HealthHandler) readiness(w http.ResponseWriter, r *http.Request) {
	if h.pool == nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthStatus{
			Status:   "unavailable",
			Database: "not configured",
		})
		return
	}
	if err := h.pool.Ping(r.Context()); err != nil {
		h.logger.Error("readiness check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, HealthStatus{
			Status:   "unavailable",
			Database: "unreachable",
		})
		return
	}
	writeJSON(w, http.StatusOK, HealthStatus{Status: "ready", Database: "ok"})
}
