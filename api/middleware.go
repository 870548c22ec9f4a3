package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lanternai/lantern/internal/log"
	"github.com/lanternai/lantern/internal/project"
)

// loggingMiddleware logs all HTTP requests with method, path, and duration.
func loggingMiddleware(logger log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"duration", time.Since(start))
		})
	}
}

// recoveryMiddleware recovers from panics and returns 500 Internal Server Error.
func recoveryMiddleware(logger log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered", "error", err, "path", r.URL.Path)
					http.Error(w, "internal server error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// chain applies middleware in order: first middleware wraps outermost.
func chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// authenticator resolves project API keys and enforces the per-key rate
// limit. Widget handlers share one instance.
type authenticator struct {
	projects *project.Store
	limiter  *RateLimiter
	logger   log.Logger
}

// apiKeyFromRequest extracts the API key. Browsers cannot set headers on
// websocket dials, so the key is also accepted as a query parameter.
func apiKeyFromRequest(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	return r.URL.Query().Get("api_key")
}

// authenticate resolves the request's API key to a project and applies the
// rate limit. On failure it writes the error response and returns nil.
func (a *authenticator) authenticate(w http.ResponseWriter, r *http.Request) *project.Project {
	key := apiKeyFromRequest(r)
	if key == "" {
		writeError(w, http.StatusUnauthorized, "missing_api_key", "API key is required")
		return nil
	}

	proj, err := a.projects.GetByAPIKey(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_api_key", "API key is not valid")
		return nil
	}

	if a.limiter != nil && !a.limiter.Allow(key) {
		writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
		return nil
	}
	return proj
}

// authenticateProject additionally checks that the key owns the project id
// in the request path.
func (a *authenticator) authenticateProject(w http.ResponseWriter, r *http.Request, projectID uuid.UUID) *project.Project {
	proj := a.authenticate(w, r)
	if proj == nil {
		return nil
	}
	if proj.ID != projectID {
		writeError(w, http.StatusForbidden, "forbidden", "API key does not match project")
		return nil
	}
	return proj
}

// adminMiddleware requires Authorization: Bearer <token> on admin routes.
func adminMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			presented, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				writeError(w, http.StatusUnauthorized, "unauthorized", "admin token required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// pathUUID parses the named path segment as a UUID.
func pathUUID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	return id, err == nil
}

// parseQueryUUID parses the named query parameter as a UUID.
func parseQueryUUID(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(r.URL.Query().Get(name))
}
