package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockpile/internal/common"
	"github.com/ternarybob/stockpile/internal/interfaces"
)

// APIHandler handles version and health endpoints.
type APIHandler struct {
	catalog interfaces.CatalogService
	logger  arbor.ILogger
}

// NewAPIHandler creates a new APIHandler
func NewAPIHandler(catalog interfaces.CatalogService, logger arbor.ILogger) *APIHandler {
	return &APIHandler{
		catalog: catalog,
		logger:  logger,
	}
}

// VersionHandler returns version information
func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"version":    common.GetVersion(),
		"build":      common.GetBuild(),
		"git_commit": common.GetGitCommit(),
	})
}

// HealthHandler returns service health including the cache state, so load
// balancers and humans can tell an empty cold cache from a warm one.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	status := h.catalog.Status()

	cacheState := "loading"
	if status.HasCache {
		cacheState = "initialized"
	}

	response := map[string]interface{}{
		"status":          "healthy",
		"service":         "stockpile",
		"cache_state":     cacheState,
		"products_cached": status.TotalProducts,
		"timestamp":       time.Now().Unix(),
	}
	if status.LastUpdate != nil {
		response["last_cache_update"] = status.LastUpdate.Format(time.RFC3339)
	}

	WriteJSON(w, http.StatusOK, response)
}

// NotFoundHandler handles 404 errors with JSON response
func (h *APIHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusNotFound, map[string]interface{}{
		"error":   "Not Found",
		"path":    r.URL.Path,
		"message": "The requested endpoint does not exist",
	})
}
