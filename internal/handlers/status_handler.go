package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockpile/internal/interfaces"
)

// StatusHandler handles HTTP requests for the cache status
type StatusHandler struct {
	catalog interfaces.CatalogService
	logger  arbor.ILogger
}

// NewStatusHandler creates a new StatusHandler
func NewStatusHandler(catalog interfaces.CatalogService, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		catalog: catalog,
		logger:  logger,
	}
}

// GetStatusHandler handles GET /api/status
func (h *StatusHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, h.catalog.Status())
}
