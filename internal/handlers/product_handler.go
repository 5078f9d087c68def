package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockpile/internal/interfaces"
)

// ProductHandler handles raw catalog lookups.
type ProductHandler struct {
	catalog interfaces.CatalogService
	logger  arbor.ILogger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(catalog interfaces.CatalogService, logger arbor.ILogger) *ProductHandler {
	return &ProductHandler{
		catalog: catalog,
		logger:  logger,
	}
}

// GetProductHandler handles GET /api/products/{sku}?variant={title}. Both
// kinds of miss collapse to 404 on this surface; the command endpoint is the
// one that differentiates messaging.
func (h *ProductHandler) GetProductHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	sku := strings.TrimPrefix(r.URL.Path, "/api/products/")
	if sku == "" || strings.Contains(sku, "/") {
		WriteError(w, http.StatusBadRequest, "SKU is required")
		return
	}

	variant := r.URL.Query().Get("variant")
	if variant == "" {
		WriteError(w, http.StatusBadRequest, "variant query parameter is required")
		return
	}

	result, err := h.catalog.Lookup(sku, variant)
	if err != nil {
		switch {
		case errors.Is(err, interfaces.ErrCacheRefreshing):
			WriteError(w, http.StatusServiceUnavailable, "Product data is refreshing, try again shortly")
		case errors.Is(err, interfaces.ErrSKUNotFound), errors.Is(err, interfaces.ErrVariantNotFound):
			WriteError(w, http.StatusNotFound, "No matching product")
		default:
			h.logger.Error().Err(err).Str("sku", sku).Msg("Product lookup failed")
			WriteError(w, http.StatusInternalServerError, "Lookup failed")
		}
		return
	}

	WriteJSON(w, http.StatusOK, result)
}
