package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockpile/internal/interfaces"
	"github.com/ternarybob/stockpile/internal/models"
)

// CommandHandler renders chat-style commands against the catalog. It is a
// consumer of the catalog core: all it does is call Lookup and format the
// outcome as a ready-to-post message.
type CommandHandler struct {
	catalog   interfaces.CatalogService
	converter *md.Converter
	logger    arbor.ILogger
}

// NewCommandHandler creates a new CommandHandler
func NewCommandHandler(catalog interfaces.CatalogService, logger arbor.ILogger) *CommandHandler {
	return &CommandHandler{
		catalog:   catalog,
		converter: md.NewConverter("", true, nil),
		logger:    logger,
	}
}

// wantToBuyRequest is the body of POST /api/commands/wtb.
type wantToBuyRequest struct {
	SKU     string `json:"sku"`
	Variant string `json:"variant"`
}

// wantToBuyResponse is the formatted reply for the chat front end.
type wantToBuyResponse struct {
	Status     string `json:"status"` // "match", "refreshing", "no_match"
	Message    string `json:"message"`
	SKU        string `json:"sku,omitempty"`
	Variant    string `json:"variant,omitempty"`
	Price      string `json:"price,omitempty"`
	Available  bool   `json:"available,omitempty"`
	ImageURL   string `json:"image_url,omitempty"`
	ProductURL string `json:"product_url,omitempty"`
}

// WantToBuyHandler handles POST /api/commands/wtb. Unknown SKU, unknown
// variant, and a refreshing cold cache each get their own message so the
// front end can relay them verbatim.
func (h *CommandHandler) WantToBuyHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req wantToBuyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.SKU) == "" || strings.TrimSpace(req.Variant) == "" {
		WriteError(w, http.StatusBadRequest, "sku and variant are required")
		return
	}

	result, err := h.catalog.Lookup(req.SKU, req.Variant)
	if err != nil {
		switch {
		case errors.Is(err, interfaces.ErrCacheRefreshing):
			WriteJSON(w, http.StatusOK, wantToBuyResponse{
				Status:  "refreshing",
				Message: "Product data is refreshing, please try again in a moment.",
			})
		case errors.Is(err, interfaces.ErrSKUNotFound):
			WriteJSON(w, http.StatusOK, wantToBuyResponse{
				Status:  "no_match",
				Message: fmt.Sprintf("No product found for SKU `%s`.", strings.ToUpper(strings.TrimSpace(req.SKU))),
			})
		case errors.Is(err, interfaces.ErrVariantNotFound):
			WriteJSON(w, http.StatusOK, wantToBuyResponse{
				Status:  "no_match",
				Message: fmt.Sprintf("SKU `%s` exists but has no size `%s`.", strings.ToUpper(strings.TrimSpace(req.SKU)), strings.TrimSpace(req.Variant)),
			})
		default:
			h.logger.Error().Err(err).Str("sku", req.SKU).Msg("Want-to-buy lookup failed")
			WriteError(w, http.StatusInternalServerError, "Lookup failed")
		}
		return
	}

	WriteJSON(w, http.StatusOK, wantToBuyResponse{
		Status:     "match",
		Message:    h.formatMatch(result),
		SKU:        result.Product.SKU,
		Variant:    result.Variant.Title,
		Price:      result.Variant.Price,
		Available:  result.Variant.Available,
		ImageURL:   result.ImageURL,
		ProductURL: result.Product.ProductURL,
	})
}

// formatMatch builds the want-to-buy chat message for a successful lookup.
// The product description arrives as upstream markup and is converted to
// markdown so chat clients can render it.
func (h *CommandHandler) formatMatch(result *models.LookupResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "**Want to Buy**\n%s (`%s`)\nSize: %s", result.Product.Title, result.Product.SKU, result.Variant.Title)
	if result.Variant.Price != "" {
		fmt.Fprintf(&b, "\nPrice: %s", result.Variant.Price)
	}
	if !result.Variant.Available {
		b.WriteString("\nCurrently sold out")
	}
	if result.Product.ProductURL != "" {
		fmt.Fprintf(&b, "\n%s", result.Product.ProductURL)
	}

	if result.Product.BodyMarkup != "" {
		description, err := h.converter.ConvertString(result.Product.BodyMarkup)
		if err != nil {
			h.logger.Debug().Err(err).Str("sku", result.Product.SKU).Msg("Failed to convert product markup to markdown")
		} else if description = strings.TrimSpace(description); description != "" {
			fmt.Fprintf(&b, "\n\n%s", description)
		}
	}

	return b.String()
}
