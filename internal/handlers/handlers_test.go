package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/stockpile/internal/common"
	"github.com/ternarybob/stockpile/internal/models"
	"github.com/ternarybob/stockpile/internal/services/catalog"
)

func populatedCatalog(t *testing.T) *catalog.Service {
	t.Helper()
	svc := catalog.NewService(nil)
	svc.Replace(models.NewCatalogSnapshot([]models.Product{
		{
			SKU:        "FZ8117-100",
			Title:      "Air Max 1",
			BodyMarkup: "<p>Classic runner with <b>visible air</b></p>",
			ProductURL: "https://www.dennis-snkrs.com/products/air-max-1",
			Images:     []models.Image{{ID: 7, Src: "https://cdn.test/front.jpg"}},
			DefaultImage: &models.Image{
				ID: 7, Src: "https://cdn.test/front.jpg",
			},
			Variants: []models.Variant{
				{Title: "42", Price: "189.95", Available: true},
				{Title: "43", Price: "189.95", Available: false},
			},
		},
	}, time.Date(2025, 11, 10, 9, 30, 0, 0, time.UTC)))
	return svc
}

func TestProductHandler_GetProduct(t *testing.T) {
	h := NewProductHandler(populatedCatalog(t), common.GetLogger())

	tests := []struct {
		name       string
		target     string
		wantStatus int
	}{
		{"match", "/api/products/FZ8117-100?variant=42", http.StatusOK},
		{"lowercase sku matches", "/api/products/fz8117-100?variant=42", http.StatusOK},
		{"unknown sku", "/api/products/XX0000-000?variant=42", http.StatusNotFound},
		{"unknown variant", "/api/products/FZ8117-100?variant=48", http.StatusNotFound},
		{"missing variant param", "/api/products/FZ8117-100", http.StatusBadRequest},
		{"missing sku", "/api/products/?variant=42", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.GetProductHandler(rec, httptest.NewRequest("GET", tt.target, nil))
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestProductHandler_RefreshingColdCache(t *testing.T) {
	svc := catalog.NewService(nil)
	svc.SetRefreshing(true)
	h := NewProductHandler(svc, common.GetLogger())

	rec := httptest.NewRecorder()
	h.GetProductHandler(rec, httptest.NewRequest("GET", "/api/products/FZ8117-100?variant=42", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestProductHandler_MethodNotAllowed(t *testing.T) {
	h := NewProductHandler(populatedCatalog(t), common.GetLogger())

	rec := httptest.NewRecorder()
	h.GetProductHandler(rec, httptest.NewRequest("POST", "/api/products/FZ8117-100?variant=42", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStatusHandler_GetStatus(t *testing.T) {
	h := NewStatusHandler(populatedCatalog(t), common.GetLogger())

	rec := httptest.NewRecorder()
	h.GetStatusHandler(rec, httptest.NewRequest("GET", "/api/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var status models.CacheStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.HasCache)
	assert.False(t, status.IsRefreshing)
	assert.Equal(t, 1, status.TotalProducts)
	require.NotNil(t, status.LastUpdate)
}

func TestCommandHandler_WantToBuy(t *testing.T) {
	h := NewCommandHandler(populatedCatalog(t), common.GetLogger())

	post := func(body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.WantToBuyHandler(rec, httptest.NewRequest("POST", "/api/commands/wtb", strings.NewReader(body)))
		return rec
	}

	t.Run("match", func(t *testing.T) {
		rec := post(`{"sku":"fz8117-100","variant":"42"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Status     string `json:"status"`
			Message    string `json:"message"`
			SKU        string `json:"sku"`
			Price      string `json:"price"`
			Available  bool   `json:"available"`
			ImageURL   string `json:"image_url"`
			ProductURL string `json:"product_url"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

		assert.Equal(t, "match", resp.Status)
		assert.Equal(t, "FZ8117-100", resp.SKU)
		assert.Equal(t, "189.95", resp.Price)
		assert.True(t, resp.Available)
		assert.Equal(t, "https://cdn.test/front.jpg", resp.ImageURL)
		assert.Contains(t, resp.Message, "**Want to Buy**")
		assert.Contains(t, resp.Message, "Air Max 1")
		// Product markup is rendered as markdown in the description.
		assert.Contains(t, resp.Message, "**visible air**")
		assert.NotContains(t, resp.Message, "<p>")
	})

	t.Run("sold out variant", func(t *testing.T) {
		rec := post(`{"sku":"FZ8117-100","variant":"43"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Status  string `json:"status"`
			Message string `json:"message"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "match", resp.Status)
		assert.Contains(t, resp.Message, "Currently sold out")
	})

	t.Run("unknown sku", func(t *testing.T) {
		rec := post(`{"sku":"xx0000-000","variant":"42"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Status  string `json:"status"`
			Message string `json:"message"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "no_match", resp.Status)
		assert.Contains(t, resp.Message, "No product found for SKU `XX0000-000`")
	})

	t.Run("unknown variant", func(t *testing.T) {
		rec := post(`{"sku":"FZ8117-100","variant":"48"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Status  string `json:"status"`
			Message string `json:"message"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "no_match", resp.Status)
		assert.Contains(t, resp.Message, "has no size `48`")
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := post(`{"sku":"FZ8117-100"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid body", func(t *testing.T) {
		rec := post(`not json`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCommandHandler_WantToBuy_Refreshing(t *testing.T) {
	svc := catalog.NewService(nil)
	svc.SetRefreshing(true)
	h := NewCommandHandler(svc, common.GetLogger())

	rec := httptest.NewRecorder()
	h.WantToBuyHandler(rec, httptest.NewRequest("POST", "/api/commands/wtb", strings.NewReader(`{"sku":"FZ8117-100","variant":"42"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "refreshing", resp.Status)
	assert.Contains(t, resp.Message, "refreshing")
}

func TestAPIHandler_Health(t *testing.T) {
	t.Run("cold cache", func(t *testing.T) {
		h := NewAPIHandler(catalog.NewService(nil), common.GetLogger())

		rec := httptest.NewRecorder()
		h.HealthHandler(rec, httptest.NewRequest("GET", "/health", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "healthy", resp["status"])
		assert.Equal(t, "loading", resp["cache_state"])
		assert.NotContains(t, resp, "last_cache_update")
	})

	t.Run("warm cache", func(t *testing.T) {
		h := NewAPIHandler(populatedCatalog(t), common.GetLogger())

		rec := httptest.NewRecorder()
		h.HealthHandler(rec, httptest.NewRequest("GET", "/health", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "initialized", resp["cache_state"])
		assert.Equal(t, float64(1), resp["products_cached"])
		assert.Contains(t, resp, "last_cache_update")
	})
}
