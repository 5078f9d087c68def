// Package catalog owns the in-memory SKU index and the cache availability
// state. Snapshots are immutable once published; readers never take a lock.
package catalog

import (
	"strings"
	"sync/atomic"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockpile/internal/interfaces"
	"github.com/ternarybob/stockpile/internal/models"
)

// Service implements CatalogService. The current snapshot sits behind a
// single atomic pointer: Replace and Load build nothing in place, they only
// publish a fully constructed snapshot, so a concurrent Lookup observes
// either the old or the new catalog, never a mix.
type Service struct {
	snapshot   atomic.Pointer[models.CatalogSnapshot]
	refreshing atomic.Bool
	hasCache   atomic.Bool
	logger     arbor.ILogger
}

// NewService creates an empty catalog store.
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		logger: logger,
	}
}

// Lookup resolves sku and variantTitle against the current snapshot. The SKU
// is uppercased before matching; variant titles match case-insensitively with
// original ordering breaking ties.
func (s *Service) Lookup(sku, variantTitle string) (*models.LookupResult, error) {
	snap := s.snapshot.Load()
	if snap == nil {
		// Lookups are gated only during the very first cycle on a cold
		// start; any other empty state is a plain miss.
		if s.refreshing.Load() && !s.hasCache.Load() {
			return nil, interfaces.ErrCacheRefreshing
		}
		return nil, interfaces.ErrSKUNotFound
	}

	product, ok := snap.ProductsBySKU[strings.ToUpper(strings.TrimSpace(sku))]
	if !ok {
		return nil, interfaces.ErrSKUNotFound
	}

	want := strings.ToLower(strings.TrimSpace(variantTitle))
	for _, variant := range product.Variants {
		if strings.ToLower(strings.TrimSpace(variant.Title)) == want {
			return &models.LookupResult{
				Product:  product,
				Variant:  variant,
				ImageURL: resolveImageURL(product, variant),
			}, nil
		}
	}

	return nil, interfaces.ErrVariantNotFound
}

// Status never blocks and never fails. The snapshot pointer is read once so
// last_update and total_products always describe the same snapshot.
func (s *Service) Status() models.CacheStatus {
	status := models.CacheStatus{
		IsRefreshing: s.refreshing.Load(),
		HasCache:     s.hasCache.Load(),
	}

	if snap := s.snapshot.Load(); snap != nil {
		lastUpdate := snap.LastUpdate
		status.LastUpdate = &lastUpdate
		status.TotalProducts = snap.TotalProducts
	}

	return status
}

// Replace atomically swaps the entire index and metadata for a freshly
// fetched snapshot.
func (s *Service) Replace(snap *models.CatalogSnapshot) {
	s.publish(snap, "Catalog replaced with fresh snapshot")
}

// Load has the same atomicity contract as Replace; used when hydrating from
// persisted state at startup.
func (s *Service) Load(snap *models.CatalogSnapshot) {
	s.publish(snap, "Catalog hydrated from persisted snapshot")
}

func (s *Service) publish(snap *models.CatalogSnapshot, msg string) {
	if snap == nil {
		return
	}

	s.snapshot.Store(snap)
	// has_cache latches true for the process lifetime once any snapshot has
	// been published.
	s.hasCache.Store(true)

	if s.logger != nil {
		s.logger.Info().
			Int("products_with_sku", snap.ProductsWithSKU).
			Int("products_without_sku", len(snap.ProductsWithoutSKU)).
			Str("last_update", snap.LastUpdate.Format("2006-01-02 15:04:05")).
			Msg(msg)
	}
}

// SetRefreshing marks whether a fetch cycle is actively running.
func (s *Service) SetRefreshing(refreshing bool) {
	s.refreshing.Store(refreshing)
}

// resolveImageURL picks the variant's own image when it has one, falling back
// to the product default image.
func resolveImageURL(p models.Product, v models.Variant) string {
	if v.FeaturedImage != 0 {
		for _, img := range p.Images {
			if img.ID == v.FeaturedImage {
				return img.Src
			}
		}
	}
	if p.DefaultImage != nil {
		return p.DefaultImage.Src
	}
	if len(p.Images) > 0 {
		return p.Images[0].Src
	}
	return ""
}

// Ensure Service implements CatalogService interface
var _ interfaces.CatalogService = (*Service)(nil)
