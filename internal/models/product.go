package models

import (
	"strings"
	"time"
)

// Image is one product image reference.
type Image struct {
	ID  int64  `json:"id"`
	Src string `json:"src"`
}

// Variant is one purchasable option of a product. Title is the variant
// descriptor shown to shoppers (typically a size) and is matched
// case-insensitively against caller input.
type Variant struct {
	Title     string `json:"title"`
	Price     string `json:"price,omitempty"`
	Available bool   `json:"available"`
	// FeaturedImage is the id of the variant's own image, or 0 when the
	// variant has none. Resolution against the parent product's images
	// happens at lookup time, not at storage time.
	FeaturedImage int64 `json:"featured_image,omitempty"`
}

// Product is one catalog entry. SKU is uppercased at extraction and never
// mutated afterwards; an empty SKU means the product could not be indexed.
type Product struct {
	SKU          string    `json:"sku"`
	Title        string    `json:"title"`
	Handle       string    `json:"handle,omitempty"`
	Vendor       string    `json:"vendor,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	BodyMarkup   string    `json:"body_markup,omitempty"`
	Images       []Image   `json:"images,omitempty"`
	DefaultImage *Image    `json:"default_image,omitempty"`
	Variants     []Variant `json:"variants"`
	ProductURL   string    `json:"product_url,omitempty"`
}

// CatalogSnapshot is the full catalog produced by one refresh cycle, both the
// in-memory form and the persisted file form. The JSON field names are the
// on-disk contract and must not change.
type CatalogSnapshot struct {
	ProductsBySKU      map[string]Product `json:"products"`
	ProductsWithoutSKU []Product          `json:"products_without_sku"`
	TotalProducts      int                `json:"total_products"`
	ProductsWithSKU    int                `json:"products_with_sku"`
	LastUpdate         time.Time          `json:"last_update"`
}

// NewCatalogSnapshot partitions products by SKU presence and computes the
// snapshot metadata. Products without an extractable SKU are retained for
// diagnostics but are never searchable.
func NewCatalogSnapshot(products []Product, now time.Time) *CatalogSnapshot {
	snap := &CatalogSnapshot{
		ProductsBySKU:      make(map[string]Product, len(products)),
		ProductsWithoutSKU: make([]Product, 0),
		LastUpdate:         now,
	}

	for _, p := range products {
		if p.SKU == "" {
			snap.ProductsWithoutSKU = append(snap.ProductsWithoutSKU, p)
			continue
		}
		// Index keys are always uppercase and equal to the product SKU.
		key := strings.ToUpper(p.SKU)
		p.SKU = key
		snap.ProductsBySKU[key] = p
	}

	// Duplicate SKUs collapse in the index, so the total counts indexed
	// entries plus the diagnostics list rather than the raw fetch count.
	snap.ProductsWithSKU = len(snap.ProductsBySKU)
	snap.TotalProducts = snap.ProductsWithSKU + len(snap.ProductsWithoutSKU)

	return snap
}

// CacheStatus is the consumer-facing view of the cache state.
type CacheStatus struct {
	IsRefreshing  bool       `json:"is_refreshing"`
	HasCache      bool       `json:"has_cache"`
	LastUpdate    *time.Time `json:"last_update"`
	TotalProducts int        `json:"total_products"`
}

// LookupResult is a successful SKU+variant lookup. ImageURL is resolved at
// lookup time: the variant's featured image when it has one, otherwise the
// product's default image.
type LookupResult struct {
	Product  Product `json:"product"`
	Variant  Variant `json:"variant"`
	ImageURL string  `json:"image_url,omitempty"`
}
