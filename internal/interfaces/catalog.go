package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/stockpile/internal/models"
)

// ErrSKUNotFound is returned when the requested SKU is absent from the index.
var ErrSKUNotFound = errors.New("sku not found in catalog")

// ErrVariantNotFound is returned when the SKU exists but no variant title
// matches the caller input.
var ErrVariantNotFound = errors.New("variant not found for sku")

// ErrCacheRefreshing is returned only during the very first fetch cycle on a
// cold start, while no usable snapshot exists yet. Consumers should render
// this as "data is refreshing", never as a plain miss.
var ErrCacheRefreshing = errors.New("catalog cache is refreshing")

// CatalogService owns the in-memory SKU index and the availability state.
// Lookup and Status never block on an in-progress Replace or Load; they
// observe either the pre-swap or the post-swap snapshot, never a torn state.
type CatalogService interface {
	// Lookup resolves a SKU (uppercased before matching) and a variant title
	// (matched case-insensitively, first match wins). It fails with
	// ErrCacheRefreshing, ErrSKUNotFound, or ErrVariantNotFound.
	Lookup(sku, variantTitle string) (*models.LookupResult, error)

	// Status never blocks and never fails.
	Status() models.CacheStatus

	// Replace atomically swaps the entire index and metadata for a freshly
	// fetched snapshot.
	Replace(snap *models.CatalogSnapshot)

	// Load has the same atomicity contract as Replace and is used when
	// hydrating from persisted state at startup.
	Load(snap *models.CatalogSnapshot)

	// SetRefreshing marks whether a fetch cycle is actively running.
	SetRefreshing(refreshing bool)
}

// SnapshotStore persists the full catalog snapshot to durable storage.
// Persistence is an optimization, not a correctness requirement; the
// in-memory state remains authoritative.
type SnapshotStore interface {
	// Save overwrites any prior snapshot file. Failures are reported but
	// callers are expected to log and continue.
	Save(snap *models.CatalogSnapshot) error

	// Load reads the persisted snapshot back. A missing or corrupt file
	// yields (nil, false), never an error.
	Load() (*models.CatalogSnapshot, bool)
}

// RefreshService drives the fetch/normalize/replace cycle.
type RefreshService interface {
	// Start hydrates from persisted state when it is fresh enough and
	// schedules the recurring fetch cycle.
	Start(ctx context.Context) error

	// RunCycle executes one full fetch cycle immediately. Used by the
	// scheduler and as a manual trigger.
	RunCycle(ctx context.Context) error

	// Stop halts the schedule.
	Stop()
}
