package refresh

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/stockpile/internal/common"
	"github.com/ternarybob/stockpile/internal/interfaces"
	"github.com/ternarybob/stockpile/internal/models"
	"github.com/ternarybob/stockpile/internal/services/catalog"
	"github.com/ternarybob/stockpile/internal/services/events"
	"github.com/ternarybob/stockpile/internal/services/snapshot"
	"github.com/ternarybob/stockpile/internal/shopfront"
)

// fakeSource serves a fixed page sequence, optionally failing at one page.
type fakeSource struct {
	pages      [][]shopfront.RawProduct
	failAtPage int // 1-based, 0 means never
	calls      int
}

func (f *fakeSource) FetchPage(ctx context.Context, offset int) ([]shopfront.RawProduct, error) {
	f.calls++
	page := offset/f.PageSize() + 1
	if f.failAtPage != 0 && page == f.failAtPage {
		return nil, &shopfront.TransportError{Page: page, StatusCode: 502}
	}
	if page > len(f.pages) {
		return nil, nil
	}
	return f.pages[page-1], nil
}

func (f *fakeSource) PageSize() int { return 2 }

func (f *fakeSource) BaseURL() string { return "https://shop.test" }

func rawProduct(title, sku string) shopfront.RawProduct {
	return shopfront.RawProduct{
		Title:    title,
		Handle:   title,
		BodyHTML: "<span>" + sku + "</span>",
		Variants: []shopfront.RawVariant{{Title: "42", Price: "100.00", Available: true}},
	}
}

func newTestService(t *testing.T, source CatalogSource, opts ...Option) (*Service, *catalog.Service, interfaces.SnapshotStore) {
	t.Helper()
	logger := common.GetLogger()
	store := catalog.NewService(nil)
	snapshots := snapshot.NewFileStore(filepath.Join(t.TempDir(), "cache.json"), nil)
	svc := NewService(source, store, snapshots, events.NewService(logger), 24*time.Hour, logger, opts...)
	return svc, store, snapshots
}

func TestService_RunCycle(t *testing.T) {
	source := &fakeSource{pages: [][]shopfront.RawProduct{
		{rawProduct("air-max-1", "FZ8117-100"), rawProduct("dunk-low", "DQ4312-010")},
		{rawProduct("mystery-box", "")},
	}}
	svc, store, snapshots := newTestService(t, source)

	require.NoError(t, svc.RunCycle(context.Background()))

	// Pages walked until the empty one: 2 full pages plus the terminator.
	assert.Equal(t, 3, source.calls)

	status := store.Status()
	assert.False(t, status.IsRefreshing)
	assert.True(t, status.HasCache)
	assert.Equal(t, 3, status.TotalProducts)

	result, err := store.Lookup("FZ8117-100", "42")
	require.NoError(t, err)
	assert.Equal(t, "air-max-1", result.Product.Title)
	assert.Equal(t, "https://shop.test/products/air-max-1", result.Product.ProductURL)

	// The snapshot was also persisted.
	persisted, ok := snapshots.Load()
	require.True(t, ok)
	assert.Equal(t, 3, persisted.TotalProducts)
}

func TestService_RunCycle_FailureKeepsPreviousCatalog(t *testing.T) {
	source := &fakeSource{
		pages: [][]shopfront.RawProduct{
			{rawProduct("air-max-1", "FZ8117-100"), rawProduct("dunk-low", "DQ4312-010")},
		},
		failAtPage: 2,
	}
	svc, store, snapshots := newTestService(t, source)

	previous := models.NewCatalogSnapshot([]models.Product{
		{SKU: "OLD-1", Title: "previous generation", Variants: []models.Variant{{Title: "42"}}},
	}, time.Now().Add(-time.Hour))
	store.Replace(previous)
	require.NoError(t, snapshots.Save(previous))

	err := svc.RunCycle(context.Background())
	require.Error(t, err)

	// In-memory catalog still serves the previous generation.
	result, lookupErr := store.Lookup("OLD-1", "42")
	require.NoError(t, lookupErr)
	assert.Equal(t, "previous generation", result.Product.Title)
	assert.Equal(t, 1, store.Status().TotalProducts)
	assert.False(t, store.Status().IsRefreshing)

	// Persisted snapshot untouched as well.
	persisted, ok := snapshots.Load()
	require.True(t, ok)
	assert.Equal(t, 1, persisted.TotalProducts)
}

func TestService_RunCycle_SingleFlight(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeSource{})

	svc.mu.Lock()
	err := svc.RunCycle(context.Background())
	svc.mu.Unlock()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}

func TestService_Start_HydratesFreshSnapshot(t *testing.T) {
	now := time.Date(2025, 11, 10, 9, 30, 0, 0, time.UTC)
	source := &fakeSource{}
	svc, store, snapshots := newTestService(t, source, WithClock(func() time.Time { return now }))

	persisted := models.NewCatalogSnapshot([]models.Product{
		{SKU: "FZ8117-100", Title: "Air Max 1", Variants: []models.Variant{{Title: "42"}}},
	}, now.Add(-2*time.Hour))
	require.NoError(t, snapshots.Save(persisted))

	require.NoError(t, svc.Start(context.Background()))
	defer svc.Stop()

	// Served straight from disk with no fetch and no refreshing window.
	status := store.Status()
	assert.True(t, status.HasCache)
	assert.False(t, status.IsRefreshing)
	assert.Equal(t, 1, status.TotalProducts)
	assert.Equal(t, 0, source.calls)

	result, err := store.Lookup("FZ8117-100", "42")
	require.NoError(t, err)
	assert.Equal(t, "Air Max 1", result.Product.Title)
}

func TestService_Start_StaleSnapshotTriggersFetch(t *testing.T) {
	now := time.Date(2025, 11, 10, 9, 30, 0, 0, time.UTC)
	source := &fakeSource{pages: [][]shopfront.RawProduct{
		{rawProduct("air-max-1", "FZ8117-100")},
	}}
	svc, store, snapshots := newTestService(t, source, WithClock(func() time.Time { return now }))

	persisted := models.NewCatalogSnapshot([]models.Product{
		{SKU: "OLD-1", Title: "stale generation"},
	}, now.Add(-25*time.Hour))
	require.NoError(t, snapshots.Save(persisted))

	require.NoError(t, svc.Start(context.Background()))
	defer svc.Stop()

	// The stale snapshot is skipped and the initial cycle replaces it.
	assert.Eventually(t, func() bool {
		_, err := store.Lookup("FZ8117-100", "42")
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	_, err := store.Lookup("OLD-1", "42")
	assert.ErrorIs(t, err, interfaces.ErrSKUNotFound)
}

func TestService_Start_ColdStart(t *testing.T) {
	source := &fakeSource{pages: [][]shopfront.RawProduct{
		{rawProduct("air-max-1", "FZ8117-100"), rawProduct("dunk-low", "DQ4312-010")},
	}}
	svc, store, _ := newTestService(t, source)

	require.NoError(t, svc.Start(context.Background()))
	defer svc.Stop()

	assert.Eventually(t, func() bool {
		return store.Status().HasCache
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, 2, store.Status().TotalProducts)
}
