// Package refresh drives the periodic fetch/normalize/replace cycle that
// keeps the catalog store current.
package refresh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockpile/internal/common"
	"github.com/ternarybob/stockpile/internal/interfaces"
	"github.com/ternarybob/stockpile/internal/models"
	"github.com/ternarybob/stockpile/internal/shopfront"
)

// CatalogSource is the slice of the shopfront client the scheduler needs.
type CatalogSource interface {
	FetchPage(ctx context.Context, offset int) ([]shopfront.RawProduct, error)
	PageSize() int
	BaseURL() string
}

// Service implements RefreshService. One cycle runs at a time; the store is
// only touched after a cycle has fetched and normalized the whole catalog, so
// an aborted cycle leaves the previous snapshot untouched.
type Service struct {
	source    CatalogSource
	store     interfaces.CatalogService
	snapshots interfaces.SnapshotStore
	events    interfaces.EventService
	logger    arbor.ILogger
	cron      *cron.Cron
	interval  time.Duration
	now       func() time.Time
	mu        sync.Mutex
}

// Option configures the Service.
type Option func(*Service)

// WithClock injects a clock. Used by tests to control snapshot freshness
// decisions deterministically.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a refresh scheduler with the given cycle interval. The
// interval also serves as the freshness window for persisted snapshots.
func NewService(source CatalogSource, store interfaces.CatalogService, snapshots interfaces.SnapshotStore, eventService interfaces.EventService, interval time.Duration, logger arbor.ILogger, opts ...Option) *Service {
	s := &Service{
		source:    source,
		store:     store,
		snapshots: snapshots,
		events:    eventService,
		logger:    logger,
		cron:      cron.New(),
		interval:  interval,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start hydrates the store from persisted state when that state is younger
// than the refresh interval, then schedules the recurring fetch cycle. When
// no fresh persisted snapshot exists the initial cycle starts immediately in
// the background, and is_refreshing is visible to consumers for its duration.
func (s *Service) Start(ctx context.Context) error {
	hydrated := s.hydrateFromDisk(ctx)

	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), func() {
		if err := s.RunCycle(context.Background()); err != nil {
			s.logger.Warn().Err(err).Msg("Scheduled refresh cycle did not complete")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule refresh cycle: %w", err)
	}
	s.cron.Start()

	s.logger.Info().
		Str("interval", s.interval.String()).
		Bool("hydrated", hydrated).
		Msg("Refresh scheduler started")

	if !hydrated {
		common.SafeGoWithContext(ctx, s.logger, "initial-refresh", func() {
			if err := s.RunCycle(ctx); err != nil {
				s.logger.Warn().Err(err).Msg("Initial refresh cycle did not complete")
			}
		})
	}

	return nil
}

// hydrateFromDisk loads the persisted snapshot and publishes it to the store
// if it is fresh enough to skip the initial fetch. This path never marks the
// cache as refreshing.
func (s *Service) hydrateFromDisk(ctx context.Context) bool {
	snap, ok := s.snapshots.Load()
	if !ok {
		return false
	}

	age := s.now().Sub(snap.LastUpdate)
	if age >= s.interval {
		s.logger.Info().
			Str("age", age.Round(time.Minute).String()).
			Str("window", s.interval.String()).
			Msg("Persisted snapshot is stale, initial fetch required")
		return false
	}

	s.store.Load(snap)
	s.events.Publish(ctx, interfaces.Event{
		Type: interfaces.EventSnapshotHydrated,
		Payload: map[string]interface{}{
			"products_with_sku": snap.ProductsWithSKU,
			"last_update":       snap.LastUpdate,
		},
	})

	return true
}

// RunCycle executes one full fetch cycle: fetch pages until an empty page,
// normalize every record, then atomically swap the store and persist the new
// snapshot best-effort. On a transport or format failure the cycle aborts,
// the previous snapshot stays in place, and no immediate retry happens.
func (s *Service) RunCycle(ctx context.Context) error {
	if !s.mu.TryLock() {
		return fmt.Errorf("refresh cycle already running")
	}
	defer s.mu.Unlock()

	cycleID := uuid.NewString()[:8]
	started := s.now()

	s.store.SetRefreshing(true)
	defer s.store.SetRefreshing(false)

	s.logger.Info().Str("cycle_id", cycleID).Msg("Refresh cycle started")
	s.events.Publish(ctx, interfaces.Event{
		Type:    interfaces.EventRefreshStarted,
		Payload: map[string]interface{}{"cycle_id": cycleID},
	})

	products, err := s.fetchAll(ctx, cycleID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("cycle_id", cycleID).
			Msg("Refresh cycle aborted, keeping previous catalog until next interval")
		s.events.Publish(ctx, interfaces.Event{
			Type:    interfaces.EventRefreshFailed,
			Payload: map[string]interface{}{"cycle_id": cycleID, "error": err.Error()},
		})
		return err
	}

	snap := models.NewCatalogSnapshot(products, s.now())
	s.store.Replace(snap)

	// Best-effort persistence: the in-memory catalog is already live, so a
	// save failure is logged and swallowed.
	if err := s.snapshots.Save(snap); err != nil {
		s.logger.Warn().
			Err(err).
			Str("cycle_id", cycleID).
			Msg("Failed to persist catalog snapshot, continuing with in-memory state")
	}

	s.logger.Info().
		Str("cycle_id", cycleID).
		Int("products_with_sku", snap.ProductsWithSKU).
		Int("products_without_sku", len(snap.ProductsWithoutSKU)).
		Str("duration", s.now().Sub(started).Round(time.Millisecond).String()).
		Msg("Refresh cycle completed")
	s.events.Publish(ctx, interfaces.Event{
		Type: interfaces.EventRefreshCompleted,
		Payload: map[string]interface{}{
			"cycle_id":             cycleID,
			"products_with_sku":    snap.ProductsWithSKU,
			"products_without_sku": len(snap.ProductsWithoutSKU),
		},
	})

	return nil
}

// fetchAll walks the offset cursor until the upstream returns an empty page.
func (s *Service) fetchAll(ctx context.Context, cycleID string) ([]models.Product, error) {
	var products []models.Product

	for offset := 0; ; offset += s.source.PageSize() {
		records, err := s.source.FetchPage(ctx, offset)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			break
		}

		for _, record := range records {
			products = append(products, shopfront.Normalize(record, s.source.BaseURL()))
		}

		s.logger.Debug().
			Str("cycle_id", cycleID).
			Int("offset", offset).
			Int("total", len(products)).
			Msg("Accumulated catalog page")
	}

	return products, nil
}

// Stop halts the schedule. A cycle already in flight runs to completion.
func (s *Service) Stop() {
	s.cron.Stop()
	s.logger.Info().Msg("Refresh scheduler stopped")
}

// Ensure Service implements RefreshService interface
var _ interfaces.RefreshService = (*Service)(nil)
