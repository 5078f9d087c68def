package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockpile/internal/common"
	"github.com/ternarybob/stockpile/internal/handlers"
	"github.com/ternarybob/stockpile/internal/interfaces"
	"github.com/ternarybob/stockpile/internal/services/catalog"
	"github.com/ternarybob/stockpile/internal/services/events"
	"github.com/ternarybob/stockpile/internal/services/refresh"
	"github.com/ternarybob/stockpile/internal/services/snapshot"
	"github.com/ternarybob/stockpile/internal/shopfront"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	ctx       context.Context
	cancelCtx context.CancelFunc

	// Core services
	EventService   interfaces.EventService
	CatalogService interfaces.CatalogService
	SnapshotStore  interfaces.SnapshotStore
	CatalogClient  *shopfront.Client
	RefreshService interfaces.RefreshService

	// HTTP handlers
	APIHandler     *handlers.APIHandler
	StatusHandler  *handlers.StatusHandler
	ProductHandler *handlers.ProductHandler
	CommandHandler *handlers.CommandHandler
}

// New creates and wires the application components.
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}

	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		Config:    config,
		Logger:    logger,
		ctx:       ctx,
		cancelCtx: cancel,
	}

	a.EventService = events.NewService(logger)
	a.CatalogService = catalog.NewService(logger)
	a.SnapshotStore = snapshot.NewFileStore(config.Storage.SnapshotFile, logger)

	a.CatalogClient = shopfront.NewClient(config.Catalog.BaseURL,
		shopfront.WithLogger(logger),
		shopfront.WithPageSize(config.Catalog.PageSize),
		shopfront.WithRateLimit(config.Catalog.RateLimit),
		shopfront.WithHTTPClient(shopfront.NewHTTPClient(config.Catalog.GetRequestTimeout())),
	)

	a.RefreshService = refresh.NewService(
		a.CatalogClient,
		a.CatalogService,
		a.SnapshotStore,
		a.EventService,
		config.Catalog.GetRefreshInterval(),
		logger,
	)

	a.APIHandler = handlers.NewAPIHandler(a.CatalogService, logger)
	a.StatusHandler = handlers.NewStatusHandler(a.CatalogService, logger)
	a.ProductHandler = handlers.NewProductHandler(a.CatalogService, logger)
	a.CommandHandler = handlers.NewCommandHandler(a.CatalogService, logger)

	a.subscribeRefreshEvents()

	return a, nil
}

// subscribeRefreshEvents wires log output for refresh lifecycle events so
// operators see cycle outcomes even when nothing else consumes the bus.
func (a *App) subscribeRefreshEvents() {
	a.EventService.Subscribe(interfaces.EventRefreshCompleted, func(ctx context.Context, event interfaces.Event) error {
		if payload, ok := event.Payload.(map[string]interface{}); ok {
			a.Logger.Info().
				Str("cycle_id", fmt.Sprintf("%v", payload["cycle_id"])).
				Str("products_with_sku", fmt.Sprintf("%v", payload["products_with_sku"])).
				Msg("Catalog refresh completed")
		}
		return nil
	})
	a.EventService.Subscribe(interfaces.EventRefreshFailed, func(ctx context.Context, event interfaces.Event) error {
		if payload, ok := event.Payload.(map[string]interface{}); ok {
			a.Logger.Warn().
				Str("cycle_id", fmt.Sprintf("%v", payload["cycle_id"])).
				Str("error", fmt.Sprintf("%v", payload["error"])).
				Msg("Catalog refresh failed, serving previous snapshot")
		}
		return nil
	})
}

// Start begins background services: snapshot hydration and the refresh
// schedule.
func (a *App) Start() error {
	if err := a.RefreshService.Start(a.ctx); err != nil {
		return fmt.Errorf("failed to start refresh service: %w", err)
	}
	return nil
}

// Shutdown stops background services and releases resources.
func (a *App) Shutdown() {
	a.Logger.Info().Msg("Shutting down application...")

	a.RefreshService.Stop()
	a.EventService.Close()
	a.cancelCtx()

	a.Logger.Info().Msg("Application stopped")
}
