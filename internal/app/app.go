package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/shaibs3/orginsights/internal/cache"
	"github.com/shaibs3/orginsights/internal/config"
	"github.com/shaibs3/orginsights/internal/db_model"
	"github.com/shaibs3/orginsights/internal/handlers"
	"github.com/shaibs3/orginsights/internal/router"
	"github.com/shaibs3/orginsights/internal/scraper"
	"github.com/shaibs3/orginsights/internal/service"
	"github.com/shaibs3/orginsights/internal/storage"
	"github.com/shaibs3/orginsights/internal/telemetry"
	"go.uber.org/zap"
)

// App represents the main application
type App struct {
	config    *config.Config
	logger    *zap.Logger
	telemetry *telemetry.Telemetry
	store     storage.DbProvider
	service   *service.OrganizationService
	server    *http.Server
}

func NewApp(cfg *config.Config, logger *zap.Logger, build handlers.BuildInfo) (*App, error) {
	// Initialize telemetry
	tel, err := telemetry.NewTelemetry(logger)
	if err != nil {
		return nil, err
	}

	// Use the factory to create the DB provider
	configJSON, err := providerConfig(cfg)
	if err != nil {
		return nil, err
	}
	factory := storage.NewDbProviderFactory(logger, tel)
	store, err := factory.CreateProvider(configJSON)
	if err != nil {
		return nil, err
	}

	viewCache := cache.NewLRU[*db_model.OrganizationView](cfg.CacheSize, cfg.CacheTTL, logger)
	fetcher := scraper.NewHTTPFetcher(scraper.HTTPFetcherConfig{
		BaseURL:   cfg.ScraperBaseURL,
		Timeout:   cfg.ScraperTimeout,
		UserAgent: cfg.ScraperUserAgent,
	}, logger)

	svc, err := service.NewOrganizationService(store, viewCache, fetcher, scraper.NewExtractor(logger), cfg.CacheTTL, tel.Meter, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	// Create handlers
	handlerList := []router.Handler{
		handlers.NewSystemHandler(svc, build),
		handlers.NewOrganizationHandler(svc, handlers.PageSizes{
			Default:  cfg.DefaultPageSize,
			Max:      cfg.MaxPageSize,
			MaxPosts: cfg.MaxPostsPageSize,
		}),
	}

	appRouter, err := router.NewRouter(tel, logger, handlerList)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	server := appRouter.CreateServer(":"+cfg.Port, cfg.ReadTimeout, cfg.WriteTimeout)

	return &App{
		config:    cfg,
		logger:    logger,
		telemetry: tel,
		store:     store,
		service:   svc,
		server:    server,
	}, nil
}

// providerConfig returns the storage factory document: DB_CONFIG verbatim,
// else a postgres config built from DATABASE_URL, else the in-memory store
func providerConfig(cfg *config.Config) (string, error) {
	if cfg.DBConfig != "" {
		return cfg.DBConfig, nil
	}

	pc := storage.DbProviderConfig{
		DbType:       storage.DbTypeMemory,
		ExtraDetails: map[string]interface{}{},
	}
	if cfg.DatabaseURL != "" {
		pc.DbType = storage.DbTypePostgres
		pc.ExtraDetails["conn_str"] = cfg.DatabaseURL
	}

	b, err := json.Marshal(pc)
	if err != nil {
		return "", fmt.Errorf("failed to encode provider config: %w", err)
	}
	return string(b), nil
}

// Service exposes the organization service for one-shot CLI commands
func (app *App) Service() *service.OrganizationService {
	return app.service
}

// Handler returns the HTTP handler the server would run
func (app *App) Handler() http.Handler {
	return app.server.Handler
}

// Start starts the application server
func (app *App) start() error {
	app.logger.Info("starting server", zap.String("port", app.config.Port))

	go func() {
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Fatal("server failed to start", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully shuts down the application
func (app *App) stop() error {
	app.logger.Info("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.ShutdownTimeout)
	defer cancel()

	if err := app.server.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("server forced to shutdown", zap.Error(err))
		return errors.Join(err, app.Close(shutdownCtx))
	}

	if err := app.Close(shutdownCtx); err != nil {
		return err
	}
	app.logger.Info("server exited gracefully")
	return nil
}

// Close releases storage and flushes telemetry
func (app *App) Close(ctx context.Context) error {
	var errs []error
	if err := app.store.Close(); err != nil {
		app.logger.Error("failed to close storage", zap.Error(err))
		errs = append(errs, err)
	}
	if err := app.telemetry.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Run starts the application and waits for shutdown signals
func (app *App) Run() error {
	// Start the server
	if err := app.start(); err != nil {
		return err
	}

	// Wait for interrupt signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Wait for shutdown signal
	<-ctx.Done()

	// Stop the application
	return app.stop()
}
