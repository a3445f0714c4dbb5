package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/multierr"

	"yolodemo/internal/catalog"
	"yolodemo/internal/config"
	"yolodemo/internal/logger"
	"yolodemo/internal/repository/sqlite"
	"yolodemo/internal/routes"
	"yolodemo/internal/service"
	"yolodemo/internal/service/ai"
	"yolodemo/internal/service/inference"
	"yolodemo/internal/service/modelcache"
	"yolodemo/internal/service/storage"
	"yolodemo/internal/service/websocket"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config     *config.Config
	logger     *logger.Logger
	db         *sqlite.DB
	hubService *websocket.HubService
	manager    *service.Manager
}

// NewApp builds every service from cfg. The caller owns log.
func NewApp(cfg *config.Config, log *logger.Logger) (*App, error) {
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}
	if cat.Builtin() {
		log.Warning("Using the built-in model catalog. Its links serve PyTorch .pt weights that cannot be loaded as ONNX; set CATALOG_PATH to a YAML catalog of ONNX exports")
	}

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open model manifest: %w", err)
	}

	backend := ai.NewBackend(cfg.InputSize, log)
	fetcher := modelcache.NewHTTPFetcher(time.Duration(cfg.DownloadTimeout)*time.Second, log)
	cache := modelcache.NewCache(cfg.ModelDirectory, fetcher, backend, sqlite.NewModelRepository(db), log)
	scratch := storage.NewScratchService(cfg.ScratchDirectory, log)
	runner := inference.NewRunner(backend, log)
	hub := websocket.NewHubService(log)

	return &App{
		config:     cfg,
		logger:     log,
		db:         db,
		hubService: hub,
		manager:    service.NewManager(cat, cache, scratch, runner, hub, log),
	}, nil
}

func (a *App) Manager() *service.Manager {
	return a.manager
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	go a.hubService.Run()
	defer a.hubService.Stop()

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.config.Port),
		Handler: routes.SetupRoutes(a.manager, a.config, a.logger),
	}

	a.logger.Info("🚀 YOLO detection demo")
	a.logger.Info("📍 URL: http://localhost:%d", a.config.Port)
	a.logger.Info("🤖 Models: %s (%d in catalog)", a.config.ModelDirectory, len(a.manager.Catalog().Entries()))

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("Server shutdown failed: %v", err)
			return err
		}
		a.logger.Info("Server stopped")
		return nil
	case err := <-serverErr:
		return err
	}
}

// Close releases loaded models and the manifest database.
func (a *App) Close() error {
	return multierr.Combine(a.manager.Close(), a.db.Close())
}
