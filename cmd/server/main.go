package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andresuchdata/stockplanner/internal/api"
	"github.com/andresuchdata/stockplanner/internal/cache"
	"github.com/andresuchdata/stockplanner/internal/config"
	"github.com/andresuchdata/stockplanner/internal/drive"
	"github.com/andresuchdata/stockplanner/internal/pipeline"
	"github.com/andresuchdata/stockplanner/internal/service"
	"github.com/andresuchdata/stockplanner/internal/storage"
	"github.com/andresuchdata/stockplanner/pkg/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	logger.SetLevel(cfg.App.LogLevel)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize cache and export store
	planCache, err := cache.NewPlanCache(cfg.Cache)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize plan cache")
	}
	exports, err := cache.NewExportStore(cfg.Cache)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize export store")
	}

	// Initialize object storage, nil when publishing is disabled
	store, err := storage.NewFromConfig(ctx, cfg.Storage, logger.Component("storage"))
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize object storage")
	}
	if store != nil {
		defer store.Close()
	}

	// Initialize services
	orch := pipeline.NewOrchestrator(logger.Component("pipeline"))
	planService := service.NewPlanService(orch, planCache, store, cfg.Storage.Prefix)

	services := &api.Services{
		PlanService: planService,
		Exports:     exports,
	}

	if cfg.Drive.Enabled {
		driveService, err := drive.NewServiceFromFile(ctx, cfg.Drive.CredentialsFile)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to initialize Google Drive service")
		}
		services.Drive = drive.NewHandler(driveService, planService, cfg.Plan)

		if cfg.Drive.FolderID != "" {
			watcher := drive.NewWatcher(driveService, cfg.Drive.FolderID,
				time.Duration(cfg.Drive.PollIntervalSeconds)*time.Second,
				publishWorkbook(planService, cfg))
			go watcher.Run(ctx)
		}
	}

	// Initialize HTTP server
	router := api.NewRouter(services, api.Options{
		AllowedOrigins:    cfg.Server.AllowedOrigins,
		BaseConfig:        cfg.Plan,
		MaxConcurrentRuns: cfg.Server.MaxConcurrentRuns,
		MaxUploadBytes:    cfg.Server.MaxUploadMB << 20,
	})
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	<-ctx.Done()
	logger.Log.Info().Msg("Shutting down server...")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error().Err(err).Msg("Server forced to shutdown")
		os.Exit(1)
	}

	logger.Log.Info().Msg("Server exiting")
}

// publishWorkbook plans every workbook the Drive watcher finds and, when
// object storage is configured, publishes the exports.
func publishWorkbook(svc *service.PlanService, cfg *config.Config) drive.WorkbookFunc {
	return func(ctx context.Context, stock service.Upload, items *service.Upload) error {
		res, err := svc.Plan(ctx, service.PlanRequest{
			Stock:  stock,
			Items:  items,
			Config: cfg.Plan.Clone(),
		})
		if err != nil {
			return err
		}
		if !svc.CanPublish() {
			logger.Log.Info().Str("file", stock.Name).Str("run_id", res.Run.ID).
				Int("plan_rows", res.Run.PlanRows).Msg("drive workbook planned")
			return nil
		}
		_, err = svc.Publish(ctx, res.Result, service.PublishKinds)
		return err
	}
}
