package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/primelio/cee-service/config"
	_ "github.com/primelio/cee-service/docs"
	"github.com/primelio/cee-service/internal/catalog"
	"github.com/primelio/cee-service/internal/compute"
	"github.com/primelio/cee-service/internal/database"
	"github.com/primelio/cee-service/internal/handlers"
	ceehttp "github.com/primelio/cee-service/internal/http"
	"github.com/primelio/cee-service/internal/http/ratelimit"
	"github.com/primelio/cee-service/internal/importer"
	"github.com/primelio/cee-service/internal/jobs"
	"github.com/primelio/cee-service/internal/middleware"
	"github.com/primelio/cee-service/internal/storage"
	"github.com/primelio/cee-service/internal/sweepers"
	"github.com/primelio/cee-service/internal/taskqueue"
	"github.com/primelio/cee-service/internal/telemetry"
	"github.com/primelio/cee-service/internal/workers"
)

// @title CEE Valorisation Service API
// @version 1.0
// @description Profitability and CEE valorisation engine for renovation projects.
// @BasePath /
func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := initLogger(cfg.Logging)

	logger.Info().Msg("Starting CEE valorisation service")

	ctx := context.Background()

	telemetryCleanup, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		ServiceName: cfg.Telemetry.ServiceName,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize telemetry")
	}

	dbURL := config.GetDatabaseURL()
	if dbURL == "" {
		logger.Fatal().Msg("DATABASE_URL not set")
	}

	if err := database.Connect(
		ctx,
		dbURL,
		cfg.Database.MaxConnections,
		cfg.Database.MinConnections,
		cfg.Database.MaxConnLifetime,
		cfg.Database.MaxConnIdleTime,
	); err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	logger.Info().Msg("Database connected")

	if n, err := database.HandleInterruptedRuns(ctx); err != nil {
		logger.Warn().Err(err).Msg("Failed to handle interrupted runs")
	} else if n > 0 {
		logger.Info().Int("count", n).Msg("Marked interrupted import runs")
	}

	queue := taskqueue.New(database.Pool())

	cache := catalog.NewCache(catalog.DatabaseSource{}, catalog.Config{
		TTL:           cfg.Cache.TTL,
		LoadTimeout:   cfg.Cache.LoadTimeout,
		RefreshJitter: cfg.Cache.RefreshJitter,
		Breaker: &catalog.CircuitBreakerConfig{
			MaxFailures:      cfg.Cache.BreakerFailureThreshold,
			ResetTimeout:     cfg.Cache.BreakerResetTimeout,
			HalfOpenMaxCalls: 1,
		},
	})
	defer cache.Close()

	if err := cache.Warmup(ctx); err != nil {
		// An empty referential is survivable: imports repopulate it and the
		// refresh loop retries.
		logger.Warn().Err(err).Msg("Referential warmup failed, serving degraded until next refresh")
	}
	cache.StartRefreshLoop(ctx)

	store, err := storage.NewLocalStorage(cfg.Storage.BasePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize archive storage")
	}

	fetcher := ceehttp.NewClient(ratelimit.Config{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		MaxRetries:        cfg.RateLimit.MaxRetries,
		InitialBackoffMs:  cfg.RateLimit.InitialBackoffMs,
		MaxBackoffMs:      cfg.RateLimit.MaxBackoffMs,
	})

	imp := importer.New(store, fetcher, queue, cache, importer.Options{
		MaxFileSize:   cfg.Import.MaxFileSizeBytes,
		MaxZipEntries: cfg.Import.MaxZipEntries,
		FetchTimeout:  cfg.Import.FetchTimeout,
	})

	computeService := compute.NewService(cache)

	handlers.InitEngine(computeService, cache, cfg.Engine.ChangeTolerance)
	handlers.InitImports(imp, queue, cfg.Import.MaxFileSizeBytes)

	taskSweeper := sweepers.NewTaskQueueSweeper(queue, cfg.Worker.ClaimTTL, cfg.Worker.SweepInterval)
	go taskSweeper.Start(ctx)

	cleanupScheduler := jobs.NewCleanupScheduler(queue, jobs.DefaultCleanupConfig(), *logger)
	cleanupScheduler.Start()

	var worker *workers.Worker
	if cfg.Worker.Enabled {
		worker = workers.New(queue, workers.Config{
			MaxTasks:   5,
			NumWorkers: 2,
			PollDelay:  cfg.Worker.PollInterval,
		})
		workers.RegisterHandlers(worker, workers.HandlerDeps{
			Queue:    queue,
			Compute:  computeService,
			Cache:    cache,
			Importer: imp,
			Recompute: jobs.RecomputeOptions{
				Tolerance:   cfg.Engine.ChangeTolerance,
				Concurrency: cfg.Worker.RecomputeWorkers,
			},
			Cleanup: jobs.DefaultCleanupConfig(),
		})
		worker.Start(ctx)
		logger.Info().Msg("Background worker started")
	}

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(*logger))
	router.Use(middleware.Metrics())

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := router.Group("/api/v1")
	api.Use(middleware.GlobalRateLimit(float64(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst))
	{
		api.POST("/compute", handlers.Compute)
		api.POST("/valorisation", handlers.Valorise)
		api.POST("/rentability/unified", handlers.RentabilityUnified)
		api.POST("/rentability/category", handlers.RentabilityCategory)
		api.POST("/subcontract", handlers.Subcontract)

		api.GET("/catalog/products", handlers.ListCatalogProducts)
		api.GET("/catalog/products/:code", handlers.GetCatalogProduct)
		api.GET("/catalog/delegates", handlers.ListDelegates)

		api.GET("/snapshots", handlers.ListProjectSnapshots)
		api.GET("/projects/:id/snapshot", handlers.GetProjectSnapshot)

		admin := api.Group("")
		admin.Use(middleware.APIKeyAuth(cfg.Auth.APIKey))
		{
			admin.PUT("/projects/:id/snapshot", handlers.RecomputeProjectSnapshot)
			admin.POST("/imports", handlers.StartImport)
		}

		api.GET("/imports", handlers.ListImportRuns)
		api.GET("/imports/:id", handlers.GetImportRun)
		api.GET("/imports/:id/errors", handlers.ListImportRunErrors)
		api.GET("/imports/:id/errors/summary", handlers.GetImportErrorSummary)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")
	taskSweeper.Stop()
	cleanupScheduler.Stop()
	if worker != nil {
		worker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := telemetryCleanup(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Telemetry shutdown failed")
	}

	logger.Info().Msg("Server exited")
}

func initLogger(cfg config.LoggingConfig) *zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var output io.Writer
	if cfg.Format == "json" {
		output = os.Stdout
	} else {
		output = zerolog.ConsoleWriter{Out: os.Stdout, NoColor: cfg.NoColor}
	}

	logger := zerolog.New(output).Level(level).With().Timestamp().Str("service", "cee-service").Logger()
	zlog.Logger = logger
	return &logger
}
