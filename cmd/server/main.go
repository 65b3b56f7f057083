package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/catsync/backend/internal/application/catalogquery"
	credentialapp "github.com/catsync/backend/internal/application/credential"
	syncapp "github.com/catsync/backend/internal/application/sync"
	"github.com/catsync/backend/internal/application/vendors"
	"github.com/catsync/backend/internal/domain/catalog"
	"github.com/catsync/backend/internal/domain/vendor"
	"github.com/catsync/backend/internal/infrastructure/config"
	"github.com/catsync/backend/internal/infrastructure/feed"
	"github.com/catsync/backend/internal/infrastructure/logger"
	"github.com/catsync/backend/internal/infrastructure/persistence"
	"github.com/catsync/backend/internal/infrastructure/scheduler"
	"github.com/catsync/backend/internal/infrastructure/vault"
	"github.com/catsync/backend/internal/infrastructure/vendorfeed"
	"github.com/catsync/backend/internal/interfaces/http/handler"
	"github.com/catsync/backend/internal/interfaces/http/middleware"
	"github.com/catsync/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting catalog sync backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port))

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		_ = db.Close()
	}()
	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Credential vault
	sealer, err := vault.NewSealer(cfg.Vault.RootSecret)
	if err != nil {
		log.Fatal("Failed to initialize credential vault", zap.Error(err))
	}

	// Repositories
	defRepo := persistence.NewGormVendorDefinitionRepository(db.DB)
	credRepo := persistence.NewGormCredentialRepository(db.DB)
	productRepo := persistence.NewGormMasterProductRepository(db.DB)
	mappingRepo := persistence.NewGormVendorProductMappingRepository(db.DB)
	runRepo := persistence.NewGormSyncRunRepository(db.DB)
	snapshotRepo := persistence.NewGormFeedSnapshotRepository(db.DB)

	// Protocol handlers. Every known vendor is bound to its handler at
	// startup; vendors created through the API are bound on save.
	registry := vendorfeed.NewRegistry()
	binder := vendorfeed.NewProtocolBinder(registry,
		vendorfeed.NewFTPHandler(cfg.Sync.FeedDialTimeout),
		vendorfeed.NewRESTHandler(cfg.Sync.FeedRequestTimeout),
		vendorfeed.NewSOAPHandler("", "", cfg.Sync.FeedRequestTimeout))
	if err := bindKnownVendors(context.Background(), binder, defRepo, log, registry); err != nil {
		log.Fatal("Failed to register vendor handlers", zap.Error(err))
	}

	// Application services
	vaultService := credentialapp.NewVaultService(sealer, defRepo, credRepo, registry, log)
	definitionService := vendors.NewDefinitionService(defRepo, binder, log)
	queryService := catalogquery.NewService(productRepo, mappingRepo)
	importer := syncapp.NewFeedImporter(mappingRepo, log, cfg.Sync.MaxRowErrors)
	merger := syncapp.NewMergeService(catalog.NewMergeEngine(), productRepo, mappingRepo, defRepo, log)
	orchestrator := syncapp.NewSyncOrchestrator(syncapp.OrchestratorParams{
		Definitions: defRepo,
		Credentials: vaultService,
		Registry:    registry,
		Runs:        runRepo,
		Snapshots:   snapshotRepo,
		Mappings:    mappingRepo,
		Detector:    feed.NewChangeDetector(snapshotRepo),
		Importer:    importer,
		Merger:      merger,
		Retry: vendorfeed.RetryPolicy{
			MaxAttempts: cfg.Sync.FetchRetryAttempts,
			Backoff:     cfg.Sync.FetchRetryBackoff,
		},
		StuckRunThreshold: cfg.Sync.StuckRunThreshold,
		Logger:            log,
	})

	// Scheduler
	var syncScheduler *scheduler.SyncScheduler
	if cfg.Scheduler.Enabled {
		syncScheduler = scheduler.NewSyncScheduler(scheduler.Config{
			Interval:          cfg.Scheduler.Interval,
			MaxConcurrentRuns: cfg.Scheduler.MaxConcurrentRuns,
		}, orchestrator, defRepo, credRepo, log)
		if err := syncScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
	}

	// HTTP server
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Failed to set trusted proxies", zap.Error(err))
	}
	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.Tenant(middleware.TenantConfig{
		SkipPaths: []string{"/health"},
	}))

	engine.GET("/health", healthHandler(db))

	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Register(
			handler.NewVendorHandler(definitionService),
			handler.NewCredentialHandler(vaultService),
			handler.NewSyncHandler(orchestrator),
			handler.NewProductHandler(queryService),
		).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if syncScheduler != nil {
		if err := syncScheduler.Stop(ctx); err != nil {
			log.Warn("Scheduler did not stop cleanly", zap.Error(err))
		}
	}
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// bindKnownVendors binds each active vendor definition to the handler for
// its protocol.
func bindKnownVendors(ctx context.Context, binder *vendorfeed.ProtocolBinder, defs vendor.DefinitionRepository, log *zap.Logger, registry *vendorfeed.Registry) error {
	active, err := defs.FindAllActive(ctx)
	if err != nil {
		return err
	}
	for _, def := range active {
		if err := binder.Bind(def.Code, def.Protocol); err != nil {
			return err
		}
	}
	log.Info("Vendor handlers registered", zap.Strings("vendors", registry.Codes()))
	return nil
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
