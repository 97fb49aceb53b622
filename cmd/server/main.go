package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/channelsync/backend/internal/application/importer"
	"github.com/channelsync/backend/internal/application/reconcile"
	"github.com/channelsync/backend/internal/application/syncengine"
	"github.com/channelsync/backend/internal/application/taskqueue"
	"github.com/channelsync/backend/internal/domain/integration"
	"github.com/channelsync/backend/internal/domain/shared"
	"github.com/channelsync/backend/internal/infrastructure/cache"
	"github.com/channelsync/backend/internal/infrastructure/channel"
	"github.com/channelsync/backend/internal/infrastructure/config"
	"github.com/channelsync/backend/internal/infrastructure/event"
	"github.com/channelsync/backend/internal/infrastructure/logger"
	"github.com/channelsync/backend/internal/infrastructure/persistence"
	"github.com/channelsync/backend/internal/infrastructure/telemetry"
	"github.com/channelsync/backend/internal/interfaces/http/handler"
	"github.com/channelsync/backend/internal/interfaces/http/middleware"
	"github.com/channelsync/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// defaultRemoteCurrencies is the currency set pushed to channels that do not
// configure their own.
var defaultRemoteCurrencies = []string{"EUR", "USD", "GBP"}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	log := logger.New(cfg.Log)
	defer func() {
		_ = log.Sync()
	}()

	log.Info("starting channelsync backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.App.Name,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			log.Error("error shutting down tracer provider", zap.Error(err))
		}
	}()

	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("error closing database", zap.Error(err))
		}
	}()
	if err := db.AutoMigrate(); err != nil {
		log.Fatal("failed to migrate schema", zap.Error(err))
	}
	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled,
		LogFullSQL:      cfg.Telemetry.TraceSQL,
		SlowQueryThresh: telemetry.DefaultDBTracingConfig().SlowQueryThresh,
	}, log)
	if err := dbTracing.Register(db.DB); err != nil {
		log.Fatal("failed to register database tracing", zap.Error(err))
	}
	log.Info("database connected")

	// Repositories
	integrationRepo := persistence.NewGormIntegrationRepository(db.DB)
	taskRepo := persistence.NewGormTaskRepository(db.DB)
	syncRequestRepo := persistence.NewGormSyncRequestRepository(db.DB)
	remoteProductRepo := persistence.NewGormRemoteProductRepository(db.DB)
	remoteSelectValueRepo := persistence.NewGormRemoteSelectValueRepository(db.DB)
	syncLogRepo := persistence.NewGormSyncLogRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	productPriceRepo := persistence.NewGormProductPriceRepository(db.DB)
	selectValueRepo := persistence.NewGormSelectValueRepository(db.DB)
	propertyRepo := persistence.NewGormPropertyRepository(db.DB)
	importRunRepo := persistence.NewGormImportRunRepository(db.DB)
	mirrorStore := persistence.NewGormMirrorStore(db.DB)

	// Event bus
	eventBus := event.NewInMemoryEventBus(log)
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("error stopping event bus", zap.Error(err))
		}
	}()

	// Idempotency store; redis when reachable, in-memory otherwise
	var idempotencyStore shared.IdempotencyStore
	redisStore, err := cache.NewRedisIdempotencyStore(cfg.Redis)
	if err != nil {
		log.Warn("redis unavailable, using in-memory idempotency store", zap.Error(err))
		idempotencyStore = cache.NewInMemoryIdempotencyStore()
	} else {
		idempotencyStore = redisStore
	}
	defer func() {
		if err := idempotencyStore.Close(); err != nil {
			log.Error("error closing idempotency store", zap.Error(err))
		}
	}()

	// Task registry and queue services
	registry := integration.NewTaskRegistry()
	queueService := taskqueue.NewQueueService(integrationRepo, taskRepo, registry, eventBus, log)
	sweepService := taskqueue.NewSweepService(integrationRepo, taskRepo, registry, queueService, cfg.Queue.SweepBatchSize, log)

	registerTasks(registry, &taskDependencies{
		integrations: integrationRepo,
		mirrors:      remoteProductRepo,
		products:     productRepo,
		prices:       productPriceRepo,
		mirrorStore:  mirrorStore,
		logs:         syncLogRepo,
		eventBus:     eventBus,
		currencies:   defaultRemoteCurrencies,
		fallback:     channel.NewFakeClient(),
		logger:       log,
	})
	log.Info("task registry populated", zap.Strings("tasks", registry.Names()))

	// Sync request dedupe and escalation
	requestService := syncengine.NewRequestService(syncRequestRepo, remoteProductRepo, eventBus, syncengine.RequestServiceConfig{
		ProductResyncTask:   syncengine.TaskProductResync,
		ParentResyncTask:    syncengine.TaskParentResync,
		EscalationThreshold: cfg.Sync.EscalationThreshold,
	}, log)

	// Select-value reconciliation
	languageMapper := reconcile.NewStaticLanguageMapper([]reconcile.LanguageMapping{
		{Remote: "en", Local: "en"},
	})
	matcher := reconcile.NewSelectValueMatcher(integrationRepo, remoteSelectValueRepo, selectValueRepo, languageMapper, cfg.Sync.MatchBatchSize, log)

	// A redelivered MirrorSynced event must not enqueue the same
	// dependent sync twice.
	mirrorSyncedHandler := syncengine.NewMirrorSyncedHandler(queueService, syncengine.TaskPriceSync, log)
	eventBus.Subscribe(event.NewIdempotentHandler(mirrorSyncedHandler, idempotencyStore, shared.DefaultIdempotencyConfig(), log))

	// Scheduled work: the queue sweep and the nightly reconciliation
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Queue.SweepSchedule, func() {
		if err := sweepService.Run(context.Background()); err != nil {
			log.Error("queue sweep failed", zap.Error(err))
		}
	}); err != nil {
		log.Fatal("invalid sweep schedule", zap.Error(err))
	}
	if _, err := scheduler.AddFunc(cfg.Sync.ReconcileSchedule, func() {
		ctx := context.Background()
		active, err := integrationRepo.FindActive(ctx)
		if err != nil {
			log.Error("failed to list active integrations", zap.Error(err))
			return
		}
		for _, inst := range active {
			result, err := matcher.Run(ctx, inst.ID)
			if err != nil {
				log.Error("select value reconciliation failed",
					zap.String("integration_id", inst.ID.String()),
					zap.Error(err),
				)
				continue
			}
			log.Info("select value reconciliation finished",
				zap.String("integration_id", inst.ID.String()),
				zap.Int("scanned", result.Scanned),
				zap.Int("mapped", result.Mapped),
			)
		}
	}); err != nil {
		log.Fatal("invalid reconcile schedule", zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Stop()
	log.Info("scheduler started",
		zap.String("sweep_schedule", cfg.Queue.SweepSchedule),
		zap.String("reconcile_schedule", cfg.Sync.ReconcileSchedule),
	)

	// HTTP surface
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()
	importService := importer.NewService(importRunRepo, productRepo, propertyRepo, selectValueRepo, remoteProductRepo, log)

	engine := gin.New()
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.App.Name,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(logger.GinMiddleware(log))

	router.Setup(engine, router.Handlers{
		Queue:       handler.NewQueueHandler(queueService, taskRepo),
		SyncRequest: handler.NewSyncRequestHandler(requestService),
		Reconcile:   handler.NewReconcileHandler(matcher),
		Import:      handler.NewImportHandler(importRunRepo, importService),
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited gracefully")
}
