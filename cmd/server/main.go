package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	appsub "github.com/discovery/subscription-controller/internal/application/subscription"
	"github.com/discovery/subscription-controller/internal/infrastructure/cache"
	"github.com/discovery/subscription-controller/internal/infrastructure/config"
	"github.com/discovery/subscription-controller/internal/infrastructure/jobcontrol"
	"github.com/discovery/subscription-controller/internal/infrastructure/logger"
	"github.com/discovery/subscription-controller/internal/infrastructure/persistence"
	"github.com/discovery/subscription-controller/internal/infrastructure/scheduler"
	"github.com/discovery/subscription-controller/internal/infrastructure/telemetry"
	"github.com/discovery/subscription-controller/internal/interfaces/http/handler"
	"github.com/discovery/subscription-controller/internal/interfaces/http/middleware"
	"github.com/discovery/subscription-controller/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxRequestBody = 1 << 20

func main() {
	var (
		once     bool
		clientID string
	)
	flag.BoolVar(&once, "once", false, "Run one batch sweep over every client and exit")
	flag.StringVar(&clientID, "client", "", "Sweep a single client by id and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

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

	log.Info("Starting subscription controller",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("database_driver", cfg.Database.Driver),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	providers, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
		MetricsEnabled:    cfg.Telemetry.MetricsEnabled,
		MetricsInterval:   cfg.Telemetry.MetricsInterval,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		if err := providers.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down telemetry", zap.Error(err))
		}
	}()

	logs, err := telemetry.NewLogBridge(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	})
	if err != nil {
		log.Fatal("Failed to initialize log export", zap.Error(err))
	}
	defer func() {
		if err := logs.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down log export", zap.Error(err))
		}
	}()
	log = logs.Attach(log)

	metrics, err := telemetry.NewSweepMetrics(providers.Meter(cfg.Telemetry.ServiceName))
	if err != nil {
		log.Fatal("Failed to create sweep metrics", zap.Error(err))
	}

	db, err := persistence.NewDatabase(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	// postgres schemas are owned by cmd/migrate
	if cfg.Database.Driver == "sqlite" {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate sqlite schema", zap.Error(err))
		}
	}
	dbSystem := "postgresql"
	if cfg.Database.Driver == "sqlite" {
		dbSystem = "sqlite"
	}
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:  cfg.Telemetry.Enabled && cfg.Telemetry.DBTracing,
		DBSystem: dbSystem,
	}); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	log.Info("Database connected successfully")

	clientRepo := persistence.NewClientRepository(db.DB)
	subRepo := persistence.NewSubscriptionRepository(db.DB)
	projectRepo := persistence.NewProjectRepository(db.DB)
	usageRepo := persistence.NewUsageRepository(db.DB)
	intervalRepo := persistence.NewIntervalRepository(db.DB)

	jobs, err := jobcontrol.NewClient(jobcontrol.Config{
		BaseURL: cfg.JobControl.BaseURL,
		Timeout: cfg.JobControl.Timeout,
	}, log)
	if err != nil {
		log.Fatal("Failed to create job control client", zap.Error(err))
	}

	storeTimeout := cfg.Sweep.StoreTimeout
	aggregator := appsub.NewUsageAggregator(usageRepo, storeTimeout)
	evaluator := appsub.NewQuotaEvaluator(subRepo, aggregator, storeTimeout, log)
	lifecycle := appsub.NewSubscriptionLifecycleManager(subRepo, storeTimeout, log)
	ledger := appsub.NewUsageIntervalLedger(lifecycle, projectRepo, intervalRepo, storeTimeout, log)
	sweeper := appsub.NewJobSweepController(clientRepo, projectRepo, evaluator, lifecycle, ledger, jobs,
		appsub.SweepConfig{
			Concurrency:    cfg.Sweep.Concurrency,
			RetryTransient: cfg.Sweep.RetryTransient,
			Timeouts:       appsub.Timeouts{Store: storeTimeout, Job: cfg.Sweep.JobTimeout},
		}, log)
	sweeper.SetMetrics(metrics)

	switch {
	case clientID != "":
		exhausted, out, err := sweeper.SweepOne(ctx, clientID)
		if err != nil {
			log.Fatal("Client sweep failed", zap.String("client_id", clientID), zap.Error(err))
		}
		log.Info("Client sweep finished", zap.Bool("exhausted", exhausted), zap.Any("outcome", out))
		return
	case once:
		summary, err := sweeper.SweepAll(ctx)
		if err != nil {
			log.Fatal("Batch sweep failed", zap.Error(err))
		}
		log.Info("Batch sweep finished", zap.Any("summary", summary))
		return
	}

	events, err := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log)).CreateStore(ctx)
	if err != nil {
		log.Fatal("Failed to create usage event store", zap.Error(err))
	}
	defer func() {
		if err := events.Close(); err != nil {
			log.Error("Error closing usage event store", zap.Error(err))
		}
	}()

	recorder := appsub.NewUsageRecorder(sweeper, subRepo, projectRepo, usageRepo, events,
		cfg.Sweep.EventTTL, storeTimeout, log)
	recorder.SetMetrics(metrics)

	var (
		sched   *scheduler.SweepScheduler
		trigger handler.SweepTrigger
	)
	if cfg.Sweep.Enabled {
		sched = scheduler.NewSweepScheduler(sweeper, log, scheduler.SweepSchedulerConfig{
			Enabled:      true,
			Interval:     cfg.Sweep.Interval,
			BatchTimeout: cfg.Sweep.BatchTimeout,
			RunOnStart:   true,
		})
		if err := sched.Start(ctx); err != nil {
			log.Fatal("Failed to start sweep scheduler", zap.Error(err))
		}
		trigger = sched
	}

	var srv *http.Server
	if cfg.HTTP.Enabled {
		srv = newServer(cfg, log, db, jobs, handler.NewSubscriptionHandler(evaluator, sweeper, recorder, trigger))
		go func() {
			log.Info("Server starting", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal("Failed to start server", zap.Error(err))
			}
		}()
	}

	<-ctx.Done()
	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Server forced to shutdown", zap.Error(err))
		}
	}
	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			log.Error("Sweep scheduler did not stop cleanly", zap.Error(err))
		}
	}

	log.Info("Controller exited gracefully")
}

func newServer(
	cfg *config.Config,
	log *zap.Logger,
	db *persistence.Database,
	jobs *jobcontrol.Client,
	subscriptions *handler.SubscriptionHandler,
) *http.Server {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(logger.Recovery(log), logger.GinMiddleware(log))
	engine.GET("/health", handler.NewHealthHandler(db, jobs).Check)

	tracing := middleware.DefaultTracingConfig()
	tracing.ServiceName = cfg.Telemetry.ServiceName
	tracing.Enabled = cfg.Telemetry.Enabled

	router.NewRouter(engine, router.WithMiddleware(
		middleware.TracingWithConfig(tracing),
		middleware.SpanAttributes(),
		middleware.BodyLimit(maxRequestBody),
	)).Register(subscriptions).Setup()

	return &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}
}
