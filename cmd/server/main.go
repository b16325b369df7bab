package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/comedor/backend/internal/application/dashboard"
	reportapp "github.com/comedor/backend/internal/application/report"
	"github.com/comedor/backend/internal/domain/orders"
	"github.com/comedor/backend/internal/domain/report"
	"github.com/comedor/backend/internal/infrastructure/cache"
	"github.com/comedor/backend/internal/infrastructure/config"
	"github.com/comedor/backend/internal/infrastructure/logger"
	"github.com/comedor/backend/internal/infrastructure/persistence"
	"github.com/comedor/backend/internal/infrastructure/scheduler"
	"github.com/comedor/backend/internal/infrastructure/source"
	"github.com/comedor/backend/internal/infrastructure/telemetry"
	"github.com/comedor/backend/internal/interfaces/http/handler"
	"github.com/comedor/backend/internal/interfaces/http/middleware"
	"github.com/comedor/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Config{
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

	log.Info("Starting restaurant dashboard",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("timezone", cfg.App.Timezone),
	)

	loc, err := cfg.App.Location()
	if err != nil {
		log.Fatal("Invalid business timezone", zap.Error(err))
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize log export", zap.Error(err))
	}
	log = loggerProvider.Bridge(log, logger.ParseLevel(cfg.Log.Level))

	metrics := telemetry.NewNoopDashboardMetrics()
	if meterProvider.IsEnabled() {
		if metrics, err = telemetry.NewDashboardMetrics(meterProvider.Meter("comedor-dashboard")); err != nil {
			log.Fatal("Failed to register dashboard metrics", zap.Error(err))
		}
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:    cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL: cfg.Telemetry.DBLogFullSQL,
	}, log)
	if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
		log.Warn("Failed to register database tracing", zap.Error(err))
	}
	log.Info("Database connected successfully")

	coordination, err := cache.NewFactory(cfg.Redis, cache.WithLogger(log)).Create(ctx)
	if err != nil {
		log.Fatal("Failed to initialize coordination backend", zap.Error(err))
	}
	defer func() {
		if err := coordination.Close(); err != nil {
			log.Error("Error closing coordination backend", zap.Error(err))
		}
	}()

	// Domain services
	normalizer := orders.NewNormalizer(loc)
	units := orders.NewUnitEstimator(cfg.Business.LunchUnitPrices, cfg.Business.MaxLunchUnits)
	aggregator := reportapp.NewDayAggregator(units)
	reconciler := reportapp.NewReconciler(
		aggregator,
		persistence.NewGormSnapshotRepository(db.DB),
		persistence.NewGormOrderCountRepository(db.DB),
		coordination.Keys,
		reportapp.ReconcilerConfig{
			BackfillWindowDays: cfg.Business.BackfillWindowDays,
			PersistOpenDay:     cfg.Business.PersistOpenDay,
			ProcessedKeyTTL:    cfg.Business.ProcessedKeyTTL,
			Location:           loc,
		},
		reportapp.WithReconcilerLogger(log),
		reportapp.WithReconcilerMetrics(metrics),
	)

	today := reconciler.Today()
	warmFrom, _ := reportapp.PeriodRange(report.PeriodThisYear, today)
	if weekFrom, _ := reportapp.PeriodRange(report.PeriodLast7Days, today); weekFrom < warmFrom {
		warmFrom = weekFrom
	}
	if backfillFrom := reportapp.AddDays(today, -cfg.Business.BackfillWindowDays); backfillFrom < warmFrom {
		warmFrom = backfillFrom
	}
	if err := reconciler.Warm(ctx, warmFrom, today); err != nil {
		log.Fatal("Failed to load daily snapshots", zap.Error(err))
	}

	sources, err := source.NewPollingSources(
		cfg.Sources.Enabled,
		persistence.NewSourceDocumentRepository(db.DB),
		cfg.Sources.PollInterval,
		log,
	)
	if err != nil {
		log.Fatal("Invalid source configuration", zap.Error(err))
	}

	engine := dashboard.NewEngine(
		reconciler,
		reportapp.NewPeriodComposer(reconciler, metrics),
		reportapp.NewRevenueReconciler(aggregator, cfg.Business.ExpenseProviderPlaceholder),
		normalizer,
		sources,
		dashboard.WithEngineLogger(log),
		dashboard.WithEngineMetrics(metrics),
	)
	if err := engine.Start(ctx); err != nil {
		log.Fatal("Failed to start dashboard engine", zap.Error(err))
	}

	cronHour, cronMinute, err := scheduler.ParseCronSchedule(cfg.Scheduler.DailyCronSchedule)
	if err != nil {
		log.Fatal("Invalid scheduler configuration", zap.Error(err))
	}
	dayClose := scheduler.NewDayCloseScheduler(scheduler.DayCloseSchedulerConfig{
		Enabled:           cfg.Scheduler.Enabled,
		CronHour:          cronHour,
		CronMinute:        cronMinute,
		DailyCronSchedule: cfg.Scheduler.DailyCronSchedule,
		JobTimeout:        cfg.Scheduler.JobTimeout,
		LockTTL:           cfg.Scheduler.LockTTL,
		Location:          loc,
	}, engine, coordination.Locker, scheduler.NewDayCloseRunRepository(db.DB), log)
	if cfg.Scheduler.Enabled {
		if err := dayClose.Start(ctx); err != nil {
			log.Fatal("Failed to start day close scheduler", zap.Error(err))
		}
	}

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	httpEngine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := httpEngine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins

	httpEngine.Use(logger.Recovery(log))
	httpEngine.Use(logger.GinMiddleware(log))
	httpEngine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		Enabled:     cfg.Telemetry.Enabled,
		ServiceName: cfg.Telemetry.ServiceName,
	}))
	httpEngine.Use(middleware.SpanAttributes())
	httpEngine.Use(middleware.SpanErrorMarker())
	httpEngine.Use(middleware.HTTPMetrics(meterProvider))
	httpEngine.Use(middleware.Secure())
	httpEngine.Use(middleware.CORSWithConfig(corsConfig))
	httpEngine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	dashboardHandler := handler.NewDashboardHandler(engine, dayClose)
	var schedulerStatus handler.SchedulerStatus
	if cfg.Scheduler.Enabled {
		schedulerStatus = dayClose
	}
	systemHandler := handler.NewSystemHandler(cfg.App.Name, version, engine, schedulerStatus)

	routes := router.NewRouter(httpEngine, router.WithAPIVersion("v1")).
		Register(router.DashboardRoutes(dashboardHandler)).
		Register(router.DayRoutes(dashboardHandler)).
		Register(router.SystemRoutes(systemHandler)).
		Setup()
	for _, route := range routes {
		log.Debug("Route registered", zap.String("method", route.Method), zap.String("path", route.Path))
	}
	log.Info("HTTP routes registered", zap.Int("count", len(routes)))

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        httpEngine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if cfg.Scheduler.Enabled {
		if err := dayClose.Stop(shutdownCtx); err != nil {
			log.Warn("Error stopping day close scheduler", zap.Error(err))
		}
	}
	if err := engine.Stop(shutdownCtx); err != nil {
		log.Warn("Error stopping dashboard engine", zap.Error(err))
	}
	stop()

	telemetryCtx, telemetryCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer telemetryCancel()
	if err := meterProvider.Shutdown(telemetryCtx); err != nil {
		log.Warn("Error shutting down meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(telemetryCtx); err != nil {
		log.Warn("Error shutting down tracer provider", zap.Error(err))
	}
	log.Info("Server exited gracefully")
	if err := loggerProvider.Shutdown(telemetryCtx); err != nil {
		log.Warn("Error shutting down logger provider", zap.Error(err))
	}
}
