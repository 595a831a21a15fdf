package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	billingapp "github.com/clubdeportivo/backend/internal/application/billing"
	"github.com/clubdeportivo/backend/internal/domain/shared"
	"github.com/clubdeportivo/backend/internal/infrastructure/auth"
	"github.com/clubdeportivo/backend/internal/infrastructure/cache"
	"github.com/clubdeportivo/backend/internal/infrastructure/config"
	"github.com/clubdeportivo/backend/internal/infrastructure/event"
	"github.com/clubdeportivo/backend/internal/infrastructure/logger"
	"github.com/clubdeportivo/backend/internal/infrastructure/persistence"
	"github.com/clubdeportivo/backend/internal/infrastructure/scheduler"
	"github.com/clubdeportivo/backend/internal/infrastructure/telemetry"
	"github.com/clubdeportivo/backend/internal/interfaces/http/handler"
	"github.com/clubdeportivo/backend/internal/interfaces/http/middleware"
	"github.com/clubdeportivo/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is stamped at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}
	telemetry.ServiceVersion = version

	// Providers log their own setup through a bootstrap logger; the real
	// logger needs the log provider's core.
	bootLog, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: "stderr"})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize logger provider", zap.Error(err))
	}

	var extraCores []zapcore.Core
	if core := loggerProvider.ZapCore(logger.ParseLevel(cfg.Log.Level)); core != nil {
		extraCores = append(extraCores, core)
	}
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}, extraCores...)
	if err != nil {
		bootLog.Fatal("Failed to initialize logger", zap.Error(err))
	}
	_ = bootLog.Sync()
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting club backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	// Instruments are only created when metrics export is on
	var meter metric.Meter
	if meterProvider.IsEnabled() {
		meter = meterProvider.Meter(telemetry.MeterName)
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connected successfully")

	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:    cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL: cfg.Telemetry.DBLogFullSQL,
		DBName:     cfg.Database.DBName,
	}, log)
	if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	if meter != nil {
		dbMetrics, err := telemetry.NewDBMetrics(meter, 0, log)
		if err != nil {
			log.Fatal("Failed to create database metrics", zap.Error(err))
		}
		if err := db.DB.Use(dbMetrics); err != nil {
			log.Fatal("Failed to register database metrics", zap.Error(err))
		}
		defer func() {
			_ = dbMetrics.Close()
		}()
	}

	installmentRepo := persistence.NewGormInstallmentRepository(db.DB)
	enrollmentReader := persistence.NewGormEnrollmentReader(db.DB)
	auditRepo := persistence.NewGormAuditLogRepository(db.DB)

	// Event bus with the audit trail behind an idempotency guard
	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithRequireRedis(cfg.Event.RequireRedis),
	).CreateStore(ctx)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	eventBus := event.NewInMemoryEventBus(log)
	auditHandler := event.NewIdempotentHandler("audit_trail",
		billingapp.NewAuditTrailHandler(auditRepo, log),
		idempotencyStore,
		log,
		event.WithIdempotencyConfig(shared.IdempotencyConfig{
			TTL:     cfg.Event.IdempotencyTTL,
			Enabled: cfg.Event.IdempotencyEnabled,
		}),
	)
	eventBus.Subscribe(auditHandler)
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	log.Info("Event handlers registered", zap.Strings("audit_trail_events", auditHandler.EventTypes()))

	serviceOpts := []billingapp.BillingServiceOption{
		billingapp.WithEnrollmentReader(enrollmentReader),
		billingapp.WithAuditRepository(auditRepo),
		billingapp.WithEventPublisher(eventBus),
		billingapp.WithLogger(log),
		billingapp.WithOverdueBatchSize(cfg.Billing.OverdueBatchSize),
	}
	if meter != nil {
		billingMetrics, err := telemetry.NewBillingMetrics(meter)
		if err != nil {
			log.Fatal("Failed to create billing metrics", zap.Error(err))
		}
		serviceOpts = append(serviceOpts, billingapp.WithMetrics(billingMetrics))
	}
	billingService := billingapp.NewBillingService(installmentRepo, serviceOpts...)

	// Overdue sweep (if enabled)
	var sweepScheduler *scheduler.Scheduler
	if cfg.Billing.OverdueSweepEnabled {
		loc, err := time.LoadLocation(cfg.Billing.Timezone)
		if err != nil {
			log.Fatal("Invalid billing timezone", zap.Error(err))
		}
		sweepScheduler = scheduler.NewScheduler(log, scheduler.WithLocation(loc))
		sweep := scheduler.NewOverdueSweepJob(billingService, cfg.Billing.SweepTimeout, log)
		if err := sweepScheduler.Register(cfg.Billing.OverdueSweepSchedule, sweep); err != nil {
			log.Fatal("Failed to schedule overdue sweep", zap.Error(err))
		}
		if err := sweepScheduler.Start(ctx); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
		next, _ := sweepScheduler.NextRun(sweep.Name())
		log.Info("Overdue sweep scheduled",
			zap.String("schedule", cfg.Billing.OverdueSweepSchedule),
			zap.String("timezone", cfg.Billing.Timezone),
			zap.Time("next_run", next),
		)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	checks := map[string]handler.Pinger{"database": db}
	if pinger, ok := idempotencyStore.(handler.Pinger); ok {
		checks["redis"] = pinger
	}

	var validator *auth.TokenValidator
	if cfg.JWT.Secret != "" {
		validator = auth.NewTokenValidator(cfg.JWT)
	}

	engine, err := router.NewEngine(router.Options{
		ServiceName: cfg.Telemetry.ServiceName,
		Logger:      log,
		HTTP:        cfg.HTTP,
		Auth: middleware.AuthConfig{
			Validator:           validator,
			Required:            cfg.JWT.Required,
			AllowHeaderFallback: cfg.JWT.AllowHeaderFallback,
		},
		Tracing:      tracerProvider.IsEnabled(),
		Meter:        meter,
		Installments: handler.NewInstallmentHandler(billingService),
		System:       handler.NewSystemHandler(version, checks),
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

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
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	// Stop accepting requests first, then the producers and consumers they
	// feed, then the exporters.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if sweepScheduler != nil {
		if err := sweepScheduler.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping scheduler", zap.Error(err))
		}
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	if err := idempotencyStore.Close(); err != nil {
		log.Error("Error closing idempotency store", zap.Error(err))
	}
	if err := db.Close(); err != nil {
		log.Error("Error closing database", zap.Error(err))
	}
	for name, shutdown := range map[string]func(context.Context) error{
		"tracer": tracerProvider.Shutdown,
		"meter":  meterProvider.Shutdown,
		"logger": loggerProvider.Shutdown,
	} {
		if err := shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down telemetry provider", zap.String("provider", name), zap.Error(err))
		}
	}

	log.Info("Server exited gracefully")
}
