// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pamojakenya/backend/internal/activity"
	"github.com/pamojakenya/backend/internal/admin"
	"github.com/pamojakenya/backend/internal/announcement"
	"github.com/pamojakenya/backend/internal/application"
	"github.com/pamojakenya/backend/internal/auth"
	"github.com/pamojakenya/backend/internal/config"
	"github.com/pamojakenya/backend/internal/core"
	"github.com/pamojakenya/backend/internal/dashboard"
	"github.com/pamojakenya/backend/internal/health"
	"github.com/pamojakenya/backend/internal/ledger"
	"github.com/pamojakenya/backend/internal/member"
	"github.com/pamojakenya/backend/internal/metrics"
	"github.com/pamojakenya/backend/internal/middleware"
	"github.com/pamojakenya/backend/internal/notify"
	"github.com/pamojakenya/backend/internal/report"
	"github.com/pamojakenya/backend/internal/server"
	"github.com/pamojakenya/backend/internal/storage"
)

const (
	drainDelay = 5 * time.Second

	submissionsPerHour = 30
	submissionBurst    = 5

	credentialAttemptsPerMinute = 10
	credentialBurst             = 5
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate", false, "apply database migrations and exit")
	generateKeys := flag.Bool("generate-keys", false, "write a new ES256 key pair to the configured paths and exit")
	flag.Parse()

	if err := run(*configPath, *migrateOnly, *generateKeys); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen,gocyclo // bootstrap code is inherently verbose
func run(configPath string, migrateOnly, generateKeys bool) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	if generateKeys {
		if err := auth.GenerateKeyPair(cfg.JWT.PrivateKeyPath, cfg.JWT.PublicKeyPath); err != nil {
			return err
		}
		logger.Info("key pair written",
			"private", cfg.JWT.PrivateKeyPath,
			"public", cfg.JWT.PublicKeyPath,
		)
		return nil
	}

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	telemetry, err := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
	if err != nil {
		return err
	}
	if telemetry.Exporting() {
		logger.Info("trace export enabled", "endpoint", cfg.Otel.Endpoint)
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	if migrateOnly || cfg.Database.AutoMigrate {
		version, err := db.Migrate()
		if err != nil {
			return err
		}
		logger.Info("migrations applied", "version", version)
		if migrateOnly {
			return db.Close()
		}
	}

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized",
		"algorithm", "ES256",
		"key_id", jwtManager.KeyID(),
	)

	policy, err := ledger.PolicyFromConfig(cfg.Membership)
	if err != nil {
		return err
	}
	logger.Info("membership policy loaded",
		"price_per_share", policy.SharePrice.String(),
		"activation_threshold", policy.ActivationThreshold,
		"activation_rule", policy.ActivationRule,
	)

	sender, err := notify.NewSender(cfg.Notify, logger)
	if err != nil {
		return err
	}
	templates, err := notify.LoadTemplates()
	if err != nil {
		return err
	}
	dispatcher, err := notify.NewDispatcher(sender, templates,
		notify.WithLogger(logger),
		notify.WithQueueSize(cfg.Notify.QueueSize),
		notify.WithWorkers(cfg.Notify.Workers),
		notify.WithOrgName(cfg.Notify.OrgName),
		notify.WithSendTimeout(cfg.Notify.SMTP.Timeout),
	)
	if err != nil {
		return err
	}
	logger.Info("notifications ready",
		"driver", cfg.Notify.Driver,
		"workers", cfg.Notify.Workers,
	)

	documents, err := storage.NewLocal(cfg.Storage)
	if err != nil {
		return err
	}

	memberRepo := member.NewRepository(db.DB)
	memberSvc := member.NewService(memberRepo, db, member.NewRepository)

	authSvc := auth.NewService(jwtManager, memberSvc, auth.NewRedisRevocations(redis), logger)
	authHandler := auth.NewHandler(authSvc)

	ledgerSvc := ledger.NewService(ledger.ServiceConfig{
		DB:       db.DB,
		Tx:       db,
		Proofs:   documents,
		Notifier: dispatcher,
		Policy:   policy,
		Logger:   logger,
	})
	ledgerHandler := ledger.NewHandler(ledgerSvc, documents, cfg.Storage.MaxUploadBytes)

	memberHandler := member.NewHandler(memberSvc, func(ctx context.Context, memberID string) error {
		_, err := ledgerSvc.Recompute(ctx, memberID)
		return err
	})

	applicationSvc := application.NewService(application.ServiceConfig{
		DB:        db.DB,
		Tx:        db,
		Documents: documents,
		Notifier:  dispatcher,
		Logger:    logger,
	})
	applicationHandler := application.NewHandler(applicationSvc, documents, cfg.Storage.MaxUploadBytes)

	dashboardHandler := dashboard.NewHandler(
		dashboard.NewService(memberSvc, ledgerSvc, applicationSvc),
	)

	reportHandler := report.NewHandler(
		report.NewService(report.NewRepository(db.DB), policy.SharePrice),
	)

	activitySvc := activity.NewService(activity.NewRepository(db.DB))
	activityHandler := activity.NewHandler(activitySvc)

	announcementHandler := announcement.NewHandler(
		announcement.NewService(announcement.NewRepository(db.DB), db, announcement.NewRepository),
	)

	reconciler := ledger.NewReconciler(ledgerSvc, cfg.Reconcile.Schedule, logger)
	if cfg.Reconcile.Enabled {
		if err := reconciler.Start(ctx); err != nil {
			return fmt.Errorf("start reconciler: %w", err)
		}
		logger.Info("reconciler scheduled", "schedule", cfg.Reconcile.Schedule)
	}

	healthHandler := health.NewHandler(
		health.Dependency{Name: "database", Checker: db},
		health.Dependency{Name: "redis", Checker: redis},
		health.Dependency{Name: "notifications", Checker: dispatcher, Optional: true},
		health.Dependency{Name: "storage", Checker: documents, Optional: true},
	)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		Database:   db,
		Redis:      redis,
		Members:    memberSvc,
		Queue:      dispatcher,
		Reconciler: reconciler,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Tracing)
	router.Use(middleware.Logger(logger))
	router.Use(middleware.GlobalLimiter(
		redis,
		middleware.PerWindow(cfg.RateLimit.Requests, cfg.RateLimit.Burst, cfg.RateLimit.Window),
	))
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)

	router.Get("/.well-known/jwks.json", jwtManager.JWKSHandler())

	if cfg.Metrics.Enabled {
		router.Handle(cfg.Metrics.Path, metrics.Handler())
	}

	authenticator := middleware.Authenticator(authSvc)
	adminOnly := middleware.RequireAdmin
	submissions := middleware.SubmissionLimiter(
		redis,
		middleware.PerHour(submissionsPerHour, submissionBurst),
	)
	credentials := middleware.CredentialLimiter(
		redis,
		middleware.PerMinute(credentialAttemptsPerMinute, credentialBurst),
	)

	router.Route("/v1", func(r chi.Router) {
		r.Use(activity.Middleware(activitySvc))

		authHandler.RegisterRoutes(r, authenticator, credentials)

		memberHandler.RegisterRoutes(r, authenticator)
		memberHandler.RegisterAdminRoutes(r, authenticator, adminOnly,
			ledgerHandler.MemberRoutes,
			activityHandler.MemberRoutes,
		)

		ledgerHandler.RegisterRoutes(r, authenticator, submissions)
		ledgerHandler.RegisterAdminRoutes(r, authenticator, adminOnly)

		applicationHandler.RegisterRoutes(r, authenticator, submissions)
		applicationHandler.RegisterAdminRoutes(r, authenticator, adminOnly)

		dashboardHandler.RegisterRoutes(r, authenticator)
		reportHandler.RegisterAdminRoutes(r, authenticator, adminOnly)
		adminHandler.RegisterRoutes(r, authenticator, adminOnly)

		activityHandler.RegisterRoutes(r, authenticator)
		activityHandler.RegisterAdminRoutes(r, authenticator, adminOnly)
		announcementHandler.RegisterRoutes(r, authenticator)
		announcementHandler.RegisterAdminRoutes(r, authenticator, adminOnly)
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if err := reconciler.Stop(shutdownCtx); err != nil {
		logger.Error("reconciler stop error", "error", err)
	}

	if err := dispatcher.Close(shutdownCtx); err != nil {
		logger.Error("notification drain error", "error", err)
	}

	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		logger.Error("telemetry shutdown error", "error", err)
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
