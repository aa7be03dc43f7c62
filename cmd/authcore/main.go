package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/oncosaferx/authcore/internal/app"
	"github.com/oncosaferx/authcore/internal/assignment"
	"github.com/oncosaferx/authcore/internal/audit"
	"github.com/oncosaferx/authcore/internal/authz"
	"github.com/oncosaferx/authcore/internal/observability"
	"github.com/oncosaferx/authcore/internal/platform/cache"
	"github.com/oncosaferx/authcore/internal/platform/db"
	"github.com/oncosaferx/authcore/internal/registry"
	"github.com/oncosaferx/authcore/internal/session"
	"github.com/oncosaferx/authcore/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = redisClient.Close() }()

	reg, err := registry.NewRegistry(registry.NewPGRoleStore(pool))
	if err != nil {
		logger.Error("build role registry", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()

	alertClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() { _ = alertClient.Close() }()

	fileSink, err := audit.NewFileSink(cfg.AuditLogDir)
	if err != nil {
		logger.Error("open audit file sink", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = fileSink.Close() }()

	recorder := audit.NewRecorder(
		audit.NewPGSink(pool),
		[]audit.Sink{fileSink},
		audit.NewHasher(cfg.AuditSalt),
		alertClient,
		audit.NewRedisFailureTracker(redisClient),
		audit.RecorderConfig{
			BruteForceThreshold: cfg.BruteForceThreshold,
			BruteForceWindow:    cfg.BruteForceWindow,
		},
		logger,
	).WithMetrics(metrics)
	defer recorder.Flush()

	assignmentRepo := assignment.NewPGRepository(pool)
	resolver := authz.NewResolver(reg, assignmentRepo, authz.NewRedisCache(redisClient), authz.ResolverConfig{
		CacheTTL:         cfg.PermissionCacheTTL,
		InvalidateMargin: cfg.CacheInvalidateMargin,
	}, logger)

	assignmentService := assignment.NewService(assignmentRepo, reg, resolver, recorder, logger)

	sessionStore := session.NewStore(redisClient)
	tokenIssuer := session.NewTokenIssuer(cfg.TokenSecret, cfg.TokenIssuer, cfg.TokenTTL)
	sessionManager := session.NewManager(sessionStore, resolver, recorder, tokenIssuer, session.Config{
		IdleTimeout:    cfg.SessionIdleTimeout,
		BaseMaxAge:     cfg.SessionMaxAge,
		ElevatedMaxAge: cfg.SessionElevatedMaxAge,
		AdminMaxAge:    cfg.SessionAdminMaxAge,
		ElevatedLevel:  cfg.SessionElevatedLevel,
		AdminLevel:     cfg.SessionAdminLevel,
		MaxConcurrent:  cfg.MaxConcurrentSessions,
		MFAWindow:      cfg.MFAFreshnessWindow,
	}, logger).WithMetrics(metrics)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		SessionManager:    sessionManager,
		SessionHandler:    session.NewHandler(logger, sessionManager, resolver, cfg.IsProduction()),
		AssignmentHandler: assignment.NewHandler(logger, assignmentService),
		AuditHandler:      audit.NewHandler(logger, recorder),
		AuthzMiddleware:   authz.Middleware{Resolver: resolver, Logger: logger, Metrics: metrics},
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("authcore listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", slog.Any("error", err))
	}
	logger.Info("authcore stopped")
}
