package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/shiftwise/shiftwise/internal/app"
	"github.com/shiftwise/shiftwise/internal/auth"
	"github.com/shiftwise/shiftwise/internal/notify"
	"github.com/shiftwise/shiftwise/internal/platform/cache"
	"github.com/shiftwise/shiftwise/internal/platform/db"
	"github.com/shiftwise/shiftwise/internal/ratelimit"
	"github.com/shiftwise/shiftwise/internal/roles"
	"github.com/shiftwise/shiftwise/internal/shared"
	"github.com/shiftwise/shiftwise/internal/users"
	"github.com/shiftwise/shiftwise/internal/webhooks"
	"github.com/shiftwise/shiftwise/jobs"
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

	dbpool, err := db.New(ctx, cfg.PGDSN, 0)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "shiftwise_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	var limiterStore ratelimit.Store
	if cfg.RateLimitBackend == "memory" {
		limiterStore = ratelimit.NewMemoryStore()
	} else {
		limiterStore = ratelimit.NewRedisStore(redisClient, "ratelimit")
	}
	limiter := ratelimit.NewLimiter(limiterStore, logger)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("connect job queue", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	rolesRepo := roles.NewRepository(dbpool)
	rolesResolver := roles.NewResolver(rolesRepo, logger)
	rolesMiddleware := roles.Middleware{Resolver: rolesResolver, Logger: logger}
	rolesHandler := roles.NewHandler(logger, rolesRepo, limiter)

	resetTokens := auth.NewResetTokens(redisClient, cfg.ResetTokenTTL)
	mailer := jobs.NewMailer(jobClient, cfg.AppBaseURL)
	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, mailer, logger, auth.ServiceConfig{
		LockoutThreshold:    cfg.LockoutThreshold,
		LockoutWindow:       cfg.LockoutWindow,
		SignupEnabled:       cfg.SignupEnabled,
		RequireConfirmation: cfg.RequireConfirmation,
	})
	authHandler := auth.NewHandler(logger, authService, rolesResolver, sessionManager, limiter, resetTokens)

	usersRepo := users.NewRepository(dbpool)
	usersHandler := users.NewHandler(logger, usersRepo, limiter)

	webhooksRepo := webhooks.NewRepository(dbpool)
	webhooksHandler := webhooks.NewHandler(logger, webhooksRepo)

	notifyRepo := notify.NewRepository(dbpool)
	notifyHandler := notify.NewHandler(logger, notifyRepo)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:               logger,
		Config:               cfg,
		SessionManager:       sessionManager,
		CSRFManager:          csrfManager,
		AuthHandler:          authHandler,
		RolesHandler:         rolesHandler,
		UsersHandler:         usersHandler,
		WebhooksHandler:      webhooksHandler,
		NotificationsHandler: notifyHandler,
		JobHandler:           jobHandler,
		RolesMiddleware:      rolesMiddleware,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
