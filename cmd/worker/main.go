package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/shiftwise/shiftwise/internal/app"
	"github.com/shiftwise/shiftwise/internal/notify"
	"github.com/shiftwise/shiftwise/internal/platform/db"
	"github.com/shiftwise/shiftwise/internal/roles"
	"github.com/shiftwise/shiftwise/internal/webhooks"
	"github.com/shiftwise/shiftwise/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := db.New(ctx, cfg.PGDSN, 0)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

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

	notifyRepo := notify.NewRepository(pool)
	rolesRepo := roles.NewRepository(pool)
	webhooksRepo := webhooks.NewRepository(pool)
	dispatcher := notify.NewDispatcher(notifyRepo, rolesRepo, webhooksRepo, jobClient, logger)

	listener := notify.NewListener(pool, logger)
	for _, stream := range notify.Streams {
		listener.Subscribe(stream, dispatcher.HandleChange)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Sender:    webhooks.NewSender(cfg.WebhookTimeout),
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- listener.Run(ctx)
	}()
	go func() {
		errCh <- worker.Run(ctx)
	}()

	for i := 0; i < 2; i++ {
		if err := <-errCh; err != nil && err != context.Canceled {
			logger.Error("worker run", slog.Any("error", err))
			stop()
		}
	}
}
