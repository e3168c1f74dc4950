package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/portico-labs/portico/internal/app"
	"github.com/portico-labs/portico/internal/observability"
	"github.com/portico-labs/portico/internal/platform/db"
	"github.com/portico-labs/portico/internal/webapps"
	"github.com/portico-labs/portico/jobs"
)

func main() {
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
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	metrics := observability.NewMetrics()
	webappsRepo := webapps.NewRepository(pool)
	healthCheckJob := jobs.NewHealthCheckJob(webappsRepo, logger, metrics)

	healthCheckTask, err := jobs.NewHealthCheckTask(jobs.HealthCheckPayload{})
	if err != nil {
		logger.Error("build healthcheck task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeWebAppHealthCheck, Handler: healthCheckJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.HealthCheckCron, Task: healthCheckTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
