package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/speedissuesflow/sif/internal/app"
	"github.com/speedissuesflow/sif/internal/resources"
	"github.com/speedissuesflow/sif/internal/storage"
	"github.com/speedissuesflow/sif/internal/support/solutions"
	"github.com/speedissuesflow/sif/jobs"
	"github.com/speedissuesflow/sif/report"
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

	pool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	objectStore := storage.NewClient(cfg.StorageURL, cfg.StoragePublicURL)
	summarizer := report.NewSummarizer(cfg.SummarizerURL)

	solutionsRepo := solutions.NewRepository(pool)
	// The worker never enqueues more work, hence the nil enqueuer.
	solutionsService := solutions.NewService(solutionsRepo, nil, nil, nil, nil, logger)

	resourcesRepo := resources.NewRepository(pool)
	resourcesService := resources.NewService(resourcesRepo, objectStore, nil, logger)

	smtpAddr := ""
	if cfg.SMTPHost != "" {
		smtpAddr = fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeSendEmail, Handler: jobs.NewSendEmailHandler(jobs.SMTPConfig{Addr: smtpAddr, From: cfg.SMTPFrom}, logger)},
			{Type: jobs.TaskTypeSummarizeSolution, Handler: jobs.NewSummarizeSolutionHandler(solutionsService, summarizer, logger)},
			{Type: jobs.TaskTypeShareLinkPurge, Handler: jobs.NewShareLinkPurgeHandler(resourcesService, cfg.ShareLinkRetention, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "45 2 * * *", Task: jobs.NewShareLinkPurgeTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return worker.Run(gctx)
	})

	if err := group.Wait(); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
