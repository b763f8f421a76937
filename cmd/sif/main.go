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

	"github.com/speedissuesflow/sif/internal/app"
	"github.com/speedissuesflow/sif/internal/audit"
	audithttp "github.com/speedissuesflow/sif/internal/audit/http"
	"github.com/speedissuesflow/sif/internal/auth"
	"github.com/speedissuesflow/sif/internal/masterdata"
	"github.com/speedissuesflow/sif/internal/observability"
	"github.com/speedissuesflow/sif/internal/platform/cache"
	"github.com/speedissuesflow/sif/internal/platform/db"
	"github.com/speedissuesflow/sif/internal/policy"
	"github.com/speedissuesflow/sif/internal/resources"
	"github.com/speedissuesflow/sif/internal/shared"
	"github.com/speedissuesflow/sif/internal/storage"
	"github.com/speedissuesflow/sif/internal/support/cases"
	"github.com/speedissuesflow/sif/internal/support/solutions"
	"github.com/speedissuesflow/sif/internal/support/tests"
	"github.com/speedissuesflow/sif/internal/users"
	"github.com/speedissuesflow/sif/jobs"
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		// Sessions live in Redis, nothing works without it.
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "sif_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	auditRecorder := shared.NewAuditRecorder(dbpool)
	objectStore := storage.NewClient(cfg.StorageURL, cfg.StoragePublicURL)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo, auditRecorder)
	usersHandler := users.NewHandler(logger, usersService)

	authService := auth.NewService(usersRepo, auth.NewRepository(dbpool))
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	policyMiddleware := policy.Middleware{Users: usersService, Logger: logger}

	masterdataRepo := masterdata.NewRepository(dbpool)
	masterdataService := masterdata.NewService(masterdataRepo, auditRecorder)
	masterdataHandler := masterdata.NewHandler(logger, masterdataService)

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	casesRepo := cases.NewRepository(dbpool)
	caseNotifier := cases.NewAssignmentNotifier(usersService, jobsClient, logger)
	casesService := cases.NewService(casesRepo, masterdataService, auditRecorder, objectStore, caseNotifier, logger)
	casesHandler := cases.NewHandler(logger, casesService)

	testsRepo := tests.NewRepository(dbpool)
	testsService := tests.NewService(testsRepo, masterdataService, casesService, auditRecorder, logger)
	testsHandler := tests.NewHandler(logger, testsService)

	solutionsRepo := solutions.NewRepository(dbpool)
	solutionsService := solutions.NewService(solutionsRepo, masterdataService, casesService, auditRecorder, jobsClient, logger)
	solutionsHandler := solutions.NewHandler(logger, solutionsService)

	resourcesRepo := resources.NewRepository(dbpool)
	resourcesService := resources.NewService(resourcesRepo, objectStore, auditRecorder, logger)
	resourcesHandler := resources.NewHandler(logger, resourcesService)

	auditService := audit.NewService(audit.NewRepository(dbpool))
	auditHandler := audithttp.NewHandler(logger, auditService)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		SessionManager:    sessionManager,
		CSRFManager:       csrfManager,
		AuthHandler:       authHandler,
		UsersHandler:      usersHandler,
		CasesHandler:      casesHandler,
		TestsHandler:      testsHandler,
		SolutionsHandler:  solutionsHandler,
		MasterDataHandler: masterdataHandler,
		ResourcesHandler:  resourcesHandler,
		AuditHandler:      auditHandler,
		JobHandler:        jobHandler,
		PolicyMiddleware:  policyMiddleware,
		Metrics:           metrics,
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
