package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/clearbooks/clearbooks/internal/app"
	"github.com/clearbooks/clearbooks/internal/assets"
	"github.com/clearbooks/clearbooks/internal/auditor"
	"github.com/clearbooks/clearbooks/internal/fiscal"
	"github.com/clearbooks/clearbooks/internal/ledger"
	"github.com/clearbooks/clearbooks/internal/observability"
	"github.com/clearbooks/clearbooks/internal/platform/cache"
	"github.com/clearbooks/clearbooks/internal/platform/db"
	"github.com/clearbooks/clearbooks/internal/shared"
	"github.com/clearbooks/clearbooks/jobs"
)

type periodGuard struct {
	svc *fiscal.Service
}

func (g *periodGuard) EnsureOpenForPosting(ctx context.Context, companyID int64, date time.Time) error {
	if g.svc == nil {
		return nil
	}
	return g.svc.EnsureOpenForPosting(ctx, companyID, date)
}

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

	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)
	metrics := observability.NewMetrics()

	// Scheduled depreciation posts through the same gated engine as the
	// HTTP surface.
	guard := &periodGuard{}
	ledgerRepo := ledger.NewRepository(pool)
	ledgerService := ledger.NewService(ledgerRepo, guard, auditLogger, nil, metrics)

	fiscalRepo := fiscal.NewRepository(pool)
	guard.svc = fiscal.NewService(fiscalRepo, nil, nil, nil, ledgerService, auditLogger, logger, false)

	assetsRepo := assets.NewRepository(pool)
	assetsService := assets.NewService(assetsRepo, ledgerService, auditLogger, logger)

	auditorRepo := auditor.NewRepository(pool)
	auditorService := auditor.NewService(auditorRepo, metrics, logger, cfg.AuditEntryWindow)

	store := jobs.NewStore(pool)
	handlers := jobs.NewHandlers(jobs.HandlersConfig{
		Depreciation:   assetsService,
		Audit:          auditorService,
		Companies:      store,
		Subscriptions:  store,
		Idempotency:    idempotencyStore,
		WebhookTimeout: cfg.WebhookTimeout,
		Logger:         logger,
	})

	cron, err := jobs.DefaultCron()
	if err != nil {
		logger.Error("build cron schedule", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers:  handlers,
		Cron:      cron,
	})
	if err != nil {
		logger.Error("build worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker starting", slog.String("redis", cfg.RedisAddr))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker stopped")
}
