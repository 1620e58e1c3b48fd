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

	"github.com/clearbooks/clearbooks/internal/accounts"
	"github.com/clearbooks/clearbooks/internal/app"
	"github.com/clearbooks/clearbooks/internal/assets"
	"github.com/clearbooks/clearbooks/internal/auditor"
	"github.com/clearbooks/clearbooks/internal/fiscal"
	"github.com/clearbooks/clearbooks/internal/inventory"
	"github.com/clearbooks/clearbooks/internal/ledger"
	ledgerhttp "github.com/clearbooks/clearbooks/internal/ledger/http"
	"github.com/clearbooks/clearbooks/internal/mapping"
	"github.com/clearbooks/clearbooks/internal/notify"
	"github.com/clearbooks/clearbooks/internal/observability"
	"github.com/clearbooks/clearbooks/internal/platform/cache"
	"github.com/clearbooks/clearbooks/internal/platform/db"
	"github.com/clearbooks/clearbooks/internal/reports"
	"github.com/clearbooks/clearbooks/internal/reval"
	"github.com/clearbooks/clearbooks/internal/shared"
	"github.com/clearbooks/clearbooks/jobs"
)

// periodGuard defers to the fiscal service, which is constructed after the
// posting engine it gates.
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
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

	auditLogger := shared.NewAuditLogger(dbpool)
	metrics := observability.NewMetrics()

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("asynq client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("asynq close", slog.Any("error", err))
		}
	}()
	publisher := notify.NewPublisher(jobClient, logger)

	mappingRepo := mapping.NewRepository(dbpool)
	resolver := mapping.NewResolver(mappingRepo, redisClient, cfg.MappingCacheTTL, logger)

	accountsRepo := accounts.NewRepository(dbpool)
	accountsService := accounts.NewService(accountsRepo, cfg.BaseCurrency)

	reportsRepo := reports.NewRepository(dbpool)

	guard := &periodGuard{}
	ledgerRepo := ledger.NewRepository(dbpool)
	ledgerService := ledger.NewService(ledgerRepo, guard, auditLogger, publisher, metrics)
	autoPoster := ledger.NewAutoPoster(ledgerService, resolver)

	fiscalRepo := fiscal.NewRepository(dbpool)
	fiscalService := fiscal.NewService(fiscalRepo, reportsRepo, resolver, accountsRepo, ledgerService, auditLogger, logger, cfg.CloseNameFallback)
	guard.svc = fiscalService

	assetsRepo := assets.NewRepository(dbpool)
	assetsService := assets.NewService(assetsRepo, ledgerService, auditLogger, logger)

	revalService := reval.NewService(accountsService, resolver, ledgerService, cfg.BaseCurrency, logger)

	auditorRepo := auditor.NewRepository(dbpool)
	auditorService := auditor.NewService(auditorRepo, metrics, logger, cfg.AuditEntryWindow)

	inventoryReader := inventory.NewReader(dbpool)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		LedgerHandler:    ledgerhttp.NewHandler(logger, ledgerService, autoPoster),
		AccountsHandler:  accounts.NewHandler(logger, accountsService),
		MappingHandler:   mapping.NewHandler(logger, resolver),
		FiscalHandler:    fiscal.NewHandler(logger, fiscalService),
		AssetsHandler:    assets.NewHandler(logger, assetsService),
		RevalHandler:     reval.NewHandler(logger, revalService),
		AuditorHandler:   auditor.NewHandler(logger, auditorService),
		ReportsHandler:   reports.NewHandler(logger, reportsRepo),
		InventoryHandler: inventory.NewHandler(logger, inventoryReader),
		JobHandler:       jobs.NewHandler(inspector, logger),
		Metrics:          metrics,
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
