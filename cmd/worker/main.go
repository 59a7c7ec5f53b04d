package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/lumenfab/lumenfab/internal/app"
	"github.com/lumenfab/lumenfab/internal/bom"
	"github.com/lumenfab/lumenfab/internal/ledger"
	"github.com/lumenfab/lumenfab/internal/masterdata"
	"github.com/lumenfab/lumenfab/internal/orders"
	"github.com/lumenfab/lumenfab/internal/platform/db"
	"github.com/lumenfab/lumenfab/internal/production"
	"github.com/lumenfab/lumenfab/internal/purchasing"
	"github.com/lumenfab/lumenfab/internal/sales"
	"github.com/lumenfab/lumenfab/internal/shared"
	"github.com/lumenfab/lumenfab/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	mdRepo := masterdata.NewRepository(pool)
	catalog := orders.Catalog{Repo: mdRepo}

	ledgerService := ledger.NewService(ledger.NewRepository(pool), nil, nil)
	bomService := bom.NewService(bom.NewRepository(pool))

	productionService := production.NewService(
		production.NewRepository(pool),
		orders.BOMForProduction{BOM: bomService},
		orders.LedgerForProduction{Ledger: ledgerService},
		nil, logger,
	)
	salesService := sales.NewService(
		sales.NewRepository(pool),
		orders.ProductionForSales{Production: productionService},
		catalog, nil, logger,
	)
	productionService.SetSalesPort(orders.SalesForProduction{Sales: salesService})

	purchasingService := purchasing.NewService(
		purchasing.NewRepository(pool),
		orders.LedgerForPurchasing{Ledger: ledgerService},
		catalog, nil,
	)

	txRunner := func(ctx context.Context, fn func(ctx context.Context) error) error {
		return db.RunInTx(ctx, pool, fn)
	}
	orchestrator := orders.NewService(
		txRunner,
		salesService, productionService, purchasingService, ledgerService,
		shared.NewAuditLogger(pool),
	)

	replenishJob := jobs.NewReplenishJob(mdRepo, ledgerService, productionService, orchestrator, logger)

	scanTask, err := jobs.NewReplenishScanTask(cfg.ReplenishWarehouse)
	if err != nil {
		logger.Error("build replenish task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskReplenishScan, Handler: replenishJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.ReplenishCron, Task: scanTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
