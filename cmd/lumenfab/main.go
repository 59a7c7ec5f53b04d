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

	"github.com/lumenfab/lumenfab/internal/app"
	"github.com/lumenfab/lumenfab/internal/bom"
	"github.com/lumenfab/lumenfab/internal/ledger"
	"github.com/lumenfab/lumenfab/internal/masterdata"
	"github.com/lumenfab/lumenfab/internal/observability"
	"github.com/lumenfab/lumenfab/internal/orders"
	"github.com/lumenfab/lumenfab/internal/platform/cache"
	"github.com/lumenfab/lumenfab/internal/platform/db"
	"github.com/lumenfab/lumenfab/internal/production"
	"github.com/lumenfab/lumenfab/internal/purchasing"
	"github.com/lumenfab/lumenfab/internal/sales"
	"github.com/lumenfab/lumenfab/internal/shared"
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

	if err := db.Migrate(cfg.MigrationsURL, cfg.PGDSN); err != nil {
		logger.Error("run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, stock cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	var stockCache *cache.StockCache
	if redisClient != nil {
		stockCache = cache.NewStockCache(redisClient, cfg.StockCacheTTL)
	}

	mdRepo := masterdata.NewRepository(pool)
	mdService := masterdata.NewService(mdRepo)
	mdHandler := masterdata.NewHandler(logger, mdService)

	catalog := orders.Catalog{Repo: mdRepo}

	ledgerService := ledger.NewService(ledger.NewRepository(pool), stockCache, metrics)
	ledgerHandler := ledger.NewHandler(logger, ledgerService)

	bomService := bom.NewService(bom.NewRepository(pool))
	bomHandler := bom.NewHandler(logger, bomService)

	productionService := production.NewService(
		production.NewRepository(pool),
		orders.BOMForProduction{BOM: bomService},
		orders.LedgerForProduction{Ledger: ledgerService},
		metrics, logger,
	)
	productionHandler := production.NewHandler(logger, productionService)

	salesService := sales.NewService(
		sales.NewRepository(pool),
		orders.ProductionForSales{Production: productionService},
		catalog, metrics, logger,
	)
	salesHandler := sales.NewHandler(logger, salesService)
	productionService.SetSalesPort(orders.SalesForProduction{Sales: salesService})

	purchasingService := purchasing.NewService(
		purchasing.NewRepository(pool),
		orders.LedgerForPurchasing{Ledger: ledgerService},
		catalog, metrics,
	)
	purchasingHandler := purchasing.NewHandler(logger, purchasingService)

	txRunner := func(ctx context.Context, fn func(ctx context.Context) error) error {
		return db.RunInTx(ctx, pool, fn)
	}
	orchestrator := orders.NewService(
		txRunner,
		salesService, productionService, purchasingService, ledgerService,
		shared.NewAuditLogger(pool),
	)
	ordersHandler := orders.NewHandler(logger, orchestrator)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		MasterDataHandler: mdHandler,
		LedgerHandler:     ledgerHandler,
		BOMHandler:        bomHandler,
		PurchasingHandler: purchasingHandler,
		ProductionHandler: productionHandler,
		SalesHandler:      salesHandler,
		OrdersHandler:     ordersHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
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
	logger.Info("server stopped")
}
