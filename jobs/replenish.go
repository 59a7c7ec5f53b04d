package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/lumenfab/lumenfab/internal/ledger"
	"github.com/lumenfab/lumenfab/internal/masterdata"
	"github.com/lumenfab/lumenfab/internal/production"
	"github.com/lumenfab/lumenfab/internal/shared"
)

// CatalogSource lists the goods enrolled in automatic replenishment.
type CatalogSource interface {
	ListAutoReplenishGoods(ctx context.Context) ([]masterdata.FinishedGood, error)
}

// StockReader reads current on-hand quantities.
type StockReader interface {
	OnHand(ctx context.Context, warehouseID int64, kind ledger.ItemKind, itemID int64) (int64, error)
}

// RunSource guards against stacking a second stock run for the same good.
type RunSource interface {
	HasOpenStockRun(ctx context.Context, finishedGoodID int64) (bool, error)
}

// RunCreator opens make-to-stock production runs.
type RunCreator interface {
	CreateStockProduction(ctx context.Context, scope shared.Scope, finishedGoodID, qty, warehouseID int64) (production.ProductionOrder, error)
}

// ReplenishJob scans the auto-replenish goods and opens one make-to-stock
// run per good whose stock fell to its minimum, sized to reach the target.
type ReplenishJob struct {
	catalog CatalogSource
	stock   StockReader
	runs    RunSource
	creator RunCreator
	logger  *slog.Logger
}

// NewReplenishJob constructs the job.
func NewReplenishJob(catalog CatalogSource, stock StockReader, runs RunSource, creator RunCreator, logger *slog.Logger) *ReplenishJob {
	return &ReplenishJob{catalog: catalog, stock: stock, runs: runs, creator: creator, logger: logger}
}

// Handle processes one TaskReplenishScan task.
func (j *ReplenishJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload ReplenishScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	opened, err := j.Scan(ctx, payload.WarehouseID)
	if err != nil {
		return err
	}
	j.logger.Info("replenish scan done", slog.Int64("warehouse_id", payload.WarehouseID), slog.Int("runs_opened", opened))
	return nil
}

// Scan runs one pass and returns how many runs it opened. Per-good failures
// are logged and skipped; one broken good must not starve the rest.
func (j *ReplenishJob) Scan(ctx context.Context, warehouseID int64) (int, error) {
	goods, err := j.catalog.ListAutoReplenishGoods(ctx)
	if err != nil {
		return 0, err
	}

	scope := shared.Scope{ActorID: 0} // system actor
	opened := 0
	for _, g := range goods {
		onHand, err := j.stock.OnHand(ctx, warehouseID, ledger.ItemFinishedGood, g.ID)
		if err != nil {
			j.logger.Warn("replenish read stock", slog.Int64("good_id", g.ID), slog.Any("error", err))
			continue
		}
		qty := g.SuggestedReplenishment(onHand)
		if qty == 0 {
			continue
		}
		open, err := j.runs.HasOpenStockRun(ctx, g.ID)
		if err != nil {
			j.logger.Warn("replenish check runs", slog.Int64("good_id", g.ID), slog.Any("error", err))
			continue
		}
		if open {
			continue
		}
		run, err := j.creator.CreateStockProduction(ctx, scope, g.ID, qty, warehouseID)
		if err != nil {
			j.logger.Warn("replenish open run", slog.Int64("good_id", g.ID), slog.Any("error", err))
			continue
		}
		j.logger.Info("replenish run opened",
			slog.String("number", run.Number),
			slog.Int64("good_id", g.ID),
			slog.Int64("qty", qty))
		opened++
	}
	return opened, nil
}
