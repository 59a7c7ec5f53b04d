package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lumenfab/lumenfab/internal/ledger"
	"github.com/lumenfab/lumenfab/internal/masterdata"
	"github.com/lumenfab/lumenfab/internal/production"
	"github.com/lumenfab/lumenfab/internal/shared"
)

type stubCatalog struct {
	goods []masterdata.FinishedGood
}

func (s *stubCatalog) ListAutoReplenishGoods(context.Context) ([]masterdata.FinishedGood, error) {
	return s.goods, nil
}

type stubStock struct {
	onHand map[int64]int64
	fail   map[int64]bool
}

func (s *stubStock) OnHand(_ context.Context, _ int64, _ ledger.ItemKind, itemID int64) (int64, error) {
	if s.fail[itemID] {
		return 0, fmt.Errorf("stock read failed for %d", itemID)
	}
	return s.onHand[itemID], nil
}

type stubRuns struct {
	open map[int64]bool
}

func (s *stubRuns) HasOpenStockRun(_ context.Context, finishedGoodID int64) (bool, error) {
	return s.open[finishedGoodID], nil
}

type createdRun struct {
	goodID      int64
	qty         int64
	warehouseID int64
}

type stubCreator struct {
	created []createdRun
}

func (s *stubCreator) CreateStockProduction(_ context.Context, _ shared.Scope, finishedGoodID, qty, warehouseID int64) (production.ProductionOrder, error) {
	s.created = append(s.created, createdRun{goodID: finishedGoodID, qty: qty, warehouseID: warehouseID})
	return production.ProductionOrder{Number: fmt.Sprintf("MO-%05d", len(s.created))}, nil
}

func good(id, minimum, target int64) masterdata.FinishedGood {
	return masterdata.FinishedGood{ID: id, StockMinimum: minimum, StockTarget: target, AutoReplenish: true}
}

func TestScanOpensRunsSizedToTarget(t *testing.T) {
	catalog := &stubCatalog{goods: []masterdata.FinishedGood{
		good(1, 10, 50), // on hand 4, below minimum: run for 46
		good(2, 10, 50), // on hand 30, above minimum: nothing
	}}
	stock := &stubStock{onHand: map[int64]int64{1: 4, 2: 30}}
	creator := &stubCreator{}
	job := NewReplenishJob(catalog, stock, &stubRuns{}, creator, slog.Default())

	opened, err := job.Scan(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, 1, opened)
	require.Equal(t, []createdRun{{goodID: 1, qty: 46, warehouseID: 7}}, creator.created)
}

func TestScanSkipsGoodsWithOpenRuns(t *testing.T) {
	catalog := &stubCatalog{goods: []masterdata.FinishedGood{good(1, 10, 50)}}
	stock := &stubStock{onHand: map[int64]int64{1: 0}}
	creator := &stubCreator{}
	job := NewReplenishJob(catalog, stock, &stubRuns{open: map[int64]bool{1: true}}, creator, slog.Default())

	opened, err := job.Scan(context.Background(), 7)
	require.NoError(t, err)
	require.Zero(t, opened)
	require.Empty(t, creator.created)
}

func TestScanContinuesPastFailingGood(t *testing.T) {
	catalog := &stubCatalog{goods: []masterdata.FinishedGood{
		good(1, 10, 50),
		good(2, 10, 40),
	}}
	stock := &stubStock{onHand: map[int64]int64{2: 5}, fail: map[int64]bool{1: true}}
	creator := &stubCreator{}
	job := NewReplenishJob(catalog, stock, &stubRuns{}, creator, slog.Default())

	opened, err := job.Scan(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, 1, opened)
	require.Equal(t, int64(2), creator.created[0].goodID)
	require.Equal(t, int64(35), creator.created[0].qty)
}
