package sales

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/lumenfab/lumenfab/internal/shared"
)

type stubProduction struct {
	created   []int64
	cancelled []int64
	summary   ProductionSummary
}

func (s *stubProduction) CreateForSales(_ context.Context, _, finishedGoodID, _, _ int64) error {
	s.created = append(s.created, finishedGoodID)
	return nil
}

func (s *stubProduction) CancelOpenBySalesOrder(_ context.Context, salesOrderID int64) error {
	s.cancelled = append(s.cancelled, salesOrderID)
	return nil
}

func (s *stubProduction) StatusSummary(context.Context, int64) (ProductionSummary, error) {
	return s.summary, nil
}

type stubCatalog struct {
	prices map[int64]decimal.Decimal
}

func (s *stubCatalog) GoodPrice(_ context.Context, finishedGoodID int64) (decimal.Decimal, error) {
	price, ok := s.prices[finishedGoodID]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: finished good %d", shared.ErrNotFound, finishedGoodID)
	}
	return price, nil
}

type fixture struct {
	svc        *Service
	repo       *MemoryRepository
	production *stubProduction
}

func newFixture() *fixture {
	repo := NewMemoryRepository()
	production := &stubProduction{}
	catalog := &stubCatalog{prices: map[int64]decimal.Decimal{
		1: decimal.NewFromInt(150),
		2: decimal.NewFromInt(75),
	}}
	svc := NewService(repo, production, catalog, nil, slog.Default())
	return &fixture{svc: svc, repo: repo, production: production}
}

func (f *fixture) create(t *testing.T) SalesOrder {
	t.Helper()
	order, err := f.svc.Create(context.Background(), CreateRequest{
		CustomerID:  1,
		WarehouseID: 1,
		Lines: []CreateLineRequest{
			{FinishedGoodID: 1, Qty: 2},
			{FinishedGoodID: 2, Qty: 4},
		},
	})
	require.NoError(t, err)
	return order
}

func (f *fixture) confirmed(t *testing.T) SalesOrder {
	t.Helper()
	order := f.create(t)
	confirmed, err := f.svc.Confirm(context.Background(), order.ID)
	require.NoError(t, err)
	return confirmed
}

func TestCreateCapturesPricesAndOpensRuns(t *testing.T) {
	f := newFixture()
	order := f.create(t)

	require.Equal(t, "SO-00001", order.Number)
	require.Equal(t, StatusPending, order.Status)
	require.True(t, order.Lines[0].UnitPrice.Equal(decimal.NewFromInt(150)))
	// 2*150 + 4*75
	require.True(t, order.Total().Equal(decimal.NewFromInt(600)))
	// One run per line, opened at placement.
	require.Equal(t, []int64{1, 2}, f.production.created)
}

func TestCreateSkipsRunsForStockLines(t *testing.T) {
	f := newFixture()
	order, err := f.svc.Create(context.Background(), CreateRequest{
		CustomerID:  1,
		WarehouseID: 1,
		Lines: []CreateLineRequest{
			{FinishedGoodID: 1, Qty: 2, FromStock: true},
			{FinishedGoodID: 2, Qty: 1},
		},
	})
	require.NoError(t, err)
	require.Len(t, order.Lines, 2)
	require.Equal(t, []int64{2}, f.production.created)
}

func TestCreateRejectsUnknownGood(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Create(context.Background(), CreateRequest{
		CustomerID:  1,
		WarehouseID: 1,
		Lines:       []CreateLineRequest{{FinishedGoodID: 99, Qty: 1}},
	})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestConfirmIsAStatusChangeOnly(t *testing.T) {
	f := newFixture()
	order := f.confirmed(t)

	require.Equal(t, StatusConfirmed, order.Status)
	// No second fan-out on confirmation.
	require.Equal(t, []int64{1, 2}, f.production.created)
}

func TestEventsAdvanceUnconfirmedOrders(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	order := f.create(t)

	require.NoError(t, f.svc.OnProductionEvent(ctx, order.ID, EventMaterialsRequested))
	got, _ := f.svc.Get(ctx, order.ID)
	require.Equal(t, StatusMaterialsRequested, got.Status)
}

func TestConfirmOnlyFromPending(t *testing.T) {
	f := newFixture()
	order := f.confirmed(t)
	_, err := f.svc.Confirm(context.Background(), order.ID)
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
}

func TestProductionEventsAdvanceStatus(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	order := f.confirmed(t)
	f.production.summary = ProductionSummary{Total: 2}

	require.NoError(t, f.svc.OnProductionEvent(ctx, order.ID, EventMaterialsRequested))
	got, _ := f.svc.Get(ctx, order.ID)
	require.Equal(t, StatusMaterialsRequested, got.Status)

	require.NoError(t, f.svc.OnProductionEvent(ctx, order.ID, EventStarted))
	got, _ = f.svc.Get(ctx, order.ID)
	require.Equal(t, StatusProductionStarted, got.Status)

	// One run done, one still open: status holds.
	f.production.summary = ProductionSummary{Total: 2, Completed: 1}
	require.NoError(t, f.svc.OnProductionEvent(ctx, order.ID, EventCompleted))
	got, _ = f.svc.Get(ctx, order.ID)
	require.Equal(t, StatusProductionStarted, got.Status)

	f.production.summary = ProductionSummary{Total: 2, Completed: 2}
	require.NoError(t, f.svc.OnProductionEvent(ctx, order.ID, EventCompleted))
	got, _ = f.svc.Get(ctx, order.ID)
	require.Equal(t, StatusReadyForDelivery, got.Status)
}

func TestProductionEventsNeverRegress(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	order := f.confirmed(t)

	require.NoError(t, f.svc.OnProductionEvent(ctx, order.ID, EventProblemReported))
	got, _ := f.svc.Get(ctx, order.ID)
	require.Equal(t, StatusProductionWithIssues, got.Status)

	// A later start on a sibling run must not move the order backwards.
	require.NoError(t, f.svc.OnProductionEvent(ctx, order.ID, EventStarted))
	got, _ = f.svc.Get(ctx, order.ID)
	require.Equal(t, StatusProductionWithIssues, got.Status)

	history, err := f.svc.History(ctx, order.ID)
	require.NoError(t, err)
	// The swallowed event is still on the timeline.
	var kinds []string
	for _, e := range history {
		kinds = append(kinds, e.Kind)
	}
	require.Contains(t, kinds, "production_event")
}

func TestAllRunsCancelledCancelsOrder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	order := f.confirmed(t)

	f.production.summary = ProductionSummary{Total: 2, Cancelled: 2}
	require.NoError(t, f.svc.OnProductionEvent(ctx, order.ID, EventCancelled))
	got, _ := f.svc.Get(ctx, order.ID)
	require.Equal(t, StatusCancelled, got.Status)
}

func TestMixedOutcomeIsStillReady(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	order := f.confirmed(t)

	f.production.summary = ProductionSummary{Total: 2, Completed: 1, Cancelled: 1}
	require.NoError(t, f.svc.OnProductionEvent(ctx, order.ID, EventCancelled))
	got, _ := f.svc.Get(ctx, order.ID)
	require.Equal(t, StatusReadyForDelivery, got.Status)
}

func TestEventsIgnoredOnceTerminal(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	order := f.confirmed(t)

	f.production.summary = ProductionSummary{Total: 1, Completed: 1}
	require.NoError(t, f.svc.OnProductionEvent(ctx, order.ID, EventCompleted))
	_, err := f.svc.ConfirmDelivery(ctx, order.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.OnProductionEvent(ctx, order.ID, EventProblemReported))
	got, _ := f.svc.Get(ctx, order.ID)
	require.Equal(t, StatusCompleted, got.Status)
}

func TestDeliveryRequiresReadyStatus(t *testing.T) {
	f := newFixture()
	order := f.confirmed(t)
	_, err := f.svc.ConfirmDelivery(context.Background(), order.ID)
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
}

func TestCancelAbortsOpenRuns(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	order := f.confirmed(t)

	got, err := f.svc.Cancel(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, got.Status)
	require.Equal(t, []int64{order.ID}, f.production.cancelled)
}

func TestCancelAllowedWhileReady(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	order := f.confirmed(t)

	f.production.summary = ProductionSummary{Total: 1, Completed: 1}
	require.NoError(t, f.svc.OnProductionEvent(ctx, order.ID, EventCompleted))

	got, err := f.svc.Cancel(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, got.Status)
	require.Equal(t, []int64{order.ID}, f.production.cancelled)
}

func TestCancelRejectedOnceDelivered(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	order := f.confirmed(t)

	f.production.summary = ProductionSummary{Total: 1, Completed: 1}
	require.NoError(t, f.svc.OnProductionEvent(ctx, order.ID, EventCompleted))
	_, err := f.svc.ConfirmDelivery(ctx, order.ID)
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, order.ID)
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
}

func TestInvoiceOncePerOrder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	order := f.confirmed(t)

	f.production.summary = ProductionSummary{Total: 2, Completed: 2}
	require.NoError(t, f.svc.OnProductionEvent(ctx, order.ID, EventCompleted))

	inv, err := f.svc.IssueInvoice(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, "INV-00001", inv.Number)
	require.True(t, inv.Total.Equal(decimal.NewFromInt(600)))

	_, err = f.svc.IssueInvoice(ctx, order.ID)
	require.ErrorIs(t, err, shared.ErrIntegrityConflict)
}

func TestInvoiceBlockedWhileRunsOpen(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	order := f.confirmed(t)

	f.production.summary = ProductionSummary{Total: 2, Completed: 1}
	_, err := f.svc.IssueInvoice(ctx, order.ID)
	require.ErrorIs(t, err, shared.ErrPreconditionFailed)
}

func TestInvoiceAllowedForStockOnlyOrder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	order, err := f.svc.Create(ctx, CreateRequest{
		CustomerID:  1,
		WarehouseID: 1,
		Lines:       []CreateLineRequest{{FinishedGoodID: 1, Qty: 3, FromStock: true}},
	})
	require.NoError(t, err)
	_, err = f.svc.Confirm(ctx, order.ID)
	require.NoError(t, err)

	// No production runs back this order: invoiceable right after confirmation.
	inv, err := f.svc.IssueInvoice(ctx, order.ID)
	require.NoError(t, err)

	got, err := f.svc.Invoice(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, inv.Number, got.Number)
}
