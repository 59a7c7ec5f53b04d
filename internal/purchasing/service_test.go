package purchasing

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/lumenfab/lumenfab/internal/shared"
)

type stubInventory struct {
	receipts []receipt
	failWith error
}

type receipt struct {
	warehouseID int64
	materialID  int64
	qty         int64
	orderID     int64
}

func (s *stubInventory) ReceiveMaterial(_ context.Context, warehouseID, materialID, qty, purchaseOrderID int64) error {
	if s.failWith != nil {
		return s.failWith
	}
	s.receipts = append(s.receipts, receipt{warehouseID, materialID, qty, purchaseOrderID})
	return nil
}

type stubCatalog struct {
	prices map[int64]decimal.Decimal
}

func (s *stubCatalog) OfferPrice(_ context.Context, _, materialID int64) (decimal.Decimal, error) {
	price, ok := s.prices[materialID]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: supplier offer for material %d", shared.ErrNotFound, materialID)
	}
	return price, nil
}

func newTestService(inv *stubInventory) (*Service, *MemoryRepository) {
	repo := NewMemoryRepository()
	catalog := &stubCatalog{prices: map[int64]decimal.Decimal{
		10: decimal.NewFromFloat(2.5),
		11: decimal.NewFromInt(4),
	}}
	return NewService(repo, inv, catalog, nil), repo
}

func createOrder(t *testing.T, svc *Service) PurchaseOrder {
	t.Helper()
	order, err := svc.Create(context.Background(), CreateRequest{
		SupplierID:  1,
		WarehouseID: 1,
		Lines: []CreateLineRequest{
			{MaterialID: 10, Qty: 100},
			{MaterialID: 11, Qty: 40},
		},
	})
	require.NoError(t, err)
	return order
}

func TestCreateCopiesOfferPrices(t *testing.T) {
	svc, _ := newTestService(&stubInventory{})
	order := createOrder(t, svc)

	require.Equal(t, StatusDraft, order.Status)
	require.Equal(t, "PO-00001", order.Number)
	require.True(t, order.Lines[0].UnitPrice.Equal(decimal.NewFromFloat(2.5)))
	require.True(t, order.Total().Equal(decimal.NewFromInt(410)))
}

func TestCreateFailsWithoutOffer(t *testing.T) {
	svc, _ := newTestService(&stubInventory{})
	_, err := svc.Create(context.Background(), CreateRequest{
		SupplierID:  1,
		WarehouseID: 1,
		Lines:       []CreateLineRequest{{MaterialID: 99, Qty: 5}},
	})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestTransitRequiresTracking(t *testing.T) {
	svc, _ := newTestService(&stubInventory{})
	order := createOrder(t, svc)
	ctx := context.Background()

	require.NoError(t, svc.Approve(ctx, order.ID))
	require.NoError(t, svc.Send(ctx, order.ID))

	err := svc.MarkInTransit(ctx, order.ID, MarkInTransitRequest{})
	require.ErrorIs(t, err, shared.ErrPreconditionFailed)

	require.NoError(t, svc.MarkInTransit(ctx, order.ID, MarkInTransitRequest{TrackingNumber: "TRK-9"}))
	got, err := svc.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusInTransit, got.Status)
	require.Equal(t, "TRK-9", *got.TrackingNumber)
}

func TestTransitionTableRejectsSkips(t *testing.T) {
	svc, _ := newTestService(&stubInventory{})
	order := createOrder(t, svc)
	ctx := context.Background()

	err := svc.Send(ctx, order.ID)
	require.ErrorIs(t, err, shared.ErrInvalidTransition)

	err = svc.MarkInTransit(ctx, order.ID, MarkInTransitRequest{TrackingNumber: "TRK-1"})
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
}

func TestPartialThenFullReceipt(t *testing.T) {
	inv := &stubInventory{}
	svc, _ := newTestService(inv)
	order := createOrder(t, svc)
	ctx := context.Background()

	require.NoError(t, svc.Approve(ctx, order.ID))
	require.NoError(t, svc.Send(ctx, order.ID))
	require.NoError(t, svc.MarkInTransit(ctx, order.ID, MarkInTransitRequest{TrackingNumber: "TRK-1"}))

	got, err := svc.Receive(ctx, order.ID, ReceiveRequest{
		Lines: []ReceiveLineRequest{{LineID: order.Lines[0].ID, Qty: 60}},
	})
	require.NoError(t, err)
	require.Equal(t, StatusPartiallyReceived, got.Status)
	require.Equal(t, int64(60), got.Lines[0].ReceivedQty)
	require.Len(t, inv.receipts, 1)

	got, err = svc.Receive(ctx, order.ID, ReceiveRequest{
		Lines: []ReceiveLineRequest{
			{LineID: order.Lines[0].ID, Qty: 40},
			{LineID: order.Lines[1].ID, Qty: 40},
		},
	})
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, got.Status)
	require.Len(t, inv.receipts, 3)
	require.Equal(t, receipt{1, 10, 40, order.ID}, inv.receipts[1])
}

func TestReceiveRejectsOverDelivery(t *testing.T) {
	svc, _ := newTestService(&stubInventory{})
	order := createOrder(t, svc)
	ctx := context.Background()

	require.NoError(t, svc.Approve(ctx, order.ID))
	require.NoError(t, svc.Send(ctx, order.ID))
	require.NoError(t, svc.MarkInTransit(ctx, order.ID, MarkInTransitRequest{TrackingNumber: "TRK-1"}))

	_, err := svc.Receive(ctx, order.ID, ReceiveRequest{
		Lines: []ReceiveLineRequest{{LineID: order.Lines[0].ID, Qty: 150}},
	})
	require.ErrorIs(t, err, shared.ErrPreconditionFailed)
}

func TestReceiveRejectsForeignLine(t *testing.T) {
	svc, _ := newTestService(&stubInventory{})
	order := createOrder(t, svc)
	other := createOrder(t, svc)
	ctx := context.Background()

	require.NoError(t, svc.Approve(ctx, order.ID))
	require.NoError(t, svc.Send(ctx, order.ID))
	require.NoError(t, svc.MarkInTransit(ctx, order.ID, MarkInTransitRequest{TrackingNumber: "TRK-1"}))

	_, err := svc.Receive(ctx, order.ID, ReceiveRequest{
		Lines: []ReceiveLineRequest{{LineID: other.Lines[0].ID, Qty: 1}},
	})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUpdateFreezesAfterApproval(t *testing.T) {
	svc, _ := newTestService(&stubInventory{})
	order := createOrder(t, svc)
	ctx := context.Background()

	notes := "rush order"
	_, err := svc.Update(ctx, order.ID, UpdateRequest{Notes: &notes})
	require.NoError(t, err)

	require.NoError(t, svc.Approve(ctx, order.ID))

	// Notes still editable while approved, lines are not.
	_, err = svc.Update(ctx, order.ID, UpdateRequest{Notes: &notes})
	require.NoError(t, err)
	_, err = svc.Update(ctx, order.ID, UpdateRequest{Lines: []CreateLineRequest{{MaterialID: 10, Qty: 1}}})
	require.ErrorIs(t, err, shared.ErrPreconditionFailed)

	require.NoError(t, svc.Send(ctx, order.ID))
	_, err = svc.Update(ctx, order.ID, UpdateRequest{Notes: &notes})
	require.ErrorIs(t, err, shared.ErrPreconditionFailed)
}

func TestApproveBatchReportsPerOrderFailures(t *testing.T) {
	svc, _ := newTestService(&stubInventory{})
	a := createOrder(t, svc)
	b := createOrder(t, svc)
	ctx := context.Background()

	require.NoError(t, svc.Approve(ctx, b.ID))

	result := svc.ApproveBatch(ctx, []int64{a.ID, b.ID, 999})
	require.Equal(t, 1, result.Approved)
	require.Len(t, result.Failed, 2)
	require.Equal(t, b.ID, result.Failed[0].ID)
}

func TestCancelFromAnyNonTerminalState(t *testing.T) {
	svc, repo := newTestService(&stubInventory{})
	order := createOrder(t, svc)
	ctx := context.Background()

	require.NoError(t, svc.Approve(ctx, order.ID))
	require.NoError(t, svc.Send(ctx, order.ID))
	require.NoError(t, svc.MarkInTransit(ctx, order.ID, MarkInTransitRequest{TrackingNumber: "TRK-1"}))

	require.NoError(t, svc.Cancel(ctx, order.ID))
	got, err := repo.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, got.Status)
}

func TestCancelRejectedOnceCompleted(t *testing.T) {
	svc, _ := newTestService(&stubInventory{})
	order := createOrder(t, svc)
	ctx := context.Background()

	require.NoError(t, svc.Approve(ctx, order.ID))
	require.NoError(t, svc.Send(ctx, order.ID))
	require.NoError(t, svc.MarkInTransit(ctx, order.ID, MarkInTransitRequest{TrackingNumber: "TRK-1"}))
	_, err := svc.Receive(ctx, order.ID, ReceiveRequest{
		Lines: []ReceiveLineRequest{
			{LineID: order.Lines[0].ID, Qty: 100},
			{LineID: order.Lines[1].ID, Qty: 40},
		},
	})
	require.NoError(t, err)

	require.ErrorIs(t, svc.Cancel(ctx, order.ID), shared.ErrInvalidTransition)
}
