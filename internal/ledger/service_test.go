package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lumenfab/lumenfab/internal/shared"
)

func newTestService(repo *MemoryRepository) *Service {
	return NewService(repo, nil, nil)
}

func TestIncreaseCreatesLevelAndMovement(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	svc := newTestService(repo)

	err := svc.Increase(ctx, 1, ItemRawMaterial, 10, 25, ReasonPurchaseReceipt, Ref{Type: "purchase_order", ID: 3})
	require.NoError(t, err)

	qty, err := svc.OnHand(ctx, 1, ItemRawMaterial, 10)
	require.NoError(t, err)
	require.Equal(t, int64(25), qty)
	require.Equal(t, 1, repo.MovementCount())
}

func TestDecreaseRejectsOverdraw(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	repo.Seed(1, ItemRawMaterial, 10, 5)
	svc := newTestService(repo)

	err := svc.Decrease(ctx, 1, ItemRawMaterial, 10, 8, ReasonMaterialIssue, Ref{})
	require.ErrorIs(t, err, shared.ErrInsufficientStock)

	qty, err := svc.OnHand(ctx, 1, ItemRawMaterial, 10)
	require.NoError(t, err)
	require.Equal(t, int64(5), qty)
	require.Equal(t, 0, repo.MovementCount())
}

func TestDecreaseBatchReportsAllShortfalls(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	repo.Seed(1, ItemRawMaterial, 10, 5)
	repo.Seed(1, ItemRawMaterial, 11, 100)
	repo.Seed(1, ItemRawMaterial, 12, 0)
	svc := newTestService(repo)

	err := svc.DecreaseBatch(ctx, 1, ItemRawMaterial, []ItemQty{
		{ItemID: 10, Qty: 8},
		{ItemID: 11, Qty: 50},
		{ItemID: 12, Qty: 2},
	}, ReasonMaterialIssue, Ref{})

	shortage, ok := shared.AsStockShortage(err)
	require.True(t, ok)
	require.Len(t, shortage.Shortfalls, 2)
	require.Equal(t, int64(10), shortage.Shortfalls[0].MaterialID)
	require.Equal(t, int64(5), shortage.Shortfalls[0].Available)
	require.Equal(t, int64(12), shortage.Shortfalls[1].MaterialID)

	// Nothing moved, including the line that had enough stock.
	qty, err := svc.OnHand(ctx, 1, ItemRawMaterial, 11)
	require.NoError(t, err)
	require.Equal(t, int64(100), qty)
}

func TestDecreaseBatchAppliesAllLines(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	repo.Seed(1, ItemRawMaterial, 10, 20)
	repo.Seed(1, ItemRawMaterial, 11, 20)
	svc := newTestService(repo)

	err := svc.DecreaseBatch(ctx, 1, ItemRawMaterial, []ItemQty{
		{ItemID: 10, Qty: 20},
		{ItemID: 11, Qty: 5},
	}, ReasonMaterialIssue, Ref{Type: "production_order", ID: 7})
	require.NoError(t, err)

	qty, _ := svc.OnHand(ctx, 1, ItemRawMaterial, 10)
	require.Equal(t, int64(0), qty)
	qty, _ = svc.OnHand(ctx, 1, ItemRawMaterial, 11)
	require.Equal(t, int64(15), qty)
	require.Equal(t, 2, repo.MovementCount())
}

func TestTransferMovesBetweenWarehouses(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	repo.Seed(1, ItemFinishedGood, 4, 10)
	svc := newTestService(repo)

	err := svc.Transfer(ctx, TransferRequest{
		FromWarehouseID: 1, ToWarehouseID: 2, ItemKind: ItemFinishedGood, ItemID: 4, Qty: 6,
	})
	require.NoError(t, err)

	from, _ := svc.OnHand(ctx, 1, ItemFinishedGood, 4)
	to, _ := svc.OnHand(ctx, 2, ItemFinishedGood, 4)
	require.Equal(t, int64(4), from)
	require.Equal(t, int64(6), to)
	require.Equal(t, 2, repo.MovementCount())
}

func TestTransferRejectsSameWarehouse(t *testing.T) {
	svc := newTestService(NewMemoryRepository())
	err := svc.Transfer(context.Background(), TransferRequest{
		FromWarehouseID: 1, ToWarehouseID: 1, ItemKind: ItemFinishedGood, ItemID: 4, Qty: 1,
	})
	require.ErrorIs(t, err, shared.ErrPreconditionFailed)
}

func TestDecreaseRejectsNonPositiveQty(t *testing.T) {
	svc := newTestService(NewMemoryRepository())
	err := svc.Decrease(context.Background(), 1, ItemRawMaterial, 10, 0, ReasonAdjustment, Ref{})
	require.ErrorIs(t, err, shared.ErrPreconditionFailed)
}
