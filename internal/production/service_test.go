package production

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lumenfab/lumenfab/internal/shared"
)

type stubBOM struct {
	recipes map[int64][]MaterialRequirement
}

func (s *stubBOM) Requirements(_ context.Context, finishedGoodID, qty int64) ([]MaterialRequirement, error) {
	lines, ok := s.recipes[finishedGoodID]
	if !ok {
		return nil, fmt.Errorf("%w: finished good %d", shared.ErrBomNotDefined, finishedGoodID)
	}
	out := make([]MaterialRequirement, 0, len(lines))
	for _, l := range lines {
		out = append(out, MaterialRequirement{MaterialID: l.MaterialID, Qty: l.Qty * qty})
	}
	return out, nil
}

type stubStock struct {
	issued   [][]MaterialRequirement
	received []int64
	shipped  []int64
	failWith error
}

func (s *stubStock) IssueMaterials(_ context.Context, _ int64, items []MaterialRequirement, _ int64) error {
	if s.failWith != nil {
		return s.failWith
	}
	s.issued = append(s.issued, items)
	return nil
}

func (s *stubStock) ReceiveOutput(_ context.Context, _, _, qty, _ int64) error {
	s.received = append(s.received, qty)
	return nil
}

func (s *stubStock) ShipOutput(_ context.Context, _, _, qty, _ int64) error {
	s.shipped = append(s.shipped, qty)
	return nil
}

type stubSales struct {
	events []Event
}

func (s *stubSales) OnProductionEvent(_ context.Context, _ int64, evt Event) error {
	s.events = append(s.events, evt)
	return nil
}

type fixture struct {
	svc   *Service
	repo  *MemoryRepository
	stock *stubStock
	sales *stubSales
}

func newFixture() *fixture {
	repo := NewMemoryRepository()
	stock := &stubStock{}
	sales := &stubSales{}
	bomPort := &stubBOM{recipes: map[int64][]MaterialRequirement{
		1: {{MaterialID: 10, Qty: 2}, {MaterialID: 11, Qty: 1}},
	}}
	svc := NewService(repo, bomPort, stock, nil, slog.Default())
	svc.SetSalesPort(sales)
	return &fixture{svc: svc, repo: repo, stock: stock, sales: sales}
}

func (f *fixture) createMTO(t *testing.T) ProductionOrder {
	t.Helper()
	salesOrderID := int64(7)
	order, err := f.svc.Create(context.Background(), CreateRequest{
		Type:           MakeToOrder,
		SalesOrderID:   &salesOrderID,
		FinishedGoodID: 1,
		Qty:            10,
		WarehouseID:    1,
	})
	require.NoError(t, err)
	return order
}

func (f *fixture) toRequested(t *testing.T, id int64) {
	t.Helper()
	ctx := context.Background()
	_, err := f.svc.Plan(ctx, id, PlanRequest{Sector: "assembly"})
	require.NoError(t, err)
	_, err = f.svc.RequestMaterials(ctx, id)
	require.NoError(t, err)
}

func TestCreateMTORequiresSalesOrder(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Create(context.Background(), CreateRequest{
		Type: MakeToOrder, FinishedGoodID: 1, Qty: 5, WarehouseID: 1,
	})
	require.ErrorIs(t, err, shared.ErrPreconditionFailed)
}

func TestLifecycleHappyPath(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	order := f.createMTO(t)
	require.Equal(t, StatusPending, order.Status)
	require.Equal(t, "MO-00001", order.Number)

	f.toRequested(t, order.ID)
	require.Equal(t, []Event{EventMaterialsRequested}, f.sales.events)

	got, err := f.svc.DispatchMaterials(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusMaterialsReceived, got.Status)
	require.Len(t, f.stock.issued, 1)
	require.Equal(t, []MaterialRequirement{{MaterialID: 10, Qty: 20}, {MaterialID: 11, Qty: 10}}, f.stock.issued[0])

	got, err = f.svc.Start(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusProductionStarted, got.Status)
	require.NotNil(t, got.ActualStart)

	got, err = f.svc.MarkInProgress(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusInProgress, got.Status)

	got, err = f.svc.Complete(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, got.Status)
	require.NotNil(t, got.ActualEnd)
	require.Equal(t, []int64{10}, f.stock.received)

	batches, err := f.svc.ListBatches(ctx, false)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	require.False(t, batches[0].Shipped)
	require.Equal(t, []Event{EventMaterialsRequested, EventStarted, EventCompleted}, f.sales.events)
}

func TestRequestMaterialsNeedsAssignedSector(t *testing.T) {
	f := newFixture()
	order := f.createMTO(t)
	_, err := f.svc.RequestMaterials(context.Background(), order.ID)
	require.ErrorIs(t, err, shared.ErrPreconditionFailed)
}

func TestRequestMaterialsStraightFromPending(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	salesOrderID := int64(7)
	order, err := f.svc.Create(ctx, CreateRequest{
		Type:           MakeToOrder,
		SalesOrderID:   &salesOrderID,
		FinishedGoodID: 1,
		Qty:            10,
		WarehouseID:    1,
		Sector:         "assembly",
	})
	require.NoError(t, err)
	require.Equal(t, StatusPending, order.Status)

	got, err := f.svc.RequestMaterials(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusMaterialsRequested, got.Status)
}

func TestDispatchRequiresMaterialsRequested(t *testing.T) {
	f := newFixture()
	order := f.createMTO(t)
	_, err := f.svc.DispatchMaterials(context.Background(), order.ID)
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
}

func TestDispatchSurfacesMissingRecipe(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	salesOrderID := int64(7)
	order, err := f.svc.Create(ctx, CreateRequest{
		Type: MakeToOrder, SalesOrderID: &salesOrderID, FinishedGoodID: 99, Qty: 5, WarehouseID: 1,
	})
	require.NoError(t, err)
	f.toRequested(t, order.ID)

	_, err = f.svc.DispatchMaterials(ctx, order.ID)
	require.ErrorIs(t, err, shared.ErrBomNotDefined)

	got, err := f.svc.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusMaterialsRequested, got.Status)
}

func TestDispatchLeavesStatusOnShortage(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	order := f.createMTO(t)
	f.toRequested(t, order.ID)

	f.stock.failWith = &shared.StockShortage{
		WarehouseID: 1,
		Shortfalls:  []shared.Shortfall{{MaterialID: 10, Required: 20, Available: 3}},
	}
	_, err := f.svc.DispatchMaterials(ctx, order.ID)
	require.ErrorIs(t, err, shared.ErrInsufficientStock)

	got, err := f.svc.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusMaterialsRequested, got.Status)
}

func TestPauseAndResumeRestorePriorStatus(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	order := f.createMTO(t)
	f.toRequested(t, order.ID)
	_, err := f.svc.DispatchMaterials(ctx, order.ID)
	require.NoError(t, err)
	_, err = f.svc.Start(ctx, order.ID)
	require.NoError(t, err)
	_, err = f.svc.MarkInProgress(ctx, order.ID)
	require.NoError(t, err)

	paused, err := f.svc.Pause(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPaused, paused.Status)
	require.Equal(t, StatusInProgress, *paused.ResumeStatus)

	resumed, err := f.svc.Resume(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusInProgress, resumed.Status)
	require.Nil(t, resumed.ResumeStatus)
}

func TestCompleteIsIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	order := f.createMTO(t)
	f.toRequested(t, order.ID)
	_, err := f.svc.DispatchMaterials(ctx, order.ID)
	require.NoError(t, err)
	_, err = f.svc.Start(ctx, order.ID)
	require.NoError(t, err)
	_, err = f.svc.Complete(ctx, order.ID)
	require.NoError(t, err)

	again, err := f.svc.Complete(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, again.Status)

	// Output booked once, one batch, one completion event.
	require.Equal(t, []int64{10}, f.stock.received)
	batches, _ := f.svc.ListBatches(ctx, false)
	require.Len(t, batches, 1)
}

func TestCancelOpenBySalesOrderSkipsFinishedRuns(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first := f.createMTO(t)
	f.toRequested(t, first.ID)
	_, err := f.svc.DispatchMaterials(ctx, first.ID)
	require.NoError(t, err)
	_, err = f.svc.Start(ctx, first.ID)
	require.NoError(t, err)
	_, err = f.svc.Complete(ctx, first.ID)
	require.NoError(t, err)

	second := f.createMTO(t)

	require.NoError(t, f.svc.CancelOpenBySalesOrder(ctx, 7))

	got, _ := f.svc.Get(ctx, first.ID)
	require.Equal(t, StatusCompleted, got.Status)
	got, _ = f.svc.Get(ctx, second.ID)
	require.Equal(t, StatusCancelled, got.Status)
}

func TestBatchShipsOnlyOnce(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	order := f.createMTO(t)
	f.toRequested(t, order.ID)
	_, err := f.svc.DispatchMaterials(ctx, order.ID)
	require.NoError(t, err)
	_, err = f.svc.Start(ctx, order.ID)
	require.NoError(t, err)
	_, err = f.svc.Complete(ctx, order.ID)
	require.NoError(t, err)

	batches, _ := f.svc.ListBatches(ctx, false)
	require.Len(t, batches, 1)

	shipped, err := f.svc.MarkBatchShipped(ctx, batches[0].ID)
	require.NoError(t, err)
	require.True(t, shipped.Shipped)
	require.Equal(t, []int64{10}, f.stock.shipped)

	_, err = f.svc.MarkBatchShipped(ctx, batches[0].ID)
	require.ErrorIs(t, err, shared.ErrIntegrityConflict)
	require.Equal(t, []int64{10}, f.stock.shipped)
}

func TestProblemReportKeepsStatusAndNotifies(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	order := f.createMTO(t)
	f.toRequested(t, order.ID)
	_, err := f.svc.DispatchMaterials(ctx, order.ID)
	require.NoError(t, err)
	_, err = f.svc.Start(ctx, order.ID)
	require.NoError(t, err)

	got, err := f.svc.ReportProblem(ctx, order.ID, ProblemRequest{Note: "press jammed"})
	require.NoError(t, err)
	require.Equal(t, StatusProductionStarted, got.Status)
	require.Equal(t, "press jammed", got.ProblemNote)
	require.Contains(t, f.sales.events, EventProblemReported)
}
