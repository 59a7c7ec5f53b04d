package orders

import (
	"context"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/lumenfab/lumenfab/internal/bom"
	"github.com/lumenfab/lumenfab/internal/ledger"
	"github.com/lumenfab/lumenfab/internal/masterdata"
	"github.com/lumenfab/lumenfab/internal/production"
	"github.com/lumenfab/lumenfab/internal/purchasing"
	"github.com/lumenfab/lumenfab/internal/sales"
	"github.com/lumenfab/lumenfab/internal/shared"
)

type auditRecorder struct {
	logs []shared.AuditLog
}

func (a *auditRecorder) Record(_ context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

// fixture wires the full core with in-memory repositories, the same way main
// wires it against Postgres.
type fixture struct {
	orch       *Service
	sales      *sales.Service
	production *production.Service
	ledger     *ledger.Service
	ledgerRepo *ledger.MemoryRepository
	bom        *bom.Service
	audit      *auditRecorder

	warehouseID int64
	materialM   int64
	goodX       int64
	goodY       int64
	supplierID  int64
	scope       shared.Scope
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	mdRepo := masterdata.NewMemoryRepository()
	warehouseID, err := mdRepo.CreateWarehouse(ctx, masterdata.Warehouse{Name: "Central"})
	require.NoError(t, err)
	materialM, err := mdRepo.CreateRawMaterial(ctx, masterdata.RawMaterial{SKU: "ALU-01", Name: "Aluminium profile"})
	require.NoError(t, err)
	goodX, err := mdRepo.CreateFinishedGood(ctx, masterdata.FinishedGood{SKU: "LMP-X", Name: "Pendant lamp", UnitPrice: decimal.NewFromInt(100)})
	require.NoError(t, err)
	goodY, err := mdRepo.CreateFinishedGood(ctx, masterdata.FinishedGood{SKU: "LMP-Y", Name: "Desk lamp", UnitPrice: decimal.NewFromInt(40)})
	require.NoError(t, err)
	supplierID, err := mdRepo.CreateSupplier(ctx, masterdata.Supplier{Name: "Nordlicht GmbH"})
	require.NoError(t, err)
	_, err = mdRepo.CreateSupplierOffer(ctx, masterdata.SupplierOffer{
		SupplierID: supplierID, MaterialID: materialM, UnitPrice: decimal.NewFromInt(3),
	})
	require.NoError(t, err)

	catalog := Catalog{Repo: mdRepo}

	ledgerRepo := ledger.NewMemoryRepository()
	ledgerSvc := ledger.NewService(ledgerRepo, nil, nil)

	bomSvc := bom.NewService(bom.NewMemoryRepository())

	prodSvc := production.NewService(
		production.NewMemoryRepository(),
		BOMForProduction{BOM: bomSvc},
		LedgerForProduction{Ledger: ledgerSvc},
		nil, slog.Default(),
	)
	salesSvc := sales.NewService(
		sales.NewMemoryRepository(),
		ProductionForSales{Production: prodSvc},
		catalog, nil, slog.Default(),
	)
	prodSvc.SetSalesPort(SalesForProduction{Sales: salesSvc})

	purchSvc := purchasing.NewService(
		purchasing.NewMemoryRepository(),
		LedgerForPurchasing{Ledger: ledgerSvc},
		catalog, nil,
	)

	audit := &auditRecorder{}
	orch := NewService(Passthrough, salesSvc, prodSvc, purchSvc, ledgerSvc, audit)

	return &fixture{
		orch:        orch,
		sales:       salesSvc,
		production:  prodSvc,
		ledger:      ledgerSvc,
		ledgerRepo:  ledgerRepo,
		bom:         bomSvc,
		audit:       audit,
		warehouseID: warehouseID,
		materialM:   materialM,
		goodX:       goodX,
		goodY:       goodY,
		supplierID:  supplierID,
		scope:       shared.Scope{CompanyID: 1, ActorID: 42},
	}
}

func (f *fixture) defineBOM(t *testing.T, finishedGoodID, qtyPerUnit int64) {
	t.Helper()
	_, err := f.bom.Define(context.Background(), bom.DefineRequest{
		FinishedGoodID: finishedGoodID,
		Lines:          []bom.Line{{MaterialID: f.materialM, QtyPerUnit: qtyPerUnit}},
	})
	require.NoError(t, err)
}

func (f *fixture) onHand(t *testing.T, kind ledger.ItemKind, itemID int64) int64 {
	t.Helper()
	qty, err := f.orch.CurrentQuantity(context.Background(), f.warehouseID, kind, itemID)
	require.NoError(t, err)
	return qty
}

// runToRequested walks a run up to MATERIALS_REQUESTED.
func (f *fixture) runToRequested(t *testing.T, runID int64) {
	t.Helper()
	ctx := context.Background()
	_, err := f.orch.PlanProduction(ctx, f.scope, runID, production.PlanRequest{Sector: "assembly"})
	require.NoError(t, err)
	_, err = f.orch.RequestMaterials(ctx, f.scope, runID)
	require.NoError(t, err)
}

func TestPlacingOrderSpawnsRunsPerLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.orch.PlaceSalesOrder(ctx, f.scope, sales.CreateRequest{
		CustomerID:  1,
		WarehouseID: f.warehouseID,
		Lines: []sales.CreateLineRequest{
			{FinishedGoodID: f.goodX, Qty: 5},
			{FinishedGoodID: f.goodY, Qty: 3},
		},
	})
	require.NoError(t, err)
	require.Equal(t, sales.StatusPending, order.Status)
	// 5*100 + 3*40
	require.True(t, order.Total().Equal(decimal.NewFromInt(620)))

	runs, err := f.production.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	for _, run := range runs {
		require.Equal(t, production.StatusPending, run.Status)
		require.Equal(t, production.MakeToOrder, run.Type)
		require.Equal(t, order.ID, *run.SalesOrderID)
	}
	require.Equal(t, "sales_order.place", f.audit.logs[0].Action)
	require.Equal(t, int64(42), f.audit.logs[0].ActorID)
}

func TestMaterialIssueRejectedOnShortage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.defineBOM(t, f.goodX, 30)
	f.ledgerRepo.Seed(f.warehouseID, ledger.ItemRawMaterial, f.materialM, 100)

	order, err := f.orch.PlaceSalesOrder(ctx, f.scope, sales.CreateRequest{
		CustomerID:  1,
		WarehouseID: f.warehouseID,
		Lines:       []sales.CreateLineRequest{{FinishedGoodID: f.goodX, Qty: 4}},
	})
	require.NoError(t, err)

	runs, err := f.production.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	f.runToRequested(t, runs[0].ID)

	// Needs 120, has 100.
	_, err = f.orch.IssueMaterials(ctx, f.scope, runs[0].ID)
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
	shortage, ok := shared.AsStockShortage(err)
	require.True(t, ok)
	require.Equal(t, int64(120), shortage.Shortfalls[0].Required)
	require.Equal(t, int64(100), shortage.Shortfalls[0].Available)

	require.Equal(t, int64(100), f.onHand(t, ledger.ItemRawMaterial, f.materialM))

	run, err := f.production.Get(ctx, runs[0].ID)
	require.NoError(t, err)
	require.Equal(t, production.StatusMaterialsRequested, run.Status)

	got, err := f.sales.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, sales.StatusMaterialsRequested, got.Status)
}

func TestMaterialIssueDecrementsLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.defineBOM(t, f.goodX, 30)
	f.ledgerRepo.Seed(f.warehouseID, ledger.ItemRawMaterial, f.materialM, 100)

	_, err := f.orch.PlaceSalesOrder(ctx, f.scope, sales.CreateRequest{
		CustomerID:  1,
		WarehouseID: f.warehouseID,
		Lines:       []sales.CreateLineRequest{{FinishedGoodID: f.goodX, Qty: 2}},
	})
	require.NoError(t, err)

	runs, err := f.production.List(ctx, "")
	require.NoError(t, err)
	f.runToRequested(t, runs[0].ID)

	// Needs 60, has 100.
	run, err := f.orch.IssueMaterials(ctx, f.scope, runs[0].ID)
	require.NoError(t, err)
	require.Equal(t, production.StatusMaterialsReceived, run.Status)
	require.Equal(t, int64(40), f.onHand(t, ledger.ItemRawMaterial, f.materialM))
}

func TestPurchaseReceiptIncrementsOnceAtTheEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.orch.CreatePurchaseOrder(ctx, f.scope, purchasing.CreateRequest{
		SupplierID:  f.supplierID,
		WarehouseID: f.warehouseID,
		Lines:       []purchasing.CreateLineRequest{{MaterialID: f.materialM, Qty: 500}},
	})
	require.NoError(t, err)

	require.NoError(t, f.orch.ApprovePurchaseOrder(ctx, f.scope, order.ID))
	require.NoError(t, f.orch.SendPurchaseOrder(ctx, f.scope, order.ID))
	require.NoError(t, f.orch.MarkPurchaseInTransit(ctx, f.scope, order.ID, purchasing.MarkInTransitRequest{TrackingNumber: "TRK-99"}))

	// Nothing lands in stock before the goods arrive.
	require.Equal(t, int64(0), f.onHand(t, ledger.ItemRawMaterial, f.materialM))

	got, err := f.orch.ReceivePurchaseOrder(ctx, f.scope, order.ID, purchasing.ReceiveRequest{
		Lines: []purchasing.ReceiveLineRequest{{LineID: order.Lines[0].ID, Qty: 500}},
	})
	require.NoError(t, err)
	require.Equal(t, purchasing.StatusCompleted, got.Status)
	require.Equal(t, int64(500), f.onHand(t, ledger.ItemRawMaterial, f.materialM))
}

func TestCancelSalesOrderSparesCompletedRuns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.defineBOM(t, f.goodX, 1)
	f.ledgerRepo.Seed(f.warehouseID, ledger.ItemRawMaterial, f.materialM, 100)

	order, err := f.orch.PlaceSalesOrder(ctx, f.scope, sales.CreateRequest{
		CustomerID:  1,
		WarehouseID: f.warehouseID,
		Lines: []sales.CreateLineRequest{
			{FinishedGoodID: f.goodX, Qty: 5},
			{FinishedGoodID: f.goodY, Qty: 3},
		},
	})
	require.NoError(t, err)

	runs, err := f.production.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	var runX, runY production.ProductionOrder
	for _, run := range runs {
		if run.FinishedGoodID == f.goodX {
			runX = run
		} else {
			runY = run
		}
	}

	f.runToRequested(t, runX.ID)
	_, err = f.orch.IssueMaterials(ctx, f.scope, runX.ID)
	require.NoError(t, err)
	_, err = f.orch.StartProduction(ctx, f.scope, runX.ID)
	require.NoError(t, err)
	_, err = f.orch.CompleteProduction(ctx, f.scope, runX.ID)
	require.NoError(t, err)

	cancelled, err := f.orch.CancelSalesOrder(ctx, f.scope, order.ID)
	require.NoError(t, err)
	require.Equal(t, sales.StatusCancelled, cancelled.Status)

	got, err := f.production.Get(ctx, runX.ID)
	require.NoError(t, err)
	require.Equal(t, production.StatusCompleted, got.Status)
	got, err = f.production.Get(ctx, runY.ID)
	require.NoError(t, err)
	require.Equal(t, production.StatusCancelled, got.Status)
}

func TestCompletionFlowsThroughToDelivery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.defineBOM(t, f.goodX, 2)
	f.ledgerRepo.Seed(f.warehouseID, ledger.ItemRawMaterial, f.materialM, 100)

	order, err := f.orch.PlaceSalesOrder(ctx, f.scope, sales.CreateRequest{
		CustomerID:  1,
		WarehouseID: f.warehouseID,
		Lines:       []sales.CreateLineRequest{{FinishedGoodID: f.goodX, Qty: 10}},
	})
	require.NoError(t, err)

	runs, err := f.production.List(ctx, "")
	require.NoError(t, err)
	f.runToRequested(t, runs[0].ID)
	_, err = f.orch.IssueMaterials(ctx, f.scope, runs[0].ID)
	require.NoError(t, err)
	_, err = f.orch.StartProduction(ctx, f.scope, runs[0].ID)
	require.NoError(t, err)
	_, err = f.orch.CompleteProduction(ctx, f.scope, runs[0].ID)
	require.NoError(t, err)

	// The only run finished: the order is ready and the output is on hand.
	got, err := f.sales.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, sales.StatusReadyForDelivery, got.Status)
	require.Equal(t, int64(10), f.onHand(t, ledger.ItemFinishedGood, f.goodX))

	// Ship the batch, invoice, confirm delivery.
	batches, err := f.production.ListBatches(ctx, false)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	batch, err := f.orch.ShipBatch(ctx, f.scope, batches[0].ID)
	require.NoError(t, err)
	require.True(t, batch.Shipped)
	require.Equal(t, int64(0), f.onHand(t, ledger.ItemFinishedGood, f.goodX))

	inv, err := f.orch.IssueInvoice(ctx, f.scope, order.ID)
	require.NoError(t, err)
	require.True(t, inv.Total.Equal(decimal.NewFromInt(1000)))

	delivered, err := f.orch.ConfirmDelivery(ctx, f.scope, order.ID)
	require.NoError(t, err)
	require.Equal(t, sales.StatusCompleted, delivered.Status)
}

func TestTransferStockMovesBetweenWarehouses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ledgerRepo.Seed(f.warehouseID, ledger.ItemRawMaterial, f.materialM, 50)

	err := f.orch.TransferStock(ctx, f.scope, ledger.TransferRequest{
		FromWarehouseID: f.warehouseID,
		ToWarehouseID:   f.warehouseID + 1,
		ItemKind:        ledger.ItemRawMaterial,
		ItemID:          f.materialM,
		Qty:             20,
	})
	require.NoError(t, err)

	require.Equal(t, int64(30), f.onHand(t, ledger.ItemRawMaterial, f.materialM))
	qty, err := f.orch.CurrentQuantity(ctx, f.warehouseID+1, ledger.ItemRawMaterial, f.materialM)
	require.NoError(t, err)
	require.Equal(t, int64(20), qty)
}
