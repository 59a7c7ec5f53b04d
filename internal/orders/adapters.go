// Package orders is the command surface of the system. It composes the
// domain services, owns the transaction boundary of every command, and
// carries the adapters that let the modules talk to each other without
// importing one another.
package orders

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/lumenfab/lumenfab/internal/bom"
	"github.com/lumenfab/lumenfab/internal/ledger"
	"github.com/lumenfab/lumenfab/internal/masterdata"
	"github.com/lumenfab/lumenfab/internal/production"
	"github.com/lumenfab/lumenfab/internal/sales"
)

// ProductionForSales exposes the production service as the sales module's
// ProductionPort.
type ProductionForSales struct {
	Production *production.Service
}

func (a ProductionForSales) CreateForSales(ctx context.Context, salesOrderID, finishedGoodID, qty, warehouseID int64) error {
	_, err := a.Production.CreateForSales(ctx, salesOrderID, finishedGoodID, qty, warehouseID)
	return err
}

func (a ProductionForSales) CancelOpenBySalesOrder(ctx context.Context, salesOrderID int64) error {
	return a.Production.CancelOpenBySalesOrder(ctx, salesOrderID)
}

func (a ProductionForSales) StatusSummary(ctx context.Context, salesOrderID int64) (sales.ProductionSummary, error) {
	sum, err := a.Production.StatusSummary(ctx, salesOrderID)
	if err != nil {
		return sales.ProductionSummary{}, err
	}
	return sales.ProductionSummary{Total: sum.Total, Completed: sum.Completed, Cancelled: sum.Cancelled}, nil
}

// SalesForProduction exposes the sales service as the production module's
// SalesPort. Event values are shared vocabulary on both sides.
type SalesForProduction struct {
	Sales *sales.Service
}

func (a SalesForProduction) OnProductionEvent(ctx context.Context, salesOrderID int64, evt production.Event) error {
	return a.Sales.OnProductionEvent(ctx, salesOrderID, sales.ProductionEvent(evt))
}

// BOMForProduction resolves material requirements for a run.
type BOMForProduction struct {
	BOM *bom.Service
}

func (a BOMForProduction) Requirements(ctx context.Context, finishedGoodID, qty int64) ([]production.MaterialRequirement, error) {
	reqs, err := a.BOM.Resolve(ctx, finishedGoodID, qty)
	if err != nil {
		return nil, err
	}
	out := make([]production.MaterialRequirement, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, production.MaterialRequirement{MaterialID: r.MaterialID, Qty: r.Qty})
	}
	return out, nil
}

// LedgerForProduction moves stock for production runs: raw materials out on
// issue, finished goods in on completion and out again on batch shipment.
type LedgerForProduction struct {
	Ledger *ledger.Service
}

func (a LedgerForProduction) IssueMaterials(ctx context.Context, warehouseID int64, items []production.MaterialRequirement, productionOrderID int64) error {
	batch := make([]ledger.ItemQty, 0, len(items))
	for _, it := range items {
		batch = append(batch, ledger.ItemQty{ItemID: it.MaterialID, Qty: it.Qty})
	}
	ref := ledger.Ref{Type: "production_order", ID: productionOrderID}
	return a.Ledger.DecreaseBatch(ctx, warehouseID, ledger.ItemRawMaterial, batch, ledger.ReasonMaterialIssue, ref)
}

func (a LedgerForProduction) ReceiveOutput(ctx context.Context, warehouseID, finishedGoodID, qty, productionOrderID int64) error {
	ref := ledger.Ref{Type: "production_order", ID: productionOrderID}
	return a.Ledger.Increase(ctx, warehouseID, ledger.ItemFinishedGood, finishedGoodID, qty, ledger.ReasonProductionOutput, ref)
}

func (a LedgerForProduction) ShipOutput(ctx context.Context, warehouseID, finishedGoodID, qty, batchID int64) error {
	ref := ledger.Ref{Type: "production_batch", ID: batchID}
	return a.Ledger.Decrease(ctx, warehouseID, ledger.ItemFinishedGood, finishedGoodID, qty, ledger.ReasonShipment, ref)
}

// LedgerForPurchasing books received purchase quantities into stock.
type LedgerForPurchasing struct {
	Ledger *ledger.Service
}

func (a LedgerForPurchasing) ReceiveMaterial(ctx context.Context, warehouseID, materialID, qty, purchaseOrderID int64) error {
	ref := ledger.Ref{Type: "purchase_order", ID: purchaseOrderID}
	return a.Ledger.Increase(ctx, warehouseID, ledger.ItemRawMaterial, materialID, qty, ledger.ReasonPurchaseReceipt, ref)
}

// Catalog serves prices from master data to both order modules.
type Catalog struct {
	Repo masterdata.RepositoryPort
}

func (a Catalog) GoodPrice(ctx context.Context, finishedGoodID int64) (decimal.Decimal, error) {
	g, err := a.Repo.GetFinishedGood(ctx, finishedGoodID)
	if err != nil {
		return decimal.Zero, err
	}
	return g.UnitPrice, nil
}

func (a Catalog) OfferPrice(ctx context.Context, supplierID, materialID int64) (decimal.Decimal, error) {
	offer, err := a.Repo.GetSupplierOffer(ctx, supplierID, materialID)
	if err != nil {
		return decimal.Zero, err
	}
	return offer.UnitPrice, nil
}
