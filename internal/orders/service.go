package orders

import (
	"context"
	"strconv"

	"github.com/lumenfab/lumenfab/internal/ledger"
	"github.com/lumenfab/lumenfab/internal/production"
	"github.com/lumenfab/lumenfab/internal/purchasing"
	"github.com/lumenfab/lumenfab/internal/sales"
	"github.com/lumenfab/lumenfab/internal/shared"
)

// TxRunner opens the transaction boundary of one command. The production
// wiring backs it with a database transaction; tests pass the context through.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// Passthrough runs fn without a surrounding transaction.
func Passthrough(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// AuditPort appends one audit row per command, inside the command's
// transaction.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service sequences the domain services. Every command is one atomic unit:
// the state transition, its stock side effects, the history entries and the
// audit row commit together or not at all.
type Service struct {
	tx         TxRunner
	sales      *sales.Service
	production *production.Service
	purchasing *purchasing.Service
	ledger     *ledger.Service
	audit      AuditPort
}

// NewService constructs the orchestrator. Audit may be nil.
func NewService(tx TxRunner, salesSvc *sales.Service, productionSvc *production.Service, purchasingSvc *purchasing.Service, ledgerSvc *ledger.Service, audit AuditPort) *Service {
	return &Service{
		tx:         tx,
		sales:      salesSvc,
		production: productionSvc,
		purchasing: purchasingSvc,
		ledger:     ledgerSvc,
		audit:      audit,
	}
}

// PlaceSalesOrder persists a sales order with its lines and opens one
// production run per non-stock line, all in one transaction.
func (o *Service) PlaceSalesOrder(ctx context.Context, scope shared.Scope, req sales.CreateRequest) (sales.SalesOrder, error) {
	var order sales.SalesOrder
	err := o.tx(ctx, func(ctx context.Context) error {
		var err error
		if order, err = o.sales.Create(ctx, req); err != nil {
			return err
		}
		return o.record(ctx, scope, "sales_order.place", "sales_order", order.ID, map[string]any{"number": order.Number})
	})
	if err != nil {
		return sales.SalesOrder{}, err
	}
	return order, nil
}

func (o *Service) ConfirmSalesOrder(ctx context.Context, scope shared.Scope, id int64) (sales.SalesOrder, error) {
	return o.salesCommand(ctx, scope, "sales_order.confirm", id, o.sales.Confirm)
}

// CancelSalesOrder aborts the order and every open production run behind it.
func (o *Service) CancelSalesOrder(ctx context.Context, scope shared.Scope, id int64) (sales.SalesOrder, error) {
	return o.salesCommand(ctx, scope, "sales_order.cancel", id, o.sales.Cancel)
}

func (o *Service) ConfirmDelivery(ctx context.Context, scope shared.Scope, id int64) (sales.SalesOrder, error) {
	return o.salesCommand(ctx, scope, "sales_order.deliver", id, o.sales.ConfirmDelivery)
}

func (o *Service) IssueInvoice(ctx context.Context, scope shared.Scope, id int64) (sales.Invoice, error) {
	var inv sales.Invoice
	err := o.tx(ctx, func(ctx context.Context) error {
		var err error
		if inv, err = o.sales.IssueInvoice(ctx, id); err != nil {
			return err
		}
		return o.record(ctx, scope, "sales_order.invoice", "sales_order", id, map[string]any{"invoice": inv.Number})
	})
	if err != nil {
		return sales.Invoice{}, err
	}
	return inv, nil
}

// CreateStockProduction opens a make-to-stock run with no parent sales
// order. The replenishment scan is its main caller.
func (o *Service) CreateStockProduction(ctx context.Context, scope shared.Scope, finishedGoodID, qty, warehouseID int64) (production.ProductionOrder, error) {
	var order production.ProductionOrder
	err := o.tx(ctx, func(ctx context.Context) error {
		var err error
		order, err = o.production.Create(ctx, production.CreateRequest{
			Type:           production.MakeToStock,
			FinishedGoodID: finishedGoodID,
			Qty:            qty,
			WarehouseID:    warehouseID,
		})
		if err != nil {
			return err
		}
		return o.record(ctx, scope, "production_order.create_stock", "production_order", order.ID, map[string]any{"qty": qty})
	})
	if err != nil {
		return production.ProductionOrder{}, err
	}
	return order, nil
}

func (o *Service) PlanProduction(ctx context.Context, scope shared.Scope, id int64, req production.PlanRequest) (production.ProductionOrder, error) {
	return o.productionCommand(ctx, scope, "production_order.plan", id, func(ctx context.Context, id int64) (production.ProductionOrder, error) {
		return o.production.Plan(ctx, id, req)
	})
}

func (o *Service) RequestMaterials(ctx context.Context, scope shared.Scope, id int64) (production.ProductionOrder, error) {
	return o.productionCommand(ctx, scope, "production_order.request_materials", id, o.production.RequestMaterials)
}

// IssueMaterials performs the warehouse dispatch: BOM resolution, the
// all-or-nothing material decrement and the status change in one transaction.
func (o *Service) IssueMaterials(ctx context.Context, scope shared.Scope, id int64) (production.ProductionOrder, error) {
	return o.productionCommand(ctx, scope, "production_order.issue_materials", id, o.production.DispatchMaterials)
}

func (o *Service) StartProduction(ctx context.Context, scope shared.Scope, id int64) (production.ProductionOrder, error) {
	return o.productionCommand(ctx, scope, "production_order.start", id, o.production.Start)
}

func (o *Service) PauseProduction(ctx context.Context, scope shared.Scope, id int64) (production.ProductionOrder, error) {
	return o.productionCommand(ctx, scope, "production_order.pause", id, o.production.Pause)
}

func (o *Service) ResumeProduction(ctx context.Context, scope shared.Scope, id int64) (production.ProductionOrder, error) {
	return o.productionCommand(ctx, scope, "production_order.resume", id, o.production.Resume)
}

func (o *Service) CompleteProduction(ctx context.Context, scope shared.Scope, id int64) (production.ProductionOrder, error) {
	return o.productionCommand(ctx, scope, "production_order.complete", id, o.production.Complete)
}

func (o *Service) CancelProduction(ctx context.Context, scope shared.Scope, id int64) (production.ProductionOrder, error) {
	return o.productionCommand(ctx, scope, "production_order.cancel", id, o.production.Cancel)
}

func (o *Service) ReportProductionProblem(ctx context.Context, scope shared.Scope, id int64, req production.ProblemRequest) (production.ProductionOrder, error) {
	return o.productionCommand(ctx, scope, "production_order.problem", id, func(ctx context.Context, id int64) (production.ProductionOrder, error) {
		return o.production.ReportProblem(ctx, id, req)
	})
}

func (o *Service) CreatePurchaseOrder(ctx context.Context, scope shared.Scope, req purchasing.CreateRequest) (purchasing.PurchaseOrder, error) {
	var order purchasing.PurchaseOrder
	err := o.tx(ctx, func(ctx context.Context) error {
		var err error
		if order, err = o.purchasing.Create(ctx, req); err != nil {
			return err
		}
		return o.record(ctx, scope, "purchase_order.create", "purchase_order", order.ID, map[string]any{"number": order.Number})
	})
	if err != nil {
		return purchasing.PurchaseOrder{}, err
	}
	return order, nil
}

func (o *Service) ApprovePurchaseOrder(ctx context.Context, scope shared.Scope, id int64) error {
	return o.purchaseCommand(ctx, scope, "purchase_order.approve", id, o.purchasing.Approve)
}

// ApprovePurchaseBatch evaluates every order independently; the caller gets
// per-item results, never an all-or-nothing outcome.
func (o *Service) ApprovePurchaseBatch(ctx context.Context, scope shared.Scope, ids []int64) purchasing.BatchResult {
	result := o.purchasing.ApproveBatch(ctx, ids)
	_ = o.record(ctx, scope, "purchase_order.approve_batch", "purchase_order", 0, map[string]any{
		"approved": result.Approved,
		"failed":   len(result.Failed),
	})
	return result
}

func (o *Service) SendPurchaseOrder(ctx context.Context, scope shared.Scope, id int64) error {
	return o.purchaseCommand(ctx, scope, "purchase_order.send", id, o.purchasing.Send)
}

func (o *Service) MarkPurchaseInTransit(ctx context.Context, scope shared.Scope, id int64, req purchasing.MarkInTransitRequest) error {
	return o.purchaseCommand(ctx, scope, "purchase_order.transit", id, func(ctx context.Context, id int64) error {
		return o.purchasing.MarkInTransit(ctx, id, req)
	})
}

// ReceivePurchaseOrder books delivered quantities: the receipt lines and the
// ledger increments commit together.
func (o *Service) ReceivePurchaseOrder(ctx context.Context, scope shared.Scope, id int64, req purchasing.ReceiveRequest) (purchasing.PurchaseOrder, error) {
	var order purchasing.PurchaseOrder
	err := o.tx(ctx, func(ctx context.Context) error {
		var err error
		if order, err = o.purchasing.Receive(ctx, id, req); err != nil {
			return err
		}
		return o.record(ctx, scope, "purchase_order.receive", "purchase_order", id, map[string]any{"status": string(order.Status)})
	})
	if err != nil {
		return purchasing.PurchaseOrder{}, err
	}
	return order, nil
}

func (o *Service) CompletePurchaseOrder(ctx context.Context, scope shared.Scope, id int64) error {
	return o.purchaseCommand(ctx, scope, "purchase_order.complete", id, o.purchasing.Complete)
}

func (o *Service) CancelPurchaseOrder(ctx context.Context, scope shared.Scope, id int64) error {
	return o.purchaseCommand(ctx, scope, "purchase_order.cancel", id, o.purchasing.Cancel)
}

// ShipBatch marks a production batch shipped and decrements finished-good
// stock, independent of when the run completed.
func (o *Service) ShipBatch(ctx context.Context, scope shared.Scope, batchID int64) (production.Batch, error) {
	var batch production.Batch
	err := o.tx(ctx, func(ctx context.Context) error {
		var err error
		if batch, err = o.production.MarkBatchShipped(ctx, batchID); err != nil {
			return err
		}
		return o.record(ctx, scope, "production_batch.ship", "production_batch", batchID, nil)
	})
	if err != nil {
		return production.Batch{}, err
	}
	return batch, nil
}

// CurrentQuantity reads on-hand stock; reads run outside the command
// transaction boundary.
func (o *Service) CurrentQuantity(ctx context.Context, warehouseID int64, kind ledger.ItemKind, itemID int64) (int64, error) {
	return o.ledger.OnHand(ctx, warehouseID, kind, itemID)
}

func (o *Service) TransferStock(ctx context.Context, scope shared.Scope, req ledger.TransferRequest) error {
	return o.tx(ctx, func(ctx context.Context) error {
		if err := o.ledger.Transfer(ctx, req); err != nil {
			return err
		}
		return o.record(ctx, scope, "stock.transfer", "warehouse", req.FromWarehouseID, map[string]any{
			"to_warehouse": req.ToWarehouseID,
			"item_id":      req.ItemID,
			"qty":          req.Qty,
		})
	})
}

func (o *Service) salesCommand(ctx context.Context, scope shared.Scope, action string, id int64, fn func(ctx context.Context, id int64) (sales.SalesOrder, error)) (sales.SalesOrder, error) {
	var order sales.SalesOrder
	err := o.tx(ctx, func(ctx context.Context) error {
		var err error
		if order, err = fn(ctx, id); err != nil {
			return err
		}
		return o.record(ctx, scope, action, "sales_order", id, nil)
	})
	if err != nil {
		return sales.SalesOrder{}, err
	}
	return order, nil
}

func (o *Service) productionCommand(ctx context.Context, scope shared.Scope, action string, id int64, fn func(ctx context.Context, id int64) (production.ProductionOrder, error)) (production.ProductionOrder, error) {
	var order production.ProductionOrder
	err := o.tx(ctx, func(ctx context.Context) error {
		var err error
		if order, err = fn(ctx, id); err != nil {
			return err
		}
		return o.record(ctx, scope, action, "production_order", id, nil)
	})
	if err != nil {
		return production.ProductionOrder{}, err
	}
	return order, nil
}

func (o *Service) purchaseCommand(ctx context.Context, scope shared.Scope, action string, id int64, fn func(ctx context.Context, id int64) error) error {
	return o.tx(ctx, func(ctx context.Context) error {
		if err := fn(ctx, id); err != nil {
			return err
		}
		return o.record(ctx, scope, action, "purchase_order", id, nil)
	})
}

func (o *Service) record(ctx context.Context, scope shared.Scope, action, entity string, entityID int64, meta map[string]any) error {
	if o.audit == nil {
		return nil
	}
	if meta == nil {
		meta = map[string]any{}
	}
	meta["company_id"] = scope.CompanyID
	return o.audit.Record(ctx, shared.AuditLog{
		ActorID:  scope.ActorID,
		Action:   action,
		Entity:   entity,
		EntityID: strconv.FormatInt(entityID, 10),
		Meta:     meta,
	})
}
