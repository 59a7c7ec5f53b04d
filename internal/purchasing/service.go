package purchasing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/lumenfab/lumenfab/internal/observability"
	"github.com/lumenfab/lumenfab/internal/shared"
)

// InventoryPort receives delivered materials into the stock ledger. The
// implementation joins the surrounding transaction, so a receipt either
// lands in both the order and the ledger or in neither.
type InventoryPort interface {
	ReceiveMaterial(ctx context.Context, warehouseID, materialID, qty, purchaseOrderID int64) error
}

// CatalogPort resolves supplier pricing for ordered materials.
type CatalogPort interface {
	OfferPrice(ctx context.Context, supplierID, materialID int64) (decimal.Decimal, error)
}

// Service provides business logic for purchase orders.
type Service struct {
	repo      RepositoryPort
	inventory InventoryPort
	catalog   CatalogPort
	metrics   *observability.Metrics
}

// NewService constructs a purchasing service. Metrics may be nil.
func NewService(repo RepositoryPort, inventory InventoryPort, catalog CatalogPort, metrics *observability.Metrics) *Service {
	return &Service{repo: repo, inventory: inventory, catalog: catalog, metrics: metrics}
}

// Create opens a draft order. Unit prices are copied from the supplier's
// standing offer at creation time; later offer changes do not touch placed
// orders.
func (s *Service) Create(ctx context.Context, req CreateRequest) (PurchaseOrder, error) {
	lines := make([]Line, 0, len(req.Lines))
	for _, l := range req.Lines {
		price, err := s.catalog.OfferPrice(ctx, req.SupplierID, l.MaterialID)
		if err != nil {
			return PurchaseOrder{}, fmt.Errorf("resolve offer for material %d: %w", l.MaterialID, err)
		}
		lines = append(lines, Line{MaterialID: l.MaterialID, Qty: l.Qty, UnitPrice: price})
	}

	var order PurchaseOrder
	err := s.repo.WithTx(ctx, func(ctx context.Context) error {
		number, err := s.repo.NextNumber(ctx)
		if err != nil {
			return err
		}
		order = PurchaseOrder{
			Number:      number,
			SupplierID:  req.SupplierID,
			WarehouseID: req.WarehouseID,
			Status:      StatusDraft,
			Notes:       req.Notes,
		}
		id, err := s.repo.Insert(ctx, order)
		if err != nil {
			return err
		}
		order.ID = id
		for i, l := range lines {
			lineID, err := s.repo.InsertLine(ctx, id, l)
			if err != nil {
				return err
			}
			lines[i].ID = lineID
		}
		order.Lines = lines
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.metrics.OrderCreated("purchase")
	return order, nil
}

func (s *Service) Get(ctx context.Context, id int64) (PurchaseOrder, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, status Status) ([]PurchaseOrder, error) {
	return s.repo.List(ctx, status)
}

// Update edits mutable fields. Notes may change while the order is still in
// an editable state; lines only while it is a draft.
func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (PurchaseOrder, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if !order.Status.Editable() {
		return PurchaseOrder{}, fmt.Errorf("%w: purchase order %s is %s and frozen", shared.ErrPreconditionFailed, order.Number, order.Status)
	}
	if req.Lines != nil && order.Status != StatusDraft {
		return PurchaseOrder{}, fmt.Errorf("%w: lines can only change on drafts", shared.ErrPreconditionFailed)
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context) error {
		if req.Notes != nil {
			if err := s.repo.UpdateNotes(ctx, id, *req.Notes); err != nil {
				return err
			}
		}
		if req.Lines != nil {
			lines := make([]Line, 0, len(req.Lines))
			for _, l := range req.Lines {
				price, err := s.catalog.OfferPrice(ctx, order.SupplierID, l.MaterialID)
				if err != nil {
					return fmt.Errorf("resolve offer for material %d: %w", l.MaterialID, err)
				}
				lines = append(lines, Line{MaterialID: l.MaterialID, Qty: l.Qty, UnitPrice: price})
			}
			if err := s.repo.ReplaceLines(ctx, id, lines); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	return s.repo.Get(ctx, id)
}

// Approve moves a draft to APPROVED.
func (s *Service) Approve(ctx context.Context, id int64) error {
	return s.transition(ctx, id, StatusApproved)
}

// ApproveBatch approves several drafts, reporting per-order failures instead
// of stopping at the first.
func (s *Service) ApproveBatch(ctx context.Context, ids []int64) BatchResult {
	var result BatchResult
	for _, id := range ids {
		if err := s.Approve(ctx, id); err != nil {
			result.Failed = append(result.Failed, BatchFailure{ID: id, Reason: err.Error()})
			continue
		}
		result.Approved++
	}
	return result
}

// Send marks the order as transmitted to the supplier.
func (s *Service) Send(ctx context.Context, id int64) error {
	return s.transition(ctx, id, StatusSentToSupplier)
}

// MarkInTransit records the tracking number and moves the order to
// IN_TRANSIT. The tracking number is mandatory; there is no transit without
// a shipment reference.
func (s *Service) MarkInTransit(ctx context.Context, id int64, req MarkInTransitRequest) error {
	if req.TrackingNumber == "" {
		return fmt.Errorf("%w: tracking number required for transit", shared.ErrPreconditionFailed)
	}
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !CanTransition(order.Status, StatusInTransit) {
		s.metrics.TransitionDenied("purchase")
		return fmt.Errorf("%w: %s -> %s", shared.ErrInvalidTransition, order.Status, StatusInTransit)
	}
	return s.repo.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.SetTracking(ctx, id, req.TrackingNumber); err != nil {
			return err
		}
		return s.repo.UpdateStatus(ctx, id, order.Status, StatusInTransit)
	})
}

// Receive books delivered quantities. Each delivered line lands in the stock
// ledger exactly once; over-delivery against the ordered quantity is
// rejected. A delivery that completes every line closes the order, anything
// less leaves it PARTIALLY_RECEIVED.
func (s *Service) Receive(ctx context.Context, id int64, req ReceiveRequest) (PurchaseOrder, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if order.Status != StatusInTransit && order.Status != StatusPartiallyReceived {
		s.metrics.TransitionDenied("purchase")
		return PurchaseOrder{}, fmt.Errorf("%w: cannot receive while %s", shared.ErrInvalidTransition, order.Status)
	}

	lineByID := map[int64]Line{}
	for _, l := range order.Lines {
		lineByID[l.ID] = l
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context) error {
		for _, rl := range req.Lines {
			line, ok := lineByID[rl.LineID]
			if !ok {
				return fmt.Errorf("%w: line %d does not belong to purchase order %d", shared.ErrNotFound, rl.LineID, id)
			}
			ok, err := s.repo.AddReceived(ctx, rl.LineID, rl.Qty)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: receiving %d exceeds ordered qty on line %d", shared.ErrPreconditionFailed, rl.Qty, rl.LineID)
			}
			if err := s.inventory.ReceiveMaterial(ctx, order.WarehouseID, line.MaterialID, rl.Qty, order.ID); err != nil {
				return err
			}
		}

		updated, err := s.repo.Get(ctx, id)
		if err != nil {
			return err
		}
		next := StatusPartiallyReceived
		if updated.FullyReceived() {
			next = StatusCompleted
		}
		return s.repo.UpdateStatus(ctx, id, order.Status, next)
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	return s.repo.Get(ctx, id)
}

// Complete closes an order that was marked FULLY_RECEIVED out of band.
func (s *Service) Complete(ctx context.Context, id int64) error {
	return s.transition(ctx, id, StatusCompleted)
}

// Cancel aborts the order from any non-terminal state. Quantities already
// received stay on the ledger.
func (s *Service) Cancel(ctx context.Context, id int64) error {
	return s.transition(ctx, id, StatusCancelled)
}

func (s *Service) transition(ctx context.Context, id int64, to Status) error {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !CanTransition(order.Status, to) {
		s.metrics.TransitionDenied("purchase")
		return fmt.Errorf("%w: %s -> %s", shared.ErrInvalidTransition, order.Status, to)
	}
	return s.repo.UpdateStatus(ctx, id, order.Status, to)
}
