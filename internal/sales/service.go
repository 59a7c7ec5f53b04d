package sales

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lumenfab/lumenfab/internal/observability"
	"github.com/lumenfab/lumenfab/internal/shared"
)

// ProductionPort drives the manufacturing runs that fulfil a sales order.
type ProductionPort interface {
	CreateForSales(ctx context.Context, salesOrderID, finishedGoodID, qty, warehouseID int64) error
	CancelOpenBySalesOrder(ctx context.Context, salesOrderID int64) error
	StatusSummary(ctx context.Context, salesOrderID int64) (ProductionSummary, error)
}

// CatalogPort resolves finished good prices at order time.
type CatalogPort interface {
	GoodPrice(ctx context.Context, finishedGoodID int64) (decimal.Decimal, error)
}

// Service provides business logic for sales orders.
type Service struct {
	repo       RepositoryPort
	production ProductionPort
	catalog    CatalogPort
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewService constructs a sales service. Metrics may be nil.
func NewService(repo RepositoryPort, production ProductionPort, catalog CatalogPort, metrics *observability.Metrics, logger *slog.Logger) *Service {
	return &Service{repo: repo, production: production, catalog: catalog, metrics: metrics, logger: logger}
}

// Create opens a PENDING order with prices captured from the catalog and
// fans out one make-to-order production run per line. FromStock lines open no
// run. Order, lines and runs commit together; the order stays PENDING until
// explicitly confirmed.
func (s *Service) Create(ctx context.Context, req CreateRequest) (SalesOrder, error) {
	lines := make([]Line, 0, len(req.Lines))
	for _, l := range req.Lines {
		price, err := s.catalog.GoodPrice(ctx, l.FinishedGoodID)
		if err != nil {
			return SalesOrder{}, fmt.Errorf("resolve price for finished good %d: %w", l.FinishedGoodID, err)
		}
		lines = append(lines, Line{FinishedGoodID: l.FinishedGoodID, Qty: l.Qty, UnitPrice: price})
	}

	var order SalesOrder
	err := s.repo.WithTx(ctx, func(ctx context.Context) error {
		number, err := s.repo.NextNumber(ctx)
		if err != nil {
			return err
		}
		order = SalesOrder{
			Number:      number,
			CustomerID:  req.CustomerID,
			WarehouseID: req.WarehouseID,
			Status:      StatusPending,
			Notes:       req.Notes,
		}
		id, err := s.repo.Insert(ctx, order)
		if err != nil {
			return err
		}
		order.ID = id
		runs := 0
		for i, l := range lines {
			lineID, err := s.repo.InsertLine(ctx, id, l)
			if err != nil {
				return err
			}
			lines[i].ID = lineID
			if req.Lines[i].FromStock {
				continue
			}
			if err := s.production.CreateForSales(ctx, id, l.FinishedGoodID, l.Qty, req.WarehouseID); err != nil {
				return fmt.Errorf("open production for finished good %d: %w", l.FinishedGoodID, err)
			}
			runs++
		}
		order.Lines = lines
		return s.history(ctx, id, "created", fmt.Sprintf("order %s created with %d lines, %d production runs", number, len(lines), runs))
	})
	if err != nil {
		return SalesOrder{}, err
	}
	s.metrics.OrderCreated("sales")
	return order, nil
}

func (s *Service) Get(ctx context.Context, id int64) (SalesOrder, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, status Status) ([]SalesOrder, error) {
	return s.repo.List(ctx, status)
}

func (s *Service) History(ctx context.Context, id int64) ([]HistoryEvent, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListHistory(ctx, id)
}

// Confirm accepts a pending order. Production runs already exist from
// placement; confirmation is the customer's go-ahead.
func (s *Service) Confirm(ctx context.Context, id int64) (SalesOrder, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return SalesOrder{}, err
	}
	if order.Status != StatusPending {
		s.metrics.TransitionDenied("sales")
		return SalesOrder{}, fmt.Errorf("%w: only pending orders can be confirmed, order is %s", shared.ErrInvalidTransition, order.Status)
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.UpdateStatus(ctx, id, StatusPending, StatusConfirmed); err != nil {
			return err
		}
		return s.history(ctx, id, "confirmed", "order confirmed")
	})
	if err != nil {
		return SalesOrder{}, err
	}
	return s.repo.Get(ctx, id)
}

// Cancel aborts the order and every open production run behind it.
func (s *Service) Cancel(ctx context.Context, id int64) (SalesOrder, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return SalesOrder{}, err
	}
	if !order.Status.Cancellable() {
		s.metrics.TransitionDenied("sales")
		return SalesOrder{}, fmt.Errorf("%w: %s orders cannot be cancelled", shared.ErrInvalidTransition, order.Status)
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context) error {
		if err := s.production.CancelOpenBySalesOrder(ctx, id); err != nil {
			return err
		}
		if err := s.repo.UpdateStatus(ctx, id, order.Status, StatusCancelled); err != nil {
			return err
		}
		return s.history(ctx, id, "cancelled", "order cancelled, open production runs aborted")
	})
	if err != nil {
		return SalesOrder{}, err
	}
	return s.repo.Get(ctx, id)
}

// OnProductionEvent folds one production notification into the order status.
// Forward-only: an event that would move the order backwards is recorded in
// the history but changes nothing.
func (s *Service) OnProductionEvent(ctx context.Context, salesOrderID int64, evt ProductionEvent) error {
	order, err := s.repo.Get(ctx, salesOrderID)
	if err != nil {
		return err
	}
	if order.Status.Terminal() {
		return nil
	}

	next := order.Status
	switch evt {
	case EventMaterialsRequested:
		next = StatusMaterialsRequested
	case EventStarted:
		next = StatusProductionStarted
	case EventProblemReported:
		next = StatusProductionWithIssues
	case EventCompleted, EventCancelled:
		summary, err := s.production.StatusSummary(ctx, salesOrderID)
		if err != nil {
			return err
		}
		next = aggregate(order.Status, summary)
	default:
		return fmt.Errorf("%w: unknown production event %q", shared.ErrPreconditionFailed, evt)
	}

	return s.repo.WithTx(ctx, func(ctx context.Context) error {
		if err := s.history(ctx, salesOrderID, "production_event", string(evt)); err != nil {
			return err
		}
		if next == order.Status {
			return nil
		}
		if next == StatusCancelled {
			if err := s.repo.UpdateStatus(ctx, salesOrderID, order.Status, StatusCancelled); err != nil {
				return err
			}
			return s.history(ctx, salesOrderID, "cancelled", "every production run was cancelled")
		}
		if !Advances(order.Status, next) {
			return nil
		}
		if err := s.repo.UpdateStatus(ctx, salesOrderID, order.Status, next); err != nil {
			return err
		}
		return s.history(ctx, salesOrderID, "status", fmt.Sprintf("%s -> %s", order.Status, next))
	})
}

// aggregate applies the readiness law: an order is ready for delivery once
// no run remains open, at least one completed, and the rest are cancelled.
// When every run was cancelled the order itself is cancelled.
func aggregate(current Status, summary ProductionSummary) Status {
	if summary.Total == 0 || summary.Open() > 0 {
		return current
	}
	if summary.Completed > 0 {
		return StatusReadyForDelivery
	}
	return StatusCancelled
}

// ConfirmDelivery closes a ready order after the goods left the building.
// Completion never happens implicitly.
func (s *Service) ConfirmDelivery(ctx context.Context, id int64) (SalesOrder, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return SalesOrder{}, err
	}
	if order.Status != StatusReadyForDelivery {
		s.metrics.TransitionDenied("sales")
		return SalesOrder{}, fmt.Errorf("%w: only ready orders can be delivered, order is %s", shared.ErrInvalidTransition, order.Status)
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.UpdateStatus(ctx, id, StatusReadyForDelivery, StatusCompleted); err != nil {
			return err
		}
		return s.history(ctx, id, "delivered", "delivery confirmed, order completed")
	})
	if err != nil {
		return SalesOrder{}, err
	}
	return s.repo.Get(ctx, id)
}

// IssueInvoice bills the order. Allowed once the goods are ready, or
// immediately after confirmation when no production backs the order. At most
// one invoice ever exists per order.
func (s *Service) IssueInvoice(ctx context.Context, id int64) (Invoice, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return Invoice{}, err
	}

	if _, err := s.repo.GetInvoice(ctx, id); err == nil {
		return Invoice{}, fmt.Errorf("%w: sales order %s already invoiced", shared.ErrIntegrityConflict, order.Number)
	} else if !errors.Is(err, shared.ErrNotFound) {
		return Invoice{}, err
	}

	switch order.Status {
	case StatusReadyForDelivery, StatusCompleted:
	case StatusConfirmed:
		summary, err := s.production.StatusSummary(ctx, id)
		if err != nil {
			return Invoice{}, err
		}
		if summary.Total > 0 {
			return Invoice{}, fmt.Errorf("%w: order %s still has production runs open", shared.ErrPreconditionFailed, order.Number)
		}
	default:
		return Invoice{}, fmt.Errorf("%w: order %s is %s, not invoiceable", shared.ErrPreconditionFailed, order.Number, order.Status)
	}

	var inv Invoice
	err = s.repo.WithTx(ctx, func(ctx context.Context) error {
		number, err := s.repo.NextInvoiceNumber(ctx)
		if err != nil {
			return err
		}
		inv = Invoice{
			Number:       number,
			SalesOrderID: id,
			Total:        order.Total(),
			IssuedAt:     time.Now().UTC(),
		}
		invID, err := s.repo.InsertInvoice(ctx, inv)
		if err != nil {
			return err
		}
		inv.ID = invID
		return s.history(ctx, id, "invoiced", fmt.Sprintf("invoice %s issued", number))
	})
	if err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

// Invoice returns the invoice issued for an order.
func (s *Service) Invoice(ctx context.Context, id int64) (Invoice, error) {
	return s.repo.GetInvoice(ctx, id)
}

func (s *Service) history(ctx context.Context, orderID int64, kind, description string) error {
	return s.repo.InsertHistory(ctx, HistoryEvent{
		SalesOrderID: orderID,
		Kind:         kind,
		Description:  description,
		At:           time.Now().UTC(),
	})
}
