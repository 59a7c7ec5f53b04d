package production

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lumenfab/lumenfab/internal/observability"
	"github.com/lumenfab/lumenfab/internal/shared"
)

// SalesPort notifies the sales side of lifecycle events on orders that were
// created for a sales order.
type SalesPort interface {
	OnProductionEvent(ctx context.Context, salesOrderID int64, evt Event) error
}

// BOMPort resolves the materials one run consumes.
type BOMPort interface {
	Requirements(ctx context.Context, finishedGoodID, qty int64) ([]MaterialRequirement, error)
}

// StockPort moves quantities through the stock ledger. Implementations join
// the surrounding transaction.
type StockPort interface {
	IssueMaterials(ctx context.Context, warehouseID int64, items []MaterialRequirement, productionOrderID int64) error
	ReceiveOutput(ctx context.Context, warehouseID, finishedGoodID, qty, productionOrderID int64) error
	ShipOutput(ctx context.Context, warehouseID, finishedGoodID, qty, batchID int64) error
}

// Service provides business logic for production orders.
type Service struct {
	repo    RepositoryPort
	bom     BOMPort
	stock   StockPort
	sales   SalesPort
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewService constructs a production service. The sales port is attached
// afterwards via SetSalesPort because the two modules reference each other.
func NewService(repo RepositoryPort, bomPort BOMPort, stock StockPort, metrics *observability.Metrics, logger *slog.Logger) *Service {
	return &Service{repo: repo, bom: bomPort, stock: stock, metrics: metrics, logger: logger}
}

// SetSalesPort wires the sales notification port.
func (s *Service) SetSalesPort(sales SalesPort) {
	s.sales = sales
}

// Create opens a new production order in PENDING.
func (s *Service) Create(ctx context.Context, req CreateRequest) (ProductionOrder, error) {
	if req.Type != MakeToOrder && req.Type != MakeToStock {
		return ProductionOrder{}, fmt.Errorf("%w: unknown order type %q", shared.ErrPreconditionFailed, req.Type)
	}
	if req.Type == MakeToOrder && req.SalesOrderID == nil {
		return ProductionOrder{}, fmt.Errorf("%w: make-to-order runs need a sales order", shared.ErrPreconditionFailed)
	}

	var order ProductionOrder
	err := s.repo.WithTx(ctx, func(ctx context.Context) error {
		number, err := s.repo.NextNumber(ctx)
		if err != nil {
			return err
		}
		order = ProductionOrder{
			Number:         number,
			Type:           req.Type,
			SalesOrderID:   req.SalesOrderID,
			FinishedGoodID: req.FinishedGoodID,
			Qty:            req.Qty,
			WarehouseID:    req.WarehouseID,
			Status:         StatusPending,
			Sector:         req.Sector,
		}
		id, err := s.repo.Insert(ctx, order)
		if err != nil {
			return err
		}
		order.ID = id
		return nil
	})
	if err != nil {
		return ProductionOrder{}, err
	}
	s.metrics.OrderCreated("production")
	return order, nil
}

// CreateForSales opens one make-to-order run backing a sales order line.
func (s *Service) CreateForSales(ctx context.Context, salesOrderID, finishedGoodID, qty, warehouseID int64) (ProductionOrder, error) {
	return s.Create(ctx, CreateRequest{
		Type:           MakeToOrder,
		SalesOrderID:   &salesOrderID,
		FinishedGoodID: finishedGoodID,
		Qty:            qty,
		WarehouseID:    warehouseID,
	})
}

func (s *Service) Get(ctx context.Context, id int64) (ProductionOrder, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, status Status) ([]ProductionOrder, error) {
	return s.repo.List(ctx, status)
}

// HasOpenStockRun reports whether a make-to-stock run for the good is still
// in flight. The replenishment scan uses it to avoid stacking duplicates.
func (s *Service) HasOpenStockRun(ctx context.Context, finishedGoodID int64) (bool, error) {
	n, err := s.repo.CountOpenStockRuns(ctx, finishedGoodID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Plan assigns the sector and schedule, moving the order to PLANNED.
func (s *Service) Plan(ctx context.Context, id int64, req PlanRequest) (ProductionOrder, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return ProductionOrder{}, err
	}
	if !CanTransition(order.Status, StatusPlanned) {
		s.metrics.TransitionDenied("production")
		return ProductionOrder{}, fmt.Errorf("%w: %s -> %s", shared.ErrInvalidTransition, order.Status, StatusPlanned)
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.SetPlan(ctx, id, req.Sector, req.PlannedStart, req.PlannedEnd); err != nil {
			return err
		}
		return s.repo.UpdateStatus(ctx, id, order.Status, StatusPlanned)
	})
	if err != nil {
		return ProductionOrder{}, err
	}
	return s.repo.Get(ctx, id)
}

// RequestMaterials asks the warehouse for the run's raw materials. The run
// must already have a sector assigned.
func (s *Service) RequestMaterials(ctx context.Context, id int64) (ProductionOrder, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return ProductionOrder{}, err
	}
	if order.Sector == "" {
		return ProductionOrder{}, fmt.Errorf("%w: sector must be assigned before requesting materials", shared.ErrPreconditionFailed)
	}
	return s.step(ctx, id, StatusMaterialsRequested, EventMaterialsRequested, nil)
}

// DispatchMaterials issues the BOM-resolved quantities from the warehouse
// and hands them to the run. A missing recipe or any uncovered material
// aborts the whole dispatch.
func (s *Service) DispatchMaterials(ctx context.Context, id int64) (ProductionOrder, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return ProductionOrder{}, err
	}
	if order.Status != StatusMaterialsRequested {
		s.metrics.TransitionDenied("production")
		return ProductionOrder{}, fmt.Errorf("%w: materials can only be dispatched while %s, order is %s",
			shared.ErrInvalidTransition, StatusMaterialsRequested, order.Status)
	}

	requirements, err := s.bom.Requirements(ctx, order.FinishedGoodID, order.Qty)
	if err != nil {
		return ProductionOrder{}, err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context) error {
		if err := s.stock.IssueMaterials(ctx, order.WarehouseID, requirements, order.ID); err != nil {
			return err
		}
		return s.repo.UpdateStatus(ctx, id, StatusMaterialsRequested, StatusMaterialsReceived)
	})
	if err != nil {
		return ProductionOrder{}, err
	}
	return s.repo.Get(ctx, id)
}

// Start begins the run and stamps the actual start time.
func (s *Service) Start(ctx context.Context, id int64) (ProductionOrder, error) {
	now := time.Now().UTC()
	return s.step(ctx, id, StatusProductionStarted, EventStarted, func(ctx context.Context) error {
		return s.repo.SetActualStart(ctx, id, now)
	})
}

// MarkInProgress records that the run is actively producing.
func (s *Service) MarkInProgress(ctx context.Context, id int64) (ProductionOrder, error) {
	return s.step(ctx, id, StatusInProgress, "", nil)
}

// Pause halts the run, remembering where to resume.
func (s *Service) Pause(ctx context.Context, id int64) (ProductionOrder, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return ProductionOrder{}, err
	}
	if !CanTransition(order.Status, StatusPaused) {
		s.metrics.TransitionDenied("production")
		return ProductionOrder{}, fmt.Errorf("%w: %s -> %s", shared.ErrInvalidTransition, order.Status, StatusPaused)
	}
	resume := order.Status
	err = s.repo.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.SetResumeStatus(ctx, id, &resume); err != nil {
			return err
		}
		return s.repo.UpdateStatus(ctx, id, order.Status, StatusPaused)
	})
	if err != nil {
		return ProductionOrder{}, err
	}
	return s.repo.Get(ctx, id)
}

// Resume returns a paused run to the state it was in when paused.
func (s *Service) Resume(ctx context.Context, id int64) (ProductionOrder, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return ProductionOrder{}, err
	}
	if order.Status != StatusPaused {
		s.metrics.TransitionDenied("production")
		return ProductionOrder{}, fmt.Errorf("%w: only paused runs can resume, order is %s", shared.ErrInvalidTransition, order.Status)
	}
	target := StatusProductionStarted
	if order.ResumeStatus != nil {
		target = *order.ResumeStatus
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.SetResumeStatus(ctx, id, nil); err != nil {
			return err
		}
		return s.repo.UpdateStatus(ctx, id, StatusPaused, target)
	})
	if err != nil {
		return ProductionOrder{}, err
	}
	return s.repo.Get(ctx, id)
}

// ReportProblem records a problem on the run and alerts the sales side. The
// run keeps its state; production decides separately whether to pause.
func (s *Service) ReportProblem(ctx context.Context, id int64, req ProblemRequest) (ProductionOrder, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return ProductionOrder{}, err
	}
	if order.Status.Terminal() {
		return ProductionOrder{}, fmt.Errorf("%w: order %s is %s", shared.ErrInvalidTransition, order.Number, order.Status)
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.SetProblemNote(ctx, id, req.Note); err != nil {
			return err
		}
		return s.notify(ctx, order, EventProblemReported)
	})
	if err != nil {
		return ProductionOrder{}, err
	}
	return s.repo.Get(ctx, id)
}

// Complete finishes the run: output lands in the ledger and an unshipped
// batch is created. Completing an already completed run is a no-op, so a
// retried request cannot double-book output.
func (s *Service) Complete(ctx context.Context, id int64) (ProductionOrder, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return ProductionOrder{}, err
	}
	if order.Status == StatusCompleted {
		return order, nil
	}
	if !CanTransition(order.Status, StatusCompleted) {
		s.metrics.TransitionDenied("production")
		return ProductionOrder{}, fmt.Errorf("%w: %s -> %s", shared.ErrInvalidTransition, order.Status, StatusCompleted)
	}

	now := time.Now().UTC()
	err = s.repo.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.UpdateStatus(ctx, id, order.Status, StatusCompleted); err != nil {
			return err
		}
		if err := s.repo.SetActualEnd(ctx, id, now); err != nil {
			return err
		}
		if err := s.stock.ReceiveOutput(ctx, order.WarehouseID, order.FinishedGoodID, order.Qty, order.ID); err != nil {
			return err
		}
		if _, err := s.repo.InsertBatch(ctx, Batch{
			ProductionOrderID: order.ID,
			FinishedGoodID:    order.FinishedGoodID,
			WarehouseID:       order.WarehouseID,
			Qty:               order.Qty,
		}); err != nil {
			return err
		}
		return s.notify(ctx, order, EventCompleted)
	})
	if err != nil {
		return ProductionOrder{}, err
	}
	return s.repo.Get(ctx, id)
}

// Cancel aborts the run and tells the sales side.
func (s *Service) Cancel(ctx context.Context, id int64) (ProductionOrder, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return ProductionOrder{}, err
	}
	if err := s.cancel(ctx, order, true); err != nil {
		return ProductionOrder{}, err
	}
	return s.repo.Get(ctx, id)
}

// CancelOpenBySalesOrder aborts every run of a sales order that has not
// finished. Completed runs are left alone; their output already exists.
func (s *Service) CancelOpenBySalesOrder(ctx context.Context, salesOrderID int64) error {
	open, err := s.repo.ListOpenBySalesOrder(ctx, salesOrderID)
	if err != nil {
		return err
	}
	return s.repo.WithTx(ctx, func(ctx context.Context) error {
		for _, order := range open {
			if err := s.cancel(ctx, order, false); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Service) cancel(ctx context.Context, order ProductionOrder, notifySales bool) error {
	if !CanTransition(order.Status, StatusCancelled) {
		s.metrics.TransitionDenied("production")
		return fmt.Errorf("%w: %s -> %s", shared.ErrInvalidTransition, order.Status, StatusCancelled)
	}
	return s.repo.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.UpdateStatus(ctx, order.ID, order.Status, StatusCancelled); err != nil {
			return err
		}
		if notifySales {
			return s.notify(ctx, order, EventCancelled)
		}
		return nil
	})
}

// StatusSummary counts the runs attached to one sales order.
func (s *Service) StatusSummary(ctx context.Context, salesOrderID int64) (StatusSummary, error) {
	return s.repo.StatusSummary(ctx, salesOrderID)
}

// ListBatches lists output batches, optionally only shipped ones.
func (s *Service) ListBatches(ctx context.Context, shippedOnly bool) ([]Batch, error) {
	return s.repo.ListBatches(ctx, shippedOnly)
}

// MarkBatchShipped ships a batch out of its warehouse. A batch ships at most
// once.
func (s *Service) MarkBatchShipped(ctx context.Context, batchID int64) (Batch, error) {
	batch, err := s.repo.GetBatch(ctx, batchID)
	if err != nil {
		return Batch{}, err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context) error {
		ok, err := s.repo.MarkBatchShipped(ctx, batchID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: batch %d already shipped", shared.ErrIntegrityConflict, batchID)
		}
		return s.stock.ShipOutput(ctx, batch.WarehouseID, batch.FinishedGoodID, batch.Qty, batchID)
	})
	if err != nil {
		return Batch{}, err
	}
	return s.repo.GetBatch(ctx, batchID)
}

// step performs a plain table transition, runs extra inside the same
// transaction and emits evt when set.
func (s *Service) step(ctx context.Context, id int64, to Status, evt Event, extra func(ctx context.Context) error) (ProductionOrder, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return ProductionOrder{}, err
	}
	if !CanTransition(order.Status, to) {
		s.metrics.TransitionDenied("production")
		return ProductionOrder{}, fmt.Errorf("%w: %s -> %s", shared.ErrInvalidTransition, order.Status, to)
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.UpdateStatus(ctx, id, order.Status, to); err != nil {
			return err
		}
		if extra != nil {
			if err := extra(ctx); err != nil {
				return err
			}
		}
		if evt != "" {
			return s.notify(ctx, order, evt)
		}
		return nil
	})
	if err != nil {
		return ProductionOrder{}, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) notify(ctx context.Context, order ProductionOrder, evt Event) error {
	if order.SalesOrderID == nil || s.sales == nil {
		return nil
	}
	if err := s.sales.OnProductionEvent(ctx, *order.SalesOrderID, evt); err != nil {
		return fmt.Errorf("notify sales order %d: %w", *order.SalesOrderID, err)
	}
	return nil
}
