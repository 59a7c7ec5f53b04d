package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lumenfab/lumenfab/internal/observability"
	"github.com/lumenfab/lumenfab/internal/platform/cache"
	"github.com/lumenfab/lumenfab/internal/shared"
)

// Service provides the atomic stock operations every order flow relies on.
type Service struct {
	repo    RepositoryPort
	cache   *cache.StockCache
	metrics *observability.Metrics
}

// NewService constructs a ledger service. Cache and metrics may be nil.
func NewService(repo RepositoryPort, stockCache *cache.StockCache, metrics *observability.Metrics) *Service {
	return &Service{repo: repo, cache: stockCache, metrics: metrics}
}

// OnHand returns the current quantity, consulting the cache before the
// database.
func (s *Service) OnHand(ctx context.Context, warehouseID int64, kind ItemKind, itemID int64) (int64, error) {
	if s.cache != nil {
		if qty, ok := s.cache.Get(ctx, warehouseID, string(kind), itemID); ok {
			return qty, nil
		}
	}
	qty, err := s.repo.GetQty(ctx, warehouseID, kind, itemID)
	if err != nil {
		return 0, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, warehouseID, string(kind), itemID, qty)
	}
	return qty, nil
}

// Levels lists every stock level held in one warehouse.
func (s *Service) Levels(ctx context.Context, warehouseID int64) ([]StockLevel, error) {
	return s.repo.ListByWarehouse(ctx, warehouseID)
}

// Movements lists the most recent movements in one warehouse.
func (s *Service) Movements(ctx context.Context, warehouseID int64, limit int) ([]Movement, error) {
	return s.repo.ListMovements(ctx, warehouseID, limit)
}

// Increase adds qty units and records the movement.
func (s *Service) Increase(ctx context.Context, warehouseID int64, kind ItemKind, itemID, qty int64, reason MovementReason, ref Ref) error {
	if qty <= 0 {
		return fmt.Errorf("%w: increase quantity must be positive", shared.ErrPreconditionFailed)
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.AddQty(ctx, warehouseID, kind, itemID, qty); err != nil {
			return err
		}
		return s.repo.InsertMovement(ctx, s.movement(warehouseID, kind, itemID, qty, reason, ref))
	})
	if err != nil {
		return err
	}
	s.afterWrite(ctx, warehouseID, kind, itemID, "in")
	return nil
}

// Decrease removes qty units, failing with a StockShortage when the
// warehouse does not hold enough.
func (s *Service) Decrease(ctx context.Context, warehouseID int64, kind ItemKind, itemID, qty int64, reason MovementReason, ref Ref) error {
	if qty <= 0 {
		return fmt.Errorf("%w: decrease quantity must be positive", shared.ErrPreconditionFailed)
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context) error {
		ok, err := s.repo.TryDeduct(ctx, warehouseID, kind, itemID, qty)
		if err != nil {
			return err
		}
		if !ok {
			return s.shortage(ctx, warehouseID, kind, []ItemQty{{ItemID: itemID, Qty: qty}})
		}
		return s.repo.InsertMovement(ctx, s.movement(warehouseID, kind, itemID, -qty, reason, ref))
	})
	if err != nil {
		s.noteShortage(err)
		return err
	}
	s.afterWrite(ctx, warehouseID, kind, itemID, "out")
	return nil
}

// DecreaseBatch removes every requested quantity or none of them. When stock
// is missing it reports all shortfalls, not only the first one found.
func (s *Service) DecreaseBatch(ctx context.Context, warehouseID int64, kind ItemKind, items []ItemQty, reason MovementReason, ref Ref) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: empty batch", shared.ErrPreconditionFailed)
	}
	for _, it := range items {
		if it.Qty <= 0 {
			return fmt.Errorf("%w: decrease quantity must be positive", shared.ErrPreconditionFailed)
		}
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context) error {
		if err := s.shortage(ctx, warehouseID, kind, items); err != nil {
			return err
		}
		for _, it := range items {
			ok, err := s.repo.TryDeduct(ctx, warehouseID, kind, it.ItemID, it.Qty)
			if err != nil {
				return err
			}
			if !ok {
				// Lost a race since the pre-check; the rollback undoes
				// the deductions already applied.
				return s.shortage(ctx, warehouseID, kind, []ItemQty{it})
			}
			if err := s.repo.InsertMovement(ctx, s.movement(warehouseID, kind, it.ItemID, -it.Qty, reason, ref)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.noteShortage(err)
		return err
	}
	for _, it := range items {
		s.afterWrite(ctx, warehouseID, kind, it.ItemID, "out")
	}
	return nil
}

// Transfer moves qty units between two warehouses atomically.
func (s *Service) Transfer(ctx context.Context, req TransferRequest) error {
	if req.FromWarehouseID == req.ToWarehouseID {
		return fmt.Errorf("%w: transfer requires two distinct warehouses", shared.ErrPreconditionFailed)
	}
	ref := Ref{Type: "transfer", ID: req.FromWarehouseID}
	err := s.repo.WithTx(ctx, func(ctx context.Context) error {
		ok, err := s.repo.TryDeduct(ctx, req.FromWarehouseID, req.ItemKind, req.ItemID, req.Qty)
		if err != nil {
			return err
		}
		if !ok {
			return s.shortage(ctx, req.FromWarehouseID, req.ItemKind, []ItemQty{{ItemID: req.ItemID, Qty: req.Qty}})
		}
		if err := s.repo.AddQty(ctx, req.ToWarehouseID, req.ItemKind, req.ItemID, req.Qty); err != nil {
			return err
		}
		if err := s.repo.InsertMovement(ctx, s.movement(req.FromWarehouseID, req.ItemKind, req.ItemID, -req.Qty, ReasonTransferOut, ref)); err != nil {
			return err
		}
		return s.repo.InsertMovement(ctx, s.movement(req.ToWarehouseID, req.ItemKind, req.ItemID, req.Qty, ReasonTransferIn, ref))
	})
	if err != nil {
		s.noteShortage(err)
		return err
	}
	s.afterWrite(ctx, req.FromWarehouseID, req.ItemKind, req.ItemID, "transfer")
	s.afterWrite(ctx, req.ToWarehouseID, req.ItemKind, req.ItemID, "transfer")
	return nil
}

// shortage compares requested quantities against current levels and returns
// a StockShortage covering every uncovered line, or nil when all fit.
func (s *Service) shortage(ctx context.Context, warehouseID int64, kind ItemKind, items []ItemQty) error {
	var shortfalls []shared.Shortfall
	for _, it := range items {
		available, err := s.repo.GetQty(ctx, warehouseID, kind, it.ItemID)
		if err != nil {
			return err
		}
		if available < it.Qty {
			shortfalls = append(shortfalls, shared.Shortfall{
				MaterialID: it.ItemID,
				Required:   it.Qty,
				Available:  available,
			})
		}
	}
	if len(shortfalls) > 0 {
		return &shared.StockShortage{WarehouseID: warehouseID, Shortfalls: shortfalls}
	}
	return nil
}

func (s *Service) movement(warehouseID int64, kind ItemKind, itemID, qty int64, reason MovementReason, ref Ref) Movement {
	return Movement{
		Code:        uuid.New(),
		WarehouseID: warehouseID,
		ItemKind:    kind,
		ItemID:      itemID,
		Qty:         qty,
		Reason:      reason,
		RefType:     ref.Type,
		RefID:       ref.ID,
		At:          time.Now().UTC(),
	}
}

func (s *Service) afterWrite(ctx context.Context, warehouseID int64, kind ItemKind, itemID int64, direction string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, warehouseID, string(kind), itemID)
	}
	s.metrics.StockMovement(direction)
}

func (s *Service) noteShortage(err error) {
	if _, ok := shared.AsStockShortage(err); ok {
		s.metrics.StockShortage()
	}
}
