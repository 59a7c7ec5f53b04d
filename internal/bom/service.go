package bom

import (
	"context"
	"fmt"
	"sort"

	"github.com/lumenfab/lumenfab/internal/shared"
)

// Service provides BOM maintenance and resolution.
type Service struct {
	repo RepositoryPort
}

// NewService constructs a bom service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Define replaces the recipe for a finished good. Duplicate materials in the
// request are merged before storage.
func (s *Service) Define(ctx context.Context, req DefineRequest) (BOM, error) {
	merged := map[int64]int64{}
	for _, l := range req.Lines {
		if l.QtyPerUnit <= 0 {
			return BOM{}, fmt.Errorf("%w: qty per unit must be positive", shared.ErrPreconditionFailed)
		}
		merged[l.MaterialID] += l.QtyPerUnit
	}
	lines := make([]Line, 0, len(merged))
	for id, qty := range merged {
		lines = append(lines, Line{MaterialID: id, QtyPerUnit: qty})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].MaterialID < lines[j].MaterialID })

	err := s.repo.WithTx(ctx, func(ctx context.Context) error {
		return s.repo.ReplaceLines(ctx, req.FinishedGoodID, lines)
	})
	if err != nil {
		return BOM{}, err
	}
	return BOM{FinishedGoodID: req.FinishedGoodID, Lines: lines}, nil
}

// Get returns the stored recipe, or ErrBomNotDefined when none exists.
func (s *Service) Get(ctx context.Context, finishedGoodID int64) (BOM, error) {
	lines, err := s.repo.GetLines(ctx, finishedGoodID)
	if err != nil {
		return BOM{}, err
	}
	if len(lines) == 0 {
		return BOM{}, fmt.Errorf("%w: finished good %d", shared.ErrBomNotDefined, finishedGoodID)
	}
	return BOM{FinishedGoodID: finishedGoodID, Lines: lines}, nil
}

// Resolve scales the recipe to orderQty units. A finished good without a
// recipe is a configuration error the caller must surface, never a silent
// empty requirement list.
func (s *Service) Resolve(ctx context.Context, finishedGoodID, orderQty int64) ([]Requirement, error) {
	if orderQty <= 0 {
		return nil, fmt.Errorf("%w: order quantity must be positive", shared.ErrPreconditionFailed)
	}
	b, err := s.Get(ctx, finishedGoodID)
	if err != nil {
		return nil, err
	}
	out := make([]Requirement, 0, len(b.Lines))
	for _, l := range b.Lines {
		out = append(out, Requirement{MaterialID: l.MaterialID, Qty: l.QtyPerUnit * orderQty})
	}
	return out, nil
}
