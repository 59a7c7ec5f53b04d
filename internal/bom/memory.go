package bom

import (
	"context"
	"sync"
)

// MemoryRepository is an in-memory RepositoryPort used by tests.
type MemoryRepository struct {
	mu    sync.Mutex
	lines map[int64][]Line
}

// NewMemoryRepository constructs an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{lines: map[int64][]Line{}}
}

func (r *MemoryRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (r *MemoryRepository) GetLines(_ context.Context, finishedGoodID int64) ([]Line, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Line(nil), r.lines[finishedGoodID]...), nil
}

func (r *MemoryRepository) ReplaceLines(_ context.Context, finishedGoodID int64, lines []Line) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines[finishedGoodID] = append([]Line(nil), lines...)
	return nil
}
