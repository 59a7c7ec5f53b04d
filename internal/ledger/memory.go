package ledger

import (
	"context"
	"sync"
	"time"
)

type levelKey struct {
	warehouseID int64
	kind        ItemKind
	itemID      int64
}

// MemoryRepository is an in-memory RepositoryPort used by tests.
type MemoryRepository struct {
	mu        sync.Mutex
	levels    map[levelKey]int64
	movements []Movement
}

// NewMemoryRepository constructs an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{levels: map[levelKey]int64{}}
}

// Seed sets a stock level directly, bypassing the movement trail.
func (r *MemoryRepository) Seed(warehouseID int64, kind ItemKind, itemID, qty int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.levels[levelKey{warehouseID, kind, itemID}] = qty
}

// WithTx runs fn directly; the fake has no transactional isolation.
func (r *MemoryRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (r *MemoryRepository) GetQty(_ context.Context, warehouseID int64, kind ItemKind, itemID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.levels[levelKey{warehouseID, kind, itemID}], nil
}

func (r *MemoryRepository) ListByWarehouse(_ context.Context, warehouseID int64) ([]StockLevel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []StockLevel
	for k, qty := range r.levels {
		if k.warehouseID == warehouseID {
			out = append(out, StockLevel{WarehouseID: k.warehouseID, ItemKind: k.kind, ItemID: k.itemID, Qty: qty})
		}
	}
	return out, nil
}

func (r *MemoryRepository) AddQty(_ context.Context, warehouseID int64, kind ItemKind, itemID, qty int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.levels[levelKey{warehouseID, kind, itemID}] += qty
	return nil
}

func (r *MemoryRepository) TryDeduct(_ context.Context, warehouseID int64, kind ItemKind, itemID, qty int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := levelKey{warehouseID, kind, itemID}
	if r.levels[key] < qty {
		return false, nil
	}
	r.levels[key] -= qty
	return true, nil
}

func (r *MemoryRepository) InsertMovement(_ context.Context, m Movement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m.ID = int64(len(r.movements) + 1)
	if m.At.IsZero() {
		m.At = time.Now().UTC()
	}
	r.movements = append(r.movements, m)
	return nil
}

func (r *MemoryRepository) ListMovements(_ context.Context, warehouseID int64, limit int) ([]Movement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Movement
	for i := len(r.movements) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if r.movements[i].WarehouseID == warehouseID {
			out = append(out, r.movements[i])
		}
	}
	return out, nil
}

// MovementCount returns how many movements have been recorded.
func (r *MemoryRepository) MovementCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.movements)
}
