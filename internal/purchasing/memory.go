package purchasing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lumenfab/lumenfab/internal/shared"
)

// MemoryRepository is an in-memory RepositoryPort used by tests.
type MemoryRepository struct {
	mu       sync.Mutex
	orders   map[int64]PurchaseOrder
	lines    map[int64]map[int64]Line
	nextID   int64
	nextLine int64
	counter  int64
}

// NewMemoryRepository constructs an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		orders: map[int64]PurchaseOrder{},
		lines:  map[int64]map[int64]Line{},
	}
}

func (r *MemoryRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (r *MemoryRepository) NextNumber(context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counter++
	return fmt.Sprintf("PO-%05d", r.counter), nil
}

func (r *MemoryRepository) Insert(_ context.Context, o PurchaseOrder) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	o.ID = r.nextID
	o.CreatedAt = time.Now().UTC()
	o.UpdatedAt = o.CreatedAt
	o.Lines = nil
	r.orders[o.ID] = o
	r.lines[o.ID] = map[int64]Line{}
	return o.ID, nil
}

func (r *MemoryRepository) InsertLine(_ context.Context, orderID int64, l Line) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[orderID]; !ok {
		return 0, fmt.Errorf("%w: purchase order %d", shared.ErrNotFound, orderID)
	}
	r.nextLine++
	l.ID = r.nextLine
	r.lines[orderID][l.ID] = l
	return l.ID, nil
}

func (r *MemoryRepository) Get(_ context.Context, id int64) (PurchaseOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return PurchaseOrder{}, fmt.Errorf("%w: purchase order %d", shared.ErrNotFound, id)
	}
	o.Lines = r.sortedLines(id)
	return o, nil
}

func (r *MemoryRepository) sortedLines(orderID int64) []Line {
	var out []Line
	for id := int64(1); id <= r.nextLine; id++ {
		if l, ok := r.lines[orderID][id]; ok {
			out = append(out, l)
		}
	}
	return out
}

func (r *MemoryRepository) List(_ context.Context, status Status) ([]PurchaseOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []PurchaseOrder
	for id := r.nextID; id >= 1; id-- {
		o, ok := r.orders[id]
		if !ok || (status != "" && o.Status != status) {
			continue
		}
		o.Lines = r.sortedLines(id)
		out = append(out, o)
	}
	return out, nil
}

func (r *MemoryRepository) UpdateStatus(_ context.Context, id int64, from, to Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.Status != from {
		return fmt.Errorf("%w: purchase order %d is no longer %s", shared.ErrInvalidTransition, id, from)
	}
	o.Status = to
	o.UpdatedAt = time.Now().UTC()
	r.orders[id] = o
	return nil
}

func (r *MemoryRepository) SetTracking(_ context.Context, id int64, tracking string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return fmt.Errorf("%w: purchase order %d", shared.ErrNotFound, id)
	}
	o.TrackingNumber = &tracking
	r.orders[id] = o
	return nil
}

func (r *MemoryRepository) UpdateNotes(_ context.Context, id int64, notes string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return fmt.Errorf("%w: purchase order %d", shared.ErrNotFound, id)
	}
	o.Notes = notes
	r.orders[id] = o
	return nil
}

func (r *MemoryRepository) ReplaceLines(_ context.Context, orderID int64, lines []Line) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[orderID]; !ok {
		return fmt.Errorf("%w: purchase order %d", shared.ErrNotFound, orderID)
	}
	r.lines[orderID] = map[int64]Line{}
	for _, l := range lines {
		r.nextLine++
		l.ID = r.nextLine
		r.lines[orderID][l.ID] = l
	}
	return nil
}

func (r *MemoryRepository) AddReceived(_ context.Context, lineID, qty int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for orderID, lines := range r.lines {
		if l, ok := lines[lineID]; ok {
			if l.ReceivedQty+qty > l.Qty {
				return false, nil
			}
			l.ReceivedQty += qty
			r.lines[orderID][lineID] = l
			return true, nil
		}
	}
	return false, fmt.Errorf("%w: purchase order line %d", shared.ErrNotFound, lineID)
}
