package production

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lumenfab/lumenfab/internal/shared"
)

// MemoryRepository is an in-memory RepositoryPort used by tests.
type MemoryRepository struct {
	mu        sync.Mutex
	orders    map[int64]ProductionOrder
	batches   map[int64]Batch
	nextID    int64
	nextBatch int64
	counter   int64
}

// NewMemoryRepository constructs an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		orders:  map[int64]ProductionOrder{},
		batches: map[int64]Batch{},
	}
}

func (r *MemoryRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (r *MemoryRepository) NextNumber(context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counter++
	return fmt.Sprintf("MO-%05d", r.counter), nil
}

func (r *MemoryRepository) Insert(_ context.Context, o ProductionOrder) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	o.ID = r.nextID
	o.CreatedAt = time.Now().UTC()
	o.UpdatedAt = o.CreatedAt
	r.orders[o.ID] = o
	return o.ID, nil
}

func (r *MemoryRepository) Get(_ context.Context, id int64) (ProductionOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return ProductionOrder{}, fmt.Errorf("%w: production order %d", shared.ErrNotFound, id)
	}
	return o, nil
}

func (r *MemoryRepository) List(_ context.Context, status Status) ([]ProductionOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ProductionOrder
	for id := r.nextID; id >= 1; id-- {
		o, ok := r.orders[id]
		if ok && (status == "" || o.Status == status) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *MemoryRepository) CountOpenStockRuns(_ context.Context, finishedGoodID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id := int64(1); id <= r.nextID; id++ {
		o, ok := r.orders[id]
		if !ok || o.Type != MakeToStock || o.FinishedGoodID != finishedGoodID {
			continue
		}
		if o.Status == StatusCompleted || o.Status == StatusCancelled {
			continue
		}
		n++
	}
	return n, nil
}

func (r *MemoryRepository) ListOpenBySalesOrder(_ context.Context, salesOrderID int64) ([]ProductionOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ProductionOrder
	for id := int64(1); id <= r.nextID; id++ {
		o, ok := r.orders[id]
		if !ok || o.SalesOrderID == nil || *o.SalesOrderID != salesOrderID {
			continue
		}
		if o.Status == StatusCompleted || o.Status == StatusCancelled {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (r *MemoryRepository) UpdateStatus(_ context.Context, id int64, from, to Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.Status != from {
		return fmt.Errorf("%w: production order %d is no longer %s", shared.ErrInvalidTransition, id, from)
	}
	o.Status = to
	o.UpdatedAt = time.Now().UTC()
	r.orders[id] = o
	return nil
}

func (r *MemoryRepository) SetResumeStatus(_ context.Context, id int64, resume *Status) error {
	return r.update(id, func(o *ProductionOrder) { o.ResumeStatus = resume })
}

func (r *MemoryRepository) SetPlan(_ context.Context, id int64, sector string, plannedStart, plannedEnd *time.Time) error {
	return r.update(id, func(o *ProductionOrder) {
		o.Sector = sector
		o.PlannedStart = plannedStart
		o.PlannedEnd = plannedEnd
	})
}

func (r *MemoryRepository) SetActualStart(_ context.Context, id int64, at time.Time) error {
	return r.update(id, func(o *ProductionOrder) { o.ActualStart = &at })
}

func (r *MemoryRepository) SetActualEnd(_ context.Context, id int64, at time.Time) error {
	return r.update(id, func(o *ProductionOrder) { o.ActualEnd = &at })
}

func (r *MemoryRepository) SetProblemNote(_ context.Context, id int64, note string) error {
	return r.update(id, func(o *ProductionOrder) { o.ProblemNote = note })
}

func (r *MemoryRepository) update(id int64, fn func(*ProductionOrder)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return fmt.Errorf("%w: production order %d", shared.ErrNotFound, id)
	}
	fn(&o)
	o.UpdatedAt = time.Now().UTC()
	r.orders[id] = o
	return nil
}

func (r *MemoryRepository) StatusSummary(_ context.Context, salesOrderID int64) (StatusSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var s StatusSummary
	for _, o := range r.orders {
		if o.SalesOrderID == nil || *o.SalesOrderID != salesOrderID {
			continue
		}
		s.Total++
		switch o.Status {
		case StatusCompleted:
			s.Completed++
		case StatusCancelled:
			s.Cancelled++
		}
	}
	return s, nil
}

func (r *MemoryRepository) InsertBatch(_ context.Context, b Batch) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextBatch++
	b.ID = r.nextBatch
	b.Shipped = false
	b.CreatedAt = time.Now().UTC()
	r.batches[b.ID] = b
	return b.ID, nil
}

func (r *MemoryRepository) GetBatch(_ context.Context, id int64) (Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.batches[id]
	if !ok {
		return Batch{}, fmt.Errorf("%w: batch %d", shared.ErrNotFound, id)
	}
	return b, nil
}

func (r *MemoryRepository) ListBatches(_ context.Context, shippedOnly bool) ([]Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Batch
	for id := r.nextBatch; id >= 1; id-- {
		b, ok := r.batches[id]
		if ok && (!shippedOnly || b.Shipped) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *MemoryRepository) MarkBatchShipped(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.batches[id]
	if !ok {
		return false, fmt.Errorf("%w: batch %d", shared.ErrNotFound, id)
	}
	if b.Shipped {
		return false, nil
	}
	b.Shipped = true
	r.batches[id] = b
	return true, nil
}
