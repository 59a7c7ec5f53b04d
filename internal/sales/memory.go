package sales

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lumenfab/lumenfab/internal/shared"
)

// MemoryRepository is an in-memory RepositoryPort used by tests.
type MemoryRepository struct {
	mu          sync.Mutex
	orders      map[int64]SalesOrder
	lines       map[int64][]Line
	history     map[int64][]HistoryEvent
	invoices    map[int64]Invoice
	nextID      int64
	nextLine    int64
	nextInvoice int64
	counter     int64
	invCounter  int64
}

// NewMemoryRepository constructs an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		orders:   map[int64]SalesOrder{},
		lines:    map[int64][]Line{},
		history:  map[int64][]HistoryEvent{},
		invoices: map[int64]Invoice{},
	}
}

func (r *MemoryRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (r *MemoryRepository) NextNumber(context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counter++
	return fmt.Sprintf("SO-%05d", r.counter), nil
}

func (r *MemoryRepository) NextInvoiceNumber(context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invCounter++
	return fmt.Sprintf("INV-%05d", r.invCounter), nil
}

func (r *MemoryRepository) Insert(_ context.Context, o SalesOrder) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	o.ID = r.nextID
	o.CreatedAt = time.Now().UTC()
	o.UpdatedAt = o.CreatedAt
	o.Lines = nil
	r.orders[o.ID] = o
	return o.ID, nil
}

func (r *MemoryRepository) InsertLine(_ context.Context, orderID int64, l Line) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[orderID]; !ok {
		return 0, fmt.Errorf("%w: sales order %d", shared.ErrNotFound, orderID)
	}
	r.nextLine++
	l.ID = r.nextLine
	r.lines[orderID] = append(r.lines[orderID], l)
	return l.ID, nil
}

func (r *MemoryRepository) Get(_ context.Context, id int64) (SalesOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return SalesOrder{}, fmt.Errorf("%w: sales order %d", shared.ErrNotFound, id)
	}
	o.Lines = append([]Line(nil), r.lines[id]...)
	return o, nil
}

func (r *MemoryRepository) List(_ context.Context, status Status) ([]SalesOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []SalesOrder
	for id := r.nextID; id >= 1; id-- {
		o, ok := r.orders[id]
		if !ok || (status != "" && o.Status != status) {
			continue
		}
		o.Lines = append([]Line(nil), r.lines[id]...)
		out = append(out, o)
	}
	return out, nil
}

func (r *MemoryRepository) UpdateStatus(_ context.Context, id int64, from, to Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.Status != from {
		return fmt.Errorf("%w: sales order %d is no longer %s", shared.ErrInvalidTransition, id, from)
	}
	o.Status = to
	o.UpdatedAt = time.Now().UTC()
	r.orders[id] = o
	return nil
}

func (r *MemoryRepository) InsertHistory(_ context.Context, e HistoryEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.ID = int64(len(r.history[e.SalesOrderID]) + 1)
	r.history[e.SalesOrderID] = append(r.history[e.SalesOrderID], e)
	return nil
}

func (r *MemoryRepository) ListHistory(_ context.Context, orderID int64) ([]HistoryEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]HistoryEvent(nil), r.history[orderID]...), nil
}

func (r *MemoryRepository) InsertInvoice(_ context.Context, inv Invoice) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.invoices[inv.SalesOrderID]; exists {
		return 0, fmt.Errorf("%w: sales order %d already invoiced", shared.ErrIntegrityConflict, inv.SalesOrderID)
	}
	r.nextInvoice++
	inv.ID = r.nextInvoice
	r.invoices[inv.SalesOrderID] = inv
	return inv.ID, nil
}

func (r *MemoryRepository) GetInvoice(_ context.Context, orderID int64) (Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[orderID]
	if !ok {
		return Invoice{}, fmt.Errorf("%w: invoice for sales order %d", shared.ErrNotFound, orderID)
	}
	return inv, nil
}
