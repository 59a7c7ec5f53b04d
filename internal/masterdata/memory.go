package masterdata

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lumenfab/lumenfab/internal/shared"
)

// MemoryRepository is an in-memory RepositoryPort used by tests and local
// tooling.
type MemoryRepository struct {
	mu         sync.Mutex
	warehouses map[int64]Warehouse
	customers  map[int64]Customer
	suppliers  map[int64]Supplier
	materials  map[int64]RawMaterial
	goods      map[int64]FinishedGood
	offers     map[int64]SupplierOffer
	nextID     int64
}

// NewMemoryRepository constructs an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		warehouses: map[int64]Warehouse{},
		customers:  map[int64]Customer{},
		suppliers:  map[int64]Supplier{},
		materials:  map[int64]RawMaterial{},
		goods:      map[int64]FinishedGood{},
		offers:     map[int64]SupplierOffer{},
	}
}

func (r *MemoryRepository) next() int64 {
	r.nextID++
	return r.nextID
}

func (r *MemoryRepository) CreateWarehouse(_ context.Context, w Warehouse) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w.ID = r.next()
	w.CreatedAt = time.Now().UTC()
	r.warehouses[w.ID] = w
	return w.ID, nil
}

func (r *MemoryRepository) ListWarehouses(context.Context) ([]Warehouse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Warehouse, 0, len(r.warehouses))
	for _, w := range r.warehouses {
		out = append(out, w)
	}
	return out, nil
}

func (r *MemoryRepository) GetWarehouse(_ context.Context, id int64) (Warehouse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.warehouses[id]
	if !ok {
		return Warehouse{}, fmt.Errorf("%w: warehouse %d", shared.ErrNotFound, id)
	}
	return w, nil
}

func (r *MemoryRepository) CreateCustomer(_ context.Context, c Customer) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = r.next()
	c.CreatedAt = time.Now().UTC()
	r.customers[c.ID] = c
	return c.ID, nil
}

func (r *MemoryRepository) GetCustomer(_ context.Context, id int64) (Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.customers[id]
	if !ok {
		return Customer{}, fmt.Errorf("%w: customer %d", shared.ErrNotFound, id)
	}
	return c, nil
}

func (r *MemoryRepository) ListCustomers(context.Context) ([]Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Customer, 0, len(r.customers))
	for _, c := range r.customers {
		out = append(out, c)
	}
	return out, nil
}

func (r *MemoryRepository) CreateSupplier(_ context.Context, s Supplier) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.ID = r.next()
	s.CreatedAt = time.Now().UTC()
	r.suppliers[s.ID] = s
	return s.ID, nil
}

func (r *MemoryRepository) GetSupplier(_ context.Context, id int64) (Supplier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.suppliers[id]
	if !ok {
		return Supplier{}, fmt.Errorf("%w: supplier %d", shared.ErrNotFound, id)
	}
	return s, nil
}

func (r *MemoryRepository) ListSuppliers(context.Context) ([]Supplier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Supplier, 0, len(r.suppliers))
	for _, s := range r.suppliers {
		out = append(out, s)
	}
	return out, nil
}

func (r *MemoryRepository) CreateRawMaterial(_ context.Context, m RawMaterial) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m.ID = r.next()
	m.CreatedAt = time.Now().UTC()
	r.materials[m.ID] = m
	return m.ID, nil
}

func (r *MemoryRepository) GetRawMaterial(_ context.Context, id int64) (RawMaterial, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.materials[id]
	if !ok {
		return RawMaterial{}, fmt.Errorf("%w: raw material %d", shared.ErrNotFound, id)
	}
	return m, nil
}

func (r *MemoryRepository) ListRawMaterials(context.Context) ([]RawMaterial, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RawMaterial, 0, len(r.materials))
	for _, m := range r.materials {
		out = append(out, m)
	}
	return out, nil
}

func (r *MemoryRepository) CreateFinishedGood(_ context.Context, g FinishedGood) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g.ID = r.next()
	g.CreatedAt = time.Now().UTC()
	r.goods[g.ID] = g
	return g.ID, nil
}

func (r *MemoryRepository) GetFinishedGood(_ context.Context, id int64) (FinishedGood, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.goods[id]
	if !ok {
		return FinishedGood{}, fmt.Errorf("%w: finished good %d", shared.ErrNotFound, id)
	}
	return g, nil
}

func (r *MemoryRepository) ListFinishedGoods(context.Context) ([]FinishedGood, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]FinishedGood, 0, len(r.goods))
	for _, g := range r.goods {
		out = append(out, g)
	}
	return out, nil
}

func (r *MemoryRepository) ListAutoReplenishGoods(context.Context) ([]FinishedGood, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []FinishedGood
	for _, g := range r.goods {
		if g.AutoReplenish {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *MemoryRepository) UpdateReplenishment(_ context.Context, id int64, minimum, target int64, auto bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.goods[id]
	if !ok {
		return fmt.Errorf("%w: finished good %d", shared.ErrNotFound, id)
	}
	g.StockMinimum = minimum
	g.StockTarget = target
	g.AutoReplenish = auto
	r.goods[id] = g
	return nil
}

func (r *MemoryRepository) CreateSupplierOffer(_ context.Context, o SupplierOffer) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.offers {
		if existing.SupplierID == o.SupplierID && existing.MaterialID == o.MaterialID {
			return 0, fmt.Errorf("%w: offer already exists", shared.ErrIntegrityConflict)
		}
	}
	o.ID = r.next()
	o.CreatedAt = time.Now().UTC()
	r.offers[o.ID] = o
	return o.ID, nil
}

func (r *MemoryRepository) GetSupplierOffer(_ context.Context, supplierID, materialID int64) (SupplierOffer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.offers {
		if o.SupplierID == supplierID && o.MaterialID == materialID {
			return o, nil
		}
	}
	return SupplierOffer{}, fmt.Errorf("%w: supplier offer", shared.ErrNotFound)
}

func (r *MemoryRepository) ListSupplierOffers(_ context.Context, materialID int64) ([]SupplierOffer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []SupplierOffer
	for _, o := range r.offers {
		if o.MaterialID == materialID {
			out = append(out, o)
		}
	}
	return out, nil
}
