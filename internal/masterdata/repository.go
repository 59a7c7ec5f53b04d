package masterdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumenfab/lumenfab/internal/platform/db"
	"github.com/lumenfab/lumenfab/internal/shared"
)

// RepositoryPort exposes catalog persistence used by the service layer.
type RepositoryPort interface {
	CreateWarehouse(ctx context.Context, w Warehouse) (int64, error)
	ListWarehouses(ctx context.Context) ([]Warehouse, error)
	GetWarehouse(ctx context.Context, id int64) (Warehouse, error)

	CreateCustomer(ctx context.Context, c Customer) (int64, error)
	GetCustomer(ctx context.Context, id int64) (Customer, error)
	ListCustomers(ctx context.Context) ([]Customer, error)

	CreateSupplier(ctx context.Context, s Supplier) (int64, error)
	GetSupplier(ctx context.Context, id int64) (Supplier, error)
	ListSuppliers(ctx context.Context) ([]Supplier, error)

	CreateRawMaterial(ctx context.Context, m RawMaterial) (int64, error)
	GetRawMaterial(ctx context.Context, id int64) (RawMaterial, error)
	ListRawMaterials(ctx context.Context) ([]RawMaterial, error)

	CreateFinishedGood(ctx context.Context, g FinishedGood) (int64, error)
	GetFinishedGood(ctx context.Context, id int64) (FinishedGood, error)
	ListFinishedGoods(ctx context.Context) ([]FinishedGood, error)
	ListAutoReplenishGoods(ctx context.Context) ([]FinishedGood, error)
	UpdateReplenishment(ctx context.Context, id int64, minimum, target int64, auto bool) error

	CreateSupplierOffer(ctx context.Context, o SupplierOffer) (int64, error)
	GetSupplierOffer(ctx context.Context, supplierID, materialID int64) (SupplierOffer, error)
	ListSupplierOffers(ctx context.Context, materialID int64) ([]SupplierOffer, error)
}

// Repository persists catalog data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) q(ctx context.Context) db.Querier {
	return db.FromContext(ctx, r.pool)
}

func (r *Repository) CreateWarehouse(ctx context.Context, w Warehouse) (int64, error) {
	var id int64
	err := r.q(ctx).QueryRow(ctx,
		`INSERT INTO warehouses (name, location) VALUES ($1, $2) RETURNING id`,
		w.Name, w.Location,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create warehouse: %w", translate(err))
	}
	return id, nil
}

func (r *Repository) ListWarehouses(ctx context.Context) ([]Warehouse, error) {
	rows, err := r.q(ctx).Query(ctx,
		`SELECT id, name, location, created_at FROM warehouses ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list warehouses: %w", err)
	}
	defer rows.Close()

	var out []Warehouse
	for rows.Next() {
		var w Warehouse
		if err := rows.Scan(&w.ID, &w.Name, &w.Location, &w.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *Repository) GetWarehouse(ctx context.Context, id int64) (Warehouse, error) {
	var w Warehouse
	err := r.q(ctx).QueryRow(ctx,
		`SELECT id, name, location, created_at FROM warehouses WHERE id = $1`, id,
	).Scan(&w.ID, &w.Name, &w.Location, &w.CreatedAt)
	if err != nil {
		return Warehouse{}, notFoundOr(err, "warehouse")
	}
	return w, nil
}

func (r *Repository) CreateCustomer(ctx context.Context, c Customer) (int64, error) {
	var id int64
	err := r.q(ctx).QueryRow(ctx,
		`INSERT INTO customers (name, email, phone) VALUES ($1, $2, $3) RETURNING id`,
		c.Name, c.Email, c.Phone,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create customer: %w", translate(err))
	}
	return id, nil
}

func (r *Repository) GetCustomer(ctx context.Context, id int64) (Customer, error) {
	var c Customer
	err := r.q(ctx).QueryRow(ctx,
		`SELECT id, name, email, phone, created_at FROM customers WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.CreatedAt)
	if err != nil {
		return Customer{}, notFoundOr(err, "customer")
	}
	return c, nil
}

func (r *Repository) ListCustomers(ctx context.Context) ([]Customer, error) {
	rows, err := r.q(ctx).Query(ctx,
		`SELECT id, name, email, phone, created_at FROM customers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) CreateSupplier(ctx context.Context, s Supplier) (int64, error) {
	var id int64
	err := r.q(ctx).QueryRow(ctx,
		`INSERT INTO suppliers (name, email, phone) VALUES ($1, $2, $3) RETURNING id`,
		s.Name, s.Email, s.Phone,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create supplier: %w", translate(err))
	}
	return id, nil
}

func (r *Repository) GetSupplier(ctx context.Context, id int64) (Supplier, error) {
	var s Supplier
	err := r.q(ctx).QueryRow(ctx,
		`SELECT id, name, email, phone, created_at FROM suppliers WHERE id = $1`, id,
	).Scan(&s.ID, &s.Name, &s.Email, &s.Phone, &s.CreatedAt)
	if err != nil {
		return Supplier{}, notFoundOr(err, "supplier")
	}
	return s, nil
}

func (r *Repository) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	rows, err := r.q(ctx).Query(ctx,
		`SELECT id, name, email, phone, created_at FROM suppliers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	defer rows.Close()

	var out []Supplier
	for rows.Next() {
		var s Supplier
		if err := rows.Scan(&s.ID, &s.Name, &s.Email, &s.Phone, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repository) CreateRawMaterial(ctx context.Context, m RawMaterial) (int64, error) {
	var id int64
	err := r.q(ctx).QueryRow(ctx,
		`INSERT INTO raw_materials (sku, name, unit_price, stock_minimum)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		m.SKU, m.Name, m.UnitPrice, m.StockMinimum,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create raw material: %w", translate(err))
	}
	return id, nil
}

func (r *Repository) GetRawMaterial(ctx context.Context, id int64) (RawMaterial, error) {
	var m RawMaterial
	err := r.q(ctx).QueryRow(ctx,
		`SELECT id, sku, name, unit_price, stock_minimum, created_at
		 FROM raw_materials WHERE id = $1`, id,
	).Scan(&m.ID, &m.SKU, &m.Name, &m.UnitPrice, &m.StockMinimum, &m.CreatedAt)
	if err != nil {
		return RawMaterial{}, notFoundOr(err, "raw material")
	}
	return m, nil
}

func (r *Repository) ListRawMaterials(ctx context.Context) ([]RawMaterial, error) {
	rows, err := r.q(ctx).Query(ctx,
		`SELECT id, sku, name, unit_price, stock_minimum, created_at
		 FROM raw_materials ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list raw materials: %w", err)
	}
	defer rows.Close()

	var out []RawMaterial
	for rows.Next() {
		var m RawMaterial
		if err := rows.Scan(&m.ID, &m.SKU, &m.Name, &m.UnitPrice, &m.StockMinimum, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *Repository) CreateFinishedGood(ctx context.Context, g FinishedGood) (int64, error) {
	var id int64
	err := r.q(ctx).QueryRow(ctx,
		`INSERT INTO finished_goods (sku, name, unit_price, stock_minimum, stock_target, auto_replenish)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		g.SKU, g.Name, g.UnitPrice, g.StockMinimum, g.StockTarget, g.AutoReplenish,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create finished good: %w", translate(err))
	}
	return id, nil
}

func (r *Repository) GetFinishedGood(ctx context.Context, id int64) (FinishedGood, error) {
	var g FinishedGood
	err := r.q(ctx).QueryRow(ctx,
		`SELECT id, sku, name, unit_price, stock_minimum, stock_target, auto_replenish, created_at
		 FROM finished_goods WHERE id = $1`, id,
	).Scan(&g.ID, &g.SKU, &g.Name, &g.UnitPrice, &g.StockMinimum, &g.StockTarget, &g.AutoReplenish, &g.CreatedAt)
	if err != nil {
		return FinishedGood{}, notFoundOr(err, "finished good")
	}
	return g, nil
}

func (r *Repository) ListFinishedGoods(ctx context.Context) ([]FinishedGood, error) {
	return r.listGoods(ctx,
		`SELECT id, sku, name, unit_price, stock_minimum, stock_target, auto_replenish, created_at
		 FROM finished_goods ORDER BY id`)
}

func (r *Repository) ListAutoReplenishGoods(ctx context.Context) ([]FinishedGood, error) {
	return r.listGoods(ctx,
		`SELECT id, sku, name, unit_price, stock_minimum, stock_target, auto_replenish, created_at
		 FROM finished_goods WHERE auto_replenish ORDER BY id`)
}

func (r *Repository) listGoods(ctx context.Context, query string) ([]FinishedGood, error) {
	rows, err := r.q(ctx).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list finished goods: %w", err)
	}
	defer rows.Close()

	var out []FinishedGood
	for rows.Next() {
		var g FinishedGood
		if err := rows.Scan(&g.ID, &g.SKU, &g.Name, &g.UnitPrice, &g.StockMinimum, &g.StockTarget, &g.AutoReplenish, &g.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *Repository) UpdateReplenishment(ctx context.Context, id int64, minimum, target int64, auto bool) error {
	tag, err := r.q(ctx).Exec(ctx,
		`UPDATE finished_goods SET stock_minimum = $2, stock_target = $3, auto_replenish = $4 WHERE id = $1`,
		id, minimum, target, auto)
	if err != nil {
		return fmt.Errorf("update replenishment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: finished good %d", shared.ErrNotFound, id)
	}
	return nil
}

func (r *Repository) CreateSupplierOffer(ctx context.Context, o SupplierOffer) (int64, error) {
	var id int64
	err := r.q(ctx).QueryRow(ctx,
		`INSERT INTO supplier_offers (supplier_id, material_id, unit_price, lead_time_days)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		o.SupplierID, o.MaterialID, o.UnitPrice, o.LeadTimeDays,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create supplier offer: %w", translate(err))
	}
	return id, nil
}

func (r *Repository) GetSupplierOffer(ctx context.Context, supplierID, materialID int64) (SupplierOffer, error) {
	var o SupplierOffer
	err := r.q(ctx).QueryRow(ctx,
		`SELECT id, supplier_id, material_id, unit_price, lead_time_days, created_at
		 FROM supplier_offers WHERE supplier_id = $1 AND material_id = $2`,
		supplierID, materialID,
	).Scan(&o.ID, &o.SupplierID, &o.MaterialID, &o.UnitPrice, &o.LeadTimeDays, &o.CreatedAt)
	if err != nil {
		return SupplierOffer{}, notFoundOr(err, "supplier offer")
	}
	return o, nil
}

func (r *Repository) ListSupplierOffers(ctx context.Context, materialID int64) ([]SupplierOffer, error) {
	rows, err := r.q(ctx).Query(ctx,
		`SELECT id, supplier_id, material_id, unit_price, lead_time_days, created_at
		 FROM supplier_offers WHERE material_id = $1 ORDER BY unit_price`, materialID)
	if err != nil {
		return nil, fmt.Errorf("list supplier offers: %w", err)
	}
	defer rows.Close()

	var out []SupplierOffer
	for rows.Next() {
		var o SupplierOffer
		if err := rows.Scan(&o.ID, &o.SupplierID, &o.MaterialID, &o.UnitPrice, &o.LeadTimeDays, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func notFoundOr(err error, entity string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", shared.ErrNotFound, entity)
	}
	return err
}

func translate(err error) error {
	if shared.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %v", shared.ErrIntegrityConflict, err)
	}
	return err
}
