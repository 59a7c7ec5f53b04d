package purchasing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumenfab/lumenfab/internal/platform/db"
	"github.com/lumenfab/lumenfab/internal/shared"
)

// RepositoryPort exposes purchase order persistence used by the service
// layer.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	NextNumber(ctx context.Context) (string, error)
	Insert(ctx context.Context, o PurchaseOrder) (int64, error)
	InsertLine(ctx context.Context, orderID int64, l Line) (int64, error)
	Get(ctx context.Context, id int64) (PurchaseOrder, error)
	List(ctx context.Context, status Status) ([]PurchaseOrder, error)
	// UpdateStatus moves the order from from to to, returning
	// ErrInvalidTransition when the stored status no longer matches from.
	UpdateStatus(ctx context.Context, id int64, from, to Status) error
	SetTracking(ctx context.Context, id int64, tracking string) error
	UpdateNotes(ctx context.Context, id int64, notes string) error
	ReplaceLines(ctx context.Context, orderID int64, lines []Line) error
	// AddReceived accumulates qty on a line without exceeding the ordered
	// quantity; the returned flag reports whether the guard held.
	AddReceived(ctx context.Context, lineID, qty int64) (bool, error)
}

// Repository persists purchase orders in PostgreSQL.
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

func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.RunInTx(ctx, r.pool, fn)
}

func (r *Repository) NextNumber(ctx context.Context) (string, error) {
	var n int64
	if err := r.q(ctx).QueryRow(ctx, `SELECT nextval('purchase_order_seq')`).Scan(&n); err != nil {
		return "", fmt.Errorf("next purchase order number: %w", err)
	}
	return fmt.Sprintf("PO-%05d", n), nil
}

func (r *Repository) Insert(ctx context.Context, o PurchaseOrder) (int64, error) {
	var id int64
	err := r.q(ctx).QueryRow(ctx,
		`INSERT INTO purchase_orders (number, supplier_id, warehouse_id, status, notes)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		o.Number, o.SupplierID, o.WarehouseID, o.Status, o.Notes,
	).Scan(&id)
	if err != nil {
		if shared.IsUniqueViolation(err) {
			return 0, fmt.Errorf("%w: purchase order number %s", shared.ErrIntegrityConflict, o.Number)
		}
		return 0, fmt.Errorf("insert purchase order: %w", err)
	}
	return id, nil
}

func (r *Repository) InsertLine(ctx context.Context, orderID int64, l Line) (int64, error) {
	var id int64
	err := r.q(ctx).QueryRow(ctx,
		`INSERT INTO purchase_order_lines (purchase_order_id, material_id, qty, received_qty, unit_price)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		orderID, l.MaterialID, l.Qty, l.ReceivedQty, l.UnitPrice,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert purchase order line: %w", err)
	}
	return id, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (PurchaseOrder, error) {
	var o PurchaseOrder
	err := r.q(ctx).QueryRow(ctx,
		`SELECT id, number, supplier_id, warehouse_id, status, tracking_number, notes, created_at, updated_at
		 FROM purchase_orders WHERE id = $1`, id,
	).Scan(&o.ID, &o.Number, &o.SupplierID, &o.WarehouseID, &o.Status, &o.TrackingNumber, &o.Notes, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseOrder{}, fmt.Errorf("%w: purchase order %d", shared.ErrNotFound, id)
		}
		return PurchaseOrder{}, fmt.Errorf("get purchase order: %w", err)
	}

	lines, err := r.lines(ctx, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	o.Lines = lines
	return o, nil
}

func (r *Repository) lines(ctx context.Context, orderID int64) ([]Line, error) {
	rows, err := r.q(ctx).Query(ctx,
		`SELECT id, material_id, qty, received_qty, unit_price
		 FROM purchase_order_lines WHERE purchase_order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("get purchase order lines: %w", err)
	}
	defer rows.Close()

	var out []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.MaterialID, &l.Qty, &l.ReceivedQty, &l.UnitPrice); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *Repository) List(ctx context.Context, status Status) ([]PurchaseOrder, error) {
	query := `SELECT id, number, supplier_id, warehouse_id, status, tracking_number, notes, created_at, updated_at
		 FROM purchase_orders`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY id DESC`

	rows, err := r.q(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list purchase orders: %w", err)
	}
	defer rows.Close()

	var out []PurchaseOrder
	for rows.Next() {
		var o PurchaseOrder
		if err := rows.Scan(&o.ID, &o.Number, &o.SupplierID, &o.WarehouseID, &o.Status, &o.TrackingNumber, &o.Notes, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *Repository) UpdateStatus(ctx context.Context, id int64, from, to Status) error {
	tag, err := r.q(ctx).Exec(ctx,
		`UPDATE purchase_orders SET status = $3, updated_at = now() WHERE id = $1 AND status = $2`,
		id, from, to)
	if err != nil {
		return fmt.Errorf("update purchase order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: purchase order %d is no longer %s", shared.ErrInvalidTransition, id, from)
	}
	return nil
}

func (r *Repository) SetTracking(ctx context.Context, id int64, tracking string) error {
	_, err := r.q(ctx).Exec(ctx,
		`UPDATE purchase_orders SET tracking_number = $2, updated_at = now() WHERE id = $1`,
		id, tracking)
	if err != nil {
		return fmt.Errorf("set tracking number: %w", err)
	}
	return nil
}

func (r *Repository) UpdateNotes(ctx context.Context, id int64, notes string) error {
	_, err := r.q(ctx).Exec(ctx,
		`UPDATE purchase_orders SET notes = $2, updated_at = now() WHERE id = $1`,
		id, notes)
	if err != nil {
		return fmt.Errorf("update notes: %w", err)
	}
	return nil
}

func (r *Repository) ReplaceLines(ctx context.Context, orderID int64, lines []Line) error {
	q := r.q(ctx)
	if _, err := q.Exec(ctx,
		`DELETE FROM purchase_order_lines WHERE purchase_order_id = $1`, orderID); err != nil {
		return fmt.Errorf("clear purchase order lines: %w", err)
	}
	for _, l := range lines {
		if _, err := r.InsertLine(ctx, orderID, l); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) AddReceived(ctx context.Context, lineID, qty int64) (bool, error) {
	tag, err := r.q(ctx).Exec(ctx,
		`UPDATE purchase_order_lines SET received_qty = received_qty + $2
		 WHERE id = $1 AND received_qty + $2 <= qty`,
		lineID, qty)
	if err != nil {
		return false, fmt.Errorf("add received qty: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
