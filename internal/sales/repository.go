package sales

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumenfab/lumenfab/internal/platform/db"
	"github.com/lumenfab/lumenfab/internal/shared"
)

// RepositoryPort exposes sales order persistence used by the service layer.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	NextNumber(ctx context.Context) (string, error)
	NextInvoiceNumber(ctx context.Context) (string, error)
	Insert(ctx context.Context, o SalesOrder) (int64, error)
	InsertLine(ctx context.Context, orderID int64, l Line) (int64, error)
	Get(ctx context.Context, id int64) (SalesOrder, error)
	List(ctx context.Context, status Status) ([]SalesOrder, error)
	UpdateStatus(ctx context.Context, id int64, from, to Status) error
	InsertHistory(ctx context.Context, e HistoryEvent) error
	ListHistory(ctx context.Context, orderID int64) ([]HistoryEvent, error)
	// InsertInvoice enforces one invoice per order via a unique constraint.
	InsertInvoice(ctx context.Context, inv Invoice) (int64, error)
	GetInvoice(ctx context.Context, orderID int64) (Invoice, error)
}

// Repository persists sales orders in PostgreSQL.
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
	if err := r.q(ctx).QueryRow(ctx, `SELECT nextval('sales_order_seq')`).Scan(&n); err != nil {
		return "", fmt.Errorf("next sales order number: %w", err)
	}
	return fmt.Sprintf("SO-%05d", n), nil
}

func (r *Repository) NextInvoiceNumber(ctx context.Context) (string, error) {
	var n int64
	if err := r.q(ctx).QueryRow(ctx, `SELECT nextval('invoice_seq')`).Scan(&n); err != nil {
		return "", fmt.Errorf("next invoice number: %w", err)
	}
	return fmt.Sprintf("INV-%05d", n), nil
}

func (r *Repository) Insert(ctx context.Context, o SalesOrder) (int64, error) {
	var id int64
	err := r.q(ctx).QueryRow(ctx,
		`INSERT INTO sales_orders (number, customer_id, warehouse_id, status, notes)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		o.Number, o.CustomerID, o.WarehouseID, o.Status, o.Notes,
	).Scan(&id)
	if err != nil {
		if shared.IsUniqueViolation(err) {
			return 0, fmt.Errorf("%w: sales order number %s", shared.ErrIntegrityConflict, o.Number)
		}
		return 0, fmt.Errorf("insert sales order: %w", err)
	}
	return id, nil
}

func (r *Repository) InsertLine(ctx context.Context, orderID int64, l Line) (int64, error) {
	var id int64
	err := r.q(ctx).QueryRow(ctx,
		`INSERT INTO sales_order_lines (sales_order_id, finished_good_id, qty, unit_price)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		orderID, l.FinishedGoodID, l.Qty, l.UnitPrice,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert sales order line: %w", err)
	}
	return id, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (SalesOrder, error) {
	var o SalesOrder
	err := r.q(ctx).QueryRow(ctx,
		`SELECT id, number, customer_id, warehouse_id, status, notes, created_at, updated_at
		 FROM sales_orders WHERE id = $1`, id,
	).Scan(&o.ID, &o.Number, &o.CustomerID, &o.WarehouseID, &o.Status, &o.Notes, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SalesOrder{}, fmt.Errorf("%w: sales order %d", shared.ErrNotFound, id)
		}
		return SalesOrder{}, fmt.Errorf("get sales order: %w", err)
	}

	rows, err := r.q(ctx).Query(ctx,
		`SELECT id, finished_good_id, qty, unit_price
		 FROM sales_order_lines WHERE sales_order_id = $1 ORDER BY id`, id)
	if err != nil {
		return SalesOrder{}, fmt.Errorf("get sales order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.FinishedGoodID, &l.Qty, &l.UnitPrice); err != nil {
			return SalesOrder{}, err
		}
		o.Lines = append(o.Lines, l)
	}
	return o, rows.Err()
}

func (r *Repository) List(ctx context.Context, status Status) ([]SalesOrder, error) {
	query := `SELECT id, number, customer_id, warehouse_id, status, notes, created_at, updated_at
		 FROM sales_orders`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY id DESC`

	rows, err := r.q(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sales orders: %w", err)
	}
	defer rows.Close()

	var out []SalesOrder
	for rows.Next() {
		var o SalesOrder
		if err := rows.Scan(&o.ID, &o.Number, &o.CustomerID, &o.WarehouseID, &o.Status, &o.Notes, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *Repository) UpdateStatus(ctx context.Context, id int64, from, to Status) error {
	tag, err := r.q(ctx).Exec(ctx,
		`UPDATE sales_orders SET status = $3, updated_at = now() WHERE id = $1 AND status = $2`,
		id, from, to)
	if err != nil {
		return fmt.Errorf("update sales order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: sales order %d is no longer %s", shared.ErrInvalidTransition, id, from)
	}
	return nil
}

func (r *Repository) InsertHistory(ctx context.Context, e HistoryEvent) error {
	_, err := r.q(ctx).Exec(ctx,
		`INSERT INTO sales_order_history (sales_order_id, kind, description, at)
		 VALUES ($1, $2, $3, $4)`,
		e.SalesOrderID, e.Kind, e.Description, e.At)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

func (r *Repository) ListHistory(ctx context.Context, orderID int64) ([]HistoryEvent, error) {
	rows, err := r.q(ctx).Query(ctx,
		`SELECT id, sales_order_id, kind, description, at
		 FROM sales_order_history WHERE sales_order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var out []HistoryEvent
	for rows.Next() {
		var e HistoryEvent
		if err := rows.Scan(&e.ID, &e.SalesOrderID, &e.Kind, &e.Description, &e.At); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repository) InsertInvoice(ctx context.Context, inv Invoice) (int64, error) {
	var id int64
	err := r.q(ctx).QueryRow(ctx,
		`INSERT INTO invoices (number, sales_order_id, total, issued_at)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		inv.Number, inv.SalesOrderID, inv.Total, inv.IssuedAt,
	).Scan(&id)
	if err != nil {
		if shared.IsUniqueViolation(err) {
			return 0, fmt.Errorf("%w: sales order %d already invoiced", shared.ErrIntegrityConflict, inv.SalesOrderID)
		}
		return 0, fmt.Errorf("insert invoice: %w", err)
	}
	return id, nil
}

func (r *Repository) GetInvoice(ctx context.Context, orderID int64) (Invoice, error) {
	var inv Invoice
	err := r.q(ctx).QueryRow(ctx,
		`SELECT id, number, sales_order_id, total, issued_at FROM invoices WHERE sales_order_id = $1`,
		orderID,
	).Scan(&inv.ID, &inv.Number, &inv.SalesOrderID, &inv.Total, &inv.IssuedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, fmt.Errorf("%w: invoice for sales order %d", shared.ErrNotFound, orderID)
		}
		return Invoice{}, fmt.Errorf("get invoice: %w", err)
	}
	return inv, nil
}
