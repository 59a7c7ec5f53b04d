package production

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumenfab/lumenfab/internal/platform/db"
	"github.com/lumenfab/lumenfab/internal/shared"
)

// RepositoryPort exposes production order persistence used by the service
// layer.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	NextNumber(ctx context.Context) (string, error)
	Insert(ctx context.Context, o ProductionOrder) (int64, error)
	Get(ctx context.Context, id int64) (ProductionOrder, error)
	List(ctx context.Context, status Status) ([]ProductionOrder, error)
	ListOpenBySalesOrder(ctx context.Context, salesOrderID int64) ([]ProductionOrder, error)
	CountOpenStockRuns(ctx context.Context, finishedGoodID int64) (int64, error)
	UpdateStatus(ctx context.Context, id int64, from, to Status) error
	SetResumeStatus(ctx context.Context, id int64, resume *Status) error
	SetPlan(ctx context.Context, id int64, sector string, plannedStart, plannedEnd *time.Time) error
	SetActualStart(ctx context.Context, id int64, at time.Time) error
	SetActualEnd(ctx context.Context, id int64, at time.Time) error
	SetProblemNote(ctx context.Context, id int64, note string) error
	StatusSummary(ctx context.Context, salesOrderID int64) (StatusSummary, error)

	InsertBatch(ctx context.Context, b Batch) (int64, error)
	GetBatch(ctx context.Context, id int64) (Batch, error)
	ListBatches(ctx context.Context, shippedOnly bool) ([]Batch, error)
	// MarkBatchShipped flips the shipped flag, reporting false when the
	// batch was already shipped.
	MarkBatchShipped(ctx context.Context, id int64) (bool, error)
}

// Repository persists production orders in PostgreSQL.
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
	if err := r.q(ctx).QueryRow(ctx, `SELECT nextval('production_order_seq')`).Scan(&n); err != nil {
		return "", fmt.Errorf("next production order number: %w", err)
	}
	return fmt.Sprintf("MO-%05d", n), nil
}

const orderColumns = `id, number, type, sales_order_id, finished_good_id, qty, warehouse_id,
	status, resume_status, sector, planned_start, planned_end, actual_start, actual_end,
	problem_note, created_at, updated_at`

func scanOrder(row pgx.Row) (ProductionOrder, error) {
	var o ProductionOrder
	err := row.Scan(&o.ID, &o.Number, &o.Type, &o.SalesOrderID, &o.FinishedGoodID, &o.Qty,
		&o.WarehouseID, &o.Status, &o.ResumeStatus, &o.Sector, &o.PlannedStart, &o.PlannedEnd,
		&o.ActualStart, &o.ActualEnd, &o.ProblemNote, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func (r *Repository) Insert(ctx context.Context, o ProductionOrder) (int64, error) {
	var id int64
	err := r.q(ctx).QueryRow(ctx,
		`INSERT INTO production_orders (number, type, sales_order_id, finished_good_id, qty, warehouse_id, status, sector)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		o.Number, o.Type, o.SalesOrderID, o.FinishedGoodID, o.Qty, o.WarehouseID, o.Status, o.Sector,
	).Scan(&id)
	if err != nil {
		if shared.IsUniqueViolation(err) {
			return 0, fmt.Errorf("%w: production order number %s", shared.ErrIntegrityConflict, o.Number)
		}
		return 0, fmt.Errorf("insert production order: %w", err)
	}
	return id, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (ProductionOrder, error) {
	o, err := scanOrder(r.q(ctx).QueryRow(ctx,
		`SELECT `+orderColumns+` FROM production_orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProductionOrder{}, fmt.Errorf("%w: production order %d", shared.ErrNotFound, id)
		}
		return ProductionOrder{}, fmt.Errorf("get production order: %w", err)
	}
	return o, nil
}

func (r *Repository) List(ctx context.Context, status Status) ([]ProductionOrder, error) {
	query := `SELECT ` + orderColumns + ` FROM production_orders`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY id DESC`
	return r.queryOrders(ctx, query, args...)
}

func (r *Repository) ListOpenBySalesOrder(ctx context.Context, salesOrderID int64) ([]ProductionOrder, error) {
	return r.queryOrders(ctx,
		`SELECT `+orderColumns+` FROM production_orders
		 WHERE sales_order_id = $1 AND status NOT IN ($2, $3) ORDER BY id`,
		salesOrderID, StatusCompleted, StatusCancelled)
}

func (r *Repository) CountOpenStockRuns(ctx context.Context, finishedGoodID int64) (int64, error) {
	var n int64
	err := r.q(ctx).QueryRow(ctx,
		`SELECT count(*) FROM production_orders
		 WHERE finished_good_id = $1 AND type = $2 AND status NOT IN ($3, $4)`,
		finishedGoodID, MakeToStock, StatusCompleted, StatusCancelled,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count open stock runs: %w", err)
	}
	return n, nil
}

func (r *Repository) queryOrders(ctx context.Context, query string, args ...any) ([]ProductionOrder, error) {
	rows, err := r.q(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list production orders: %w", err)
	}
	defer rows.Close()

	var out []ProductionOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *Repository) UpdateStatus(ctx context.Context, id int64, from, to Status) error {
	tag, err := r.q(ctx).Exec(ctx,
		`UPDATE production_orders SET status = $3, updated_at = now() WHERE id = $1 AND status = $2`,
		id, from, to)
	if err != nil {
		return fmt.Errorf("update production order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: production order %d is no longer %s", shared.ErrInvalidTransition, id, from)
	}
	return nil
}

func (r *Repository) SetResumeStatus(ctx context.Context, id int64, resume *Status) error {
	_, err := r.q(ctx).Exec(ctx,
		`UPDATE production_orders SET resume_status = $2, updated_at = now() WHERE id = $1`,
		id, resume)
	if err != nil {
		return fmt.Errorf("set resume status: %w", err)
	}
	return nil
}

func (r *Repository) SetPlan(ctx context.Context, id int64, sector string, plannedStart, plannedEnd *time.Time) error {
	_, err := r.q(ctx).Exec(ctx,
		`UPDATE production_orders SET sector = $2, planned_start = $3, planned_end = $4, updated_at = now()
		 WHERE id = $1`,
		id, sector, plannedStart, plannedEnd)
	if err != nil {
		return fmt.Errorf("set plan: %w", err)
	}
	return nil
}

func (r *Repository) SetActualStart(ctx context.Context, id int64, at time.Time) error {
	_, err := r.q(ctx).Exec(ctx,
		`UPDATE production_orders SET actual_start = $2, updated_at = now() WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("set actual start: %w", err)
	}
	return nil
}

func (r *Repository) SetActualEnd(ctx context.Context, id int64, at time.Time) error {
	_, err := r.q(ctx).Exec(ctx,
		`UPDATE production_orders SET actual_end = $2, updated_at = now() WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("set actual end: %w", err)
	}
	return nil
}

func (r *Repository) SetProblemNote(ctx context.Context, id int64, note string) error {
	_, err := r.q(ctx).Exec(ctx,
		`UPDATE production_orders SET problem_note = $2, updated_at = now() WHERE id = $1`, id, note)
	if err != nil {
		return fmt.Errorf("set problem note: %w", err)
	}
	return nil
}

func (r *Repository) StatusSummary(ctx context.Context, salesOrderID int64) (StatusSummary, error) {
	var s StatusSummary
	err := r.q(ctx).QueryRow(ctx,
		`SELECT count(*),
		        count(*) FILTER (WHERE status = $2),
		        count(*) FILTER (WHERE status = $3)
		 FROM production_orders WHERE sales_order_id = $1`,
		salesOrderID, StatusCompleted, StatusCancelled,
	).Scan(&s.Total, &s.Completed, &s.Cancelled)
	if err != nil {
		return StatusSummary{}, fmt.Errorf("status summary: %w", err)
	}
	return s, nil
}

func (r *Repository) InsertBatch(ctx context.Context, b Batch) (int64, error) {
	var id int64
	err := r.q(ctx).QueryRow(ctx,
		`INSERT INTO production_batches (production_order_id, finished_good_id, warehouse_id, qty, shipped)
		 VALUES ($1, $2, $3, $4, false) RETURNING id`,
		b.ProductionOrderID, b.FinishedGoodID, b.WarehouseID, b.Qty,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert batch: %w", err)
	}
	return id, nil
}

func (r *Repository) GetBatch(ctx context.Context, id int64) (Batch, error) {
	var b Batch
	err := r.q(ctx).QueryRow(ctx,
		`SELECT id, production_order_id, finished_good_id, warehouse_id, qty, shipped, created_at
		 FROM production_batches WHERE id = $1`, id,
	).Scan(&b.ID, &b.ProductionOrderID, &b.FinishedGoodID, &b.WarehouseID, &b.Qty, &b.Shipped, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Batch{}, fmt.Errorf("%w: batch %d", shared.ErrNotFound, id)
		}
		return Batch{}, fmt.Errorf("get batch: %w", err)
	}
	return b, nil
}

func (r *Repository) ListBatches(ctx context.Context, shippedOnly bool) ([]Batch, error) {
	query := `SELECT id, production_order_id, finished_good_id, warehouse_id, qty, shipped, created_at
		 FROM production_batches`
	if shippedOnly {
		query += ` WHERE shipped`
	}
	query += ` ORDER BY id DESC`

	rows, err := r.q(ctx).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	var out []Batch
	for rows.Next() {
		var b Batch
		if err := rows.Scan(&b.ID, &b.ProductionOrderID, &b.FinishedGoodID, &b.WarehouseID, &b.Qty, &b.Shipped, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repository) MarkBatchShipped(ctx context.Context, id int64) (bool, error) {
	tag, err := r.q(ctx).Exec(ctx,
		`UPDATE production_batches SET shipped = true WHERE id = $1 AND NOT shipped`, id)
	if err != nil {
		return false, fmt.Errorf("mark batch shipped: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
