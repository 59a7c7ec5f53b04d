package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumenfab/lumenfab/internal/platform/db"
)

// RepositoryPort exposes the ledger persistence primitives used by the
// service layer. TryDeduct is the only way quantity leaves a warehouse; it
// never lets a level go negative.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetQty(ctx context.Context, warehouseID int64, kind ItemKind, itemID int64) (int64, error)
	ListByWarehouse(ctx context.Context, warehouseID int64) ([]StockLevel, error)
	AddQty(ctx context.Context, warehouseID int64, kind ItemKind, itemID int64, qty int64) error
	TryDeduct(ctx context.Context, warehouseID int64, kind ItemKind, itemID int64, qty int64) (bool, error)
	InsertMovement(ctx context.Context, m Movement) error
	ListMovements(ctx context.Context, warehouseID int64, limit int) ([]Movement, error)
}

// Repository persists stock levels and movements in PostgreSQL.
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

// WithTx runs fn inside a repeatable-read transaction, joining any
// transaction already carried by ctx.
func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.RunInTx(ctx, r.pool, fn)
}

// GetQty returns the on-hand quantity. An item with no row has quantity zero.
func (r *Repository) GetQty(ctx context.Context, warehouseID int64, kind ItemKind, itemID int64) (int64, error) {
	var qty int64
	err := r.q(ctx).QueryRow(ctx,
		`SELECT qty FROM stock_levels WHERE warehouse_id = $1 AND item_kind = $2 AND item_id = $3`,
		warehouseID, kind, itemID,
	).Scan(&qty)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get qty: %w", err)
	}
	return qty, nil
}

func (r *Repository) ListByWarehouse(ctx context.Context, warehouseID int64) ([]StockLevel, error) {
	rows, err := r.q(ctx).Query(ctx,
		`SELECT warehouse_id, item_kind, item_id, qty, updated_at
		 FROM stock_levels WHERE warehouse_id = $1 ORDER BY item_kind, item_id`, warehouseID)
	if err != nil {
		return nil, fmt.Errorf("list stock levels: %w", err)
	}
	defer rows.Close()

	var out []StockLevel
	for rows.Next() {
		var l StockLevel
		if err := rows.Scan(&l.WarehouseID, &l.ItemKind, &l.ItemID, &l.Qty, &l.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// AddQty increments the level, creating the row on first receipt.
func (r *Repository) AddQty(ctx context.Context, warehouseID int64, kind ItemKind, itemID int64, qty int64) error {
	_, err := r.q(ctx).Exec(ctx,
		`INSERT INTO stock_levels (warehouse_id, item_kind, item_id, qty)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (warehouse_id, item_kind, item_id)
		 DO UPDATE SET qty = stock_levels.qty + EXCLUDED.qty, updated_at = now()`,
		warehouseID, kind, itemID, qty)
	if err != nil {
		return fmt.Errorf("add qty: %w", err)
	}
	return nil
}

// TryDeduct decrements the level only if enough stock is on hand. The
// predicate rides in the UPDATE itself, so two concurrent issues can never
// both succeed against the last units.
func (r *Repository) TryDeduct(ctx context.Context, warehouseID int64, kind ItemKind, itemID int64, qty int64) (bool, error) {
	tag, err := r.q(ctx).Exec(ctx,
		`UPDATE stock_levels SET qty = qty - $4, updated_at = now()
		 WHERE warehouse_id = $1 AND item_kind = $2 AND item_id = $3 AND qty >= $4`,
		warehouseID, kind, itemID, qty)
	if err != nil {
		return false, fmt.Errorf("deduct qty: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// movementColumns is every stock_movements column except id, in insert order.
const movementColumns = `code, warehouse_id, item_kind, item_id, qty, reason, ref_type, ref_id, at`

func (r *Repository) InsertMovement(ctx context.Context, m Movement) error {
	_, err := r.q(ctx).Exec(ctx,
		`INSERT INTO stock_movements (`+movementColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		m.Code, m.WarehouseID, m.ItemKind, m.ItemID, m.Qty, m.Reason, m.RefType, m.RefID, m.At)
	if err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

func (r *Repository) ListMovements(ctx context.Context, warehouseID int64, limit int) ([]Movement, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.q(ctx).Query(ctx,
		`SELECT id, `+movementColumns+`
		 FROM stock_movements WHERE warehouse_id = $1 ORDER BY id DESC LIMIT $2`,
		warehouseID, limit)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()

	var out []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.Code, &m.WarehouseID, &m.ItemKind, &m.ItemID, &m.Qty, &m.Reason, &m.RefType, &m.RefID, &m.At); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
