package bom

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumenfab/lumenfab/internal/platform/db"
)

// RepositoryPort exposes BOM persistence used by the service layer.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetLines(ctx context.Context, finishedGoodID int64) ([]Line, error)
	ReplaceLines(ctx context.Context, finishedGoodID int64, lines []Line) error
}

// Repository persists bills of materials in PostgreSQL.
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

func (r *Repository) GetLines(ctx context.Context, finishedGoodID int64) ([]Line, error) {
	rows, err := r.q(ctx).Query(ctx,
		`SELECT material_id, qty_per_unit FROM bom_lines
		 WHERE finished_good_id = $1 ORDER BY material_id`, finishedGoodID)
	if err != nil {
		return nil, fmt.Errorf("get bom lines: %w", err)
	}
	defer rows.Close()

	var out []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.MaterialID, &l.QtyPerUnit); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// ReplaceLines swaps the stored recipe for a fresh set of lines.
func (r *Repository) ReplaceLines(ctx context.Context, finishedGoodID int64, lines []Line) error {
	q := r.q(ctx)
	if _, err := q.Exec(ctx,
		`DELETE FROM bom_lines WHERE finished_good_id = $1`, finishedGoodID); err != nil {
		return fmt.Errorf("clear bom lines: %w", err)
	}
	for _, l := range lines {
		if _, err := q.Exec(ctx,
			`INSERT INTO bom_lines (finished_good_id, material_id, qty_per_unit) VALUES ($1, $2, $3)`,
			finishedGoodID, l.MaterialID, l.QtyPerUnit); err != nil {
			return fmt.Errorf("insert bom line: %w", err)
		}
	}
	return nil
}
