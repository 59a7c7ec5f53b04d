package shared

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Business error taxonomy shared across order modules. All of these surface to
// the caller as user-facing failures and must leave no partial writes behind.
var (
	// ErrNotFound indicates a referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition indicates a state change outside the legal-transition table.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrInsufficientStock indicates a ledger decrement would go below zero.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrBomNotDefined indicates a finished good has no bill of materials.
	ErrBomNotDefined = errors.New("bill of materials not defined")
	// ErrPreconditionFailed indicates a missing field or unmet business precondition.
	ErrPreconditionFailed = errors.New("precondition failed")
	// ErrIntegrityConflict indicates a uniqueness violation (duplicate invoice, number).
	ErrIntegrityConflict = errors.New("integrity conflict")
)

// Shortfall describes one raw material that could not be covered.
type Shortfall struct {
	MaterialID int64
	Required   int64
	Available  int64
}

// StockShortage aggregates every shortfall found during a multi-material
// issue so the caller can report all of them at once, not just the first.
type StockShortage struct {
	WarehouseID int64
	Shortfalls  []Shortfall
}

func (e *StockShortage) Error() string {
	parts := make([]string, 0, len(e.Shortfalls))
	for _, s := range e.Shortfalls {
		parts = append(parts, fmt.Sprintf("material %d requires %d, has %d", s.MaterialID, s.Required, s.Available))
	}
	return fmt.Sprintf("insufficient stock in warehouse %d: %s", e.WarehouseID, strings.Join(parts, "; "))
}

// Unwrap lets callers match the shortage with errors.Is(err, ErrInsufficientStock).
func (e *StockShortage) Unwrap() error {
	return ErrInsufficientStock
}

// AsStockShortage extracts a StockShortage from an error chain.
func AsStockShortage(err error) (*StockShortage, bool) {
	var shortage *StockShortage
	if errors.As(err, &shortage) {
		return shortage, true
	}
	return nil, false
}

// IsUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
