// Package sales manages customer orders, their production-driven status
// aggregation, invoicing and delivery.
package sales

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a sales order.
type Status string

const (
	StatusPending              Status = "PENDING"
	StatusConfirmed            Status = "CONFIRMED"
	StatusMaterialsRequested   Status = "MATERIALS_REQUESTED"
	StatusProductionStarted    Status = "PRODUCTION_STARTED"
	StatusProductionWithIssues Status = "PRODUCTION_WITH_ISSUES"
	StatusReadyForDelivery     Status = "READY_FOR_DELIVERY"
	StatusCompleted            Status = "COMPLETED"
	StatusCancelled            Status = "CANCELLED"
)

// statusRank orders the forward progression of a sales order. Aggregated
// production events may only move an order to a higher rank, never back.
var statusRank = map[Status]int{
	StatusPending:              0,
	StatusConfirmed:            1,
	StatusMaterialsRequested:   2,
	StatusProductionStarted:    3,
	StatusProductionWithIssues: 4,
	StatusReadyForDelivery:     5,
	StatusCompleted:            6,
}

// Advances reports whether moving from to next is a forward step.
func Advances(from, next Status) bool {
	return statusRank[next] > statusRank[from]
}

// Terminal reports whether s admits no further changes.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Cancellable reports whether the order may still be aborted. Only delivered
// or already cancelled orders are past the point of no return.
func (s Status) Cancellable() bool {
	return !s.Terminal()
}

// ProductionEvent mirrors the lifecycle notifications arriving from the
// production side.
type ProductionEvent string

const (
	EventMaterialsRequested ProductionEvent = "MATERIALS_REQUESTED"
	EventStarted            ProductionEvent = "STARTED"
	EventCompleted          ProductionEvent = "COMPLETED"
	EventCancelled          ProductionEvent = "CANCELLED"
	EventProblemReported    ProductionEvent = "PROBLEM_REPORTED"
)

// SalesOrder is one customer order fulfilled from a single warehouse.
type SalesOrder struct {
	ID          int64     `json:"id" db:"id"`
	Number      string    `json:"number" db:"number"`
	CustomerID  int64     `json:"customer_id" db:"customer_id"`
	WarehouseID int64     `json:"warehouse_id" db:"warehouse_id"`
	Status      Status    `json:"status" db:"status"`
	Notes       string    `json:"notes" db:"notes"`
	Lines       []Line    `json:"lines"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Line is one ordered finished good at the price captured when the order was
// placed.
type Line struct {
	ID             int64           `json:"id" db:"id"`
	FinishedGoodID int64           `json:"finished_good_id" db:"finished_good_id"`
	Qty            int64           `json:"qty" db:"qty"`
	UnitPrice      decimal.Decimal `json:"unit_price" db:"unit_price"`
}

// Total returns the order value across all lines.
func (o SalesOrder) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(l.UnitPrice.Mul(decimal.NewFromInt(l.Qty)))
	}
	return total
}

// Invoice is the single bill issued for one sales order.
type Invoice struct {
	ID           int64           `json:"id" db:"id"`
	Number       string          `json:"number" db:"number"`
	SalesOrderID int64           `json:"sales_order_id" db:"sales_order_id"`
	Total        decimal.Decimal `json:"total" db:"total"`
	IssuedAt     time.Time       `json:"issued_at" db:"issued_at"`
}

// HistoryEvent is one append-only entry in an order's timeline.
type HistoryEvent struct {
	ID           int64     `json:"id" db:"id"`
	SalesOrderID int64     `json:"sales_order_id" db:"sales_order_id"`
	Kind         string    `json:"kind" db:"kind"`
	Description  string    `json:"description" db:"description"`
	At           time.Time `json:"at" db:"at"`
}

// ProductionSummary counts the production runs backing one sales order.
type ProductionSummary struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
}

// Open returns how many runs are neither completed nor cancelled.
func (s ProductionSummary) Open() int {
	return s.Total - s.Completed - s.Cancelled
}

// CreateLineRequest is one ordered line. FromStock lines are fulfilled from
// finished-good inventory and open no production run.
type CreateLineRequest struct {
	FinishedGoodID int64 `json:"finished_good_id" validate:"required,gt=0"`
	Qty            int64 `json:"qty" validate:"required,gt=0"`
	FromStock      bool  `json:"from_stock"`
}

type CreateRequest struct {
	CustomerID  int64               `json:"customer_id" validate:"required,gt=0"`
	WarehouseID int64               `json:"warehouse_id" validate:"required,gt=0"`
	Notes       string              `json:"notes" validate:"max=2000"`
	Lines       []CreateLineRequest `json:"lines" validate:"required,min=1,dive"`
}
