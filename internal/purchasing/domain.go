// Package purchasing tracks purchase orders from draft through supplier
// delivery into the stock ledger.
package purchasing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a purchase order.
type Status string

const (
	StatusDraft             Status = "DRAFT"
	StatusApproved          Status = "APPROVED"
	StatusSentToSupplier    Status = "SENT_TO_SUPPLIER"
	StatusInTransit         Status = "IN_TRANSIT"
	StatusPartiallyReceived Status = "PARTIALLY_RECEIVED"
	StatusFullyReceived     Status = "FULLY_RECEIVED"
	StatusCompleted         Status = "COMPLETED"
	StatusCancelled         Status = "CANCELLED"
)

// legalTransitions is the closed transition table. Anything absent here is
// rejected.
var legalTransitions = map[Status][]Status{
	StatusDraft:             {StatusApproved, StatusCancelled},
	StatusApproved:          {StatusSentToSupplier, StatusCancelled},
	StatusSentToSupplier:    {StatusInTransit, StatusCancelled},
	StatusInTransit:         {StatusPartiallyReceived, StatusFullyReceived, StatusCompleted, StatusCancelled},
	StatusPartiallyReceived: {StatusPartiallyReceived, StatusFullyReceived, StatusCompleted, StatusCancelled},
	StatusFullyReceived:     {StatusCompleted, StatusCancelled},
	StatusCompleted:         {},
	StatusCancelled:         {},
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to Status) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether s admits no further transitions.
func (s Status) Terminal() bool {
	return len(legalTransitions[s]) == 0
}

// Editable reports whether order fields may still change in state s.
func (s Status) Editable() bool {
	return s == StatusDraft || s == StatusApproved
}

// PurchaseOrder is a supplier order for raw materials.
type PurchaseOrder struct {
	ID             int64     `json:"id" db:"id"`
	Number         string    `json:"number" db:"number"`
	SupplierID     int64     `json:"supplier_id" db:"supplier_id"`
	WarehouseID    int64     `json:"warehouse_id" db:"warehouse_id"`
	Status         Status    `json:"status" db:"status"`
	TrackingNumber *string   `json:"tracking_number,omitempty" db:"tracking_number"`
	Notes          string    `json:"notes" db:"notes"`
	Lines          []Line    `json:"lines"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Line is one ordered material. ReceivedQty accumulates across partial
// deliveries and never exceeds Qty.
type Line struct {
	ID          int64           `json:"id" db:"id"`
	MaterialID  int64           `json:"material_id" db:"material_id"`
	Qty         int64           `json:"qty" db:"qty"`
	ReceivedQty int64           `json:"received_qty" db:"received_qty"`
	UnitPrice   decimal.Decimal `json:"unit_price" db:"unit_price"`
}

// Total returns the order value across all lines.
func (o PurchaseOrder) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(l.UnitPrice.Mul(decimal.NewFromInt(l.Qty)))
	}
	return total
}

// FullyReceived reports whether every line has been delivered in full.
func (o PurchaseOrder) FullyReceived() bool {
	for _, l := range o.Lines {
		if l.ReceivedQty < l.Qty {
			return false
		}
	}
	return len(o.Lines) > 0
}

type CreateLineRequest struct {
	MaterialID int64 `json:"material_id" validate:"required,gt=0"`
	Qty        int64 `json:"qty" validate:"required,gt=0"`
}

type CreateRequest struct {
	SupplierID  int64               `json:"supplier_id" validate:"required,gt=0"`
	WarehouseID int64               `json:"warehouse_id" validate:"required,gt=0"`
	Notes       string              `json:"notes" validate:"max=2000"`
	Lines       []CreateLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type UpdateRequest struct {
	Notes *string             `json:"notes,omitempty" validate:"omitempty,max=2000"`
	Lines []CreateLineRequest `json:"lines,omitempty" validate:"omitempty,min=1,dive"`
}

type ReceiveLineRequest struct {
	LineID int64 `json:"line_id" validate:"required,gt=0"`
	Qty    int64 `json:"qty" validate:"required,gt=0"`
}

type ReceiveRequest struct {
	Lines []ReceiveLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type MarkInTransitRequest struct {
	TrackingNumber string `json:"tracking_number" validate:"required,max=100"`
}

// BatchResult summarises a bulk approval.
type BatchResult struct {
	Approved int            `json:"approved"`
	Failed   []BatchFailure `json:"failed,omitempty"`
}

type BatchFailure struct {
	ID     int64  `json:"id"`
	Reason string `json:"reason"`
}
