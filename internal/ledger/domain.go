// Package ledger keeps the authoritative per-warehouse stock levels and the
// append-only movement trail behind every quantity change.
package ledger

import (
	"time"

	"github.com/google/uuid"
)

// ItemKind distinguishes the two stock populations tracked by the ledger.
type ItemKind string

const (
	ItemRawMaterial  ItemKind = "RAW_MATERIAL"
	ItemFinishedGood ItemKind = "FINISHED_GOOD"
)

// Valid reports whether k is a known item kind.
func (k ItemKind) Valid() bool {
	return k == ItemRawMaterial || k == ItemFinishedGood
}

// MovementReason explains why a stock level changed.
type MovementReason string

const (
	ReasonAdjustment       MovementReason = "ADJUSTMENT"
	ReasonMaterialIssue    MovementReason = "MATERIAL_ISSUE"
	ReasonProductionOutput MovementReason = "PRODUCTION_OUTPUT"
	ReasonPurchaseReceipt  MovementReason = "PURCHASE_RECEIPT"
	ReasonShipment         MovementReason = "SHIPMENT"
	ReasonTransferOut      MovementReason = "TRANSFER_OUT"
	ReasonTransferIn       MovementReason = "TRANSFER_IN"
)

// StockLevel is the current on-hand quantity for one item in one warehouse.
type StockLevel struct {
	WarehouseID int64     `json:"warehouse_id" db:"warehouse_id"`
	ItemKind    ItemKind  `json:"item_kind" db:"item_kind"`
	ItemID      int64     `json:"item_id" db:"item_id"`
	Qty         int64     `json:"qty" db:"qty"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Movement is one committed quantity change. Qty is signed: positive for
// receipts, negative for issues.
type Movement struct {
	ID          int64          `json:"id" db:"id"`
	Code        uuid.UUID      `json:"code" db:"code"`
	WarehouseID int64          `json:"warehouse_id" db:"warehouse_id"`
	ItemKind    ItemKind       `json:"item_kind" db:"item_kind"`
	ItemID      int64          `json:"item_id" db:"item_id"`
	Qty         int64          `json:"qty" db:"qty"`
	Reason      MovementReason `json:"reason" db:"reason"`
	RefType     string         `json:"ref_type,omitempty" db:"ref_type"`
	RefID       int64          `json:"ref_id,omitempty" db:"ref_id"`
	At          time.Time      `json:"at" db:"at"`
}

// Ref identifies the document that caused a movement.
type Ref struct {
	Type string
	ID   int64
}

// ItemQty is one line of a batch issue.
type ItemQty struct {
	ItemID int64 `json:"item_id" validate:"required,gt=0"`
	Qty    int64 `json:"qty" validate:"required,gt=0"`
}

type AdjustRequest struct {
	WarehouseID int64    `json:"warehouse_id" validate:"required,gt=0"`
	ItemKind    ItemKind `json:"item_kind" validate:"required"`
	ItemID      int64    `json:"item_id" validate:"required,gt=0"`
	Qty         int64    `json:"qty" validate:"required"`
}

type TransferRequest struct {
	FromWarehouseID int64    `json:"from_warehouse_id" validate:"required,gt=0"`
	ToWarehouseID   int64    `json:"to_warehouse_id" validate:"required,gt=0"`
	ItemKind        ItemKind `json:"item_kind" validate:"required"`
	ItemID          int64    `json:"item_id" validate:"required,gt=0"`
	Qty             int64    `json:"qty" validate:"required,gt=0"`
}
