// Package bom stores bills of materials and resolves them into raw material
// requirements for a production quantity.
package bom

import "time"

// BOM is the recipe for one finished good.
type BOM struct {
	FinishedGoodID int64     `json:"finished_good_id" db:"finished_good_id"`
	Lines          []Line    `json:"lines"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Line states how much of one raw material each produced unit consumes.
type Line struct {
	MaterialID int64 `json:"material_id" db:"material_id" validate:"required,gt=0"`
	QtyPerUnit int64 `json:"qty_per_unit" db:"qty_per_unit" validate:"required,gt=0"`
}

// Requirement is the total quantity of one raw material needed for an order.
type Requirement struct {
	MaterialID int64 `json:"material_id"`
	Qty        int64 `json:"qty"`
}

type DefineRequest struct {
	FinishedGoodID int64  `json:"finished_good_id" validate:"required,gt=0"`
	Lines          []Line `json:"lines" validate:"required,min=1,dive"`
}
