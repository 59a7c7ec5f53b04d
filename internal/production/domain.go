// Package production runs manufacturing orders from planning through
// material issue to completed output batches.
package production

import "time"

// Status is the lifecycle state of a production order.
type Status string

const (
	StatusPending            Status = "PENDING"
	StatusPlanned            Status = "PLANNED"
	StatusMaterialsRequested Status = "MATERIALS_REQUESTED"
	StatusMaterialsReceived  Status = "MATERIALS_RECEIVED"
	StatusProductionStarted  Status = "PRODUCTION_STARTED"
	StatusInProgress         Status = "IN_PROGRESS"
	StatusPaused             Status = "PAUSED"
	StatusCompleted          Status = "COMPLETED"
	StatusCancelled          Status = "CANCELLED"
)

var legalTransitions = map[Status][]Status{
	StatusPending:            {StatusPlanned, StatusMaterialsRequested, StatusCancelled},
	StatusPlanned:            {StatusMaterialsRequested, StatusCancelled},
	StatusMaterialsRequested: {StatusMaterialsReceived, StatusCancelled},
	StatusMaterialsReceived:  {StatusProductionStarted, StatusCancelled},
	StatusProductionStarted:  {StatusInProgress, StatusPaused, StatusCompleted, StatusCancelled},
	StatusInProgress:         {StatusPaused, StatusCompleted, StatusCancelled},
	StatusPaused:             {StatusProductionStarted, StatusInProgress, StatusCancelled},
	StatusCompleted:          {},
	StatusCancelled:          {},
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

// OrderType distinguishes customer-driven orders from stock builds.
type OrderType string

const (
	MakeToOrder OrderType = "MAKE_TO_ORDER"
	MakeToStock OrderType = "MAKE_TO_STOCK"
)

// Event is a production lifecycle notification delivered to the sales side.
type Event string

const (
	EventMaterialsRequested Event = "MATERIALS_REQUESTED"
	EventStarted            Event = "STARTED"
	EventCompleted          Event = "COMPLETED"
	EventCancelled          Event = "CANCELLED"
	EventProblemReported    Event = "PROBLEM_REPORTED"
)

// ProductionOrder is one manufacturing run of a single finished good.
// ResumeStatus remembers where a paused run left off.
type ProductionOrder struct {
	ID             int64      `json:"id" db:"id"`
	Number         string     `json:"number" db:"number"`
	Type           OrderType  `json:"type" db:"order_type"`
	SalesOrderID   *int64     `json:"sales_order_id,omitempty" db:"sales_order_id"`
	FinishedGoodID int64      `json:"finished_good_id" db:"finished_good_id"`
	Qty            int64      `json:"qty" db:"qty"`
	WarehouseID    int64      `json:"warehouse_id" db:"warehouse_id"`
	Status         Status     `json:"status" db:"status"`
	ResumeStatus   *Status    `json:"resume_status,omitempty" db:"resume_status"`
	Sector         string     `json:"sector" db:"sector"`
	PlannedStart   *time.Time `json:"planned_start,omitempty" db:"planned_start"`
	PlannedEnd     *time.Time `json:"planned_end,omitempty" db:"planned_end"`
	ActualStart    *time.Time `json:"actual_start,omitempty" db:"actual_start"`
	ActualEnd      *time.Time `json:"actual_end,omitempty" db:"actual_end"`
	ProblemNote    string     `json:"problem_note,omitempty" db:"problem_note"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// Batch is one completed output lot waiting in a warehouse until shipment.
type Batch struct {
	ID                int64     `json:"id" db:"id"`
	ProductionOrderID int64     `json:"production_order_id" db:"production_order_id"`
	FinishedGoodID    int64     `json:"finished_good_id" db:"finished_good_id"`
	WarehouseID       int64     `json:"warehouse_id" db:"warehouse_id"`
	Qty               int64     `json:"qty" db:"qty"`
	Shipped           bool      `json:"shipped" db:"shipped"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}

// StatusSummary counts the production orders attached to one sales order.
type StatusSummary struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
}

// MaterialRequirement is one raw material quantity a run consumes.
type MaterialRequirement struct {
	MaterialID int64 `json:"material_id"`
	Qty        int64 `json:"qty"`
}

// CreateRequest opens a run. Sector may be set up front, letting the run
// request materials straight from PENDING without a planning step.
type CreateRequest struct {
	Type           OrderType `json:"type" validate:"required"`
	SalesOrderID   *int64    `json:"sales_order_id,omitempty"`
	FinishedGoodID int64     `json:"finished_good_id" validate:"required,gt=0"`
	Qty            int64     `json:"qty" validate:"required,gt=0"`
	WarehouseID    int64     `json:"warehouse_id" validate:"required,gt=0"`
	Sector         string    `json:"sector,omitempty" validate:"omitempty,max=100"`
}

type PlanRequest struct {
	Sector       string     `json:"sector" validate:"required,max=100"`
	PlannedStart *time.Time `json:"planned_start,omitempty"`
	PlannedEnd   *time.Time `json:"planned_end,omitempty"`
}

type ProblemRequest struct {
	Note string `json:"note" validate:"required,max=2000"`
}
