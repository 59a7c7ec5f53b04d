// Package masterdata manages the catalog entities the order flows depend on:
// warehouses, customers, suppliers, raw materials, finished goods and
// supplier offers.
package masterdata

import (
	"time"

	"github.com/shopspring/decimal"
)

type Warehouse struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Location  string    `json:"location" db:"location"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Customer struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     *string   `json:"email,omitempty" db:"email"`
	Phone     *string   `json:"phone,omitempty" db:"phone"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Supplier struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     *string   `json:"email,omitempty" db:"email"`
	Phone     *string   `json:"phone,omitempty" db:"phone"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type RawMaterial struct {
	ID           int64           `json:"id" db:"id"`
	SKU          string          `json:"sku" db:"sku"`
	Name         string          `json:"name" db:"name"`
	UnitPrice    decimal.Decimal `json:"unit_price" db:"unit_price"`
	StockMinimum int64           `json:"stock_minimum" db:"stock_minimum"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

type FinishedGood struct {
	ID            int64           `json:"id" db:"id"`
	SKU           string          `json:"sku" db:"sku"`
	Name          string          `json:"name" db:"name"`
	UnitPrice     decimal.Decimal `json:"unit_price" db:"unit_price"`
	StockMinimum  int64           `json:"stock_minimum" db:"stock_minimum"`
	StockTarget   int64           `json:"stock_target" db:"stock_target"`
	AutoReplenish bool            `json:"auto_replenish" db:"auto_replenish"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// SuggestedReplenishment returns how many units a stock build order should
// produce to bring onHand up to the configured target. Zero means no order
// is needed.
func (g FinishedGood) SuggestedReplenishment(onHand int64) int64 {
	if !g.AutoReplenish || onHand > g.StockMinimum {
		return 0
	}
	if suggestion := g.StockTarget - onHand; suggestion > 0 {
		return suggestion
	}
	return 0
}

// SupplierOffer is a supplier's standing price for one raw material.
type SupplierOffer struct {
	ID           int64           `json:"id" db:"id"`
	SupplierID   int64           `json:"supplier_id" db:"supplier_id"`
	MaterialID   int64           `json:"material_id" db:"material_id"`
	UnitPrice    decimal.Decimal `json:"unit_price" db:"unit_price"`
	LeadTimeDays int32           `json:"lead_time_days" db:"lead_time_days"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

type CreateWarehouseRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Location string `json:"location" validate:"max=200"`
}

type CreateCustomerRequest struct {
	Name  string  `json:"name" validate:"required,max=200"`
	Email *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone *string `json:"phone,omitempty" validate:"omitempty,max=50"`
}

type CreateSupplierRequest struct {
	Name  string  `json:"name" validate:"required,max=200"`
	Email *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone *string `json:"phone,omitempty" validate:"omitempty,max=50"`
}

type CreateRawMaterialRequest struct {
	SKU          string          `json:"sku" validate:"required,max=50"`
	Name         string          `json:"name" validate:"required,max=200"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	StockMinimum int64           `json:"stock_minimum" validate:"gte=0"`
}

type CreateFinishedGoodRequest struct {
	SKU           string          `json:"sku" validate:"required,max=50"`
	Name          string          `json:"name" validate:"required,max=200"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	StockMinimum  int64           `json:"stock_minimum" validate:"gte=0"`
	StockTarget   int64           `json:"stock_target" validate:"gte=0"`
	AutoReplenish bool            `json:"auto_replenish"`
}

type UpdateReplenishmentRequest struct {
	StockMinimum  *int64 `json:"stock_minimum,omitempty" validate:"omitempty,gte=0"`
	StockTarget   *int64 `json:"stock_target,omitempty" validate:"omitempty,gte=0"`
	AutoReplenish *bool  `json:"auto_replenish,omitempty"`
}

type CreateSupplierOfferRequest struct {
	SupplierID   int64           `json:"supplier_id" validate:"required,gt=0"`
	MaterialID   int64           `json:"material_id" validate:"required,gt=0"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	LeadTimeDays int32           `json:"lead_time_days" validate:"gte=0"`
}
