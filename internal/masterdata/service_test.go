package masterdata

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestUpdateReplenishmentPartialFields(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryRepository())

	g, err := svc.CreateFinishedGood(ctx, CreateFinishedGoodRequest{
		SKU:          "FG-001",
		Name:         "Desk lamp",
		UnitPrice:    decimal.NewFromInt(45),
		StockMinimum: 10,
		StockTarget:  50,
	})
	require.NoError(t, err)

	auto := true
	updated, err := svc.UpdateReplenishment(ctx, g.ID, UpdateReplenishmentRequest{AutoReplenish: &auto})
	require.NoError(t, err)
	require.True(t, updated.AutoReplenish)
	require.Equal(t, int64(10), updated.StockMinimum)
	require.Equal(t, int64(50), updated.StockTarget)
}

func TestCreateSupplierOfferRequiresSupplierAndMaterial(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	svc := NewService(repo)

	_, err := svc.CreateSupplierOffer(ctx, CreateSupplierOfferRequest{
		SupplierID: 99, MaterialID: 1, UnitPrice: decimal.NewFromInt(3),
	})
	require.Error(t, err)

	sup, err := svc.CreateSupplier(ctx, CreateSupplierRequest{Name: "Acme Metals"})
	require.NoError(t, err)
	mat, err := svc.CreateRawMaterial(ctx, CreateRawMaterialRequest{SKU: "RM-001", Name: "Steel plate"})
	require.NoError(t, err)

	offer, err := svc.CreateSupplierOffer(ctx, CreateSupplierOfferRequest{
		SupplierID: sup.ID, MaterialID: mat.ID, UnitPrice: decimal.NewFromFloat(3.5), LeadTimeDays: 7,
	})
	require.NoError(t, err)
	require.Equal(t, sup.ID, offer.SupplierID)
}

func TestSuggestedReplenishment(t *testing.T) {
	g := FinishedGood{StockMinimum: 10, StockTarget: 40, AutoReplenish: true}

	require.Equal(t, int64(35), g.SuggestedReplenishment(5))
	require.Equal(t, int64(30), g.SuggestedReplenishment(10))
	require.Equal(t, int64(0), g.SuggestedReplenishment(11))

	g.AutoReplenish = false
	require.Equal(t, int64(0), g.SuggestedReplenishment(5))
}
