package bom

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lumenfab/lumenfab/internal/shared"
)

func TestDefineMergesDuplicateMaterials(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryRepository())

	b, err := svc.Define(ctx, DefineRequest{
		FinishedGoodID: 1,
		Lines: []Line{
			{MaterialID: 10, QtyPerUnit: 2},
			{MaterialID: 11, QtyPerUnit: 1},
			{MaterialID: 10, QtyPerUnit: 3},
		},
	})
	require.NoError(t, err)
	require.Equal(t, []Line{{MaterialID: 10, QtyPerUnit: 5}, {MaterialID: 11, QtyPerUnit: 1}}, b.Lines)
}

func TestResolveScalesByOrderQty(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryRepository())

	_, err := svc.Define(ctx, DefineRequest{
		FinishedGoodID: 1,
		Lines:          []Line{{MaterialID: 10, QtyPerUnit: 4}, {MaterialID: 11, QtyPerUnit: 1}},
	})
	require.NoError(t, err)

	reqs, err := svc.Resolve(ctx, 1, 25)
	require.NoError(t, err)
	require.Equal(t, []Requirement{{MaterialID: 10, Qty: 100}, {MaterialID: 11, Qty: 25}}, reqs)
}

func TestResolveMissingRecipe(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	_, err := svc.Resolve(context.Background(), 99, 10)
	require.ErrorIs(t, err, shared.ErrBomNotDefined)
}

func TestResolveRejectsNonPositiveQty(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	_, err := svc.Resolve(context.Background(), 1, 0)
	require.ErrorIs(t, err, shared.ErrPreconditionFailed)
}

func TestDefineRejectsNonPositiveQtyPerUnit(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	_, err := svc.Define(context.Background(), DefineRequest{
		FinishedGoodID: 1,
		Lines:          []Line{{MaterialID: 10, QtyPerUnit: 0}},
	})
	require.ErrorIs(t, err, shared.ErrPreconditionFailed)
}
