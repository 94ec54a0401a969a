package persistence_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/commerce-sdk/modules/inventory/domain/aggregates/inventory"
	"github.com/iota-uz/commerce-sdk/modules/inventory/infrastructure/persistence"
)

func TestInmemInventoryRepository_SaveReservationIsInsertOnly(t *testing.T) {
	t.Parallel()
	repo := persistence.NewInmemInventoryRepository()
	ctx := context.Background()
	lines := []inventory.Line{{SKU: "A", Quantity: 2}}

	require.NoError(t, repo.SaveReservation(ctx, inventory.NewReservation("ORD-1", lines)))

	err := repo.SaveReservation(ctx, inventory.NewReservation("ORD-1", []inventory.Line{{SKU: "A", Quantity: 4}}))
	require.ErrorIs(t, err, inventory.ErrReservationExists)

	stored, err := repo.GetReservation(ctx, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, lines, stored.Lines(), "losing insert must not overwrite the stored reservation")
}

func TestInmemInventoryRepository_UpdateReservation(t *testing.T) {
	t.Parallel()
	repo := persistence.NewInmemInventoryRepository()
	ctx := context.Background()

	err := repo.UpdateReservation(ctx, inventory.NewReservation("ORD-1", nil))
	require.ErrorIs(t, err, inventory.ErrReservationNotFound)

	reservation := inventory.NewReservation("ORD-1", []inventory.Line{{SKU: "A", Quantity: 2}})
	require.NoError(t, repo.SaveReservation(ctx, reservation))
	require.NoError(t, repo.UpdateReservation(ctx, reservation.Confirm()))

	stored, err := repo.GetReservation(ctx, "ORD-1")
	require.NoError(t, err)
	assert.True(t, stored.Confirmed())
}
