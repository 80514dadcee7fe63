package service

import (
	"context"
	"errors"
	"testing"

	"yard_parking/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotRegistry_Transition(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	fx.slot(t, "A1", domain.TransportInward, domain.StatusAvailable)

	moved, err := fx.yard.Registry.Transition(ctx, "A1", domain.EventReserve, "test")
	require.NoError(t, err)
	assert.True(t, moved)

	before := fx.faults.count()
	moved, err = fx.yard.Registry.Transition(ctx, "A1", domain.EventReserve, "test")
	require.NoError(t, err)
	assert.False(t, moved)
	assert.Equal(t, before+1, fx.faults.count(), "a repeated event only reads")

	_, err = fx.yard.Registry.Transition(ctx, "A1", domain.EventVacate, "test")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, domain.StatusReserved, fx.status(t, "A1"))

	_, err = fx.yard.Registry.Transition(ctx, "Z9", domain.EventOccupy, "test")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSlotRegistry_SetStatus(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	fx.slot(t, "A1", domain.TransportInward, domain.StatusAvailable)
	fx.observer.err = errors.New("board offline")

	require.NoError(t, fx.yard.Registry.SetStatus(ctx, "A1", domain.StatusOccupied, "manual"))
	assert.Equal(t, domain.StatusOccupied, fx.status(t, "A1"))
	assert.Len(t, fx.observer.seen(), 1, "observer errors are swallowed")

	assert.ErrorIs(t, fx.yard.Registry.SetStatus(ctx, "Z9", domain.StatusOccupied, "manual"), ErrNotFound)
	assert.ErrorIs(t, fx.yard.Registry.SetStatus(ctx, "A1", domain.SlotStatus("Broken"), "manual"), ErrValidationFailed)

	fx.faults.failOn("slots.UpdateStatus")
	assert.ErrorIs(t, fx.yard.Registry.SetStatus(ctx, "A1", domain.StatusAvailable, "manual"), ErrRemoteFailure)
}

func TestSlotRegistry_ListAvailable(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	fx.slot(t, "A1", domain.TransportInward, domain.StatusAvailable)
	fx.slot(t, "A2", domain.TransportInward, domain.StatusOccupied)
	fx.slot(t, "A3", domain.TransportInward, domain.StatusAvailable)
	fx.slot(t, "B1", domain.TransportOutward, domain.StatusAvailable)

	seq := fx.yard.Registry.ListAvailable(ctx, domain.TransportInward)
	collect := func() []string {
		var got []string
		for slot, err := range seq {
			require.NoError(t, err)
			got = append(got, slot.SlotNumber)
		}
		return got
	}

	assert.Equal(t, []string{"A1", "A3"}, collect())

	require.NoError(t, fx.raw.Slots.UpdateStatus(ctx, "A3", domain.StatusOccupied))
	assert.Equal(t, []string{"A1"}, collect(), "each range queries the store again")

	for slot, err := range seq {
		require.NoError(t, err)
		assert.Equal(t, "A1", slot.SlotNumber)
		break
	}

	for _, err := range fx.yard.Registry.ListAvailable(ctx, domain.TransportType("Sideways")) {
		assert.ErrorIs(t, err, ErrValidationFailed)
	}

	fx.faults.failOn("slots.Find")
	for _, err := range seq {
		assert.ErrorIs(t, err, ErrRemoteFailure)
	}
}

func TestSlotRegistry_CountsAndProvision(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)

	slot, err := fx.yard.Registry.Provision(ctx, domain.SlotDTO{SlotNumber: " C7 ", TransportType: "Outward"})
	require.NoError(t, err)
	assert.Equal(t, "C7", slot.SlotNumber)
	assert.Equal(t, domain.StatusAvailable, slot.Status)

	_, err = fx.yard.Registry.Provision(ctx, domain.SlotDTO{SlotNumber: "C7", TransportType: "Outward"})
	assert.ErrorIs(t, err, ErrValidationFailed)
	_, err = fx.yard.Registry.Provision(ctx, domain.SlotDTO{SlotNumber: "C8", TransportType: "Up"})
	assert.ErrorIs(t, err, ErrValidationFailed)

	fx.slot(t, "A1", domain.TransportInward, domain.StatusOccupied)
	fx.slot(t, "A2", domain.TransportInward, domain.StatusReserved)

	stats, err := fx.yard.Registry.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.SlotStats{Available: 1, Occupied: 1, Reserved: 1, Total: 3}, stats)
}
