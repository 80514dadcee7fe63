// Package repositorytest holds the behaviour every repository.Store backend must share.
package repositorytest

import (
	"context"
	"testing"
	"time"

	"yard_parking/internal/domain"
	"yard_parking/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v4"
)

func ptr[T any](v T) *T { return &v }

func seedSlot(t *testing.T, store *repository.Store, number string, tt domain.TransportType, status domain.SlotStatus) {
	t.Helper()
	_, err := store.Slots.Create(context.Background(), &domain.Slot{SlotNumber: number, TransportType: tt, Status: status})
	require.NoError(t, err)
}

func assignment(id, slot, vehicle string) *domain.Assignment {
	return &domain.Assignment{
		ID:            id,
		SlotNumber:    slot,
		VehicleNumber: vehicle,
		DriverName:    "Ravi Kumar",
		PhoneNumber:   "9876543210",
		TransportType: domain.TransportInward,
		CheckInTime:   time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC),
	}
}

// Run exercises a fresh store from newStore for every sub-test.
func Run(t *testing.T, newStore func(t *testing.T) *repository.Store) {
	ctx := context.Background()

	t.Run("slots filter by status and transport type", func(t *testing.T) {
		store := newStore(t)
		seedSlot(t, store, "A1", domain.TransportInward, domain.StatusAvailable)
		seedSlot(t, store, "A2", domain.TransportInward, domain.StatusOccupied)
		seedSlot(t, store, "B1", domain.TransportOutward, domain.StatusAvailable)

		got, err := store.Slots.Find(ctx, repository.SlotFilter{
			Status:        ptr(domain.StatusAvailable),
			TransportType: ptr(domain.TransportInward),
		})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "A1", got[0].SlotNumber)

		all, err := store.Slots.Find(ctx, repository.SlotFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("duplicate slot number is rejected", func(t *testing.T) {
		store := newStore(t)
		seedSlot(t, store, "A1", domain.TransportInward, domain.StatusAvailable)
		_, err := store.Slots.Create(ctx, &domain.Slot{SlotNumber: "A1", TransportType: domain.TransportOutward, Status: domain.StatusAvailable})
		assert.ErrorIs(t, err, repository.ErrDuplicateEntry)
	})

	t.Run("slot status update", func(t *testing.T) {
		store := newStore(t)
		seedSlot(t, store, "A1", domain.TransportInward, domain.StatusAvailable)

		require.NoError(t, store.Slots.UpdateStatus(ctx, "A1", domain.StatusReserved))
		slot, err := store.Slots.FindByNumber(ctx, "A1")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusReserved, slot.Status)
		assert.True(t, slot.LastChangedAt.Valid)

		assert.ErrorIs(t, store.Slots.UpdateStatus(ctx, "Z9", domain.StatusOccupied), repository.ErrNotFound)
		_, err = store.Slots.FindByNumber(ctx, "Z9")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("assignment create is conditional on vehicle and slot", func(t *testing.T) {
		store := newStore(t)
		seedSlot(t, store, "A1", domain.TransportInward, domain.StatusAvailable)
		seedSlot(t, store, "A2", domain.TransportInward, domain.StatusAvailable)

		_, err := store.Assignments.Create(ctx, assignment("a-1", "A1", "AP12BG1234"))
		require.NoError(t, err)

		_, err = store.Assignments.Create(ctx, assignment("a-2", "A2", "AP12BG1234"))
		assert.ErrorIs(t, err, repository.ErrVehicleTaken)
		assert.ErrorIs(t, err, repository.ErrDuplicateEntry)

		_, err = store.Assignments.Create(ctx, assignment("a-3", "A1", "TS09EA4321"))
		assert.ErrorIs(t, err, repository.ErrSlotTaken)

		live, err := store.Assignments.Find(ctx, repository.AssignmentFilter{})
		require.NoError(t, err)
		assert.Len(t, live, 1)
	})

	t.Run("assignment lookup, move and delete", func(t *testing.T) {
		store := newStore(t)
		seedSlot(t, store, "A1", domain.TransportInward, domain.StatusOccupied)
		seedSlot(t, store, "A2", domain.TransportInward, domain.StatusAvailable)
		seedSlot(t, store, "A3", domain.TransportInward, domain.StatusOccupied)

		_, err := store.Assignments.Create(ctx, assignment("a-1", "A1", "AP12BG1234"))
		require.NoError(t, err)
		_, err = store.Assignments.Create(ctx, assignment("a-3", "A3", "TS09EA4321"))
		require.NoError(t, err)

		got, err := store.Assignments.FindByID(ctx, "a-1")
		require.NoError(t, err)
		assert.Equal(t, "AP12BG1234", got.VehicleNumber)
		assert.True(t, got.CheckInTime.Equal(assignment("", "", "").CheckInTime))

		byVehicle, err := store.Assignments.Find(ctx, repository.AssignmentFilter{VehicleNumber: ptr("AP12BG1234")})
		require.NoError(t, err)
		require.Len(t, byVehicle, 1)

		assert.ErrorIs(t, store.Assignments.UpdateSlot(ctx, "a-1", "A3"), repository.ErrSlotTaken)
		require.NoError(t, store.Assignments.UpdateSlot(ctx, "a-1", "A2"))
		moved, err := store.Assignments.FindByID(ctx, "a-1")
		require.NoError(t, err)
		assert.Equal(t, "A2", moved.SlotNumber)

		require.NoError(t, store.Assignments.Delete(ctx, "a-1"))
		assert.ErrorIs(t, store.Assignments.Delete(ctx, "a-1"), repository.ErrNotFound)
		_, err = store.Assignments.FindByID(ctx, "a-1")
		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.ErrorIs(t, store.Assignments.UpdateSlot(ctx, "a-1", "A1"), repository.ErrNotFound)

		// the vehicle is free again once its assignment is gone
		_, err = store.Assignments.Create(ctx, assignment("a-4", "A1", "AP12BG1234"))
		assert.NoError(t, err)
	})

	t.Run("history is append only and filterable", func(t *testing.T) {
		store := newStore(t)
		a := assignment("a-1", "A1", "AP12BG1234")
		rec := &domain.HistoryRecord{
			ID: "h-1", SlotNumber: a.SlotNumber, VehicleNumber: a.VehicleNumber, DriverName: a.DriverName,
			PhoneNumber: a.PhoneNumber, TransportType: a.TransportType, CheckInTime: a.CheckInTime,
			CheckOutTime: a.CheckInTime.Add(2 * time.Hour),
		}
		_, err := store.History.Create(ctx, rec)
		require.NoError(t, err)
		_, err = store.History.Create(ctx, rec)
		assert.ErrorIs(t, err, repository.ErrDuplicateEntry)

		got, err := store.History.Find(ctx, repository.HistoryFilter{SlotNumber: ptr("A1")})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.True(t, got[0].CheckOutTime.Equal(rec.CheckOutTime))

		none, err := store.History.Find(ctx, repository.HistoryFilter{VehicleNumber: ptr("KA01AB0001")})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("reservations by date and delete", func(t *testing.T) {
		store := newStore(t)
		today := &domain.Reservation{ID: "r-1", SlotNumber: "A1", ReserveDate: "2026-10-19", VehicleNumber: null.StringFrom("KA01AB1234")}
		later := &domain.Reservation{ID: "r-2", SlotNumber: "A2", ReserveDate: "2026-10-20"}
		_, err := store.Reservations.Create(ctx, today)
		require.NoError(t, err)
		_, err = store.Reservations.Create(ctx, later)
		require.NoError(t, err)

		got, err := store.Reservations.Find(ctx, repository.ReservationFilter{ReserveDate: ptr("2026-10-19")})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "r-1", got[0].ID)
		assert.Equal(t, "KA01AB1234", got[0].VehicleNumber.String)
		assert.False(t, got[0].DriverName.Valid)

		found, err := store.Reservations.FindByID(ctx, "r-2")
		require.NoError(t, err)
		assert.Equal(t, "A2", found.SlotNumber)

		require.NoError(t, store.Reservations.Delete(ctx, "r-1"))
		assert.ErrorIs(t, store.Reservations.Delete(ctx, "r-1"), repository.ErrNotFound)
		all, err := store.Reservations.Find(ctx, repository.ReservationFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})
}
