package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"yard_parking/internal/domain"
	"yard_parking/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v4"
)

func TestAssign(t *testing.T) {
	ctx := context.Background()

	t.Run("assigns an available slot and notifies the driver", func(t *testing.T) {
		fx := newFixture(t)
		fx.slot(t, "A1", domain.TransportInward, domain.StatusAvailable)
		fx.notifier.On("SendAssignmentNotice", mock.Anything, domain.AssignmentNotice{
			DriverName: "Ravi Kumar", PhoneNumber: "9876543210", VehicleNumber: "AP12BG1234", SlotNumber: "A1",
		}).Return(nil).Once()
		fx.notifier.On("PrintAssignmentReceipt", mock.Anything, mock.MatchedBy(func(r domain.AssignmentReceipt) bool {
			return r.SlotNumber == "A1" && r.VehicleNumber == "AP12BG1234" && r.AssignmentID != ""
		})).Return(nil).Once()

		a, err := fx.yard.Coordinator.Assign(ctx, raviInput("A1"))
		require.NoError(t, err)

		assert.NotEmpty(t, a.ID)
		assert.True(t, a.CheckInTime.Equal(testNow))
		assert.Equal(t, domain.StatusOccupied, fx.status(t, "A1"))

		live := fx.liveAssignments(t)
		require.Len(t, live, 1)
		assert.Equal(t, "AP12BG1234", live[0].VehicleNumber)
		assert.Equal(t, "Ravi Kumar", live[0].DriverName)
		assert.Equal(t, "9876543210", live[0].PhoneNumber)
		assert.Equal(t, domain.TransportInward, live[0].TransportType)
		assert.Equal(t, "A1", live[0].SlotNumber)

		changes := fx.observer.seen()
		require.Len(t, changes, 1)
		assert.Equal(t, domain.StatusAvailable, changes[0].From)
		assert.Equal(t, domain.StatusOccupied, changes[0].To)
		assert.Equal(t, "assign", changes[0].Source)
	})

	t.Run("malformed input fails before any store call", func(t *testing.T) {
		fx := newFixture(t)
		fx.slot(t, "A1", domain.TransportInward, domain.StatusAvailable)
		in := raviInput("A1")
		in.PhoneNumber = "98765"

		_, err := fx.yard.Coordinator.Assign(ctx, in)
		require.ErrorIs(t, err, ErrValidationFailed)

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "phone_number", verr.Fields[0].Field)
		assert.Zero(t, fx.faults.count())
		assert.Equal(t, domain.StatusAvailable, fx.status(t, "A1"))
	})

	t.Run("vehicle already assigned elsewhere", func(t *testing.T) {
		fx := newFixture(t)
		fx.slot(t, "A1", domain.TransportInward, domain.StatusAvailable)
		fx.slot(t, "A2", domain.TransportInward, domain.StatusAvailable)
		fx.expectNotifications()
		_, err := fx.yard.Coordinator.Assign(ctx, raviInput("A1"))
		require.NoError(t, err)

		_, err = fx.yard.Coordinator.Assign(ctx, raviInput("A2"))
		require.ErrorIs(t, err, ErrVehicleAlreadyAssigned)
		assert.Len(t, fx.liveAssignments(t), 1)
		assert.Equal(t, domain.StatusAvailable, fx.status(t, "A2"))
	})

	t.Run("slot rules", func(t *testing.T) {
		fx := newFixture(t)
		fx.slot(t, "A1", domain.TransportInward, domain.StatusOccupied)
		fx.slot(t, "A2", domain.TransportInward, domain.StatusReserved)
		fx.slot(t, "B1", domain.TransportOutward, domain.StatusAvailable)

		_, err := fx.yard.Coordinator.Assign(ctx, raviInput("A1"))
		assert.ErrorIs(t, err, ErrSlotUnavailable)
		_, err = fx.yard.Coordinator.Assign(ctx, raviInput("A2"))
		assert.ErrorIs(t, err, ErrSlotUnavailable)
		_, err = fx.yard.Coordinator.Assign(ctx, raviInput("B1"))
		assert.ErrorIs(t, err, ErrValidationFailed)
		_, err = fx.yard.Coordinator.Assign(ctx, raviInput("Z9"))
		assert.ErrorIs(t, err, ErrNotFound)

		assert.Empty(t, fx.liveAssignments(t))
	})

	t.Run("slot write failure leaves the assignment live and is healed later", func(t *testing.T) {
		fx := newFixture(t)
		fx.slot(t, "A1", domain.TransportInward, domain.StatusAvailable)
		fx.faults.failOn("slots.UpdateStatus")

		a, err := fx.yard.Coordinator.Assign(ctx, raviInput("A1"))
		require.ErrorIs(t, err, ErrRemoteFailure)
		require.NotNil(t, a, "the created assignment is still reported")
		assert.Len(t, fx.liveAssignments(t), 1)
		assert.Equal(t, domain.StatusAvailable, fx.status(t, "A1"))

		fx.faults.fail = nil
		n, err := fx.yard.Healer.Heal(ctx, today)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, domain.StatusOccupied, fx.status(t, "A1"))
	})

	t.Run("notification failures do not affect the result", func(t *testing.T) {
		fx := newFixture(t)
		fx.slot(t, "A1", domain.TransportInward, domain.StatusAvailable)
		fx.notifier.On("SendAssignmentNotice", mock.Anything, mock.Anything).Return(errors.New("queue down")).Once()
		fx.notifier.On("PrintAssignmentReceipt", mock.Anything, mock.Anything).Return(errors.New("bucket gone")).Once()

		a, err := fx.yard.Coordinator.Assign(ctx, raviInput("A1"))
		require.NoError(t, err)
		assert.Equal(t, "A1", a.SlotNumber)
	})

	t.Run("concurrent callers bind a vehicle once", func(t *testing.T) {
		fx := newFixture(t)
		fx.expectNotifications()
		const callers = 20
		for i := 0; i < callers; i++ {
			fx.slot(t, fmt.Sprintf("S%02d", i), domain.TransportInward, domain.StatusAvailable)
		}

		var wg sync.WaitGroup
		errs := make([]error, callers)
		wg.Add(callers)
		for i := 0; i < callers; i++ {
			go func(i int) {
				defer wg.Done()
				_, errs[i] = fx.yard.Coordinator.Assign(ctx, raviInput(fmt.Sprintf("S%02d", i)))
			}(i)
		}
		wg.Wait()

		wins := 0
		for _, err := range errs {
			if err == nil {
				wins++
				continue
			}
			assert.ErrorIs(t, err, ErrVehicleAlreadyAssigned)
		}
		assert.Equal(t, 1, wins)
		assert.Len(t, fx.liveAssignments(t), 1)

		stats, err := fx.yard.Registry.Counts(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Occupied)
	})
}

func TestUnassign(t *testing.T) {
	ctx := context.Background()

	t.Run("moves the assignment into history and frees the slot", func(t *testing.T) {
		fx := newFixture(t)
		fx.slot(t, "A1", domain.TransportInward, domain.StatusAvailable)
		fx.expectNotifications()
		a, err := fx.yard.Coordinator.Assign(ctx, raviInput("A1"))
		require.NoError(t, err)

		rec, err := fx.yard.Coordinator.Unassign(ctx, a.ID)
		require.NoError(t, err)

		assert.Equal(t, a.VehicleNumber, rec.VehicleNumber)
		assert.Equal(t, a.DriverName, rec.DriverName)
		assert.Equal(t, a.PhoneNumber, rec.PhoneNumber)
		assert.Equal(t, a.TransportType, rec.TransportType)
		assert.Equal(t, a.SlotNumber, rec.SlotNumber)
		assert.True(t, rec.CheckInTime.Equal(a.CheckInTime))
		assert.False(t, rec.CheckOutTime.Before(rec.CheckInTime))

		assert.Empty(t, fx.liveAssignments(t))
		assert.Equal(t, domain.StatusAvailable, fx.status(t, "A1"))
		history, err := fx.yard.Ledger.History(ctx, repository.HistoryFilter{SlotNumber: ptr("A1")})
		require.NoError(t, err)
		assert.Len(t, history, 1)
	})

	t.Run("history failure keeps the assignment", func(t *testing.T) {
		fx := newFixture(t)
		fx.slot(t, "A1", domain.TransportInward, domain.StatusAvailable)
		fx.expectNotifications()
		a, err := fx.yard.Coordinator.Assign(ctx, raviInput("A1"))
		require.NoError(t, err)
		fx.faults.failOn("history.Create")

		rec, err := fx.yard.Coordinator.Unassign(ctx, a.ID)
		require.ErrorIs(t, err, ErrRemoteFailure)
		assert.Nil(t, rec)
		assert.Len(t, fx.liveAssignments(t), 1)
		assert.Equal(t, domain.StatusOccupied, fx.status(t, "A1"))
	})

	t.Run("slot write failure after delete", func(t *testing.T) {
		fx := newFixture(t)
		fx.slot(t, "A1", domain.TransportInward, domain.StatusAvailable)
		fx.expectNotifications()
		a, err := fx.yard.Coordinator.Assign(ctx, raviInput("A1"))
		require.NoError(t, err)
		fx.faults.failOn("slots.UpdateStatus")

		rec, err := fx.yard.Coordinator.Unassign(ctx, a.ID)
		require.ErrorIs(t, err, ErrRemoteFailure)
		require.NotNil(t, rec)
		assert.Empty(t, fx.liveAssignments(t))
		assert.Equal(t, domain.StatusOccupied, fx.status(t, "A1"))
	})

	t.Run("retry after failed delete keeps one history record", func(t *testing.T) {
		fx := newFixture(t)
		fx.slot(t, "A1", domain.TransportInward, domain.StatusAvailable)
		fx.expectNotifications()
		a, err := fx.yard.Coordinator.Assign(ctx, raviInput("A1"))
		require.NoError(t, err)

		fx.faults.failOn("assignments.Delete")
		first, err := fx.yard.Coordinator.Unassign(ctx, a.ID)
		require.ErrorIs(t, err, ErrRemoteFailure)
		require.NotNil(t, first)
		assert.Len(t, fx.liveAssignments(t), 1)

		fx.faults.clear()
		second, err := fx.yard.Coordinator.Unassign(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.True(t, second.CheckOutTime.Equal(first.CheckOutTime))

		history, err := fx.yard.Ledger.History(ctx, repository.HistoryFilter{VehicleNumber: ptr(a.VehicleNumber)})
		require.NoError(t, err)
		assert.Len(t, history, 1)
		assert.Empty(t, fx.liveAssignments(t))
		assert.Equal(t, domain.StatusAvailable, fx.status(t, "A1"))
	})

	t.Run("concurrent unassigns write one history record", func(t *testing.T) {
		fx := newFixture(t)
		fx.slot(t, "A1", domain.TransportInward, domain.StatusAvailable)
		fx.expectNotifications()
		a, err := fx.yard.Coordinator.Assign(ctx, raviInput("A1"))
		require.NoError(t, err)

		const callers = 8
		errs := make([]error, callers)
		var wg sync.WaitGroup
		wg.Add(callers)
		for i := range callers {
			go func() {
				defer wg.Done()
				_, errs[i] = fx.yard.Coordinator.Unassign(ctx, a.ID)
			}()
		}
		wg.Wait()

		wins := 0
		for _, err := range errs {
			if err == nil {
				wins++
				continue
			}
			assert.ErrorIs(t, err, ErrNotFound)
		}
		assert.GreaterOrEqual(t, wins, 1)
		history, err := fx.yard.Ledger.History(ctx, repository.HistoryFilter{SlotNumber: ptr("A1")})
		require.NoError(t, err)
		assert.Len(t, history, 1)
		assert.Empty(t, fx.liveAssignments(t))
		assert.Equal(t, domain.StatusAvailable, fx.status(t, "A1"))
	})

	t.Run("unknown assignment", func(t *testing.T) {
		fx := newFixture(t)
		_, err := fx.yard.Coordinator.Unassign(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestReassign(t *testing.T) {
	ctx := context.Background()
	setup := func(t *testing.T) (*fixture, *domain.Assignment) {
		fx := newFixture(t)
		fx.slot(t, "A1", domain.TransportInward, domain.StatusAvailable)
		fx.slot(t, "A2", domain.TransportInward, domain.StatusAvailable)
		fx.slot(t, "A3", domain.TransportInward, domain.StatusOccupied)
		fx.slot(t, "B1", domain.TransportOutward, domain.StatusAvailable)
		fx.expectNotifications()
		a, err := fx.yard.Coordinator.Assign(ctx, raviInput("A1"))
		require.NoError(t, err)
		return fx, a
	}

	t.Run("moves in place", func(t *testing.T) {
		fx, a := setup(t)
		moved, err := fx.yard.Coordinator.Reassign(ctx, a.ID, "A2")
		require.NoError(t, err)
		assert.Equal(t, a.ID, moved.ID)
		assert.Equal(t, "A2", moved.SlotNumber)
		assert.Equal(t, domain.StatusOccupied, fx.status(t, "A2"))
		assert.Equal(t, domain.StatusAvailable, fx.status(t, "A1"))

		changes := fx.observer.seen()
		require.Len(t, changes, 3)
		assert.Equal(t, "A2", changes[1].SlotNumber, "new slot is occupied first")
		assert.Equal(t, "A1", changes[2].SlotNumber)
	})

	t.Run("rejected targets", func(t *testing.T) {
		fx, a := setup(t)
		_, err := fx.yard.Coordinator.Reassign(ctx, a.ID, "A3")
		assert.ErrorIs(t, err, ErrSlotUnavailable)
		_, err = fx.yard.Coordinator.Reassign(ctx, a.ID, "B1")
		assert.ErrorIs(t, err, ErrValidationFailed)
		_, err = fx.yard.Coordinator.Reassign(ctx, a.ID, "")
		assert.ErrorIs(t, err, ErrValidationFailed)
		_, err = fx.yard.Coordinator.Reassign(ctx, "missing", "A2")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, domain.StatusOccupied, fx.status(t, "A1"))
	})

	t.Run("failure between steps never frees both slots", func(t *testing.T) {
		fx, a := setup(t)
		fx.faults.fail = map[string]error{"slots.UpdateStatus:A1": errStoreDown}

		_, err := fx.yard.Coordinator.Reassign(ctx, a.ID, "A2")
		require.ErrorIs(t, err, ErrRemoteFailure)
		assert.Equal(t, domain.StatusOccupied, fx.status(t, "A2"))
		assert.Equal(t, domain.StatusOccupied, fx.status(t, "A1"))
	})
}

func TestAssignFromReservation(t *testing.T) {
	ctx := context.Background()
	reserved := func(id, slot string) domain.Reservation {
		return domain.Reservation{
			ID: id, SlotNumber: slot, ReserveDate: today,
			VehicleNumber: null.StringFrom("KA01AB1234"),
			DriverName:    null.StringFrom("Anita Rao"),
			PhoneNumber:   null.StringFrom("9123456780"),
			TransportType: null.StringFrom("Inward"),
		}
	}

	t.Run("converts and removes the reservation", func(t *testing.T) {
		fx := newFixture(t)
		fx.slot(t, "A1", domain.TransportInward, domain.StatusReserved)
		fx.reservation(t, reserved("r-1", "A1"))
		fx.expectNotifications()

		a, err := fx.yard.Coordinator.AssignFromReservation(ctx, "r-1")
		require.NoError(t, err)
		assert.Equal(t, "KA01AB1234", a.VehicleNumber)
		assert.Equal(t, domain.StatusOccupied, fx.status(t, "A1"))

		_, err = fx.raw.Reservations.FindByID(ctx, "r-1")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("stale reservation after a failed delete", func(t *testing.T) {
		fx := newFixture(t)
		fx.slot(t, "A1", domain.TransportInward, domain.StatusReserved)
		fx.reservation(t, reserved("r-1", "A1"))
		fx.expectNotifications()
		fx.faults.failOn("reservations.Delete")

		a, err := fx.yard.Coordinator.AssignFromReservation(ctx, "r-1")
		require.NoError(t, err)
		assert.NotNil(t, a)
		_, err = fx.raw.Reservations.FindByID(ctx, "r-1")
		assert.NoError(t, err)
	})

	t.Run("reservation without vehicle details", func(t *testing.T) {
		fx := newFixture(t)
		fx.slot(t, "A1", domain.TransportInward, domain.StatusReserved)
		fx.reservation(t, domain.Reservation{ID: "r-2", SlotNumber: "A1", ReserveDate: today})

		_, err := fx.yard.Coordinator.AssignFromReservation(ctx, "r-2")
		assert.ErrorIs(t, err, ErrValidationFailed)
		assert.Equal(t, domain.StatusReserved, fx.status(t, "A1"))
	})

	t.Run("unknown reservation", func(t *testing.T) {
		fx := newFixture(t)
		_, err := fx.yard.Coordinator.AssignFromReservation(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestRejectReservations(t *testing.T) {
	ctx := context.Background()

	t.Run("second delete fails, the others go through", func(t *testing.T) {
		fx := newFixture(t)
		for _, n := range []string{"A1", "A2", "A3"} {
			fx.slot(t, n, domain.TransportInward, domain.StatusAvailable)
		}
		fx.reservation(t, domain.Reservation{ID: "r-1", SlotNumber: "A1", ReserveDate: "2026-10-25"})
		fx.reservation(t, domain.Reservation{ID: "r-2", SlotNumber: "A2", ReserveDate: "2026-10-25"})
		fx.reservation(t, domain.Reservation{ID: "r-3", SlotNumber: "A3", ReserveDate: "2026-10-25"})
		fx.faults.fail = map[string]error{"reservations.Delete:r-2": errStoreDown}

		result, err := fx.yard.Coordinator.RejectReservations(ctx, []string{"r-1", "r-2", "r-3"})
		require.Error(t, err)

		var partial *PartialFailureError
		require.ErrorAs(t, err, &partial)
		assert.Equal(t, []string{"r-2"}, partial.IDs())
		assert.ErrorIs(t, err, ErrRemoteFailure)
		assert.Equal(t, []string{"r-1", "r-3"}, result.Rejected)
		assert.Contains(t, result.Failed, "r-2")

		left, err := fx.raw.Reservations.Find(ctx, repository.ReservationFilter{})
		require.NoError(t, err)
		require.Len(t, left, 1)
		assert.Equal(t, "r-2", left[0].ID)
	})

	t.Run("releases a reserved slot nothing else holds", func(t *testing.T) {
		fx := newFixture(t)
		fx.slot(t, "A1", domain.TransportInward, domain.StatusReserved)
		fx.slot(t, "A2", domain.TransportInward, domain.StatusReserved)
		fx.reservation(t, domain.Reservation{ID: "r-1", SlotNumber: "A1", ReserveDate: today})
		fx.reservation(t, domain.Reservation{ID: "r-2", SlotNumber: "A2", ReserveDate: today})
		fx.reservation(t, domain.Reservation{ID: "r-3", SlotNumber: "A2", ReserveDate: "2026-10-18"})

		result, err := fx.yard.Coordinator.RejectReservations(ctx, []string{"r-1", "r-2", "r-1"})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"r-1", "r-2"}, result.Rejected)
		assert.Equal(t, domain.StatusAvailable, fx.status(t, "A1"))
		assert.Equal(t, domain.StatusReserved, fx.status(t, "A2"), "still held by an older reservation")
	})

	t.Run("future reservation leaves the slot alone", func(t *testing.T) {
		fx := newFixture(t)
		fx.slot(t, "A1", domain.TransportInward, domain.StatusReserved)
		fx.reservation(t, domain.Reservation{ID: "r-1", SlotNumber: "A1", ReserveDate: today})
		fx.reservation(t, domain.Reservation{ID: "r-9", SlotNumber: "A1", ReserveDate: "2026-11-01"})

		_, err := fx.yard.Coordinator.RejectReservations(ctx, []string{"r-9"})
		require.NoError(t, err)
		assert.Equal(t, domain.StatusReserved, fx.status(t, "A1"))
	})

	t.Run("unknown id is reported, empty selection is invalid", func(t *testing.T) {
		fx := newFixture(t)
		_, err := fx.yard.Coordinator.RejectReservations(ctx, []string{"ghost"})
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = fx.yard.Coordinator.RejectReservations(ctx, []string{" "})
		assert.ErrorIs(t, err, ErrValidationFailed)
	})
}

func ptr[T any](v T) *T { return &v }
