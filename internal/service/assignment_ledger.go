package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"yard_parking/internal/domain"
	"yard_parking/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AssignmentLedger owns the life of a live assignment: begin, move, end (into history).
// Its multi-step writes are not transactional. A failed step is returned to the caller
// and the steps before it stand.
type AssignmentLedger struct {
	assignments repository.AssignmentRepository
	history     repository.HistoryRepository
	registry    *SlotRegistry
	calendar    Calendar
	log         *zap.Logger
}

func NewAssignmentLedger(store *repository.Store, registry *SlotRegistry, calendar Calendar, log *zap.Logger) *AssignmentLedger {
	return &AssignmentLedger{
		assignments: store.Assignments,
		history:     store.History,
		registry:    registry,
		calendar:    calendar,
		log:         log.Named("ledger"),
	}
}

// BeginAssignment binds a vehicle to a slot and marks the slot Occupied.
//
// Checks run in order and stop at the first failure: input shape (no store calls), no live
// assignment for the vehicle, then the slot exists, matches the transport type and is in one of
// accept (Available when accept is empty). If the assignment is created but the slot write
// fails, the assignment is returned together with the error.
func (l *AssignmentLedger) BeginAssignment(ctx context.Context, in domain.AssignVehicleDTO, accept ...domain.SlotStatus) (*domain.Assignment, error) {
	in = normalizeAssignInput(in)
	if err := validateAssignInput(in); err != nil {
		return nil, err
	}

	live, err := l.assignments.Find(ctx, repository.AssignmentFilter{VehicleNumber: &in.VehicleNumber})
	if err != nil {
		return nil, storeError(err, "look up vehicle %s", in.VehicleNumber)
	}
	if len(live) > 0 {
		return nil, fmt.Errorf("%w: %s is on slot %s", ErrVehicleAlreadyAssigned, in.VehicleNumber, live[0].SlotNumber)
	}

	slot, err := l.registry.Get(ctx, in.SlotNumber)
	if err != nil {
		return nil, err
	}
	if err := checkSlotFits(slot, domain.TransportType(in.TransportType), accept...); err != nil {
		return nil, err
	}

	a := &domain.Assignment{
		ID:            uuid.NewString(),
		SlotNumber:    in.SlotNumber,
		VehicleNumber: in.VehicleNumber,
		DriverName:    in.DriverName,
		PhoneNumber:   in.PhoneNumber,
		TransportType: domain.TransportType(in.TransportType),
		CheckInTime:   l.calendar.Now(),
	}
	created, err := l.assignments.Create(ctx, a)
	if err != nil {
		return nil, assignmentWriteError(err, a)
	}

	if _, err := l.registry.Transition(ctx, created.SlotNumber, domain.EventOccupy, "assign"); err != nil {
		l.log.Error("assignment created but slot not marked Occupied",
			zap.String("assignment_id", created.ID), zap.String("slot", created.SlotNumber), zap.Error(err))
		return created, err
	}
	return created, nil
}

// EndAssignment retires a into history: history first, then delete, then free the slot.
// A failed history write leaves a live. Once the history record exists it is returned even
// when a later step fails. The record shares a's ID, so retrying after a failed delete
// picks up the record already written instead of adding another.
func (l *AssignmentLedger) EndAssignment(ctx context.Context, a domain.Assignment) (*domain.HistoryRecord, error) {
	checkOut := l.calendar.Now()
	if checkOut.Before(a.CheckInTime) {
		checkOut = a.CheckInTime
	}
	rec := &domain.HistoryRecord{
		ID:            a.ID,
		SlotNumber:    a.SlotNumber,
		VehicleNumber: a.VehicleNumber,
		DriverName:    a.DriverName,
		PhoneNumber:   a.PhoneNumber,
		TransportType: a.TransportType,
		CheckInTime:   a.CheckInTime,
		CheckOutTime:  checkOut,
	}
	created, err := l.history.Create(ctx, rec)
	if errors.Is(err, repository.ErrDuplicateEntry) {
		created, err = l.writtenHistory(ctx, a)
		if err == nil {
			l.log.Info("history already written, resuming retirement", zap.String("assignment_id", a.ID))
		}
	}
	if err != nil {
		l.log.Error("history write failed, assignment kept", zap.String("assignment_id", a.ID), zap.Error(err))
		return nil, storeError(err, "write history for assignment %s", a.ID)
	}

	if err := l.assignments.Delete(ctx, a.ID); err != nil {
		l.log.Error("history written but assignment not deleted",
			zap.String("assignment_id", a.ID), zap.String("history_id", created.ID), zap.Error(err))
		return created, storeError(err, "delete assignment %s", a.ID)
	}

	if _, err := l.registry.Transition(ctx, a.SlotNumber, domain.EventVacate, "unassign"); err != nil {
		l.log.Error("assignment retired but slot not marked Available",
			zap.String("assignment_id", a.ID), zap.String("slot", a.SlotNumber), zap.Error(err))
		return created, err
	}
	return created, nil
}

// writtenHistory loads the record an earlier EndAssignment of a left behind.
func (l *AssignmentLedger) writtenHistory(ctx context.Context, a domain.Assignment) (*domain.HistoryRecord, error) {
	records, err := l.history.Find(ctx, repository.HistoryFilter{VehicleNumber: &a.VehicleNumber})
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.ID == a.ID {
			return &rec, nil
		}
	}
	return nil, fmt.Errorf("history record %s: %w", a.ID, repository.ErrNotFound)
}

// ReassignSlot moves a to newSlotNumber in place. The new slot is marked Occupied before the
// old one is freed, so a crash in between leaves both Occupied rather than both Available.
func (l *AssignmentLedger) ReassignSlot(ctx context.Context, a domain.Assignment, newSlotNumber string) error {
	if err := l.assignments.UpdateSlot(ctx, a.ID, newSlotNumber); err != nil {
		moved := a
		moved.SlotNumber = newSlotNumber
		return assignmentWriteError(err, &moved)
	}
	if _, err := l.registry.Transition(ctx, newSlotNumber, domain.EventOccupy, "reassign"); err != nil {
		l.log.Error("assignment moved but new slot not marked Occupied",
			zap.String("assignment_id", a.ID), zap.String("slot", newSlotNumber), zap.Error(err))
		return err
	}
	if _, err := l.registry.Transition(ctx, a.SlotNumber, domain.EventVacate, "reassign"); err != nil {
		l.log.Error("assignment moved but old slot not freed",
			zap.String("assignment_id", a.ID), zap.String("slot", a.SlotNumber), zap.Error(err))
		return err
	}
	return nil
}

func (l *AssignmentLedger) Get(ctx context.Context, id string) (*domain.Assignment, error) {
	a, err := l.assignments.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "assignment %s", id)
	}
	return a, nil
}

func (l *AssignmentLedger) List(ctx context.Context, filter repository.AssignmentFilter) ([]domain.Assignment, error) {
	out, err := l.assignments.Find(ctx, filter)
	if err != nil {
		return nil, storeError(err, "list assignments")
	}
	return out, nil
}

func (l *AssignmentLedger) History(ctx context.Context, filter repository.HistoryFilter) ([]domain.HistoryRecord, error) {
	out, err := l.history.Find(ctx, filter)
	if err != nil {
		return nil, storeError(err, "list history")
	}
	return out, nil
}

func checkSlotFits(slot *domain.Slot, tt domain.TransportType, accept ...domain.SlotStatus) error {
	if slot.TransportType != tt {
		v := &ValidationError{}
		v.add("transport_type", fmt.Sprintf("slot %s takes %s vehicles", slot.SlotNumber, slot.TransportType))
		return v
	}
	if len(accept) == 0 {
		accept = []domain.SlotStatus{domain.StatusAvailable}
	}
	if !slices.Contains(accept, slot.Status) {
		return fmt.Errorf("%w: slot %s is %s", ErrSlotUnavailable, slot.SlotNumber, slot.Status)
	}
	return nil
}
