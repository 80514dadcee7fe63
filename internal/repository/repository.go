package repository

import (
	"context"
	"errors"
	"fmt"

	"yard_parking/internal/domain"
)

var ErrNotFound = errors.New("record not found")
var ErrDuplicateEntry = errors.New("record already exists")

// Conditional-write conflicts on live assignments. Both unwrap to ErrDuplicateEntry.
var (
	ErrVehicleTaken = fmt.Errorf("%w: vehicle already holds a live assignment", ErrDuplicateEntry)
	ErrSlotTaken    = fmt.Errorf("%w: slot already holds a live assignment", ErrDuplicateEntry)
)

type SlotFilter struct {
	Status        *domain.SlotStatus
	TransportType *domain.TransportType
}

type AssignmentFilter struct {
	VehicleNumber *string
	SlotNumber    *string
}

type HistoryFilter struct {
	VehicleNumber *string
	SlotNumber    *string
}

type ReservationFilter struct {
	SlotNumber  *string
	ReserveDate *string
}

type SlotRepository interface {
	Create(ctx context.Context, slot *domain.Slot) (*domain.Slot, error)
	FindByNumber(ctx context.Context, slotNumber string) (*domain.Slot, error)
	Find(ctx context.Context, filter SlotFilter) ([]domain.Slot, error)
	UpdateStatus(ctx context.Context, slotNumber string, status domain.SlotStatus) error
}

// AssignmentRepository holds live assignments. Create and UpdateSlot are conditional writes:
// they fail with ErrVehicleTaken or ErrSlotTaken instead of producing a second live binding.
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *domain.Assignment) (*domain.Assignment, error)
	FindByID(ctx context.Context, id string) (*domain.Assignment, error)
	Find(ctx context.Context, filter AssignmentFilter) ([]domain.Assignment, error)
	UpdateSlot(ctx context.Context, id string, slotNumber string) error
	Delete(ctx context.Context, id string) error
}

type HistoryRepository interface {
	Create(ctx context.Context, record *domain.HistoryRecord) (*domain.HistoryRecord, error)
	Find(ctx context.Context, filter HistoryFilter) ([]domain.HistoryRecord, error)
}

type ReservationRepository interface {
	Create(ctx context.Context, reservation *domain.Reservation) (*domain.Reservation, error)
	FindByID(ctx context.Context, id string) (*domain.Reservation, error)
	Find(ctx context.Context, filter ReservationFilter) ([]domain.Reservation, error)
	Delete(ctx context.Context, id string) error
}

// Store groups the four collections the allocation core works against.
type Store struct {
	Slots        SlotRepository
	Assignments  AssignmentRepository
	History      HistoryRepository
	Reservations ReservationRepository
}
