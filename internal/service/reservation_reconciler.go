package service

import (
	"context"
	"errors"
	"strings"

	"yard_parking/internal/domain"
	"yard_parking/internal/metrics"
	"yard_parking/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/guregu/null.v4"
)

// ReservationReconciler keeps reservations and the Reserved slot status in step.
// It also takes reservation intake, since it owns the collection.
type ReservationReconciler struct {
	reservations repository.ReservationRepository
	registry     *SlotRegistry
	metrics      *metrics.Metrics
	log          *zap.Logger
}

func NewReservationReconciler(reservations repository.ReservationRepository, registry *SlotRegistry, m *metrics.Metrics, log *zap.Logger) *ReservationReconciler {
	return &ReservationReconciler{
		reservations: reservations,
		registry:     registry,
		metrics:      m,
		log:          log.Named("reconciler"),
	}
}

// ReconcileToday marks the slot of every reservation dated today as Reserved and returns how
// many slots actually changed. Running it again with the same reservations changes nothing.
// Past-dated reservations are left alone. Occupied slots and reservations pointing at unknown
// slots are skipped. Store failures on individual slots do not stop the sweep; they are
// joined into the returned error.
func (r *ReservationReconciler) ReconcileToday(ctx context.Context, today string) (int, error) {
	due, err := r.reservations.Find(ctx, repository.ReservationFilter{ReserveDate: &today})
	if err != nil {
		return 0, storeError(err, "list reservations for %s", today)
	}

	seen := make(map[string]bool, len(due))
	changed := 0
	var errs []error
	for _, res := range due {
		if seen[res.SlotNumber] {
			continue
		}
		seen[res.SlotNumber] = true

		moved, err := r.registry.Transition(ctx, res.SlotNumber, domain.EventReserve, "reconcile")
		switch {
		case err == nil:
			if moved {
				changed++
			}
		case errors.Is(err, ErrInvalidTransition):
			r.log.Info("reservation due on an occupied slot, left as is",
				zap.String("reservation_id", res.ID), zap.String("slot", res.SlotNumber))
		case errors.Is(err, ErrNotFound):
			r.log.Warn("reservation references unknown slot",
				zap.String("reservation_id", res.ID), zap.String("slot", res.SlotNumber))
		default:
			errs = append(errs, err)
		}
	}

	r.metrics.AddSweepChanges("reconcile", changed)
	r.log.Info("reservation sweep done",
		zap.String("date", today), zap.Int("due", len(due)), zap.Int("changed", changed), zap.Int("failed", len(errs)))
	return changed, errors.Join(errs...)
}

// Create records a reservation. The slot must exist; its status is left to the sweep.
func (r *ReservationReconciler) Create(ctx context.Context, dto domain.ReservationDTO) (*domain.Reservation, error) {
	dto.SlotNumber = strings.TrimSpace(dto.SlotNumber)
	dto.VehicleNumber = strings.TrimSpace(dto.VehicleNumber)
	dto.DriverName = strings.TrimSpace(dto.DriverName)
	dto.PhoneNumber = strings.TrimSpace(dto.PhoneNumber)
	if err := validateReservation(dto); err != nil {
		return nil, err
	}
	if _, err := r.registry.Get(ctx, dto.SlotNumber); err != nil {
		return nil, err
	}

	res := &domain.Reservation{
		ID:            uuid.NewString(),
		SlotNumber:    dto.SlotNumber,
		ReserveDate:   dto.ReserveDate,
		VehicleNumber: null.NewString(dto.VehicleNumber, dto.VehicleNumber != ""),
		DriverName:    null.NewString(dto.DriverName, dto.DriverName != ""),
		PhoneNumber:   null.NewString(dto.PhoneNumber, dto.PhoneNumber != ""),
		TransportType: null.NewString(dto.TransportType, dto.TransportType != ""),
	}
	created, err := r.reservations.Create(ctx, res)
	if err != nil {
		return nil, storeError(err, "create reservation for slot %s", res.SlotNumber)
	}
	return created, nil
}

func (r *ReservationReconciler) Get(ctx context.Context, id string) (*domain.Reservation, error) {
	res, err := r.reservations.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "reservation %s", id)
	}
	return res, nil
}

func (r *ReservationReconciler) List(ctx context.Context, filter repository.ReservationFilter) ([]domain.Reservation, error) {
	out, err := r.reservations.Find(ctx, filter)
	if err != nil {
		return nil, storeError(err, "list reservations")
	}
	return out, nil
}

// PendingCount is the number of reservations not yet converted or rejected.
func (r *ReservationReconciler) PendingCount(ctx context.Context) (int, error) {
	out, err := r.reservations.Find(ctx, repository.ReservationFilter{})
	if err != nil {
		return 0, storeError(err, "count reservations")
	}
	return len(out), nil
}
