package service

import (
	"context"
	"errors"

	"yard_parking/internal/domain"
	"yard_parking/internal/metrics"
	"yard_parking/internal/repository"

	"go.uber.org/zap"
)

// SlotHealer re-derives slot status from the assignment and reservation collections and
// rewrites the slots that drifted after a partially failed operation.
type SlotHealer struct {
	store    *repository.Store
	registry *SlotRegistry
	metrics  *metrics.Metrics
	log      *zap.Logger
}

func NewSlotHealer(store *repository.Store, registry *SlotRegistry, m *metrics.Metrics, log *zap.Logger) *SlotHealer {
	return &SlotHealer{store: store, registry: registry, metrics: m, log: log.Named("healer")}
}

// Heal sets each slot to Occupied when a live assignment holds it, otherwise Reserved when a
// reservation for today names it, otherwise Available. A slot already Reserved stays Reserved
// while an older unconverted reservation still names it; an older reservation never reserves
// a slot afresh. Only slots whose status differs are written. It returns the number of slots
// corrected.
func (h *SlotHealer) Heal(ctx context.Context, today string) (int, error) {
	slots, err := h.store.Slots.Find(ctx, repository.SlotFilter{})
	if err != nil {
		return 0, storeError(err, "list slots")
	}
	live, err := h.store.Assignments.Find(ctx, repository.AssignmentFilter{})
	if err != nil {
		return 0, storeError(err, "list assignments")
	}
	reservations, err := h.store.Reservations.Find(ctx, repository.ReservationFilter{})
	if err != nil {
		return 0, storeError(err, "list reservations")
	}

	occupied := make(map[string]bool, len(live))
	for _, a := range live {
		occupied[a.SlotNumber] = true
	}
	dueToday := make(map[string]bool)
	overdue := make(map[string]bool)
	for _, res := range reservations {
		switch {
		case res.ReserveDate == today:
			dueToday[res.SlotNumber] = true
		case res.ReserveDate < today:
			overdue[res.SlotNumber] = true
		}
	}

	corrected := 0
	var errs []error
	for _, slot := range slots {
		want := domain.StatusAvailable
		switch {
		case occupied[slot.SlotNumber]:
			want = domain.StatusOccupied
		case dueToday[slot.SlotNumber]:
			want = domain.StatusReserved
		case overdue[slot.SlotNumber] && slot.Status == domain.StatusReserved:
			want = domain.StatusReserved
		}
		if slot.Status == want {
			continue
		}
		h.log.Warn("slot status drifted",
			zap.String("slot", slot.SlotNumber), zap.String("was", string(slot.Status)), zap.String("now", string(want)))
		if err := h.registry.SetStatus(ctx, slot.SlotNumber, want, "heal"); err != nil {
			errs = append(errs, err)
			continue
		}
		corrected++
	}

	h.metrics.AddSweepChanges("heal", corrected)
	return corrected, errors.Join(errs...)
}
