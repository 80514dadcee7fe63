package service

import (
	"yard_parking/internal/metrics"
	"yard_parking/internal/repository"

	"go.uber.org/zap"
)

// Yard wires the allocation components over one store.
type Yard struct {
	Calendar    Calendar
	Registry    *SlotRegistry
	Ledger      *AssignmentLedger
	Reconciler  *ReservationReconciler
	Healer      *SlotHealer
	Coordinator *AllocationCoordinator
}

func NewYard(store *repository.Store, calendar Calendar, notifier Notifier, m *metrics.Metrics, log *zap.Logger) *Yard {
	registry := NewSlotRegistry(store.Slots, calendar, m, log)
	ledger := NewAssignmentLedger(store, registry, calendar, log)
	return &Yard{
		Calendar:    calendar,
		Registry:    registry,
		Ledger:      ledger,
		Reconciler:  NewReservationReconciler(store.Reservations, registry, m, log),
		Healer:      NewSlotHealer(store, registry, m, log),
		Coordinator: NewAllocationCoordinator(store, registry, ledger, calendar, notifier, m, log),
	}
}
