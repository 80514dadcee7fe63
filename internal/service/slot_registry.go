package service

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"

	"yard_parking/internal/domain"
	"yard_parking/internal/metrics"
	"yard_parking/internal/repository"

	"go.uber.org/zap"
)

// SlotObserver is told about every slot status write. Failures are logged and otherwise ignored.
type SlotObserver interface {
	SlotStatusChanged(ctx context.Context, change domain.SlotStatusChange) error
}

// SlotRegistry is the only writer of slot status.
type SlotRegistry struct {
	slots    repository.SlotRepository
	calendar Calendar
	metrics  *metrics.Metrics
	log      *zap.Logger

	mu        sync.RWMutex
	observers []SlotObserver
}

func NewSlotRegistry(slots repository.SlotRepository, calendar Calendar, m *metrics.Metrics, log *zap.Logger) *SlotRegistry {
	return &SlotRegistry{
		slots:    slots,
		calendar: calendar,
		metrics:  m,
		log:      log.Named("registry"),
	}
}

func (r *SlotRegistry) Observe(o SlotObserver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, o)
}

// Provision creates a new slot. Slots always start Available.
func (r *SlotRegistry) Provision(ctx context.Context, dto domain.SlotDTO) (*domain.Slot, error) {
	v := &ValidationError{}
	if strings.TrimSpace(dto.SlotNumber) == "" {
		v.add("slot_number", "is required")
	}
	if !domain.TransportType(dto.TransportType).Valid() {
		v.add("transport_type", "must be Inward or Outward")
	}
	if err := v.orNil(); err != nil {
		return nil, err
	}

	slot := &domain.Slot{
		SlotNumber:    strings.TrimSpace(dto.SlotNumber),
		TransportType: domain.TransportType(dto.TransportType),
		Status:        domain.StatusAvailable,
	}
	created, err := r.slots.Create(ctx, slot)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			v.add("slot_number", "already exists")
			return nil, v
		}
		return nil, storeError(err, "create slot %s", slot.SlotNumber)
	}
	return created, nil
}

func (r *SlotRegistry) Get(ctx context.Context, slotNumber string) (*domain.Slot, error) {
	slot, err := r.slots.FindByNumber(ctx, slotNumber)
	if err != nil {
		return nil, storeError(err, "slot %s", slotNumber)
	}
	return slot, nil
}

func (r *SlotRegistry) List(ctx context.Context, filter repository.SlotFilter) ([]domain.Slot, error) {
	slots, err := r.slots.Find(ctx, filter)
	if err != nil {
		return nil, storeError(err, "list slots")
	}
	return slots, nil
}

// ListAvailable yields the Available slots of one transport type. Every range over the
// returned sequence runs a fresh query.
func (r *SlotRegistry) ListAvailable(ctx context.Context, transportType domain.TransportType) iter.Seq2[domain.Slot, error] {
	return func(yield func(domain.Slot, error) bool) {
		if !transportType.Valid() {
			v := &ValidationError{}
			v.add("transport_type", "must be Inward or Outward")
			yield(domain.Slot{}, v)
			return
		}
		status := domain.StatusAvailable
		slots, err := r.slots.Find(ctx, repository.SlotFilter{Status: &status, TransportType: &transportType})
		if err != nil {
			yield(domain.Slot{}, storeError(err, "list available %s slots", transportType))
			return
		}
		for _, slot := range slots {
			if !yield(slot, nil) {
				return
			}
		}
	}
}

func (r *SlotRegistry) Counts(ctx context.Context) (domain.SlotStats, error) {
	slots, err := r.slots.Find(ctx, repository.SlotFilter{})
	if err != nil {
		return domain.SlotStats{}, storeError(err, "count slots")
	}
	var stats domain.SlotStats
	for _, slot := range slots {
		switch slot.Status {
		case domain.StatusAvailable:
			stats.Available++
		case domain.StatusOccupied:
			stats.Occupied++
		case domain.StatusReserved:
			stats.Reserved++
		}
	}
	stats.Total = len(slots)
	return stats, nil
}

// SetStatus writes status to the slot unconditionally, bypassing the transition table.
// It is the override used by the healer to repair drift; normal operations go through Transition.
func (r *SlotRegistry) SetStatus(ctx context.Context, slotNumber string, status domain.SlotStatus, source string) error {
	if !status.Valid() {
		v := &ValidationError{}
		v.add("status", fmt.Sprintf("unknown status %q", status))
		return v
	}
	slot, err := r.Get(ctx, slotNumber)
	if err != nil {
		return err
	}
	return r.write(ctx, *slot, status, source)
}

// Transition applies event to the slot. It reports whether a write happened: a slot already
// in the event's target status is left alone.
func (r *SlotRegistry) Transition(ctx context.Context, slotNumber string, event domain.SlotEvent, source string) (bool, error) {
	slot, err := r.Get(ctx, slotNumber)
	if err != nil {
		return false, err
	}
	next, err := domain.NextSlotStatus(ctx, slot.Status, event)
	if err != nil {
		return false, fmt.Errorf("slot %s: %w", slotNumber, err)
	}
	if next == slot.Status {
		return false, nil
	}
	if err := r.write(ctx, *slot, next, source); err != nil {
		return false, err
	}
	return true, nil
}

func (r *SlotRegistry) write(ctx context.Context, slot domain.Slot, to domain.SlotStatus, source string) error {
	if err := r.slots.UpdateStatus(ctx, slot.SlotNumber, to); err != nil {
		r.log.Error("slot status write failed",
			zap.String("slot", slot.SlotNumber), zap.String("to", string(to)), zap.Error(err))
		return storeError(err, "set slot %s to %s", slot.SlotNumber, to)
	}
	r.metrics.ObserveTransition(string(slot.Status), string(to))
	r.log.Debug("slot status changed",
		zap.String("slot", slot.SlotNumber),
		zap.String("from", string(slot.Status)),
		zap.String("to", string(to)),
		zap.String("source", source))

	change := domain.SlotStatusChange{
		SlotNumber:    slot.SlotNumber,
		TransportType: slot.TransportType,
		From:          slot.Status,
		To:            to,
		Source:        source,
		Timestamp:     r.calendar.Now(),
	}
	r.mu.RLock()
	observers := r.observers
	r.mu.RUnlock()
	for _, o := range observers {
		if err := o.SlotStatusChanged(ctx, change); err != nil {
			r.log.Warn("slot observer failed", zap.String("slot", slot.SlotNumber), zap.Error(err))
		}
	}
	return nil
}
