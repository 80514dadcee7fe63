// Package memory keeps the four yard collections in process. It backs the dev mode
// (STORE_DRIVER=memory) and the service tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"yard_parking/internal/domain"
	"yard_parking/internal/repository"

	"gopkg.in/guregu/null.v4"
)

// NewStore returns an empty in-memory store.
func NewStore() *repository.Store {
	return &repository.Store{
		Slots:        &slotStore{slots: make(map[string]domain.Slot)},
		Assignments:  &assignmentStore{byID: make(map[string]domain.Assignment)},
		History:      &historyStore{},
		Reservations: &reservationStore{byID: make(map[string]domain.Reservation)},
	}
}

type slotStore struct {
	mu    sync.RWMutex
	slots map[string]domain.Slot
}

func (s *slotStore) Create(_ context.Context, slot *domain.Slot) (*domain.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.slots[slot.SlotNumber]; ok {
		return nil, repository.ErrDuplicateEntry
	}
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = time.Now().UTC()
	}
	s.slots[slot.SlotNumber] = *slot
	return slot, nil
}

func (s *slotStore) FindByNumber(_ context.Context, slotNumber string) (*domain.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slot, ok := s.slots[slotNumber]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &slot, nil
}

func (s *slotStore) Find(_ context.Context, filter repository.SlotFilter) ([]domain.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Slot
	for _, slot := range s.slots {
		if filter.Status != nil && slot.Status != *filter.Status {
			continue
		}
		if filter.TransportType != nil && slot.TransportType != *filter.TransportType {
			continue
		}
		out = append(out, slot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SlotNumber < out[j].SlotNumber })
	return out, nil
}

func (s *slotStore) UpdateStatus(_ context.Context, slotNumber string, status domain.SlotStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[slotNumber]
	if !ok {
		return repository.ErrNotFound
	}
	slot.Status = status
	slot.LastChangedAt = null.TimeFrom(time.Now().UTC())
	s.slots[slotNumber] = slot
	return nil
}

type assignmentStore struct {
	mu   sync.RWMutex
	byID map[string]domain.Assignment
}

// conflict reports the live assignment clash a write of a would cause. Caller holds the lock.
func (s *assignmentStore) conflict(a domain.Assignment) error {
	for id, live := range s.byID {
		if id == a.ID {
			continue
		}
		if live.VehicleNumber == a.VehicleNumber {
			return repository.ErrVehicleTaken
		}
		if live.SlotNumber == a.SlotNumber {
			return repository.ErrSlotTaken
		}
	}
	return nil
}

func (s *assignmentStore) Create(_ context.Context, a *domain.Assignment) (*domain.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[a.ID]; ok {
		return nil, repository.ErrDuplicateEntry
	}
	if err := s.conflict(*a); err != nil {
		return nil, err
	}
	s.byID[a.ID] = *a
	return a, nil
}

func (s *assignmentStore) FindByID(_ context.Context, id string) (*domain.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (s *assignmentStore) Find(_ context.Context, filter repository.AssignmentFilter) ([]domain.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Assignment
	for _, a := range s.byID {
		if filter.VehicleNumber != nil && a.VehicleNumber != *filter.VehicleNumber {
			continue
		}
		if filter.SlotNumber != nil && a.SlotNumber != *filter.SlotNumber {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckInTime.Before(out[j].CheckInTime) })
	return out, nil
}

func (s *assignmentStore) UpdateSlot(_ context.Context, id string, slotNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.SlotNumber = slotNumber
	if err := s.conflict(a); err != nil {
		return err
	}
	s.byID[id] = a
	return nil
}

func (s *assignmentStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

type historyStore struct {
	mu      sync.RWMutex
	records []domain.HistoryRecord
}

func (s *historyStore) Create(_ context.Context, record *domain.HistoryRecord) (*domain.HistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.ID == record.ID {
			return nil, repository.ErrDuplicateEntry
		}
	}
	s.records = append(s.records, *record)
	return record, nil
}

func (s *historyStore) Find(_ context.Context, filter repository.HistoryFilter) ([]domain.HistoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.HistoryRecord
	for _, r := range s.records {
		if filter.VehicleNumber != nil && r.VehicleNumber != *filter.VehicleNumber {
			continue
		}
		if filter.SlotNumber != nil && r.SlotNumber != *filter.SlotNumber {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

type reservationStore struct {
	mu   sync.RWMutex
	byID map[string]domain.Reservation
}

func (s *reservationStore) Create(_ context.Context, r *domain.Reservation) (*domain.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[r.ID]; ok {
		return nil, repository.ErrDuplicateEntry
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	s.byID[r.ID] = *r
	return r, nil
}

func (s *reservationStore) FindByID(_ context.Context, id string) (*domain.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (s *reservationStore) Find(_ context.Context, filter repository.ReservationFilter) ([]domain.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Reservation
	for _, r := range s.byID {
		if filter.SlotNumber != nil && r.SlotNumber != *filter.SlotNumber {
			continue
		}
		if filter.ReserveDate != nil && r.ReserveDate != *filter.ReserveDate {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ReserveDate != out[j].ReserveDate {
			return out[i].ReserveDate < out[j].ReserveDate
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *reservationStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}
