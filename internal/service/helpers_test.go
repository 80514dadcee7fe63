package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"yard_parking/internal/domain"
	"yard_parking/internal/metrics"
	"yard_parking/internal/repository"
	"yard_parking/internal/repository/memory"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errStoreDown = errors.New("store unavailable")

// faults counts every store call and fails the ones registered with failOn.
type faults struct {
	mu    sync.Mutex
	calls int
	fail  map[string]error
}

func (f *faults) failOn(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail == nil {
		f.fail = make(map[string]error)
	}
	f.fail[op] = errStoreDown
}

func (f *faults) clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = nil
}

func (f *faults) hit(op, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err, ok := f.fail[op+":"+key]; ok {
		return err
	}
	return f.fail[op]
}

func (f *faults) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type faultySlots struct {
	repository.SlotRepository
	f *faults
}

func (s faultySlots) Create(ctx context.Context, slot *domain.Slot) (*domain.Slot, error) {
	if err := s.f.hit("slots.Create", slot.SlotNumber); err != nil {
		return nil, err
	}
	return s.SlotRepository.Create(ctx, slot)
}

func (s faultySlots) FindByNumber(ctx context.Context, n string) (*domain.Slot, error) {
	if err := s.f.hit("slots.FindByNumber", n); err != nil {
		return nil, err
	}
	return s.SlotRepository.FindByNumber(ctx, n)
}

func (s faultySlots) Find(ctx context.Context, filter repository.SlotFilter) ([]domain.Slot, error) {
	if err := s.f.hit("slots.Find", ""); err != nil {
		return nil, err
	}
	return s.SlotRepository.Find(ctx, filter)
}

func (s faultySlots) UpdateStatus(ctx context.Context, n string, status domain.SlotStatus) error {
	if err := s.f.hit("slots.UpdateStatus", n); err != nil {
		return err
	}
	return s.SlotRepository.UpdateStatus(ctx, n, status)
}

type faultyAssignments struct {
	repository.AssignmentRepository
	f *faults
}

func (s faultyAssignments) Create(ctx context.Context, a *domain.Assignment) (*domain.Assignment, error) {
	if err := s.f.hit("assignments.Create", a.VehicleNumber); err != nil {
		return nil, err
	}
	return s.AssignmentRepository.Create(ctx, a)
}

func (s faultyAssignments) FindByID(ctx context.Context, id string) (*domain.Assignment, error) {
	if err := s.f.hit("assignments.FindByID", id); err != nil {
		return nil, err
	}
	return s.AssignmentRepository.FindByID(ctx, id)
}

func (s faultyAssignments) Find(ctx context.Context, filter repository.AssignmentFilter) ([]domain.Assignment, error) {
	if err := s.f.hit("assignments.Find", ""); err != nil {
		return nil, err
	}
	return s.AssignmentRepository.Find(ctx, filter)
}

func (s faultyAssignments) UpdateSlot(ctx context.Context, id, n string) error {
	if err := s.f.hit("assignments.UpdateSlot", id); err != nil {
		return err
	}
	return s.AssignmentRepository.UpdateSlot(ctx, id, n)
}

func (s faultyAssignments) Delete(ctx context.Context, id string) error {
	if err := s.f.hit("assignments.Delete", id); err != nil {
		return err
	}
	return s.AssignmentRepository.Delete(ctx, id)
}

type faultyHistory struct {
	repository.HistoryRepository
	f *faults
}

func (s faultyHistory) Create(ctx context.Context, rec *domain.HistoryRecord) (*domain.HistoryRecord, error) {
	if err := s.f.hit("history.Create", rec.VehicleNumber); err != nil {
		return nil, err
	}
	return s.HistoryRepository.Create(ctx, rec)
}

func (s faultyHistory) Find(ctx context.Context, filter repository.HistoryFilter) ([]domain.HistoryRecord, error) {
	if err := s.f.hit("history.Find", ""); err != nil {
		return nil, err
	}
	return s.HistoryRepository.Find(ctx, filter)
}

type faultyReservations struct {
	repository.ReservationRepository
	f *faults
}

func (s faultyReservations) Create(ctx context.Context, r *domain.Reservation) (*domain.Reservation, error) {
	if err := s.f.hit("reservations.Create", r.SlotNumber); err != nil {
		return nil, err
	}
	return s.ReservationRepository.Create(ctx, r)
}

func (s faultyReservations) FindByID(ctx context.Context, id string) (*domain.Reservation, error) {
	if err := s.f.hit("reservations.FindByID", id); err != nil {
		return nil, err
	}
	return s.ReservationRepository.FindByID(ctx, id)
}

func (s faultyReservations) Find(ctx context.Context, filter repository.ReservationFilter) ([]domain.Reservation, error) {
	if err := s.f.hit("reservations.Find", ""); err != nil {
		return nil, err
	}
	return s.ReservationRepository.Find(ctx, filter)
}

func (s faultyReservations) Delete(ctx context.Context, id string) error {
	if err := s.f.hit("reservations.Delete", id); err != nil {
		return err
	}
	return s.ReservationRepository.Delete(ctx, id)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) SendAssignmentNotice(ctx context.Context, notice domain.AssignmentNotice) error {
	return m.Called(ctx, notice).Error(0)
}

func (m *mockNotifier) PrintAssignmentReceipt(ctx context.Context, receipt domain.AssignmentReceipt) error {
	return m.Called(ctx, receipt).Error(0)
}

type recordingObserver struct {
	mu      sync.Mutex
	changes []domain.SlotStatusChange
	err     error
}

func (o *recordingObserver) SlotStatusChanged(_ context.Context, change domain.SlotStatusChange) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.changes = append(o.changes, change)
	return o.err
}

func (o *recordingObserver) seen() []domain.SlotStatusChange {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]domain.SlotStatusChange(nil), o.changes...)
}

// 2026-10-19 09:30 in the yard (UTC+05:30).
var (
	yardZone = time.FixedZone("IST", 5*3600+1800)
	testNow  = time.Date(2026, 10, 19, 4, 0, 0, 0, time.UTC)
	today    = "2026-10-19"
)

type fixture struct {
	yard     *Yard
	raw      *repository.Store
	faults   *faults
	notifier *mockNotifier
	observer *recordingObserver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	raw := memory.NewStore()
	f := &faults{}
	wrapped := &repository.Store{
		Slots:        faultySlots{raw.Slots, f},
		Assignments:  faultyAssignments{raw.Assignments, f},
		History:      faultyHistory{raw.History, f},
		Reservations: faultyReservations{raw.Reservations, f},
	}
	notifier := &mockNotifier{}
	calendar := Calendar{Location: yardZone, Clock: func() time.Time { return testNow }}
	yard := NewYard(wrapped, calendar, notifier, metrics.New(prometheus.NewRegistry()), zap.NewNop())
	observer := &recordingObserver{}
	yard.Registry.Observe(observer)

	fx := &fixture{yard: yard, raw: raw, faults: f, notifier: notifier, observer: observer}
	t.Cleanup(func() {
		yard.Coordinator.Wait()
		notifier.AssertExpectations(t)
	})
	return fx
}

func (fx *fixture) slot(t *testing.T, number string, tt domain.TransportType, status domain.SlotStatus) {
	t.Helper()
	_, err := fx.raw.Slots.Create(context.Background(), &domain.Slot{SlotNumber: number, TransportType: tt, Status: status})
	require.NoError(t, err)
}

func (fx *fixture) status(t *testing.T, number string) domain.SlotStatus {
	t.Helper()
	slot, err := fx.raw.Slots.FindByNumber(context.Background(), number)
	require.NoError(t, err)
	return slot.Status
}

func (fx *fixture) reservation(t *testing.T, r domain.Reservation) {
	t.Helper()
	_, err := fx.raw.Reservations.Create(context.Background(), &r)
	require.NoError(t, err)
}

func (fx *fixture) liveAssignments(t *testing.T) []domain.Assignment {
	t.Helper()
	out, err := fx.raw.Assignments.Find(context.Background(), repository.AssignmentFilter{})
	require.NoError(t, err)
	return out
}

func (fx *fixture) expectNotifications() {
	fx.notifier.On("SendAssignmentNotice", mock.Anything, mock.Anything).Return(nil).Once()
	fx.notifier.On("PrintAssignmentReceipt", mock.Anything, mock.Anything).Return(nil).Once()
}

func raviInput(slot string) domain.AssignVehicleDTO {
	return domain.AssignVehicleDTO{
		VehicleNumber: "AP12BG1234",
		DriverName:    "Ravi Kumar",
		PhoneNumber:   "9876543210",
		TransportType: "Inward",
		SlotNumber:    slot,
	}
}
