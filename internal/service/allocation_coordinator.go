package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"yard_parking/internal/domain"
	"yard_parking/internal/metrics"
	"yard_parking/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	notifyTimeout = 15 * time.Second
	rejectFanOut  = 8
)

// RejectResult lists the reservations removed by RejectReservations and those that were not.
type RejectResult struct {
	Rejected []string          `json:"rejected"`
	Failed   map[string]string `json:"failed,omitempty"`
}

// AllocationCoordinator runs the user-facing operations on top of the registry, ledger and
// reconciler. Every operation validates its input before the first write.
type AllocationCoordinator struct {
	reservations repository.ReservationRepository
	registry     *SlotRegistry
	ledger       *AssignmentLedger
	calendar     Calendar
	notifier     Notifier
	metrics      *metrics.Metrics
	log          *zap.Logger

	pending sync.WaitGroup
}

func NewAllocationCoordinator(
	store *repository.Store,
	registry *SlotRegistry,
	ledger *AssignmentLedger,
	calendar Calendar,
	notifier Notifier,
	m *metrics.Metrics,
	log *zap.Logger,
) *AllocationCoordinator {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &AllocationCoordinator{
		reservations: store.Reservations,
		registry:     registry,
		ledger:       ledger,
		calendar:     calendar,
		notifier:     notifier,
		metrics:      m,
		log:          log.Named("coordinator"),
	}
}

// Assign binds a vehicle to an Available slot and then notifies the driver.
func (c *AllocationCoordinator) Assign(ctx context.Context, in domain.AssignVehicleDTO) (a *domain.Assignment, err error) {
	defer func(start time.Time) { c.metrics.ObserveOperation("assign", start, err) }(time.Now())

	a, err = c.ledger.BeginAssignment(ctx, in)
	if err != nil {
		return a, err
	}
	c.log.Info("vehicle assigned",
		zap.String("assignment_id", a.ID), zap.String("vehicle", a.VehicleNumber), zap.String("slot", a.SlotNumber))
	c.notify(ctx, *a)
	return a, nil
}

// Unassign retires a live assignment into history and frees its slot.
func (c *AllocationCoordinator) Unassign(ctx context.Context, assignmentID string) (rec *domain.HistoryRecord, err error) {
	defer func(start time.Time) { c.metrics.ObserveOperation("unassign", start, err) }(time.Now())

	a, err := c.ledger.Get(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	rec, err = c.ledger.EndAssignment(ctx, *a)
	if err != nil {
		return rec, err
	}
	c.log.Info("vehicle unassigned",
		zap.String("assignment_id", a.ID), zap.String("vehicle", a.VehicleNumber), zap.String("slot", a.SlotNumber))
	return rec, nil
}

// Reassign moves a live assignment to another Available slot of the same transport type.
func (c *AllocationCoordinator) Reassign(ctx context.Context, assignmentID, newSlotNumber string) (moved *domain.Assignment, err error) {
	defer func(start time.Time) { c.metrics.ObserveOperation("reassign", start, err) }(time.Now())

	newSlotNumber = strings.TrimSpace(newSlotNumber)
	if err := validateSlotNumber(newSlotNumber); err != nil {
		return nil, err
	}
	a, err := c.ledger.Get(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if a.SlotNumber == newSlotNumber {
		return a, nil
	}
	target, err := c.registry.Get(ctx, newSlotNumber)
	if err != nil {
		return nil, err
	}
	if err := checkSlotFits(target, a.TransportType); err != nil {
		return nil, err
	}

	if err := c.ledger.ReassignSlot(ctx, *a, newSlotNumber); err != nil {
		return nil, err
	}
	c.log.Info("vehicle reassigned",
		zap.String("assignment_id", a.ID), zap.String("from", a.SlotNumber), zap.String("to", newSlotNumber))
	updated := *a
	updated.SlotNumber = newSlotNumber
	return &updated, nil
}

// AssignFromReservation converts a reservation into a live assignment and removes the
// reservation. A failed removal is logged and does not fail the call.
func (c *AllocationCoordinator) AssignFromReservation(ctx context.Context, reservationID string) (a *domain.Assignment, err error) {
	defer func(start time.Time) { c.metrics.ObserveOperation("assign_from_reservation", start, err) }(time.Now())

	res, err := c.reservations.FindByID(ctx, reservationID)
	if err != nil {
		return nil, storeError(err, "reservation %s", reservationID)
	}
	a, err = c.ledger.BeginAssignment(ctx, res.AssignInput(), domain.StatusAvailable, domain.StatusReserved)
	if err != nil {
		return a, err
	}

	if err := c.reservations.Delete(ctx, res.ID); err != nil {
		c.log.Warn("assignment created but reservation not removed",
			zap.String("reservation_id", res.ID), zap.String("assignment_id", a.ID), zap.Error(err))
	}
	c.log.Info("reservation converted",
		zap.String("reservation_id", res.ID), zap.String("assignment_id", a.ID), zap.String("slot", a.SlotNumber))
	c.notify(ctx, *a)
	return a, nil
}

// RejectReservations removes every listed reservation independently. One failing item never
// blocks the others; the call returns once all have settled, with a *PartialFailureError
// naming the failures.
func (c *AllocationCoordinator) RejectReservations(ctx context.Context, ids []string) (result *RejectResult, err error) {
	defer func(start time.Time) { c.metrics.ObserveOperation("reject", start, err) }(time.Now())

	ids = dedupe(ids)
	if len(ids) == 0 {
		v := &ValidationError{}
		v.add("ids", "select at least one reservation")
		return nil, v
	}

	today := c.calendar.Today()
	outcome := make([]error, len(ids))
	var g errgroup.Group
	g.SetLimit(rejectFanOut)
	for i, id := range ids {
		g.Go(func() error {
			outcome[i] = c.rejectOne(ctx, id, today)
			return nil
		})
	}
	_ = g.Wait()

	result = &RejectResult{Rejected: []string{}}
	failed := make(map[string]error)
	for i, id := range ids {
		if outcome[i] != nil {
			failed[id] = outcome[i]
			continue
		}
		result.Rejected = append(result.Rejected, id)
	}
	if len(failed) == 0 {
		return result, nil
	}
	result.Failed = make(map[string]string, len(failed))
	for id, ferr := range failed {
		result.Failed[id] = ferr.Error()
		c.log.Error("reservation reject failed", zap.String("reservation_id", id), zap.Error(ferr))
	}
	return result, &PartialFailureError{Failed: failed}
}

// rejectOne deletes one reservation and, when nothing else due holds its slot, moves a
// Reserved slot back to Available.
func (c *AllocationCoordinator) rejectOne(ctx context.Context, id, today string) error {
	res, err := c.reservations.FindByID(ctx, id)
	if err != nil {
		return storeError(err, "reservation %s", id)
	}
	if err := c.reservations.Delete(ctx, id); err != nil {
		return storeError(err, "delete reservation %s", id)
	}
	if res.ReserveDate > today {
		return nil
	}

	others, err := c.reservations.Find(ctx, repository.ReservationFilter{SlotNumber: &res.SlotNumber})
	if err != nil {
		return storeError(err, "reservations for slot %s", res.SlotNumber)
	}
	for _, other := range others {
		if other.ID != id && other.ReserveDate <= today {
			return nil
		}
	}
	if _, err := c.registry.Transition(ctx, res.SlotNumber, domain.EventUnreserve, "reject"); err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			return nil
		}
		return fmt.Errorf("reservation %s removed, slot %s not released: %w", id, res.SlotNumber, err)
	}
	return nil
}

// Wait blocks until every in-flight notification has finished.
func (c *AllocationCoordinator) Wait() {
	c.pending.Wait()
}

func (c *AllocationCoordinator) notify(ctx context.Context, a domain.Assignment) {
	notice := domain.AssignmentNotice{
		DriverName:    a.DriverName,
		PhoneNumber:   a.PhoneNumber,
		VehicleNumber: a.VehicleNumber,
		SlotNumber:    a.SlotNumber,
	}
	receipt := domain.AssignmentReceipt{
		AssignmentID:  a.ID,
		VehicleNumber: a.VehicleNumber,
		DriverName:    a.DriverName,
		PhoneNumber:   a.PhoneNumber,
		TransportType: a.TransportType,
		SlotNumber:    a.SlotNumber,
		IssuedAt:      a.CheckInTime,
	}

	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()

		if err := c.notifier.SendAssignmentNotice(nctx, notice); err != nil {
			c.metrics.IncNotificationFailed("sms")
			c.log.Warn("assignment notice not sent", zap.String("assignment_id", a.ID), zap.Error(err))
		}
		if err := c.notifier.PrintAssignmentReceipt(nctx, receipt); err != nil {
			c.metrics.IncNotificationFailed("receipt")
			c.log.Warn("assignment receipt not stored", zap.String("assignment_id", a.ID), zap.Error(err))
		}
	}()
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
