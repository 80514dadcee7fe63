package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"
)

var ErrInvalidTransition = errors.New("slot status transition not allowed")

type SlotEvent string

const (
	// EventOccupy binds a vehicle: Available or Reserved -> Occupied.
	EventOccupy SlotEvent = "occupy"
	// EventVacate releases a vehicle: Occupied -> Available.
	EventVacate SlotEvent = "vacate"
	// EventReserve marks a slot held for a reservation due today.
	EventReserve SlotEvent = "reserve"
	// EventUnreserve returns a held slot once its reservation is rejected.
	EventUnreserve SlotEvent = "unreserve"
)

var slotEvents = fsm.Events{
	{Name: string(EventOccupy), Src: []string{string(StatusAvailable), string(StatusReserved)}, Dst: string(StatusOccupied)},
	{Name: string(EventVacate), Src: []string{string(StatusOccupied)}, Dst: string(StatusAvailable)},
	{Name: string(EventReserve), Src: []string{string(StatusAvailable)}, Dst: string(StatusReserved)},
	{Name: string(EventUnreserve), Src: []string{string(StatusReserved)}, Dst: string(StatusAvailable)},
}

func (e SlotEvent) Target() (SlotStatus, bool) {
	for _, desc := range slotEvents {
		if desc.Name == string(e) {
			return SlotStatus(desc.Dst), true
		}
	}
	return "", false
}

// NextSlotStatus resolves the status a slot moves to when event is applied in status current.
// A slot already in the event's target status stays where it is, so replaying an event is harmless.
func NextSlotStatus(ctx context.Context, current SlotStatus, event SlotEvent) (SlotStatus, error) {
	target, ok := event.Target()
	if !ok {
		return current, fmt.Errorf("%w: unknown event %q", ErrInvalidTransition, event)
	}
	if current == target {
		return current, nil
	}

	machine := fsm.NewFSM(string(current), slotEvents, fsm.Callbacks{})
	if err := machine.Event(ctx, string(event)); err != nil {
		var noTransition fsm.NoTransitionError
		if errors.As(err, &noTransition) {
			return current, nil
		}
		return current, fmt.Errorf("%w: %s while %s", ErrInvalidTransition, event, current)
	}
	return SlotStatus(machine.Current()), nil
}
