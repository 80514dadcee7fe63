package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"yard_parking/internal/domain"
	"yard_parking/internal/repository"
)

var (
	ErrValidationFailed       = errors.New("validation failed")
	ErrVehicleAlreadyAssigned = errors.New("vehicle already has a live assignment")
	ErrSlotAlreadyAssigned    = errors.New("slot already has a live assignment")
	ErrSlotUnavailable        = errors.New("slot is not available")
	ErrNotFound               = errors.New("not found")
	ErrRemoteFailure          = errors.New("store call failed")
	ErrInvalidTransition      = domain.ErrInvalidTransition
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every field that failed. It unwraps to ErrValidationFailed.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return fmt.Sprintf("%s: %s", ErrValidationFailed, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidationFailed }

func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// orNil returns nil when no field failed, so callers can `return v.orNil()`.
func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// PartialFailureError reports the items of a fan-out operation that did not complete.
type PartialFailureError struct {
	Failed map[string]error
}

func (e *PartialFailureError) IDs() []string {
	ids := make([]string, 0, len(e.Failed))
	for id := range e.Failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (e *PartialFailureError) Error() string {
	ids := e.IDs()
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%s (%v)", id, e.Failed[id]))
	}
	return "partial failure: " + strings.Join(parts, ", ")
}

func (e *PartialFailureError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, id := range e.IDs() {
		errs = append(errs, e.Failed[id])
	}
	return errs
}

// storeError classifies a repository error: missing records become ErrNotFound,
// anything else is a RemoteFailure carrying the cause.
func storeError(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	}
	return fmt.Errorf("%w: %s: %w", ErrRemoteFailure, msg, err)
}

// assignmentWriteError maps conditional-write conflicts to the business errors.
func assignmentWriteError(err error, a *domain.Assignment) error {
	switch {
	case errors.Is(err, repository.ErrVehicleTaken):
		return fmt.Errorf("%w: %s", ErrVehicleAlreadyAssigned, a.VehicleNumber)
	case errors.Is(err, repository.ErrSlotTaken):
		return fmt.Errorf("%w: %s", ErrSlotAlreadyAssigned, a.SlotNumber)
	}
	return storeError(err, "write assignment %s", a.ID)
}
