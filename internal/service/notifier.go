package service

import (
	"context"

	"yard_parking/internal/domain"
)

// Notifier delivers the driver-facing side effects of an assignment. Both calls are best
// effort: their errors are logged and never change the outcome of the assignment.
type Notifier interface {
	SendAssignmentNotice(ctx context.Context, notice domain.AssignmentNotice) error
	PrintAssignmentReceipt(ctx context.Context, receipt domain.AssignmentReceipt) error
}

type nopNotifier struct{}

func (nopNotifier) SendAssignmentNotice(context.Context, domain.AssignmentNotice) error   { return nil }
func (nopNotifier) PrintAssignmentReceipt(context.Context, domain.AssignmentReceipt) error { return nil }
