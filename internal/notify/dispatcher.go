package notify

import (
	"context"

	"yard_parking/internal/domain"
)

// Dispatcher fans assignment side effects out to the configured channels. A nil channel is
// skipped, so a yard without SMS or receipt storage still assigns vehicles.
type Dispatcher struct {
	SMS      *SMSQueue
	Receipts *ReceiptStore
}

func (d *Dispatcher) SendAssignmentNotice(ctx context.Context, notice domain.AssignmentNotice) error {
	if d.SMS == nil {
		return nil
	}
	return d.SMS.Send(ctx, notice)
}

func (d *Dispatcher) PrintAssignmentReceipt(ctx context.Context, receipt domain.AssignmentReceipt) error {
	if d.Receipts == nil {
		return nil
	}
	return d.Receipts.Put(ctx, receipt)
}
