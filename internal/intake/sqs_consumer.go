// Package intake pulls reservation requests off an SQS queue.
package intake

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"yard_parking/internal/domain"
	"yard_parking/internal/service"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"
)

type SQSAPI interface {
	ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

type ReservationCreator interface {
	Create(ctx context.Context, dto domain.ReservationDTO) (*domain.Reservation, error)
}

// SQSConsumer turns queue messages into reservations. Messages that can never succeed
// (bad JSON, failed validation, unknown slot) are dropped; store failures are left on the
// queue for redelivery after the visibility timeout.
type SQSConsumer struct {
	client     SQSAPI
	queueURL   string
	creator    ReservationCreator
	log        *zap.Logger
	retryDelay time.Duration
}

func NewSQSConsumer(client SQSAPI, queueURL string, creator ReservationCreator, log *zap.Logger) *SQSConsumer {
	return &SQSConsumer{
		client:     client,
		queueURL:   queueURL,
		creator:    creator,
		log:        log.Named("intake"),
		retryDelay: 5 * time.Second,
	}
}

// Start polls until ctx is cancelled.
func (c *SQSConsumer) Start(ctx context.Context) {
	c.log.Info("listening for reservations", zap.String("queue", c.queueURL))
	for {
		select {
		case <-ctx.Done():
			c.log.Info("intake stopped")
			return
		default:
		}

		result, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            &c.queueURL,
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
			VisibilityTimeout:   60,
		})
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			c.log.Error("receive failed", zap.Error(err))
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
			}
			continue
		}

		for _, message := range result.Messages {
			if c.handle(ctx, message.Body) {
				c.deleteMessage(ctx, message.ReceiptHandle)
			}
		}
	}
}

// handle reports whether the message is finished with and can be deleted.
func (c *SQSConsumer) handle(ctx context.Context, body *string) bool {
	if body == nil {
		c.log.Warn("empty message dropped")
		return true
	}
	var dto domain.ReservationDTO
	if err := json.Unmarshal([]byte(*body), &dto); err != nil {
		c.log.Warn("malformed reservation dropped", zap.Error(err))
		return true
	}

	res, err := c.creator.Create(ctx, dto)
	switch {
	case err == nil:
		c.log.Info("reservation received",
			zap.String("reservation_id", res.ID), zap.String("slot", res.SlotNumber), zap.String("date", res.ReserveDate))
		return true
	case errors.Is(err, service.ErrValidationFailed), errors.Is(err, service.ErrNotFound):
		c.log.Warn("reservation rejected", zap.String("slot", dto.SlotNumber), zap.Error(err))
		return true
	default:
		c.log.Error("reservation not stored, will retry", zap.String("slot", dto.SlotNumber), zap.Error(err))
		return false
	}
}

func (c *SQSConsumer) deleteMessage(ctx context.Context, receiptHandle *string) {
	if receiptHandle == nil {
		return
	}
	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      &c.queueURL,
		ReceiptHandle: receiptHandle,
	})
	if err != nil {
		c.log.Error("delete message failed", zap.Error(err))
	}
}
