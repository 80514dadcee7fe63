// Package notify delivers the side effects of slot allocation: SMS notices, printable
// receipts and the yard display boards.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"yard_parking/internal/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// yardDialPrefix turns the 10-digit local numbers drivers give into E.164.
const yardDialPrefix = "+91"

type SQSSender interface {
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SMSQueue hands assignment notices to the SMS gateway through an SQS queue.
// The gateway owns delivery and retries.
type SMSQueue struct {
	client   SQSSender
	queueURL string
}

func NewSMSQueue(client SQSSender, queueURL string) *SMSQueue {
	return &SMSQueue{client: client, queueURL: queueURL}
}

type smsRequest struct {
	To      string                  `json:"to"`
	Message string                  `json:"message"`
	Notice  domain.AssignmentNotice `json:"notice"`
}

func (q *SMSQueue) Send(ctx context.Context, notice domain.AssignmentNotice) error {
	body, err := json.Marshal(smsRequest{
		To: dialNumber(notice.PhoneNumber),
		Message: fmt.Sprintf("Dear %s, vehicle %s is assigned to slot %s.",
			notice.DriverName, notice.VehicleNumber, notice.SlotNumber),
		Notice: notice,
	})
	if err != nil {
		return fmt.Errorf("notify: encode sms request: %w", err)
	}
	_, err = q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"kind": {DataType: aws.String("String"), StringValue: aws.String("assignment_notice")},
		},
	})
	if err != nil {
		return fmt.Errorf("notify: enqueue sms for %s: %w", notice.VehicleNumber, err)
	}
	return nil
}

func dialNumber(phone string) string {
	if strings.HasPrefix(phone, "+") {
		return phone
	}
	return yardDialPrefix + phone
}
