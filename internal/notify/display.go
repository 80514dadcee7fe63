package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"yard_parking/internal/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane"
)

type IoTPublisher interface {
	Publish(ctx context.Context, in *iotdataplane.PublishInput, optFns ...func(*iotdataplane.Options)) (*iotdataplane.PublishOutput, error)
}

// DisplayPublisher pushes each slot status change to the MQTT topic of that slot's board,
// <prefix>/<slot_number>/status.
type DisplayPublisher struct {
	client IoTPublisher
	prefix string
}

func NewDisplayPublisher(client IoTPublisher, prefix string) *DisplayPublisher {
	return &DisplayPublisher{client: client, prefix: strings.TrimSuffix(prefix, "/")}
}

// NewIoTDataClient builds the IoT data-plane client for endpoint (scheme optional).
func NewIoTDataClient(cfg aws.Config, endpoint string) *iotdataplane.Client {
	return iotdataplane.NewFromConfig(cfg, func(o *iotdataplane.Options) {
		if endpoint == "" {
			return
		}
		if !strings.HasPrefix(endpoint, "https://") && !strings.HasPrefix(endpoint, "http://") {
			endpoint = "https://" + endpoint
		}
		o.BaseEndpoint = aws.String(endpoint)
	})
}

func (p *DisplayPublisher) Topic(slotNumber string) string {
	return fmt.Sprintf("%s/%s/status", p.prefix, slotNumber)
}

func (p *DisplayPublisher) SlotStatusChanged(ctx context.Context, change domain.SlotStatusChange) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("notify: encode slot change: %w", err)
	}
	_, err = p.client.Publish(ctx, &iotdataplane.PublishInput{
		Topic:   aws.String(p.Topic(change.SlotNumber)),
		Qos:     1,
		Retain:  true,
		Payload: payload,
	})
	if err != nil {
		return fmt.Errorf("notify: publish %s status: %w", change.SlotNumber, err)
	}
	return nil
}
