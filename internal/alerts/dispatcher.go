package alerts

import (
	"context"
	"fmt"

	"github.com/voltwatch/voltwatch-core/internal/infrastructure/logging"
	"github.com/voltwatch/voltwatch-core/internal/infrastructure/metrics"
)

// ChannelConsumptionExceeded identifies threshold alerts to observers.
const ChannelConsumptionExceeded = "consumption.exceeded"

// Event is one threshold alert.
type Event struct {
	DeviceID string `json:"deviceId"`
	UserID   string `json:"userId"`
	Message  string `json:"message"`
}

// NewExceededEvent builds the alert for a device whose hourly consumption
// went over its ceiling.
func NewExceededEvent(deviceID, userID string, value, ceiling float64) Event {
	return Event{
		DeviceID: deviceID,
		UserID:   userID,
		Message: fmt.Sprintf("device %s exceeded its hourly consumption limit: %.2f > %.2f",
			deviceID, value, ceiling),
	}
}

// Broadcaster pushes an event to all currently connected observers.
// The WebSocket hub satisfies this.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// Publisher appends an event to a durable alert sink.
// *KafkaPublisher satisfies this.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Dispatcher delivers alerts to the configured sinks.
//
// The broadcaster is required; the publisher is optional and may be nil
// when Kafka is disabled.
type Dispatcher struct {
	broadcaster Broadcaster
	publisher   Publisher
	logger      *logging.Logger
	metrics     *metrics.Metrics
}

// NewDispatcher creates a dispatcher. publisher may be nil.
func NewDispatcher(b Broadcaster, p Publisher, logger *logging.Logger, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		broadcaster: b,
		publisher:   p,
		logger:      logger.With("component", "alerts"),
		metrics:     m,
	}
}

// Dispatch delivers the event to all sinks before returning, so the
// caller knows observers have been notified when the triggering ingest
// completes.
func (d *Dispatcher) Dispatch(ctx context.Context, event Event) {
	d.broadcaster.Broadcast(ChannelConsumptionExceeded, event)

	if d.publisher != nil {
		if err := d.publisher.Publish(ctx, event); err != nil {
			d.logger.Error("failed to append alert to ledger",
				"device_id", event.DeviceID,
				"user_id", event.UserID,
				"error", err,
			)
		}
	}

	d.metrics.AlertDispatched()
	d.logger.Info("alert dispatched",
		"device_id", event.DeviceID,
		"user_id", event.UserID,
	)
}
