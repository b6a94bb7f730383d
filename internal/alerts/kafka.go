package alerts

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/voltwatch/voltwatch-core/internal/infrastructure/config"
)

// KafkaPublisher appends alerts to a Kafka topic, keyed by device ID so
// a device's alerts stay ordered within a partition.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a publisher for the configured alert topic.
func NewKafkaPublisher(cfg config.KafkaConfig) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.AlertsTopic,
			RequiredAcks: kafka.RequireOne,
			Async:        false,
		},
	}
}

// Publish appends one alert event to the topic.
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode alert event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.DeviceID),
		Value: value,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write alert to kafka: %w", err)
	}

	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
