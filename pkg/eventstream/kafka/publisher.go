// Package kafka implements an eventstream publisher backed by Apache Kafka.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kosar/responses-api/pkg/eventstream"
)

// Config holds the Kafka connection settings.
type Config struct {
	// Brokers is the list of bootstrap broker addresses.
	Brokers []string

	// Topic receives relay.request.completed events.
	Topic string
}

// Publisher writes request events to a Kafka topic, keyed by event ID so
// replays of the same event land on the same partition.
type Publisher struct {
	writer *kafkago.Writer
}

// NewPublisher creates a Kafka-backed publisher.
func NewPublisher(config Config) (*Publisher, error) {
	if len(config.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if config.Topic == "" {
		return nil, fmt.Errorf("topic is required")
	}

	writer := &kafkago.Writer{
		Addr:     kafkago.TCP(config.Brokers...),
		Topic:    config.Topic,
		Balancer: &kafkago.LeastBytes{},
	}

	return &Publisher{writer: writer}, nil
}

// PublishRequest marshals the event as JSON and writes one Kafka message.
func (p *Publisher) PublishRequest(ctx context.Context, event *eventstream.RequestCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilRequestEvent
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling request event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(event.EventID),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("writing request event: %w", err)
	}

	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
