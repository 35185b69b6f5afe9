package nop

import (
	"context"

	"github.com/kosar/responses-api/pkg/eventstream"
)

// Publisher is a no-op eventstream publisher used for tests and disabled mode.
type Publisher struct{}

// NewPublisher creates a new no-op eventstream publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishRequest validates input and otherwise does nothing.
func (p *Publisher) PublishRequest(_ context.Context, event *eventstream.RequestCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilRequestEvent
	}

	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}
