package eventstream

import "context"

// Publisher publishes request events to an event stream backend.
type Publisher interface {
	PublishRequest(ctx context.Context, event *RequestCompletedEvent) error
	Close() error
}
