// Package eventstream defines transport-neutral events emitted by the relay
// after each request finishes, plus the Publisher interface for shipping
// them to an event stream backend.
package eventstream

import "time"

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeRequestCompleted is emitted after a relayed request reaches
	// its terminal frame, success or failure.
	EventTypeRequestCompleted = "relay.request.completed"
)

// RequestCompletedEvent is the payload published for one finished request.
type RequestCompletedEvent struct {
	SchemaVersion int         `json:"schema_version"`
	EventType     string      `json:"event_type"`
	EventID       string      `json:"event_id"`
	EmittedAt     time.Time   `json:"emitted_at"`
	Request       RequestMeta `json:"request"`
}

// RequestMeta captures the lifecycle and frame accounting of one request.
type RequestMeta struct {
	RequestID   string    `json:"request_id"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`
	WebSearch   bool      `json:"web_search"`

	// Status is "completed" or "failed".
	Status string `json:"status"`

	// Frames counts all frames written, terminal included.
	Frames int `json:"frames"`

	// Deltas counts text frames; Events counts event frames.
	Deltas int `json:"deltas"`
	Events int `json:"events"`

	// TextBytes is the size of the accumulated assistant text.
	TextBytes int `json:"text_bytes"`

	// Error carries the failure message for failed requests.
	Error string `json:"error,omitempty"`
}
