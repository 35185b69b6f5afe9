// Package frame defines the normalized relay frame schema sent from the
// relay server to browser and terminal clients, plus the SSE encoding for
// those frames.
//
// A frame is a tagged variant with four cases: "text" carries an incremental
// assistant content fragment, "event" wraps a normalized upstream protocol
// event, "error" signals terminal failure, and "done" signals terminal
// success. Every relayed request ends with exactly one terminal frame
// ("done" or "error"), always last.
package frame

import (
	"encoding/json"
	"time"
)

// Frame type tags.
const (
	TypeText  = "text"
	TypeEvent = "event"
	TypeError = "error"
	TypeDone  = "done"
)

// Normalized event payload kinds. These names are the wire contract between
// the relay and its clients; the relay maps upstream Responses API event
// types onto this vocabulary.
const (
	KindCreated          = "response.created"
	KindInProgress       = "response.in_progress"
	KindOutputItemAdded  = "response.output_item.added"
	KindContentPartAdded = "response.content_part.added"
	KindOutputTextDone   = "response.output_text.done"
	KindOutputItemDone   = "response.output_item.done"
	KindContentPartDone  = "response.content_part.done"
	KindCompleted        = "response.completed"

	KindWebSearchStarted   = "web_search.started"
	KindWebSearchResults   = "web_search.results"
	KindWebSearchCompleted = "web_search.completed"
	KindWebSearchFailed    = "web_search.failed"
)

// Sentinel is the legacy stream terminator record body. It is written after
// the terminal frame for compatibility with EventSource-style consumers and
// must be recognized and ignored by readers. It is not the "done" frame.
const Sentinel = "[DONE]"

// Frame is one normalized unit of the relay protocol.
type Frame struct {
	Type  string `json:"type"`
	Value any    `json:"value,omitempty"`
}

// EventPayload is the normalized upstream event carried by an "event" frame.
// Kind-specific fields are populated only for the kinds that define them.
type EventPayload struct {
	Kind       string    `json:"type"`
	CapturedAt time.Time `json:"ts"`

	// Text is the accumulated full assistant text, set on
	// "response.output_text.done".
	Text string `json:"text,omitempty"`

	// Results is the normalized result list, set on "web_search.results".
	Results []SearchResult `json:"results,omitempty"`

	// ResultCount is set on "web_search.results" and "web_search.completed".
	ResultCount *int `json:"resultCount,omitempty"`

	// Error is the upstream search failure message, set on "web_search.failed".
	Error string `json:"error,omitempty"`

	// Raw preserves the original upstream event payload.
	Raw json.RawMessage `json:"raw,omitempty"`
}

// SearchResult is one normalized web search result.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// ErrorValue is the value of an "error" frame.
type ErrorValue struct {
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Text builds a "text" frame carrying one content delta.
func Text(delta string) Frame {
	return Frame{Type: TypeText, Value: delta}
}

// Event builds an "event" frame wrapping a normalized payload.
func Event(p EventPayload) Frame {
	return Frame{Type: TypeEvent, Value: p}
}

// Error builds a terminal "error" frame.
func Error(message string, details any) Frame {
	return Frame{Type: TypeError, Value: ErrorValue{Message: message, Details: details}}
}

// Done builds the terminal success frame.
func Done() Frame {
	return Frame{Type: TypeDone}
}

// IsTerminal reports whether the frame ends the stream for a request.
func (f Frame) IsTerminal() bool {
	return f.Type == TypeDone || f.Type == TypeError
}

// Raw is the decode-side view of a frame. Value is kept opaque so callers
// can re-parse it according to Type.
type Raw struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// Decode parses one frame record body (the JSON after the "data: " marker).
func Decode(data []byte) (*Raw, error) {
	var r Raw
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// TextValue returns the delta string of a "text" frame.
func (r *Raw) TextValue() (string, error) {
	var s string
	err := json.Unmarshal(r.Value, &s)
	return s, err
}

// EventValue returns the normalized payload of an "event" frame.
func (r *Raw) EventValue() (EventPayload, error) {
	var p EventPayload
	err := json.Unmarshal(r.Value, &p)
	return p, err
}

// ErrorValue returns the value of an "error" frame.
func (r *Raw) ErrorValue() (ErrorValue, error) {
	var v ErrorValue
	err := json.Unmarshal(r.Value, &v)
	return v, err
}
