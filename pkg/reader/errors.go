package reader

import (
	"errors"
	"fmt"
)

// ErrRequestInFlight is returned by Submit while a previous request is
// still requesting or streaming.
var ErrRequestInFlight = errors.New("request already in flight")

// TransportError indicates the request was rejected or the stream was
// unreadable before any well-formed frame arrived.
type TransportError struct {
	// Status is the HTTP status code, or 0 when the failure happened
	// below HTTP.
	Status int
	Msg    string
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("relay returned status %d: %s", e.Status, e.Msg)
	}
	return e.Msg
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError indicates a malformed record in the frame stream. Decoding
// is all-or-nothing: one bad record abandons the remaining stream.
type DecodeError struct {
	Record string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed frame record %q: %v", e.Record, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// StreamError carries the message of a terminal "error" frame.
type StreamError struct {
	Message string
	Details any
}

func (e *StreamError) Error() string {
	return e.Message
}
