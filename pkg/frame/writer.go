package frame

import (
	"encoding/json"
	"fmt"
	"io"
)

// Writer encodes frames as SSE records onto an io.Writer. Each record is a
// single "data: <json>" line followed by a blank line. When the destination
// is one end of an io.Pipe connected to an HTTP response body, every Write
// blocks until the transport consumes the record, giving per-frame
// backpressure.
type Writer struct {
	dest io.Writer

	// frames counts records written, terminal frame included,
	// sentinel excluded.
	frames int
}

// NewWriter returns a Writer that emits SSE records to dest.
func NewWriter(dest io.Writer) *Writer {
	return &Writer{dest: dest}
}

// Write encodes one frame as an SSE record.
func (w *Writer) Write(f Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encoding frame: %w", err)
	}

	if _, err := fmt.Fprintf(w.dest, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}

	w.frames++
	return nil
}

// WriteSentinel emits the legacy "[DONE]" terminator record. Call after the
// terminal frame; readers skip it.
func (w *Writer) WriteSentinel() error {
	if _, err := fmt.Fprintf(w.dest, "data: %s\n\n", Sentinel); err != nil {
		return fmt.Errorf("writing sentinel: %w", err)
	}
	return nil
}

// Frames returns the number of frames written so far.
func (w *Writer) Frames() int {
	return w.frames
}
