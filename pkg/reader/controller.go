// Package reader implements the client side of the relay protocol: it
// submits a conversation turn, incrementally decodes the frame stream, and
// maintains two live views: the conversation with the assistant message
// growing by delta concatenation, and an append-only event log annotated
// with inter-event latency.
//
// All request-scoped state lives on the Controller; there are no ambient
// globals. One Controller owns one conversation, and each Submit call runs
// a fresh request state machine:
//
//	idle -> requesting -> streaming -> completed | failed
//
// A request never transitions back out of a terminal state; the next
// Submit starts over at requesting.
package reader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/kosar/responses-api/pkg/chat"
	"github.com/kosar/responses-api/pkg/frame"
	"github.com/kosar/responses-api/pkg/sse"
)

const chatPath = "/api/chat"

// State is the per-request lifecycle state.
type State string

const (
	StateIdle       State = "idle"
	StateRequesting State = "requesting"
	StateStreaming  State = "streaming"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// LogEntry is one event log record. Entries are append-only and ordered by
// arrival, which matches the causal order of the upstream session.
type LogEntry struct {
	Type      string
	Timestamp time.Time
	Payload   frame.EventPayload

	// Elapsed is the time since the previous event, or since request
	// start for the first entry. Never negative.
	Elapsed time.Duration
}

// Option configures a Controller.
type Option func(*Controller)

// WithHTTPClient overrides the HTTP client used for relay requests.
func WithHTTPClient(c *http.Client) Option {
	return func(ctrl *Controller) { ctrl.httpClient = c }
}

// WithLogger sets the debug logger.
func WithLogger(l *slog.Logger) Option {
	return func(ctrl *Controller) { ctrl.logger = l }
}

// WithNow overrides the clock. For tests.
func WithNow(now func() time.Time) Option {
	return func(ctrl *Controller) { ctrl.now = now }
}

// OnText registers a callback invoked for every text delta as it decodes,
// before the conversation view is updated. Used for live terminal output.
func OnText(fn func(delta string)) Option {
	return func(ctrl *Controller) { ctrl.onText = fn }
}

// OnEvent registers a callback invoked for every appended log entry.
func OnEvent(fn func(entry LogEntry)) Option {
	return func(ctrl *Controller) { ctrl.onEvent = fn }
}

// Controller owns one conversation and the state of its current request.
// It is not safe for concurrent use; the relay contract is one request in
// flight per conversation.
type Controller struct {
	target     string
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
	onText     func(string)
	onEvent    func(LogEntry)

	conversation chat.Conversation
	state        State

	// per-request state, reset by Submit
	log          []LogEntry
	results      []frame.SearchResult
	requestStart time.Time
	lastEvent    time.Time
	totalElapsed time.Duration
	err          error
	assistantID  string
	sawCompleted bool
}

// New creates a Controller that submits against the given relay base URL.
func New(target string, opts ...Option) *Controller {
	ctrl := &Controller{
		target: target,
		httpClient: &http.Client{
			// Streams can be long-lived; match the relay's upstream budget.
			Timeout: 5 * time.Minute,
		},
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
		state:  StateIdle,
	}

	for _, opt := range opts {
		opt(ctrl)
	}

	return ctrl
}

// State returns the current request state.
func (c *Controller) State() State { return c.state }

// Messages returns the conversation in order.
func (c *Controller) Messages() []chat.Message { return c.conversation.Messages() }

// EventLog returns the event log of the most recent request.
func (c *Controller) EventLog() []LogEntry { return c.log }

// SearchResults returns the current web search results view, replaced
// wholesale whenever a web_search.results event arrives.
func (c *Controller) SearchResults() []frame.SearchResult { return c.results }

// TotalElapsed returns the request duration recorded at the completion
// event, or zero if the request has not completed.
func (c *Controller) TotalElapsed() time.Duration { return c.totalElapsed }

// Err returns the terminal error of the most recent request, if any.
func (c *Controller) Err() error { return c.err }

// Submit runs one conversation turn: it appends the user message, streams
// the relay response, and settles in StateCompleted or StateFailed. On
// failure the in-progress assistant message is removed, so a failed turn
// leaves no partial assistant entry. The event log built so far is kept
// for inspection.
func (c *Controller) Submit(ctx context.Context, input string, webSearch bool) error {
	if c.state == StateRequesting || c.state == StateStreaming {
		return ErrRequestInFlight
	}

	c.conversation.Append(chat.NewMessage(chat.RoleUser, input))

	// Wire form is captured before the assistant placeholder exists, so
	// the in-progress message never crosses the wire.
	wire := c.conversation.Wire()

	assistant := chat.NewMessage(chat.RoleAssistant, "")
	c.conversation.Append(assistant)
	c.assistantID = assistant.ID

	c.log = nil
	c.results = nil
	c.totalElapsed = 0
	c.err = nil
	c.sawCompleted = false
	c.state = StateRequesting
	c.requestStart = c.now()
	c.lastEvent = c.requestStart

	body, err := json.Marshal(chat.Request{
		Messages:        wire,
		EnableWebSearch: webSearch,
	})
	if err != nil {
		return c.fail(&TransportError{Msg: "encoding request", Err: err})
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.target+chatPath, bytes.NewReader(body))
	if err != nil {
		return c.fail(&TransportError{Msg: "creating request", Err: err})
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	c.logger.Debug("submitting chat request",
		"target", c.target,
		"messages", len(wire),
		"web_search", webSearch,
	)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return c.fail(&TransportError{Msg: fmt.Sprintf("sending request: %v", err), Err: err})
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return c.fail(&TransportError{Status: resp.StatusCode, Msg: string(respBody)})
	}

	return c.consume(resp.Body)
}

// consume decodes the frame stream until a terminal frame.
func (c *Controller) consume(body io.Reader) error {
	// requesting -> streaming on the first byte received.
	first := &firstByteReader{
		src:    body,
		onByte: func() { c.state = StateStreaming },
	}

	records := sse.NewReader(first)
	for {
		rec, err := records.Next()
		if err != nil {
			return c.fail(&TransportError{Msg: fmt.Sprintf("reading stream: %v", err), Err: err})
		}
		if rec == nil {
			// The relay guarantees a terminal frame; an exhausted stream
			// without one is a transport fault.
			return c.fail(&TransportError{Msg: "stream ended without terminal frame"})
		}

		// Legacy sentinel is recognized and ignored; it is not the done frame.
		if rec.Data == "" || rec.Data == frame.Sentinel {
			continue
		}

		f, err := frame.Decode([]byte(rec.Data))
		if err != nil {
			// Fatal for the whole request: no partial recovery of a bad record.
			return c.fail(&DecodeError{Record: rec.Data, Err: err})
		}

		terminal, err := c.dispatch(f)
		if err != nil {
			return c.fail(err)
		}
		if terminal {
			c.state = StateCompleted
			return nil
		}
	}
}

// dispatch applies one decoded frame to the live views. The returned bool
// reports terminal success.
func (c *Controller) dispatch(f *frame.Raw) (bool, error) {
	switch f.Type {
	case frame.TypeText:
		delta, err := f.TextValue()
		if err != nil {
			return false, &DecodeError{Record: string(f.Value), Err: err}
		}
		if c.onText != nil {
			c.onText(delta)
		}
		if msg := c.conversation.Find(c.assistantID); msg != nil {
			msg.Content += delta
		}
		return false, nil

	case frame.TypeEvent:
		payload, err := f.EventValue()
		if err != nil {
			return false, &DecodeError{Record: string(f.Value), Err: err}
		}
		c.appendLog(payload)
		return false, nil

	case frame.TypeError:
		val, err := f.ErrorValue()
		if err != nil {
			return false, &DecodeError{Record: string(f.Value), Err: err}
		}
		return false, &StreamError{Message: val.Message, Details: val.Details}

	case frame.TypeDone:
		// No state change beyond terminal success; the stream is expected
		// to end immediately after.
		return true, nil

	default:
		return false, &DecodeError{Record: string(f.Value), Err: fmt.Errorf("unknown frame type %q", f.Type)}
	}
}

func (c *Controller) appendLog(payload frame.EventPayload) {
	now := c.now()
	entry := LogEntry{
		Type:      payload.Kind,
		Timestamp: now,
		Payload:   payload,
		Elapsed:   now.Sub(c.lastEvent),
	}
	c.lastEvent = now
	c.log = append(c.log, entry)

	switch payload.Kind {
	case frame.KindWebSearchResults:
		c.results = payload.Results
	case frame.KindCompleted:
		// A duplicate completion is a no-op; the first total wins.
		if !c.sawCompleted {
			c.sawCompleted = true
			c.totalElapsed = now.Sub(c.requestStart)
		}
	}

	if c.onEvent != nil {
		c.onEvent(entry)
	}
}

// fail settles the request in StateFailed and rolls back the in-progress
// assistant message.
func (c *Controller) fail(err error) error {
	c.state = StateFailed
	c.err = err
	c.conversation.Remove(c.assistantID)
	c.logger.Debug("request failed", "err", err)
	return err
}

// firstByteReader invokes onByte once, when the first byte arrives.
type firstByteReader struct {
	src    io.Reader
	onByte func()
	fired  atomic.Bool
}

func (r *firstByteReader) Read(p []byte) (int, error) {
	n, err := r.src.Read(p)
	if n > 0 && !r.fired.Swap(true) {
		r.onByte()
	}
	return n, err
}
