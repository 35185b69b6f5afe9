package reader

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kosar/responses-api/pkg/chat"
	"github.com/kosar/responses-api/pkg/frame"
)

// relayFixture returns an httptest server that answers /api/chat with the
// given SSE records.
func relayFixture(records []string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, ok := w.(http.Flusher)
		Expect(ok).To(BeTrue())

		for _, rec := range records {
			fmt.Fprint(w, rec)
			flusher.Flush()
		}
	}))
}

// record wraps a frame value in its SSE record form.
func record(json string) string {
	return "data: " + json + "\n\n"
}

// happyStream is a complete successful turn: lifecycle events around two
// deltas, then the done frame and the legacy sentinel.
var happyStream = []string{
	record(`{"type":"event","value":{"type":"response.created"}}`),
	record(`{"type":"text","value":"Hel"}`),
	record(`{"type":"text","value":"lo"}`),
	record(`{"type":"event","value":{"type":"response.output_text.done","text":"Hello"}}`),
	record(`{"type":"event","value":{"type":"response.completed"}}`),
	record(`{"type":"done"}`),
	record("[DONE]"),
}

// stepClock returns a deterministic clock that advances by step on each call.
func stepClock(start time.Time, step time.Duration) func() time.Time {
	current := start
	return func() time.Time {
		t := current
		current = current.Add(step)
		return t
	}
}

var _ = Describe("Controller", func() {
	var server *httptest.Server

	AfterEach(func() {
		if server != nil {
			server.Close()
			server = nil
		}
	})

	Describe("Submit", func() {
		Context("with a successful stream", func() {
			BeforeEach(func() {
				server = relayFixture(happyStream)
			})

			It("concatenates deltas into the assistant message", func() {
				ctrl := New(server.URL)
				Expect(ctrl.Submit(context.Background(), "Say hello", false)).To(Succeed())

				Expect(ctrl.State()).To(Equal(StateCompleted))
				msgs := ctrl.Messages()
				Expect(msgs).To(HaveLen(2))
				Expect(msgs[0].Role).To(Equal(chat.RoleUser))
				Expect(msgs[0].Content).To(Equal("Say hello"))
				Expect(msgs[1].Role).To(Equal(chat.RoleAssistant))
				Expect(msgs[1].Content).To(Equal("Hello"))
			})

			It("appends log entries in arrival order", func() {
				ctrl := New(server.URL)
				Expect(ctrl.Submit(context.Background(), "Say hello", false)).To(Succeed())

				log := ctrl.EventLog()
				Expect(log).To(HaveLen(3))
				Expect(log[0].Type).To(Equal(frame.KindCreated))
				Expect(log[1].Type).To(Equal(frame.KindOutputTextDone))
				Expect(log[2].Type).To(Equal(frame.KindCompleted))
			})

			It("annotates entries with elapsed-since-previous timing", func() {
				start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
				ctrl := New(server.URL, WithNow(stepClock(start, 100*time.Millisecond)))

				Expect(ctrl.Submit(context.Background(), "Say hello", false)).To(Succeed())

				log := ctrl.EventLog()
				Expect(log).To(HaveLen(3))
				for _, entry := range log {
					Expect(entry.Elapsed).To(Equal(100 * time.Millisecond))
				}
			})

			It("records the total elapsed at the completion event", func() {
				start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
				ctrl := New(server.URL, WithNow(stepClock(start, 100*time.Millisecond)))

				Expect(ctrl.Submit(context.Background(), "Say hello", false)).To(Succeed())

				// Clock calls: request start, then one per log entry. The
				// completion is the third entry, 300ms after start.
				Expect(ctrl.TotalElapsed()).To(Equal(300 * time.Millisecond))
			})

			It("invokes the text callback per delta, in order", func() {
				var deltas []string
				ctrl := New(server.URL, OnText(func(d string) { deltas = append(deltas, d) }))

				Expect(ctrl.Submit(context.Background(), "Say hello", false)).To(Succeed())
				Expect(deltas).To(Equal([]string{"Hel", "lo"}))
			})

			It("replays identically from the same stream", func() {
				run := func() ([]chat.Message, []string) {
					ctrl := New(server.URL)
					Expect(ctrl.Submit(context.Background(), "Say hello", false)).To(Succeed())

					var kinds []string
					for _, entry := range ctrl.EventLog() {
						kinds = append(kinds, entry.Type)
					}
					return ctrl.Messages(), kinds
				}

				msgs1, kinds1 := run()
				msgs2, kinds2 := run()

				Expect(msgs1[1].Content).To(Equal(msgs2[1].Content))
				Expect(kinds1).To(Equal(kinds2))
			})
		})

		Context("with duplicate completion events", func() {
			BeforeEach(func() {
				server = relayFixture([]string{
					record(`{"type":"event","value":{"type":"response.completed"}}`),
					record(`{"type":"event","value":{"type":"response.completed"}}`),
					record(`{"type":"done"}`),
				})
			})

			It("treats the duplicate as a no-op and keeps the first total", func() {
				start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
				ctrl := New(server.URL, WithNow(stepClock(start, 100*time.Millisecond)))

				Expect(ctrl.Submit(context.Background(), "hi", false)).To(Succeed())

				// Both events are still logged.
				Expect(ctrl.EventLog()).To(HaveLen(2))
				// The first completion fixes the total at 100ms; the second
				// does not move it.
				Expect(ctrl.TotalElapsed()).To(Equal(100 * time.Millisecond))
			})
		})

		Context("with web search events", func() {
			BeforeEach(func() {
				server = relayFixture([]string{
					record(`{"type":"event","value":{"type":"web_search.results","results":[{"title":"old","url":"https://example.com/old","snippet":"o"}],"resultCount":1}}`),
					record(`{"type":"event","value":{"type":"web_search.results","results":[{"title":"new","url":"https://example.com/new","snippet":"n"}],"resultCount":1}}`),
					record(`{"type":"event","value":{"type":"response.completed"}}`),
					record(`{"type":"done"}`),
				})
			})

			It("replaces the results view wholesale on each results event", func() {
				ctrl := New(server.URL)
				Expect(ctrl.Submit(context.Background(), "search", true)).To(Succeed())

				results := ctrl.SearchResults()
				Expect(results).To(HaveLen(1))
				Expect(results[0].Title).To(Equal("new"))
			})
		})

		Context("with a terminal error frame", func() {
			BeforeEach(func() {
				server = relayFixture([]string{
					record(`{"type":"event","value":{"type":"response.created"}}`),
					record(`{"type":"text","value":"Par"}`),
					record(`{"type":"error","value":{"message":"model overloaded"}}`),
					record("[DONE]"),
				})
			})

			It("fails with a StreamError", func() {
				ctrl := New(server.URL)
				err := ctrl.Submit(context.Background(), "hi", false)

				var streamErr *StreamError
				Expect(errors.As(err, &streamErr)).To(BeTrue())
				Expect(streamErr.Message).To(Equal("model overloaded"))
				Expect(ctrl.State()).To(Equal(StateFailed))
				Expect(ctrl.Err()).To(Equal(err))
			})

			It("rolls back the partial assistant message", func() {
				ctrl := New(server.URL)
				Expect(ctrl.Submit(context.Background(), "hi", false)).NotTo(Succeed())

				msgs := ctrl.Messages()
				Expect(msgs).To(HaveLen(1))
				Expect(msgs[0].Role).To(Equal(chat.RoleUser))
			})

			It("keeps the event log built before the failure", func() {
				ctrl := New(server.URL)
				Expect(ctrl.Submit(context.Background(), "hi", false)).NotTo(Succeed())

				log := ctrl.EventLog()
				Expect(log).To(HaveLen(1))
				Expect(log[0].Type).To(Equal(frame.KindCreated))
			})
		})

		Context("with a malformed frame record", func() {
			BeforeEach(func() {
				server = relayFixture([]string{
					record(`{"type":"text","value":"ok"}`),
					record(`{"type":"text","value"`),
					record(`{"type":"done"}`),
				})
			})

			It("fails the whole request with a DecodeError", func() {
				ctrl := New(server.URL)
				err := ctrl.Submit(context.Background(), "hi", false)

				var decodeErr *DecodeError
				Expect(errors.As(err, &decodeErr)).To(BeTrue())
				Expect(ctrl.State()).To(Equal(StateFailed))
				Expect(ctrl.Messages()).To(HaveLen(1))
			})
		})

		Context("when the stream ends without a terminal frame", func() {
			BeforeEach(func() {
				server = relayFixture([]string{
					record(`{"type":"text","value":"Hel"}`),
				})
			})

			It("fails with a TransportError", func() {
				ctrl := New(server.URL)
				err := ctrl.Submit(context.Background(), "hi", false)

				var transportErr *TransportError
				Expect(errors.As(err, &transportErr)).To(BeTrue())
				Expect(ctrl.State()).To(Equal(StateFailed))
			})
		})

		Context("when the relay rejects the request", func() {
			BeforeEach(func() {
				server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusBadRequest)
					fmt.Fprint(w, `{"error":"messages are required"}`)
				}))
			})

			It("fails with the status carried on the TransportError", func() {
				ctrl := New(server.URL)
				err := ctrl.Submit(context.Background(), "hi", false)

				var transportErr *TransportError
				Expect(errors.As(err, &transportErr)).To(BeTrue())
				Expect(transportErr.Status).To(Equal(http.StatusBadRequest))
				Expect(ctrl.State()).To(Equal(StateFailed))
				Expect(ctrl.Messages()).To(HaveLen(1))
			})
		})

		Context("when the relay is unreachable", func() {
			It("fails with a TransportError and no status", func() {
				ctrl := New("http://127.0.0.1:1")
				err := ctrl.Submit(context.Background(), "hi", false)

				var transportErr *TransportError
				Expect(errors.As(err, &transportErr)).To(BeTrue())
				Expect(transportErr.Status).To(BeZero())
				Expect(ctrl.State()).To(Equal(StateFailed))
			})
		})

		Context("across consecutive turns", func() {
			BeforeEach(func() {
				server = relayFixture(happyStream)
			})

			It("keeps the conversation growing and resets per-request state", func() {
				ctrl := New(server.URL)

				Expect(ctrl.Submit(context.Background(), "first", false)).To(Succeed())
				Expect(ctrl.Submit(context.Background(), "second", false)).To(Succeed())

				msgs := ctrl.Messages()
				Expect(msgs).To(HaveLen(4))
				Expect(msgs[0].Content).To(Equal("first"))
				Expect(msgs[1].Content).To(Equal("Hello"))
				Expect(msgs[2].Content).To(Equal("second"))
				Expect(msgs[3].Content).To(Equal("Hello"))

				// The event log covers only the most recent request.
				Expect(ctrl.EventLog()).To(HaveLen(3))
			})
		})
	})
})
