package eventstream_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kosar/responses-api/pkg/eventstream"
)

var _ = Describe("Event", func() {
	It("marshals RequestCompletedEvent with expected top-level keys", func() {
		now := time.Unix(1735689600, 0).UTC()
		event := eventstream.RequestCompletedEvent{
			SchemaVersion: eventstream.SchemaVersionV1,
			EventType:     eventstream.EventTypeRequestCompleted,
			EventID:       "evt_123",
			EmittedAt:     now,
			Request: eventstream.RequestMeta{
				RequestID:   "req_1",
				StartedAt:   now.Add(-2 * time.Second),
				CompletedAt: now,
				DurationMs:  2000,
				WebSearch:   true,
				Status:      "completed",
				Frames:      9,
				Deltas:      5,
				Events:      3,
				TextBytes:   42,
			},
		}

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		Expect(got).To(HaveKey("schema_version"))
		Expect(got).To(HaveKey("event_type"))
		Expect(got).To(HaveKey("event_id"))
		Expect(got).To(HaveKey("emitted_at"))
		Expect(got).To(HaveKey("request"))
	})

	It("omits the error field on successful requests", func() {
		payload, err := json.Marshal(eventstream.RequestCompletedEvent{
			Request: eventstream.RequestMeta{Status: "completed"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(string(payload)).NotTo(ContainSubstring(`"error"`))
	})

	It("defines stable event constants", func() {
		Expect(eventstream.SchemaVersionV1).To(BeNumerically(">", 0))
		Expect(eventstream.EventTypeRequestCompleted).To(Equal("relay.request.completed"))
	})

	It("provides ErrNilRequestEvent for nil payload validation", func() {
		Expect(eventstream.ErrNilRequestEvent).NotTo(BeNil())
		Expect(eventstream.ErrNilRequestEvent).To(MatchError("nil request event"))
	})
})
