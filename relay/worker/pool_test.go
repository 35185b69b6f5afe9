package worker

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/kosar/responses-api/pkg/eventstream"
)

// capturePublisher records every published event for assertions.
type capturePublisher struct {
	mu     sync.Mutex
	events []*eventstream.RequestCompletedEvent
}

func (p *capturePublisher) PublishRequest(_ context.Context, event *eventstream.RequestCompletedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) published() []*eventstream.RequestCompletedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*eventstream.RequestCompletedEvent(nil), p.events...)
}

// newTestPool creates a worker pool backed by a capture publisher.
// Callers should "wp.Close()" to drain enqueued jobs before asserting.
func newTestPool() (*Pool, *capturePublisher) {
	logger, _ := zap.NewDevelopment()
	publisher := &capturePublisher{}

	wp, err := NewPool(&Config{
		Publisher: publisher,
		Logger:    logger,
	})
	Expect(err).NotTo(HaveOccurred())

	return wp, publisher
}

func testJob(status string) Job {
	started := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return Job{
		RequestID:   "req-1",
		StartedAt:   started,
		CompletedAt: started.Add(1500 * time.Millisecond),
		Status:      status,
		Frames:      7,
		Deltas:      4,
		Events:      3,
		TextBytes:   12,
	}
}

var _ = Describe("Worker Pool", func() {
	var (
		wp        *Pool
		publisher *capturePublisher
	)

	BeforeEach(func() {
		wp, publisher = newTestPool()
	})

	Describe("NewPool", func() {
		It("requires a publisher", func() {
			_, err := NewPool(&Config{Logger: zap.NewNop()})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Enqueue", func() {
		It("returns true when the queue has capacity", func() {
			ok := wp.Enqueue(testJob(StatusCompleted))
			Expect(ok).To(BeTrue())
			wp.Close()
		})
	})

	Describe("accounting", func() {
		Context("after a completed and a failed job", func() {
			BeforeEach(func() {
				wp.Enqueue(testJob(StatusCompleted))

				failed := testJob(StatusFailed)
				failed.RequestID = "req-2"
				failed.Error = "upstream response failed"
				wp.Enqueue(failed)

				// Drain the pool so stats and publishing settle before assertions.
				wp.Close()
			})

			It("folds both jobs into the aggregate stats", func() {
				stats := wp.Snapshot()
				Expect(stats.Requests).To(Equal(uint64(2)))
				Expect(stats.Completed).To(Equal(uint64(1)))
				Expect(stats.Failed).To(Equal(uint64(1)))
				Expect(stats.Frames).To(Equal(uint64(14)))
				Expect(stats.Deltas).To(Equal(uint64(8)))
				Expect(stats.Events).To(Equal(uint64(6)))
				Expect(stats.TextBytes).To(Equal(uint64(24)))
				Expect(stats.LastAt).NotTo(BeZero())
			})

			It("publishes one completion event per job", func() {
				events := publisher.published()
				Expect(events).To(HaveLen(2))

				byRequest := map[string]*eventstream.RequestCompletedEvent{}
				for _, ev := range events {
					Expect(ev.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
					Expect(ev.EventType).To(Equal(eventstream.EventTypeRequestCompleted))
					Expect(ev.EventID).NotTo(BeEmpty())
					byRequest[ev.Request.RequestID] = ev
				}

				completed := byRequest["req-1"]
				Expect(completed).NotTo(BeNil())
				Expect(completed.Request.Status).To(Equal(StatusCompleted))
				Expect(completed.Request.DurationMs).To(Equal(int64(1500)))

				failed := byRequest["req-2"]
				Expect(failed).NotTo(BeNil())
				Expect(failed.Request.Status).To(Equal(StatusFailed))
				Expect(failed.Request.Error).To(Equal("upstream response failed"))
			})
		})
	})
})
