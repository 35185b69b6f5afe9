// Package worker provides an asynchronous worker pool that records usage
// for finished relay requests and publishes completion events via the
// provided eventstream.Publisher.
//
// The pool decouples accounting from the relay's streaming hot path: the
// adapter enqueues one job per request after the terminal frame is written
// and never blocks on Kafka or counters.
package worker

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kosar/responses-api/pkg/eventstream"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
)

// Job statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Job is the accounting record for one finished relay request.
type Job struct {
	RequestID   string
	WebSearch   bool
	StartedAt   time.Time
	CompletedAt time.Time

	// Status is StatusCompleted or StatusFailed.
	Status string

	// Error is the failure message for failed requests.
	Error string

	Frames    int
	Deltas    int
	Events    int
	TextBytes int
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Publisher ships completion events downstream. Required; use the nop
	// publisher when event streaming is disabled.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// Logger is the provided zap logger
	Logger *zap.Logger
}

// Stats is an aggregate snapshot of relayed request accounting.
type Stats struct {
	Requests  uint64    `json:"requests"`
	Completed uint64    `json:"completed"`
	Failed    uint64    `json:"failed"`
	Frames    uint64    `json:"frames"`
	Deltas    uint64    `json:"deltas"`
	Events    uint64    `json:"events"`
	TextBytes uint64    `json:"text_bytes"`
	LastAt    time.Time `json:"last_at,omitzero"`
}

// Pool processes accounting jobs asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *zap.Logger

	mu    sync.RWMutex
	stats Stats
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in the job being dropped
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		p.logger.Debug("job queued",
			zap.String("request_id", job.RequestID),
			zap.String("status", job.Status),
		)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped",
			zap.String("request_id", job.RequestID),
			zap.String("status", job.Status),
		)
		return false
	}
}

// Snapshot returns the current aggregate stats.
func (p *Pool) Snapshot() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stats
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the relay HTTP server has stopped.
func (p *Pool) Close() {
	close(p.queue)
	p.wg.Wait()
}

// worker continuously pulls jobs off the queue, folds them into the
// aggregate stats, and publishes the completion event.
func (p *Pool) worker(id uint) {
	defer p.wg.Done()

	for job := range p.queue {
		p.record(job)

		event := &eventstream.RequestCompletedEvent{
			SchemaVersion: eventstream.SchemaVersionV1,
			EventType:     eventstream.EventTypeRequestCompleted,
			EventID:       uuid.NewString(),
			EmittedAt:     time.Now().UTC(),
			Request: eventstream.RequestMeta{
				RequestID:   job.RequestID,
				StartedAt:   job.StartedAt,
				CompletedAt: job.CompletedAt,
				DurationMs:  job.CompletedAt.Sub(job.StartedAt).Milliseconds(),
				WebSearch:   job.WebSearch,
				Status:      job.Status,
				Frames:      job.Frames,
				Deltas:      job.Deltas,
				Events:      job.Events,
				TextBytes:   job.TextBytes,
				Error:       job.Error,
			},
		}

		if err := p.config.Publisher.PublishRequest(context.Background(), event); err != nil {
			p.logger.Error("failed to publish request event",
				zap.Uint("worker", id),
				zap.String("request_id", job.RequestID),
				zap.Error(err),
			)
		}
	}
}

func (p *Pool) record(job Job) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.Requests++
	switch job.Status {
	case StatusFailed:
		p.stats.Failed++
	default:
		p.stats.Completed++
	}
	p.stats.Frames += uint64(job.Frames)
	p.stats.Deltas += uint64(job.Deltas)
	p.stats.Events += uint64(job.Events)
	p.stats.TextBytes += uint64(job.TextBytes)
	p.stats.LastAt = job.CompletedAt
}
