// Package relay provides the server side of the chat demo: it accepts a
// conversation over HTTP, opens one streaming session against the upstream
// Responses API, and re-emits the upstream protocol as normalized frames
// over a server-sent event stream.
package relay

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kosar/responses-api/pkg/chat"
	"github.com/kosar/responses-api/pkg/eventstream"
	eskafka "github.com/kosar/responses-api/pkg/eventstream/kafka"
	"github.com/kosar/responses-api/pkg/eventstream/nop"
	"github.com/kosar/responses-api/pkg/frame"
	"github.com/kosar/responses-api/pkg/upstream"
	"github.com/kosar/responses-api/relay/worker"
	"github.com/kosar/responses-api/web"
)

// errorResponse is the JSON body for non-streaming error replies.
type errorResponse struct {
	Error string `json:"error"`
}

// Server relays chat requests to the upstream Responses API and streams
// normalized frames back to clients. Requests are fully independent: each
// gets its own upstream session and accumulator, so arbitrary concurrency
// across conversations is safe.
type Server struct {
	config    Config
	logger    *zap.Logger
	server    *fiber.App
	client    *upstream.Client
	pool      *worker.Pool
	publisher eventstream.Publisher
}

// New creates a new relay Server.
func New(config Config, logger *zap.Logger) (*Server, error) {
	if config.Upstream.BaseURL == "" {
		return nil, errors.New("upstream base URL is required")
	}

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
		// Enable streaming
		StreamRequestBody: true,
	})

	app.Use(compress.New())

	var publisher eventstream.Publisher
	if len(config.Brokers) > 0 {
		p, err := eskafka.NewPublisher(eskafka.Config{
			Brokers: config.Brokers,
			Topic:   config.Topic,
		})
		if err != nil {
			return nil, err
		}
		publisher = p
	} else {
		publisher = nop.NewPublisher()
	}

	pool, err := worker.NewPool(&worker.Config{
		Publisher: publisher,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	s := &Server{
		config:    config,
		logger:    logger,
		server:    app,
		client:    upstream.NewClient(config.Upstream),
		pool:      pool,
		publisher: publisher,
	}

	app.Get("/ping", s.handlePing)
	app.Post("/api/chat", s.handleChat)
	app.Get("/api/stats", s.handleStats)

	// The browser UI is presentation only; everything it needs comes over
	// the /api routes above.
	app.Use(adaptor.HTTPHandler(http.FileServer(http.FS(web.Static()))))

	return s, nil
}

// Run starts the relay server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting relay server",
		zap.String("listen", s.config.ListenAddr),
		zap.String("upstream", s.config.Upstream.BaseURL),
	)
	return s.server.Listen(s.config.ListenAddr)
}

// RunWithListener starts the relay server using the provided listener.
func (s *Server) RunWithListener(listener net.Listener) error {
	s.logger.Info("starting relay server",
		zap.String("listen", listener.Addr().String()),
		zap.String("upstream", s.config.Upstream.BaseURL),
	)
	return s.server.Listener(listener)
}

// Close gracefully shuts down the relay and drains the worker pool.
func (s *Server) Close() error {
	err := s.server.Shutdown()
	s.pool.Close()
	if cerr := s.publisher.Close(); err == nil {
		err = cerr
	}
	return err
}

func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

func (s *Server) handleStats(c *fiber.Ctx) error {
	return c.JSON(s.pool.Snapshot())
}

// handleChat opens the upstream session and hands the connection over to
// the streaming goroutine. Immediate upstream failures are reported with a
// non-200 status; once streaming starts, failures travel as error frames.
func (s *Server) handleChat(c *fiber.Ctx) error {
	var req chat.Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid request body"})
	}
	if len(req.Messages) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "messages are required"})
	}

	// Use context.Background() instead of c.Context() because fasthttp
	// recycles its RequestCtx after the handler returns, but the streaming
	// goroutine runs past that and owns the upstream connection. The
	// cancel func is invoked when the client side of the pipe breaks.
	ctx, cancel := context.WithCancel(context.Background())

	session, err := s.client.Stream(ctx, req.Messages, req.EnableWebSearch)
	if err != nil {
		cancel()

		var statusErr *upstream.StatusError
		if errors.As(err, &statusErr) {
			s.logger.Error("upstream rejected request",
				zap.Int("status", statusErr.StatusCode),
				zap.String("body", statusErr.Body),
			)
			return c.Status(statusErr.StatusCode).JSON(errorResponse{Error: statusErr.Body})
		}

		s.logger.Error("upstream request failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(errorResponse{Error: "upstream request failed"})
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")

	// io.Pipe + SetBodyStream gives direct backpressure: every frame write
	// blocks until fasthttp flushes the bytes to the socket, so clients
	// see frames as they happen rather than in one buffered burst.
	pr, pw := io.Pipe()
	go s.streamFrames(session, pw, cancel, req.EnableWebSearch)

	c.Context().Response.SetBodyStream(pr, -1)
	return nil
}

// streamFrames runs the adapter for one request and settles the terminal
// frame, the sentinel, and the accounting job.
func (s *Server) streamFrames(session *upstream.Session, pw *io.PipeWriter, cancel context.CancelFunc, webSearch bool) {
	defer cancel()
	defer pw.Close()
	defer session.Close()

	requestID := uuid.NewString()
	startedAt := time.Now().UTC()

	fw := frame.NewWriter(pw)
	a := newAdapter(session, fw)

	err := a.run()

	status := worker.StatusCompleted
	var errMsg string
	if err != nil {
		status = worker.StatusFailed
		errMsg = err.Error()

		// A failed frame write means the client hung up; the upstream
		// session is abandoned and there is nobody left to tell.
		if writeErr := fw.Write(errorFrame(err)); writeErr != nil {
			s.logger.Debug("client disconnected before error frame",
				zap.String("request_id", requestID),
				zap.Error(writeErr),
			)
		}

		s.logger.Warn("relay request failed",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
	}

	if err := fw.WriteSentinel(); err != nil {
		s.logger.Debug("client disconnected before sentinel",
			zap.String("request_id", requestID),
		)
	}

	s.pool.Enqueue(worker.Job{
		RequestID:   requestID,
		WebSearch:   webSearch,
		StartedAt:   startedAt,
		CompletedAt: time.Now().UTC(),
		Status:      status,
		Error:       errMsg,
		Frames:      fw.Frames(),
		Deltas:      a.deltas,
		Events:      a.events,
		TextBytes:   a.text.Len(),
	})
}

// errorFrame maps an internal failure to its terminal error frame.
// Incomplete sessions keep the fixed "incomplete" message with the reason
// carried separately as details.
func errorFrame(err error) frame.Frame {
	var incomplete *upstream.IncompleteError
	if errors.As(err, &incomplete) {
		var details any
		if incomplete.Reason != "" {
			details = incomplete.Reason
		}
		return frame.Error("incomplete", details)
	}

	return frame.Error(err.Error(), nil)
}
