package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kosar/responses-api/pkg/chat"
	"github.com/kosar/responses-api/pkg/sse"
)

const responsesPath = "/v1/responses"

// Config holds upstream connection settings.
type Config struct {
	// BaseURL is the provider base URL (e.g. "https://api.openai.com").
	BaseURL string

	// APIKey is sent as a bearer token when non-empty.
	APIKey string

	// Model is the model name passed on every request.
	Model string

	// HTTPClient overrides the default client. The default carries a
	// 5-minute timeout; upstream sessions can be slow and no per-event
	// idle timeout is enforced.
	HTTPClient *http.Client
}

// Client opens streaming sessions against the Responses API.
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates an upstream client.
func NewClient(config Config) *Client {
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			// LLM responses can be slow, especially with tool calls
			Timeout: 5 * time.Minute,
		}
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
	}
}

// streamRequest is the Responses API request body.
type streamRequest struct {
	Model  string             `json:"model"`
	Input  []chat.WireMessage `json:"input"`
	Stream bool               `json:"stream"`
	Tools  []streamTool       `json:"tools,omitempty"`
}

type streamTool struct {
	Type string `json:"type"`
}

// StatusError is returned when the upstream rejects the request before any
// stream is established.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Body)
}

// Stream opens one streaming session. Messages pass through verbatim; when
// webSearch is set the web_search tool is requested. The returned Session
// must be closed by the caller.
func (c *Client) Stream(ctx context.Context, messages []chat.WireMessage, webSearch bool) (*Session, error) {
	reqBody := streamRequest{
		Model:  c.config.Model,
		Input:  messages,
		Stream: true,
	}
	if webSearch {
		reqBody.Tools = []streamTool{{Type: "web_search"}}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling upstream request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+responsesPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating upstream request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(httpResp.Body)
		httpResp.Body.Close()
		return nil, &StatusError{StatusCode: httpResp.StatusCode, Body: string(respBody)}
	}

	return &Session{
		body:   httpResp.Body,
		reader: sse.NewReader(httpResp.Body),
	}, nil
}

// Session is one live upstream streaming connection.
type Session struct {
	body   io.ReadCloser
	reader *sse.Reader
}

// Next returns the next upstream event in arrival order, blocking until one
// is available. Records that are not parseable JSON are skipped, as is the
// "[DONE]" sentinel some streams append. Next returns nil, nil when the
// session is exhausted.
func (s *Session) Next() (*Event, error) {
	for {
		rec, err := s.reader.Next()
		if err != nil {
			return nil, fmt.Errorf("reading upstream stream: %w", err)
		}
		if rec == nil {
			return nil, nil
		}

		if rec.Data == "" || rec.Data == "[DONE]" {
			continue
		}

		var ev Event
		if err := json.Unmarshal([]byte(rec.Data), &ev); err != nil {
			// Best-effort: skip records we cannot parse rather than
			// failing the whole session.
			continue
		}

		// Some streams carry the type only in the SSE "event:" field.
		if ev.Type == "" {
			ev.Type = rec.Type
		}
		ev.Raw = json.RawMessage(rec.Data)

		return &ev, nil
	}
}

// Close releases the underlying connection.
func (s *Session) Close() error {
	return s.body.Close()
}
