// Package upstream implements a streaming client for the OpenAI Responses
// API. One Session per relayed request: the client POSTs the conversation
// with stream enabled and yields the upstream protocol events one at a
// time, in arrival order.
package upstream

import (
	"encoding/json"
	"fmt"
)

// Upstream event types the adapter recognizes. Anything else is dropped by
// the relay (forward-compatibility: upstream vocabulary growth must not
// fail requests).
const (
	EventCreated          = "response.created"
	EventInProgress       = "response.in_progress"
	EventOutputItemAdded  = "response.output_item.added"
	EventContentPartAdded = "response.content_part.added"
	EventOutputTextDelta  = "response.output_text.delta"
	EventOutputTextDone   = "response.output_text.done"
	EventContentPartDone  = "response.content_part.done"
	EventOutputItemDone   = "response.output_item.done"
	EventCompleted        = "response.completed"
	EventFailed           = "response.failed"
	EventIncomplete       = "response.incomplete"

	EventWebSearchStarted   = "response.web_search_call.started"
	EventWebSearchResults   = "response.web_search_call.results"
	EventWebSearchCompleted = "response.web_search_call.completed"
	EventWebSearchFailed    = "response.web_search_call.failed"
)

// Event is one parsed upstream streaming event. Fields are populated per
// event type; Raw always preserves the original payload.
type Event struct {
	Type string `json:"type"`

	// Delta is the incremental text fragment on response.output_text.delta.
	Delta string `json:"delta,omitempty"`

	// Text is the full output text on response.output_text.done.
	Text string `json:"text,omitempty"`

	// Response carries response-level state on lifecycle and terminal events.
	Response *ResponseInfo `json:"response,omitempty"`

	// Item carries the output item on output_item events.
	Item json.RawMessage `json:"item,omitempty"`

	// Results carries search hits on response.web_search_call.results.
	Results []SearchResult `json:"results,omitempty"`

	// Error carries the failure on response.web_search_call.failed.
	Error *ErrorInfo `json:"error,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// ResponseInfo is the response object embedded in lifecycle events.
type ResponseInfo struct {
	ID                string             `json:"id,omitempty"`
	Status            string             `json:"status,omitempty"`
	Error             *ErrorInfo         `json:"error,omitempty"`
	IncompleteDetails *IncompleteDetails `json:"incomplete_details,omitempty"`
}

// ErrorInfo is an upstream error object.
type ErrorInfo struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// IncompleteDetails explains why a response ended before full completion.
type IncompleteDetails struct {
	Reason string `json:"reason"`
}

// SearchResult is one raw web search hit from the upstream stream.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// FailedError is returned when the upstream session reports terminal
// failure (response.failed).
type FailedError struct {
	Message string
}

func (e *FailedError) Error() string {
	if e.Message == "" {
		return "upstream response failed"
	}
	return e.Message
}

// IncompleteError is returned when the upstream session ends without full
// completion (response.incomplete).
type IncompleteError struct {
	Reason string
}

func (e *IncompleteError) Error() string {
	if e.Reason == "" {
		return "incomplete"
	}
	return fmt.Sprintf("incomplete: %s", e.Reason)
}
