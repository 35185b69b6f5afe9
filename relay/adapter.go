package relay

import (
	"strings"
	"time"

	"github.com/kosar/responses-api/pkg/frame"
	"github.com/kosar/responses-api/pkg/upstream"
)

// adapter consumes one upstream session and writes normalized frames. Each
// request gets its own adapter; the accumulator state is never shared.
type adapter struct {
	session *upstream.Session
	fw      *frame.Writer

	// text accumulates deltas so response.output_text.done can carry the
	// full assistant text.
	text strings.Builder

	// resultCount remembers the last web search result list size so
	// web_search.completed can report it.
	resultCount int

	completed bool
	deltas    int
	events    int
}

func newAdapter(session *upstream.Session, fw *frame.Writer) *adapter {
	return &adapter{
		session: session,
		fw:      fw,
	}
}

// run relays upstream events until terminal success, terminal failure, or
// session exhaustion. It returns nil after writing the terminal "done"
// frame; any returned error means the caller must write the terminal
// "error" frame. If the session is exhausted without a terminal-success
// event, a completion event is synthesized so every request still ends in
// a terminal frame.
func (a *adapter) run() error {
	for {
		ev, err := a.session.Next()
		if err != nil {
			return err
		}
		if ev == nil {
			break
		}

		done, err := a.relay(ev)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}

	// Safety net: upstream ended without response.completed.
	if !a.completed {
		if err := a.emitEvent(frame.EventPayload{Kind: frame.KindCompleted}); err != nil {
			return err
		}
		return a.fw.Write(frame.Done())
	}

	return nil
}

// relay maps one upstream event onto zero or more outbound frames. The
// returned bool reports terminal success: the "done" frame has been
// written and no further upstream events may be read.
func (a *adapter) relay(ev *upstream.Event) (bool, error) {
	now := time.Now().UTC()

	switch ev.Type {
	case upstream.EventOutputTextDelta:
		a.text.WriteString(ev.Delta)
		a.deltas++
		return false, a.fw.Write(frame.Text(ev.Delta))

	case upstream.EventCreated,
		upstream.EventInProgress,
		upstream.EventOutputItemAdded,
		upstream.EventContentPartAdded,
		upstream.EventOutputItemDone,
		upstream.EventContentPartDone:
		return false, a.emitEvent(frame.EventPayload{
			Kind:       ev.Type,
			CapturedAt: now,
			Raw:        ev.Raw,
		})

	case upstream.EventOutputTextDone:
		return false, a.emitEvent(frame.EventPayload{
			Kind:       frame.KindOutputTextDone,
			CapturedAt: now,
			Text:       a.text.String(),
			Raw:        ev.Raw,
		})

	case upstream.EventWebSearchStarted:
		return false, a.emitEvent(frame.EventPayload{
			Kind:       frame.KindWebSearchStarted,
			CapturedAt: now,
			Raw:        ev.Raw,
		})

	case upstream.EventWebSearchResults:
		results := make([]frame.SearchResult, 0, len(ev.Results))
		for _, r := range ev.Results {
			results = append(results, frame.SearchResult{
				Title:   r.Title,
				URL:     r.URL,
				Snippet: r.Snippet,
			})
		}
		a.resultCount = len(results)
		count := a.resultCount
		return false, a.emitEvent(frame.EventPayload{
			Kind:        frame.KindWebSearchResults,
			CapturedAt:  now,
			Results:     results,
			ResultCount: &count,
			Raw:         ev.Raw,
		})

	case upstream.EventWebSearchCompleted:
		count := a.resultCount
		return false, a.emitEvent(frame.EventPayload{
			Kind:        frame.KindWebSearchCompleted,
			CapturedAt:  now,
			ResultCount: &count,
			Raw:         ev.Raw,
		})

	case upstream.EventWebSearchFailed:
		msg := "web search failed"
		if ev.Error != nil && ev.Error.Message != "" {
			msg = ev.Error.Message
		}
		return false, a.emitEvent(frame.EventPayload{
			Kind:       frame.KindWebSearchFailed,
			CapturedAt: now,
			Error:      msg,
			Raw:        ev.Raw,
		})

	case upstream.EventCompleted:
		a.completed = true
		err := a.emitEvent(frame.EventPayload{
			Kind:       frame.KindCompleted,
			CapturedAt: now,
			Raw:        ev.Raw,
		})
		if err != nil {
			return false, err
		}
		// Terminal success: stop reading upstream immediately.
		return true, a.fw.Write(frame.Done())

	case upstream.EventFailed:
		msg := "upstream response failed"
		if ev.Response != nil && ev.Response.Error != nil && ev.Response.Error.Message != "" {
			msg = ev.Response.Error.Message
		}
		return false, &upstream.FailedError{Message: msg}

	case upstream.EventIncomplete:
		var reason string
		if ev.Response != nil && ev.Response.IncompleteDetails != nil {
			reason = ev.Response.IncompleteDetails.Reason
		}
		return false, &upstream.IncompleteError{Reason: reason}

	default:
		// Unknown upstream kinds are dropped so vocabulary growth
		// upstream never fails a request.
		return false, nil
	}
}

func (a *adapter) emitEvent(p frame.EventPayload) error {
	a.events++
	return a.fw.Write(frame.Event(p))
}
