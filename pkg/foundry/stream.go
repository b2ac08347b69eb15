package foundry

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
)

// Event is one item of an EventStream. Exactly one of Data and Err is set.
// An Err wrapping *DecodeError covers a single malformed line; the stream
// continues afterward. Any other Err is terminal and the channel closes.
type Event struct {
	// Data is the raw JSON payload of one data line.
	Data json.RawMessage

	// Err reports a per-item decode failure or a terminal stream error.
	Err error
}

// EventStream is a lazy, forward-only, non-restartable sequence of decoded
// events produced from a streaming response body. The channel closes when
// the stream ends (terminal sentinel, upstream EOF, or terminal error).
//
// Callers that abandon a stream early must call Close to release the
// underlying connection.
type EventStream struct {
	events    chan Event
	body      io.Closer
	done      chan struct{}
	closeOnce sync.Once
}

// newEventStream starts decoding body in a goroutine. Cancellation of ctx
// stops delivery promptly; the in-flight HTTP request is cancelled through
// its own context.
func newEventStream(ctx context.Context, body io.ReadCloser) *EventStream {
	s := &EventStream{
		events: make(chan Event),
		body:   body,
		done:   make(chan struct{}),
	}
	go s.decode(ctx, body)
	return s
}

// Events returns the channel of decoded events.
func (s *EventStream) Events() <-chan Event {
	return s.events
}

// Close releases the underlying response body and unblocks the decode
// goroutine if no one is receiving. It is safe to call multiple times and
// after the stream has ended.
func (s *EventStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.body.Close()
	})
	return err
}

func (s *EventStream) decode(ctx context.Context, body io.ReadCloser) {
	defer close(s.events)
	defer s.Close()

	dec := NewDecoder(body)
	for {
		data, err := dec.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			var decodeErr *DecodeError
			if errors.As(err, &decodeErr) {
				if !s.deliver(ctx, Event{Err: err}) {
					return
				}
				continue
			}
			// Terminal upstream error: surface once, then end.
			s.deliver(ctx, Event{Err: err})
			return
		}
		if !s.deliver(ctx, Event{Data: data}) {
			return
		}
	}
}

// deliver sends one event, giving cancellation and Close priority over a
// waiting receiver so an abandoned stream never delivers after Close.
func (s *EventStream) deliver(ctx context.Context, e Event) bool {
	select {
	case <-ctx.Done():
		return false
	case <-s.done:
		return false
	default:
	}
	select {
	case s.events <- e:
		return true
	case <-ctx.Done():
		return false
	case <-s.done:
		return false
	}
}
