// Package source provides event sources for the chip stream pipeline.
//
// An EventSource yields decoded events one at a time. Once input is
// exhausted it returns the end-of-stream sentinel (types.EndOfStream) and
// keeps returning it on every later call.
package source

import (
	"context"

	"github.com/pithecene-io/chipstream/types"
)

// EventSource produces a finite, forward-only sequence of decoded events.
type EventSource interface {
	// NextEvent returns the next event, or the empty sentinel at end of stream.
	// A non-nil error means the input could not be decoded and is fatal.
	NextEvent(ctx context.Context) (*types.Event, error)
	// Close releases the underlying input.
	Close() error
}

// SliceSource serves events from memory.
type SliceSource struct {
	events []*types.Event
	pos    int
	// Err, if set, is returned once the slice is exhausted instead of the
	// end-of-stream sentinel.
	Err error
}

// NewSliceSource creates a source that yields events in order.
func NewSliceSource(events ...*types.Event) *SliceSource {
	return &SliceSource{events: events}
}

// NextEvent implements EventSource.
func (s *SliceSource) NextEvent(_ context.Context) (*types.Event, error) {
	if s.pos >= len(s.events) {
		if s.Err != nil {
			return nil, s.Err
		}
		return types.EndOfStream(), nil
	}
	ev := s.events[s.pos]
	s.pos++
	return ev, nil
}

// Pulled returns how many events have been handed out.
func (s *SliceSource) Pulled() int {
	return s.pos
}

// Close implements EventSource.
func (s *SliceSource) Close() error {
	return nil
}
