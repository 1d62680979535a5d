// Package adapter defines the notification boundary for completed runs.
//
// Adapters publish a RunCompletedEvent to a downstream system once a run
// has terminated. Publishing is best effort: the caller logs failures and
// never changes the run outcome because of them.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// EventTypeRunCompleted is the event_type of every published event.
const EventTypeRunCompleted = "run_completed"

// DefaultBackoff is the delay before the first retry. It doubles per retry.
const DefaultBackoff = 500 * time.Millisecond

// RunCompletedEvent is the payload published when a run finishes.
type RunCompletedEvent struct {
	EventType     string `json:"event_type"`
	FormatVersion string `json:"format_version"`
	RunID         string `json:"run_id"`
	Input         string `json:"input"`
	OutputDir     string `json:"output_dir"`
	Outcome       string `json:"outcome"` // success, source_failure, sink_failure, canceled
	Message       string `json:"message,omitempty"`
	ExitCode      int    `json:"exit_code"`
	Timestamp     string `json:"timestamp"` // RFC 3339
	Events        int64  `json:"events"`
	ChipsAccepted int64  `json:"chips_accepted"`
	ChipsSplit    int64  `json:"chips_split"`
	ChipsSkipped  int64  `json:"chips_skipped"`
	DurationMs    int64  `json:"duration_ms"`
}

// Adapter publishes run completion events to a downstream system.
type Adapter interface {
	// Publish sends a run completion event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *RunCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}

// permanentError marks an error that must not be retried.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so Retry stops immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Retry calls fn up to 1+retries times with exponential backoff between
// attempts, starting at backoff. It stops on success, on a Permanent error,
// or when ctx is done. name prefixes returned errors.
func Retry(ctx context.Context, name string, retries int, backoff time.Duration, fn func(ctx context.Context) error) error {
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	attempts := 1 + retries

	var lastErr error
	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: context canceled: %w", name, err)
		}

		if i > 0 {
			timer := time.NewTimer(backoff << uint(i-1))
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("%s: context canceled during backoff: %w", name, ctx.Err())
			case <-timer.C:
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if IsPermanent(lastErr) {
			return fmt.Errorf("%s: non-retriable error: %w", name, lastErr)
		}
	}

	return fmt.Errorf("%s: failed after %d attempts: %w", name, attempts, lastErr)
}

// Nop is an Adapter that publishes nothing.
type Nop struct{}

// Publish implements Adapter.
func (Nop) Publish(context.Context, *RunCompletedEvent) error { return nil }

// Close implements Adapter.
func (Nop) Close() error { return nil }

// Recorder is an Adapter that keeps published events in memory.
type Recorder struct {
	Events []*RunCompletedEvent
	Err    error
	Closed bool
}

// Publish implements Adapter.
func (r *Recorder) Publish(_ context.Context, event *RunCompletedEvent) error {
	if r.Err != nil {
		return r.Err
	}
	r.Events = append(r.Events, event)
	return nil
}

// Close implements Adapter.
func (r *Recorder) Close() error {
	r.Closed = true
	return nil
}

var (
	_ Adapter = Nop{}
	_ Adapter = (*Recorder)(nil)
)
