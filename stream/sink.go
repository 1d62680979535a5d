package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pithecene-io/chipstream/types"
)

// Sink persists stream records keyed by chip.
//
// Records for one chip must be persisted in Append order. A returned error
// is fatal; callers do not retry.
type Sink interface {
	// Append adds one record to the chip's stream.
	Append(ctx context.Context, chip types.ChipID, rec Record) error

	// Flush persists any buffered records.
	Flush(ctx context.Context) error

	// Close flushes and releases all resources.
	Close() error

	// Stats returns a snapshot of sink counters.
	Stats() Stats
}

// Stats are sink counters for the run report.
type Stats struct {
	// Records is the number of records accepted by Append.
	Records int64 `json:"records"`
	// Bytes is the number of encoded bytes accepted by Append.
	Bytes int64 `json:"bytes"`
	// Streams is the number of distinct chips that received a record.
	Streams int64 `json:"streams"`
	// Flushes is the number of Flush calls, including the one done by Close.
	Flushes int64 `json:"flushes"`
	// Errors is the number of failed operations.
	Errors int64 `json:"errors"`
}

// Mode selects a file sink implementation.
type Mode string

const (
	// ModeStrict opens, appends and closes the stream file for every record.
	ModeStrict Mode = "strict"
	// ModeBuffered keeps one buffered handle per chip until Flush or Close.
	ModeBuffered Mode = "buffered"
)

// ErrInvalidMode is returned for an unknown sink mode.
var ErrInvalidMode = errors.New("invalid sink mode")

// ParseMode parses a sink mode name. Empty selects ModeStrict.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeStrict:
		return ModeStrict, nil
	case ModeBuffered:
		return ModeBuffered, nil
	default:
		return "", fmt.Errorf("%w: %q (must be strict or buffered)", ErrInvalidMode, s)
	}
}

// NewFileSink creates a file sink of the given mode writing into dir.
// dir must already exist.
func NewFileSink(mode Mode, dir string) (Sink, error) {
	switch mode {
	case ModeStrict, "":
		return NewStrictSink(dir), nil
	case ModeBuffered:
		return NewBufferedSink(dir, DefaultBufferedConfig())
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
}

// statsRecorder tracks sink counters. Callers hold the owning sink's lock.
type statsRecorder struct {
	stats Stats
	seen  map[types.ChipID]struct{}
}

func newStatsRecorder() *statsRecorder {
	return &statsRecorder{seen: make(map[types.ChipID]struct{})}
}

func (r *statsRecorder) recordAppend(chip types.ChipID, n int) {
	r.stats.Records++
	r.stats.Bytes += int64(n)
	if _, ok := r.seen[chip]; !ok {
		r.seen[chip] = struct{}{}
		r.stats.Streams++
	}
}

func (r *statsRecorder) incFlush()  { r.stats.Flushes++ }
func (r *statsRecorder) incErrors() { r.stats.Errors++ }

func (r *statsRecorder) snapshot() Stats { return r.stats }

// AppendOp is one recorded StubSink append.
type AppendOp struct {
	Chip   types.ChipID
	Record Record
}

// StubSink records appends in memory for tests.
type StubSink struct {
	mu sync.Mutex

	// Appends holds every append in call order.
	Appends []AppendOp
	// FlushCount is the number of Flush calls.
	FlushCount int
	// Closed indicates whether Close was called.
	Closed bool

	// ErrorOnAppend, if non-nil, is returned by Append.
	ErrorOnAppend error
	// ErrorOnFlush, if non-nil, is returned by Flush and Close.
	ErrorOnFlush error

	stats *statsRecorder
}

// NewStubSink creates a new stub sink.
func NewStubSink() *StubSink {
	return &StubSink{stats: newStatsRecorder()}
}

// Append records the append.
func (s *StubSink) Append(_ context.Context, chip types.ChipID, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ErrorOnAppend != nil {
		s.stats.incErrors()
		return &SinkError{Op: "append", Path: FileName(chip), Err: s.ErrorOnAppend}
	}
	s.Appends = append(s.Appends, AppendOp{Chip: chip, Record: rec})
	s.stats.recordAppend(chip, len(Encode(rec)))
	return nil
}

// Flush counts the flush.
func (s *StubSink) Flush(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.FlushCount++
	s.stats.incFlush()
	if s.ErrorOnFlush != nil {
		s.stats.incErrors()
		return &SinkError{Op: "flush", Err: s.ErrorOnFlush}
	}
	return nil
}

// Close marks the sink closed.
func (s *StubSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Closed = true
	if s.ErrorOnFlush != nil {
		return &SinkError{Op: "close", Err: s.ErrorOnFlush}
	}
	return nil
}

// Stats returns a snapshot of sink counters.
func (s *StubSink) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats.snapshot()
}

// Records returns the records appended for one chip, in order.
func (s *StubSink) Records(chip types.ChipID) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Record
	for _, op := range s.Appends {
		if op.Chip == chip {
			out = append(out, op.Record)
		}
	}
	return out
}
