package stream

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/pithecene-io/chipstream/iox"
	"github.com/pithecene-io/chipstream/types"
)

// FilePerm is the permission used for new stream files.
const FilePerm = 0o644

// StrictSink writes every record straight to its stream file.
//
// Each Append opens the chip's file for append (creating it on the first
// record), writes one line and closes it. A record is durable in the file
// system once Append returns; no handles are held between calls.
type StrictSink struct {
	dir string

	mu    sync.Mutex
	stats *statsRecorder
}

// NewStrictSink creates a strict sink writing into dir.
func NewStrictSink(dir string) *StrictSink {
	return &StrictSink{dir: dir, stats: newStatsRecorder()}
}

// Append writes the record to stream_<chip>.txt.
func (s *StrictSink) Append(_ context.Context, chip types.ChipID, rec Record) error {
	line := Encode(rec)
	path := filepath.Join(s.dir, FileName(chip))

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := iox.AppendFile(path, line, FilePerm); err != nil {
		s.stats.incErrors()
		return &SinkError{Op: "append", Path: path, Err: err}
	}
	s.stats.recordAppend(chip, len(line))
	return nil
}

// Flush is a no-op for strict sinks (nothing is buffered).
func (s *StrictSink) Flush(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.incFlush()
	return nil
}

// Close is a no-op for strict sinks.
func (s *StrictSink) Close() error {
	return nil
}

// Stats returns sink counters.
func (s *StrictSink) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats.snapshot()
}
