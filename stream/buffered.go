package stream

import (
	"bufio"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/pithecene-io/chipstream/iox"
	"github.com/pithecene-io/chipstream/types"
)

// BufferedConfig configures a BufferedSink.
type BufferedConfig struct {
	// MaxOpenFiles bounds the number of held stream handles. When an append
	// would exceed it, every handle is flushed and closed first.
	MaxOpenFiles int
	// BufferBytes is the bufio buffer size per handle.
	BufferBytes int
}

// DefaultBufferedConfig returns defaults for buffered sinks.
func DefaultBufferedConfig() BufferedConfig {
	return BufferedConfig{
		MaxOpenFiles: 256,
		BufferBytes:  32 * 1024,
	}
}

// ErrInvalidConfig is returned when BufferedConfig is invalid.
var ErrInvalidConfig = errors.New("invalid config: MaxOpenFiles and BufferBytes must be positive")

// ErrClosed is returned by Append after Close.
var ErrClosed = errors.New("sink closed")

type handle struct {
	path string
	f    *os.File
	w    *bufio.Writer
}

// BufferedSink holds one buffered append handle per chip.
//
// Records reach the file system on Flush, on Close, when a handle's buffer
// fills, or when handles are recycled to respect MaxOpenFiles. Records
// still buffered when the process dies are lost.
type BufferedSink struct {
	dir    string
	config BufferedConfig

	mu      sync.Mutex
	handles map[types.ChipID]*handle
	closed  bool
	stats   *statsRecorder
}

// NewBufferedSink creates a buffered sink writing into dir.
func NewBufferedSink(dir string, config BufferedConfig) (*BufferedSink, error) {
	if config.MaxOpenFiles <= 0 || config.BufferBytes <= 0 {
		return nil, ErrInvalidConfig
	}
	return &BufferedSink{
		dir:     dir,
		config:  config,
		handles: make(map[types.ChipID]*handle),
		stats:   newStatsRecorder(),
	}, nil
}

// Append buffers the record on the chip's handle, opening it if needed.
func (s *BufferedSink) Append(_ context.Context, chip types.ChipID, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		s.stats.incErrors()
		return &SinkError{Op: "append", Path: FileName(chip), Err: ErrClosed}
	}

	h, err := s.handleLocked(chip)
	if err != nil {
		s.stats.incErrors()
		return err
	}

	line := Encode(rec)
	if _, err := h.w.Write(line); err != nil {
		s.stats.incErrors()
		return &SinkError{Op: "append", Path: h.path, Err: err}
	}
	s.stats.recordAppend(chip, len(line))
	return nil
}

func (s *BufferedSink) handleLocked(chip types.ChipID) (*handle, error) {
	if h, ok := s.handles[chip]; ok {
		return h, nil
	}

	if len(s.handles) >= s.config.MaxOpenFiles {
		if err := s.closeAllLocked(); err != nil {
			return nil, err
		}
	}

	path := filepath.Join(s.dir, FileName(chip))
	f, err := os.OpenFile(path, iox.AppendFlags, FilePerm)
	if err != nil {
		return nil, &SinkError{Op: "append", Path: path, Err: err}
	}
	h := &handle{path: path, f: f, w: bufio.NewWriterSize(f, s.config.BufferBytes)}
	s.handles[chip] = h
	return h, nil
}

// Flush writes every buffered record to its file.
func (s *BufferedSink) Flush(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.incFlush()
	var errs []error
	for _, h := range s.handles {
		if err := h.w.Flush(); err != nil {
			errs = append(errs, &SinkError{Op: "flush", Path: h.path, Err: err})
		}
	}
	if len(errs) > 0 {
		s.stats.incErrors()
		return errors.Join(errs...)
	}
	return nil
}

// Close flushes and closes every handle. Later appends fail with ErrClosed.
func (s *BufferedSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.stats.incFlush()
	if err := s.closeAllLocked(); err != nil {
		s.stats.incErrors()
		return err
	}
	return nil
}

// closeAllLocked flushes and closes all handles and forgets them.
func (s *BufferedSink) closeAllLocked() error {
	var errs []error
	for chip, h := range s.handles {
		if err := h.w.Flush(); err != nil {
			errs = append(errs, &SinkError{Op: "flush", Path: h.path, Err: err})
		}
		if err := h.f.Close(); err != nil {
			errs = append(errs, &SinkError{Op: "close", Path: h.path, Err: err})
		}
		delete(s.handles, chip)
	}
	return errors.Join(errs...)
}

// OpenFiles returns the number of held handles.
func (s *BufferedSink) OpenFiles() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}

// Stats returns sink counters.
func (s *BufferedSink) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats.snapshot()
}
