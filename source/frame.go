package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pithecene-io/chipstream/ipc"
	"github.com/pithecene-io/chipstream/types"
)

// FrameSource reads events from a decoded-event file of ipc frames.
type FrameSource struct {
	decoder *ipc.FrameDecoder
	closer  io.Closer
	done    bool
	fatal   error
	frames  int64
}

// Open opens a decoded-event file.
func Open(path string) (*FrameSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	src := NewFrameSource(bufio.NewReader(f))
	src.closer = f
	return src, nil
}

// NewFrameSource creates a source over an already-open frame stream.
func NewFrameSource(r io.Reader) *FrameSource {
	return &FrameSource{decoder: ipc.NewFrameDecoder(r)}
}

// NextEvent implements EventSource.
// Clean EOF and an end frame both yield the end-of-stream sentinel.
// A fatal frame error is returned again on every later call.
func (s *FrameSource) NextEvent(ctx context.Context) (*types.Event, error) {
	if s.fatal != nil {
		return nil, s.fatal
	}
	if s.done {
		return types.EndOfStream(), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	payload, err := s.decoder.ReadFrame()
	if errors.Is(err, io.EOF) {
		s.done = true
		return types.EndOfStream(), nil
	}
	if err != nil {
		err = fmt.Errorf("frame %d: %w", s.frames+1, err)
		if ipc.IsFatalFrameError(err) {
			s.fatal = err
		}
		return nil, err
	}
	s.frames++

	decoded, err := ipc.DecodeFrame(payload)
	if err != nil {
		return nil, fmt.Errorf("frame %d: %w", s.frames, err)
	}

	switch f := decoded.(type) {
	case *ipc.EventFrame:
		return f.ToEvent(), nil
	case *ipc.EndFrame:
		s.done = true
		return types.EndOfStream(), nil
	default:
		return nil, fmt.Errorf("frame %d: unexpected frame %T", s.frames, decoded)
	}
}

// Frames returns the number of frames read so far.
func (s *FrameSource) Frames() int64 {
	return s.frames
}

// Close implements EventSource.
func (s *FrameSource) Close() error {
	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	return err
}
