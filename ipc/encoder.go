package ipc

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/pithecene-io/chipstream/types"
)

// FrameEncoder writes length-prefixed msgpack frames.
// It is the producer side of FrameDecoder, used to export decoder output
// and to build fixtures.
type FrameEncoder struct {
	writer io.Writer
	events int64
}

// NewFrameEncoder creates a new frame encoder.
func NewFrameEncoder(w io.Writer) *FrameEncoder {
	return &FrameEncoder{writer: w}
}

// WriteEvent writes one event frame.
func (e *FrameEncoder) WriteEvent(ev *types.Event) error {
	frame := &EventFrame{
		Type:          EventFrameType,
		FormatVersion: types.FormatVersion,
		EventID:       ev.EventID,
		Chips:         ev.Chips,
	}
	if err := e.writeFrame(frame); err != nil {
		return err
	}
	e.events++
	return nil
}

// WriteEnd writes the end-of-stream frame.
func (e *FrameEncoder) WriteEnd() error {
	return e.writeFrame(&EndFrame{Type: EndFrameType, Events: e.events})
}

func (e *FrameEncoder) writeFrame(v any) error {
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}
	if len(payload) > MaxPayloadSize {
		return &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", len(payload), MaxPayloadSize),
		}
	}

	var prefix [LengthPrefixSize]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(payload)))
	if _, err := e.writer.Write(prefix[:]); err != nil {
		return fmt.Errorf("failed to write length prefix: %w", err)
	}
	if _, err := e.writer.Write(payload); err != nil {
		return fmt.Errorf("failed to write payload: %w", err)
	}
	return nil
}
