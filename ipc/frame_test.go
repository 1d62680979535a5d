package ipc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/pithecene-io/chipstream/types"
)

// encodeFrame encodes a payload with length prefix.
func encodeFrame(payload []byte) []byte {
	buf := make([]byte, LengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(buf[:LengthPrefixSize], uint32(len(payload)))
	copy(buf[LengthPrefixSize:], payload)
	return buf
}

func encodeValue(t *testing.T, v any) []byte {
	t.Helper()
	payload, err := msgpack.Marshal(v)
	if err != nil {
		t.Fatalf("msgpack.Marshal failed: %v", err)
	}
	return encodeFrame(payload)
}

func sampleEvent(id uint32) *types.Event {
	a := types.ChipID{Layer: 1, Ladder: 2, Module: 3, Chip: 4}
	return types.NewEvent(id, []types.Chip{
		{
			ID:    a,
			Words: []types.StreamWord{7, 9, 2},
			Hits:  []types.RawHit{{Row: 10, Col: 20, ADC: 5}, {Row: 10, Col: 21, ADC: 6}},
			Clusters: []types.Cluster{{Hits: []types.PixelAddress{
				types.NewPixelAddress(10, 20),
				types.NewPixelAddress(10, 21),
			}}},
			WasSplit: true,
		},
	})
}

func TestFrameEncoder_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	enc := NewFrameEncoder(&buf)
	if err := enc.WriteEvent(sampleEvent(42)); err != nil {
		t.Fatalf("WriteEvent failed: %v", err)
	}

	decoder := NewFrameDecoder(&buf)
	payload, err := decoder.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}

	decoded, err := DecodeFrame(payload)
	if err != nil {
		t.Fatalf("DecodeFrame failed: %v", err)
	}
	frame, ok := decoded.(*EventFrame)
	if !ok {
		t.Fatalf("expected *EventFrame, got %T", decoded)
	}
	if frame.EventID != 42 {
		t.Errorf("EventID = %d, want 42", frame.EventID)
	}
	if frame.FormatVersion != types.FormatVersion {
		t.Errorf("FormatVersion = %q, want %q", frame.FormatVersion, types.FormatVersion)
	}

	ev := frame.ToEvent()
	cs, ok := ev.NextChip()
	if !ok {
		t.Fatal("expected one chip")
	}
	if cs.ID.String() != "1_2_3_4" {
		t.Errorf("chip = %s, want 1_2_3_4", cs.ID)
	}
	if len(cs.Words) != 3 || cs.Words[0] != 7 || cs.Words[2] != 2 {
		t.Errorf("Words = %v, want [7 9 2]", cs.Words)
	}
	if got := len(ev.ChipHits(cs.ID)); got != 2 {
		t.Errorf("ChipHits len = %d, want 2", got)
	}
	if got := ev.ChipNClusters(cs.ID); got != 1 {
		t.Errorf("ChipNClusters = %d, want 1", got)
	}
	if !ev.ChipWasSplit(cs.ID) {
		t.Error("ChipWasSplit = false, want true")
	}
	if addr := ev.ChipClusters(cs.ID)[0].Hits[1]; addr.Row() != 10 || addr.Col() != 21 {
		t.Errorf("cluster hit = (%d,%d), want (10,21)", addr.Row(), addr.Col())
	}
}

func TestFrameDecoder_MultipleEventsThenEnd(t *testing.T) {
	var buf bytes.Buffer
	enc := NewFrameEncoder(&buf)
	for _, id := range []uint32{3, 1, 7} {
		if err := enc.WriteEvent(sampleEvent(id)); err != nil {
			t.Fatalf("WriteEvent failed: %v", err)
		}
	}
	if err := enc.WriteEnd(); err != nil {
		t.Fatalf("WriteEnd failed: %v", err)
	}

	decoder := NewFrameDecoder(&buf)
	var ids []uint32
	var end *EndFrame
	for {
		payload, err := decoder.ReadFrame()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("ReadFrame failed: %v", err)
		}
		decoded, err := DecodeFrame(payload)
		if err != nil {
			t.Fatalf("DecodeFrame failed: %v", err)
		}
		switch f := decoded.(type) {
		case *EventFrame:
			ids = append(ids, f.EventID)
		case *EndFrame:
			end = f
		}
	}

	if len(ids) != 3 || ids[0] != 3 || ids[1] != 1 || ids[2] != 7 {
		t.Errorf("event ids = %v, want [3 1 7]", ids)
	}
	if end == nil {
		t.Fatal("expected end frame")
	}
	if end.Events != 3 {
		t.Errorf("end.Events = %d, want 3", end.Events)
	}
}

func TestFrameDecoder_PartialFrame(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFrameEncoder(&buf).WriteEvent(sampleEvent(1)); err != nil {
		t.Fatalf("WriteEvent failed: %v", err)
	}
	frame := buf.Bytes()

	// Keep only length prefix + half payload
	truncated := frame[:LengthPrefixSize+len(frame[LengthPrefixSize:])/2]

	decoder := NewFrameDecoder(bytes.NewReader(truncated))
	_, err := decoder.ReadFrame()
	if err == nil {
		t.Fatal("expected error for truncated frame")
	}
	if !IsFatalFrameError(err) {
		t.Errorf("expected fatal frame error, got: %v", err)
	}

	var frameErr *FrameError
	if !errors.As(err, &frameErr) {
		t.Fatalf("expected *FrameError, got %T", err)
	}
	if frameErr.Kind != FrameErrorPartial {
		t.Errorf("Kind = %v, want FrameErrorPartial", frameErr.Kind)
	}
}

func TestFrameDecoder_OversizedFrame(t *testing.T) {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, uint32(MaxPayloadSize+1))

	_, err := NewFrameDecoder(&buf).ReadFrame()
	if err == nil {
		t.Fatal("expected error for oversized frame")
	}

	var frameErr *FrameError
	if !errors.As(err, &frameErr) {
		t.Fatalf("expected *FrameError, got %T", err)
	}
	if frameErr.Kind != FrameErrorTooLarge {
		t.Errorf("Kind = %v, want FrameErrorTooLarge", frameErr.Kind)
	}
	if !frameErr.IsFatal() {
		t.Error("FrameErrorTooLarge.IsFatal() should return true")
	}
}

func TestFrameDecoder_EmptyStream(t *testing.T) {
	_, err := NewFrameDecoder(bytes.NewReader(nil)).ReadFrame()
	if err != io.EOF {
		t.Errorf("expected io.EOF, got: %v", err)
	}
}

func TestFrameDecoder_TruncatedLengthPrefix(t *testing.T) {
	_, err := NewFrameDecoder(bytes.NewReader([]byte{0x00, 0x00})).ReadFrame()
	if err == nil {
		t.Fatal("expected error for truncated length prefix")
	}

	var frameErr *FrameError
	if !errors.As(err, &frameErr) {
		t.Fatalf("expected *FrameError, got %T", err)
	}
	if frameErr.Kind != FrameErrorPartial {
		t.Errorf("Kind = %v, want FrameErrorPartial", frameErr.Kind)
	}
}

func TestDecodeFrame_Errors(t *testing.T) {
	tests := []struct {
		name     string
		payload  []byte
		wantKind FrameErrorKind
	}{
		{
			name:     "malformed msgpack",
			payload:  []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF},
			wantKind: FrameErrorDecode,
		},
		{
			name:     "unknown type",
			payload:  mustMarshal(t, map[string]any{"type": "artifact"}),
			wantKind: FrameErrorDecode,
		},
		{
			name: "version mismatch",
			payload: mustMarshal(t, &EventFrame{
				Type:          EventFrameType,
				FormatVersion: "0",
				EventID:       1,
			}),
			wantKind: FrameErrorVersion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoder := NewFrameDecoder(bytes.NewReader(encodeFrame(tt.payload)))
			payload, err := decoder.ReadFrame()
			if err != nil {
				t.Fatalf("ReadFrame should succeed: %v", err)
			}

			_, err = DecodeFrame(payload)
			if err == nil {
				t.Fatal("expected decode error")
			}
			var frameErr *FrameError
			if !errors.As(err, &frameErr) {
				t.Fatalf("expected *FrameError, got %T", err)
			}
			if frameErr.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", frameErr.Kind, tt.wantKind)
			}
			if IsFatalFrameError(err) {
				t.Error("decode errors should not be fatal")
			}
		})
	}
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	b, err := msgpack.Marshal(v)
	if err != nil {
		t.Fatalf("msgpack.Marshal failed: %v", err)
	}
	return b
}

func TestDecodeFrame_EndFrameFromMap(t *testing.T) {
	frame := encodeValue(t, map[string]any{"type": "end"})
	payload, err := NewFrameDecoder(bytes.NewReader(frame)).ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	decoded, err := DecodeFrame(payload)
	if err != nil {
		t.Fatalf("DecodeFrame failed: %v", err)
	}
	if _, ok := decoded.(*EndFrame); !ok {
		t.Errorf("expected *EndFrame, got %T", decoded)
	}
}

func TestFrameError_Message(t *testing.T) {
	tests := []struct {
		name     string
		err      *FrameError
		contains string
	}{
		{
			name:     "without wrapped error",
			err:      &FrameError{Kind: FrameErrorTooLarge, Msg: "too big"},
			contains: "too big",
		},
		{
			name:     "with wrapped error",
			err:      &FrameError{Kind: FrameErrorPartial, Msg: "short read", Err: io.ErrUnexpectedEOF},
			contains: "unexpected EOF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.Contains(tt.err.Error(), tt.contains) {
				t.Errorf("Error() = %q, want substring %q", tt.err.Error(), tt.contains)
			}
		})
	}

	wrapped := &FrameError{Kind: FrameErrorPartial, Msg: "x", Err: io.ErrUnexpectedEOF}
	if !errors.Is(wrapped, io.ErrUnexpectedEOF) {
		t.Error("errors.Is should see the wrapped error")
	}
}

func TestIsFatalFrameError_NonFrameError(t *testing.T) {
	if IsFatalFrameError(errors.New("plain")) {
		t.Error("plain error should not be fatal frame error")
	}
	if IsFatalFrameError(nil) {
		t.Error("nil should not be fatal frame error")
	}
}
