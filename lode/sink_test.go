package lode

import (
	"errors"
	"testing"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/chipstream/metrics"
	"github.com/pithecene-io/chipstream/stream"
	"github.com/pithecene-io/chipstream/types"
)

func rec(eventID uint32, words ...types.StreamWord) stream.Record {
	return stream.Record{EventID: eventID, NClusters: 1, Words: words}
}

func TestSink_BatchesAtBatchSize(t *testing.T) {
	client := NewStubClient()
	sink := NewSink(client, 2)
	chip := types.ChipID{Layer: 1}

	for i := range 5 {
		if err := sink.Append(t.Context(), chip, rec(uint32(i), 1)); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	if got := len(client.Batches); got != 2 {
		t.Fatalf("batches before close = %d, want 2", got)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if got := len(client.Batches); got != 3 {
		t.Fatalf("batches after close = %d, want 3", got)
	}
	if client.RecordCount() != 5 {
		t.Errorf("RecordCount() = %d, want 5", client.RecordCount())
	}
	if client.Closed {
		t.Error("sink Close must not close the client")
	}

	var ids []uint32
	for _, b := range client.Batches {
		for _, r := range b {
			ids = append(ids, r.EventID)
		}
	}
	for i, id := range ids {
		if id != uint32(i) {
			t.Fatalf("event order = %v, want ascending", ids)
		}
	}
}

func TestSink_FlushWritesPending(t *testing.T) {
	client := NewStubClient()
	sink := NewSink(client, 0)

	if err := sink.Append(t.Context(), types.ChipID{}, rec(1, 2, 3)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if len(client.Batches) != 0 {
		t.Fatal("record written before flush")
	}
	if err := sink.Flush(t.Context()); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if len(client.Batches) != 1 {
		t.Fatalf("batches = %d, want 1", len(client.Batches))
	}
	// Empty flush writes nothing.
	if err := sink.Flush(t.Context()); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if len(client.Batches) != 1 {
		t.Errorf("batches = %d, want 1", len(client.Batches))
	}
}

func TestSink_Stats(t *testing.T) {
	sink := NewSink(NewStubClient(), 10)
	a := types.ChipID{Layer: 1}
	b := types.ChipID{Layer: 2}

	_ = sink.Append(t.Context(), a, rec(42, 7, 9, 2))
	_ = sink.Append(t.Context(), a, rec(43))
	_ = sink.Append(t.Context(), b, rec(43, 1))

	s := sink.Stats()
	if s.Records != 3 {
		t.Errorf("Records = %d, want 3", s.Records)
	}
	if s.Streams != 2 {
		t.Errorf("Streams = %d, want 2", s.Streams)
	}
	wantBytes := int64(len("42\t1\t7\t9\t2\n") + len("43\t1\n") + len("43\t1\t1\n"))
	if s.Bytes != wantBytes {
		t.Errorf("Bytes = %d, want %d", s.Bytes, wantBytes)
	}
}

func TestSink_WriteFailureIsSinkError(t *testing.T) {
	client := NewStubClient()
	client.ErrorOnWrite = errors.New("boom")
	sink := NewSink(client, 1)

	err := sink.Append(t.Context(), types.ChipID{}, rec(1))
	if !stream.IsSinkError(err) {
		t.Fatalf("expected SinkError, got %T: %v", err, err)
	}
	if sink.Stats().Errors != 1 {
		t.Errorf("Errors = %d, want 1", sink.Stats().Errors)
	}
}

func TestSink_AppendAfterClose(t *testing.T) {
	sink := NewSink(NewStubClient(), 1)
	if err := sink.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if err := sink.Append(t.Context(), types.ChipID{}, rec(1)); !errors.Is(err, stream.ErrClosed) {
		t.Errorf("Append after Close = %v, want ErrClosed", err)
	}
}

func TestSink_WriteSummaryAfterClose(t *testing.T) {
	client := NewStubClient()
	sink := NewSink(client, 10)
	_ = sink.Append(t.Context(), types.ChipID{}, rec(1))
	if err := sink.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	snap := metrics.Snapshot{Events: 1, ChipsAccepted: 1}
	summary := metrics.RenderSummary(snap)
	if err := sink.WriteSummary(t.Context(), snap, summary); err != nil {
		t.Fatalf("WriteSummary failed: %v", err)
	}

	if len(client.Summaries) != 1 || client.Summaries[0].Events != 1 {
		t.Errorf("Summaries = %+v", client.Summaries)
	}
	if got := string(client.Files[metrics.SummaryFile]); got != summary {
		t.Errorf("sidecar = %q, want %q", got, summary)
	}
}

func TestInstrumentedClient_CountsWrites(t *testing.T) {
	acc := metrics.NewAccumulator("strict", "fs", "run-1")
	stub := NewStubClient()
	client := NewInstrumentedClient(stub, acc)

	if err := client.WriteRecords(t.Context(), streamRecords(1, types.ChipID{})); err != nil {
		t.Fatalf("WriteRecords failed: %v", err)
	}
	if err := client.PutFile(t.Context(), "x.txt", "text/plain", nil); err != nil {
		t.Fatalf("PutFile failed: %v", err)
	}
	stub.ErrorOnWrite = errors.New("boom")
	if err := client.WriteSummary(t.Context(), metrics.Snapshot{}, "", time.Time{}); err == nil {
		t.Fatal("expected error")
	}

	snap := acc.Snapshot()
	if snap.LodeWriteSuccess != 2 {
		t.Errorf("LodeWriteSuccess = %d, want 2", snap.LodeWriteSuccess)
	}
	if snap.LodeWriteFailure != 1 {
		t.Errorf("LodeWriteFailure = %d, want 1", snap.LodeWriteFailure)
	}
}

func TestSink_EndToEndWithMemoryStore(t *testing.T) {
	store := lode.NewMemory()
	factory := sharedFactory(store)
	client, err := NewLodeClientWithFactory(testConfig("run-e2e"), factory)
	if err != nil {
		t.Fatalf("NewLodeClientWithFactory failed: %v", err)
	}

	sink := NewSink(client, 2)
	chip := types.ChipID{Layer: 3, Ladder: 1}
	for i := range 3 {
		if err := sink.Append(t.Context(), chip, rec(uint32(i), 5)); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	snap := metrics.Snapshot{Events: 3, ChipsAccepted: 3, RunID: "run-e2e"}
	if err := sink.WriteSummary(t.Context(), snap, metrics.RenderSummary(snap)); err != nil {
		t.Fatalf("WriteSummary failed: %v", err)
	}

	ds, err := NewReadDataset(DefaultDataset, factory)
	if err != nil {
		t.Fatalf("NewReadDataset failed: %v", err)
	}
	counts, err := StreamRecordCounts(t.Context(), ds, "run-e2e")
	if err != nil {
		t.Fatalf("StreamRecordCounts failed: %v", err)
	}
	if counts[chip.String()] != 3 {
		t.Errorf("stream records = %d, want 3", counts[chip.String()])
	}
	record, err := QueryLatestSummary(t.Context(), ds, "run-e2e", "")
	if err != nil {
		t.Fatalf("QueryLatestSummary failed: %v", err)
	}
	if got := SummaryFromRecord(record); got.ChipsAccepted != 3 {
		t.Errorf("ChipsAccepted = %d, want 3", got.ChipsAccepted)
	}
}
