// Package lode mirrors chip stream output into a Lode dataset.
//
// Accepted stream records and the final run summary are written as JSONL
// records into a Hive-partitioned dataset (input/day/run_id/record_kind).
// The summary text is also stored as a sidecar file next to the records.
package lode

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pithecene-io/chipstream/metrics"
	"github.com/pithecene-io/chipstream/stream"
	"github.com/pithecene-io/chipstream/types"
)

// DefaultDataset is the Lode dataset ID used by chipstream.
const DefaultDataset = "chipstream"

// DefaultBatchSize is the number of stream records per dataset write.
const DefaultBatchSize = 1024

// DeriveDay computes the partition day from run start time.
// Format: YYYY-MM-DD in UTC.
func DeriveDay(startTime time.Time) string {
	return startTime.UTC().Format("2006-01-02")
}

// Config holds Lode mirror configuration.
// All partition keys are required.
type Config struct {
	// Dataset is the Lode dataset ID.
	Dataset string
	// Input is the partition key for the input name (output directory name).
	Input string
	// Day is the partition key derived from run start time (YYYY-MM-DD UTC).
	Day string
	// RunID is the partition key for the run identifier.
	RunID string
}

// Validate checks that every partition key is set.
func (c Config) Validate() error {
	switch {
	case c.Dataset == "":
		return errors.New("lode dataset is required")
	case c.Input == "":
		return errors.New("lode input partition is required")
	case c.Day == "":
		return errors.New("lode day partition is required")
	case c.RunID == "":
		return errors.New("lode run_id partition is required")
	}
	return nil
}

// Client abstracts the Lode storage client.
// Real implementations connect to Lode; stubs are used for testing.
type Client interface {
	// WriteRecords writes a batch of stream records. Must preserve ordering.
	WriteRecords(ctx context.Context, records []StreamRecord) error

	// WriteSummary writes the run_summary record.
	WriteSummary(ctx context.Context, snap metrics.Snapshot, summary string, completedAt time.Time) error

	// PutFile writes a sidecar file next to the run's records.
	PutFile(ctx context.Context, filename, contentType string, data []byte) error

	// Close releases client resources.
	Close() error
}

// Sink is a Lode-backed stream.Sink.
//
// Records are buffered and written in batches of BatchSize, and on Flush
// and Close. Close does not close the client: the summary is written after
// the sink closes, through WriteSummary.
type Sink struct {
	client    Client
	batchSize int

	mu      sync.Mutex
	pending []StreamRecord
	closed  bool
	stats   stream.Stats
	seen    map[types.ChipID]struct{}
}

// NewSink creates a new Lode sink. batchSize <= 0 selects DefaultBatchSize.
func NewSink(client Client, batchSize int) *Sink {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Sink{
		client:    client,
		batchSize: batchSize,
		pending:   make([]StreamRecord, 0, batchSize),
		seen:      make(map[types.ChipID]struct{}),
	}
}

// Append implements stream.Sink.
func (s *Sink) Append(ctx context.Context, chip types.ChipID, rec stream.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		s.stats.Errors++
		return &stream.SinkError{Op: "append", Path: "lode", Err: stream.ErrClosed}
	}

	s.pending = append(s.pending, NewStreamRecord(chip, rec))
	s.stats.Records++
	s.stats.Bytes += int64(len(stream.Encode(rec)))
	if _, ok := s.seen[chip]; !ok {
		s.seen[chip] = struct{}{}
		s.stats.Streams++
	}

	if len(s.pending) >= s.batchSize {
		return s.writePendingLocked(ctx)
	}
	return nil
}

// Flush implements stream.Sink.
func (s *Sink) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.Flushes++
	return s.writePendingLocked(ctx)
}

// Close implements stream.Sink. It writes pending records.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.stats.Flushes++
	return s.writePendingLocked(context.Background())
}

// writePendingLocked writes buffered records. On failure the batch is kept.
func (s *Sink) writePendingLocked(ctx context.Context) error {
	if len(s.pending) == 0 {
		return nil
	}
	if err := s.client.WriteRecords(ctx, s.pending); err != nil {
		s.stats.Errors++
		return &stream.SinkError{Op: "flush", Path: "lode", Err: err}
	}
	s.pending = make([]StreamRecord, 0, s.batchSize)
	return nil
}

// Stats implements stream.Sink.
func (s *Sink) Stats() stream.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// WriteSummary writes pending records, the run_summary record and the
// summary text as a 00_info.txt sidecar.
func (s *Sink) WriteSummary(ctx context.Context, snap metrics.Snapshot, summary string) error {
	s.mu.Lock()
	err := s.writePendingLocked(ctx)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if err := s.client.WriteSummary(ctx, snap, summary, time.Now()); err != nil {
		return err
	}
	return s.client.PutFile(ctx, metrics.SummaryFile, "text/plain; charset=utf-8", []byte(summary))
}

// Verify Sink implements stream.Sink.
var _ stream.Sink = (*Sink)(nil)

// StubClient is a test client that accepts writes without persisting.
type StubClient struct {
	mu sync.Mutex

	// Batches holds every WriteRecords batch in call order.
	Batches [][]StreamRecord
	// Summaries holds every WriteSummary snapshot.
	Summaries []metrics.Snapshot
	// Files maps sidecar file names to their content.
	Files map[string][]byte
	// Closed indicates whether Close was called.
	Closed bool

	// ErrorOnWrite, if non-nil, is returned by every write.
	ErrorOnWrite error
}

// NewStubClient creates a new stub client.
func NewStubClient() *StubClient {
	return &StubClient{Files: make(map[string][]byte)}
}

// WriteRecords implements Client.
func (c *StubClient) WriteRecords(_ context.Context, records []StreamRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ErrorOnWrite != nil {
		return c.ErrorOnWrite
	}
	batch := make([]StreamRecord, len(records))
	copy(batch, records)
	c.Batches = append(c.Batches, batch)
	return nil
}

// WriteSummary implements Client.
func (c *StubClient) WriteSummary(_ context.Context, snap metrics.Snapshot, _ string, _ time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ErrorOnWrite != nil {
		return c.ErrorOnWrite
	}
	c.Summaries = append(c.Summaries, snap)
	return nil
}

// PutFile implements Client.
func (c *StubClient) PutFile(_ context.Context, filename, _ string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ErrorOnWrite != nil {
		return c.ErrorOnWrite
	}
	c.Files[filename] = data
	return nil
}

// Close implements Client.
func (c *StubClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Closed = true
	return nil
}

// RecordCount returns the total number of records written.
func (c *StubClient) RecordCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, b := range c.Batches {
		n += len(b)
	}
	return n
}

// Verify StubClient implements Client.
var _ Client = (*StubClient)(nil)
