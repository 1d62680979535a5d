package lode

import (
	"context"
	"time"

	"github.com/pithecene-io/chipstream/metrics"
)

// InstrumentedClient wraps a Client and records one lode_write_success or
// lode_write_failure per dataset or sidecar write call.
type InstrumentedClient struct {
	inner Client
	acc   *metrics.Accumulator
}

// NewInstrumentedClient wraps a client with write counters.
func NewInstrumentedClient(inner Client, acc *metrics.Accumulator) *InstrumentedClient {
	return &InstrumentedClient{inner: inner, acc: acc}
}

func (c *InstrumentedClient) record(err error) error {
	if err != nil {
		c.acc.IncLodeWriteFailure()
	} else {
		c.acc.IncLodeWriteSuccess()
	}
	return err
}

// WriteRecords delegates to the inner client and records the result.
func (c *InstrumentedClient) WriteRecords(ctx context.Context, records []StreamRecord) error {
	return c.record(c.inner.WriteRecords(ctx, records))
}

// WriteSummary delegates to the inner client and records the result.
func (c *InstrumentedClient) WriteSummary(ctx context.Context, snap metrics.Snapshot, summary string, completedAt time.Time) error {
	return c.record(c.inner.WriteSummary(ctx, snap, summary, completedAt))
}

// PutFile delegates to the inner client and records the result.
func (c *InstrumentedClient) PutFile(ctx context.Context, filename, contentType string, data []byte) error {
	return c.record(c.inner.PutFile(ctx, filename, contentType, data))
}

// Close delegates to the inner client.
func (c *InstrumentedClient) Close() error {
	return c.inner.Close()
}

// Verify InstrumentedClient implements Client.
var _ Client = (*InstrumentedClient)(nil)
