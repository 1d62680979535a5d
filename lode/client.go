package lode

import (
	"context"
	"sync"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/chipstream/metrics"
)

// hiveKeys is the partition layout shared by the write and read paths.
var hiveKeys = []string{"input", "day", "run_id", "record_kind"}

// LodeClient is a real Lode-backed implementation of Client.
// Uses Lode's HiveLayout with partition keys: input/day/run_id/record_kind.
type LodeClient struct {
	dataset lode.Dataset
	config  Config

	storeFactory lode.StoreFactory
	storeOnce    sync.Once
	store        lode.Store
	storeErr     error
}

// NewLodeClient creates a new Lode client with filesystem storage.
// The root parameter is the base directory for Hive-partitioned storage.
func NewLodeClient(cfg Config, root string) (*LodeClient, error) {
	return NewLodeClientWithFactory(cfg, lode.NewFSFactory(root))
}

// NewLodeClientWithFactory creates a new Lode client with a custom store factory.
// Use lode.NewMemoryFactory() for testing.
func NewLodeClientWithFactory(cfg Config, factory lode.StoreFactory) (*LodeClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ds, err := newDataset(cfg.Dataset, factory)
	if err != nil {
		return nil, WrapInitError(err, cfg.Dataset)
	}
	return &LodeClient{
		dataset:      ds,
		config:       cfg,
		storeFactory: factory,
	}, nil
}

func newDataset(dataset string, factory lode.StoreFactory) (lode.Dataset, error) {
	return lode.NewDataset(
		lode.DatasetID(dataset),
		factory,
		lode.WithHiveLayout(hiveKeys...),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
}

// WriteRecords writes a batch of stream records as a single dataset snapshot.
// Record order within the batch is preserved.
func (c *LodeClient) WriteRecords(ctx context.Context, records []StreamRecord) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]any, 0, len(records))
	for _, r := range records {
		rows = append(rows, toStreamRecordMap(r, c.config))
	}
	_, err := c.dataset.Write(ctx, rows, lode.Metadata{})
	return WrapWriteError(err, c.config.Dataset)
}

// WriteSummary writes the run_summary record.
func (c *LodeClient) WriteSummary(ctx context.Context, snap metrics.Snapshot, summary string, completedAt time.Time) error {
	record := toSummaryRecordMap(snap, summary, completedAt, c.config)
	_, err := c.dataset.Write(ctx, []any{record}, lode.Metadata{})
	return WrapWriteError(err, c.config.Dataset)
}

// Close releases client resources.
func (c *LodeClient) Close() error {
	// Dataset doesn't require explicit close in current Lode API
	return nil
}

// Verify LodeClient implements Client.
var _ Client = (*LodeClient)(nil)
