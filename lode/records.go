package lode

import (
	"time"

	"github.com/pithecene-io/chipstream/metrics"
	"github.com/pithecene-io/chipstream/stream"
	"github.com/pithecene-io/chipstream/types"
)

// RecordKind discriminator values. record_kind is also the last Hive
// partition key, so each kind lands in its own partition.
const (
	RecordKindStream  = "stream_record"
	RecordKindSummary = "run_summary"
)

// StreamRecord is the storage format for one accepted (event, chip) pair.
type StreamRecord struct {
	Chip      types.ChipID
	EventID   uint32
	NClusters int
	Words     []types.StreamWord
}

// NewStreamRecord pairs a chip with its encoded stream record.
func NewStreamRecord(chip types.ChipID, rec stream.Record) StreamRecord {
	return StreamRecord{
		Chip:      chip,
		EventID:   rec.EventID,
		NClusters: rec.NClusters,
		Words:     rec.Words,
	}
}

// partitionFields returns the Hive partition keys shared by all records.
func partitionFields(cfg Config, kind string) map[string]any {
	return map[string]any{
		"record_kind": kind,
		"input":       cfg.Input,
		"day":         cfg.Day,
		"run_id":      cfg.RunID,
	}
}

// toStreamRecordMap converts a StreamRecord to a map for Lode storage.
// Lode HiveLayout requires records as map[string]any.
func toStreamRecordMap(r StreamRecord, cfg Config) map[string]any {
	words := make([]uint16, len(r.Words))
	for i, w := range r.Words {
		words[i] = uint16(w)
	}
	m := partitionFields(cfg, RecordKindStream)
	m["chip"] = r.Chip.String()
	m["event_id"] = r.EventID
	m["ncluster"] = r.NClusters
	m["words"] = words
	return m
}

// toSummaryRecordMap converts the final run counters to a map for storage.
func toSummaryRecordMap(snap metrics.Snapshot, summary string, completedAt time.Time, cfg Config) map[string]any {
	m := partitionFields(cfg, RecordKindSummary)
	m["events"] = snap.Events
	m["chips_accepted"] = snap.ChipsAccepted
	m["chips_split"] = snap.ChipsSplit
	m["chips_skipped"] = snap.ChipsSkipped
	m["sink_mode"] = snap.SinkMode
	m["storage_backend"] = snap.StorageBackend
	m["summary"] = summary
	m["completed_at"] = completedAt.UTC().Format(time.RFC3339)
	return m
}

// SummaryFromRecord reads run counters back from a run_summary record.
// Numeric fields decode from JSONL as float64.
func SummaryFromRecord(record map[string]any) metrics.Snapshot {
	return metrics.Snapshot{
		Events:         toInt64(record["events"]),
		ChipsAccepted:  toInt64(record["chips_accepted"]),
		ChipsSplit:     toInt64(record["chips_split"]),
		ChipsSkipped:   toInt64(record["chips_skipped"]),
		SinkMode:       toString(record["sink_mode"]),
		StorageBackend: toString(record["storage_backend"]),
		RunID:          toString(record["run_id"]),
	}
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}

// toString converts a value to string, returning empty string for nil/non-string.
func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
