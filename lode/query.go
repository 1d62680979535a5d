package lode

import (
	"context"
	"errors"
	"fmt"

	"github.com/justapithecus/lode/lode"
)

// ErrNoSummaryFound is returned when no run_summary record exists in the dataset.
var ErrNoSummaryFound = errors.New("no run summary records found")

// QueryLatestSummary finds and reads the most recent run_summary record.
// Filters by runID and input if non-empty.
func QueryLatestSummary(ctx context.Context, ds lode.Dataset, runID, input string) (map[string]any, error) {
	snapshots, err := ds.Snapshots(ctx)
	if err != nil {
		return nil, WrapReadError(err, fmt.Sprintf("%s/snapshots", ds.ID()))
	}

	// Snapshots are ordered by creation time; walk latest first.
	for i := len(snapshots) - 1; i >= 0; i-- {
		snap := snapshots[i]

		if !snapshotMatchesFilter(snap, "record_kind", RecordKindSummary) {
			continue
		}
		if !snapshotMatchesFilter(snap, "run_id", runID) {
			continue
		}
		if !snapshotMatchesFilter(snap, "input", input) {
			continue
		}

		data, err := ds.Read(ctx, snap.ID)
		if err != nil {
			return nil, WrapReadError(err, fmt.Sprintf("%s/snapshot/%s", ds.ID(), snap.ID))
		}

		// Path filters are coarse; record fields are authoritative.
		for _, item := range data {
			record, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if record["record_kind"] != RecordKindSummary {
				continue
			}
			if runID != "" && toString(record["run_id"]) != runID {
				continue
			}
			if input != "" && toString(record["input"]) != input {
				continue
			}
			return record, nil
		}
	}

	return nil, ErrNoSummaryFound
}

// StreamRecordCounts counts stream_record rows per chip for a run.
// An empty runID counts every run.
func StreamRecordCounts(ctx context.Context, ds lode.Dataset, runID string) (map[string]int, error) {
	snapshots, err := ds.Snapshots(ctx)
	if err != nil {
		return nil, WrapReadError(err, fmt.Sprintf("%s/snapshots", ds.ID()))
	}

	counts := make(map[string]int)
	for _, snap := range snapshots {
		if !snapshotMatchesFilter(snap, "record_kind", RecordKindStream) ||
			!snapshotMatchesFilter(snap, "run_id", runID) {
			continue
		}
		data, err := ds.Read(ctx, snap.ID)
		if err != nil {
			return nil, WrapReadError(err, fmt.Sprintf("%s/snapshot/%s", ds.ID(), snap.ID))
		}
		for _, item := range data {
			record, ok := item.(map[string]any)
			if !ok || record["record_kind"] != RecordKindStream {
				continue
			}
			if runID != "" && toString(record["run_id"]) != runID {
				continue
			}
			counts[toString(record["chip"])]++
		}
	}
	return counts, nil
}
