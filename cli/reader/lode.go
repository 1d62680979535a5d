package reader

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	lodeapi "github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/chipstream/lode"
)

// LodeReader reads a run mirrored into a Lode dataset.
type LodeReader struct {
	ds    lodeapi.Dataset
	runID string
	input string
}

// NewLodeReader creates a reader over ds. Empty runID or input select the
// latest run matching the other filter.
func NewLodeReader(ds lodeapi.Dataset, runID, input string) *LodeReader {
	return &LodeReader{ds: ds, runID: runID, input: input}
}

// Stats reads the latest matching run_summary record and counts the run's
// stream records per chip.
func (r *LodeReader) Stats(ctx context.Context) (*OutputStats, error) {
	out := &OutputStats{
		Location: fmt.Sprintf("lode:%s", r.ds.ID()),
		Streams:  []StreamStats{},
	}

	runID := r.runID
	record, err := lode.QueryLatestSummary(ctx, r.ds, r.runID, r.input)
	switch {
	case err == nil:
		snap, perr := ParseSummaryRecord(record)
		if perr != nil {
			return nil, perr
		}
		out.Summary = snap
		out.HasSummary = true
		runID = snap.RunID
	case errors.Is(err, lode.ErrNoSummaryFound):
		if runID == "" {
			return nil, err
		}
	default:
		return nil, err
	}

	counts, err := lode.StreamRecordCounts(ctx, r.ds, runID)
	if err != nil {
		return nil, err
	}
	for chip, n := range counts {
		out.Streams = append(out.Streams, StreamStats{Chip: chip, Records: int64(n)})
		out.TotalRecords += int64(n)
	}
	slices.SortFunc(out.Streams, func(a, b StreamStats) int { return strings.Compare(a.Chip, b.Chip) })
	return out, nil
}
