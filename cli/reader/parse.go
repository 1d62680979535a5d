package reader

import (
	"errors"
	"fmt"

	"github.com/pithecene-io/chipstream/lode"
	"github.com/pithecene-io/chipstream/metrics"
)

// ParseSummaryRecord converts a Lode run_summary record to a Snapshot.
// The write path always populates run_id, sink_mode, completed_at and
// summary; a missing value indicates a malformed record. The stored
// summary text must agree with the stored counters.
func ParseSummaryRecord(record map[string]any) (metrics.Snapshot, error) {
	if record == nil {
		return metrics.Snapshot{}, errors.New("nil record")
	}

	for _, field := range []string{"run_id", "sink_mode", "completed_at", "summary"} {
		if s, _ := record[field].(string); s == "" {
			return metrics.Snapshot{}, fmt.Errorf("summary record missing required field: %s", field)
		}
	}

	snap := lode.SummaryFromRecord(record)

	text, _ := record["summary"].(string)
	parsed, err := metrics.ParseSummary(text)
	if err != nil {
		return metrics.Snapshot{}, fmt.Errorf("summary record: %w", err)
	}
	if parsed.Events != snap.Events || parsed.ChipsAccepted != snap.ChipsAccepted ||
		parsed.ChipsSplit != snap.ChipsSplit || parsed.ChipsSkipped != snap.ChipsSkipped {
		return metrics.Snapshot{}, errors.New("summary record: text and counters disagree")
	}

	return snap, nil
}
