package metrics

import (
	"fmt"
	"strings"
)

// SummaryFile is the file name of the persisted run summary.
const SummaryFile = "00_info.txt"

const summaryFormat = "Processing done. Total events: %d. Total chips: %d\n" +
	"Chips had split: %d\n" +
	"Chips skipped: %d\n"

// RenderSummary renders the fixed-format run summary.
// Downstream tooling parses this text; keep the format stable.
func RenderSummary(s Snapshot) string {
	return fmt.Sprintf(summaryFormat, s.Events, s.ChipsAccepted, s.ChipsSplit, s.ChipsSkipped)
}

// ParseSummary reads back the counters from RenderSummary output.
func ParseSummary(text string) (Snapshot, error) {
	var s Snapshot
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if len(lines) != 3 {
		return Snapshot{}, fmt.Errorf("parse summary: expected 3 lines, got %d", len(lines))
	}
	if _, err := fmt.Sscanf(lines[0], "Processing done. Total events: %d. Total chips: %d", &s.Events, &s.ChipsAccepted); err != nil {
		return Snapshot{}, fmt.Errorf("parse summary line 1: %w", err)
	}
	if _, err := fmt.Sscanf(lines[1], "Chips had split: %d", &s.ChipsSplit); err != nil {
		return Snapshot{}, fmt.Errorf("parse summary line 2: %w", err)
	}
	if _, err := fmt.Sscanf(lines[2], "Chips skipped: %d", &s.ChipsSkipped); err != nil {
		return Snapshot{}, fmt.Errorf("parse summary line 3: %w", err)
	}
	return s, nil
}
