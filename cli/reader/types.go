// Package reader provides the read-side data access layer for the chipstream CLI.
//
// Read-only commands (stats, inspect) use this package exclusively. Nothing
// here creates, modifies or removes output files.
package reader

import "github.com/pithecene-io/chipstream/metrics"

// StreamStats describes one stream_<chip>.txt file or its Lode equivalent.
type StreamStats struct {
	Chip    string `json:"chip" yaml:"chip"`
	File    string `json:"file,omitempty" yaml:"file,omitempty"`
	Records int64  `json:"records" yaml:"records"`
	Bytes   int64  `json:"bytes,omitempty" yaml:"bytes,omitempty"`
}

// OutputStats aggregates a processed run.
type OutputStats struct {
	// Location is the output directory or Lode dataset the stats came from.
	Location string `json:"location" yaml:"location"`
	// Summary holds the run counters from 00_info.txt or the run_summary record.
	Summary metrics.Snapshot `json:"summary" yaml:"summary"`
	// HasSummary is false when no summary was found.
	HasSummary bool `json:"has_summary" yaml:"has_summary"`
	// Streams lists per-chip record counts, ordered by chip.
	Streams []StreamStats `json:"streams" yaml:"streams"`
	// TotalRecords is the sum of Streams[].Records.
	TotalRecords int64 `json:"total_records" yaml:"total_records"`
}

// Consistent reports whether the stream records add up to the accepted
// chip count of the summary.
func (s *OutputStats) Consistent() bool {
	return s.HasSummary && s.TotalRecords == s.Summary.ChipsAccepted
}

// InspectRow is one (event, chip) verdict from a dry run.
type InspectRow struct {
	EventID     uint32 `json:"event_id" yaml:"event_id"`
	Chip        string `json:"chip" yaml:"chip"`
	RawHits     int    `json:"raw_hits" yaml:"raw_hits"`
	ClusterHits int    `json:"cluster_hits" yaml:"cluster_hits"`
	NClusters   int    `json:"nclusters" yaml:"nclusters"`
	Words       int    `json:"words" yaml:"words"`
	WasSplit    bool   `json:"was_split" yaml:"was_split"`
	Verdict     string `json:"verdict" yaml:"verdict"`
}

// InspectReport is the result of a dry run over an input file.
type InspectReport struct {
	Input   string           `json:"input" yaml:"input"`
	Rows    []InspectRow     `json:"rows" yaml:"rows"`
	Summary metrics.Snapshot `json:"summary" yaml:"summary"`
}
