// Package metrics accumulates per-run chip stream counters.
//
// The Accumulator tallies events, accepted chips, split chips and skipped
// chips for a single run, plus storage mirror write counters. It is a leaf
// package apart from rendering the fixed-format run summary.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of the run counters.
type Snapshot struct {
	// Events is the number of non-empty events fully processed.
	Events int64 `json:"events" yaml:"events"`
	// ChipsAccepted is the number of chips whose record was written.
	ChipsAccepted int64 `json:"chips_accepted" yaml:"chips_accepted"`
	// ChipsSplit is the number of accepted chips the decoder had split.
	ChipsSplit int64 `json:"chips_split" yaml:"chips_split"`
	// ChipsSkipped is the number of chips rejected by validation.
	ChipsSkipped int64 `json:"chips_skipped" yaml:"chips_skipped"`

	// Lode mirror, per Write call
	LodeWriteSuccess int64 `json:"lode_write_success,omitempty" yaml:"lode_write_success,omitempty"`
	LodeWriteFailure int64 `json:"lode_write_failure,omitempty" yaml:"lode_write_failure,omitempty"`

	// Dimensions
	SinkMode       string `json:"sink_mode,omitempty" yaml:"sink_mode,omitempty"`
	StorageBackend string `json:"storage_backend,omitempty" yaml:"storage_backend,omitempty"`
	RunID          string `json:"run_id,omitempty" yaml:"run_id,omitempty"`
}

// ChipsVisited returns accepted plus skipped chips.
func (s Snapshot) ChipsVisited() int64 {
	return s.ChipsAccepted + s.ChipsSkipped
}

// Accumulator tallies counters during a single run.
// All methods are nil-receiver safe.
type Accumulator struct {
	mu sync.Mutex

	events        int64
	chipsAccepted int64
	chipsSplit    int64
	chipsSkipped  int64

	lodeWriteSuccess int64
	lodeWriteFailure int64

	sinkMode       string
	storageBackend string
	runID          string
}

// NewAccumulator creates an Accumulator with dimension labels.
// storageBackend is empty when no mirror is configured.
func NewAccumulator(sinkMode, storageBackend, runID string) *Accumulator {
	return &Accumulator{
		sinkMode:       sinkMode,
		storageBackend: storageBackend,
		runID:          runID,
	}
}

// OnEventProcessed records a fully drained event.
func (a *Accumulator) OnEventProcessed() {
	if a == nil {
		return
	}
	a.mu.Lock()
	a.events++
	a.mu.Unlock()
}

// OnChipAccepted records an accepted chip.
func (a *Accumulator) OnChipAccepted(wasSplit bool) {
	if a == nil {
		return
	}
	a.mu.Lock()
	a.chipsAccepted++
	if wasSplit {
		a.chipsSplit++
	}
	a.mu.Unlock()
}

// OnChipSkipped records a rejected chip.
func (a *Accumulator) OnChipSkipped() {
	if a == nil {
		return
	}
	a.mu.Lock()
	a.chipsSkipped++
	a.mu.Unlock()
}

// --- Lode / Storage ---
// Counted per Write call, not per record.

// IncLodeWriteSuccess records a successful mirror write.
func (a *Accumulator) IncLodeWriteSuccess() {
	if a == nil {
		return
	}
	a.mu.Lock()
	a.lodeWriteSuccess++
	a.mu.Unlock()
}

// IncLodeWriteFailure records a failed mirror write.
func (a *Accumulator) IncLodeWriteFailure() {
	if a == nil {
		return
	}
	a.mu.Lock()
	a.lodeWriteFailure++
	a.mu.Unlock()
}

// Snapshot returns the current counters.
func (a *Accumulator) Snapshot() Snapshot {
	if a == nil {
		return Snapshot{}
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	return Snapshot{
		Events:           a.events,
		ChipsAccepted:    a.chipsAccepted,
		ChipsSplit:       a.chipsSplit,
		ChipsSkipped:     a.chipsSkipped,
		LodeWriteSuccess: a.lodeWriteSuccess,
		LodeWriteFailure: a.lodeWriteFailure,
		SinkMode:         a.sinkMode,
		StorageBackend:   a.storageBackend,
		RunID:            a.runID,
	}
}

// RenderSummary renders the current counters as the run summary text.
func (a *Accumulator) RenderSummary() string {
	return RenderSummary(a.Snapshot())
}
