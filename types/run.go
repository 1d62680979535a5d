package types

import (
	"errors"
	"path/filepath"
)

// RunMeta identifies a single extraction run.
type RunMeta struct {
	// RunID is the run identifier, unique per invocation.
	RunID string
	// Input is the path of the decoded-event file being processed.
	Input string
}

// Validate checks that the run identity is usable.
func (r *RunMeta) Validate() error {
	if r.RunID == "" {
		return errors.New("run_id must be non-empty")
	}
	if r.Input == "" {
		return errors.New("input must be non-empty")
	}
	return nil
}

// InputBase returns the base name of the input file.
func (r *RunMeta) InputBase() string {
	return filepath.Base(r.Input)
}

// OutcomeStatus represents the final status of a run.
type OutcomeStatus string

const (
	// OutcomeSuccess indicates the source was drained or the event limit reached.
	OutcomeSuccess OutcomeStatus = "success"
	// OutcomeSourceFailure indicates the input could not be read or decoded.
	OutcomeSourceFailure OutcomeStatus = "source_failure"
	// OutcomeSinkFailure indicates an output file could not be created or written.
	OutcomeSinkFailure OutcomeStatus = "sink_failure"
	// OutcomeCanceled indicates the run was interrupted at an event boundary.
	OutcomeCanceled OutcomeStatus = "canceled"
)

// RunOutcome is the final outcome of a run.
type RunOutcome struct {
	Status  OutcomeStatus
	Message string
}
