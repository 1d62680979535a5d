// Package runtime drives the chip stream event loop for a single run.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/pithecene-io/chipstream/log"
	"github.com/pithecene-io/chipstream/metrics"
	"github.com/pithecene-io/chipstream/source"
	"github.com/pithecene-io/chipstream/stream"
	"github.com/pithecene-io/chipstream/types"
	"github.com/pithecene-io/chipstream/validate"
)

// MismatchMessage is logged for every chip rejected by validation.
const MismatchMessage = "Number of RAW and Cluster hits does not match, skipping this chip"

// State is the event loop state.
type State int

const (
	// StateRunning is pulling the next event.
	StateRunning State = iota
	// StateDraining is visiting the chips of one event.
	StateDraining
	// StateTerminated is final: the summary has been rendered.
	StateTerminated
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// SummaryMirror receives the final summary in addition to 00_info.txt.
type SummaryMirror interface {
	WriteSummary(ctx context.Context, snap metrics.Snapshot, summary string) error
}

// RunConfig configures a single run.
type RunConfig struct {
	// RunMeta is the run identity.
	RunMeta *types.RunMeta
	// Source yields decoded events. The orchestrator closes it.
	Source source.EventSource
	// Sink receives accepted stream records. The orchestrator closes it.
	Sink stream.Sink
	// OutputDir receives 00_info.txt. It must exist.
	OutputDir string
	// EventLimit caps the number of processed events. Zero means unbounded.
	EventLimit int
	// Accumulator tallies counters. If nil, one is created.
	Accumulator *metrics.Accumulator
	// SummaryMirror, if set, also receives the final summary.
	SummaryMirror SummaryMirror
	// Logger is the run logger. If nil, a default info-level logger is used.
	Logger *log.Logger
}

// RunResult represents the result of a run.
type RunResult struct {
	// RunMeta is the run identity.
	RunMeta *types.RunMeta
	// Outcome is the run outcome.
	Outcome *types.RunOutcome
	// Duration is the total run duration.
	Duration time.Duration
	// Summary is the rendered summary text.
	Summary string
	// Metrics is the final counter snapshot.
	Metrics metrics.Snapshot
	// SinkStats is the final sink snapshot.
	SinkStats stream.Stats
	// OutputDir is the directory holding the stream files.
	OutputDir string
}

// Orchestrator runs the event loop for one input.
type Orchestrator struct {
	config    *RunConfig
	logger    *log.Logger
	acc       *metrics.Accumulator
	state     State
	startTime time.Time
}

// NewOrchestrator creates a new orchestrator.
// Returns error if the configuration is incomplete.
func NewOrchestrator(config *RunConfig) (*Orchestrator, error) {
	if config.RunMeta == nil {
		return nil, errors.New("run metadata is required")
	}
	if err := config.RunMeta.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run metadata: %w", err)
	}
	if config.Source == nil {
		return nil, errors.New("event source is required")
	}
	if config.Sink == nil {
		return nil, errors.New("stream sink is required")
	}
	if config.OutputDir == "" {
		return nil, errors.New("output directory is required")
	}
	if config.EventLimit < 0 {
		return nil, fmt.Errorf("event limit must be >= 0, got %d", config.EventLimit)
	}

	logger := config.Logger
	if logger == nil {
		logger = log.NewLogger(config.RunMeta)
	}
	acc := config.Accumulator
	if acc == nil {
		acc = metrics.NewAccumulator("", "", config.RunMeta.RunID)
	}

	return &Orchestrator{
		config: config,
		logger: logger,
		acc:    acc,
		state:  StateRunning,
	}, nil
}

// State returns the current loop state.
func (o *Orchestrator) State() State {
	return o.state
}

// Run drains the source until end of stream, the event limit, a fatal
// error, or cancellation. Cancellation is only observed between events.
//
// The returned result is always non-nil. The error is a *RunError when the
// outcome is not success. The summary is written on every path.
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	o.startTime = time.Now()
	o.logger.Info("starting run", map[string]any{
		"output_dir":  o.config.OutputDir,
		"event_limit": o.config.EventLimit,
	})

	runErr := o.loop(ctx)
	o.state = StateTerminated

	if err := o.config.Source.Close(); err != nil {
		o.logger.Warn("failed to close source", map[string]any{"error": err.Error()})
	}
	if err := o.config.Sink.Close(); err != nil && runErr == nil {
		runErr = &RunError{Kind: RunErrorSink, Err: err}
	}

	// Summary persistence must not be cut short by the cancellation that
	// may have ended the loop.
	finalCtx := context.WithoutCancel(ctx)
	summary := o.acc.RenderSummary()
	snap := o.acc.Snapshot()
	if err := WriteSummary(o.config.OutputDir, summary); err != nil && runErr == nil {
		runErr = &RunError{Kind: RunErrorSink, Err: err}
	}
	if o.config.SummaryMirror != nil {
		if err := o.config.SummaryMirror.WriteSummary(finalCtx, snap, summary); err != nil && runErr == nil {
			runErr = &RunError{Kind: RunErrorSink, Err: fmt.Errorf("summary mirror: %w", err)}
		}
		snap = o.acc.Snapshot()
	}

	outcome := DetermineOutcome(runErr)
	result := &RunResult{
		RunMeta:   o.config.RunMeta,
		Outcome:   outcome,
		Duration:  time.Since(o.startTime),
		Summary:   summary,
		Metrics:   snap,
		SinkStats: o.config.Sink.Stats(),
		OutputDir: o.config.OutputDir,
	}

	fields := map[string]any{
		"outcome":        outcome.Status,
		"events":         snap.Events,
		"chips_accepted": snap.ChipsAccepted,
		"chips_split":    snap.ChipsSplit,
		"chips_skipped":  snap.ChipsSkipped,
		"duration":       result.Duration.String(),
	}
	if runErr != nil {
		fields["error"] = runErr.Error()
		o.logger.Error("run failed", fields)
		return result, runErr
	}
	o.logger.Info("run completed", fields)
	return result, nil
}

// loop runs Running/Draining transitions until termination.
func (o *Orchestrator) loop(ctx context.Context) error {
	processed := 0
	for {
		o.state = StateRunning
		if err := ctx.Err(); err != nil {
			return &RunError{Kind: RunErrorCanceled, Err: err}
		}

		ev, err := o.config.Source.NextEvent(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return &RunError{Kind: RunErrorCanceled, Err: err}
			}
			return &RunError{Kind: RunErrorSource, Err: err}
		}
		if ev.IsEmpty() {
			o.logger.Debug("end of stream", map[string]any{"events": processed})
			return nil
		}

		if o.logger.Enabled(zapcore.DebugLevel) {
			o.logger.Debug("Event #", map[string]any{
				"event":    processed,
				"event_id": ev.EventIDRaw(),
			})
		}

		o.state = StateDraining
		// A started event always drains completely.
		if err := o.drain(context.WithoutCancel(ctx), ev); err != nil {
			return &RunError{Kind: RunErrorSink, Err: err}
		}
		o.acc.OnEventProcessed()
		processed++

		if o.config.EventLimit > 0 && processed >= o.config.EventLimit {
			o.logger.Debug("event limit reached", map[string]any{"events": processed})
			return nil
		}
	}
}

// drain visits every chip of ev in source order.
func (o *Orchestrator) drain(ctx context.Context, ev *types.Event) error {
	for {
		cs, ok := ev.NextChip()
		if !ok {
			return nil
		}

		hits := ev.ChipHits(cs.ID)
		clusters := ev.ChipClusters(cs.ID)
		if validate.Chip(hits, clusters) == validate.Reject {
			o.acc.OnChipSkipped()
			o.logger.Warn(MismatchMessage, map[string]any{
				"event_id":     ev.EventIDRaw(),
				"chip":         cs.ID.String(),
				"raw_hits":     len(hits),
				"cluster_hits": validate.ClusterHits(clusters),
			})
			continue
		}

		rec := stream.Record{
			EventID:   ev.EventIDRaw(),
			NClusters: ev.ChipNClusters(cs.ID),
			Words:     cs.Words,
		}
		if err := o.config.Sink.Append(ctx, cs.ID, rec); err != nil {
			return fmt.Errorf("event %d chip %s: %w", ev.EventIDRaw(), cs.ID, err)
		}
		o.acc.OnChipAccepted(ev.ChipWasSplit(cs.ID))
	}
}
