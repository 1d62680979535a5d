package runtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pithecene-io/chipstream/metrics"
	"github.com/pithecene-io/chipstream/types"
)

// RunReport is the structured JSON report written by --report.
type RunReport struct {
	RunID      string              `json:"run_id"`
	Input      string              `json:"input"`
	OutputDir  string              `json:"output_dir"`
	Outcome    types.OutcomeStatus `json:"outcome"`
	Message    string              `json:"message"`
	ExitCode   int                 `json:"exit_code"`
	DurationMs int64               `json:"duration_ms"`

	Sink    *ReportSink       `json:"sink"`
	Metrics *metrics.Snapshot `json:"metrics"`
	Summary string            `json:"summary"`
}

// ReportSink holds sink stats in the report.
type ReportSink struct {
	Mode    string `json:"mode"`
	Records int64  `json:"records"`
	Bytes   int64  `json:"bytes"`
	Streams int64  `json:"streams"`
	Flushes int64  `json:"flushes"`
	Errors  int64  `json:"errors"`
}

// BuildRunReport composes a RunReport from a RunResult.
// The exitCode is the process exit code that will be returned to the caller.
func BuildRunReport(result *RunResult, sinkMode string, exitCode int) *RunReport {
	snap := result.Metrics
	return &RunReport{
		RunID:      result.RunMeta.RunID,
		Input:      result.RunMeta.Input,
		OutputDir:  result.OutputDir,
		Outcome:    result.Outcome.Status,
		Message:    result.Outcome.Message,
		ExitCode:   exitCode,
		DurationMs: result.Duration.Milliseconds(),
		Sink: &ReportSink{
			Mode:    sinkMode,
			Records: result.SinkStats.Records,
			Bytes:   result.SinkStats.Bytes,
			Streams: result.SinkStats.Streams,
			Flushes: result.SinkStats.Flushes,
			Errors:  result.SinkStats.Errors,
		},
		Metrics: &snap,
		Summary: result.Summary,
	}
}

// WriteRunReport writes the report as JSON to the specified path.
// If path is "-", writes to stderr.
func WriteRunReport(report *RunReport, path string) error {
	if path == "" {
		return errors.New("report path must not be empty")
	}

	if path == "-" {
		if err := writeRunReportTo(report, os.Stderr); err != nil {
			return fmt.Errorf("failed to write report to stderr: %w", err)
		}
		return nil
	}

	data, err := marshalReport(report)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	return nil
}

func marshalReport(report *RunReport) ([]byte, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return append(data, '\n'), nil
}

// writeRunReportTo writes report JSON to any writer.
func writeRunReportTo(report *RunReport, w io.Writer) error {
	data, err := marshalReport(report)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
