package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/chipstream/cli/reader"
	"github.com/pithecene-io/chipstream/types"
)

func TestReadOnlyFlags_IncludesTUI(t *testing.T) {
	flags := ReadOnlyFlags()

	hasTUI := false
	for _, f := range flags {
		if f.Names()[0] == "tui" {
			hasTUI = true
			break
		}
	}

	if !hasTUI {
		t.Error("ReadOnlyFlags should include --tui flag for explicit error handling")
	}
}

// newReadOnlyApp wires every command with stdout captured.
func newReadOnlyApp(stdout io.Writer) *cli.App {
	app := cli.NewApp()
	app.Name = "chipstream"
	app.Writer = stdout
	app.ErrWriter = io.Discard
	app.Commands = []*cli.Command{
		RunCommand(),
		InspectCommand(),
		StatsCommand(),
		VersionCommand("abc123"),
	}
	app.ExitErrHandler = func(*cli.Context, error) {}
	return app
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	app := newReadOnlyApp(&out)

	if err := app.Run([]string{"chipstream", "version", "--format", "json"}); err != nil {
		t.Fatalf("version failed: %v", err)
	}

	var resp VersionResponse
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON %q: %v", out.String(), err)
	}
	if resp.Version != types.Version || resp.Commit != "abc123" || resp.FormatVersion != types.FormatVersion {
		t.Errorf("version = %+v", resp)
	}
}

func TestVersionCommand_RejectsTUI(t *testing.T) {
	app := newReadOnlyApp(io.Discard)

	err := app.Run([]string{"chipstream", "version", "--tui"})
	if code := exitCode(t, err); code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
}

func TestInspectCommand(t *testing.T) {
	input := writeInput(t, "insp.dat", e2eEvents())
	var out bytes.Buffer
	app := newReadOnlyApp(&out)

	if err := app.Run([]string{"chipstream", "inspect", "--format", "json", input}); err != nil {
		t.Fatalf("inspect failed: %v", err)
	}

	var report reader.InspectReport
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("invalid JSON %q: %v", out.String(), err)
	}
	if len(report.Rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(report.Rows))
	}
	if report.Rows[1].Chip != chipB.String() || report.Rows[1].Verdict != "reject" {
		t.Errorf("row 1 = %+v, want chip B rejected", report.Rows[1])
	}
	if report.Summary.ChipsSkipped != 1 || report.Summary.ChipsAccepted != 2 {
		t.Errorf("summary = %+v", report.Summary)
	}
}

func TestInspectCommand_Limit(t *testing.T) {
	input := writeInput(t, "insplimit.dat", e2eEvents())
	var out bytes.Buffer
	app := newReadOnlyApp(&out)

	if err := app.Run([]string{"chipstream", "inspect", "--format", "json", "--limit", "1", input}); err != nil {
		t.Fatalf("inspect failed: %v", err)
	}

	var report reader.InspectReport
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if report.Summary.Events != 1 || len(report.Rows) != 2 {
		t.Errorf("events = %d rows = %d, want 1 and 2", report.Summary.Events, len(report.Rows))
	}
}

func TestInspectCommand_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing input", []string{"chipstream", "inspect"}},
		{"negative limit", []string{"chipstream", "inspect", "--limit", "-1", "x.dat"}},
		{"unreadable input", []string{"chipstream", "inspect", filepath.Join(t.TempDir(), "none.dat")}},
		{"bad format", []string{"chipstream", "inspect", "--format", "xml", "x.dat"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newReadOnlyApp(io.Discard)
			if err := app.Run(tt.args); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestStatsCommand_OutputDir(t *testing.T) {
	input := writeInput(t, "st.dat", e2eEvents())
	root := t.TempDir()
	app := newReadOnlyApp(io.Discard)
	if code := exitCode(t, app.Run([]string{"chipstream", "run", "--output-root", root, "--quiet", input})); code != 0 {
		t.Fatalf("run exit code = %d", code)
	}

	var out bytes.Buffer
	app = newReadOnlyApp(&out)
	if err := app.Run([]string{"chipstream", "stats", "--format", "json", filepath.Join(root, "st")}); err != nil {
		t.Fatalf("stats failed: %v", err)
	}

	var stats reader.OutputStats
	if err := json.Unmarshal(out.Bytes(), &stats); err != nil {
		t.Fatalf("invalid JSON %q: %v", out.String(), err)
	}
	if !stats.HasSummary || stats.Summary.Events != 2 {
		t.Errorf("summary = %+v (has=%v)", stats.Summary, stats.HasSummary)
	}
	if len(stats.Streams) != 1 || stats.Streams[0].Chip != chipA.String() || stats.Streams[0].Records != 2 {
		t.Errorf("streams = %+v", stats.Streams)
	}
	if !stats.Consistent() {
		t.Error("stats should be consistent")
	}
}

func TestStatsCommand_Lode(t *testing.T) {
	input := writeInput(t, "stlode.dat", e2eEvents())
	lodeRoot := t.TempDir()
	app := newReadOnlyApp(io.Discard)
	if code := exitCode(t, app.Run([]string{"chipstream", "run", "--output-root", t.TempDir(), "--quiet",
		"--run-id", "s1", "--lode-path", lodeRoot, input})); code != 0 {
		t.Fatalf("run exit code = %d", code)
	}

	var out bytes.Buffer
	app = newReadOnlyApp(&out)
	err := app.Run([]string{"chipstream", "stats", "--format", "json",
		"--lode-backend", "fs", "--lode-path", lodeRoot, "--run-id", "s1"})
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}

	var stats reader.OutputStats
	if err := json.Unmarshal(out.Bytes(), &stats); err != nil {
		t.Fatalf("invalid JSON %q: %v", out.String(), err)
	}
	if !strings.HasPrefix(stats.Location, "lode:") {
		t.Errorf("Location = %q", stats.Location)
	}
	if stats.Summary.RunID != "s1" || stats.TotalRecords != 2 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestStatsCommand_Errors(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		errContains string
	}{
		{"no source", []string{"chipstream", "stats"}, "output-dir required"},
		{"backend without path", []string{"chipstream", "stats", "--lode-backend", "fs"}, "both --lode-backend and --lode-path"},
		{"unknown backend", []string{"chipstream", "stats", "--lode-backend", "gcs", "--lode-path", "/x"}, "unsupported lode-backend"},
		{"not an output dir", []string{"chipstream", "stats", filepath.Join(t.TempDir(), "missing")}, "failed to read stats"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newReadOnlyApp(io.Discard)
			err := app.Run(tt.args)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("error %q should contain %q", err.Error(), tt.errContains)
			}
		})
	}
}
