package runtime

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pithecene-io/chipstream/log"
	"github.com/pithecene-io/chipstream/metrics"
	"github.com/pithecene-io/chipstream/source"
	"github.com/pithecene-io/chipstream/stream"
	"github.com/pithecene-io/chipstream/types"
)

func TestOutputName(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"run42.dat", "run42", false},
		{"/data/cosmics.raw.dat", "cosmics", false},
		{"relative/dir/noext", "noext", false},
		{".hidden", "", true},
		{"", "", true},
		{"/", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := OutputName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("OutputName(%q) err = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrEmptyOutputName) {
				t.Errorf("err = %v, want ErrEmptyOutputName", err)
			}
			if got != tt.want {
				t.Errorf("OutputName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestOutputDir(t *testing.T) {
	got, err := OutputDir("", "/data/cosmics.dat")
	if err != nil {
		t.Fatalf("OutputDir failed: %v", err)
	}
	if got != filepath.Join(DefaultOutputRoot, "cosmics") {
		t.Errorf("OutputDir = %q", got)
	}

	got, err = OutputDir("/out", "x.y.z")
	if err != nil {
		t.Fatalf("OutputDir failed: %v", err)
	}
	if got != filepath.Join("/out", "x") {
		t.Errorf("OutputDir = %q", got)
	}
}

func TestPrepareOutputDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cosmics")
	if err := os.MkdirAll(filepath.Join(dir, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "stream_stale.txt"), []byte("old\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := PrepareOutputDir(dir); err != nil {
		t.Fatalf("PrepareOutputDir failed: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("dir has %d entries after reset, want 0", len(entries))
	}

	// Creating a missing directory works too.
	fresh := filepath.Join(t.TempDir(), "a", "b")
	if err := PrepareOutputDir(fresh); err != nil {
		t.Fatalf("PrepareOutputDir(fresh) failed: %v", err)
	}
	if fi, err := os.Stat(fresh); err != nil || !fi.IsDir() {
		t.Errorf("fresh dir not created: %v", err)
	}
}

func TestWriteSummary_Overwrites(t *testing.T) {
	dir := t.TempDir()
	if err := WriteSummary(dir, "first run with a much longer summary\n"); err != nil {
		t.Fatal(err)
	}
	if err := WriteSummary(dir, "second\n"); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir, metrics.SummaryFile))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "second\n" {
		t.Errorf("summary = %q, want %q", data, "second\n")
	}
}

// runPipeline performs a full run the way the run command does.
func runPipeline(t *testing.T, root, input string, events []*types.Event) string {
	t.Helper()
	dir, err := OutputDir(root, input)
	if err != nil {
		t.Fatalf("OutputDir failed: %v", err)
	}
	if err := PrepareOutputDir(dir); err != nil {
		t.Fatalf("PrepareOutputDir failed: %v", err)
	}
	orch, err := NewOrchestrator(&RunConfig{
		RunMeta:   &types.RunMeta{RunID: "r", Input: input},
		Source:    source.NewSliceSource(events...),
		Sink:      stream.NewStrictSink(dir),
		OutputDir: dir,
		Logger:    log.Nop(),
	})
	if err != nil {
		t.Fatalf("NewOrchestrator failed: %v", err)
	}
	if _, err := orch.Run(t.Context()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return dir
}

func TestRerunLeavesNoResidue(t *testing.T) {
	root := t.TempDir()

	first := []*types.Event{
		types.NewEvent(1, []types.Chip{makeChip(chipA, 1, []int{1}, false, 5)}),
		types.NewEvent(2, []types.Chip{makeChip(chipB, 1, []int{1}, false, 6)}),
	}
	second := []*types.Event{
		types.NewEvent(10, []types.Chip{makeChip(chipA, 0, nil, false)}),
	}

	runPipeline(t, root, "/data/cosmics.dat", first)
	dir := runPipeline(t, root, "/other/cosmics.v2.dat", second)

	linesA := readLines(t, filepath.Join(dir, stream.FileName(chipA)))
	if len(linesA) != 1 || linesA[0] != "10\t0" {
		t.Errorf("stream A = %q, want only the second run's record", linesA)
	}
	if _, err := os.Stat(filepath.Join(dir, stream.FileName(chipB))); !os.IsNotExist(err) {
		t.Errorf("stream B from the first run survived, stat err = %v", err)
	}

	summary, err := os.ReadFile(filepath.Join(dir, metrics.SummaryFile))
	if err != nil {
		t.Fatal(err)
	}
	snap, err := metrics.ParseSummary(string(summary))
	if err != nil {
		t.Fatalf("ParseSummary failed: %v", err)
	}
	if snap.Events != 1 || snap.ChipsAccepted != 1 {
		t.Errorf("summary = %+v, want the second run's counters", snap)
	}
}
