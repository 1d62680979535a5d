package runtime

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pithecene-io/chipstream/metrics"
)

// DefaultOutputRoot is the parent directory of per-input output directories.
const DefaultOutputRoot = "./processed_streams"

// ErrEmptyOutputName is returned when an input name yields no output name.
var ErrEmptyOutputName = errors.New("input file name has no characters before its first '.'")

// OutputName returns the input's base name up to its first '.'.
// "/data/run42.raw.dat" becomes "run42".
func OutputName(input string) (string, error) {
	base := filepath.Base(input)
	name, _, _ := strings.Cut(base, ".")
	if name == "" || name == string(filepath.Separator) {
		return "", fmt.Errorf("%w: %q", ErrEmptyOutputName, input)
	}
	return name, nil
}

// OutputDir returns the per-input output directory under root.
func OutputDir(root, input string) (string, error) {
	name, err := OutputName(input)
	if err != nil {
		return "", err
	}
	if root == "" {
		root = DefaultOutputRoot
	}
	return filepath.Join(root, name), nil
}

// PrepareOutputDir removes dir with all its contents and recreates it empty.
func PrepareOutputDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to clear output directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

// WriteSummary writes the summary text to 00_info.txt in dir, replacing
// any previous summary.
func WriteSummary(dir, summary string) error {
	path := filepath.Join(dir, metrics.SummaryFile)
	if err := os.WriteFile(path, []byte(summary), 0o644); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}
