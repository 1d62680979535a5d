package reader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pithecene-io/chipstream/iox"
	"github.com/pithecene-io/chipstream/metrics"
	"github.com/pithecene-io/chipstream/stream"
)

// ErrNotOutputDir is returned when the path is not a directory.
var ErrNotOutputDir = errors.New("not an output directory")

// DirReader reads a run output directory.
type DirReader struct {
	dir string
}

// NewDirReader creates a reader for dir.
func NewDirReader(dir string) *DirReader {
	return &DirReader{dir: dir}
}

// Stats reads 00_info.txt and counts records in every stream file.
// A missing summary is not an error; HasSummary reports it.
func (r *DirReader) Stats(ctx context.Context) (*OutputStats, error) {
	info, err := os.Stat(r.dir)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", r.dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotOutputDir, r.dir)
	}

	out := &OutputStats{Location: r.dir, Streams: []StreamStats{}}

	text, err := os.ReadFile(filepath.Join(r.dir, metrics.SummaryFile))
	switch {
	case err == nil:
		snap, perr := metrics.ParseSummary(string(text))
		if perr != nil {
			return nil, fmt.Errorf("parse %s: %w", metrics.SummaryFile, perr)
		}
		out.Summary = snap
		out.HasSummary = true
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("read %s: %w", metrics.SummaryFile, err)
	}

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", r.dir, err)
	}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, stream.FilePrefix) || !strings.HasSuffix(name, stream.FileSuffix) {
			continue
		}
		st, err := countRecords(filepath.Join(r.dir, name))
		if err != nil {
			return nil, err
		}
		st.Chip = strings.TrimSuffix(strings.TrimPrefix(name, stream.FilePrefix), stream.FileSuffix)
		st.File = name
		out.Streams = append(out.Streams, st)
		out.TotalRecords += st.Records
	}

	slices.SortFunc(out.Streams, func(a, b StreamStats) int { return strings.Compare(a.Chip, b.Chip) })
	return out, nil
}

// countRecords counts newline-terminated records and bytes in path.
// A trailing record without a newline counts as a record.
func countRecords(path string) (st StreamStats, err error) {
	f, err := os.Open(path)
	if err != nil {
		return st, fmt.Errorf("open %s: %w", path, err)
	}
	defer iox.CloseInto(f, &err)

	buf := make([]byte, 32*1024)
	var last byte
	for {
		n, rerr := f.Read(buf)
		if n > 0 {
			st.Bytes += int64(n)
			st.Records += int64(bytes.Count(buf[:n], []byte{'\n'}))
			last = buf[n-1]
		}
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return st, fmt.Errorf("read %s: %w", path, rerr)
		}
	}
	if st.Bytes > 0 && last != '\n' {
		st.Records++
	}
	return st, nil
}
