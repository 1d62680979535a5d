package reader

import "context"

// Reader abstracts read-only access to a processed run.
// Implementations read an output directory or a Lode dataset.
type Reader interface {
	// Stats returns run counters and per-chip record counts.
	Stats(ctx context.Context) (*OutputStats, error)
}

var (
	_ Reader = (*DirReader)(nil)
	_ Reader = (*LodeReader)(nil)
)
