package stream

import (
	"context"
	"errors"

	"github.com/pithecene-io/chipstream/types"
)

// TeeSink forwards every call to a primary sink and then to mirrors.
// Stats reports the primary sink's counters.
type TeeSink struct {
	primary Sink
	mirrors []Sink
}

// NewTeeSink creates a sink that writes to primary and every mirror.
// With no mirrors it returns primary unchanged.
func NewTeeSink(primary Sink, mirrors ...Sink) Sink {
	if len(mirrors) == 0 {
		return primary
	}
	return &TeeSink{primary: primary, mirrors: mirrors}
}

// Append writes to the primary first and stops at the first failure.
func (t *TeeSink) Append(ctx context.Context, chip types.ChipID, rec Record) error {
	if err := t.primary.Append(ctx, chip, rec); err != nil {
		return err
	}
	for _, m := range t.mirrors {
		if err := m.Append(ctx, chip, rec); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes every sink and joins their errors.
func (t *TeeSink) Flush(ctx context.Context) error {
	errs := []error{t.primary.Flush(ctx)}
	for _, m := range t.mirrors {
		errs = append(errs, m.Flush(ctx))
	}
	return errors.Join(errs...)
}

// Close closes every sink and joins their errors.
func (t *TeeSink) Close() error {
	errs := []error{t.primary.Close()}
	for _, m := range t.mirrors {
		errs = append(errs, m.Close())
	}
	return errors.Join(errs...)
}

// Stats returns the primary sink's counters.
func (t *TeeSink) Stats() Stats {
	return t.primary.Stats()
}
