package stream

import (
	"errors"
	"fmt"
)

// SinkError reports a failed stream write. Sink errors are fatal for the run.
type SinkError struct {
	// Op is the operation that failed: "append", "flush" or "close".
	Op string
	// Path is the stream file involved, if any.
	Path string
	Err  error
}

func (e *SinkError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("stream %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("stream %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}

// IsSinkError reports whether err contains a *SinkError.
func IsSinkError(err error) bool {
	var sinkErr *SinkError
	return errors.As(err, &sinkErr)
}
