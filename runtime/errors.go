package runtime

import "errors"

// RunError classifies a failed run for outcome determination.
type RunError struct {
	// Kind indicates which side of the pipeline failed.
	Kind RunErrorKind
	// Err is the underlying error.
	Err error
}

// RunErrorKind classifies run errors.
type RunErrorKind int

const (
	// RunErrorSource indicates the input could not be read or decoded.
	RunErrorSource RunErrorKind = iota
	// RunErrorSink indicates a stream, summary or mirror write failed.
	RunErrorSink
	// RunErrorCanceled indicates the run stopped at an event boundary on
	// context cancellation.
	RunErrorCanceled
)

// String returns the kind name.
func (k RunErrorKind) String() string {
	switch k {
	case RunErrorSource:
		return "source"
	case RunErrorSink:
		return "sink"
	case RunErrorCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

func (e *RunError) Error() string {
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// IsSourceError returns true if the error is an input failure.
func IsSourceError(err error) bool {
	return isKind(err, RunErrorSource)
}

// IsSinkError returns true if the error is an output failure.
func IsSinkError(err error) bool {
	return isKind(err, RunErrorSink)
}

// IsCanceledError returns true if the run was canceled.
func IsCanceledError(err error) bool {
	return isKind(err, RunErrorCanceled)
}

func isKind(err error, kind RunErrorKind) bool {
	var runErr *RunError
	if errors.As(err, &runErr) {
		return runErr.Kind == kind
	}
	return false
}
