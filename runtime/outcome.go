package runtime

import (
	"fmt"

	"github.com/pithecene-io/chipstream/types"
)

// Process exit codes by outcome.
const (
	ExitCodeSuccess       = 0 // source drained or event limit reached
	ExitCodeSourceFailure = 1 // unreadable or undecodable input
	ExitCodeSinkFailure   = 2 // output directory, stream or summary write failed
	ExitCodeCanceled      = 3 // interrupted at an event boundary
)

// DetermineOutcome maps a run error to the run outcome.
// A nil error is success.
func DetermineOutcome(err error) *types.RunOutcome {
	switch {
	case err == nil:
		return &types.RunOutcome{
			Status:  types.OutcomeSuccess,
			Message: "run completed successfully",
		}
	case IsCanceledError(err):
		return &types.RunOutcome{
			Status:  types.OutcomeCanceled,
			Message: fmt.Sprintf("run canceled: %v", err),
		}
	case IsSinkError(err):
		return &types.RunOutcome{
			Status:  types.OutcomeSinkFailure,
			Message: fmt.Sprintf("sink failure: %v", err),
		}
	default:
		return &types.RunOutcome{
			Status:  types.OutcomeSourceFailure,
			Message: fmt.Sprintf("source failure: %v", err),
		}
	}
}

// ExitCodeForOutcome returns the process exit code for an outcome status.
func ExitCodeForOutcome(status types.OutcomeStatus) int {
	switch status {
	case types.OutcomeSuccess:
		return ExitCodeSuccess
	case types.OutcomeSinkFailure:
		return ExitCodeSinkFailure
	case types.OutcomeCanceled:
		return ExitCodeCanceled
	default:
		return ExitCodeSourceFailure
	}
}
