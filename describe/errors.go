package describe

import (
	"fmt"
)

// CompletionError means the completion capability failed, or kept
// returning unparseable responses, past the retry bound. It carries the
// observations accumulated before the failure so callers can keep a
// partial result.
type CompletionError struct {
	// Set holds everything merged before the failure; may be empty,
	// never nil.
	Set *ObservationSet
	// Iteration is the 1-based loop iteration that failed; 0 for the
	// summarizer.
	Iteration int
	Err       error
}

func (e *CompletionError) Error() string {
	if e.Iteration > 0 {
		return fmt.Sprintf("completion failed at iteration %d (%d observations kept): %v",
			e.Iteration, e.Set.Len(), e.Err)
	}
	return fmt.Sprintf("completion failed (%d observations kept): %v", e.Set.Len(), e.Err)
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}
