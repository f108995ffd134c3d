package evaluator

import "fmt"

// FailureKind classifies why an evaluation produced no usable metrics.
type FailureKind string

const (
	// FailureTimeout means the external process exceeded the wall-clock bound
	FailureTimeout FailureKind = "timeout"
	// FailureProcess means the external process exited with nonzero status
	FailureProcess FailureKind = "process_error"
	// FailureNoResult means no result artifact was produced
	FailureNoResult FailureKind = "no_result"
	// FailureParse means the result artifact was malformed or incomplete
	FailureParse FailureKind = "parse_error"
)

// Failure describes a failed evaluation. The loop treats all kinds
// uniformly; the kind and diagnostic output are kept for the trial record.
type Failure struct {
	Kind   FailureKind
	Detail string
	Output string // captured stderr, when available
}

func (f *Failure) Error() string {
	if f.Detail == "" {
		return fmt.Sprintf("evaluation failed: %s", f.Kind)
	}
	return fmt.Sprintf("evaluation failed: %s: %s", f.Kind, f.Detail)
}
