package sandbox

import "fmt"

type ErrorKind string

const (
	KindRaised        ErrorKind = "raised"
	KindMissingOutput ErrorKind = "missing_output"
	KindTimeout       ErrorKind = "timeout"
	KindCanceled      ErrorKind = "canceled"
)

// ExecutionError reports a failed sandbox run. Every kind is surfaced the same
// way to callers; Kind only distinguishes the cause.
type ExecutionError struct {
	Kind    ErrorKind
	Message string
	Output  string // required output that was never assigned

	// Traceback is the interpreter stack trace, kept for debugging only.
	Traceback string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("Execution failed: %s", e.Message)
}
