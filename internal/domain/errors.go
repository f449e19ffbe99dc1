package domain

import "errors"

// Invocation failures returned by a ProcessInvoker.
var (
	ErrInvalidInvocation = errors.New("invalid invocation")
	ErrLaunchFailed      = errors.New("launch failed")
	ErrTimedOut          = errors.New("timed out")
	ErrAborted           = errors.New("aborted")
)

// Status query degradations reported by a StatusReconciler.
var (
	ErrNonZeroExit     = errors.New("non-zero exit")
	ErrEmptyOutput     = errors.New("empty output")
	ErrMalformedOutput = errors.New("malformed output")
)

// Lifecycle errors.
var (
	// ErrBusy rejects an action while a previous one has not reported its result.
	ErrBusy = errors.New("action already in progress")

	// ErrStopped rejects work after shutdown.
	ErrStopped = errors.New("stopped")

	ErrAlreadyStarted = errors.New("already started")

	// ErrInternal marks a recovered panic inside a poll tick.
	ErrInternal = errors.New("internal error")
)

// FailureKind maps an error to a stable label for logs and metrics.
func FailureKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrLaunchFailed):
		return "launch_failed"
	case errors.Is(err, ErrTimedOut):
		return "timed_out"
	case errors.Is(err, ErrAborted):
		return "aborted"
	case errors.Is(err, ErrInvalidInvocation):
		return "invalid"
	case errors.Is(err, ErrNonZeroExit):
		return "non_zero_exit"
	case errors.Is(err, ErrEmptyOutput):
		return "empty_output"
	case errors.Is(err, ErrMalformedOutput):
		return "malformed_output"
	case errors.Is(err, ErrInternal):
		return "panic"
	default:
		return "error"
	}
}
