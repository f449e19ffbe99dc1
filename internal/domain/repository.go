package domain

import (
	"context"
	"time"
)

// ProcessInvoker runs one external command with a bounded timeout.
// Implementation: os/exec with process-tree kill on timeout.
type ProcessInvoker interface {
	// Invoke runs argv and waits for it to finish or for timeout to elapse.
	// Returns a ProcessResult for any completed run regardless of exit code.
	// Errors are ErrInvalidInvocation, ErrTimedOut, ErrAborted, or wrap ErrLaunchFailed.
	Invoke(ctx context.Context, argv []string, timeout time.Duration) (ProcessResult, error)
}

// StatusReconciler turns the outcome of one status query into a snapshot.
type StatusReconciler interface {
	// Reconcile always returns a complete snapshot.
	// The error names why the snapshot degraded to disconnected, nil if it parsed.
	Reconcile(res ProcessResult, invokeErr error) (StatusSnapshot, error)
}

// ProcessManager handles OS process operations.
// Implementation: uses gopsutil for cross-platform support.
type ProcessManager interface {
	// IsRunning checks if a PID exists and is running.
	IsRunning(pid int) bool

	// KillTree terminates a process and all of its descendants (SIGKILL).
	KillTree(pid int) error
}
