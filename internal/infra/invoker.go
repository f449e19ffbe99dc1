package infra

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/tsmon/internal/domain"
)

// DefaultWaitDelay bounds how long Wait blocks on inherited pipes after a kill.
const DefaultWaitDelay = 2 * time.Second

// ExecInvoker implements domain.ProcessInvoker using os/exec.
// On timeout or cancellation the whole child process tree is killed.
type ExecInvoker struct {
	pm        domain.ProcessManager
	logger    *zap.Logger
	waitDelay time.Duration
}

// NewExecInvoker creates an invoker that kills process trees through pm.
func NewExecInvoker(pm domain.ProcessManager, logger *zap.Logger) *ExecInvoker {
	if pm == nil {
		pm = NewProcessManager()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExecInvoker{
		pm:        pm,
		logger:    logger,
		waitDelay: DefaultWaitDelay,
	}
}

// Invoke runs argv until it exits or timeout elapses.
func (e *ExecInvoker) Invoke(ctx context.Context, argv []string, timeout time.Duration) (domain.ProcessResult, error) {
	if len(argv) == 0 || argv[0] == "" {
		return domain.ProcessResult{}, fmt.Errorf("%w: empty argv", domain.ErrInvalidInvocation)
	}
	if timeout <= 0 {
		return domain.ProcessResult{}, fmt.Errorf("%w: timeout %v", domain.ErrInvalidInvocation, timeout)
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = e.waitDelay
	cmd.Cancel = func() error {
		return e.pm.KillTree(cmd.Process.Pid)
	}

	res := domain.ProcessResult{Argv: append([]string(nil), argv...)}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return res, fmt.Errorf("%w: %v", domain.ErrLaunchFailed, err)
	}
	res.PID = cmd.Process.Pid

	err := cmd.Wait()
	res.Duration = time.Since(start)

	if err != nil && runCtx.Err() != nil {
		e.logger.Debug("invocation killed",
			zap.Strings("argv", argv),
			zap.Int("pid", res.PID),
			zap.Duration("elapsed", res.Duration),
			zap.Error(runCtx.Err()))

		// Partial output is discarded
		if ctx.Err() != nil {
			return res, domain.ErrAborted
		}
		return res, fmt.Errorf("%w after %v", domain.ErrTimedOut, timeout)
	}

	res.Stdout = strings.TrimSpace(stdout.String())
	res.Stderr = strings.TrimSpace(stderr.String())

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		res.ExitCode = 0
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	case errors.Is(err, exec.ErrWaitDelay):
		// Exited, but a leftover descendant held the pipes open
		res.ExitCode = cmd.ProcessState.ExitCode()
	default:
		return res, fmt.Errorf("wait %s: %w", argv[0], err)
	}

	return res, nil
}

// Ensure ExecInvoker implements domain.ProcessInvoker.
var _ domain.ProcessInvoker = (*ExecInvoker)(nil)
