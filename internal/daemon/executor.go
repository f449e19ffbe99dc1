package daemon

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/tsmon/internal/domain"
	"github.com/eliteGoblin/focusd/tsmon/internal/metrics"
	"github.com/eliteGoblin/focusd/tsmon/internal/tailscale"
	"github.com/eliteGoblin/focusd/tsmon/internal/usecase"
)

// ExecutorConfig holds action executor configuration.
type ExecutorConfig struct {
	Timeout time.Duration // Bring-up may negotiate with the control plane
}

// DefaultExecutorConfig returns default executor configuration.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{Timeout: 30 * time.Second}
}

// ActionExecutor runs at most one connect/disconnect at a time.
//
// It never writes a status snapshot. The next poll is the only source of truth
// for the state after an action, even when the action reports success.
type ActionExecutor struct {
	config  ExecutorConfig
	invoker domain.ProcessInvoker
	logger  *zap.Logger

	mu       sync.Mutex
	inFlight bool
	stopped  bool
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewActionExecutor creates a new action executor.
func NewActionExecutor(config ExecutorConfig, invoker domain.ProcessInvoker, logger *zap.Logger) *ActionExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActionExecutor{
		config:  config,
		invoker: invoker,
		logger:  logger,
	}
}

// Execute starts action in the background. The returned channel receives exactly
// one result and is then closed. A request made while another has not reported
// its result is refused with domain.ErrBusy.
//
// Canceling ctx does not abort the command; only Shutdown does.
func (e *ActionExecutor) Execute(ctx context.Context, action domain.Action) (<-chan domain.ActionResult, error) {
	argv, err := tailscale.CommandFor(action)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return nil, domain.ErrStopped
	}
	if e.inFlight {
		metrics.IncBusy()
		e.logger.Info("action rejected, another is in flight", zap.String("action", string(action)))
		return nil, domain.ErrBusy
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	out := make(chan domain.ActionResult, 1)
	done := make(chan struct{})

	e.inFlight = true
	e.cancel = cancel
	e.done = done

	e.logger.Info("action started", zap.String("action", string(action)), zap.Strings("argv", argv))
	go e.run(runCtx, cancel, action, argv, out, done)

	return out, nil
}

func (e *ActionExecutor) run(
	ctx context.Context,
	cancel context.CancelFunc,
	action domain.Action,
	argv []string,
	out chan<- domain.ActionResult,
	done chan<- struct{},
) {
	defer close(done)
	defer cancel()

	result := e.invoke(ctx, action, argv)

	metrics.ObserveAction(string(action), result.Success)
	e.logger.Info("action finished",
		zap.String("action", string(action)),
		zap.Bool("success", result.Success),
		zap.String("detail", result.Detail))

	// Releasing the guard and reporting happen together.
	e.mu.Lock()
	e.inFlight = false
	out <- result
	close(out)
	e.mu.Unlock()
}

func (e *ActionExecutor) invoke(ctx context.Context, action domain.Action, argv []string) (result domain.ActionResult) {
	defer func() {
		if r := recover(); r != nil {
			result = domain.ActionResult{
				Action:     action,
				Detail:     fmt.Sprintf("%v: %v", domain.ErrInternal, r),
				FinishedAt: time.Now(),
			}
		}
	}()

	res, err := e.invoker.Invoke(ctx, argv, e.config.Timeout)
	return usecase.ActionOutcome(action, res, err)
}

// Busy reports whether an action has not yet reported its result.
func (e *ActionExecutor) Busy() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inFlight
}

// Shutdown refuses new requests and waits up to grace for the running action.
// After grace the action is killed and abandoned; Shutdown still waits for the
// kill to be reaped. Returns true if an action was abandoned.
func (e *ActionExecutor) Shutdown(grace time.Duration) bool {
	e.mu.Lock()
	e.stopped = true
	done, cancel := e.done, e.cancel
	e.mu.Unlock()

	if done == nil {
		return false
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-done:
		return false
	case <-timer.C:
	}

	e.logger.Warn("abandoning in-flight action after grace period", zap.Duration("grace", grace))
	cancel()
	<-done
	return true
}
