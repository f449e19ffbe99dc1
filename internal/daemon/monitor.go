package daemon

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/tsmon/internal/domain"
)

// MonitorConfig holds monitor configuration.
type MonitorConfig struct {
	Poller        PollerConfig
	Executor      ExecutorConfig
	ShutdownGrace time.Duration // How long Stop waits for a running action
}

// DefaultMonitorConfig returns default monitor configuration.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Poller:        DefaultPollerConfig(),
		Executor:      DefaultExecutorConfig(),
		ShutdownGrace: time.Second,
	}
}

// Monitor is the consumer-facing surface: snapshots and action results come out
// through latest-value channels, actions go in through RequestAction.
type Monitor struct {
	config   MonitorConfig
	poller   *StatusPoller
	executor *ActionExecutor
	results  *Latest[domain.ActionResult]
	logger   *zap.Logger

	mu         sync.Mutex
	started    bool
	stopped    bool
	cancel     context.CancelFunc
	loopDone   chan struct{}
	forwarders sync.WaitGroup
	stopOnce   sync.Once
}

// NewMonitor creates a monitor. Nothing runs until Start.
func NewMonitor(
	config MonitorConfig,
	invoker domain.ProcessInvoker,
	reconciler domain.StatusReconciler,
	logger *zap.Logger,
) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		config:   config,
		poller:   NewStatusPoller(config.Poller, invoker, reconciler, logger.Named("poller")),
		executor: NewActionExecutor(config.Executor, invoker, logger.Named("executor")),
		results:  NewLatest[domain.ActionResult](),
		logger:   logger,
	}
}

// Start launches the status loop in the background.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return domain.ErrStopped
	}
	if m.started {
		return domain.ErrAlreadyStarted
	}

	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.loopDone = make(chan struct{})
	m.started = true

	go func(done chan<- struct{}) {
		defer close(done)
		_ = m.poller.Run(loopCtx)
	}(m.loopDone)

	return nil
}

// Stop shuts down in order: the status loop is canceled and joined, then a
// running action gets ShutdownGrace to finish before it is killed.
// Safe to call more than once and before Start.
func (m *Monitor) Stop() {
	m.stopOnce.Do(m.shutdown)
}

func (m *Monitor) shutdown() {
	m.mu.Lock()
	m.stopped = true
	cancel, loopDone := m.cancel, m.loopDone
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-loopDone
	}

	if m.executor.Shutdown(m.config.ShutdownGrace) {
		m.logger.Warn("action abandoned during shutdown")
	}
	m.forwarders.Wait()

	m.logger.Info("monitor stopped")
}

// Run starts the monitor and blocks until ctx is canceled, then stops it.
func (m *Monitor) Run(ctx context.Context) error {
	if err := m.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	m.Stop()
	return nil
}

// Snapshots delivers status snapshots, newest only.
func (m *Monitor) Snapshots() <-chan domain.StatusSnapshot {
	return m.poller.Snapshots().C()
}

// Latest returns the most recent snapshot, false before the first poll finishes.
func (m *Monitor) Latest() (domain.StatusSnapshot, bool) {
	return m.poller.Snapshots().Load()
}

// ActionResults delivers action results, newest only.
func (m *Monitor) ActionResults() <-chan domain.ActionResult {
	return m.results.C()
}

// Busy reports whether an action is in flight.
func (m *Monitor) Busy() bool {
	return m.executor.Busy()
}

// RequestAction starts action. Its result arrives on ActionResults.
// Returns domain.ErrBusy while a previous action has not reported.
func (m *Monitor) RequestAction(ctx context.Context, action domain.Action) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return domain.ErrStopped
	}
	m.forwarders.Add(1)
	m.mu.Unlock()

	ch, err := m.executor.Execute(ctx, action)
	if err != nil {
		m.forwarders.Done()
		return err
	}

	go func() {
		defer m.forwarders.Done()
		if result, ok := <-ch; ok {
			m.results.Publish(result)
		}
	}()
	return nil
}

// Toggle disconnects when the latest snapshot is connected and connects otherwise,
// including before the first snapshot.
func (m *Monitor) Toggle(ctx context.Context) (domain.Action, error) {
	action := domain.ActionConnect
	if snap, ok := m.Latest(); ok && snap.Connected {
		action = domain.ActionDisconnect
	}
	return action, m.RequestAction(ctx, action)
}
