// Package daemon implements the background status poller, the action executor,
// and the Monitor that ties them together for a consumer.
package daemon

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/tsmon/internal/domain"
	"github.com/eliteGoblin/focusd/tsmon/internal/metrics"
	"github.com/eliteGoblin/focusd/tsmon/internal/tailscale"
)

// PollerConfig holds the status loop cadence.
type PollerConfig struct {
	Interval     time.Duration // Gap from the end of one poll to the start of the next
	QueryTimeout time.Duration // Bound on a single status query
}

// DefaultPollerConfig returns default poller configuration.
func DefaultPollerConfig() PollerConfig {
	return PollerConfig{
		Interval:     10 * time.Second,
		QueryTimeout: 6 * time.Second,
	}
}

// StatusPoller queries tailscale on a fixed cadence and publishes one snapshot per tick.
// Each tick is computed from fresh output; nothing carries over between ticks.
type StatusPoller struct {
	config     PollerConfig
	invoker    domain.ProcessInvoker
	reconciler domain.StatusReconciler
	slot       *Latest[domain.StatusSnapshot]
	logger     *zap.Logger
}

// NewStatusPoller creates a new status poller.
func NewStatusPoller(
	config PollerConfig,
	invoker domain.ProcessInvoker,
	reconciler domain.StatusReconciler,
	logger *zap.Logger,
) *StatusPoller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusPoller{
		config:     config,
		invoker:    invoker,
		reconciler: reconciler,
		slot:       NewLatest[domain.StatusSnapshot](),
		logger:     logger,
	}
}

// Snapshots returns the slot this poller publishes into.
func (p *StatusPoller) Snapshots() *Latest[domain.StatusSnapshot] {
	return p.slot
}

// Run polls until ctx is canceled. This blocks.
// Cancellation is cooperative: a query already running finishes or hits its own
// timeout, and no query starts once ctx is done.
func (p *StatusPoller) Run(ctx context.Context) error {
	p.logger.Info("status poller started",
		zap.Duration("interval", p.config.Interval),
		zap.Duration("query_timeout", p.config.QueryTimeout))

	wait := time.NewTimer(p.config.Interval)
	defer wait.Stop()

	for {
		if err := ctx.Err(); err != nil {
			p.logger.Info("status poller stopping")
			return err
		}

		p.slot.Publish(p.PollOnce(ctx))

		wait.Reset(p.config.Interval)
		select {
		case <-ctx.Done():
			p.logger.Info("status poller stopping")
			return ctx.Err()
		case <-wait.C:
		}
	}
}

// PollOnce runs a single status query and reconciles it. It never panics.
func (p *StatusPoller) PollOnce(ctx context.Context) (snap domain.StatusSnapshot) {
	start := time.Now()
	var err error

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", domain.ErrInternal, r)
			snap = domain.DisconnectedSnapshot(err.Error())
			snap.ObservedAt = time.Now()
		}
		p.record(snap, err, time.Since(start))
	}()

	res, invokeErr := p.invoker.Invoke(context.WithoutCancel(ctx), tailscale.StatusCommand(), p.config.QueryTimeout)
	snap, err = p.reconciler.Reconcile(res, invokeErr)
	return snap
}

func (p *StatusPoller) record(snap domain.StatusSnapshot, err error, took time.Duration) {
	kind := domain.FailureKind(err)
	metrics.ObservePoll(kind, snap.Connected, snap.ExitNodeHost != domain.NoExitNode, took, snap.ObservedAt)

	if err != nil {
		p.logger.Warn("status poll degraded",
			zap.String("kind", kind),
			zap.Duration("took", took),
			zap.Error(err))
		return
	}
	p.logger.Debug("status poll",
		zap.Bool("connected", snap.Connected),
		zap.String("hostname", snap.Hostname),
		zap.String("tailnet", snap.TailnetName),
		zap.String("exit_node", snap.ExitNodeHost),
		zap.Duration("took", took))
}
