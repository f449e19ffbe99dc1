// Package usecase contains application business logic.
package usecase

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/tsmon/internal/domain"
	"github.com/eliteGoblin/focusd/tsmon/internal/tailscale"
)

// ReconcilerImpl implements domain.StatusReconciler for tailscale status output.
type ReconcilerImpl struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewReconciler creates a new status reconciler.
func NewReconciler(logger *zap.Logger) domain.StatusReconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconcilerImpl{
		logger: logger,
		now:    time.Now,
	}
}

// Reconcile applies the rules in order, first match wins:
//  1. invoker error, non-zero exit or empty stdout: disconnected
//  2. stdout is not a status payload: disconnected, detail is the raw text
//  3. parsed: fields from the payload, detail is the indented payload
//  4. exit node resolved against the peer collection
func (r *ReconcilerImpl) Reconcile(res domain.ProcessResult, invokeErr error) (domain.StatusSnapshot, error) {
	snap, err := r.reconcile(res, invokeErr)
	snap.ObservedAt = r.now()
	return snap, err
}

func (r *ReconcilerImpl) reconcile(res domain.ProcessResult, invokeErr error) (domain.StatusSnapshot, error) {
	if invokeErr != nil {
		return domain.DisconnectedSnapshot(invokeErr.Error()), invokeErr
	}
	if res.ExitCode != 0 {
		return domain.DisconnectedSnapshot(firstNonEmpty(res.Stderr, res.Stdout)),
			fmt.Errorf("exit code %d: %w", res.ExitCode, domain.ErrNonZeroExit)
	}
	if res.Stdout == "" {
		return domain.DisconnectedSnapshot(res.Stderr), domain.ErrEmptyOutput
	}

	status, err := tailscale.ParseStatus([]byte(res.Stdout))
	if err != nil {
		r.logger.Debug("status payload rejected", zap.Error(err))
		return domain.DisconnectedSnapshot(firstNonEmpty(res.Stdout, res.Stderr)),
			fmt.Errorf("%w: %v", domain.ErrMalformedOutput, err)
	}

	snap := domain.StatusSnapshot{
		Connected:    status.Connected(),
		Hostname:     status.Hostname(),
		TailnetName:  status.TailnetName(),
		ExitNodeHost: domain.NoExitNode,
		RawDetail:    indent(res.Stdout),
	}
	if !snap.Connected {
		return snap, nil
	}
	if host, ok := status.ResolveExitNode(); ok {
		snap.ExitNodeHost = host
	}
	return snap, nil
}

// ActionOutcome derives the reported result of one connect/disconnect run.
func ActionOutcome(action domain.Action, res domain.ProcessResult, invokeErr error) domain.ActionResult {
	result := domain.ActionResult{
		Action:     action,
		FinishedAt: time.Now(),
	}
	if invokeErr != nil {
		result.Detail = invokeErr.Error()
		return result
	}
	result.Success = res.ExitCode == 0
	result.Detail = firstNonEmpty(res.Stdout, res.Stderr)
	if result.Detail == "" {
		result.Detail = domain.NoOutput
	}
	return result
}

// indent pretty-prints a payload that already parsed; the raw text is kept if it cannot be.
func indent(payload string) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(payload), "", "  "); err != nil {
		return payload
	}
	return buf.String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Ensure ReconcilerImpl implements domain.StatusReconciler.
var _ domain.StatusReconciler = (*ReconcilerImpl)(nil)
