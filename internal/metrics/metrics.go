// Package metrics exposes Prometheus collectors for the status loop and actions.
// tsmon opens no listener; metrics are written to a node-exporter textfile.
package metrics

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	polls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tsmon",
			Subsystem: "status",
			Name:      "polls_total",
			Help:      "Status queries by outcome.",
		}, []string{"result"},
	)
	pollDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tsmon",
			Subsystem: "status",
			Name:      "poll_duration_seconds",
			Help:      "Wall time of one status query including parsing.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 6, 10},
		},
	)
	connected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tsmon",
			Subsystem: "status",
			Name:      "connected",
			Help:      "1 when the backend reported Running on the last poll.",
		},
	)
	exitNodeActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tsmon",
			Subsystem: "status",
			Name:      "exit_node_active",
			Help:      "1 when an exit node was configured on the last poll.",
		},
	)
	lastPoll = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tsmon",
			Subsystem: "status",
			Name:      "last_poll_timestamp_seconds",
			Help:      "Unix time of the last completed poll.",
		},
	)

	actions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tsmon",
			Subsystem: "action",
			Name:      "runs_total",
			Help:      "Connect/disconnect runs by action and outcome.",
		}, []string{"action", "result"},
	)
	busyRejections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tsmon",
			Subsystem: "action",
			Name:      "busy_rejections_total",
			Help:      "Action requests refused because another was in flight.",
		},
	)
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{polls, pollDuration, connected, exitNodeActive, lastPoll, actions, busyRejections}
}

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	for _, c := range collectors() {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Below are lightweight helpers used by internal packages to record metrics.
// They no-op if Register hasn't been called.

// ObservePoll records one finished status query.
// result is a domain.FailureKind label.
func ObservePoll(result string, isConnected, hasExitNode bool, took time.Duration, at time.Time) {
	if !regOK.Load() {
		return
	}
	polls.WithLabelValues(result).Inc()
	pollDuration.Observe(took.Seconds())
	connected.Set(boolGauge(isConnected))
	exitNodeActive.Set(boolGauge(hasExitNode))
	lastPoll.Set(float64(at.Unix()))
}

// ObserveAction records one finished connect/disconnect run.
func ObserveAction(action string, success bool) {
	if !regOK.Load() {
		return
	}
	result := "success"
	if !success {
		result = "failure"
	}
	actions.WithLabelValues(action, result).Inc()
}

func IncBusy() {
	if regOK.Load() {
		busyRejections.Inc()
	}
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
