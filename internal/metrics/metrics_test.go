package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHelpersNoopBeforeRegister must run before any test that calls Register.
func TestHelpersNoopBeforeRegister(t *testing.T) {
	if regOK.Load() {
		t.Skip("metrics already registered in this process")
	}
	ObservePoll("ok", true, false, time.Second, time.Now())
	ObserveAction("connect", true)
	IncBusy()

	assert.Equal(t, 0.0, testutil.ToFloat64(polls.WithLabelValues("ok")))
	assert.Equal(t, 0.0, testutil.ToFloat64(busyRejections))
}

func TestRegisterIdempotentAndHelpersWork(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg))

	beforeOK := testutil.ToFloat64(polls.WithLabelValues("ok"))
	beforeTimeout := testutil.ToFloat64(polls.WithLabelValues("timed_out"))

	ObservePoll("ok", true, true, 120*time.Millisecond, time.Unix(1700000000, 0))
	assert.Equal(t, beforeOK+1, testutil.ToFloat64(polls.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(connected))
	assert.Equal(t, 1.0, testutil.ToFloat64(exitNodeActive))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(lastPoll))

	ObservePoll("timed_out", false, false, 6*time.Second, time.Now())
	assert.Equal(t, beforeTimeout+1, testutil.ToFloat64(polls.WithLabelValues("timed_out")))
	assert.Equal(t, 0.0, testutil.ToFloat64(connected))

	beforeFail := testutil.ToFloat64(actions.WithLabelValues("connect", "failure"))
	ObserveAction("connect", false)
	assert.Equal(t, beforeFail+1, testutil.ToFloat64(actions.WithLabelValues("connect", "failure")))

	beforeBusy := testutil.ToFloat64(busyRejections)
	IncBusy()
	assert.Equal(t, beforeBusy+1, testutil.ToFloat64(busyRejections))

	count, err := testutil.GatherAndCount(reg, "tsmon_status_polls_total", "tsmon_action_busy_rejections_total")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, count, 3)
}

// TestRegister_AlreadyRegisteredIsIgnored verifies a registry that already holds the collectors.
func TestRegister_AlreadyRegisteredIsIgnored(t *testing.T) {
	reg := prometheus.NewRegistry()
	for _, c := range collectors() {
		require.NoError(t, reg.Register(c))
	}

	regOK.Store(false)
	defer regOK.Store(true)
	assert.NoError(t, Register(reg))
}

func TestWriteTextfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(busyRejections))

	path := filepath.Join(t.TempDir(), "collector", "tsmon.prom")
	require.NoError(t, WriteTextfile(path, reg))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), "tsmon_action_busy_rejections_total"))
}

func TestWriteTextfile_EmptyPathIsNoop(t *testing.T) {
	assert.NoError(t, WriteTextfile("", prometheus.NewRegistry()))
}
