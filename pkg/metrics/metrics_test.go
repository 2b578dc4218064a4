package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestPaymentMetricsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPaymentMetrics(reg)

	m.IncOutcome(OutcomeCompleted)
	m.IncOutcome(OutcomeCompleted)
	m.IncOutcome(OutcomeIndeterminate)
	m.IncOutcome("")

	require.Equal(t, float64(2), testutil.ToFloat64(m.outcomes.WithLabelValues("completed")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.outcomes.WithLabelValues("indeterminate")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.outcomes.WithLabelValues("unknown")))
}

func TestPaymentMetricsNilSafe(t *testing.T) {
	var m *PaymentMetrics
	require.NotPanics(t, func() {
		m.IncOutcome(OutcomeFailed)
		m.ObserveGateway("confirm", time.Second)
	})

	empty := NewPaymentMetrics(nil)
	require.NotPanics(t, func() {
		empty.IncOutcome(OutcomeFailed)
		empty.ObserveGateway("confirm", time.Second)
	})
}

func TestJobMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewJobMetrics(reg)

	m.ObserveRun("reconcile", JobResultSuccess, 250*time.Millisecond)
	m.ObserveRun("reconcile", JobResultFailure, time.Second)
	m.IncResolution("completed")
	m.IncResolution("completed")

	require.Equal(t, float64(1), testutil.ToFloat64(m.runs.WithLabelValues("reconcile", "success")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.runs.WithLabelValues("reconcile", "failure")))
	require.Equal(t, float64(2), testutil.ToFloat64(m.resolved.WithLabelValues("completed")))
}

func TestJobMetricsNilSafe(t *testing.T) {
	var m *JobMetrics
	require.NotPanics(t, func() {
		m.ObserveRun("reconcile", JobResultSuccess, time.Second)
		m.IncResolution("failed")
	})
}
