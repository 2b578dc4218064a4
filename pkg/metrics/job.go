package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// JobMetrics tracks background job executions such as reconciliation sweeps.
type JobMetrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	resolved *prometheus.CounterVec
}

// Job run result labels.
const (
	JobResultSuccess = "success"
	JobResultFailure = "failure"
)

// NewJobMetrics registers job metrics on the provided registerer.
func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	if reg == nil {
		return &JobMetrics{}
	}
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_runs_total",
		Help: "Background job executions by job name and result.",
	}, []string{"job", "result"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "job_duration_seconds",
		Help:    "Duration of background job executions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	resolved := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reconcile_resolutions_total",
		Help: "Stale pending supports resolved by the reconciler, by resolution.",
	}, []string{"resolution"})
	reg.MustRegister(runs, duration, resolved)
	return &JobMetrics{
		runs:     runs,
		duration: duration,
		resolved: resolved,
	}
}

// ObserveRun records one job execution with its result and duration.
func (j *JobMetrics) ObserveRun(job, result string, duration time.Duration) {
	if j == nil || j.runs == nil {
		return
	}
	j.runs.WithLabelValues(normalizeLabel(job), normalizeLabel(result)).Inc()
	j.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
}

// IncResolution counts one reconciler resolution, e.g. completed or failed.
func (j *JobMetrics) IncResolution(resolution string) {
	if j == nil || j.resolved == nil {
		return
	}
	j.resolved.WithLabelValues(normalizeLabel(resolution)).Inc()
}
