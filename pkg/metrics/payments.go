package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics records confirmation outcomes and gateway latency.
type PaymentMetrics struct {
	outcomes *prometheus.CounterVec
	gateway  *prometheus.HistogramVec
}

// Confirmation outcome labels.
const (
	OutcomeCompleted     = "completed"
	OutcomeFailed        = "failed"
	OutcomeIndeterminate = "indeterminate"
	OutcomeRejectedInput = "rejected_input"
)

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_confirmations_total",
		Help: "Payment confirmation attempts by outcome.",
	}, []string{"outcome"})
	gateway := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payment_gateway_duration_seconds",
		Help:    "Duration of gateway calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	reg.MustRegister(outcomes, gateway)
	return &PaymentMetrics{
		outcomes: outcomes,
		gateway:  gateway,
	}
}

// IncOutcome increments the outcome counter.
func (p *PaymentMetrics) IncOutcome(outcome string) {
	if p == nil || p.outcomes == nil {
		return
	}
	p.outcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveGateway records the duration of the named gateway operation.
func (p *PaymentMetrics) ObserveGateway(operation string, duration time.Duration) {
	if p == nil || p.gateway == nil {
		return
	}
	p.gateway.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
