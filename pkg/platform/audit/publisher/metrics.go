package publisher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for audit delivery.
type Metrics struct {
	Emitted             *prometheus.CounterVec
	Dropped             *prometheus.CounterVec
	DeliveryFailures    prometheus.Counter
	CircuitBreakerState prometheus.Gauge
}

// NewMetrics registers the audit metrics with reg (the default registerer
// when nil).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Emitted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "waypoint_audit_events_emitted_total",
			Help: "Audit events accepted for delivery, by category",
		}, []string{"category"}),
		Dropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "waypoint_audit_events_dropped_total",
			Help: "Audit events dropped before delivery, by reason",
		}, []string{"reason"}),
		DeliveryFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "waypoint_audit_delivery_failures_total",
			Help: "Audit sink append failures",
		}),
		CircuitBreakerState: f.NewGauge(prometheus.GaugeOpts{
			Name: "waypoint_audit_circuit_breaker_state",
			Help: "Audit sink circuit breaker state (0=closed, 1=open)",
		}),
	}
}

func (m *Metrics) incEmitted(category string) {
	if m != nil {
		m.Emitted.WithLabelValues(category).Inc()
	}
}

func (m *Metrics) incDropped(reason string) {
	if m != nil {
		m.Dropped.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) incFailure() {
	if m != nil {
		m.DeliveryFailures.Inc()
	}
}

func (m *Metrics) setCircuitOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.CircuitBreakerState.Set(1)
	} else {
		m.CircuitBreakerState.Set(0)
	}
}
