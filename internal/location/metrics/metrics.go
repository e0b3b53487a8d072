package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Tracked       prometheus.Counter
	Purged        prometheus.Counter
	SweepFailures prometheus.Counter
	SweepDuration prometheus.Histogram
}

// New registers location metrics on reg, or the default registry when nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Tracked: factory.NewCounter(prometheus.CounterOpts{
			Name: "waypoint_locations_tracked_total",
			Help: "Location check-ins accepted",
		}),
		Purged: factory.NewCounter(prometheus.CounterOpts{
			Name: "waypoint_locations_purged_total",
			Help: "Location records removed by the retention sweeper",
		}),
		SweepFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "waypoint_retention_sweep_failures_total",
			Help: "Retention sweeps that returned an error",
		}),
		SweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "waypoint_retention_sweep_duration_seconds",
			Help:    "Time spent in one retention sweep",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncrementTracked() {
	if m == nil {
		return
	}
	m.Tracked.Inc()
}

func (m *Metrics) ObserveSweep(purged int64, seconds float64, err error) {
	if m == nil {
		return
	}
	m.SweepDuration.Observe(seconds)
	if err != nil {
		m.SweepFailures.Inc()
		return
	}
	m.Purged.Add(float64(purged))
}
