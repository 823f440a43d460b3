package engine

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/semboot/metric"
)

// engineMetrics holds Prometheus metrics for startup passes.
type engineMetrics struct {
	startups *prometheus.CounterVec // By status (success/failure)

	candidatesSelected prometheus.Gauge
	candidatesExcluded prometheus.Gauge

	factoryRuns *prometheus.CounterVec // By candidate and status

	startupDuration prometheus.Histogram
}

// newEngineMetrics creates and registers engine metrics with the provided registry.
func newEngineMetrics(registry *metric.Registry) (*engineMetrics, error) {
	if registry == nil {
		return nil, nil // Metrics disabled
	}

	m := &engineMetrics{
		startups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "semboot",
			Subsystem: "engine",
			Name:      "startups_total",
			Help:      "Total number of startup passes",
		}, []string{"status"}), // status: success, failure

		candidatesSelected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "semboot",
			Subsystem: "engine",
			Name:      "candidates_selected",
			Help:      "Number of candidates selected in the last startup pass",
		}),

		candidatesExcluded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "semboot",
			Subsystem: "engine",
			Name:      "candidates_excluded",
			Help:      "Number of candidates excluded in the last startup pass",
		}),

		factoryRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "semboot",
			Subsystem: "engine",
			Name:      "factory_runs_total",
			Help:      "Total number of factory build invocations",
		}, []string{"candidate", "status"}),

		startupDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "semboot",
			Subsystem: "engine",
			Name:      "startup_duration_seconds",
			Help:      "Startup pass duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0},
		}),
	}

	if err := registry.Register("engine", "startups", m.startups); err != nil {
		return nil, err
	}
	if err := registry.Register("engine", "candidates_selected", m.candidatesSelected); err != nil {
		return nil, err
	}
	if err := registry.Register("engine", "candidates_excluded", m.candidatesExcluded); err != nil {
		return nil, err
	}
	if err := registry.Register("engine", "factory_runs", m.factoryRuns); err != nil {
		return nil, err
	}
	if err := registry.Register("engine", "startup_duration", m.startupDuration); err != nil {
		return nil, err
	}

	return m, nil
}

// recordStartup records the outcome of one startup pass.
func (m *engineMetrics) recordStartup(success bool, duration float64) {
	if m == nil {
		return
	}

	status := "success"
	if !success {
		status = "failure"
	}

	m.startups.WithLabelValues(status).Inc()
	m.startupDuration.Observe(duration)
}

// recordSelection records the size of the last selection result.
func (m *engineMetrics) recordSelection(selected, excluded int) {
	if m == nil {
		return
	}

	m.candidatesSelected.Set(float64(selected))
	m.candidatesExcluded.Set(float64(excluded))
}

// recordFactory records a factory build invocation.
func (m *engineMetrics) recordFactory(candidate string, success bool) {
	if m == nil {
		return
	}

	status := "success"
	if !success {
		status = "failure"
	}

	m.factoryRuns.WithLabelValues(candidate, status).Inc()
}
