package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metricsManager struct {
	// counters
	CounterRequests       *prometheus.CounterVec
	CounterCalculations   *prometheus.CounterVec
	CounterRejectedInputs *prometheus.CounterVec
	CounterSnapshotWrites *prometheus.CounterVec

	// histograms
	HistRequestDuration prometheus.Histogram
}

func newTestMetrics() *metricsManager {
	return newMetricsManager("oxyn", "test_energy_api", prometheus.NewRegistry())
}

func newMetricsManager(namespace, subsystem string, reg prometheus.Registerer) *metricsManager {
	factory := promauto.With(reg)

	return &metricsManager{
		CounterRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "requests_total",
			Help:      "The total number of handled requests",
		}, []string{"method", "status"}),
		CounterCalculations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "calculations_total",
			Help:      "The total number of energy results computed",
		}, []string{"activity_level", "strategy"}),
		CounterRejectedInputs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "rejected_inputs_total",
			Help:      "The total number of calculator inputs rejected by validation",
		}, []string{"reason"}),
		CounterSnapshotWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "snapshot_writes_total",
			Help:      "The total number of snapshot writes by mode and outcome",
		}, []string{"mode", "outcome"}),
		HistRequestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request_duration_seconds",
			Help:      "Total duration of requests in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
	}
}
