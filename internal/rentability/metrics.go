package rentability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// computationDuration tracks the time taken per computation type.
	computationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rentability_computation_duration_seconds",
		Help:    "Time taken per rentability computation by type",
		Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1},
	}, []string{"type"}) // type: unified, category, subcontract

	// computations counts rentability computations by type.
	computations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rentability_computations_total",
		Help: "Total number of rentability computations by type",
	}, []string{"type"})
)

// MetricsRecorder provides methods to record rentability metrics.
type MetricsRecorder struct{}

// NewMetricsRecorder creates a new metrics recorder.
func NewMetricsRecorder() *MetricsRecorder {
	return &MetricsRecorder{}
}

// RecordComputation records one computation and its duration.
func (m *MetricsRecorder) RecordComputation(computationType string, duration time.Duration) {
	computations.WithLabelValues(computationType).Inc()
	computationDuration.WithLabelValues(computationType).Observe(duration.Seconds())
}
