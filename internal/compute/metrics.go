package compute

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// computeRequests counts full-pipeline computations by outcome.
	computeRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cee_compute_requests_total",
		Help: "Full project computations by outcome",
	}, []string{"outcome"}) // outcome: computed, rejected

	// computeDuration tracks the end-to-end duration of one computation.
	computeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cee_compute_duration_seconds",
		Help:    "End to end duration of a full project computation",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	})
)

// MetricsRecorder provides methods to record compute metrics.
type MetricsRecorder struct{}

// NewMetricsRecorder creates a new metrics recorder.
func NewMetricsRecorder() *MetricsRecorder {
	return &MetricsRecorder{}
}

// RecordRequest records one computation and its duration.
func (m *MetricsRecorder) RecordRequest(outcome string, duration time.Duration) {
	computeRequests.WithLabelValues(outcome).Inc()
	computeDuration.Observe(duration.Seconds())
}
