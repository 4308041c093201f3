package valorisation

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// lineDuration tracks the time taken to valorise a single line.
	lineDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "valorisation_line_duration_seconds",
		Help:    "Time taken to valorise a single product line",
		Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1},
	})

	// linesComputed tracks successfully valorised lines.
	linesComputed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "valorisation_lines_computed_total",
		Help: "Total number of successfully valorised lines",
	})

	// linesSkipped tracks lines skipped for missing data, by reason.
	linesSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "valorisation_lines_skipped_total",
		Help: "Total number of lines skipped for missing data by reason",
	}, []string{"reason"}) // reason: missing_params, missing_kwh

	// missingParams tracks multiplier resolution failures per operation code.
	missingParams = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "valorisation_missing_params_total",
		Help: "Lines whose multiplier field was absent, by operation code",
	}, []string{"code"})

	// missingKwh tracks kWh cumac lookup failures per operation code.
	missingKwh = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "valorisation_missing_kwh_total",
		Help: "Lines with no kWh cumac entry for the building type, by operation code",
	}, []string{"code"})
)

// MetricsRecorder provides methods to record valorisation metrics.
type MetricsRecorder struct{}

// NewMetricsRecorder creates a new metrics recorder.
func NewMetricsRecorder() *MetricsRecorder {
	return &MetricsRecorder{}
}

// RecordLineDuration records the duration of a line valorisation.
func (m *MetricsRecorder) RecordLineDuration(duration time.Duration) {
	lineDuration.Observe(duration.Seconds())
}

// RecordLineComputed records a successfully valorised line.
func (m *MetricsRecorder) RecordLineComputed() {
	linesComputed.Inc()
}

// RecordLineSkipped records a line skipped for missing data.
func (m *MetricsRecorder) RecordLineSkipped(reason string) {
	linesSkipped.WithLabelValues(reason).Inc()
}

// RecordMissingParams records a multiplier resolution failure.
func (m *MetricsRecorder) RecordMissingParams(code string) {
	missingParams.WithLabelValues(code).Inc()
}

// RecordMissingKwh records a kWh cumac lookup failure.
func (m *MetricsRecorder) RecordMissingKwh(code string) {
	missingKwh.WithLabelValues(code).Inc()
}
