package importer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// importRuns tracks import runs by terminal status.
	importRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cee_import_runs_total",
		Help: "Total number of referential import runs by terminal status",
	}, []string{"status"}) // status: completed, failed

	// importDuration tracks end-to-end run duration.
	importDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cee_import_duration_seconds",
		Help:    "End to end duration of referential import runs",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})

	// importRows tracks processed referential rows by outcome.
	importRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cee_import_rows_total",
		Help: "Total number of referential rows processed by outcome",
	}, []string{"result"}) // result: valid, failed

	// importFiles tracks parsed referential files by type.
	importFiles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cee_import_files_total",
		Help: "Total number of referential files parsed by file type",
	}, []string{"type"})
)

// MetricsRecorder provides methods to record import metrics.
type MetricsRecorder struct{}

// RecordRun records a finished run and its duration.
func (m *MetricsRecorder) RecordRun(status string, duration time.Duration) {
	importRuns.WithLabelValues(status).Inc()
	importDuration.Observe(duration.Seconds())
}

// RecordRows records the row outcome split of a run.
func (m *MetricsRecorder) RecordRows(valid, failed int) {
	if valid > 0 {
		importRows.WithLabelValues("valid").Add(float64(valid))
	}
	if failed > 0 {
		importRows.WithLabelValues("failed").Add(float64(failed))
	}
}

// RecordFile records one parsed file.
func (m *MetricsRecorder) RecordFile(fileType string) {
	importFiles.WithLabelValues(fileType).Inc()
}
