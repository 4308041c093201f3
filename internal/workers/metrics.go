package workers

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// tasksProcessed counts handled tasks by type and outcome.
	tasksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cee_worker_tasks_total",
		Help: "Background tasks processed by type and outcome",
	}, []string{"task_type", "outcome"}) // outcome: completed, failed

	// taskDuration tracks handler execution time per task type.
	taskDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cee_worker_task_duration_seconds",
		Help:    "Background task handler duration",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
	}, []string{"task_type"})
)

// MetricsRecorder provides methods to record worker metrics.
type MetricsRecorder struct{}

// RecordTask records one handled task and its duration.
func (m *MetricsRecorder) RecordTask(taskType, outcome string, duration time.Duration) {
	tasksProcessed.WithLabelValues(taskType, outcome).Inc()
	taskDuration.WithLabelValues(taskType).Observe(duration.Seconds())
}
