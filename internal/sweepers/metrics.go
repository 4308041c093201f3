package sweepers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/primelio/cee-service/internal/taskqueue"
)

var (
	// queueDepth tracks task_queue rows by status, refreshed each sweep.
	queueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cee_task_queue_depth",
		Help: "Task queue rows by status",
	}, []string{"status"})
)

// knownStatuses keeps gauge series from going stale: a status absent from
// the count query still gets written, as zero.
var knownStatuses = []taskqueue.TaskStatus{
	taskqueue.StatusPending,
	taskqueue.StatusClaimed,
	taskqueue.StatusProcessing,
	taskqueue.StatusCompleted,
	taskqueue.StatusFailed,
	taskqueue.StatusCancelled,
}

// MetricsRecorder provides methods to record sweeper metrics.
type MetricsRecorder struct{}

// RecordQueueDepth publishes the per-status row counts.
func (m *MetricsRecorder) RecordQueueDepth(counts map[string]int) {
	for _, status := range knownStatuses {
		queueDepth.WithLabelValues(string(status)).Set(float64(counts[string(status)]))
	}
}
