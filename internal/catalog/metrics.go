package catalog

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// catalogLoads tracks referential loads by outcome.
	catalogLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cee_catalog_loads_total",
		Help: "Total number of referential load attempts by result",
	}, []string{"result"}) // result: success, failure, rejected

	// catalogLoadDuration tracks how long referential loads take.
	catalogLoadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cee_catalog_load_duration_seconds",
		Help:    "Time taken to load the referential snapshot",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	})

	// catalogLookups tracks lookups against the snapshot.
	catalogLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cee_catalog_lookups_total",
		Help: "Total number of snapshot lookups by kind and result",
	}, []string{"kind", "result"}) // kind: product, delegate; result: hit, miss

	// catalogProducts tracks the number of operation codes in the snapshot.
	catalogProducts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cee_catalog_products",
		Help: "Number of operation codes in the current snapshot",
	})

	// catalogDelegates tracks the number of delegates in the snapshot.
	catalogDelegates = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cee_catalog_delegates",
		Help: "Number of delegates in the current snapshot",
	})

	// catalogSnapshotBytes tracks the estimated snapshot memory footprint.
	catalogSnapshotBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cee_catalog_snapshot_memory_bytes",
		Help: "Estimated memory usage of the referential snapshot in bytes",
	})

	// catalogBreakerState tracks the load circuit breaker state.
	catalogBreakerState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cee_catalog_breaker_state",
		Help: "Referential load circuit breaker state (0=closed, 1=open, 2=half-open)",
	})
)

// MetricsRecorder provides methods to record catalog cache metrics.
type MetricsRecorder struct{}

// NewMetricsRecorder creates a new metrics recorder.
func NewMetricsRecorder() *MetricsRecorder {
	return &MetricsRecorder{}
}

// RecordLoad records a load attempt and, for completed loads, its duration.
func (m *MetricsRecorder) RecordLoad(result string, duration time.Duration) {
	catalogLoads.WithLabelValues(result).Inc()
	if result != "rejected" {
		catalogLoadDuration.Observe(duration.Seconds())
	}
}

// RecordSnapshot records the shape of a freshly installed snapshot.
func (m *MetricsRecorder) RecordSnapshot(products, delegates int, bytes int64) {
	catalogProducts.Set(float64(products))
	catalogDelegates.Set(float64(delegates))
	catalogSnapshotBytes.Set(float64(bytes))
}

// RecordLookup records a snapshot lookup.
func (m *MetricsRecorder) RecordLookup(kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	catalogLookups.WithLabelValues(kind, result).Inc()
}

// RecordBreakerState records a circuit breaker state transition.
func (m *MetricsRecorder) RecordBreakerState(state CircuitBreakerState) {
	catalogBreakerState.Set(float64(state))
}
