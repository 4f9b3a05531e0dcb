package natsobj

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/apicomponents/blob-collection/metric"
)

// storeMetrics holds Prometheus metrics for ObjectStore operations.
type storeMetrics struct {
	operations *prometheus.CounterVec   // by operation
	latency    *prometheus.HistogramVec // by operation
	errors     *prometheus.CounterVec   // by operation
}

// newStoreMetrics creates and registers client metrics with the provided registry.
func newStoreMetrics(registry *metric.MetricsRegistry, bucket string) (*storeMetrics, error) {
	if registry == nil {
		return nil, nil // Metrics disabled
	}

	m := &storeMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "blobcollection",
			Subsystem:   "objectstore",
			Name:        "operations_total",
			Help:        "Total number of object store operations",
			ConstLabels: prometheus.Labels{"bucket": bucket},
		}, []string{"operation"}), // operation: get, put, delete, list

		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   "blobcollection",
			Subsystem:   "objectstore",
			Name:        "operation_duration_seconds",
			Help:        "Object store operation duration in seconds",
			ConstLabels: prometheus.Labels{"bucket": bucket},
			Buckets:     []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.0},
		}, []string{"operation"}),

		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "blobcollection",
			Subsystem:   "objectstore",
			Name:        "operation_errors_total",
			Help:        "Total number of object store operation errors",
			ConstLabels: prometheus.Labels{"bucket": bucket},
		}, []string{"operation"}),
	}

	prefix := "objectstore_" + bucket

	if err := registry.RegisterCounterVec(prefix, "operations", m.operations); err != nil {
		return nil, err
	}
	if err := registry.RegisterHistogramVec(prefix, "latency", m.latency); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec(prefix, "errors", m.errors); err != nil {
		return nil, err
	}

	return m, nil
}

// recordOp records an operation and its latency.
func (m *storeMetrics) recordOp(operation string, seconds float64) {
	if m != nil {
		m.operations.WithLabelValues(operation).Inc()
		m.latency.WithLabelValues(operation).Observe(seconds)
	}
}

// recordError records an operation error.
func (m *storeMetrics) recordError(operation string) {
	if m != nil {
		m.errors.WithLabelValues(operation).Inc()
	}
}
