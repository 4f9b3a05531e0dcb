package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all store-level metrics (not collection-specific)
type Metrics struct {
	// Document metrics
	DocumentsWritten *prometheus.CounterVec
	DocumentsRead    *prometheus.CounterVec
	DocumentsListed  *prometheus.CounterVec
	WriteDuration    *prometheus.HistogramVec
	ReadDuration     *prometheus.HistogramVec
	ListDuration     *prometheus.HistogramVec

	// Persistence metrics
	ViewSaves      *prometheus.CounterVec
	ManifestSaves  *prometheus.CounterVec
	StoreErrors    *prometheus.CounterVec
	StoreConnected prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all store metrics
func NewMetrics() *Metrics {
	return &Metrics{
		DocumentsWritten: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "blobcollection",
				Subsystem: "documents",
				Name:      "written_total",
				Help:      "Total number of documents written",
			},
			[]string{"collection", "status"},
		),

		DocumentsRead: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "blobcollection",
				Subsystem: "documents",
				Name:      "read_total",
				Help:      "Total number of documents read",
			},
			[]string{"collection", "source"},
		),

		DocumentsListed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "blobcollection",
				Subsystem: "documents",
				Name:      "listed_total",
				Help:      "Total number of documents returned by list operations",
			},
			[]string{"collection"},
		),

		WriteDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "blobcollection",
				Subsystem: "documents",
				Name:      "write_duration_seconds",
				Help:      "Document write duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"collection"},
		),

		ReadDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "blobcollection",
				Subsystem: "documents",
				Name:      "read_duration_seconds",
				Help:      "Document read duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"collection"},
		),

		ListDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "blobcollection",
				Subsystem: "documents",
				Name:      "list_duration_seconds",
				Help:      "List operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"collection"},
		),

		ViewSaves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "blobcollection",
				Subsystem: "views",
				Name:      "saves_total",
				Help:      "Total number of partition view blob saves",
			},
			[]string{"collection", "status"},
		),

		ManifestSaves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "blobcollection",
				Subsystem: "manifest",
				Name:      "saves_total",
				Help:      "Total number of manifest blob saves",
			},
			[]string{"collection", "status"},
		),

		StoreErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "blobcollection",
				Subsystem: "store",
				Name:      "errors_total",
				Help:      "Total number of blob store errors",
			},
			[]string{"collection", "operation"},
		),

		StoreConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "blobcollection",
				Subsystem: "store",
				Name:      "connected",
				Help:      "Blob store connection status (0=disconnected, 1=connected)",
			},
		),
	}
}

// RecordDocumentWritten increments the write counter
func (c *Metrics) RecordDocumentWritten(collection, status string) {
	c.DocumentsWritten.WithLabelValues(collection, status).Inc()
}

// RecordDocumentRead increments the read counter; source is "cache" or "store"
func (c *Metrics) RecordDocumentRead(collection, source string) {
	c.DocumentsRead.WithLabelValues(collection, source).Inc()
}

// RecordDocumentsListed adds to the listed-document counter
func (c *Metrics) RecordDocumentsListed(collection string, count int) {
	c.DocumentsListed.WithLabelValues(collection).Add(float64(count))
}

// RecordWriteDuration records document write time
func (c *Metrics) RecordWriteDuration(collection string, duration time.Duration) {
	c.WriteDuration.WithLabelValues(collection).Observe(duration.Seconds())
}

// RecordReadDuration records document read time
func (c *Metrics) RecordReadDuration(collection string, duration time.Duration) {
	c.ReadDuration.WithLabelValues(collection).Observe(duration.Seconds())
}

// RecordListDuration records list operation time
func (c *Metrics) RecordListDuration(collection string, duration time.Duration) {
	c.ListDuration.WithLabelValues(collection).Observe(duration.Seconds())
}

// RecordViewSave increments the view save counter
func (c *Metrics) RecordViewSave(collection, status string) {
	c.ViewSaves.WithLabelValues(collection, status).Inc()
}

// RecordManifestSave increments the manifest save counter
func (c *Metrics) RecordManifestSave(collection, status string) {
	c.ManifestSaves.WithLabelValues(collection, status).Inc()
}

// RecordStoreError increments the store error counter
func (c *Metrics) RecordStoreError(collection, operation string) {
	c.StoreErrors.WithLabelValues(collection, operation).Inc()
}

// RecordStoreStatus updates the store connection status
func (c *Metrics) RecordStoreStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	c.StoreConnected.Set(value)
}
