package metric

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegistry(t *testing.T) {
	registry := NewMetricsRegistry()

	assert.NotNil(t, registry)
	assert.NotNil(t, registry.PrometheusRegistry())
}

func TestMetricsRegistry_RegisterCounter(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_counter",
		Help: "A test counter",
	})

	err := registry.RegisterCounter("test-collection", "test_counter", counter)
	require.NoError(t, err)

	counter.Inc()

	metricFamilies, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	found := false
	for _, mf := range metricFamilies {
		if mf.GetName() == "test_counter" {
			found = true
			break
		}
	}
	assert.True(t, found, "Counter should be registered in Prometheus registry")
}

func TestMetricsRegistry_RegisterGauge(t *testing.T) {
	registry := NewMetricsRegistry()

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "test_gauge",
		Help: "A test gauge",
	})

	err := registry.RegisterGauge("test-collection", "test_gauge", gauge)
	require.NoError(t, err)

	gauge.Set(42.0)

	metricFamilies, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	found := false
	for _, mf := range metricFamilies {
		if mf.GetName() == "test_gauge" {
			found = true
			break
		}
	}
	assert.True(t, found, "Gauge should be registered in Prometheus registry")
}

func TestMetricsRegistry_RegisterHistogram(t *testing.T) {
	registry := NewMetricsRegistry()

	histogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "test_histogram",
		Help:    "A test histogram",
		Buckets: prometheus.DefBuckets,
	})

	err := registry.RegisterHistogram("test-collection", "test_histogram", histogram)
	require.NoError(t, err)

	histogram.Observe(1.5)

	metricFamilies, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	found := false
	for _, mf := range metricFamilies {
		if mf.GetName() == "test_histogram" {
			found = true
			break
		}
	}
	assert.True(t, found, "Histogram should be registered in Prometheus registry")
}

func TestMetricsRegistry_PreventDuplicateRegistration(t *testing.T) {
	registry := NewMetricsRegistry()

	counter1 := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "duplicate_counter",
		Help: "First counter",
	})

	counter2 := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "duplicate_counter",
		Help: "First counter", // Same help to avoid Prometheus validation error
	})

	err := registry.RegisterCounter("collection1", "duplicate_counter", counter1)
	require.NoError(t, err)

	err = registry.RegisterCounter("collection2", "duplicate_counter", counter2)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "prometheus conflict")
}

func TestMetricsRegistry_UnregisterMetric(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "unregister_counter",
		Help: "A counter to unregister",
	})

	err := registry.RegisterCounter("test-collection", "unregister_counter", counter)
	require.NoError(t, err)

	success := registry.Unregister("test-collection", "unregister_counter")
	assert.True(t, success)

	metricFamilies, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	for _, mf := range metricFamilies {
		assert.NotEqual(t, "unregister_counter", mf.GetName())
	}
}

func TestMetricsRegistry_ThreadSafety(t *testing.T) {
	registry := NewMetricsRegistry()

	var wg sync.WaitGroup
	numGoroutines := 10

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			counter := prometheus.NewCounter(prometheus.CounterOpts{
				Name: fmt.Sprintf("concurrent_counter_%d", id),
				Help: "A concurrent counter",
			})

			err := registry.RegisterCounter("concurrent-collection",
				fmt.Sprintf("concurrent_counter_%d", id), counter)
			assert.NoError(t, err)
		}(i)
	}

	wg.Wait()

	metricFamilies, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	counterCount := 0
	for _, mf := range metricFamilies {
		if strings.HasPrefix(mf.GetName(), "concurrent_counter_") {
			counterCount++
		}
	}

	assert.Equal(t, numGoroutines, counterCount,
		"All concurrent counters should be registered")
}

func TestMetricsRegistrar_Interface(t *testing.T) {
	registry := NewMetricsRegistry()

	var registrar MetricsRegistrar = registry
	assert.NotNil(t, registrar)

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "interface_counter",
		Help: "Counter registered through interface",
	})

	err := registrar.RegisterCounter("interface-collection", "interface_counter", counter)
	require.NoError(t, err)
}

func TestMetricsRegistry_CoreMetricsInitialization(t *testing.T) {
	registry := NewMetricsRegistry()

	// Vector metrics don't appear in Gather() until they have at least one
	// value set, so record through the core metrics first.
	coreMetrics := registry.CoreMetrics()

	coreMetrics.RecordDocumentWritten("events", "success")
	coreMetrics.RecordDocumentRead("events", "store")
	coreMetrics.RecordDocumentsListed("events", 10)
	coreMetrics.RecordWriteDuration("events", 100*time.Millisecond)
	coreMetrics.RecordReadDuration("events", 10*time.Millisecond)
	coreMetrics.RecordListDuration("events", 50*time.Millisecond)
	coreMetrics.RecordViewSave("events", "success")
	coreMetrics.RecordManifestSave("events", "success")
	coreMetrics.RecordStoreError("events", "put")
	coreMetrics.RecordStoreStatus(true)

	metricFamilies, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	expectedCoreMetrics := []string{
		"blobcollection_documents_written_total",
		"blobcollection_documents_read_total",
		"blobcollection_documents_listed_total",
		"blobcollection_documents_write_duration_seconds",
		"blobcollection_documents_read_duration_seconds",
		"blobcollection_documents_list_duration_seconds",
		"blobcollection_views_saves_total",
		"blobcollection_manifest_saves_total",
		"blobcollection_store_errors_total",
		"blobcollection_store_connected",
	}

	foundMetrics := make(map[string]bool)
	for _, mf := range metricFamilies {
		foundMetrics[mf.GetName()] = true
	}

	for _, expectedMetric := range expectedCoreMetrics {
		assert.True(t, foundMetrics[expectedMetric],
			"core metric %s should be initialized", expectedMetric)
	}
}

func TestMetricsRegistry_CoreMetricValues(t *testing.T) {
	registry := NewMetricsRegistry()
	coreMetrics := registry.CoreMetrics()

	coreMetrics.RecordDocumentWritten("events", "success")
	coreMetrics.RecordDocumentWritten("events", "success")
	coreMetrics.RecordDocumentWritten("events", "error")

	metricFamilies, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	var family *dto.MetricFamily
	for _, mf := range metricFamilies {
		if mf.GetName() == "blobcollection_documents_written_total" {
			family = mf
			break
		}
	}
	require.NotNil(t, family)
	assert.Equal(t, dto.MetricType_COUNTER, family.GetType())

	values := make(map[string]float64)
	for _, m := range family.GetMetric() {
		for _, label := range m.GetLabel() {
			if label.GetName() == "status" {
				values[label.GetValue()] = m.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, 2.0, values["success"])
	assert.Equal(t, 1.0, values["error"])
}

func TestMetricsRegistry_GetCoreMetrics(t *testing.T) {
	registry := NewMetricsRegistry()

	coreMetrics := registry.CoreMetrics()
	require.NotNil(t, coreMetrics)

	assert.NotNil(t, coreMetrics.DocumentsWritten)
	assert.NotNil(t, coreMetrics.DocumentsRead)
	assert.NotNil(t, coreMetrics.DocumentsListed)
	assert.NotNil(t, coreMetrics.WriteDuration)
	assert.NotNil(t, coreMetrics.ReadDuration)
	assert.NotNil(t, coreMetrics.ListDuration)
	assert.NotNil(t, coreMetrics.ViewSaves)
	assert.NotNil(t, coreMetrics.ManifestSaves)
	assert.NotNil(t, coreMetrics.StoreErrors)
	assert.NotNil(t, coreMetrics.StoreConnected)
}
