// Package metrics provides Prometheus metrics for the scorecard service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace      string
	subsystem      string
	latencyBuckets []float64
	constLabels    prometheus.Labels
	registry       prometheus.Registerer

	// Evaluation business metrics
	scoresRecorded      prometheus.Counter
	scoresClamped       prometheus.Counter
	sessionsSubmitted   prometheus.Counter
	sessionsReopened    prometheus.Counter
	duplicateWrites     prometheus.Counter
	selectionsChanged   prometheus.Counter
	activeCandidates    prometheus.Gauge
	aggregationLatency  prometheus.Histogram
	snapshotGeneration  prometheus.Gauge
	recomputeErrors     prometheus.Counter
	recomputeLatency    prometheus.Histogram
	importedRows        *prometheus.CounterVec
	storeQueryLatency   *prometheus.HistogramVec

	// Recompute queue and workers
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge
	queueDropped     prometheus.Counter
	workerCount      prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:      "scorecard",
		subsystem:      "evaluation",
		latencyBuckets: defaultLatencyBuckets,
		registry:       prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: m.latencyBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.scoresRecorded = m.counter("scores_recorded_total", "Total number of item scores written")
	m.scoresClamped = m.counter("scores_clamped_total", "Item scores that were outside [0, max_score] and clamped")
	m.sessionsSubmitted = m.counter("sessions_submitted_total", "Evaluation sessions marked completed")
	m.sessionsReopened = m.counter("sessions_reopened_total", "Completed sessions reopened by an administrator")
	m.duplicateWrites = m.counter("duplicate_writes_total", "Writes skipped because their idempotency key was already seen")
	m.selectionsChanged = m.counter("selections_changed_total", "Final selection flags changed by an administrator")
	m.activeCandidates = m.gauge("active_candidates", "Active candidates in the latest results snapshot")
	m.aggregationLatency = m.histogram("aggregation_latency_milliseconds", "Time to compute candidate results", m.latencyBuckets)
	m.snapshotGeneration = m.gauge("snapshot_generation", "Store write generation of the published results snapshot")
	m.recomputeErrors = m.counter("recompute_errors_total", "Failed results recomputations")
	m.recomputeLatency = m.histogram("recompute_latency_milliseconds", "Time to load and publish a results snapshot", m.latencyBuckets)
	m.importedRows = m.counterVec("imported_rows_total", "Rows processed by spreadsheet imports", "entity", "outcome")
	m.storeQueryLatency = m.histogramVec("store_query_latency_milliseconds", "Persistence call latency", "operation")

	m.queueSize = m.gauge("queue_size", "Pending recompute requests")
	m.queueCapacity = m.gauge("queue_capacity", "Capacity of the recompute queue")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Recompute queue fill ratio (0-1)")
	m.queueDropped = m.counter("queue_dropped_total", "Recompute requests dropped because the queue was full or closed")
	m.workerCount = m.gauge("worker_count", "Recompute workers")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total", "HTTP errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordScoreRecorded increments the written scores counter.
func RecordScoreRecorded() { globalManager.scoresRecorded.Inc() }

// RecordScoreClamped increments the clamped scores counter.
func RecordScoreClamped() { globalManager.scoresClamped.Inc() }

// RecordSessionSubmitted increments the submitted sessions counter.
func RecordSessionSubmitted() { globalManager.sessionsSubmitted.Inc() }

// RecordSessionReopened increments the reopened sessions counter.
func RecordSessionReopened() { globalManager.sessionsReopened.Inc() }

// RecordDuplicateWrite increments the duplicate writes counter.
func RecordDuplicateWrite() { globalManager.duplicateWrites.Inc() }

// RecordSelectionChanged increments the selection changes counter.
func RecordSelectionChanged() { globalManager.selectionsChanged.Inc() }

// UpdateActiveCandidates sets the number of active candidates.
func UpdateActiveCandidates(count int) { globalManager.activeCandidates.Set(float64(count)) }

// RecordAggregationLatency records how long a results computation took.
func RecordAggregationLatency(latencyMs float64) { globalManager.aggregationLatency.Observe(latencyMs) }

// UpdateSnapshotGeneration sets the published snapshot generation.
func UpdateSnapshotGeneration(gen uint64) { globalManager.snapshotGeneration.Set(float64(gen)) }

// RecordRecomputeError increments the failed recompute counter.
func RecordRecomputeError() { globalManager.recomputeErrors.Inc() }

// RecordRecomputeLatency records a full recompute duration.
func RecordRecomputeLatency(latencyMs float64) { globalManager.recomputeLatency.Observe(latencyMs) }

// RecordImportedRows adds n rows for entity with the given outcome (imported, skipped).
func RecordImportedRows(entity, outcome string, n int) {
	globalManager.importedRows.WithLabelValues(entity, outcome).Add(float64(n))
}

// RecordStoreQueryLatency records a persistence call duration.
func RecordStoreQueryLatency(operation string, latencyMs float64) {
	globalManager.storeQueryLatency.WithLabelValues(operation).Observe(latencyMs)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) { globalManager.queueUtilization.Set(utilization) }

// RecordQueueDropped increments the dropped requests counter.
func RecordQueueDropped() { globalManager.queueDropped.Inc() }

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error raised inside a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an HTTP error response.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// RecordSystemGCPauseTime records an average GC pause.
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.systemGCPauseTime.Observe(pauseMs) }

// GetRegistry returns the custom registry all package-level metrics use.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
