package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the lineup service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	solveBuckets     []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Optimizer
	optimizations        *prometheus.CounterVec
	optimizeDuration     prometheus.Histogram
	objectiveValue       prometheus.Histogram
	improvementPasses    prometheus.Histogram
	swapsAccepted        prometheus.Counter
	relaxationRetries    prometheus.Counter
	interruptedSchedules prometheus.Counter
	rosterSize           prometheus.Histogram

	// Result cache
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec
	cacheErrors *prometheus.CounterVec

	// Lineup store
	storedLineups prometheus.Gauge

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueueRate   prometheus.Counter
	queueDequeueRate   prometheus.Counter
	queueEnqueueErrors prometheus.Counter
	queueWaitLatency   prometheus.Histogram

	// Workers
	workerCount             prometheus.Gauge
	workerBusyCount         prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRateLimited     *prometheus.CounterVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "lineup",
		subsystem:        "scheduler",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		solveBuckets:     prometheus.ExponentialBuckets(0.5, 2, 14),
		registry:         prometheus.DefaultRegisterer,
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

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
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

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for all collectors
	m.optimizations = m.counterVec("optimizations_total", "Optimizations by outcome", "outcome")
	m.optimizeDuration = m.histogram("optimize_duration_milliseconds", "Wall time of a single optimization", m.solveBuckets)
	m.objectiveValue = m.histogram("objective_value", "Objective value of returned schedules",
		[]float64{0, 25, 50, 100, 150, 200, 300, 400, 600})
	m.improvementPasses = m.histogram("improvement_passes", "Local search passes per optimization",
		[]float64{0, 1, 2, 3, 5, 8, 13, 21, 34, 55})
	m.swapsAccepted = m.counter("swaps_accepted_total", "Improving swaps accepted by local search")
	m.relaxationRetries = m.counter("relaxation_retries_total", "Innings retried with relaxed fairness rules")
	m.interruptedSchedules = m.counter("interrupted_total", "Optimizations cut short by cancellation with a usable schedule")
	m.rosterSize = m.histogram("roster_size", "Players per optimization request", []float64{5, 8, 10, 12, 14, 16, 20, 25, 30})

	m.cacheHits = m.counterVec("cache_hits_total", "Result cache hits", "backend")
	m.cacheMisses = m.counterVec("cache_misses_total", "Result cache misses", "backend")
	m.cacheErrors = m.counterVec("cache_errors_total", "Result cache backend errors", "backend")

	m.storedLineups = m.gauge("stored_lineups", "Teams with a stored latest lineup")

	m.queueSize = m.gauge("queue_size", "Jobs waiting in the optimization queue")
	m.queueCapacity = m.gauge("queue_capacity", "Capacity of the optimization queue")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue fill ratio (0-1)")
	m.queueEnqueueRate = m.counter("queue_enqueue_total", "Jobs enqueued")
	m.queueDequeueRate = m.counter("queue_dequeue_total", "Jobs dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Jobs rejected because the queue was full")
	m.queueWaitLatency = m.histogram("queue_wait_milliseconds", "Time a job waited before a worker picked it up", m.histogramBuckets)

	m.workerCount = m.gauge("worker_count", "Configured optimization workers")
	m.workerBusyCount = m.gauge("worker_busy", "Workers currently optimizing")
	m.workerProcessingLatency = m.histogram("worker_processing_milliseconds", "Per-job worker processing time", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Jobs that finished with an error")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		ConstLabels: m.constLabels,
		Buckets:     m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
	m.httpRateLimited = m.counterVec("http_rate_limited_total", "Requests rejected by the rate limiter", "endpoint")

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Errors by component", "component", "error_type")
	m.errorRateByType = m.counterVec("errors_by_type_total", "Errors by type and severity", "error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Errors by HTTP endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap memory in use")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Live goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds", "Most recent GC pause",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100})
}

// Optimizer

// RecordOptimization counts one optimization with the given outcome
// ("ok", "cached", "empty_roster", "infeasible", "cancelled", "error").
func RecordOptimization(outcome string) {
	globalManager.optimizations.WithLabelValues(outcome).Inc()
}

// RecordOptimizeDuration observes the wall time of one optimization.
func RecordOptimizeDuration(ms float64) {
	globalManager.optimizeDuration.Observe(ms)
}

// RecordObjectiveValue observes the score of a returned schedule.
func RecordObjectiveValue(v float64) {
	globalManager.objectiveValue.Observe(v)
}

// RecordImprovementPasses observes local search passes.
func RecordImprovementPasses(n int) {
	globalManager.improvementPasses.Observe(float64(n))
}

// RecordSwapsAccepted adds accepted swaps.
func RecordSwapsAccepted(n int) {
	globalManager.swapsAccepted.Add(float64(n))
}

// RecordRelaxationRetry counts a relaxed inning retry.
func RecordRelaxationRetry() {
	globalManager.relaxationRetries.Inc()
}

// RecordInterrupted counts a schedule returned early because of cancellation.
func RecordInterrupted() {
	globalManager.interruptedSchedules.Inc()
}

// RecordRosterSize observes the roster size of a request.
func RecordRosterSize(n int) {
	globalManager.rosterSize.Observe(float64(n))
}

// Cache

func RecordCacheHit(backend string)   { globalManager.cacheHits.WithLabelValues(backend).Inc() }
func RecordCacheMiss(backend string)  { globalManager.cacheMisses.WithLabelValues(backend).Inc() }
func RecordCacheError(backend string) { globalManager.cacheErrors.WithLabelValues(backend).Inc() }

// UpdateStoredLineups sets the number of teams with a stored lineup.
func UpdateStoredLineups(n int) {
	globalManager.storedLineups.Set(float64(n))
}

// Queue

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue fill ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

func RecordQueueEnqueue()      { globalManager.queueEnqueueRate.Inc() }
func RecordQueueDequeue()      { globalManager.queueDequeueRate.Inc() }
func RecordQueueEnqueueError() { globalManager.queueEnqueueErrors.Inc() }

// RecordQueueWait observes how long a job sat in the queue.
func RecordQueueWait(ms float64) {
	globalManager.queueWaitLatency.Observe(ms)
}

// Workers

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerBusy adjusts the busy worker gauge by delta.
func UpdateWorkerBusy(delta int) {
	globalManager.workerBusyCount.Add(float64(delta))
}

// RecordWorkerProcessingLatency records per-job processing time.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError counts a failed job.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// HTTP

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordRateLimited counts a request rejected by the limiter.
func RecordRateLimited(endpoint string) {
	globalManager.httpRateLimited.WithLabelValues(endpoint).Inc()
}

// Errors

// RecordErrorByComponent records an error for a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error by type and severity.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error for an endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System

func UpdateSystemMemoryUsage(bytes uint64)    { globalManager.systemMemoryUsage.Set(float64(bytes)) }
func UpdateSystemGoroutineCount(count int)    { globalManager.systemGoroutineCount.Set(float64(count)) }
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.systemGCPauseTime.Observe(pauseMs) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
