// Package metrics provides Prometheus instrumentation for pathbench runs.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Verdict label values.
const (
	verdictPass = "pass"
	verdictFail = "fail"
)

// defaultLatencyBuckets covers probe latencies from 10ms to ~80s.
var defaultLatencyBuckets = prometheus.ExponentialBuckets(10, 2, 14) //nolint:gochecknoglobals // immutable bucket layout

// Manager owns every collector of the process.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Scheduler
	probesTotal        *prometheus.CounterVec
	probeLatency       *prometheus.HistogramVec
	workersActive      *prometheus.GaugeVec
	plateauConcurrency prometheus.Gauge
	storeEvents        prometheus.Gauge

	// Ingestion
	ingestRecords    *prometheus.CounterVec
	ingestMalformed  *prometheus.CounterVec
	ingestFileErrors prometheus.Counter

	// Decisions
	decisionsTotal *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to keep the default Go collectors out of the exposition.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "pathbench",
		subsystem:        "",
		histogramBuckets: defaultLatencyBuckets,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // collector declarations
	auto := promauto.With(m.registry)

	m.probesTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "probes_total",
		Help:        "Probe attempts by vendor and outcome (success or failure reason)",
		ConstLabels: m.constLabels,
	}, []string{"vendor", "outcome"})

	m.probeLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "probe_latency_milliseconds",
		Help:        "Total probe latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"vendor"})

	m.workersActive = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "workers_active",
		Help:        "Workers currently probing a vendor",
		ConstLabels: m.constLabels,
	}, []string{"vendor"})

	m.plateauConcurrency = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "plateau_concurrency",
		Help:        "Worker count of the plateau being run",
		ConstLabels: m.constLabels,
	})

	m.storeEvents = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "store_events",
		Help:        "Events held by the result store",
		ConstLabels: m.constLabels,
	})

	m.ingestRecords = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "ingest_records_total",
		Help:        "Records normalized by input format",
		ConstLabels: m.constLabels,
	}, []string{"format"})

	m.ingestMalformed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "ingest_malformed_total",
		Help:        "Records skipped as malformed by input format",
		ConstLabels: m.constLabels,
	}, []string{"format"})

	m.ingestFileErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "ingest_file_errors_total",
		Help:        "Input files whose ingestion was aborted",
		ConstLabels: m.constLabels,
	})

	m.decisionsTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "decisions_total",
		Help:        "Vendor verdicts rendered by the decision engine",
		ConstLabels: m.constLabels,
	}, []string{"vendor", "verdict"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_requests_total",
		Help:        "HTTP requests by endpoint, method and status code",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     prometheus.DefBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})
}

// RecordProbe counts one probe attempt and observes its latency when known.
func (m *Manager) RecordProbe(vendor, outcome string, latencyMs float64, latencyKnown bool) {
	m.probesTotal.WithLabelValues(vendor, outcome).Inc()
	if latencyKnown {
		m.probeLatency.WithLabelValues(vendor).Observe(latencyMs)
	}
}

// WorkerStarted increments the active worker gauge for a vendor.
func (m *Manager) WorkerStarted(vendor string) { m.workersActive.WithLabelValues(vendor).Inc() }

// WorkerStopped decrements the active worker gauge for a vendor.
func (m *Manager) WorkerStopped(vendor string) { m.workersActive.WithLabelValues(vendor).Dec() }

// SetPlateau records the concurrency of the plateau being run.
func (m *Manager) SetPlateau(workers int) { m.plateauConcurrency.Set(float64(workers)) }

// UpdateStoreEvents records the result store size.
func (m *Manager) UpdateStoreEvents(n int) { m.storeEvents.Set(float64(n)) }

// RecordIngested counts normalized records of a format.
func (m *Manager) RecordIngested(format string, n int) {
	m.ingestRecords.WithLabelValues(format).Add(float64(n))
}

// RecordMalformed counts skipped records of a format.
func (m *Manager) RecordMalformed(format string, n int) {
	m.ingestMalformed.WithLabelValues(format).Add(float64(n))
}

// RecordFileError counts an aborted input file.
func (m *Manager) RecordFileError() { m.ingestFileErrors.Inc() }

// RecordDecision counts a vendor verdict.
func (m *Manager) RecordDecision(vendor string, pass bool) {
	verdict := verdictFail
	if pass {
		verdict = verdictPass
	}
	m.decisionsTotal.WithLabelValues(vendor, verdict).Inc()
}

// RecordHTTPRequest counts an HTTP request and observes its duration.
func (m *Manager) RecordHTTPRequest(endpoint, method string, statusCode int, durationMs float64) {
	code := strconv.Itoa(statusCode)
	m.httpRequests.WithLabelValues(endpoint, method, code).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, code).Observe(durationMs)
}

// Package-level helpers delegate to the global manager.

// RecordProbe counts one probe attempt on the global manager.
func RecordProbe(vendor, outcome string, latencyMs float64, latencyKnown bool) {
	globalManager.RecordProbe(vendor, outcome, latencyMs, latencyKnown)
}

// WorkerStarted increments the global active worker gauge.
func WorkerStarted(vendor string) { globalManager.WorkerStarted(vendor) }

// WorkerStopped decrements the global active worker gauge.
func WorkerStopped(vendor string) { globalManager.WorkerStopped(vendor) }

// SetPlateau records the current plateau concurrency.
func SetPlateau(workers int) { globalManager.SetPlateau(workers) }

// UpdateStoreEvents records the result store size.
func UpdateStoreEvents(n int) { globalManager.UpdateStoreEvents(n) }

// RecordIngested counts normalized records.
func RecordIngested(format string, n int) { globalManager.RecordIngested(format, n) }

// RecordMalformed counts skipped records.
func RecordMalformed(format string, n int) { globalManager.RecordMalformed(format, n) }

// RecordFileError counts an aborted input file.
func RecordFileError() { globalManager.RecordFileError() }

// RecordDecision counts a vendor verdict.
func RecordDecision(vendor string, pass bool) { globalManager.RecordDecision(vendor, pass) }

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method string, statusCode int, durationMs float64) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode, durationMs)
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
