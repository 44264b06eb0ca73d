// Package metrics provides Prometheus metrics for the arenasync engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector used by the engine.
type Manager struct {
	namespace      string
	subsystem      string
	latencyBuckets []float64
	constLabels    map[string]string
	registry       prometheus.Registerer

	// Polling and fetch outcomes
	fetches        *prometheus.CounterVec
	fetchLatency   *prometheus.HistogramVec
	pollInterval   prometheus.Gauge
	fetchWorkers   prometheus.Gauge
	resultQueue    prometheus.Gauge
	resultsDropped *prometheus.CounterVec

	// Phase machine
	phaseChanges   *prometheus.CounterVec
	staleSnapshots prometheus.Counter
	trackedPhase   prometheus.Gauge

	// Overlay controller
	overlayTransitions *prometheus.CounterVec
	overlayActive      prometheus.Gauge

	// Playback
	reveals           prometheus.Counter
	playbackCompleted prometheus.Counter

	// Commit actions
	commits *prometheus.CounterVec

	// Status API
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	streamClients       prometheus.Gauge

	// Errors by component
	errorsByComponent *prometheus.CounterVec

	// Process
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:      "arenasync",
		subsystem:      "session",
		latencyBuckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		constLabels:    nil,
		registry:       prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.latencyBuckets,
		ConstLabels: m.constLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.fetches = auto.NewCounterVec(
		m.counterOpts("fetches_total", "Snapshot fetches by kind (current, by_id) and outcome (ok, not_found, error)"),
		[]string{"kind", "outcome"},
	)
	m.fetchLatency = auto.NewHistogramVec(
		m.histogramOpts("fetch_latency_milliseconds", "Snapshot fetch latency in milliseconds"),
		[]string{"kind"},
	)
	m.pollInterval = auto.NewGauge(m.gaugeOpts("poll_interval_milliseconds", "Current computed polling interval"))
	m.fetchWorkers = auto.NewGauge(m.gaugeOpts("fetch_workers", "Number of fetch workers"))
	m.resultQueue = auto.NewGauge(m.gaugeOpts("result_queue_size", "Fetch results waiting to be applied"))
	m.resultsDropped = auto.NewCounterVec(
		m.counterOpts("results_dropped_total", "Fetch results dropped before being applied"),
		[]string{"reason"},
	)

	m.phaseChanges = auto.NewCounterVec(
		m.counterOpts("phase_changes_total", "Observed phase changes"),
		[]string{"from", "to"},
	)
	m.staleSnapshots = auto.NewCounter(m.counterOpts("stale_snapshots_total", "Snapshots rejected because they would regress phase"))
	m.trackedPhase = auto.NewGauge(m.gaugeOpts("tracked_phase_rank", "Rank of the tracked event's phase, 0 when untracked"))

	m.overlayTransitions = auto.NewCounterVec(
		m.counterOpts("overlay_transitions_total", "Overlay transitions (entered, cleared, timed_out, forced)"),
		[]string{"transition"},
	)
	m.overlayActive = auto.NewGauge(m.gaugeOpts("overlay_active", "1 while the catch-up overlay is shown"))

	m.reveals = auto.NewCounter(m.counterOpts("reveals_total", "Round reveals emitted by the log player"))
	m.playbackCompleted = auto.NewCounter(m.counterOpts("playbacks_completed_total", "Log playbacks that reached the end"))

	m.commits = auto.NewCounterVec(
		m.counterOpts("commits_total", "Commit actions (bets) by outcome"),
		[]string{"outcome"},
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Status API requests by endpoint, method and status code"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "Status API request duration in milliseconds"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.streamClients = auto.NewGauge(m.gaugeOpts("stream_clients", "Connected websocket stream clients"))

	m.errorsByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Errors by component and type"),
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap bytes in use"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
}

// RecordFetch counts a fetch outcome and observes its latency.
func RecordFetch(kind, outcome string, latencyMs float64) {
	globalManager.fetches.WithLabelValues(kind, outcome).Inc()
	globalManager.fetchLatency.WithLabelValues(kind).Observe(latencyMs)
}

// UpdatePollInterval sets the current polling interval in milliseconds.
func UpdatePollInterval(intervalMs int64) {
	globalManager.pollInterval.Set(float64(intervalMs))
}

// UpdateFetchWorkers sets the fetch worker count.
func UpdateFetchWorkers(count int) {
	globalManager.fetchWorkers.Set(float64(count))
}

// UpdateResultQueueSize sets the number of pending fetch results.
func UpdateResultQueueSize(size int) {
	globalManager.resultQueue.Set(float64(size))
}

// RecordResultDropped counts a fetch result dropped for reason (closed, full, stale_generation).
func RecordResultDropped(reason string) {
	globalManager.resultsDropped.WithLabelValues(reason).Inc()
}

// RecordPhaseChange counts an observed phase change.
func RecordPhaseChange(from, to string) {
	globalManager.phaseChanges.WithLabelValues(from, to).Inc()
}

// RecordStaleSnapshot counts a snapshot rejected by the monotonic guard.
func RecordStaleSnapshot() {
	globalManager.staleSnapshots.Inc()
}

// UpdateTrackedPhase sets the rank of the tracked phase.
func UpdateTrackedPhase(rank int) {
	globalManager.trackedPhase.Set(float64(rank))
}

// RecordOverlayTransition counts an overlay transition.
func RecordOverlayTransition(transition string) {
	globalManager.overlayTransitions.WithLabelValues(transition).Inc()
}

// UpdateOverlayActive sets the overlay gauge.
func UpdateOverlayActive(active bool) {
	if active {
		globalManager.overlayActive.Set(1)
		return
	}
	globalManager.overlayActive.Set(0)
}

// RecordReveal counts a round reveal.
func RecordReveal() {
	globalManager.reveals.Inc()
}

// RecordPlaybackCompleted counts a finished playback.
func RecordPlaybackCompleted() {
	globalManager.playbackCompleted.Inc()
}

// RecordCommit counts a commit action outcome.
func RecordCommit(outcome string) {
	globalManager.commits.WithLabelValues(outcome).Inc()
}

// RecordHTTPRequest records a status API request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records status API request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateStreamClients sets the number of connected stream clients.
func UpdateStreamClients(count int) {
	globalManager.streamClients.Set(float64(count))
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
