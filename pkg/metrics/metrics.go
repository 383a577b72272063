// Package metrics provides Prometheus metrics for the hubcal tool.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns all Prometheus collectors for the tool.
type Manager struct {
	namespace string
	registry  *prometheus.Registry

	// Scan metrics
	scansTotal     prometheus.Counter
	scanFailures   *prometheus.CounterVec
	scanDuration   prometheus.Histogram
	drivesObserved prometheus.Gauge

	// Calibration metrics
	calibrationSteps prometheus.Counter
	mappingCount     prometheus.Gauge

	// Monitor metrics
	monitorPolls        prometheus.Counter
	monitorAppeared     prometheus.Counter
	monitorDisappeared  prometheus.Counter
	monitorScanSwallows prometheus.Counter
}

// Global manager instance; the process owns exactly one metric surface.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager()
}

// NewManager creates a metrics manager with its own registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "hubcal",
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}

	factory := promauto.With(m.registry)

	m.scansTotal = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "scans_total",
		Help:      "Total device scans issued.",
	})
	m.scanFailures = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "scan_failures_total",
		Help:      "Device scans that failed, by cause.",
	}, []string{"cause"})
	m.scanDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "scan_duration_seconds",
		Help:      "Wall time of device scans.",
		Buckets:   prometheus.DefBuckets,
	})
	m.drivesObserved = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "drives_observed",
		Help:      "Drives seen in the most recent scan.",
	})

	m.calibrationSteps = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "calibration_steps_total",
		Help:      "Calibration steps that produced a mapping.",
	})
	m.mappingCount = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "mapping_count",
		Help:      "Identity keys currently mapped to physical ports.",
	})

	m.monitorPolls = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "monitor_polls_total",
		Help:      "Monitor poll iterations completed.",
	})
	m.monitorAppeared = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "monitor_appeared_total",
		Help:      "Drives that appeared between monitor polls.",
	})
	m.monitorDisappeared = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "monitor_disappeared_total",
		Help:      "Drives that disappeared between monitor polls.",
	})
	m.monitorScanSwallows = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "monitor_scan_errors_swallowed_total",
		Help:      "Transient scan failures ignored by the monitor loop.",
	})

	return m
}

// Handler returns an HTTP handler exposing this manager's registry.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Package-level helpers against the global manager.

func RecordScan(d time.Duration) {
	globalManager.scansTotal.Inc()
	globalManager.scanDuration.Observe(d.Seconds())
}

func RecordScanFailure(cause string) {
	globalManager.scanFailures.WithLabelValues(cause).Inc()
}

func UpdateDrivesObserved(n int) {
	globalManager.drivesObserved.Set(float64(n))
}

func RecordCalibrationStep() {
	globalManager.calibrationSteps.Inc()
}

func UpdateMappingCount(n int) {
	globalManager.mappingCount.Set(float64(n))
}

func RecordMonitorPoll() {
	globalManager.monitorPolls.Inc()
}

func RecordMonitorAppeared() {
	globalManager.monitorAppeared.Inc()
}

func RecordMonitorDisappeared() {
	globalManager.monitorDisappeared.Inc()
}

func RecordMonitorScanSwallowed() {
	globalManager.monitorScanSwallows.Inc()
}

// Handler exposes the global manager's registry.
func Handler() http.Handler {
	return globalManager.Handler()
}
