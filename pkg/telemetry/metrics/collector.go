package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"guardline-hq/bastion/pkg/config"
)

// Collector owns the Prometheus registry and all metric families. Recording
// is a no-op when metrics are disabled in configuration, so callers never
// need to guard their calls.
type Collector struct {
	cfg      config.MetricsConfig
	registry *prometheus.Registry

	scan *ScanMetrics
	http *HTTPMetrics
}

// NewCollector creates a collector with its own private registry. A nil
// registry argument allocates a fresh one; tests can pass their own.
func NewCollector(cfg config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "bastion"
	}

	return &Collector{
		cfg:      cfg,
		registry: registry,
		scan:     NewScanMetrics(cfg, registry),
		http:     NewHTTPMetrics(cfg, registry),
	}
}

// Scan returns the scan engine metric recorder. It satisfies the engine's
// MetricsRecorder interface.
func (c *Collector) Scan() *ScanMetrics {
	return c.scan
}

// HTTP returns the HTTP server metric recorder.
func (c *Collector) HTTP() *HTTPMetrics {
	return c.http
}

// Registry returns the collector's Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Enabled reports whether metric recording is active.
func (c *Collector) Enabled() bool {
	return c.cfg.Enabled
}

// ScanMetrics tracks the policy engine.
//
// Families:
//   - bastion_scans_total{blocked}
//   - bastion_scan_duration_seconds
//   - bastion_scan_rules
//   - bastion_rule_evaluations_total{plugin,status}
//   - bastion_rule_duration_seconds{plugin}
//   - bastion_detector_failures_total{plugin,reason}
type ScanMetrics struct {
	enabled bool

	scansTotal       *prometheus.CounterVec
	scanDuration     prometheus.Histogram
	scanRules        prometheus.Histogram
	ruleEvaluations  *prometheus.CounterVec
	ruleDuration     *prometheus.HistogramVec
	detectorFailures *prometheus.CounterVec
}

// NewScanMetrics creates and registers the scan metric families.
func NewScanMetrics(cfg config.MetricsConfig, registry *prometheus.Registry) *ScanMetrics {
	sm := &ScanMetrics{
		enabled: cfg.Enabled,

		scansTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "scans_total",
				Help:      "Total number of scans, labeled by verdict",
			},
			[]string{"blocked"},
		),

		scanDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "scan_duration_seconds",
				Help:      "Total scan duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
		),

		scanRules: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "scan_rules",
				Help:      "Number of rules evaluated per scan",
				Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
			},
		),

		ruleEvaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rule_evaluations_total",
				Help:      "Total rule evaluations by plugin and terminal status",
			},
			[]string{"plugin", "status"},
		),

		ruleDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rule_duration_seconds",
				Help:      "Single rule evaluation duration in seconds, including the detector call",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
			},
			[]string{"plugin"},
		),

		detectorFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "detector_failures_total",
				Help:      "Fail-closed conversions by plugin and reason",
			},
			[]string{"plugin", "reason"},
		),
	}

	registry.MustRegister(
		sm.scansTotal,
		sm.scanDuration,
		sm.scanRules,
		sm.ruleEvaluations,
		sm.ruleDuration,
		sm.detectorFailures,
	)

	return sm
}

// RecordRuleEvaluation records one rule reaching a terminal status.
func (sm *ScanMetrics) RecordRuleEvaluation(pluginKey, status string, duration time.Duration) {
	if !sm.enabled {
		return
	}
	sm.ruleEvaluations.WithLabelValues(pluginKey, status).Inc()
	sm.ruleDuration.WithLabelValues(pluginKey).Observe(duration.Seconds())
}

// RecordDetectorFailure records a fail-closed conversion.
func (sm *ScanMetrics) RecordDetectorFailure(pluginKey, reason string) {
	if !sm.enabled {
		return
	}
	sm.detectorFailures.WithLabelValues(pluginKey, reason).Inc()
}

// RecordScan records a completed scan.
func (sm *ScanMetrics) RecordScan(blocked bool, ruleCount int, duration time.Duration) {
	if !sm.enabled {
		return
	}
	label := "false"
	if blocked {
		label = "true"
	}
	sm.scansTotal.WithLabelValues(label).Inc()
	sm.scanDuration.Observe(duration.Seconds())
	sm.scanRules.Observe(float64(ruleCount))
}

// HTTPMetrics tracks the API server.
//
// Families:
//   - bastion_http_requests_total{path,method,code}
//   - bastion_http_request_duration_seconds{path,method}
type HTTPMetrics struct {
	enabled bool

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewHTTPMetrics creates and registers the HTTP metric families.
func NewHTTPMetrics(cfg config.MetricsConfig, registry *prometheus.Registry) *HTTPMetrics {
	hm := &HTTPMetrics{
		enabled: cfg.Enabled,

		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests by path, method, and status code",
			},
			[]string{"path", "method", "code"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
			[]string{"path", "method"},
		),
	}

	registry.MustRegister(hm.requestsTotal, hm.requestDuration)
	return hm
}

// RecordRequest records one served HTTP request.
func (hm *HTTPMetrics) RecordRequest(path, method, code string, duration time.Duration) {
	if !hm.enabled {
		return
	}
	hm.requestsTotal.WithLabelValues(path, method, code).Inc()
	hm.requestDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}
