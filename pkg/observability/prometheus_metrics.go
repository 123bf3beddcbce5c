package observability

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics is a Metrics implementation backed by client_golang,
// registered against a caller-supplied registry so multiple instances
// (e.g. in tests) don't collide on the default global registry.
type PrometheusMetrics struct {
	registry   *prometheus.Registry
	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

// NewPrometheusMetrics creates a Metrics implementation registered against reg.
// If reg is nil, a fresh private registry is created.
func NewPrometheusMetrics(reg *prometheus.Registry) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	return &PrometheusMetrics{
		registry:   reg,
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

// Registry exposes the underlying registry so an HTTP handler can serve it.
func (m *PrometheusMetrics) Registry() *prometheus.Registry { return m.registry }

func sanitizeName(name string) string {
	return strings.ReplaceAll(strings.ReplaceAll(name, ".", "_"), "-", "_")
}

func tagNames(tags []Tag) ([]string, prometheus.Labels) {
	names := make([]string, 0, len(tags))
	labels := make(prometheus.Labels, len(tags))
	for _, t := range tags {
		names = append(names, t.Key)
		labels[t.Key] = t.Value
	}
	return names, labels
}

func (m *PrometheusMetrics) counterVec(name string, labelNames []string) *prometheus.CounterVec {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cv, ok := m.counters[name]; ok {
		return cv
	}
	cv := prometheus.NewCounterVec(prometheus.CounterOpts{Name: sanitizeName(name)}, labelNames)
	m.registry.MustRegister(cv)
	m.counters[name] = cv
	return cv
}

func (m *PrometheusMetrics) gaugeVec(name string, labelNames []string) *prometheus.GaugeVec {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gv, ok := m.gauges[name]; ok {
		return gv
	}
	gv := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: sanitizeName(name)}, labelNames)
	m.registry.MustRegister(gv)
	m.gauges[name] = gv
	return gv
}

func (m *PrometheusMetrics) histogramVec(name string, labelNames []string) *prometheus.HistogramVec {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hv, ok := m.histograms[name]; ok {
		return hv
	}
	hv := prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: sanitizeName(name)}, labelNames)
	m.registry.MustRegister(hv)
	m.histograms[name] = hv
	return hv
}

func (m *PrometheusMetrics) Counter(name string, value int64, tags ...Tag) {
	names, labels := tagNames(tags)
	m.counterVec(name, names).With(labels).Add(float64(value))
}

func (m *PrometheusMetrics) Gauge(name string, value float64, tags ...Tag) {
	names, labels := tagNames(tags)
	m.gaugeVec(name, names).With(labels).Set(value)
}

func (m *PrometheusMetrics) Histogram(name string, value float64, tags ...Tag) {
	names, labels := tagNames(tags)
	m.histogramVec(name, names).With(labels).Observe(value)
}

func (m *PrometheusMetrics) Timing(name string, duration time.Duration, tags ...Tag) {
	m.Histogram(name, duration.Seconds(), tags...)
}

// Scheduler-specific metric names, grouped here so callers use consistent labels.
const (
	MetricSolveTimeMs         = "scheduler.solve_time_ms"
	MetricFallbackTotal       = "scheduler.fallback_total"
	MetricInvariantViolations = "scheduler.invariant_violations"
	MetricIdempotencyHit      = "scheduler.idempotency_hit_total"
	MetricWSEmitSuccess       = "scheduler.ws_emit_success_total"
	MetricWSEmitDropped       = "scheduler.ws_emit_dropped_total"
	MetricTaskCardRetry       = "scheduler.task_card_retry_total"
)
