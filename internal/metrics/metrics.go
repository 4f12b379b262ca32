// Package metrics exposes judge pipeline observability data as Prometheus
// collectors behind a package-level registry and accessor functions.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics wraps the Prometheus collectors tracking one judge daemon's
// pipeline activity.
type Metrics struct {
	registry *prometheus.Registry

	jobsTotal          *prometheus.CounterVec
	compileDuration    prometheus.Histogram
	testDuration       prometheus.Histogram
	testsTotal         *prometheus.CounterVec
	valuerTimeoutsTotal prometheus.Counter
	cacheHitsTotal     prometheus.Counter
	cacheMissesTotal   prometheus.Counter
}

var defaultBuckets = []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60}

var global *Metrics

// Init builds the judge metrics registry under namespace and installs it
// as the package-global instance returned by Global.
func Init(namespace string) *Metrics {
	if namespace == "" {
		namespace = "judge"
	}
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		jobsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_total",
				Help:      "Total number of judging jobs, by terminal outcome.",
			},
			[]string{"outcome"},
		),
		compileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "compile_duration_seconds",
			Help:      "Time spent running the compiler driver for one job.",
			Buckets:   defaultBuckets,
		}),
		testDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "test_duration_seconds",
			Help:      "Time spent running one test through the test executor.",
			Buckets:   defaultBuckets,
		}),
		testsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tests_total",
				Help:      "Total number of tests executed, by status kind.",
			},
			[]string{"status"},
		),
		valuerTimeoutsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "valuer_timeouts_total",
			Help:      "Total number of valuer polls that hit the 15s read timeout.",
		}),
		cacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of problem-cache lookups served from cache.",
		}),
		cacheMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of problem-cache lookups that consulted a registry.",
		}),
	}

	registry.MustRegister(
		m.jobsTotal,
		m.compileDuration,
		m.testDuration,
		m.testsTotal,
		m.valuerTimeoutsTotal,
		m.cacheHitsTotal,
		m.cacheMissesTotal,
	)

	global = m
	return m
}

// Global returns the package-installed Metrics instance, or nil if Init
// was never called. All methods are nil-receiver-safe, so callers never
// need to branch on whether metrics are enabled.
func Global() *Metrics {
	return global
}

// RecordJob records one job's terminal outcome ("success", "fault" or
// "compile_error").
func (m *Metrics) RecordJob(outcome string) {
	if m == nil {
		return
	}
	m.jobsTotal.WithLabelValues(outcome).Inc()
}

// ObserveCompileDuration records how long the compiler driver took.
func (m *Metrics) ObserveCompileDuration(seconds float64) {
	if m == nil {
		return
	}
	m.compileDuration.Observe(seconds)
}

// ObserveTestDuration records how long one test's execution took.
func (m *Metrics) ObserveTestDuration(seconds float64) {
	if m == nil {
		return
	}
	m.testDuration.Observe(seconds)
}

// RecordTest records one test's terminal status kind (e.g. "TestPassed",
// "WrongAnswer", "JudgeFault").
func (m *Metrics) RecordTest(status string) {
	if m == nil {
		return
	}
	m.testsTotal.WithLabelValues(status).Inc()
}

// RecordValuerTimeout records one valuer poll timing out.
func (m *Metrics) RecordValuerTimeout() {
	if m == nil {
		return
	}
	m.valuerTimeoutsTotal.Inc()
}

// RecordCacheHit records one problem-cache lookup served from cache.
func (m *Metrics) RecordCacheHit() {
	if m == nil {
		return
	}
	m.cacheHitsTotal.Inc()
}

// RecordCacheMiss records one problem-cache lookup that consulted a registry.
func (m *Metrics) RecordCacheMiss() {
	if m == nil {
		return
	}
	m.cacheMissesTotal.Inc()
}

// Handler serves the registry's collected metrics in the Prometheus
// exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
