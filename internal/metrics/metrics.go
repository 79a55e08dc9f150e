// Package metrics holds the Prometheus collectors of the rate service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rateservice"

// Cycle and lookup outcome labels.
const (
	ResultOK      = "ok"
	ResultEmpty   = "empty"
	ResultError   = "error"
	LookupHit     = "hit"
	LookupReverse = "reverse"
	LookupRefresh = "refresh"
	LookupStale   = "stale"
	LookupMissing = "missing"
)

// RateMetrics contains every collector the service records into. A nil *RateMetrics is
// valid and records nothing.
type RateMetrics struct {
	RefreshCyclesTotal   *prometheus.CounterVec
	RefreshCycleDuration prometheus.Histogram
	QuotesFetchedTotal   *prometheus.CounterVec
	AdapterFailuresTotal *prometheus.CounterVec
	HistoryFailuresTotal prometheus.Counter
	CachedPairs          prometheus.Gauge
	LookupsTotal         *prometheus.CounterVec
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
}

// NewRateMetrics registers the collectors on reg.
func NewRateMetrics(reg prometheus.Registerer) *RateMetrics {
	f := promauto.With(reg)
	return &RateMetrics{
		RefreshCyclesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "refresh_cycles_total",
				Help:      "Refresh cycles by result (ok, empty, error).",
			},
			[]string{"result"},
		),
		RefreshCycleDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "refresh_cycle_duration_seconds",
				Help:      "Duration of refresh cycles.",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms .. ~25s
			},
		),
		QuotesFetchedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "quotes_fetched_total",
				Help:      "Quotes merged into the cache, by source kind.",
			},
			[]string{"kind"},
		),
		AdapterFailuresTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "adapter_failures_total",
				Help:      "Adapter calls that produced no rates.",
			},
			[]string{"source"},
		),
		HistoryFailuresTotal: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "history_append_failures_total",
				Help:      "History records that could not be written.",
			},
		),
		CachedPairs: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "cached_pairs",
				Help:      "Number of pairs in the last persisted cache.",
			},
		),
		LookupsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_lookups_total",
				Help:      "Rate lookups by outcome.",
			},
			[]string{"outcome"},
		),
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route pattern, method and status.",
			},
			[]string{"route", "method", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by route pattern.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
	}
}

// RecordCycle records one finished refresh cycle.
func (m *RateMetrics) RecordCycle(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.RefreshCyclesTotal.WithLabelValues(result).Inc()
	m.RefreshCycleDuration.Observe(d.Seconds())
}

// RecordFetched adds n merged quotes of the given kind.
func (m *RateMetrics) RecordFetched(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.QuotesFetchedTotal.WithLabelValues(kind).Add(float64(n))
}

// RecordAdapterFailure counts an adapter call that came back empty.
func (m *RateMetrics) RecordAdapterFailure(source string) {
	if m == nil {
		return
	}
	m.AdapterFailuresTotal.WithLabelValues(source).Inc()
}

// RecordHistoryFailure counts a history record that was dropped.
func (m *RateMetrics) RecordHistoryFailure() {
	if m == nil {
		return
	}
	m.HistoryFailuresTotal.Inc()
}

// SetCachedPairs sets the size of the persisted cache.
func (m *RateMetrics) SetCachedPairs(n int) {
	if m == nil {
		return
	}
	m.CachedPairs.Set(float64(n))
}

// RecordLookup counts a GetRate call by outcome.
func (m *RateMetrics) RecordLookup(outcome string) {
	if m == nil {
		return
	}
	m.LookupsTotal.WithLabelValues(outcome).Inc()
}

// RecordHTTPRequest records one served request.
func (m *RateMetrics) RecordHTTPRequest(route, method, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(route, method, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(route, method).Observe(d.Seconds())
}
