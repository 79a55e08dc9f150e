package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRateMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRateMetrics(reg)

	m.RecordCycle(ResultOK, 120*time.Millisecond)
	m.RecordCycle(ResultOK, 80*time.Millisecond)
	m.RecordCycle(ResultError, time.Second)
	m.RecordFetched("crypto", 3)
	m.RecordFetched("fiat", 0)
	m.RecordAdapterFailure("coingecko")
	m.RecordHistoryFailure()
	m.SetCachedPairs(7)
	m.RecordLookup(LookupHit)
	m.RecordHTTPRequest("/rates/{from}", "GET", "200", 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RefreshCyclesTotal.WithLabelValues(ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RefreshCyclesTotal.WithLabelValues(ResultError)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.QuotesFetchedTotal.WithLabelValues("crypto")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AdapterFailuresTotal.WithLabelValues("coingecko")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HistoryFailuresTotal))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.CachedPairs))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LookupsTotal.WithLabelValues(LookupHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("/rates/{from}", "GET", "200")))
	// zero adds never create the fiat series
	assert.Equal(t, 1, testutil.CollectAndCount(m.QuotesFetchedTotal))
}

func TestRateMetrics_NilIsNoop(t *testing.T) {
	var m *RateMetrics
	assert.NotPanics(t, func() {
		m.RecordCycle(ResultOK, time.Second)
		m.RecordFetched("crypto", 1)
		m.RecordAdapterFailure("x")
		m.RecordHistoryFailure()
		m.SetCachedPairs(1)
		m.RecordLookup(LookupHit)
		m.RecordHTTPRequest("/", "GET", "200", time.Second)
	})
}
