package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testIDs = map[string]string{"BTC": "bitcoin", "ETH": "ethereum", "SOL": "solana"}

func TestCoinGeckoAdapter_FetchQuotes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		assert.Equal(t, "bitcoin,ethereum,solana", r.URL.Query().Get("ids"))
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
		assert.Equal(t, "demo-key", r.Header.Get("x-cg-demo-api-key"))
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":20000.5},"ethereum":{"usd":1500},"solana":{"usd":0}}`))
	}))
	defer srv.Close()

	a := NewCoinGeckoAdapter(srv.URL, "demo-key", testIDs, 5, 0, zap.NewNop().Sugar())
	b := a.FetchQuotes(context.Background())

	assert.Equal(t, NameCoinGecko, b.Source)
	assert.Equal(t, KindCrypto, b.Kind)
	assert.Equal(t, "USD", b.Base)
	assert.Equal(t, map[string]float64{"BTC": 20000.5, "ETH": 1500}, b.Rates)
	assert.Equal(t, "bitcoin", b.RawIDs["BTC"])
	assert.Empty(t, b.Warnings)
}

func TestCoinGeckoAdapter_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"non-2xx", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"status":{"error_code":429}}`))
		}},
		{"malformed payload", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`[1,2,3`))
		}},
		{"no known coins", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"dogecoin":{"usd":0.1}}`))
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			a := NewCoinGeckoAdapter(srv.URL, "", testIDs, 5, 0, zap.NewNop().Sugar())
			b := a.FetchQuotes(context.Background())

			assert.True(t, b.Empty())
			require.Len(t, b.Warnings, 1)
			assert.Contains(t, b.Warnings[0], NameCoinGecko)
		})
	}
}

func TestCoinGeckoAdapter_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	a := NewCoinGeckoAdapter(url, "", testIDs, 1, 0, zap.NewNop().Sugar())
	b := a.FetchQuotes(context.Background())
	assert.True(t, b.Empty())
	assert.NotEmpty(t, b.Warnings)
}

func TestCoinGeckoAdapter_TimeoutNoRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-time.After(3 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	a := NewCoinGeckoAdapter(srv.URL, "", testIDs, 1, 0, zap.NewNop().Sugar())
	start := time.Now()
	b := a.FetchQuotes(context.Background())

	assert.True(t, b.Empty())
	assert.Less(t, time.Since(start), 3*time.Second)
	assert.Equal(t, int32(1), calls.Load())
}
