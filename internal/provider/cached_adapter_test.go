package provider

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func TestCachedAdapter_FetchQuotes(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ttl := 10 * time.Second
	batch := Batch{Source: NameCoinGecko, Kind: KindCrypto, Base: "USD",
		Rates: map[string]float64{"BTC": 20000}, RawIDs: map[string]string{"BTC": "bitcoin"}}

	newMock := func() *MockAdapter {
		m := new(MockAdapter)
		m.On("Name").Return(NameCoinGecko)
		return m
	}

	t.Run("miss then hit", func(t *testing.T) {
		mr.FlushAll()
		m := newMock()
		m.On("FetchQuotes", mock.Anything).Return(batch).Once()

		c := NewCachedAdapter(m, rdb, ttl, zap.NewNop().Sugar())
		first := c.FetchQuotes(context.Background())
		second := c.FetchQuotes(context.Background())

		assert.Equal(t, batch.Rates, first.Rates)
		assert.Equal(t, batch.Rates, second.Rates)
		assert.Equal(t, batch.RawIDs, second.RawIDs)
		m.AssertExpectations(t)
	})

	t.Run("empty batch is not cached", func(t *testing.T) {
		mr.FlushAll()
		m := newMock()
		m.On("FetchQuotes", mock.Anything).Return(Batch{Warnings: []string{"down"}}).Once()

		c := NewCachedAdapter(m, rdb, ttl, zap.NewNop().Sugar())
		b := c.FetchQuotes(context.Background())
		assert.True(t, b.Empty())
		assert.Equal(t, []string{"down"}, b.Warnings)

		m.On("FetchQuotes", mock.Anything).Return(batch).Once()
		b = c.FetchQuotes(context.Background())
		assert.Equal(t, batch.Rates, b.Rates)
		m.AssertExpectations(t)
	})

	t.Run("cache expires", func(t *testing.T) {
		mr.FlushAll()
		m := newMock()
		m.On("FetchQuotes", mock.Anything).Return(batch).Twice()

		c := NewCachedAdapter(m, rdb, ttl, zap.NewNop().Sugar())
		_ = c.FetchQuotes(context.Background())
		mr.FastForward(ttl + time.Second)
		_ = c.FetchQuotes(context.Background())

		m.AssertExpectations(t)
	})

	t.Run("disabled without ttl", func(t *testing.T) {
		mr.FlushAll()
		m := new(MockAdapter)
		m.On("FetchQuotes", mock.Anything).Return(batch).Twice()

		c := NewCachedAdapter(m, rdb, 0, zap.NewNop().Sugar())
		_ = c.FetchQuotes(context.Background())
		_ = c.FetchQuotes(context.Background())

		m.AssertExpectations(t)
	})
}
