package repository

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb), mr
}

func TestRedisStore_EmptyCache(t *testing.T) {
	s, _ := newTestRedisStore(t)

	snap, err := s.GetCache(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Pairs)
	assert.Empty(t, snap.LastRefresh)
}

func TestRedisStore_PutGetRoundTrip(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()

	in := Snapshot{
		Pairs: map[string]Quote{
			"BTC_USD": {Rate: 20000, UpdatedAt: "2025-01-01T00:00:00Z", Source: "coingecko"},
			"EUR_USD": {Rate: 1.087, UpdatedAt: "2025-01-01T00:00:00Z", Source: "exchangerate"},
		},
		LastRefresh: "2025-01-01T00:00:00Z",
	}
	require.NoError(t, s.PutCache(ctx, in))

	out, err := s.GetCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.True(t, mr.Exists(redisPairsKey))
}

func TestRedisStore_PutReplacesWholeCache(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutCache(ctx, Snapshot{Pairs: map[string]Quote{"BTC_USD": {Rate: 1}}, LastRefresh: "t1"}))
	require.NoError(t, s.PutCache(ctx, Snapshot{Pairs: map[string]Quote{"ETH_USD": {Rate: 2}}, LastRefresh: "t2"}))

	out, err := s.GetCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]Quote{"ETH_USD": {Rate: 2}}, out.Pairs)
	assert.Equal(t, "t2", out.LastRefresh)
}

func TestRedisStore_CorruptQuote(t *testing.T) {
	s, mr := newTestRedisStore(t)
	mr.HSet(redisPairsKey, "BTC_USD", "not-json")

	_, err := s.GetCache(context.Background())
	assert.Error(t, err)
}

func TestRedisStore_AppendHistory(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx := context.Background()

	rec := HistoryRecord{ID: "BTC_USD_t1", From: "BTC", To: "USD", Rate: 20000, Timestamp: "t1", Source: "coingecko",
		Meta: map[string]string{"raw_id": "bitcoin"}}
	require.NoError(t, s.AppendHistory(ctx, rec))
	require.NoError(t, s.AppendHistory(ctx, rec))

	records, err := s.History(ctx)
	require.NoError(t, err)
	assert.Equal(t, []HistoryRecord{rec, rec}, records)
}

func TestRedisStore_ClosedConnection(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close() //nolint:errcheck // test cleanup
	s := NewRedisStore(rdb)
	mr.Close()

	_, err = s.GetCache(context.Background())
	assert.Error(t, err)
	assert.Error(t, s.PutCache(context.Background(), NewSnapshot()))
}
