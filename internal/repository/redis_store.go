package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	redisPairsKey       = "rates:{cache}:pairs"
	redisLastRefreshKey = "rates:{cache}:last_refresh"
	redisHistoryKey     = "rates:history"
)

var _ Store = (*RedisStore)(nil)

// RedisStore keeps the cache in a Redis hash (pair key -> JSON quote) and the history in a
// Redis list. Cache reads and writes run inside MULTI/EXEC.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore creates a new RedisStore.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// GetCache loads every pair and the last refresh marker in one transaction.
func (s *RedisStore) GetCache(ctx context.Context) (Snapshot, error) {
	var pairsCmd *redis.MapStringStringCmd
	var lastCmd *redis.StringCmd

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pairsCmd = pipe.HGetAll(ctx, redisPairsKey)
		lastCmd = pipe.Get(ctx, redisLastRefreshKey)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return NewSnapshot(), fmt.Errorf("redis read cache: %w", err)
	}

	snap := NewSnapshot()
	for key, raw := range pairsCmd.Val() {
		var q Quote
		if err := json.Unmarshal([]byte(raw), &q); err != nil {
			return NewSnapshot(), fmt.Errorf("decode quote %s: %w", key, err)
		}
		snap.Pairs[key] = q
	}
	snap.LastRefresh = lastCmd.Val()
	return snap, nil
}

// PutCache replaces the hash and the marker in one transaction.
func (s *RedisStore) PutCache(ctx context.Context, snap Snapshot) error {
	values := make([]any, 0, len(snap.Pairs)*2)
	for key, q := range snap.Pairs {
		data, err := json.Marshal(q)
		if err != nil {
			return fmt.Errorf("encode quote %s: %w", key, err)
		}
		values = append(values, key, string(data))
	}

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, redisPairsKey)
		if len(values) > 0 {
			pipe.HSet(ctx, redisPairsKey, values...)
		}
		if snap.LastRefresh != "" {
			pipe.Set(ctx, redisLastRefreshKey, snap.LastRefresh, 0)
		} else {
			pipe.Del(ctx, redisLastRefreshKey)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis write cache: %w", err)
	}
	return nil
}

// AppendHistory pushes the record onto the history list.
func (s *RedisStore) AppendHistory(ctx context.Context, rec HistoryRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode history record: %w", err)
	}
	if err := s.rdb.RPush(ctx, redisHistoryKey, data).Err(); err != nil {
		return fmt.Errorf("redis append history: %w", err)
	}
	return nil
}

// History returns every stored record in append order.
func (s *RedisStore) History(ctx context.Context) ([]HistoryRecord, error) {
	raw, err := s.rdb.LRange(ctx, redisHistoryKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis read history: %w", err)
	}
	out := make([]HistoryRecord, 0, len(raw))
	for _, item := range raw {
		var rec HistoryRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("decode history record: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}
