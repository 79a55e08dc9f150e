// Package repository implements durable storage for the rate cache and rate history.
package repository

import (
	"context"
	"errors"
	"strings"
)

// Quote is one cached directional rate. UpdatedAt is kept as the ISO-8601 string that was
// written so that missing or malformed timestamps survive a round trip.
type Quote struct {
	Rate      float64 `json:"rate"`
	UpdatedAt string  `json:"updated_at"`
	Source    string  `json:"source"`
}

// Snapshot is the whole rate cache: pair key ("CODE_BASE") to quote, plus the time of the
// last successful refresh.
type Snapshot struct {
	Pairs       map[string]Quote `json:"pairs"`
	LastRefresh string           `json:"last_refresh,omitempty"`
}

// HistoryRecord is an immutable log entry written once per fetched quote.
type HistoryRecord struct {
	ID        string            `json:"id"`
	From      string            `json:"from_currency"`
	To        string            `json:"to_currency"`
	Rate      float64           `json:"rate"`
	Timestamp string            `json:"timestamp"`
	Source    string            `json:"source"`
	Meta      map[string]string `json:"meta,omitempty"`
}

// RateStore reads and atomically replaces the rate cache.
type RateStore interface {
	GetCache(ctx context.Context) (Snapshot, error)
	PutCache(ctx context.Context, snap Snapshot) error
}

// HistoryStore appends history records.
type HistoryStore interface {
	AppendHistory(ctx context.Context, rec HistoryRecord) error
}

// Store is a backend that keeps both the cache and the history.
type Store interface {
	RateStore
	HistoryStore
}

// ErrInvalidPairKey is returned by SplitPairKey for keys that are not "FROM_TO".
var ErrInvalidPairKey = errors.New("invalid pair key")

// PairKey builds the "FROM_TO" key.
func PairKey(from, to string) string {
	return strings.ToUpper(from) + "_" + strings.ToUpper(to)
}

// SplitPairKey returns both legs of a pair key.
func SplitPairKey(key string) (from, to string, err error) {
	from, to, ok := strings.Cut(key, "_")
	if !ok || from == "" || to == "" {
		return "", "", ErrInvalidPairKey
	}
	return from, to, nil
}

// NewSnapshot returns an empty snapshot with a non-nil pair map.
func NewSnapshot() Snapshot {
	return Snapshot{Pairs: make(map[string]Quote)}
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{Pairs: make(map[string]Quote, len(s.Pairs)), LastRefresh: s.LastRefresh}
	for k, v := range s.Pairs {
		out.Pairs[k] = v
	}
	return out
}
