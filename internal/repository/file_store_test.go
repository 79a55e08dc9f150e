package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFileStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := NewFileStore(filepath.Join(dir, "data", "rates.json"), filepath.Join(dir, "data", "history.json"))
	require.NoError(t, err)
	return s, dir
}

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	s, _ := newTestFileStore(t)

	snap, err := s.GetCache(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Pairs)
	assert.NotNil(t, snap.Pairs)
	assert.Empty(t, snap.LastRefresh)
}

func TestFileStore_PutGetRoundTrip(t *testing.T) {
	s, _ := newTestFileStore(t)
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
}

func TestFileStore_PutReplacesWholeCache(t *testing.T) {
	s, _ := newTestFileStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutCache(ctx, Snapshot{Pairs: map[string]Quote{"BTC_USD": {Rate: 1}}}))
	require.NoError(t, s.PutCache(ctx, Snapshot{Pairs: map[string]Quote{"ETH_USD": {Rate: 2}}}))

	out, err := s.GetCache(ctx)
	require.NoError(t, err)
	assert.Len(t, out.Pairs, 1)
	assert.Contains(t, out.Pairs, "ETH_USD")
}

func TestFileStore_NoTempFilesLeft(t *testing.T) {
	s, dir := newTestFileStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutCache(ctx, Snapshot{Pairs: map[string]Quote{"BTC_USD": {Rate: 1}}}))
	require.NoError(t, s.AppendHistory(ctx, HistoryRecord{ID: "BTC_USD_1"}))

	entries, err := os.ReadDir(filepath.Join(dir, "data"))
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"rates.json", "history.json"}, names)
}

func TestFileStore_CorruptCache(t *testing.T) {
	s, dir := newTestFileStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data", "rates.json"), []byte("{not json"), 0o644))

	_, err := s.GetCache(context.Background())
	assert.Error(t, err)
}

func TestFileStore_AppendHistory(t *testing.T) {
	s, _ := newTestFileStore(t)
	ctx := context.Background()

	first := HistoryRecord{ID: "BTC_USD_t1", From: "BTC", To: "USD", Rate: 20000, Timestamp: "t1", Source: "coingecko",
		Meta: map[string]string{"raw_id": "bitcoin"}}
	second := HistoryRecord{ID: "EUR_USD_t1", From: "EUR", To: "USD", Rate: 1.08, Timestamp: "t1", Source: "exchangerate"}
	require.NoError(t, s.AppendHistory(ctx, first))
	require.NoError(t, s.AppendHistory(ctx, second))

	records, err := s.History(ctx)
	require.NoError(t, err)
	assert.Equal(t, []HistoryRecord{first, second}, records)
}

func TestFileStore_ConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	s, _ := newTestFileStore(t)
	ctx := context.Background()

	const pairs = 2000
	const writes = 30
	generation := func(n int) Snapshot {
		ts := fmt.Sprintf("2025-01-01T00:%02d:00Z", n)
		snap := NewSnapshot()
		for i := range pairs {
			snap.Pairs[fmt.Sprintf("C%04d_USD", i)] = Quote{Rate: float64(n + 1), UpdatedAt: ts, Source: "coingecko"}
		}
		snap.LastRefresh = ts
		return snap
	}
	require.NoError(t, s.PutCache(ctx, generation(0)))

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		defer close(done)
		for n := 1; n <= writes; n++ {
			if err := s.PutCache(ctx, generation(n)); err != nil {
				t.Errorf("PutCache %d: %v", n, err)
				return
			}
		}
	}()

	reads := 0
	go func() {
		defer wg.Done()
		for {
			snap, err := s.GetCache(ctx)
			if err != nil {
				t.Errorf("GetCache returned a partial document: %v", err)
				return
			}
			reads++
			if len(snap.Pairs) != pairs {
				t.Errorf("expected %d pairs, got %d", pairs, len(snap.Pairs))
				return
			}
			for key, q := range snap.Pairs {
				if q.UpdatedAt != snap.LastRefresh {
					t.Errorf("pair %s from %s mixed into snapshot %s", key, q.UpdatedAt, snap.LastRefresh)
					return
				}
			}
			select {
			case <-done:
				return
			default:
			}
		}
	}()

	wg.Wait()
	assert.Positive(t, reads)

	final, err := s.GetCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, generation(writes).LastRefresh, final.LastRefresh)
}
