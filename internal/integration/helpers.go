//go:build integration

package integration

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"rateservice/internal/provider"
)

var (
	testDB    *sql.DB
	testRDB   *redis.Client
	redisAddr string
)

// resetTestData empties the rate tables and flushes the current Redis database.
func resetTestData(t *testing.T) {
	t.Helper()

	_, err := testDB.ExecContext(context.Background(),
		"TRUNCATE TABLE rate_pairs, rate_cache_meta, rate_history")
	if err != nil {
		t.Fatalf("failed to truncate rate tables: %v", err)
	}

	if err := testRDB.FlushDB(context.Background()).Err(); err != nil {
		t.Fatalf("failed to flush redis: %v", err)
	}
}

// testContext returns a context with a 30-second deadline tied to the test's cleanup.
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// staticFeed serves a fixed batch and counts how often it was asked.
type staticFeed struct {
	mu    sync.Mutex
	batch provider.Batch
	calls int
}

func newStaticFeed(name string, kind provider.Kind, base string, rates map[string]float64) *staticFeed {
	return &staticFeed{batch: provider.Batch{Source: name, Kind: kind, Base: base, Rates: rates}}
}

func (f *staticFeed) Name() string        { return f.batch.Source }
func (f *staticFeed) Kind() provider.Kind { return f.batch.Kind }

func (f *staticFeed) FetchQuotes(_ context.Context) provider.Batch {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.batch
}

func (f *staticFeed) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fixedClock is a settable clock for the service options.
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
