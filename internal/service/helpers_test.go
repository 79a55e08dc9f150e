package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"rateservice/internal/provider"
	"rateservice/internal/repository"
)

var t0 = time.Date(2025, 10, 9, 12, 0, 0, 0, time.UTC)

func testLogger() *zap.SugaredLogger { return zap.NewNop().Sugar() }

func testRegistry() *Registry {
	return NewRegistry([]string{"USD", "EUR", "GBP", "RUB"}, []string{"BTC", "ETH", "SOL"})
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

// memStore is an in-memory repository.Store with call counters and failure switches.
type memStore struct {
	mu         sync.Mutex
	snap       repository.Snapshot
	history    []repository.HistoryRecord
	gets       int
	puts       int
	getErr     error
	putErr     error
	historyErr error
	putPanic   any
}

func newMemStore() *memStore { return &memStore{snap: repository.NewSnapshot()} }

func (s *memStore) GetCache(_ context.Context) (repository.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	if s.getErr != nil {
		return repository.NewSnapshot(), s.getErr
	}
	return s.snap.Clone(), nil
}

func (s *memStore) PutCache(_ context.Context, snap repository.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	if s.putPanic != nil {
		panic(s.putPanic)
	}
	if s.putErr != nil {
		return s.putErr
	}
	s.snap = snap.Clone()
	return nil
}

func (s *memStore) AppendHistory(_ context.Context, rec repository.HistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.historyErr != nil {
		return s.historyErr
	}
	s.history = append(s.history, rec)
	return nil
}

func (s *memStore) put(key string, q repository.Quote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Pairs[key] = q
}

func (s *memStore) snapshot() repository.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Clone()
}

func (s *memStore) counts() (gets, puts int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets, s.puts
}

// stubAdapter returns a fixed batch, or the result of fn when set.
type stubAdapter struct {
	name  string
	kind  provider.Kind
	mu    sync.Mutex
	batch provider.Batch
	calls int
	fn    func() provider.Batch
}

func (a *stubAdapter) Name() string        { return a.name }
func (a *stubAdapter) Kind() provider.Kind { return a.kind }

func (a *stubAdapter) FetchQuotes(_ context.Context) provider.Batch {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.fn != nil {
		return a.fn()
	}
	return a.batch
}

func (a *stubAdapter) set(b provider.Batch) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.batch = b
}

func (a *stubAdapter) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

func cryptoAdapter(rates map[string]float64) *stubAdapter {
	return &stubAdapter{
		name: provider.NameCoinGecko,
		kind: provider.KindCrypto,
		batch: provider.Batch{
			Source: provider.NameCoinGecko, Kind: provider.KindCrypto, Base: "USD", Rates: rates,
			RawIDs: map[string]string{"BTC": "bitcoin", "ETH": "ethereum", "SOL": "solana"},
		},
	}
}

func fiatAdapter(base string, rates map[string]float64) *stubAdapter {
	return &stubAdapter{
		name:  provider.NameExchangeRate,
		kind:  provider.KindFiat,
		batch: provider.Batch{Source: provider.NameExchangeRate, Kind: provider.KindFiat, Base: base, Rates: rates},
	}
}

func failingAdapter(name string, kind provider.Kind, warning string) *stubAdapter {
	return &stubAdapter{
		name:  name,
		kind:  kind,
		batch: provider.Batch{Source: name, Kind: kind, Warnings: []string{warning}},
	}
}

// stubRefresher counts cycles and returns err.
type stubRefresher struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (r *stubRefresher) RunCycle(_ context.Context, _ SourceFilter) (*RefreshResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return &RefreshResult{OK: true}, nil
}

var errBoom = errors.New("boom")
