package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"rateservice/internal/metrics"
	"rateservice/internal/provider"
	"rateservice/internal/repository"
)

// SourceFilter selects which adapters a refresh cycle calls.
type SourceFilter string

// Source filters.
const (
	FilterAll    SourceFilter = "all"
	FilterCrypto SourceFilter = "crypto"
	FilterFiat   SourceFilter = "fiat"
)

// ParseSourceFilter parses a refresh source name. An empty value and "both" mean all.
func ParseSourceFilter(s string) (SourceFilter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all", "both":
		return FilterAll, nil
	case "crypto":
		return FilterCrypto, nil
	case "fiat":
		return FilterFiat, nil
	default:
		return "", &ValidationError{Field: "source", Value: s, Reason: "must be one of crypto, fiat, all"}
	}
}

func (f SourceFilter) includes(k provider.Kind) bool {
	switch f {
	case FilterCrypto:
		return k == provider.KindCrypto
	case FilterFiat:
		return k == provider.KindFiat
	default:
		return true
	}
}

// RefreshResult summarizes one refresh cycle.
type RefreshResult struct {
	OK           bool                  `json:"ok"`
	UpdatedPairs int                   `json:"updated_pairs"`
	LastRefresh  string                `json:"last_refresh"`
	Warnings     []string              `json:"warnings"`
	Sources      map[provider.Kind]int `json:"sources"`
}

func (r *RefreshResult) fetched() int {
	n := 0
	for _, v := range r.Sources {
		n += v
	}
	return n
}

// Refresher runs refresh cycles.
type Refresher interface {
	RunCycle(ctx context.Context, filter SourceFilter) (*RefreshResult, error)
}

var _ Refresher = (*RefreshCoordinator)(nil)

// RefreshCoordinator pulls quotes from the adapters and merges them into the store.
// Cycles never overlap within one process.
type RefreshCoordinator struct {
	store    repository.Store
	registry *Registry
	adapters []provider.SourceAdapter
	log      *zap.SugaredLogger
	clock    Clock
	metrics  *metrics.RateMetrics
	mu       sync.Mutex
}

// NewRefreshCoordinator creates a new RefreshCoordinator. Adapter order is the merge order.
func NewRefreshCoordinator(store repository.Store, registry *Registry, adapters []provider.SourceAdapter, logger *zap.SugaredLogger, opts ...Option) *RefreshCoordinator {
	o := applyOptions(opts)
	return &RefreshCoordinator{
		store:    store,
		registry: registry,
		adapters: adapters,
		log:      logger,
		clock:    o.clock,
		metrics:  o.metrics,
	}
}

// RunCycle runs one refresh: garbage-collect unknown pairs, fetch from the selected
// adapters, merge last-write-wins and persist. Adapter failures become warnings; store
// failures and panics anywhere in the cycle fail it with an error.
func (c *RefreshCoordinator) RunCycle(ctx context.Context, filter SourceFilter) (res *RefreshResult, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	started := time.Now()
	now := c.clock().UTC()
	ts := FormatTimestamp(now)

	defer func() {
		if r := recover(); r != nil {
			c.log.Errorw("Refresh cycle panicked", "panic", r)
			res, err = nil, fmt.Errorf("refresh cycle panicked: %v", r)
		}
		switch {
		case err != nil:
			c.metrics.RecordCycle(metrics.ResultError, time.Since(started))
		case res == nil || res.fetched() == 0:
			c.metrics.RecordCycle(metrics.ResultEmpty, time.Since(started))
		default:
			c.metrics.RecordCycle(metrics.ResultOK, time.Since(started))
		}
	}()

	return c.runCycle(ctx, filter, ts)
}

func (c *RefreshCoordinator) runCycle(ctx context.Context, filter SourceFilter, ts string) (*RefreshResult, error) {
	snap, err := c.store.GetCache(ctx)
	if err != nil {
		return nil, fmt.Errorf("read rate cache: %w", err)
	}
	pruned := c.collectGarbage(snap.Pairs)
	if pruned > 0 {
		c.log.Infow("Dropped pairs with unknown currencies", "count", pruned)
	}

	batches, err := c.fetch(ctx, filter)
	if err != nil {
		return nil, err
	}

	res := &RefreshResult{
		LastRefresh: snap.LastRefresh,
		Warnings:    []string{},
		Sources:     make(map[provider.Kind]int),
	}
	fetched := 0
	for _, b := range batches {
		res.Warnings = append(res.Warnings, b.Warnings...)
		if b.Empty() {
			if len(b.Warnings) == 0 {
				res.Warnings = append(res.Warnings, b.Source+": no rates returned")
			}
			c.metrics.RecordAdapterFailure(b.Source)
			continue
		}
		n := c.merge(ctx, snap.Pairs, b, ts)
		if n == 0 {
			res.Warnings = append(res.Warnings, b.Source+": no supported rates")
		}
		res.Sources[b.Kind] += n
		c.metrics.RecordFetched(string(b.Kind), n)
		fetched += n
	}

	switch {
	case len(snap.Pairs) == 0:
		res.Warnings = append(res.Warnings, "no rates updated")
		c.log.Warnw("No rates updated, cache left untouched", "warnings", res.Warnings)
		return res, nil
	case fetched > 0:
		snap.LastRefresh = ts
	case pruned == 0:
		// nothing new and nothing removed
		res.OK = true
		res.UpdatedPairs = len(snap.Pairs)
		return res, nil
	}

	if err := c.store.PutCache(ctx, snap); err != nil {
		return nil, fmt.Errorf("write rate cache: %w", err)
	}
	c.metrics.SetCachedPairs(len(snap.Pairs))

	res.OK = true
	res.UpdatedPairs = len(snap.Pairs)
	res.LastRefresh = snap.LastRefresh
	c.log.Infow("Rates refreshed", "pairs", len(snap.Pairs), "fetched", fetched, "pruned", pruned, "last_refresh", snap.LastRefresh)
	return res, nil
}

// collectGarbage removes pairs whose key is malformed or names an unregistered currency.
func (c *RefreshCoordinator) collectGarbage(pairs map[string]repository.Quote) int {
	removed := 0
	for key := range pairs {
		from, to, err := repository.SplitPairKey(key)
		if err != nil || !c.registry.IsSupported(from) || !c.registry.IsSupported(to) {
			delete(pairs, key)
			removed++
		}
	}
	return removed
}

// fetch calls the selected adapters concurrently and returns their batches in
// registration order.
func (c *RefreshCoordinator) fetch(ctx context.Context, filter SourceFilter) ([]provider.Batch, error) {
	selected := make([]provider.SourceAdapter, 0, len(c.adapters))
	for _, a := range c.adapters {
		if filter.includes(a.Kind()) {
			selected = append(selected, a)
		}
	}
	if len(selected) == 0 {
		return nil, nil
	}

	batches := make([]provider.Batch, len(selected))
	g, gctx := errgroup.WithContext(ctx)
	for i, a := range selected {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					c.log.Errorw("Adapter panicked", "source", a.Name(), "panic", r)
					err = fmt.Errorf("adapter %s panicked: %v", a.Name(), r)
				}
			}()
			batches[i] = a.FetchQuotes(gctx)
			if batches[i].Source == "" {
				batches[i].Source = a.Name()
			}
			if batches[i].Kind == "" {
				batches[i].Kind = a.Kind()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return batches, nil
}

type pairQuote struct {
	from  string
	to    string
	rate  float64
	rawID string
}

// normalize turns a batch into stored pairs. Crypto prices are already CODE_USD; a fiat
// table based on USD is inverted into CODE_USD; other fiat bases are stored as CODE_BASE.
func (c *RefreshCoordinator) normalize(b provider.Batch) []pairQuote {
	base := NormalizeCode(b.Base)
	if base == "" {
		base = "USD"
	}

	codes := make([]string, 0, len(b.Rates))
	for code := range b.Rates {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	out := make([]pairQuote, 0, len(codes))
	for _, raw := range codes {
		code := NormalizeCode(raw)
		v := b.Rates[raw]
		if code == base || v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if !c.registry.IsSupported(code) || !c.registry.IsSupported(base) {
			continue
		}
		q := pairQuote{from: code, to: base, rate: v, rawID: b.RawIDs[raw]}
		if b.Kind == provider.KindFiat && base == "USD" {
			q.rate = 1 / v
		}
		if q.rawID == "" {
			q.rawID = strings.ToLower(code)
		}
		out = append(out, q)
	}
	return out
}

// merge writes the batch into pairs and appends one history record per quote. It
// returns the number of quotes merged.
func (c *RefreshCoordinator) merge(ctx context.Context, pairs map[string]repository.Quote, b provider.Batch, ts string) int {
	quotes := c.normalize(b)
	for _, q := range quotes {
		key := repository.PairKey(q.from, q.to)
		pairs[key] = repository.Quote{Rate: q.rate, UpdatedAt: ts, Source: b.Source}

		rec := repository.HistoryRecord{
			ID:        key + "_" + ts,
			From:      q.from,
			To:        q.to,
			Rate:      q.rate,
			Timestamp: ts,
			Source:    b.Source,
			Meta:      map[string]string{"raw_id": q.rawID},
		}
		if err := c.store.AppendHistory(ctx, rec); err != nil {
			c.metrics.RecordHistoryFailure()
			c.log.Warnw("Failed to append history record", "id", rec.ID, "error", err)
		}
	}
	return len(quotes)
}
