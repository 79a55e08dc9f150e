// Package service implements rate resolution and the refresh cycle that keeps the rate
// cache current.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"rateservice/internal/config"
	"rateservice/internal/metrics"
	"rateservice/internal/repository"
)

// SourceIdentity tags the 1.0 quote returned for a same-currency request.
const SourceIdentity = "identity"

// RateQuote is the answer to a rate lookup.
type RateQuote struct {
	From      string  `json:"from"`
	To        string  `json:"to"`
	Rate      float64 `json:"rate"`
	UpdatedAt string  `json:"updated_at"`
	Source    string  `json:"source"`
	Inverted  bool    `json:"inverted"` // derived from the reverse pair
}

// RateReader is what the HTTP layer needs from the resolver.
type RateReader interface {
	GetRate(ctx context.Context, from, to string) (*RateQuote, error)
	GetAllRates(ctx context.Context) (map[string]float64, error)
}

var _ RateReader = (*RateResolver)(nil)

// RateResolver answers point queries from the cache, refreshing it once when a pair is
// missing or stale.
type RateResolver struct {
	store       repository.RateStore
	registry    *Registry
	refresher   Refresher
	ttl         time.Duration
	defaultBase string
	log         *zap.SugaredLogger
	clock       Clock
	metrics     *metrics.RateMetrics
}

// NewRateResolver creates a new RateResolver. A non-positive TTL falls back to 300s and an
// empty default base to USD.
func NewRateResolver(store repository.RateStore, registry *Registry, refresher Refresher, cfg config.RatesConfig, logger *zap.SugaredLogger, opts ...Option) *RateResolver {
	o := applyOptions(opts)
	ttl := time.Duration(cfg.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 300 * time.Second
	}
	base := NormalizeCode(cfg.DefaultBaseCurrency)
	if base == "" {
		base = "USD"
	}
	return &RateResolver{
		store:       store,
		registry:    registry,
		refresher:   refresher,
		ttl:         ttl,
		defaultBase: base,
		log:         logger,
		clock:       o.clock,
		metrics:     o.metrics,
	}
}

// GetRate returns the rate from -> to. An empty to means the default base currency.
//
// The pair is looked up directly, then through its reverse key. A missing or stale rate
// triggers exactly one refresh cycle followed by one more lookup.
//
// Errors are a *ValidationError, a *CurrencyNotFoundError, a *StaleRatesError or an
// *UpstreamFetchError when the refresh cycle fails. A failure to read the rate cache is
// returned wrapped as is and matches none of them.
func (r *RateResolver) GetRate(ctx context.Context, from, to string) (*RateQuote, error) {
	if strings.TrimSpace(to) == "" {
		to = r.defaultBase
	}
	from, err := r.registry.Resolve(from)
	if err != nil {
		return nil, err
	}
	to, err = r.registry.Resolve(to)
	if err != nil {
		return nil, err
	}

	if from == to {
		return &RateQuote{
			From:      from,
			To:        to,
			Rate:      1.0,
			UpdatedAt: FormatTimestamp(r.clock()),
			Source:    SourceIdentity,
		}, nil
	}

	pair := repository.PairKey(from, to)

	q, err := r.lookup(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if q != nil && !IsStale(q.UpdatedAt, r.clock(), r.ttl) {
		if q.Inverted {
			r.metrics.RecordLookup(metrics.LookupReverse)
		} else {
			r.metrics.RecordLookup(metrics.LookupHit)
		}
		return q, nil
	}

	reason := "missing"
	if q != nil {
		reason = "stale"
	}
	r.log.Infow("Refreshing rates for lookup", "pair", pair, "reason", reason)

	if _, err := r.refresher.RunCycle(ctx, FilterAll); err != nil {
		r.log.Errorw("Refresh for lookup failed", "pair", pair, "error", err)
		return nil, &UpstreamFetchError{Err: err}
	}

	q, err = r.lookup(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if q == nil {
		r.metrics.RecordLookup(metrics.LookupMissing)
		return nil, &CurrencyNotFoundError{Code: from, Pair: pair}
	}
	if IsStale(q.UpdatedAt, r.clock(), r.ttl) {
		r.metrics.RecordLookup(metrics.LookupStale)
		return nil, &StaleRatesError{Pair: pair, LastUpdated: q.UpdatedAt}
	}
	r.metrics.RecordLookup(metrics.LookupRefresh)
	return q, nil
}

// lookup reads the cache and returns the direct pair or the inverted reverse pair, or nil.
func (r *RateResolver) lookup(ctx context.Context, from, to string) (*RateQuote, error) {
	snap, err := r.store.GetCache(ctx)
	if err != nil {
		return nil, fmt.Errorf("read rate cache: %w", err)
	}

	if q, ok := snap.Pairs[repository.PairKey(from, to)]; ok && q.Rate > 0 {
		return &RateQuote{From: from, To: to, Rate: q.Rate, UpdatedAt: q.UpdatedAt, Source: q.Source}, nil
	}
	if q, ok := snap.Pairs[repository.PairKey(to, from)]; ok && q.Rate > 0 {
		return &RateQuote{From: from, To: to, Rate: 1 / q.Rate, UpdatedAt: q.UpdatedAt, Source: q.Source, Inverted: true}, nil
	}
	return nil, nil
}

// GetAllRates returns every cached CODE_USD rate keyed by pair key. Reverse pairs are not
// derived.
func (r *RateResolver) GetAllRates(ctx context.Context) (map[string]float64, error) {
	snap, err := r.store.GetCache(ctx)
	if err != nil {
		return nil, fmt.Errorf("read rate cache: %w", err)
	}
	out := make(map[string]float64, len(snap.Pairs))
	for key, q := range snap.Pairs {
		_, to, err := repository.SplitPairKey(key)
		if err != nil || to != "USD" || q.Rate <= 0 {
			continue
		}
		out[key] = q.Rate
	}
	return out, nil
}
