package provider

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"strings"

	"go.uber.org/zap"
)

var _ SourceAdapter = (*FrankfurterAdapter)(nil)

// FrankfurterAdapter fetches ECB reference rates from the keyless Frankfurter API.
type FrankfurterAdapter struct {
	baseURL    string
	base       string
	currencies map[string]struct{}
	http       httpSource
	log        *zap.SugaredLogger
}

// NewFrankfurterAdapter creates a new FrankfurterAdapter.
func NewFrankfurterAdapter(baseURL, base string, currencies []string, timeoutSec int, logger *zap.SugaredLogger) *FrankfurterAdapter {
	if baseURL == "" {
		baseURL = "https://api.frankfurter.dev/v1"
	}
	if base == "" {
		base = "USD"
	}
	return &FrankfurterAdapter{
		baseURL:    strings.TrimRight(baseURL, "/"),
		base:       strings.ToUpper(base),
		currencies: codeSet(currencies),
		http:       newHTTPSource(timeoutSec, 0),
		log:        logger,
	}
}

// Name implements SourceAdapter.
func (a *FrankfurterAdapter) Name() string { return NameFrankfurter }

// Kind implements SourceAdapter.
func (a *FrankfurterAdapter) Kind() Kind { return KindFiat }

type frankfurterResponse struct {
	Amount float64            `json:"amount"`
	Base   string             `json:"base"`
	Date   string             `json:"date"`
	Rates  map[string]float64 `json:"rates"`
}

// FetchQuotes returns the latest table for the configured base.
func (a *FrankfurterAdapter) FetchQuotes(ctx context.Context) Batch {
	q := url.Values{}
	q.Set("base", a.base)
	if len(a.currencies) > 0 {
		symbols := make([]string, 0, len(a.currencies))
		for c := range a.currencies {
			if c != a.base {
				symbols = append(symbols, c)
			}
		}
		sort.Strings(symbols)
		q.Set("symbols", strings.Join(symbols, ","))
	}
	reqURL := a.baseURL + "/latest?" + q.Encode()

	var result frankfurterResponse
	if err := a.http.getJSON(ctx, reqURL, nil, &result); err != nil {
		return a.fail(err)
	}

	base := strings.ToUpper(result.Base)
	if base == "" {
		base = a.base
	}
	batch := Batch{
		Source: NameFrankfurter,
		Kind:   KindFiat,
		Base:   base,
		Rates:  filterRates(result.Rates, a.currencies),
	}
	if batch.Empty() {
		return a.fail(errors.New("no usable rates in response"))
	}

	a.log.Infow("Fetched fiat rates", "source", NameFrankfurter, "base", base, "date", result.Date, "count", len(batch.Rates))
	return batch
}

func (a *FrankfurterAdapter) fail(err error) Batch {
	a.log.Warnw("Fiat fallback feed unavailable", "source", NameFrankfurter, "error", err)
	return emptyBatch(NameFrankfurter, KindFiat, a.base, err)
}
