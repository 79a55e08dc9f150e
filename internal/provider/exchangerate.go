package provider

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

var _ SourceAdapter = (*ExchangeRateAdapter)(nil)

// ErrMissingAPIKey is reported when the fiat feed has no credential configured.
var ErrMissingAPIKey = errors.New("API key is not configured")

// ExchangeRateAdapter fetches a base-denominated fiat table from ExchangeRate-API (v6).
// Rates are returned as the upstream quotes them: units of code per one unit of base.
type ExchangeRateAdapter struct {
	baseURL    string
	apiKey     string
	base       string
	currencies map[string]struct{}
	http       httpSource
	log        *zap.SugaredLogger
}

// NewExchangeRateAdapter creates a new ExchangeRateAdapter. An empty currencies list keeps
// every code in the upstream table.
func NewExchangeRateAdapter(baseURL, apiKey, base string, currencies []string, timeoutSec, requestsPerMinute int, logger *zap.SugaredLogger) *ExchangeRateAdapter {
	if baseURL == "" {
		baseURL = "https://v6.exchangerate-api.com/v6"
	}
	if base == "" {
		base = "USD"
	}
	return &ExchangeRateAdapter{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		base:       strings.ToUpper(base),
		currencies: codeSet(currencies),
		http:       newHTTPSource(timeoutSec, requestsPerMinute),
		log:        logger,
	}
}

// Name implements SourceAdapter.
func (a *ExchangeRateAdapter) Name() string { return NameExchangeRate }

// Kind implements SourceAdapter.
func (a *ExchangeRateAdapter) Kind() Kind { return KindFiat }

type exchangeRateResponse struct {
	Result          string             `json:"result"`
	ErrorType       string             `json:"error-type"`
	BaseCode        string             `json:"base_code"`
	ConversionRates map[string]float64 `json:"conversion_rates"`
}

// FetchQuotes returns the latest table for the configured base.
func (a *ExchangeRateAdapter) FetchQuotes(ctx context.Context) Batch {
	if a.apiKey == "" {
		return a.fail(ErrMissingAPIKey)
	}

	reqURL := fmt.Sprintf("%s/%s/latest/%s", a.baseURL, url.PathEscape(a.apiKey), url.PathEscape(a.base))

	var result exchangeRateResponse
	if err := a.http.getJSON(ctx, reqURL, nil, &result); err != nil {
		return a.fail(err)
	}
	if result.Result != "success" {
		return a.fail(fmt.Errorf("upstream result %q: %s", result.Result, result.ErrorType))
	}

	base := strings.ToUpper(result.BaseCode)
	if base == "" {
		base = a.base
	}
	batch := Batch{
		Source: NameExchangeRate,
		Kind:   KindFiat,
		Base:   base,
		Rates:  filterRates(result.ConversionRates, a.currencies),
	}
	if batch.Empty() {
		return a.fail(errors.New("no usable rates in response"))
	}

	a.log.Infow("Fetched fiat rates", "source", NameExchangeRate, "base", base, "count", len(batch.Rates))
	return batch
}

func (a *ExchangeRateAdapter) fail(err error) Batch {
	a.log.Warnw("Fiat feed unavailable", "source", NameExchangeRate, "error", err)
	return emptyBatch(NameExchangeRate, KindFiat, a.base, err)
}

func codeSet(codes []string) map[string]struct{} {
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		if c = strings.ToUpper(strings.TrimSpace(c)); c != "" {
			set[c] = struct{}{}
		}
	}
	return set
}

// filterRates keeps usable rates, restricted to allowed when it is non-empty.
func filterRates(in map[string]float64, allowed map[string]struct{}) map[string]float64 {
	out := make(map[string]float64, len(in))
	for code, v := range in {
		code = strings.ToUpper(code)
		if len(allowed) > 0 {
			if _, ok := allowed[code]; !ok {
				continue
			}
		}
		if usableRate(v) {
			out[code] = v
		}
	}
	return out
}
