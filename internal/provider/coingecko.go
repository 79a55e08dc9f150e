package provider

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"go.uber.org/zap"
)

var _ SourceAdapter = (*CoinGeckoAdapter)(nil)

// CoinGeckoAdapter fetches USD prices of crypto currencies from the CoinGecko simple price API.
type CoinGeckoAdapter struct {
	baseURL string
	apiKey  string
	ids     map[string]string // currency code -> coin id
	http    httpSource
	log     *zap.SugaredLogger
}

// NewCoinGeckoAdapter creates a new CoinGeckoAdapter. ids maps internal codes to coin ids.
func NewCoinGeckoAdapter(baseURL, apiKey string, ids map[string]string, timeoutSec, requestsPerMinute int, logger *zap.SugaredLogger) *CoinGeckoAdapter {
	if baseURL == "" {
		baseURL = "https://api.coingecko.com/api/v3"
	}
	codes := make(map[string]string, len(ids))
	for code, id := range ids {
		codes[strings.ToUpper(code)] = id
	}
	return &CoinGeckoAdapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		ids:     codes,
		http:    newHTTPSource(timeoutSec, requestsPerMinute),
		log:     logger,
	}
}

// Name implements SourceAdapter.
func (a *CoinGeckoAdapter) Name() string { return NameCoinGecko }

// Kind implements SourceAdapter.
func (a *CoinGeckoAdapter) Kind() Kind { return KindCrypto }

// coingecko simple/price response: coin id -> vs currency -> price
type coinGeckoResponse map[string]map[string]float64

// FetchQuotes returns code -> USD price for every configured coin the API priced.
func (a *CoinGeckoAdapter) FetchQuotes(ctx context.Context) Batch {
	if len(a.ids) == 0 {
		return a.fail(errors.New("no coin ids configured"))
	}

	coinIDs := make([]string, 0, len(a.ids))
	for _, id := range a.ids {
		coinIDs = append(coinIDs, id)
	}
	sort.Strings(coinIDs)

	q := url.Values{}
	q.Set("ids", strings.Join(coinIDs, ","))
	q.Set("vs_currencies", "usd")
	reqURL := a.baseURL + "/simple/price?" + q.Encode()

	var header http.Header
	if a.apiKey != "" {
		header = http.Header{"x-cg-demo-api-key": []string{a.apiKey}}
	}

	var result coinGeckoResponse
	if err := a.http.getJSON(ctx, reqURL, header, &result); err != nil {
		return a.fail(err)
	}

	batch := Batch{
		Source: NameCoinGecko,
		Kind:   KindCrypto,
		Base:   "USD",
		Rates:  make(map[string]float64, len(a.ids)),
		RawIDs: make(map[string]string, len(a.ids)),
	}
	for code, id := range a.ids {
		prices, ok := result[id]
		if !ok {
			continue
		}
		if v, ok := prices["usd"]; ok && usableRate(v) {
			batch.Rates[code] = v
			batch.RawIDs[code] = id
		}
	}
	if batch.Empty() {
		return a.fail(errors.New("no usable prices in response"))
	}

	a.log.Infow("Fetched crypto rates", "source", NameCoinGecko, "count", len(batch.Rates))
	return batch
}

func (a *CoinGeckoAdapter) fail(err error) Batch {
	a.log.Warnw("Crypto feed unavailable", "source", NameCoinGecko, "error", err)
	return emptyBatch(NameCoinGecko, KindCrypto, "USD", err)
}
