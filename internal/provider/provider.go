// Package provider implements the upstream rate feeds (crypto and fiat) behind a single
// SourceAdapter interface.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Kind tags an adapter as a crypto or a fiat feed.
type Kind string

// Adapter kinds.
const (
	KindCrypto Kind = "crypto"
	KindFiat   Kind = "fiat"
)

// Adapter names used as the source tag on stored quotes.
const (
	NameCoinGecko    = "coingecko"
	NameExchangeRate = "exchangerate"
	NameFrankfurter  = "frankfurter"
)

// Batch is the result of one FetchQuotes call. Rates maps a currency code to its rate
// against Base, exactly as the upstream reported it. An empty Rates map means the feed
// produced no data this cycle; Warnings then says why.
type Batch struct {
	Source   string             `json:"source"`
	Kind     Kind               `json:"kind"`
	Base     string             `json:"base"`
	Rates    map[string]float64 `json:"rates"`
	RawIDs   map[string]string  `json:"raw_ids,omitempty"`
	Warnings []string           `json:"-"`
}

// Empty reports whether the batch carries no rates.
func (b Batch) Empty() bool {
	return len(b.Rates) == 0
}

// SourceAdapter pulls quotes from one upstream. FetchQuotes never fails: network errors,
// bad statuses, malformed payloads and missing credentials all yield an empty Batch with
// a warning.
type SourceAdapter interface {
	Name() string
	Kind() Kind
	FetchQuotes(ctx context.Context) Batch
}

func emptyBatch(name string, kind Kind, base string, err error) Batch {
	return Batch{
		Source:   name,
		Kind:     kind,
		Base:     base,
		Warnings: []string{fmt.Sprintf("%s: %v", name, err)},
	}
}

// httpSource is the request plumbing shared by the HTTP adapters: a client with a fixed
// timeout, an optional request-rate limiter and no retries.
type httpSource struct {
	client  *http.Client
	limiter *rate.Limiter
	timeout time.Duration
}

func newHTTPSource(timeoutSec, requestsPerMinute int) httpSource {
	timeout := time.Duration(timeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	h := httpSource{
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
	if requestsPerMinute > 0 {
		h.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 5)
	}
	return h
}

// getJSON performs a single GET and decodes a 2xx JSON body into out.
func (h httpSource) getJSON(ctx context.Context, reqURL string, header http.Header, out any) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	if h.limiter != nil {
		if err := h.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("request creation failed: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("upstream returned status %d: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func usableRate(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
