package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"rateservice/internal/service"
)

// RefreshEnqueuer queues a refresh cycle for a background worker.
type RefreshEnqueuer interface {
	EnqueueRefresh(ctx context.Context, filter service.SourceFilter) (string, error)
}

// RateResponse represents a single resolved rate
type RateResponse struct {
	From      string  `json:"from" example:"BTC"`
	To        string  `json:"to" example:"USD"`
	Pair      string  `json:"pair" example:"BTC_USD"`
	Rate      float64 `json:"rate" example:"59337.21"`
	UpdatedAt string  `json:"updated_at" example:"2025-10-09T12:00:00.000000Z"`
	Source    string  `json:"source" example:"coingecko"`
	Inverted  bool    `json:"inverted" example:"false"`
}

// AllRatesResponse represents the cached rates after filtering. Items carries the same
// rates as Rates in listing order.
type AllRatesResponse struct {
	Rates map[string]float64 `json:"rates"`
	Items []service.PairRate `json:"items"`
	Count int                `json:"count" example:"6"`
}

// RefreshRequest represents the body of a refresh request
type RefreshRequest struct {
	Source string `json:"source" example:"all" enums:"all,crypto,fiat"`
	Async  bool   `json:"async" example:"false"`
}

// RefreshResponse represents the outcome of a synchronous refresh
type RefreshResponse struct {
	OK           bool           `json:"ok" example:"true"`
	UpdatedPairs int            `json:"updated_pairs" example:"6"`
	LastRefresh  string         `json:"last_refresh" example:"2025-10-09T12:00:00.000000Z"`
	Warnings     []string       `json:"warnings"`
	Sources      map[string]int `json:"sources"`
}

// RefreshQueuedResponse represents an accepted asynchronous refresh
type RefreshQueuedResponse struct {
	TaskID string `json:"task_id" example:"3f0c3d1e-8a51-4d6e-9a55-1f3c9e2b7c10"`
	Source string `json:"source" example:"all"`
	Status string `json:"status" example:"queued"`
}

// CurrenciesResponse represents the currency registry
type CurrenciesResponse struct {
	Currencies []service.Currency `json:"currencies"`
}

// HandleGetRate godoc
// @Summary Get exchange rate
// @Description Returns the rate from one currency to another. Uses the cached pair or its inverted reverse pair; a missing or stale pair triggers one synchronous refresh from the upstream feeds.
// @Tags rates
// @Produce json
// @Param from path string true "Source currency code" minlength(2) maxlength(5)
// @Param to query string false "Target currency code, defaults to the configured base" minlength(2) maxlength(5)
// @Success 200 {object} RateResponse "Rate found"
// @Failure 400 {object} ErrorResponse "Malformed currency code"
// @Failure 404 {object} ErrorResponse "Unknown currency or no rate for the pair"
// @Failure 502 {object} ErrorResponse "Refresh from upstream failed"
// @Failure 503 {object} ErrorResponse "Rate is stale"
// @Failure 500 {object} ErrorResponse "Internal error"
// @Router /rates/{from} [get]
func HandleGetRate(svc service.RateReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from := chi.URLParam(r, "from")
		to := r.URL.Query().Get("to")

		q, err := svc.GetRate(r.Context(), from, to)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, RateResponse{
			From:      q.From,
			To:        q.To,
			Pair:      q.From + "_" + q.To,
			Rate:      q.Rate,
			UpdatedAt: q.UpdatedAt,
			Source:    q.Source,
			Inverted:  q.Inverted,
		})
	}
}

// HandleGetAllRates godoc
// @Summary List cached rates
// @Description Returns cached CODE_USD rates. Reverse pairs are not derived and no refresh is triggered. Optional filters keep one currency, re-quote against another base through its USD rate, or keep the top N crypto rates.
// @Tags rates
// @Produce json
// @Param currency query string false "Keep only pairs of this currency" minlength(2) maxlength(5)
// @Param base query string false "Re-quote rates against this currency" minlength(2) maxlength(5)
// @Param top query int false "Keep the N highest crypto rates" minimum(1)
// @Success 200 {object} AllRatesResponse "Cached rates"
// @Failure 400 {object} ErrorResponse "Malformed filter"
// @Failure 404 {object} ErrorResponse "Unknown currency or no cached rate for it"
// @Failure 500 {object} ErrorResponse "Internal error"
// @Router /rates [get]
func HandleGetAllRates(svc service.RateReader, registry *service.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		filter := service.RatesFilter{
			Currency: query.Get("currency"),
			Base:     query.Get("base"),
		}
		if raw := query.Get("top"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				writeServiceError(w, &service.ValidationError{Field: "top", Value: raw, Reason: "must be a positive integer"})
				return
			}
			filter.Top = n
		}

		rates, err := svc.GetAllRates(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		items, err := registry.FilterRates(rates, filter)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		byPair := make(map[string]float64, len(items))
		for _, it := range items {
			byPair[it.Pair] = it.Rate
		}
		writeJSON(w, http.StatusOK, AllRatesResponse{Rates: byPair, Items: items, Count: len(items)})
	}
}

// HandleRefresh godoc
// @Summary Refresh rates
// @Description Runs one refresh cycle against the selected feeds. With async=true the cycle is queued for the background worker and 202 is returned.
// @Tags rates
// @Accept json
// @Produce json
// @Param request body RefreshRequest false "Feeds to refresh"
// @Success 200 {object} RefreshResponse "Refresh finished"
// @Success 202 {object} RefreshQueuedResponse "Refresh queued"
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Failure 502 {object} ErrorResponse "Refresh failed"
// @Failure 503 {object} ErrorResponse "Background worker unavailable"
// @Router /rates/refresh [post]
func HandleRefresh(refresher service.Refresher, enqueuer RefreshEnqueuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RefreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON"})
			return
		}
		filter, err := service.ParseSourceFilter(req.Source)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		if req.Async {
			if enqueuer == nil {
				writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "background worker is disabled"})
				return
			}
			taskID, err := enqueuer.EnqueueRefresh(r.Context(), filter)
			if err != nil {
				writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Internal queue error"})
				return
			}
			writeJSON(w, http.StatusAccepted, RefreshQueuedResponse{TaskID: taskID, Source: string(filter), Status: "queued"})
			return
		}

		res, err := refresher.RunCycle(r.Context(), filter)
		if err != nil {
			writeServiceError(w, &service.UpstreamFetchError{Err: err})
			return
		}

		sources := make(map[string]int, len(res.Sources))
		for k, v := range res.Sources {
			sources[string(k)] = v
		}
		writeJSON(w, http.StatusOK, RefreshResponse{
			OK:           res.OK,
			UpdatedPairs: res.UpdatedPairs,
			LastRefresh:  res.LastRefresh,
			Warnings:     res.Warnings,
			Sources:      sources,
		})
	}
}

// HandleListCurrencies godoc
// @Summary List supported currencies
// @Description Returns the currency registry, fiat first.
// @Tags currencies
// @Produce json
// @Success 200 {object} CurrenciesResponse "Registered currencies"
// @Router /currencies [get]
func HandleListCurrencies(registry *service.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, CurrenciesResponse{Currencies: registry.List()})
	}
}
