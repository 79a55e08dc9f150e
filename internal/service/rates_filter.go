package service

import (
	"sort"
	"strings"

	"rateservice/internal/repository"
)

// RatesFilter narrows a GetAllRates result. Zero values disable each filter.
type RatesFilter struct {
	Currency string // keep only CURRENCY_* pairs
	Base     string // re-quote CODE_USD pairs against Base through BASE_USD
	Top      int    // keep crypto pairs only, highest rate first, at most Top of them
}

// PairRate is one entry of a filtered rate listing.
type PairRate struct {
	Pair string  `json:"pair" example:"BTC_USD"`
	Rate float64 `json:"rate" example:"59337.21"`
}

// FilterRates applies f to rates (pair key -> rate, as returned by GetAllRates). The
// result is ordered by pair key, or by rate descending when Top is set.
func (r *Registry) FilterRates(rates map[string]float64, f RatesFilter) ([]PairRate, error) {
	selected := rates

	if strings.TrimSpace(f.Currency) != "" {
		code, err := r.Resolve(f.Currency)
		if err != nil {
			return nil, err
		}
		selected = make(map[string]float64)
		for pair, rate := range rates {
			if strings.HasPrefix(pair, code+"_") {
				selected[pair] = rate
			}
		}
		if len(selected) == 0 {
			return nil, &CurrencyNotFoundError{Code: code, Pair: repository.PairKey(code, "USD")}
		}
	}

	if strings.TrimSpace(f.Base) != "" {
		base, err := r.Resolve(f.Base)
		if err != nil {
			return nil, err
		}
		if base != "USD" {
			// the base leg is looked up in the unfiltered set
			basePair := repository.PairKey(base, "USD")
			baseRate, ok := rates[basePair]
			if !ok || baseRate <= 0 {
				return nil, &CurrencyNotFoundError{Code: base, Pair: basePair}
			}
			converted := make(map[string]float64, len(selected))
			for pair, rate := range selected {
				code, to, err := repository.SplitPairKey(pair)
				if err != nil || to != "USD" || code == base {
					continue
				}
				converted[repository.PairKey(code, base)] = rate / baseRate
			}
			selected = converted
		}
	}

	out := make([]PairRate, 0, len(selected))
	for pair, rate := range selected {
		out = append(out, PairRate{Pair: pair, Rate: rate})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pair < out[j].Pair })

	if f.Top > 0 {
		crypto := out[:0]
		for _, pr := range out {
			code, _, err := repository.SplitPairKey(pr.Pair)
			if err != nil {
				continue
			}
			if c, ok := r.Get(code); ok && c.Kind == CurrencyCrypto {
				crypto = append(crypto, pr)
			}
		}
		sort.SliceStable(crypto, func(i, j int) bool { return crypto[i].Rate > crypto[j].Rate })
		if len(crypto) > f.Top {
			crypto = crypto[:f.Top]
		}
		out = crypto
	}
	return out, nil
}
