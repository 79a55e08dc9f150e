package service

import (
	"regexp"
	"sort"
	"strings"

	"rateservice/internal/config"
)

var codeRe = regexp.MustCompile(`^[A-Z]{2,5}$`)

// CurrencyKind tells fiat and crypto currencies apart.
type CurrencyKind string

// Currency kinds.
const (
	CurrencyFiat   CurrencyKind = "fiat"
	CurrencyCrypto CurrencyKind = "crypto"
)

// Currency is one entry of the registry.
type Currency struct {
	Code string       `json:"code"`
	Name string       `json:"name"`
	Kind CurrencyKind `json:"kind"`
}

var currencyNames = map[string]string{
	"USD": "US Dollar",
	"EUR": "Euro",
	"GBP": "British Pound Sterling",
	"RUB": "Russian Ruble",
	"JPY": "Japanese Yen",
	"CHF": "Swiss Franc",
	"CNY": "Chinese Yuan",
	"BTC": "Bitcoin",
	"ETH": "Ethereum",
	"SOL": "Solana",
}

// Registry is the set of currencies the service knows about. It is built once from
// configuration and passed explicitly to whoever needs it.
type Registry struct {
	byCode map[string]Currency
}

// NewRegistry creates a registry from fiat and crypto code lists. Codes are upper-cased;
// a code listed in both is kept as fiat.
func NewRegistry(fiat, crypto []string) *Registry {
	r := &Registry{byCode: make(map[string]Currency, len(fiat)+len(crypto))}
	r.add(crypto, CurrencyCrypto)
	r.add(fiat, CurrencyFiat)
	return r
}

// NewRegistryFromConfig creates the registry described by the currencies section.
func NewRegistryFromConfig(cfg config.CurrenciesConfig) *Registry {
	return NewRegistry(cfg.Fiat, cfg.Crypto)
}

func (r *Registry) add(codes []string, kind CurrencyKind) {
	for _, c := range codes {
		code := NormalizeCode(c)
		if !codeRe.MatchString(code) {
			continue
		}
		name, ok := currencyNames[code]
		if !ok {
			name = code
		}
		r.byCode[code] = Currency{Code: code, Name: name, Kind: kind}
	}
}

// NormalizeCode trims and upper-cases a currency code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidCode reports whether code (after normalization) has a currency code shape.
func ValidCode(code string) bool {
	return codeRe.MatchString(NormalizeCode(code))
}

// Resolve normalizes code and returns it if it is registered. A malformed code yields a
// *ValidationError, an unknown one a *CurrencyNotFoundError.
func (r *Registry) Resolve(code string) (string, error) {
	norm := NormalizeCode(code)
	if !codeRe.MatchString(norm) {
		return "", &ValidationError{Field: "currency", Value: code, Reason: "must be 2-5 letters"}
	}
	if _, ok := r.byCode[norm]; !ok {
		return "", &CurrencyNotFoundError{Code: norm}
	}
	return norm, nil
}

// IsSupported reports whether code is registered.
func (r *Registry) IsSupported(code string) bool {
	_, ok := r.byCode[NormalizeCode(code)]
	return ok
}

// Get returns the registry entry for code.
func (r *Registry) Get(code string) (Currency, bool) {
	c, ok := r.byCode[NormalizeCode(code)]
	return c, ok
}

// List returns all currencies, fiat first, each group sorted by code.
func (r *Registry) List() []Currency {
	out := make([]Currency, 0, len(r.byCode))
	for _, c := range r.byCode {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind == CurrencyFiat
		}
		return out[i].Code < out[j].Code
	})
	return out
}

// Len returns the number of registered currencies.
func (r *Registry) Len() int {
	return len(r.byCode)
}
