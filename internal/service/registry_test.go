package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rateservice/internal/config"
)

func TestRegistry_Resolve(t *testing.T) {
	r := testRegistry()

	code, err := r.Resolve(" btc ")
	require.NoError(t, err)
	assert.Equal(t, "BTC", code)

	_, err = r.Resolve("B1C")
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.ErrorIs(t, err, ErrValidation)
	assert.NotErrorIs(t, err, ErrCurrencyNotFound)

	_, err = r.Resolve("XRP")
	var nfErr *CurrencyNotFoundError
	require.ErrorAs(t, err, &nfErr)
	assert.Equal(t, "XRP", nfErr.Code)
	assert.ErrorIs(t, err, ErrCurrencyNotFound)
	assert.ErrorIs(t, err, ErrInvalidCurrency)
}

func TestRegistry_CodeFormat(t *testing.T) {
	r := NewRegistry([]string{"USD", "toolong", "X1"}, []string{"DOGE"})
	assert.True(t, r.IsSupported("usd"))
	assert.True(t, r.IsSupported("DOGE"))
	assert.False(t, r.IsSupported("TOOLONG"))
	assert.Equal(t, 2, r.Len())

	for _, code := range []string{"", "A", "ABCDEF", "US$", "12"} {
		_, err := r.Resolve(code)
		assert.True(t, errors.Is(err, ErrValidation), code)
	}
}

func TestRegistry_List(t *testing.T) {
	r := NewRegistryFromConfig(config.CurrenciesConfig{
		Fiat:   []string{"USD", "EUR"},
		Crypto: []string{"SOL", "BTC"},
	})

	list := r.List()
	require.Len(t, list, 4)
	assert.Equal(t, []string{"EUR", "USD", "BTC", "SOL"}, []string{list[0].Code, list[1].Code, list[2].Code, list[3].Code})
	assert.Equal(t, CurrencyFiat, list[0].Kind)
	assert.Equal(t, "Euro", list[0].Name)
	assert.Equal(t, CurrencyCrypto, list[3].Kind)

	c, ok := r.Get("btc")
	require.True(t, ok)
	assert.Equal(t, "Bitcoin", c.Name)
}

func TestErrors_Matching(t *testing.T) {
	stale := &StaleRatesError{Pair: "BTC_USD", LastUpdated: "2025-10-09T12:00:00Z"}
	assert.ErrorIs(t, stale, ErrStaleRates)
	assert.Contains(t, stale.Error(), "BTC_USD")

	up := &UpstreamFetchError{Err: errBoom}
	assert.ErrorIs(t, up, ErrUpstreamFetchFailed)
	assert.ErrorIs(t, up, errBoom)

	nf := &CurrencyNotFoundError{Code: "BTC", Pair: "BTC_RUB"}
	assert.Equal(t, "rate for BTC_RUB not found", nf.Error())
}
