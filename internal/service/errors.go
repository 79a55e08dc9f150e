package service

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation error")
	// ErrCurrencyNotFound is returned when a currency or a pair is unknown.
	ErrCurrencyNotFound = errors.New("currency not found")
	// ErrInvalidCurrency is an alias matched by *CurrencyNotFoundError as well.
	ErrInvalidCurrency = errors.New("invalid currency")
	// ErrStaleRates is returned when a rate is still stale after a refresh.
	ErrStaleRates = errors.New("rates are stale")
	// ErrUpstreamFetchFailed is returned when a refresh cycle fails.
	ErrUpstreamFetchFailed = errors.New("upstream fetch failed")
)

// ValidationError reports malformed input.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// CurrencyNotFoundError reports an unregistered code, or a pair with no rate when Pair is set.
type CurrencyNotFoundError struct {
	Code string
	Pair string
}

func (e *CurrencyNotFoundError) Error() string {
	if e.Pair != "" {
		return fmt.Sprintf("rate for %s not found", e.Pair)
	}
	return fmt.Sprintf("unknown currency %q", e.Code)
}

// Is matches both ErrCurrencyNotFound and ErrInvalidCurrency.
func (e *CurrencyNotFoundError) Is(target error) bool {
	return target == ErrCurrencyNotFound || target == ErrInvalidCurrency
}

// StaleRatesError reports a rate whose age exceeds the TTL even after a refresh.
type StaleRatesError struct {
	Pair        string
	LastUpdated string
}

func (e *StaleRatesError) Error() string {
	if e.LastUpdated == "" {
		return fmt.Sprintf("rate for %s is stale: no update time", e.Pair)
	}
	return fmt.Sprintf("rate for %s is stale: last updated %s", e.Pair, e.LastUpdated)
}

func (e *StaleRatesError) Unwrap() error { return ErrStaleRates }

// UpstreamFetchError wraps a refresh cycle failure.
type UpstreamFetchError struct {
	Err error
}

func (e *UpstreamFetchError) Error() string {
	return fmt.Sprintf("%v: %v", ErrUpstreamFetchFailed, e.Err)
}

func (e *UpstreamFetchError) Is(target error) bool { return target == ErrUpstreamFetchFailed }

func (e *UpstreamFetchError) Unwrap() error { return e.Err }
