package service

import (
	"time"

	"rateservice/internal/metrics"
)

// Clock returns the current time.
type Clock func() time.Time

type options struct {
	clock   Clock
	metrics *metrics.RateMetrics
}

func defaultOptions() options {
	return options{clock: time.Now}
}

// Option configures a RefreshCoordinator or a RateResolver.
type Option func(*options)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithMetrics records cycle and lookup metrics into m.
func WithMetrics(m *metrics.RateMetrics) Option {
	return func(o *options) { o.metrics = m }
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
