package provider

import (
	"context"
	"strings"
)

var _ SourceAdapter = (*FallbackAdapter)(nil)

// FallbackAdapter calls adapters of the same kind in order until one returns data.
// Warnings from the adapters that came up empty are kept on the returned batch.
type FallbackAdapter struct {
	adapters []SourceAdapter
}

// NewFallbackAdapter creates a new FallbackAdapter. The first adapter decides the kind.
func NewFallbackAdapter(adapters ...SourceAdapter) *FallbackAdapter {
	return &FallbackAdapter{adapters: adapters}
}

// Name joins the names of the wrapped adapters.
func (f *FallbackAdapter) Name() string {
	names := make([]string, 0, len(f.adapters))
	for _, a := range f.adapters {
		names = append(names, a.Name())
	}
	return strings.Join(names, "|")
}

// Kind implements SourceAdapter.
func (f *FallbackAdapter) Kind() Kind {
	if len(f.adapters) == 0 {
		return ""
	}
	return f.adapters[0].Kind()
}

// FetchQuotes returns the first non-empty batch.
func (f *FallbackAdapter) FetchQuotes(ctx context.Context) Batch {
	var warnings []string
	for _, a := range f.adapters {
		b := a.FetchQuotes(ctx)
		if !b.Empty() {
			b.Warnings = append(warnings, b.Warnings...)
			return b
		}
		warnings = append(warnings, b.Warnings...)
	}
	return Batch{Source: f.Name(), Kind: f.Kind(), Warnings: warnings}
}
