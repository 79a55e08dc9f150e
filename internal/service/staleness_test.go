package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2025, 10, 9, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-10-09T12:00:00Z", want},
		{"2025-10-09T12:00:00+00:00", want},
		{"2025-10-09T15:00:00+03:00", want},
		{"2025-10-09T12:00:00", want},
		{"2025-10-09 12:00:00", want},
		{"2025-10-09T12:00:00.000000Z", want},
		{"2025-10-09T12:00:00.250000", want.Add(250 * time.Millisecond)},
		{" 2025-10-09T12:00:00Z ", want},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseTimestamp(tc.in)
			require.NoError(t, err)
			assert.True(t, tc.want.Equal(got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestParseTimestamp_Invalid(t *testing.T) {
	for _, in := range []string{"", "yesterday", "2025-13-45T00:00:00Z", "1700000000"} {
		_, err := ParseTimestamp(in)
		assert.Error(t, err, in)
	}
}

func TestFormatTimestamp_RoundTrip(t *testing.T) {
	in := time.Date(2025, 10, 9, 15, 4, 5, 123456000, time.FixedZone("MSK", 3*3600))
	s := FormatTimestamp(in)
	assert.Equal(t, "2025-10-09T12:04:05.123456Z", s)

	got, err := ParseTimestamp(s)
	require.NoError(t, err)
	assert.True(t, in.Equal(got))
}

func TestIsStale(t *testing.T) {
	ttl := 300 * time.Second
	now := t0.Add(ttl)
	tests := []struct {
		name      string
		updatedAt string
		want      bool
	}{
		{"age below ttl", FormatTimestamp(t0.Add(time.Second)), false},
		{"age exactly ttl", FormatTimestamp(t0), false},
		{"age just above ttl", FormatTimestamp(t0.Add(-time.Microsecond)), true},
		{"naive timestamp is utc", "2025-10-09T12:00:00", false},
		{"missing", "", true},
		{"unparsable", "not-a-date", true},
		{"future timestamp", FormatTimestamp(now.Add(time.Hour)), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsStale(tc.updatedAt, now, ttl))
		})
	}
}
