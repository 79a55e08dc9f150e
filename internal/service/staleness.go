package service

import (
	"errors"
	"strings"
	"time"
)

// timestampLayout is what the coordinator writes: UTC with microseconds.
const timestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// Accepted ISO-8601 forms. Layouts without a zone parse as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

var errEmptyTimestamp = errors.New("empty timestamp")

// FormatTimestamp renders t the way it is stored in the cache.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// ParseTimestamp parses an ISO-8601 timestamp. Values without a zone are UTC and a
// trailing Z means UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errEmptyTimestamp
	}
	var firstErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// IsStale reports whether updatedAt is older than ttl at now. Missing or unparsable
// timestamps are stale; an age of exactly ttl is not.
func IsStale(updatedAt string, now time.Time, ttl time.Duration) bool {
	t, err := ParseTimestamp(updatedAt)
	if err != nil {
		return true
	}
	return now.Sub(t) > ttl
}
