// Package timeutil converts between CloudWatch epoch timestamps and ISO-8601 strings.
package timeutil

import (
	"strings"
	"time"

	"github.com/tareqmamari/cloudwatch-logs-mcp-server/internal/errors"
)

const (
	isoSeconds = "2006-01-02T15:04:05-07:00"
	isoMicros  = "2006-01-02T15:04:05.000000-07:00"
)

// inputLayouts are tried in order; layouts without an offset parse as UTC.
var inputLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999-0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Four-digit years bound what the ISO-8601 layouts can render and parse back.
var (
	minEpochMillis = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	maxEpochMillis = time.Date(9999, time.December, 31, 23, 59, 59, 999_000_000, time.UTC).UnixMilli()
)

// EpochMillisToISO8601 renders epoch milliseconds as UTC ISO-8601 with an
// explicit "+00:00" offset. Microseconds are emitted only when non-zero.
// Values outside years 0001-9999 are clamped to the nearest end of that range.
func EpochMillisToISO8601(ms int64) string {
	if ms < minEpochMillis {
		ms = minEpochMillis
	} else if ms > maxEpochMillis {
		ms = maxEpochMillis
	}
	t := time.UnixMilli(ms).UTC()
	if t.Nanosecond() != 0 {
		return t.Format(isoMicros)
	}
	return t.Format(isoSeconds)
}

// ParseISO8601 parses an ISO-8601 timestamp. A missing offset means UTC.
func ParseISO8601(s string) (time.Time, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return time.Time{}, errors.InvalidParameter("invalid ISO-8601 timestamp: empty string")
	}
	for _, layout := range inputLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.InvalidParameter("invalid ISO-8601 timestamp: %q", s)
}

// ISO8601ToEpochSeconds returns the epoch seconds of s, truncating any
// fractional part toward the earlier second.
func ISO8601ToEpochSeconds(s string) (int64, error) {
	t, err := ParseISO8601(s)
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}
