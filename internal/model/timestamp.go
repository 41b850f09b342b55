package model

import (
	"strings"
	"time"

	"github.com/iliyamo/study-spot-reservation/internal/errs"
)

// TimestampLayout is the wire format for reservation bounds: a local
// date-time without offset.
const TimestampLayout = "2006-01-02T15:04:05"

var timestampLayouts = []string{
	TimestampLayout,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseTimestamp parses a naive local timestamp in loc. Seconds are
// optional and a space may replace the 'T'. Any offset suffix is rejected
// so that all comparisons stay in one location.
func ParseTimestamp(field, s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errs.Validation(field, "%s is required", field)
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errs.Validation(field, "%s must be a local date-time like 2024-05-01T14:00:00", field)
}

// ParseDateAndClock combines a YYYY-MM-DD date with an HH:MM[:SS] clock
// time, as sent by the occupied-seats query.
func ParseDateAndClock(field, date, clock string, loc *time.Location) (time.Time, error) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	if date == "" || clock == "" {
		return time.Time{}, errs.Validation(field, "%s date and time are required", field)
	}
	return ParseTimestamp(field, date+"T"+clock, loc)
}

// FormatTimestamp renders t in the wire format.
func FormatTimestamp(t time.Time) string { return t.Format(TimestampLayout) }

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
