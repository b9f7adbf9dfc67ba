package domain

import (
	"fmt"
	"strings"
	"time"
)

// Cadence is the bucketing granularity of a time series.
type Cadence string

const (
	CadenceDay   Cadence = "day"
	CadenceWeek  Cadence = "week"
	CadenceMonth Cadence = "month"
	CadenceYear  Cadence = "year"
)

// ParseCadence normalizes a user-supplied cadence string.
func ParseCadence(s string) (Cadence, error) {
	switch Cadence(strings.ToLower(strings.TrimSpace(s))) {
	case CadenceDay, "daily", "d":
		return CadenceDay, nil
	case CadenceWeek, "weekly", "w":
		return CadenceWeek, nil
	case CadenceMonth, "monthly", "m":
		return CadenceMonth, nil
	case CadenceYear, "yearly", "y":
		return CadenceYear, nil
	}
	return "", fmt.Errorf("unknown cadence %q", s)
}

// Truncate maps a timestamp onto the start of its bucket. Weeks start
// on Monday; all buckets are anchored at midnight UTC.
func (c Cadence) Truncate(t time.Time) time.Time {
	t = t.UTC()
	y, m, d := t.Date()
	switch c {
	case CadenceWeek:
		day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case CadenceMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	case CadenceYear:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
}

// Next returns the start of the bucket following t.
func (c Cadence) Next(t time.Time) time.Time {
	switch c {
	case CadenceWeek:
		return t.AddDate(0, 0, 7)
	case CadenceMonth:
		return t.AddDate(0, 1, 0)
	case CadenceYear:
		return t.AddDate(1, 0, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}

// SeasonalLag is the cadence-specific lag distance used for feature
// engineering: a week of days, a month of weeks, a quarter of months,
// two years for yearly series.
func (c Cadence) SeasonalLag() int {
	switch c {
	case CadenceWeek:
		return 4
	case CadenceMonth:
		return 3
	case CadenceYear:
		return 2
	default:
		return 7
	}
}

// MinBuckets is the minimum history length required before the boosted
// engine is allowed to train on this cadence.
func (c Cadence) MinBuckets() int {
	switch c {
	case CadenceWeek:
		return 26
	case CadenceMonth:
		return 12
	case CadenceYear:
		return 3
	default:
		return 90
	}
}

// MaxZeroRatio is the highest tolerated fraction of zero-demand buckets
// before a product is treated as intermittent and excluded from the
// boosted engine.
func (c Cadence) MaxZeroRatio() float64 {
	if c == CadenceYear {
		return 0.7
	}
	return 0.6
}

// DefaultHorizon is the forecast horizon used when a caller does not
// request one.
func (c Cadence) DefaultHorizon() int {
	switch c {
	case CadenceWeek:
		return 4
	case CadenceMonth:
		return 3
	case CadenceYear:
		return 1
	default:
		return 7
	}
}
