package util

import "time"

// NowUTC exposes time.Now for deterministic testing.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// DayKey formats t as the UTC calendar day used for daily counters.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// DaysBetween returns the whole days elapsed from earlier to later, never negative.
func DaysBetween(earlier, later time.Time) int {
	if later.Before(earlier) {
		return 0
	}
	return int(later.Sub(earlier).Hours() / 24)
}
