package ncf

import "time"

// Day truncates t to midnight UTC. Validity windows, eligibility checks and
// alert math compare calendar days, never instants.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole calendar days from a to b (b - a).
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// EndOfYear returns December 31 of t's year.
func EndOfYear(t time.Time) time.Time {
	return time.Date(t.Year(), time.December, 31, 0, 0, 0, 0, time.UTC)
}

// Clock returns the current time. Services take one so tests can pin today.
type Clock func() time.Time

// SystemClock is the wall clock.
func SystemClock() time.Time { return time.Now().UTC() }
