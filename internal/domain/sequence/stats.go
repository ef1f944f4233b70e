package sequence

import (
	"time"

	"ncfledger/internal/core/ncf"
)

// Stats is the derived read model of a sequence. It is computed from a
// snapshot on demand and never stored.
type Stats struct {
	Total          int64   `json:"total"`
	Used           int64   `json:"used"`
	Available      int64   `json:"available"`
	PercentageUsed float64 `json:"percentageUsed"`
	DaysToExpiry   int     `json:"daysToExpiry"`
	NextNumber     string  `json:"nextNumber,omitempty"`
	LastNumber     string  `json:"lastNumber"`
}

// Total is the size of the inclusive range.
func Total(s Sequence) int64 {
	return s.RangeEnd - s.RangeStart + 1
}

// Used is the count of issued numbers.
func Used(s Sequence) int64 {
	return max(0, s.Cursor-s.RangeStart)
}

// Available is the count of numbers left.
func Available(s Sequence) int64 {
	return max(0, s.RangeEnd-s.Cursor+1)
}

// PercentageUsed is (cursor - rangeStart) / (rangeEnd - rangeStart + 1) * 100.
func PercentageUsed(s Sequence) float64 {
	total := Total(s)
	if total <= 0 {
		return 0
	}
	return float64(Used(s)) / float64(total) * 100
}

// DaysToExpiry is validUntil - today in calendar days; negative once expired.
func DaysToExpiry(s Sequence, today time.Time) int {
	return ncf.DaysBetween(today, s.ValidUntil)
}

// ComputeStats derives every read-model field.
func ComputeStats(s Sequence, today time.Time) Stats {
	st := Stats{
		Total:          Total(s),
		Used:           Used(s),
		Available:      Available(s),
		PercentageUsed: PercentageUsed(s),
		DaysToExpiry:   DaysToExpiry(s, today),
		LastNumber:     ncf.Format(s.Prefix, s.RangeEnd),
	}
	if !s.Exhausted() {
		st.NextNumber = ncf.Format(s.Prefix, s.Cursor)
	}
	return st
}

// Preview shows what a range would issue.
type Preview struct {
	FirstNumber string `json:"firstNumber"`
	LastNumber  string `json:"lastNumber"`
	Quantity    int64  `json:"quantity"`
}

// PreviewOf returns the next and last number and the quantity remaining.
// It is a pure read; only allocation advances the cursor.
func PreviewOf(s Sequence) Preview {
	p := Preview{
		LastNumber: ncf.Format(s.Prefix, s.RangeEnd),
		Quantity:   Available(s),
	}
	if !s.Exhausted() {
		p.FirstNumber = ncf.Format(s.Prefix, s.Cursor)
	}
	return p
}
