package ncf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestState_CanTransition(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateActive, StateInactive, true},
		{StateInactive, StateActive, true},
		{StateActive, StateExpired, true},
		{StateActive, StateDepleted, true},
		{StateInactive, StateExpired, false},
		{StateExpired, StateActive, false},
		{StateDepleted, StateActive, false},
		{StateDepleted, StateInactive, false},
		{StateExpired, StateDepleted, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestDocumentType_Codes(t *testing.T) {
	assert.Equal(t, "01", DocInvoice.Code())
	assert.Equal(t, "04", DocCreditNote.Code())
	assert.Equal(t, "B02", DocInvoiceConsumer.SuggestedPrefix())

	seen := map[string]bool{}
	for _, dt := range DocumentTypes() {
		assert.True(t, dt.Valid())
		assert.Len(t, dt.Code(), 2)
		assert.False(t, seen[dt.Code()], "duplicate code %s", dt.Code())
		seen[dt.Code()] = true
	}

	_, err := ParseDocumentType("receipt")
	assert.Error(t, err)
	dt, err := ParseDocumentType(" Credit_Note ")
	assert.NoError(t, err)
	assert.Equal(t, DocCreditNote, dt)
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2026, 10, 15, 23, 59, 0, 0, time.UTC)
	b := time.Date(2026, 11, 14, 0, 1, 0, 0, time.UTC)
	assert.Equal(t, 30, DaysBetween(a, b))
	assert.Equal(t, -1, DaysBetween(a, a.AddDate(0, 0, -1)))
	assert.Equal(t, time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC), EndOfYear(a))
}
