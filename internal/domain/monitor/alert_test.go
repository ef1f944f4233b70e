package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ncfledger/internal/core/id"
	"ncfledger/internal/core/ncf"
	"ncfledger/internal/domain/owner"
	"ncfledger/internal/domain/sequence"
)

var today = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

func active(cursor int64, validUntil time.Time) sequence.Sequence {
	return sequence.Sequence{
		ID:           id.New(),
		Prefix:       "B01",
		DocumentType: ncf.DocInvoice,
		RangeStart:   1,
		RangeEnd:     100,
		Cursor:       cursor,
		ValidUntil:   validUntil,
		State:        ncf.StateActive,
	}
}

func kinds(alerts []Alert) []Kind {
	out := make([]Kind, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, a.Kind)
	}
	return out
}

func TestEvaluate_LowAvailability(t *testing.T) {
	th := Thresholds{AlertDays: 30, LowAvailability: 90}
	farAway := today.AddDate(1, 0, 0)

	alerts := Evaluate(active(92, farAway), today, th)
	require.Len(t, alerts, 1)
	assert.Equal(t, KindLowAvailability, alerts[0].Kind)
	assert.InDelta(t, 91.0, alerts[0].PercentageUsed, 1e-9)
	assert.Equal(t, int64(9), alerts[0].Available)

	assert.Empty(t, Evaluate(active(90, farAway), today, th), "89% used")
	assert.Len(t, Evaluate(active(91, farAway), today, th), 1, "exactly at threshold")
}

func TestEvaluate_ExpiringSoon(t *testing.T) {
	th := Thresholds{AlertDays: 30, LowAvailability: 90}
	tests := []struct {
		name       string
		validUntil time.Time
		want       []Kind
	}{
		{"31 days", today.AddDate(0, 0, 31), []Kind{}},
		{"30 days", today.AddDate(0, 0, 30), []Kind{KindExpiringSoon}},
		{"last day", today, []Kind{KindExpiringSoon}},
		{"already lapsed", today.AddDate(0, 0, -1), []Kind{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, kinds(Evaluate(active(1, tt.validUntil), today, th)))
		})
	}
}

func TestEvaluate_BothKindsAndInactive(t *testing.T) {
	th := DefaultThresholds()
	s := active(100, today.AddDate(0, 0, 3))
	assert.Equal(t, []Kind{KindExpiringSoon, KindLowAvailability}, kinds(Evaluate(s, today, th)))

	s.State = ncf.StateInactive
	assert.Empty(t, Evaluate(s, today, th))
}

func TestThresholdsFor(t *testing.T) {
	assert.Equal(t, DefaultThresholds(), ThresholdsFor(nil))

	o := owner.New("Acme", "")
	o.AlertDays = 10
	o.LowAvailabilityThreshold = 75
	assert.Equal(t, Thresholds{AlertDays: 10, LowAvailability: 75}, ThresholdsFor(o))

	o.AlertDays = 0
	assert.Equal(t, 0, ThresholdsFor(o).AlertDays)
}

func TestEvaluate_ZeroAlertDaysWarnsOnLastDayOnly(t *testing.T) {
	o := owner.New("Acme", "")
	o.AlertDays = 0
	th := ThresholdsFor(o)

	assert.Empty(t, Evaluate(active(1, today.AddDate(0, 0, 1)), today, th))
	assert.Equal(t, []Kind{KindExpiringSoon}, kinds(Evaluate(active(1, today), today, th)))
}
