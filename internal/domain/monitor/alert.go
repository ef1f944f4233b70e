// Package monitor derives operator alerts from sequence snapshots and runs
// the periodic lifecycle sweep.
package monitor

import (
	"fmt"
	"time"

	"ncfledger/internal/core/id"
	"ncfledger/internal/core/ncf"
	"ncfledger/internal/domain/owner"
	"ncfledger/internal/domain/sequence"
)

// Kind classifies an alert.
type Kind string

const (
	KindExpiringSoon    Kind = "expiring_soon"
	KindLowAvailability Kind = "low_availability"
)

// Thresholds are the per-owner alert limits.
type Thresholds struct {
	AlertDays       int     `json:"alertDays"`
	LowAvailability float64 `json:"lowAvailability"`
}

// DefaultThresholds returns 30 days and 90% used.
func DefaultThresholds() Thresholds {
	return Thresholds{
		AlertDays:       owner.DefaultAlertDays,
		LowAvailability: owner.DefaultLowAvailabilityThreshold,
	}
}

// ThresholdsFor reads thresholds from owner settings. AlertDays of zero is
// honoured and alerts only on the last valid day.
func ThresholdsFor(o *owner.Owner) Thresholds {
	th := DefaultThresholds()
	if o == nil {
		return th
	}
	th.AlertDays = o.AlertDays
	if o.LowAvailabilityThreshold > 0 {
		th.LowAvailability = o.LowAvailabilityThreshold
	}
	return th
}

// Alert is an informational signal about one sequence.
type Alert struct {
	Kind           Kind             `json:"kind"`
	SequenceID     id.ID            `json:"sequenceId"`
	OwnerID        id.ID            `json:"ownerId"`
	Prefix         string           `json:"prefix"`
	DocumentType   ncf.DocumentType `json:"documentType"`
	DaysToExpiry   int              `json:"daysToExpiry"`
	PercentageUsed float64          `json:"percentageUsed"`
	Available      int64            `json:"available"`
	Message        string           `json:"message"`
}

// Evaluate returns the alerts a single Active sequence raises on today.
// A sequence may raise both kinds at once.
func Evaluate(s sequence.Sequence, today time.Time, th Thresholds) []Alert {
	if s.State != ncf.StateActive {
		return nil
	}

	days := sequence.DaysToExpiry(s, today)
	pct := sequence.PercentageUsed(s)
	available := sequence.Available(s)

	base := Alert{
		SequenceID:     s.ID,
		OwnerID:        s.OwnerID,
		Prefix:         s.Prefix,
		DocumentType:   s.DocumentType,
		DaysToExpiry:   days,
		PercentageUsed: pct,
		Available:      available,
	}

	var alerts []Alert
	if days >= 0 && days <= th.AlertDays {
		a := base
		a.Kind = KindExpiringSoon
		a.Message = fmt.Sprintf("sequence %s (%s) expires in %d days", s.Prefix, s.DocumentType.Label(), days)
		alerts = append(alerts, a)
	}
	if pct >= th.LowAvailability {
		a := base
		a.Kind = KindLowAvailability
		a.Message = fmt.Sprintf("sequence %s (%s) is %.1f%% used, %d numbers left", s.Prefix, s.DocumentType.Label(), pct, available)
		alerts = append(alerts, a)
	}
	return alerts
}
