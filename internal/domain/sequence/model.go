// Package sequence is the registry of NCF ranges: their validity windows,
// lifecycle and consumption cursor.
package sequence

import (
	"time"

	"ncfledger/internal/core/apperror"
	"ncfledger/internal/core/id"
	"ncfledger/internal/core/ncf"
)

// Sequence is a registered numeric range for one (owner, document type,
// prefix) tuple. Cursor is the next number to issue; it only increases and
// reaches RangeEnd+1 once every number was issued.
type Sequence struct {
	ID           id.ID            `db:"id" json:"id"`
	OwnerID      id.ID            `db:"owner_id" json:"ownerId"`
	Prefix       string           `db:"prefix" json:"prefix"`
	DocumentType ncf.DocumentType `db:"document_type" json:"documentType"`
	RangeStart   int64            `db:"range_start" json:"rangeStart"`
	RangeEnd     int64            `db:"range_end" json:"rangeEnd"`
	Cursor       int64            `db:"next_number" json:"cursor"`
	ValidFrom    time.Time        `db:"valid_from" json:"validFrom"`
	ValidUntil   time.Time        `db:"valid_until" json:"validUntil"`
	State        ncf.State        `db:"state" json:"state"`
	CreatedAt    time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updatedAt"`
}

// Spec describes a sequence to register.
type Spec struct {
	OwnerID      id.ID
	Prefix       string
	DocumentType ncf.DocumentType
	RangeStart   int64
	RangeEnd     int64
	ValidFrom    time.Time
	// ValidUntil defaults to December 31 of ValidFrom's year.
	ValidUntil time.Time
	// Activate creates the sequence Active; otherwise it starts Inactive.
	Activate bool
}

// Build validates the spec against today and returns the new sequence
// positioned at RangeStart.
func (s Spec) Build(today time.Time) (*Sequence, error) {
	if id.IsNil(s.OwnerID) {
		return nil, apperror.NewValidation("owner is required").WithDetail("field", "ownerId")
	}

	prefix, err := ncf.NormalizePrefix(s.Prefix)
	if err != nil {
		return nil, apperror.NewValidation("prefix must be 3 alphanumeric characters").
			WithDetail("field", "prefix").
			WithDetail("value", s.Prefix)
	}

	if !s.DocumentType.Valid() {
		return nil, apperror.NewValidation("unknown document type").
			WithDetail("field", "documentType").
			WithDetail("value", s.DocumentType)
	}

	if s.RangeStart < 1 {
		return nil, apperror.NewValidation("range start must be greater than zero").
			WithDetail("field", "rangeStart")
	}
	if s.RangeStart >= s.RangeEnd {
		return nil, apperror.NewValidation("range start must be lower than range end").
			WithDetail("field", "rangeEnd")
	}
	if s.RangeEnd > ncf.MaxCounter {
		return nil, apperror.NewValidation("range end cannot exceed 99999999").
			WithDetail("field", "rangeEnd")
	}

	if s.ValidFrom.IsZero() {
		return nil, apperror.NewValidation("valid from is required").WithDetail("field", "validFrom")
	}
	validFrom := ncf.Day(s.ValidFrom)
	validUntil := ncf.Day(s.ValidUntil)
	if s.ValidUntil.IsZero() {
		validUntil = ncf.EndOfYear(validFrom)
	}
	if validFrom.Before(ncf.Day(today)) {
		return nil, apperror.NewValidation("valid from cannot be in the past").
			WithDetail("field", "validFrom")
	}
	if !validFrom.Before(validUntil) {
		return nil, apperror.NewValidation("valid from must be before valid until").
			WithDetail("field", "validUntil")
	}

	state := ncf.StateInactive
	if s.Activate {
		state = ncf.StateActive
	}

	now := time.Now().UTC()
	return &Sequence{
		ID:           id.New(),
		OwnerID:      s.OwnerID,
		Prefix:       prefix,
		DocumentType: s.DocumentType,
		RangeStart:   s.RangeStart,
		RangeEnd:     s.RangeEnd,
		Cursor:       s.RangeStart,
		ValidFrom:    validFrom,
		ValidUntil:   validUntil,
		State:        state,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Exhausted reports whether every number in the range was issued.
func (s *Sequence) Exhausted() bool {
	return s.Cursor > s.RangeEnd
}

// ExpiredOn reports whether asOf is past the last valid day.
func (s *Sequence) ExpiredOn(asOf time.Time) bool {
	return ncf.Day(asOf).After(ncf.Day(s.ValidUntil))
}

// StartedOn reports whether the validity window has opened by asOf.
func (s *Sequence) StartedOn(asOf time.Time) bool {
	return !ncf.Day(asOf).Before(ncf.Day(s.ValidFrom))
}

// EligibleOn reports whether the sequence may issue a number on asOf.
func (s *Sequence) EligibleOn(asOf time.Time) bool {
	return s.State == ncf.StateActive && s.StartedOn(asOf) && !s.ExpiredOn(asOf) && !s.Exhausted()
}
