package dto

import (
	"time"

	"ncfledger/internal/core/id"
	"ncfledger/internal/core/ncf"
	"ncfledger/internal/domain/monitor"
	"ncfledger/internal/domain/sequence"
)

// CreateSequenceRequest registers a range. Dates are YYYY-MM-DD.
type CreateSequenceRequest struct {
	Prefix       string `json:"prefix"`
	DocumentType string `json:"documentType" binding:"required"`
	RangeStart   int64  `json:"rangeStart" binding:"required"`
	RangeEnd     int64  `json:"rangeEnd" binding:"required"`
	ValidFrom    string `json:"validFrom" binding:"required"`
	ValidUntil   string `json:"validUntil"`
	Activate     bool   `json:"activate"`
}

// ToSpec converts the request. An empty prefix takes the conventional one
// for the document type.
func (r CreateSequenceRequest) ToSpec(ownerID id.ID) (sequence.Spec, error) {
	spec := sequence.Spec{
		OwnerID:      ownerID,
		Prefix:       r.Prefix,
		DocumentType: ncf.DocumentType(r.DocumentType),
		RangeStart:   r.RangeStart,
		RangeEnd:     r.RangeEnd,
		Activate:     r.Activate,
	}
	if dt, err := ncf.ParseDocumentType(r.DocumentType); err == nil {
		spec.DocumentType = dt
		if spec.Prefix == "" {
			spec.Prefix = dt.SuggestedPrefix()
		}
	}

	var err error
	if spec.ValidFrom, err = ParseDate("validFrom", r.ValidFrom); err != nil {
		return spec, err
	}
	if spec.ValidUntil, err = ParseDate("validUntil", r.ValidUntil); err != nil {
		return spec, err
	}
	return spec, nil
}

// SetStateRequest toggles a sequence.
type SetStateRequest struct {
	State string `json:"state" binding:"required"`
}

// ListSequencesQuery filters sequence listings.
type ListSequencesQuery struct {
	DocumentType string   `form:"documentType"`
	States       []string `form:"state"`
}

// SequenceResponse is a sequence with its derived statistics.
type SequenceResponse struct {
	ID           string         `json:"id"`
	OwnerID      string         `json:"ownerId"`
	Prefix       string         `json:"prefix"`
	DocumentType string         `json:"documentType"`
	TypeCode     string         `json:"typeCode"`
	RangeStart   int64          `json:"rangeStart"`
	RangeEnd     int64          `json:"rangeEnd"`
	Cursor       int64          `json:"cursor"`
	ValidFrom    string         `json:"validFrom"`
	ValidUntil   string         `json:"validUntil"`
	State        string         `json:"state"`
	Stats        sequence.Stats `json:"stats"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// FromSequence creates SequenceResponse with stats as of today.
func FromSequence(s *sequence.Sequence, today time.Time) SequenceResponse {
	return SequenceResponse{
		ID:           s.ID.String(),
		OwnerID:      s.OwnerID.String(),
		Prefix:       s.Prefix,
		DocumentType: string(s.DocumentType),
		TypeCode:     s.DocumentType.Code(),
		RangeStart:   s.RangeStart,
		RangeEnd:     s.RangeEnd,
		Cursor:       s.Cursor,
		ValidFrom:    FormatDate(s.ValidFrom),
		ValidUntil:   FormatDate(s.ValidUntil),
		State:        string(s.State),
		Stats:        sequence.ComputeStats(*s, today),
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

// AlertsResponse lists the alerts of one scan.
type AlertsResponse struct {
	Thresholds monitor.Thresholds `json:"thresholds"`
	Alerts     []monitor.Alert    `json:"alerts"`
}

// SweepRequest runs the lifecycle sweep; asOf defaults to today.
type SweepRequest struct {
	AsOf string `json:"asOf"`
}
