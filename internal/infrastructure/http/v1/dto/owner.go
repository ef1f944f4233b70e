package dto

import (
	"time"

	"ncfledger/internal/domain/owner"
)

// OwnerSettings are the editable owner fields.
type OwnerSettings struct {
	Name                     string   `json:"name" binding:"required"`
	RNC                      string   `json:"rnc"`
	DGIIName                 string   `json:"dgiiName"`
	NCFEnabled               *bool    `json:"ncfEnabled"`
	AutoAssign               *bool    `json:"autoAssign"`
	BlockOnFailure           *bool    `json:"blockOnFailure"`
	AlertDays                *int     `json:"alertDays"`
	LowAvailabilityThreshold *float64 `json:"lowAvailabilityThreshold"`
	RequireRule              string   `json:"requireRule"`
}

// CreateOwnerRequest registers an issuing entity.
type CreateOwnerRequest struct {
	OwnerSettings
}

// ToOwner builds a new owner with defaults for omitted settings.
func (r CreateOwnerRequest) ToOwner() *owner.Owner {
	o := owner.New(r.Name, r.RNC)
	r.apply(o)
	return o
}

// UpdateOwnerRequest replaces owner settings.
type UpdateOwnerRequest struct {
	OwnerSettings
	Version int `json:"version" binding:"required,min=1"`
}

// ApplyTo copies the settings onto o.
func (r UpdateOwnerRequest) ApplyTo(o *owner.Owner) {
	o.Name = r.Name
	o.RNC = r.RNC
	o.Version = r.Version
	r.apply(o)
}

func (s OwnerSettings) apply(o *owner.Owner) {
	o.DGIIName = s.DGIIName
	o.RequireRule = s.RequireRule
	if s.NCFEnabled != nil {
		o.NCFEnabled = *s.NCFEnabled
	}
	if s.AutoAssign != nil {
		o.AutoAssign = *s.AutoAssign
	}
	if s.BlockOnFailure != nil {
		o.BlockOnFailure = *s.BlockOnFailure
	}
	if s.AlertDays != nil {
		o.AlertDays = *s.AlertDays
	}
	if s.LowAvailabilityThreshold != nil {
		o.LowAvailabilityThreshold = *s.LowAvailabilityThreshold
	}
}

// OwnerResponse contains owner fields.
type OwnerResponse struct {
	ID                       string    `json:"id"`
	Name                     string    `json:"name"`
	RNC                      string    `json:"rnc,omitempty"`
	DGIIName                 string    `json:"dgiiName,omitempty"`
	NCFEnabled               bool      `json:"ncfEnabled"`
	AutoAssign               bool      `json:"autoAssign"`
	BlockOnFailure           bool      `json:"blockOnFailure"`
	AlertDays                int       `json:"alertDays"`
	LowAvailabilityThreshold float64   `json:"lowAvailabilityThreshold"`
	RequireRule              string    `json:"requireRule,omitempty"`
	Version                  int       `json:"version"`
	CreatedAt                time.Time `json:"createdAt"`
	UpdatedAt                time.Time `json:"updatedAt"`
}

// FromOwner creates OwnerResponse.
func FromOwner(o *owner.Owner) OwnerResponse {
	return OwnerResponse{
		ID:                       o.ID.String(),
		Name:                     o.Name,
		RNC:                      o.RNC,
		DGIIName:                 o.DGIIName,
		NCFEnabled:               o.NCFEnabled,
		AutoAssign:               o.AutoAssign,
		BlockOnFailure:           o.BlockOnFailure,
		AlertDays:                o.AlertDays,
		LowAvailabilityThreshold: o.LowAvailabilityThreshold,
		RequireRule:              o.RequireRule,
		Version:                  o.Version,
		CreatedAt:                o.CreatedAt,
		UpdatedAt:                o.UpdatedAt,
	}
}
