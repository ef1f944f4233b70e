// Package owner holds the issuing entity settings that drive allocation,
// posting and alerting: tax identity, auto-assignment policy and alert
// thresholds.
package owner

import (
	"context"
	"strings"
	"time"

	"ncfledger/internal/core/apperror"
	"ncfledger/internal/core/id"
)

const (
	DefaultAlertDays                = 30
	DefaultLowAvailabilityThreshold = 90.0
)

// Owner is an issuing entity (company) registered with the tax authority.
type Owner struct {
	ID       id.ID  `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	RNC      string `db:"rnc" json:"rnc"`
	DGIIName string `db:"dgii_name" json:"dgiiName"`

	// NCFEnabled turns fiscal numbering on for the owner's documents.
	NCFEnabled bool `db:"ncf_enabled" json:"ncfEnabled"`

	// AutoAssign allocates an NCF when a document is posted.
	AutoAssign bool `db:"auto_assign" json:"autoAssign"`

	// BlockOnFailure refuses to post a document whose NCF could not be
	// allocated. When false the document is posted and flagged for manual
	// assignment.
	BlockOnFailure bool `db:"block_on_failure" json:"blockOnFailure"`

	AlertDays                int     `db:"alert_days" json:"alertDays"`
	LowAvailabilityThreshold float64 `db:"low_availability_threshold" json:"lowAvailabilityThreshold"`

	// RequireRule is an optional CEL expression over `document` deciding
	// whether a document needs an NCF at all.
	RequireRule string `db:"require_rule" json:"requireRule"`

	Version   int       `db:"version" json:"version"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// New creates an Owner with default settings.
func New(name, rnc string) *Owner {
	now := time.Now().UTC()
	return &Owner{
		ID:                       id.New(),
		Name:                     strings.TrimSpace(name),
		RNC:                      strings.TrimSpace(rnc),
		NCFEnabled:               true,
		AutoAssign:               true,
		BlockOnFailure:           true,
		AlertDays:                DefaultAlertDays,
		LowAvailabilityThreshold: DefaultLowAvailabilityThreshold,
		Version:                  1,
		CreatedAt:                now,
		UpdatedAt:                now,
	}
}

// Validate checks owner fields.
func (o *Owner) Validate(_ context.Context) error {
	if strings.TrimSpace(o.Name) == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	if o.RNC != "" && !isValidRNC(o.RNC) {
		return apperror.NewValidation("RNC must be 9 digits (company) or 11 digits (cédula)").
			WithDetail("field", "rnc").
			WithDetail("value", o.RNC)
	}
	if o.AlertDays < 0 || o.AlertDays > 365 {
		return apperror.NewValidation("alert days must be between 0 and 365").
			WithDetail("field", "alertDays")
	}
	if o.LowAvailabilityThreshold <= 0 || o.LowAvailabilityThreshold > 100 {
		return apperror.NewValidation("low availability threshold must be in (0, 100]").
			WithDetail("field", "lowAvailabilityThreshold")
	}
	return nil
}

// ReportName is the name used on DGII filings.
func (o *Owner) ReportName() string {
	if o.DGIIName != "" {
		return o.DGIIName
	}
	return o.Name
}

func isValidRNC(rnc string) bool {
	if len(rnc) != 9 && len(rnc) != 11 {
		return false
	}
	for _, c := range rnc {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
