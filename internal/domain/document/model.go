// Package document models the fiscal documents that receive NCF numbers and
// the posting workflow that requests them.
package document

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ncfledger/internal/core/apperror"
	"ncfledger/internal/core/id"
	"ncfledger/internal/core/ncf"
)

// State of a document.
type State string

const (
	StateDraft  State = "draft"
	StatePosted State = "posted"
)

// Document is an outgoing invoice, credit note or debit note.
type Document struct {
	ID           id.ID            `db:"id" json:"id"`
	OwnerID      id.ID            `db:"owner_id" json:"ownerId"`
	DocumentType ncf.DocumentType `db:"document_type" json:"documentType"`
	// Reference is the document's own number in the invoicing system.
	Reference         string          `db:"reference" json:"reference"`
	CounterpartyName  string          `db:"counterparty_name" json:"counterpartyName"`
	CounterpartyTaxID string          `db:"counterparty_tax_id" json:"counterpartyTaxId"`
	Currency          string          `db:"currency" json:"currency"`
	Subtotal          decimal.Decimal `db:"subtotal" json:"subtotal"`
	Tax               decimal.Decimal `db:"tax" json:"tax"`
	Total             decimal.Decimal `db:"total" json:"total"`
	IssueDate         time.Time       `db:"issue_date" json:"issueDate"`
	State             State           `db:"state" json:"state"`
	AssignmentID      *id.ID          `db:"assignment_id" json:"assignmentId,omitempty"`
	NCFNumber         *string         `db:"ncf_number" json:"ncfNumber,omitempty"`
	// NeedsManualNCF marks a document posted without a number.
	NeedsManualNCF bool      `db:"needs_manual_ncf" json:"needsManualNcf"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}

// New creates a draft document.
func New(ownerID id.ID, documentType ncf.DocumentType, reference string) *Document {
	now := time.Now().UTC()
	return &Document{
		ID:           id.New(),
		OwnerID:      ownerID,
		DocumentType: documentType,
		Reference:    strings.TrimSpace(reference),
		Currency:     "DOP",
		IssueDate:    ncf.Day(now),
		State:        StateDraft,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Validate checks document fields and fills Total when omitted.
func (d *Document) Validate(_ context.Context) error {
	if id.IsNil(d.OwnerID) {
		return apperror.NewValidation("owner is required").WithDetail("field", "ownerId")
	}
	if !d.DocumentType.Valid() {
		return apperror.NewValidation("unknown document type").
			WithDetail("field", "documentType").
			WithDetail("value", d.DocumentType)
	}
	if len(d.Currency) != 3 {
		return apperror.NewValidation("currency must be an ISO 4217 code").
			WithDetail("field", "currency")
	}
	d.Currency = strings.ToUpper(d.Currency)
	if d.Subtotal.IsNegative() || d.Tax.IsNegative() || d.Total.IsNegative() {
		return apperror.NewValidation("amounts cannot be negative").
			WithDetail("field", "total")
	}
	if d.Total.IsZero() {
		d.Total = d.Subtotal.Add(d.Tax)
	}
	if !d.Total.Equal(d.Subtotal.Add(d.Tax)) {
		return apperror.NewValidation("total must equal subtotal plus tax").
			WithDetail("field", "total").
			WithDetail("expected", d.Subtotal.Add(d.Tax).StringFixed(2))
	}
	return nil
}

// HasNCF reports whether a number was already assigned.
func (d *Document) HasNCF() bool {
	return d.AssignmentID != nil
}

// RuleInput exposes document fields to owner CEL rules.
func (d *Document) RuleInput() map[string]any {
	total, _ := d.Total.Float64()
	return map[string]any{
		"type":                string(d.DocumentType),
		"reference":           d.Reference,
		"counterparty_name":   d.CounterpartyName,
		"counterparty_tax_id": d.CounterpartyTaxID,
		"currency":            d.Currency,
		"total":               total,
	}
}
