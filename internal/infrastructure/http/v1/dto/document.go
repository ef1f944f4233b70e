package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"ncfledger/internal/core/id"
	"ncfledger/internal/core/ncf"
	"ncfledger/internal/domain/assignment"
	"ncfledger/internal/domain/document"
)

// CreateDocumentRequest creates a draft document.
type CreateDocumentRequest struct {
	DocumentType      string          `json:"documentType" binding:"required"`
	Reference         string          `json:"reference"`
	CounterpartyName  string          `json:"counterpartyName"`
	CounterpartyTaxID string          `json:"counterpartyTaxId"`
	Currency          string          `json:"currency"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	Tax               decimal.Decimal `json:"tax"`
	Total             decimal.Decimal `json:"total"`
	IssueDate         string          `json:"issueDate"`
}

// ToDocument builds the draft.
func (r CreateDocumentRequest) ToDocument(ownerID id.ID) (*document.Document, error) {
	dt := ncf.DocumentType(r.DocumentType)
	if parsed, err := ncf.ParseDocumentType(r.DocumentType); err == nil {
		dt = parsed
	}
	d := document.New(ownerID, dt, r.Reference)
	d.CounterpartyName = r.CounterpartyName
	d.CounterpartyTaxID = r.CounterpartyTaxID
	if r.Currency != "" {
		d.Currency = r.Currency
	}
	d.Subtotal = r.Subtotal
	d.Tax = r.Tax
	d.Total = r.Total

	issue, err := ParseDate("issueDate", r.IssueDate)
	if err != nil {
		return nil, err
	}
	if !issue.IsZero() {
		d.IssueDate = issue
	}
	return d, nil
}

// DocumentResponse contains document fields.
type DocumentResponse struct {
	ID                string          `json:"id"`
	OwnerID           string          `json:"ownerId"`
	DocumentType      string          `json:"documentType"`
	Reference         string          `json:"reference,omitempty"`
	CounterpartyName  string          `json:"counterpartyName,omitempty"`
	CounterpartyTaxID string          `json:"counterpartyTaxId,omitempty"`
	Currency          string          `json:"currency"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	Tax               decimal.Decimal `json:"tax"`
	Total             decimal.Decimal `json:"total"`
	IssueDate         string          `json:"issueDate"`
	State             string          `json:"state"`
	NCF               string          `json:"ncf,omitempty"`
	NeedsManualNCF    bool            `json:"needsManualNcf"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// FromDocument creates DocumentResponse.
func FromDocument(d *document.Document) DocumentResponse {
	resp := DocumentResponse{
		ID:                d.ID.String(),
		OwnerID:           d.OwnerID.String(),
		DocumentType:      string(d.DocumentType),
		Reference:         d.Reference,
		CounterpartyName:  d.CounterpartyName,
		CounterpartyTaxID: d.CounterpartyTaxID,
		Currency:          d.Currency,
		Subtotal:          d.Subtotal,
		Tax:               d.Tax,
		Total:             d.Total,
		IssueDate:         FormatDate(d.IssueDate),
		State:             string(d.State),
		NeedsManualNCF:    d.NeedsManualNCF,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
	if d.NCFNumber != nil {
		resp.NCF = *d.NCFNumber
	}
	return resp
}

// AllocateRequest asks for a number for a document; asOf defaults to today.
type AllocateRequest struct {
	AsOf string `json:"asOf"`
}

// AssignmentResponse is one ledger entry.
type AssignmentResponse struct {
	ID           string    `json:"id"`
	Number       string    `json:"number"`
	SequenceID   string    `json:"sequenceId"`
	DocumentID   string    `json:"documentId"`
	DocumentType string    `json:"documentType"`
	IssuedAt     time.Time `json:"issuedAt"`
}

// FromAssignment creates AssignmentResponse.
func FromAssignment(a *assignment.Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:           a.ID.String(),
		Number:       a.Number,
		SequenceID:   a.SequenceID.String(),
		DocumentID:   a.DocumentID.String(),
		DocumentType: string(a.DocumentType),
		IssuedAt:     a.IssuedAt,
	}
}

// WindowQuery selects ledger entries by issue date, inclusive.
type WindowQuery struct {
	From          string   `form:"from" binding:"required"`
	To            string   `form:"to" binding:"required"`
	DocumentTypes []string `form:"documentType"`
}

// Parse converts the query into dates and document types.
func (q WindowQuery) Parse() (from, to time.Time, types []ncf.DocumentType, err error) {
	if from, err = ParseDate("from", q.From); err != nil {
		return
	}
	if to, err = ParseDate("to", q.To); err != nil {
		return
	}
	for _, s := range q.DocumentTypes {
		types = append(types, ncf.DocumentType(s))
	}
	return
}
