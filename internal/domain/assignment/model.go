// Package assignment is the append-only ledger of issued NCF numbers.
package assignment

import (
	"time"

	"ncfledger/internal/core/apperror"
	"ncfledger/internal/core/id"
	"ncfledger/internal/core/ncf"
)

// Assignment binds one issued number to one document. It is immutable.
type Assignment struct {
	ID           id.ID            `db:"id" json:"id"`
	OwnerID      id.ID            `db:"owner_id" json:"ownerId"`
	SequenceID   id.ID            `db:"sequence_id" json:"sequenceId"`
	DocumentID   id.ID            `db:"document_id" json:"documentId"`
	DocumentType ncf.DocumentType `db:"document_type" json:"documentType"`
	Number       string           `db:"number" json:"number"`
	IssuedAt     time.Time        `db:"issued_at" json:"issuedAt"`
}

// New creates an assignment issued now.
func New(ownerID, sequenceID, documentID id.ID, documentType ncf.DocumentType, number string, issuedAt time.Time) *Assignment {
	return &Assignment{
		ID:           id.New(),
		OwnerID:      ownerID,
		SequenceID:   sequenceID,
		DocumentID:   documentID,
		DocumentType: documentType,
		Number:       number,
		IssuedAt:     issuedAt.UTC(),
	}
}

// Validate checks the record before it is written.
func (a *Assignment) Validate() error {
	if id.IsNil(a.OwnerID) || id.IsNil(a.SequenceID) || id.IsNil(a.DocumentID) {
		return apperror.NewValidation("assignment requires owner, sequence and document").
			WithDetail("field", "ids")
	}
	if !ncf.Valid(a.Number) {
		return apperror.NewValidation("malformed NCF number").
			WithDetail("field", "number").
			WithDetail("value", a.Number)
	}
	if a.IssuedAt.IsZero() {
		return apperror.NewValidation("issued at is required").WithDetail("field", "issuedAt")
	}
	return nil
}
