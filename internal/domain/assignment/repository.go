package assignment

import (
	"context"
	"time"

	"ncfledger/internal/core/id"
	"ncfledger/internal/core/ncf"
)

// WindowQuery selects assignments issued on the calendar days From..To
// inclusive.
type WindowQuery struct {
	OwnerID       id.ID
	From          time.Time
	To            time.Time
	DocumentTypes []ncf.DocumentType
}

// Repository is the ledger storage. Insert enforces, at storage level, that
// (owner, number) and document are each unique: a violation returns
// CodeDuplicateNumber or CodeAlreadyAssigned.
type Repository interface {
	Insert(ctx context.Context, a *Assignment) error

	GetByDocument(ctx context.Context, documentID id.ID) (*Assignment, error)

	GetByNumber(ctx context.Context, ownerID id.ID, number string) (*Assignment, error)

	// ListByWindow orders by issued_at, then number.
	ListByWindow(ctx context.Context, q WindowQuery) ([]*Assignment, error)

	// ListBySequence orders by number.
	ListBySequence(ctx context.Context, sequenceID id.ID) ([]*Assignment, error)
}
