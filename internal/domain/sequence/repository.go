package sequence

import (
	"context"
	"time"

	"ncfledger/internal/core/id"
	"ncfledger/internal/core/ncf"
)

// ListFilter narrows List results. Zero values mean no filter.
type ListFilter struct {
	OwnerID      id.ID
	DocumentType ncf.DocumentType
	States       []ncf.State
}

// Repository defines persistence for sequences.
type Repository interface {
	// Create inserts a sequence. A second open (active or inactive) sequence
	// for the same owner, prefix and document type is rejected by storage.
	Create(ctx context.Context, s *Sequence) error

	GetByID(ctx context.Context, sequenceID id.ID) (*Sequence, error)

	// GetForUpdate reads the sequence and holds its row lock until the
	// transaction in ctx ends. Must be called inside a transaction.
	GetForUpdate(ctx context.Context, sequenceID id.ID) (*Sequence, error)

	// FindEligible returns the Active sequence with the smallest cursor for
	// (owner, documentType) that is valid on asOf and not exhausted,
	// skipping exclude. Returns a NotFound error when none qualifies.
	FindEligible(ctx context.Context, ownerID id.ID, documentType ncf.DocumentType, asOf time.Time, exclude []id.ID) (*Sequence, error)

	// List returns sequences matching filter, most recently updated first.
	List(ctx context.Context, filter ListFilter) ([]*Sequence, error)

	// AdvanceCursor moves the cursor from `from` to `to` and sets state,
	// only if the stored cursor still equals from and the sequence is still
	// Active.
	AdvanceCursor(ctx context.Context, sequenceID id.ID, from, to int64, state ncf.State) error

	// Transition changes state only if the stored state equals from.
	// Returns false when another writer changed it first.
	Transition(ctx context.Context, sequenceID id.ID, from, to ncf.State) (bool, error)
}
