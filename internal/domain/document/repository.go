package document

import (
	"context"

	"ncfledger/internal/core/id"
)

// Repository defines persistence for documents.
type Repository interface {
	Create(ctx context.Context, d *Document) error

	GetByID(ctx context.Context, documentID id.ID) (*Document, error)

	// GetMany returns the documents found among ids, keyed by ID.
	GetMany(ctx context.Context, ids []id.ID) (map[id.ID]*Document, error)

	// List returns an owner's documents, newest first.
	List(ctx context.Context, ownerID id.ID, limit int) ([]*Document, error)

	// LinkAssignment sets the NCF on a document of ownerID that has none.
	// Returns NotFound for an unknown document and AlreadyAssigned when it
	// already carries a number.
	LinkAssignment(ctx context.Context, documentID, ownerID, assignmentID id.ID, number string) error

	// MarkPosted moves a draft to posted.
	MarkPosted(ctx context.Context, documentID id.ID, needsManualNCF bool) error

	// Delete removes the document and, by cascade, its assignment.
	Delete(ctx context.Context, documentID id.ID) error
}
