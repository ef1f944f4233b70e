package owner

import (
	"context"

	"ncfledger/internal/core/id"
)

// Repository defines persistence for owners.
type Repository interface {
	Create(ctx context.Context, o *Owner) error

	GetByID(ctx context.Context, ownerID id.ID) (*Owner, error)

	// Update saves settings with optimistic locking on Version.
	Update(ctx context.Context, o *Owner) error

	// List returns owners ordered by name. enabledOnly filters to NCFEnabled.
	List(ctx context.Context, enabledOnly bool) ([]*Owner, error)
}
