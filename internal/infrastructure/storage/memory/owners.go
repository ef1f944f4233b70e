package memory

import (
	"context"
	"sort"
	"time"

	"ncfledger/internal/core/apperror"
	"ncfledger/internal/core/id"
	"ncfledger/internal/domain/owner"
)

var _ owner.Repository = (*OwnerRepo)(nil)

// OwnerRepo implements owner.Repository.
type OwnerRepo struct {
	s *Store
}

func (r *OwnerRepo) Create(ctx context.Context, o *owner.Owner) error {
	return r.s.write(ctx, func() (func(), error) {
		if _, ok := r.s.owners[o.ID]; ok {
			return nil, apperror.NewDuplicate("owner", "id", o.ID.String())
		}
		if o.RNC != "" {
			for _, other := range r.s.owners {
				if other.RNC == o.RNC {
					return nil, apperror.NewDuplicate("owner", "rnc", o.RNC)
				}
			}
		}
		if o.Version == 0 {
			o.Version = 1
		}
		cp := *o
		r.s.owners[o.ID] = &cp
		return func() { delete(r.s.owners, o.ID) }, nil
	})
}

func (r *OwnerRepo) GetByID(ctx context.Context, ownerID id.ID) (*owner.Owner, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	o, ok := r.s.owners[ownerID]
	if !ok {
		return nil, apperror.NewNotFound("owner", ownerID)
	}
	cp := *o
	return &cp, nil
}

func (r *OwnerRepo) Update(ctx context.Context, o *owner.Owner) error {
	return r.s.write(ctx, func() (func(), error) {
		stored, ok := r.s.owners[o.ID]
		if !ok {
			return nil, apperror.NewNotFound("owner", o.ID)
		}
		if stored.Version != o.Version {
			return nil, apperror.NewConcurrentModification("owner", o.ID)
		}
		prev := *stored
		o.Version++
		o.UpdatedAt = time.Now().UTC()
		cp := *o
		r.s.owners[o.ID] = &cp
		return func() { r.s.owners[o.ID] = &prev }, nil
	})
}

func (r *OwnerRepo) List(ctx context.Context, enabledOnly bool) ([]*owner.Owner, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	out := make([]*owner.Owner, 0, len(r.s.owners))
	for _, o := range r.s.owners {
		if enabledOnly && !o.NCFEnabled {
			continue
		}
		cp := *o
		out = append(out, &cp)
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
