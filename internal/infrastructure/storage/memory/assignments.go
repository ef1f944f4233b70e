package memory

import (
	"context"
	"slices"
	"sort"

	"ncfledger/internal/core/apperror"
	"ncfledger/internal/core/id"
	"ncfledger/internal/core/ncf"
	"ncfledger/internal/domain/assignment"
)

var _ assignment.Repository = (*AssignmentRepo)(nil)

// AssignmentRepo implements assignment.Repository. The ledger is append-only.
type AssignmentRepo struct {
	s *Store
}

func (r *AssignmentRepo) Insert(ctx context.Context, a *assignment.Assignment) error {
	return r.s.write(ctx, func() (func(), error) {
		if _, ok := r.s.documents[a.DocumentID]; !ok {
			return nil, apperror.NewNotFound("document", a.DocumentID)
		}
		if _, ok := r.s.sequences[a.SequenceID]; !ok {
			return nil, apperror.NewNotFound("ncf_sequence", a.SequenceID)
		}
		for _, other := range r.s.assignments {
			if other.DocumentID == a.DocumentID {
				return nil, apperror.NewAlreadyAssigned(a.DocumentID, other.Number)
			}
			if other.OwnerID == a.OwnerID && other.Number == a.Number {
				return nil, apperror.NewDuplicateNumber(a.Number)
			}
		}
		cp := *a
		r.s.assignments[a.ID] = &cp
		return func() { delete(r.s.assignments, a.ID) }, nil
	})
}

func (r *AssignmentRepo) GetByDocument(ctx context.Context, documentID id.ID) (*assignment.Assignment, error) {
	return r.find(ctx, func(a *assignment.Assignment) bool { return a.DocumentID == documentID },
		apperror.NewNotFound("ncf_assignment", documentID))
}

func (r *AssignmentRepo) GetByNumber(ctx context.Context, ownerID id.ID, number string) (*assignment.Assignment, error) {
	return r.find(ctx, func(a *assignment.Assignment) bool { return a.OwnerID == ownerID && a.Number == number },
		apperror.NewNotFound("ncf_assignment", number))
}

func (r *AssignmentRepo) find(ctx context.Context, match func(*assignment.Assignment) bool, notFound error) (*assignment.Assignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, a := range r.s.assignments {
		if match(a) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, notFound
}

func (r *AssignmentRepo) ListByWindow(ctx context.Context, q assignment.WindowQuery) ([]*assignment.Assignment, error) {
	from, to := ncf.Day(q.From), ncf.Day(q.To)
	out, err := r.list(ctx, func(a *assignment.Assignment) bool {
		day := ncf.Day(a.IssuedAt)
		if a.OwnerID != q.OwnerID || day.Before(from) || day.After(to) {
			return false
		}
		return len(q.DocumentTypes) == 0 || slices.Contains(q.DocumentTypes, a.DocumentType)
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].IssuedAt.Equal(out[j].IssuedAt) {
			return out[i].IssuedAt.Before(out[j].IssuedAt)
		}
		return out[i].Number < out[j].Number
	})
	return out, nil
}

func (r *AssignmentRepo) ListBySequence(ctx context.Context, sequenceID id.ID) ([]*assignment.Assignment, error) {
	out, err := r.list(ctx, func(a *assignment.Assignment) bool { return a.SequenceID == sequenceID })
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (r *AssignmentRepo) list(ctx context.Context, match func(*assignment.Assignment) bool) ([]*assignment.Assignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*assignment.Assignment, 0)
	for _, a := range r.s.assignments {
		if match(a) {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}
