package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"ncfledger/internal/core/apperror"
	"ncfledger/internal/core/id"
	"ncfledger/internal/core/ncf"
	"ncfledger/internal/domain/sequence"
)

var _ sequence.Repository = (*SequenceRepo)(nil)

// SequenceRepo implements sequence.Repository.
type SequenceRepo struct {
	s *Store
}

func (r *SequenceRepo) Create(ctx context.Context, seq *sequence.Sequence) error {
	return r.s.write(ctx, func() (func(), error) {
		if _, ok := r.s.sequences[seq.ID]; ok {
			return nil, apperror.NewDuplicate("ncf_sequence", "id", seq.ID.String())
		}
		if seq.State.Open() {
			for _, other := range r.s.sequences {
				if other.OwnerID == seq.OwnerID && other.Prefix == seq.Prefix &&
					other.DocumentType == seq.DocumentType && other.State.Open() {
					return nil, sequence.DuplicateOpenError(seq)
				}
			}
		}
		cp := *seq
		r.s.sequences[seq.ID] = &cp
		return func() { delete(r.s.sequences, seq.ID) }, nil
	})
}

func (r *SequenceRepo) GetByID(ctx context.Context, sequenceID id.ID) (*sequence.Sequence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	seq, ok := r.s.sequences[sequenceID]
	if !ok {
		return nil, apperror.NewNotFound("ncf_sequence", sequenceID)
	}
	cp := *seq
	return &cp, nil
}

func (r *SequenceRepo) GetForUpdate(ctx context.Context, sequenceID id.ID) (*sequence.Sequence, error) {
	if _, err := r.GetByID(ctx, sequenceID); err != nil {
		return nil, err
	}
	if err := r.s.lockRow(ctx, sequenceID); err != nil {
		return nil, err
	}
	// Re-read under the lock: the previous holder may have moved the cursor.
	return r.GetByID(ctx, sequenceID)
}

func (r *SequenceRepo) FindEligible(ctx context.Context, ownerID id.ID, documentType ncf.DocumentType, asOf time.Time, exclude []id.ID) (*sequence.Sequence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var best *sequence.Sequence
	for _, seq := range r.s.sequences {
		if seq.OwnerID != ownerID || seq.DocumentType != documentType {
			continue
		}
		if !seq.EligibleOn(asOf) || slices.Contains(exclude, seq.ID) {
			continue
		}
		if best == nil || seq.Cursor < best.Cursor ||
			(seq.Cursor == best.Cursor && seq.CreatedAt.Before(best.CreatedAt)) {
			best = seq
		}
	}
	if best == nil {
		return nil, apperror.NewNotFound("ncf_sequence", fmt.Sprintf("%s/%s", ownerID, documentType))
	}
	cp := *best
	return &cp, nil
}

func (r *SequenceRepo) List(ctx context.Context, filter sequence.ListFilter) ([]*sequence.Sequence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*sequence.Sequence, 0)
	for _, seq := range r.s.sequences {
		if !id.IsNil(filter.OwnerID) && seq.OwnerID != filter.OwnerID {
			continue
		}
		if filter.DocumentType != "" && seq.DocumentType != filter.DocumentType {
			continue
		}
		if len(filter.States) > 0 && !slices.Contains(filter.States, seq.State) {
			continue
		}
		cp := *seq
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *SequenceRepo) AdvanceCursor(ctx context.Context, sequenceID id.ID, from, to int64, state ncf.State) error {
	if to <= from {
		return apperror.NewInternal(fmt.Errorf("cursor of %s must increase: %d -> %d", sequenceID, from, to))
	}
	return r.s.write(ctx, func() (func(), error) {
		seq, ok := r.s.sequences[sequenceID]
		if !ok {
			return nil, apperror.NewNotFound("ncf_sequence", sequenceID)
		}
		switch {
		case seq.State == ncf.StateDepleted:
			return nil, apperror.NewSequenceDepleted(seq.Prefix).WithDetail("sequence_id", sequenceID)
		case seq.State != ncf.StateActive:
			return nil, apperror.NewSequenceUnavailable(seq.Prefix, string(seq.State)).WithDetail("sequence_id", sequenceID)
		case seq.Cursor != from:
			return nil, apperror.NewConcurrentModification("ncf_sequence", sequenceID)
		}
		prevState, prevUpdated := seq.State, seq.UpdatedAt
		seq.Cursor = to
		seq.State = state
		seq.UpdatedAt = time.Now().UTC()
		return func() {
			if seq.Cursor == to {
				seq.Cursor = from
			}
			if seq.State == state {
				seq.State = prevState
			}
			seq.UpdatedAt = prevUpdated
		}, nil
	})
}

func (r *SequenceRepo) Transition(ctx context.Context, sequenceID id.ID, from, to ncf.State) (bool, error) {
	changed := false
	err := r.s.write(ctx, func() (func(), error) {
		seq, ok := r.s.sequences[sequenceID]
		if !ok {
			return nil, apperror.NewNotFound("ncf_sequence", sequenceID)
		}
		if seq.State != from {
			return nil, nil
		}
		prevUpdated := seq.UpdatedAt
		seq.State = to
		seq.UpdatedAt = time.Now().UTC()
		changed = true
		return func() {
			if seq.State == to {
				seq.State = from
			}
			seq.UpdatedAt = prevUpdated
		}, nil
	})
	return changed, err
}
