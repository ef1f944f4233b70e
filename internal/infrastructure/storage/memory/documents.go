package memory

import (
	"context"
	"sort"
	"time"

	"ncfledger/internal/core/apperror"
	"ncfledger/internal/core/id"
	"ncfledger/internal/domain/assignment"
	"ncfledger/internal/domain/document"
)

var _ document.Repository = (*DocumentRepo)(nil)

// DocumentRepo implements document.Repository.
type DocumentRepo struct {
	s *Store
}

func cloneDocument(d *document.Document) *document.Document {
	cp := *d
	if d.AssignmentID != nil {
		v := *d.AssignmentID
		cp.AssignmentID = &v
	}
	if d.NCFNumber != nil {
		v := *d.NCFNumber
		cp.NCFNumber = &v
	}
	return &cp
}

func (r *DocumentRepo) Create(ctx context.Context, d *document.Document) error {
	return r.s.write(ctx, func() (func(), error) {
		if _, ok := r.s.owners[d.OwnerID]; !ok {
			return nil, apperror.NewNotFound("owner", d.OwnerID)
		}
		if _, ok := r.s.documents[d.ID]; ok {
			return nil, apperror.NewDuplicate("document", "id", d.ID.String())
		}
		r.s.documents[d.ID] = cloneDocument(d)
		return func() { delete(r.s.documents, d.ID) }, nil
	})
}

func (r *DocumentRepo) GetByID(ctx context.Context, documentID id.ID) (*document.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	d, ok := r.s.documents[documentID]
	if !ok {
		return nil, apperror.NewNotFound("document", documentID)
	}
	return cloneDocument(d), nil
}

func (r *DocumentRepo) GetMany(ctx context.Context, ids []id.ID) (map[id.ID]*document.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make(map[id.ID]*document.Document, len(ids))
	for _, docID := range ids {
		if d, ok := r.s.documents[docID]; ok {
			out[docID] = cloneDocument(d)
		}
	}
	return out, nil
}

func (r *DocumentRepo) List(ctx context.Context, ownerID id.ID, limit int) ([]*document.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	out := make([]*document.Document, 0)
	for _, d := range r.s.documents {
		if d.OwnerID == ownerID {
			out = append(out, cloneDocument(d))
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *DocumentRepo) LinkAssignment(ctx context.Context, documentID, ownerID, assignmentID id.ID, number string) error {
	return r.s.write(ctx, func() (func(), error) {
		d, ok := r.s.documents[documentID]
		if !ok || d.OwnerID != ownerID {
			return nil, apperror.NewNotFound("document", documentID)
		}
		if d.AssignmentID != nil {
			existing := ""
			if d.NCFNumber != nil {
				existing = *d.NCFNumber
			}
			return nil, apperror.NewAlreadyAssigned(documentID, existing)
		}
		prev := cloneDocument(d)
		d.AssignmentID = &assignmentID
		d.NCFNumber = &number
		d.NeedsManualNCF = false
		d.UpdatedAt = time.Now().UTC()
		return func() { r.s.documents[documentID] = prev }, nil
	})
}

func (r *DocumentRepo) MarkPosted(ctx context.Context, documentID id.ID, needsManualNCF bool) error {
	return r.s.write(ctx, func() (func(), error) {
		d, ok := r.s.documents[documentID]
		if !ok {
			return nil, apperror.NewNotFound("document", documentID)
		}
		if d.State != document.StateDraft {
			return nil, apperror.NewConflict("document is already posted").WithDetail("document_id", documentID)
		}
		prev := cloneDocument(d)
		d.State = document.StatePosted
		d.NeedsManualNCF = needsManualNCF
		d.UpdatedAt = time.Now().UTC()
		return func() { r.s.documents[documentID] = prev }, nil
	})
}

func (r *DocumentRepo) Delete(ctx context.Context, documentID id.ID) error {
	return r.s.write(ctx, func() (func(), error) {
		d, ok := r.s.documents[documentID]
		if !ok {
			return nil, apperror.NewNotFound("document", documentID)
		}
		removed := make([]*assignment.Assignment, 0, 1)
		for aID, a := range r.s.assignments {
			if a.DocumentID == documentID {
				removed = append(removed, a)
				delete(r.s.assignments, aID)
			}
		}
		delete(r.s.documents, documentID)
		return func() {
			r.s.documents[documentID] = d
			for _, a := range removed {
				r.s.assignments[a.ID] = a
			}
		}, nil
	})
}
