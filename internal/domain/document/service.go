package document

import (
	"context"
	"fmt"
	"time"

	"ncfledger/internal/core/apperror"
	"ncfledger/internal/core/id"
	"ncfledger/internal/core/tx"
	"ncfledger/internal/domain/allocator"
	"ncfledger/internal/domain/assignment"
	"ncfledger/internal/domain/owner"
	"ncfledger/internal/domain/policy"
	"ncfledger/pkg/logger"
)

// Service is the document posting workflow.
type Service struct {
	repo      Repository
	owners    owner.Repository
	allocator *allocator.Service
	txm       tx.Manager
}

// NewService creates a document service.
func NewService(repo Repository, owners owner.Repository, alloc *allocator.Service, txm tx.Manager) *Service {
	return &Service{
		repo:      repo,
		owners:    owners,
		allocator: alloc,
		txm:       txm,
	}
}

// Create stores a draft document.
func (s *Service) Create(ctx context.Context, d *Document) error {
	if err := d.Validate(ctx); err != nil {
		return err
	}
	if _, err := s.owners.GetByID(ctx, d.OwnerID); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	logger.Info(ctx, "document created", "document_id", d.ID, "owner_id", d.OwnerID, "type", d.DocumentType)
	return nil
}

// Get returns a document.
func (s *Service) Get(ctx context.Context, documentID id.ID) (*Document, error) {
	return s.repo.GetByID(ctx, documentID)
}

// List returns an owner's documents.
func (s *Service) List(ctx context.Context, ownerID id.ID, limit int) ([]*Document, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.List(ctx, ownerID, limit)
}

// Delete removes a document. Its assignment goes with it but the number is
// never issued again.
func (s *Service) Delete(ctx context.Context, documentID id.ID) error {
	d, err := s.repo.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, documentID); err != nil {
		return err
	}
	if d.NCFNumber != nil {
		logger.Warn(ctx, "document with NCF deleted; number stays consumed",
			"document_id", d.ID,
			"number", *d.NCFNumber)
	}
	return nil
}

// AssignNCF allocates a number for a document on demand, either ahead of
// posting or for a posted document flagged for manual assignment. A zero
// asOf means today.
func (s *Service) AssignNCF(ctx context.Context, documentID id.ID, asOf time.Time) (*assignment.Assignment, error) {
	d, err := s.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	a, err := s.allocator.Allocate(ctx, allocator.Request{
		OwnerID:      d.OwnerID,
		DocumentType: d.DocumentType,
		DocumentID:   d.ID,
		AsOf:         asOf,
	})
	if err != nil {
		return nil, err
	}
	if d.NeedsManualNCF {
		logger.Info(ctx, "pending NCF resolved", "document_id", d.ID, "number", a.Number)
	}
	return a, nil
}

// Post finalizes a draft. When the owner requires an NCF for the document
// and auto-assignment is on, a number is allocated first. If allocation is
// refused the owner policy decides: block the posting, or post and flag the
// document for manual assignment.
func (s *Service) Post(ctx context.Context, documentID id.ID) (*Document, error) {
	d, err := s.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if d.State == StatePosted {
		return nil, apperror.NewConflict("document is already posted").WithDetail("document_id", d.ID)
	}

	o, err := s.owners.GetByID(ctx, d.OwnerID)
	if err != nil {
		return nil, err
	}

	required, err := RequiresNCF(o, d)
	if err != nil {
		return nil, err
	}

	needsManual := false
	if required && !d.HasNCF() {
		if !o.AutoAssign {
			needsManual = true
		} else if _, err := s.allocator.Allocate(ctx, allocator.Request{
			OwnerID:      d.OwnerID,
			DocumentType: d.DocumentType,
			DocumentID:   d.ID,
			AsOf:         d.IssueDate,
		}); err != nil {
			if o.BlockOnFailure || !apperror.IsAllocationRefusal(err) {
				return nil, err
			}
			needsManual = true
			logger.Warn(ctx, "document posted without NCF, flagged for manual assignment",
				"document_id", d.ID,
				"reason", err)
		}
	}

	if err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.MarkPosted(ctx, d.ID, needsManual)
	}); err != nil {
		return nil, err
	}

	logger.Info(ctx, "document posted", "document_id", d.ID, "needs_manual_ncf", needsManual)
	return s.repo.GetByID(ctx, documentID)
}

// RequiresNCF decides whether d must carry a fiscal number for owner o.
func RequiresNCF(o *owner.Owner, d *Document) (bool, error) {
	if !o.NCFEnabled {
		return false, nil
	}
	if o.RequireRule == "" {
		return true, nil
	}
	rule, err := policy.Compile(o.RequireRule)
	if err != nil {
		return false, err
	}
	ok, err := rule.Eval(d.RuleInput())
	if err != nil {
		return false, apperror.NewValidation("owner require rule failed").
			WithDetail("field", "requireRule").
			WithCause(err)
	}
	return ok, nil
}
