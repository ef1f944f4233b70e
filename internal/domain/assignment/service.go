package assignment

import (
	"context"
	"strings"

	"ncfledger/internal/core/apperror"
	"ncfledger/internal/core/id"
	"ncfledger/internal/core/ncf"
)

// Service is the Assignment Ledger. It has no update or delete operation;
// rows disappear only when their document is deleted.
type Service struct {
	repo Repository
}

// NewService creates the ledger.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Record appends an assignment. Must run in the allocation transaction.
func (s *Service) Record(ctx context.Context, a *Assignment) error {
	if err := a.Validate(); err != nil {
		return err
	}
	return s.repo.Insert(ctx, a)
}

// FindByDocument returns the assignment of a document or a NotFound error.
func (s *Service) FindByDocument(ctx context.Context, documentID id.ID) (*Assignment, error) {
	return s.repo.GetByDocument(ctx, documentID)
}

// FindByNumber looks an issued number up for an owner.
func (s *Service) FindByNumber(ctx context.Context, ownerID id.ID, number string) (*Assignment, error) {
	if !ncf.Valid(number) {
		return nil, apperror.NewValidation("malformed NCF number").
			WithDetail("field", "number").
			WithDetail("value", number)
	}
	return s.repo.GetByNumber(ctx, ownerID, strings.ToUpper(strings.TrimSpace(number)))
}

// QueryByWindow lists assignments issued between two calendar days
// inclusive, ordered by issuedAt then number.
func (s *Service) QueryByWindow(ctx context.Context, q WindowQuery) ([]*Assignment, error) {
	if id.IsNil(q.OwnerID) {
		return nil, apperror.NewValidation("owner is required").WithDetail("field", "ownerId")
	}
	if q.From.IsZero() || q.To.IsZero() {
		return nil, apperror.NewValidation("date window is required").WithDetail("field", "from")
	}
	q.From, q.To = ncf.Day(q.From), ncf.Day(q.To)
	if q.To.Before(q.From) {
		return nil, apperror.NewValidation("date window end is before its start").WithDetail("field", "to")
	}
	for _, dt := range q.DocumentTypes {
		if !dt.Valid() {
			return nil, apperror.NewValidation("unknown document type").
				WithDetail("field", "documentType").
				WithDetail("value", dt)
		}
	}
	return s.repo.ListByWindow(ctx, q)
}

// BySequence lists the numbers issued from one sequence.
func (s *Service) BySequence(ctx context.Context, sequenceID id.ID) ([]*Assignment, error) {
	return s.repo.ListBySequence(ctx, sequenceID)
}
