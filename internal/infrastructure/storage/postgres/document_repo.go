package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"ncfledger/internal/core/apperror"
	"ncfledger/internal/core/id"
	"ncfledger/internal/domain/document"
)

const documentTable = "ncf_documents"

var documentColumns = []string{
	"id", "owner_id", "document_type", "reference", "counterparty_name", "counterparty_tax_id",
	"currency", "subtotal", "tax", "total", "issue_date", "state", "assignment_id", "ncf_number",
	"needs_manual_ncf", "created_at", "updated_at",
}

var _ document.Repository = (*DocumentRepo)(nil)

// DocumentRepo implements document.Repository.
type DocumentRepo struct {
	txm *TxManager
}

// NewDocumentRepo creates the repository.
func NewDocumentRepo(txm *TxManager) *DocumentRepo {
	return &DocumentRepo{txm: txm}
}

func (r *DocumentRepo) Create(ctx context.Context, d *document.Document) error {
	query, args, err := psql.Insert(documentTable).
		Columns(documentColumns...).
		Values(d.ID, d.OwnerID, d.DocumentType, d.Reference, d.CounterpartyName, d.CounterpartyTaxID,
			d.Currency, d.Subtotal, d.Tax, d.Total, d.IssueDate, d.State, d.AssignmentID, d.NCFNumber,
			d.NeedsManualNCF, d.CreatedAt, d.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build document insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return classifyError(err)
	}
	return nil
}

func (r *DocumentRepo) GetByID(ctx context.Context, documentID id.ID) (*document.Document, error) {
	query, args, err := psql.Select(documentColumns...).From(documentTable).Where(sq.Eq{"id": documentID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build document query: %w", err)
	}
	var d document.Document
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &d, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("document", documentID)
		}
		return nil, classifyError(err)
	}
	return &d, nil
}

func (r *DocumentRepo) GetMany(ctx context.Context, ids []id.ID) (map[id.ID]*document.Document, error) {
	out := make(map[id.ID]*document.Document, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query, args, err := psql.Select(documentColumns...).From(documentTable).Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build document batch query: %w", err)
	}
	var docs []*document.Document
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &docs, query, args...); err != nil {
		return nil, classifyError(err)
	}
	for _, d := range docs {
		out[d.ID] = d
	}
	return out, nil
}

func (r *DocumentRepo) List(ctx context.Context, ownerID id.ID, limit int) ([]*document.Document, error) {
	b := psql.Select(documentColumns...).
		From(documentTable).
		Where(sq.Eq{"owner_id": ownerID}).
		OrderBy("created_at DESC")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build document list: %w", err)
	}
	out := make([]*document.Document, 0)
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, query, args...); err != nil {
		return nil, classifyError(err)
	}
	return out, nil
}

func (r *DocumentRepo) LinkAssignment(ctx context.Context, documentID, ownerID, assignmentID id.ID, number string) error {
	query, args, err := psql.Update(documentTable).
		Set("assignment_id", assignmentID).
		Set("ncf_number", number).
		Set("needs_manual_ncf", false).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": documentID, "owner_id": ownerID, "assignment_id": nil}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build document link: %w", err)
	}
	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, query, args...)
	if err != nil {
		return classifyError(err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// Distinguish a missing document from one that already has a number.
	d, err := r.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if d.OwnerID != ownerID {
		return apperror.NewNotFound("document", documentID)
	}
	existing := ""
	if d.NCFNumber != nil {
		existing = *d.NCFNumber
	}
	return apperror.NewAlreadyAssigned(documentID, existing)
}

func (r *DocumentRepo) MarkPosted(ctx context.Context, documentID id.ID, needsManualNCF bool) error {
	query, args, err := psql.Update(documentTable).
		Set("state", document.StatePosted).
		Set("needs_manual_ncf", needsManualNCF).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": documentID, "state": document.StateDraft}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build document post: %w", err)
	}
	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, query, args...)
	if err != nil {
		return classifyError(err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, documentID); err != nil {
			return err
		}
		return apperror.NewConflict("document is already posted").WithDetail("document_id", documentID)
	}
	return nil
}

func (r *DocumentRepo) Delete(ctx context.Context, documentID id.ID) error {
	query, args, err := psql.Delete(documentTable).Where(sq.Eq{"id": documentID}).ToSql()
	if err != nil {
		return fmt.Errorf("build document delete: %w", err)
	}
	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, query, args...)
	if err != nil {
		return classifyError(err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("document", documentID)
	}
	return nil
}
