package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"ncfledger/internal/core/apperror"
	"ncfledger/internal/core/id"
	"ncfledger/internal/domain/assignment"
)

const assignmentTable = "ncf_assignments"

var assignmentColumns = ExtractDBColumns[assignment.Assignment]()

var _ assignment.Repository = (*AssignmentRepo)(nil)

// AssignmentRepo implements assignment.Repository. There is no update or
// delete statement; rows are removed only by the document cascade.
type AssignmentRepo struct {
	txm *TxManager
}

// NewAssignmentRepo creates the repository.
func NewAssignmentRepo(txm *TxManager) *AssignmentRepo {
	return &AssignmentRepo{txm: txm}
}

func (r *AssignmentRepo) Insert(ctx context.Context, a *assignment.Assignment) error {
	query, args, err := psql.Insert(assignmentTable).
		SetMap(StructToMap(a)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build assignment insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		err = classifyError(err)
		switch {
		case apperror.IsCode(err, apperror.CodeDuplicateNumber):
			return apperror.NewDuplicateNumber(a.Number).WithCause(err)
		case apperror.IsCode(err, apperror.CodeAlreadyAssigned):
			return apperror.NewAlreadyAssigned(a.DocumentID, "").WithCause(err)
		}
		return err
	}
	return nil
}

func (r *AssignmentRepo) GetByDocument(ctx context.Context, documentID id.ID) (*assignment.Assignment, error) {
	return r.get(ctx, sq.Eq{"document_id": documentID}, documentID)
}

func (r *AssignmentRepo) GetByNumber(ctx context.Context, ownerID id.ID, number string) (*assignment.Assignment, error) {
	return r.get(ctx, sq.Eq{"owner_id": ownerID, "number": number}, number)
}

func (r *AssignmentRepo) get(ctx context.Context, where sq.Eq, key any) (*assignment.Assignment, error) {
	query, args, err := psql.Select(assignmentColumns...).From(assignmentTable).Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build assignment query: %w", err)
	}
	var a assignment.Assignment
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &a, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("ncf_assignment", key)
		}
		return nil, classifyError(err)
	}
	return &a, nil
}

// windowQuery selects issued_at in [From, To+1day).
func windowQuery(q assignment.WindowQuery) sq.SelectBuilder {
	b := psql.Select(assignmentColumns...).
		From(assignmentTable).
		Where(sq.Eq{"owner_id": q.OwnerID}).
		Where(sq.GtOrEq{"issued_at": q.From}).
		Where(sq.Lt{"issued_at": q.To.AddDate(0, 0, 1)})
	if len(q.DocumentTypes) > 0 {
		b = b.Where(sq.Eq{"document_type": q.DocumentTypes})
	}
	return b.OrderBy("issued_at", "number")
}

func (r *AssignmentRepo) ListByWindow(ctx context.Context, q assignment.WindowQuery) ([]*assignment.Assignment, error) {
	return r.list(ctx, windowQuery(q))
}

func (r *AssignmentRepo) ListBySequence(ctx context.Context, sequenceID id.ID) ([]*assignment.Assignment, error) {
	return r.list(ctx, psql.Select(assignmentColumns...).
		From(assignmentTable).
		Where(sq.Eq{"sequence_id": sequenceID}).
		OrderBy("number"))
}

func (r *AssignmentRepo) list(ctx context.Context, b sq.SelectBuilder) ([]*assignment.Assignment, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build assignment list: %w", err)
	}
	out := make([]*assignment.Assignment, 0)
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, query, args...); err != nil {
		return nil, classifyError(err)
	}
	return out, nil
}
