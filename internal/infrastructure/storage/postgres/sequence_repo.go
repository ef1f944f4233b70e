package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"ncfledger/internal/core/apperror"
	"ncfledger/internal/core/id"
	"ncfledger/internal/core/ncf"
	"ncfledger/internal/domain/sequence"
)

// psql builds PostgreSQL statements with $n placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const sequenceTable = "ncf_sequences"

var sequenceColumns = ExtractDBColumns[sequence.Sequence]()

var _ sequence.Repository = (*SequenceRepo)(nil)

// SequenceRepo implements sequence.Repository.
type SequenceRepo struct {
	txm *TxManager
}

// NewSequenceRepo creates the repository.
func NewSequenceRepo(txm *TxManager) *SequenceRepo {
	return &SequenceRepo{txm: txm}
}

func (r *SequenceRepo) Create(ctx context.Context, s *sequence.Sequence) error {
	query, args, err := psql.Insert(sequenceTable).
		SetMap(StructToMap(s)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build sequence insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		err = classifyError(err)
		if apperror.IsCode(err, apperror.CodeDuplicate) {
			return sequence.DuplicateOpenError(s)
		}
		return err
	}
	return nil
}

func (r *SequenceRepo) GetByID(ctx context.Context, sequenceID id.ID) (*sequence.Sequence, error) {
	return r.get(ctx, psql.Select(sequenceColumns...).From(sequenceTable).Where(sq.Eq{"id": sequenceID}), sequenceID)
}

func (r *SequenceRepo) GetForUpdate(ctx context.Context, sequenceID id.ID) (*sequence.Sequence, error) {
	if !r.txm.InTx(ctx) {
		return nil, apperror.NewInternal(fmt.Errorf("row lock on %s requires a transaction", sequenceID))
	}
	return r.get(ctx, psql.Select(sequenceColumns...).
		From(sequenceTable).
		Where(sq.Eq{"id": sequenceID}).
		Suffix("FOR UPDATE"), sequenceID)
}

func (r *SequenceRepo) get(ctx context.Context, b sq.SelectBuilder, key any) (*sequence.Sequence, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sequence query: %w", err)
	}
	var s sequence.Sequence
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &s, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("ncf_sequence", key)
		}
		return nil, classifyError(err)
	}
	return &s, nil
}

// eligibleQuery selects the lowest-cursor Active sequence valid on asOf.
func eligibleQuery(ownerID id.ID, documentType ncf.DocumentType, asOf time.Time, exclude []id.ID) sq.SelectBuilder {
	b := psql.Select(sequenceColumns...).
		From(sequenceTable).
		Where(sq.Eq{"owner_id": ownerID, "document_type": documentType, "state": ncf.StateActive}).
		Where(sq.LtOrEq{"valid_from": asOf}).
		Where(sq.GtOrEq{"valid_until": asOf}).
		Where("next_number <= range_end").
		OrderBy("next_number", "created_at").
		Limit(1)
	if len(exclude) > 0 {
		b = b.Where(sq.NotEq{"id": exclude})
	}
	return b
}

func (r *SequenceRepo) FindEligible(ctx context.Context, ownerID id.ID, documentType ncf.DocumentType, asOf time.Time, exclude []id.ID) (*sequence.Sequence, error) {
	return r.get(ctx, eligibleQuery(ownerID, documentType, ncf.Day(asOf), exclude), fmt.Sprintf("%s/%s", ownerID, documentType))
}

func listQuery(filter sequence.ListFilter) sq.SelectBuilder {
	b := psql.Select(sequenceColumns...).From(sequenceTable)
	if !id.IsNil(filter.OwnerID) {
		b = b.Where(sq.Eq{"owner_id": filter.OwnerID})
	}
	if filter.DocumentType != "" {
		b = b.Where(sq.Eq{"document_type": filter.DocumentType})
	}
	if len(filter.States) > 0 {
		b = b.Where(sq.Eq{"state": filter.States})
	}
	return b.OrderBy("updated_at DESC", "created_at DESC")
}

func (r *SequenceRepo) List(ctx context.Context, filter sequence.ListFilter) ([]*sequence.Sequence, error) {
	query, args, err := listQuery(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sequence list: %w", err)
	}
	out := make([]*sequence.Sequence, 0)
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, query, args...); err != nil {
		return nil, classifyError(err)
	}
	return out, nil
}

func (r *SequenceRepo) AdvanceCursor(ctx context.Context, sequenceID id.ID, from, to int64, state ncf.State) error {
	if to <= from {
		return apperror.NewInternal(fmt.Errorf("cursor of %s must increase: %d -> %d", sequenceID, from, to))
	}
	query, args, err := psql.Update(sequenceTable).
		Set("next_number", to).
		Set("state", state).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": sequenceID, "next_number": from, "state": ncf.StateActive}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build cursor update: %w", err)
	}
	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, query, args...)
	if err != nil {
		return classifyError(err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("ncf_sequence", sequenceID)
	}
	return nil
}

func (r *SequenceRepo) Transition(ctx context.Context, sequenceID id.ID, from, to ncf.State) (bool, error) {
	query, args, err := psql.Update(sequenceTable).
		Set("state", to).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": sequenceID, "state": from}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build transition: %w", err)
	}
	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, query, args...)
	if err != nil {
		return false, classifyError(err)
	}
	return tag.RowsAffected() == 1, nil
}
