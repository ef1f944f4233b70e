package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"ncfledger/internal/core/apperror"
	"ncfledger/internal/core/id"
	"ncfledger/internal/domain/owner"
)

const ownerTable = "ncf_owners"

// rnc is nullable so that several owners may omit it.
var ownerColumns = []string{
	"id", "name", "COALESCE(rnc, '') AS rnc", "dgii_name", "ncf_enabled", "auto_assign", "block_on_failure",
	"alert_days", "low_availability_threshold", "require_rule", "version", "created_at", "updated_at",
}

var _ owner.Repository = (*OwnerRepo)(nil)

// OwnerRepo implements owner.Repository.
type OwnerRepo struct {
	txm *TxManager
}

// NewOwnerRepo creates the repository.
func NewOwnerRepo(txm *TxManager) *OwnerRepo {
	return &OwnerRepo{txm: txm}
}

func (r *OwnerRepo) Create(ctx context.Context, o *owner.Owner) error {
	if o.Version == 0 {
		o.Version = 1
	}
	query, args, err := psql.Insert(ownerTable).
		Columns("id", "name", "rnc", "dgii_name", "ncf_enabled", "auto_assign", "block_on_failure",
			"alert_days", "low_availability_threshold", "require_rule", "version", "created_at", "updated_at").
		Values(o.ID, o.Name, sq.Expr("NULLIF(?, '')", o.RNC), o.DGIIName, o.NCFEnabled, o.AutoAssign, o.BlockOnFailure,
			o.AlertDays, o.LowAvailabilityThreshold, o.RequireRule, o.Version, o.CreatedAt, o.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build owner insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return classifyError(err)
	}
	return nil
}

func (r *OwnerRepo) GetByID(ctx context.Context, ownerID id.ID) (*owner.Owner, error) {
	query, args, err := psql.Select(ownerColumns...).From(ownerTable).Where(sq.Eq{"id": ownerID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build owner query: %w", err)
	}
	var o owner.Owner
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &o, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("owner", ownerID)
		}
		return nil, classifyError(err)
	}
	return &o, nil
}

// Update bumps the version and fails when another writer bumped it first.
func (r *OwnerRepo) Update(ctx context.Context, o *owner.Owner) error {
	query, args, err := psql.Update(ownerTable).
		Set("name", o.Name).
		Set("rnc", sq.Expr("NULLIF(?, '')", o.RNC)).
		Set("dgii_name", o.DGIIName).
		Set("ncf_enabled", o.NCFEnabled).
		Set("auto_assign", o.AutoAssign).
		Set("block_on_failure", o.BlockOnFailure).
		Set("alert_days", o.AlertDays).
		Set("low_availability_threshold", o.LowAvailabilityThreshold).
		Set("require_rule", o.RequireRule).
		Set("version", sq.Expr("version + 1")).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": o.ID, "version": o.Version}).
		Suffix("RETURNING version, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build owner update: %w", err)
	}
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, query, args...).Scan(&o.Version, &o.UpdatedAt); err != nil {
		if pgxscan.NotFound(err) {
			if _, getErr := r.GetByID(ctx, o.ID); getErr != nil {
				return getErr
			}
			return apperror.NewConcurrentModification("owner", o.ID)
		}
		return classifyError(err)
	}
	return nil
}

func (r *OwnerRepo) List(ctx context.Context, enabledOnly bool) ([]*owner.Owner, error) {
	b := psql.Select(ownerColumns...).From(ownerTable).OrderBy("name")
	if enabledOnly {
		b = b.Where(sq.Eq{"ncf_enabled": true})
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build owner list: %w", err)
	}
	out := make([]*owner.Owner, 0)
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, query, args...); err != nil {
		return nil, classifyError(err)
	}
	return out, nil
}
