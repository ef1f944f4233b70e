package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"ncfledger/internal/core/apperror"
)

// PostgreSQL SQLSTATE codes the repositories react to.
const (
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgCheckViolation       = "23514"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
	pgQueryCanceled        = "57014"
)

// Constraint names from the migrations.
const (
	constraintOpenSequence     = "ncf_sequences_open_uq"
	constraintAssignmentNumber = "ncf_assignments_owner_number_key"
	constraintAssignmentDoc    = "ncf_assignments_document_key"
	constraintOwnerRNC         = "ncf_owners_rnc_key"
)

// classifyError maps driver errors to AppErrors. Errors it does not know are
// returned unchanged.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if apperror.IsAppError(err) {
		return err
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
		return apperror.NewTransient(err)
	case pgUniqueViolation:
		switch pgErr.ConstraintName {
		case constraintAssignmentNumber:
			return apperror.NewDuplicateNumber("").WithCause(err)
		case constraintAssignmentDoc:
			return apperror.NewAlreadyAssigned(nil, "").WithCause(err)
		case constraintOpenSequence:
			return apperror.NewDuplicate("sequence", "prefix", "").
				WithDetail("reason", "an active or inactive sequence already exists for this prefix and document type").
				WithCause(err)
		case constraintOwnerRNC:
			return apperror.NewDuplicate("owner", "rnc", "").WithCause(err)
		}
		return apperror.NewDuplicate("record", pgErr.ConstraintName, "").WithCause(err)
	case pgForeignKeyViolation:
		return apperror.NewNotFound("referenced record", pgErr.ConstraintName).WithCause(err)
	case pgCheckViolation:
		return apperror.NewValidation("value rejected by constraint "+pgErr.ConstraintName).WithCause(err)
	case pgQueryCanceled:
		return apperror.NewTransient(err)
	}
	return apperror.NewDatabase(err)
}

// notFoundOr turns pgx.ErrNoRows into a NotFound error.
func notFoundOr(err error, entity string, key any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperror.NewNotFound(entity, key)
	}
	return classifyError(err)
}
