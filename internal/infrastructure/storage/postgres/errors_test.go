package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"ncfledger/internal/core/apperror"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"lock timeout", &pgconn.PgError{Code: pgLockNotAvailable}, apperror.CodeTransient},
		{"serialization", &pgconn.PgError{Code: pgSerializationFailure}, apperror.CodeTransient},
		{"deadlock", &pgconn.PgError{Code: pgDeadlockDetected}, apperror.CodeTransient},
		{"duplicate number", &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: constraintAssignmentNumber}, apperror.CodeDuplicateNumber},
		{"document numbered twice", &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: constraintAssignmentDoc}, apperror.CodeAlreadyAssigned},
		{"second open sequence", &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: constraintOpenSequence}, apperror.CodeDuplicate},
		{"foreign key", &pgconn.PgError{Code: pgForeignKeyViolation}, apperror.CodeNotFound},
		{"check", &pgconn.PgError{Code: pgCheckViolation, ConstraintName: "ncf_sequences_range_chk"}, apperror.CodeValidation},
		{"wrapped", fmt.Errorf("commit: %w", &pgconn.PgError{Code: pgLockNotAvailable}), apperror.CodeTransient},
		{"other pg error", &pgconn.PgError{Code: "XX000"}, apperror.CodeDatabase},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, apperror.IsCode(classifyError(tt.err), tt.code), "got %v", classifyError(tt.err))
		})
	}
}

func TestClassifyErrorPassthrough(t *testing.T) {
	assert.NoError(t, classifyError(nil))

	plain := errors.New("network down")
	assert.Same(t, plain, classifyError(plain))

	appErr := apperror.NewConflict("x")
	assert.Same(t, appErr, classifyError(appErr).(*apperror.AppError))
}

func TestNotFoundOr(t *testing.T) {
	assert.True(t, apperror.IsNotFound(notFoundOr(pgx.ErrNoRows, "ncf_sequence", "x")))
	assert.True(t, apperror.IsTransient(notFoundOr(&pgconn.PgError{Code: pgLockNotAvailable}, "ncf_sequence", "x")))
}
