// Package apperror provides structured error handling for the NCF service.
// Every error that reaches a caller is an AppError so transports can render a
// stable code, message and details.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes.
const (
	// Infrastructure errors (5xx)
	CodeInternal  = "INTERNAL_ERROR"
	CodeDatabase  = "DATABASE_ERROR"
	CodeTransient = "TRANSIENT_CONTENTION"

	// Validation errors (400)
	CodeValidation   = "VALIDATION_ERROR"
	CodeInvalidInput = "INVALID_INPUT"

	// Business rule violations (422)
	CodeBusinessRule           = "BUSINESS_RULE_VIOLATION"
	CodeNoEligibleSequence     = "NCF_NO_ELIGIBLE_SEQUENCE"
	CodeSequenceUnavailable    = "NCF_SEQUENCE_UNAVAILABLE"
	CodeSequenceDepleted       = "NCF_SEQUENCE_DEPLETED"
	CodeInvalidTransition      = "NCF_INVALID_TRANSITION"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Conflict (409)
	CodeConflict        = "CONFLICT"
	CodeDuplicate       = "DUPLICATE_ENTRY"
	CodeAlreadyAssigned = "NCF_ALREADY_ASSIGNED"
	CodeDuplicateNumber = "NCF_DUPLICATE_NUMBER"
)

// AppError is the standard error type of the service.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field, prefix, sequence id, ...)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewBusinessRule creates a business rule violation error (422)
func NewBusinessRule(code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewNoEligibleSequence is returned when no sequence can serve an allocation.
func NewNoEligibleSequence(owner any, documentType string) *AppError {
	return NewBusinessRule(CodeNoEligibleSequence,
		fmt.Sprintf("no active NCF sequence for document type %s; register or activate one", documentType)).
		WithDetail("owner_id", owner).
		WithDetail("document_type", documentType)
}

// NewSequenceUnavailable is returned when the resolved sequence cannot issue
// numbers right now (inactive, expired, not yet valid or contended).
func NewSequenceUnavailable(prefix, reason string) *AppError {
	return NewBusinessRule(CodeSequenceUnavailable,
		fmt.Sprintf("NCF sequence %s is unavailable: %s", prefix, reason)).
		WithDetail("prefix", prefix).
		WithDetail("reason", reason)
}

// NewSequenceDepleted is returned when the resolved sequence has no numbers left.
func NewSequenceDepleted(prefix string) *AppError {
	return NewBusinessRule(CodeSequenceDepleted,
		fmt.Sprintf("NCF sequence %s is depleted; register a new range", prefix)).
		WithDetail("prefix", prefix)
}

// NewAlreadyAssigned is returned when a document already carries an NCF.
func NewAlreadyAssigned(documentID any, number string) *AppError {
	e := &AppError{
		Code:       CodeAlreadyAssigned,
		Message:    "document already has an NCF assigned",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"document_id": documentID},
	}
	if number != "" {
		e.Details["number"] = number
	}
	return e
}

// NewDuplicateNumber reports a uniqueness violation on an issued number.
func NewDuplicateNumber(number string) *AppError {
	return &AppError{
		Code:       CodeDuplicateNumber,
		Message:    "NCF number already issued",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"number": number},
	}
}

// NewTransient marks lock timeouts and serialization failures.
func NewTransient(err error) *AppError {
	return &AppError{
		Code:       CodeTransient,
		Message:    "storage contention, retry later",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

// NewInvalidTransition creates a lifecycle transition error (422)
func NewInvalidTransition(from, to string) *AppError {
	return NewBusinessRule(CodeInvalidTransition,
		fmt.Sprintf("cannot change sequence state from %s to %s", from, to)).
		WithDetail("from", from).
		WithDetail("to", to)
}

// NewConcurrentModification creates an optimistic locking error
func NewConcurrentModification(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeConcurrentModification,
		Message:    "Record was modified by another user. Please refresh and try again.",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewDatabase wraps an unclassified storage failure (500).
func NewDatabase(err error) *AppError {
	return &AppError{
		Code:       CodeDatabase,
		Message:    "Database error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewConflict creates a conflict error (409)
func NewConflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// NewDuplicate creates a duplicate entry error (409)
func NewDuplicate(entity, field, value string) *AppError {
	return &AppError{
		Code:       CodeDuplicate,
		Message:    fmt.Sprintf("%s with this %s already exists", entity, field),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "field": field, "value": value},
	}
}

// --- Helper functions ---

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsCode reports whether err carries one of the given codes.
func IsCode(err error, codes ...string) bool {
	appErr, ok := AsAppError(err)
	if !ok {
		return false
	}
	for _, c := range codes {
		if appErr.Code == c {
			return true
		}
	}
	return false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	return IsCode(err, CodeNotFound)
}

// IsTransient checks if error is a retryable storage conflict.
func IsTransient(err error) bool {
	return IsCode(err, CodeTransient)
}

// IsAllocationRefusal reports the recoverable allocation outcomes a caller
// may react to by creating or activating a sequence.
func IsAllocationRefusal(err error) bool {
	return IsCode(err, CodeNoEligibleSequence, CodeSequenceUnavailable, CodeSequenceDepleted)
}
