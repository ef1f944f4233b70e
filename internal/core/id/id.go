// Package id provides UUIDv7 identifiers for owners, sequences, documents
// and assignments.
package id

import (
	"github.com/google/uuid"
)

// ID is the identifier type shared by every persisted record.
type ID = uuid.UUID

// New generates a time-ordered UUIDv7 so that assignment and sequence rows
// sort naturally by creation time.
func New() ID {
	v, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return v
}

// Parse converts a string to an ID.
func Parse(s string) (ID, error) {
	return uuid.Parse(s)
}

// MustParse converts a string to an ID and panics on error.
// Use only for constants and tests.
func MustParse(s string) ID {
	return uuid.MustParse(s)
}

// Nil returns the zero ID.
func Nil() ID {
	return uuid.Nil
}

// IsNil reports whether v is the zero ID.
func IsNil(v ID) bool {
	return v == uuid.Nil
}
