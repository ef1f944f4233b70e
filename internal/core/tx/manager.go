// Package tx defines the transaction contract used by the domain services.
// The registry, allocator and ledger only depend on this interface; the
// postgres and in-memory stores provide implementations.
package tx

import (
	"context"
)

// Manager runs a unit of work atomically.
type Manager interface {
	// RunInTransaction executes fn within a transaction.
	// If fn returns an error, or ctx is cancelled before commit, every write
	// made through ctx is rolled back. Nested calls reuse the outer transaction.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnlyManager extends Manager with read-only transactions.
type ReadOnlyManager interface {
	Manager

	// ReadOnly executes fn in a read-only transaction.
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}
