// Package memory is a transactional in-memory store implementing the
// repository, transaction, outbox and audit contracts. It backs the
// `memory` storage driver and the domain tests.
//
// Writes are applied immediately and undone on rollback. Sequence row locks
// are held until the owning transaction ends, so concurrent reservations on
// one sequence serialize while different sequences proceed in parallel.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ncfledger/internal/core/apperror"
	"ncfledger/internal/core/events"
	"ncfledger/internal/core/id"
	"ncfledger/internal/core/tx"
	"ncfledger/internal/domain/assignment"
	"ncfledger/internal/domain/document"
	"ncfledger/internal/domain/owner"
	"ncfledger/internal/domain/sequence"
)

var (
	_ tx.ReadOnlyManager = (*Store)(nil)
	_ events.Publisher   = (*Store)(nil)
	_ sequence.Auditor   = (*Store)(nil)
)

// AuditRecord is one logged administrative change.
type AuditRecord struct {
	EntityType string
	EntityID   id.ID
	Action     string
	Changes    map[string]any
	At         time.Time
}

// Store holds all state behind one mutex. Row locks are separate channels
// so that waiting for a lock never blocks unrelated reads and writes.
type Store struct {
	mu          sync.RWMutex
	owners      map[id.ID]*owner.Owner
	sequences   map[id.ID]*sequence.Sequence
	assignments map[id.ID]*assignment.Assignment
	documents   map[id.ID]*document.Document
	published   []events.Event
	audit       []AuditRecord
	locks       map[id.ID]chan struct{}

	lockTimeout time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithLockTimeout bounds how long GetForUpdate waits for a row lock before
// failing with a transient error. Zero waits until ctx is done.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) { s.lockTimeout = d }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		owners:      make(map[id.ID]*owner.Owner),
		sequences:   make(map[id.ID]*sequence.Sequence),
		assignments: make(map[id.ID]*assignment.Assignment),
		documents:   make(map[id.ID]*document.Document),
		locks:       make(map[id.ID]chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Owners returns the owner repository.
func (s *Store) Owners() *OwnerRepo { return &OwnerRepo{s: s} }

// Sequences returns the sequence repository.
func (s *Store) Sequences() *SequenceRepo { return &SequenceRepo{s: s} }

// Assignments returns the assignment repository.
func (s *Store) Assignments() *AssignmentRepo { return &AssignmentRepo{s: s} }

// Documents returns the document repository.
func (s *Store) Documents() *DocumentRepo { return &DocumentRepo{s: s} }

// Publish implements events.Publisher. Inside a transaction the event is
// kept until commit and dropped on rollback.
func (s *Store) Publish(ctx context.Context, e events.Event) error {
	if t := txFrom(ctx); t != nil {
		t.events = append(t.events, e)
		return nil
	}
	s.mu.Lock()
	s.published = append(s.published, e)
	s.mu.Unlock()
	return nil
}

// Published returns committed events.
func (s *Store) Published() []events.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]events.Event, len(s.published))
	copy(out, s.published)
	return out
}

// LogChange implements sequence.Auditor.
func (s *Store) LogChange(ctx context.Context, entityType string, entityID id.ID, action string, changes map[string]any) error {
	return s.write(ctx, func() (func(), error) {
		s.audit = append(s.audit, AuditRecord{
			EntityType: entityType,
			EntityID:   entityID,
			Action:     action,
			Changes:    changes,
			At:         time.Now().UTC(),
		})
		n := len(s.audit) - 1
		return func() { s.audit = s.audit[:n] }, nil
	})
}

// AuditLog returns audit records for an entity.
func (s *Store) AuditLog(entityID id.ID) []AuditRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []AuditRecord
	for _, r := range s.audit {
		if r.EntityID == entityID {
			out = append(out, r)
		}
	}
	return out
}

// write applies a mutation under the store lock and registers its undo with
// the transaction in ctx. Without a transaction the write is final.
func (s *Store) write(ctx context.Context, apply func() (func(), error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	undo, err := apply()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if t := txFrom(ctx); t != nil && undo != nil {
		t.undo = append(t.undo, undo)
	}
	return nil
}

// lockRow acquires the row lock of a sequence for the transaction in ctx.
func (s *Store) lockRow(ctx context.Context, rowID id.ID) error {
	t := txFrom(ctx)
	if t == nil {
		return apperror.NewInternal(fmt.Errorf("row lock on %s requires a transaction", rowID))
	}
	if _, held := t.held[rowID]; held {
		return nil
	}

	s.mu.Lock()
	ch, ok := s.locks[rowID]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[rowID] = ch
	}
	s.mu.Unlock()

	var timeout <-chan time.Time
	if s.lockTimeout > 0 {
		timer := time.NewTimer(s.lockTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case ch <- struct{}{}:
		t.held[rowID] = ch
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timeout:
		return apperror.NewTransient(fmt.Errorf("lock wait timeout on %s", rowID))
	}
}
