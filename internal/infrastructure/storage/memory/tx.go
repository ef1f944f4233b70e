package memory

import (
	"context"

	"ncfledger/internal/core/events"
	"ncfledger/internal/core/id"
)

type txKey struct{}

type txState struct {
	undo   []func()
	held   map[id.ID]chan struct{}
	events []events.Event
}

func txFrom(ctx context.Context) *txState {
	if t, ok := ctx.Value(txKey{}).(*txState); ok {
		return t
	}
	return nil
}

// RunInTransaction implements tx.Manager. Nested calls join the outer
// transaction. A cancelled ctx at commit time rolls everything back.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFrom(ctx) != nil {
		return fn(ctx)
	}

	t := &txState{held: make(map[id.ID]chan struct{})}
	txCtx := context.WithValue(ctx, txKey{}, t)

	err := fn(txCtx)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		s.rollback(t)
		return err
	}
	s.commit(t)
	return nil
}

// ReadOnly implements tx.ReadOnlyManager.
func (s *Store) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.RunInTransaction(ctx, fn)
}

func (s *Store) commit(t *txState) {
	s.mu.Lock()
	s.published = append(s.published, t.events...)
	s.mu.Unlock()
	release(t)
}

func (s *Store) rollback(t *txState) {
	s.mu.Lock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	s.mu.Unlock()
	release(t)
}

func release(t *txState) {
	for _, ch := range t.held {
		<-ch
	}
}
