package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ncfledger/internal/core/apperror"
	"ncfledger/internal/core/events"
	"ncfledger/internal/core/id"
	"ncfledger/internal/core/ncf"
	"ncfledger/internal/domain/assignment"
	"ncfledger/internal/domain/document"
	"ncfledger/internal/domain/owner"
	"ncfledger/internal/domain/sequence"
)

func seed(t *testing.T, s *Store) (*owner.Owner, *sequence.Sequence, *document.Document) {
	t.Helper()
	ctx := context.Background()

	o := owner.New("Acme SRL", "130000001")
	require.NoError(t, s.Owners().Create(ctx, o))

	today := ncf.Day(time.Now())
	seq, err := sequence.Spec{
		OwnerID:      o.ID,
		Prefix:       "B01",
		DocumentType: ncf.DocInvoice,
		RangeStart:   1,
		RangeEnd:     10,
		ValidFrom:    today,
		ValidUntil:   today.AddDate(0, 6, 0),
		Activate:     true,
	}.Build(today)
	require.NoError(t, err)
	require.NoError(t, s.Sequences().Create(ctx, seq))

	d := document.New(o.ID, ncf.DocInvoice, "F-1")
	require.NoError(t, s.Documents().Create(ctx, d))
	return o, seq, d
}

func TestRollbackUndoesWritesAndDropsEvents(t *testing.T) {
	s := New()
	o, seq, d := seed(t, s)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.RunInTransaction(ctx, func(ctx context.Context) error {
		require.NoError(t, s.Sequences().AdvanceCursor(ctx, seq.ID, 1, 2, ncf.StateActive))
		a := assignment.New(o.ID, seq.ID, d.ID, ncf.DocInvoice, "B0100000001", time.Now())
		require.NoError(t, s.Assignments().Insert(ctx, a))
		require.NoError(t, s.Documents().LinkAssignment(ctx, d.ID, o.ID, a.ID, a.Number))
		require.NoError(t, s.Publish(ctx, events.Event{EventType: events.TypeNumberAssigned}))
		require.NoError(t, s.LogChange(ctx, "ncf_sequence", seq.ID, "state_change", nil))
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Sequences().GetByID(ctx, seq.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Cursor)

	_, err = s.Assignments().GetByDocument(ctx, d.ID)
	assert.True(t, apperror.IsNotFound(err))

	doc, err := s.Documents().GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.False(t, doc.HasNCF())

	assert.Empty(t, s.Published())
	assert.Empty(t, s.AuditLog(seq.ID))
}

func TestCommitPublishesEvents(t *testing.T) {
	s := New()
	_, seq, _ := seed(t, s)

	err := s.RunInTransaction(context.Background(), func(ctx context.Context) error {
		return s.Publish(ctx, events.Event{AggregateID: seq.ID, EventType: events.TypeSequenceState})
	})
	require.NoError(t, err)
	require.Len(t, s.Published(), 1)
}

func TestCancelledContextRollsBackAtCommit(t *testing.T) {
	s := New()
	_, seq, _ := seed(t, s)

	ctx, cancel := context.WithCancel(context.Background())
	err := s.RunInTransaction(ctx, func(txCtx context.Context) error {
		require.NoError(t, s.Sequences().AdvanceCursor(txCtx, seq.ID, 1, 2, ncf.StateActive))
		cancel()
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)

	got, err := s.Sequences().GetByID(context.Background(), seq.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Cursor)
}

func TestRowLockTimesOutAsTransient(t *testing.T) {
	s := New(WithLockTimeout(20 * time.Millisecond))
	_, seq, _ := seed(t, s)
	ctx := context.Background()

	locked := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- s.RunInTransaction(ctx, func(ctx context.Context) error {
			if _, err := s.Sequences().GetForUpdate(ctx, seq.ID); err != nil {
				return err
			}
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked

	err := s.RunInTransaction(ctx, func(ctx context.Context) error {
		_, err := s.Sequences().GetForUpdate(ctx, seq.ID)
		return err
	})
	assert.True(t, apperror.IsTransient(err), "got %v", err)

	close(release)
	require.NoError(t, <-done)

	// Released on commit.
	err = s.RunInTransaction(ctx, func(ctx context.Context) error {
		_, err := s.Sequences().GetForUpdate(ctx, seq.ID)
		return err
	})
	require.NoError(t, err)
}

func TestGetForUpdateRequiresTransaction(t *testing.T) {
	s := New()
	_, seq, _ := seed(t, s)
	_, err := s.Sequences().GetForUpdate(context.Background(), seq.ID)
	assert.True(t, apperror.IsCode(err, apperror.CodeInternal))
}

func TestAssignmentUniqueness(t *testing.T) {
	s := New()
	o, seq, d := seed(t, s)
	ctx := context.Background()

	first := assignment.New(o.ID, seq.ID, d.ID, ncf.DocInvoice, "B0100000001", time.Now())
	require.NoError(t, s.Assignments().Insert(ctx, first))

	again := assignment.New(o.ID, seq.ID, d.ID, ncf.DocInvoice, "B0100000002", time.Now())
	err := s.Assignments().Insert(ctx, again)
	assert.True(t, apperror.IsCode(err, apperror.CodeAlreadyAssigned))

	other := document.New(o.ID, ncf.DocInvoice, "F-2")
	require.NoError(t, s.Documents().Create(ctx, other))
	dup := assignment.New(o.ID, seq.ID, other.ID, ncf.DocInvoice, "B0100000001", time.Now())
	err = s.Assignments().Insert(ctx, dup)
	assert.True(t, apperror.IsCode(err, apperror.CodeDuplicateNumber))
}

func TestOpenSequenceUniqueness(t *testing.T) {
	s := New()
	_, seq, _ := seed(t, s)

	clash := *seq
	clash.ID = id.New()
	clash.State = ncf.StateInactive
	err := s.Sequences().Create(context.Background(), &clash)
	assert.True(t, apperror.IsCode(err, apperror.CodeDuplicate))

	clash.ID = id.New()
	clash.State = ncf.StateExpired
	require.NoError(t, s.Sequences().Create(context.Background(), &clash))
}

func TestTransitionIsCompareAndSet(t *testing.T) {
	s := New()
	_, seq, _ := seed(t, s)
	ctx := context.Background()

	ok, err := s.Sequences().Transition(ctx, seq.ID, ncf.StateInactive, ncf.StateActive)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.Sequences().Transition(ctx, seq.ID, ncf.StateActive, ncf.StateExpired)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAdvanceCursorRefusesStateChangedByOtherWriter(t *testing.T) {
	s := New()
	_, seq, _ := seed(t, s)
	ctx := context.Background()

	err := s.RunInTransaction(ctx, func(txCtx context.Context) error {
		locked, err := s.Sequences().GetForUpdate(txCtx, seq.ID)
		require.NoError(t, err)

		ok, err := s.Sequences().Transition(ctx, seq.ID, ncf.StateActive, ncf.StateExpired)
		require.NoError(t, err)
		require.True(t, ok)

		return s.Sequences().AdvanceCursor(txCtx, seq.ID, locked.Cursor, locked.Cursor+1, ncf.StateActive)
	})
	assert.True(t, apperror.IsCode(err, apperror.CodeSequenceUnavailable), "got %v", err)

	got, err := s.Sequences().GetByID(ctx, seq.ID)
	require.NoError(t, err)
	assert.Equal(t, ncf.StateExpired, got.State)
	assert.Equal(t, int64(1), got.Cursor)
}

func TestRollbackKeepsStateWrittenByOtherWriter(t *testing.T) {
	s := New()
	_, seq, _ := seed(t, s)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.RunInTransaction(ctx, func(txCtx context.Context) error {
		require.NoError(t, s.Sequences().AdvanceCursor(txCtx, seq.ID, 1, 2, ncf.StateActive))
		ok, err := s.Sequences().Transition(ctx, seq.ID, ncf.StateActive, ncf.StateExpired)
		require.NoError(t, err)
		require.True(t, ok)
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Sequences().GetByID(ctx, seq.ID)
	require.NoError(t, err)
	assert.Equal(t, ncf.StateExpired, got.State)
	assert.Equal(t, int64(1), got.Cursor)
}

func TestDeleteDocumentCascadesAssignment(t *testing.T) {
	s := New()
	o, seq, d := seed(t, s)
	ctx := context.Background()

	a := assignment.New(o.ID, seq.ID, d.ID, ncf.DocInvoice, "B0100000001", time.Now())
	require.NoError(t, s.Assignments().Insert(ctx, a))
	require.NoError(t, s.Documents().Delete(ctx, d.ID))

	_, err := s.Assignments().GetByNumber(ctx, o.ID, "B0100000001")
	assert.True(t, apperror.IsNotFound(err))
}

func TestOwnerOptimisticLock(t *testing.T) {
	s := New()
	o, _, _ := seed(t, s)
	ctx := context.Background()

	stale := *o
	o.AlertDays = 15
	require.NoError(t, s.Owners().Update(ctx, o))
	assert.Equal(t, 2, o.Version)

	stale.AlertDays = 45
	err := s.Owners().Update(ctx, &stale)
	assert.True(t, apperror.IsCode(err, apperror.CodeConcurrentModification))
}
