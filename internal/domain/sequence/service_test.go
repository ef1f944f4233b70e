package sequence_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ncfledger/internal/core/apperror"
	"ncfledger/internal/core/events"
	"ncfledger/internal/core/id"
	"ncfledger/internal/core/ncf"
	"ncfledger/internal/domain/sequence"
	"ncfledger/internal/infrastructure/storage/memory"
)

type fixture struct {
	store *memory.Store
	svc   *sequence.Service
	now   time.Time
	owner id.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: memory.New(),
		now:   time.Date(2026, 2, 14, 10, 0, 0, 0, time.UTC),
		owner: id.New(),
	}
	f.svc = sequence.NewService(sequence.ServiceConfig{
		Repo:      f.store.Sequences(),
		TxManager: f.store,
		Events:    f.store,
		Audit:     f.store,
		Clock:     func() time.Time { return f.now },
	})
	return f
}

func (f *fixture) spec() sequence.Spec {
	return sequence.Spec{
		OwnerID:      f.owner,
		Prefix:       "B01",
		DocumentType: ncf.DocInvoice,
		RangeStart:   1,
		RangeEnd:     100,
		ValidFrom:    f.now,
		ValidUntil:   f.now.AddDate(0, 3, 0),
		Activate:     true,
	}
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name   string
		mutate func(*sequence.Spec)
		field  string
	}{
		{"short prefix", func(s *sequence.Spec) { s.Prefix = "B1" }, "prefix"},
		{"symbol in prefix", func(s *sequence.Spec) { s.Prefix = "B-1" }, "prefix"},
		{"unknown type", func(s *sequence.Spec) { s.DocumentType = "receipt" }, "documentType"},
		{"zero start", func(s *sequence.Spec) { s.RangeStart = 0 }, "rangeStart"},
		{"inverted range", func(s *sequence.Spec) { s.RangeStart, s.RangeEnd = 50, 10 }, "rangeEnd"},
		{"equal bounds", func(s *sequence.Spec) { s.RangeStart, s.RangeEnd = 10, 10 }, "rangeEnd"},
		{"counter overflow", func(s *sequence.Spec) { s.RangeEnd = ncf.MaxCounter + 1 }, "rangeEnd"},
		{"start in the past", func(s *sequence.Spec) { s.ValidFrom = f.now.AddDate(0, 0, -1) }, "validFrom"},
		{"window inverted", func(s *sequence.Spec) { s.ValidUntil = f.now.AddDate(0, 0, -2) }, "validUntil"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := f.spec()
			tt.mutate(&spec)
			_, err := f.svc.Create(context.Background(), spec)
			require.Error(t, err)
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperror.CodeValidation, appErr.Code)
			assert.Equal(t, tt.field, appErr.Details["field"])
		})
	}

	all, err := f.svc.List(context.Background(), sequence.ListFilter{OwnerID: f.owner})
	require.NoError(t, err)
	assert.Empty(t, all, "rejected specs are never partially applied")
}

func TestCreate_PositionsCursorAndPublishes(t *testing.T) {
	f := newFixture(t)
	spec := f.spec()
	spec.Prefix = "b02"
	spec.DocumentType = ncf.DocInvoiceConsumer
	spec.RangeStart = 501
	spec.ValidUntil = time.Time{}

	seq, err := f.svc.Create(context.Background(), spec)
	require.NoError(t, err)

	assert.Equal(t, "B02", seq.Prefix)
	assert.Equal(t, int64(501), seq.Cursor)
	assert.Equal(t, ncf.StateActive, seq.State)
	assert.Equal(t, time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC), seq.ValidUntil)

	published := f.store.Published()
	require.Len(t, published, 1)
	assert.Equal(t, events.TypeSequenceCreated, published[0].EventType)
	require.Len(t, f.store.AuditLog(seq.ID), 1)
}

func TestCreate_RejectsSecondOpenSequence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, f.spec())
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, f.spec())
	assert.True(t, apperror.IsCode(err, apperror.CodeDuplicate), "got %v", err)

	// Same prefix for another document type is a different sequence.
	other := f.spec()
	other.DocumentType = ncf.DocCreditNote
	_, err = f.svc.Create(ctx, other)
	require.NoError(t, err)

	// Once the first one is terminal the prefix may be registered again.
	ok, err := f.store.Sequences().Transition(ctx, first.ID, ncf.StateActive, ncf.StateDepleted)
	require.NoError(t, err)
	require.True(t, ok)
	_, err = f.svc.Create(ctx, f.spec())
	require.NoError(t, err)
}

func TestSetLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seq, err := f.svc.Create(ctx, f.spec())
	require.NoError(t, err)

	got, err := f.svc.SetLifecycle(ctx, seq.ID, ncf.StateInactive)
	require.NoError(t, err)
	assert.Equal(t, ncf.StateInactive, got.State)

	got, err = f.svc.SetLifecycle(ctx, seq.ID, ncf.StateActive)
	require.NoError(t, err)
	assert.Equal(t, ncf.StateActive, got.State)

	_, err = f.svc.SetLifecycle(ctx, seq.ID, ncf.StateDepleted)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = f.svc.SetLifecycle(ctx, id.New(), ncf.StateActive)
	assert.True(t, apperror.IsNotFound(err))

	assert.Len(t, f.store.AuditLog(seq.ID), 3)
}

func TestSetLifecycle_TerminalAndLapsedCannotBeActivated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seq, err := f.svc.Create(ctx, f.spec())
	require.NoError(t, err)
	_, err = f.svc.SetLifecycle(ctx, seq.ID, ncf.StateInactive)
	require.NoError(t, err)

	f.now = f.now.AddDate(1, 0, 0)
	_, err = f.svc.SetLifecycle(ctx, seq.ID, ncf.StateActive)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidTransition), "got %v", err)

	ok, err := f.store.Sequences().Transition(ctx, seq.ID, ncf.StateInactive, ncf.StateExpired)
	require.NoError(t, err)
	require.True(t, ok)
	_, err = f.svc.SetLifecycle(ctx, seq.ID, ncf.StateInactive)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidTransition), "got %v", err)
}

func TestSweep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	short := f.spec()
	short.ValidUntil = f.now.AddDate(0, 0, 5)
	expiring, err := f.svc.Create(ctx, short)
	require.NoError(t, err)

	full := f.spec()
	full.Prefix = "B02"
	full.DocumentType = ncf.DocInvoiceConsumer
	full.RangeEnd = 10
	full.ValidUntil = f.now.AddDate(1, 0, 0)
	exhausted, err := f.svc.Create(ctx, full)
	require.NoError(t, err)
	require.NoError(t, f.store.Sequences().AdvanceCursor(ctx, exhausted.ID, 1, 11, ncf.StateActive))

	healthy := f.spec()
	healthy.Prefix = "B04"
	healthy.DocumentType = ncf.DocCreditNote
	healthy.ValidUntil = f.now.AddDate(1, 0, 0)
	untouched, err := f.svc.Create(ctx, healthy)
	require.NoError(t, err)

	res, err := f.svc.Sweep(ctx, f.now.AddDate(0, 0, 6))
	require.NoError(t, err)
	assert.Equal(t, sequence.SweepResult{Expired: 1, Depleted: 1}, res)

	for seqID, want := range map[id.ID]ncf.State{
		expiring.ID:  ncf.StateExpired,
		exhausted.ID: ncf.StateDepleted,
		untouched.ID: ncf.StateActive,
	} {
		got, err := f.svc.Get(ctx, seqID)
		require.NoError(t, err)
		assert.Equal(t, want, got.State)
	}

	again, err := f.svc.Sweep(ctx, f.now.AddDate(0, 0, 6))
	require.NoError(t, err)
	assert.Zero(t, again)
}

func TestSweep_LastValidDayStaysActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seq, err := f.svc.Create(ctx, f.spec())
	require.NoError(t, err)

	res, err := f.svc.Sweep(ctx, seq.ValidUntil.Add(20*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, res.Expired)
}

func TestPreviewNextDoesNotAdvance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seq, err := f.svc.Create(ctx, f.spec())
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		p, err := f.svc.PreviewNext(ctx, seq.ID)
		require.NoError(t, err)
		assert.Equal(t, "B0100000001", p.FirstNumber)
		assert.Equal(t, int64(100), p.Quantity)
	}
}

func TestPreviewRange(t *testing.T) {
	f := newFixture(t)
	spec := f.spec()
	spec.RangeStart, spec.RangeEnd = 20, 29

	p, err := f.svc.PreviewRange(spec)
	require.NoError(t, err)
	assert.Equal(t, sequence.Preview{FirstNumber: "B0100000020", LastNumber: "B0100000029", Quantity: 10}, p)

	all, err := f.svc.List(context.Background(), sequence.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestExplainIneligible(t *testing.T) {
	ctx := context.Background()

	t.Run("not yet valid", func(t *testing.T) {
		f := newFixture(t)
		spec := f.spec()
		spec.ValidFrom = f.now.AddDate(0, 1, 0)
		_, err := f.svc.Create(ctx, spec)
		require.NoError(t, err)

		err = f.svc.ExplainIneligible(ctx, f.owner, ncf.DocInvoice, f.now)
		assert.True(t, apperror.IsCode(err, apperror.CodeSequenceUnavailable), "got %v", err)
	})

	t.Run("nothing registered", func(t *testing.T) {
		f := newFixture(t)
		err := f.svc.ExplainIneligible(ctx, f.owner, ncf.DocInvoice, f.now)
		assert.True(t, apperror.IsCode(err, apperror.CodeNoEligibleSequence), "got %v", err)
	})

	t.Run("depleted", func(t *testing.T) {
		f := newFixture(t)
		seq, err := f.svc.Create(ctx, f.spec())
		require.NoError(t, err)
		require.NoError(t, f.store.Sequences().AdvanceCursor(ctx, seq.ID, 1, 101, ncf.StateDepleted))

		err = f.svc.ExplainIneligible(ctx, f.owner, ncf.DocInvoice, f.now)
		assert.True(t, apperror.IsCode(err, apperror.CodeSequenceDepleted), "got %v", err)
	})
}
