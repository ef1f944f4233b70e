package document_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ncfledger/internal/core/apperror"
	"ncfledger/internal/core/ncf"
	"ncfledger/internal/domain/allocator"
	"ncfledger/internal/domain/assignment"
	"ncfledger/internal/domain/document"
	"ncfledger/internal/domain/owner"
	"ncfledger/internal/domain/sequence"
	"ncfledger/internal/infrastructure/storage/memory"
)

type harness struct {
	store    *memory.Store
	owner    *owner.Owner
	registry *sequence.Service
	docs     *document.Service
	now      time.Time
}

func newHarness(t *testing.T, configure func(*owner.Owner)) *harness {
	t.Helper()
	h := &harness{
		store: memory.New(),
		now:   time.Date(2026, 7, 20, 14, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return h.now }

	h.owner = owner.New("Ferretería Central", "131000002")
	if configure != nil {
		configure(h.owner)
	}
	require.NoError(t, h.store.Owners().Create(context.Background(), h.owner))

	h.registry = sequence.NewService(sequence.ServiceConfig{
		Repo:      h.store.Sequences(),
		TxManager: h.store,
		Clock:     clock,
	})
	alloc := allocator.NewService(allocator.ServiceConfig{
		TxManager: h.store,
		Registry:  h.registry,
		Ledger:    assignment.NewService(h.store.Assignments()),
		Documents: h.store.Documents(),
		Clock:     clock,
	})
	h.docs = document.NewService(h.store.Documents(), h.store.Owners(), alloc, h.store)
	return h
}

func (h *harness) activeSequence(t *testing.T, dt ncf.DocumentType, prefix string) *sequence.Sequence {
	t.Helper()
	seq, err := h.registry.Create(context.Background(), sequence.Spec{
		OwnerID:      h.owner.ID,
		Prefix:       prefix,
		DocumentType: dt,
		RangeStart:   1,
		RangeEnd:     50,
		ValidFrom:    h.now,
		Activate:     true,
	})
	require.NoError(t, err)
	return seq
}

func (h *harness) draft(t *testing.T, total string) *document.Document {
	t.Helper()
	d := document.New(h.owner.ID, ncf.DocInvoice, "FAC-0001")
	d.CounterpartyName = "Cliente SRL"
	d.CounterpartyTaxID = "101010101"
	d.Subtotal = decimal.RequireFromString(total)
	d.IssueDate = h.now
	require.NoError(t, h.docs.Create(context.Background(), d))
	return d
}

func TestPost_AutoAssignsNumber(t *testing.T) {
	h := newHarness(t, nil)
	h.activeSequence(t, ncf.DocInvoice, "B01")
	d := h.draft(t, "1000.00")

	posted, err := h.docs.Post(context.Background(), d.ID)
	require.NoError(t, err)

	assert.Equal(t, document.StatePosted, posted.State)
	require.NotNil(t, posted.NCFNumber)
	assert.Equal(t, "B0100000001", *posted.NCFNumber)
	assert.False(t, posted.NeedsManualNCF)

	_, err = h.docs.Post(context.Background(), d.ID)
	assert.True(t, apperror.IsCode(err, apperror.CodeConflict))
}

func TestPost_BlocksWhenNoSequence(t *testing.T) {
	h := newHarness(t, nil)
	d := h.draft(t, "1000.00")

	_, err := h.docs.Post(context.Background(), d.ID)
	assert.True(t, apperror.IsCode(err, apperror.CodeNoEligibleSequence), "got %v", err)

	got, err := h.docs.Get(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, document.StateDraft, got.State)
}

func TestPost_FlagsForManualAssignmentWhenNotBlocking(t *testing.T) {
	h := newHarness(t, func(o *owner.Owner) { o.BlockOnFailure = false })
	d := h.draft(t, "1000.00")
	ctx := context.Background()

	posted, err := h.docs.Post(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, document.StatePosted, posted.State)
	assert.True(t, posted.NeedsManualNCF)
	assert.Nil(t, posted.NCFNumber)

	h.activeSequence(t, ncf.DocInvoice, "B01")
	a, err := h.docs.AssignNCF(ctx, d.ID, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "B0100000001", a.Number)

	fixed, err := h.docs.Get(ctx, d.ID)
	require.NoError(t, err)
	require.NotNil(t, fixed.NCFNumber)
	assert.Equal(t, "B0100000001", *fixed.NCFNumber)
	assert.False(t, fixed.NeedsManualNCF)
}

func TestPost_ManualModeSkipsAllocation(t *testing.T) {
	h := newHarness(t, func(o *owner.Owner) { o.AutoAssign = false })
	seq := h.activeSequence(t, ncf.DocInvoice, "B01")
	d := h.draft(t, "1000.00")

	posted, err := h.docs.Post(context.Background(), d.ID)
	require.NoError(t, err)
	assert.True(t, posted.NeedsManualNCF)

	got, err := h.registry.Get(context.Background(), seq.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Cursor)
}

func TestPost_RequireRuleAndDisabledOwner(t *testing.T) {
	tests := []struct {
		name      string
		configure func(*owner.Owner)
		total     string
		wantNCF   bool
	}{
		{"rule matches", func(o *owner.Owner) { o.RequireRule = "document.total >= 250000.0" }, "300000", true},
		{"rule does not match", func(o *owner.Owner) { o.RequireRule = "document.total >= 250000.0" }, "1200", false},
		{"numbering disabled", func(o *owner.Owner) { o.NCFEnabled = false }, "1200", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.configure)
			h.activeSequence(t, ncf.DocInvoice, "B01")
			d := h.draft(t, tt.total)

			posted, err := h.docs.Post(context.Background(), d.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantNCF, posted.HasNCF())
			assert.False(t, posted.NeedsManualNCF)
		})
	}
}

func TestDelete_NumberStaysConsumed(t *testing.T) {
	h := newHarness(t, nil)
	seq := h.activeSequence(t, ncf.DocInvoice, "B01")
	ctx := context.Background()

	first := h.draft(t, "100")
	_, err := h.docs.AssignNCF(ctx, first.ID, time.Time{})
	require.NoError(t, err)
	require.NoError(t, h.docs.Delete(ctx, first.ID))

	second := h.draft(t, "100")
	got, err := h.docs.AssignNCF(ctx, second.ID, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "B0100000002", got.Number)

	reloaded, err := h.registry.Get(ctx, seq.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), reloaded.Cursor)
}

func TestCreate_Validation(t *testing.T) {
	h := newHarness(t, nil)
	d := document.New(h.owner.ID, ncf.DocInvoice, "X")
	d.Subtotal = decimal.NewFromInt(100)
	d.Tax = decimal.NewFromInt(18)
	d.Total = decimal.NewFromInt(120)

	err := h.docs.Create(context.Background(), d)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	d.Total = decimal.Zero
	require.NoError(t, h.docs.Create(context.Background(), d))
	assert.True(t, decimal.NewFromInt(118).Equal(d.Total))
}
