package assignment_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ncfledger/internal/core/apperror"
	"ncfledger/internal/core/id"
	"ncfledger/internal/core/ncf"
	"ncfledger/internal/domain/assignment"
	"ncfledger/internal/domain/document"
	"ncfledger/internal/domain/owner"
	"ncfledger/internal/domain/sequence"
	"ncfledger/internal/infrastructure/storage/memory"
)

func TestLedger(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	ledger := assignment.NewService(store.Assignments())

	o := owner.New("Acme", "130000001")
	require.NoError(t, store.Owners().Create(ctx, o))
	day := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	seq, err := sequence.Spec{
		OwnerID:      o.ID,
		Prefix:       "B01",
		DocumentType: ncf.DocInvoice,
		RangeStart:   1,
		RangeEnd:     100,
		ValidFrom:    day,
		Activate:     true,
	}.Build(day)
	require.NoError(t, err)
	require.NoError(t, store.Sequences().Create(ctx, seq))

	record := func(n int64, issuedAt time.Time) *assignment.Assignment {
		d := document.New(o.ID, ncf.DocInvoice, "R")
		require.NoError(t, store.Documents().Create(ctx, d))
		a := assignment.New(o.ID, seq.ID, d.ID, ncf.DocInvoice, ncf.Format("B01", n), issuedAt)
		require.NoError(t, ledger.Record(ctx, a))
		return a
	}
	record(3, day.Add(18*time.Hour))
	record(1, day.Add(9*time.Hour))
	record(2, day.Add(9*time.Hour))
	late := record(4, day.AddDate(0, 0, 1).Add(time.Hour))

	t.Run("window is inclusive and ordered", func(t *testing.T) {
		got, err := ledger.QueryByWindow(ctx, assignment.WindowQuery{OwnerID: o.ID, From: day, To: day.Add(5 * time.Hour)})
		require.NoError(t, err)
		var numbers []string
		for _, a := range got {
			numbers = append(numbers, a.Number)
		}
		assert.Equal(t, []string{"B0100000001", "B0100000002", "B0100000003"}, numbers)
	})

	t.Run("type filter", func(t *testing.T) {
		got, err := ledger.QueryByWindow(ctx, assignment.WindowQuery{
			OwnerID:       o.ID,
			From:          day,
			To:            day.AddDate(0, 0, 1),
			DocumentTypes: []ncf.DocumentType{ncf.DocCreditNote},
		})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("invalid windows", func(t *testing.T) {
		_, err := ledger.QueryByWindow(ctx, assignment.WindowQuery{OwnerID: o.ID, From: day, To: day.AddDate(0, 0, -1)})
		assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
		_, err = ledger.QueryByWindow(ctx, assignment.WindowQuery{From: day, To: day})
		assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
	})

	t.Run("lookup by number", func(t *testing.T) {
		got, err := ledger.FindByNumber(ctx, o.ID, "b0100000004")
		require.NoError(t, err)
		assert.Equal(t, late.ID, got.ID)

		_, err = ledger.FindByNumber(ctx, o.ID, "B01")
		assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

		_, err = ledger.FindByNumber(ctx, id.New(), "B0100000004")
		assert.True(t, apperror.IsNotFound(err))
	})

	t.Run("record rejects malformed rows", func(t *testing.T) {
		err := ledger.Record(ctx, assignment.New(o.ID, seq.ID, id.New(), ncf.DocInvoice, "XYZ", day))
		assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
	})
}
