package reports_test

import (
	"context"
	"strings"
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
	"ncfledger/internal/domain/reports"
	"ncfledger/internal/domain/sequence"
	"ncfledger/internal/infrastructure/storage/memory"
)

type memArchive struct {
	objects map[string][]byte
}

func (a *memArchive) Put(_ context.Context, key string, data []byte, _ string) error {
	a.objects[key] = data
	return nil
}

func TestBuildAndExportPostedOnly(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := memory.New()

	o := owner.New("Acme SRL", "130000001")
	require.NoError(t, store.Owners().Create(ctx, o))

	registry := sequence.NewService(sequence.ServiceConfig{Repo: store.Sequences(), TxManager: store, Clock: clock})
	ledger := assignment.NewService(store.Assignments())
	alloc := allocator.NewService(allocator.ServiceConfig{
		TxManager: store,
		Registry:  registry,
		Ledger:    ledger,
		Documents: store.Documents(),
		Clock:     clock,
	})

	for _, dt := range []ncf.DocumentType{ncf.DocInvoice, ncf.DocCreditNote} {
		_, err := registry.Create(ctx, sequence.Spec{
			OwnerID:      o.ID,
			Prefix:       dt.SuggestedPrefix(),
			DocumentType: dt,
			RangeStart:   1,
			RangeEnd:     100,
			ValidFrom:    now,
			Activate:     true,
		})
		require.NoError(t, err)
	}

	numberDraft := func(dt ncf.DocumentType, subtotal string) *document.Document {
		d := document.New(o.ID, dt, "R")
		d.Subtotal = decimal.RequireFromString(subtotal)
		d.Tax = d.Subtotal.Mul(decimal.RequireFromString("0.18"))
		require.NoError(t, d.Validate(ctx))
		require.NoError(t, store.Documents().Create(ctx, d))
		_, err := alloc.Allocate(ctx, allocator.Request{OwnerID: o.ID, DocumentType: dt, DocumentID: d.ID})
		require.NoError(t, err)
		return d
	}
	issue := func(dt ncf.DocumentType, subtotal string) {
		d := numberDraft(dt, subtotal)
		require.NoError(t, store.Documents().MarkPosted(ctx, d.ID, false))
	}
	issue(ncf.DocInvoice, "1000")
	now = now.AddDate(0, 0, 1)
	issue(ncf.DocCreditNote, "200")
	numberDraft(ncf.DocInvoice, "300") // numbered but never posted
	issue(ncf.DocInvoice, "500")
	now = now.AddDate(0, 1, 0)
	issue(ncf.DocInvoice, "999") // outside the window

	archive := &memArchive{objects: map[string][]byte{}}
	svc := reports.NewService(ledger, store.Documents(), store.Owners(), archive)

	march := reports.Filter{
		Kind:    reports.Kind607,
		OwnerID: o.ID,
		From:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		To:      time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
	}
	r, err := svc.Build(ctx, march)
	require.NoError(t, err)

	require.Len(t, r.Lines, 3)
	assert.Equal(t, []string{"B0100000001", "B0100000003", "B0400000001"},
		[]string{r.Lines[0].Number, r.Lines[1].Number, r.Lines[2].Number})
	assert.Equal(t, "04", r.Lines[2].TypeCode)
	assert.True(t, decimal.RequireFromString("1700").Equal(r.Totals.Subtotal))
	assert.True(t, decimal.RequireFromString("2006").Equal(r.Totals.Total))

	f, err := svc.Export(ctx, r, reports.FormatTXT)
	require.NoError(t, err)
	assert.Equal(t, "DGII_607_130000001_202603.txt", f.Name)
	assert.True(t, strings.HasPrefix(string(f.Data), "607|130000001|202603|3\n"))
	assert.Contains(t, archive.objects, o.ID.String()+"/202603/"+f.Name)

	_, err = svc.Export(ctx, r, reports.Format("pdf"))
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	march.Kind = reports.Kind606
	r606, err := svc.Build(ctx, march)
	require.NoError(t, err)
	require.Len(t, r606.Lines, 3)
	assert.Equal(t, "31", r606.Lines[0].TypeCode)
	assert.Equal(t, "43", r606.Lines[2].TypeCode)
	assert.True(t, r.Totals.Total.Equal(r606.Totals.Total))

	f606, err := svc.Export(ctx, r606, reports.FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "DGII_606_130000001_202603.csv", f606.Name)

	march.Kind = reports.Kind("608")
	_, err = svc.Build(ctx, march)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}
