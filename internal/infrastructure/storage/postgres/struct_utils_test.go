package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ncfledger/internal/core/id"
	"ncfledger/internal/core/ncf"
	"ncfledger/internal/domain/assignment"
	"ncfledger/internal/domain/sequence"
)

type auditFields struct {
	CreatedBy string `db:"created_by"`
}

type withEmbedded struct {
	auditFields
	Code    string `db:"code"`
	Skipped string `db:"-"`
	NoTag   string
}

func TestExtractDBColumns(t *testing.T) {
	assert.Equal(t, []string{
		"id", "owner_id", "prefix", "document_type", "range_start", "range_end", "next_number",
		"valid_from", "valid_until", "state", "created_at", "updated_at",
	}, ExtractDBColumns[sequence.Sequence]())

	assert.Equal(t, []string{
		"id", "owner_id", "sequence_id", "document_id", "document_type", "number", "issued_at",
	}, ExtractDBColumns[assignment.Assignment]())

	assert.Equal(t, []string{"created_by", "code"}, ExtractDBColumns[withEmbedded]())
}

func TestStructToMap(t *testing.T) {
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	a := &assignment.Assignment{
		ID:           id.New(),
		OwnerID:      id.New(),
		SequenceID:   id.New(),
		DocumentID:   id.New(),
		DocumentType: ncf.DocInvoice,
		Number:       "B0100000007",
		IssuedAt:     now,
	}

	m := StructToMap(a)
	assert.Len(t, m, 7)
	assert.Equal(t, a.ID, m["id"])
	assert.Equal(t, ncf.DocInvoice, m["document_type"])
	assert.Equal(t, "B0100000007", m["number"])
	assert.Equal(t, now, m["issued_at"])

	e := StructToMap(withEmbedded{auditFields: auditFields{CreatedBy: "ops"}, Code: "X", Skipped: "y"})
	assert.Equal(t, map[string]any{"created_by": "ops", "code": "X"}, e)

	assert.Nil(t, StructToMap(42))
}
