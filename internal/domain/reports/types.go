// Package reports builds the DGII 606 and 607 reports from the assignment
// ledger and exports them as TXT, CSV or XLSX.
package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"ncfledger/internal/core/id"
	"ncfledger/internal/core/ncf"
)

// Format is an export file format.
type Format string

const (
	FormatTXT  Format = "txt"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, bool) {
	switch f := Format(s); f {
	case FormatTXT, FormatCSV, FormatXLSX:
		return f, true
	}
	return "", false
}

// Kind selects a DGII report.
type Kind string

const (
	Kind606 Kind = "606"
	Kind607 Kind = "607"
)

// ParseKind validates a report name.
func ParseKind(s string) (Kind, bool) {
	switch k := Kind(s); k {
	case Kind606, Kind607:
		return k, true
	}
	return "", false
}

// codes606 is the 606 type code table; unlisted types report as 31.
var codes606 = map[ncf.DocumentType]string{
	ncf.DocInvoice:         "31",
	ncf.DocInvoiceConsumer: "02",
	ncf.DocCreditNote:      "43",
	ncf.DocDebitNote:       "44",
	ncf.DocInformal:        "11",
	ncf.DocUnique:          "12",
	ncf.DocMinorExpenses:   "13",
	ncf.DocExterior:        "14",
	ncf.DocPayments:        "15",
}

// TypeCode returns the code a document type carries in reports of kind k.
func (k Kind) TypeCode(dt ncf.DocumentType) string {
	if k == Kind606 {
		if code, ok := codes606[dt]; ok {
			return code
		}
		return "31"
	}
	return dt.Code()
}

// Filter selects the report and its period.
type Filter struct {
	Kind          Kind
	OwnerID       id.ID
	From          time.Time
	To            time.Time
	DocumentTypes []ncf.DocumentType
}

// Line is one issued NCF joined with its posted document.
type Line struct {
	Number            string           `json:"number"`
	DocumentType      ncf.DocumentType `json:"documentType"`
	TypeCode          string           `json:"typeCode"`
	IssuedAt          time.Time        `json:"issuedAt"`
	CounterpartyName  string           `json:"counterpartyName"`
	CounterpartyTaxID string           `json:"counterpartyTaxId"`
	Subtotal          decimal.Decimal  `json:"subtotal"`
	Tax               decimal.Decimal  `json:"tax"`
	Total             decimal.Decimal  `json:"total"`
	Currency          string           `json:"currency"`
}

// Totals sums the report amounts.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// Report is one DGII report of one owner for one period.
type Report struct {
	Kind      Kind      `json:"kind"`
	OwnerID   id.ID     `json:"ownerId"`
	OwnerRNC  string    `json:"ownerRnc"`
	OwnerName string    `json:"ownerName"`
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
	Lines     []Line    `json:"lines"`
	Totals    Totals    `json:"totals"`
}

// File is an exported report.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}
