// Package ncf holds the value types of Dominican fiscal numbering:
// document types, sequence lifecycle states and the NCF number format.
package ncf

import (
	"fmt"
	"strings"
)

// DocumentType is the fiscal category that selects which sequence may
// number a document.
type DocumentType string

const (
	DocInvoice         DocumentType = "invoice"          // crédito fiscal
	DocInvoiceConsumer DocumentType = "invoice_consumer" // consumidor final
	DocDebitNote       DocumentType = "debit_note"
	DocCreditNote      DocumentType = "credit_note"
	DocInformal        DocumentType = "informal" // comprobante de compras
	DocUnique          DocumentType = "unique"   // registro único de ingresos
	DocMinorExpenses   DocumentType = "minor_expenses"
	DocExterior        DocumentType = "exterior"
	DocPayments        DocumentType = "payments"
)

type documentTypeInfo struct {
	code   string
	prefix string
	label  string
}

var documentTypes = map[DocumentType]documentTypeInfo{
	DocInvoice:         {"01", "B01", "Factura de Crédito Fiscal"},
	DocInvoiceConsumer: {"02", "B02", "Factura de Consumo"},
	DocDebitNote:       {"03", "B03", "Nota de Débito"},
	DocCreditNote:      {"04", "B04", "Nota de Crédito"},
	DocInformal:        {"11", "B11", "Comprobante de Compras"},
	DocUnique:          {"12", "B12", "Registro Único de Ingresos"},
	DocMinorExpenses:   {"13", "B13", "Gastos Menores"},
	DocExterior:        {"16", "B16", "Comprobante para Exportaciones"},
	DocPayments:        {"17", "B17", "Pagos al Exterior"},
}

// DocumentTypes returns every known type in code order.
func DocumentTypes() []DocumentType {
	return []DocumentType{
		DocInvoice, DocInvoiceConsumer, DocDebitNote, DocCreditNote,
		DocInformal, DocUnique, DocMinorExpenses, DocExterior, DocPayments,
	}
}

// ParseDocumentType validates and normalizes a document type name.
func ParseDocumentType(s string) (DocumentType, error) {
	t := DocumentType(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := documentTypes[t]; !ok {
		return "", fmt.Errorf("unknown document type %q", s)
	}
	return t, nil
}

// Valid reports whether t is a known document type.
func (t DocumentType) Valid() bool {
	_, ok := documentTypes[t]
	return ok
}

// Code returns the 2-digit DGII type code used in reports.
func (t DocumentType) Code() string {
	return documentTypes[t].code
}

// SuggestedPrefix returns the conventional B-series prefix for t.
func (t DocumentType) SuggestedPrefix() string {
	return documentTypes[t].prefix
}

// Label returns the Spanish display name.
func (t DocumentType) Label() string {
	if info, ok := documentTypes[t]; ok {
		return info.label
	}
	return string(t)
}

func (t DocumentType) String() string { return string(t) }
