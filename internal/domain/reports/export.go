package reports

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

var columns = []string{"NCF", "Tipo", "Fecha", "RNC/Cédula", "Cliente", "Subtotal", "ITBIS", "Total", "Moneda"}

func sheetName(k Kind) string { return "Reporte " + string(k) }

// FileName returns DGII_<kind>_<RNC|SIN_RNC>_<YYYYMM>.<ext>.
func FileName(r *Report, format Format) string {
	rnc := r.OwnerRNC
	if rnc == "" {
		rnc = "SIN_RNC"
	}
	return fmt.Sprintf("DGII_%s_%s_%s.%s", r.Kind, rnc, r.From.Format("200601"), format)
}

// RenderTXT writes a pipe-delimited file: a header record with the report
// kind, owner RNC, period and line count, then one record per NCF with
// amounts in fixed two-decimal notation.
func RenderTXT(r *Report) ([]byte, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%s|%d\n", r.Kind, r.OwnerRNC, r.From.Format("200601"), len(r.Lines))
	for _, l := range r.Lines {
		fmt.Fprintf(&b, "%s|%s|%s|%s|%s|%s|%s|%s\n",
			l.Number,
			l.TypeCode,
			l.IssuedAt.Format("20060102"),
			l.CounterpartyTaxID,
			sanitizeTXT(l.CounterpartyName),
			l.Subtotal.StringFixed(2),
			l.Tax.StringFixed(2),
			l.Total.StringFixed(2),
		)
	}
	return []byte(b.String()), nil
}

// RenderCSV writes the report with Spanish headers and dd/mm/yyyy dates.
func RenderCSV(r *Report) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(columns); err != nil {
		return nil, err
	}
	for _, l := range r.Lines {
		if err := w.Write([]string{
			l.Number,
			l.TypeCode,
			l.IssuedAt.Format("02/01/2006"),
			l.CounterpartyTaxID,
			l.CounterpartyName,
			l.Subtotal.StringFixed(2),
			l.Tax.StringFixed(2),
			l.Total.StringFixed(2),
			l.Currency,
		}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// RenderXLSX writes a styled sheet with a totals row.
func RenderXLSX(r *Report) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(r.Kind)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#1F4E78"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, err
	}
	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return nil, err
	}

	headerRow := make([]any, len(columns))
	for i, h := range columns {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headerRow); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheet, "A1", "I1", headerStyle); err != nil {
		return nil, err
	}

	for i, l := range r.Lines {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []any{
			l.Number,
			l.TypeCode,
			l.IssuedAt.Format("02/01/2006"),
			l.CounterpartyTaxID,
			l.CounterpartyName,
			l.Subtotal.InexactFloat64(),
			l.Tax.InexactFloat64(),
			l.Total.InexactFloat64(),
			l.Currency,
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}

	last := len(r.Lines) + 1
	totalRow := last + 1
	if err := f.SetCellValue(sheet, fmt.Sprintf("E%d", totalRow), "TOTAL"); err != nil {
		return nil, err
	}
	for _, col := range []string{"F", "G", "H"} {
		formula := fmt.Sprintf("SUM(%s2:%s%d)", col, col, last)
		if last < 2 {
			formula = "0"
		}
		if err := f.SetCellFormula(sheet, fmt.Sprintf("%s%d", col, totalRow), formula); err != nil {
			return nil, err
		}
	}
	if err := f.SetCellStyle(sheet, "F2", fmt.Sprintf("H%d", totalRow), amountStyle); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(sheet, "A", "I", 15); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func sanitizeTXT(s string) string {
	return strings.NewReplacer("|", " ", "\n", " ", "\r", " ").Replace(s)
}
