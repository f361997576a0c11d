// Package export renders owner statements as XLSX and PDF documents.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"arriendos/internal/core/types"
	"arriendos/internal/domain/settlement"
)

const (
	summarySheet     = "resumen"
	obligationsSheet = "descuentos"
)

type line struct {
	label  string
	amount types.Money
}

func summaryLines(s *settlement.Settlement) []line {
	return []line{
		{"Canon recaudado", s.RentCollected},
		{"Descuentos recurrentes", s.TotalRecurring},
		{"Descuentos no recurrentes", s.TotalOneOff},
		{fmt.Sprintf("Comision (%s%%)", s.CommissionPercent.StringFixed(2)), s.Commission},
		{fmt.Sprintf("IVA (%s%%)", s.VATPercent.StringFixed(2)), s.VAT},
		{"Neto a pagar", s.NetPayable},
	}
}

type obligationRow struct {
	kind   string
	ref    string
	amount types.Money
}

func obligationRows(stmt *settlement.Statement) []obligationRow {
	rows := make([]obligationRow, 0, len(stmt.Records)+len(stmt.Installments))
	for _, r := range stmt.Records {
		rows = append(rows, obligationRow{kind: "Recurrente", ref: r.DischargeID.String(), amount: r.Value})
	}
	for _, i := range stmt.Installments {
		rows = append(rows, obligationRow{
			kind:   fmt.Sprintf("Cuota %d", i.Number),
			ref:    i.DischargeID.String(),
			amount: i.Value,
		})
	}
	return rows
}

func paidLabel(s *settlement.Settlement) string {
	if s.Paid && s.PaymentDate != nil {
		return "Pagada " + s.PaymentDate.Format(time.DateOnly)
	}
	return "Pendiente"
}

// StatementXLSX renders the statement as a workbook with a summary and an obligations sheet.
func StatementXLSX(stmt *settlement.Statement) ([]byte, error) {
	s := stmt.Settlement
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(obligationsSheet); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(summarySheet, "A1", "Liquidacion de propietario")
	_ = f.SetCellValue(summarySheet, "A3", "Mandato")
	_ = f.SetCellValue(summarySheet, "B3", s.MandateID.String())
	_ = f.SetCellValue(summarySheet, "A4", "Periodo")
	_ = f.SetCellValue(summarySheet, "B4", s.Period.String())
	_ = f.SetCellValue(summarySheet, "A5", "Estado")
	_ = f.SetCellValue(summarySheet, "B5", paidLabel(s))
	for i, l := range summaryLines(s) {
		row := i + 7
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), l.label)
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), l.amount.InexactFloat64())
	}

	_ = f.SetCellValue(obligationsSheet, "A1", "Tipo")
	_ = f.SetCellValue(obligationsSheet, "B1", "Descuento")
	_ = f.SetCellValue(obligationsSheet, "C1", "Valor")
	for i, o := range obligationRows(stmt) {
		row := i + 2
		_ = f.SetCellValue(obligationsSheet, fmt.Sprintf("A%d", row), o.kind)
		_ = f.SetCellValue(obligationsSheet, fmt.Sprintf("B%d", row), o.ref)
		_ = f.SetCellValue(obligationsSheet, fmt.Sprintf("C%d", row), o.amount.InexactFloat64())
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

// StatementPDF renders the statement as a one-page A4 document.
func StatementPDF(stmt *settlement.Statement) ([]byte, error) {
	s := stmt.Settlement
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 8, "Liquidacion de propietario")
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, "Mandato: "+s.MandateID.String())
	pdf.Ln(5)
	pdf.Cell(0, 6, "Periodo: "+s.Period.String())
	pdf.Ln(5)
	pdf.Cell(0, 6, "Estado: "+paidLabel(s))
	pdf.Ln(8)

	for _, l := range summaryLines(s) {
		pdf.CellFormat(90, 6, l.label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 6, l.amount.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	rows := obligationRows(stmt)
	if len(rows) > 0 {
		pdf.Ln(6)
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(30, 6, "Tipo", "1", 0, "C", false, 0, "")
		pdf.CellFormat(90, 6, "Descuento", "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 6, "Valor", "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 9)
		for _, o := range rows {
			pdf.CellFormat(30, 6, o.kind, "1", 0, "L", false, 0, "")
			pdf.CellFormat(90, 6, o.ref, "1", 0, "L", false, 0, "")
			pdf.CellFormat(40, 6, o.amount.StringFixed(2), "1", 0, "R", false, 0, "")
			pdf.Ln(-1)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}
