package infra

// pdf.go — Invoice PDF generation using go-pdf/fpdf.
// Produces an A4 document with:
//   - "FACTURE" header and rule
//   - Garage identity block (name, SIRET, address, phone)
//   - Customer block and invoice number/date
//   - Line table (position, description, quantity, unit price, line total)
//   - Totals block (subtotal, VAT, total)
//
// The output file is saved to storagePath/FAC_{number}.pdf.

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-pdf/fpdf"

	"github.com/yass-hmr/HA-Autos-Facturation/internal/dates"
	"github.com/yass-hmr/HA-Autos-Facturation/internal/model"
	"github.com/yass-hmr/HA-Autos-Facturation/internal/money"
)

// InvoicePDFFilename returns the canonical artifact name for an invoice number.
func InvoicePDFFilename(number string) string {
	return fmt.Sprintf("FAC_%s.pdf", number)
}

// GenerateInvoicePDF renders a finalized invoice to PDF.
// storagePath is the directory where the PDF will be written (created if
// needed). Lines must be preloaded on inv in display order.
// Returns the absolute path to the generated file.
func GenerateInvoicePDF(inv *model.Invoice, s *model.Settings, storagePath string) (string, error) {
	if inv.Number == nil {
		return "", fmt.Errorf("pdf: invoice %d has no number", inv.ID)
	}
	if err := os.MkdirAll(storagePath, 0o755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}
	filePath := filepath.Join(storagePath, InvoicePDFFilename(*inv.Number))

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("") // core fonts are cp1252

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 40

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 8, "FACTURE", "", 1, "C", false, 0, "")
	pdf.Ln(2)
	pdf.SetLineWidth(0.5)
	pdf.Line(20, pdf.GetY(), pageW-20, pdf.GetY())
	pdf.SetLineWidth(0.3)
	pdf.Ln(6)

	// ── Garage block ─────────────────────────────────────────────────────────
	name := s.GarageName
	if name == "" {
		name = "(Paramètres garage non renseignés)"
	}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(contentW, 5.5, tr(name), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	if s.GarageSiret != "" {
		pdf.CellFormat(contentW, 4.5, tr("SIRET "+s.GarageSiret), "", 1, "L", false, 0, "")
	}
	pdf.SetFont("Helvetica", "", 10)
	if s.GarageAddress != "" {
		pdf.CellFormat(contentW, 5, tr(s.GarageAddress), "", 1, "L", false, 0, "")
	}
	if s.GaragePostalCode != "" {
		pdf.CellFormat(contentW, 5, tr(s.GaragePostalCode), "", 1, "L", false, 0, "")
	}
	if s.GaragePhone != "" {
		pdf.CellFormat(contentW, 5, tr("Tél. "+s.GaragePhone), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	// ── Invoice info + customer block ────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(contentW/2, 5, tr(fmt.Sprintf("Facture n° %s", *inv.Number)), "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(contentW/2, 5, "Date : "+dates.ISOToFR(inv.Date), "", 1, "R", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(contentW, 5, tr(inv.CustomerName), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	if inv.CustomerAddress != "" {
		pdf.CellFormat(contentW, 5, tr(inv.CustomerAddress), "", 1, "L", false, 0, "")
	}
	if inv.CustomerPostalCode != "" {
		pdf.CellFormat(contentW, 5, tr(inv.CustomerPostalCode), "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	// ── Line table ───────────────────────────────────────────────────────────
	colPos := contentW * 0.08
	colDesc := contentW * 0.50
	colQty := contentW * 0.10
	colPU := contentW * 0.16
	colTot := contentW * 0.16

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(colPos, 6, "#", "B", 0, "C", false, 0, "")
	pdf.CellFormat(colDesc, 6, "Description", "B", 0, "L", false, 0, "")
	pdf.CellFormat(colQty, 6, tr("Qté"), "B", 0, "C", false, 0, "")
	pdf.CellFormat(colPU, 6, "P.U.", "B", 0, "R", false, 0, "")
	pdf.CellFormat(colTot, 6, "Total", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	for _, ln := range inv.Lines {
		desc := ln.Description
		if r := []rune(desc); len(r) > 60 {
			desc = string(r[:59]) + "…"
		}
		pdf.CellFormat(colPos, 6, fmt.Sprintf("%d", ln.Position), "", 0, "C", false, 0, "")
		pdf.CellFormat(colDesc, 6, tr(desc), "", 0, "L", false, 0, "")
		pdf.CellFormat(colQty, 6, fmt.Sprintf("%d", ln.Qty), "", 0, "C", false, 0, "")
		pdf.CellFormat(colPU, 6, tr(money.FormatCents(ln.UnitPriceCents)), "", 0, "R", false, 0, "")
		pdf.CellFormat(colTot, 6, tr(money.FormatCents(ln.LineTotalCents)), "", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	pdf.Line(20, pdf.GetY(), pageW-20, pdf.GetY())
	pdf.Ln(3)

	// ── Totals ───────────────────────────────────────────────────────────────
	labelW := colPos + colDesc + colQty + colPU
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(labelW, 6, "Sous-total HT :", "", 0, "R", false, 0, "")
	pdf.CellFormat(colTot, 6, tr(money.FormatCents(inv.SubtotalCents)), "", 1, "R", false, 0, "")
	pdf.CellFormat(labelW, 6, fmt.Sprintf("TVA %d%% :", inv.VatRate), "", 0, "R", false, 0, "")
	pdf.CellFormat(colTot, 6, tr(money.FormatCents(inv.VatCents)), "", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(labelW, 7, "Total TTC :", "", 0, "R", false, 0, "")
	pdf.CellFormat(colTot, 7, tr(money.FormatCents(inv.TotalCents)), "", 1, "R", false, 0, "")

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	return filePath, nil
}
