package model

import "time"

// ExportKindInvoice is the default artifact kind. Other kinds (credit notes)
// may appear later without a schema change.
const ExportKindInvoice = "INVOICE"

// PdfExport records a generated PDF artifact for an invoice. A given invoice
// can hold at most one export per filename and per relative path.
type PdfExport struct {
	ID        uint      `gorm:"primaryKey"`
	InvoiceID uint      `gorm:"not null;index;uniqueIndex:uq_pdf_export_invoice_filename;uniqueIndex:uq_pdf_export_invoice_rel_path"`
	Filename  string    `gorm:"not null;uniqueIndex:uq_pdf_export_invoice_filename"`
	RelPath   string    `gorm:"not null;uniqueIndex:uq_pdf_export_invoice_rel_path"`
	CreatedAt time.Time `gorm:"index"`
	Kind      string    `gorm:"not null;default:'INVOICE'"`
}

func (PdfExport) TableName() string { return "pdf_export" }
