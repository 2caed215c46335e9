package model

import "time"

// Invoice statuses. The only legal transitions are
// DRAFT → FINAL → {PAID, CANCELED}; nothing ever moves backward.
const (
	StatusDraft    = "DRAFT"
	StatusFinal    = "FINAL"
	StatusCanceled = "CANCELED"
	StatusPaid     = "PAID"
)

// Invoice is the central ledger entity. Customer fields are a snapshot taken
// at edit time, never a reference to a live customer record, so later edits
// elsewhere can never rewrite an issued invoice. All amounts are integer
// cents; VAT is computed once at invoice level, not per line.
type Invoice struct {
	ID     uint    `gorm:"primaryKey"`
	Number *string `gorm:"unique"` // assigned at finalize, nil while DRAFT
	Date   string  `gorm:"not null"`
	Status string  `gorm:"not null;default:'DRAFT'"`

	CustomerName       string `gorm:"not null;default:''"`
	CustomerAddress    string `gorm:"not null;default:''"`
	CustomerPostalCode string `gorm:"not null;default:''"`

	SubtotalCents int64 `gorm:"not null;default:0"`
	VatRate       int   `gorm:"not null;default:20"` // integer percent
	VatCents      int64 `gorm:"not null;default:0"`
	TotalCents    int64 `gorm:"not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Lines   []InvoiceLine `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
	Exports []PdfExport   `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
}

func (Invoice) TableName() string { return "invoice" }

// IsEditable reports whether monetary content may still change.
func (i *Invoice) IsEditable() bool { return i.Status == StatusDraft }

// InvoiceLine is an ordered line item owned by exactly one invoice.
// Position is 1-based and unique within the invoice; it defines display order.
type InvoiceLine struct {
	ID             uint   `gorm:"primaryKey"`
	InvoiceID      uint   `gorm:"not null;index;uniqueIndex:uq_invoice_line_position"`
	Position       int    `gorm:"not null;uniqueIndex:uq_invoice_line_position"`
	Qty            int    `gorm:"not null;default:0"`
	Description    string `gorm:"not null;default:''"`
	UnitPriceCents int64  `gorm:"not null;default:0"`
	LineTotalCents int64  `gorm:"not null;default:0"`
}

func (InvoiceLine) TableName() string { return "invoice_line" }
