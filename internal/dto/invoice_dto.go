package dto

// CustomerInput is the customer identity snapshot taken when a draft is
// created or edited. It is copied onto the invoice, never referenced.
type CustomerInput struct {
	Name       string
	Address    string
	PostalCode string
}

// LineInput addresses a line by ID when updating (ID == 0 means insert).
// Position is 1-based within the invoice.
type LineInput struct {
	ID             uint
	Position       int
	Qty            int
	Description    string
	UnitPriceCents int64
}

// InvoiceListItem is one row of the invoice list screen.
type InvoiceListItem struct {
	ID           uint
	Number       *string
	Date         string
	Status       string
	CustomerName string
	TotalCents   int64
}

// InvoiceFilter narrows the invoice list. Search matches number, customer
// name, or date with a LIKE.
type InvoiceFilter struct {
	Search string
}
