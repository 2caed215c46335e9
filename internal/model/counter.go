package model

// CounterInvoiceNumber is the only sequence key in use today.
const CounterInvoiceNumber = "invoice_number"

// Counter maps a sequence key to the NEXT integer value to assign (seeded at
// 1). Read-and-increment happens inside the finalize transaction so two
// invoices can never receive the same number.
type Counter struct {
	Key   string `gorm:"primaryKey"`
	Value int64  `gorm:"not null"`
}

func (Counter) TableName() string { return "counter" }
