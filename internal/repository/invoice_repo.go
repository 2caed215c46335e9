package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/yass-hmr/HA-Autos-Facturation/internal/dto"
	"github.com/yass-hmr/HA-Autos-Facturation/internal/model"
)

type InvoiceRepository interface {
	Create(ctx context.Context, inv *model.Invoice) error
	FindByID(ctx context.Context, id uint) (*model.Invoice, error)
	Save(ctx context.Context, tx *gorm.DB, inv *model.Invoice) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filter dto.InvoiceFilter) ([]dto.InvoiceListItem, error)

	CreateLine(ctx context.Context, tx *gorm.DB, ln *model.InvoiceLine) error
	SaveLine(ctx context.Context, tx *gorm.DB, ln *model.InvoiceLine) error
	FindLineByPosition(ctx context.Context, tx *gorm.DB, invoiceID uint, position int) (*model.InvoiceLine, error)
	FindLineByID(ctx context.Context, tx *gorm.DB, invoiceID, lineID uint) (*model.InvoiceLine, error)
	DeleteLine(ctx context.Context, tx *gorm.DB, lineID uint) error
	CountLines(ctx context.Context, tx *gorm.DB, invoiceID uint) (int64, error)
	SumLineTotals(ctx context.Context, tx *gorm.DB, invoiceID uint) (int64, error)

	NextInvoiceNumber(ctx context.Context, tx *gorm.DB) (int64, error)

	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type invoiceRepo struct{ db *gorm.DB }

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository { return &invoiceRepo{db: db} }

func (r *invoiceRepo) DB() *gorm.DB { return r.db }

// or returns tx when inside a transaction, the root handle otherwise.
func (r *invoiceRepo) or(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *invoiceRepo) Create(ctx context.Context, inv *model.Invoice) error {
	return r.db.WithContext(ctx).Create(inv).Error
}

func (r *invoiceRepo) FindByID(ctx context.Context, id uint) (*model.Invoice, error) {
	var inv model.Invoice
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&inv, id).Error
	return &inv, err
}

func (r *invoiceRepo) Save(ctx context.Context, tx *gorm.DB, inv *model.Invoice) error {
	// Omit associations: lines are managed through the dedicated methods so a
	// header save can never resurrect removed lines.
	return r.or(tx).WithContext(ctx).Omit("Lines", "Exports").Save(inv).Error
}

func (r *invoiceRepo) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.Invoice{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *invoiceRepo) List(ctx context.Context, filter dto.InvoiceFilter) ([]dto.InvoiceListItem, error) {
	var items []dto.InvoiceListItem
	q := r.db.WithContext(ctx).Model(&model.Invoice{}).
		Select("id", "number", "date", "status", "customer_name", "total_cents")
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		q = q.Where("number LIKE ? OR customer_name LIKE ? OR date LIKE ?", like, like, like)
	}
	err := q.Order("id DESC").Scan(&items).Error
	return items, err
}

func (r *invoiceRepo) CreateLine(ctx context.Context, tx *gorm.DB, ln *model.InvoiceLine) error {
	return r.or(tx).WithContext(ctx).Create(ln).Error
}

func (r *invoiceRepo) SaveLine(ctx context.Context, tx *gorm.DB, ln *model.InvoiceLine) error {
	return r.or(tx).WithContext(ctx).Save(ln).Error
}

func (r *invoiceRepo) FindLineByPosition(ctx context.Context, tx *gorm.DB, invoiceID uint, position int) (*model.InvoiceLine, error) {
	var ln model.InvoiceLine
	err := r.or(tx).WithContext(ctx).
		Where("invoice_id = ? AND position = ?", invoiceID, position).
		First(&ln).Error
	return &ln, err
}

func (r *invoiceRepo) FindLineByID(ctx context.Context, tx *gorm.DB, invoiceID, lineID uint) (*model.InvoiceLine, error) {
	var ln model.InvoiceLine
	err := r.or(tx).WithContext(ctx).
		Where("invoice_id = ? AND id = ?", invoiceID, lineID).
		First(&ln).Error
	return &ln, err
}

func (r *invoiceRepo) DeleteLine(ctx context.Context, tx *gorm.DB, lineID uint) error {
	return r.or(tx).WithContext(ctx).Delete(&model.InvoiceLine{}, lineID).Error
}

func (r *invoiceRepo) CountLines(ctx context.Context, tx *gorm.DB, invoiceID uint) (int64, error) {
	var n int64
	err := r.or(tx).WithContext(ctx).Model(&model.InvoiceLine{}).
		Where("invoice_id = ?", invoiceID).Count(&n).Error
	return n, err
}

func (r *invoiceRepo) SumLineTotals(ctx context.Context, tx *gorm.DB, invoiceID uint) (int64, error) {
	var sum int64
	err := r.or(tx).WithContext(ctx).Model(&model.InvoiceLine{}).
		Where("invoice_id = ?", invoiceID).
		Select("COALESCE(SUM(line_total_cents), 0)").Scan(&sum).Error
	return sum, err
}

// NextInvoiceNumber atomically claims the next value of the invoice_number
// counter. The UPDATE … RETURNING runs as a single statement inside the
// caller's transaction, so two concurrent finalize attempts can never
// observe the same value.
func (r *invoiceRepo) NextInvoiceNumber(ctx context.Context, tx *gorm.DB) (int64, error) {
	var num int64
	err := r.or(tx).WithContext(ctx).Raw(
		"UPDATE counter SET value = value + 1 WHERE key = ? RETURNING value - 1",
		model.CounterInvoiceNumber,
	).Scan(&num).Error
	return num, err
}
