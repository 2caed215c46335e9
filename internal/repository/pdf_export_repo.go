package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/yass-hmr/HA-Autos-Facturation/internal/model"
)

type PdfExportRepository interface {
	Create(ctx context.Context, tx *gorm.DB, e *model.PdfExport) error
	FindByID(ctx context.Context, id uint) (*model.PdfExport, error)
	ExistsForInvoice(ctx context.Context, tx *gorm.DB, invoiceID uint, filename, relPath string) (bool, error)
	ListAll(ctx context.Context) ([]model.PdfExport, error)
	ListByInvoice(ctx context.Context, invoiceID uint) ([]model.PdfExport, error)
	Delete(ctx context.Context, id uint) error
}

type pdfExportRepo struct{ db *gorm.DB }

func NewPdfExportRepository(db *gorm.DB) PdfExportRepository { return &pdfExportRepo{db: db} }

// or returns tx when inside a transaction, the root handle otherwise.
func (r *pdfExportRepo) or(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *pdfExportRepo) Create(ctx context.Context, tx *gorm.DB, e *model.PdfExport) error {
	return r.or(tx).WithContext(ctx).Create(e).Error
}

func (r *pdfExportRepo) FindByID(ctx context.Context, id uint) (*model.PdfExport, error) {
	var e model.PdfExport
	err := r.db.WithContext(ctx).First(&e, id).Error
	return &e, err
}

func (r *pdfExportRepo) ExistsForInvoice(ctx context.Context, tx *gorm.DB, invoiceID uint, filename, relPath string) (bool, error) {
	var n int64
	err := r.or(tx).WithContext(ctx).Model(&model.PdfExport{}).
		Where("invoice_id = ? AND (filename = ? OR rel_path = ?)", invoiceID, filename, relPath).
		Count(&n).Error
	return n > 0, err
}

func (r *pdfExportRepo) ListAll(ctx context.Context) ([]model.PdfExport, error) {
	var exports []model.PdfExport
	err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&exports).Error
	return exports, err
}

func (r *pdfExportRepo) ListByInvoice(ctx context.Context, invoiceID uint) ([]model.PdfExport, error) {
	var exports []model.PdfExport
	err := r.db.WithContext(ctx).Where("invoice_id = ?", invoiceID).
		Order("created_at DESC, id DESC").Find(&exports).Error
	return exports, err
}

func (r *pdfExportRepo) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.PdfExport{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
