package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/yass-hmr/HA-Autos-Facturation/internal/apperror"
	"github.com/yass-hmr/HA-Autos-Facturation/internal/infra"
	"github.com/yass-hmr/HA-Autos-Facturation/internal/model"
	"github.com/yass-hmr/HA-Autos-Facturation/internal/repository"
)

// ExportService renders invoice PDFs and keeps the pdf_export ledger in sync
// with the files on disk. Only finalized (or later) invoices can be exported:
// a draft has no number, hence no stable artifact name.
type ExportService interface {
	ExportInvoicePDF(ctx context.Context, invoiceID uint) (*model.PdfExport, error)
	ListAll(ctx context.Context) ([]model.PdfExport, error)
	ListByInvoice(ctx context.Context, invoiceID uint) ([]model.PdfExport, error)
	Delete(ctx context.Context, id uint) error
}

type exportService struct {
	invoices     InvoiceService
	settingsRepo repository.SettingsRepository
	exportRepo   repository.PdfExportRepository
	storagePath  string
}

func NewExportService(invoices InvoiceService, settingsRepo repository.SettingsRepository, exportRepo repository.PdfExportRepository, storagePath string) ExportService {
	return &exportService{
		invoices:     invoices,
		settingsRepo: settingsRepo,
		exportRepo:   exportRepo,
		storagePath:  storagePath,
	}
}

// ExportInvoicePDF renders the invoice document and records the artifact.
// The rel_path stored is relative to the exports directory, so the database
// stays valid when the data directory moves between machines.
func (s *exportService) ExportInvoicePDF(ctx context.Context, invoiceID uint) (*model.PdfExport, error) {
	inv, err := s.invoices.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status == model.StatusDraft {
		return nil, fmt.Errorf("%w: invoice %d is still a draft", apperror.ErrInvalidState, invoiceID)
	}

	// Refuse duplicates before rendering: regenerating would overwrite the
	// artifact of the first export and the cleanup below would then delete it.
	filename := infra.InvoicePDFFilename(*inv.Number)
	exists, err := s.exportRepo.ExistsForInvoice(ctx, nil, invoiceID, filename, filename)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", apperror.ErrDuplicateExport, filename)
	}

	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, apperror.Storage(err)
	}

	path, err := infra.GenerateInvoicePDF(inv, settings, s.storagePath)
	if err != nil {
		return nil, err
	}

	export, err := s.invoices.RecordPdfExport(ctx, invoiceID, filename, filename, model.ExportKindInvoice)
	if err != nil {
		// The file exists but the record was refused (duplicate or storage
		// failure): remove the orphan so disk and ledger stay consistent.
		if rmErr := os.Remove(path); rmErr != nil {
			log.Warn().Err(rmErr).Str("path", path).Msg("could not remove orphan pdf")
		}
		return nil, err
	}

	log.Info().Uint("invoice_id", invoiceID).Str("file", filename).Msg("pdf exported")
	return export, nil
}

func (s *exportService) ListAll(ctx context.Context) ([]model.PdfExport, error) {
	exports, err := s.exportRepo.ListAll(ctx)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	return exports, nil
}

func (s *exportService) ListByInvoice(ctx context.Context, invoiceID uint) ([]model.PdfExport, error) {
	exports, err := s.exportRepo.ListByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	return exports, nil
}

// Delete removes the export record and best-effort deletes the file.
func (s *exportService) Delete(ctx context.Context, id uint) error {
	export, err := s.exportRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.ErrNotFound
		}
		return apperror.Storage(err)
	}
	if err := s.exportRepo.Delete(ctx, id); err != nil {
		return apperror.Storage(err)
	}
	path := filepath.Join(s.storagePath, export.RelPath)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", path).Msg("export record deleted but file remains")
	}
	return nil
}
