package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/yass-hmr/HA-Autos-Facturation/internal/apperror"
	"github.com/yass-hmr/HA-Autos-Facturation/internal/dto"
	"github.com/yass-hmr/HA-Autos-Facturation/internal/model"
	"github.com/yass-hmr/HA-Autos-Facturation/internal/money"
	"github.com/yass-hmr/HA-Autos-Facturation/internal/repository"
)

// InvoiceService is the invoice ledger: the only component with write
// authority over invoices, lines, the number counter, and export records.
// Status lifecycle: DRAFT → FINAL → {PAID, CANCELED}.
type InvoiceService interface {
	CreateDraft(ctx context.Context, customer dto.CustomerInput, dateISO string) (*model.Invoice, error)
	UpdateDraft(ctx context.Context, id uint, customer dto.CustomerInput, dateISO string) (*model.Invoice, error)
	Get(ctx context.Context, id uint) (*model.Invoice, error)
	List(ctx context.Context, filter dto.InvoiceFilter) ([]dto.InvoiceListItem, error)
	Delete(ctx context.Context, id uint) error

	AddOrUpdateLine(ctx context.Context, invoiceID uint, in dto.LineInput) (*model.Invoice, error)
	RemoveLine(ctx context.Context, invoiceID uint, position int) (*model.Invoice, error)

	Finalize(ctx context.Context, id uint) (*model.Invoice, error)
	MarkPaid(ctx context.Context, id uint) (*model.Invoice, error)
	Cancel(ctx context.Context, id uint) (*model.Invoice, error)

	RecordPdfExport(ctx context.Context, invoiceID uint, filename, relPath, kind string) (*model.PdfExport, error)
}

type invoiceService struct {
	repo       repository.InvoiceRepository
	exportRepo repository.PdfExportRepository
	vatRate    int // applied to new drafts
}

func NewInvoiceService(repo repository.InvoiceRepository, exportRepo repository.PdfExportRepository, vatRate int) InvoiceService {
	if vatRate < 0 {
		vatRate = 0
	}
	return &invoiceService{repo: repo, exportRepo: exportRepo, vatRate: vatRate}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// mapStorageErr translates gorm's not-found into the ledger sentinel, lets
// errors that already carry a domain kind through untouched, and wraps the
// rest as storage failures. Sentinels raised inside a transaction closure
// come back through here; they must keep their kind for the caller's
// errors.Is checks.
func mapStorageErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.ErrNotFound
	}
	if apperror.IsDomain(err) {
		return err
	}
	return apperror.Storage(err)
}

// ── CreateDraft ───────────────────────────────────────────────────────────────

func (s *invoiceService) CreateDraft(ctx context.Context, customer dto.CustomerInput, dateISO string) (*model.Invoice, error) {
	inv := &model.Invoice{
		Date:               dateISO,
		Status:             model.StatusDraft,
		CustomerName:       customer.Name,
		CustomerAddress:    customer.Address,
		CustomerPostalCode: customer.PostalCode,
		VatRate:            s.vatRate,
	}
	if err := s.repo.Create(ctx, inv); err != nil {
		return nil, mapStorageErr(err)
	}
	return inv, nil
}

// ── UpdateDraft ───────────────────────────────────────────────────────────────
// Re-snapshots the customer fields and date. Drafts only: once finalized the
// snapshot is history and must not change.

func (s *invoiceService) UpdateDraft(ctx context.Context, id uint, customer dto.CustomerInput, dateISO string) (*model.Invoice, error) {
	inv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	if !inv.IsEditable() {
		return nil, fmt.Errorf("%w: invoice %d is %s", apperror.ErrInvalidState, id, inv.Status)
	}
	inv.CustomerName = customer.Name
	inv.CustomerAddress = customer.Address
	inv.CustomerPostalCode = customer.PostalCode
	inv.Date = dateISO
	if err := s.repo.Save(ctx, nil, inv); err != nil {
		return nil, mapStorageErr(err)
	}
	return s.Get(ctx, id)
}

// ── Get / List / Delete ───────────────────────────────────────────────────────

func (s *invoiceService) Get(ctx context.Context, id uint) (*model.Invoice, error) {
	inv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	return inv, nil
}

func (s *invoiceService) List(ctx context.Context, filter dto.InvoiceFilter) ([]dto.InvoiceListItem, error) {
	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	return items, nil
}

// Delete removes an invoice; lines and pdf_export rows go with it (cascade).
func (s *invoiceService) Delete(ctx context.Context, id uint) error {
	return mapStorageErr(s.repo.Delete(ctx, id))
}

// ── AddOrUpdateLine ───────────────────────────────────────────────────────────
// Inserts (in.ID == 0) or updates (in.ID set) a line, then recomputes the
// invoice totals in the same transaction. Moving a line onto a position held
// by another line is rejected; callers must reposition explicitly.

func (s *invoiceService) AddOrUpdateLine(ctx context.Context, invoiceID uint, in dto.LineInput) (*model.Invoice, error) {
	if in.Position < 1 {
		return nil, fmt.Errorf("%w: position must be >= 1", apperror.ErrInvalidLine)
	}
	if in.Qty < 0 {
		return nil, fmt.Errorf("%w: quantity must not be negative", apperror.ErrInvalidLine)
	}
	if in.UnitPriceCents < 0 {
		return nil, fmt.Errorf("%w: unit price must not be negative", apperror.ErrInvalidLine)
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		inv, err := s.lockInvoice(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		if !inv.IsEditable() {
			return fmt.Errorf("%w: invoice %d is %s", apperror.ErrInvalidState, invoiceID, inv.Status)
		}

		if in.ID == 0 {
			if _, err := s.repo.FindLineByPosition(ctx, tx, invoiceID, in.Position); err == nil {
				return fmt.Errorf("%w: position %d", apperror.ErrDuplicatePosition, in.Position)
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			ln := &model.InvoiceLine{
				InvoiceID:      invoiceID,
				Position:       in.Position,
				Qty:            in.Qty,
				Description:    in.Description,
				UnitPriceCents: in.UnitPriceCents,
				LineTotalCents: int64(in.Qty) * in.UnitPriceCents,
			}
			if err := s.repo.CreateLine(ctx, tx, ln); err != nil {
				return err
			}
		} else {
			ln, err := s.repo.FindLineByID(ctx, tx, invoiceID, in.ID)
			if err != nil {
				return err
			}
			if ln.Position != in.Position {
				if other, err := s.repo.FindLineByPosition(ctx, tx, invoiceID, in.Position); err == nil && other.ID != ln.ID {
					return fmt.Errorf("%w: position %d", apperror.ErrDuplicatePosition, in.Position)
				} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
					return err
				}
			}
			ln.Position = in.Position
			ln.Qty = in.Qty
			ln.Description = in.Description
			ln.UnitPriceCents = in.UnitPriceCents
			ln.LineTotalCents = int64(in.Qty) * in.UnitPriceCents
			if err := s.repo.SaveLine(ctx, tx, ln); err != nil {
				return err
			}
		}

		return s.recomputeTotals(ctx, tx, inv)
	})
	if txErr != nil {
		return nil, mapStorageErr(txErr)
	}
	return s.Get(ctx, invoiceID)
}

// ── RemoveLine ────────────────────────────────────────────────────────────────

func (s *invoiceService) RemoveLine(ctx context.Context, invoiceID uint, position int) (*model.Invoice, error) {
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		inv, err := s.lockInvoice(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		if !inv.IsEditable() {
			return fmt.Errorf("%w: invoice %d is %s", apperror.ErrInvalidState, invoiceID, inv.Status)
		}
		ln, err := s.repo.FindLineByPosition(ctx, tx, invoiceID, position)
		if err != nil {
			return err
		}
		if err := s.repo.DeleteLine(ctx, tx, ln.ID); err != nil {
			return err
		}
		return s.recomputeTotals(ctx, tx, inv)
	})
	if txErr != nil {
		return nil, mapStorageErr(txErr)
	}
	return s.Get(ctx, invoiceID)
}

// ── Finalize ──────────────────────────────────────────────────────────────────
// Claims the next counter value, assigns the number, and flips the status to
// FINAL in one transaction. The counter read-and-increment is a single UPDATE
// … RETURNING, so back-to-back finalizes can never share a number; the UNIQUE
// constraint on invoice.number backs that up at the schema level.

func (s *invoiceService) Finalize(ctx context.Context, id uint) (*model.Invoice, error) {
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		inv, err := s.lockInvoice(ctx, tx, id)
		if err != nil {
			return err
		}
		if inv.Status != model.StatusDraft {
			return fmt.Errorf("%w: invoice %d is %s", apperror.ErrInvalidState, id, inv.Status)
		}
		n, err := s.repo.CountLines(ctx, tx, id)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: invoice %d", apperror.ErrEmptyInvoice, id)
		}
		num, err := s.repo.NextInvoiceNumber(ctx, tx)
		if err != nil {
			return err
		}
		number := fmt.Sprintf("%03d", num)
		inv.Number = &number
		inv.Status = model.StatusFinal
		return s.repo.Save(ctx, tx, inv)
	})
	if txErr != nil {
		return nil, mapStorageErr(txErr)
	}
	return s.Get(ctx, id)
}

// ── MarkPaid / Cancel ─────────────────────────────────────────────────────────

func (s *invoiceService) MarkPaid(ctx context.Context, id uint) (*model.Invoice, error) {
	return s.transition(ctx, id, model.StatusPaid)
}

func (s *invoiceService) Cancel(ctx context.Context, id uint) (*model.Invoice, error) {
	return s.transition(ctx, id, model.StatusCanceled)
}

// transition moves a FINAL invoice to one of its terminal statuses. Monetary
// content is already frozen; only the status cell changes.
func (s *invoiceService) transition(ctx context.Context, id uint, target string) (*model.Invoice, error) {
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		inv, err := s.lockInvoice(ctx, tx, id)
		if err != nil {
			return err
		}
		if inv.Status != model.StatusFinal {
			return fmt.Errorf("%w: invoice %d is %s, want FINAL", apperror.ErrInvalidState, id, inv.Status)
		}
		inv.Status = target
		return s.repo.Save(ctx, tx, inv)
	})
	if txErr != nil {
		return nil, mapStorageErr(txErr)
	}
	return s.Get(ctx, id)
}

// ── RecordPdfExport ───────────────────────────────────────────────────────────

func (s *invoiceService) RecordPdfExport(ctx context.Context, invoiceID uint, filename, relPath, kind string) (*model.PdfExport, error) {
	if kind == "" {
		kind = model.ExportKindInvoice
	}
	var export *model.PdfExport
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if _, err := s.lockInvoice(ctx, tx, invoiceID); err != nil {
			return err
		}
		exists, err := s.exportRepo.ExistsForInvoice(ctx, tx, invoiceID, filename, relPath)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s", apperror.ErrDuplicateExport, filename)
		}
		export = &model.PdfExport{
			InvoiceID: invoiceID,
			Filename:  filename,
			RelPath:   relPath,
			Kind:      kind,
		}
		return s.exportRepo.Create(ctx, tx, export)
	})
	if txErr != nil {
		return nil, mapStorageErr(txErr)
	}
	return export, nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

// lockInvoice loads the invoice header inside the transaction. SQLite
// serializes writers, so the plain read is already a stable view for the
// duration of the tx.
func (s *invoiceService) lockInvoice(ctx context.Context, tx *gorm.DB, id uint) (*model.Invoice, error) {
	db := tx
	if db == nil {
		db = s.repo.DB()
	}
	if db == nil { // unit test mode: fall back to the repo lookup
		return s.repo.FindByID(ctx, id)
	}
	var inv model.Invoice
	if err := db.WithContext(ctx).First(&inv, id).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

// recomputeTotals re-derives subtotal from the current lines, applies the
// invoice-level VAT rounding rule once, and saves the header. Runs inside
// the mutation's transaction so readers never observe a stale total.
func (s *invoiceService) recomputeTotals(ctx context.Context, tx *gorm.DB, inv *model.Invoice) error {
	subtotal, err := s.repo.SumLineTotals(ctx, tx, inv.ID)
	if err != nil {
		return err
	}
	inv.SubtotalCents = subtotal
	inv.VatCents = money.VatCents(subtotal, inv.VatRate)
	inv.TotalCents = inv.SubtotalCents + inv.VatCents
	return s.repo.Save(ctx, tx, inv)
}
