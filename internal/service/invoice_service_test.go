package service_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yass-hmr/HA-Autos-Facturation/internal/apperror"
	"github.com/yass-hmr/HA-Autos-Facturation/internal/dto"
	"github.com/yass-hmr/HA-Autos-Facturation/internal/infra"
	"github.com/yass-hmr/HA-Autos-Facturation/internal/model"
	"github.com/yass-hmr/HA-Autos-Facturation/internal/repository"
	"github.com/yass-hmr/HA-Autos-Facturation/internal/service"
)

func newLedger(t *testing.T) (service.InvoiceService, *gorm.DB) {
	t.Helper()
	db, err := infra.NewDatabase(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	svc := service.NewInvoiceService(
		repository.NewInvoiceRepository(db),
		repository.NewPdfExportRepository(db),
		20,
	)
	return svc, db
}

func addLine(t *testing.T, svc service.InvoiceService, invoiceID uint, pos, qty int, desc string, priceCents int64) *model.Invoice {
	t.Helper()
	inv, err := svc.AddOrUpdateLine(context.Background(), invoiceID, dto.LineInput{
		Position:       pos,
		Qty:            qty,
		Description:    desc,
		UnitPriceCents: priceCents,
	})
	require.NoError(t, err)
	return inv
}

func checkTotalsInvariant(t *testing.T, inv *model.Invoice) {
	t.Helper()
	var sum int64
	for _, ln := range inv.Lines {
		sum += ln.LineTotalCents
	}
	assert.Equal(t, sum, inv.SubtotalCents, "subtotal must equal sum of line totals")
	assert.Equal(t, inv.SubtotalCents+inv.VatCents, inv.TotalCents, "total must equal subtotal + vat")
}

func TestCreateDraft(t *testing.T) {
	svc, _ := newLedger(t)
	ctx := context.Background()

	inv, err := svc.CreateDraft(ctx, dto.CustomerInput{
		Name:       "M. Dupont",
		Address:    "3 rue des Lilas",
		PostalCode: "75011 Paris",
	}, "2026-02-10")
	require.NoError(t, err)

	assert.Equal(t, model.StatusDraft, inv.Status)
	assert.Nil(t, inv.Number)
	assert.Zero(t, inv.SubtotalCents)
	assert.Zero(t, inv.VatCents)
	assert.Zero(t, inv.TotalCents)
	assert.Equal(t, 20, inv.VatRate)
	assert.Equal(t, "M. Dupont", inv.CustomerName)
}

func TestAddLineComputesTotals(t *testing.T) {
	svc, _ := newLedger(t)
	ctx := context.Background()

	inv, err := svc.CreateDraft(ctx, dto.CustomerInput{Name: "Client"}, "2026-02-10")
	require.NoError(t, err)

	// qty=2 × 15.00 € at 20% VAT → 30.00 / 6.00 / 36.00
	inv = addLine(t, svc, inv.ID, 1, 2, "Vidange + filtre", 1500)
	assert.Equal(t, int64(3000), inv.SubtotalCents)
	assert.Equal(t, int64(600), inv.VatCents)
	assert.Equal(t, int64(3600), inv.TotalCents)
	checkTotalsInvariant(t, inv)
}

func TestSubtotalTracksLinesThroughEdits(t *testing.T) {
	svc, _ := newLedger(t)
	ctx := context.Background()

	inv, err := svc.CreateDraft(ctx, dto.CustomerInput{Name: "Client"}, "2026-02-10")
	require.NoError(t, err)

	inv = addLine(t, svc, inv.ID, 1, 1, "Plaquettes avant", 8990)
	checkTotalsInvariant(t, inv)
	inv = addLine(t, svc, inv.ID, 2, 3, "Main d'oeuvre", 4500)
	checkTotalsInvariant(t, inv)
	inv = addLine(t, svc, inv.ID, 3, 1, "Liquide de frein", 1250)
	checkTotalsInvariant(t, inv)
	assert.Equal(t, int64(8990+3*4500+1250), inv.SubtotalCents)

	// update line 2 content in place
	line2 := inv.Lines[1]
	inv, err = svc.AddOrUpdateLine(ctx, inv.ID, dto.LineInput{
		ID:             line2.ID,
		Position:       2,
		Qty:            2,
		Description:    "Main d'oeuvre",
		UnitPriceCents: 4500,
	})
	require.NoError(t, err)
	checkTotalsInvariant(t, inv)
	assert.Equal(t, int64(8990+2*4500+1250), inv.SubtotalCents)

	inv, err = svc.RemoveLine(ctx, inv.ID, 3)
	require.NoError(t, err)
	checkTotalsInvariant(t, inv)
	assert.Equal(t, int64(8990+2*4500), inv.SubtotalCents)
	assert.Len(t, inv.Lines, 2)
}

func TestAddLineRejectsBadInput(t *testing.T) {
	svc, _ := newLedger(t)
	ctx := context.Background()

	inv, err := svc.CreateDraft(ctx, dto.CustomerInput{Name: "Client"}, "2026-02-10")
	require.NoError(t, err)

	_, err = svc.AddOrUpdateLine(ctx, inv.ID, dto.LineInput{Position: 0, Qty: 1, UnitPriceCents: 100})
	assert.ErrorIs(t, err, apperror.ErrInvalidLine)

	_, err = svc.AddOrUpdateLine(ctx, inv.ID, dto.LineInput{Position: 1, Qty: -1, UnitPriceCents: 100})
	assert.ErrorIs(t, err, apperror.ErrInvalidLine)

	_, err = svc.AddOrUpdateLine(ctx, inv.ID, dto.LineInput{Position: 1, Qty: 1, UnitPriceCents: -5})
	assert.ErrorIs(t, err, apperror.ErrInvalidLine)
}

func TestAddLineRejectsDuplicatePosition(t *testing.T) {
	svc, _ := newLedger(t)
	ctx := context.Background()

	inv, err := svc.CreateDraft(ctx, dto.CustomerInput{Name: "Client"}, "2026-02-10")
	require.NoError(t, err)
	addLine(t, svc, inv.ID, 1, 1, "Forfait révision", 12000)

	_, err = svc.AddOrUpdateLine(ctx, inv.ID, dto.LineInput{
		Position: 1, Qty: 1, Description: "Autre", UnitPriceCents: 100,
	})
	assert.ErrorIs(t, err, apperror.ErrDuplicatePosition)
}

func TestMoveLineOntoOccupiedPositionRejected(t *testing.T) {
	svc, _ := newLedger(t)
	ctx := context.Background()

	inv, err := svc.CreateDraft(ctx, dto.CustomerInput{Name: "Client"}, "2026-02-10")
	require.NoError(t, err)
	inv = addLine(t, svc, inv.ID, 1, 1, "A", 100)
	inv = addLine(t, svc, inv.ID, 2, 1, "B", 200)

	// moving line 2 onto position 1 must be rejected
	_, err = svc.AddOrUpdateLine(ctx, inv.ID, dto.LineInput{
		ID: inv.Lines[1].ID, Position: 1, Qty: 1, Description: "B", UnitPriceCents: 200,
	})
	assert.ErrorIs(t, err, apperror.ErrDuplicatePosition)

	// moving it onto a free position is fine
	inv2, err := svc.AddOrUpdateLine(ctx, inv.ID, dto.LineInput{
		ID: inv.Lines[1].ID, Position: 5, Qty: 1, Description: "B", UnitPriceCents: 200,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, inv2.Lines[1].Position)
}

func TestEditsRejectedOutsideDraft(t *testing.T) {
	svc, _ := newLedger(t)
	ctx := context.Background()

	inv, err := svc.CreateDraft(ctx, dto.CustomerInput{Name: "Client"}, "2026-02-10")
	require.NoError(t, err)
	addLine(t, svc, inv.ID, 1, 1, "Forfait", 10000)

	final, err := svc.Finalize(ctx, inv.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusFinal, final.Status)

	_, err = svc.AddOrUpdateLine(ctx, inv.ID, dto.LineInput{Position: 2, Qty: 1, UnitPriceCents: 100})
	assert.ErrorIs(t, err, apperror.ErrInvalidState)

	// removing the only line of a finalized invoice is rejected: monetary
	// content is frozen
	_, err = svc.RemoveLine(ctx, inv.ID, 1)
	assert.ErrorIs(t, err, apperror.ErrInvalidState)

	_, err = svc.UpdateDraft(ctx, inv.ID, dto.CustomerInput{Name: "Autre"}, "2026-02-11")
	assert.ErrorIs(t, err, apperror.ErrInvalidState)
}

func TestRemoveLineNotFound(t *testing.T) {
	svc, _ := newLedger(t)
	ctx := context.Background()

	inv, err := svc.CreateDraft(ctx, dto.CustomerInput{Name: "Client"}, "2026-02-10")
	require.NoError(t, err)

	_, err = svc.RemoveLine(ctx, inv.ID, 7)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestFinalizeEmptyInvoiceFails(t *testing.T) {
	svc, _ := newLedger(t)
	ctx := context.Background()

	inv, err := svc.CreateDraft(ctx, dto.CustomerInput{Name: "Client"}, "2026-02-10")
	require.NoError(t, err)

	_, err = svc.Finalize(ctx, inv.ID)
	assert.ErrorIs(t, err, apperror.ErrEmptyInvoice)

	// the invoice must remain an unnumbered draft
	got, err := svc.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDraft, got.Status)
	assert.Nil(t, got.Number)
}

func TestFinalizeAssignsSequentialNumbers(t *testing.T) {
	svc, _ := newLedger(t)
	ctx := context.Background()

	var numbers []string
	for i := 0; i < 3; i++ {
		inv, err := svc.CreateDraft(ctx, dto.CustomerInput{Name: fmt.Sprintf("Client %d", i)}, "2026-02-10")
		require.NoError(t, err)
		addLine(t, svc, inv.ID, 1, 1, "Forfait", 5000)
		final, err := svc.Finalize(ctx, inv.ID)
		require.NoError(t, err)
		require.NotNil(t, final.Number)
		numbers = append(numbers, *final.Number)
	}
	assert.Equal(t, []string{"001", "002", "003"}, numbers)

	// a second finalize on the same invoice is illegal
	items, err := svc.List(ctx, dto.InvoiceFilter{})
	require.NoError(t, err)
	_, err = svc.Finalize(ctx, items[0].ID)
	assert.ErrorIs(t, err, apperror.ErrInvalidState)
}

func TestConcurrentFinalizesNeverShareANumber(t *testing.T) {
	svc, _ := newLedger(t)
	ctx := context.Background()

	const n = 4
	ids := make([]uint, n)
	for i := 0; i < n; i++ {
		inv, err := svc.CreateDraft(ctx, dto.CustomerInput{Name: "Client"}, "2026-02-10")
		require.NoError(t, err)
		addLine(t, svc, inv.ID, 1, 1, "Forfait", 5000)
		ids[i] = inv.ID
	}

	var wg sync.WaitGroup
	results := make([]*model.Invoice, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Finalize(ctx, ids[i])
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		require.NotNil(t, results[i].Number)
		assert.False(t, seen[*results[i].Number], "number %s assigned twice", *results[i].Number)
		seen[*results[i].Number] = true
	}
}

func TestErrorKindsSurviveTransactions(t *testing.T) {
	svc, _ := newLedger(t)
	ctx := context.Background()

	inv, err := svc.CreateDraft(ctx, dto.CustomerInput{Name: "Client"}, "2026-02-10")
	require.NoError(t, err)

	// Failures raised inside the transaction closure must keep their kind;
	// a caller matching with errors.Is must never see a storage failure
	// standing in for a domain one.
	_, err = svc.Finalize(ctx, inv.ID)
	assert.ErrorIs(t, err, apperror.ErrEmptyInvoice)
	assert.NotErrorIs(t, err, apperror.ErrStorage)

	_, err = svc.MarkPaid(ctx, inv.ID)
	assert.ErrorIs(t, err, apperror.ErrInvalidState)
	assert.NotErrorIs(t, err, apperror.ErrStorage)

	addLine(t, svc, inv.ID, 1, 1, "Forfait", 5000)
	_, err = svc.AddOrUpdateLine(ctx, inv.ID, dto.LineInput{
		Position: 1, Qty: 1, Description: "Autre", UnitPriceCents: 100,
	})
	assert.ErrorIs(t, err, apperror.ErrDuplicatePosition)
	assert.NotErrorIs(t, err, apperror.ErrStorage)

	_, err = svc.RecordPdfExport(ctx, inv.ID, "FAC_x.pdf", "FAC_x.pdf", "")
	require.NoError(t, err)
	_, err = svc.RecordPdfExport(ctx, inv.ID, "FAC_x.pdf", "FAC_x.pdf", "")
	assert.ErrorIs(t, err, apperror.ErrDuplicateExport)
	assert.NotErrorIs(t, err, apperror.ErrStorage)
}

func TestStatusTransitions(t *testing.T) {
	svc, _ := newLedger(t)
	ctx := context.Background()

	inv, err := svc.CreateDraft(ctx, dto.CustomerInput{Name: "Client"}, "2026-02-10")
	require.NoError(t, err)

	// DRAFT cannot be paid or canceled
	_, err = svc.MarkPaid(ctx, inv.ID)
	assert.ErrorIs(t, err, apperror.ErrInvalidState)
	_, err = svc.Cancel(ctx, inv.ID)
	assert.ErrorIs(t, err, apperror.ErrInvalidState)

	addLine(t, svc, inv.ID, 1, 1, "Forfait", 5000)
	_, err = svc.Finalize(ctx, inv.ID)
	require.NoError(t, err)

	paid, err := svc.MarkPaid(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaid, paid.Status)

	// PAID is terminal
	_, err = svc.Cancel(ctx, inv.ID)
	assert.ErrorIs(t, err, apperror.ErrInvalidState)
	_, err = svc.MarkPaid(ctx, inv.ID)
	assert.ErrorIs(t, err, apperror.ErrInvalidState)
}

func TestCancelFromFinal(t *testing.T) {
	svc, _ := newLedger(t)
	ctx := context.Background()

	inv, err := svc.CreateDraft(ctx, dto.CustomerInput{Name: "Client"}, "2026-02-10")
	require.NoError(t, err)
	addLine(t, svc, inv.ID, 1, 1, "Forfait", 5000)
	_, err = svc.Finalize(ctx, inv.ID)
	require.NoError(t, err)

	canceled, err := svc.Cancel(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCanceled, canceled.Status)

	_, err = svc.MarkPaid(ctx, inv.ID)
	assert.ErrorIs(t, err, apperror.ErrInvalidState)
}

func TestRecordPdfExportDuplicates(t *testing.T) {
	svc, _ := newLedger(t)
	ctx := context.Background()

	inv, err := svc.CreateDraft(ctx, dto.CustomerInput{Name: "Client"}, "2026-02-10")
	require.NoError(t, err)

	export, err := svc.RecordPdfExport(ctx, inv.ID, "FAC_001.pdf", "FAC_001.pdf", "")
	require.NoError(t, err)
	assert.Equal(t, model.ExportKindInvoice, export.Kind)

	_, err = svc.RecordPdfExport(ctx, inv.ID, "FAC_001.pdf", "other/FAC_001.pdf", "")
	assert.ErrorIs(t, err, apperror.ErrDuplicateExport)

	_, err = svc.RecordPdfExport(ctx, inv.ID, "other.pdf", "FAC_001.pdf", "")
	assert.ErrorIs(t, err, apperror.ErrDuplicateExport)

	_, err = svc.RecordPdfExport(ctx, inv.ID, "FAC_001_copy.pdf", "copies/FAC_001.pdf", "")
	require.NoError(t, err)

	_, err = svc.RecordPdfExport(ctx, 9999, "x.pdf", "x.pdf", "")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestDeleteCascades(t *testing.T) {
	svc, db := newLedger(t)
	ctx := context.Background()

	inv, err := svc.CreateDraft(ctx, dto.CustomerInput{Name: "Client"}, "2026-02-10")
	require.NoError(t, err)
	addLine(t, svc, inv.ID, 1, 2, "Pneus", 9500)
	addLine(t, svc, inv.ID, 2, 1, "Montage", 2000)
	_, err = svc.Finalize(ctx, inv.ID)
	require.NoError(t, err)
	_, err = svc.RecordPdfExport(ctx, inv.ID, "FAC_001.pdf", "FAC_001.pdf", "")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, inv.ID))

	var lines, exports int64
	require.NoError(t, db.Model(&model.InvoiceLine{}).Where("invoice_id = ?", inv.ID).Count(&lines).Error)
	require.NoError(t, db.Model(&model.PdfExport{}).Where("invoice_id = ?", inv.ID).Count(&exports).Error)
	assert.Zero(t, lines, "lines must cascade")
	assert.Zero(t, exports, "pdf exports must cascade")

	_, err = svc.Get(ctx, inv.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	// deleting again reports not found
	assert.ErrorIs(t, svc.Delete(ctx, inv.ID), apperror.ErrNotFound)
}

func TestListFilters(t *testing.T) {
	svc, _ := newLedger(t)
	ctx := context.Background()

	a, err := svc.CreateDraft(ctx, dto.CustomerInput{Name: "Garage Martin"}, "2026-02-10")
	require.NoError(t, err)
	addLine(t, svc, a.ID, 1, 1, "Forfait", 5000)
	_, err = svc.Finalize(ctx, a.ID)
	require.NoError(t, err)

	_, err = svc.CreateDraft(ctx, dto.CustomerInput{Name: "Mme Rousseau"}, "2026-03-01")
	require.NoError(t, err)

	all, err := svc.List(ctx, dto.InvoiceFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
	// newest first
	assert.Equal(t, "Mme Rousseau", all[0].CustomerName)

	byName, err := svc.List(ctx, dto.InvoiceFilter{Search: "Martin"})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "Garage Martin", byName[0].CustomerName)

	byNumber, err := svc.List(ctx, dto.InvoiceFilter{Search: "001"})
	require.NoError(t, err)
	require.Len(t, byNumber, 1)
	require.NotNil(t, byNumber[0].Number)
	assert.Equal(t, "001", *byNumber[0].Number)
}

func TestUpdateDraftSnapshotsCustomer(t *testing.T) {
	svc, _ := newLedger(t)
	ctx := context.Background()

	inv, err := svc.CreateDraft(ctx, dto.CustomerInput{Name: "Ancien nom"}, "2026-02-10")
	require.NoError(t, err)

	updated, err := svc.UpdateDraft(ctx, inv.ID, dto.CustomerInput{
		Name: "Nouveau nom", Address: "1 avenue de la Gare", PostalCode: "69001 Lyon",
	}, "2026-02-12")
	require.NoError(t, err)
	assert.Equal(t, "Nouveau nom", updated.CustomerName)
	assert.Equal(t, "2026-02-12", updated.Date)
}
