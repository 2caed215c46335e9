package infra_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yass-hmr/HA-Autos-Facturation/internal/infra"
	"github.com/yass-hmr/HA-Autos-Facturation/internal/model"
)

func TestInvoicePDFFilename(t *testing.T) {
	assert.Equal(t, "FAC_001.pdf", infra.InvoicePDFFilename("001"))
	assert.Equal(t, "FAC_042.pdf", infra.InvoicePDFFilename("042"))
}

func TestGenerateInvoicePDF(t *testing.T) {
	number := "001"
	inv := &model.Invoice{
		ID:                 1,
		Number:             &number,
		Date:               "2026-02-10",
		Status:             model.StatusFinal,
		CustomerName:       "M. Lefèvre",
		CustomerAddress:    "12 rue de la République",
		CustomerPostalCode: "33000 Bordeaux",
		SubtotalCents:      12500,
		VatRate:            20,
		VatCents:           2500,
		TotalCents:         15000,
		Lines: []model.InvoiceLine{
			{Position: 1, Qty: 1, Description: "Révision complète + contrôle éléments de sécurité", UnitPriceCents: 9500, LineTotalCents: 9500},
			{Position: 2, Qty: 2, Description: "Balai d'essuie-glace", UnitPriceCents: 1500, LineTotalCents: 3000},
		},
	}
	settings := &model.Settings{
		GarageName:       "HA Autos",
		GarageAddress:    "4 impasse des Forges",
		GaragePostalCode: "33140 Villenave-d'Ornon",
		GaragePhone:      "05 56 00 00 00",
		GarageSiret:      "123 456 789 00010",
	}

	dir := t.TempDir()
	path, err := infra.GenerateInvoicePDF(inv, settings, filepath.Join(dir, "exports"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "exports", "FAC_001.pdf"), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(500), "generated file should be a real PDF, not an empty stub")

	head := make([]byte, 5)
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	_, err = f.Read(head)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-", string(head))
}

func TestGenerateInvoicePDFRejectsUnnumbered(t *testing.T) {
	inv := &model.Invoice{ID: 7, Status: model.StatusDraft, CustomerName: "Client"}
	_, err := infra.GenerateInvoicePDF(inv, &model.Settings{}, t.TempDir())
	assert.Error(t, err)
}
