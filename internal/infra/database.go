package infra

import (
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yass-hmr/HA-Autos-Facturation/internal/model"
)

// NewDatabase opens (creating if needed) the local SQLite ledger file, applies
// the connection pragmas the single-process desktop usage relies on, runs
// AutoMigrate for the full schema, then seeds the rows the application
// assumes to exist (settings singleton, invoice_number counter).
func NewDatabase(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	// Pragmas go in the DSN so every pooled connection gets them, not just
	// the one an Exec would land on. The DB file is exclusively owned by the
	// running instance; WAL plus a short busy timeout covers the one writer
	// we have.
	dsn := path + "?_foreign_keys=on&_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=3000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// Single writer process: one connection serializes every transaction and
	// keeps SQLITE_BUSY out of the picture entirely.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&model.Settings{},
		&model.Counter{},
		&model.Invoice{},
		&model.InvoiceLine{},
		&model.PdfExport{},
	); err != nil {
		return nil, fmt.Errorf("automigrate: %w", err)
	}

	if err := seed(db); err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	return db, nil
}

// seed inserts the rows the ledger assumes to exist. Idempotent: re-running
// on an already-seeded DB is a no-op.
func seed(db *gorm.DB) error {
	if err := db.Exec(
		"INSERT OR IGNORE INTO counter (key, value) VALUES (?, 1)",
		model.CounterInvoiceNumber,
	).Error; err != nil {
		return err
	}
	return db.Exec(
		"INSERT OR IGNORE INTO settings (id, garage_name, garage_address, garage_postal_code, garage_phone, garage_siret, onedrive_backup_dir) VALUES (?, '', '', '', '', '', '')",
		model.SettingsID,
	).Error
}
