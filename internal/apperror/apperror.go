// Package apperror defines the error kinds surfaced by the invoice ledger.
// Callers (the CLI today, any other front end tomorrow) match on these
// sentinels with errors.Is to build user-facing messages; the wrapped cause
// stays available through errors.Unwrap for logging.
package apperror

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidState means the operation is not legal for the invoice's
	// current status (e.g. editing lines of a finalized invoice).
	ErrInvalidState = errors.New("operation not allowed in current invoice status")

	// ErrInvalidLine means the line input is malformed (negative quantity
	// or unit price).
	ErrInvalidLine = errors.New("invalid invoice line")

	// ErrDuplicatePosition means a line already occupies the requested
	// position within the invoice.
	ErrDuplicatePosition = errors.New("position already taken on this invoice")

	// ErrNotFound means the invoice, line or export does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrEmptyInvoice means a finalize was attempted on a draft with no lines.
	ErrEmptyInvoice = errors.New("invoice has no lines")

	// ErrDuplicateExport means a PDF export with the same filename or
	// relative path is already recorded for the invoice.
	ErrDuplicateExport = errors.New("pdf export already recorded for this invoice")

	// ErrStorage wraps underlying SQLite/transaction failures. The caller may
	// retry once after prompting the user; the ledger itself never retries.
	ErrStorage = errors.New("storage failure")

	// ErrBackup wraps snapshot/rotation failures of the backup component.
	ErrBackup = errors.New("backup failure")
)

// Storage wraps err as an ErrStorage, keeping the cause for errors.Unwrap.
// Errors already carrying one of the package sentinels are returned as-is:
// a duplicate-position or empty-invoice failure inside a transaction must
// keep its kind, not degrade into a generic storage failure.
func Storage(err error) error {
	if err == nil {
		return nil
	}
	if IsDomain(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}

// IsDomain reports whether err carries any of the package sentinels.
func IsDomain(err error) bool {
	for _, sentinel := range []error{
		ErrInvalidState,
		ErrInvalidLine,
		ErrDuplicatePosition,
		ErrNotFound,
		ErrEmptyInvoice,
		ErrDuplicateExport,
		ErrStorage,
		ErrBackup,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
