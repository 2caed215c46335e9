// Package dates converts between the French display format (dd/mm/yyyy) the
// user types and the ISO dates (yyyy-mm-dd) stored on invoices.
package dates

import (
	"errors"
	"time"
)

const (
	isoLayout = "2006-01-02"
	frLayout  = "02/01/2006"
)

// ErrInvalidDate is returned for input matching neither dd/mm/yyyy nor ISO.
var ErrInvalidDate = errors.New("invalid date, expected dd/mm/yyyy")

// TodayISO returns today's date in ISO form.
func TodayISO() string { return time.Now().Format(isoLayout) }

// FRToISO parses a dd/mm/yyyy date into ISO form. Empty input means today.
// ISO input is accepted as-is, so stored values round-trip.
func FRToISO(d string) (string, error) {
	if d == "" {
		return TodayISO(), nil
	}
	if t, err := time.Parse(frLayout, d); err == nil {
		return t.Format(isoLayout), nil
	}
	if t, err := time.Parse(isoLayout, d); err == nil {
		return t.Format(isoLayout), nil
	}
	return "", ErrInvalidDate
}

// ISOToFR renders an ISO date as dd/mm/yyyy for display. Values that do not
// parse are returned unchanged rather than hidden from the user.
func ISOToFR(d string) string {
	if t, err := time.Parse(isoLayout, d); err == nil {
		return t.Format(frLayout)
	}
	return d
}
