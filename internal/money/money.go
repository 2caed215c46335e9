// Package money converts between user-entered euro amounts and the integer
// cents stored in the ledger, and owns the invoice-level VAT rounding rule.
// Amounts never travel as floats: parsing goes straight from text to cents,
// and VAT math runs on shopspring decimals.
package money

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var amountRe = regexp.MustCompile(`^\d+(\.\d{0,2})?$`)

// ErrInvalidAmount is returned by ParseEuros for input that is not a
// non-negative amount with at most two decimals.
var ErrInvalidAmount = errors.New("invalid amount, expected e.g. 12,50")

// ParseEuros converts a user-entered amount into cents.
// Accepted: "12", "12.5", "12,50", "  12,50 € ".
func ParseEuros(text string) (int64, error) {
	s := strings.TrimSpace(strings.ReplaceAll(text, "€", ""))
	if s == "" {
		return 0, nil
	}
	s = strings.ReplaceAll(s, ",", ".")
	if !amountRe.MatchString(s) {
		return 0, ErrInvalidAmount
	}
	euros, dec, _ := strings.Cut(s, ".")
	dec = (dec + "00")[:2]
	e, err := strconv.ParseInt(euros, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	d, err := strconv.ParseInt(dec, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return e*100 + d, nil
}

// FormatCents renders cents as a euro string, e.g. 1250 → "12.50 €".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d €", sign, cents/100, cents%100)
}

// VatCents derives the VAT amount from a subtotal and an integer percent
// rate, rounding half-up to the nearest cent. The rule is applied exactly
// once per invoice, never per line, so totals are reproducible regardless
// of line ordering.
func VatCents(subtotalCents int64, vatRate int) int64 {
	if vatRate < 0 {
		vatRate = 0
	}
	vat := decimal.NewFromInt(subtotalCents).
		Mul(decimal.NewFromInt(int64(vatRate))).
		Div(decimal.NewFromInt(100)).
		Round(0) // half away from zero; amounts are non-negative, so half-up
	return vat.IntPart()
}
