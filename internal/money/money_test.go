package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEuros(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"12", 1200},
		{"12.5", 1250},
		{"12,50", 1250},
		{"  12,50 € ", 1250},
		{"0", 0},
		{"", 0},
		{"0,05", 5},
		{"1234,99", 123499},
	}
	for _, c := range cases {
		got, err := ParseEuros(c.in)
		require.NoError(t, err, "input %q", c.in)
		assert.Equal(t, c.want, got, "input %q", c.in)
	}
}

func TestParseEurosRejectsGarbage(t *testing.T) {
	for _, in := range []string{"abc", "12.345", "-5", "1 2", "12,5,0"} {
		_, err := ParseEuros(in)
		assert.ErrorIs(t, err, ErrInvalidAmount, "input %q", in)
	}
}

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "12.50 €", FormatCents(1250))
	assert.Equal(t, "0.05 €", FormatCents(5))
	assert.Equal(t, "-3.00 €", FormatCents(-300))
	assert.Equal(t, "0.00 €", FormatCents(0))
}

func TestVatCents(t *testing.T) {
	// 3000 * 20% = 600, exact
	assert.Equal(t, int64(600), VatCents(3000, 20))
	// 1234 * 20% = 246.8 → 247 (half-up applied once at invoice level)
	assert.Equal(t, int64(247), VatCents(1234, 20))
	// 1250 * 5.0%... integer rates only: 1250 * 7% = 87.5 → 88
	assert.Equal(t, int64(88), VatCents(1250, 7))
	assert.Equal(t, int64(0), VatCents(0, 20))
	// negative rates are clamped
	assert.Equal(t, int64(0), VatCents(1000, -3))
}
