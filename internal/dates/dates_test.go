package dates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFRToISO(t *testing.T) {
	got, err := FRToISO("31/01/2026")
	require.NoError(t, err)
	assert.Equal(t, "2026-01-31", got)

	// ISO passes through
	got, err = FRToISO("2026-01-31")
	require.NoError(t, err)
	assert.Equal(t, "2026-01-31", got)

	// empty means today
	got, err = FRToISO("")
	require.NoError(t, err)
	assert.Equal(t, TodayISO(), got)

	_, err = FRToISO("31-01-2026")
	assert.ErrorIs(t, err, ErrInvalidDate)
	_, err = FRToISO("32/01/2026")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestISOToFR(t *testing.T) {
	assert.Equal(t, "31/01/2026", ISOToFR("2026-01-31"))
	// unparseable values are shown as-is
	assert.Equal(t, "junk", ISOToFR("junk"))
}
