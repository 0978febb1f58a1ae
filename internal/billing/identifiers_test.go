package billing_test

import (
	"errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gstbill/internal/apperrors"
	"gstbill/internal/billing"
)

func TestGenerateInvoiceNumber(t *testing.T) {
	ref := time.Date(2024, time.March, 7, 23, 59, 0, 0, time.UTC)

	number, err := billing.GenerateInvoiceNumber(ref, 42)
	require.NoError(t, err)
	assert.Equal(t, "INV-20240307-0042", number)
	assert.True(t, billing.ValidInvoiceNumber(number))

	number, err = billing.GenerateInvoiceNumber(ref, 9999)
	require.NoError(t, err)
	assert.Equal(t, "INV-20240307-9999", number)

	_, err = billing.GenerateInvoiceNumber(ref, 10000)
	assert.True(t, errors.Is(err, apperrors.ErrIntegrityViolation))
	_, err = billing.GenerateInvoiceNumber(ref, 0)
	assert.True(t, errors.Is(err, apperrors.ErrIntegrityViolation))
}

func TestProperty_GeneratedNumbersValidate(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("every in-range sequence yields a valid number", prop.ForAll(
		func(days int, seq int) bool {
			ref := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, days)
			number, err := billing.GenerateInvoiceNumber(ref, seq)
			return err == nil && billing.ValidInvoiceNumber(number)
		},
		gen.IntRange(0, 365*80),
		gen.IntRange(1, billing.MaxDailySequence),
	))

	properties.TestingRun(t)
}

func TestValidInvoiceNumber(t *testing.T) {
	assert.True(t, billing.ValidInvoiceNumber("INV-20240101-0001"))
	for _, s := range []string{"", "INV-2024011-0001", "INV-20240101-001", "inv-20240101-0001", "INV-20240101-00011", " INV-20240101-0001", "INV_20240101_0001"} {
		assert.False(t, billing.ValidInvoiceNumber(s), s)
	}
}

func TestValidGSTIN(t *testing.T) {
	assert.True(t, billing.ValidGSTIN("27AAAAA0000A1Z5"))
	assert.True(t, billing.ValidGSTIN("29ABCDE1234FZZA"))
	assert.False(t, billing.ValidGSTIN("27AAAAA0000A1Y5"))
	assert.False(t, billing.ValidGSTIN("27aaaaa0000a1z5"))
	assert.False(t, billing.ValidGSTIN("27AAAAA0000A1Z"))
	assert.False(t, billing.ValidGSTIN("27AAAAA0000A1Z55"))
	assert.False(t, billing.ValidGSTIN(""))
	assert.Equal(t, "27", billing.StateCodeOf("27AAAAA0000A1Z5"))
	assert.Equal(t, "", billing.StateCodeOf("bogus"))
}

func TestValidHSN(t *testing.T) {
	for _, s := range []string{"1234", "123456", "12345678"} {
		assert.True(t, billing.ValidHSN(s), s)
	}
	for _, s := range []string{"123", "123456789", "12a4", ""} {
		assert.False(t, billing.ValidHSN(s), s)
	}
}
