package billing_test

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gstbill/internal/apperrors"
	"gstbill/internal/billing"
	"gstbill/internal/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCompute_IntraState(t *testing.T) {
	amounts, err := billing.Compute(dec("100.00"), 3, dec("18"), false)
	require.NoError(t, err)

	assert.True(t, dec("300").Equal(amounts.SubTotal))
	assert.True(t, dec("27").Equal(amounts.CGSTAmount))
	assert.True(t, dec("27").Equal(amounts.SGSTAmount))
	assert.True(t, amounts.IGSTAmount.IsZero())
	assert.True(t, dec("354").Equal(amounts.TotalAmount))
}

func TestCompute_InterState(t *testing.T) {
	amounts, err := billing.Compute(dec("99.99"), 2, dec("28"), true)
	require.NoError(t, err)

	assert.True(t, dec("199.98").Equal(amounts.SubTotal))
	assert.True(t, amounts.CGSTAmount.IsZero())
	assert.True(t, amounts.SGSTAmount.IsZero())
	// 199.98 * 0.28 = 55.9944
	assert.True(t, dec("55.99").Equal(amounts.IGSTAmount), amounts.IGSTAmount.String())
	assert.True(t, dec("255.97").Equal(amounts.TotalAmount))
}

func TestCompute_RoundsEachTaxHalfUpBeforeSumming(t *testing.T) {
	// 10.30 * 2.5% = 0.2575 per half, rounded to 0.26 each
	amounts, err := billing.Compute(dec("10.30"), 1, dec("5"), false)
	require.NoError(t, err)
	assert.True(t, dec("0.26").Equal(amounts.CGSTAmount), amounts.CGSTAmount.String())
	assert.True(t, dec("0.26").Equal(amounts.SGSTAmount))
	assert.True(t, dec("10.82").Equal(amounts.TotalAmount))

	// exact half: 1.00 * 2.5% = 0.025 -> 0.03
	amounts, err = billing.Compute(dec("1.00"), 1, dec("5"), false)
	require.NoError(t, err)
	assert.True(t, dec("0.03").Equal(amounts.CGSTAmount))
	assert.True(t, dec("1.06").Equal(amounts.TotalAmount))
}

func TestCompute_ZeroRate(t *testing.T) {
	amounts, err := billing.Compute(dec("45.50"), 2, decimal.Zero, false)
	require.NoError(t, err)
	assert.True(t, dec("91").Equal(amounts.TotalAmount))
	assert.True(t, amounts.CGSTAmount.IsZero())
	assert.True(t, amounts.IGSTAmount.IsZero())
}

func TestCompute_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		price string
		qty   int
		rate  string
		field string
	}{
		{"zero quantity", "10", 0, "5", "quantity"},
		{"negative quantity", "10", -1, "5", "quantity"},
		{"negative price", "-1", 1, "5", "unit_price"},
		{"unlisted rate", "10", 1, "15", "gst_rate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := billing.Compute(dec(tt.price), tt.qty, dec(tt.rate), false)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrInvalidArgument))
			assert.Contains(t, apperrors.FieldsOf(err), tt.field)
		})
	}
}

func TestComputeWithRates_AsymmetricPair(t *testing.T) {
	amounts, err := billing.ComputeWithRates(dec("200"), 1, billing.RatePair{
		CGST: dec("6"), SGST: dec("3"), IGST: decimal.Zero,
	})
	require.NoError(t, err)
	assert.True(t, dec("12").Equal(amounts.CGSTAmount))
	assert.True(t, dec("6").Equal(amounts.SGSTAmount))
	assert.True(t, dec("218").Equal(amounts.TotalAmount))
}

func TestComputeWithRates_RejectsMixedForms(t *testing.T) {
	_, err := billing.ComputeWithRates(dec("100"), 1, billing.RatePair{CGST: dec("9"), SGST: dec("9"), IGST: dec("18")})
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	_, err = billing.ComputeWithRates(dec("100"), 1, billing.RatePair{CGST: dec("9"), SGST: decimal.Zero, IGST: decimal.Zero})
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
}

func TestNewLine_SnapshotsProduct(t *testing.T) {
	product := &models.Product{ID: "p-1", Name: "Cable", HSNCode: "8544", Price: dec("250"), GSTRate: dec("18")}
	line, err := billing.NewLine("l-1", product, 4, true)
	require.NoError(t, err)

	product.Price = dec("999")
	assert.True(t, dec("250").Equal(line.UnitPrice))
	assert.True(t, dec("18").Equal(line.IGSTRate))
	assert.True(t, line.CGSTRate.IsZero())
	assert.True(t, dec("1180").Equal(line.TotalAmount))
	assert.Equal(t, "8544", line.HSNCode)
}

func genRate() gopter.Gen {
	return gen.OneConstOf(int64(0), int64(5), int64(12), int64(18), int64(28))
}

func TestProperty_LineTotalIsSumOfParts(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("subtotal + cgst + sgst + igst == total at 2 dp", prop.ForAll(
		func(paise int64, qty int, rate int64, inter bool) bool {
			price := decimal.New(paise, -2)
			amounts, err := billing.Compute(price, qty, decimal.NewFromInt(rate), inter)
			if err != nil {
				return false
			}
			sum := amounts.SubTotal.Add(amounts.CGSTAmount).Add(amounts.SGSTAmount).Add(amounts.IGSTAmount)
			return sum.Equal(amounts.TotalAmount) &&
				amounts.CGSTAmount.Equal(amounts.CGSTAmount.Round(2)) &&
				amounts.SGSTAmount.Equal(amounts.SGSTAmount.Round(2)) &&
				amounts.IGSTAmount.Equal(amounts.IGSTAmount.Round(2))
		},
		gen.Int64Range(0, 10_000_000),
		gen.IntRange(1, 1000),
		genRate(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestProperty_ExactlyOneTaxForm(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("igst XOR (cgst and sgst) when rate > 0", prop.ForAll(
		func(rupees int64, qty int, rate int64, inter bool) bool {
			amounts, err := billing.Compute(decimal.NewFromInt(rupees), qty, decimal.NewFromInt(rate), inter)
			if err != nil {
				return false
			}
			igst := amounts.IGSTAmount.IsPositive()
			intra := amounts.CGSTAmount.IsPositive() && amounts.SGSTAmount.IsPositive()
			if inter {
				return igst && amounts.CGSTAmount.IsZero() && amounts.SGSTAmount.IsZero()
			}
			return intra && amounts.IGSTAmount.IsZero()
		},
		gen.Int64Range(1, 100_000),
		gen.IntRange(1, 500),
		gen.OneConstOf(int64(5), int64(12), int64(18), int64(28)),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
