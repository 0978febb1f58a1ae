package billing

import (
	"github.com/shopspring/decimal"

	"gstbill/internal/apperrors"
	"gstbill/internal/models"
)

// LineAmounts are the derived monetary fields of one invoice line.
type LineAmounts struct {
	SubTotal    decimal.Decimal
	CGSTAmount  decimal.Decimal
	SGSTAmount  decimal.Decimal
	IGSTAmount  decimal.Decimal
	TotalAmount decimal.Decimal
}

// Compute prices a line from a combined GST rate.
func Compute(unitPrice decimal.Decimal, quantity int, gstRate decimal.Decimal, interState bool) (LineAmounts, error) {
	if !ValidGSTRate(gstRate) {
		return LineAmounts{}, apperrors.Invalid("gst_rate", "must be one of 0, 5, 12, 18, 28")
	}
	return ComputeWithRates(unitPrice, quantity, SplitRate(gstRate, interState))
}

// ComputeWithRates prices a line from an explicit rate pair. Every tax
// amount is rounded half-up to 2 places before being added to the total.
func ComputeWithRates(unitPrice decimal.Decimal, quantity int, rates RatePair) (LineAmounts, error) {
	if quantity <= 0 {
		return LineAmounts{}, apperrors.Invalid("quantity", "must be greater than zero")
	}
	if unitPrice.IsNegative() {
		return LineAmounts{}, apperrors.Invalid("unit_price", "must not be negative")
	}
	if err := rates.Validate(); err != nil {
		return LineAmounts{}, err
	}

	subTotal := unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	out := LineAmounts{
		SubTotal:   subTotal,
		CGSTAmount: decimal.Zero,
		SGSTAmount: decimal.Zero,
		IGSTAmount: decimal.Zero,
	}
	if rates.InterState() {
		out.IGSTAmount = taxOn(subTotal, rates.IGST)
	} else {
		out.CGSTAmount = taxOn(subTotal, rates.CGST)
		out.SGSTAmount = taxOn(subTotal, rates.SGST)
	}
	out.TotalAmount = subTotal.Add(out.CGSTAmount).Add(out.SGSTAmount).Add(out.IGSTAmount)
	return out, nil
}

func taxOn(amount, ratePercent decimal.Decimal) decimal.Decimal {
	return amount.Mul(ratePercent).Div(hundred).Round(2)
}

// ApplyLine recomputes the derived fields of line from its snapshot price,
// quantity and rate pair.
func ApplyLine(line *models.InvoiceLine) error {
	amounts, err := ComputeWithRates(line.UnitPrice, line.Quantity, RatePair{
		CGST: line.CGSTRate,
		SGST: line.SGSTRate,
		IGST: line.IGSTRate,
	})
	if err != nil {
		return err
	}
	line.SubTotal = amounts.SubTotal
	line.CGSTAmount = amounts.CGSTAmount
	line.SGSTAmount = amounts.SGSTAmount
	line.IGSTAmount = amounts.IGSTAmount
	line.TotalAmount = amounts.TotalAmount
	return nil
}

// NewLine builds a line from a product snapshot. The rate pair is derived
// from the product's combined rate and the invoice's supply type.
func NewLine(id string, product *models.Product, quantity int, interState bool) (models.InvoiceLine, error) {
	if !ValidGSTRate(product.GSTRate) {
		return models.InvoiceLine{}, apperrors.Invalid("gst_rate", "must be one of 0, 5, 12, 18, 28")
	}
	rates := SplitRate(product.GSTRate, interState)
	line := models.InvoiceLine{
		ID:          id,
		ProductID:   product.ID,
		ProductName: product.Name,
		HSNCode:     product.HSNCode,
		Quantity:    quantity,
		UnitPrice:   product.Price,
		GSTRate:     product.GSTRate,
		CGSTRate:    rates.CGST,
		SGSTRate:    rates.SGST,
		IGSTRate:    rates.IGST,
	}
	if err := ApplyLine(&line); err != nil {
		return models.InvoiceLine{}, err
	}
	return line, nil
}
