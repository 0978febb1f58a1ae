package billing

import (
	"github.com/shopspring/decimal"

	"gstbill/internal/models"
)

// Recompute overwrites the invoice aggregates with the sum of its lines.
// It reads only the lines' derived fields, so repeated calls are stable.
func Recompute(inv *models.Invoice) {
	subTotal, cgst, sgst, igst, total := decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero
	for _, l := range inv.Lines {
		subTotal = subTotal.Add(l.SubTotal)
		cgst = cgst.Add(l.CGSTAmount)
		sgst = sgst.Add(l.SGSTAmount)
		igst = igst.Add(l.IGSTAmount)
		total = total.Add(l.TotalAmount)
	}
	inv.SubTotal = subTotal
	inv.CGSTAmount = cgst
	inv.SGSTAmount = sgst
	inv.IGSTAmount = igst
	inv.TotalAmount = total
}

// Breakdown returns the tax components of an invoice keyed by name.
func Breakdown(inv *models.Invoice) map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"CGST": inv.CGSTAmount,
		"SGST": inv.SGSTAmount,
		"IGST": inv.IGSTAmount,
	}
}
