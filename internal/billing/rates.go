// Package billing holds the GST rules of the application: permitted rates,
// line tax calculation, invoice aggregation, numbering and the invoice
// lifecycle. Nothing in here touches storage.
package billing

import (
	"strings"

	"github.com/shopspring/decimal"

	"gstbill/internal/apperrors"
)

var (
	hundred = decimal.NewFromInt(100)
	two     = decimal.NewFromInt(2)

	// GST slabs accepted for a product or invoice line.
	permittedRates = []decimal.Decimal{
		decimal.Zero,
		decimal.NewFromInt(5),
		decimal.NewFromInt(12),
		decimal.NewFromInt(18),
		decimal.NewFromInt(28),
	}
)

// PermittedRates returns the accepted GST slabs in ascending order.
func PermittedRates() []decimal.Decimal {
	return append([]decimal.Decimal(nil), permittedRates...)
}

// ValidGSTRate reports whether rate is one of 0, 5, 12, 18 or 28 percent.
func ValidGSTRate(rate decimal.Decimal) bool {
	for _, r := range permittedRates {
		if r.Equal(rate) {
			return true
		}
	}
	return false
}

// RatePair is the split of a GST rate into its components, in percent.
// A line is either intra-state (CGST and SGST) or inter-state (IGST only).
type RatePair struct {
	CGST decimal.Decimal
	SGST decimal.Decimal
	IGST decimal.Decimal
}

// SplitRate decomposes a combined GST rate. Intra-state supplies are split
// evenly between CGST and SGST.
func SplitRate(rate decimal.Decimal, interState bool) RatePair {
	if interState {
		return RatePair{CGST: decimal.Zero, SGST: decimal.Zero, IGST: rate}
	}
	half := rate.Div(two)
	return RatePair{CGST: half, SGST: half, IGST: decimal.Zero}
}

// Combined is the total rate charged by the pair.
func (r RatePair) Combined() decimal.Decimal {
	return r.CGST.Add(r.SGST).Add(r.IGST)
}

// InterState reports whether the pair uses the IGST form.
func (r RatePair) InterState() bool {
	return r.IGST.IsPositive()
}

// Validate enforces that exactly one form is used: IGST alone, or CGST
// together with SGST. An all-zero pair is a 0% supply.
func (r RatePair) Validate() error {
	if r.CGST.IsNegative() || r.SGST.IsNegative() || r.IGST.IsNegative() {
		return apperrors.Invalid("gst_rate", "rates must not be negative")
	}
	intra := r.CGST.IsPositive() || r.SGST.IsPositive()
	switch {
	case r.IGST.IsPositive() && intra:
		return apperrors.Invalid("gst_rate", "IGST cannot be combined with CGST/SGST")
	case intra && !(r.CGST.IsPositive() && r.SGST.IsPositive()):
		return apperrors.Invalid("gst_rate", "CGST and SGST must both be set for an intra-state supply")
	}
	return nil
}

// StateCodeOf returns the two-digit state code embedded in a GSTIN, or ""
// when the GSTIN is empty or malformed.
func StateCodeOf(gstin string) string {
	if !ValidGSTIN(gstin) {
		return ""
	}
	return gstin[:2]
}

// IsInterState decides whether a supply crosses state lines. The place of
// supply wins over the state code of the customer's GSTIN; when neither is
// known the supply is treated as intra-state.
func IsInterState(sellerState, placeOfSupply, customerGSTIN string) bool {
	buyer := strings.TrimSpace(placeOfSupply)
	if buyer == "" {
		buyer = StateCodeOf(customerGSTIN)
	}
	if buyer == "" || sellerState == "" {
		return false
	}
	return buyer != sellerState
}
