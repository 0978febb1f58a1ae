package billing

import (
	"fmt"
	"regexp"
	"time"

	"gstbill/internal/apperrors"
)

// MaxDailySequence is the largest sequence that fits the NNNN field.
const MaxDailySequence = 9999

var (
	invoiceNumberPattern = regexp.MustCompile(`^INV-\d{8}-\d{4}$`)
	gstinPattern         = regexp.MustCompile(`^\d{2}[A-Z]{5}\d{4}[A-Z][0-9A-Z]Z[0-9A-Z]$`)
	hsnPattern           = regexp.MustCompile(`^\d{4,8}$`)
	stateCodePattern     = regexp.MustCompile(`^\d{2}$`)
)

// SequenceDay is the key of the daily numbering counter for t.
func SequenceDay(t time.Time) string {
	return t.Format("20060102")
}

// GenerateInvoiceNumber formats INV-YYYYMMDD-NNNN. A sequence outside
// 1..9999 cannot be represented and is reported as an integrity violation.
func GenerateInvoiceNumber(ref time.Time, seq int) (string, error) {
	if seq < 1 || seq > MaxDailySequence {
		return "", fmt.Errorf("invoice sequence %d for %s out of range: %w", seq, SequenceDay(ref), apperrors.ErrIntegrityViolation)
	}
	return fmt.Sprintf("INV-%s-%04d", SequenceDay(ref), seq), nil
}

// ValidInvoiceNumber reports whether s is exactly INV-<8 digits>-<4 digits>.
func ValidInvoiceNumber(s string) bool {
	return invoiceNumberPattern.MatchString(s)
}

// ValidGSTIN checks the 15 character GSTIN layout: state code, PAN,
// entity number, the fixed 'Z' and a check character.
func ValidGSTIN(s string) bool {
	return gstinPattern.MatchString(s)
}

// ValidHSN accepts 4 to 8 digit HSN codes.
func ValidHSN(s string) bool {
	return hsnPattern.MatchString(s)
}

// ValidStateCode accepts a two digit GST state code.
func ValidStateCode(s string) bool {
	return stateCodePattern.MatchString(s)
}
