package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus is the lifecycle state of an invoice.
type InvoiceStatus string

const (
	StatusDraft     InvoiceStatus = "DRAFT"
	StatusIssued    InvoiceStatus = "ISSUED"
	StatusPaid      InvoiceStatus = "PAID"
	StatusCancelled InvoiceStatus = "CANCELLED"
)

// ParseStatus maps user input onto a known status.
func ParseStatus(s string) (InvoiceStatus, bool) {
	switch st := InvoiceStatus(s); st {
	case StatusDraft, StatusIssued, StatusPaid, StatusCancelled:
		return st, true
	}
	return "", false
}

// Invoice is a GST invoice issued to a customer. The monetary aggregates are
// derived from Lines and are only ever written by billing.Recompute.
type Invoice struct {
	ID            string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	InvoiceNumber string    `json:"invoice_number" gorm:"type:varchar(20);uniqueIndex;not null"`
	InvoiceDate   time.Time `json:"invoice_date" gorm:"not null;index"`
	CreatedBy     string    `json:"created_by" gorm:"type:varchar(36)"`

	// Customer snapshot
	CustomerName    string `json:"customer_name" gorm:"type:varchar(200);not null;index"`
	CustomerGSTIN   string `json:"customer_gstin" gorm:"type:varchar(15)"`
	CustomerEmail   string `json:"customer_email" gorm:"type:varchar(255)"`
	CustomerPhone   string `json:"customer_phone" gorm:"type:varchar(30)"`
	CustomerAddress string `json:"customer_address" gorm:"type:varchar(500)"`
	PlaceOfSupply   string `json:"place_of_supply" gorm:"type:varchar(2)"`
	InterState      bool   `json:"inter_state" gorm:"not null;default:false"`

	PaymentMethod string `json:"payment_method" gorm:"type:varchar(50)"`
	Notes         string `json:"notes" gorm:"type:varchar(1000)"`

	Lines []InvoiceLine `json:"lines" gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`

	SubTotal    decimal.Decimal `json:"sub_total" gorm:"type:decimal(14,2);not null"`
	CGSTAmount  decimal.Decimal `json:"cgst_amount" gorm:"type:decimal(14,2);not null"`
	SGSTAmount  decimal.Decimal `json:"sgst_amount" gorm:"type:decimal(14,2);not null"`
	IGSTAmount  decimal.Decimal `json:"igst_amount" gorm:"type:decimal(14,2);not null"`
	TotalAmount decimal.Decimal `json:"total_amount" gorm:"type:decimal(14,2);not null"`

	Status      InvoiceStatus `json:"status" gorm:"type:varchar(20);not null;index"`
	IssuedAt    *time.Time    `json:"issued_at,omitempty"`
	PaidAt      *time.Time    `json:"paid_at,omitempty"`
	CancelledAt *time.Time    `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// TotalGST is the sum of all three tax components.
func (inv *Invoice) TotalGST() decimal.Decimal {
	return inv.CGSTAmount.Add(inv.SGSTAmount).Add(inv.IGSTAmount)
}

// NextLineNo is the position for a line appended now.
func (inv *Invoice) NextLineNo() int {
	n := 0
	for _, l := range inv.Lines {
		if l.LineNo > n {
			n = l.LineNo
		}
	}
	return n + 1
}

// Line returns the line with the given ID.
func (inv *Invoice) Line(lineID string) (*InvoiceLine, bool) {
	for i := range inv.Lines {
		if inv.Lines[i].ID == lineID {
			return &inv.Lines[i], true
		}
	}
	return nil, false
}

// Clone deep-copies the invoice, including its lines.
func (inv *Invoice) Clone() *Invoice {
	out := *inv
	out.Lines = append([]InvoiceLine(nil), inv.Lines...)
	return &out
}

// InvoiceLine is one product row on an invoice. Price and rates are a
// snapshot taken when the line was added.
type InvoiceLine struct {
	ID          string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	InvoiceID   string `json:"-" gorm:"type:varchar(36);not null;index"`
	LineNo      int    `json:"line_no" gorm:"not null"`
	ProductID   string `json:"product_id" gorm:"type:varchar(36);not null;index"`
	ProductName string `json:"product_name" gorm:"type:varchar(100)"`
	HSNCode     string `json:"hsn_code" gorm:"type:varchar(8)"`
	Quantity    int    `json:"quantity" gorm:"not null"`

	UnitPrice decimal.Decimal `json:"unit_price" gorm:"type:decimal(14,2);not null"` // Price at the time the line was added
	GSTRate   decimal.Decimal `json:"gst_rate" gorm:"type:decimal(5,2);not null"`
	CGSTRate  decimal.Decimal `json:"cgst_rate" gorm:"type:decimal(5,2);not null"`
	SGSTRate  decimal.Decimal `json:"sgst_rate" gorm:"type:decimal(5,2);not null"`
	IGSTRate  decimal.Decimal `json:"igst_rate" gorm:"type:decimal(5,2);not null"`

	SubTotal    decimal.Decimal `json:"sub_total" gorm:"type:decimal(14,2);not null"`
	CGSTAmount  decimal.Decimal `json:"cgst_amount" gorm:"type:decimal(14,2);not null"`
	SGSTAmount  decimal.Decimal `json:"sgst_amount" gorm:"type:decimal(14,2);not null"`
	IGSTAmount  decimal.Decimal `json:"igst_amount" gorm:"type:decimal(14,2);not null"`
	TotalAmount decimal.Decimal `json:"total_amount" gorm:"type:decimal(14,2);not null"`
}

// TotalGST is the tax charged on this line.
func (l InvoiceLine) TotalGST() decimal.Decimal {
	return l.CGSTAmount.Add(l.SGSTAmount).Add(l.IGSTAmount)
}

// InvoiceSequence is the persisted per-day counter behind invoice numbers.
type InvoiceSequence struct {
	Day     string `gorm:"primaryKey;type:varchar(8)"`
	Counter int    `gorm:"not null"`
}
