package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a catalog item that can be billed on an invoice.
type Product struct {
	ID          string          `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Name        string          `json:"name" gorm:"type:varchar(100);not null;index" validate:"required,min=2,max=100"`
	Description string          `json:"description" gorm:"type:varchar(500)" validate:"omitempty,max=500"`
	HSNCode     string          `json:"hsn_code" gorm:"type:varchar(8);not null;index" validate:"required,hsn"`
	Unit        string          `json:"unit" gorm:"type:varchar(20)" validate:"omitempty,max=20"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(14,2);not null"` // Base price without GST
	GSTRate     decimal.Decimal `json:"gst_rate" gorm:"type:decimal(5,2);not null"`
	Stock       int             `json:"stock" gorm:"not null;default:0" validate:"gte=0"`
	Active      bool            `json:"active" gorm:"not null;default:true;index"` // false = soft deleted
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
