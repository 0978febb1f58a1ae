package repositories

import (
	"context"
	"time"

	"gstbill/internal/models"
)

// InvoiceFilter narrows an invoice listing. Zero values mean "no constraint".
type InvoiceFilter struct {
	Statuses  []models.InvoiceStatus
	Customer  string // substring of the customer name, case-insensitive
	CreatedBy string
	From      *time.Time // inclusive, on InvoiceDate
	To        *time.Time // inclusive, on InvoiceDate
	Search    string     // substring of number, customer name or GSTIN
	Limit     int
	Offset    int
}

// InvoiceRepository defines the interface for invoice data access. Invoices
// are always loaded and stored together with their lines.
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *models.Invoice) error
	// Save replaces the stored header and lines with the given invoice.
	Save(ctx context.Context, invoice *models.Invoice) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*models.Invoice, error)
	// GetByIDForUpdate also locks the invoice row until the transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*models.Invoice, error)
	GetByNumber(ctx context.Context, number string) (*models.Invoice, error)
	// List returns the matching page ordered newest first, and the total match count.
	List(ctx context.Context, filter InvoiceFilter) ([]models.Invoice, int64, error)
	CountByStatus(ctx context.Context) (map[models.InvoiceStatus]int64, error)
}
