package repositories

import (
	"context"

	"github.com/shopspring/decimal"

	"gstbill/internal/models"
)

// ProductFilter narrows a product listing. Zero values mean "no constraint".
type ProductFilter struct {
	ActiveOnly bool
	Search     string // substring of the name (case-insensitive) or of the HSN code
	HSNCode    string
	GSTRate    *decimal.Decimal
	Limit      int
	Offset     int
}

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	List(ctx context.Context, filter ProductFilter) ([]models.Product, int64, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	// FindActiveByName matches names case-insensitively among active products.
	FindActiveByName(ctx context.Context, name string) (*models.Product, error)
	// LowStock returns active products whose stock is below threshold.
	LowStock(ctx context.Context, threshold int) ([]models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	// Update writes every column except stock, which only InventoryLedger moves.
	Update(ctx context.Context, product *models.Product) error
}
