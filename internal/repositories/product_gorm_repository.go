package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"gstbill/internal/apperrors"
	"gstbill/internal/models"
)

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

// List retrieves one page of products matching filter, ordered by name.
func (r *GORMProductRepository) List(ctx context.Context, filter ProductFilter) ([]models.Product, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Product{})
	if filter.ActiveOnly {
		q = q.Where("active = ?", true)
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		q = q.Where("(LOWER(name) LIKE ? OR hsn_code LIKE ?)", like, like)
	}
	if filter.HSNCode != "" {
		q = q.Where("hsn_code = ?", filter.HSNCode)
	}
	if filter.GSTRate != nil {
		q = q.Where("gst_rate = ?", *filter.GSTRate)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	var products []models.Product
	q = q.Order("name ASC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit).Offset(filter.Offset)
	}
	if err := q.Find(&products).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	return products, total, nil
}

// GetByID retrieves a single product by its ID from the database.
func (r *GORMProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "product", "ID", id)
	}
	return &product, nil
}

// FindActiveByName retrieves the active product with the given name.
func (r *GORMProductRepository) FindActiveByName(ctx context.Context, name string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Where("LOWER(name) = ? AND active = ?", strings.ToLower(strings.TrimSpace(name)), true).
		First(&product).Error
	if err != nil {
		return nil, translateError(err, "product", "name", name)
	}
	return &product, nil
}

// LowStock retrieves active products with stock below threshold.
func (r *GORMProductRepository) LowStock(ctx context.Context, threshold int) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("active = ? AND stock < ?", true, threshold).
		Order("stock ASC, name ASC").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get low stock products: %w", err)
	}
	return products, nil
}

// Create creates a new product in the database.
func (r *GORMProductRepository) Create(ctx context.Context, product *models.Product) error {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", translateError(err, "product", "ID", product.ID))
	}
	return nil
}

// Update updates an existing product in the database.
func (r *GORMProductRepository) Update(ctx context.Context, product *models.Product) error {
	// Select("*") writes zero values such as Active=false. Stock belongs to
	// the inventory ledger and is never written here.
	res := r.db.WithContext(ctx).Model(product).Select("*").Omit("created_at", "stock").Updates(product)
	if res.Error != nil {
		return fmt.Errorf("failed to update product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("product", "ID", product.ID)
	}
	return nil
}

// GORMInventoryLedger moves stock with conditional UPDATE statements so that
// concurrent decrements can never oversell.
type GORMInventoryLedger struct {
	db *gorm.DB
}

// NewGORMInventoryLedger creates a new instance of GORMInventoryLedger.
func NewGORMInventoryLedger(db *gorm.DB) *GORMInventoryLedger {
	return &GORMInventoryLedger{db: db}
}

// CheckAvailable reports whether at least qty units are in stock.
func (l *GORMInventoryLedger) CheckAvailable(ctx context.Context, productID string, qty int) (bool, error) {
	var product models.Product
	if err := l.db.WithContext(ctx).Select("id", "stock").First(&product, "id = ?", productID).Error; err != nil {
		return false, translateError(err, "product", "ID", productID)
	}
	return product.Stock >= qty, nil
}

// Decrement removes qty units, failing with ErrInsufficientStock when fewer are left.
func (l *GORMInventoryLedger) Decrement(ctx context.Context, productID string, qty int) error {
	res := l.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return fmt.Errorf("failed to decrement stock of product %s: %w", productID, res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	// Nothing matched: either the product is gone or the guard failed.
	var product models.Product
	if err := l.db.WithContext(ctx).Select("id", "stock").First(&product, "id = ?", productID).Error; err != nil {
		return translateError(err, "product", "ID", productID)
	}
	return apperrors.InsufficientStock(productID, qty, product.Stock)
}

// Increment adds qty units back.
func (l *GORMInventoryLedger) Increment(ctx context.Context, productID string, qty int) error {
	res := l.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", productID).
		Update("stock", gorm.Expr("stock + ?", qty))
	if res.Error != nil {
		return fmt.Errorf("failed to increment stock of product %s: %w", productID, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("product", "ID", productID)
	}
	return nil
}
