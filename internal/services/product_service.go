package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gstbill/internal/apperrors"
	"gstbill/internal/billing"
	"gstbill/internal/models"
	"gstbill/internal/repositories"
	"gstbill/internal/validation"
)

// DefaultLowStockThreshold applies when no positive threshold is given.
const DefaultLowStockThreshold = 10

// ProductInput carries the editable fields of a product.
type ProductInput struct {
	Name        string          `json:"name" validate:"required,min=2,max=100"`
	Description string          `json:"description" validate:"omitempty,max=500"`
	HSNCode     string          `json:"hsn_code" validate:"required,hsn"`
	Unit        string          `json:"unit" validate:"omitempty,max=20"`
	Price       decimal.Decimal `json:"price" validate:"money"`
	GSTRate     decimal.Decimal `json:"gst_rate" validate:"gstrate"`
	// Stock is the opening stock. Updates ignore it; use AdjustStock.
	Stock int `json:"stock" validate:"gte=0"`
}

func (in *ProductInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.HSNCode = strings.TrimSpace(in.HSNCode)
	in.Unit = strings.TrimSpace(in.Unit)
}

// ProductService handles business logic related to products.
type ProductService struct {
	store     repositories.Store
	log       *zap.Logger
	validate  *validator.Validate
	threshold int
}

// NewProductService creates a new ProductService. lowStockThreshold <= 0
// falls back to DefaultLowStockThreshold.
func NewProductService(store repositories.Store, log *zap.Logger, lowStockThreshold int) *ProductService {
	if lowStockThreshold <= 0 {
		lowStockThreshold = DefaultLowStockThreshold
	}
	return &ProductService{
		store:     store,
		log:       log,
		validate:  validation.New(),
		threshold: lowStockThreshold,
	}
}

// CreateProduct validates and stores a new active product. Names are unique
// among active products.
func (s *ProductService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	in.normalize()
	if err := validation.Check(s.validate, in); err != nil {
		return nil, err
	}

	product := &models.Product{Active: true, Stock: in.Stock}
	applyProductInput(product, in)

	err := s.store.Transaction(ctx, func(tx repositories.Store) error {
		if err := ensureNameFree(ctx, tx.Products(), in.Name, ""); err != nil {
			return err
		}
		return tx.Products().Create(ctx, product)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	s.log.Info("product created", zap.String("product_id", product.ID), zap.String("name", product.Name))
	return product, nil
}

// UpdateProduct replaces the editable fields of an existing product. Stock
// is left alone; it only moves through the inventory ledger.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, in ProductInput) (*models.Product, error) {
	in.normalize()
	if err := validation.Check(s.validate, in); err != nil {
		return nil, err
	}

	var product *models.Product
	err := s.store.Transaction(ctx, func(tx repositories.Store) error {
		var err error
		if product, err = tx.Products().GetByID(ctx, id); err != nil {
			return err
		}
		if !strings.EqualFold(product.Name, in.Name) {
			if err := ensureNameFree(ctx, tx.Products(), in.Name, id); err != nil {
				return err
			}
		}
		applyProductInput(product, in)
		if err := tx.Products().Update(ctx, product); err != nil {
			return err
		}
		product, err = tx.Products().GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update product %s: %w", id, err)
	}
	return product, nil
}

func applyProductInput(p *models.Product, in ProductInput) {
	p.Name = in.Name
	p.Description = in.Description
	p.HSNCode = in.HSNCode
	p.Unit = in.Unit
	p.Price = in.Price
	p.GSTRate = in.GSTRate
}

func ensureNameFree(ctx context.Context, products repositories.ProductRepository, name, selfID string) error {
	existing, err := products.FindActiveByName(ctx, name)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID == selfID:
		return nil
	}
	return apperrors.Invalid("name", "product name already exists")
}

// DeleteProduct soft deletes a product. Lines already on invoices keep their
// snapshot.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.setActive(ctx, id, false); err != nil {
		return fmt.Errorf("failed to delete product %s: %w", id, err)
	}
	return nil
}

// ActivateProduct restores a soft deleted product.
func (s *ProductService) ActivateProduct(ctx context.Context, id string) error {
	if err := s.setActive(ctx, id, true); err != nil {
		return fmt.Errorf("failed to activate product %s: %w", id, err)
	}
	return nil
}

func (s *ProductService) setActive(ctx context.Context, id string, active bool) error {
	return s.store.Transaction(ctx, func(tx repositories.Store) error {
		p, err := tx.Products().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if p.Active == active {
			return nil
		}
		if active {
			if err := ensureNameFree(ctx, tx.Products(), p.Name, p.ID); err != nil {
				return err
			}
		}
		p.Active = active
		return tx.Products().Update(ctx, p)
	})
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	return s.store.Products().GetByID(ctx, id)
}

// GetAllProducts returns one page of products, inactive ones included.
func (s *ProductService) GetAllProducts(ctx context.Context, page, limit int) (*Page[models.Product], error) {
	return s.list(ctx, repositories.ProductFilter{}, page, limit)
}

// GetActiveProducts returns one page of active products.
func (s *ProductService) GetActiveProducts(ctx context.Context, page, limit int) (*Page[models.Product], error) {
	return s.list(ctx, repositories.ProductFilter{ActiveOnly: true}, page, limit)
}

// SearchProducts matches term against active product names and HSN codes.
func (s *ProductService) SearchProducts(ctx context.Context, term string, page, limit int) (*Page[models.Product], error) {
	return s.list(ctx, repositories.ProductFilter{ActiveOnly: true, Search: strings.TrimSpace(term)}, page, limit)
}

func (s *ProductService) list(ctx context.Context, filter repositories.ProductFilter, page, limit int) (*Page[models.Product], error) {
	page, limit = clampPage(page, limit)
	filter.Limit, filter.Offset = limit, (page-1)*limit
	items, total, err := s.store.Products().List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &Page[models.Product]{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// GetProductsByHSN returns active products with the given HSN code.
func (s *ProductService) GetProductsByHSN(ctx context.Context, hsn string) ([]models.Product, error) {
	if !billing.ValidHSN(hsn) {
		return nil, apperrors.Invalid("hsn_code", "must be 4 to 8 digits")
	}
	items, _, err := s.store.Products().List(ctx, repositories.ProductFilter{ActiveOnly: true, HSNCode: hsn})
	return items, err
}

// GetProductsByGSTRate returns active products taxed at rate.
func (s *ProductService) GetProductsByGSTRate(ctx context.Context, rate decimal.Decimal) ([]models.Product, error) {
	if !billing.ValidGSTRate(rate) {
		return nil, apperrors.Invalid("gst_rate", "must be one of 0, 5, 12, 18, 28")
	}
	items, _, err := s.store.Products().List(ctx, repositories.ProductFilter{ActiveOnly: true, GSTRate: &rate})
	return items, err
}

// AdjustStock adds delta (which may be negative) to the stock of a product.
// Stock never drops below zero.
func (s *ProductService) AdjustStock(ctx context.Context, id string, delta int) (*models.Product, error) {
	if delta == 0 {
		return nil, apperrors.Invalid("delta", "must not be zero")
	}
	var product *models.Product
	err := s.store.Transaction(ctx, func(tx repositories.Store) error {
		var err error
		if delta > 0 {
			err = tx.Inventory().Increment(ctx, id, delta)
		} else {
			err = tx.Inventory().Decrement(ctx, id, -delta)
		}
		if err != nil {
			return err
		}
		product, err = tx.Products().GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to adjust stock of product %s: %w", id, err)
	}
	s.log.Info("stock adjusted", zap.String("product_id", id), zap.Int("delta", delta), zap.Int("stock", product.Stock))
	return product, nil
}

// GetLowStockProducts lists active products with stock below threshold. A
// threshold <= 0 uses the configured default.
func (s *ProductService) GetLowStockProducts(ctx context.Context, threshold int) ([]models.Product, error) {
	if threshold <= 0 {
		threshold = s.threshold
	}
	return s.store.Products().LowStock(ctx, threshold)
}

// IsProductNameUnique reports whether no active product uses name.
func (s *ProductService) IsProductNameUnique(ctx context.Context, name string) (bool, error) {
	_, err := s.store.Products().FindActiveByName(ctx, name)
	if errors.Is(err, apperrors.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

// CalculateGSTAmount is the tax on quantity units at the product's current
// price and rate.
func (s *ProductService) CalculateGSTAmount(ctx context.Context, id string, quantity int) (decimal.Decimal, error) {
	amounts, err := s.quote(ctx, id, quantity)
	if err != nil {
		return decimal.Zero, err
	}
	return amounts.CGSTAmount.Add(amounts.SGSTAmount).Add(amounts.IGSTAmount), nil
}

// CalculateTotalAmount is the price of quantity units including tax.
func (s *ProductService) CalculateTotalAmount(ctx context.Context, id string, quantity int) (decimal.Decimal, error) {
	amounts, err := s.quote(ctx, id, quantity)
	if err != nil {
		return decimal.Zero, err
	}
	return amounts.TotalAmount, nil
}

func (s *ProductService) quote(ctx context.Context, id string, quantity int) (billing.LineAmounts, error) {
	p, err := s.store.Products().GetByID(ctx, id)
	if err != nil {
		return billing.LineAmounts{}, err
	}
	// Quoted as a single combined tax, independent of place of supply.
	return billing.Compute(p.Price, quantity, p.GSTRate, true)
}
