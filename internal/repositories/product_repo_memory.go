package repositories

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"gstbill/internal/apperrors"
	"gstbill/internal/models"
)

// MemoryProductRepository is an in-memory implementation of ProductRepository
// backed by a MemoryStore.
type MemoryProductRepository struct {
	s *MemoryStore
}

func (r *MemoryProductRepository) matches(p models.Product, f ProductFilter) bool {
	if f.ActiveOnly && !p.Active {
		return false
	}
	if f.Search != "" {
		term := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(p.Name), term) && !strings.Contains(p.HSNCode, term) {
			return false
		}
	}
	if f.HSNCode != "" && p.HSNCode != f.HSNCode {
		return false
	}
	if f.GSTRate != nil && !p.GSTRate.Equal(*f.GSTRate) {
		return false
	}
	return true
}

// List returns the products matching filter, ordered by name.
func (r *MemoryProductRepository) List(_ context.Context, filter ProductFilter) ([]models.Product, int64, error) {
	defer r.s.read()()

	productList := make([]models.Product, 0, len(r.s.state.products))
	for _, p := range r.s.state.products {
		if r.matches(p, filter) {
			productList = append(productList, p)
		}
	}
	sort.Slice(productList, func(i, j int) bool { return productList[i].Name < productList[j].Name })
	return page(productList, filter.Limit, filter.Offset), int64(len(productList)), nil
}

// GetByID returns a product by its ID.
func (r *MemoryProductRepository) GetByID(_ context.Context, id string) (*models.Product, error) {
	defer r.s.read()()

	product, ok := r.s.state.products[id]
	if !ok {
		return nil, apperrors.NotFound("product", "ID", id)
	}
	return &product, nil
}

// FindActiveByName returns the active product with the given name.
func (r *MemoryProductRepository) FindActiveByName(_ context.Context, name string) (*models.Product, error) {
	defer r.s.read()()

	want := strings.ToLower(strings.TrimSpace(name))
	for _, p := range r.s.state.products {
		if p.Active && strings.ToLower(p.Name) == want {
			return &p, nil
		}
	}
	return nil, apperrors.NotFound("product", "name", name)
}

// LowStock returns active products with stock below threshold.
func (r *MemoryProductRepository) LowStock(_ context.Context, threshold int) ([]models.Product, error) {
	defer r.s.read()()

	var out []models.Product
	for _, p := range r.s.state.products {
		if p.Active && p.Stock < threshold {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Stock != out[j].Stock {
			return out[i].Stock < out[j].Stock
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// Create adds a new product.
func (r *MemoryProductRepository) Create(_ context.Context, product *models.Product) error {
	defer r.s.write()()

	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	if _, exists := r.s.state.products[product.ID]; exists {
		return apperrors.ErrIntegrityViolation
	}
	now := time.Now()
	product.CreatedAt, product.UpdatedAt = now, now
	r.s.state.products[product.ID] = *product
	return nil
}

// Update modifies an existing product.
func (r *MemoryProductRepository) Update(_ context.Context, product *models.Product) error {
	defer r.s.write()()

	old, ok := r.s.state.products[product.ID]
	if !ok {
		return apperrors.NotFound("product", "ID", product.ID)
	}
	product.CreatedAt = old.CreatedAt
	product.Stock = old.Stock
	product.UpdatedAt = time.Now()
	r.s.state.products[product.ID] = *product
	return nil
}

// MemoryInventoryLedger moves stock inside a MemoryStore.
type MemoryInventoryLedger struct {
	s *MemoryStore
}

func (l *MemoryInventoryLedger) CheckAvailable(_ context.Context, productID string, qty int) (bool, error) {
	defer l.s.read()()

	p, ok := l.s.state.products[productID]
	if !ok {
		return false, apperrors.NotFound("product", "ID", productID)
	}
	return p.Stock >= qty, nil
}

func (l *MemoryInventoryLedger) Decrement(_ context.Context, productID string, qty int) error {
	defer l.s.write()()

	p, ok := l.s.state.products[productID]
	if !ok {
		return apperrors.NotFound("product", "ID", productID)
	}
	if p.Stock < qty {
		return apperrors.InsufficientStock(productID, qty, p.Stock)
	}
	p.Stock -= qty
	p.UpdatedAt = time.Now()
	l.s.state.products[productID] = p
	return nil
}

func (l *MemoryInventoryLedger) Increment(_ context.Context, productID string, qty int) error {
	defer l.s.write()()

	p, ok := l.s.state.products[productID]
	if !ok {
		return apperrors.NotFound("product", "ID", productID)
	}
	p.Stock += qty
	p.UpdatedAt = time.Now()
	l.s.state.products[productID] = p
	return nil
}
