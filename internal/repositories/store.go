package repositories

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"gstbill/internal/apperrors"
)

// Store groups the repositories that take part in one unit of work.
// Repositories obtained from the tx passed to Transaction see and write the
// transaction's state only.
type Store interface {
	Products() ProductRepository
	Invoices() InvoiceRepository
	Inventory() InventoryLedger
	Sequences() SequenceRepository
	Users() UserRepository
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

// InventoryLedger moves product stock. Decrement never lets stock go below zero.
type InventoryLedger interface {
	CheckAvailable(ctx context.Context, productID string, qty int) (bool, error)
	Decrement(ctx context.Context, productID string, qty int) error
	Increment(ctx context.Context, productID string, qty int) error
}

// SequenceRepository hands out the per-day invoice counter.
type SequenceRepository interface {
	// Next increments the counter for day and returns the new value.
	Next(ctx context.Context, day string) (int, error)
}

// translateError maps driver level errors onto the application error kinds.
func translateError(err error, entity, key string, value any) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.NotFound(entity, key, value)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("duplicate %s %s %v: %w", entity, key, value, apperrors.ErrIntegrityViolation)
	}
	return err
}
