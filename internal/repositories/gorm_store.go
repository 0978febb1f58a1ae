package repositories

import (
	"context"

	"gorm.io/gorm"
)

// GORMStore is the database backed Store.
type GORMStore struct {
	db *gorm.DB
}

// NewGORMStore creates a Store over db.
func NewGORMStore(db *gorm.DB) *GORMStore {
	return &GORMStore{db: db}
}

func (s *GORMStore) Products() ProductRepository   { return NewGORMProductRepository(s.db) }
func (s *GORMStore) Invoices() InvoiceRepository   { return NewGORMInvoiceRepository(s.db) }
func (s *GORMStore) Inventory() InventoryLedger    { return NewGORMInventoryLedger(s.db) }
func (s *GORMStore) Sequences() SequenceRepository { return NewGORMSequenceRepository(s.db) }
func (s *GORMStore) Users() UserRepository         { return NewGORMUserRepository(s.db) }

// Transaction runs fn inside a database transaction. A nested call becomes a
// savepoint.
func (s *GORMStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGORMStore(tx))
	})
}
