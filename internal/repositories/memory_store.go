package repositories

import (
	"context"
	"sync"

	"gstbill/internal/models"
)

// memState is everything a MemoryStore holds. It is copied wholesale when a
// transaction starts and swapped back in on commit.
type memState struct {
	products  map[string]models.Product
	invoices  map[string]*models.Invoice
	users     map[string]models.User
	sequences map[string]int
}

func newMemState() *memState {
	return &memState{
		products:  make(map[string]models.Product),
		invoices:  make(map[string]*models.Invoice),
		users:     make(map[string]models.User),
		sequences: make(map[string]int),
	}
}

func (s *memState) clone() *memState {
	out := newMemState()
	for k, v := range s.products {
		out.products[k] = v
	}
	for k, v := range s.invoices {
		out.invoices[k] = v.Clone()
	}
	for k, v := range s.users {
		out.users[k] = v
	}
	for k, v := range s.sequences {
		out.sequences[k] = v
	}
	return out
}

// MemoryStore is an in-memory Store used by tests and local demos. A
// transaction holds the store lock for its whole duration and works on a
// private copy of the state, so a failing transaction leaves nothing behind.
type MemoryStore struct {
	mu    *sync.RWMutex
	state *memState
	inTx  bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mu:    &sync.RWMutex{},
		state: newMemState(),
	}
}

func (s *MemoryStore) Products() ProductRepository   { return &MemoryProductRepository{s} }
func (s *MemoryStore) Invoices() InvoiceRepository   { return &MemoryInvoiceRepository{s} }
func (s *MemoryStore) Inventory() InventoryLedger    { return &MemoryInventoryLedger{s} }
func (s *MemoryStore) Sequences() SequenceRepository { return &MemorySequenceRepository{s} }
func (s *MemoryStore) Users() UserRepository         { return &MemoryUserRepository{s} }

// Transaction runs fn against a copy of the state and commits the copy when
// fn succeeds. Nested calls run fn directly in the enclosing transaction.
func (s *MemoryStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		// Savepoint: the lock is already held, so restore the snapshot on error.
		saved := s.state.clone()
		if err := fn(s); err != nil {
			*s.state = *saved
			return err
		}
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &MemoryStore{mu: s.mu, state: s.state.clone(), inTx: true}
	if err := fn(tx); err != nil {
		return err
	}
	*s.state = *tx.state
	return nil
}

// read and write take the store lock unless the caller is inside a
// transaction, which already holds it.
func (s *MemoryStore) read() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

func (s *MemoryStore) write() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func page[T any](items []T, limit, offset int) []T {
	if limit <= 0 {
		return items
	}
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
