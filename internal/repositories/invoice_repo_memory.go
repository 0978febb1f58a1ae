package repositories

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"gstbill/internal/apperrors"
	"gstbill/internal/models"
)

// MemoryInvoiceRepository is an in-memory implementation of InvoiceRepository
// backed by a MemoryStore.
type MemoryInvoiceRepository struct {
	s *MemoryStore
}

func (r *MemoryInvoiceRepository) numberTaken(number, exceptID string) bool {
	for id, inv := range r.s.state.invoices {
		if id != exceptID && inv.InvoiceNumber == number {
			return true
		}
	}
	return false
}

// Create adds a new invoice.
func (r *MemoryInvoiceRepository) Create(_ context.Context, invoice *models.Invoice) error {
	defer r.s.write()()

	if invoice.ID == "" {
		invoice.ID = uuid.New().String()
	}
	if _, exists := r.s.state.invoices[invoice.ID]; exists || r.numberTaken(invoice.InvoiceNumber, invoice.ID) {
		return fmt.Errorf("duplicate invoice number %s: %w", invoice.InvoiceNumber, apperrors.ErrIntegrityViolation)
	}
	now := time.Now()
	invoice.CreatedAt, invoice.UpdatedAt = now, now
	for i := range invoice.Lines {
		invoice.Lines[i].InvoiceID = invoice.ID
	}
	r.s.state.invoices[invoice.ID] = invoice.Clone()
	return nil
}

// Save replaces the stored invoice.
func (r *MemoryInvoiceRepository) Save(_ context.Context, invoice *models.Invoice) error {
	defer r.s.write()()

	old, ok := r.s.state.invoices[invoice.ID]
	if !ok {
		return apperrors.NotFound("invoice", "ID", invoice.ID)
	}
	if r.numberTaken(invoice.InvoiceNumber, invoice.ID) {
		return fmt.Errorf("duplicate invoice number %s: %w", invoice.InvoiceNumber, apperrors.ErrIntegrityViolation)
	}
	invoice.CreatedAt = old.CreatedAt
	invoice.UpdatedAt = time.Now()
	for i := range invoice.Lines {
		invoice.Lines[i].InvoiceID = invoice.ID
	}
	r.s.state.invoices[invoice.ID] = invoice.Clone()
	return nil
}

// Delete removes an invoice and its lines.
func (r *MemoryInvoiceRepository) Delete(_ context.Context, id string) error {
	defer r.s.write()()

	if _, ok := r.s.state.invoices[id]; !ok {
		return apperrors.NotFound("invoice", "ID", id)
	}
	delete(r.s.state.invoices, id)
	return nil
}

// GetByID returns an invoice by its ID.
func (r *MemoryInvoiceRepository) GetByID(_ context.Context, id string) (*models.Invoice, error) {
	defer r.s.read()()

	inv, ok := r.s.state.invoices[id]
	if !ok {
		return nil, apperrors.NotFound("invoice", "ID", id)
	}
	return inv.Clone(), nil
}

// GetByIDForUpdate is GetByID; the transaction already holds the store lock.
func (r *MemoryInvoiceRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Invoice, error) {
	return r.GetByID(ctx, id)
}

// GetByNumber returns an invoice by its number.
func (r *MemoryInvoiceRepository) GetByNumber(_ context.Context, number string) (*models.Invoice, error) {
	defer r.s.read()()

	for _, inv := range r.s.state.invoices {
		if inv.InvoiceNumber == number {
			return inv.Clone(), nil
		}
	}
	return nil, apperrors.NotFound("invoice", "number", number)
}

func invoiceMatches(inv *models.Invoice, f InvoiceFilter) bool {
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, inv.Status) {
		return false
	}
	if f.Customer != "" && !strings.Contains(strings.ToLower(inv.CustomerName), strings.ToLower(f.Customer)) {
		return false
	}
	if f.CreatedBy != "" && inv.CreatedBy != f.CreatedBy {
		return false
	}
	if f.From != nil && inv.InvoiceDate.Before(*f.From) {
		return false
	}
	if f.To != nil && inv.InvoiceDate.After(*f.To) {
		return false
	}
	if f.Search != "" {
		term := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(inv.InvoiceNumber), term) &&
			!strings.Contains(strings.ToLower(inv.CustomerName), term) &&
			!strings.Contains(strings.ToLower(inv.CustomerGSTIN), term) {
			return false
		}
	}
	return true
}

// List returns the invoices matching filter, newest first.
func (r *MemoryInvoiceRepository) List(_ context.Context, filter InvoiceFilter) ([]models.Invoice, int64, error) {
	defer r.s.read()()

	invoiceList := make([]models.Invoice, 0, len(r.s.state.invoices))
	for _, inv := range r.s.state.invoices {
		if invoiceMatches(inv, filter) {
			invoiceList = append(invoiceList, *inv.Clone())
		}
	}
	sort.Slice(invoiceList, func(i, j int) bool {
		a, b := invoiceList[i], invoiceList[j]
		if !a.InvoiceDate.Equal(b.InvoiceDate) {
			return a.InvoiceDate.After(b.InvoiceDate)
		}
		return a.InvoiceNumber > b.InvoiceNumber
	})
	return page(invoiceList, filter.Limit, filter.Offset), int64(len(invoiceList)), nil
}

// CountByStatus returns the number of invoices in each status.
func (r *MemoryInvoiceRepository) CountByStatus(_ context.Context) (map[models.InvoiceStatus]int64, error) {
	defer r.s.read()()

	counts := make(map[models.InvoiceStatus]int64)
	for _, inv := range r.s.state.invoices {
		counts[inv.Status]++
	}
	return counts, nil
}

// MemorySequenceRepository keeps invoice counters in a MemoryStore.
type MemorySequenceRepository struct {
	s *MemoryStore
}

func (r *MemorySequenceRepository) Next(_ context.Context, day string) (int, error) {
	defer r.s.write()()

	r.s.state.sequences[day]++
	return r.s.state.sequences[day], nil
}
