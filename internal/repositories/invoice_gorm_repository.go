package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gstbill/internal/apperrors"
	"gstbill/internal/models"
)

// GORMInvoiceRepository is a GORM implementation of InvoiceRepository.
type GORMInvoiceRepository struct {
	db *gorm.DB
}

// NewGORMInvoiceRepository creates a new instance of GORMInvoiceRepository.
func NewGORMInvoiceRepository(db *gorm.DB) *GORMInvoiceRepository {
	return &GORMInvoiceRepository{db: db}
}

func orderedLines(db *gorm.DB) *gorm.DB {
	return db.Order("line_no ASC")
}

// Create inserts the invoice together with its lines.
func (r *GORMInvoiceRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	if invoice.ID == "" {
		invoice.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(invoice).Error; err != nil {
		return fmt.Errorf("failed to create invoice: %w", translateError(err, "invoice", "number", invoice.InvoiceNumber))
	}
	return nil
}

// Save writes the header and replaces the line set in one transaction.
func (r *GORMInvoiceRepository) Save(ctx context.Context, invoice *models.Invoice) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Select("*").Omit(clause.Associations, "created_at").Updates(invoice)
		if res.Error != nil {
			return fmt.Errorf("failed to update invoice %s: %w", invoice.ID, translateError(res.Error, "invoice", "number", invoice.InvoiceNumber))
		}
		if res.RowsAffected == 0 {
			return apperrors.NotFound("invoice", "ID", invoice.ID)
		}
		if err := tx.Where("invoice_id = ?", invoice.ID).Delete(&models.InvoiceLine{}).Error; err != nil {
			return fmt.Errorf("failed to replace lines of invoice %s: %w", invoice.ID, err)
		}
		if len(invoice.Lines) == 0 {
			return nil
		}
		for i := range invoice.Lines {
			invoice.Lines[i].InvoiceID = invoice.ID
		}
		if err := tx.Create(&invoice.Lines).Error; err != nil {
			return fmt.Errorf("failed to write lines of invoice %s: %w", invoice.ID, err)
		}
		return nil
	})
}

// Delete removes an invoice and its lines.
func (r *GORMInvoiceRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", id).Delete(&models.InvoiceLine{}).Error; err != nil {
			return fmt.Errorf("failed to delete lines of invoice %s: %w", id, err)
		}
		res := tx.Delete(&models.Invoice{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete invoice %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.NotFound("invoice", "ID", id)
		}
		return nil
	})
}

// GetByID retrieves an invoice with its lines.
func (r *GORMInvoiceRepository) GetByID(ctx context.Context, id string) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.db.WithContext(ctx).Preload("Lines", orderedLines).First(&invoice, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "invoice", "ID", id)
	}
	return &invoice, nil
}

// GetByIDForUpdate locks the invoice row with SELECT ... FOR UPDATE. SQLite
// has no row locks and the clause is dropped there.
func (r *GORMInvoiceRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Invoice, error) {
	db := r.db.WithContext(ctx)
	var invoice models.Invoice
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&invoice, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "invoice", "ID", id)
	}
	if err := orderedLines(db).Where("invoice_id = ?", id).Find(&invoice.Lines).Error; err != nil {
		return nil, fmt.Errorf("failed to load lines of invoice %s: %w", id, err)
	}
	return &invoice, nil
}

// GetByNumber retrieves an invoice by its invoice number.
func (r *GORMInvoiceRepository) GetByNumber(ctx context.Context, number string) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.db.WithContext(ctx).Preload("Lines", orderedLines).First(&invoice, "invoice_number = ?", number).Error; err != nil {
		return nil, translateError(err, "invoice", "number", number)
	}
	return &invoice, nil
}

// List retrieves one page of invoices matching filter.
func (r *GORMInvoiceRepository) List(ctx context.Context, filter InvoiceFilter) ([]models.Invoice, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Invoice{})
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", filter.Statuses)
	}
	if filter.Customer != "" {
		q = q.Where("LOWER(customer_name) LIKE ?", "%"+strings.ToLower(filter.Customer)+"%")
	}
	if filter.CreatedBy != "" {
		q = q.Where("created_by = ?", filter.CreatedBy)
	}
	if filter.From != nil {
		q = q.Where("invoice_date >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		q = q.Where("invoice_date <= ?", filter.To.UTC())
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		q = q.Where("(LOWER(invoice_number) LIKE ? OR LOWER(customer_name) LIKE ? OR LOWER(customer_gstin) LIKE ?)", like, like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count invoices: %w", err)
	}

	var invoices []models.Invoice
	q = q.Preload("Lines", orderedLines).Order("invoice_date DESC, invoice_number DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit).Offset(filter.Offset)
	}
	if err := q.Find(&invoices).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list invoices: %w", err)
	}
	return invoices, total, nil
}

// CountByStatus returns the number of invoices in each status.
func (r *GORMInvoiceRepository) CountByStatus(ctx context.Context) (map[models.InvoiceStatus]int64, error) {
	var rows []struct {
		Status models.InvoiceStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&models.Invoice{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count invoices by status: %w", err)
	}
	counts := make(map[models.InvoiceStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// GORMSequenceRepository keeps invoice counters in the invoice_sequences table.
type GORMSequenceRepository struct {
	db *gorm.DB
}

// NewGORMSequenceRepository creates a new instance of GORMSequenceRepository.
func NewGORMSequenceRepository(db *gorm.DB) *GORMSequenceRepository {
	return &GORMSequenceRepository{db: db}
}

// Next upserts the counter row for day and reads the incremented value back.
// Callers run it inside the transaction that inserts the invoice, so the
// row lock taken by the upsert serializes concurrent creations.
func (r *GORMSequenceRepository) Next(ctx context.Context, day string) (int, error) {
	db := r.db.WithContext(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "day"}},
		DoUpdates: clause.Assignments(map[string]any{"counter": gorm.Expr("invoice_sequences.counter + 1")}),
	}).Create(&models.InvoiceSequence{Day: day, Counter: 1}).Error
	if err != nil {
		return 0, fmt.Errorf("failed to advance invoice sequence for %s: %w", day, err)
	}

	var seq models.InvoiceSequence
	if err := db.First(&seq, "day = ?", day).Error; err != nil {
		return 0, fmt.Errorf("failed to read invoice sequence for %s: %w", day, err)
	}
	return seq.Counter, nil
}
