package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gstbill/internal/apperrors"
	"gstbill/internal/billing"
	"gstbill/internal/models"
	"gstbill/internal/repositories"
	"gstbill/internal/validation"
)

// CustomerDetails is the customer snapshot written onto an invoice.
type CustomerDetails struct {
	Name          string `json:"customer_name" validate:"required,min=2,max=200"`
	GSTIN         string `json:"customer_gstin" validate:"omitempty,gstin"`
	Email         string `json:"customer_email" validate:"omitempty,email"`
	Phone         string `json:"customer_phone" validate:"omitempty,max=30"`
	Address       string `json:"customer_address" validate:"omitempty,max=500"`
	PlaceOfSupply string `json:"place_of_supply" validate:"omitempty,statecode"`
	PaymentMethod string `json:"payment_method" validate:"omitempty,max=50"`
	Notes         string `json:"notes" validate:"omitempty,max=1000"`
}

func (d *CustomerDetails) normalize() {
	d.Name = strings.TrimSpace(d.Name)
	d.GSTIN = strings.ToUpper(strings.TrimSpace(d.GSTIN))
	d.Email = strings.TrimSpace(d.Email)
	d.Phone = strings.TrimSpace(d.Phone)
	d.Address = strings.TrimSpace(d.Address)
	d.PlaceOfSupply = strings.TrimSpace(d.PlaceOfSupply)
}

// InvoiceService handles business logic related to invoices.
type InvoiceService struct {
	store       repositories.Store
	publisher   EventPublisher // optional
	log         *zap.Logger
	validate    *validator.Validate
	sellerState string
	now         func() time.Time
	locks       *keyedMutex
}

// NewInvoiceService creates a new InvoiceService. publisher may be nil, in
// which case lifecycle events are not published.
func NewInvoiceService(store repositories.Store, publisher EventPublisher, log *zap.Logger, sellerState string) *InvoiceService {
	return &InvoiceService{
		store:       store,
		publisher:   publisher,
		log:         log,
		validate:    validation.New(),
		sellerState: sellerState,
		now:         utcNow,
		locks:       newKeyedMutex(),
	}
}

func utcNow() time.Time { return time.Now().UTC() }

// SetClock replaces the time source used for invoice dates and timestamps.
func (s *InvoiceService) SetClock(now func() time.Time) {
	s.now = now
}

// CreateInvoice opens a DRAFT invoice for the customer and assigns it the
// next number of the day.
func (s *InvoiceService) CreateInvoice(ctx context.Context, details CustomerDetails, createdBy string) (*models.Invoice, error) {
	details.normalize()
	if err := validation.Check(s.validate, details); err != nil {
		return nil, err
	}

	now := s.now()
	inv := &models.Invoice{
		ID:          uuid.New().String(),
		InvoiceDate: now,
		CreatedBy:   createdBy,
		Status:      models.StatusDraft,
		InterState:  billing.IsInterState(s.sellerState, details.PlaceOfSupply, details.GSTIN),
		Lines:       []models.InvoiceLine{},
	}
	applyCustomer(inv, details)
	billing.Recompute(inv)

	err := s.store.Transaction(ctx, func(tx repositories.Store) error {
		seq, err := tx.Sequences().Next(ctx, billing.SequenceDay(now))
		if err != nil {
			return err
		}
		if inv.InvoiceNumber, err = billing.GenerateInvoiceNumber(now, seq); err != nil {
			return err
		}
		return tx.Invoices().Create(ctx, inv)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}

	s.log.Info("invoice created",
		zap.String("invoice_id", inv.ID),
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.Bool("inter_state", inv.InterState),
	)
	return inv, nil
}

func applyCustomer(inv *models.Invoice, d CustomerDetails) {
	inv.CustomerName = d.Name
	inv.CustomerGSTIN = d.GSTIN
	inv.CustomerEmail = d.Email
	inv.CustomerPhone = d.Phone
	inv.CustomerAddress = d.Address
	inv.PlaceOfSupply = d.PlaceOfSupply
	inv.PaymentMethod = d.PaymentMethod
	inv.Notes = d.Notes
}

// UpdateCustomer replaces the customer snapshot of a DRAFT invoice. The tax
// form is re-derived and every line is recomputed when it changes.
func (s *InvoiceService) UpdateCustomer(ctx context.Context, invoiceID string, details CustomerDetails) (*models.Invoice, error) {
	details.normalize()
	if err := validation.Check(s.validate, details); err != nil {
		return nil, err
	}
	return s.editDraft(ctx, invoiceID, "update customer of", func(_ repositories.Store, inv *models.Invoice) error {
		applyCustomer(inv, details)
		interState := billing.IsInterState(s.sellerState, details.PlaceOfSupply, details.GSTIN)
		if interState == inv.InterState {
			return nil
		}
		inv.InterState = interState
		for i := range inv.Lines {
			rates := billing.SplitRate(inv.Lines[i].GSTRate, interState)
			inv.Lines[i].CGSTRate, inv.Lines[i].SGSTRate, inv.Lines[i].IGSTRate = rates.CGST, rates.SGST, rates.IGST
			if err := billing.ApplyLine(&inv.Lines[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteInvoice removes a DRAFT invoice and its lines.
func (s *InvoiceService) DeleteInvoice(ctx context.Context, invoiceID string) error {
	unlock := s.locks.Lock(invoiceID)
	defer unlock()

	err := s.store.Transaction(ctx, func(tx repositories.Store) error {
		inv, err := tx.Invoices().GetByIDForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if err := billing.CanEdit(inv.Status); err != nil {
			return err
		}
		return tx.Invoices().Delete(ctx, invoiceID)
	})
	if err != nil {
		return fmt.Errorf("failed to delete invoice %s: %w", invoiceID, err)
	}
	s.log.Info("invoice deleted", zap.String("invoice_id", invoiceID))
	return nil
}

// AddLine appends a line for productID, snapshotting its current price and
// rate. Stock is not reserved until the invoice is issued.
func (s *InvoiceService) AddLine(ctx context.Context, invoiceID, productID string, quantity int) (*models.Invoice, error) {
	if quantity <= 0 {
		return nil, apperrors.Invalid("quantity", "must be greater than zero")
	}
	if strings.TrimSpace(productID) == "" {
		return nil, apperrors.Invalid("product_id", "is required")
	}
	return s.editDraft(ctx, invoiceID, "add line to", func(tx repositories.Store, inv *models.Invoice) error {
		product, err := tx.Products().GetByID(ctx, productID)
		if err != nil {
			return err
		}
		if !product.Active {
			return apperrors.Invalid("product_id", "product is inactive")
		}
		line, err := billing.NewLine(uuid.New().String(), product, quantity, inv.InterState)
		if err != nil {
			return err
		}
		line.InvoiceID = inv.ID
		line.LineNo = inv.NextLineNo()
		inv.Lines = append(inv.Lines, line)
		return nil
	})
}

// UpdateLineQuantity changes the quantity of one line and recomputes it.
func (s *InvoiceService) UpdateLineQuantity(ctx context.Context, invoiceID, lineID string, quantity int) (*models.Invoice, error) {
	if quantity <= 0 {
		return nil, apperrors.Invalid("quantity", "must be greater than zero")
	}
	return s.editDraft(ctx, invoiceID, "update line of", func(_ repositories.Store, inv *models.Invoice) error {
		line, ok := inv.Line(lineID)
		if !ok {
			return apperrors.NotFound("invoice line", "ID", lineID)
		}
		line.Quantity = quantity
		return billing.ApplyLine(line)
	})
}

// RemoveLine deletes one line from a DRAFT invoice.
func (s *InvoiceService) RemoveLine(ctx context.Context, invoiceID, lineID string) (*models.Invoice, error) {
	return s.editDraft(ctx, invoiceID, "remove line from", func(_ repositories.Store, inv *models.Invoice) error {
		for i := range inv.Lines {
			if inv.Lines[i].ID == lineID {
				inv.Lines = append(inv.Lines[:i], inv.Lines[i+1:]...)
				return nil
			}
		}
		return apperrors.NotFound("invoice line", "ID", lineID)
	})
}

// editDraft loads and locks the invoice, checks it is still a DRAFT, applies
// edit and stores the recomputed result, all in one transaction.
func (s *InvoiceService) editDraft(ctx context.Context, invoiceID, action string, edit func(tx repositories.Store, inv *models.Invoice) error) (*models.Invoice, error) {
	unlock := s.locks.Lock(invoiceID)
	defer unlock()

	var out *models.Invoice
	err := s.store.Transaction(ctx, func(tx repositories.Store) error {
		inv, err := tx.Invoices().GetByIDForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if err := billing.CanEdit(inv.Status); err != nil {
			return err
		}
		if err := edit(tx, inv); err != nil {
			return err
		}
		billing.Recompute(inv)
		if err := tx.Invoices().Save(ctx, inv); err != nil {
			return err
		}
		out = inv
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to %s invoice %s: %w", action, invoiceID, err)
	}
	return out, nil
}

// Transition applies a lifecycle event. The status change and every stock
// movement it implies commit together or not at all.
func (s *InvoiceService) Transition(ctx context.Context, invoiceID string, event billing.Event) (*models.Invoice, error) {
	unlock := s.locks.Lock(invoiceID)
	defer unlock()

	var out *models.Invoice
	err := s.store.Transaction(ctx, func(tx repositories.Store) error {
		inv, err := tx.Invoices().GetByIDForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		step, err := billing.Next(inv.Status, event)
		if err != nil {
			return err
		}

		switch step.Stock {
		case billing.StockDecrement:
			for _, line := range inv.Lines {
				if err := tx.Inventory().Decrement(ctx, line.ProductID, line.Quantity); err != nil {
					return err
				}
			}
		case billing.StockRestore:
			for _, line := range inv.Lines {
				if err := tx.Inventory().Increment(ctx, line.ProductID, line.Quantity); err != nil {
					return err
				}
			}
		}

		now := s.now()
		inv.Status = step.To
		switch step.To {
		case models.StatusIssued:
			inv.IssuedAt = &now
		case models.StatusPaid:
			inv.PaidAt = &now
		case models.StatusCancelled:
			inv.CancelledAt = &now
		}
		billing.Recompute(inv)
		if err := tx.Invoices().Save(ctx, inv); err != nil {
			return err
		}
		out = inv
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to %s invoice %s: %w", event, invoiceID, err)
	}

	s.log.Info("invoice status changed",
		zap.String("invoice_id", out.ID),
		zap.String("invoice_number", out.InvoiceNumber),
		zap.String("event", string(event)),
		zap.String("status", string(out.Status)),
	)
	s.publish(ctx, out)
	return out, nil
}

// Issue moves a DRAFT invoice to ISSUED and takes its quantities out of stock.
func (s *InvoiceService) Issue(ctx context.Context, invoiceID string) (*models.Invoice, error) {
	return s.Transition(ctx, invoiceID, billing.EventIssue)
}

// MarkPaid moves an ISSUED invoice to PAID.
func (s *InvoiceService) MarkPaid(ctx context.Context, invoiceID string) (*models.Invoice, error) {
	return s.Transition(ctx, invoiceID, billing.EventMarkPaid)
}

// Cancel cancels an invoice, returning stock if it had been issued.
func (s *InvoiceService) Cancel(ctx context.Context, invoiceID string) (*models.Invoice, error) {
	return s.Transition(ctx, invoiceID, billing.EventCancel)
}

// publish sends the lifecycle event for inv. Failures are only logged: the
// transition is already committed.
func (s *InvoiceService) publish(ctx context.Context, inv *models.Invoice) {
	key, ok := routingKeyFor(inv.Status)
	if !ok {
		return
	}
	if s.publisher == nil {
		s.log.Debug("event publisher not configured, skipping", zap.String("routing_key", key))
		return
	}
	body, err := json.Marshal(newInvoiceEvent(inv, s.now()))
	if err != nil {
		s.log.Error("failed to encode invoice event", zap.String("invoice_id", inv.ID), zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, key, body); err != nil {
		s.log.Warn("failed to publish invoice event",
			zap.String("invoice_id", inv.ID),
			zap.String("routing_key", key),
			zap.Error(err),
		)
	}
}

// GetByID retrieves a single invoice with its lines.
func (s *InvoiceService) GetByID(ctx context.Context, invoiceID string) (*models.Invoice, error) {
	return s.store.Invoices().GetByID(ctx, invoiceID)
}

// GetByNumber retrieves a single invoice by its number.
func (s *InvoiceService) GetByNumber(ctx context.Context, number string) (*models.Invoice, error) {
	return s.store.Invoices().GetByNumber(ctx, strings.ToUpper(strings.TrimSpace(number)))
}

// Page is one page of a listing.
type Page[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

// DefaultPageSize is used when a listing asks for no explicit limit.
const DefaultPageSize = 20

// MaxPageSize caps any listing.
const MaxPageSize = 100

func clampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

// List returns one page of invoices. page is 1-based.
func (s *InvoiceService) List(ctx context.Context, filter repositories.InvoiceFilter, page, limit int) (*Page[models.Invoice], error) {
	page, limit = clampPage(page, limit)
	filter.Limit, filter.Offset = limit, (page-1)*limit
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, apperrors.Invalid("to", "must not be before from")
	}

	items, total, err := s.store.Invoices().List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &Page[models.Invoice]{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// ListByStatus returns one page of invoices in the given status.
func (s *InvoiceService) ListByStatus(ctx context.Context, status models.InvoiceStatus, page, limit int) (*Page[models.Invoice], error) {
	if _, ok := models.ParseStatus(string(status)); !ok {
		return nil, apperrors.Invalid("status", "must be one of DRAFT, ISSUED, PAID, CANCELLED")
	}
	return s.List(ctx, repositories.InvoiceFilter{Statuses: []models.InvoiceStatus{status}}, page, limit)
}

// ListByCustomer returns one page of invoices whose customer name contains name.
func (s *InvoiceService) ListByCustomer(ctx context.Context, name string, page, limit int) (*Page[models.Invoice], error) {
	return s.List(ctx, repositories.InvoiceFilter{Customer: strings.TrimSpace(name)}, page, limit)
}

// ListByDateRange returns every invoice dated within [from, to].
func (s *InvoiceService) ListByDateRange(ctx context.Context, from, to time.Time) ([]models.Invoice, error) {
	if to.Before(from) {
		return nil, apperrors.Invalid("to", "must not be before from")
	}
	items, _, err := s.store.Invoices().List(ctx, repositories.InvoiceFilter{From: &from, To: &to})
	return items, err
}

// Search matches term against invoice number, customer name and GSTIN.
func (s *InvoiceService) Search(ctx context.Context, term string, page, limit int) (*Page[models.Invoice], error) {
	return s.List(ctx, repositories.InvoiceFilter{Search: strings.TrimSpace(term)}, page, limit)
}

// GSTBreakdown returns the CGST, SGST and IGST totals of an invoice.
func (s *InvoiceService) GSTBreakdown(ctx context.Context, invoiceID string) (map[string]decimal.Decimal, error) {
	inv, err := s.store.Invoices().GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	return billing.Breakdown(inv), nil
}

// ValidateInvoiceNumber reports whether s has the INV-YYYYMMDD-NNNN form.
func (s *InvoiceService) ValidateInvoiceNumber(number string) bool {
	return billing.ValidInvoiceNumber(number)
}

// ValidateGSTIN reports whether gstin is well formed.
func (s *InvoiceService) ValidateGSTIN(gstin string) bool {
	return billing.ValidGSTIN(gstin)
}
