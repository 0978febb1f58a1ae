package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gstbill/internal/models"
	"gstbill/internal/repositories"
)

// Routing keys of the invoice lifecycle events.
const (
	EventInvoiceIssued    = "invoice.issued"
	EventInvoicePaid      = "invoice.paid"
	EventInvoiceCancelled = "invoice.cancelled"
)

// EventPublisher delivers an encoded event. *rabbitmq.Client satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// InvoiceEvent is the message body published after a committed transition.
type InvoiceEvent struct {
	InvoiceID     string               `json:"invoice_id"`
	InvoiceNumber string               `json:"invoice_number"`
	Status        models.InvoiceStatus `json:"status"`
	TotalAmount   decimal.Decimal      `json:"total_amount"`
	OccurredAt    time.Time            `json:"occurred_at"`
	Lines         []InvoiceEventLine   `json:"lines"`
}

type InvoiceEventLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func routingKeyFor(status models.InvoiceStatus) (string, bool) {
	switch status {
	case models.StatusIssued:
		return EventInvoiceIssued, true
	case models.StatusPaid:
		return EventInvoicePaid, true
	case models.StatusCancelled:
		return EventInvoiceCancelled, true
	}
	return "", false
}

func newInvoiceEvent(inv *models.Invoice, at time.Time) InvoiceEvent {
	ev := InvoiceEvent{
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		Status:        inv.Status,
		TotalAmount:   inv.TotalAmount,
		OccurredAt:    at,
		Lines:         make([]InvoiceEventLine, 0, len(inv.Lines)),
	}
	for _, l := range inv.Lines {
		ev.Lines = append(ev.Lines, InvoiceEventLine{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return ev
}

// StockAlertHandler consumes invoice.issued events and warns about products
// whose stock fell below the low-stock threshold.
type StockAlertHandler struct {
	products  repositories.ProductRepository
	threshold int
	log       *zap.Logger
}

// NewStockAlertHandler creates a StockAlertHandler. A threshold <= 0 uses
// DefaultLowStockThreshold.
func NewStockAlertHandler(products repositories.ProductRepository, threshold int, log *zap.Logger) *StockAlertHandler {
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}
	return &StockAlertHandler{products: products, threshold: threshold, log: log}
}

// Handle decodes one delivery and logs a warning per low product. It returns
// the products that triggered a warning.
func (h *StockAlertHandler) Handle(ctx context.Context, routingKey string, body []byte) ([]models.Product, error) {
	if routingKey != EventInvoiceIssued {
		return nil, nil
	}
	var ev InvoiceEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("failed to decode %s event: %w", routingKey, err)
	}

	var low []models.Product
	seen := make(map[string]bool, len(ev.Lines))
	for _, line := range ev.Lines {
		if seen[line.ProductID] {
			continue
		}
		seen[line.ProductID] = true

		p, err := h.products.GetByID(ctx, line.ProductID)
		if err != nil {
			return low, fmt.Errorf("failed to load product %s for stock alert: %w", line.ProductID, err)
		}
		if p.Stock < h.threshold {
			h.log.Warn("product stock is low",
				zap.String("product_id", p.ID),
				zap.String("product", p.Name),
				zap.Int("stock", p.Stock),
				zap.Int("threshold", h.threshold),
				zap.String("invoice_number", ev.InvoiceNumber),
			)
			low = append(low, *p)
		}
	}
	return low, nil
}
