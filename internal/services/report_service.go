package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gstbill/internal/apperrors"
	"gstbill/internal/models"
	"gstbill/internal/repositories"
)

// SalesSummary aggregates PAID invoices over a date range.
type SalesSummary struct {
	From         time.Time       `json:"from"`
	To           time.Time       `json:"to"`
	InvoiceCount int             `json:"invoice_count"`
	SubTotal     decimal.Decimal `json:"sub_total"`
	CGSTAmount   decimal.Decimal `json:"cgst_amount"`
	SGSTAmount   decimal.Decimal `json:"sgst_amount"`
	IGSTAmount   decimal.Decimal `json:"igst_amount"`
	TotalGST     decimal.Decimal `json:"total_gst"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
}

// ProductSales is one row of the top-selling report.
type ProductSales struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Revenue     decimal.Decimal `json:"revenue"` // sum of line subtotals, tax excluded
}

// Dashboard is the landing page summary.
type Dashboard struct {
	MonthSales         decimal.Decimal                `json:"month_sales"`
	PreviousMonthSales decimal.Decimal                `json:"previous_month_sales"`
	SalesGrowth        decimal.Decimal                `json:"sales_growth"` // percent; zero when last month had no sales
	MonthGST           decimal.Decimal                `json:"month_gst"`
	TotalInvoices      int64                          `json:"total_invoices"`
	InvoicesThisMonth  int64                          `json:"invoices_this_month"`
	InvoicesByStatus   map[models.InvoiceStatus]int64 `json:"invoices_by_status"`
	TotalProducts      int64                          `json:"total_products"`
	LowStockCount      int                            `json:"low_stock_count"`
	LowStockProducts   []models.Product               `json:"low_stock_products"`
	RecentInvoices     []models.Invoice               `json:"recent_invoices"`
}

// RecentInvoiceCount is how many invoices the dashboard lists.
const RecentInvoiceCount = 5

// ReportService builds read-only summaries over invoices and products.
type ReportService struct {
	store     repositories.Store
	log       *zap.Logger
	threshold int
}

// NewReportService creates a new ReportService.
func NewReportService(store repositories.Store, log *zap.Logger, lowStockThreshold int) *ReportService {
	if lowStockThreshold <= 0 {
		lowStockThreshold = DefaultLowStockThreshold
	}
	return &ReportService{store: store, log: log, threshold: lowStockThreshold}
}

func checkRange(from, to time.Time) error {
	if to.Before(from) {
		return apperrors.Invalid("to", "must not be before from")
	}
	return nil
}

func (s *ReportService) invoicesIn(ctx context.Context, from, to time.Time, statuses ...models.InvoiceStatus) ([]models.Invoice, error) {
	items, _, err := s.store.Invoices().List(ctx, repositories.InvoiceFilter{Statuses: statuses, From: &from, To: &to})
	return items, err
}

// SalesSummary totals PAID invoices dated within [from, to].
func (s *ReportService) SalesSummary(ctx context.Context, from, to time.Time) (*SalesSummary, error) {
	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	invoices, err := s.invoicesIn(ctx, from, to, models.StatusPaid)
	if err != nil {
		return nil, fmt.Errorf("failed to build sales summary: %w", err)
	}

	sum := &SalesSummary{From: from, To: to, InvoiceCount: len(invoices)}
	for _, inv := range invoices {
		sum.SubTotal = sum.SubTotal.Add(inv.SubTotal)
		sum.CGSTAmount = sum.CGSTAmount.Add(inv.CGSTAmount)
		sum.SGSTAmount = sum.SGSTAmount.Add(inv.SGSTAmount)
		sum.IGSTAmount = sum.IGSTAmount.Add(inv.IGSTAmount)
		sum.TotalAmount = sum.TotalAmount.Add(inv.TotalAmount)
	}
	sum.TotalGST = sum.CGSTAmount.Add(sum.SGSTAmount).Add(sum.IGSTAmount)
	return sum, nil
}

// TopSellingProducts ranks products by quantity sold on ISSUED and PAID
// invoices dated within [from, to].
func (s *ReportService) TopSellingProducts(ctx context.Context, from, to time.Time, limit int) ([]ProductSales, error) {
	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}
	invoices, err := s.invoicesIn(ctx, from, to, models.StatusIssued, models.StatusPaid)
	if err != nil {
		return nil, fmt.Errorf("failed to build top products: %w", err)
	}

	byProduct := make(map[string]*ProductSales)
	for _, inv := range invoices {
		for _, line := range inv.Lines {
			row, ok := byProduct[line.ProductID]
			if !ok {
				row = &ProductSales{ProductID: line.ProductID, ProductName: line.ProductName}
				byProduct[line.ProductID] = row
			}
			row.Quantity += line.Quantity
			row.Revenue = row.Revenue.Add(line.SubTotal)
		}
	}

	out := make([]ProductSales, 0, len(byProduct))
	for _, row := range byProduct {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Quantity != out[j].Quantity {
			return out[i].Quantity > out[j].Quantity
		}
		if c := out[i].Revenue.Cmp(out[j].Revenue); c != 0 {
			return c > 0
		}
		return out[i].ProductName < out[j].ProductName
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func monthBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 1, 0).Add(-time.Nanosecond)
}

// Dashboard summarizes the month containing now against the month before.
func (s *ReportService) Dashboard(ctx context.Context, now time.Time) (*Dashboard, error) {
	monthStart, monthEnd := monthBounds(now)
	prevStart, prevEnd := monthBounds(monthStart.AddDate(0, 0, -1))

	current, err := s.SalesSummary(ctx, monthStart, monthEnd)
	if err != nil {
		return nil, err
	}
	previous, err := s.SalesSummary(ctx, prevStart, prevEnd)
	if err != nil {
		return nil, err
	}

	d := &Dashboard{
		MonthSales:         current.TotalAmount,
		PreviousMonthSales: previous.TotalAmount,
		MonthGST:           current.TotalGST,
	}
	if previous.TotalAmount.IsPositive() {
		d.SalesGrowth = current.TotalAmount.Sub(previous.TotalAmount).
			DivRound(previous.TotalAmount, 2).
			Mul(decimal.NewFromInt(100))
	}

	if d.InvoicesByStatus, err = s.store.Invoices().CountByStatus(ctx); err != nil {
		return nil, fmt.Errorf("failed to count invoices: %w", err)
	}
	for _, n := range d.InvoicesByStatus {
		d.TotalInvoices += n
	}

	_, d.InvoicesThisMonth, err = s.store.Invoices().List(ctx, repositories.InvoiceFilter{From: &monthStart, To: &monthEnd, Limit: 1})
	if err != nil {
		return nil, fmt.Errorf("failed to count this month's invoices: %w", err)
	}
	if d.RecentInvoices, _, err = s.store.Invoices().List(ctx, repositories.InvoiceFilter{Limit: RecentInvoiceCount}); err != nil {
		return nil, fmt.Errorf("failed to load recent invoices: %w", err)
	}

	if _, d.TotalProducts, err = s.store.Products().List(ctx, repositories.ProductFilter{Limit: 1}); err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}
	if d.LowStockProducts, err = s.store.Products().LowStock(ctx, s.threshold); err != nil {
		return nil, fmt.Errorf("failed to load low stock products: %w", err)
	}
	d.LowStockCount = len(d.LowStockProducts)
	s.log.Debug("dashboard built",
		zap.Time("month", monthStart),
		zap.String("month_sales", d.MonthSales.StringFixed(2)),
		zap.Int("low_stock", d.LowStockCount))
	return d, nil
}

var csvHeader = []string{
	"invoice_number", "invoice_date", "customer_name", "customer_gstin", "status",
	"sub_total", "cgst_amount", "sgst_amount", "igst_amount", "total_amount",
}

// ExportInvoicesCSV writes every invoice dated within [from, to] as CSV.
func (s *ReportService) ExportInvoicesCSV(ctx context.Context, w io.Writer, from, to time.Time) error {
	if err := checkRange(from, to); err != nil {
		return err
	}
	invoices, err := s.invoicesIn(ctx, from, to)
	if err != nil {
		return fmt.Errorf("failed to export invoices: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, inv := range invoices {
		record := []string{
			inv.InvoiceNumber,
			inv.InvoiceDate.Format(time.RFC3339),
			inv.CustomerName,
			inv.CustomerGSTIN,
			string(inv.Status),
			inv.SubTotal.StringFixed(2),
			inv.CGSTAmount.StringFixed(2),
			inv.SGSTAmount.StringFixed(2),
			inv.IGSTAmount.StringFixed(2),
			inv.TotalAmount.StringFixed(2),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	s.log.Info("invoices exported",
		zap.Time("from", from),
		zap.Time("to", to),
		zap.Int("count", len(invoices)))
	return nil
}
