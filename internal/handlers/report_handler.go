package handlers

import (
	"bytes"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"gstbill/internal/services"
)

// ReportHandler serves the dashboard and the sales reports.
type ReportHandler struct {
	reports *services.ReportService
	log     *zap.Logger
	now     func() time.Time
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reports *services.ReportService, log *zap.Logger) *ReportHandler {
	return &ReportHandler{
		reports: reports,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// RegisterRoutes registers the dashboard and report routes.
func (h *ReportHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/dashboard", h.HandleDashboard)

	reportRoutes := router.Group("/reports")
	reportRoutes.Get("/sales", h.HandleSalesSummary)
	reportRoutes.Get("/top-products", h.HandleTopProducts)
	reportRoutes.Get("/export", h.HandleExport)
}

// HandleDashboard summarizes the current month.
func (h *ReportHandler) HandleDashboard(c *fiber.Ctx) error {
	dashboard, err := h.reports.Dashboard(c.UserContext(), h.now())
	if err != nil {
		return respondError(c, h.log, "Could not build dashboard", err)
	}
	return c.JSON(dashboard)
}

// HandleSalesSummary totals PAID invoices between ?from= and ?to=.
func (h *ReportHandler) HandleSalesSummary(c *fiber.Ctx) error {
	from, to, err := dateRange(c, h.now())
	if err != nil {
		return respondError(c, h.log, "Could not build sales report", err)
	}
	summary, err := h.reports.SalesSummary(c.UserContext(), from, to)
	if err != nil {
		return respondError(c, h.log, "Could not build sales report", err)
	}
	return c.JSON(summary)
}

// HandleTopProducts ranks products sold between ?from= and ?to=.
func (h *ReportHandler) HandleTopProducts(c *fiber.Ctx) error {
	from, to, err := dateRange(c, h.now())
	if err != nil {
		return respondError(c, h.log, "Could not build top products report", err)
	}
	top, err := h.reports.TopSellingProducts(c.UserContext(), from, to, c.QueryInt("limit", 10))
	if err != nil {
		return respondError(c, h.log, "Could not build top products report", err)
	}
	return c.JSON(top)
}

// HandleExport downloads the invoices between ?from= and ?to= as CSV.
func (h *ReportHandler) HandleExport(c *fiber.Ctx) error {
	from, to, err := dateRange(c, h.now())
	if err != nil {
		return respondError(c, h.log, "Could not export invoices", err)
	}
	var buf bytes.Buffer
	if err := h.reports.ExportInvoicesCSV(c.UserContext(), &buf, from, to); err != nil {
		return respondError(c, h.log, "Could not export invoices", err)
	}

	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="invoices-%s-%s.csv"`,
		from.Format("20060102"), to.Format("20060102")))
	return c.Send(buf.Bytes())
}
