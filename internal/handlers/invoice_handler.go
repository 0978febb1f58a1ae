package handlers

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"gstbill/internal/apperrors"
	"gstbill/internal/billing"
	"gstbill/internal/middleware"
	"gstbill/internal/models"
	"gstbill/internal/repositories"
	"gstbill/internal/services"
	"gstbill/internal/validation"
)

// InvoiceHandler handles HTTP requests for invoices and their lines.
type InvoiceHandler struct {
	service  *services.InvoiceService
	validate *validator.Validate
	log      *zap.Logger
}

// NewInvoiceHandler creates a new InvoiceHandler.
func NewInvoiceHandler(service *services.InvoiceService, log *zap.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		service:  service,
		validate: validation.New(),
		log:      log,
	}
}

// RegisterRoutes registers the invoice routes with the Fiber app.
func (h *InvoiceHandler) RegisterRoutes(router fiber.Router) {
	invoiceRoutes := router.Group("/invoices")
	invoiceRoutes.Get("/", h.HandleGetInvoices)
	invoiceRoutes.Post("/", h.HandleCreateInvoice)
	invoiceRoutes.Get("/number/:number", h.HandleGetInvoiceByNumber)
	invoiceRoutes.Get("/:id", h.HandleGetInvoiceByID)
	invoiceRoutes.Get("/:id/gst", h.HandleGetGSTBreakdown)
	invoiceRoutes.Put("/:id/customer", h.HandleUpdateCustomer)
	invoiceRoutes.Delete("/:id", h.HandleDeleteInvoice)

	invoiceRoutes.Post("/:id/lines", h.HandleAddLine)
	invoiceRoutes.Patch("/:id/lines/:lineId", h.HandleUpdateLine)
	invoiceRoutes.Delete("/:id/lines/:lineId", h.HandleRemoveLine)

	invoiceRoutes.Post("/:id/issue", h.transition(billing.EventIssue, "Could not issue invoice"))
	invoiceRoutes.Post("/:id/pay", h.transition(billing.EventMarkPaid, "Could not mark invoice as paid"))
	invoiceRoutes.Post("/:id/cancel", middleware.RequireRole(models.RoleAdmin),
		h.transition(billing.EventCancel, "Could not cancel invoice"))
}

// HandleGetInvoices lists invoices, newest first. Supported filters: status
// (comma separated), customer, from, to, q, page and limit.
func (h *InvoiceHandler) HandleGetInvoices(c *fiber.Ctx) error {
	var filter repositories.InvoiceFilter

	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			status, ok := models.ParseStatus(strings.ToUpper(strings.TrimSpace(s)))
			if !ok {
				return respondError(c, h.log, "Could not retrieve invoices",
					apperrors.Invalid("status", "must be one of DRAFT, ISSUED, PAID, CANCELLED"))
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	filter.Customer = strings.TrimSpace(c.Query("customer"))
	filter.Search = strings.TrimSpace(c.Query("q"))

	var err error
	if filter.From, err = parseDate("from", c.Query("from"), false); err != nil {
		return respondError(c, h.log, "Could not retrieve invoices", err)
	}
	if filter.To, err = parseDate("to", c.Query("to"), true); err != nil {
		return respondError(c, h.log, "Could not retrieve invoices", err)
	}

	page, limit := pageParams(c)
	result, err := h.service.List(c.UserContext(), filter, page, limit)
	if err != nil {
		return respondError(c, h.log, "Could not retrieve invoices", err)
	}
	return c.JSON(result)
}

// HandleCreateInvoice opens a DRAFT invoice for the customer in the body.
func (h *InvoiceHandler) HandleCreateInvoice(c *fiber.Ctx) error {
	var details services.CustomerDetails
	if err := c.BodyParser(&details); err != nil {
		return invalidBody(c, h.log, err)
	}
	createdBy, _ := c.Locals(middleware.LocalUserID).(string)

	invoice, err := h.service.CreateInvoice(c.UserContext(), details, createdBy)
	if err != nil {
		return respondError(c, h.log, "Could not create invoice", err)
	}
	return c.Status(fiber.StatusCreated).JSON(invoice)
}

// HandleGetInvoiceByID retrieves a single invoice with its lines.
func (h *InvoiceHandler) HandleGetInvoiceByID(c *fiber.Ctx) error {
	invoice, err := h.service.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, "Could not retrieve invoice", err)
	}
	return c.JSON(invoice)
}

// HandleGetInvoiceByNumber retrieves a single invoice by its number.
func (h *InvoiceHandler) HandleGetInvoiceByNumber(c *fiber.Ctx) error {
	number := c.Params("number")
	if !h.service.ValidateInvoiceNumber(strings.ToUpper(number)) {
		return respondError(c, h.log, "Could not retrieve invoice",
			apperrors.Invalid("number", "must look like INV-YYYYMMDD-NNNN"))
	}
	invoice, err := h.service.GetByNumber(c.UserContext(), number)
	if err != nil {
		return respondError(c, h.log, "Could not retrieve invoice", err)
	}
	return c.JSON(invoice)
}

// HandleGetGSTBreakdown returns the CGST, SGST and IGST totals of an invoice.
func (h *InvoiceHandler) HandleGetGSTBreakdown(c *fiber.Ctx) error {
	breakdown, err := h.service.GSTBreakdown(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, "Could not compute GST breakdown", err)
	}
	return c.JSON(breakdown)
}

// HandleUpdateCustomer replaces the customer details of a DRAFT invoice.
func (h *InvoiceHandler) HandleUpdateCustomer(c *fiber.Ctx) error {
	var details services.CustomerDetails
	if err := c.BodyParser(&details); err != nil {
		return invalidBody(c, h.log, err)
	}
	invoice, err := h.service.UpdateCustomer(c.UserContext(), c.Params("id"), details)
	if err != nil {
		return respondError(c, h.log, "Could not update invoice", err)
	}
	return c.JSON(invoice)
}

// HandleDeleteInvoice removes a DRAFT invoice.
func (h *InvoiceHandler) HandleDeleteInvoice(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.service.DeleteInvoice(c.UserContext(), id); err != nil {
		return respondError(c, h.log, "Could not delete invoice", err)
	}
	return c.JSON(fiber.Map{
		"message": "Invoice " + id + " deleted successfully",
	})
}

// AddLineRequest is the body of POST /invoices/:id/lines.
type AddLineRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
}

// QuantityRequest is the body of PATCH /invoices/:id/lines/:lineId.
type QuantityRequest struct {
	Quantity int `json:"quantity" validate:"gt=0"`
}

// HandleAddLine appends a product line to a DRAFT invoice.
func (h *InvoiceHandler) HandleAddLine(c *fiber.Ctx) error {
	var req AddLineRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, h.log, err)
	}
	if err := validation.Check(h.validate, req); err != nil {
		return respondError(c, h.log, "Validation failed", err)
	}
	invoice, err := h.service.AddLine(c.UserContext(), c.Params("id"), req.ProductID, req.Quantity)
	if err != nil {
		return respondError(c, h.log, "Could not add line", err)
	}
	return c.Status(fiber.StatusCreated).JSON(invoice)
}

// HandleUpdateLine changes the quantity of a line.
func (h *InvoiceHandler) HandleUpdateLine(c *fiber.Ctx) error {
	var req QuantityRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, h.log, err)
	}
	if err := validation.Check(h.validate, req); err != nil {
		return respondError(c, h.log, "Validation failed", err)
	}
	invoice, err := h.service.UpdateLineQuantity(c.UserContext(), c.Params("id"), c.Params("lineId"), req.Quantity)
	if err != nil {
		return respondError(c, h.log, "Could not update line", err)
	}
	return c.JSON(invoice)
}

// HandleRemoveLine deletes a line from a DRAFT invoice.
func (h *InvoiceHandler) HandleRemoveLine(c *fiber.Ctx) error {
	invoice, err := h.service.RemoveLine(c.UserContext(), c.Params("id"), c.Params("lineId"))
	if err != nil {
		return respondError(c, h.log, "Could not remove line", err)
	}
	return c.JSON(invoice)
}

// transition returns the handler applying one lifecycle event.
func (h *InvoiceHandler) transition(event billing.Event, failure string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		invoice, err := h.service.Transition(c.UserContext(), c.Params("id"), event)
		if err != nil {
			return respondError(c, h.log, failure, err)
		}
		return c.JSON(invoice)
	}
}
