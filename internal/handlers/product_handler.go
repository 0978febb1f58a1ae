package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gstbill/internal/apperrors"
	"gstbill/internal/middleware"
	"gstbill/internal/models"
	"gstbill/internal/services"
	"gstbill/internal/validation"
)

// ProductHandler handles HTTP requests for products.
type ProductHandler struct {
	service  *services.ProductService
	validate *validator.Validate
	log      *zap.Logger
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService, log *zap.Logger) *ProductHandler {
	return &ProductHandler{
		service:  service,
		validate: validation.New(),
		log:      log,
	}
}

// RegisterRoutes registers the product routes. Catalog changes are
// restricted to ADMIN.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleGetProducts)
	productRoutes.Get("/low-stock", h.HandleGetLowStock)
	productRoutes.Get("/search", h.HandleSearchProducts)
	productRoutes.Get("/:id", h.HandleGetProductByID)
	productRoutes.Get("/:id/quote", h.HandleQuote)
	productRoutes.Post("/", adminOnly, h.HandleCreateProduct)
	productRoutes.Put("/:id", adminOnly, h.HandleUpdateProduct)
	productRoutes.Delete("/:id", adminOnly, h.HandleDeleteProduct)
	productRoutes.Post("/:id/activate", adminOnly, h.HandleActivateProduct)
	productRoutes.Patch("/:id/stock", adminOnly, h.HandleAdjustStock)
}

// HandleGetProducts lists active products. ?all=true includes inactive ones,
// ?hsn= and ?gst_rate= narrow the listing.
func (h *ProductHandler) HandleGetProducts(c *fiber.Ctx) error {
	ctx := c.UserContext()

	if hsn := c.Query("hsn"); hsn != "" {
		products, err := h.service.GetProductsByHSN(ctx, hsn)
		if err != nil {
			return respondError(c, h.log, "Could not retrieve products", err)
		}
		return c.JSON(products)
	}
	if raw := c.Query("gst_rate"); raw != "" {
		rate, err := decimal.NewFromString(raw)
		if err != nil {
			return respondError(c, h.log, "Could not retrieve products", apperrors.Invalid("gst_rate", "must be a number"))
		}
		products, err := h.service.GetProductsByGSTRate(ctx, rate)
		if err != nil {
			return respondError(c, h.log, "Could not retrieve products", err)
		}
		return c.JSON(products)
	}

	page, limit := pageParams(c)
	var (
		result *services.Page[models.Product]
		err    error
	)
	if c.QueryBool("all") {
		result, err = h.service.GetAllProducts(ctx, page, limit)
	} else {
		result, err = h.service.GetActiveProducts(ctx, page, limit)
	}
	if err != nil {
		return respondError(c, h.log, "Could not retrieve products", err)
	}
	return c.JSON(result)
}

// HandleSearchProducts matches ?q= against product names and HSN codes.
func (h *ProductHandler) HandleSearchProducts(c *fiber.Ctx) error {
	page, limit := pageParams(c)
	result, err := h.service.SearchProducts(c.UserContext(), c.Query("q"), page, limit)
	if err != nil {
		return respondError(c, h.log, "Could not search products", err)
	}
	return c.JSON(result)
}

// HandleGetLowStock lists products below ?threshold= (or the configured default).
func (h *ProductHandler) HandleGetLowStock(c *fiber.Ctx) error {
	products, err := h.service.GetLowStockProducts(c.UserContext(), c.QueryInt("threshold", 0))
	if err != nil {
		return respondError(c, h.log, "Could not retrieve low stock products", err)
	}
	return c.JSON(products)
}

// HandleGetProductByID retrieves a single product by its ID.
func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	product, err := h.service.GetProductByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, "Could not retrieve product", err)
	}
	return c.JSON(product)
}

// HandleQuote prices ?qty= units of a product including tax.
func (h *ProductHandler) HandleQuote(c *fiber.Ctx) error {
	ctx := c.UserContext()
	id := c.Params("id")
	qty := c.QueryInt("qty", 1)

	gst, err := h.service.CalculateGSTAmount(ctx, id, qty)
	if err != nil {
		return respondError(c, h.log, "Could not quote product", err)
	}
	total, err := h.service.CalculateTotalAmount(ctx, id, qty)
	if err != nil {
		return respondError(c, h.log, "Could not quote product", err)
	}
	return c.JSON(fiber.Map{
		"product_id":   id,
		"quantity":     qty,
		"gst_amount":   gst,
		"total_amount": total,
	})
}

// HandleCreateProduct creates a new product.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var in services.ProductInput
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c, h.log, err)
	}
	product, err := h.service.CreateProduct(c.UserContext(), in)
	if err != nil {
		return respondError(c, h.log, "Could not create product", err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleUpdateProduct replaces the editable fields of a product. Stock only
// changes through PATCH /products/:id/stock.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	var in services.ProductInput
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c, h.log, err)
	}
	product, err := h.service.UpdateProduct(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return respondError(c, h.log, "Could not update product", err)
	}
	return c.JSON(product)
}

// HandleDeleteProduct soft deletes a product.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.service.DeleteProduct(c.UserContext(), id); err != nil {
		return respondError(c, h.log, "Could not delete product", err)
	}
	return c.JSON(fiber.Map{
		"message": "Product " + id + " deleted successfully",
	})
}

// HandleActivateProduct restores a soft deleted product.
func (h *ProductHandler) HandleActivateProduct(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.service.ActivateProduct(c.UserContext(), id); err != nil {
		return respondError(c, h.log, "Could not activate product", err)
	}
	return c.JSON(fiber.Map{
		"message": "Product " + id + " activated successfully",
	})
}

// StockAdjustmentRequest is the body of PATCH /products/:id/stock.
type StockAdjustmentRequest struct {
	Delta int `json:"delta" validate:"ne=0"`
}

// HandleAdjustStock adds a positive or negative delta to a product's stock.
func (h *ProductHandler) HandleAdjustStock(c *fiber.Ctx) error {
	var req StockAdjustmentRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, h.log, err)
	}
	if err := validation.Check(h.validate, req); err != nil {
		return respondError(c, h.log, "Validation failed", err)
	}
	product, err := h.service.AdjustStock(c.UserContext(), c.Params("id"), req.Delta)
	if err != nil {
		return respondError(c, h.log, "Could not adjust stock", err)
	}
	return c.JSON(product)
}
