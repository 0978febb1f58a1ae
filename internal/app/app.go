// Package app wires configuration, storage, services and HTTP handlers into
// a runnable billing server.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"gstbill/internal/config"
	"gstbill/internal/database"
	"gstbill/internal/handlers"
	"gstbill/internal/middleware"
	"gstbill/internal/repositories"
	"gstbill/internal/services"
	"gstbill/pkg/rabbitmq"
)

// App is a fully wired server.
type App struct {
	Fiber    *fiber.App
	Auth     *services.AuthService
	Users    *services.UserService
	Products *services.ProductService
	Invoices *services.InvoiceService
	Reports  *services.ReportService

	cfg   *config.Config
	log   *zap.Logger
	db    *gorm.DB
	store repositories.Store
	mq    *rabbitmq.Client // nil when RABBITMQ_URL is empty or unreachable
}

// New opens the configured database and builds the server on top of it.
func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	db, err := database.Open(cfg.Database, gormlogger.Warn)
	if err != nil {
		return nil, err
	}
	return NewWithDB(cfg, log, db)
}

// NewWithDB builds the server on an already migrated database.
func NewWithDB(cfg *config.Config, log *zap.Logger, db *gorm.DB) (*App, error) {
	a := &App{
		cfg:   cfg,
		log:   log,
		db:    db,
		store: repositories.NewGORMStore(db),
	}

	var publisher services.EventPublisher
	if cfg.RabbitMQ.URL != "" {
		mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQ.URL}, log)
		if err != nil {
			log.Warn("RabbitMQ unavailable, invoice events disabled", zap.Error(err))
		} else {
			a.mq = mq
			publisher = mq
		}
	}

	a.Auth = services.NewAuthService(a.store.Users(), cfg.JWT.Secret, cfg.JWT.TTL, log)
	a.Users = services.NewUserService(a.store.Users(), log)
	a.Products = services.NewProductService(a.store, log, cfg.Billing.LowStockThreshold)
	a.Invoices = services.NewInvoiceService(a.store, publisher, log, cfg.Billing.SellerStateCode)
	a.Reports = services.NewReportService(a.store, log, cfg.Billing.LowStockThreshold)

	seeded, err := a.Auth.SeedAdmin(context.Background(), cfg.Admin.Username, cfg.Admin.Email, cfg.Admin.Password)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to seed admin: %w", err)
	}
	if seeded {
		log.Info("seeded admin account", zap.String("username", cfg.Admin.Username))
	}

	a.Fiber = a.routes()
	return a, nil
}

func (a *App) routes() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "gstbill",
		Immutable: true,
	})

	app.Use(recover.New())
	if a.cfg.App.Env != "test" {
		app.Use(fiberlogger.New())
	}

	app.Get("/health", a.handleHealth)

	apiV1 := app.Group("/api/v1")

	// Authentication routes (public)
	authHandler := handlers.NewAuthHandler(a.Auth, a.Users, a.log)
	authHandler.RegisterRoutes(apiV1)

	// Protected routes (require JWT authentication)
	protected := apiV1.Group("", middleware.AuthRequired(a.Auth, a.log))
	authHandler.RegisterAccountRoutes(protected)
	authHandler.RegisterAdminRoutes(protected)
	handlers.NewProductHandler(a.Products, a.log).RegisterRoutes(protected)
	handlers.NewInvoiceHandler(a.Invoices, a.log).RegisterRoutes(protected)
	handlers.NewReportHandler(a.Reports, a.log).RegisterRoutes(protected)

	return app
}

func (a *App) handleHealth(c *fiber.Ctx) error {
	status, code := "healthy", fiber.StatusOK
	dbState := "connected"

	sqlDB, err := a.db.DB()
	if err == nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		a.log.Error("health check failed", zap.Error(err))
		status, code, dbState = "unhealthy", fiber.StatusServiceUnavailable, "unreachable"
	}

	mqState := "disabled"
	if a.mq != nil {
		mqState = "connected"
	}
	return c.Status(code).JSON(fiber.Map{
		"status":   status,
		"time":     time.Now().UTC().Format(time.RFC3339),
		"database": dbState,
		"rabbitmq": mqState,
	})
}

// StartConsumer subscribes the low stock alerting to invoice events. It is a
// no-op without RabbitMQ.
func (a *App) StartConsumer(ctx context.Context) error {
	if a.mq == nil {
		return nil
	}
	alerts := services.NewStockAlertHandler(a.store.Products(), a.cfg.Billing.LowStockThreshold, a.log)
	return a.mq.ConsumeInvoiceEvents(ctx, func(ctx context.Context, routingKey string, body []byte) error {
		_, err := alerts.Handle(ctx, routingKey, body)
		return err
	})
}

// Close releases the broker connection and the database.
func (a *App) Close() error {
	var errs []error
	if a.mq != nil {
		errs = append(errs, a.mq.Close())
	}
	if sqlDB, err := a.db.DB(); err != nil {
		errs = append(errs, err)
	} else {
		errs = append(errs, sqlDB.Close())
	}
	return errors.Join(errs...)
}
