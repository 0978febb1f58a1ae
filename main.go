package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"gstbill/internal/app"
	"gstbill/internal/config"
	"gstbill/internal/logger"
)

func main() {
	// --- Configuration ---
	cfg := config.Load()

	zlog, err := logger.New(cfg.App.Env)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	application, err := app.New(cfg, zlog)
	if err != nil {
		zlog.Fatal("Failed to initialize application", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Start RabbitMQ Consumer ---
	if err := application.StartConsumer(ctx); err != nil {
		zlog.Error("Failed to start RabbitMQ consumer", zap.Error(err))
	}

	// --- Start HTTP Server ---
	go func() {
		zlog.Info("Starting server", zap.String("port", cfg.App.Port), zap.String("env", cfg.App.Env))
		if err := application.Fiber.Listen(cfg.App.Port); err != nil {
			zlog.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	<-ctx.Done()
	zlog.Info("Shutting down server...")

	if err := application.Fiber.ShutdownWithTimeout(10 * time.Second); err != nil {
		zlog.Error("Error during Fiber shutdown", zap.Error(err))
	}
	if err := application.Close(); err != nil {
		zlog.Error("Error releasing resources", zap.Error(err))
	}
	zlog.Info("Server gracefully stopped")
}
