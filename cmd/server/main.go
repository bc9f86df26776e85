// Package main is the entry point for the payment API.
// It initializes all dependencies, sets up the HTTP server,
// and starts the application.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"paycore/internal/app"
	"paycore/internal/config"
	"paycore/internal/handlers"
	"paycore/internal/middleware"
	"paycore/internal/routes"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

const version = "1.0.0"

// main initializes and starts the HTTP server.
// It performs the following setup:
// - Loads configuration
// - Connects postgres and redis and builds the payment service
// - Starts the timeout sweeper
// - Configures routes and serves until SIGINT or SIGTERM
func main() {
	config.LoadEnv()
	cfg := config.Load()

	zl, err := app.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zl.Sync() //nolint:errcheck

	if cfg.JWT.Secret == "" {
		zl.Fatal("JWT_SECRET must be set")
	}

	a, err := app.New(cfg, zl)
	if err != nil {
		zl.Fatal("failed to initialize application", zap.Error(err))
	}
	defer a.Close()

	if err := app.Migrate(a); err != nil {
		zl.Fatal("failed to migrate database", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go app.RunSweeper(ctx, a.Payments, cfg.Rules.SweepInterval, zl.Named("sweeper"))
	go monitorPools(ctx, a, zl)

	server := fiber.New(fiber.Config{
		AppName:      "paycore " + version,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	})

	server.Use(recover.New())
	server.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.AllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,HEAD",
	}))
	server.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	server.Use("/api/payments", limiter.New(limiter.Config{
		Max:        cfg.Server.RateLimit,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Please try again later.",
			})
		},
	}))

	routes.SetupRoutes(server,
		middleware.NewAuthMiddleware(cfg.JWT.Secret, cfg.JWT.Issuer, zl),
		handlers.NewPaymentHandler(a.Payments, zl),
		handlers.NewHealthHandler(version, a.HealthChecks()),
	)

	go func() {
		<-ctx.Done()
		zl.Info("shutting down")
		if err := server.ShutdownWithTimeout(cfg.Server.ShutdownTimeout); err != nil {
			zl.Error("server shutdown failed", zap.Error(err))
		}
	}()

	zl.Info("starting server",
		zap.String("port", cfg.Server.Port),
		zap.String("gateway", cfg.Gateway.Provider),
		zap.Bool("redis", cfg.Redis.Enabled),
	)
	if err := server.Listen(":" + cfg.Server.Port); err != nil {
		zl.Error("server stopped", zap.Error(err))
	}
}

// monitorPools logs connection pool statistics every minute.
func monitorPools(ctx context.Context, a *app.App, zl *zap.Logger) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if sqlDB, err := a.DB.DB(); err == nil {
			stats := sqlDB.Stats()
			zl.Debug("db pool",
				zap.Int("open", stats.OpenConnections),
				zap.Int("idle", stats.Idle),
				zap.Int("in_use", stats.InUse),
				zap.Int64("wait_count", stats.WaitCount),
				zap.Duration("wait_duration", stats.WaitDuration),
			)
		}
		if a.Cache != nil {
			stats := a.Cache.GetStats()
			zl.Debug("redis pool",
				zap.Uint32("hits", stats.Hits),
				zap.Uint32("misses", stats.Misses),
				zap.Uint32("timeouts", stats.Timeouts),
				zap.Uint32("total_conns", stats.TotalConns),
				zap.Uint32("idle_conns", stats.IdleConns),
			)
		}
	}
}
