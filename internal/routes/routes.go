// Package routes defines the API routing configuration.
// It sets up all HTTP routes and their corresponding handlers,
// including middleware and authentication requirements.
package routes

import (
	"paycore/internal/handlers"
	"paycore/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// SetupRoutes configures all application routes.
// Everything under /api requires a bearer token; gateway status is admin
// only.
func SetupRoutes(app *fiber.App, auth *middleware.AuthMiddleware, payments *handlers.PaymentHandler, health *handlers.HealthHandler) {
	app.Get("/health", health.HealthCheck)

	api := app.Group("/api", auth.Handler)

	// /methods is registered before /:id so it is not taken for an id.
	p := api.Group("/payments")
	p.Get("/methods", payments.AvailableMethods)
	p.Post("/", payments.ProcessPayment)
	p.Get("/:id", payments.GetPayment)
	p.Post("/:id/cancel", payments.CancelPayment)
	p.Post("/:id/retry", payments.RetryPayment)
	p.Post("/:id/refunds", payments.RefundPayment)
	p.Get("/:id/gateway-status", middleware.AdminOnly, payments.GatewayStatus)

	api.Get("/orders/:orderId/payments", payments.ListOrderPayments)
	api.Get("/customers/me/payments", payments.ListMyPayments)
}
