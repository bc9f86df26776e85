package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"paycore/internal/models"
	"paycore/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newApp() *fiber.App {
	auth := NewAuthMiddleware("secret", "paycore", zap.NewNop())
	app := fiber.New()
	app.Get("/me", auth.Handler, func(c *fiber.Ctx) error {
		claims, err := utils.GetClaims(c)
		if err != nil {
			return err
		}
		return c.SendString(claims.CustomerID)
	})
	app.Get("/admin", auth.Handler, AdminOnly, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func token(t *testing.T, customerID, role string) string {
	t.Helper()
	tok, err := utils.GenerateToken("secret", "paycore", customerID, role, time.Minute)
	require.NoError(t, err)
	return "Bearer " + tok
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		header     string
		wantStatus int
	}{
		{name: "missing header", path: "/me", wantStatus: fiber.StatusUnauthorized},
		{name: "not bearer", path: "/me", header: "Basic abc", wantStatus: fiber.StatusUnauthorized},
		{name: "bad token", path: "/me", header: "Bearer nope", wantStatus: fiber.StatusUnauthorized},
		{name: "customer", path: "/me", header: token(t, "CUST-1", models.RoleCustomer), wantStatus: fiber.StatusOK},
		{name: "customer on admin route", path: "/admin", header: token(t, "CUST-1", models.RoleCustomer), wantStatus: fiber.StatusForbidden},
		{name: "admin", path: "/admin", header: token(t, "ADMIN-1", models.RoleAdmin), wantStatus: fiber.StatusNoContent},
	}

	app := newApp()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestAdminOnly_WithoutClaims(t *testing.T) {
	app := fiber.New()
	app.Get("/", AdminOnly, func(c *fiber.Ctx) error { return nil })

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
