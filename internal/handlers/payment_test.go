package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"paycore/internal/gateways/sandbox"
	"paycore/internal/middleware"
	"paycore/internal/models"
	"paycore/internal/repositories/memory"
	"paycore/internal/services/gateway"
	paymentsvc "paycore/internal/services/payment"
	"paycore/internal/services/retry"
	"paycore/internal/services/rules"
	"paycore/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

// newTestApp wires the real service stack over an in-memory repository and
// the sandbox gateway, the way cmd/server does with postgres and stripe.
func newTestApp(t *testing.T, checks map[string]HealthCheckFunc) (*fiber.App, *sandbox.Gateway) {
	t.Helper()
	repo := memory.NewTransactionRepository()
	gw := sandbox.New()
	registry := gateway.NewRegistry(gateway.NewCreditCardStrategy(gw), gateway.NewBankTransferStrategy(gw))
	rulesSvc := rules.NewService(repo, rules.DefaultConfig(), zap.NewNop())
	svc := paymentsvc.NewService(paymentsvc.Dependencies{
		Repository: repo,
		Registry:   registry,
		Rules:      rulesSvc,
		Retry:      retry.NewPolicy(registry, rulesSvc, zap.NewNop()),
		Logger:     zap.NewNop(),
	}, paymentsvc.Config{})

	app := fiber.New()
	auth := middleware.NewAuthMiddleware(testSecret, "paycore", zap.NewNop())
	payments := NewPaymentHandler(svc, zap.NewNop())
	health := NewHealthHandler("test", checks)

	// Mirrors routes.SetupRoutes; the routes package imports handlers.
	app.Get("/health", health.HealthCheck)
	api := app.Group("/api", auth.Handler)
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
	return app, gw
}

func bearer(t *testing.T, customerID, role string) string {
	t.Helper()
	tok, err := utils.GenerateToken(testSecret, "paycore", customerID, role, time.Minute)
	require.NoError(t, err)
	return "Bearer " + tok
}

func call(t *testing.T, app *fiber.App, method, path, auth string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, ok := body.(string)
		if !ok {
			b, err := json.Marshal(body)
			require.NoError(t, err)
			raw = string(b)
		}
		reader = bytes.NewBufferString(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := map[string]interface{}{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func cardBody(orderID, amount, number string) fiber.Map {
	return fiber.Map{
		"order_id": orderID,
		"amount":   amount,
		"method":   "CREDIT_CARD",
		"card": fiber.Map{
			"number":       number,
			"holder":       "Jane Doe",
			"expiry_month": 12,
			"expiry_year":  2099,
			"cvv":          "123",
		},
	}
}

func data(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	d, ok := body["data"].(map[string]interface{})
	require.True(t, ok, "response has no data object: %v", body)
	return d
}

func assertAmount(t *testing.T, want string, got interface{}) {
	t.Helper()
	s, ok := got.(string)
	require.True(t, ok, "amount %v is not a string", got)
	assert.True(t, decimal.RequireFromString(want).Equal(decimal.RequireFromString(s)), "want %s, got %s", want, s)
}

func TestPaymentHandler_ProcessAndGet(t *testing.T) {
	app, _ := newTestApp(t, nil)
	owner := bearer(t, "CUST-1", models.RoleCustomer)

	status, body := call(t, app, "POST", "/api/payments", owner, cardBody("ORD-1", "1000.00", sandbox.CardSuccess))
	require.Equal(t, fiber.StatusCreated, status, body)
	created := data(t, body)
	assert.Equal(t, true, created["success"])
	assert.Equal(t, "SUCCESS", created["status"])
	assertAmount(t, "1000", created["amount"])
	id := created["transaction_id"].(string)

	status, body = call(t, app, "GET", "/api/payments/"+id, owner, nil)
	require.Equal(t, fiber.StatusOK, status)
	view := data(t, body)
	assert.Equal(t, "CUST-1", view["customer_id"])
	card := view["card"].(map[string]interface{})
	assert.Equal(t, "4242", card["last_four"])
	assert.NotContains(t, card, "number")

	status, body = call(t, app, "GET", "/api/payments/"+id, bearer(t, "CUST-2", models.RoleCustomer), nil)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "ACCESS_DENIED", body["code"])

	status, _ = call(t, app, "GET", "/api/payments/"+id, bearer(t, "ADMIN-1", models.RoleAdmin), nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, body = call(t, app, "GET", "/api/payments/missing", owner, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "TRANSACTION_NOT_FOUND", body["code"])
}

func TestPaymentHandler_RequiresToken(t *testing.T) {
	app, _ := newTestApp(t, nil)

	status, _ := call(t, app, "GET", "/api/payments/methods", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestPaymentHandler_ProcessPayment_Rejections(t *testing.T) {
	app, gw := newTestApp(t, nil)
	auth := bearer(t, "CUST-1", models.RoleCustomer)

	tests := []struct {
		name       string
		body       interface{}
		wantStatus int
		wantCode   string
	}{
		{name: "malformed json", body: "{", wantStatus: fiber.StatusBadRequest},
		{name: "missing order", body: cardBody("", "10.00", sandbox.CardSuccess), wantStatus: fiber.StatusBadRequest},
		{name: "bad amount", body: cardBody("ORD-2", "10.005", sandbox.CardSuccess), wantStatus: fiber.StatusBadRequest, wantCode: "INVALID_AMOUNT"},
		{name: "luhn failure", body: cardBody("ORD-3", "10.00", "4242424242424241"), wantStatus: fiber.StatusBadRequest, wantCode: "INVALID_CARD"},
		{name: "unknown method", body: fiber.Map{"order_id": "ORD-4", "amount": "10.00", "method": "CASH"}, wantStatus: fiber.StatusBadRequest, wantCode: "UNSUPPORTED_METHOD"},
		{name: "over limit", body: cardBody("ORD-5", "100000.01", sandbox.CardSuccess), wantStatus: fiber.StatusUnprocessableEntity, wantCode: "LIMIT_EXCEEDED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := call(t, app, "POST", "/api/payments", auth, tt.body)
			assert.Equal(t, tt.wantStatus, status, body)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, body["code"])
			}
		})
	}
	assert.Equal(t, int64(0), gw.Calls())
}

func TestPaymentHandler_ProcessPayment_DescriptionLength(t *testing.T) {
	app, _ := newTestApp(t, nil)
	auth := bearer(t, "CUST-1", models.RoleCustomer)

	body := cardBody("ORD-1", "10.00", sandbox.CardSuccess)
	body["description"] = strings.Repeat("d", 500)
	status, resp := call(t, app, "POST", "/api/payments", auth, body)
	require.Equal(t, fiber.StatusCreated, status, resp)
	id := data(t, resp)["transaction_id"].(string)
	_, resp = call(t, app, "GET", "/api/payments/"+id, auth, nil)
	assert.Len(t, data(t, resp)["description"], 500)

	body = cardBody("ORD-2", "10.00", sandbox.CardSuccess)
	body["description"] = strings.Repeat("d", 501)
	status, resp = call(t, app, "POST", "/api/payments", auth, body)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, resp, "errors")
}

func TestPaymentHandler_DeclineAndRetry(t *testing.T) {
	app, _ := newTestApp(t, nil)
	auth := bearer(t, "CUST-1", models.RoleCustomer)

	status, body := call(t, app, "POST", "/api/payments", auth, cardBody("ORD-1", "50.00", sandbox.CardProcessingError))
	require.Equal(t, fiber.StatusPaymentRequired, status)
	failed := data(t, body)
	assert.Equal(t, "FAILED", failed["status"])
	assert.Equal(t, "SYSTEM_ERROR", failed["failure_code"])
	assert.Equal(t, true, failed["retryable"])
	id := failed["transaction_id"].(string)

	status, body = call(t, app, "POST", "/api/payments/"+id+"/retry", auth, fiber.Map{})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "INVALID_CARD", body["code"])

	status, body = call(t, app, "POST", "/api/payments/"+id+"/retry", bearer(t, "CUST-2", models.RoleCustomer), fiber.Map{})
	assert.Equal(t, fiber.StatusForbidden, status, body)

	retryBody := fiber.Map{"card": cardBody("", "", sandbox.CardProcessingError)["card"]}
	status, body = call(t, app, "POST", "/api/payments/"+id+"/retry", auth, retryBody)
	assert.Equal(t, fiber.StatusPaymentRequired, status, body)
	assert.Equal(t, float64(1), data(t, body)["retry_count"])
}

func TestPaymentHandler_RefundAndCancel(t *testing.T) {
	app, _ := newTestApp(t, nil)
	auth := bearer(t, "CUST-1", models.RoleCustomer)

	_, body := call(t, app, "POST", "/api/payments", auth, cardBody("ORD-1", "1000.00", sandbox.CardSuccess))
	id := data(t, body)["transaction_id"].(string)

	status, body := call(t, app, "POST", "/api/payments/"+id+"/refunds", auth, fiber.Map{"amount": "500.00", "reason": "partial"})
	require.Equal(t, fiber.StatusCreated, status, body)
	refund := data(t, body)
	assert.Equal(t, true, refund["success"])
	assert.Equal(t, "PARTIAL_REFUNDED", refund["original_status"])
	assertAmount(t, "10", refund["fee"])
	assertAmount(t, "490", refund["net_amount"])
	assertAmount(t, "500", refund["available_refund"])

	status, body = call(t, app, "POST", "/api/payments/"+id+"/refunds", auth, fiber.Map{"amount": "600.00"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "INVALID_AMOUNT", body["code"])

	status, body = call(t, app, "POST", "/api/payments/"+id+"/cancel", auth, fiber.Map{"reason": "changed my mind"})
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Equal(t, "INVALID_TRANSACTION_STATE", body["code"])

	status, body = call(t, app, "GET", "/api/orders/ORD-1/payments", auth, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["data"], 2)

	status, body = call(t, app, "GET", "/api/orders/ORD-1/payments", bearer(t, "CUST-2", models.RoleCustomer), nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["data"], 0)
}

func TestPaymentHandler_CancelOthersPaymentIsDenied(t *testing.T) {
	app, _ := newTestApp(t, nil)
	auth := bearer(t, "CUST-1", models.RoleCustomer)

	_, body := call(t, app, "POST", "/api/payments", auth, cardBody("ORD-1", "20.00", sandbox.CardDeclined))
	id := data(t, body)["transaction_id"].(string)

	status, _ := call(t, app, "POST", "/api/payments/"+id+"/cancel", bearer(t, "CUST-2", models.RoleCustomer), nil)
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestPaymentHandler_GatewayStatusIsAdminOnly(t *testing.T) {
	app, _ := newTestApp(t, nil)
	auth := bearer(t, "CUST-1", models.RoleCustomer)

	_, body := call(t, app, "POST", "/api/payments", auth, cardBody("ORD-1", "20.00", sandbox.CardSuccess))
	id := data(t, body)["transaction_id"].(string)

	status, _ := call(t, app, "GET", "/api/payments/"+id+"/gateway-status", auth, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, body = call(t, app, "GET", "/api/payments/"+id+"/gateway-status", bearer(t, "ADMIN-1", models.RoleAdmin), nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "APPROVED", data(t, body)["status"])
}

func TestPaymentHandler_ListMyPayments(t *testing.T) {
	app, _ := newTestApp(t, nil)
	auth := bearer(t, "CUST-1", models.RoleCustomer)

	call(t, app, "POST", "/api/payments", auth, cardBody("ORD-1", "20.00", sandbox.CardSuccess))
	call(t, app, "POST", "/api/payments", auth, cardBody("ORD-2", "20.00", sandbox.CardDeclined))
	call(t, app, "POST", "/api/payments", auth, cardBody("ORD-3", "20.00", sandbox.CardSuccess))

	status, body := call(t, app, "GET", "/api/customers/me/payments?limit=2", auth, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["data"], 2)
	meta := body["meta"].(map[string]interface{})
	assert.Equal(t, float64(3), meta["total_items"])
	assert.Equal(t, float64(2), meta["total_pages"])

	status, body = call(t, app, "GET", "/api/customers/me/payments?status=failed", auth, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["data"], 1)

	status, _ = call(t, app, "GET", "/api/customers/me/payments?status=bogus", auth, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestPaymentHandler_AvailableMethods(t *testing.T) {
	app, gw := newTestApp(t, nil)
	auth := bearer(t, "CUST-1", models.RoleCustomer)

	status, body := call(t, app, "GET", "/api/payments/methods", auth, nil)
	require.Equal(t, fiber.StatusOK, status)
	methods := body["data"].([]interface{})
	require.Len(t, methods, 2)
	assert.Equal(t, true, methods[0].(map[string]interface{})["available"])

	gw.SetHealthy(false)
	_, body = call(t, app, "GET", "/api/payments/methods", auth, nil)
	assert.Equal(t, false, body["data"].([]interface{})[0].(map[string]interface{})["available"])
}

func TestHealthHandler(t *testing.T) {
	healthy, _ := newTestApp(t, map[string]HealthCheckFunc{
		"database": func(context.Context) error { return nil },
	})
	status, body := call(t, healthy, "GET", "/health", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	degraded, _ := newTestApp(t, map[string]HealthCheckFunc{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})
	status, body = call(t, degraded, "GET", "/health", "", nil)
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	services := body["services"].(map[string]interface{})
	assert.Equal(t, "connected", services["database"])
	assert.Contains(t, services["redis"], "connection refused")
}
