package handlers

import (
	"strings"

	"paycore/internal/domain/payment"
	paymentsvc "paycore/internal/services/payment"
	"paycore/internal/utils"
	"paycore/internal/utils/pagination"
	"paycore/internal/utils/response"
	"paycore/internal/utils/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type cardRequest struct {
	Number      string `json:"number" validate:"required,numeric"`
	Holder      string `json:"holder" validate:"required,max=100"`
	ExpiryMonth int    `json:"expiry_month" validate:"required,min=1,max=12"`
	ExpiryYear  int    `json:"expiry_year" validate:"required"`
	CVV         string `json:"cvv" validate:"required,numeric"`
}

func (r *cardRequest) input() *paymentsvc.CardInput {
	if r == nil {
		return nil
	}
	return &paymentsvc.CardInput{
		Number:      r.Number,
		Holder:      r.Holder,
		ExpiryMonth: r.ExpiryMonth,
		ExpiryYear:  r.ExpiryYear,
		CVV:         r.CVV,
	}
}

type bankAccountRequest struct {
	AccountNumber string `json:"account_number" validate:"required"`
	BankCode      string `json:"bank_code" validate:"required"`
	Holder        string `json:"holder" validate:"required,max=100"`
}

func (r *bankAccountRequest) input() *paymentsvc.BankAccountInput {
	if r == nil {
		return nil
	}
	return &paymentsvc.BankAccountInput{
		AccountNumber: r.AccountNumber,
		BankCode:      r.BankCode,
		Holder:        r.Holder,
	}
}

type createPaymentRequest struct {
	OrderID     string              `json:"order_id" validate:"required,max=64"`
	Amount      decimal.Decimal     `json:"amount"`
	Method      string              `json:"method" validate:"required"`
	Card        *cardRequest        `json:"card" validate:"omitempty"`
	BankAccount *bankAccountRequest `json:"bank_account" validate:"omitempty"`
	Description string              `json:"description" validate:"max=500"`
}

type retryPaymentRequest struct {
	Card        *cardRequest        `json:"card" validate:"omitempty"`
	BankAccount *bankAccountRequest `json:"bank_account" validate:"omitempty"`
}

type refundPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason" validate:"max=255"`
}

type cancelPaymentRequest struct {
	Reason string `json:"reason" validate:"max=255"`
}

type PaymentHandler struct {
	service paymentsvc.Service
	logger  *zap.Logger
}

func NewPaymentHandler(service paymentsvc.Service, logger *zap.Logger) *PaymentHandler {
	if service == nil {
		panic("payment service is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentHandler{
		service: service,
		logger:  logger.Named("http"),
	}
}

// parseBody decodes and validates the JSON body into dst. It writes the
// error response itself and reports whether the handler may continue.
func parseBody(c *fiber.Ctx, dst interface{}) (bool, error) {
	if len(c.Body()) > 0 {
		if err := c.BodyParser(dst); err != nil {
			return false, response.BadRequest(c, "Invalid request format")
		}
	}
	v := validation.New()
	v.Struct(dst)
	if !v.Valid() {
		return false, response.ValidationError(c, v.Errors)
	}
	return true, nil
}

// ProcessPayment charges the caller for an order. A declined charge is
// still a recorded transaction and is answered with 402.
func (h *PaymentHandler) ProcessPayment(c *fiber.Ctx) error {
	claims, err := utils.GetClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	var body createPaymentRequest
	if ok, err := parseBody(c, &body); !ok {
		return err
	}

	resp, err := h.service.ProcessPayment(c.UserContext(), paymentsvc.PaymentRequest{
		OrderID:     body.OrderID,
		CustomerID:  claims.CustomerID,
		Amount:      body.Amount,
		Method:      payment.Method(strings.ToUpper(body.Method)),
		Card:        body.Card.input(),
		BankAccount: body.BankAccount.input(),
		Description: body.Description,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	if !resp.Success {
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
			"message": "Payment failed",
			"data":    resp,
		})
	}
	return response.Created(c, "Payment successful", resp)
}

func (h *PaymentHandler) GetPayment(c *fiber.Ctx) error {
	claims, err := utils.GetClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	tx, err := h.lookup(c, claims.ScopeCustomerID())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Payment retrieved", tx.Snapshot())
}

// lookup loads the :id transaction, restricted to customerID unless it is
// empty.
func (h *PaymentHandler) lookup(c *fiber.Ctx, customerID string) (*payment.Transaction, error) {
	if customerID == "" {
		return h.service.GetTransaction(c.UserContext(), c.Params("id"))
	}
	return h.service.GetCustomerTransaction(c.UserContext(), c.Params("id"), customerID)
}

func (h *PaymentHandler) CancelPayment(c *fiber.Ctx) error {
	claims, err := utils.GetClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	var body cancelPaymentRequest
	if ok, err := parseBody(c, &body); !ok {
		return err
	}

	if _, err := h.lookup(c, claims.ScopeCustomerID()); err != nil {
		return response.FromError(c, err)
	}
	tx, err := h.service.CancelPayment(c.UserContext(), c.Params("id"), body.Reason)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Payment cancelled", tx.Snapshot())
}

func (h *PaymentHandler) RetryPayment(c *fiber.Ctx) error {
	claims, err := utils.GetClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	var body retryPaymentRequest
	if ok, err := parseBody(c, &body); !ok {
		return err
	}

	resp, err := h.service.RetryPayment(c.UserContext(), paymentsvc.RetryRequest{
		TransactionID: c.Params("id"),
		CustomerID:    claims.ScopeCustomerID(),
		Card:          body.Card.input(),
		BankAccount:   body.BankAccount.input(),
	})
	if err != nil {
		return response.FromError(c, err)
	}
	if !resp.Success {
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
			"message": "Retry failed",
			"data":    resp,
		})
	}
	return response.Success(c, "Retry successful", resp)
}

// RefundPayment records a refund. The ledger entry stands even when the
// gateway rejects the payout; the response says which happened.
func (h *PaymentHandler) RefundPayment(c *fiber.Ctx) error {
	claims, err := utils.GetClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	var body refundPaymentRequest
	if ok, err := parseBody(c, &body); !ok {
		return err
	}

	resp, err := h.service.ProcessRefund(c.UserContext(), paymentsvc.RefundRequest{
		TransactionID: c.Params("id"),
		CustomerID:    claims.ScopeCustomerID(),
		Amount:        body.Amount,
		Reason:        body.Reason,
	})
	if err != nil {
		return response.FromError(c, err)
	}

	message := "Refund processed"
	if !resp.Success {
		h.logger.Warn("refund recorded but rejected by gateway",
			zap.String("refund_transaction_id", resp.RefundTransactionID),
			zap.String("failure_code", string(resp.FailureCode)),
		)
		message = "Refund recorded, gateway payout failed"
	}
	return response.Created(c, message, resp)
}

func (h *PaymentHandler) GatewayStatus(c *fiber.Ctx) error {
	res, err := h.service.QueryGatewayStatus(c.UserContext(), c.Params("id"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Gateway status retrieved", res)
}

// ListOrderPayments lists an order's transactions. Customers only see their
// own.
func (h *PaymentHandler) ListOrderPayments(c *fiber.Ctx) error {
	claims, err := utils.GetClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	txs, err := h.service.ListOrderTransactions(c.UserContext(), c.Params("orderId"))
	if err != nil {
		return response.FromError(c, err)
	}

	scope := claims.ScopeCustomerID()
	views := make([]payment.Snapshot, 0, len(txs))
	for _, tx := range txs {
		if scope != "" && tx.CustomerID() != scope {
			continue
		}
		views = append(views, tx.Snapshot())
	}
	return response.Success(c, "Payments retrieved", views)
}

func (h *PaymentHandler) ListMyPayments(c *fiber.Ctx) error {
	claims, err := utils.GetClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	var status payment.Status
	if raw := c.Query("status"); raw != "" {
		status, err = payment.ParseStatus(strings.ToUpper(raw))
		if err != nil {
			return response.BadRequest(c, err.Error())
		}
	}

	txs, err := h.service.ListCustomerTransactions(c.UserContext(), claims.CustomerID, status)
	if err != nil {
		return response.FromError(c, err)
	}

	p := pagination.ParseFromRequest(c)
	start, end := p.Window(len(txs))
	views := make([]payment.Snapshot, 0, end-start)
	for _, tx := range txs[start:end] {
		views = append(views, tx.Snapshot())
	}
	return c.JSON(pagination.Response(p, views))
}

func (h *PaymentHandler) AvailableMethods(c *fiber.Ctx) error {
	return response.Success(c, "Payment methods retrieved", h.service.AvailableMethods(c.UserContext()))
}
