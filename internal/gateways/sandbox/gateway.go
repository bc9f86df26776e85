// Package sandbox is an in-process payment gateway for development and
// tests. It answers according to well-known test card numbers and settles
// everything else.
package sandbox

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"paycore/internal/domain/payment"
	"paycore/internal/services/gateway"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Test card numbers and the outcome they produce.
const (
	CardSuccess           = "4242424242424242"
	CardDeclined          = "4000000000000002"
	CardInsufficientFunds = "4000000000009995"
	CardExpired           = "4000000000000069"
	CardProcessingError   = "4000000000000119"
)

var cardOutcomes = map[string]payment.FailureCode{
	CardDeclined:          payment.FailureCardDeclined,
	CardInsufficientFunds: payment.FailureInsufficientFunds,
	CardExpired:           payment.FailureExpiredCard,
	CardProcessingError:   payment.FailureSystemError,
}

// Bank accounts starting with this prefix are rejected.
const RejectedAccountPrefix = "000"

type charge struct {
	id       string
	ref      string
	amount   decimal.Decimal
	refunded decimal.Decimal
	result   gateway.Result
}

type Option func(*Gateway)

// WithLatency delays every call by d, honoring context cancellation.
func WithLatency(d time.Duration) Option {
	return func(g *Gateway) { g.latency = d }
}

func WithLogger(logger *zap.Logger) Option {
	return func(g *Gateway) { g.logger = logger.Named("sandbox") }
}

// Gateway is safe for concurrent use. Charges are idempotent by merchant
// reference: a reference that already settled returns the settled result.
type Gateway struct {
	mu      sync.Mutex
	byID    map[string]*charge
	byRef   map[string]*charge
	refunds map[string]gateway.Result

	latency time.Duration
	healthy atomic.Bool
	calls   atomic.Int64
	logger  *zap.Logger
}

func New(opts ...Option) *Gateway {
	g := &Gateway{
		byID:    map[string]*charge{},
		byRef:   map[string]*charge{},
		refunds: map[string]gateway.Result{},
		logger:  zap.NewNop(),
	}
	g.healthy.Store(true)
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// SetHealthy toggles what IsGatewayHealthy reports.
func (g *Gateway) SetHealthy(healthy bool) {
	g.healthy.Store(healthy)
}

// Calls returns the number of charge and refund calls received.
func (g *Gateway) Calls() int64 {
	return g.calls.Load()
}

func (g *Gateway) ProcessCreditCardPayment(ctx context.Context, req gateway.Request) (gateway.Result, error) {
	if err := g.wait(ctx); err != nil {
		return gateway.Result{}, err
	}
	g.calls.Add(1)

	if req.Card == nil || !req.Card.HasCredentials() {
		return gateway.Failed(payment.FailureInvalidCard, "card credentials are required"), nil
	}
	return g.settle(req, func() (payment.FailureCode, bool) {
		code, declined := cardOutcomes[req.Card.Number()]
		return code, declined
	}), nil
}

func (g *Gateway) ProcessBankTransfer(ctx context.Context, req gateway.Request) (gateway.Result, error) {
	if err := g.wait(ctx); err != nil {
		return gateway.Result{}, err
	}
	g.calls.Add(1)

	if req.BankAccount == nil {
		return gateway.Failed(payment.FailureInvalidAccount, "bank account is required"), nil
	}
	return g.settle(req, func() (payment.FailureCode, bool) {
		if strings.HasPrefix(req.BankAccount.AccountNumber(), RejectedAccountPrefix) {
			return payment.FailureInvalidAccount, true
		}
		return "", false
	}), nil
}

// settle records an approved charge under the request's reference, or
// reports the decline. Declines are not remembered, so a retry is
// evaluated again.
func (g *Gateway) settle(req gateway.Request, outcome func() (payment.FailureCode, bool)) gateway.Result {
	g.mu.Lock()
	defer g.mu.Unlock()

	if existing, ok := g.byRef[req.MerchantReference]; ok {
		g.logger.Info("replaying settled charge", zap.String("merchant_reference", req.MerchantReference))
		return existing.result
	}

	if code, declined := outcome(); declined {
		res := gateway.Failed(code, "")
		res.ResponseCode = "sandbox_" + strings.ToLower(string(code))
		return res
	}

	c := &charge{
		id:       "sbx_" + uuid.NewString(),
		ref:      req.MerchantReference,
		amount:   req.Amount,
		refunded: decimal.Zero,
	}
	c.result = gateway.Succeeded(c.id, req.Amount, "approved", "sandbox charge approved")
	g.byID[c.id] = c
	g.byRef[c.ref] = c
	return c.result
}

func (g *Gateway) ProcessRefund(ctx context.Context, req gateway.RefundRequest) (gateway.Result, error) {
	if err := g.wait(ctx); err != nil {
		return gateway.Result{}, err
	}
	g.calls.Add(1)

	g.mu.Lock()
	defer g.mu.Unlock()

	if res, ok := g.refunds[req.MerchantReference]; ok {
		return res, nil
	}
	c, ok := g.byID[req.GatewayTransactionID]
	if !ok {
		return gateway.Failed(payment.FailureInvalidTransactionState, "unknown charge "+req.GatewayTransactionID), nil
	}
	if left := c.amount.Sub(c.refunded); req.Amount.GreaterThan(left) {
		return gateway.Failed(payment.FailureInvalidAmount, fmt.Sprintf("refund exceeds remaining %s", left.StringFixed(2))), nil
	}

	c.refunded = c.refunded.Add(req.Amount)
	res := gateway.Succeeded("sbx_re_"+uuid.NewString(), req.Amount, "refunded", "sandbox refund approved")
	g.refunds[req.MerchantReference] = res
	return res, nil
}

func (g *Gateway) QueryPaymentStatus(ctx context.Context, gatewayTransactionID string) (gateway.Result, error) {
	if err := g.wait(ctx); err != nil {
		return gateway.Result{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	c, ok := g.byID[gatewayTransactionID]
	if !ok {
		return gateway.Failed(payment.FailureInvalidTransactionState, "unknown charge "+gatewayTransactionID), nil
	}
	res := c.result
	res.ResponseMessage = fmt.Sprintf("settled %s, refunded %s", c.amount.StringFixed(2), c.refunded.StringFixed(2))
	return res, nil
}

func (g *Gateway) IsGatewayHealthy(ctx context.Context) bool {
	return g.healthy.Load()
}

func (g *Gateway) wait(ctx context.Context) error {
	if g.latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(g.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
