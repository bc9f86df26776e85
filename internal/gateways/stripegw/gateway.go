// Package stripegw implements the payment gateway port on Stripe charges
// and refunds.
package stripegw

import (
	"context"
	"fmt"
	"strings"

	"paycore/internal/domain/payment"
	"paycore/internal/services/gateway"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"
	"go.uber.org/zap"
)

type chargeAPI interface {
	New(params *stripe.ChargeParams) (*stripe.Charge, error)
	Get(id string, params *stripe.ChargeParams) (*stripe.Charge, error)
}

type refundAPI interface {
	New(params *stripe.RefundParams) (*stripe.Refund, error)
}

type tokenAPI interface {
	New(params *stripe.TokenParams) (*stripe.Token, error)
}

type balanceAPI interface {
	Get(params *stripe.BalanceParams) (*stripe.Balance, error)
}

// Gateway charges cards through Stripe. Bank transfers are not offered.
type Gateway struct {
	charges chargeAPI
	refunds refundAPI
	tokens  tokenAPI
	balance balanceAPI
	logger  *zap.Logger
}

// New creates a Gateway using secretKey.
func New(secretKey string, logger *zap.Logger) *Gateway {
	if secretKey == "" {
		panic("stripe secret key is required")
	}
	sc := client.New(secretKey, nil)
	return newGateway(sc.Charges, sc.Refunds, sc.Tokens, sc.Balance, logger)
}

func newGateway(charges chargeAPI, refunds refundAPI, tokens tokenAPI, balance balanceAPI, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		charges: charges,
		refunds: refunds,
		tokens:  tokens,
		balance: balance,
		logger:  logger.Named("stripe"),
	}
}

func (g *Gateway) ProcessCreditCardPayment(ctx context.Context, req gateway.Request) (gateway.Result, error) {
	if req.Card == nil || !req.Card.HasCredentials() {
		return gateway.Failed(payment.FailureInvalidCard, "card credentials are required"), nil
	}

	source, err := g.tokenize(ctx, req.Card, req.MerchantReference)
	if err != nil {
		return classify(err)
	}

	params := &stripe.ChargeParams{
		Amount:      stripe.Int64(toMinorUnits(req.Amount)),
		Currency:    stripe.String(strings.ToLower(req.Currency)),
		Description: stripe.String(req.Description),
	}
	if err := params.SetSource(source); err != nil {
		return gateway.Result{}, fmt.Errorf("failed to set charge source: %w", err)
	}
	params.Context = ctx
	// Stripe deduplicates on the key, so a retry under the same merchant
	// reference returns the original charge.
	params.SetIdempotencyKey(req.MerchantReference)
	params.AddMetadata("merchant_reference", req.MerchantReference)
	params.AddMetadata("order_id", req.OrderID)
	params.AddMetadata("transaction_id", req.TransactionID)

	ch, err := g.charges.New(params)
	if err != nil {
		g.logger.Info("charge rejected",
			zap.String("merchant_reference", req.MerchantReference),
			zap.Error(err),
		)
		return classify(err)
	}
	return chargeResult(ch), nil
}

func (g *Gateway) ProcessBankTransfer(ctx context.Context, req gateway.Request) (gateway.Result, error) {
	return gateway.Failed(payment.FailureInvalidAccount, "bank transfers are not supported by the stripe gateway"), nil
}

func (g *Gateway) ProcessRefund(ctx context.Context, req gateway.RefundRequest) (gateway.Result, error) {
	params := &stripe.RefundParams{
		Charge: stripe.String(req.GatewayTransactionID),
		Amount: stripe.Int64(toMinorUnits(req.Amount)),
		Reason: stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.MerchantReference)
	params.AddMetadata("merchant_reference", req.MerchantReference)
	params.AddMetadata("original_merchant_reference", req.OriginalMerchantReference)
	if req.Reason != "" {
		params.AddMetadata("reason", req.Reason)
	}

	rf, err := g.refunds.New(params)
	if err != nil {
		return classify(err)
	}

	switch string(rf.Status) {
	case "succeeded", "pending":
		return gateway.Succeeded(rf.ID, fromMinorUnits(rf.Amount), string(rf.Status), "refund "+string(rf.Status)), nil
	default:
		return gateway.Failed(payment.FailureCardDeclined, fmt.Sprintf("refund %s", rf.Status)), nil
	}
}

func (g *Gateway) QueryPaymentStatus(ctx context.Context, gatewayTransactionID string) (gateway.Result, error) {
	params := &stripe.ChargeParams{}
	params.Context = ctx

	ch, err := g.charges.Get(gatewayTransactionID, params)
	if err != nil {
		return classify(err)
	}
	return chargeResult(ch), nil
}

// IsGatewayHealthy reports whether the Stripe API answers a balance read.
func (g *Gateway) IsGatewayHealthy(ctx context.Context) bool {
	params := &stripe.BalanceParams{}
	params.Context = ctx
	if _, err := g.balance.Get(params); err != nil {
		g.logger.Warn("stripe health check failed", zap.Error(err))
		return false
	}
	return true
}

func chargeResult(ch *stripe.Charge) gateway.Result {
	status := string(ch.Status)
	switch {
	case status == "succeeded" && ch.Paid:
		return gateway.Succeeded(ch.ID, fromMinorUnits(ch.Amount), status, "charge succeeded")
	case status == "pending":
		// Not final yet. Reported as a retryable failure; the retry reuses
		// the idempotency key and picks up the settled charge.
		r := gateway.Failed(payment.FailureTimeout, "charge is pending at stripe")
		r.GatewayTransactionID = ch.ID
		return r
	default:
		code := declineCode(string(ch.FailureCode), "")
		msg := ch.FailureMessage
		if msg == "" {
			msg = "charge " + status
		}
		r := gateway.Failed(code, msg)
		r.GatewayTransactionID = ch.ID
		return r
	}
}

func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func fromMinorUnits(amount int64) decimal.Decimal {
	return decimal.New(amount, -2)
}
