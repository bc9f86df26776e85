// Package retry decides whether a failed payment may be resubmitted and
// resubmits it through the strategy that handled the original attempt.
package retry

import (
	"context"
	"fmt"

	"paycore/internal/domain/payment"
	"paycore/internal/services/gateway"

	"go.uber.org/zap"
)

// Eligibility reports whether an order is still under its retry ceiling.
// rules.Service satisfies it.
type Eligibility interface {
	CanRetryPayment(ctx context.Context, orderID string) (bool, error)
}

// Strategies resolves the strategy for a method. *gateway.Registry
// satisfies it.
type Strategies interface {
	Strategy(method payment.Method) (gateway.Strategy, error)
}

type Policy struct {
	strategies Strategies
	rules      Eligibility
	logger     *zap.Logger
}

func NewPolicy(strategies Strategies, rules Eligibility, logger *zap.Logger) *Policy {
	if strategies == nil {
		panic("strategies are required")
	}
	if rules == nil {
		panic("rules are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Policy{strategies: strategies, rules: rules, logger: logger.Named("retry")}
}

// RetryPayment reopens tx and resubmits it. The request is forced onto the
// transaction's own merchant reference, method and amount so the gateway
// sees the same logical attempt. On error tx is left unchanged; on success
// tx is PROCESSING and the caller records the returned Result.
func (p *Policy) RetryPayment(ctx context.Context, tx *payment.Transaction, req gateway.Request) (gateway.Result, error) {
	ok, err := p.rules.CanRetryPayment(ctx, tx.OrderID())
	if err != nil {
		return gateway.Result{}, fmt.Errorf("failed to check retry eligibility: %w", err)
	}
	if !ok {
		return gateway.Result{}, payment.ErrLimitExceeded.WithMessage("retry limit reached for order %s", tx.OrderID())
	}

	strategy, err := p.strategies.Strategy(tx.Method())
	if err != nil {
		return gateway.Result{}, err
	}
	if err := tx.RecordRetry(); err != nil {
		return gateway.Result{}, err
	}

	req.TransactionID = tx.ID()
	req.MerchantReference = tx.MerchantReference()
	req.Method = tx.Method()
	req.Amount = tx.Amount()

	p.logger.Info("retrying payment",
		zap.String("transaction_id", tx.ID()),
		zap.String("merchant_reference", tx.MerchantReference()),
		zap.Int("attempt", tx.RetryCount()+1),
	)
	return strategy.ProcessPayment(ctx, req), nil
}

// IsRetryableFailure reports whether code allows resubmission.
func IsRetryableFailure(code payment.FailureCode) bool {
	return code.Retryable()
}
