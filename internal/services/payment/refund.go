package payment

import (
	"context"
	"time"

	"paycore/internal/domain/payment"
	"paycore/internal/services/gateway"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProcessRefund records a refund against a settled payment and then asks
// the gateway to return the net amount.
//
// The ledger change (refund record plus the original's refunded amount) is
// committed first, in one unit of work. The gateway call happens after the
// commit; its answer is annotated on the refund record and reported in the
// response, but does not roll the ledger back.
func (s *service) ProcessRefund(ctx context.Context, req RefundRequest) (*RefundResponse, error) {
	defer s.observe(opProcessRefund, time.Now())

	if !payment.ValidAmount(req.Amount) {
		return nil, s.fail(opProcessRefund, payment.ErrInvalidAmount.WithMessage("refund amount must be positive with at most 2 decimal places"))
	}

	var (
		original *payment.Transaction
		refund   *payment.Transaction
		fee      decimal.Decimal
		strategy gateway.Strategy
	)
	err := s.repo.WithinTx(ctx, func(repo payment.Repository) error {
		tx, err := repo.FindByID(ctx, req.TransactionID)
		if err != nil {
			return err
		}
		if req.CustomerID != "" && tx.CustomerID() != req.CustomerID {
			return payment.ErrAccessDenied
		}
		if !tx.CanBeRefunded() {
			return payment.ErrInvalidTransactionState.WithMessage("cannot refund transaction in status %s", tx.Status())
		}
		if available := tx.AvailableRefundAmount(); req.Amount.GreaterThan(available) {
			return payment.ErrInvalidAmount.WithMessage("refund amount %s exceeds available %s",
				req.Amount.StringFixed(2), available.StringFixed(2))
		}
		if strategy, err = s.registry.Strategy(tx.Method()); err != nil {
			return err
		}

		fee = s.rules.CalculateRefundFee(tx, req.Amount)
		r, err := tx.RefundWithFee(req.Amount, fee, req.Reason)
		if err != nil {
			return err
		}
		if original, err = repo.Save(ctx, tx); err != nil {
			return err
		}
		refund, err = repo.Save(ctx, r)
		return err
	})
	if err != nil {
		return nil, s.fail(opProcessRefund, err)
	}

	log := s.logger.With(
		zap.String("transaction_id", original.ID()),
		zap.String("refund_transaction_id", refund.ID()),
		zap.String("merchant_reference", refund.MerchantReference()),
	)
	net := req.Amount.Sub(fee)
	log.Info("refund recorded",
		zap.String("amount", req.Amount.StringFixed(2)),
		zap.String("fee", fee.StringFixed(2)),
		zap.String("original_status", string(original.Status())),
	)

	var result gateway.Result
	if net.IsPositive() {
		rr := gateway.RefundRequest{
			RefundTransactionID:       refund.ID(),
			MerchantReference:         refund.MerchantReference(),
			OriginalMerchantReference: original.MerchantReference(),
			GatewayTransactionID:      original.GatewayTransactionID(),
			Amount:                    net,
			Currency:                  s.config.Currency,
			Reason:                    req.Reason,
			Method:                    original.Method(),
		}
		result = s.dispatch(ctx, opProcessRefund, func(ctx context.Context) gateway.Result {
			return strategy.ProcessRefund(ctx, rr)
		})
	} else {
		result = gateway.Succeeded("", decimal.Zero, "NO_AMOUNT", "refund amount fully covered by fee")
	}

	if err := refund.RecordGatewayOutcome(result.GatewayTransactionID, result.ResponseMessage, result.FailureReason); err == nil {
		if saved, err := s.save(ctx, refund); err != nil {
			log.Error("failed to record refund gateway outcome", zap.Error(err))
		} else {
			refund = saved
		}
	}

	resp := &RefundResponse{
		Success:               result.Success,
		RefundTransactionID:   refund.ID(),
		OriginalTransactionID: original.ID(),
		MerchantReference:     refund.MerchantReference(),
		Amount:                req.Amount,
		Fee:                   fee,
		NetAmount:             net,
		OriginalStatus:        original.Status(),
		RefundedAmount:        original.RefundedAmount(),
		AvailableRefund:       original.AvailableRefundAmount(),
		GatewayTransactionID:  result.GatewayTransactionID,
		FailureCode:           result.FailureReason,
		Message:               result.ResponseMessage,
		Retryable:             result.Retryable,
		Original:              original,
		Refund:                refund,
	}

	if result.Success {
		s.metrics.RecordOperationResult(opProcessRefund, "success")
		s.notify(ctx, payment.EventRefundSucceeded, refund, req.Reason)
	} else {
		log.Warn("refund gateway call failed",
			zap.String("failure_code", string(result.FailureReason)),
			zap.Bool("retryable", result.Retryable),
		)
		s.metrics.RecordOperationResult(opProcessRefund, "failed")
		s.metrics.RecordError(opProcessRefund, string(result.FailureReason))
		s.notify(ctx, payment.EventRefundFailed, refund, result.ResponseMessage)
	}
	return resp, nil
}
