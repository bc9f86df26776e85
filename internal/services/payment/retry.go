package payment

import (
	"context"
	"time"

	"paycore/internal/domain/payment"
	domainerr "paycore/internal/errors"
	"paycore/internal/services/gateway"
)

func (s *service) RetryPayment(ctx context.Context, req RetryRequest) (*PaymentResponse, error) {
	defer s.observe(opRetryPayment, time.Now())

	tx, err := s.repo.FindByID(ctx, req.TransactionID)
	if err != nil {
		return nil, s.fail(opRetryPayment, err)
	}
	if req.CustomerID != "" && tx.CustomerID() != req.CustomerID {
		return nil, s.fail(opRetryPayment, payment.ErrAccessDenied)
	}
	if tx.Status() != payment.StatusFailed {
		return nil, s.fail(opRetryPayment, payment.ErrInvalidTransactionState.WithMessage("cannot retry transaction in status %s", tx.Status()))
	}
	paid, err := s.repo.HasSuccessfulPaymentForOrder(ctx, tx.OrderID())
	if err != nil {
		return nil, s.fail(opRetryPayment, err)
	}
	if paid {
		// Paid by another attempt under a different merchant reference.
		return nil, s.fail(opRetryPayment, payment.ErrDuplicatePayment.WithMessage("order %s has already been paid", tx.OrderID()))
	}

	gwReq := gateway.NewRequest(tx, s.config.Currency)
	switch tx.Method() {
	case payment.MethodCreditCard:
		if req.Card == nil {
			return nil, s.fail(opRetryPayment, payment.ErrInvalidCard.WithMessage("card details are required to retry a card payment"))
		}
		card, err := s.buildCard(req.Card)
		if err != nil {
			return nil, s.fail(opRetryPayment, err)
		}
		if tx, err = tx.WithCard(card); err != nil {
			return nil, s.fail(opRetryPayment, err)
		}
		gwReq.Card = &card
	case payment.MethodBankTransfer:
		if req.BankAccount != nil {
			acct, err := buildBankAccount(req.BankAccount)
			if err != nil {
				return nil, s.fail(opRetryPayment, err)
			}
			stored, _ := tx.BankAccount()
			if acct.AccountNumber() != stored.AccountNumber() || acct.BankCode() != stored.BankCode() {
				return nil, s.fail(opRetryPayment, payment.ErrInvalidAccount.WithMessage("bank account does not match the original payment"))
			}
		}
	}

	var policyErr error
	result := s.dispatch(ctx, opRetryPayment, func(ctx context.Context) gateway.Result {
		res, err := s.retry.RetryPayment(ctx, tx, gwReq)
		policyErr = err
		return res
	})
	if policyErr != nil {
		return nil, s.fail(opRetryPayment, policyErr)
	}
	if tx.Status() != payment.StatusProcessing {
		return nil, s.fail(opRetryPayment, domainerr.Internal(payment.ErrInvalidTransactionState.WithMessage("retry did not reopen transaction %s", tx.ID())))
	}
	return s.recordOutcome(ctx, opRetryPayment, tx, result)
}
