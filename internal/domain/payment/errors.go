package payment

import (
	domainerr "paycore/internal/errors"
)

// Domain errors. Use errors.Is against these; the returned values may carry
// a more specific message.
var (
	ErrInvalidCard             = domainerr.Validation(string(FailureInvalidCard), "invalid card number")
	ErrExpiredCard             = domainerr.Validation(string(FailureExpiredCard), "card has expired")
	ErrInvalidCVV              = domainerr.Validation(string(FailureInvalidCVV), "invalid card security code")
	ErrInvalidCardHolder       = domainerr.Validation(string(FailureInvalidCard), "invalid card holder name")
	ErrInvalidAccount          = domainerr.Validation(string(FailureInvalidAccount), "invalid bank account")
	ErrInvalidAmount           = domainerr.Validation(string(FailureInvalidAmount), "invalid amount")
	ErrInvalidMethod           = domainerr.Validation("INVALID_METHOD", "invalid payment method")
	ErrInvalidTransaction      = domainerr.Validation("INVALID_TRANSACTION", "invalid transaction")
	ErrInvalidTransactionState = domainerr.BusinessRule(string(FailureInvalidTransactionState), "invalid transaction state")
	ErrDuplicatePayment        = domainerr.BusinessRule(string(FailureDuplicatePayment), "order has already been paid")
	ErrLimitExceeded           = domainerr.BusinessRule(string(FailureLimitExceeded), "payment limit exceeded")
	ErrTransactionNotFound     = domainerr.NotFound("TRANSACTION_NOT_FOUND", "transaction not found")
	ErrAccessDenied            = domainerr.Forbidden("ACCESS_DENIED", "transaction does not belong to customer")
	ErrConcurrentModification  = domainerr.Conflict("CONCURRENT_MODIFICATION", "transaction was modified concurrently")
	ErrDuplicateReference      = domainerr.Conflict("DUPLICATE_REFERENCE", "merchant reference already exists")
)

func invalidState(op string, from Status) error {
	return ErrInvalidTransactionState.WithMessage("cannot %s transaction in status %s", op, from)
}
