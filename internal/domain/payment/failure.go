package payment

// FailureCode is the normalized reason attached to a failed money movement.
type FailureCode string

const (
	FailureInvalidCard             FailureCode = "INVALID_CARD"
	FailureExpiredCard             FailureCode = "EXPIRED_CARD"
	FailureInvalidCVV              FailureCode = "INVALID_CVV"
	FailureInvalidAccount          FailureCode = "INVALID_ACCOUNT"
	FailureInsufficientFunds       FailureCode = "INSUFFICIENT_FUNDS"
	FailureCardDeclined            FailureCode = "CARD_DECLINED"
	FailureNetworkError            FailureCode = "NETWORK_ERROR"
	FailureTimeout                 FailureCode = "TIMEOUT"
	FailureSystemError             FailureCode = "SYSTEM_ERROR"
	FailureLimitExceeded           FailureCode = "LIMIT_EXCEEDED"
	FailureInvalidTransactionState FailureCode = "INVALID_TRANSACTION_STATE"
	FailureInvalidAmount           FailureCode = "INVALID_AMOUNT"
	FailureDuplicatePayment        FailureCode = "DUPLICATE_PAYMENT"
)

var retryableFailures = map[FailureCode]bool{
	FailureNetworkError: true,
	FailureTimeout:      true,
	FailureSystemError:  true,
}

var failureDescriptions = map[FailureCode]string{
	FailureInvalidCard:             "card number is invalid",
	FailureExpiredCard:             "card has expired",
	FailureInvalidCVV:              "card security code is invalid",
	FailureInvalidAccount:          "bank account details are invalid",
	FailureInsufficientFunds:       "insufficient funds",
	FailureCardDeclined:            "card was declined",
	FailureNetworkError:            "payment gateway is unreachable",
	FailureTimeout:                 "payment gateway timed out",
	FailureSystemError:             "payment system error",
	FailureLimitExceeded:           "payment limit exceeded",
	FailureInvalidTransactionState: "transaction is not in a valid state for this operation",
	FailureInvalidAmount:           "invalid amount",
	FailureDuplicatePayment:        "order has already been paid",
}

// Retryable reports whether the same attempt may be resubmitted under the
// same merchant reference.
func (c FailureCode) Retryable() bool { return retryableFailures[c] }

// Description is a short human readable explanation of the code.
func (c FailureCode) Description() string {
	if d, ok := failureDescriptions[c]; ok {
		return d
	}
	return "unknown failure"
}

// Known reports whether c is part of the failure taxonomy.
func (c FailureCode) Known() bool {
	_, ok := failureDescriptions[c]
	return ok
}

func (c FailureCode) String() string { return string(c) }
