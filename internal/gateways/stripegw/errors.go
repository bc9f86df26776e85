package stripegw

import (
	"errors"
	"fmt"
	"net/http"

	"paycore/internal/domain/payment"
	"paycore/internal/services/gateway"

	"github.com/stripe/stripe-go/v72"
)

// Stripe card error codes and the failure codes they map to.
var cardErrorCodes = map[string]payment.FailureCode{
	"card_declined":           payment.FailureCardDeclined,
	"expired_card":            payment.FailureExpiredCard,
	"incorrect_cvc":           payment.FailureInvalidCVV,
	"invalid_cvc":             payment.FailureInvalidCVV,
	"incorrect_number":        payment.FailureInvalidCard,
	"invalid_number":          payment.FailureInvalidCard,
	"invalid_expiry_month":    payment.FailureInvalidCard,
	"invalid_expiry_year":     payment.FailureInvalidCard,
	"processing_error":        payment.FailureSystemError,
	"amount_too_small":        payment.FailureInvalidAmount,
	"amount_too_large":        payment.FailureInvalidAmount,
	"charge_already_refunded": payment.FailureInvalidTransactionState,
	"charge_disputed":         payment.FailureInvalidTransactionState,
}

// Stripe decline codes that are more specific than card_declined.
var declineCodes = map[string]payment.FailureCode{
	"insufficient_funds": payment.FailureInsufficientFunds,
	"expired_card":       payment.FailureExpiredCard,
	"incorrect_cvc":      payment.FailureInvalidCVV,
	"incorrect_number":   payment.FailureInvalidCard,
	"processing_error":   payment.FailureSystemError,
}

// declineCode maps a Stripe error code and decline code to a failure code.
// Unknown codes are treated as a plain decline.
func declineCode(code, decline string) payment.FailureCode {
	if fc, ok := declineCodes[decline]; ok {
		return fc
	}
	if fc, ok := cardErrorCodes[code]; ok {
		return fc
	}
	return payment.FailureCardDeclined
}

// classify turns a Stripe client error into a Result or a transport error.
// Card and request errors are answers from Stripe and become failure
// Results; rate limits, Stripe-side faults and connection errors are
// returned as errors so the caller treats them as network failures.
func classify(err error) (gateway.Result, error) {
	var se *stripe.Error
	if !errors.As(err, &se) {
		return gateway.Result{}, err
	}

	msg := se.Msg
	switch {
	case se.HTTPStatusCode == http.StatusTooManyRequests, se.HTTPStatusCode >= http.StatusInternalServerError:
		return gateway.Result{}, fmt.Errorf("stripe unavailable (%d): %w", se.HTTPStatusCode, err)
	case se.Type == stripe.ErrorTypeCard:
		return gateway.Failed(declineCode(string(se.Code), string(se.DeclineCode)), msg), nil
	case se.Type == stripe.ErrorTypeIdempotency:
		return gateway.Failed(payment.FailureDuplicatePayment, msg), nil
	case se.Type == stripe.ErrorTypeInvalidRequest:
		if fc, ok := cardErrorCodes[string(se.Code)]; ok {
			return gateway.Failed(fc, msg), nil
		}
		if se.HTTPStatusCode == http.StatusNotFound {
			return gateway.Failed(payment.FailureInvalidTransactionState, msg), nil
		}
		return gateway.Failed(payment.FailureSystemError, msg), nil
	default:
		return gateway.Result{}, fmt.Errorf("stripe error: %w", err)
	}
}
