package gateway

import (
	"context"
	"errors"

	"paycore/internal/domain/payment"
	domainerr "paycore/internal/errors"
)

var (
	ErrUnsupportedMethod  = domainerr.Validation("UNSUPPORTED_METHOD", "payment method is not supported")
	ErrGatewayUnavailable = domainerr.Gateway(string(payment.FailureNetworkError), "payment gateway is unavailable", true)
)

// FromError turns a transport error into a failure Result. Deadlines map to
// TIMEOUT, gateway DomainErrors keep their code, anything else is treated
// as a network failure.
func FromError(err error) Result {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Failed(payment.FailureTimeout, "payment gateway timed out")
	case errors.Is(err, context.Canceled):
		return Failed(payment.FailureNetworkError, "payment gateway call was cancelled")
	}
	if de, ok := domainerr.As(err); ok {
		if code := payment.FailureCode(de.Code); code.Known() {
			return Failed(code, de.Message)
		}
	}
	return Failed(payment.FailureNetworkError, err.Error())
}

// fromValidation maps a domain validation error to a failure Result.
func fromValidation(err error, fallback payment.FailureCode) *Result {
	code := payment.FailureCode(domainerr.CodeOf(err))
	if !code.Known() {
		code = fallback
	}
	msg := err.Error()
	if de, ok := domainerr.As(err); ok {
		msg = de.Message
	}
	r := Failed(code, msg)
	return &r
}
