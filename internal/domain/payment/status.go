package payment

import "fmt"

// Status is the lifecycle state of a Transaction.
type Status string

const (
	StatusPending         Status = "PENDING"
	StatusProcessing      Status = "PROCESSING"
	StatusSuccess         Status = "SUCCESS"
	StatusFailed          Status = "FAILED"
	StatusCancelled       Status = "CANCELLED"
	StatusRefunded        Status = "REFUNDED"
	StatusPartialRefunded Status = "PARTIAL_REFUNDED"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusSuccess,
	StatusFailed,
	StatusCancelled,
	StatusRefunded,
	StatusPartialRefunded,
}

// Statuses returns every known status in lifecycle order.
func Statuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus validates s against the known statuses.
func ParseStatus(s string) (Status, error) {
	for _, st := range allStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown transaction status %q", s)
}

// IsTerminal reports whether no further transition can leave s.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusFailed, StatusCancelled, StatusRefunded:
		return true
	default:
		return false
	}
}

func (s Status) String() string { return string(s) }

// Kind distinguishes a charge from the refund records linked to it.
type Kind string

const (
	KindPayment Kind = "PAYMENT"
	KindRefund  Kind = "REFUND"
)

// Method is the payment instrument used for a Transaction.
type Method string

const (
	MethodCreditCard   Method = "CREDIT_CARD"
	MethodBankTransfer Method = "BANK_TRANSFER"
)

// ParseMethod validates s against the supported payment methods.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodCreditCard, MethodBankTransfer:
		return Method(s), nil
	default:
		return "", ErrInvalidMethod.WithMessage("unsupported payment method %q", s)
	}
}

// IsCardBased reports whether transactions of this method carry a Card.
func (m Method) IsCardBased() bool { return m == MethodCreditCard }

func (m Method) String() string { return string(m) }
