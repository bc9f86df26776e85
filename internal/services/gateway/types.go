package gateway

import (
	"context"
	"time"

	"paycore/internal/domain/payment"

	"github.com/shopspring/decimal"
)

// Gateway is the port to an external payment processor. A returned error
// means the call did not complete (transport failure, deadline); processor
// declines come back as a Result with Success false.
type Gateway interface {
	ProcessCreditCardPayment(ctx context.Context, req Request) (Result, error)
	ProcessBankTransfer(ctx context.Context, req Request) (Result, error)
	ProcessRefund(ctx context.Context, req RefundRequest) (Result, error)
	QueryPaymentStatus(ctx context.Context, gatewayTransactionID string) (Result, error)
	IsGatewayHealthy(ctx context.Context) bool
}

// Request is a charge submitted to a gateway. MerchantReference doubles as
// the idempotency key: resubmitting the same reference must not charge twice.
type Request struct {
	TransactionID     string
	MerchantReference string
	OrderID           string
	CustomerID        string
	Amount            decimal.Decimal
	Currency          string
	Method            payment.Method
	Card              *payment.Card
	BankAccount       *payment.BankAccount
	Description       string
}

// NewRequest builds the charge request for tx.
func NewRequest(tx *payment.Transaction, currency string) Request {
	req := Request{
		TransactionID:     tx.ID(),
		MerchantReference: tx.MerchantReference(),
		OrderID:           tx.OrderID(),
		CustomerID:        tx.CustomerID(),
		Amount:            tx.Amount(),
		Currency:          currency,
		Method:            tx.Method(),
		Description:       tx.Description(),
	}
	if card, ok := tx.Card(); ok {
		req.Card = &card
	}
	if acct, ok := tx.BankAccount(); ok {
		req.BankAccount = &acct
	}
	return req
}

// RefundRequest returns money for a previously captured charge.
type RefundRequest struct {
	RefundTransactionID       string
	MerchantReference         string
	OriginalMerchantReference string
	GatewayTransactionID      string
	// Amount is the net amount returned to the customer, after fees.
	Amount   decimal.Decimal
	Currency string
	Reason   string
	Method   payment.Method
}

// ResultStatus is the coarse outcome reported by a gateway.
type ResultStatus string

const (
	StatusApproved ResultStatus = "APPROVED"
	StatusDeclined ResultStatus = "DECLINED"
	StatusError    ResultStatus = "ERROR"
)

// Result is the normalized outcome of a gateway call.
type Result struct {
	Success              bool                `json:"success"`
	Status               ResultStatus        `json:"status"`
	GatewayTransactionID string              `json:"gateway_transaction_id"`
	Amount               decimal.Decimal     `json:"amount"`
	ResponseCode         string              `json:"response_code"`
	ResponseMessage      string              `json:"response_message"`
	FailureReason        payment.FailureCode `json:"failure_reason,omitempty"`
	Retryable            bool                `json:"retryable"`
	ProcessedAt          time.Time           `json:"processed_at"`
}

// Succeeded builds an approved Result.
func Succeeded(gatewayTxID string, amount decimal.Decimal, code, message string) Result {
	return Result{
		Success:              true,
		Status:               StatusApproved,
		GatewayTransactionID: gatewayTxID,
		Amount:               amount,
		ResponseCode:         code,
		ResponseMessage:      message,
		ProcessedAt:          time.Now().UTC(),
	}
}

// Failed builds a failure Result. Retryable failures are reported as ERROR,
// the rest as DECLINED.
func Failed(reason payment.FailureCode, message string) Result {
	status := StatusDeclined
	if reason.Retryable() {
		status = StatusError
	}
	if message == "" {
		message = reason.Description()
	}
	return Result{
		Status:          status,
		ResponseCode:    string(reason),
		ResponseMessage: message,
		FailureReason:   reason,
		Retryable:       reason.Retryable(),
		ProcessedAt:     time.Now().UTC(),
	}
}
