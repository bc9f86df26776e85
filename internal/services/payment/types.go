package payment

import (
	"time"

	"paycore/internal/domain/payment"

	"github.com/shopspring/decimal"
)

// CardInput carries raw card credentials from the caller.
type CardInput struct {
	Number      string
	Holder      string
	ExpiryMonth int
	ExpiryYear  int
	CVV         string
}

type BankAccountInput struct {
	AccountNumber string
	BankCode      string
	Holder        string
}

type PaymentRequest struct {
	OrderID     string
	CustomerID  string
	Amount      decimal.Decimal
	Method      payment.Method
	Card        *CardInput
	BankAccount *BankAccountInput
	Description string
}

// PaymentResponse reports the outcome of a charge attempt. Success false
// with a FailureCode is a gateway failure, not an error.
type PaymentResponse struct {
	Success              bool                `json:"success"`
	TransactionID        string              `json:"transaction_id"`
	MerchantReference    string              `json:"merchant_reference"`
	Status               payment.Status      `json:"status"`
	Amount               decimal.Decimal     `json:"amount"`
	GatewayTransactionID string              `json:"gateway_transaction_id,omitempty"`
	FailureCode          payment.FailureCode `json:"failure_code,omitempty"`
	Message              string              `json:"message,omitempty"`
	Retryable            bool                `json:"retryable"`
	RetryCount           int                 `json:"retry_count"`
	ProcessedAt          *time.Time          `json:"processed_at,omitempty"`

	Transaction *payment.Transaction `json:"-"`
}

func newPaymentResponse(tx *payment.Transaction) *PaymentResponse {
	resp := &PaymentResponse{
		Success:              tx.Status() == payment.StatusSuccess,
		TransactionID:        tx.ID(),
		MerchantReference:    tx.MerchantReference(),
		Status:               tx.Status(),
		Amount:               tx.Amount(),
		GatewayTransactionID: tx.GatewayTransactionID(),
		FailureCode:          tx.FailureCode(),
		Message:              tx.GatewayResponseText(),
		Retryable:            tx.FailureCode().Retryable(),
		RetryCount:           tx.RetryCount(),
		Transaction:          tx,
	}
	if at, ok := tx.ProcessedAt(); ok {
		resp.ProcessedAt = &at
	}
	return resp
}

// RefundRequest refunds Amount of a settled payment. When CustomerID is set
// the payment must belong to that customer.
type RefundRequest struct {
	TransactionID string
	CustomerID    string
	Amount        decimal.Decimal
	Reason        string
}

// RefundResponse reports a recorded refund and the gateway's answer to it.
// The refund is recorded even when the gateway fails; Success reflects the
// gateway outcome.
type RefundResponse struct {
	Success               bool                `json:"success"`
	RefundTransactionID   string              `json:"refund_transaction_id"`
	OriginalTransactionID string              `json:"original_transaction_id"`
	MerchantReference     string              `json:"merchant_reference"`
	Amount                decimal.Decimal     `json:"amount"`
	Fee                   decimal.Decimal     `json:"fee"`
	NetAmount             decimal.Decimal     `json:"net_amount"`
	OriginalStatus        payment.Status      `json:"original_status"`
	RefundedAmount        decimal.Decimal     `json:"refunded_amount"`
	AvailableRefund       decimal.Decimal     `json:"available_refund"`
	GatewayTransactionID  string              `json:"gateway_transaction_id,omitempty"`
	FailureCode           payment.FailureCode `json:"failure_code,omitempty"`
	Message               string              `json:"message,omitempty"`
	Retryable             bool                `json:"retryable"`

	Original *payment.Transaction `json:"-"`
	Refund   *payment.Transaction `json:"-"`
}

// RetryRequest resubmits a failed payment. Card credentials are never
// stored, so card payments must resupply them; they must describe the
// card used originally.
type RetryRequest struct {
	TransactionID string
	CustomerID    string
	Card          *CardInput
	BankAccount   *BankAccountInput
}

type MethodAvailability struct {
	Method    payment.Method `json:"method"`
	Available bool           `json:"available"`
}
