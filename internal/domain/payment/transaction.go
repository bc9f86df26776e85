// Package payment holds the payment aggregate: the Transaction state
// machine, the Card and BankAccount value types and the failure taxonomy.
//
// A Transaction is created in PENDING and only changes through its
// transition methods:
//
//	PENDING    -> PROCESSING (StartProcessing) | CANCELLED (Cancel)
//	PROCESSING -> SUCCESS (MarkAsSuccess) | FAILED (MarkAsFailed) | CANCELLED (Cancel)
//	SUCCESS, PARTIAL_REFUNDED -> PARTIAL_REFUNDED | REFUNDED (Refund)
//
// FAILED, CANCELLED and REFUNDED are terminal. A refund never edits history:
// it produces a new linked Transaction with a negative amount.
package payment

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// MaxDescriptionLength bounds Transaction descriptions, in characters.
	MaxDescriptionLength = 500

	paymentReferencePrefix = "PAY-"
	refundReferenceInfix   = "-RF-"
	refundDescriptionTag   = "[REFUND] "
)

// Transaction is the payment aggregate root. One Transaction records one
// payment or refund attempt and its outcome.
type Transaction struct {
	id                string
	merchantReference string
	orderID           string
	customerID        string
	kind              Kind
	parentID          string

	amount         decimal.Decimal
	refundedAmount decimal.Decimal
	fee            decimal.Decimal

	method      Method
	card        *Card
	bankAccount *BankAccount

	status               Status
	description          string
	gatewayTransactionID string
	gatewayResponseText  string
	failureCode          FailureCode
	cancelReason         string
	retryCount           int
	processedAt          *time.Time

	createdAt time.Time
	updatedAt time.Time
	version   int64
}

// NewTransactionParams carries the inputs of NewTransaction.
type NewTransactionParams struct {
	OrderID     string
	CustomerID  string
	Amount      decimal.Decimal
	Method      Method
	Card        *Card
	BankAccount *BankAccount
	Description string
	// Now overrides the creation time. Zero means time.Now.
	Now time.Time
}

// NewTransaction validates p and returns a PENDING payment with a freshly
// minted id and merchant reference.
func NewTransaction(p NewTransactionParams) (*Transaction, error) {
	now := p.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	if strings.TrimSpace(p.OrderID) == "" {
		return nil, ErrInvalidTransaction.WithMessage("order id is required")
	}
	if strings.TrimSpace(p.CustomerID) == "" {
		return nil, ErrInvalidTransaction.WithMessage("customer id is required")
	}
	if !ValidAmount(p.Amount) {
		return nil, ErrInvalidAmount.WithMessage("amount must be positive with at most 2 decimal places")
	}
	if _, err := ParseMethod(string(p.Method)); err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(p.Description) > MaxDescriptionLength {
		return nil, ErrInvalidTransaction.WithMessage("description exceeds %d characters", MaxDescriptionLength)
	}

	switch p.Method {
	case MethodCreditCard:
		if p.Card == nil {
			return nil, ErrInvalidCard.WithMessage("card is required for card payments")
		}
		if err := p.Card.Validate(now); err != nil {
			return nil, err
		}
	default:
		if p.Card != nil {
			return nil, ErrInvalidTransaction.WithMessage("card is only accepted for card payments")
		}
	}

	switch p.Method {
	case MethodBankTransfer:
		if p.BankAccount == nil {
			return nil, ErrInvalidAccount.WithMessage("bank account is required for bank transfers")
		}
		if err := p.BankAccount.Validate(); err != nil {
			return nil, err
		}
	default:
		if p.BankAccount != nil {
			return nil, ErrInvalidTransaction.WithMessage("bank account is only accepted for bank transfers")
		}
	}

	return &Transaction{
		id:                uuid.NewString(),
		merchantReference: paymentReferencePrefix + uuid.NewString(),
		orderID:           strings.TrimSpace(p.OrderID),
		customerID:        strings.TrimSpace(p.CustomerID),
		kind:              KindPayment,
		amount:            p.Amount,
		refundedAmount:    decimal.Zero,
		fee:               decimal.Zero,
		method:            p.Method,
		card:              p.Card,
		bankAccount:       p.BankAccount,
		status:            StatusPending,
		description:       p.Description,
		createdAt:         now,
		updatedAt:         now,
	}, nil
}

// ValidAmount reports whether d is positive with at most two decimal places.
func ValidAmount(d decimal.Decimal) bool {
	return d.IsPositive() && d.Equal(d.Round(2))
}

// StartProcessing moves a PENDING transaction to PROCESSING.
func (t *Transaction) StartProcessing() error {
	if t.status != StatusPending {
		return invalidState("start processing", t.status)
	}
	t.status = StatusProcessing
	t.touch()
	return nil
}

// MarkAsSuccess records a successful gateway outcome.
func (t *Transaction) MarkAsSuccess(gatewayTxID, responseText string) error {
	if t.status != StatusProcessing {
		return invalidState("mark as success", t.status)
	}
	now := time.Now().UTC()
	t.status = StatusSuccess
	t.gatewayTransactionID = gatewayTxID
	t.gatewayResponseText = responseText
	t.failureCode = ""
	t.processedAt = &now
	t.updatedAt = now
	return nil
}

// MarkAsFailed records a failed gateway outcome.
func (t *Transaction) MarkAsFailed(code FailureCode, responseText string) error {
	return t.MarkAsFailedWithReference("", code, responseText)
}

// MarkAsFailedWithReference records a failed outcome for which the gateway
// still created a charge, keeping its id for reconciliation. An empty
// gatewayTxID leaves any id from an earlier attempt in place.
func (t *Transaction) MarkAsFailedWithReference(gatewayTxID string, code FailureCode, responseText string) error {
	if t.status != StatusProcessing {
		return invalidState("mark as failed", t.status)
	}
	if code == "" {
		code = FailureSystemError
	}
	now := time.Now().UTC()
	t.status = StatusFailed
	t.failureCode = code
	if gatewayTxID != "" {
		t.gatewayTransactionID = gatewayTxID
	}
	t.gatewayResponseText = responseText
	t.processedAt = &now
	t.updatedAt = now
	return nil
}

// Cancel moves a PENDING or PROCESSING transaction to CANCELLED.
func (t *Transaction) Cancel(reason string) error {
	if !t.CanBeCancelled() {
		return invalidState("cancel", t.status)
	}
	t.status = StatusCancelled
	t.cancelReason = reason
	t.touch()
	return nil
}

// Refund refunds amount without a fee. See RefundWithFee.
func (t *Transaction) Refund(amount decimal.Decimal, reason string) (*Transaction, error) {
	return t.RefundWithFee(amount, decimal.Zero, reason)
}

// RefundWithFee refunds amount of a settled payment and returns the new
// refund Transaction. The refund carries -amount, is linked through its
// parent id and merchant reference, and walks PENDING -> PROCESSING ->
// SUCCESS like any other transaction. On error t is left unchanged.
func (t *Transaction) RefundWithFee(amount, fee decimal.Decimal, reason string) (*Transaction, error) {
	if t.kind != KindPayment {
		return nil, ErrInvalidTransactionState.WithMessage("refund records cannot be refunded")
	}
	if !t.CanBeRefunded() {
		return nil, invalidState("refund", t.status)
	}
	if !ValidAmount(amount) {
		return nil, ErrInvalidAmount.WithMessage("refund amount must be positive with at most 2 decimal places")
	}
	available := t.AvailableRefundAmount()
	if amount.GreaterThan(available) {
		return nil, ErrInvalidAmount.WithMessage("refund amount %s exceeds available %s", amount.StringFixed(2), available.StringFixed(2))
	}
	if fee.IsNegative() || fee.GreaterThan(amount) {
		return nil, ErrInvalidAmount.WithMessage("refund fee %s is out of range", fee.StringFixed(2))
	}

	now := time.Now().UTC()
	refund := &Transaction{
		id:                uuid.NewString(),
		merchantReference: t.merchantReference + refundReferenceInfix + strings.ReplaceAll(uuid.NewString(), "-", "")[:8],
		orderID:           t.orderID,
		customerID:        t.customerID,
		kind:              KindRefund,
		parentID:          t.id,
		amount:            amount.Neg(),
		refundedAmount:    decimal.Zero,
		fee:               fee,
		method:            t.method,
		card:              t.card,
		bankAccount:       t.bankAccount,
		status:            StatusPending,
		description:       refundDescription(reason),
		createdAt:         now,
		updatedAt:         now,
	}
	if err := refund.StartProcessing(); err != nil {
		return nil, err
	}
	if err := refund.MarkAsSuccess("", "refund recorded"); err != nil {
		return nil, err
	}

	t.refundedAmount = t.refundedAmount.Add(amount)
	if t.refundedAmount.Equal(t.amount) {
		t.status = StatusRefunded
	} else {
		t.status = StatusPartialRefunded
	}
	t.updatedAt = now
	return refund, nil
}

func refundDescription(reason string) string {
	d := refundDescriptionTag + strings.TrimSpace(reason)
	if utf8.RuneCountInString(d) <= MaxDescriptionLength {
		return d
	}
	return string([]rune(d)[:MaxDescriptionLength])
}

// RecordGatewayOutcome annotates a settled refund record with the gateway's
// answer to the refund dispatch. The refund's status is not changed.
func (t *Transaction) RecordGatewayOutcome(gatewayTxID, responseText string, code FailureCode) error {
	if t.kind != KindRefund || t.status != StatusSuccess {
		return invalidState("record gateway outcome on", t.status)
	}
	if gatewayTxID != "" {
		t.gatewayTransactionID = gatewayTxID
	}
	t.gatewayResponseText = responseText
	t.failureCode = code
	t.touch()
	return nil
}

// RecordRetry reopens a FAILED payment for resubmission under the same
// merchant reference. Only retryable failures can be reopened.
func (t *Transaction) RecordRetry() error {
	if t.kind != KindPayment || t.status != StatusFailed {
		return invalidState("retry", t.status)
	}
	if !t.failureCode.Retryable() {
		return ErrInvalidTransactionState.WithMessage("failure %s is not retryable", t.failureCode)
	}
	t.status = StatusProcessing
	t.retryCount++
	t.failureCode = ""
	t.gatewayResponseText = ""
	t.processedAt = nil
	t.touch()
	return nil
}

func (t *Transaction) touch() { t.updatedAt = time.Now().UTC() }

// CanBeRefunded reports whether the transaction is in a refundable status.
func (t *Transaction) CanBeRefunded() bool {
	return t.kind == KindPayment && (t.status == StatusSuccess || t.status == StatusPartialRefunded)
}

// CanBeCancelled reports whether Cancel would succeed.
func (t *Transaction) CanBeCancelled() bool {
	return t.status == StatusPending || t.status == StatusProcessing
}

// IsTerminal reports whether the status allows no further transition.
func (t *Transaction) IsTerminal() bool { return t.status.IsTerminal() }

// AvailableRefundAmount is amount - refundedAmount for payments, zero for
// refund records.
func (t *Transaction) AvailableRefundAmount() decimal.Decimal {
	if t.kind != KindPayment {
		return decimal.Zero
	}
	return t.amount.Sub(t.refundedAmount)
}

func (t *Transaction) ID() string                      { return t.id }
func (t *Transaction) MerchantReference() string       { return t.merchantReference }
func (t *Transaction) OrderID() string                 { return t.orderID }
func (t *Transaction) CustomerID() string              { return t.customerID }
func (t *Transaction) Kind() Kind                      { return t.kind }
func (t *Transaction) ParentID() string                { return t.parentID }
func (t *Transaction) Amount() decimal.Decimal         { return t.amount }
func (t *Transaction) RefundedAmount() decimal.Decimal { return t.refundedAmount }
func (t *Transaction) Fee() decimal.Decimal            { return t.fee }
func (t *Transaction) Method() Method                  { return t.method }
func (t *Transaction) Status() Status                  { return t.status }
func (t *Transaction) Description() string             { return t.description }
func (t *Transaction) GatewayTransactionID() string    { return t.gatewayTransactionID }
func (t *Transaction) GatewayResponseText() string     { return t.gatewayResponseText }
func (t *Transaction) FailureCode() FailureCode        { return t.failureCode }
func (t *Transaction) CancelReason() string            { return t.cancelReason }
func (t *Transaction) RetryCount() int                 { return t.retryCount }
func (t *Transaction) CreatedAt() time.Time            { return t.createdAt }
func (t *Transaction) UpdatedAt() time.Time            { return t.updatedAt }
func (t *Transaction) Version() int64                  { return t.version }

// ProcessedAt returns the time of the gateway outcome, if any.
func (t *Transaction) ProcessedAt() (time.Time, bool) {
	if t.processedAt == nil {
		return time.Time{}, false
	}
	return *t.processedAt, true
}

// Card returns the card of a card payment.
func (t *Transaction) Card() (Card, bool) {
	if t.card == nil {
		return Card{}, false
	}
	return *t.card, true
}

// BankAccount returns the debtor account of a bank transfer.
func (t *Transaction) BankAccount() (BankAccount, bool) {
	if t.bankAccount == nil {
		return BankAccount{}, false
	}
	return *t.bankAccount, true
}

// IsRefund reports whether t is a refund record.
func (t *Transaction) IsRefund() bool { return t.kind == KindRefund }
