package payment

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is the flat persisted form of a Transaction. Adapters map their
// records to and from it; card credentials are never part of it.
type Snapshot struct {
	ID                   string               `json:"id"`
	MerchantReference    string               `json:"merchant_reference"`
	OrderID              string               `json:"order_id"`
	CustomerID           string               `json:"customer_id"`
	Kind                 Kind                 `json:"kind"`
	ParentID             string               `json:"parent_id,omitempty"`
	Amount               decimal.Decimal      `json:"amount"`
	RefundedAmount       decimal.Decimal      `json:"refunded_amount"`
	Fee                  decimal.Decimal      `json:"fee"`
	Method               Method               `json:"method"`
	Card                 *CardSnapshot        `json:"card,omitempty"`
	BankAccount          *BankAccountSnapshot `json:"bank_account,omitempty"`
	Status               Status               `json:"status"`
	Description          string               `json:"description,omitempty"`
	GatewayTransactionID string               `json:"gateway_transaction_id,omitempty"`
	GatewayResponseText  string               `json:"gateway_response_text,omitempty"`
	FailureCode          FailureCode          `json:"failure_code,omitempty"`
	CancelReason         string               `json:"cancel_reason,omitempty"`
	RetryCount           int                  `json:"retry_count"`
	ProcessedAt          *time.Time           `json:"processed_at,omitempty"`
	CreatedAt            time.Time            `json:"created_at"`
	UpdatedAt            time.Time            `json:"updated_at"`
	Version              int64                `json:"version"`
}

// CardSnapshot is the stored, credential-free form of a Card.
type CardSnapshot struct {
	LastFour    string `json:"last_four"`
	Holder      string `json:"holder"`
	Brand       string `json:"brand"`
	Fingerprint string `json:"fingerprint,omitempty"`
	ExpiryYear  int    `json:"expiry_year"`
	ExpiryMonth int    `json:"expiry_month"`
}

type BankAccountSnapshot struct {
	AccountNumber string `json:"account_number"`
	BankCode      string `json:"bank_code"`
	Holder        string `json:"holder"`
}

// Snapshot returns the persisted form of t.
func (t *Transaction) Snapshot() Snapshot {
	s := Snapshot{
		ID:                   t.id,
		MerchantReference:    t.merchantReference,
		OrderID:              t.orderID,
		CustomerID:           t.customerID,
		Kind:                 t.kind,
		ParentID:             t.parentID,
		Amount:               t.amount,
		RefundedAmount:       t.refundedAmount,
		Fee:                  t.fee,
		Method:               t.method,
		Status:               t.status,
		Description:          t.description,
		GatewayTransactionID: t.gatewayTransactionID,
		GatewayResponseText:  t.gatewayResponseText,
		FailureCode:          t.failureCode,
		CancelReason:         t.cancelReason,
		RetryCount:           t.retryCount,
		CreatedAt:            t.createdAt,
		UpdatedAt:            t.updatedAt,
		Version:              t.version,
	}
	if t.processedAt != nil {
		p := *t.processedAt
		s.ProcessedAt = &p
	}
	if t.card != nil {
		s.Card = &CardSnapshot{
			LastFour:    t.card.lastFour,
			Holder:      t.card.holder,
			Brand:       t.card.brand,
			Fingerprint: t.card.fingerprint,
			ExpiryYear:  t.card.expiry.Year,
			ExpiryMonth: int(t.card.expiry.Month),
		}
	}
	if t.bankAccount != nil {
		s.BankAccount = &BankAccountSnapshot{
			AccountNumber: t.bankAccount.accountNumber,
			BankCode:      t.bankAccount.bankCode,
			Holder:        t.bankAccount.holder,
		}
	}
	return s
}

// Restore rebuilds a Transaction from its persisted form. It rejects
// snapshots that no sequence of transitions could have produced.
func Restore(s Snapshot) (*Transaction, error) {
	if strings.TrimSpace(s.ID) == "" || strings.TrimSpace(s.MerchantReference) == "" {
		return nil, ErrInvalidTransaction.WithMessage("stored transaction is missing its identity")
	}
	if _, err := ParseStatus(string(s.Status)); err != nil {
		return nil, ErrInvalidTransaction.WithMessage("stored transaction %s: %v", s.ID, err)
	}
	if _, err := ParseMethod(string(s.Method)); err != nil {
		return nil, ErrInvalidTransaction.WithMessage("stored transaction %s: unsupported method %q", s.ID, s.Method)
	}

	switch s.Kind {
	case KindPayment:
		if !s.Amount.IsPositive() {
			return nil, ErrInvalidTransaction.WithMessage("stored payment %s has non-positive amount", s.ID)
		}
		if s.RefundedAmount.IsNegative() || s.RefundedAmount.GreaterThan(s.Amount) {
			return nil, ErrInvalidTransaction.WithMessage("stored payment %s has refunded amount out of range", s.ID)
		}
	case KindRefund:
		if !s.Amount.IsNegative() || s.ParentID == "" {
			return nil, ErrInvalidTransaction.WithMessage("stored refund %s is malformed", s.ID)
		}
	default:
		return nil, ErrInvalidTransaction.WithMessage("stored transaction %s has unknown kind %q", s.ID, s.Kind)
	}

	t := &Transaction{
		id:                   s.ID,
		merchantReference:    s.MerchantReference,
		orderID:              s.OrderID,
		customerID:           s.CustomerID,
		kind:                 s.Kind,
		parentID:             s.ParentID,
		amount:               s.Amount,
		refundedAmount:       s.RefundedAmount,
		fee:                  s.Fee,
		method:               s.Method,
		status:               s.Status,
		description:          s.Description,
		gatewayTransactionID: s.GatewayTransactionID,
		gatewayResponseText:  s.GatewayResponseText,
		failureCode:          s.FailureCode,
		cancelReason:         s.CancelReason,
		retryCount:           s.RetryCount,
		createdAt:            s.CreatedAt,
		updatedAt:            s.UpdatedAt,
		version:              s.Version,
	}
	if s.ProcessedAt != nil {
		p := *s.ProcessedAt
		t.processedAt = &p
	}

	if s.Card != nil {
		card := RestoreCard(
			s.Card.LastFour,
			s.Card.Holder,
			Expiry{Year: s.Card.ExpiryYear, Month: time.Month(s.Card.ExpiryMonth)},
			s.Card.Brand,
			s.Card.Fingerprint,
		)
		t.card = &card
	}
	if s.BankAccount != nil {
		t.bankAccount = &BankAccount{
			accountNumber: s.BankAccount.AccountNumber,
			bankCode:      s.BankAccount.BankCode,
			holder:        s.BankAccount.Holder,
		}
	}
	if s.Method == MethodCreditCard && t.card == nil {
		return nil, ErrInvalidTransaction.WithMessage("stored card payment %s has no card", s.ID)
	}
	if s.Method == MethodBankTransfer && t.bankAccount == nil {
		return nil, ErrInvalidTransaction.WithMessage("stored bank transfer %s has no account", s.ID)
	}
	return t, nil
}

// WithCard returns a copy of t whose card carries the given credentials.
// The card must describe the same instrument: same last four digits.
func (t *Transaction) WithCard(card Card) (*Transaction, error) {
	if t.method != MethodCreditCard {
		return nil, ErrInvalidTransaction.WithMessage("transaction %s is not a card payment", t.id)
	}
	if t.card != nil && t.card.lastFour != "" && t.card.lastFour != card.lastFour {
		return nil, ErrInvalidCard.WithMessage("card does not match the original payment")
	}
	if card.fingerprint == "" && t.card != nil {
		card.fingerprint = t.card.fingerprint
	}
	cp := *t
	cp.card = &card
	return &cp, nil
}

// WithFingerprint returns a copy of c carrying fp.
func (c Card) WithFingerprint(fp string) Card {
	c.fingerprint = fp
	return c
}
