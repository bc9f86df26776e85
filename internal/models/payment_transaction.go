package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentTransaction is the stored row of a payment or refund transaction.
// Card numbers and security codes are never stored; a card is kept as its
// last four digits, brand, expiry and a keyed fingerprint.
type PaymentTransaction struct {
	ID                   string          `gorm:"primaryKey;size:36"`
	MerchantReference    string          `gorm:"size:64;not null;uniqueIndex"`
	OrderID              string          `gorm:"size:64;not null;index"`
	CustomerID           string          `gorm:"size:64;not null;index:idx_payment_customer_status"`
	Kind                 string          `gorm:"size:16;not null;default:'PAYMENT'"`
	ParentID             *string         `gorm:"size:36;index"`
	Amount               decimal.Decimal `gorm:"type:numeric(19,2);not null"`
	RefundedAmount       decimal.Decimal `gorm:"type:numeric(19,2);not null;default:0"`
	Fee                  decimal.Decimal `gorm:"type:numeric(19,2);not null;default:0"`
	Method               string          `gorm:"size:32;not null"`
	Status               string          `gorm:"size:32;not null;index:idx_payment_customer_status;index:idx_payment_status_created"`
	Description          string          `gorm:"size:500"`
	CardLastFour         string          `gorm:"size:4"`
	CardHolder           string          `gorm:"size:100"`
	CardBrand            string          `gorm:"size:32"`
	CardFingerprint      string          `gorm:"size:64"`
	CardExpiryYear       int
	CardExpiryMonth      int
	BankAccountNumber    string `gorm:"size:34"`
	BankCode             string `gorm:"size:11"`
	BankAccountHolder    string `gorm:"size:100"`
	GatewayTransactionID string `gorm:"size:128;index"`
	GatewayResponseText  string `gorm:"size:500"`
	FailureCode          string `gorm:"size:64"`
	CancelReason         string `gorm:"size:255"`
	RetryCount           int    `gorm:"not null;default:0"`
	ProcessedAt          *time.Time
	Version              int64     `gorm:"not null;default:1"`
	CreatedAt            time.Time `gorm:"index:idx_payment_status_created"`
	UpdatedAt            time.Time
}

func (PaymentTransaction) TableName() string {
	return "payment_transactions"
}
