package repositories

import (
	"encoding/hex"
	"fmt"

	"paycore/internal/domain/payment"
	"paycore/internal/models"

	"golang.org/x/crypto/blake2b"
)

// CardFingerprint identifies a card number without storing it. The same
// number under the same key always yields the same fingerprint.
func CardFingerprint(key []byte, number string) (string, error) {
	h, err := blake2b.New256(key)
	if err != nil {
		return "", fmt.Errorf("failed to init fingerprint hash: %w", err)
	}
	h.Write([]byte(number))
	return hex.EncodeToString(h.Sum(nil)), nil
}

// toRecord maps a transaction to its row. When the card still carries its
// number and has no fingerprint yet, one is computed; the number itself is
// dropped.
func toRecord(tx *payment.Transaction, fingerprintKey []byte) (models.PaymentTransaction, error) {
	s := tx.Snapshot()
	rec := models.PaymentTransaction{
		ID:                   s.ID,
		MerchantReference:    s.MerchantReference,
		OrderID:              s.OrderID,
		CustomerID:           s.CustomerID,
		Kind:                 string(s.Kind),
		Amount:               s.Amount,
		RefundedAmount:       s.RefundedAmount,
		Fee:                  s.Fee,
		Method:               string(s.Method),
		Status:               string(s.Status),
		Description:          s.Description,
		GatewayTransactionID: s.GatewayTransactionID,
		GatewayResponseText:  s.GatewayResponseText,
		FailureCode:          string(s.FailureCode),
		CancelReason:         s.CancelReason,
		RetryCount:           s.RetryCount,
		ProcessedAt:          s.ProcessedAt,
		Version:              s.Version,
		CreatedAt:            s.CreatedAt,
		UpdatedAt:            s.UpdatedAt,
	}
	if s.ParentID != "" {
		parent := s.ParentID
		rec.ParentID = &parent
	}

	if s.Card != nil {
		rec.CardLastFour = s.Card.LastFour
		rec.CardHolder = s.Card.Holder
		rec.CardBrand = s.Card.Brand
		rec.CardExpiryYear = s.Card.ExpiryYear
		rec.CardExpiryMonth = s.Card.ExpiryMonth
		rec.CardFingerprint = s.Card.Fingerprint
		if card, ok := tx.Card(); ok && card.HasCredentials() && rec.CardFingerprint == "" {
			fp, err := CardFingerprint(fingerprintKey, card.Number())
			if err != nil {
				return models.PaymentTransaction{}, err
			}
			rec.CardFingerprint = fp
		}
	}
	if s.BankAccount != nil {
		rec.BankAccountNumber = s.BankAccount.AccountNumber
		rec.BankCode = s.BankAccount.BankCode
		rec.BankAccountHolder = s.BankAccount.Holder
	}
	return rec, nil
}

// toDomain maps a row back to a transaction.
func toDomain(rec models.PaymentTransaction) (*payment.Transaction, error) {
	s := payment.Snapshot{
		ID:                   rec.ID,
		MerchantReference:    rec.MerchantReference,
		OrderID:              rec.OrderID,
		CustomerID:           rec.CustomerID,
		Kind:                 payment.Kind(rec.Kind),
		Amount:               rec.Amount,
		RefundedAmount:       rec.RefundedAmount,
		Fee:                  rec.Fee,
		Method:               payment.Method(rec.Method),
		Status:               payment.Status(rec.Status),
		Description:          rec.Description,
		GatewayTransactionID: rec.GatewayTransactionID,
		GatewayResponseText:  rec.GatewayResponseText,
		FailureCode:          payment.FailureCode(rec.FailureCode),
		CancelReason:         rec.CancelReason,
		RetryCount:           rec.RetryCount,
		Version:              rec.Version,
		CreatedAt:            rec.CreatedAt.UTC(),
		UpdatedAt:            rec.UpdatedAt.UTC(),
	}
	if rec.ParentID != nil {
		s.ParentID = *rec.ParentID
	}
	if rec.ProcessedAt != nil {
		at := rec.ProcessedAt.UTC()
		s.ProcessedAt = &at
	}
	if rec.CardLastFour != "" {
		s.Card = &payment.CardSnapshot{
			LastFour:    rec.CardLastFour,
			Holder:      rec.CardHolder,
			Brand:       rec.CardBrand,
			Fingerprint: rec.CardFingerprint,
			ExpiryYear:  rec.CardExpiryYear,
			ExpiryMonth: rec.CardExpiryMonth,
		}
	}
	if rec.BankAccountNumber != "" {
		s.BankAccount = &payment.BankAccountSnapshot{
			AccountNumber: rec.BankAccountNumber,
			BankCode:      rec.BankCode,
			Holder:        rec.BankAccountHolder,
		}
	}
	return payment.Restore(s)
}

func toDomainList(recs []models.PaymentTransaction) ([]*payment.Transaction, error) {
	out := make([]*payment.Transaction, 0, len(recs))
	for _, rec := range recs {
		tx, err := toDomain(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}
