package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"paycore/internal/domain/payment"
	"paycore/internal/models"

	"gorm.io/gorm"
)

// TransactionRepository stores payment transactions in PostgreSQL. Updates
// are guarded by the row version; a stale version fails with
// payment.ErrConcurrentModification.
type TransactionRepository struct {
	db             *gorm.DB
	fingerprintKey []byte
}

// NewTransactionRepository expects a db opened with TranslateError so that
// unique violations surface as gorm.ErrDuplicatedKey.
func NewTransactionRepository(db *gorm.DB, fingerprintKey []byte) *TransactionRepository {
	if db == nil {
		panic("db is required")
	}
	return &TransactionRepository{db: db, fingerprintKey: fingerprintKey}
}

func (r *TransactionRepository) Save(ctx context.Context, tx *payment.Transaction) (*payment.Transaction, error) {
	rec, err := toRecord(tx, r.fingerprintKey)
	if err != nil {
		return nil, err
	}

	if tx.Version() == 0 {
		rec.Version = 1
		if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, payment.ErrDuplicateReference
			}
			return nil, fmt.Errorf("failed to insert transaction: %w", err)
		}
	} else {
		rec.Version = tx.Version() + 1
		rec.UpdatedAt = time.Now().UTC()
		result := r.db.WithContext(ctx).
			Model(&models.PaymentTransaction{}).
			Where("id = ? AND version = ?", rec.ID, tx.Version()).
			Select("*").
			Omit("id", "created_at").
			Updates(&rec)
		if result.Error != nil {
			return nil, fmt.Errorf("failed to update transaction: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, payment.ErrConcurrentModification
		}
	}

	stored, err := toDomain(rec)
	if err != nil {
		return nil, err
	}
	if card, ok := tx.Card(); ok && card.HasCredentials() {
		return stored.WithCard(card.WithFingerprint(rec.CardFingerprint))
	}
	return stored, nil
}

func (r *TransactionRepository) FindByID(ctx context.Context, id string) (*payment.Transaction, error) {
	var rec models.PaymentTransaction
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, payment.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return toDomain(rec)
}

func (r *TransactionRepository) FindByCustomerID(ctx context.Context, customerID string) ([]*payment.Transaction, error) {
	return r.find(ctx, "customer_id = ?", customerID)
}

func (r *TransactionRepository) FindByCustomerIDAndStatus(ctx context.Context, customerID string, status payment.Status) ([]*payment.Transaction, error) {
	return r.find(ctx, "customer_id = ? AND status = ?", customerID, string(status))
}

func (r *TransactionRepository) FindAllByOrderID(ctx context.Context, orderID string) ([]*payment.Transaction, error) {
	return r.find(ctx, "order_id = ?", orderID)
}

func (r *TransactionRepository) HasSuccessfulPaymentForOrder(ctx context.Context, orderID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PaymentTransaction{}).
		Where("order_id = ? AND kind = ? AND status = ?", orderID, string(payment.KindPayment), string(payment.StatusSuccess)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to count order payments: %w", err)
	}
	return count > 0, nil
}

func (r *TransactionRepository) FindTimeoutTransactions(ctx context.Context, cutoff time.Time) ([]*payment.Transaction, error) {
	return r.find(ctx, "kind = ? AND status = ? AND created_at < ?",
		string(payment.KindPayment), string(payment.StatusProcessing), cutoff)
}

// WithinTx runs fn in a database transaction. Nested calls use savepoints.
func (r *TransactionRepository) WithinTx(ctx context.Context, fn func(payment.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&TransactionRepository{db: tx, fingerprintKey: r.fingerprintKey})
	})
}

func (r *TransactionRepository) find(ctx context.Context, query string, args ...interface{}) ([]*payment.Transaction, error) {
	var recs []models.PaymentTransaction
	err := r.db.WithContext(ctx).
		Where(query, args...).
		Order("created_at ASC, id ASC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	return toDomainList(recs)
}
