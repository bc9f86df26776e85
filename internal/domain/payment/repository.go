package payment

import (
	"context"
	"time"
)

// Repository persists Transactions. Implementations enforce optimistic
// locking on Version and uniqueness of MerchantReference.
type Repository interface {
	// Save inserts a new transaction (Version 0) or updates an existing one
	// whose stored Version still matches. It returns the stored aggregate
	// with its new Version, or ErrConcurrentModification on a stale write.
	Save(ctx context.Context, tx *Transaction) (*Transaction, error)
	// FindByID returns ErrTransactionNotFound when no row matches.
	FindByID(ctx context.Context, id string) (*Transaction, error)
	FindByCustomerID(ctx context.Context, customerID string) ([]*Transaction, error)
	FindByCustomerIDAndStatus(ctx context.Context, customerID string, status Status) ([]*Transaction, error)
	FindAllByOrderID(ctx context.Context, orderID string) ([]*Transaction, error)
	// HasSuccessfulPaymentForOrder ignores refund records.
	HasSuccessfulPaymentForOrder(ctx context.Context, orderID string) (bool, error)
	// FindTimeoutTransactions returns PROCESSING payments created before cutoff.
	FindTimeoutTransactions(ctx context.Context, cutoff time.Time) ([]*Transaction, error)
	// WithinTx runs fn against a repository bound to a single unit of work.
	// Writes made through it commit together when fn returns nil.
	WithinTx(ctx context.Context, fn func(repo Repository) error) error
}
