package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"paycore/internal/domain/payment"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPayment(t *testing.T, orderID string) *payment.Transaction {
	t.Helper()
	card, err := payment.NewCard("4242424242424242", "Jane Doe", payment.Expiry{Year: 2099, Month: time.May}, "123")
	require.NoError(t, err)
	tx, err := payment.NewTransaction(payment.NewTransactionParams{
		OrderID:    orderID,
		CustomerID: "CUST-1",
		Amount:     decimal.RequireFromString("10.00"),
		Method:     payment.MethodCreditCard,
		Card:       &card,
	})
	require.NoError(t, err)
	return tx
}

func TestTransactionRepository_SaveAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewTransactionRepository()

	saved, err := repo.Save(ctx, newPayment(t, "ORD-1"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), saved.Version())
	card, _ := saved.Card()
	assert.True(t, card.HasCredentials(), "returned aggregate keeps in-flight credentials")

	found, err := repo.FindByID(ctx, saved.ID())
	require.NoError(t, err)
	assert.Equal(t, saved.MerchantReference(), found.MerchantReference())
	stored, _ := found.Card()
	assert.False(t, stored.HasCredentials())

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, payment.ErrTransactionNotFound)
}

func TestTransactionRepository_OptimisticLock(t *testing.T) {
	ctx := context.Background()
	repo := NewTransactionRepository()
	saved, err := repo.Save(ctx, newPayment(t, "ORD-1"))
	require.NoError(t, err)

	a, err := repo.FindByID(ctx, saved.ID())
	require.NoError(t, err)
	b, err := repo.FindByID(ctx, saved.ID())
	require.NoError(t, err)

	require.NoError(t, a.StartProcessing())
	_, err = repo.Save(ctx, a)
	require.NoError(t, err)

	require.NoError(t, b.Cancel("late"))
	_, err = repo.Save(ctx, b)
	assert.ErrorIs(t, err, payment.ErrConcurrentModification)

	current, err := repo.FindByID(ctx, saved.ID())
	require.NoError(t, err)
	assert.Equal(t, payment.StatusProcessing, current.Status())
	assert.Equal(t, int64(2), current.Version())
}

func TestTransactionRepository_Queries(t *testing.T) {
	ctx := context.Background()
	repo := NewTransactionRepository()

	paid := newPayment(t, "ORD-1")
	require.NoError(t, paid.StartProcessing())
	require.NoError(t, paid.MarkAsSuccess("GTW-1", "ok"))
	paid, err := repo.Save(ctx, paid)
	require.NoError(t, err)

	refund, err := paid.Refund(decimal.RequireFromString("5.00"), "r")
	require.NoError(t, err)
	_, err = repo.Save(ctx, refund)
	require.NoError(t, err)

	_, err = repo.Save(ctx, newPayment(t, "ORD-2"))
	require.NoError(t, err)

	ok, err := repo.HasSuccessfulPaymentForOrder(ctx, "ORD-1")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = repo.Save(ctx, paid)
	require.NoError(t, err)
	ok, err = repo.HasSuccessfulPaymentForOrder(ctx, "ORD-1")
	require.NoError(t, err)
	assert.False(t, ok, "the SUCCESS refund record does not count as a payment")

	ok, err = repo.HasSuccessfulPaymentForOrder(ctx, "ORD-2")
	require.NoError(t, err)
	assert.False(t, ok)

	byOrder, err := repo.FindAllByOrderID(ctx, "ORD-1")
	require.NoError(t, err)
	assert.Len(t, byOrder, 2)

	byCustomer, err := repo.FindByCustomerID(ctx, "CUST-1")
	require.NoError(t, err)
	assert.Len(t, byCustomer, 3)

	pending, err := repo.FindByCustomerIDAndStatus(ctx, "CUST-1", payment.StatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestTransactionRepository_DuplicateReference(t *testing.T) {
	ctx := context.Background()
	repo := NewTransactionRepository()
	tx := newPayment(t, "ORD-1")
	_, err := repo.Save(ctx, tx)
	require.NoError(t, err)

	snap := tx.Snapshot()
	snap.ID = "other-id"
	clash, err := payment.Restore(snap)
	require.NoError(t, err)
	_, err = repo.Save(ctx, clash)
	assert.ErrorIs(t, err, payment.ErrDuplicateReference)
}

func TestTransactionRepository_WithinTxRollsBack(t *testing.T) {
	ctx := context.Background()
	repo := NewTransactionRepository()
	boom := errors.New("boom")

	err := repo.WithinTx(ctx, func(r payment.Repository) error {
		if _, err := r.Save(ctx, newPayment(t, "ORD-1")); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	txs, err := repo.FindAllByOrderID(ctx, "ORD-1")
	require.NoError(t, err)
	assert.Empty(t, txs)

	err = repo.WithinTx(ctx, func(r payment.Repository) error {
		_, err := r.Save(ctx, newPayment(t, "ORD-1"))
		return err
	})
	require.NoError(t, err)
	txs, err = repo.FindAllByOrderID(ctx, "ORD-1")
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestTransactionRepository_FindTimeoutTransactions(t *testing.T) {
	ctx := context.Background()
	repo := NewTransactionRepository()
	now := time.Now()

	stale := newPayment(t, "ORD-1")
	require.NoError(t, stale.StartProcessing())
	snap := stale.Snapshot()
	snap.CreatedAt = now.Add(-time.Hour)
	repo.Put(snap)

	fresh := newPayment(t, "ORD-2")
	require.NoError(t, fresh.StartProcessing())
	_, err := repo.Save(ctx, fresh)
	require.NoError(t, err)

	found, err := repo.FindTimeoutTransactions(ctx, now.Add(-30*time.Minute))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, stale.ID(), found[0].ID())
}
