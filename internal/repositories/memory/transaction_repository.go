// Package memory is an in-process payment.Repository. It keeps snapshots,
// never live aggregates, so callers cannot mutate stored state by accident.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"paycore/internal/domain/payment"
)

type store struct {
	byID  map[string]payment.Snapshot
	byRef map[string]string
}

func newStore() *store {
	return &store{byID: map[string]payment.Snapshot{}, byRef: map[string]string{}}
}

func (s *store) clone() *store {
	cp := &store{
		byID:  make(map[string]payment.Snapshot, len(s.byID)),
		byRef: make(map[string]string, len(s.byRef)),
	}
	for k, v := range s.byID {
		cp.byID[k] = v
	}
	for k, v := range s.byRef {
		cp.byRef[k] = v
	}
	return cp
}

// TransactionRepository is safe for concurrent use.
type TransactionRepository struct {
	mu   sync.RWMutex
	data *store
}

func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{data: newStore()}
}

func (r *TransactionRepository) Save(ctx context.Context, tx *payment.Transaction) (*payment.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return save(r.data, tx)
}

func save(s *store, tx *payment.Transaction) (*payment.Transaction, error) {
	snap := tx.Snapshot()
	current, exists := s.byID[snap.ID]

	switch {
	case snap.Version == 0:
		if exists {
			return nil, payment.ErrConcurrentModification
		}
		if _, taken := s.byRef[snap.MerchantReference]; taken {
			return nil, payment.ErrDuplicateReference
		}
	case !exists || current.Version != snap.Version:
		return nil, payment.ErrConcurrentModification
	}

	snap.Version++
	s.byID[snap.ID] = snap
	s.byRef[snap.MerchantReference] = snap.ID

	stored, err := payment.Restore(snap)
	if err != nil {
		return nil, err
	}
	// Keep in-flight card credentials on the returned aggregate; they are
	// never part of the stored snapshot.
	if card, ok := tx.Card(); ok && card.HasCredentials() {
		return stored.WithCard(card)
	}
	return stored, nil
}

func (r *TransactionRepository) FindByID(ctx context.Context, id string) (*payment.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return findByID(r.data, id)
}

func findByID(s *store, id string) (*payment.Transaction, error) {
	snap, ok := s.byID[id]
	if !ok {
		return nil, payment.ErrTransactionNotFound
	}
	return payment.Restore(snap)
}

func (r *TransactionRepository) FindByCustomerID(ctx context.Context, customerID string) ([]*payment.Transaction, error) {
	return r.filter(func(s payment.Snapshot) bool { return s.CustomerID == customerID })
}

func (r *TransactionRepository) FindByCustomerIDAndStatus(ctx context.Context, customerID string, status payment.Status) ([]*payment.Transaction, error) {
	return r.filter(func(s payment.Snapshot) bool { return s.CustomerID == customerID && s.Status == status })
}

func (r *TransactionRepository) FindAllByOrderID(ctx context.Context, orderID string) ([]*payment.Transaction, error) {
	return r.filter(func(s payment.Snapshot) bool { return s.OrderID == orderID })
}

func (r *TransactionRepository) HasSuccessfulPaymentForOrder(ctx context.Context, orderID string) (bool, error) {
	txs, err := r.filter(func(s payment.Snapshot) bool {
		return s.OrderID == orderID && s.Kind == payment.KindPayment && s.Status == payment.StatusSuccess
	})
	return len(txs) > 0, err
}

func (r *TransactionRepository) FindTimeoutTransactions(ctx context.Context, cutoff time.Time) ([]*payment.Transaction, error) {
	return r.filter(func(s payment.Snapshot) bool {
		return s.Kind == payment.KindPayment && s.Status == payment.StatusProcessing && s.CreatedAt.Before(cutoff)
	})
}

func (r *TransactionRepository) filter(keep func(payment.Snapshot) bool) ([]*payment.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return filter(r.data, keep)
}

func filter(s *store, keep func(payment.Snapshot) bool) ([]*payment.Transaction, error) {
	snaps := make([]payment.Snapshot, 0)
	for _, snap := range s.byID {
		if keep(snap) {
			snaps = append(snaps, snap)
		}
	}
	sort.Slice(snaps, func(i, j int) bool {
		if snaps[i].CreatedAt.Equal(snaps[j].CreatedAt) {
			return snaps[i].ID < snaps[j].ID
		}
		return snaps[i].CreatedAt.Before(snaps[j].CreatedAt)
	})

	out := make([]*payment.Transaction, 0, len(snaps))
	for _, snap := range snaps {
		tx, err := payment.Restore(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

// WithinTx runs fn against a private copy of the store and swaps it in
// when fn succeeds. Transactions are serialized.
func (r *TransactionRepository) WithinTx(ctx context.Context, fn func(repo payment.Repository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	work := &txRepository{data: r.data.clone()}
	if err := fn(work); err != nil {
		return err
	}
	r.data = work.data
	return nil
}

// txRepository is the view handed to WithinTx callbacks. The outer lock is
// already held.
type txRepository struct {
	data *store
}

func (t *txRepository) Save(ctx context.Context, tx *payment.Transaction) (*payment.Transaction, error) {
	return save(t.data, tx)
}

func (t *txRepository) FindByID(ctx context.Context, id string) (*payment.Transaction, error) {
	return findByID(t.data, id)
}

func (t *txRepository) FindByCustomerID(ctx context.Context, customerID string) ([]*payment.Transaction, error) {
	return filter(t.data, func(s payment.Snapshot) bool { return s.CustomerID == customerID })
}

func (t *txRepository) FindByCustomerIDAndStatus(ctx context.Context, customerID string, status payment.Status) ([]*payment.Transaction, error) {
	return filter(t.data, func(s payment.Snapshot) bool { return s.CustomerID == customerID && s.Status == status })
}

func (t *txRepository) FindAllByOrderID(ctx context.Context, orderID string) ([]*payment.Transaction, error) {
	return filter(t.data, func(s payment.Snapshot) bool { return s.OrderID == orderID })
}

func (t *txRepository) HasSuccessfulPaymentForOrder(ctx context.Context, orderID string) (bool, error) {
	txs, err := filter(t.data, func(s payment.Snapshot) bool {
		return s.OrderID == orderID && s.Kind == payment.KindPayment && s.Status == payment.StatusSuccess
	})
	return len(txs) > 0, err
}

func (t *txRepository) FindTimeoutTransactions(ctx context.Context, cutoff time.Time) ([]*payment.Transaction, error) {
	return filter(t.data, func(s payment.Snapshot) bool {
		return s.Kind == payment.KindPayment && s.Status == payment.StatusProcessing && s.CreatedAt.Before(cutoff)
	})
}

// WithinTx on an open unit of work joins it.
func (t *txRepository) WithinTx(ctx context.Context, fn func(repo payment.Repository) error) error {
	return fn(t)
}

// Put stores a snapshot without version checks, as if it had already been
// saved once. Intended for seeding fixtures.
func (r *TransactionRepository) Put(snap payment.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if snap.Version == 0 {
		snap.Version = 1
	}
	r.data.byID[snap.ID] = snap
	r.data.byRef[snap.MerchantReference] = snap.ID
}
