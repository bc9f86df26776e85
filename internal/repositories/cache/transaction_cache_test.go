package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"paycore/internal/domain/payment"
	"paycore/internal/repositories/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeStore keeps JSON values in a map, like CacheService does in redis.
type fakeStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	gets    int
	hits    int
	failing bool
}

func newFakeStore() *fakeStore { return &fakeStore{data: map[string][]byte{}} }

func (f *fakeStore) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.failing {
		return false, errors.New("redis down")
	}
	raw, ok := f.data[key]
	if !ok {
		return false, nil
	}
	f.hits++
	return true, json.Unmarshal(raw, dest)
}

func (f *fakeStore) SetIfNewer(_ context.Context, key string, value interface{}, version int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return false, errors.New("redis down")
	}
	if raw, ok := f.data[key]; ok {
		var cur struct {
			Version int64 `json:"version"`
		}
		if json.Unmarshal(raw, &cur) == nil && cur.Version >= version {
			return false, nil
		}
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	f.data[key] = raw
	return true, nil
}

func (f *fakeStore) put(t *testing.T, key string, value interface{}) {
	t.Helper()
	raw, err := json.Marshal(value)
	require.NoError(t, err)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = raw
}

func (f *fakeStore) cachedVersion(t *testing.T, key string) int64 {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.data[key]
	require.True(t, ok, "no cache entry for %s", key)
	var snap payment.Snapshot
	require.NoError(t, json.Unmarshal(raw, &snap))
	return snap.Version
}

func (f *fakeStore) Delete(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errors.New("redis down")
	}
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeStore) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[key]
	return ok
}

func newBankTransfer(t *testing.T) *payment.Transaction {
	t.Helper()
	acct, err := payment.NewBankAccount("12345678", "BANK01", "Jane Doe")
	require.NoError(t, err)
	tx, err := payment.NewTransaction(payment.NewTransactionParams{
		OrderID:     "ORD-1",
		CustomerID:  "CUST-1",
		Amount:      decimal.RequireFromString("75.50"),
		Method:      payment.MethodBankTransfer,
		BankAccount: &acct,
	})
	require.NoError(t, err)
	return tx
}

func TestCachedRepository_ReadThrough(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	inner := memory.NewTransactionRepository()
	saved, err := inner.Save(ctx, newBankTransfer(t))
	require.NoError(t, err)
	repo := NewCachedRepository(inner, store, zap.NewNop())
	assert.False(t, store.has(transactionKey(saved.ID())))

	first, err := repo.FindByID(ctx, saved.ID())
	require.NoError(t, err)
	assert.True(t, store.has(transactionKey(saved.ID())))

	second, err := repo.FindByID(ctx, saved.ID())
	require.NoError(t, err)
	assert.Equal(t, 1, store.hits)
	assert.Equal(t, first.ID(), second.ID())
	assert.Equal(t, first.Version(), second.Version())
	assert.Equal(t, first.Status(), second.Status())
	assert.True(t, second.Amount().Equal(decimal.RequireFromString("75.50")))
}

func TestCachedRepository_SaveWritesThrough(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	repo := NewCachedRepository(memory.NewTransactionRepository(), store, zap.NewNop())

	tx, err := repo.Save(ctx, newBankTransfer(t))
	require.NoError(t, err)
	assert.Equal(t, tx.Version(), store.cachedVersion(t, transactionKey(tx.ID())))

	require.NoError(t, tx.StartProcessing())
	tx, err = repo.Save(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, tx.Version(), store.cachedVersion(t, transactionKey(tx.ID())))

	fresh, err := repo.FindByID(ctx, tx.ID())
	require.NoError(t, err)
	assert.Equal(t, payment.StatusProcessing, fresh.Status())
	assert.Equal(t, 1, store.hits)
}

// racingReads returns a row loaded before a concurrent commit. The commit
// itself runs inside the read, between the query and the cache write.
type racingReads struct {
	payment.Repository
	loaded payment.Snapshot
	commit func()
}

func (r *racingReads) FindByID(ctx context.Context, id string) (*payment.Transaction, error) {
	tx, err := payment.Restore(r.loaded)
	if r.commit != nil {
		r.commit()
		r.commit = nil
	}
	return tx, err
}

func TestCachedRepository_StaleReadDoesNotOverwriteNewerEntry(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	inner := memory.NewTransactionRepository()
	writer := NewCachedRepository(inner, store, zap.NewNop())

	tx, err := writer.Save(ctx, newBankTransfer(t))
	require.NoError(t, err)
	loaded := tx.Snapshot()
	key := transactionKey(tx.ID())
	require.NoError(t, store.Delete(ctx, key))

	reader := NewCachedRepository(&racingReads{
		Repository: inner,
		loaded:     loaded,
		commit: func() {
			require.NoError(t, tx.StartProcessing())
			_, err := writer.Save(ctx, tx)
			require.NoError(t, err)
		},
	}, store, zap.NewNop())

	got, err := reader.FindByID(ctx, tx.ID())
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPending, got.Status())
	assert.Equal(t, loaded.Version+1, store.cachedVersion(t, key))

	fresh, err := writer.FindByID(ctx, tx.ID())
	require.NoError(t, err)
	assert.Equal(t, payment.StatusProcessing, fresh.Status())
}

func TestCachedRepository_WithinTxRefreshesOnCommitOnly(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	repo := NewCachedRepository(memory.NewTransactionRepository(), store, zap.NewNop())

	tx, err := repo.Save(ctx, newBankTransfer(t))
	require.NoError(t, err)
	_, err = repo.FindByID(ctx, tx.ID())
	require.NoError(t, err)

	boom := errors.New("boom")
	err = repo.WithinTx(ctx, func(r payment.Repository) error {
		cur, err := r.FindByID(ctx, tx.ID())
		require.NoError(t, err)
		require.NoError(t, cur.StartProcessing())
		_, err = r.Save(ctx, cur)
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, tx.Version(), store.cachedVersion(t, transactionKey(tx.ID())), "rolled back work keeps the entry")

	err = repo.WithinTx(ctx, func(r payment.Repository) error {
		cur, err := r.FindByID(ctx, tx.ID())
		if err != nil {
			return err
		}
		if err := cur.StartProcessing(); err != nil {
			return err
		}
		_, err = r.Save(ctx, cur)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, tx.Version()+1, store.cachedVersion(t, transactionKey(tx.ID())))
}

func TestCachedRepository_CacheOutageFallsBack(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.failing = true
	repo := NewCachedRepository(memory.NewTransactionRepository(), store, zap.NewNop())

	tx, err := repo.Save(ctx, newBankTransfer(t))
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, tx.ID())
	require.NoError(t, err)
	assert.Equal(t, tx.ID(), found.ID())

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, payment.ErrTransactionNotFound)
}

func TestCachedRepository_CorruptEntryIsDiscarded(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	repo := NewCachedRepository(memory.NewTransactionRepository(), store, zap.NewNop())

	tx, err := repo.Save(ctx, newBankTransfer(t))
	require.NoError(t, err)
	store.put(t, transactionKey(tx.ID()), payment.Snapshot{ID: tx.ID(), Version: tx.Version() + 5})

	found, err := repo.FindByID(ctx, tx.ID())
	require.NoError(t, err)
	assert.Equal(t, tx.MerchantReference(), found.MerchantReference())
}
