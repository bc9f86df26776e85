package cache

import (
	"context"
	"time"

	"paycore/internal/domain/payment"
	keys "paycore/internal/utils/cache"

	"go.uber.org/zap"
)

// Store is the subset of CacheService the transaction cache needs.
type Store interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	SetIfNewer(ctx context.Context, key string, value interface{}, version int64) (bool, error)
	Delete(ctx context.Context, keys ...string) error
}

// CachedRepository is a read-through cache over a payment.Repository for
// lookups by id. Writes go to the wrapped repository and, once durable,
// replace the cached snapshot. Every cache write is guarded by the
// snapshot's Version, so a reader that loaded an older row can never
// overwrite a newer entry. Cache failures are logged and never fail a call.
type CachedRepository struct {
	payment.Repository
	store  Store
	logger *zap.Logger
}

func NewCachedRepository(repo payment.Repository, store Store, logger *zap.Logger) *CachedRepository {
	if repo == nil {
		panic("repository is required")
	}
	if store == nil {
		panic("cache store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedRepository{Repository: repo, store: store, logger: logger.Named("transaction_cache")}
}

func transactionKey(id string) string {
	return keys.GenerateKey(keys.EntityTransaction, keys.KeyID, id)
}

func (r *CachedRepository) FindByID(ctx context.Context, id string) (*payment.Transaction, error) {
	var snap payment.Snapshot
	found, err := r.store.Get(ctx, transactionKey(id), &snap)
	if err != nil {
		r.logger.Warn("cache read failed", zap.String("transaction_id", id), zap.Error(err))
	}
	if found {
		tx, err := payment.Restore(snap)
		if err == nil {
			return tx, nil
		}
		r.logger.Warn("discarding corrupt cache entry", zap.String("transaction_id", id), zap.Error(err))
		r.evict(ctx, id)
	}

	tx, err := r.Repository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := r.store.SetIfNewer(ctx, transactionKey(id), tx.Snapshot(), tx.Version()); err != nil {
		r.logger.Warn("cache write failed", zap.String("transaction_id", id), zap.Error(err))
	}
	return tx, nil
}

func (r *CachedRepository) Save(ctx context.Context, tx *payment.Transaction) (*payment.Transaction, error) {
	saved, err := r.Repository.Save(ctx, tx)
	if err != nil {
		return nil, err
	}
	r.refresh(ctx, saved.Snapshot())
	return saved, nil
}

// WithinTx refreshes every transaction saved in the unit of work after it
// commits. Reads inside the unit of work bypass the cache.
func (r *CachedRepository) WithinTx(ctx context.Context, fn func(payment.Repository) error) error {
	var touched []payment.Snapshot
	err := r.Repository.WithinTx(ctx, func(repo payment.Repository) error {
		return fn(&trackingRepository{Repository: repo, touched: &touched})
	})
	if err != nil {
		return err
	}
	for _, snap := range touched {
		r.refresh(ctx, snap)
	}
	return nil
}

// refresh writes a committed snapshot. If that fails the entry is evicted
// instead.
func (r *CachedRepository) refresh(ctx context.Context, snap payment.Snapshot) {
	// Must not be cut short by a caller that is already done.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if _, err := r.store.SetIfNewer(ctx, transactionKey(snap.ID), snap, snap.Version); err != nil {
		r.logger.Warn("cache refresh failed", zap.String("transaction_id", snap.ID), zap.Error(err))
		r.evict(ctx, snap.ID)
	}
}

func (r *CachedRepository) evict(ctx context.Context, id string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := r.store.Delete(ctx, transactionKey(id)); err != nil {
		r.logger.Warn("cache eviction failed", zap.String("transaction_id", id), zap.Error(err))
	}
}

type trackingRepository struct {
	payment.Repository
	touched *[]payment.Snapshot
}

func (t *trackingRepository) Save(ctx context.Context, tx *payment.Transaction) (*payment.Transaction, error) {
	saved, err := t.Repository.Save(ctx, tx)
	if err != nil {
		return nil, err
	}
	*t.touched = append(*t.touched, saved.Snapshot())
	return saved, nil
}

func (t *trackingRepository) WithinTx(ctx context.Context, fn func(payment.Repository) error) error {
	return t.Repository.WithinTx(ctx, func(repo payment.Repository) error {
		return fn(&trackingRepository{Repository: repo, touched: t.touched})
	})
}
