package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/wellspring/core"
	"github.com/poiesic/wellspring/storage"
)

// BalanceRepository implements storage.BalanceRepository for BadgerDB.
type BalanceRepository struct {
	backend *Backend
}

var _ storage.BalanceRepository = (*BalanceRepository)(nil)

func newBalanceRepository(backend *Backend) *BalanceRepository {
	return &BalanceRepository{backend: backend}
}

// GetBalance returns the owner's stored balance or an empty one.
func (r *BalanceRepository) GetBalance(ctx context.Context, ownerID string) (*core.LibraryBalance, error) {
	var balance *core.LibraryBalance
	err := r.backend.run(ctx, false, func(tx *badger.Txn) error {
		return getValue(tx, makeBalanceKey(ownerID), func(val []byte) error {
			var err error
			balance, err = storage.UnmarshalBalance(val)
			return err
		})
	})
	if errors.Is(err, storage.ErrNotFound) {
		return &core.LibraryBalance{
			OwnerID: ownerID,
			Means:   core.ClassificationWeights{},
		}, nil
	}
	if err != nil {
		return nil, err
	}
	if balance.Means == nil {
		balance.Means = core.ClassificationWeights{}
	}
	return balance, nil
}

// PutBalance replaces the owner's balance and stamps UpdatedAt if unset.
func (r *BalanceRepository) PutBalance(ctx context.Context, balance *core.LibraryBalance) error {
	if balance == nil || balance.OwnerID == "" {
		return storage.ErrInvalidQuery
	}
	if balance.UpdatedAt.IsZero() {
		balance.UpdatedAt = time.Now().UTC()
	}
	value, err := storage.MarshalBalance(balance)
	if err != nil {
		return err
	}
	return r.backend.run(ctx, true, func(tx *badger.Txn) error {
		return tx.Set(makeBalanceKey(balance.OwnerID), value)
	})
}
