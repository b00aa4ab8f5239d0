package badger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/wellspring/core"
	"github.com/poiesic/wellspring/storage"
)

// BridgeRepository implements storage.BridgeRepository for BadgerDB.
type BridgeRepository struct {
	backend *Backend
}

var _ storage.BridgeRepository = (*BridgeRepository)(nil)

func newBridgeRepository(backend *Backend) *BridgeRepository {
	return &BridgeRepository{backend: backend}
}

// AppendBridge merges bridge into the stored bridge for its canonical tag.
// The stored concept label is kept; the synthesis note tracks the latest append.
func (r *BridgeRepository) AppendBridge(ctx context.Context, bridge *core.ConceptBridge) error {
	if bridge == nil || bridge.CanonicalTag == "" {
		return storage.ErrInvalidQuery
	}

	return r.backend.run(ctx, true, func(tx *badger.Txn) error {
		key := makeBridgeKey(bridge.CanonicalTag)

		stored, err := readBridge(tx, key)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			stored = &core.ConceptBridge{
				Id:           core.IDFromContent(bridge.CanonicalTag),
				Concept:      bridge.Concept,
				CanonicalTag: bridge.CanonicalTag,
			}
		case err != nil:
			return err
		}

		stored.Parallels = append(stored.Parallels, bridge.Parallels...)
		if bridge.SynthesisNote != "" {
			stored.SynthesisNote = bridge.SynthesisNote
		}

		value, err := storage.MarshalBridge(stored)
		if err != nil {
			return err
		}
		return tx.Set(key, value)
	})
}

// GetBridge retrieves the accumulated bridge for a canonical tag.
func (r *BridgeRepository) GetBridge(ctx context.Context, canonicalTag string) (*core.ConceptBridge, error) {
	var bridge *core.ConceptBridge
	err := r.backend.run(ctx, false, func(tx *badger.Txn) error {
		var err error
		bridge, err = readBridge(tx, makeBridgeKey(canonicalTag))
		return err
	})
	return bridge, err
}

// ListBridges returns all bridges in canonical tag order.
func (r *BridgeRepository) ListBridges(ctx context.Context) ([]*core.ConceptBridge, error) {
	var bridges []*core.ConceptBridge
	err := r.backend.run(ctx, false, func(tx *badger.Txn) error {
		return scanPrefix(tx, []byte(bridgePrefix), func(_, val []byte) error {
			bridge, err := storage.UnmarshalBridge(val)
			if err != nil {
				return err
			}
			bridges = append(bridges, bridge)
			return nil
		})
	})
	return bridges, err
}

func readBridge(tx *badger.Txn, key []byte) (*core.ConceptBridge, error) {
	var bridge *core.ConceptBridge
	err := getValue(tx, key, func(val []byte) error {
		var err error
		bridge, err = storage.UnmarshalBridge(val)
		return err
	})
	return bridge, err
}
