package badger

import (
	"context"
	"errors"

	"github.com/poiesic/wellspring/storage"
)

// Store implements storage.Store on a single BadgerDB backend.
type Store struct {
	backend   *Backend
	documents *DocumentRepository
	balances  *BalanceRepository
	graph     *GraphRepository
	bridges   *BridgeRepository
}

var _ storage.Store = (*Store)(nil)

// NewStore opens (or creates) a BadgerDB store at path.
//
// Returns storage.Store interface to enforce abstraction.
func NewStore(path string) (storage.Store, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	return newStore(backend)
}

func newStore(backend *Backend) (*Store, error) {
	documents, err := newDocumentRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	graph, err := newGraphRepository(backend)
	if err != nil {
		documents.Close()
		backend.Close()
		return nil, err
	}

	return &Store{
		backend:   backend,
		documents: documents,
		balances:  newBalanceRepository(backend),
		graph:     graph,
		bridges:   newBridgeRepository(backend),
	}, nil
}

// Documents returns the document repository.
func (s *Store) Documents() storage.DocumentRepository { return s.documents }

// Balances returns the balance repository.
func (s *Store) Balances() storage.BalanceRepository { return s.balances }

// Graph returns the graph repository.
func (s *Store) Graph() storage.GraphRepository { return s.graph }

// Bridges returns the bridge repository.
func (s *Store) Bridges() storage.BridgeRepository { return s.bridges }

// WithTransaction delegates to the backend.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.backend.WithTransaction(ctx, fn)
}

// Close releases sequences and closes the backend.
func (s *Store) Close() error {
	if s.backend.IsClosed() {
		return nil
	}
	return errors.Join(
		s.documents.Close(),
		s.graph.Close(),
		s.backend.Close(),
	)
}
