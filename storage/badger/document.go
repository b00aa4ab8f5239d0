package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/wellspring/core"
	"github.com/poiesic/wellspring/storage"
)

// DocumentRepository implements storage.DocumentRepository for BadgerDB.
type DocumentRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// newDocumentRepository creates a new DocumentRepository.
func newDocumentRepository(backend *Backend) (*DocumentRepository, error) {
	idSeq, err := backend.GetSequence(documentIDSeq)
	if err != nil {
		return nil, err
	}

	return &DocumentRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *DocumentRepository) Close() error {
	return r.idSeq.Release()
}

// NextDocumentID reserves a new document ID.
func (r *DocumentRepository) NextDocumentID(ctx context.Context) (core.ID, error) {
	nextID, err := r.idSeq.Next()
	if err != nil {
		return 0, err
	}
	// BadgerDB sequences can return 0 on first call, so we skip it
	if nextID == 0 {
		if nextID, err = r.idSeq.Next(); err != nil {
			return 0, err
		}
	}
	return core.ID(nextID), nil
}

// SaveDocument persists a document and its owner index entry.
// A document without an ID gets one from the sequence.
func (r *DocumentRepository) SaveDocument(ctx context.Context, doc *core.Document) error {
	if doc == nil || doc.OwnerID == "" {
		return storage.ErrInvalidQuery
	}
	if doc.Id == 0 {
		id, err := r.NextDocumentID(ctx)
		if err != nil {
			return err
		}
		doc.Id = id
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	value, err := storage.MarshalDocument(doc)
	if err != nil {
		return err
	}

	return r.backend.run(ctx, true, func(tx *badger.Txn) error {
		key := makeDocumentKey(doc.Id)
		found, err := exists(tx, key)
		if err != nil {
			return err
		}
		if found {
			return storage.ErrDuplicateKey
		}

		if err := tx.Set(key, value); err != nil {
			return err
		}
		return tx.Set(makeOwnerDocumentKey(doc.OwnerID, doc.Id), storage.MarshalID(doc.Id))
	})
}

// GetDocument retrieves a document by ID.
func (r *DocumentRepository) GetDocument(ctx context.Context, id core.ID) (*core.Document, error) {
	var doc *core.Document
	err := r.backend.run(ctx, false, func(tx *badger.Txn) error {
		var err error
		doc, err = readDocument(tx, id)
		return err
	})
	return doc, err
}

// ListDocuments returns the owner's documents in ID order.
func (r *DocumentRepository) ListDocuments(ctx context.Context, ownerID string) ([]*core.Document, error) {
	var docs []*core.Document
	err := r.backend.run(ctx, false, func(tx *badger.Txn) error {
		var err error
		docs, err = listOwnerDocuments(tx, ownerID)
		return err
	})
	return docs, err
}

// SimilaritySearch scans the owner's documents and scores each by cosine similarity.
// Documents without vectors are skipped.
func (r *DocumentRepository) SimilaritySearch(ctx context.Context, ownerID string, vector []float32, minSimilarity float32, limit int) ([]*storage.ScoredDocument, error) {
	if limit <= 0 || len(vector) == 0 {
		return nil, storage.ErrInvalidQuery
	}

	var results []*storage.ScoredDocument
	err := r.backend.run(ctx, false, func(tx *badger.Txn) error {
		docs, err := listOwnerDocuments(tx, ownerID)
		if err != nil {
			return err
		}
		for _, doc := range docs {
			if len(doc.Vector) == 0 {
				continue
			}
			score := storage.CosineSimilarity(vector, doc.Vector)
			if score >= minSimilarity {
				results = append(results, &storage.ScoredDocument{Document: doc, Score: score})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Stable so equal scores keep ID order
	slices.SortStableFunc(results, func(a, b *storage.ScoredDocument) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func readDocument(tx *badger.Txn, id core.ID) (*core.Document, error) {
	var doc *core.Document
	err := getValue(tx, makeDocumentKey(id), func(val []byte) error {
		var err error
		doc, err = storage.UnmarshalDocument(val)
		return err
	})
	return doc, err
}

func listOwnerDocuments(tx *badger.Txn, ownerID string) ([]*core.Document, error) {
	var docs []*core.Document
	err := scanPrefix(tx, makeOwnerDocumentPrefix(ownerID), func(_, val []byte) error {
		id, err := storage.UnmarshalID(val)
		if err != nil {
			return err
		}
		doc, err := readDocument(tx, id)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
		return nil
	})
	return docs, err
}
