package badger

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/wellspring/core"
	"github.com/poiesic/wellspring/storage"
)

// GraphRepository implements storage.GraphRepository for BadgerDB.
type GraphRepository struct {
	backend *Backend
	edgeSeq *badger.Sequence
}

var _ storage.GraphRepository = (*GraphRepository)(nil)

func newGraphRepository(backend *Backend) (*GraphRepository, error) {
	edgeSeq, err := backend.GetSequence(edgeIDSeq)
	if err != nil {
		return nil, err
	}
	return &GraphRepository{
		backend: backend,
		edgeSeq: edgeSeq,
	}, nil
}

// Close releases the edge ID sequence.
func (r *GraphRepository) Close() error {
	return r.edgeSeq.Release()
}

// GetNode retrieves a node by ID.
func (r *GraphRepository) GetNode(ctx context.Context, id core.ID) (*core.GraphNode, error) {
	var node *core.GraphNode
	err := r.backend.run(ctx, false, func(tx *badger.Txn) error {
		return getValue(tx, makeNodeKey(id), func(val []byte) error {
			var err error
			node, err = storage.UnmarshalNode(val)
			return err
		})
	})
	return node, err
}

// PutNode inserts or replaces a node. Nodes without an ID get the content ID of their tuple.
func (r *GraphRepository) PutNode(ctx context.Context, node *core.GraphNode) error {
	if node == nil || node.Name == "" {
		return storage.ErrInvalidQuery
	}
	if node.Id == 0 {
		node.Id = core.IDFromContent(node.Tuple())
	}
	value, err := storage.MarshalNode(node)
	if err != nil {
		return err
	}
	return r.backend.run(ctx, true, func(tx *badger.Txn) error {
		return tx.Set(makeNodeKey(node.Id), value)
	})
}

// ListNodes returns nodes of a kind (all if empty), sorted by kind then name.
func (r *GraphRepository) ListNodes(ctx context.Context, kind core.NodeKind) ([]*core.GraphNode, error) {
	var nodes []*core.GraphNode
	err := r.backend.run(ctx, false, func(tx *badger.Txn) error {
		return scanPrefix(tx, []byte(nodePrefix), func(_, val []byte) error {
			node, err := storage.UnmarshalNode(val)
			if err != nil {
				return err
			}
			if kind == "" || node.Kind == kind {
				nodes = append(nodes, node)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(nodes, func(a, b *core.GraphNode) int {
		if c := strings.Compare(string(a.Kind), string(b.Kind)); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return nodes, nil
}

// AppendEdge stores a new edge and its source and target index entries.
func (r *GraphRepository) AppendEdge(ctx context.Context, edge *core.GraphEdge) (*core.GraphEdge, error) {
	if edge == nil || edge.TargetConcept == "" {
		return nil, storage.ErrInvalidQuery
	}

	nextID, err := r.edgeSeq.Next()
	if err != nil {
		return nil, err
	}
	if nextID == 0 {
		if nextID, err = r.edgeSeq.Next(); err != nil {
			return nil, err
		}
	}

	stored := *edge
	stored.Id = core.ID(nextID)
	stored.TargetConcept = core.NormalizeName(edge.TargetConcept)
	if stored.Kind == "" {
		stored.Kind = core.EdgeKindReferences
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	value, err := storage.MarshalEdge(&stored)
	if err != nil {
		return nil, err
	}

	err = r.backend.run(ctx, true, func(tx *badger.Txn) error {
		if err := tx.Set(makeEdgeKey(stored.Id), value); err != nil {
			return err
		}
		idBytes := storage.MarshalID(stored.Id)
		if err := tx.Set(makeEdgeDocumentKey(stored.SourceDocumentID, stored.Id), idBytes); err != nil {
			return err
		}
		return tx.Set(makeEdgeConceptKey(stored.TargetConcept, stored.Id), idBytes)
	})
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// EdgesFrom returns the edges created from a document.
func (r *GraphRepository) EdgesFrom(ctx context.Context, documentID core.ID) ([]*core.GraphEdge, error) {
	return r.edgesByIndex(ctx, makeEdgeDocumentPrefix(documentID))
}

// EdgesTo returns the edges targeting a concept.
func (r *GraphRepository) EdgesTo(ctx context.Context, concept string) ([]*core.GraphEdge, error) {
	return r.edgesByIndex(ctx, makeEdgeConceptPrefix(core.NormalizeName(concept)))
}

func (r *GraphRepository) edgesByIndex(ctx context.Context, prefix []byte) ([]*core.GraphEdge, error) {
	var edges []*core.GraphEdge
	err := r.backend.run(ctx, false, func(tx *badger.Txn) error {
		return scanPrefix(tx, prefix, func(_, val []byte) error {
			id, err := storage.UnmarshalID(val)
			if err != nil {
				return err
			}
			return getValue(tx, makeEdgeKey(id), func(edgeVal []byte) error {
				edge, err := storage.UnmarshalEdge(edgeVal)
				if err != nil {
					return err
				}
				edges = append(edges, edge)
				return nil
			})
		})
	})
	return edges, err
}
