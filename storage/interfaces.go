package storage

import (
	"context"

	"github.com/poiesic/wellspring/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// Repository calls made with the context passed to fn join the transaction.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// ScoredDocument pairs a document with its similarity to a query vector.
type ScoredDocument struct {
	Document *core.Document
	Score    float32
}

// DocumentRepository stores analyzed documents. Documents are immutable once saved.
type DocumentRepository interface {
	// NextDocumentID reserves a new document ID from a sequence. IDs are never 0.
	NextDocumentID(ctx context.Context) (core.ID, error)

	// SaveDocument persists a document under its ID.
	// Returns ErrDuplicateKey if a document with that ID already exists.
	SaveDocument(ctx context.Context, doc *core.Document) error

	// GetDocument retrieves a document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id core.ID) (*core.Document, error)

	// ListDocuments returns all documents of an owner in ID order.
	ListDocuments(ctx context.Context, ownerID string) ([]*core.Document, error)

	// SimilaritySearch finds the owner's documents similar to vector.
	// Returns documents with similarity >= minSimilarity, up to limit results,
	// ordered by score (highest first). Equal scores keep ID order.
	SimilaritySearch(ctx context.Context, ownerID string, vector []float32, minSimilarity float32, limit int) ([]*ScoredDocument, error)
}

// BalanceRepository stores each owner's running classification balance.
type BalanceRepository interface {
	// GetBalance returns the owner's balance. An owner with no documents
	// gets an empty balance with DocumentCount 0, not an error.
	GetBalance(ctx context.Context, ownerID string) (*core.LibraryBalance, error)

	// PutBalance replaces the owner's balance.
	PutBalance(ctx context.Context, balance *core.LibraryBalance) error
}

// GraphRepository stores the global concept graph.
type GraphRepository interface {
	// GetNode retrieves a node by ID.
	// Returns ErrNotFound if the node doesn't exist.
	GetNode(ctx context.Context, id core.ID) (*core.GraphNode, error)

	// PutNode inserts or replaces a node under its ID.
	PutNode(ctx context.Context, node *core.GraphNode) error

	// ListNodes returns nodes of the given kind, or all nodes if kind is empty.
	ListNodes(ctx context.Context, kind core.NodeKind) ([]*core.GraphNode, error)

	// AppendEdge stores a new edge with a fresh ID and creation time.
	// Edges are never de-duplicated.
	AppendEdge(ctx context.Context, edge *core.GraphEdge) (*core.GraphEdge, error)

	// EdgesFrom returns the edges whose source is the given document, in creation order.
	EdgesFrom(ctx context.Context, documentID core.ID) ([]*core.GraphEdge, error)

	// EdgesTo returns the edges targeting the given concept name, in creation order.
	EdgesTo(ctx context.Context, concept string) ([]*core.GraphEdge, error)
}

// BridgeRepository stores concept bridges keyed by canonical tag.
type BridgeRepository interface {
	// AppendBridge merges a bridge into the stored bridge for its canonical tag.
	// Parallels are appended; existing ones are never replaced.
	AppendBridge(ctx context.Context, bridge *core.ConceptBridge) error

	// GetBridge retrieves the accumulated bridge for a canonical tag.
	// Returns ErrNotFound if no bridge exists.
	GetBridge(ctx context.Context, canonicalTag string) (*core.ConceptBridge, error)

	// ListBridges returns all stored bridges ordered by canonical tag.
	ListBridges(ctx context.Context) ([]*core.ConceptBridge, error)
}

// Store aggregates the repositories behind one transactional backend.
type Store interface {
	Repository
	Documents() DocumentRepository
	Balances() BalanceRepository
	Graph() GraphRepository
	Bridges() BridgeRepository
}
