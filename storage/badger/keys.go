package badger

import (
	"github.com/poiesic/wellspring/core"
	"github.com/poiesic/wellspring/storage"
)

// Key prefixes for different data types
const (
	documentPrefix      = "doc:"
	ownerDocumentPrefix = "docown:"
	documentIDSeq       = "docseq"
	balancePrefix       = "bal:"
	nodePrefix          = "node:"
	edgePrefix          = "edge:"
	edgeDocumentPrefix  = "edgedoc:"
	edgeConceptPrefix   = "edgecon:"
	edgeIDSeq           = "edgeseq"
	bridgePrefix        = "brg:"
)

// keySeparator terminates variable-length key components such as owner IDs.
const keySeparator = 0x00

// concatKey joins a prefix and parts into one key.
func concatKey(prefix string, parts ...[]byte) []byte {
	size := len(prefix)
	for _, p := range parts {
		size += len(p)
	}
	buf := make([]byte, 0, size)
	buf = append(buf, prefix...)
	for _, p := range parts {
		buf = append(buf, p...)
	}
	return buf
}

// terminated returns s followed by keySeparator.
func terminated(s string) []byte {
	return append([]byte(s), keySeparator)
}

// makeDocumentKey generates a key for a document by ID.
func makeDocumentKey(id core.ID) []byte {
	return concatKey(documentPrefix, storage.MarshalID(id))
}

// makeOwnerDocumentKey generates a composite key for the owner index.
// Format: prefix:owner\x00id
func makeOwnerDocumentKey(ownerID string, id core.ID) []byte {
	return concatKey(ownerDocumentPrefix, terminated(ownerID), storage.MarshalID(id))
}

// makeOwnerDocumentPrefix generates a partial key for listing an owner's documents.
func makeOwnerDocumentPrefix(ownerID string) []byte {
	return concatKey(ownerDocumentPrefix, terminated(ownerID))
}

// makeBalanceKey generates a key for an owner's balance.
func makeBalanceKey(ownerID string) []byte {
	return concatKey(balancePrefix, []byte(ownerID))
}

// makeNodeKey generates a key for a graph node by ID.
func makeNodeKey(id core.ID) []byte {
	return concatKey(nodePrefix, storage.MarshalID(id))
}

// makeEdgeKey generates a key for an edge by ID.
func makeEdgeKey(id core.ID) []byte {
	return concatKey(edgePrefix, storage.MarshalID(id))
}

// makeEdgeDocumentKey generates a composite key for the edge source index.
// Format: prefix:documentID:edgeID
func makeEdgeDocumentKey(documentID, edgeID core.ID) []byte {
	return concatKey(edgeDocumentPrefix, storage.MarshalID(documentID), storage.MarshalID(edgeID))
}

// makeEdgeDocumentPrefix generates a partial key for edges from a document.
func makeEdgeDocumentPrefix(documentID core.ID) []byte {
	return concatKey(edgeDocumentPrefix, storage.MarshalID(documentID))
}

// makeEdgeConceptKey generates a composite key for the edge target index.
// Format: prefix:concept\x00edgeID
func makeEdgeConceptKey(concept string, edgeID core.ID) []byte {
	return concatKey(edgeConceptPrefix, terminated(concept), storage.MarshalID(edgeID))
}

// makeEdgeConceptPrefix generates a partial key for edges to a concept.
func makeEdgeConceptPrefix(concept string) []byte {
	return concatKey(edgeConceptPrefix, terminated(concept))
}

// makeBridgeKey generates a key for a bridge by canonical tag.
func makeBridgeKey(canonicalTag string) []byte {
	return concatKey(bridgePrefix, []byte(canonicalTag))
}
