// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/poiesic/wellspring/core"
)

// MarshalID serializes an ID to 8 big-endian bytes so keys sort by ID.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(id))
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	if len(data) != 8 {
		return 0, fmt.Errorf("%w: id needs 8 bytes, got %d", ErrSerializationFailed, len(data))
	}
	return core.ID(binary.BigEndian.Uint64(data)), nil
}

func marshal(kind string, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSerializationFailed, kind, err)
	}
	return data, nil
}

func unmarshal[T any](kind string, data []byte) (*T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSerializationFailed, kind, err)
	}
	return &v, nil
}

// MarshalDocument serializes a Document to bytes.
func MarshalDocument(doc *core.Document) ([]byte, error) {
	return marshal("document", doc)
}

// UnmarshalDocument deserializes a Document from bytes.
func UnmarshalDocument(data []byte) (*core.Document, error) {
	return unmarshal[core.Document]("document", data)
}

// MarshalBalance serializes a LibraryBalance to bytes.
func MarshalBalance(balance *core.LibraryBalance) ([]byte, error) {
	return marshal("balance", balance)
}

// UnmarshalBalance deserializes a LibraryBalance from bytes.
func UnmarshalBalance(data []byte) (*core.LibraryBalance, error) {
	return unmarshal[core.LibraryBalance]("balance", data)
}

// MarshalNode serializes a GraphNode to bytes.
func MarshalNode(node *core.GraphNode) ([]byte, error) {
	return marshal("node", node)
}

// UnmarshalNode deserializes a GraphNode from bytes.
func UnmarshalNode(data []byte) (*core.GraphNode, error) {
	return unmarshal[core.GraphNode]("node", data)
}

// MarshalEdge serializes a GraphEdge to bytes.
func MarshalEdge(edge *core.GraphEdge) ([]byte, error) {
	return marshal("edge", edge)
}

// UnmarshalEdge deserializes a GraphEdge from bytes.
func UnmarshalEdge(data []byte) (*core.GraphEdge, error) {
	return unmarshal[core.GraphEdge]("edge", data)
}

// MarshalBridge serializes a ConceptBridge to bytes.
func MarshalBridge(bridge *core.ConceptBridge) ([]byte, error) {
	return marshal("bridge", bridge)
}

// UnmarshalBridge deserializes a ConceptBridge from bytes.
func UnmarshalBridge(data []byte) (*core.ConceptBridge, error) {
	return unmarshal[core.ConceptBridge]("bridge", data)
}
