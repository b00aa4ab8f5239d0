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


// Package storage provides the storage abstraction layer for Wellspring.
//
// This package defines repository interfaces that decouple storage implementation
// from business logic. It allows for different storage backends (BadgerDB, in-memory,
// etc.) to be used interchangeably.
//
// # Constructor Return Type Pattern
//
// Public constructors return interfaces to enforce abstraction:
//
//	store, err := badger.NewStore(path)  // returns storage.Store interface
//
// Internal package constructors (newDocumentRepository, etc.) may return
// concrete types since they're only used within the implementation package.
//
// # Architecture
//
// The storage layer follows the Repository pattern:
//
//   - Store: Aggregates all repositories behind one transactional backend
//   - DocumentRepository: Immutable analyzed documents and owner-scoped similarity search
//   - BalanceRepository: Per-owner running classification means
//   - GraphRepository: Global concept and practice nodes plus append-only reference edges
//   - BridgeRepository: Append-only concept bridges keyed by canonical tag
//
// # Transactions
//
// Store.WithTransaction runs a function inside one write transaction. Any
// repository call made with the context it passes joins that transaction, so
// a document and its balance update commit or roll back together:
//
//	err := store.WithTransaction(ctx, func(ctx context.Context) error {
//	    if err := store.Documents().SaveDocument(ctx, doc); err != nil {
//	        return err
//	    }
//	    return store.Balances().PutBalance(ctx, balance)
//	})
//
// # Usage
//
// Use in tests with in-memory storage:
//
//	store, err := badger.NewMemoryStore()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation
// and transaction propagation. Pass context.Background() for operations
// without specific requirements.
package storage
