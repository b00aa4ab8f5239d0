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


// Package search provides hybrid semantic and conceptual search over an
// owner's library.
//
// The Searcher type implements a multi-stage search algorithm that combines:
//   - Semantic search using vector embeddings, scoped to one owner
//   - Conceptual search through the shared concept graph
//   - Verbatim keyword matching with stop-word filtering
//
// The concept graph is shared across owners, but every result is one of the
// searching owner's own documents.
package search
