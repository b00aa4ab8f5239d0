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


// Package ai provides abstractions for the AI services used by Wellspring.
//
// The ingestion pipeline treats embedding and analysis as black boxes reached
// through three interfaces:
//
//   - Embedder: Generates vector embeddings from text
//   - Analyzer: Produces a structured core.AnalysisResult for a document
//   - AIProvider: Aggregates both for convenient initialization
//
// # Implementation Packages
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// Public constructors in ai/openai return interface types. Mock constructors
// return concrete types so tests can inject behavior and count calls.
//
// # Failure Contract
//
// An Embedder must fail loudly (ErrEmptyEmbedding) instead of returning a zero
// vector. An Analyzer must validate its output and fail with
// ErrMalformedAnalysis; the pipeline substitutes core.FallbackAnalysis.
//
// # Usage Example
//
//	provider, err := openai.NewProvider(ai.NewConfig(ai.WithHost("http://localhost:11434")))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vector, err := provider.Embedder().EmbedText(ctx, "Prana moves through the nadis")
//	analysis, err := provider.Analyzer().Analyze(ctx, "Prana moves through the nadis")
package ai
