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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidJob indicates an IngestionJob failed validation.
	ErrInvalidJob = errors.New("invalid ingestion job")

	// ErrInvalidAnalysis indicates an AnalysisResult failed validation.
	ErrInvalidAnalysis = errors.New("invalid analysis result")

	// ErrInvalidAttribution indicates a ContributorAttribution failed validation.
	ErrInvalidAttribution = errors.New("invalid contributor attribution")

	// ErrEmptyOwner indicates the owner id is empty.
	ErrEmptyOwner = errors.New("owner id cannot be empty")

	// ErrEmptyContentRef indicates the raw content reference is empty.
	ErrEmptyContentRef = errors.New("raw content reference cannot be empty")

	// ErrOwnerMismatch indicates the attribution belongs to a different owner than the job.
	ErrOwnerMismatch = errors.New("attribution owner does not match job owner")

	// ErrInvalidPrivacyLevel indicates an unknown PrivacyLevel value.
	ErrInvalidPrivacyLevel = errors.New("invalid privacy level")

	// ErrUnknownDimension indicates a weight for a dimension outside Dimensions.
	ErrUnknownDimension = errors.New("unknown classification dimension")

	// ErrNegativeWeight indicates a negative or non-finite classification weight.
	ErrNegativeWeight = errors.New("classification weight must be a non-negative number")

	// ErrEmptyConceptName indicates an empty concept or practice name.
	ErrEmptyConceptName = errors.New("concept name cannot be empty")
)
