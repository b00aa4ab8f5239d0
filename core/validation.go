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

import (
	"fmt"
	"math"
	"strings"
)

// ValidateJob validates an IngestionJob according to domain rules.
//
// Validation rules:
//   - OwnerID must not be empty
//   - RawContentRef must not be empty
//   - Attribution must be valid and, when it names an owner, match OwnerID
//
// NOT validated (populated by the pipeline):
//   - Id (assigned on enqueue when empty)
//   - SubmittedAt (assigned on enqueue when zero)
func ValidateJob(job *IngestionJob) error {
	if job == nil {
		return fmt.Errorf("%w: job is nil", ErrInvalidJob)
	}

	if strings.TrimSpace(job.OwnerID) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidJob, ErrEmptyOwner)
	}

	if strings.TrimSpace(job.RawContentRef) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidJob, ErrEmptyContentRef)
	}

	if err := ValidateAttribution(job.Attribution); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidJob, err)
	}

	if job.Attribution.OwnerID != "" && job.Attribution.OwnerID != job.OwnerID {
		return fmt.Errorf("%w: %w", ErrInvalidJob, ErrOwnerMismatch)
	}

	return nil
}

// ValidateAttribution validates a ContributorAttribution.
func ValidateAttribution(a ContributorAttribution) error {
	if err := ValidatePrivacyLevel(a.PrivacyLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAttribution, err)
	}
	return nil
}

// ValidatePrivacyLevel validates that a PrivacyLevel has a known value.
func ValidatePrivacyLevel(level PrivacyLevel) error {
	switch level {
	case PrivacyAttributed, PrivacyAnonymous, PrivacyPrivate:
		return nil
	default:
		return fmt.Errorf("%w: value %q", ErrInvalidPrivacyLevel, level)
	}
}

// ValidateAnalysis validates an AnalysisResult produced by an analyzer.
//
// Validation rules:
//   - Weights only use dimensions from Dimensions
//   - Weights are finite and non-negative
//   - Concept and practice names are not blank
func ValidateAnalysis(result *AnalysisResult) error {
	if result == nil {
		return fmt.Errorf("%w: result is nil", ErrInvalidAnalysis)
	}

	if err := ValidateWeights(result.Weights); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAnalysis, err)
	}

	for _, names := range [][]string{result.ConceptsIntroduced, result.ConceptsReferenced, result.PracticesDescribed} {
		for _, name := range names {
			if strings.TrimSpace(name) == "" {
				return fmt.Errorf("%w: %w", ErrInvalidAnalysis, ErrEmptyConceptName)
			}
		}
	}

	return nil
}

// ValidateWeights validates a classification weight vector.
func ValidateWeights(weights ClassificationWeights) error {
	for d, v := range weights {
		if !IsValidDimension(d) {
			return fmt.Errorf("%w: %q", ErrUnknownDimension, d)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: %s=%v", ErrNegativeWeight, d, v)
		}
	}
	return nil
}
