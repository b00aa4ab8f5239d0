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


package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/poiesic/wellspring/core"
	"github.com/poiesic/wellspring/resonance"
)

// processor is one step of a job. A processor that can recover from its own
// failure logs and substitutes a default; a returned error is terminal.
type processor interface {
	// state is the job state reported while the processor runs.
	state() JobState

	// process advances w.
	process(ctx context.Context, w *work) error
}

// work carries one job's intermediate results between processors.
type work struct {
	job        *core.IngestionJob
	docID      core.ID
	text       string
	vector     []float32
	analysis   *core.AnalysisResult
	resonances []core.DocumentResonance
	bridges    []core.ConceptBridge
	balance    *core.LibraryBalance
	warnings   []string
}

// recovered notes a failure the job continues past.
func (w *work) recovered(kind, err error) {
	w.warnings = append(w.warnings, fmt.Sprintf("%v: %v", kind, err))
}

func (w *work) candidate() resonance.Candidate {
	return resonance.Candidate{
		OwnerID:  w.job.OwnerID,
		Vector:   w.vector,
		Tags:     w.job.Tags,
		Content:  w.text,
		Analysis: w.analysis,
	}
}

// document assembles the record persisted for w.
func (w *work) document() *core.Document {
	return &core.Document{
		Id:          w.docID,
		OwnerID:     w.job.OwnerID,
		Content:     w.text,
		Vector:      w.vector,
		Analysis:    w.analysis,
		Attribution: w.job.Attribution.Redacted(),
		Tags:        w.job.Tags,
		Source:      w.job.Source,
		Resonances:  w.resonances,
		Bridges:     w.bridges,
	}
}

// bounded runs fn with a deadline on the caller's goroutine, for calls that
// write to the store. A call that returns after the deadline has passed
// counts as failed.
func bounded(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		return err
	}
	return ctx.Err()
}

// detached runs fn on its own goroutine and stops waiting once the deadline
// passes, whether or not fn honors ctx. A late result is discarded, so fn must
// only return values and never write state the job shares. A panic in fn is
// re-raised on the caller's goroutine.
func detached[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		value     T
		err       error
		recovered any
	}
	done := make(chan outcome, 1)
	go func() {
		var out outcome
		defer func() {
			out.recovered = recover()
			done <- out
		}()
		out.value, out.err = fn(ctx)
	}()

	var zero T
	select {
	case out := <-done:
		if out.recovered != nil {
			panic(out.recovered)
		}
		if out.err != nil {
			return zero, out.err
		}
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		return out.value, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
