package ingestion

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/poiesic/wellspring/core"
)

// JobState is a job's position in the ingestion state machine.
type JobState string

const (
	StateQueued          JobState = "queued"
	StateEmbedding       JobState = "embedding"
	StateAnalyzing       JobState = "analyzing"
	StateResonanceSearch JobState = "resonance-search"
	StateConceptBridging JobState = "concept-bridging"
	StateBalanceUpdate   JobState = "balance-update"
	StateGraphWeave      JobState = "graph-weave"
	StatePersisted       JobState = "persisted"
	StateFailed          JobState = "failed"
)

// Terminal reports whether no further transitions follow s.
func (s JobState) Terminal() bool {
	return s == StatePersisted || s == StateFailed
}

// JobHandle identifies a submitted job.
type JobHandle struct {
	JobID       string
	SubmittedAt time.Time
}

// JobStatus is the observable progress of a job.
type JobStatus struct {
	JobID      string
	OwnerID    string
	State      JobState
	FailedStep JobState // Set when State is StateFailed
	Reason     string
	Err        error
	DocumentID core.ID // Set once the job is persisted
	Warnings   []string
	UpdatedAt  time.Time
}

type statusEntry struct {
	status JobStatus
	done   chan struct{}
}

// statusBook tracks job statuses. Terminal statuses beyond the retention
// limit are evicted oldest first; live jobs are never evicted.
type statusBook struct {
	mu        sync.Mutex
	entries   map[string]*statusEntry
	finished  []string
	retention int
}

func newStatusBook(retention int) *statusBook {
	return &statusBook{
		entries:   make(map[string]*statusEntry),
		retention: retention,
	}
}

// add registers a queued job. It reports false if the id is already known.
func (b *statusBook) add(jobID, ownerID string, at time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.entries[jobID]; ok {
		return false
	}
	b.entries[jobID] = &statusEntry{
		status: JobStatus{JobID: jobID, OwnerID: ownerID, State: StateQueued, UpdatedAt: at},
		done:   make(chan struct{}),
	}
	return true
}

func (b *statusBook) remove(jobID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.entries, jobID)
}

// update applies fn to the job's status and closes its done channel when the
// status becomes terminal.
func (b *statusBook) update(jobID string, at time.Time, fn func(*JobStatus)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[jobID]
	if !ok || e.status.State.Terminal() {
		return
	}
	fn(&e.status)
	e.status.UpdatedAt = at
	if !e.status.State.Terminal() {
		return
	}
	close(e.done)
	b.finished = append(b.finished, jobID)
	for len(b.finished) > b.retention {
		delete(b.entries, b.finished[0])
		b.finished = b.finished[1:]
	}
}

func (b *statusBook) get(jobID string) (JobStatus, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[jobID]
	if !ok {
		return JobStatus{}, false
	}
	return e.snapshot(), true
}

func (e *statusEntry) snapshot() JobStatus {
	s := e.status
	s.Warnings = slices.Clone(e.status.Warnings)
	return s
}

func (b *statusBook) wait(ctx context.Context, jobID string) (JobStatus, error) {
	b.mu.Lock()
	e, ok := b.entries[jobID]
	b.mu.Unlock()
	if !ok {
		return JobStatus{}, ErrUnknownJob
	}

	select {
	case <-e.done:
		b.mu.Lock()
		defer b.mu.Unlock()
		return e.snapshot(), nil
	case <-ctx.Done():
		s, _ := b.get(jobID)
		return s, ctx.Err()
	}
}
