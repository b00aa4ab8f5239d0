package ingestion

import (
	"context"
	"slices"
	"sync"

	"github.com/poiesic/wellspring/core"
)

// JobQueue is the FIFO the pipeline drains.
type JobQueue interface {
	// Push appends a job.
	Push(ctx context.Context, job *core.IngestionJob) error

	// Pop removes the oldest job. Returns ErrQueueEmpty when nothing is queued.
	Pop(ctx context.Context) (*core.IngestionJob, error)

	// Len returns the number of queued jobs.
	Len(ctx context.Context) (int, error)
}

// pendingLister is implemented by queues that can list queued jobs without
// removing them, oldest first.
type pendingLister interface {
	Pending(ctx context.Context) ([]*core.IngestionJob, error)
}

// MemoryQueue is a volatile in-process JobQueue. Queued jobs are lost when
// the process exits.
type MemoryQueue struct {
	mu   sync.Mutex
	jobs []*core.IngestionJob
}

var (
	_ JobQueue      = (*MemoryQueue)(nil)
	_ pendingLister = (*MemoryQueue)(nil)
)

// NewMemoryQueue creates an empty in-memory queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{}
}

func (q *MemoryQueue) Push(_ context.Context, job *core.IngestionJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *MemoryQueue) Pop(_ context.Context) (*core.IngestionJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		return nil, ErrQueueEmpty
	}
	job := q.jobs[0]
	q.jobs[0] = nil
	q.jobs = q.jobs[1:]
	return job, nil
}

func (q *MemoryQueue) Len(_ context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs), nil
}

func (q *MemoryQueue) Pending(_ context.Context) ([]*core.IngestionJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.jobs), nil
}
