package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/poiesic/wellspring/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisQueue(t *testing.T) (*RedisQueue, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	q, err := NewRedisQueue(RedisOptions{
		URL:            fmt.Sprintf("redis://%s", mr.Addr()),
		ConnectTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })

	return q, mr
}

func queuedJob(id string) *core.IngestionJob {
	return &core.IngestionJob{
		Id:            id,
		OwnerID:       "u1",
		RawContentRef: "inline:text for " + id,
		Attribution:   core.ContributorAttribution{PrivacyLevel: core.PrivacyAnonymous},
	}
}

func testQueueFIFO(t *testing.T, q JobQueue) {
	ctx := context.Background()

	_, err := q.Pop(ctx)
	assert.ErrorIs(t, err, ErrQueueEmpty)

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Push(ctx, queuedJob(id)))
	}

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	pending, err := q.(pendingLister).Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, "a", pending[0].Id)
	assert.Equal(t, "c", pending[2].Id)

	for _, want := range []string{"a", "b", "c"} {
		job, err := q.Pop(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, job.Id)
		assert.Equal(t, "u1", job.OwnerID)
	}

	_, err = q.Pop(ctx)
	assert.ErrorIs(t, err, ErrQueueEmpty)
}

func TestMemoryQueue(t *testing.T) {
	testQueueFIFO(t, NewMemoryQueue())
}

func TestRedisQueue(t *testing.T) {
	q, _ := setupRedisQueue(t)
	testQueueFIFO(t, q)
}

func TestRedisQueue_RoundTripsJob(t *testing.T) {
	ctx := context.Background()
	q, mr := setupRedisQueue(t)

	job := queuedJob("x")
	job.Tags = []string{"breathwork"}
	job.Source = core.SourceImport
	job.SubmittedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, q.Push(ctx, job))
	assert.True(t, mr.Exists(DefaultRedisQueueKey))

	got, err := q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, job.Tags, got.Tags)
	assert.Equal(t, job.Source, got.Source)
	assert.True(t, job.SubmittedAt.Equal(got.SubmittedAt))
	assert.Equal(t, core.PrivacyAnonymous, got.Attribution.PrivacyLevel)
}

func TestRedisQueue_CorruptEntry(t *testing.T) {
	q, mr := setupRedisQueue(t)
	_, err := mr.Lpush(DefaultRedisQueueKey, "not json")
	require.NoError(t, err)

	_, err = q.Pop(context.Background())
	assert.ErrorIs(t, err, ErrCorruptJob)
	assert.ErrorContains(t, err, "failed to unmarshal job")

	pending, err := q.Pending(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestPipeline_DropsCorruptRedisEntry(t *testing.T) {
	q, mr := setupRedisQueue(t)
	_, err := mr.Lpush(DefaultRedisQueueKey, "{not json")
	require.NoError(t, err)

	h := newHarness(t, WithQueue(q))
	status := h.ingest(t, testJob("u1", "after the bad entry", core.PrivacyAttributed))
	require.Equal(t, StatePersisted, status.State, status.Reason)

	left, err := q.Len(context.Background())
	require.NoError(t, err)
	assert.Zero(t, left)
}

// flakyQueue fails the first pops with a transport error.
type flakyQueue struct {
	*MemoryQueue
	mu       sync.Mutex
	failures int
}

func (q *flakyQueue) Pop(ctx context.Context) (*core.IngestionJob, error) {
	q.mu.Lock()
	if q.failures > 0 {
		q.failures--
		q.mu.Unlock()
		return nil, errors.New("connection reset")
	}
	q.mu.Unlock()
	return q.MemoryQueue.Pop(ctx)
}

func TestPipeline_RetriesQueueErrors(t *testing.T) {
	q := &flakyQueue{MemoryQueue: NewMemoryQueue(), failures: 2}
	h := newHarness(t, WithQueue(q))

	first := h.enqueue(t, testJob("u1", "first", core.PrivacyAttributed))
	second := h.enqueue(t, testJob("u1", "second", core.PrivacyAttributed))

	assert.Equal(t, StatePersisted, h.wait(t, first).State)
	assert.Equal(t, StatePersisted, h.wait(t, second).State)
}

func TestNewRedisQueue_Errors(t *testing.T) {
	_, err := NewRedisQueue(RedisOptions{URL: "invalid://url"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse Redis URL")

	_, err = NewRedisQueue(RedisOptions{URL: "redis://localhost:1", ConnectTimeout: 100 * time.Millisecond})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to Redis")
}

func TestPipeline_ResumeFromRedis(t *testing.T) {
	ctx := context.Background()
	q, _ := setupRedisQueue(t)

	// Jobs left behind by an earlier process.
	require.NoError(t, q.Push(ctx, queuedJob("left-1")))
	require.NoError(t, q.Push(ctx, queuedJob("left-2")))

	h := newHarness(t, WithQueue(q))

	n, err := h.pipeline.Resume(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	first := h.wait(t, JobHandle{JobID: "left-1"})
	second := h.wait(t, JobHandle{JobID: "left-2"})
	require.Equal(t, StatePersisted, first.State, first.Reason)
	require.Equal(t, StatePersisted, second.State, second.Reason)
	assert.Less(t, first.DocumentID, second.DocumentID)

	left, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, left)

	n, err = h.pipeline.Resume(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStatusBook_Retention(t *testing.T) {
	b := newStatusBook(2)
	now := time.Now()

	for _, id := range []string{"a", "b", "c", "live"} {
		require.True(t, b.add(id, "u1", now))
	}
	assert.False(t, b.add("a", "u1", now))

	for _, id := range []string{"a", "b", "c"} {
		b.update(id, now, func(s *JobStatus) { s.State = StatePersisted })
	}

	_, ok := b.get("a")
	assert.False(t, ok)
	_, ok = b.get("b")
	assert.True(t, ok)
	_, ok = b.get("c")
	assert.True(t, ok)
	s, ok := b.get("live")
	require.True(t, ok)
	assert.Equal(t, StateQueued, s.State)

	// Terminal statuses do not change afterwards.
	b.update("c", now, func(s *JobStatus) { s.State = StateFailed })
	s, _ = b.get("c")
	assert.Equal(t, StatePersisted, s.State)
}

func TestStepError(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := stepFailure(StateResonanceSearch, cause)

	assert.ErrorIs(t, err, ErrResonanceSearchFailure)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "resonance search failure at resonance-search: boom", err.Error())

	explicit := &StepError{Step: StateEmbedding, Kind: ErrFetchFailure, Err: cause}
	assert.Same(t, explicit, stepFailure(StateEmbedding, fmt.Errorf("wrapped: %w", explicit)))
	assert.ErrorIs(t, stepFailure(StateBalanceUpdate, cause), ErrPersistenceFailure)
}
