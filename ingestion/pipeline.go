package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/wellspring/ai"
	"github.com/poiesic/wellspring/balance"
	"github.com/poiesic/wellspring/bridge"
	"github.com/poiesic/wellspring/content"
	"github.com/poiesic/wellspring/core"
	"github.com/poiesic/wellspring/graph"
	"github.com/poiesic/wellspring/resonance"
	"github.com/poiesic/wellspring/storage"
)

const (
	// DefaultStepTimeout bounds every collaborator call.
	DefaultStepTimeout = 30 * time.Second

	// DefaultStatusRetention is how many finished job statuses are kept.
	DefaultStatusRetention = 1024

	popRetryDelay    = 100 * time.Millisecond
	maxPopRetryDelay = 5 * time.Second
)

// Dependencies are the collaborators a Pipeline is built from.
type Dependencies struct {
	Loader   content.Loader
	Provider ai.AIProvider
	Store    storage.Store
}

// Pipeline drains submitted jobs one at a time.
type Pipeline struct {
	store      storage.Store
	queue      JobQueue
	pool       *ants.Pool
	processors []processor
	statuses   *statusBook
	logger     *slog.Logger
	now        func() time.Time

	stepTimeout     time.Duration
	statusRetention int
	resonanceOpts   []resonance.Option
	bridgeTable     *bridge.Table
	nodePolicy      graph.NodeUpsertPolicy
	mirror          graph.Mirror

	aggregator *balance.Aggregator

	mu       sync.Mutex
	draining bool
	released bool
	stop     chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithQueue sets the job queue. Default is a MemoryQueue.
func WithQueue(queue JobQueue) Option {
	return func(p *Pipeline) error {
		if queue == nil {
			return errors.New("job queue cannot be nil")
		}
		p.queue = queue
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithStepTimeout bounds each collaborator call. Default is DefaultStepTimeout.
func WithStepTimeout(timeout time.Duration) Option {
	return func(p *Pipeline) error {
		if timeout <= 0 {
			return fmt.Errorf("step timeout must be positive, got %v", timeout)
		}
		p.stepTimeout = timeout
		return nil
	}
}

// WithStatusRetention sets how many finished job statuses are kept.
func WithStatusRetention(n int) Option {
	return func(p *Pipeline) error {
		if n < 1 {
			return fmt.Errorf("status retention must be at least 1, got %d", n)
		}
		p.statusRetention = n
		return nil
	}
}

// WithResonanceOptions configures the resonance detector.
func WithResonanceOptions(opts ...resonance.Option) Option {
	return func(p *Pipeline) error {
		p.resonanceOpts = append(p.resonanceOpts, opts...)
		return nil
	}
}

// WithBridgeTable replaces the default concept bridge table.
func WithBridgeTable(table *bridge.Table) Option {
	return func(p *Pipeline) error {
		p.bridgeTable = table
		return nil
	}
}

// WithNodePolicy sets how graph nodes are merged. Default is graph.LastWriterWins.
func WithNodePolicy(policy graph.NodeUpsertPolicy) Option {
	return func(p *Pipeline) error {
		p.nodePolicy = policy
		return nil
	}
}

// WithGraphMirror sets a secondary sink for woven graph batches.
func WithGraphMirror(mirror graph.Mirror) Option {
	return func(p *Pipeline) error {
		p.mirror = mirror
		return nil
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) error {
		p.now = now
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(deps Dependencies, opts ...Option) (*Pipeline, error) {
	if deps.Loader == nil {
		return nil, ErrLoaderRequired
	}
	if deps.Store == nil {
		return nil, ErrStoreRequired
	}
	if deps.Provider == nil {
		return nil, ErrAIProviderRequired
	}

	pool, err := ants.NewPool(1)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		store:           deps.Store,
		queue:           NewMemoryQueue(),
		pool:            pool,
		logger:          slog.Default(),
		now:             func() time.Time { return time.Now().UTC() },
		stepTimeout:     DefaultStepTimeout,
		statusRetention: DefaultStatusRetention,
		nodePolicy:      graph.LastWriterWins{},
		stop:            make(chan struct{}),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	base := p.logger
	p.logger = base.With("component", "ingestion")
	p.statuses = newStatusBook(p.statusRetention)

	// Build processors after options are applied so they get final config
	if err := p.buildProcessors(deps, base); err != nil {
		p.Release()
		return nil, err
	}
	return p, nil
}

func (p *Pipeline) buildProcessors(deps Dependencies, base *slog.Logger) error {
	embedding, err := newEmbeddingProcessor(deps.Loader, deps.Provider.Embedder(), deps.Store.Documents(), p.stepTimeout, p.logger)
	if err != nil {
		return err
	}

	analyzer := deps.Provider.Analyzer()
	if analyzer == nil {
		return errors.New("analyzer required")
	}

	detector, err := resonance.NewDetector(deps.Store.Documents(), append([]resonance.Option{resonance.WithLogger(base)}, p.resonanceOpts...)...)
	if err != nil {
		return err
	}

	mapperOpts := []bridge.Option{bridge.WithLogger(base)}
	if p.bridgeTable != nil {
		mapperOpts = append(mapperOpts, bridge.WithTable(p.bridgeTable))
	}
	mapper, err := bridge.NewMapper(mapperOpts...)
	if err != nil {
		return err
	}

	aggregator, err := balance.NewAggregator(deps.Store.Balances(), balance.WithLogger(base), balance.WithClock(p.now))
	if err != nil {
		return err
	}
	p.aggregator = aggregator

	weaverOpts := []graph.Option{graph.WithLogger(base), graph.WithClock(p.now), graph.WithPolicy(p.nodePolicy)}
	if p.mirror != nil {
		weaverOpts = append(weaverOpts, graph.WithMirror(p.mirror))
	}
	weaver, err := graph.NewWeaver(deps.Store.Graph(), weaverOpts...)
	if err != nil {
		return err
	}

	p.processors = []processor{
		embedding,
		&analysisProcessor{analyzer: analyzer, timeout: p.stepTimeout, logger: p.logger.With("processor", "analysis")},
		&resonanceProcessor{detector: detector, timeout: p.stepTimeout, logger: p.logger.With("processor", "resonance")},
		&bridgeProcessor{mapper: mapper, logger: p.logger.With("processor", "bridges")},
		&balanceProcessor{aggregator: aggregator, timeout: p.stepTimeout},
		&graphProcessor{weaver: weaver, timeout: p.stepTimeout, logger: p.logger.With("processor", "graph")},
		&persistProcessor{store: deps.Store, aggregator: aggregator, timeout: p.stepTimeout, now: p.now},
	}
	return nil
}

// Enqueue validates job and queues it for processing. It returns as soon as
// the job is queued; use Status or Wait to observe the outcome.
func (p *Pipeline) Enqueue(ctx context.Context, job *core.IngestionJob) (JobHandle, error) {
	if err := core.ValidateJob(job); err != nil {
		return JobHandle{}, err
	}

	queued := *job
	queued.Tags = slices.Clone(job.Tags)
	if queued.Id == "" {
		queued.Id = uuid.NewString()
	}
	if queued.SubmittedAt.IsZero() {
		queued.SubmittedAt = p.now()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.released {
		return JobHandle{}, ErrPipelineReleased
	}

	if !p.statuses.add(queued.Id, queued.OwnerID, queued.SubmittedAt) {
		return JobHandle{}, fmt.Errorf("%w: %s", ErrDuplicateJob, queued.Id)
	}
	if err := p.queue.Push(ctx, &queued); err != nil {
		p.statuses.remove(queued.Id)
		return JobHandle{}, fmt.Errorf("enqueue job: %w", err)
	}
	p.logger.Debug("job queued", "job", queued.Id, "owner", queued.OwnerID)
	p.kick()

	return JobHandle{JobID: queued.Id, SubmittedAt: queued.SubmittedAt}, nil
}

// Resume starts draining jobs left in a durable queue by an earlier process
// and returns how many were found.
func (p *Pipeline) Resume(ctx context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.released {
		return 0, ErrPipelineReleased
	}

	if lister, ok := p.queue.(pendingLister); ok {
		pending, err := lister.Pending(ctx)
		if err != nil {
			return 0, err
		}
		for _, job := range pending {
			p.statuses.add(job.Id, job.OwnerID, p.now())
		}
	}

	n, err := p.queue.Len(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		p.logger.Info("resuming queued jobs", "jobs", n)
		p.kick()
	}
	return n, nil
}

// Status returns the job's current status. Finished jobs are forgotten once
// the retention limit is exceeded.
func (p *Pipeline) Status(jobID string) (JobStatus, bool) {
	return p.statuses.get(jobID)
}

// Wait blocks until the job finishes or ctx is done.
func (p *Pipeline) Wait(ctx context.Context, handle JobHandle) (JobStatus, error) {
	return p.statuses.wait(ctx, handle.JobID)
}

// Balance returns the owner's current library balance.
func (p *Pipeline) Balance(ctx context.Context, ownerID string) (*core.LibraryBalance, error) {
	return p.aggregator.Balance(ctx, ownerID)
}

// Release stops accepting jobs, waits for the job in progress and releases
// the worker pool. Jobs still queued stay in the queue.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	p.once.Do(func() {
		p.mu.Lock()
		p.released = true
		p.mu.Unlock()
		close(p.stop)

		p.wg.Wait()
		if p.pool != nil {
			p.pool.Release()
		}
	})
}

// kick schedules a drain unless one is running. Caller holds p.mu.
func (p *Pipeline) kick() {
	if p.draining || p.released {
		return
	}
	p.draining = true
	p.wg.Add(1)
	if err := p.pool.Submit(p.drain); err != nil {
		p.draining = false
		p.wg.Done()
		p.logger.Error("failed to schedule drain", "error", err)
	}
}

func (p *Pipeline) drain() {
	defer p.wg.Done()
	ctx := context.Background()
	for {
		job := p.next(ctx)
		if job == nil {
			return
		}
		p.runJob(ctx, job)
	}
}

// next pops the oldest job, or clears the draining flag and returns nil once
// the queue is empty or the pipeline is released. Entries that cannot be
// decoded are dropped. Other queue errors are retried with backoff so the
// jobs behind them still run.
func (p *Pipeline) next(ctx context.Context) *core.IngestionJob {
	delay := popRetryDelay
	for {
		job, done, err := p.pop(ctx)
		if done || err == nil {
			return job
		}
		if errors.Is(err, ErrCorruptJob) {
			p.logger.Error("dropping unreadable queue entry", "error", err)
			continue
		}

		p.logger.Warn("failed to pop job, retrying", "error", err, "delay", delay)
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-p.stop:
			timer.Stop()
		}
		delay = min(delay*2, maxPopRetryDelay)
	}
}

// pop holds p.mu so a concurrent Enqueue cannot miss the draining flag
// change. done reports that the drain should end.
func (p *Pipeline) pop(ctx context.Context) (job *core.IngestionJob, done bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.released {
		job, err = p.queue.Pop(ctx)
		if !errors.Is(err, ErrQueueEmpty) {
			return job, false, err
		}
	}
	p.draining = false
	return nil, true, nil
}

func (p *Pipeline) runJob(ctx context.Context, job *core.IngestionJob) {
	if job.Id == "" {
		job.Id = uuid.NewString()
	}
	p.statuses.add(job.Id, job.OwnerID, p.now())

	w := &work{job: job}
	current := StateQueued
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			p.fail(w, stepFailure(current, fmt.Errorf("panic: %v", r)))
		}
	}()

	for _, proc := range p.processors {
		current = proc.state()
		if !current.Terminal() {
			p.statuses.update(job.Id, p.now(), func(s *JobStatus) {
				s.State = current
			})
		}
		if err := proc.process(ctx, w); err != nil {
			p.fail(w, stepFailure(current, err))
			return
		}
	}

	p.statuses.update(job.Id, p.now(), func(s *JobStatus) {
		s.State = StatePersisted
		s.DocumentID = w.docID
		s.Warnings = w.warnings
	})
	p.logger.Info("document ingested",
		"job", job.Id,
		"owner", job.OwnerID,
		"document", w.docID,
		"resonances", len(w.resonances),
		"bridges", len(w.bridges),
		"warnings", len(w.warnings),
		"elapsed", time.Since(started))
}

func (p *Pipeline) fail(w *work, err *StepError) {
	p.logger.Error("job failed",
		"job", w.job.Id,
		"owner", w.job.OwnerID,
		"step", err.Step,
		"error", err)
	p.statuses.update(w.job.Id, p.now(), func(s *JobStatus) {
		s.State = StateFailed
		s.FailedStep = err.Step
		s.Reason = err.Error()
		s.Err = err
		s.Warnings = w.warnings
	})
}
