package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/wellspring/balance"
	"github.com/poiesic/wellspring/graph"
	"github.com/poiesic/wellspring/storage"
)

// balanceProcessor stages the owner's next balance. The staged value is
// committed with the document so the count only moves for persisted documents.
type balanceProcessor struct {
	aggregator *balance.Aggregator
	timeout    time.Duration
}

var _ processor = (*balanceProcessor)(nil)

func (bp *balanceProcessor) state() JobState {
	return StateBalanceUpdate
}

func (bp *balanceProcessor) process(ctx context.Context, w *work) error {
	return bounded(ctx, bp.timeout, func(ctx context.Context) error {
		staged, err := bp.aggregator.Stage(ctx, w.job.OwnerID, w.analysis.Weights)
		w.balance = staged
		return err
	})
}

// graphProcessor weaves concepts and practices into the shared graph.
// Writes that landed before a failure stay in place.
type graphProcessor struct {
	weaver  *graph.Weaver
	timeout time.Duration
	logger  *slog.Logger
}

var _ processor = (*graphProcessor)(nil)

func (gp *graphProcessor) state() JobState {
	return StateGraphWeave
}

func (gp *graphProcessor) process(ctx context.Context, w *work) error {
	var result graph.WeaveResult
	err := bounded(ctx, gp.timeout, func(ctx context.Context) error {
		var err error
		result, err = gp.weaver.Weave(ctx, w.document(), w.analysis)
		return err
	})
	if err != nil {
		gp.logger.Warn("graph weave failed",
			"job", w.job.Id,
			"nodes", result.NodesUpserted,
			"edges", result.EdgesCreated,
			"error", err)
		w.recovered(ErrGraphWeaveFailure, err)
	}
	return nil
}

// persistProcessor saves the document, its bridges and the staged balance in
// one transaction.
type persistProcessor struct {
	store      storage.Store
	aggregator *balance.Aggregator
	timeout    time.Duration
	now        func() time.Time
}

var _ processor = (*persistProcessor)(nil)

func (pp *persistProcessor) state() JobState {
	return StatePersisted
}

func (pp *persistProcessor) process(ctx context.Context, w *work) error {
	doc := w.document()
	doc.CreatedAt = pp.now()

	return bounded(ctx, pp.timeout, func(ctx context.Context) error {
		return pp.store.WithTransaction(ctx, func(ctx context.Context) error {
			if err := pp.store.Documents().SaveDocument(ctx, doc); err != nil {
				return fmt.Errorf("save document %d: %w", doc.Id, err)
			}
			for i := range w.bridges {
				if err := pp.store.Bridges().AppendBridge(ctx, &w.bridges[i]); err != nil {
					return fmt.Errorf("append bridge %s: %w", w.bridges[i].CanonicalTag, err)
				}
			}
			return pp.aggregator.Commit(ctx, w.balance)
		})
	})
}
