// Package balance maintains each owner's running mean of classification weights.
package balance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/wellspring/core"
	"github.com/poiesic/wellspring/storage"
)

// ErrOwnerRequired is returned when no owner is given.
var ErrOwnerRequired = errors.New("balance owner required")

// Aggregator folds document weights into an owner's library balance.
// Callers serialize updates for one owner; the ingestion worker is the only writer.
type Aggregator struct {
	balances storage.BalanceRepository
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator) error

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) error {
		a.logger = logger
		return nil
	}
}

// WithClock overrides the time source used for UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) error {
		a.now = now
		return nil
	}
}

// NewAggregator creates an aggregator over balances.
func NewAggregator(balances storage.BalanceRepository, opts ...Option) (*Aggregator, error) {
	a := &Aggregator{
		balances: balances,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	a.logger = a.logger.With("component", "balance")
	return a, nil
}

// Next computes the balance after one more document with weights.
// Each dimension's mean becomes (old*n + w)/(n+1). current is not modified.
func Next(current *core.LibraryBalance, ownerID string, weights core.ClassificationWeights, at time.Time) *core.LibraryBalance {
	n := 0
	var old core.ClassificationWeights
	if current != nil {
		n = current.DocumentCount
		old = current.Means
	}

	means := make(core.ClassificationWeights, len(core.Dimensions))
	for _, d := range core.Dimensions {
		means[d] = (old.Get(d)*float64(n) + weights.Get(d)) / float64(n+1)
	}

	return &core.LibraryBalance{
		OwnerID:       ownerID,
		Means:         means,
		DocumentCount: n + 1,
		UpdatedAt:     at,
	}
}

// Stage reads the owner's persisted balance and returns the next one without
// writing it. Pass the result to Commit inside the document's transaction.
func (a *Aggregator) Stage(ctx context.Context, ownerID string, weights core.ClassificationWeights) (*core.LibraryBalance, error) {
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}
	if err := core.ValidateWeights(weights); err != nil {
		return nil, err
	}

	current, err := a.balances.GetBalance(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("read balance for %s: %w", ownerID, err)
	}
	return Next(current, ownerID, weights, a.now()), nil
}

// Commit persists a staged balance.
func (a *Aggregator) Commit(ctx context.Context, staged *core.LibraryBalance) error {
	if err := a.balances.PutBalance(ctx, staged); err != nil {
		return fmt.Errorf("write balance for %s: %w", staged.OwnerID, err)
	}
	a.logger.Debug("balance updated", "owner", staged.OwnerID, "documents", staged.DocumentCount)
	return nil
}

// UpdateBalance stages and commits in one step.
func (a *Aggregator) UpdateBalance(ctx context.Context, ownerID string, weights core.ClassificationWeights) (*core.LibraryBalance, error) {
	staged, err := a.Stage(ctx, ownerID, weights)
	if err != nil {
		return nil, err
	}
	if err := a.Commit(ctx, staged); err != nil {
		return nil, err
	}
	return staged, nil
}

// Balance returns the owner's current persisted balance.
func (a *Aggregator) Balance(ctx context.Context, ownerID string) (*core.LibraryBalance, error) {
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}
	return a.balances.GetBalance(ctx, ownerID)
}
