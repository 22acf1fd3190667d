package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/seantiz/batchgate/internal/backend"
	"github.com/seantiz/batchgate/internal/metadata"
	"github.com/seantiz/batchgate/internal/model"
	"github.com/seantiz/batchgate/internal/store"
)

// ErrNotStarted is returned by Execute when a stored batch could not be moved
// to running. The batch is recorded as failed and no request was sent.
var ErrNotStarted = errors.New("batch not started")

// Engine runs batches and records them: each batch is stored before it runs,
// each outcome is persisted and published as it is produced, and the final
// tally is written when the run ends.
type Engine struct {
	store    store.Store
	backend  backend.Backend
	registry *metadata.Registry
	logger   *slog.Logger
	wg       sync.WaitGroup
	broker   *Broker
	running  atomic.Int64
}

// NewEngine creates a new batch engine.
func NewEngine(s store.Store, be backend.Backend, reg *metadata.Registry, logger *slog.Logger) *Engine {
	return &Engine{
		store:    s,
		backend:  be,
		registry: reg,
		logger:   logger,
		broker:   NewBroker(),
	}
}

// Broker returns the engine's outcome broker for live subscriptions.
func (e *Engine) Broker() *Broker {
	return e.broker
}

// Registry returns the metadata registry batches are checked against.
func (e *Engine) Registry() *metadata.Registry {
	return e.registry
}

// Execute stores b, runs it to completion and returns its outcomes. b is
// updated in place with the final status and tally. Cancelling ctx does not
// stop the run once it has started. If the run cannot start, Execute returns
// an error wrapping ErrNotStarted.
func (e *Engine) Execute(ctx context.Context, b *model.Batch) ([]model.Outcome, error) {
	e.prepare(b)
	if err := e.store.CreateBatch(ctx, b); err != nil {
		return nil, fmt.Errorf("create batch: %w", err)
	}

	outcomes := e.run(context.WithoutCancel(ctx), b)
	if b.Status == model.StatusFailed {
		return nil, fmt.Errorf("%w: %s", ErrNotStarted, b.Error)
	}
	return outcomes, nil
}

// Submit stores b with status "pending" and runs it in a goroutine. The
// goroutine operates on a copy of the batch to avoid data races with the
// caller.
func (e *Engine) Submit(ctx context.Context, b *model.Batch) error {
	e.prepare(b)
	if err := e.store.CreateBatch(ctx, b); err != nil {
		return fmt.Errorf("create batch: %w", err)
	}

	bCopy := *b
	e.wg.Go(func() {
		e.run(context.Background(), &bCopy)
	})

	return nil
}

// Running reports how many batches are currently between start and finish.
func (e *Engine) Running() int {
	return int(e.running.Load())
}

// Wait blocks until all in-flight batch goroutines complete.
func (e *Engine) Wait() {
	e.wg.Wait()
}

func (e *Engine) prepare(b *model.Batch) {
	if b.ID == "" {
		b.ID = model.NewID()
	}
	if b.Mode != model.ModeStrict {
		b.Mode = model.ModeStandard
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	b.Status = model.StatusPending
	b.RequestCount = len(b.Requests)
}

// run drives a stored batch through pending→running→completed/failed.
func (e *Engine) run(ctx context.Context, b *model.Batch) []model.Outcome {
	defer e.broker.Close(b.ID)

	batchesInFlight.Inc()
	defer batchesInFlight.Dec()
	e.running.Add(1)
	defer e.running.Add(-1)

	logger := e.logger.With("batch_id", b.ID, "mode", string(b.Mode))

	if err := e.store.UpdateBatchStatus(ctx, b.ID, model.StatusRunning); err != nil {
		logger.Error("failed to transition to running", "error", err)
		e.finishFailed(b, nil, fmt.Sprintf("failed to start: %v", err))
		return nil
	}

	start := time.Now().UTC()
	b.Status = model.StatusRunning
	b.StartedAt = &start
	logger.Info("batch started", "requests", len(b.Requests))

	// Persist then publish each outcome as soon as it exists.
	observer := func(o model.Outcome) {
		if err := e.store.InsertOutcome(ctx, b.ID, o); err != nil {
			logger.Error("failed to persist outcome", "index", o.Index, "error", err)
		}
		e.broker.Publish(b.ID, o)
	}

	batch := NewBatch(b.Requests, b.Mode, e.backend, e.registry,
		WithLogger(logger),
		WithObserver(observer),
	)
	outcomes := batch.Run(ctx)

	now := time.Now().UTC()
	dur := int(now.Sub(start).Milliseconds())
	b.Passed, b.Failed = model.Tally(outcomes)
	b.Status = model.StatusCompleted
	b.DurationMS = &dur
	b.FinishedAt = &now

	if err := e.store.UpdateBatch(ctx, b); err != nil {
		logger.Error("failed to update completed batch", "error", err)
	}

	logger.Info("batch finished",
		"passed", b.Passed,
		"failed", b.Failed,
		"duration_ms", dur,
	)
	return outcomes
}

// finishFailed marks a batch as failed with the given error message.
// startedAt may be nil if the run never started.
func (e *Engine) finishFailed(b *model.Batch, startedAt *time.Time, errMsg string) {
	now := time.Now().UTC()
	var durationMS int
	if startedAt != nil {
		durationMS = int(now.Sub(*startedAt).Milliseconds())
	}

	b.Status = model.StatusFailed
	b.Error = errMsg
	b.DurationMS = &durationMS
	b.StartedAt = startedAt
	b.FinishedAt = &now

	if err := e.store.UpdateBatch(context.Background(), b); err != nil {
		e.logger.Error("failed to update failed batch", "batch_id", b.ID, "error", err)
	}
}
