package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/seantiz/batchgate/internal/backend"
	"github.com/seantiz/batchgate/internal/metadata"
	"github.com/seantiz/batchgate/internal/model"
)

// Batch processes one ordered list of requests in a fixed mode.
type Batch struct {
	requests []model.Request
	mode     model.Mode
	backend  backend.Backend
	registry *metadata.Registry
	logger   *slog.Logger
	observe  func(model.Outcome)
}

// Option configures a Batch.
type Option func(*Batch)

// WithLogger sets the logger used for per-request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(b *Batch) { b.logger = l }
}

// WithObserver registers fn to receive each outcome as soon as it is produced,
// in request order.
func WithObserver(fn func(model.Outcome)) Option {
	return func(b *Batch) { b.observe = fn }
}

// NewBatch creates a batch over requests. A nil request list is an empty
// batch. Any mode other than ModeStrict runs in standard mode.
func NewBatch(requests []model.Request, mode model.Mode, be backend.Backend, reg *metadata.Registry, opts ...Option) *Batch {
	b := &Batch{
		requests: requests,
		mode:     mode,
		backend:  be,
		registry: reg,
		logger:   slog.New(slog.DiscardHandler),
	}
	if b.mode != model.ModeStrict {
		b.mode = model.ModeStandard
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Mode reports the effective run mode.
func (b *Batch) Mode() model.Mode {
	return b.mode
}

// Run processes every request in order and returns one outcome per request.
// It never fails: backend errors become part of the affected outcome and
// processing continues with the next request.
func (b *Batch) Run(ctx context.Context) []model.Outcome {
	start := time.Now()
	outcomes := make([]model.Outcome, 0, len(b.requests))

	// The reservation table lives for exactly this run.
	var pc *prechecker
	if b.mode == model.ModeStrict {
		pc = newPrechecker(b.backend, b.registry)
	}

	for i, req := range b.requests {
		var o model.Outcome
		if pc != nil {
			o = pc.check(ctx, i, req)
		} else {
			o = b.execute(ctx, i, req)
		}

		b.logger.Debug("request processed",
			"index", i,
			"entity", req.Entity,
			"action", req.Action,
			"mode", string(b.mode),
			"passed", o.Passed(),
		)
		observeOutcome(b.mode, o)
		if b.observe != nil {
			b.observe(o)
		}
		outcomes = append(outcomes, o)
	}

	batchDuration.WithLabelValues(string(b.mode)).Observe(time.Since(start).Seconds())
	return outcomes
}

// execute sends req to the backend exactly once.
func (b *Batch) execute(ctx context.Context, index int, req model.Request) model.Outcome {
	o := newOutcome(index, req)

	resp, err := callBackend(ctx, b.backend, req.Entity, model.NormalizeAction(req.Action), req.Payload, req.PageInfo)
	if err != nil {
		b.logger.Warn("backend call failed",
			"index", index,
			"entity", req.Entity,
			"action", req.Action,
			"error", err,
		)
		o.Execution = &model.Execution{
			OK:         false,
			ResultCode: model.ResultCodeException,
			Error:      err.Error(),
		}
		return o
	}

	o.Execution = &model.Execution{
		OK:         resp.OK,
		ResultCode: resp.Code,
		Response:   resp.Raw,
	}
	return o
}

func newOutcome(index int, req model.Request) model.Outcome {
	return model.Outcome{
		Index:    index,
		Entity:   req.Entity,
		Action:   req.Action,
		SentData: req.Payload.Summary(),
	}
}
