// Package store persists batches and their outcomes.
package store

import (
	"context"
	"errors"

	"github.com/seantiz/batchgate/internal/model"
)

// ErrInvalidTransition is returned when a batch status transition is not allowed.
var ErrInvalidTransition = errors.New("invalid status transition")

// BatchStats holds aggregate statistics over every stored batch.
type BatchStats struct {
	Total         int            `json:"total"`
	CountByStatus map[string]int `json:"count_by_status"`
	CountByMode   map[string]int `json:"count_by_mode"`
	Requests      int            `json:"requests"`
	Passed        int            `json:"passed"`
	Failed        int            `json:"failed"`
	AvgDurationMS float64        `json:"avg_duration_ms"`
}

// Store defines the persistence operations for batches.
type Store interface {
	CreateBatch(ctx context.Context, b *model.Batch) error
	GetBatch(ctx context.Context, id string) (*model.Batch, error)
	ListBatches(ctx context.Context, limit, offset int) ([]*model.Batch, int, error)
	UpdateBatchStatus(ctx context.Context, id, status string) error
	UpdateBatch(ctx context.Context, b *model.Batch) error
	GetBatchStats(ctx context.Context) (*BatchStats, error)
	InsertOutcome(ctx context.Context, batchID string, o model.Outcome) error
	GetOutcomes(ctx context.Context, batchID string) ([]model.StoredOutcome, error)
	Ping(ctx context.Context) error
	Close() error
}
