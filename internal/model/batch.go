package model

import "time"

// Batch status constants.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// validTransitions maps each status to the set of statuses it may transition to.
var validTransitions = map[string]map[string]bool{
	StatusPending: {
		StatusRunning: true,
		StatusFailed:  true,
	},
	StatusRunning: {
		StatusCompleted: true,
		StatusFailed:    true,
	},
}

// ValidTransition reports whether transitioning from one status to another is allowed.
func ValidTransition(from, to string) bool {
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// IsTerminal reports whether no further transitions are possible from status.
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}

// Batch is a submitted list of requests together with its run bookkeeping.
type Batch struct {
	ID           string     `json:"id"`
	Mode         Mode       `json:"mode"`
	Status       string     `json:"status"`
	Requests     []Request  `json:"requests,omitempty"`
	RequestCount int        `json:"request_count"`
	Passed       int        `json:"passed"`
	Failed       int        `json:"failed"`
	Error        string     `json:"error,omitempty"`
	DurationMS   *int       `json:"duration_ms,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// StoredOutcome is an outcome as persisted for a batch.
type StoredOutcome struct {
	BatchID   string    `json:"batch_id"`
	Outcome   Outcome   `json:"outcome"`
	CreatedAt time.Time `json:"created_at"`
}
