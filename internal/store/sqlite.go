package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/seantiz/batchgate/internal/model"

	_ "modernc.org/sqlite"
)

const createBatchesTable = `
CREATE TABLE IF NOT EXISTS batches (
    id            TEXT PRIMARY KEY,
    mode          TEXT NOT NULL,
    status        TEXT NOT NULL,
    requests      TEXT NOT NULL,
    request_count INTEGER NOT NULL,
    passed        INTEGER NOT NULL DEFAULT 0,
    failed        INTEGER NOT NULL DEFAULT 0,
    error         TEXT NOT NULL DEFAULT '',
    duration_ms   INTEGER,
    created_at    DATETIME NOT NULL,
    started_at    DATETIME,
    finished_at   DATETIME
)`

const createOutcomesTable = `
CREATE TABLE IF NOT EXISTS outcomes (
    batch_id   TEXT NOT NULL REFERENCES batches(id),
    idx        INTEGER NOT NULL,
    passed     INTEGER NOT NULL,
    body       TEXT NOT NULL,
    created_at DATETIME NOT NULL,
    PRIMARY KEY (batch_id, idx)
)`

// ErrNotFound is returned when a batch is not found.
var ErrNotFound = errors.New("batch not found")

// Compile-time interface satisfaction check.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the SQLite database at dbPath and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// An in-memory database exists per connection.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	for name, stmt := range map[string]string{
		"batches":  createBatchesTable,
		"outcomes": createOutcomesTable,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create %s table: %w", name, err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const batchColumns = `id, mode, status, requests, request_count, passed, failed,
	error, duration_ms, created_at, started_at, finished_at`

// CreateBatch inserts a new batch record together with its requests.
func (s *SQLiteStore) CreateBatch(ctx context.Context, b *model.Batch) error {
	requests := b.Requests
	if requests == nil {
		requests = []model.Request{}
	}
	reqJSON, err := json.Marshal(requests)
	if err != nil {
		return fmt.Errorf("encode requests: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO batches (`+batchColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, string(b.Mode), b.Status, string(reqJSON), b.RequestCount, b.Passed, b.Failed,
		b.Error, b.DurationMS, b.CreatedAt, b.StartedAt, b.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBatch(row rowScanner) (*model.Batch, error) {
	var (
		b       model.Batch
		mode    string
		reqJSON string
	)
	if err := row.Scan(
		&b.ID, &mode, &b.Status, &reqJSON, &b.RequestCount, &b.Passed, &b.Failed,
		&b.Error, &b.DurationMS, &b.CreatedAt, &b.StartedAt, &b.FinishedAt,
	); err != nil {
		return nil, err
	}
	b.Mode = model.Mode(mode)
	if err := json.Unmarshal([]byte(reqJSON), &b.Requests); err != nil {
		return nil, fmt.Errorf("decode requests: %w", err)
	}
	return &b, nil
}

// GetBatch retrieves a batch by ID.
func (s *SQLiteStore) GetBatch(ctx context.Context, id string) (*model.Batch, error) {
	b, err := scanBatch(s.db.QueryRowContext(ctx,
		`SELECT `+batchColumns+` FROM batches WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return b, nil
}

// ListBatches returns a paginated list of batches ordered by created_at DESC,
// along with the total count of all batches.
func (s *SQLiteStore) ListBatches(ctx context.Context, limit, offset int) ([]*model.Batch, int, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, 0, fmt.Errorf("begin read tx: %w", err)
	}
	defer tx.Rollback()

	var total int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM batches").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count batches: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT `+batchColumns+` FROM batches ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	var batches []*model.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan batch: %w", err)
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate batches: %w", err)
	}

	return batches, total, nil
}

// UpdateBatchStatus moves a batch to status. The transition must be allowed
// by model.ValidTransition. Terminal statuses also set finished_at.
func (s *SQLiteStore) UpdateBatchStatus(ctx context.Context, id, status string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, "SELECT status FROM batches WHERE id = ?", id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read batch status: %w", err)
	}
	if !model.ValidTransition(current, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, status)
	}

	if model.IsTerminal(status) {
		_, err = tx.ExecContext(ctx,
			"UPDATE batches SET status = ?, finished_at = ? WHERE id = ?",
			status, time.Now().UTC(), id,
		)
	} else {
		_, err = tx.ExecContext(ctx,
			"UPDATE batches SET status = ? WHERE id = ?",
			status, id,
		)
	}
	if err != nil {
		return fmt.Errorf("update batch status: %w", err)
	}

	return tx.Commit()
}

// UpdateBatch writes the run results of b: status, tally, error and timings.
func (s *SQLiteStore) UpdateBatch(ctx context.Context, b *model.Batch) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE batches SET status = ?, passed = ?, failed = ?, error = ?,
			duration_ms = ?, started_at = ?, finished_at = ?
		WHERE id = ?`,
		b.Status, b.Passed, b.Failed, b.Error,
		b.DurationMS, b.StartedAt, b.FinishedAt, b.ID,
	)
	if err != nil {
		return fmt.Errorf("update batch: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetBatchStats aggregates counts and durations over all batches.
func (s *SQLiteStore) GetBatchStats(ctx context.Context) (*BatchStats, error) {
	stats := &BatchStats{
		CountByStatus: make(map[string]int),
		CountByMode:   make(map[string]int),
	}

	var avg sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(request_count), 0), COALESCE(SUM(passed), 0),
			COALESCE(SUM(failed), 0), AVG(duration_ms)
		FROM batches`,
	).Scan(&stats.Total, &stats.Requests, &stats.Passed, &stats.Failed, &avg)
	if err != nil {
		return nil, fmt.Errorf("aggregate batches: %w", err)
	}
	if avg.Valid {
		stats.AvgDurationMS = avg.Float64
	}

	if err := s.countBy(ctx, "status", stats.CountByStatus); err != nil {
		return nil, err
	}
	if err := s.countBy(ctx, "mode", stats.CountByMode); err != nil {
		return nil, err
	}
	return stats, nil
}

// countBy fills dst with row counts grouped by column, which must be a
// trusted column name.
func (s *SQLiteStore) countBy(ctx context.Context, column string, dst map[string]int) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+column+", COUNT(*) FROM batches GROUP BY "+column)
	if err != nil {
		return fmt.Errorf("count by %s: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("scan count by %s: %w", column, err)
		}
		dst[key] = n
	}
	return rows.Err()
}

// InsertOutcome stores the outcome of one request of a batch.
func (s *SQLiteStore) InsertOutcome(ctx context.Context, batchID string, o model.Outcome) error {
	body, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("encode outcome: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO outcomes (batch_id, idx, passed, body, created_at) VALUES (?, ?, ?, ?, ?)",
		batchID, o.Index, o.Passed(), string(body), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

// GetOutcomes returns the stored outcomes of a batch in request order.
func (s *SQLiteStore) GetOutcomes(ctx context.Context, batchID string) ([]model.StoredOutcome, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT body, created_at FROM outcomes WHERE batch_id = ? ORDER BY idx", batchID,
	)
	if err != nil {
		return nil, fmt.Errorf("get outcomes: %w", err)
	}
	defer rows.Close()

	out := []model.StoredOutcome{}
	for rows.Next() {
		var body string
		so := model.StoredOutcome{BatchID: batchID}
		if err := rows.Scan(&body, &so.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		if err := json.Unmarshal([]byte(body), &so.Outcome); err != nil {
			return nil, fmt.Errorf("decode outcome: %w", err)
		}
		out = append(out, so)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	return out, nil
}
