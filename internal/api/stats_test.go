package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/seantiz/batchgate/internal/model"
)

func TestGetStatsEmpty(t *testing.T) {
	srv := newTestServer(t)

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/stats")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	var stats statsResponse
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if stats.Total != 0 {
		t.Errorf("total = %d, want 0", stats.Total)
	}
	if stats.AvgDurationMS != 0 {
		t.Errorf("avg_duration_ms = %f, want 0", stats.AvgDurationMS)
	}
}

func TestGetStatsPopulated(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	// Three completed strict batches of two requests each.
	for range 3 {
		b := &model.Batch{
			ID: model.NewID(), Mode: model.ModeStrict, Status: model.StatusPending,
			RequestCount: 2, CreatedAt: time.Now().UTC(),
		}
		if err := srv.store.CreateBatch(ctx, b); err != nil {
			t.Fatalf("CreateBatch: %v", err)
		}
		if err := srv.store.UpdateBatchStatus(ctx, b.ID, model.StatusRunning); err != nil {
			t.Fatalf("pending→running: %v", err)
		}
		dur := 100
		b.Status = model.StatusCompleted
		b.Passed, b.Failed = 1, 1
		b.DurationMS = &dur
		b.StartedAt, b.FinishedAt = ptrTime(time.Now()), ptrTime(time.Now())
		if err := srv.store.UpdateBatch(ctx, b); err != nil {
			t.Fatalf("UpdateBatch: %v", err)
		}
	}

	// One standard batch that failed to start.
	fb := &model.Batch{
		ID: model.NewID(), Mode: model.ModeStandard, Status: model.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := srv.store.CreateBatch(ctx, fb); err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}
	if err := srv.store.UpdateBatchStatus(ctx, fb.ID, model.StatusFailed); err != nil {
		t.Fatalf("pending→failed: %v", err)
	}

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/stats")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var stats statsResponse
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if stats.Total != 4 {
		t.Errorf("total = %d, want 4", stats.Total)
	}
	if stats.ByStatus["completed"] != 3 {
		t.Errorf("by_status[completed] = %d, want 3", stats.ByStatus["completed"])
	}
	if stats.ByStatus["failed"] != 1 {
		t.Errorf("by_status[failed] = %d, want 1", stats.ByStatus["failed"])
	}
	if stats.ByMode["strict"] != 3 {
		t.Errorf("by_mode[strict] = %d, want 3", stats.ByMode["strict"])
	}
	if stats.ByMode["standard"] != 1 {
		t.Errorf("by_mode[standard] = %d, want 1", stats.ByMode["standard"])
	}
	if stats.Requests != 6 || stats.Passed != 3 || stats.Failed != 3 {
		t.Errorf("requests/passed/failed = %d/%d/%d, want 6/3/3", stats.Requests, stats.Passed, stats.Failed)
	}
	if stats.AvgDurationMS != 100 {
		t.Errorf("avg_duration_ms = %f, want 100", stats.AvgDurationMS)
	}
}

func ptrTime(t time.Time) *time.Time { return &t }
