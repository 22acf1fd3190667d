package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/seantiz/batchgate/internal/backend/memory"
	"github.com/seantiz/batchgate/internal/engine"
	"github.com/seantiz/batchgate/internal/metadata"
	"github.com/seantiz/batchgate/internal/store"
)

func TestHealthzEndpoint(t *testing.T) {
	srv := newTestServer(t)

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	var body healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if body.Status != "ok" {
		t.Errorf("status = %q, want %q", body.Status, "ok")
	}
	if body.Database != "ok" {
		t.Errorf("database = %q, want %q", body.Database, "ok")
	}
	if body.Entities != 3 {
		t.Errorf("entities = %d, want 3", body.Entities)
	}
	if body.Running != 0 {
		t.Errorf("running_batches = %d, want 0", body.Running)
	}
}

// downStore reports the database as unreachable.
type downStore struct {
	store.Store
}

func (downStore) Ping(context.Context) error {
	return errors.New("database is closed")
}

func TestHealthzDatabaseDown(t *testing.T) {
	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	reg := metadata.Default()
	eng := engine.NewEngine(s, memory.New(reg), reg, logger)
	ts := httptest.NewServer(NewServer(":0", downStore{s}, eng, logger).Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
	var body healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Status != "unavailable" {
		t.Errorf("status = %q, want %q", body.Status, "unavailable")
	}
	if !strings.Contains(body.Database, "database is closed") {
		t.Errorf("database = %q, want the ping error", body.Database)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	// Make a request to generate metrics.
	http.Get(ts.URL + "/healthz")

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "text/plain") && !strings.Contains(contentType, "text/openmetrics") {
		t.Errorf("Content-Type = %q, expected prometheus format", contentType)
	}

	bodyBytes, _ := io.ReadAll(resp.Body)
	body := string(bodyBytes)

	if !strings.Contains(body, "batchgate_http_requests_total") {
		t.Error("metrics output missing batchgate_http_requests_total")
	}
	if !strings.Contains(body, "batchgate_http_request_duration_seconds") {
		t.Error("metrics output missing batchgate_http_request_duration_seconds")
	}
	if !strings.Contains(body, "batchgate_event_streams_open") {
		t.Error("metrics output missing batchgate_event_streams_open")
	}
	if !strings.Contains(body, `route="/healthz"`) {
		t.Error("metrics output missing the /healthz route label")
	}
	if !strings.Contains(body, `batchgate_conflicts_total{kind="UNIQUE_CONFLICT_IN_BATCH"}`) {
		t.Error("metrics output missing pre-initialized conflict kinds")
	}
}
