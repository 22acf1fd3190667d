package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/seantiz/batchgate/internal/model"
	"github.com/seantiz/batchgate/internal/store"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	maxBodySize      = 32 << 20 // 32 MB, attachments travel base64-encoded
)

// batchRequest is the JSON body for POST /v1/batches and /v1/batches/async.
type batchRequest struct {
	Mode     string          `json:"mode"`
	Requests json.RawMessage `json:"requests"`
}

// executeBatchResponse is the JSON response for a synchronous run.
type executeBatchResponse struct {
	Batch    *model.Batch    `json:"batch"`
	OK       bool            `json:"ok"`
	Outcomes []model.Outcome `json:"outcomes"`
}

// outcomesResponse is the JSON response for GET /v1/batches/{id}/outcomes.
type outcomesResponse struct {
	BatchID  string          `json:"batch_id"`
	Status   string          `json:"status"`
	OK       bool            `json:"ok"`
	Outcomes []model.Outcome `json:"outcomes"`
}

// listBatchesResponse wraps the paginated list response.
type listBatchesResponse struct {
	Batches []*model.Batch `json:"batches"`
	Total   int            `json:"total"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
}

// decodeBatch reads a batch body. A requests value that is absent, null or
// not an array yields an empty batch.
func (s *Server) decodeBatch(w http.ResponseWriter, r *http.Request) (*model.Batch, error) {
	var req batchRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errors.New("invalid JSON body")
	}

	mode, err := model.ParseMode(req.Mode)
	if err != nil {
		return nil, err
	}

	var requests []model.Request
	if raw := bytes.TrimSpace(req.Requests); len(raw) > 0 && raw[0] == '[' {
		if err := json.Unmarshal(raw, &requests); err != nil {
			return nil, fmt.Errorf("invalid requests: %v", err)
		}
	}

	return &model.Batch{Mode: mode, Requests: requests}, nil
}

func (s *Server) handleExecuteBatch(w http.ResponseWriter, r *http.Request) {
	b, err := s.decodeBatch(w, r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	outcomes, err := s.engine.Execute(r.Context(), b)
	if err != nil {
		s.logger.Error("execute batch", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to execute batch")
		return
	}
	if outcomes == nil {
		outcomes = []model.Outcome{}
	}

	b.Requests = nil
	s.writeJSON(w, http.StatusOK, executeBatchResponse{
		Batch:    b,
		OK:       b.Status == model.StatusCompleted && model.AllPassed(outcomes),
		Outcomes: outcomes,
	})
}

func (s *Server) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	b, ok := s.lookupBatch(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleGetOutcomes(w http.ResponseWriter, r *http.Request) {
	b, ok := s.lookupBatch(w, r)
	if !ok {
		return
	}

	stored, err := s.store.GetOutcomes(r.Context(), b.ID)
	if err != nil {
		s.logger.Error("get outcomes", "batch_id", b.ID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get outcomes")
		return
	}

	outcomes := make([]model.Outcome, len(stored))
	for i, so := range stored {
		outcomes[i] = so.Outcome
	}

	s.writeJSON(w, http.StatusOK, outcomesResponse{
		BatchID:  b.ID,
		Status:   b.Status,
		OK:       b.Status == model.StatusCompleted && model.AllPassed(outcomes),
		Outcomes: outcomes,
	})
}

func (s *Server) handleListBatches(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", defaultListLimit)
	offset := parseIntQuery(r, "offset", 0)

	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}

	batches, total, err := s.store.ListBatches(r.Context(), limit, offset)
	if err != nil {
		s.logger.Error("list batches", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list batches")
		return
	}

	if batches == nil {
		batches = []*model.Batch{}
	}
	for _, b := range batches {
		b.Requests = nil
	}

	s.writeJSON(w, http.StatusOK, listBatchesResponse{
		Batches: batches,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	})
}

// lookupBatch loads the batch named by the {id} route parameter, writing the
// error response itself when it cannot.
func (s *Server) lookupBatch(w http.ResponseWriter, r *http.Request) (*model.Batch, bool) {
	id := chi.URLParam(r, "id")

	b, err := s.store.GetBatch(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "batch not found")
		return nil, false
	}
	if err != nil {
		s.logger.Error("get batch", "batch_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get batch")
		return nil, false
	}
	return b, true
}

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
