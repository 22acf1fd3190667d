package api

import (
	"context"
	"net/http"
	"time"
)

const healthCheckTimeout = 2 * time.Second

// healthResponse reports whether the server can record batches.
type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Entities int    `json:"entities"`
	Running  int    `json:"running_batches"`
}

// handleHealthz pings the database and returns 503 when it is unreachable.
// The remote backend is not called: it has no side-effect-free operation.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := healthResponse{
		Status:   "ok",
		Database: "ok",
		Entities: len(s.engine.Registry().List()),
		Running:  s.engine.Running(),
	}
	status := http.StatusOK
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Error("health check: database unreachable", "error", err)
		resp.Status = "unavailable"
		resp.Database = err.Error()
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, resp)
}
