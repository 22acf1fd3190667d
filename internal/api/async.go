package api

import (
	"net/http"
)

func (s *Server) handleSubmitBatch(w http.ResponseWriter, r *http.Request) {
	b, err := s.decodeBatch(w, r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.engine.Submit(r.Context(), b); err != nil {
		s.logger.Error("submit async batch", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to submit batch")
		return
	}

	b.Requests = nil
	s.writeJSON(w, http.StatusAccepted, b)
}
