package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListEntities(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.Registry().List())
}

func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	reg := s.engine.Registry()
	if !reg.Has(name) {
		s.writeError(w, http.StatusNotFound, "entity not found")
		return
	}
	s.writeJSON(w, http.StatusOK, reg.Lookup(name))
}
