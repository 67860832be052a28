package api

import (
	"net/http"

	"github.com/vytor/ctiprep/internal/logger"
)

// handleHealth is the liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// handleReady returns 200 once the store answers and the question bank is
// loaded, 503 otherwise.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	if err := s.Store.Ping(ctx); err != nil {
		log.Warn("readiness check failed - store: %v", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("Store unavailable"))
		return
	}
	if !s.Catalog.Ready() {
		log.Warn("readiness check failed - question bank not loaded")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("Question bank not loaded"))
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}
