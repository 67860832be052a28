package api

import (
	"net/http"

	"github.com/vytor/ctiprep/internal/errors"
	"github.com/vytor/ctiprep/internal/models"
)

func (s *Server) handleBankStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  s.Catalog.Status(),
		"sources": s.Catalog.Sources(),
	})
}

func (s *Server) handleBankFacets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Catalog.Facets())
}

func (s *Server) handleBankQuestions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.QuestionFilter{
		Disciplina: q.Get("disciplina"),
		Area:       q.Get("area"),
		Tema:       q.Get("tema"),
		Nivel:      q.Get("nivel"),
	}
	qs := s.Catalog.Filter(filter)
	writeJSON(w, http.StatusOK, map[string]any{"count": len(qs), "questions": qs})
}

// handleBankRefresh queues a reload; the catalog keeps serving the old
// contents until it completes.
func (s *Server) handleBankRefresh(w http.ResponseWriter, r *http.Request) {
	if s.Jobs == nil {
		handleError(w, r, errors.NewUnavailableError("job queue", nil))
		return
	}
	if err := s.Jobs.EnqueueBankRefresh("api"); err != nil {
		handleError(w, r, errors.NewUnavailableError("job queue", err))
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"queued": true})
}
