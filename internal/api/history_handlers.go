package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sessions": s.History.List(r.Context())})
}

func (s *Server) handleHistoryRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.History.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleHistoryExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Disposition", `attachment; filename="history.json"`)
	writeJSON(w, http.StatusOK, s.History.List(r.Context()))
}

func (s *Server) handleHistoryImport(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	n, err := s.History.Import(r.Context(), body)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"imported": n})
}

func (s *Server) handleHistoryClear(w http.ResponseWriter, r *http.Request) {
	if err := s.History.Clear(r.Context()); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.History.Report(r.Context()))
}

func (s *Server) handleWeakSpots(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"topics": s.History.WeakSpots(r.Context())})
}

func (s *Server) handleSessionDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := s.History.Detail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}
