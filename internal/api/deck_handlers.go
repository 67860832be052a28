package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/vytor/ctiprep/internal/errors"
	"github.com/vytor/ctiprep/internal/models"
	"github.com/vytor/ctiprep/internal/repository/kvstore"
	"github.com/vytor/ctiprep/internal/services"
)

func (s *Server) handleDeckStats(w http.ResponseWriter, r *http.Request) {
	deck := s.Deck.Deck(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"stats":    s.Deck.Stats(r.Context()),
		"settings": deck.Settings,
	})
}

func (s *Server) handleDeckItems(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			handleError(w, r, errors.NewValidationError("limit", "must be an integer"))
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": s.Deck.List(r.Context(), limit)})
}

func (s *Server) handleDeckSettings(w http.ResponseWriter, r *http.Request) {
	var req services.SettingsUpdate
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	settings, err := s.Deck.UpdateSettings(r.Context(), req)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleDeckAdd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		models.QuestionFilter
		Qty int `json:"qty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	added, err := s.Deck.AddFromBank(r.Context(), req.QuestionFilter, req.Qty)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"added": added, "stats": s.Deck.Stats(r.Context())})
}

func (s *Server) handleDeckSession(w http.ResponseWriter, r *http.Request) {
	var filter models.QuestionFilter
	if err := decodeJSON(r, &filter); err != nil {
		handleError(w, r, err)
		return
	}
	qs, err := s.Deck.BuildSession(r.Context(), filter)
	if err != nil {
		handleError(w, r, err)
		return
	}
	// a fresh build replaces whatever adaptive session was stored
	if err := s.Sessions.Delete(r.Context(), kvstore.AdaptiveSessionKey); err != nil {
		handleError(w, r, errors.NewUnavailableError("session storage", err))
		return
	}
	sess, err := s.startSession(r.Context(), kindAdaptive, models.ModeAdaptive, kvstore.AdaptiveSessionKey, qs)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewOf(sess))
}

func (s *Server) handleDeckResume(w http.ResponseWriter, r *http.Request) {
	qs, ok := s.Deck.ResumeSession(r.Context())
	if !ok {
		handleError(w, r, errors.NewNotFoundError("session", kvstore.AdaptiveSessionKey))
		return
	}
	sess, err := s.startSession(r.Context(), kindAdaptive, models.ModeAdaptive, kvstore.AdaptiveSessionKey, qs)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(sess))
}

func (s *Server) handleDeckExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Disposition", `attachment; filename="adaptive-backup.json"`)
	writeJSON(w, http.StatusOK, s.Deck.Export(r.Context()))
}

func (s *Server) handleDeckImport(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if err := s.Deck.Import(r.Context(), body); err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stats": s.Deck.Stats(r.Context())})
}

func (s *Server) handleDeckReset(w http.ResponseWriter, r *http.Request) {
	if err := s.Deck.Reset(r.Context()); err != nil {
		handleError(w, r, err)
		return
	}
	s.registry.remove(kvstore.AdaptiveSessionKey)
	w.WriteHeader(http.StatusNoContent)
}

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.NewBadRequestError("could not read body: " + err.Error())
	}
	return body, nil
}
