package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vytor/ctiprep/internal/models"
	"github.com/vytor/ctiprep/internal/repository/kvstore"
)

func (s *Server) handleFavorites(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"favorites": s.Collections.Favorites(r.Context())})
}

func (s *Server) handleToggleStar(w http.ResponseWriter, r *http.Request) {
	fav, err := s.Collections.ToggleStar(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"starred": fav != nil, "favorite": fav})
}

func (s *Server) handleSetNote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Note string `json:"note"`
	}
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	fav, err := s.Collections.SetNote(r.Context(), chi.URLParam(r, "id"), req.Note)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fav)
}

func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	if err := s.Collections.RemoveFavorite(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLists(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"lists": s.Collections.Lists(r.Context())})
}

func (s *Server) handleGetList(w http.ResponseWriter, r *http.Request) {
	list, err := s.Collections.GetList(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateList(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title         string `json:"title"`
		FromFavorites bool   `json:"fromFavorites"`
	}
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	list, err := s.Collections.CreateList(r.Context(), req.Title, req.FromFavorites)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, list)
}

func (s *Server) handleRenameList(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	list, err := s.Collections.RenameList(r.Context(), chi.URLParam(r, "id"), req.Title)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleAddToList(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	list, err := s.Collections.AddToList(r.Context(), chi.URLParam(r, "id"), req.IDs)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleDeleteList(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.Collections.DeleteList(r.Context(), id); err != nil {
		handleError(w, r, err)
		return
	}
	s.registry.remove(kvstore.PracticeSession(id))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePracticeList(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	qs, err := s.Collections.PracticeQuestions(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	sess, err := s.startSession(r.Context(), kindPractice, models.ModePractice, kvstore.PracticeSession(id), qs)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewOf(sess))
}

func (s *Server) handleCollectionsExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Disposition", `attachment; filename="collections.json"`)
	writeJSON(w, http.StatusOK, s.Collections.Export(r.Context()))
}

func (s *Server) handleCollectionsImport(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if err := s.Collections.Import(r.Context(), body); err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Collections.Export(r.Context()))
}
