package api

import (
	"net/http"
	"time"

	"github.com/vytor/ctiprep/internal/errors"
	"github.com/vytor/ctiprep/internal/models"
	"github.com/vytor/ctiprep/internal/repository/kvstore"
	"github.com/vytor/ctiprep/internal/services"
)

// handleAssembleExam builds a new exam from the posted blueprint, or from the
// configured one when the body is empty, and restarts the exam clock.
func (s *Server) handleAssembleExam(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Blueprint *models.Blueprint `json:"blueprint"`
	}
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	plan, err := s.Exam.Assemble(r.Context(), req.Blueprint)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if err := s.Sessions.Delete(r.Context(), kvstore.ExamSessionKey); err != nil {
		handleError(w, r, errors.NewUnavailableError("session storage", err))
		return
	}

	clock := s.clock(r.Context(), kvstore.ExamTimerKey)
	clock.Reset(r.Context())

	sess, err := s.startSession(r.Context(), kindExam, models.ModeExam, kvstore.ExamSessionKey, plan.Questions)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if clock.Start(r.Context()) {
		go clock.Run(s.runCtx, time.Second)
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"meta":    plan.Meta,
		"timer":   clock.Snapshot(),
		"session": viewOf(sess),
	})
}

// handleResumeExam rebuilds the exam session from the stored question ids.
func (s *Server) handleResumeExam(w http.ResponseWriter, r *http.Request) {
	meta, ok := s.Exam.Meta(r.Context())
	if !ok {
		handleError(w, r, errors.NewNotFoundError("exam", kvstore.ExamMetaKey))
		return
	}
	qs := s.Catalog.Resolve(meta.Questions)
	if len(qs) == 0 {
		handleError(w, r, errors.NewUnavailableError("question bank", nil))
		return
	}
	sess, err := s.startSession(r.Context(), kindExam, models.ModeExam, kvstore.ExamSessionKey, qs)
	if err != nil {
		handleError(w, r, err)
		return
	}
	clock := s.clock(r.Context(), kvstore.ExamTimerKey)
	clock.Tick(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"meta":    meta,
		"timer":   clock.Snapshot(),
		"session": viewOf(sess),
	})
}

func (s *Server) handleExamMeta(w http.ResponseWriter, r *http.Request) {
	meta, ok := s.Exam.Meta(r.Context())
	if !ok {
		handleError(w, r, errors.NewNotFoundError("exam", kvstore.ExamMetaKey))
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

func (s *Server) handleExamResult(w http.ResponseWriter, r *http.Request) {
	res, ok := s.Exam.Result(r.Context())
	if !ok {
		handleError(w, r, errors.NewNotFoundError("exam result", kvstore.ExamResultKey))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleStartLesson(w http.ResponseWriter, r *http.Request) {
	var req services.LessonRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	lesson, err := s.Lessons.Questions(r.Context(), req)
	if err != nil {
		handleError(w, r, err)
		return
	}
	sess, err := s.startSession(r.Context(), kindLesson, lesson.Mode, lesson.Key, lesson.Questions)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewOf(sess))
}
