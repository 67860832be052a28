package api

import (
	"context"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/vytor/ctiprep/internal/errors"
	"github.com/vytor/ctiprep/internal/logger"
	"github.com/vytor/ctiprep/internal/models"
	"github.com/vytor/ctiprep/internal/quiz"
	"github.com/vytor/ctiprep/internal/repository/kvstore"
)

type sessionView struct {
	quiz.State
	Kind        string                    `json:"kind"`
	Mode        string                    `json:"mode"`
	Palette     []quiz.QuestionStatus     `json:"palette"`
	Disciplines []quiz.DisciplineProgress `json:"disciplines"`
	Result      *models.HistoryRecord     `json:"result,omitempty"`
}

func viewOf(sess *session) sessionView {
	return sessionView{
		State:       sess.engine.State(),
		Kind:        sess.kind,
		Mode:        sess.mode,
		Palette:     sess.engine.Palette(),
		Disciplines: sess.engine.DisciplineSummary(),
		Result:      sess.result,
	}
}

func optionsFor(kind, key string) quiz.Options {
	opts := quiz.Options{PersistKey: key, ShuffleAlternatives: true, TrackSeen: true}
	switch kind {
	case kindAdaptive, kindLesson:
		opts.ShowExplainOnCheck = true
	case kindPractice:
		opts.ShuffleQuestions = true
		opts.ShowExplainOnCheck = true
	}
	return opts
}

// startSession builds an engine for qs, wires its observers and registers it
// under key. A stored snapshot for the same question sequence is resumed.
func (s *Server) startSession(ctx context.Context, kind, mode, key string, qs []models.Question) (*session, error) {
	engine := quiz.New(optionsFor(kind, key), quiz.WithSessions(s.Sessions), quiz.WithClock(s.Now))
	sess := &session{kind: kind, mode: mode, engine: engine}

	sess.detach = subscribeAll(engine, func(_ context.Context, ev quiz.Event) { s.hub.Publish(ev) })
	switch kind {
	case kindAdaptive:
		sess.detach = append(sess.detach, s.Deck.Attach(engine))
	default:
		sess.detach = append(sess.detach, engine.Subscribe(quiz.SessionFinished, func(ctx context.Context, ev quiz.Event) {
			s.recordFinished(ctx, sess, ev)
		}))
	}

	if err := engine.Init(ctx, quiz.Source{Questions: qs}); err != nil {
		sess.close()
		return nil, err
	}
	s.registry.put(sess)
	logger.FromContext(ctx).WithPrefix("api").
		Info("started %s session %s with %d questions (resumed=%t)", kind, key, engine.Len(), engine.Resumed())
	return sess, nil
}

func (s *Server) recordFinished(ctx context.Context, sess *session, ev quiz.Event) {
	var (
		rec models.HistoryRecord
		err error
	)
	switch sess.kind {
	case kindExam:
		clock := s.clock(ctx, kvstore.ExamTimerKey)
		clock.Pause(ctx)
		rec, err = s.Exam.Finish(ctx, ev.Questions, ev.Answers, clock.Remaining())
	default:
		rec, err = s.Lessons.Record(ctx, sess.mode, ev.Questions, ev.Answers, sess.engine.StartTime())
	}
	if err != nil {
		logger.FromContext(ctx).WithPrefix("api").Warn("failed to record %s session: %v", sess.kind, err)
		sess.finishErr = err
		return
	}
	sess.result = &rec
}

func (s *Server) sessionFromRequest(r *http.Request) (*session, error) {
	key := chi.URLParam(r, "key")
	sess, ok := s.registry.get(key)
	if !ok {
		return nil, errors.NewNotFoundError("session", key)
	}
	return sess, nil
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	keys := s.registry.keys()
	sort.Strings(keys)
	writeJSON(w, http.StatusOK, map[string]any{"sessions": keys})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionFromRequest(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(sess))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.registry.remove(chi.URLParam(r, "key")) {
		handleError(w, r, errors.NewNotFoundError("session", chi.URLParam(r, "key")))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// sessionAction adapts an engine operation to a handler that answers with the
// session view.
func (s *Server) sessionAction(op func(ctx context.Context, r *http.Request, e *quiz.Engine) (map[string]any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.sessionFromRequest(r)
		if err != nil {
			handleError(w, r, err)
			return
		}
		extra, err := op(r.Context(), r, sess.engine)
		if err != nil {
			handleError(w, r, err)
			return
		}
		body := map[string]any{"session": viewOf(sess)}
		for k, v := range extra {
			body[k] = v
		}
		writeJSON(w, http.StatusOK, body)
	}
}

func (s *Server) handleSelect() http.HandlerFunc {
	return s.sessionAction(func(_ context.Context, r *http.Request, e *quiz.Engine) (map[string]any, error) {
		var req struct {
			Choice string `json:"choice"`
		}
		if err := decodeJSON(r, &req); err != nil {
			return nil, err
		}
		if req.Choice == "" {
			return nil, errors.NewValidationError("choice", "cannot be empty")
		}
		return nil, e.Select(req.Choice)
	})
}

func (s *Server) handleCheck() http.HandlerFunc {
	return s.sessionAction(func(ctx context.Context, r *http.Request, e *quiz.Engine) (map[string]any, error) {
		if err := selectFromBody(r, e); err != nil {
			return nil, err
		}
		res, err := e.Check(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"check": res}, nil
	})
}

// selectFromBody lets clients select and check in one call.
func selectFromBody(r *http.Request, e *quiz.Engine) error {
	var req struct {
		Choice string `json:"choice"`
	}
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	if req.Choice == "" {
		return nil
	}
	return e.Select(req.Choice)
}

func (s *Server) handleMove(move func(*quiz.Engine, context.Context) bool) http.HandlerFunc {
	return s.sessionAction(func(ctx context.Context, _ *http.Request, e *quiz.Engine) (map[string]any, error) {
		if !e.Initialized() {
			return nil, quiz.ErrNotInitialized
		}
		return map[string]any{"moved": move(e, ctx)}, nil
	})
}

func (s *Server) handleGoTo() http.HandlerFunc {
	return s.sessionAction(func(ctx context.Context, r *http.Request, e *quiz.Engine) (map[string]any, error) {
		var req struct {
			Index *int `json:"index"`
		}
		if err := decodeJSON(r, &req); err != nil {
			return nil, err
		}
		if req.Index == nil {
			return nil, errors.NewValidationError("index", "is required")
		}
		return nil, e.GoTo(ctx, *req.Index)
	})
}

func (s *Server) handleFlag() http.HandlerFunc {
	return s.sessionAction(func(ctx context.Context, _ *http.Request, e *quiz.Engine) (map[string]any, error) {
		flagged, err := e.ToggleFlag(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"flagged": flagged}, nil
	})
}

func (s *Server) handleFinish(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionFromRequest(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if sess.engine.Finished() && (sess.recorded || sess.result != nil) {
		writeJSON(w, http.StatusOK, map[string]any{"summary": sess.engine.Summary(), "record": sess.result, "session": viewOf(sess)})
		return
	}
	sess.finishErr = nil
	summary, err := sess.engine.Finish(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	if sess.finishErr != nil {
		handleError(w, r, sess.finishErr)
		return
	}
	sess.recorded = true
	writeJSON(w, http.StatusOK, map[string]any{"summary": summary, "record": sess.result, "session": viewOf(sess)})
}

func (s *Server) handleReset(reset func(*quiz.Engine, context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.sessionFromRequest(r)
		if err != nil {
			handleError(w, r, err)
			return
		}
		if err := reset(sess.engine, r.Context()); err != nil {
			handleError(w, r, err)
			return
		}
		sess.result, sess.finishErr, sess.recorded = nil, nil, false
		writeJSON(w, http.StatusOK, map[string]any{"session": viewOf(sess)})
	}
}

func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	s.hub.Serve(w, r, chi.URLParam(r, "key"))
}
