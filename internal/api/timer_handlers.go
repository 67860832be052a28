package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vytor/ctiprep/internal/logger"
	"github.com/vytor/ctiprep/internal/repository/kvstore"
	"github.com/vytor/ctiprep/internal/timer"
)

// clock returns the countdown stored under key, restoring it on first use.
// Only the exam timer finishes a session when it runs out.
func (s *Server) clock(ctx context.Context, key string) *timer.Countdown {
	s.clocksMu.Lock()
	defer s.clocksMu.Unlock()
	if c, ok := s.clocks[key]; ok {
		return c
	}

	duration := timer.DefaultDuration
	opts := []timer.Option{timer.WithClock(s.Now)}
	if key == kvstore.ExamTimerKey {
		if s.Exam != nil {
			duration = s.Exam.Duration()
		}
		opts = append(opts, timer.WithFinish(func(context.Context) { go s.finishExamOnTimeout() }))
	}
	c := timer.New(ctx, key, duration, s.Timers, opts...)
	s.clocks[key] = c
	if c.Running() {
		go c.Run(s.runCtx, time.Second)
	}
	return c
}

// finishExamOnTimeout runs outside the request that noticed the timeout, so
// it takes the dispatch lock itself.
func (s *Server) finishExamOnTimeout() {
	s.dispatch.Lock()
	defer s.dispatch.Unlock()

	ctx := logger.NewContext(s.runCtx, logger.Default().WithPrefix("api"))
	sess, ok := s.registry.get(kvstore.ExamSessionKey)
	if !ok || sess.engine.Finished() {
		return
	}
	if _, err := sess.engine.Finish(ctx); err != nil {
		logger.FromContext(ctx).Warn("failed to finish exam on timeout: %v", err)
		return
	}
	logger.FromContext(ctx).Info("exam finished on timeout")
}

func (s *Server) handleGetTimer(w http.ResponseWriter, r *http.Request) {
	c := s.clock(r.Context(), chi.URLParam(r, "key"))
	c.Tick(r.Context())
	writeJSON(w, http.StatusOK, c.Snapshot())
}

func (s *Server) handleStartTimer(w http.ResponseWriter, r *http.Request) {
	c := s.clock(r.Context(), chi.URLParam(r, "key"))
	if c.Start(r.Context()) {
		go c.Run(s.runCtx, time.Second)
	}
	writeJSON(w, http.StatusOK, c.Snapshot())
}

func (s *Server) handlePauseTimer(w http.ResponseWriter, r *http.Request) {
	c := s.clock(r.Context(), chi.URLParam(r, "key"))
	c.Pause(r.Context())
	writeJSON(w, http.StatusOK, c.Snapshot())
}

func (s *Server) handleResetTimer(w http.ResponseWriter, r *http.Request) {
	c := s.clock(r.Context(), chi.URLParam(r, "key"))
	c.Reset(r.Context())
	writeJSON(w, http.StatusOK, c.Snapshot())
}
