package api

import (
	"sync"

	"github.com/vytor/ctiprep/internal/models"
	"github.com/vytor/ctiprep/internal/quiz"
)

// Session kinds decide what happens when a session finishes.
const (
	kindAdaptive = "adaptive"
	kindExam     = "exam"
	kindLesson   = "lesson"
	kindPractice = "practice"
)

type session struct {
	kind   string
	mode   string
	engine *quiz.Engine
	detach []func()

	// result is the history record written when the session finished.
	result    *models.HistoryRecord
	finishErr error
	// recorded is set once a finish went through; later finishes replay it.
	recorded bool
}

func (s *session) close() {
	for _, off := range s.detach {
		off()
	}
	s.detach = nil
}

// registry holds the live engines by session key.
type registry struct {
	mu       sync.Mutex
	sessions map[string]*session
}

func newRegistry() *registry {
	return &registry{sessions: map[string]*session{}}
}

func (r *registry) get(key string) (*session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[key]
	return s, ok
}

// put replaces the session under its engine key, detaching the old one.
func (r *registry) put(s *session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.sessions[s.engine.Key()]; ok {
		old.close()
	}
	r.sessions[s.engine.Key()] = s
}

func (r *registry) remove(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[key]
	if ok {
		s.close()
		delete(r.sessions, key)
	}
	return ok
}

func (r *registry) keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.sessions))
	for k := range r.sessions {
		out = append(out, k)
	}
	return out
}

// subscribeAll forwards every event kind of e to fn.
func subscribeAll(e *quiz.Engine, fn quiz.Handler) []func() {
	kinds := []quiz.EventKind{quiz.AnswerChecked, quiz.SessionFinished, quiz.Navigated}
	offs := make([]func(), 0, len(kinds))
	for _, k := range kinds {
		offs = append(offs, e.Subscribe(k, fn))
	}
	return offs
}
