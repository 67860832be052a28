package api

import (
	"context"
	"sync"
	"time"

	"github.com/vytor/ctiprep/internal/bank"
	"github.com/vytor/ctiprep/internal/jobs"
	"github.com/vytor/ctiprep/internal/repository"
	"github.com/vytor/ctiprep/internal/services"
	"github.com/vytor/ctiprep/internal/store"
	"github.com/vytor/ctiprep/internal/timer"
)

// Server serves the JSON API. Every request that touches session, deck or
// history state runs under one dispatch mutex, so handlers never interleave.
type Server struct {
	Store       *store.Store
	Catalog     *bank.Catalog
	Jobs        jobs.JobQueue
	Sessions    repository.SessionRepository
	Timers      repository.TimerRepository
	Deck        services.DeckService
	History     services.HistoryService
	Collections services.CollectionService
	Exam        services.ExamService
	Lessons     services.LessonService

	RateLimitRPS   float64
	RateLimitBurst int
	Now            func() time.Time

	dispatch  sync.Mutex
	hub       *EventHub
	registry  *registry
	clocksMu  sync.Mutex
	clocks    map[string]*timer.Countdown
	runCtx    context.Context
	cancelRun context.CancelFunc
	once      sync.Once
}

func (s *Server) init() {
	s.once.Do(func() {
		if s.Now == nil {
			s.Now = time.Now
		}
		s.hub = NewEventHub()
		s.registry = newRegistry()
		s.clocks = map[string]*timer.Countdown{}
		s.runCtx, s.cancelRun = context.WithCancel(context.Background())
	})
}

// Hub returns the websocket hub that streams session events.
func (s *Server) Hub() *EventHub {
	s.init()
	return s.hub
}

// Close stops running countdowns and disconnects websocket clients.
func (s *Server) Close() {
	s.init()
	s.cancelRun()
	s.hub.Close()
}
