package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vytor/ctiprep/internal/quiz"
)

func (s *Server) Routes() http.Handler {
	s.init()
	r := chi.NewRouter()
	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)
	r.Use(securityHeadersMiddleware)
	r.Use(rateLimitMiddleware(NewRateLimiter(s.RateLimitRPS, s.RateLimitBurst)))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	// websocket streams live outside the dispatch lock
	r.Get("/ws/sessions/{key}", s.handleSessionEvents)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.dispatchMiddleware)

		r.Route("/bank", func(r chi.Router) {
			r.Get("/", s.handleBankStatus)
			r.Get("/facets", s.handleBankFacets)
			r.Get("/questions", s.handleBankQuestions)
			r.Post("/refresh", s.handleBankRefresh)
		})

		r.Route("/deck", func(r chi.Router) {
			r.Get("/", s.handleDeckStats)
			r.Get("/items", s.handleDeckItems)
			r.Put("/settings", s.handleDeckSettings)
			r.Post("/add", s.handleDeckAdd)
			r.Post("/session", s.handleDeckSession)
			r.Post("/session/resume", s.handleDeckResume)
			r.Get("/export", s.handleDeckExport)
			r.Post("/import", s.handleDeckImport)
			r.Delete("/", s.handleDeckReset)
		})

		r.Route("/history", func(r chi.Router) {
			r.Get("/", s.handleHistory)
			r.Get("/export", s.handleHistoryExport)
			r.Post("/import", s.handleHistoryImport)
			r.Delete("/", s.handleHistoryClear)
			r.Get("/{id}", s.handleHistoryRecord)
		})

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/", s.handleAnalytics)
			r.Get("/weak-spots", s.handleWeakSpots)
			r.Get("/sessions/{id}", s.handleSessionDetail)
		})

		r.Route("/favorites", func(r chi.Router) {
			r.Get("/", s.handleFavorites)
			r.Post("/{id}/star", s.handleToggleStar)
			r.Put("/{id}/note", s.handleSetNote)
			r.Delete("/{id}", s.handleRemoveFavorite)
		})

		r.Route("/lists", func(r chi.Router) {
			r.Get("/", s.handleLists)
			r.Post("/", s.handleCreateList)
			r.Get("/{id}", s.handleGetList)
			r.Put("/{id}", s.handleRenameList)
			r.Post("/{id}/items", s.handleAddToList)
			r.Post("/{id}/practice", s.handlePracticeList)
			r.Delete("/{id}", s.handleDeleteList)
		})
		r.Get("/collections/export", s.handleCollectionsExport)
		r.Post("/collections/import", s.handleCollectionsImport)

		r.Route("/exam", func(r chi.Router) {
			r.Post("/", s.handleAssembleExam)
			r.Post("/resume", s.handleResumeExam)
			r.Get("/meta", s.handleExamMeta)
			r.Get("/result", s.handleExamResult)
		})

		r.Post("/lessons", s.handleStartLesson)

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", s.handleListSessions)
			r.Route("/{key}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleDeleteSession)
				r.Post("/select", s.handleSelect())
				r.Post("/check", s.handleCheck())
				r.Post("/next", s.handleMove((*quiz.Engine).Next))
				r.Post("/prev", s.handleMove((*quiz.Engine).Prev))
				r.Post("/skip", s.handleMove((*quiz.Engine).Skip))
				r.Post("/review-errors", s.handleMove((*quiz.Engine).ReviewFirstError))
				r.Post("/first-unanswered", s.handleMove((*quiz.Engine).FirstUnanswered))
				r.Post("/goto", s.handleGoTo())
				r.Post("/flag", s.handleFlag())
				r.Post("/finish", s.handleFinish)
				r.Post("/restart", s.handleReset((*quiz.Engine).Restart))
				r.Post("/new", s.handleReset((*quiz.Engine).NewSession))
				r.Post("/clear", s.handleReset((*quiz.Engine).ClearProgress))
			})
		})

		r.Route("/timers/{key}", func(r chi.Router) {
			r.Get("/", s.handleGetTimer)
			r.Post("/start", s.handleStartTimer)
			r.Post("/pause", s.handlePauseTimer)
			r.Post("/reset", s.handleResetTimer)
		})
	})

	return r
}
