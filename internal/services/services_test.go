package services_test

import (
	"testing"
	"time"

	"github.com/vytor/ctiprep/internal/bank"
	"github.com/vytor/ctiprep/internal/models"
	"github.com/vytor/ctiprep/internal/repository"
	"github.com/vytor/ctiprep/internal/repository/kvstore"
	"github.com/vytor/ctiprep/internal/services"
	"github.com/vytor/ctiprep/internal/store"
	"github.com/vytor/ctiprep/internal/testutil"
)

var epoch = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

type env struct {
	store    *store.Store
	clock    *testutil.Clock
	catalog  *bank.Catalog
	decks    repository.DeckRepository
	sessions repository.SessionRepository
	exam     repository.HistoryRepository
	adaptive repository.HistoryRepository
	history  services.HistoryService
}

func newEnv(t *testing.T, bankQuestions ...models.Question) *env {
	testutil.Quiet(t)
	s := testutil.NewMemoryStore(t)
	e := &env{
		store:    s,
		clock:    testutil.NewClock(epoch),
		catalog:  bank.NewCatalog(nil, nil),
		decks:    kvstore.NewDeckRepository(s, kvstore.DeckKey, models.DeckSettings{DailyGoal: 20, NewPerDay: 10}),
		sessions: kvstore.NewSessionRepository(s),
		exam:     kvstore.NewHistoryRepository(s, kvstore.ExamHistoryKey),
		adaptive: kvstore.NewHistoryRepository(s, kvstore.AdaptiveHistoryKey),
	}
	e.catalog.Replace(bankQuestions)
	e.history = services.NewHistoryService(e.exam, e.adaptive, e.opts()...)
	return e
}

func (e *env) opts() []services.Option {
	return []services.Option{services.WithClock(e.clock.Now), services.WithRand(testutil.Rand())}
}

func (e *env) deckService() services.DeckService {
	return services.NewDeckService(e.decks, e.sessions, e.adaptive, e.history, e.catalog, e.opts()...)
}

func bankOf(disciplina string, n int) []models.Question {
	out := make([]models.Question, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, testutil.Question(disciplina[:3]+"-"+string(rune('a'+i-1)), disciplina, "Geral"))
	}
	return out
}

func checked(correct bool, ms int64) models.AnswerRecord {
	key := "B"
	if correct {
		key = "A"
	}
	return models.AnswerRecord{SelectedKey: key, IsCorrect: correct, IsChecked: true, Time: ms}
}
