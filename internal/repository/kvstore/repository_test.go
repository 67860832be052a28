package kvstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/vytor/ctiprep/internal/models"
	"github.com/vytor/ctiprep/internal/repository/kvstore"
	"github.com/vytor/ctiprep/internal/store"
	"github.com/vytor/ctiprep/internal/testutil"
)

type RepositorySuite struct {
	suite.Suite
	store *store.Store
	ctx   context.Context
}

func (s *RepositorySuite) SetupTest() {
	testutil.Quiet(s.T())
	s.store = testutil.NewSQLiteStore(s.T())
	s.ctx = context.Background()
}

func (s *RepositorySuite) TestDeck_LoadEmptyUsesDefaults() {
	repo := kvstore.NewDeckRepository(s.store, kvstore.DeckKey, models.DeckSettings{DailyGoal: 20, NewPerDay: 10})

	deck := repo.Load(s.ctx)

	s.NotNil(deck.Items)
	s.Empty(deck.Items)
	s.Equal(20, deck.Settings.DailyGoal)
	s.Equal(10, deck.Settings.NewPerDay)
}

func (s *RepositorySuite) TestDeck_SaveLoadClear() {
	repo := kvstore.NewDeckRepository(s.store, kvstore.DeckKey, models.DeckSettings{DailyGoal: 20, NewPerDay: 10})
	deck := repo.Load(s.ctx)
	deck.Items["q1"] = models.ScheduledItem{ID: "q1", Box: 3, Due: 100, Ease: 2.5, AddedTs: 50, Tema: "frações"}
	deck.Settings.NewPerDay = 0

	s.Require().NoError(repo.Save(s.ctx, deck))

	loaded := repo.Load(s.ctx)
	s.Equal(deck.Items["q1"], loaded.Items["q1"])
	s.Equal(0, loaded.Settings.NewPerDay, "zero new-per-day is a valid setting")

	s.Require().NoError(repo.Clear(s.ctx))
	s.Empty(repo.Load(s.ctx).Items)
}

func (s *RepositorySuite) TestHistory_PrependKeepsNewestFirst() {
	repo := kvstore.NewHistoryRepository(s.store, kvstore.ExamHistoryKey)
	s.Equal(kvstore.ExamHistoryKey, repo.Bucket())
	s.Empty(repo.List(s.ctx))

	s.Require().NoError(repo.Prepend(s.ctx, models.HistoryRecord{ID: "a", Timestamp: 1}))
	s.Require().NoError(repo.Prepend(s.ctx, models.HistoryRecord{ID: "b", Timestamp: 2}))

	list := repo.List(s.ctx)
	s.Require().Len(list, 2)
	s.Equal("b", list[0].ID)
	s.Equal("a", list[1].ID)
}

func (s *RepositorySuite) TestHistory_BucketsAreIndependent() {
	exam := kvstore.NewHistoryRepository(s.store, kvstore.ExamHistoryKey)
	adaptive := kvstore.NewHistoryRepository(s.store, kvstore.AdaptiveHistoryKey)

	s.Require().NoError(exam.Prepend(s.ctx, models.HistoryRecord{ID: "e"}))
	s.Empty(adaptive.List(s.ctx))

	s.Require().NoError(exam.Replace(s.ctx, nil))
	s.Empty(exam.List(s.ctx))
}

func (s *RepositorySuite) TestSession_LoadIgnoresEmptySnapshots() {
	repo := kvstore.NewSessionRepository(s.store)

	_, ok := repo.Load(s.ctx, "adaptive:session")
	s.False(ok)

	s.Require().NoError(repo.Save(s.ctx, "adaptive:session", models.SessionSnapshot{}))
	_, ok = repo.Load(s.ctx, "adaptive:session")
	s.False(ok)

	snap := models.SessionSnapshot{
		Questions: []string{"q1", "q2"},
		Index:     1,
		Answers:   map[string]models.AnswerRecord{"q1": {SelectedKey: "A", IsCorrect: true, IsChecked: true, Time: 1200}},
		SavedAt:   99,
	}
	s.Require().NoError(repo.Save(s.ctx, "adaptive:session", snap))

	loaded, ok := repo.Load(s.ctx, "adaptive:session")
	s.Require().True(ok)
	s.Equal(snap, *loaded)

	s.Require().NoError(repo.Delete(s.ctx, "adaptive:session"))
	_, ok = repo.Load(s.ctx, "adaptive:session")
	s.False(ok)
}

func (s *RepositorySuite) TestTimer() {
	repo := kvstore.NewTimerRepository(s.store)
	state := models.TimerState{Remaining: 600, Running: true, LastStartTs: 1000}

	s.Require().NoError(repo.Save(s.ctx, kvstore.ExamTimerKey, state))
	loaded, ok := repo.Load(s.ctx, kvstore.ExamTimerKey)
	s.True(ok)
	s.Equal(state, loaded)

	s.Require().NoError(repo.Delete(s.ctx, kvstore.ExamTimerKey))
	_, ok = repo.Load(s.ctx, kvstore.ExamTimerKey)
	s.False(ok)
}

func (s *RepositorySuite) TestCollections() {
	repo := kvstore.NewCollectionRepository(s.store)
	s.Empty(repo.Favorites(s.ctx))
	s.Empty(repo.Lists(s.ctx))

	favs := map[string]models.Favorite{"q1": {ID: "q1", Starred: true, Note: "rever"}}
	lists := []models.QuestionList{{ID: "col-1", Title: "Revisão", Items: []string{"q1"}, CreatedAt: 5}}
	s.Require().NoError(repo.SaveFavorites(s.ctx, favs))
	s.Require().NoError(repo.SaveLists(s.ctx, lists))

	s.Equal(favs, repo.Favorites(s.ctx))
	s.Equal(lists, repo.Lists(s.ctx))
}

func (s *RepositorySuite) TestExam() {
	repo := kvstore.NewExamRepository(s.store)
	_, ok := repo.Meta(s.ctx)
	s.False(ok)

	s.Require().NoError(repo.SaveMeta(s.ctx, models.ExamMeta{Avisos: []string{"faltou"}, Questions: []string{"q1"}}))
	meta, ok := repo.Meta(s.ctx)
	s.Require().True(ok)
	s.Equal([]string{"faltou"}, meta.Avisos)

	s.Require().NoError(repo.SaveResult(s.ctx, models.HistoryRecord{ID: "sess-1", Mode: models.ModeExam, Pct: 80}))
	res, ok := repo.Result(s.ctx)
	s.Require().True(ok)
	s.Equal(80, res.Pct)
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositorySuite))
}

func TestPracticeSessionKey(t *testing.T) {
	if got := kvstore.PracticeSession("col-abc"); got != "collections:session:col-abc" {
		t.Fatalf("unexpected key %q", got)
	}
}
