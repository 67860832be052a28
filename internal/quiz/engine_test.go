package quiz_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/ctiprep/internal/models"
	"github.com/vytor/ctiprep/internal/quiz"
	"github.com/vytor/ctiprep/internal/repository"
	"github.com/vytor/ctiprep/internal/repository/kvstore"
	"github.com/vytor/ctiprep/internal/testutil"
)

const key = "simulado:cti2026:quiz"

func questions(ids ...string) []models.Question {
	out := make([]models.Question, 0, len(ids))
	for _, id := range ids {
		out = append(out, testutil.Question(id, "Matemática", "Frações"))
	}
	return out
}

type fixture struct {
	repo  repository.SessionRepository
	clock *testutil.Clock
}

func newFixture(t *testing.T) *fixture {
	testutil.Quiet(t)
	return &fixture{
		repo:  kvstore.NewSessionRepository(testutil.NewMemoryStore(t)),
		clock: testutil.NewClock(time.Unix(1_700_000_000, 0)),
	}
}

func (f *fixture) engine(opts quiz.Options) *quiz.Engine {
	if opts.PersistKey == "" {
		opts.PersistKey = key
	}
	return quiz.New(opts,
		quiz.WithSessions(f.repo),
		quiz.WithClock(f.clock.Now),
		quiz.WithRand(testutil.Rand()),
	)
}

func answer(t *testing.T, e *quiz.Engine, choice string) quiz.CheckResult {
	t.Helper()
	require.NoError(t, e.Select(choice))
	res, err := e.Check(context.Background())
	require.NoError(t, err)
	return res
}

func TestInit_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.engine(quiz.Options{}).Init(ctx, quiz.Source{})
	assert.ErrorIs(t, err, quiz.ErrNoSource)

	err = f.engine(quiz.Options{}).Init(ctx, quiz.Source{URLs: []string{"http://bank"}})
	assert.ErrorIs(t, err, quiz.ErrNoSource, "urls without a fetcher")

	err = f.engine(quiz.Options{}).Init(ctx, quiz.Source{Questions: []models.Question{}})
	assert.ErrorIs(t, err, quiz.ErrNoQuestions)

	e := f.engine(quiz.Options{})
	assert.ErrorIs(t, e.Select("A"), quiz.ErrNotInitialized)
	_, err = e.Check(ctx)
	assert.ErrorIs(t, err, quiz.ErrNotInitialized)
	_, err = e.Finish(ctx)
	assert.ErrorIs(t, err, quiz.ErrNotInitialized)
}

func TestInit_DedupesAndLimits(t *testing.T) {
	f := newFixture(t)
	src := quiz.Source{
		Questions: questions("q1", "q2", "q1", "q3"),
		Raw:       []models.RawQuestion{testutil.RawQuestion("q4", "Português", "Crase"), {ID: ""}},
	}

	e := f.engine(quiz.Options{Limit: 3})
	require.NoError(t, e.Init(context.Background(), src))

	got := e.Questions()
	require.Len(t, got, 3)
	assert.Equal(t, "q1", got[0].ID)
	assert.Equal(t, "q2", got[1].ID)
	assert.Equal(t, "q3", got[2].ID)
}

func TestInit_ShuffleAlternativesKeepsChoices(t *testing.T) {
	f := newFixture(t)
	src := quiz.Source{Questions: questions("q1", "q2", "q3", "q4", "q5")}

	e := f.engine(quiz.Options{ShuffleQuestions: true, ShuffleAlternatives: true})
	require.NoError(t, e.Init(context.Background(), src))

	assert.ElementsMatch(t, src.Questions[0].Alternativas, e.Questions()[0].Alternativas)
	assert.Equal(t, "A", src.Questions[0].Alternativas[0].Key, "input questions are not mutated")
	assert.Len(t, e.Questions(), 5)
}

type fakeFetcher struct {
	raws []models.RawQuestion
	err  error
	got  []string
}

func (f *fakeFetcher) FetchAll(_ context.Context, sources []string) ([]models.RawQuestion, error) {
	f.got = sources
	return f.raws, f.err
}

func TestInit_FetchesSources(t *testing.T) {
	f := newFixture(t)
	fetcher := &fakeFetcher{raws: []models.RawQuestion{
		testutil.RawQuestion("m1", "Matemática", "Frações"),
		testutil.RawQuestion("p1", "Português", "Crase"),
	}}
	e := quiz.New(quiz.Options{}, quiz.WithFetcher(fetcher), quiz.WithClock(f.clock.Now))

	require.NoError(t, e.Init(context.Background(), quiz.Source{URLs: []string{"a.json", "b.json"}}))

	assert.Equal(t, []string{"a.json", "b.json"}, fetcher.got)
	assert.Equal(t, 2, e.Len())
	q, ok := e.Current()
	require.True(t, ok)
	assert.Equal(t, "m1", q.ID)
	require.Len(t, q.Alternativas, 4)
	assert.True(t, q.Alternativas[0].IsCorrect)

	failing := quiz.New(quiz.Options{}, quiz.WithFetcher(&fakeFetcher{err: errors.New("boom")}))
	err := failing.Init(context.Background(), quiz.Source{URLs: []string{"a.json"}})
	assert.Error(t, err)
	assert.False(t, failing.Initialized())
}

func TestResume_SameSequenceRestoresIndexAndAnswers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	src := quiz.Source{Questions: questions("q1", "q2", "q3")}

	first := f.engine(quiz.Options{})
	require.NoError(t, first.Init(ctx, src))
	answer(t, first, "A")
	require.True(t, first.Next(ctx))
	answer(t, first, "C")

	second := f.engine(quiz.Options{})
	require.NoError(t, second.Init(ctx, src))

	assert.True(t, second.Resumed())
	assert.Equal(t, 1, second.Index())
	assert.Equal(t, first.Answers(), second.Answers())
	assert.False(t, second.Finished())
}

func TestResume_DifferentSequenceDiscardsSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.engine(quiz.Options{})
	require.NoError(t, first.Init(ctx, quiz.Source{Questions: questions("q1", "q2", "q3")}))
	answer(t, first, "A")
	require.True(t, first.Next(ctx))

	reordered := f.engine(quiz.Options{})
	require.NoError(t, reordered.Init(ctx, quiz.Source{Questions: questions("q2", "q1", "q3")}))

	assert.False(t, reordered.Resumed())
	assert.Equal(t, 0, reordered.Index())
	assert.Empty(t, reordered.Answers())

	snap, ok := f.repo.Load(ctx, key)
	require.True(t, ok)
	assert.Equal(t, []string{"q2", "q1", "q3"}, snap.Questions)
	assert.Empty(t, snap.Answers)
}

func TestCheck_WithoutSelectionIsAPrompt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.engine(quiz.Options{})
	require.NoError(t, e.Init(ctx, quiz.Source{Questions: questions("q1", "q2")}))

	events := 0
	e.Subscribe(quiz.AnswerChecked, func(context.Context, quiz.Event) { events++ })

	res, err := e.Check(ctx)
	require.NoError(t, err)

	assert.False(t, res.Recorded)
	assert.Equal(t, quiz.SelectPrompt, res.Prompt)
	assert.Empty(t, e.Answers())
	assert.Zero(t, events)
}

func TestCheck_RecordsTimeAndCorrectness(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.engine(quiz.Options{ShowExplainOnCheck: true})
	qs := questions("q1")
	qs[0].Explicacao = "porque sim"
	require.NoError(t, e.Init(ctx, quiz.Source{Questions: qs}))

	f.clock.Advance(3200 * time.Millisecond)
	res := answer(t, e, "B")

	assert.True(t, res.Recorded)
	assert.Equal(t, "A", res.Correta)
	assert.Equal(t, "porque sim", res.Explicacao)
	assert.Equal(t, models.AnswerRecord{SelectedKey: "B", IsChecked: true, Time: 3200}, e.Answers()["q1"])

	assert.ErrorIs(t, e.Select("Z"), quiz.ErrUnknownChoice)
}

// The engine does not lock a checked question; locking is up to the caller.
func TestCheck_RecheckOverwrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.engine(quiz.Options{})
	require.NoError(t, e.Init(ctx, quiz.Source{Questions: questions("q1")}))

	var seen []string
	e.Subscribe(quiz.AnswerChecked, func(_ context.Context, ev quiz.Event) {
		seen = append(seen, ev.Answer.SelectedKey)
	})

	answer(t, e, "A")
	assert.True(t, e.Answers()["q1"].IsCorrect)
	answer(t, e, "B")

	rec := e.Answers()["q1"]
	assert.Equal(t, "B", rec.SelectedKey)
	assert.False(t, rec.IsCorrect)
	assert.True(t, rec.IsChecked)
	assert.Len(t, e.Answers(), 1)
	assert.Equal(t, []string{"A", "B"}, seen)
}

func TestFinish_SevenOfTen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ids := make([]string, 10)
	for i := range ids {
		ids[i] = fmt.Sprintf("q%02d", i)
	}
	e := f.engine(quiz.Options{})
	require.NoError(t, e.Init(ctx, quiz.Source{Questions: questions(ids...)}))

	var finished *quiz.Event
	e.Subscribe(quiz.SessionFinished, func(_ context.Context, ev quiz.Event) { finished = &ev })

	for i := range ids {
		choice := "A"
		if i >= 7 {
			choice = "B"
		}
		answer(t, e, choice)
		f.clock.Advance(time.Second)
		e.Next(ctx)
	}

	summary, err := e.Finish(ctx)
	require.NoError(t, err)

	assert.Equal(t, models.SessionSummary{Total: 10, Answered: 10, Correct: 7, Pct: 70}, summary)
	assert.True(t, e.Finished())
	require.NotNil(t, finished)
	assert.Equal(t, &summary, finished.Summary)
	assert.Len(t, finished.Questions, 10)
	assert.Len(t, finished.Answers, 10)
	assert.Equal(t, 10*time.Second, finished.Elapsed)

	snap, ok := f.repo.Load(ctx, key)
	require.True(t, ok)
	assert.True(t, snap.Finished)
}

func TestSummary_PctIsOverAllQuestions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.engine(quiz.Options{})
	require.NoError(t, e.Init(ctx, quiz.Source{Questions: questions("q1", "q2", "q3")}))

	answer(t, e, "A")
	_, err := e.ToggleFlag(ctx)
	require.NoError(t, err)
	e.Next(ctx)
	_, err = e.ToggleFlag(ctx)
	require.NoError(t, err)

	assert.Equal(t, models.SessionSummary{Total: 3, Answered: 1, Correct: 1, Pct: 33}, e.Summary())
}

func TestEvents_OrderAndUnsubscribe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.engine(quiz.Options{})
	require.NoError(t, e.Init(ctx, quiz.Source{Questions: questions("q1", "q2")}))

	var calls []string
	unsubFirst := e.Subscribe(quiz.AnswerChecked, func(ctx context.Context, ev quiz.Event) {
		calls = append(calls, "first")
		snap, ok := f.repo.Load(ctx, key)
		require.True(t, ok)
		assert.True(t, snap.Answers[ev.QuestionID].IsChecked, "state is persisted before observers run")
	})
	e.Subscribe(quiz.AnswerChecked, func(context.Context, quiz.Event) { calls = append(calls, "second") })
	e.Subscribe(quiz.Navigated, func(_ context.Context, ev quiz.Event) {
		calls = append(calls, "navigated:"+ev.QuestionID)
	})

	answer(t, e, "A")
	e.Next(ctx)
	unsubFirst()
	answer(t, e, "A")

	assert.Equal(t, []string{"first", "second", "navigated:q2", "second"}, calls)
}

func TestNavigation_IsClamped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.engine(quiz.Options{})
	require.NoError(t, e.Init(ctx, quiz.Source{Questions: questions("q1", "q2", "q3")}))

	assert.False(t, e.Prev(ctx))
	assert.Equal(t, 0, e.Index())

	assert.True(t, e.Skip(ctx))
	assert.True(t, e.Next(ctx))
	assert.False(t, e.Next(ctx))
	assert.Equal(t, 2, e.Index())

	assert.True(t, e.Prev(ctx))
	assert.Equal(t, 1, e.Index())

	assert.ErrorIs(t, e.GoTo(ctx, 3), quiz.ErrIndexOutOfRange)
	assert.ErrorIs(t, e.GoTo(ctx, -1), quiz.ErrIndexOutOfRange)
	require.NoError(t, e.GoTo(ctx, 0))
	assert.Equal(t, 0, e.Index())
}

func TestReviewFirstErrorAndFirstUnanswered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.engine(quiz.Options{})
	require.NoError(t, e.Init(ctx, quiz.Source{Questions: questions("q1", "q2", "q3", "q4")}))

	assert.False(t, e.ReviewFirstError(ctx), "no wrong answers yet")
	assert.Equal(t, 0, e.Index())

	answer(t, e, "A")
	e.Next(ctx)
	answer(t, e, "A")
	e.Next(ctx)
	answer(t, e, "D")
	e.Next(ctx)

	assert.True(t, e.ReviewFirstError(ctx))
	assert.Equal(t, 2, e.Index())

	assert.True(t, e.FirstUnanswered(ctx))
	assert.Equal(t, 3, e.Index())

	answer(t, e, "A")
	assert.False(t, e.FirstUnanswered(ctx))
}

func TestPaletteStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.engine(quiz.Options{TrackSeen: true})
	qs := questions("q1", "q2", "q3", "q4")
	qs[3].Disciplina = "Português"
	require.NoError(t, e.Init(ctx, quiz.Source{Questions: qs}))

	answer(t, e, "A")
	e.Next(ctx)
	answer(t, e, "B")
	e.Next(ctx)
	flagged, err := e.ToggleFlag(ctx)
	require.NoError(t, err)
	assert.True(t, flagged)

	palette := e.Palette()
	require.Len(t, palette, 4)
	assert.Equal(t, quiz.StatusCorrect, palette[0].Status)
	assert.Equal(t, quiz.StatusWrong, palette[1].Status)
	assert.Equal(t, quiz.StatusUnanswered, palette[2].Status)
	assert.True(t, palette[2].Flagged)
	assert.True(t, palette[2].Current)
	assert.Equal(t, quiz.StatusNotSeen, palette[3].Status)

	flagged, err = e.ToggleFlag(ctx)
	require.NoError(t, err)
	assert.False(t, flagged)

	_, err = e.Status(9)
	assert.ErrorIs(t, err, quiz.ErrIndexOutOfRange)

	assert.Equal(t, []quiz.DisciplineProgress{
		{Disciplina: "Matemática", Total: 3, Checked: 2, Correct: 1},
		{Disciplina: "Português", Total: 1},
	}, e.DisciplineSummary())
}

func TestCheck_KeepsFlag(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.engine(quiz.Options{})
	require.NoError(t, e.Init(ctx, quiz.Source{Questions: questions("q1")}))

	_, err := e.ToggleFlag(ctx)
	require.NoError(t, err)
	answer(t, e, "A")

	assert.True(t, e.Answers()["q1"].Flagged)
}

func TestRestartAndNewSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.engine(quiz.Options{})
	require.NoError(t, e.Init(ctx, quiz.Source{Questions: questions("q1", "q2", "q3")}))

	answer(t, e, "A")
	e.Next(ctx)
	_, err := e.Finish(ctx)
	require.NoError(t, err)

	require.NoError(t, e.NewSession(ctx))
	assert.Empty(t, e.Answers())
	assert.Equal(t, 0, e.Index())
	assert.False(t, e.Finished())
	assert.Equal(t, []string{"q1", "q2", "q3"}, ids(e.Questions()))

	shuffled := f.engine(quiz.Options{ShuffleQuestions: true})
	require.NoError(t, shuffled.Init(ctx, quiz.Source{Questions: questions("a", "b", "c", "d", "e", "f", "g", "h")}))
	answer(t, shuffled, "A")
	require.NoError(t, shuffled.Restart(ctx))
	assert.Empty(t, shuffled.Answers())
	assert.ElementsMatch(t, []string{"a", "b", "c", "d", "e", "f", "g", "h"}, ids(shuffled.Questions()))

	snap, ok := f.repo.Load(ctx, key)
	require.True(t, ok)
	assert.Equal(t, ids(shuffled.Questions()), snap.Questions)
}

func TestClearProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.engine(quiz.Options{})
	require.NoError(t, e.Init(ctx, quiz.Source{Questions: questions("q1")}))

	_, ok := f.repo.Load(ctx, key)
	require.True(t, ok)

	require.NoError(t, e.ClearProgress(ctx))
	_, ok = f.repo.Load(ctx, key)
	assert.False(t, ok)
	assert.Equal(t, 1, e.Len(), "in-memory session survives")
}

type failingSessions struct{}

func (failingSessions) Load(context.Context, string) (*models.SessionSnapshot, bool) { return nil, false }
func (failingSessions) Save(context.Context, string, models.SessionSnapshot) error {
	return errors.New("disk full")
}
func (failingSessions) Delete(context.Context, string) error { return errors.New("disk full") }

func TestPersistFailureIsNotFatal(t *testing.T) {
	testutil.Quiet(t)
	ctx := context.Background()
	e := quiz.New(quiz.Options{PersistKey: key}, quiz.WithSessions(failingSessions{}))
	require.NoError(t, e.Init(ctx, quiz.Source{Questions: questions("q1", "q2")}))

	res := answer(t, e, "A")
	assert.True(t, res.Recorded)
	assert.True(t, e.Next(ctx))
	_, err := e.Finish(ctx)
	assert.NoError(t, err)
}

func ids(qs []models.Question) []string {
	out := make([]string, len(qs))
	for i, q := range qs {
		out[i] = q.ID
	}
	return out
}
