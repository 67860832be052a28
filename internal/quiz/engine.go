// Package quiz runs a single question session: a fixed ordered list of
// questions, a cursor, per-question answers and resumable persistence.
package quiz

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/vytor/ctiprep/internal/bank"
	"github.com/vytor/ctiprep/internal/logger"
	"github.com/vytor/ctiprep/internal/models"
	"github.com/vytor/ctiprep/internal/repository"
)

var (
	ErrNoSource        = errors.New("quiz: no questions or sources given")
	ErrNoQuestions     = errors.New("quiz: source has no usable questions")
	ErrNotInitialized  = errors.New("quiz: session not initialized")
	ErrIndexOutOfRange = errors.New("quiz: index out of range")
	ErrUnknownChoice   = errors.New("quiz: unknown alternative")
)

// SelectPrompt is returned by Check when no alternative is selected.
const SelectPrompt = "Selecione uma alternativa para conferir."

// Options fix how the question list is built and where progress is saved.
type Options struct {
	Limit               int
	ShuffleQuestions    bool
	ShuffleAlternatives bool
	// PersistKey is the session key in the store; empty disables persistence.
	PersistKey         string
	ShowExplainOnCheck bool
	// TrackSeen records an answer entry the first time a question is shown,
	// so palettes can tell "not seen" from "seen but unanswered".
	TrackSeen bool
}

// Source is either literal questions (normalized or raw) or a list of bank
// sources to fetch and concatenate.
type Source struct {
	Questions []models.Question
	Raw       []models.RawQuestion
	URLs      []string
}

// Fetcher loads raw questions from bank sources.
type Fetcher interface {
	FetchAll(ctx context.Context, sources []string) ([]models.RawQuestion, error)
}

// CheckResult reports the outcome of Check. When nothing was selected,
// Prompt is set and Recorded is false.
type CheckResult struct {
	QuestionID string              `json:"questionId"`
	Recorded   bool                `json:"recorded"`
	Prompt     string              `json:"prompt,omitempty"`
	Answer     models.AnswerRecord `json:"answer"`
	Correta    string              `json:"correta,omitempty"`
	Explicacao string              `json:"explicacao,omitempty"`
}

// Engine is one quiz session. An Engine is not safe for concurrent use; the
// owner serializes calls.
type Engine struct {
	opts     Options
	sessions repository.SessionRepository
	fetcher  Fetcher
	now      func() time.Time
	rng      *rand.Rand

	questions     []models.Question
	index         int
	answers       map[string]models.AnswerRecord
	selected      map[string]string
	startTime     time.Time
	questionStart time.Time
	finished      bool
	initialized   bool
	resumed       bool

	observers observers
}

type EngineOption func(*Engine)

// WithSessions enables persistence through repo.
func WithSessions(repo repository.SessionRepository) EngineOption {
	return func(e *Engine) { e.sessions = repo }
}

func WithFetcher(f Fetcher) EngineOption {
	return func(e *Engine) { e.fetcher = f }
}

func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

func WithRand(r *rand.Rand) EngineOption {
	return func(e *Engine) { e.rng = r }
}

func New(opts Options, options ...EngineOption) *Engine {
	e := &Engine{
		opts:     opts,
		now:      time.Now,
		answers:  make(map[string]models.AnswerRecord),
		selected: make(map[string]string),
	}
	for _, o := range options {
		o(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return e
}

func (e *Engine) log(ctx context.Context) *logger.Logger {
	l := logger.FromContext(ctx).WithPrefix("quiz")
	if e.opts.PersistKey != "" {
		l = l.WithField("session", e.opts.PersistKey)
	}
	return l
}

// Subscribe registers h for kind and returns a function that removes it.
func (e *Engine) Subscribe(kind EventKind, h Handler) func() {
	id := e.observers.add(kind, h)
	return func() { e.observers.remove(kind, id) }
}

// Init builds the question list from src and, when a snapshot with exactly
// the same id sequence is stored under the persist key, resumes its cursor
// and answers. A snapshot for a different sequence is discarded.
func (e *Engine) Init(ctx context.Context, src Source) error {
	log := e.log(ctx)

	var qs []models.Question
	switch {
	case src.Questions != nil || src.Raw != nil:
		qs = append(qs, src.Questions...)
		for _, r := range src.Raw {
			qs = append(qs, bank.Normalize(r))
		}
	case len(src.URLs) > 0:
		if e.fetcher == nil {
			return ErrNoSource
		}
		raws, err := e.fetcher.FetchAll(ctx, src.URLs)
		if err != nil {
			log.Error("failed to load sources: %v", err)
			return fmt.Errorf("quiz: load sources: %w", err)
		}
		for _, r := range raws {
			qs = append(qs, bank.Normalize(r))
		}
	default:
		return ErrNoSource
	}

	qs = bank.UniqByID(qs)
	if e.opts.ShuffleAlternatives {
		qs = e.shuffleAlternatives(qs)
	}
	if e.opts.ShuffleQuestions {
		e.rng.Shuffle(len(qs), func(i, j int) { qs[i], qs[j] = qs[j], qs[i] })
	}
	if e.opts.Limit > 0 && len(qs) > e.opts.Limit {
		qs = qs[:e.opts.Limit]
	}
	if len(qs) == 0 {
		return ErrNoQuestions
	}

	e.questions = qs
	e.index = 0
	e.answers = make(map[string]models.AnswerRecord)
	e.selected = make(map[string]string)
	e.finished = false
	e.resumed = false
	e.resume(ctx)

	e.initialized = true
	now := e.now()
	e.startTime = now
	e.questionStart = now
	e.markSeen()
	e.persist(ctx)

	log.Info("session started with %d questions (resumed=%t, index=%d)", len(qs), e.resumed, e.index)
	return nil
}

func (e *Engine) shuffleAlternatives(qs []models.Question) []models.Question {
	out := make([]models.Question, len(qs))
	for i, q := range qs {
		alts := append([]models.Alternative(nil), q.Alternativas...)
		e.rng.Shuffle(len(alts), func(a, b int) { alts[a], alts[b] = alts[b], alts[a] })
		q.Alternativas = alts
		out[i] = q
	}
	return out
}

func (e *Engine) resume(ctx context.Context) {
	if e.opts.PersistKey == "" || e.sessions == nil {
		return
	}
	log := e.log(ctx)
	saved, ok := e.sessions.Load(ctx, e.opts.PersistKey)
	if !ok {
		return
	}
	if !sameSequence(saved.Questions, e.questions) {
		log.Info("stored session has a different question set, discarding it")
		if err := e.sessions.Delete(ctx, e.opts.PersistKey); err != nil {
			log.Warn("failed to discard stale session: %v", err)
		}
		return
	}
	e.index = min(max(saved.Index, 0), len(e.questions)-1)
	for id, rec := range saved.Answers {
		e.answers[id] = rec
	}
	e.resumed = true
}

func sameSequence(ids []string, qs []models.Question) bool {
	if len(ids) != len(qs) {
		return false
	}
	for i, id := range ids {
		if qs[i].ID != id {
			return false
		}
	}
	return true
}

func (e *Engine) current() (models.Question, bool) {
	if !e.initialized || e.index < 0 || e.index >= len(e.questions) {
		return models.Question{}, false
	}
	return e.questions[e.index], true
}

// Select sets the pending choice for the current question. Checked
// questions can be selected again; locking answers is up to the caller.
func (e *Engine) Select(key string) error {
	q, ok := e.current()
	if !ok {
		return ErrNotInitialized
	}
	for _, a := range q.Alternativas {
		if a.Key == key {
			e.selected[q.ID] = key
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownChoice, key)
}

// Check grades the pending choice of the current question. With no choice
// it returns a prompt and changes nothing.
func (e *Engine) Check(ctx context.Context) (CheckResult, error) {
	q, ok := e.current()
	if !ok {
		return CheckResult{}, ErrNotInitialized
	}

	key := e.selected[q.ID]
	if key == "" {
		return CheckResult{QuestionID: q.ID, Prompt: SelectPrompt}, nil
	}

	elapsed := e.now().Sub(e.questionStart).Milliseconds()
	if elapsed < 0 {
		elapsed = 0
	}
	prev := e.answers[q.ID]
	rec := models.AnswerRecord{
		SelectedKey: key,
		IsCorrect:   key == q.Correta,
		IsChecked:   true,
		Time:        elapsed,
		Flagged:     prev.Flagged,
		Seen:        prev.Seen,
	}
	e.answers[q.ID] = rec
	e.persist(ctx)

	e.log(ctx).Debug("checked %s: correct=%t time=%dms", q.ID, rec.IsCorrect, rec.Time)
	e.emit(ctx, Event{Kind: AnswerChecked, Index: e.index, QuestionID: q.ID, Question: &q, Answer: &rec})

	res := CheckResult{QuestionID: q.ID, Recorded: true, Answer: rec, Correta: q.Correta}
	if e.opts.ShowExplainOnCheck {
		res.Explicacao = q.Explicacao
	}
	return res, nil
}

// Next moves forward one question. It reports false at the last question.
func (e *Engine) Next(ctx context.Context) bool {
	if !e.initialized || e.index >= len(e.questions)-1 {
		return false
	}
	e.moveTo(ctx, e.index+1)
	return true
}

// Prev moves back one question. It reports false at the first question.
func (e *Engine) Prev(ctx context.Context) bool {
	if !e.initialized || e.index <= 0 {
		return false
	}
	e.moveTo(ctx, e.index-1)
	return true
}

// Skip advances without checking.
func (e *Engine) Skip(ctx context.Context) bool {
	return e.Next(ctx)
}

// GoTo jumps to question i.
func (e *Engine) GoTo(ctx context.Context, i int) error {
	if !e.initialized {
		return ErrNotInitialized
	}
	if i < 0 || i >= len(e.questions) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	e.moveTo(ctx, i)
	return nil
}

func (e *Engine) moveTo(ctx context.Context, i int) {
	e.index = i
	e.questionStart = e.now()
	e.markSeen()
	e.persist(ctx)
	q := e.questions[i]
	e.emit(ctx, Event{Kind: Navigated, Index: i, QuestionID: q.ID})
}

func (e *Engine) markSeen() {
	if !e.opts.TrackSeen {
		return
	}
	q := e.questions[e.index]
	rec, ok := e.answers[q.ID]
	if ok && rec.Seen {
		return
	}
	rec.Seen = true
	e.answers[q.ID] = rec
}

// ReviewFirstError moves to the first checked-and-wrong question. It reports
// false and stays put when there is none.
func (e *Engine) ReviewFirstError(ctx context.Context) bool {
	if !e.initialized {
		return false
	}
	for i, q := range e.questions {
		if a, ok := e.answers[q.ID]; ok && a.IsChecked && !a.IsCorrect {
			e.moveTo(ctx, i)
			return true
		}
	}
	return false
}

// FirstUnanswered moves to the first question not yet checked.
func (e *Engine) FirstUnanswered(ctx context.Context) bool {
	if !e.initialized {
		return false
	}
	for i, q := range e.questions {
		if a, ok := e.answers[q.ID]; !ok || !a.IsChecked {
			e.moveTo(ctx, i)
			return true
		}
	}
	return false
}

// ToggleFlag marks or unmarks the current question for review and returns
// the new flag. Flagging creates an answer entry that is not checked.
func (e *Engine) ToggleFlag(ctx context.Context) (bool, error) {
	q, ok := e.current()
	if !ok {
		return false, ErrNotInitialized
	}
	rec := e.answers[q.ID]
	rec.Flagged = !rec.Flagged
	e.answers[q.ID] = rec
	e.persist(ctx)
	return rec.Flagged, nil
}

// Summary computes totals over the current answers. Pct is over all
// questions, not only the answered ones.
func (e *Engine) Summary() models.SessionSummary {
	s := models.SessionSummary{Total: len(e.questions)}
	for _, q := range e.questions {
		a, ok := e.answers[q.ID]
		if !ok || !a.IsChecked {
			continue
		}
		s.Answered++
		if a.IsCorrect {
			s.Correct++
		}
	}
	s.Pct = models.Percent(s.Correct, s.Total)
	return s
}

// Finish marks the session finished and emits SessionFinished.
func (e *Engine) Finish(ctx context.Context) (models.SessionSummary, error) {
	if !e.initialized {
		return models.SessionSummary{}, ErrNotInitialized
	}
	e.finished = true
	summary := e.Summary()
	e.persist(ctx)

	e.log(ctx).Info("session finished: %d/%d correct (%d%%)", summary.Correct, summary.Total, summary.Pct)
	e.emit(ctx, Event{
		Kind:      SessionFinished,
		Index:     e.index,
		Summary:   &summary,
		Questions: e.Questions(),
		Answers:   e.Answers(),
		Elapsed:   e.now().Sub(e.startTime),
	})
	return summary, nil
}

// Restart reshuffles (when shuffling is enabled) and clears all progress.
func (e *Engine) Restart(ctx context.Context) error {
	if !e.initialized {
		return ErrNotInitialized
	}
	qs := append([]models.Question(nil), e.questions...)
	if e.opts.ShuffleQuestions {
		e.rng.Shuffle(len(qs), func(i, j int) { qs[i], qs[j] = qs[j], qs[i] })
	}
	if e.opts.ShuffleAlternatives {
		qs = e.shuffleAlternatives(qs)
	}
	e.questions = qs
	e.reset(ctx)
	return nil
}

// NewSession keeps the question order and clears the answers.
func (e *Engine) NewSession(ctx context.Context) error {
	if !e.initialized {
		return ErrNotInitialized
	}
	e.reset(ctx)
	return nil
}

func (e *Engine) reset(ctx context.Context) {
	e.answers = make(map[string]models.AnswerRecord)
	e.selected = make(map[string]string)
	e.index = 0
	e.finished = false
	now := e.now()
	e.startTime = now
	e.questionStart = now
	e.markSeen()
	e.persist(ctx)
	e.emit(ctx, Event{Kind: Navigated, Index: 0, QuestionID: e.questions[0].ID})
}

// ClearProgress deletes the stored snapshot. The in-memory session is kept.
func (e *Engine) ClearProgress(ctx context.Context) error {
	if e.opts.PersistKey == "" || e.sessions == nil {
		return nil
	}
	return e.sessions.Delete(ctx, e.opts.PersistKey)
}

// Snapshot is the persisted form of the session.
func (e *Engine) Snapshot() models.SessionSnapshot {
	ids := make([]string, len(e.questions))
	for i, q := range e.questions {
		ids[i] = q.ID
	}
	return models.SessionSnapshot{
		Questions: ids,
		Index:     e.index,
		Answers:   e.Answers(),
		Finished:  e.finished,
		SavedAt:   e.now().UnixMilli(),
	}
}

func (e *Engine) persist(ctx context.Context) {
	if e.opts.PersistKey == "" || e.sessions == nil {
		return
	}
	if err := e.sessions.Save(ctx, e.opts.PersistKey, e.Snapshot()); err != nil {
		e.log(ctx).Warn("failed to persist session: %v", err)
	}
}

func (e *Engine) emit(ctx context.Context, ev Event) {
	ev.SessionKey = e.opts.PersistKey
	ev.At = e.now()
	e.observers.emit(ctx, ev)
}

func (e *Engine) Key() string          { return e.opts.PersistKey }
func (e *Engine) Options() Options     { return e.opts }
func (e *Engine) Index() int           { return e.index }
func (e *Engine) Finished() bool       { return e.finished }
func (e *Engine) Initialized() bool    { return e.initialized }
func (e *Engine) Resumed() bool        { return e.resumed }
func (e *Engine) StartTime() time.Time { return e.startTime }
func (e *Engine) Len() int             { return len(e.questions) }

// Current returns the question under the cursor.
func (e *Engine) Current() (models.Question, bool) { return e.current() }

// Selected returns the pending choice for the current question.
func (e *Engine) Selected() string {
	q, ok := e.current()
	if !ok {
		return ""
	}
	return e.selected[q.ID]
}

func (e *Engine) Questions() []models.Question {
	return append([]models.Question(nil), e.questions...)
}

func (e *Engine) Answers() map[string]models.AnswerRecord {
	out := make(map[string]models.AnswerRecord, len(e.answers))
	for k, v := range e.answers {
		out[k] = v
	}
	return out
}
