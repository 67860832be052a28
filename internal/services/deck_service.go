package services

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/vytor/ctiprep/internal/errors"
	"github.com/vytor/ctiprep/internal/leitner"
	"github.com/vytor/ctiprep/internal/logger"
	"github.com/vytor/ctiprep/internal/models"
	"github.com/vytor/ctiprep/internal/quiz"
	"github.com/vytor/ctiprep/internal/repository"
	"github.com/vytor/ctiprep/internal/repository/kvstore"
)

// Deck setting bounds.
const (
	MinDailyGoal  = 5
	MaxDailyGoal  = 100
	MinNewPerDay  = 0
	MaxNewPerDay  = 50
	MinAddQty     = 1
	MaxAddQty     = 200
	DefaultListed = 10
)

// SettingsUpdate changes only the fields that are set.
type SettingsUpdate struct {
	DailyGoal *int `json:"dailyGoal,omitempty"`
	NewPerDay *int `json:"newPerDay,omitempty"`
}

// DeckService bridges the Leitner scheduler, the question bank and quiz
// sessions of the adaptive mode.
type DeckService interface {
	Deck(ctx context.Context) *models.Deck
	Stats(ctx context.Context) models.DeckStats
	List(ctx context.Context, limit int) []models.DeckEntry
	AddItems(ctx context.Context, candidates []models.Question, limit int) (int, error)
	AddFromBank(ctx context.Context, filter models.QuestionFilter, qty int) (int, error)
	UpdateSettings(ctx context.Context, update SettingsUpdate) (models.DeckSettings, error)
	BuildSession(ctx context.Context, filter models.QuestionFilter) ([]models.Question, error)
	ResumeSession(ctx context.Context) ([]models.Question, bool)
	OnAnswerChecked(ctx context.Context, questionID string, correct bool, elapsedMs *int64) bool
	OnSessionFinished(ctx context.Context, questions []models.Question, answers map[string]models.AnswerRecord, elapsed time.Duration) (models.HistoryRecord, error)
	Attach(engine *quiz.Engine) func()
	Export(ctx context.Context) models.DeckExport
	Import(ctx context.Context, data []byte) error
	Reset(ctx context.Context) error
}

type deckService struct {
	decks    repository.DeckRepository
	sessions repository.SessionRepository
	adaptive repository.HistoryRepository
	history  HistoryService
	bank     QuestionSource
	opts     options
}

// NewDeckService creates a DeckService. adaptive is the adaptive history
// bucket, exported and reset together with the deck.
func NewDeckService(decks repository.DeckRepository, sessions repository.SessionRepository, adaptive repository.HistoryRepository, history HistoryService, bank QuestionSource, opts ...Option) DeckService {
	return &deckService{
		decks:    decks,
		sessions: sessions,
		adaptive: adaptive,
		history:  history,
		bank:     bank,
		opts:     buildOptions(opts),
	}
}

func (s *deckService) log(ctx context.Context) *logger.Logger {
	return logger.FromContext(ctx).WithPrefix("deck_service")
}

func (s *deckService) Deck(ctx context.Context) *models.Deck {
	return s.decks.Load(ctx)
}

func (s *deckService) Stats(ctx context.Context) models.DeckStats {
	return leitner.Stats(s.decks.Load(ctx), s.opts.now())
}

// List returns the first limit items by due date, joined with the bank.
func (s *deckService) List(ctx context.Context, limit int) []models.DeckEntry {
	if limit <= 0 {
		limit = DefaultListed
	}
	deck := s.decks.Load(ctx)
	items := make([]models.ScheduledItem, 0, len(deck.Items))
	for _, it := range deck.Items {
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Due != items[j].Due {
			return items[i].Due < items[j].Due
		}
		return items[i].ID < items[j].ID
	})
	if len(items) > limit {
		items = items[:limit]
	}

	out := make([]models.DeckEntry, 0, len(items))
	for _, it := range items {
		e := models.DeckEntry{Item: it}
		if q, ok := s.bank.Lookup(it.ID); ok {
			e.Question = &q
		}
		out = append(out, e)
	}
	return out
}

// addTo inserts up to limit candidates missing from deck. A limit <= 0
// means no limit.
func (s *deckService) addTo(deck *models.Deck, candidates []models.Question, limit int) int {
	now := s.opts.now()
	added := 0
	for _, q := range candidates {
		if limit > 0 && added >= limit {
			break
		}
		if q.ID == "" {
			continue
		}
		if _, ok := deck.Items[q.ID]; ok {
			continue
		}
		deck.Items[q.ID] = leitner.NewItem(q, now)
		added++
	}
	return added
}

func (s *deckService) AddItems(ctx context.Context, candidates []models.Question, limit int) (int, error) {
	deck := s.decks.Load(ctx)
	added := s.addTo(deck, candidates, limit)
	if err := s.decks.Save(ctx, deck); err != nil {
		s.log(ctx).Error("failed to save deck: %v", err)
		return 0, errors.NewUnavailableError("deck storage", err)
	}
	s.log(ctx).Info("added %d of %d candidates to the deck", added, len(candidates))
	return added, nil
}

// AddFromBank draws twice qty candidates so that the deck gets close to
// qty new items even after duplicates are skipped.
func (s *deckService) AddFromBank(ctx context.Context, filter models.QuestionFilter, qty int) (int, error) {
	qty = clamp(qty, MinAddQty, MaxAddQty)
	deck := s.decks.Load(ctx)
	candidates := leitner.PickNewCandidates(s.bank.Questions(), deck, filter, qty*2, s.opts.rng)
	return s.AddItems(ctx, candidates, qty)
}

func (s *deckService) UpdateSettings(ctx context.Context, update SettingsUpdate) (models.DeckSettings, error) {
	deck := s.decks.Load(ctx)
	if update.DailyGoal != nil {
		deck.Settings.DailyGoal = clamp(*update.DailyGoal, MinDailyGoal, MaxDailyGoal)
	}
	if update.NewPerDay != nil {
		deck.Settings.NewPerDay = clamp(*update.NewPerDay, MinNewPerDay, MaxNewPerDay)
	}
	if err := s.decks.Save(ctx, deck); err != nil {
		return deck.Settings, errors.NewUnavailableError("deck storage", err)
	}
	return deck.Settings, nil
}

// BuildSession returns the due questions (at most dailyGoal) followed by new
// candidates that fill the remaining goal, capped by newPerDay. New
// candidates enter the deck as a side effect.
func (s *deckService) BuildSession(ctx context.Context, filter models.QuestionFilter) ([]models.Question, error) {
	log := s.log(ctx)
	deck := s.decks.Load(ctx)
	goal := deck.Settings.DailyGoal
	newPerDay := deck.Settings.NewPerDay

	var selected []models.Question
	for _, it := range leitner.SelectDue(deck, s.opts.now(), goal) {
		if q, ok := s.bank.Lookup(it.ID); ok {
			selected = append(selected, q)
		}
	}
	due := len(selected)

	if len(selected) < goal && newPerDay > 0 {
		toAdd := min(newPerDay, goal-len(selected))
		candidates := leitner.PickNewCandidates(s.bank.Questions(), deck, filter, toAdd, s.opts.rng)
		if len(candidates) > 0 {
			s.addTo(deck, candidates, toAdd)
			if err := s.decks.Save(ctx, deck); err != nil {
				log.Error("failed to save deck with new items: %v", err)
				return nil, errors.NewUnavailableError("deck storage", err)
			}
			selected = append(selected, candidates...)
		}
	}

	if len(selected) == 0 {
		return nil, &errors.AppError{
			Code:    errors.ErrCodeNothingToDo,
			Message: "nothing due today and no new items to add; adjust the filters or the goal",
			Status:  409,
			Err:     ErrNothingToDo,
		}
	}
	log.Info("built session: %d due, %d new", due, len(selected)-due)
	return selected, nil
}

// ResumeSession rebuilds the questions of the stored adaptive session.
func (s *deckService) ResumeSession(ctx context.Context) ([]models.Question, bool) {
	snap, ok := s.sessions.Load(ctx, kvstore.AdaptiveSessionKey)
	if !ok {
		return nil, false
	}
	qs := s.bank.Resolve(snap.Questions)
	return qs, len(qs) > 0
}

// OnAnswerChecked reschedules one item. Unknown ids and failed writes are
// logged and otherwise ignored.
func (s *deckService) OnAnswerChecked(ctx context.Context, questionID string, correct bool, elapsedMs *int64) bool {
	log := s.log(ctx)
	deck := s.decks.Load(ctx)
	if !leitner.OnAnswer(deck, questionID, correct, elapsedMs, s.opts.now()) {
		log.Debug("answer for %s ignored: not in deck", questionID)
		return false
	}
	if err := s.decks.Save(ctx, deck); err != nil {
		log.Warn("failed to save deck after answer to %s: %v", questionID, err)
		return false
	}
	it := deck.Items[questionID]
	log.Debug("rescheduled %s: box=%d due=%d", questionID, it.Box, it.Due)
	return true
}

// OnSessionFinished records an adaptive history entry. Pct is over the
// answered questions and only answered questions become items.
func (s *deckService) OnSessionFinished(ctx context.Context, questions []models.Question, answers map[string]models.AnswerRecord, elapsed time.Duration) (models.HistoryRecord, error) {
	var items []models.HistoryItem
	correct := 0
	for _, q := range questions {
		a, ok := answers[q.ID]
		if !ok || !a.IsChecked {
			continue
		}
		t := a.Time
		items = append(items, models.HistoryItem{
			ID:         q.ID,
			Disciplina: q.Disciplina,
			Area:       q.Area,
			Tema:       q.Tema,
			Correct:    a.IsCorrect,
			Time:       &t,
		})
		if a.IsCorrect {
			correct++
		}
	}
	answered := len(items)
	ms := elapsed.Milliseconds()
	secs := int64(elapsed / time.Second)

	rec := models.HistoryRecord{
		Mode:            models.ModeAdaptive,
		Total:           len(questions),
		Answered:        &answered,
		Correct:         correct,
		Pct:             models.Percent(correct, answered),
		DurationSeconds: &secs,
		Time:            &ms,
		Items:           items,
		Questions:       questionIDs(questions),
	}
	return s.history.Record(ctx, rec)
}

// Attach subscribes the deck to engine events and returns the function that
// detaches it.
func (s *deckService) Attach(engine *quiz.Engine) func() {
	offChecked := engine.Subscribe(quiz.AnswerChecked, func(ctx context.Context, ev quiz.Event) {
		if ev.Answer == nil {
			return
		}
		t := ev.Answer.Time
		s.OnAnswerChecked(ctx, ev.QuestionID, ev.Answer.IsCorrect, &t)
	})
	offFinished := engine.Subscribe(quiz.SessionFinished, func(ctx context.Context, ev quiz.Event) {
		if _, err := s.OnSessionFinished(ctx, ev.Questions, ev.Answers, ev.Elapsed); err != nil {
			s.log(ctx).Warn("failed to record adaptive session: %v", err)
		}
	})
	return func() {
		offChecked()
		offFinished()
	}
}

func (s *deckService) Export(ctx context.Context) models.DeckExport {
	return models.DeckExport{Deck: s.decks.Load(ctx), History: s.adaptive.List(ctx)}
}

// Import replaces the deck, and the adaptive history when present, from an
// export document. The payload is validated before anything is written.
func (s *deckService) Import(ctx context.Context, data []byte) error {
	log := s.log(ctx)
	invalid := func(msg string, err error) error {
		log.Warn("rejected deck import: %s (%v)", msg, err)
		return &errors.AppError{Code: errors.ErrCodeBadRequest, Message: msg, Status: 400, Err: ErrInvalidImport}
	}

	var payload struct {
		Deck *struct {
			Items    map[string]models.ScheduledItem `json:"items"`
			Settings *models.DeckSettings            `json:"settings"`
		} `json:"deck"`
		History json.RawMessage `json:"history"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return invalid("invalid deck file: not a JSON object", err)
	}
	if payload.Deck == nil || payload.Deck.Items == nil {
		return invalid("invalid deck file: deck.items is required", nil)
	}

	var history []models.HistoryRecord
	hasHistory := len(payload.History) > 0 && string(payload.History) != "null"
	if hasHistory {
		if err := json.Unmarshal(payload.History, &history); err != nil {
			return invalid("invalid deck file: history must be an array", err)
		}
	}

	deck := &models.Deck{Items: make(map[string]models.ScheduledItem, len(payload.Deck.Items))}
	for id, it := range payload.Deck.Items {
		if it.ID == "" {
			it.ID = id
		}
		deck.Items[id] = it
	}
	current := s.decks.Load(ctx)
	deck.Settings = current.Settings
	if st := payload.Deck.Settings; st != nil {
		deck.Settings.DailyGoal = clamp(st.DailyGoal, MinDailyGoal, MaxDailyGoal)
		deck.Settings.NewPerDay = clamp(st.NewPerDay, MinNewPerDay, MaxNewPerDay)
	}

	// History goes first so a failed deck write can put it back.
	var previous []models.HistoryRecord
	if hasHistory {
		previous = s.adaptive.List(ctx)
		if err := s.adaptive.Replace(ctx, history); err != nil {
			return errors.NewUnavailableError("history storage", err)
		}
	}
	if err := s.decks.Save(ctx, deck); err != nil {
		if hasHistory {
			s.restoreHistory(ctx, previous)
		}
		return errors.NewUnavailableError("deck storage", err)
	}
	log.Info("imported deck with %d items and %d history records", len(deck.Items), len(history))
	return nil
}

func (s *deckService) restoreHistory(ctx context.Context, records []models.HistoryRecord) {
	var err error
	if len(records) == 0 {
		err = s.adaptive.Clear(ctx)
	} else {
		err = s.adaptive.Replace(ctx, records)
	}
	if err != nil {
		s.log(ctx).Error("failed to roll back adaptive history: %v", err)
	}
}

// Reset removes the deck, the adaptive session and the adaptive history.
func (s *deckService) Reset(ctx context.Context) error {
	var failed error
	if err := s.decks.Clear(ctx); err != nil {
		failed = err
	}
	if err := s.sessions.Delete(ctx, kvstore.AdaptiveSessionKey); err != nil {
		failed = err
	}
	if err := s.adaptive.Clear(ctx); err != nil {
		failed = err
	}
	if failed != nil {
		s.log(ctx).Error("deck reset incomplete: %v", failed)
		return errors.NewUnavailableError("deck storage", failed)
	}
	s.log(ctx).Info("deck reset")
	return nil
}

func questionIDs(qs []models.Question) []string {
	ids := make([]string, len(qs))
	for i, q := range qs {
		ids[i] = q.ID
	}
	return ids
}
