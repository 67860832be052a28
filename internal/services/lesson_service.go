package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/vytor/ctiprep/internal/errors"
	"github.com/vytor/ctiprep/internal/logger"
	"github.com/vytor/ctiprep/internal/models"
)

// DefaultLessonSize is the number of questions in a lesson when the request
// does not say.
const DefaultLessonSize = 10

// LessonRequest selects the questions of a lesson. Fields are compared
// case-insensitively; empty fields match everything.
type LessonRequest struct {
	Area  string `json:"area"`
	Tema  string `json:"tema"`
	Nivel string `json:"nivel,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// Lesson is a selection ready to be loaded into a quiz session.
type Lesson struct {
	Key       string            `json:"key"`
	Mode      string            `json:"mode"`
	Questions []models.Question `json:"questions"`
}

// LessonService picks lesson questions and records finished lessons and
// list practice sessions.
type LessonService interface {
	Questions(ctx context.Context, req LessonRequest) (*Lesson, error)
	Record(ctx context.Context, mode string, questions []models.Question, answers map[string]models.AnswerRecord, startedAt time.Time) (models.HistoryRecord, error)
}

type lessonService struct {
	bank    QuestionSource
	history HistoryService
	opts    options
}

func NewLessonService(bank QuestionSource, history HistoryService, opts ...Option) LessonService {
	return &lessonService{bank: bank, history: history, opts: buildOptions(opts)}
}

// stripMarks returns a fresh chain; transformers carry state between calls.
func stripMarks() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// Slug lowercases s, drops accents and joins the remaining words with '-'.
// It is safe for concurrent use.
func Slug(s string) string {
	plain, _, err := transform.String(stripMarks(), s)
	if err != nil {
		plain = s
	}
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(plain) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
			continue
		}
		dash = true
	}
	return b.String()
}

// LessonSessionKey is the session key of the lesson on area and tema.
func LessonSessionKey(area, tema string) string {
	return fmt.Sprintf("quiz:les:%s:%s:v1", Slug(area), Slug(tema))
}

// LessonMode is the history mode of the lesson on area and tema.
func LessonMode(area, tema string) string {
	return fmt.Sprintf("%s:%s:%s", models.ModeLesson, Slug(area), Slug(tema))
}

func matchFold(want, got string) bool {
	return want == "" || strings.EqualFold(strings.TrimSpace(want), strings.TrimSpace(got))
}

func (s *lessonService) Questions(ctx context.Context, req LessonRequest) (*Lesson, error) {
	log := logger.FromContext(ctx).WithPrefix("lesson_service")

	if strings.TrimSpace(req.Area) == "" && strings.TrimSpace(req.Tema) == "" {
		return nil, errors.NewValidationError("tema", "area or tema is required")
	}
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultLessonSize
	}

	var picked []models.Question
	for _, q := range s.bank.Questions() {
		if matchFold(req.Area, q.Area) && matchFold(req.Tema, q.Tema) && matchFold(req.Nivel, q.Nivel) {
			picked = append(picked, q)
		}
	}
	if len(picked) == 0 {
		return nil, errors.NewBadRequestError(fmt.Sprintf("no questions for area %q and tema %q", req.Area, req.Tema))
	}
	s.opts.rng.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })
	if len(picked) > limit {
		picked = picked[:limit]
	}

	log.Debug("lesson %s/%s: %d questions", req.Area, req.Tema, len(picked))
	return &Lesson{
		Key:       LessonSessionKey(req.Area, req.Tema),
		Mode:      LessonMode(req.Area, req.Tema),
		Questions: picked,
	}, nil
}

// Record adds a finished lesson or practice session to history. Its duration
// runs from startedAt and is at least one second.
func (s *lessonService) Record(ctx context.Context, mode string, questions []models.Question, answers map[string]models.AnswerRecord, startedAt time.Time) (models.HistoryRecord, error) {
	if len(questions) == 0 {
		return models.HistoryRecord{}, errors.NewBadRequestError("session has no questions")
	}
	secs := int64(math.Round(s.opts.now().Sub(startedAt).Seconds()))
	if secs < 1 {
		secs = 1
	}
	return s.history.Record(ctx, BuildRecord(mode, questions, answers, secs))
}
