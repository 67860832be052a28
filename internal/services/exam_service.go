package services

import (
	"context"
	"time"

	"github.com/vytor/ctiprep/internal/bank"
	"github.com/vytor/ctiprep/internal/errors"
	"github.com/vytor/ctiprep/internal/logger"
	"github.com/vytor/ctiprep/internal/models"
	"github.com/vytor/ctiprep/internal/repository"
)

// ExamPlan is an assembled full exam.
type ExamPlan struct {
	Questions []models.Question `json:"questions"`
	Meta      models.ExamMeta   `json:"meta"`
}

// ExamService assembles full exams from a blueprint and records their
// results.
type ExamService interface {
	Assemble(ctx context.Context, bp *models.Blueprint) (*ExamPlan, error)
	Meta(ctx context.Context) (*models.ExamMeta, bool)
	Result(ctx context.Context) (*models.HistoryRecord, bool)
	Finish(ctx context.Context, questions []models.Question, answers map[string]models.AnswerRecord, remaining time.Duration) (models.HistoryRecord, error)
	Duration() time.Duration
}

// BlueprintLoader fetches the configured blueprint document.
type BlueprintLoader interface {
	FetchBlueprint(ctx context.Context, source string) (*models.Blueprint, error)
}

type examService struct {
	repo      repository.ExamRepository
	history   HistoryService
	bank      QuestionSource
	loader    BlueprintLoader
	blueprint string
	duration  time.Duration
	opts      options
}

// NewExamService creates an ExamService. blueprint is the source used when
// Assemble is called without one; it may be empty.
func NewExamService(repo repository.ExamRepository, history HistoryService, source QuestionSource, loader BlueprintLoader, blueprint string, duration time.Duration, opts ...Option) ExamService {
	return &examService{
		repo:      repo,
		history:   history,
		bank:      source,
		loader:    loader,
		blueprint: blueprint,
		duration:  duration,
		opts:      buildOptions(opts),
	}
}

func (s *examService) Duration() time.Duration { return s.duration }

func (s *examService) Assemble(ctx context.Context, bp *models.Blueprint) (*ExamPlan, error) {
	log := logger.FromContext(ctx).WithPrefix("exam_service")

	if bp == nil {
		if s.blueprint == "" || s.loader == nil {
			return nil, errors.NewBadRequestError("no blueprint given and none configured")
		}
		loaded, err := s.loader.FetchBlueprint(ctx, s.blueprint)
		if err != nil {
			log.Error("failed to load blueprint: %v", err)
			return nil, errors.NewUnavailableError("blueprint", err)
		}
		bp = loaded
	}
	if len(bp.Blocos) == 0 {
		return nil, errors.NewValidationError("blocos", "blueprint has no blocks")
	}

	asm := bank.Assemble(s.bank.Questions(), *bp, s.opts.rng)
	if len(asm.Questions) == 0 {
		return nil, errors.NewBadRequestError("not enough questions in the bank to assemble the exam")
	}

	meta := models.ExamMeta{
		Expected:      asm.Expected,
		SelectedCount: asm.SelectedCount,
		Avisos:        asm.Avisos,
		Questions:     questionIDs(asm.Questions),
		CreatedAt:     s.opts.now().UnixMilli(),
	}
	if meta.Avisos == nil {
		meta.Avisos = []string{}
	}
	if err := s.repo.SaveMeta(ctx, meta); err != nil {
		log.Warn("failed to save exam meta: %v", err)
	}
	log.Info("assembled exam with %d questions, %d warnings", len(asm.Questions), len(meta.Avisos))
	return &ExamPlan{Questions: asm.Questions, Meta: meta}, nil
}

func (s *examService) Meta(ctx context.Context) (*models.ExamMeta, bool) {
	return s.repo.Meta(ctx)
}

func (s *examService) Result(ctx context.Context) (*models.HistoryRecord, bool) {
	return s.repo.Result(ctx)
}

// Finish builds the exam result. The duration is the exam length minus the
// time left on the clock. The result is kept as the last result and added
// to history.
func (s *examService) Finish(ctx context.Context, questions []models.Question, answers map[string]models.AnswerRecord, remaining time.Duration) (models.HistoryRecord, error) {
	log := logger.FromContext(ctx).WithPrefix("exam_service")

	used := int64((s.duration - max(0, remaining)) / time.Second)
	rec := BuildRecord(models.ModeExam, questions, answers, used)

	rec.PorDisciplina = map[string]models.DisciplineScore{}
	for _, q := range questions {
		d := q.Disciplina
		if d == "" {
			d = "—"
		}
		sc := rec.PorDisciplina[d]
		sc.Total++
		if a, ok := answers[q.ID]; ok && a.IsCorrect {
			sc.Correct++
		}
		rec.PorDisciplina[d] = sc
	}
	for d, sc := range rec.PorDisciplina {
		sc.Pct = models.Percent(sc.Correct, sc.Total)
		rec.PorDisciplina[d] = sc
	}

	rec.Erradas = []models.WrongAnswer{}
	for i, q := range questions {
		a, ok := answers[q.ID]
		if ok && a.IsCorrect {
			continue
		}
		rec.Erradas = append(rec.Erradas, models.WrongAnswer{
			Index:      i + 1,
			ID:         q.ID,
			Disciplina: q.Disciplina,
			Area:       q.Area,
			Tema:       q.Tema,
			Enunciado:  q.Enunciado,
			Marcada:    a.SelectedKey,
			Correta:    q.Correta,
			Explicacao: q.Explicacao,
		})
	}

	rec, err := s.history.Record(ctx, rec)
	if err != nil {
		return rec, err
	}
	if err := s.repo.SaveResult(ctx, rec); err != nil {
		log.Warn("failed to save exam result: %v", err)
	}
	return rec, nil
}
