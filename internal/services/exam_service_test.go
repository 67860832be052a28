package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	apperrors "github.com/vytor/ctiprep/internal/errors"
	"github.com/vytor/ctiprep/internal/models"
	"github.com/vytor/ctiprep/internal/repository/kvstore"
	"github.com/vytor/ctiprep/internal/services"
	"github.com/vytor/ctiprep/internal/testutil/mocks"
)

const examDuration = 16200 * time.Second

func examBank() []models.Question {
	return append(bankOf("Matemática", 4), bankOf("Português", 2)...)
}

func (e *env) examService(loader services.BlueprintLoader, source string) services.ExamService {
	return services.NewExamService(kvstore.NewExamRepository(e.store), e.history, e.catalog, loader, source, examDuration, e.opts()...)
}

func TestAssemble_FromBlueprint(t *testing.T) {
	e := newEnv(t, examBank()...)
	svc := e.examService(nil, "")
	ctx := context.Background()

	plan, err := svc.Assemble(ctx, &models.Blueprint{Blocos: []models.BlueprintBlock{
		{Disciplina: "Matemática", Quantidade: 3},
		{Disciplina: "Português", Quantidade: 5},
	}})
	require.NoError(t, err)
	assert.Len(t, plan.Questions, 5)
	assert.Equal(t, map[string]int{"Matemática": 3, "Português": 2}, plan.Meta.SelectedCount)
	assert.Equal(t, []string{"Disciplina Português: banco atual fornece 2 de 5 itens."}, plan.Meta.Avisos)

	meta, ok := svc.Meta(ctx)
	require.True(t, ok)
	assert.Equal(t, plan.Meta.Questions, meta.Questions)
	assert.Equal(t, epoch.UnixMilli(), meta.CreatedAt)
}

func TestAssemble_LoadsConfiguredBlueprint(t *testing.T) {
	e := newEnv(t, examBank()...)
	loader := new(mocks.MockFetcher)
	loader.On("FetchBlueprint", mock.Anything, "bp.json").
		Return(&models.Blueprint{Blocos: []models.BlueprintBlock{{Disciplina: "Português", Quantidade: 2}}}, nil)

	plan, err := e.examService(loader, "bp.json").Assemble(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, plan.Questions, 2)
	assert.Empty(t, plan.Meta.Avisos)
	loader.AssertExpectations(t)
}

func TestAssemble_Errors(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.examService(nil, "").Assemble(ctx, nil)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, 400, appErr.Status)

	loader := new(mocks.MockFetcher)
	loader.On("FetchBlueprint", mock.Anything, "bp.json").Return(nil, errors.New("boom"))
	_, err = e.examService(loader, "bp.json").Assemble(ctx, nil)
	appErr, ok = apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, 503, appErr.Status)

	_, err = e.examService(nil, "").Assemble(ctx, &models.Blueprint{Blocos: []models.BlueprintBlock{{Disciplina: "Física", Quantidade: 2}}})
	appErr, ok = apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, 400, appErr.Status, "an empty bank yields no exam")
}

func TestFinish_BuildsResult(t *testing.T) {
	qs := examBank()
	e := newEnv(t, qs...)
	svc := e.examService(nil, "")
	ctx := context.Background()

	answers := map[string]models.AnswerRecord{
		qs[0].ID: checked(true, 1000),
		qs[1].ID: checked(true, 1000),
		qs[4].ID: checked(false, 1000),
	}
	rec, err := svc.Finish(ctx, qs, answers, examDuration-10*time.Minute)
	require.NoError(t, err)

	assert.Equal(t, models.ModeExam, rec.Mode)
	assert.Equal(t, 6, rec.Total)
	assert.Equal(t, 2, rec.Correct)
	assert.Equal(t, 33, rec.Pct)
	require.NotNil(t, rec.DurationSeconds)
	assert.Equal(t, int64(600), *rec.DurationSeconds)
	assert.Equal(t, models.DisciplineScore{Total: 4, Correct: 2, Pct: 50}, rec.PorDisciplina["Matemática"])
	assert.Equal(t, models.DisciplineScore{Total: 2, Correct: 0, Pct: 0}, rec.PorDisciplina["Português"])

	require.Len(t, rec.Erradas, 4, "wrong and unanswered")
	assert.Equal(t, 3, rec.Erradas[0].Index)
	assert.Empty(t, rec.Erradas[0].Marcada)
	assert.Equal(t, "B", rec.Erradas[2].Marcada)
	assert.Equal(t, "A", rec.Erradas[2].Correta)

	last, ok := svc.Result(ctx)
	require.True(t, ok)
	assert.Equal(t, rec.ID, last.ID)
	assert.Len(t, e.exam.List(ctx), 1)
}

func TestFinish_NegativeRemainingCountsFullDuration(t *testing.T) {
	qs := bankOf("Matemática", 1)
	e := newEnv(t, qs...)

	rec, err := e.examService(nil, "").Finish(context.Background(), qs, nil, -time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(16200), *rec.DurationSeconds)
	assert.Equal(t, 0, rec.Pct)
}

func TestExamStorageFailuresAreLoggedOnly(t *testing.T) {
	qs := bankOf("Matemática", 2)
	e := newEnv(t, qs...)
	ctx := context.Background()

	repo := new(mocks.MockExamRepository)
	repo.On("SaveMeta", mock.Anything, mock.Anything).Return(errors.New("disk full"))
	repo.On("SaveResult", mock.Anything, mock.Anything).Return(errors.New("disk full"))
	svc := services.NewExamService(repo, e.history, e.catalog, nil, "", examDuration, e.opts()...)

	plan, err := svc.Assemble(ctx, &models.Blueprint{Blocos: []models.BlueprintBlock{{Disciplina: "Matemática", Quantidade: 2}}})
	require.NoError(t, err)
	assert.Len(t, plan.Questions, 2)

	rec, err := svc.Finish(ctx, qs, nil, examDuration)
	require.NoError(t, err)
	assert.Len(t, e.exam.List(ctx), 1, "history is still written")
	assert.Equal(t, rec.ID, e.exam.List(ctx)[0].ID)
	repo.AssertExpectations(t)
}
